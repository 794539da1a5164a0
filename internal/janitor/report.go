package janitor

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// reportMaxAge is how stale a --from-report file may be before it is
// rejected outright (4.6: "Reports older than one hour are rejected").
const reportMaxAge = time.Hour

// Counter is a {total, unrepairable} pair, one per problem category.
type Counter struct {
	Total        int `json:"total"`
	Unrepairable int `json:"unrepairable"`
}

// Counters is the full set of per-category counters in a Report.
type Counters struct {
	FileNotFound       Counter `json:"file_not_found"`
	IncorrectHashFiles Counter `json:"incorrect_hash_files"`
	IncorrectHashCores Counter `json:"incorrect_hash_cores"`
	UnusedHash         Counter `json:"unused_hash"`
	InvalidTagName     Counter `json:"invalid_tag_name"`
}

// FileNotFoundEntry records one file the Files phase couldn't open.
type FileNotFoundEntry struct {
	FileHash  string `json:"file_hash"`
	LocalPath string `json:"local_path"`
}

// IncorrectHashEntry records one file whose recomputed content digest
// didn't match what's stored. Tag-core mismatches are only counted, not
// listed.
type IncorrectHashEntry struct {
	Hash      string `json:"hash"`
	LocalPath string `json:"local_path,omitempty"`
}

// Report is the janitor's summary document: counters plus the offending
// rows, written as JSON so a later run can resume from --from-report.
type Report struct {
	Version         int                  `json:"version"`
	Counters        Counters             `json:"counters"`
	Timestamp       int64                `json:"timestamp"`
	FilesNotFound   []FileNotFoundEntry  `json:"files_not_found"`
	IncorrectHashes []IncorrectHashEntry `json:"incorrect_hashes"`
}

// WriteReport serializes r as JSON to path.
func WriteReport(path string, r *Report) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("janitor: marshal report: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}

// LoadReport reads and validates a previously written report, rejecting
// one older than reportMaxAge.
func LoadReport(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("janitor: read report: %w", err)
	}

	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("janitor: parse report: %w", err)
	}

	age := time.Since(time.Unix(r.Timestamp, 0))
	if age > reportMaxAge {
		return nil, fmt.Errorf("janitor: report %s is %s old, older than the %s limit", path, age, reportMaxAge)
	}
	return &r, nil
}
