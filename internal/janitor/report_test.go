package janitor

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWriteAndLoadReportRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	r := &Report{
		Version:   1,
		Timestamp: time.Now().Unix(),
		Counters: Counters{
			FileNotFound: Counter{Total: 2, Unrepairable: 1},
		},
		FilesNotFound: []FileNotFoundEntry{{FileHash: "abc", LocalPath: "/tmp/x"}},
	}
	require.NoError(t, WriteReport(path, r))

	loaded, err := LoadReport(path)
	require.NoError(t, err)
	require.Equal(t, r.Counters, loaded.Counters)
	require.Equal(t, r.FilesNotFound, loaded.FilesNotFound)
}

func TestLoadReportRejectsStaleReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	r := &Report{Version: 1, Timestamp: time.Now().Add(-2 * time.Hour).Unix()}
	require.NoError(t, WriteReport(path, r))

	_, err := LoadReport(path)
	require.Error(t, err)
}

func TestLoadReportRejectsMissingFile(t *testing.T) {
	_, err := LoadReport(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}
