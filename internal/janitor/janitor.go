// Package janitor is the offline consistency auditor: it validates the
// integrity_check/foreign_key_check PRAGMAs, file presence and content
// hashes, tag-core digests, unused hash rows, and tag-name regex
// compliance, optionally repairing what it safely can.
package janitor

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/awtfdb/awtfdb/internal/digest"
	"github.com/awtfdb/awtfdb/internal/library"
	"github.com/awtfdb/awtfdb/internal/store"
)

// Options controls which files the Files phase revisits, whether content
// hashes are recomputed, and whether discovered problems are repaired.
type Options struct {
	Full                 bool
	Only                 []string
	Repair               bool
	HashFilesSmallerThan int64 // 0 means unlimited
	FromReport           string
	SkipDB               bool
	SkipTagCores         bool
}

// Janitor audits one Store.
type Janitor struct {
	db     *store.Store
	config *library.Config
}

// New returns a Janitor over db.
func New(db *store.Store) *Janitor {
	return &Janitor{db: db, config: library.NewConfig()}
}

// Run executes every phase in order and returns the resulting report. A
// fatal problem (failed PRAGMA check, inconsistent index, manual
// intervention required) stops the run and returns an error; problems
// that fit the report schema are recorded in it instead and Run returns
// normally so the caller can decide whether to treat them as fatal.
func (j *Janitor) Run(ctx context.Context, opts Options) (*Report, error) {
	report := &Report{Version: 1}

	var loaded *Report
	if opts.FromReport != "" {
		var err error
		loaded, err = LoadReport(opts.FromReport)
		if err != nil {
			return nil, err
		}
	}

	if !opts.SkipDB {
		if err := j.checkPragmas(ctx); err != nil {
			return report, err
		}
	}

	if err := j.checkFiles(ctx, opts, loaded, report); err != nil {
		return report, err
	}

	if !opts.SkipTagCores {
		if err := j.checkTagCores(ctx, opts.Repair, report); err != nil {
			return report, err
		}
	}

	if err := j.checkUnusedHashes(ctx, opts.Repair, report); err != nil {
		return report, err
	}

	if err := j.checkTagNames(ctx, opts.Repair, report); err != nil {
		return report, err
	}

	report.Timestamp = time.Now().Unix()
	return report, nil
}

// checkPragmas runs phases 1 and 2 (integrity_check, foreign_key_check)
// concurrently: they're independent read-only PRAGMAs over the same
// connection pool, not a persistent background worker.
func (j *Janitor) checkPragmas(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var result string
		if err := j.db.DB().QueryRowContext(gctx, `PRAGMA integrity_check`).Scan(&result); err != nil {
			return err
		}
		if result != "ok" {
			return &store.FailedIntegrityCheckError{Detail: result}
		}
		return nil
	})

	g.Go(func() error {
		rows, err := j.db.DB().QueryContext(gctx, `PRAGMA foreign_key_check`)
		if err != nil {
			return err
		}
		defer rows.Close()
		var violations []store.ForeignKeyViolation
		for rows.Next() {
			var v store.ForeignKeyViolation
			if err := rows.Scan(&v.Table, &v.RowID, &v.Parent, &v.ConstraintIndex); err != nil {
				return err
			}
			violations = append(violations, v)
		}
		if err := rows.Err(); err != nil {
			return err
		}
		if len(violations) > 0 {
			return &store.FailedForeignKeyCheckError{Violations: violations}
		}
		return nil
	})

	return g.Wait()
}

type fileRow struct {
	hash string
	path string
}

// checkFiles is phase 3: for every file in scope, verify it still opens at
// its recorded path, and (if --full) recompute and compare its hash.
func (j *Janitor) checkFiles(ctx context.Context, opts Options, loaded *Report, report *Report) error {
	files, err := j.filesInScope(ctx, loaded)
	if err != nil {
		return fmt.Errorf("janitor: load files in scope: %w", err)
	}

	for _, f := range files {
		info, statErr := os.Stat(f.path)
		if statErr != nil {
			if err := j.handleMissingFile(ctx, f, opts.Repair, report); err != nil {
				return err
			}
			continue
		}

		if !opts.Full || !inOnlyScope(f.path, opts.Only) {
			continue
		}
		if opts.HashFilesSmallerThan > 0 && info.Size() >= opts.HashFilesSmallerThan {
			continue
		}
		if err := j.checkFileHash(ctx, f, opts.Repair, report); err != nil {
			return err
		}
	}
	return nil
}

func (j *Janitor) filesInScope(ctx context.Context, loaded *Report) ([]fileRow, error) {
	if loaded != nil {
		rows := make([]fileRow, 0, len(loaded.FilesNotFound))
		for _, e := range loaded.FilesNotFound {
			rows = append(rows, fileRow{hash: e.FileHash, path: e.LocalPath})
		}
		return rows, nil
	}

	rows, err := j.db.DB().QueryContext(ctx, `SELECT file_hash, local_path FROM files`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []fileRow
	for rows.Next() {
		var f fileRow
		if err := rows.Scan(&f.hash, &f.path); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func inOnlyScope(path string, only []string) bool {
	if len(only) == 0 {
		return true
	}
	for _, prefix := range only {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// handleMissingFile implements 4.6's FileNotFound rule: more than one
// files row shares the hash means a move happened elsewhere and the stale
// row can be deleted; exactly one means the file is genuinely gone and a
// human has to decide what that means.
func (j *Janitor) handleMissingFile(ctx context.Context, f fileRow, repair bool, report *Report) error {
	var siblingCount int
	err := j.db.DB().QueryRowContext(ctx,
		`SELECT count(*) FROM files WHERE file_hash = ?`, f.hash).Scan(&siblingCount)
	if err != nil {
		return err
	}

	report.Counters.FileNotFound.Total++
	report.FilesNotFound = append(report.FilesNotFound, FileNotFoundEntry{FileHash: f.hash, LocalPath: f.path})

	if siblingCount > 1 {
		if repair {
			_, err := j.db.DB().ExecContext(ctx,
				`DELETE FROM files WHERE file_hash = ? AND local_path = ?`, f.hash, f.path)
			if err != nil {
				return fmt.Errorf("janitor: delete stale file row: %w", err)
			}
		}
		return nil
	}

	report.Counters.FileNotFound.Unrepairable++
	if repair {
		return &store.ManualInterventionRequiredError{
			Reason: fmt.Sprintf("file %s (hash %s) is missing with no sibling path to fall back to", f.path, f.hash),
		}
	}
	return nil
}

// checkFileHash recomputes a file's content digest and repairs a mismatch
// by repointing to an existing hash row or rewriting the stored digest in
// place, per 4.6.
func (j *Janitor) checkFileHash(ctx context.Context, f fileRow, repair bool, report *Report) error {
	fh, err := os.Open(f.path)
	if err != nil {
		return fmt.Errorf("janitor: open %s: %w", f.path, err)
	}
	defer fh.Close()

	computed, err := digest.SumReader(fh)
	if err != nil {
		return fmt.Errorf("janitor: hash %s: %w", f.path, err)
	}

	var stored []byte
	err = j.db.DB().QueryRowContext(ctx, `SELECT hash_data FROM hashes WHERE id = ?`, f.hash).Scan(&stored)
	if err == sql.ErrNoRows {
		return &store.InconsistentIndexError{Detail: fmt.Sprintf("files row for %s references missing hash %s", f.path, f.hash)}
	}
	if err != nil {
		return err
	}
	if string(stored) == string(computed[:]) {
		return nil
	}

	report.Counters.IncorrectHashFiles.Total++
	report.IncorrectHashes = append(report.IncorrectHashes, IncorrectHashEntry{Hash: f.hash, LocalPath: f.path})
	if !repair {
		return nil
	}

	existingID, err := fetchHashID(ctx, j.db.DB(), computed)
	if err == sql.ErrNoRows {
		_, err := j.db.DB().ExecContext(ctx, `UPDATE hashes SET hash_data = ? WHERE id = ?`, computed[:], f.hash)
		if err != nil {
			return fmt.Errorf("janitor: rewrite hash in place: %w", err)
		}
		return nil
	}
	if err != nil {
		return err
	}
	_, err = j.db.DB().ExecContext(ctx,
		`UPDATE files SET file_hash = ? WHERE file_hash = ? AND local_path = ?`, existingID, f.hash, f.path)
	if err != nil {
		return fmt.Errorf("janitor: repoint file to existing hash: %w", err)
	}
	return nil
}

func fetchHashID(ctx context.Context, db *sql.DB, hashData [digest.Size]byte) (string, error) {
	var id string
	err := db.QueryRowContext(ctx, `SELECT id FROM hashes WHERE hash_data = ?`, hashData[:]).Scan(&id)
	return id, err
}

// checkTagCores is phase 4: every tag core's digest(core_data) must match
// its own hash row; a mismatch cannot be repaired automatically.
func (j *Janitor) checkTagCores(ctx context.Context, repair bool, report *Report) error {
	rows, err := j.db.DB().QueryContext(ctx, `
		SELECT tc.core_hash, tc.core_data, h.hash_data
		FROM tag_cores tc JOIN hashes h ON h.id = tc.core_hash
	`)
	if err != nil {
		return err
	}
	defer rows.Close()

	type mismatch struct{ core string }
	var mismatches []mismatch
	for rows.Next() {
		var core string
		var coreData, hashData []byte
		if err := rows.Scan(&core, &coreData, &hashData); err != nil {
			return err
		}
		computed := digest.Sum(coreData)
		if string(computed[:]) != string(hashData) {
			mismatches = append(mismatches, mismatch{core: core})
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, m := range mismatches {
		report.Counters.IncorrectHashCores.Total++
		report.Counters.IncorrectHashCores.Unrepairable++
		if repair {
			return &store.ManualInterventionRequiredError{
				Reason: fmt.Sprintf("tag core %s fails digest verification and cannot be repaired automatically", m.core),
			}
		}
	}
	return nil
}

// checkUnusedHashes is phase 5: a hashes row referenced by nothing is a
// sweep candidate.
func (j *Janitor) checkUnusedHashes(ctx context.Context, repair bool, report *Report) error {
	rows, err := j.db.DB().QueryContext(ctx, `
		SELECT id FROM hashes h
		WHERE NOT EXISTS (SELECT 1 FROM tag_cores tc WHERE tc.core_hash = h.id)
		  AND NOT EXISTS (SELECT 1 FROM files f WHERE f.file_hash = h.id)
		  AND NOT EXISTS (SELECT 1 FROM pools p WHERE p.pool_hash = h.id)
	`)
	if err != nil {
		return err
	}
	var unused []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return err
		}
		unused = append(unused, id)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	rows.Close()

	report.Counters.UnusedHash.Total += len(unused)
	if !repair {
		return nil
	}
	for _, id := range unused {
		if _, err := j.db.DB().ExecContext(ctx, `DELETE FROM hashes WHERE id = ?`, id); err != nil {
			return fmt.Errorf("janitor: delete unused hash %s: %w", id, err)
		}
	}
	return nil
}

// checkTagNames is phase 6: every tag_names row must still fully match the
// configured tag_name_regex, if any is configured. A mismatch cannot be
// repaired automatically.
func (j *Janitor) checkTagNames(ctx context.Context, repair bool, report *Report) error {
	rows, err := j.db.DB().QueryContext(ctx, `SELECT tag_text FROM tag_names`)
	if err != nil {
		return err
	}
	var texts []string
	for rows.Next() {
		var text string
		if err := rows.Scan(&text); err != nil {
			rows.Close()
			return err
		}
		texts = append(texts, text)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	rows.Close()

	for _, text := range texts {
		matched, _, err := j.config.Verify(ctx, j.db.DB(), text)
		if err != nil {
			return fmt.Errorf("janitor: verify tag name %s: %w", text, err)
		}
		if matched {
			continue
		}
		report.Counters.InvalidTagName.Total++
		report.Counters.InvalidTagName.Unrepairable++
		if repair {
			return &store.UnrepairableTagNameError{Text: text}
		}
	}
	return nil
}

// ExitCode implements 4.6's CLI exit-code contract for a caller building a
// front-end over Run's result: 0 when clean, 2 when problems were found
// without repair having been requested.
func ExitCode(r *Report, repairRequested bool) int {
	problems := r.Counters.FileNotFound.Total +
		r.Counters.IncorrectHashFiles.Total +
		r.Counters.IncorrectHashCores.Total +
		r.Counters.UnusedHash.Total +
		r.Counters.InvalidTagName.Total
	if problems > 0 && !repairRequested {
		return 2
	}
	return 0
}
