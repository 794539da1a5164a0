package migrations

import (
	"context"
	"fmt"

	"github.com/awtfdb/awtfdb/internal/idgen"
)

// migrateIDs rewrites hashes.id from the legacy integer rowid to a ULID
// string, then renumbers every column that stores a hash id by rebuilding
// each dependent table in turn (4.2.1). The mapping from old integer id to
// new ULID is computed once and reused across every rebuild so that a
// given hash gets exactly one new id everywhere it is referenced.
//
// The caller (store's migration runner) already holds the single pinned
// connection inside the exclusive migration transaction with foreign keys
// disabled, so table drops here do not trigger cascading deletes.
func migrateIDs(ctx context.Context, ex Execer) error {
	idMap, err := buildIDMap(ctx, ex)
	if err != nil {
		return fmt.Errorf("build id map: %w", err)
	}

	if err := rebuildHashes(ctx, ex, idMap); err != nil {
		return fmt.Errorf("rebuild hashes: %w", err)
	}
	if err := rebuildTagCores(ctx, ex, idMap); err != nil {
		return fmt.Errorf("rebuild tag_cores: %w", err)
	}
	if err := rebuildTagNames(ctx, ex, idMap); err != nil {
		return fmt.Errorf("rebuild tag_names: %w", err)
	}
	if err := rebuildFiles(ctx, ex, idMap); err != nil {
		return fmt.Errorf("rebuild files: %w", err)
	}
	if err := rebuildTagFiles(ctx, ex, idMap); err != nil {
		return fmt.Errorf("rebuild tag_files: %w", err)
	}
	if err := rebuildTagImplications(ctx, ex, idMap); err != nil {
		return fmt.Errorf("rebuild tag_implications: %w", err)
	}
	if err := rebuildPools(ctx, ex, idMap); err != nil {
		return fmt.Errorf("rebuild pools: %w", err)
	}
	if err := rebuildPoolEntries(ctx, ex, idMap); err != nil {
		return fmt.Errorf("rebuild pool_entries: %w", err)
	}
	if err := rebuildTagUsageMetrics(ctx, ex, idMap); err != nil {
		return fmt.Errorf("rebuild metrics_tag_usage_values: %w", err)
	}

	if err := verifyChecksLocal(ctx, ex); err != nil {
		return fmt.Errorf("post-rebuild verification: %w", err)
	}
	return nil
}

// buildIDMap assigns a fresh ULID to every existing hashes.id, in ascending
// (i.e. insertion) order, so relative creation order is preserved in the
// new ids' time component.
func buildIDMap(ctx context.Context, ex Execer) (map[int64]string, error) {
	rows, err := ex.QueryContext(ctx, `SELECT id FROM hashes ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	idMap := make(map[int64]string)
	for rows.Next() {
		var oldID int64
		if err := rows.Scan(&oldID); err != nil {
			return nil, err
		}
		newID, err := idgen.New()
		if err != nil {
			return nil, err
		}
		idMap[oldID] = newID.String()
	}
	return idMap, rows.Err()
}

func rebuildHashes(ctx context.Context, ex Execer, idMap map[int64]string) error {
	if _, err := ex.ExecContext(ctx, `
		CREATE TABLE hashes_new (
			id TEXT PRIMARY KEY,
			hash_data BLOB NOT NULL UNIQUE CHECK(length(hash_data) = 32)
		)`); err != nil {
		return err
	}

	rows, err := ex.QueryContext(ctx, `SELECT id, hash_data FROM hashes`)
	if err != nil {
		return err
	}
	type row struct {
		oldID    int64
		hashData []byte
	}
	var buffered []row
	for rows.Next() {
		var r row
		if err := rows.Scan(&r.oldID, &r.hashData); err != nil {
			rows.Close()
			return err
		}
		buffered = append(buffered, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, r := range buffered {
		newID, ok := idMap[r.oldID]
		if !ok {
			return fmt.Errorf("no new id mapped for hash %d", r.oldID)
		}
		if _, err := ex.ExecContext(ctx,
			`INSERT INTO hashes_new (id, hash_data) VALUES (?, ?)`, newID, r.hashData); err != nil {
			return err
		}
	}

	if _, err := ex.ExecContext(ctx, `DROP TABLE hashes`); err != nil {
		return err
	}
	_, err = ex.ExecContext(ctx, `ALTER TABLE hashes_new RENAME TO hashes`)
	return err
}

func rebuildTagCores(ctx context.Context, ex Execer, idMap map[int64]string) error {
	if _, err := ex.ExecContext(ctx, `
		CREATE TABLE tag_cores_new (
			core_hash TEXT PRIMARY KEY REFERENCES hashes(id) ON DELETE RESTRICT,
			core_data BLOB NOT NULL
		)`); err != nil {
		return err
	}
	if err := remapAndCopy(ctx, ex,
		`SELECT core_hash, core_data FROM tag_cores`,
		`INSERT INTO tag_cores_new (core_hash, core_data) VALUES (?, ?)`,
		idMap, 0); err != nil {
		return err
	}
	if _, err := ex.ExecContext(ctx, `DROP TABLE tag_cores`); err != nil {
		return err
	}
	_, err := ex.ExecContext(ctx, `ALTER TABLE tag_cores_new RENAME TO tag_cores`)
	return err
}

func rebuildTagNames(ctx context.Context, ex Execer, idMap map[int64]string) error {
	if _, err := ex.ExecContext(ctx, `
		CREATE TABLE tag_names_new (
			tag_text TEXT NOT NULL,
			tag_language TEXT NOT NULL,
			core_hash TEXT NOT NULL REFERENCES tag_cores(core_hash) ON DELETE CASCADE,
			PRIMARY KEY (tag_text, tag_language, core_hash)
		)`); err != nil {
		return err
	}

	rows, err := ex.QueryContext(ctx, `SELECT tag_text, tag_language, core_hash FROM tag_names`)
	if err != nil {
		return err
	}
	type row struct {
		text, lang string
		oldCore    int64
	}
	var buffered []row
	for rows.Next() {
		var r row
		if err := rows.Scan(&r.text, &r.lang, &r.oldCore); err != nil {
			rows.Close()
			return err
		}
		buffered = append(buffered, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}
	for _, r := range buffered {
		newCore, ok := idMap[r.oldCore]
		if !ok {
			return fmt.Errorf("no new id mapped for core %d", r.oldCore)
		}
		if _, err := ex.ExecContext(ctx,
			`INSERT INTO tag_names_new (tag_text, tag_language, core_hash) VALUES (?, ?, ?)`,
			r.text, r.lang, newCore); err != nil {
			return err
		}
	}

	if _, err := ex.ExecContext(ctx, `DROP TABLE tag_names`); err != nil {
		return err
	}
	_, err = ex.ExecContext(ctx, `ALTER TABLE tag_names_new RENAME TO tag_names`)
	return err
}

func rebuildFiles(ctx context.Context, ex Execer, idMap map[int64]string) error {
	if _, err := ex.ExecContext(ctx, `
		CREATE TABLE files_new (
			file_hash TEXT NOT NULL REFERENCES hashes(id) ON DELETE RESTRICT,
			local_path TEXT NOT NULL UNIQUE,
			PRIMARY KEY (file_hash, local_path)
		)`); err != nil {
		return err
	}

	rows, err := ex.QueryContext(ctx, `SELECT file_hash, local_path FROM files`)
	if err != nil {
		return err
	}
	type row struct {
		oldHash int64
		path    string
	}
	var buffered []row
	for rows.Next() {
		var r row
		if err := rows.Scan(&r.oldHash, &r.path); err != nil {
			rows.Close()
			return err
		}
		buffered = append(buffered, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}
	for _, r := range buffered {
		newHash, ok := idMap[r.oldHash]
		if !ok {
			return fmt.Errorf("no new id mapped for file hash %d", r.oldHash)
		}
		if _, err := ex.ExecContext(ctx,
			`INSERT INTO files_new (file_hash, local_path) VALUES (?, ?)`, newHash, r.path); err != nil {
			return err
		}
	}

	if _, err := ex.ExecContext(ctx, `DROP TABLE files`); err != nil {
		return err
	}
	_, err = ex.ExecContext(ctx, `ALTER TABLE files_new RENAME TO files`)
	return err
}

func rebuildTagFiles(ctx context.Context, ex Execer, idMap map[int64]string) error {
	if _, err := ex.ExecContext(ctx, `
		CREATE TABLE tag_files_new (
			file_hash TEXT NOT NULL REFERENCES hashes(id) ON DELETE CASCADE,
			core_hash TEXT NOT NULL REFERENCES tag_cores(core_hash) ON DELETE CASCADE,
			tag_source_type INTEGER,
			tag_source_id INTEGER,
			parent_source_id INTEGER REFERENCES tag_implications(row_id),
			PRIMARY KEY (file_hash, core_hash),
			FOREIGN KEY (tag_source_type, tag_source_id) REFERENCES tag_sources(type, id)
		)`); err != nil {
		return err
	}

	rows, err := ex.QueryContext(ctx,
		`SELECT file_hash, core_hash, tag_source_type, tag_source_id, parent_source_id FROM tag_files`)
	if err != nil {
		return err
	}
	type row struct {
		oldFile, oldCore               int64
		sourceType, sourceID, parentID *int64
	}
	var buffered []row
	for rows.Next() {
		var r row
		if err := rows.Scan(&r.oldFile, &r.oldCore, &r.sourceType, &r.sourceID, &r.parentID); err != nil {
			rows.Close()
			return err
		}
		buffered = append(buffered, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}
	for _, r := range buffered {
		newFile, ok := idMap[r.oldFile]
		if !ok {
			return fmt.Errorf("no new id mapped for file hash %d", r.oldFile)
		}
		newCore, ok := idMap[r.oldCore]
		if !ok {
			return fmt.Errorf("no new id mapped for core hash %d", r.oldCore)
		}
		if _, err := ex.ExecContext(ctx, `
			INSERT INTO tag_files_new (file_hash, core_hash, tag_source_type, tag_source_id, parent_source_id)
			VALUES (?, ?, ?, ?, ?)`,
			newFile, newCore, r.sourceType, r.sourceID, r.parentID); err != nil {
			return err
		}
	}

	if _, err := ex.ExecContext(ctx, `DROP TABLE tag_files`); err != nil {
		return err
	}
	_, err = ex.ExecContext(ctx, `ALTER TABLE tag_files_new RENAME TO tag_files`)
	return err
}

func rebuildTagImplications(ctx context.Context, ex Execer, idMap map[int64]string) error {
	if _, err := ex.ExecContext(ctx, `
		CREATE TABLE tag_implications_new (
			row_id INTEGER PRIMARY KEY,
			child_tag TEXT NOT NULL REFERENCES tag_cores(core_hash) ON DELETE CASCADE,
			parent_tag TEXT NOT NULL REFERENCES tag_cores(core_hash) ON DELETE CASCADE
		)`); err != nil {
		return err
	}

	rows, err := ex.QueryContext(ctx, `SELECT row_id, child_tag, parent_tag FROM tag_implications`)
	if err != nil {
		return err
	}
	type row struct {
		rowID            int64
		oldChild, oldPar int64
	}
	var buffered []row
	for rows.Next() {
		var r row
		if err := rows.Scan(&r.rowID, &r.oldChild, &r.oldPar); err != nil {
			rows.Close()
			return err
		}
		buffered = append(buffered, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}
	for _, r := range buffered {
		newChild, ok := idMap[r.oldChild]
		if !ok {
			return fmt.Errorf("no new id mapped for child tag %d", r.oldChild)
		}
		newPar, ok := idMap[r.oldPar]
		if !ok {
			return fmt.Errorf("no new id mapped for parent tag %d", r.oldPar)
		}
		// row_id is preserved verbatim: tag_files.parent_source_id references
		// it directly and is not remapped by this migration.
		if _, err := ex.ExecContext(ctx,
			`INSERT INTO tag_implications_new (row_id, child_tag, parent_tag) VALUES (?, ?, ?)`,
			r.rowID, newChild, newPar); err != nil {
			return err
		}
	}

	if _, err := ex.ExecContext(ctx, `DROP TABLE tag_implications`); err != nil {
		return err
	}
	if _, err := ex.ExecContext(ctx, `ALTER TABLE tag_implications_new RENAME TO tag_implications`); err != nil {
		return err
	}
	_, err = ex.ExecContext(ctx, `CREATE INDEX idx_tag_implications_child ON tag_implications(child_tag)`)
	return err
}

func rebuildPools(ctx context.Context, ex Execer, idMap map[int64]string) error {
	if _, err := ex.ExecContext(ctx, `
		CREATE TABLE pools_new (
			pool_hash TEXT PRIMARY KEY REFERENCES hashes(id) ON DELETE RESTRICT,
			pool_core_data BLOB NOT NULL,
			title TEXT NOT NULL
		)`); err != nil {
		return err
	}

	rows, err := ex.QueryContext(ctx, `SELECT pool_hash, pool_core_data, title FROM pools`)
	if err != nil {
		return err
	}
	type row struct {
		oldHash  int64
		coreData []byte
		title    string
	}
	var buffered []row
	for rows.Next() {
		var r row
		if err := rows.Scan(&r.oldHash, &r.coreData, &r.title); err != nil {
			rows.Close()
			return err
		}
		buffered = append(buffered, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}
	for _, r := range buffered {
		newHash, ok := idMap[r.oldHash]
		if !ok {
			return fmt.Errorf("no new id mapped for pool hash %d", r.oldHash)
		}
		if _, err := ex.ExecContext(ctx,
			`INSERT INTO pools_new (pool_hash, pool_core_data, title) VALUES (?, ?, ?)`,
			newHash, r.coreData, r.title); err != nil {
			return err
		}
	}

	if _, err := ex.ExecContext(ctx, `DROP TABLE pools`); err != nil {
		return err
	}
	_, err = ex.ExecContext(ctx, `ALTER TABLE pools_new RENAME TO pools`)
	return err
}

func rebuildPoolEntries(ctx context.Context, ex Execer, idMap map[int64]string) error {
	if _, err := ex.ExecContext(ctx, `
		CREATE TABLE pool_entries_new (
			file_hash TEXT NOT NULL REFERENCES hashes(id) ON DELETE CASCADE,
			pool_hash TEXT NOT NULL REFERENCES pools(pool_hash) ON DELETE CASCADE,
			entry_index INTEGER NOT NULL,
			PRIMARY KEY (file_hash, pool_hash),
			UNIQUE (pool_hash, entry_index)
		)`); err != nil {
		return err
	}

	rows, err := ex.QueryContext(ctx, `SELECT file_hash, pool_hash, entry_index FROM pool_entries`)
	if err != nil {
		return err
	}
	type row struct {
		oldFile, oldPool int64
		index            int
	}
	var buffered []row
	for rows.Next() {
		var r row
		if err := rows.Scan(&r.oldFile, &r.oldPool, &r.index); err != nil {
			rows.Close()
			return err
		}
		buffered = append(buffered, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}
	for _, r := range buffered {
		newFile, ok := idMap[r.oldFile]
		if !ok {
			return fmt.Errorf("no new id mapped for file hash %d", r.oldFile)
		}
		newPool, ok := idMap[r.oldPool]
		if !ok {
			return fmt.Errorf("no new id mapped for pool hash %d", r.oldPool)
		}
		if _, err := ex.ExecContext(ctx,
			`INSERT INTO pool_entries_new (file_hash, pool_hash, entry_index) VALUES (?, ?, ?)`,
			newFile, newPool, r.index); err != nil {
			return err
		}
	}

	if _, err := ex.ExecContext(ctx, `DROP TABLE pool_entries`); err != nil {
		return err
	}
	_, err = ex.ExecContext(ctx, `ALTER TABLE pool_entries_new RENAME TO pool_entries`)
	return err
}

func rebuildTagUsageMetrics(ctx context.Context, ex Execer, idMap map[int64]string) error {
	if _, err := ex.ExecContext(ctx, `
		CREATE TABLE metrics_tag_usage_values_new (
			core_hash TEXT NOT NULL,
			source_type INTEGER NOT NULL,
			source_id INTEGER NOT NULL,
			value INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (core_hash, source_type, source_id)
		)`); err != nil {
		return err
	}

	rows, err := ex.QueryContext(ctx, `SELECT core_hash, source_type, source_id, value FROM metrics_tag_usage_values`)
	if err != nil {
		return err
	}
	type row struct {
		oldCore               int64
		sourceType, sourceID  int64
		value                 int64
	}
	var buffered []row
	for rows.Next() {
		var r row
		if err := rows.Scan(&r.oldCore, &r.sourceType, &r.sourceID, &r.value); err != nil {
			rows.Close()
			return err
		}
		buffered = append(buffered, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}
	for _, r := range buffered {
		newCore, ok := idMap[r.oldCore]
		if !ok {
			return fmt.Errorf("no new id mapped for core hash %d", r.oldCore)
		}
		if _, err := ex.ExecContext(ctx, `
			INSERT INTO metrics_tag_usage_values_new (core_hash, source_type, source_id, value)
			VALUES (?, ?, ?, ?)`,
			newCore, r.sourceType, r.sourceID, r.value); err != nil {
			return err
		}
	}

	if _, err := ex.ExecContext(ctx, `DROP TABLE metrics_tag_usage_values`); err != nil {
		return err
	}
	_, err = ex.ExecContext(ctx, `ALTER TABLE metrics_tag_usage_values_new RENAME TO metrics_tag_usage_values`)
	return err
}

// remapAndCopy is a small helper for the simple one-FK-column rebuilds
// (currently only tag_cores) where the row shape is (old_id, payload...).
func remapAndCopy(ctx context.Context, ex Execer, selectSQL, insertSQL string, idMap map[int64]string, _ int) error {
	rows, err := ex.QueryContext(ctx, selectSQL)
	if err != nil {
		return err
	}
	type row struct {
		oldID int64
		data  []byte
	}
	var buffered []row
	for rows.Next() {
		var r row
		if err := rows.Scan(&r.oldID, &r.data); err != nil {
			rows.Close()
			return err
		}
		buffered = append(buffered, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}
	for _, r := range buffered {
		newID, ok := idMap[r.oldID]
		if !ok {
			return fmt.Errorf("no new id mapped for %d", r.oldID)
		}
		if _, err := ex.ExecContext(ctx, insertSQL, newID, r.data); err != nil {
			return err
		}
	}
	return nil
}

// verifyChecksLocal runs the two PRAGMA checks the DESIGN note says an
// implementation should run pre-commit, in addition to the migration
// runner's own post-migration checks.
func verifyChecksLocal(ctx context.Context, ex Execer) error {
	var integrity string
	if err := ex.QueryRowContext(ctx, `PRAGMA integrity_check`).Scan(&integrity); err != nil {
		return err
	}
	if integrity != "ok" {
		return fmt.Errorf("integrity_check failed after id migration: %s", integrity)
	}

	rows, err := ex.QueryContext(ctx, `PRAGMA foreign_key_check`)
	if err != nil {
		return err
	}
	defer rows.Close()
	if rows.Next() {
		return fmt.Errorf("foreign_key_check reported violations after id migration")
	}
	return rows.Err()
}

func init() {
	register(Step{
		Version:     8,
		Name:        "id_migration",
		Description: "Rewrites hashes.id from integer rowid to ULID and renumbers all dependent FK columns",
		Transaction: true,
		Fn:          migrateIDs,
	})
}
