package migrations

// From v2 on, local_path is unique on its own (spec.md data model
// invariant 4), not just jointly unique with file_hash. SQLite can't add a
// UNIQUE constraint to an existing column, so the table is rebuilt.
const uniqueLocalPathSQL = `
CREATE TABLE files_new (
	file_hash INTEGER NOT NULL REFERENCES hashes(id) ON DELETE RESTRICT,
	local_path TEXT NOT NULL UNIQUE,
	PRIMARY KEY (file_hash, local_path)
);

INSERT INTO files_new (file_hash, local_path)
SELECT file_hash, local_path FROM files;

DROP TABLE files;
ALTER TABLE files_new RENAME TO files;
`

func init() {
	register(Step{
		Version:     2,
		Name:        "unique_local_path",
		Description: "Rebuilds files with a UNIQUE constraint on local_path",
		Transaction: true,
		SQL:         uniqueLocalPathSQL,
	})
}
