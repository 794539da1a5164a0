package migrations

// The legacy schema (versions 1-7) identifies hashes by integer rowid.
// Migration 8 (see 008_id_migration.go) rewrites hashes.id to a ULID
// string and renumbers every column below that stores one.
const initialSchemaSQL = `
CREATE TABLE hashes (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	hash_data BLOB NOT NULL UNIQUE CHECK(length(hash_data) = 32)
);

CREATE TABLE tag_cores (
	core_hash INTEGER PRIMARY KEY REFERENCES hashes(id) ON DELETE RESTRICT,
	core_data BLOB NOT NULL
);

CREATE TABLE tag_names (
	tag_text TEXT NOT NULL,
	tag_language TEXT NOT NULL,
	core_hash INTEGER NOT NULL REFERENCES tag_cores(core_hash) ON DELETE CASCADE,
	PRIMARY KEY (tag_text, tag_language, core_hash)
);

CREATE TABLE files (
	file_hash INTEGER NOT NULL REFERENCES hashes(id) ON DELETE RESTRICT,
	local_path TEXT NOT NULL,
	PRIMARY KEY (file_hash, local_path)
);

CREATE TABLE tag_files (
	file_hash INTEGER NOT NULL REFERENCES hashes(id) ON DELETE CASCADE,
	core_hash INTEGER NOT NULL REFERENCES tag_cores(core_hash) ON DELETE CASCADE,
	PRIMARY KEY (file_hash, core_hash)
);

CREATE TABLE migration_logs (
	version INTEGER PRIMARY KEY,
	applied_at INTEGER NOT NULL,
	description TEXT NOT NULL
);

CREATE TABLE schema_meta (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

func init() {
	register(Step{
		Version:     1,
		Name:        "initial_schema",
		Description: "Creates hashes, tag_cores, tag_names, files, tag_files, migration_logs, schema_meta",
		Transaction: true,
		SQL:         initialSchemaSQL,
	})
}
