package migrations

const poolsSQL = `
CREATE TABLE pools (
	pool_hash INTEGER PRIMARY KEY REFERENCES hashes(id) ON DELETE RESTRICT,
	pool_core_data BLOB NOT NULL,
	title TEXT NOT NULL
);

CREATE TABLE pool_entries (
	file_hash INTEGER NOT NULL REFERENCES hashes(id) ON DELETE CASCADE,
	pool_hash INTEGER NOT NULL REFERENCES pools(pool_hash) ON DELETE CASCADE,
	entry_index INTEGER NOT NULL,
	PRIMARY KEY (file_hash, pool_hash),
	UNIQUE (pool_hash, entry_index)
);
`

func init() {
	register(Step{
		Version:     4,
		Name:        "pools",
		Description: "Adds pools and pool_entries, the ordered file collection tables",
		Transaction: true,
		SQL:         poolsSQL,
	})
}
