package migrations

// journalModeWALSQL switches the database to WAL journaling. PRAGMA
// journal_mode=WAL only takes effect when run outside of a transaction, so
// this is the one step in the sequence with Transaction: false; the runner
// executes it directly against the pinned connection in autocommit mode.
const journalModeWALSQL = `PRAGMA journal_mode=WAL;`

func init() {
	register(Step{
		Version:     10,
		Name:        "wal_journal_mode",
		Description: "Switches the database to WAL journal mode",
		Transaction: false,
		SQL:         journalModeWALSQL,
	})
}
