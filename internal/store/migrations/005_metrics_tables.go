package migrations

// Metric counters feeding time-series tables are an out-of-scope external
// collaborator (spec.md Non-goals), but the tables themselves are part of
// the required migration sequence and are created here so a later
// collaborator can populate them without its own migration.
const metricsTablesSQL = `
CREATE TABLE metrics_counts (
	name TEXT PRIMARY KEY,
	value INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE metrics_timeseries (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	value INTEGER NOT NULL,
	recorded_at INTEGER NOT NULL
);

CREATE INDEX idx_metrics_timeseries_name ON metrics_timeseries(name, recorded_at);
`

func init() {
	register(Step{
		Version:     5,
		Name:        "metrics_tables",
		Description: "Adds metrics_counts and metrics_timeseries tables",
		Transaction: true,
		SQL:         metricsTablesSQL,
	})
}
