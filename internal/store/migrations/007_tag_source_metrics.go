package migrations

const tagSourceMetricsSQL = `
CREATE TABLE metrics_tag_usage_values (
	core_hash INTEGER NOT NULL,
	source_type INTEGER NOT NULL,
	source_id INTEGER NOT NULL,
	value INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (core_hash, source_type, source_id)
);
`

func init() {
	register(Step{
		Version:     7,
		Name:        "tag_source_metrics",
		Description: "Adds metrics_tag_usage_values, usage counters keyed by tag core and source",
		Transaction: true,
		SQL:         tagSourceMetricsSQL,
	})
}
