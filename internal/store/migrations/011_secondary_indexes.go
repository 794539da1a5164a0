package migrations

const secondaryIndexesSQL = `
CREATE INDEX idx_tag_files_file_hash ON tag_files(file_hash);
CREATE INDEX idx_tag_files_core_hash ON tag_files(core_hash);
CREATE INDEX idx_tag_names_core_hash ON tag_names(core_hash);
CREATE INDEX idx_metrics_tag_usage_values_core_hash ON metrics_tag_usage_values(core_hash);
`

func init() {
	register(Step{
		Version:     11,
		Name:        "secondary_indexes",
		Description: "Adds lookup indexes for tag_files, tag_names, and metrics_tag_usage_values",
		Transaction: true,
		SQL:         secondaryIndexesSQL,
	})
}
