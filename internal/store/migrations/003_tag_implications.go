package migrations

const tagImplicationsSQL = `
CREATE TABLE tag_implications (
	row_id INTEGER PRIMARY KEY AUTOINCREMENT,
	child_tag INTEGER NOT NULL REFERENCES tag_cores(core_hash) ON DELETE CASCADE,
	parent_tag INTEGER NOT NULL REFERENCES tag_cores(core_hash) ON DELETE CASCADE
);

CREATE INDEX idx_tag_implications_child ON tag_implications(child_tag);
`

func init() {
	register(Step{
		Version:     3,
		Name:        "tag_implications",
		Description: "Adds tag_implications, the directed child-implies-parent edge table",
		Transaction: true,
		SQL:         tagImplicationsSQL,
	})
}
