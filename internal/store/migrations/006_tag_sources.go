package migrations

// SystemSourceManual and SystemSourceTagParenting are the two pre-seeded
// system tag sources (spec.md §3: "System sources are pre-seeded").
const (
	SystemSourceManual       = 0
	SystemSourceTagParenting = 1
)

const tagSourcesSQL = `
CREATE TABLE tag_sources (
	type INTEGER NOT NULL,
	id INTEGER NOT NULL,
	name TEXT NOT NULL,
	PRIMARY KEY (type, id)
);

INSERT INTO tag_sources (type, id, name) VALUES
	(0, 0, 'manual insertion'),
	(0, 1, 'tag parenting');

ALTER TABLE tag_files ADD COLUMN tag_source_type INTEGER REFERENCES tag_sources(type);
ALTER TABLE tag_files ADD COLUMN tag_source_id INTEGER REFERENCES tag_sources(id);
ALTER TABLE tag_files ADD COLUMN parent_source_id INTEGER REFERENCES tag_implications(row_id);

UPDATE tag_files SET tag_source_type = 0, tag_source_id = 0 WHERE tag_source_type IS NULL;
`

func init() {
	register(Step{
		Version:     6,
		Name:        "tag_sources",
		Description: "Adds tag_sources and extends tag_files with source attribution columns",
		Transaction: true,
		SQL:         tagSourcesSQL,
	})
}
