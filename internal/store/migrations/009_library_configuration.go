package migrations

const libraryConfigurationSQL = `
CREATE TABLE library_configuration (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

func init() {
	register(Step{
		Version:     9,
		Name:        "library_configuration",
		Description: "Adds library_configuration, a flat key/value store for library-wide settings",
		Transaction: true,
		SQL:         libraryConfigurationSQL,
	})
}
