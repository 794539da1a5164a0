package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/awtfdb/awtfdb/internal/library"
)

// Store is the open-handle owner of the process's connection to the
// content-addressed index: the schema, the migration runner, and every
// domain operation (files, named tags, pools, tag sources, library
// configuration) hang off it. A Store must not be handed to more than one
// writer at a time; callers share it, they don't clone it.
type Store struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
	config *library.Config
}

// Options configures Open.
type Options struct {
	// Logger receives structured diagnostics for migrations and domain
	// operations. Defaults to slog.Default() when nil.
	Logger *slog.Logger
}

// Open opens (creating if necessary) the SQLite database at path, enables
// foreign keys, runs any pending migrations, and returns a ready-to-use
// Store. path may be ":memory:" for a throwaway in-process database, which
// skips the pre-migration backup copy.
func Open(ctx context.Context, path string, opts Options) (*Store, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, &ConfigFailError{Err: fmt.Errorf("open %s: %w", path, err)}
	}
	// A single embedded SQLite writer; the pool exists for concurrent
	// readers, not concurrent writers.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, `PRAGMA foreign_keys = ON`); err != nil {
		db.Close()
		return nil, &ConfigFailError{Err: fmt.Errorf("enable foreign keys: %w", err)}
	}

	backupPath := path
	if path == ":memory:" {
		backupPath = ""
	}
	if err := RunMigrations(ctx, db, backupPath, logger); err != nil {
		db.Close()
		return nil, &ConfigFailError{Err: fmt.Errorf("run migrations: %w", err)}
	}

	return &Store{
		db:     db,
		path:   path,
		logger: logger,
		config: library.NewConfig(),
	}, nil
}

// Close runs the recommended shutdown PRAGMAs (query planner stats
// maintenance) and releases the underlying connection.
func (s *Store) Close() error {
	ctx := context.Background()
	_, _ = s.db.ExecContext(ctx, `PRAGMA analysis_limit=1000`)
	_, _ = s.db.ExecContext(ctx, `PRAGMA optimize`)
	return s.db.Close()
}

// DB exposes the underlying *sql.DB for callers that need to run their own
// read queries (the query compiler's compiled statements, the janitor's
// PRAGMA checks) against the same connection pool.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Logger returns the structured logger this Store was opened with.
func (s *Store) Logger() *slog.Logger {
	return s.logger
}

// SchemaVersion returns the schema_meta "schema_version" marker written by
// the most recent migration run.
func (s *Store) SchemaVersion(ctx context.Context) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM schema_meta WHERE key = 'schema_version'`).Scan(&value)
	return value, err
}
