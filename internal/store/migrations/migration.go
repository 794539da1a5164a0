// Package migrations holds the ordered, versioned schema evolution steps
// for the store. Each Step is either a SQL script or a programmatic Go
// function (the latter used only for the rowid-to-ULID rewrite).
package migrations

import (
	"context"
	"database/sql"
)

// Execer is satisfied by *sql.DB, *sql.Tx, and *sql.Conn alike, so a Step's
// Fn can run against whichever of those the runner is currently holding.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Step is one entry in the ordered migration sequence: spec.md's
// (version, name, options, sql_or_fn) tuple.
type Step struct {
	Version     int
	Name        string
	Description string
	Transaction bool // set true by every step except PRAGMA journal_mode=WAL
	SQL         string
	Fn          func(ctx context.Context, ex Execer) error
}

// Run executes the step's SQL script or programmatic function.
func (s Step) Run(ctx context.Context, ex Execer) error {
	if s.Fn != nil {
		return s.Fn(ctx, ex)
	}
	_, err := ex.ExecContext(ctx, s.SQL)
	return err
}
