package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/awtfdb/awtfdb/internal/idgen"
)

// HashOptions controls how fetchOrCreateHash mints a new id when hashData
// is not already present.
type HashOptions struct {
	// FileMtime, if non-zero, is used as the new id's time component
	// instead of the current wall-clock time (preserves a file's mtime as
	// its hash's creation order).
	FileMtime time.Time
}

// fetchOrCreateHash returns the existing hashes.id for hashData, or inserts
// a new row and returns its freshly minted id.
func fetchOrCreateHash(ctx context.Context, ex dbExecer, hashData [32]byte, opts HashOptions) (string, error) {
	existing, err := fetchHashID(ctx, ex, hashData)
	if err == nil {
		return existing, nil
	}
	if err != sql.ErrNoRows {
		return "", err
	}

	var (
		id     idgen.ID
		genErr error
	)
	if opts.FileMtime.IsZero() {
		id, genErr = idgen.New()
	} else {
		id, genErr = idgen.NewAt(opts.FileMtime)
	}
	if genErr != nil {
		return "", fmt.Errorf("mint hash id: %w", genErr)
	}

	_, err = ex.ExecContext(ctx, `INSERT INTO hashes (id, hash_data) VALUES (?, ?)`, id.String(), hashData[:])
	if err != nil {
		return "", fmt.Errorf("insert hash: %w", err)
	}
	return id.String(), nil
}

// fetchHashID resolves a raw 32-byte digest to its hashes.id, returning
// sql.ErrNoRows if it is not present.
func fetchHashID(ctx context.Context, ex dbExecer, hashData [32]byte) (string, error) {
	var id string
	err := ex.QueryRowContext(ctx, `SELECT id FROM hashes WHERE hash_data = ?`, hashData[:]).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

// dbExecer is the common subset of *sql.DB and *sql.Tx that the hash
// helpers above accept, so they can run standalone or inside a
// transaction. The exported Store methods always run against the Store's
// own *sql.DB.
type dbExecer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}
