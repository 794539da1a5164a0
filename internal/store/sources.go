package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/awtfdb/awtfdb/internal/store/migrations"
)

// TagSourceKind distinguishes pre-seeded system sources from
// caller-registered external ones.
type TagSourceKind int

const (
	// KindSystem identifies the two pre-seeded sources: manual insertion
	// and tag parenting.
	KindSystem TagSourceKind = 0
	// KindExternal identifies a caller-registered attribution source
	// (e.g. an import tool), allocated monotonically.
	KindExternal TagSourceKind = 1
)

// TagSourceRecord is one row of tag_sources.
type TagSourceRecord struct {
	Kind TagSourceKind
	ID   int64
	Name string
}

// CreateTagSource registers a new external attribution source, allocating
// id = max(id where type = external) + 1.
func (s *Store) CreateTagSource(ctx context.Context, name string) (*TagSourceRecord, error) {
	var maxID sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT max(id) FROM tag_sources WHERE type = ?`, KindExternal).Scan(&maxID)
	if err != nil {
		return nil, fmt.Errorf("find max external source id: %w", err)
	}
	next := int64(0)
	if maxID.Valid {
		next = maxID.Int64 + 1
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO tag_sources (type, id, name) VALUES (?, ?, ?)`, KindExternal, next, name)
	if err != nil {
		return nil, fmt.Errorf("insert tag source: %w", err)
	}
	return &TagSourceRecord{Kind: KindExternal, ID: next, Name: name}, nil
}

// FetchTagSource resolves a (kind, id) pair. For system sources, id is
// validated against the pre-seeded enum rather than queried (they never
// change). For external sources, it is a plain lookup.
func (s *Store) FetchTagSource(ctx context.Context, kind TagSourceKind, id int64) (*TagSourceRecord, error) {
	if kind == KindSystem {
		switch id {
		case migrations.SystemSourceManual:
			return &TagSourceRecord{Kind: KindSystem, ID: id, Name: "manual insertion"}, nil
		case migrations.SystemSourceTagParenting:
			return &TagSourceRecord{Kind: KindSystem, ID: id, Name: "tag parenting"}, nil
		default:
			return nil, fmt.Errorf("store: unknown system tag source id %d", id)
		}
	}

	var name string
	err := s.db.QueryRowContext(ctx,
		`SELECT name FROM tag_sources WHERE type = ? AND id = ?`, kind, id).Scan(&name)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("store: unknown external tag source %d", id)
	}
	if err != nil {
		return nil, err
	}
	return &TagSourceRecord{Kind: kind, ID: id, Name: name}, nil
}

// DeleteTagSource removes an external tag source. System sources are
// permanent and cannot be deleted.
func (s *Store) DeleteTagSource(ctx context.Context, kind TagSourceKind, id int64) error {
	if kind == KindSystem {
		return fmt.Errorf("store: system tag sources cannot be deleted")
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM tag_sources WHERE type = ? AND id = ?`, kind, id)
	if err != nil {
		return fmt.Errorf("delete tag source: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("store: unknown external tag source %d", id)
	}
	return nil
}

// SetLibraryConfig stores a library configuration value, invalidating any
// cached compiled pattern.
func (s *Store) SetLibraryConfig(ctx context.Context, key, value string) error {
	return s.config.Set(ctx, s.db, key, value)
}

// GetLibraryConfig returns a raw configured value, if any.
func (s *Store) GetLibraryConfig(ctx context.Context, key string) (string, bool, error) {
	return s.config.Get(ctx, s.db, key)
}
