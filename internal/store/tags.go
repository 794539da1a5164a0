package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"fmt"

	"github.com/awtfdb/awtfdb/internal/digest"
)

// tagCoreDataSize is the amount of randomness backing a tag core's
// identity (4.1: "128 random bytes").
const tagCoreDataSize = 128

// NamedTag is a (text, language) pair resolved to its backing core.
type NamedTag struct {
	Text     string
	Language string
	CoreHash string
}

// CreateNamedTagOptions lets a caller reuse an already-minted core (e.g.
// when adding a synonym in another language) instead of synthesising one.
type CreateNamedTagOptions struct {
	ExistingCore string // empty means "synthesise a new core"
}

// CreateNamedTag verifies text against the configured tag_name_regex (if
// any), then either reuses ExistingCore or mints a fresh tag core, and
// inserts (text, language, core_hash) into tag_names.
func (s *Store) CreateNamedTag(ctx context.Context, text, language string, opts CreateNamedTagOptions) (*NamedTag, error) {
	matched, span, err := s.config.Verify(ctx, s.db, text)
	if err != nil {
		return nil, fmt.Errorf("verify tag name: %w", err)
	}
	if !matched {
		regex, _, regexErr := s.config.Get(ctx, s.db, "tag_name_regex")
		if regexErr != nil {
			return nil, regexErr
		}
		return nil, &InvalidTagNameError{Regex: regex, Text: text, MatchedSpan: span}
	}

	coreHash := opts.ExistingCore
	if coreHash == "" {
		coreHash, err = s.createTagCore(ctx)
		if err != nil {
			return nil, fmt.Errorf("create tag core: %w", err)
		}
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO tag_names (tag_text, tag_language, core_hash) VALUES (?, ?, ?)`,
		text, language, coreHash)
	if err != nil {
		return nil, fmt.Errorf("insert tag name: %w", err)
	}

	return &NamedTag{Text: text, Language: language, CoreHash: coreHash}, nil
}

// createTagCore synthesises a new tag core: 128 random bytes, hashed and
// inserted into hashes, then referenced from tag_cores.
func (s *Store) createTagCore(ctx context.Context) (string, error) {
	coreData := make([]byte, tagCoreDataSize)
	if _, err := rand.Read(coreData); err != nil {
		return "", fmt.Errorf("generate core data: %w", err)
	}
	sum := digest.Sum(coreData)

	hashID, err := fetchOrCreateHash(ctx, s.db, sum, HashOptions{})
	if err != nil {
		return "", err
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO tag_cores (core_hash, core_data) VALUES (?, ?)`, hashID, coreData); err != nil {
		return "", fmt.Errorf("insert tag core: %w", err)
	}
	return hashID, nil
}

// FetchNamedTag looks (text, language) up in tag_names and returns its
// core hash id, returning UnknownTagError if no row matches.
func (s *Store) FetchNamedTag(ctx context.Context, text, language string) (*NamedTag, error) {
	var core string
	err := s.db.QueryRowContext(ctx, `
		SELECT core_hash FROM tag_names WHERE tag_text = ? AND tag_language = ?
	`, text, language).Scan(&core)
	if err == sql.ErrNoRows {
		return nil, &UnknownTagError{Text: text, Language: language}
	}
	if err != nil {
		return nil, err
	}
	return &NamedTag{Text: text, Language: language, CoreHash: core}, nil
}

// FetchTagsFromCore returns every (text, language) name sharing coreHash.
func (s *Store) FetchTagsFromCore(ctx context.Context, coreHash string) ([]NamedTag, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT tag_text, tag_language, core_hash FROM tag_names WHERE core_hash = ?`, coreHash)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []NamedTag
	for rows.Next() {
		var t NamedTag
		if err := rows.Scan(&t.Text, &t.Language, &t.CoreHash); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// DeleteAllNamedTags removes every name sharing coreHash, the core itself,
// and the underlying hash row. Both single-row deletes are asserted to
// affect exactly one row, since a tag core and its hash are 1:1.
func (s *Store) DeleteAllNamedTags(ctx context.Context, coreHash string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM tag_names WHERE core_hash = ?`, coreHash); err != nil {
		return fmt.Errorf("delete tag names: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM tag_cores WHERE core_hash = ?`, coreHash)
	if err != nil {
		return fmt.Errorf("delete tag core: %w", err)
	}
	if n, _ := res.RowsAffected(); n != 1 {
		return fmt.Errorf("store: expected exactly one tag_cores row for %s, affected %d", coreHash, n)
	}

	res, err = s.db.ExecContext(ctx, `DELETE FROM hashes WHERE id = ?`, coreHash)
	if err != nil {
		return fmt.Errorf("delete tag core hash: %w", err)
	}
	if n, _ := res.RowsAffected(); n != 1 {
		return fmt.Errorf("store: expected exactly one hashes row for %s, affected %d", coreHash, n)
	}
	return nil
}
