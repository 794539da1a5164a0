package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"fmt"

	"github.com/awtfdb/awtfdb/internal/digest"
)

// poolCoreDataSize is the amount of randomness backing a pool's identity
// (4.1: "64 bytes for pool cores").
const poolCoreDataSize = 64

// Pool is an ordered collection of files.
type Pool struct {
	Hash  string
	Title string
}

// CreatePool mints a pool core and inserts a new, empty pool.
func (s *Store) CreatePool(ctx context.Context, title string) (*Pool, error) {
	coreData := make([]byte, poolCoreDataSize)
	if _, err := rand.Read(coreData); err != nil {
		return nil, fmt.Errorf("generate pool core data: %w", err)
	}
	sum := digest.Sum(coreData)

	hashID, err := fetchOrCreateHash(ctx, s.db, sum, HashOptions{})
	if err != nil {
		return nil, err
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO pools (pool_hash, pool_core_data, title) VALUES (?, ?, ?)`,
		hashID, coreData, title); err != nil {
		return nil, fmt.Errorf("insert pool: %w", err)
	}
	return &Pool{Hash: hashID, Title: title}, nil
}

// AddFile appends fileHash to the end of poolHash's ordered entries.
func (s *Store) AddFile(ctx context.Context, poolHash, fileHash string) error {
	var maxIndex sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT max(entry_index) FROM pool_entries WHERE pool_hash = ?`, poolHash).Scan(&maxIndex)
	if err != nil {
		return fmt.Errorf("find max entry index: %w", err)
	}

	next := int64(0)
	if maxIndex.Valid {
		next = maxIndex.Int64 + 1
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO pool_entries (file_hash, pool_hash, entry_index) VALUES (?, ?, ?)`,
		fileHash, poolHash, next)
	if err != nil {
		return fmt.Errorf("append pool entry: %w", err)
	}
	return nil
}

// AddFileAtIndex inserts fileHash at position index, shifting every entry
// at or after it down by one. The whole pool is rewritten inside one
// transaction: fetch the current ordered list, splice fileHash in, delete
// every existing entry, and reinsert with fresh dense indices.
func (s *Store) AddFileAtIndex(ctx context.Context, poolHash, fileHash string, index int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin pool rewrite: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx,
		`SELECT file_hash FROM pool_entries WHERE pool_hash = ? ORDER BY entry_index`, poolHash)
	if err != nil {
		return fmt.Errorf("load pool entries: %w", err)
	}
	var current []string
	for rows.Next() {
		var fh string
		if err := rows.Scan(&fh); err != nil {
			rows.Close()
			return err
		}
		current = append(current, fh)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()

	if index < 0 {
		index = 0
	}
	if index > len(current) {
		index = len(current)
	}
	reordered := make([]string, 0, len(current)+1)
	reordered = append(reordered, current[:index]...)
	reordered = append(reordered, fileHash)
	reordered = append(reordered, current[index:]...)

	if _, err := tx.ExecContext(ctx, `DELETE FROM pool_entries WHERE pool_hash = ?`, poolHash); err != nil {
		return fmt.Errorf("clear pool entries: %w", err)
	}
	for i, fh := range reordered {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO pool_entries (file_hash, pool_hash, entry_index) VALUES (?, ?, ?)`,
			fh, poolHash, i); err != nil {
			return fmt.Errorf("reinsert pool entry %d: %w", i, err)
		}
	}

	return tx.Commit()
}

// RemoveFile deletes a pool entry, leaving a hole in entry_index rather
// than compacting: readers always order by entry_index.
func (s *Store) RemoveFile(ctx context.Context, poolHash, fileHash string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM pool_entries WHERE pool_hash = ? AND file_hash = ?`, poolHash, fileHash)
	if err != nil {
		return fmt.Errorf("remove pool entry: %w", err)
	}
	return nil
}

// FetchFiles returns poolHash's files in entry_index order (the indices
// may contain holes after RemoveFile).
func (s *Store) FetchFiles(ctx context.Context, poolHash string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT file_hash FROM pool_entries WHERE pool_hash = ? ORDER BY entry_index`, poolHash)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var fh string
		if err := rows.Scan(&fh); err != nil {
			return nil, err
		}
		out = append(out, fh)
	}
	return out, rows.Err()
}
