package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/awtfdb/awtfdb/internal/digest"
)

// File is a (hash, path) pair as returned by the fetchFile* family.
type File struct {
	Hash      string
	LocalPath string
}

// CreateFileOptions controls createFileFromPath.
type CreateFileOptions struct {
	// UseFileMtime causes the underlying hash's id to encode the file's
	// on-disk modification time instead of the current time.
	UseFileMtime bool
}

// CreateFileFromPath resolves path to an absolute path and looks it up by
// path; on a miss it streams the file's contents through the digest and
// inserts a new files row (minting a hash row too, if the digest is new).
func (s *Store) CreateFileFromPath(ctx context.Context, path string, opts CreateFileOptions) (*File, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve path: %w", err)
	}

	if existing, err := s.fetchFileByPath(ctx, abs); err == nil {
		return existing, nil
	} else if err != sql.ErrNoRows {
		return nil, err
	}

	f, err := os.Open(abs)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", abs, err)
	}
	defer f.Close()

	sum, err := digest.SumReader(f)
	if err != nil {
		return nil, fmt.Errorf("hash %s: %w", abs, err)
	}

	var hashOpts HashOptions
	if opts.UseFileMtime {
		info, statErr := f.Stat()
		if statErr != nil {
			return nil, fmt.Errorf("stat %s: %w", abs, statErr)
		}
		hashOpts.FileMtime = info.ModTime()
	}

	hashID, err := fetchOrCreateHash(ctx, s.db, sum, hashOpts)
	if err != nil {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO files (file_hash, local_path) VALUES (?, ?)`, hashID, abs)
	if err != nil {
		return nil, fmt.Errorf("insert file: %w", err)
	}

	return &File{Hash: hashID, LocalPath: abs}, nil
}

// FetchFileByHash returns every path on record for a hash id.
func (s *Store) FetchFileByHash(ctx context.Context, hashID string) ([]File, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT file_hash, local_path FROM files WHERE file_hash = ?`, hashID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []File
	for rows.Next() {
		var f File
		if err := rows.Scan(&f.Hash, &f.LocalPath); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	if len(out) == 0 {
		return nil, &UnknownFileError{Hash: hashID}
	}
	return out, rows.Err()
}

// FetchFileByHashAndPath returns the single (hash, path) row, if present.
func (s *Store) FetchFileByHashAndPath(ctx context.Context, hashID, path string) (*File, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	var f File
	err = s.db.QueryRowContext(ctx,
		`SELECT file_hash, local_path FROM files WHERE file_hash = ? AND local_path = ?`, hashID, abs).
		Scan(&f.Hash, &f.LocalPath)
	if err == sql.ErrNoRows {
		return nil, &UnknownFileError{Hash: hashID}
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (s *Store) fetchFileByPath(ctx context.Context, abs string) (*File, error) {
	var f File
	err := s.db.QueryRowContext(ctx,
		`SELECT file_hash, local_path FROM files WHERE local_path = ?`, abs).Scan(&f.Hash, &f.LocalPath)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// FetchFileByPath returns the file on record at the given path.
func (s *Store) FetchFileByPath(ctx context.Context, path string) (*File, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	f, err := s.fetchFileByPath(ctx, abs)
	if err == sql.ErrNoRows {
		return nil, &UnknownFileError{Hash: abs}
	}
	return f, err
}

// FetchFileByDigest resolves a raw 32-byte digest to its files rows.
func (s *Store) FetchFileByDigest(ctx context.Context, raw [32]byte) ([]File, error) {
	hashID, err := fetchHashID(ctx, s.db, raw)
	if err == sql.ErrNoRows {
		return nil, &UnknownFileError{}
	}
	if err != nil {
		return nil, err
	}
	return s.FetchFileByHash(ctx, hashID)
}

// SetLocalPath atomically renames a file's on-record path.
func (s *Store) SetLocalPath(ctx context.Context, hashID, oldPath, newPath string) error {
	oldAbs, err := filepath.Abs(oldPath)
	if err != nil {
		return err
	}
	newAbs, err := filepath.Abs(newPath)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE files SET local_path = ? WHERE file_hash = ? AND local_path = ?`, newAbs, hashID, oldAbs)
	if err != nil {
		return fmt.Errorf("rename file: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &UnknownFileError{Hash: hashID}
	}
	return nil
}

// DeleteFile removes the files row for (hashID, path). It never touches the
// underlying hashes row; unreferenced hashes are swept by the janitor.
func (s *Store) DeleteFile(ctx context.Context, hashID, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM files WHERE file_hash = ? AND local_path = ?`, hashID, abs)
	if err != nil {
		return fmt.Errorf("delete file: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &UnknownFileError{Hash: hashID}
	}
	return nil
}

// TagSource identifies who/what attributed a tag-file link.
type TagSource struct {
	Type           int64
	ID             int64
	ParentSourceID sql.NullInt64
}

// ManualTagSource is the pre-seeded (system, manual insertion) source used
// by every AddTag call that doesn't specify otherwise.
var ManualTagSource = TagSource{Type: 0, ID: 0}

// TagParentingSource builds the pre-seeded (system, tag parenting) source
// attributing an inferred link to the implication edge that caused it.
func TagParentingSource(edgeRowID int64) TagSource {
	return TagSource{Type: 0, ID: 1, ParentSourceID: sql.NullInt64{Int64: edgeRowID, Valid: true}}
}

// AddTag links fileHash to coreHash with the given source. Source must be
// (system, tag_parenting) with a valid ParentSourceID, or must have an
// invalid (null) ParentSourceID for every other source. Inserting a link
// that already exists is a silent no-op (first insert with a given PK
// wins, per 4.4's tie-break rule for competing implication edges).
func (s *Store) AddTag(ctx context.Context, fileHash, coreHash string, source TagSource) error {
	const tagParentingType, tagParentingID = 0, 1
	isParenting := source.Type == tagParentingType && source.ID == tagParentingID
	if isParenting && !source.ParentSourceID.Valid {
		return fmt.Errorf("store: tag-parenting source requires parent_source_id")
	}
	if !isParenting && source.ParentSourceID.Valid {
		return fmt.Errorf("store: parent_source_id is only valid for tag-parenting sources")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tag_files (file_hash, core_hash, tag_source_type, tag_source_id, parent_source_id)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (file_hash, core_hash) DO NOTHING
	`, fileHash, coreHash, source.Type, source.ID, source.ParentSourceID)
	if err != nil {
		return fmt.Errorf("add tag: %w", err)
	}
	return nil
}

// FetchFileTags returns every core_hash tagged onto fileHash.
func (s *Store) FetchFileTags(ctx context.Context, fileHash string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT core_hash FROM tag_files WHERE file_hash = ?`, fileHash)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var core string
		if err := rows.Scan(&core); err != nil {
			return nil, err
		}
		out = append(out, core)
	}
	return out, rows.Err()
}

// RemoveTag unlinks fileHash from coreHash, regardless of which source
// attributed the link. Removing a link that isn't present is a no-op.
func (s *Store) RemoveTag(ctx context.Context, fileHash, coreHash string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM tag_files WHERE file_hash = ? AND core_hash = ?`, fileHash, coreHash)
	if err != nil {
		return fmt.Errorf("remove tag: %w", err)
	}
	return nil
}
