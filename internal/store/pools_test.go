package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAddFileAppendsInOrder(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	pool, err := s.CreatePool(ctx, "vacation photos")
	require.NoError(t, err)

	pathA := writeTempFile(t, "a")
	pathB := writeTempFile(t, "b")
	fa, err := s.CreateFileFromPath(ctx, pathA, CreateFileOptions{})
	require.NoError(t, err)
	fb, err := s.CreateFileFromPath(ctx, pathB, CreateFileOptions{})
	require.NoError(t, err)

	require.NoError(t, s.AddFile(ctx, pool.Hash, fa.Hash))
	require.NoError(t, s.AddFile(ctx, pool.Hash, fb.Hash))

	files, err := s.FetchFiles(ctx, pool.Hash)
	require.NoError(t, err)
	require.Equal(t, []string{fa.Hash, fb.Hash}, files)
}

func TestAddFileAtIndexInsertsAndShifts(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	pool, err := s.CreatePool(ctx, "ordered set")
	require.NoError(t, err)

	var hashes []string
	for _, content := range []string{"1", "2", "3"} {
		f, err := s.CreateFileFromPath(ctx, writeTempFile(t, content), CreateFileOptions{})
		require.NoError(t, err)
		hashes = append(hashes, f.Hash)
		require.NoError(t, s.AddFile(ctx, pool.Hash, f.Hash))
	}

	inserted, err := s.CreateFileFromPath(ctx, writeTempFile(t, "inserted"), CreateFileOptions{})
	require.NoError(t, err)
	require.NoError(t, s.AddFileAtIndex(ctx, pool.Hash, inserted.Hash, 1))

	files, err := s.FetchFiles(ctx, pool.Hash)
	require.NoError(t, err)
	require.Equal(t, []string{hashes[0], inserted.Hash, hashes[1], hashes[2]}, files)
}

func TestRemoveFileLeavesOrderIntact(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	pool, err := s.CreatePool(ctx, "set")
	require.NoError(t, err)

	var hashes []string
	for _, content := range []string{"x", "y", "z"} {
		f, err := s.CreateFileFromPath(ctx, writeTempFile(t, content), CreateFileOptions{})
		require.NoError(t, err)
		hashes = append(hashes, f.Hash)
		require.NoError(t, s.AddFile(ctx, pool.Hash, f.Hash))
	}

	require.NoError(t, s.RemoveFile(ctx, pool.Hash, hashes[1]))

	files, err := s.FetchFiles(ctx, pool.Hash)
	require.NoError(t, err)
	require.Equal(t, []string{hashes[0], hashes[2]}, files)
}
