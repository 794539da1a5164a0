package treeprop

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/awtfdb/awtfdb/internal/store"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(context.Background(), ":memory:", store.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func createFile(t *testing.T, s *store.Store, contents string) *store.File {
	t.Helper()
	path := filepath.Join(t.TempDir(), "file.bin")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	f, err := s.CreateFileFromPath(context.Background(), path, store.CreateFileOptions{})
	require.NoError(t, err)
	return f
}

func implicate(t *testing.T, s *store.Store, child, parent string) int64 {
	t.Helper()
	res, err := s.DB().ExecContext(context.Background(),
		`INSERT INTO tag_implications (child_tag, parent_tag) VALUES (?, ?)`, child, parent)
	require.NoError(t, err)
	rowID, err := res.LastInsertId()
	require.NoError(t, err)
	return rowID
}

func TestRunPropagatesDirectParent(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	dog, err := s.CreateNamedTag(ctx, "dog", "en", store.CreateNamedTagOptions{})
	require.NoError(t, err)
	animal, err := s.CreateNamedTag(ctx, "animal", "en", store.CreateNamedTagOptions{})
	require.NoError(t, err)
	implicate(t, s, dog.CoreHash, animal.CoreHash)

	f := createFile(t, s, "a dog photo")
	require.NoError(t, s.AddTag(ctx, f.Hash, dog.CoreHash, store.ManualTagSource))

	stats, err := New(s).Run(ctx, []string{f.Hash})
	require.NoError(t, err)
	require.Equal(t, 1, stats.FilesScanned)
	require.Equal(t, 1, stats.TagsAdded)

	tags, err := s.FetchFileTags(ctx, f.Hash)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{dog.CoreHash, animal.CoreHash}, tags)
}

func TestRunPropagatesTransitiveChain(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	poodle, err := s.CreateNamedTag(ctx, "poodle", "en", store.CreateNamedTagOptions{})
	require.NoError(t, err)
	dog, err := s.CreateNamedTag(ctx, "dog", "en", store.CreateNamedTagOptions{})
	require.NoError(t, err)
	animal, err := s.CreateNamedTag(ctx, "animal", "en", store.CreateNamedTagOptions{})
	require.NoError(t, err)
	implicate(t, s, poodle.CoreHash, dog.CoreHash)
	implicate(t, s, dog.CoreHash, animal.CoreHash)

	f := createFile(t, s, "a poodle photo")
	require.NoError(t, s.AddTag(ctx, f.Hash, poodle.CoreHash, store.ManualTagSource))

	stats, err := New(s).Run(ctx, []string{f.Hash})
	require.NoError(t, err)
	require.Equal(t, 2, stats.TagsAdded)

	tags, err := s.FetchFileTags(ctx, f.Hash)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{poodle.CoreHash, dog.CoreHash, animal.CoreHash}, tags)
}

func TestRunIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	child, err := s.CreateNamedTag(ctx, "child", "en", store.CreateNamedTagOptions{})
	require.NoError(t, err)
	parent, err := s.CreateNamedTag(ctx, "parent", "en", store.CreateNamedTagOptions{})
	require.NoError(t, err)
	implicate(t, s, child.CoreHash, parent.CoreHash)

	f := createFile(t, s, "idempotent")
	require.NoError(t, s.AddTag(ctx, f.Hash, child.CoreHash, store.ManualTagSource))

	_, err = New(s).Run(ctx, []string{f.Hash})
	require.NoError(t, err)

	stats, err := New(s).Run(ctx, []string{f.Hash})
	require.NoError(t, err)
	require.Equal(t, 0, stats.TagsAdded)
}

func TestRunWithEmptyScopeCoversEveryTaggedFile(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	child, err := s.CreateNamedTag(ctx, "child", "en", store.CreateNamedTagOptions{})
	require.NoError(t, err)
	parent, err := s.CreateNamedTag(ctx, "parent", "en", store.CreateNamedTagOptions{})
	require.NoError(t, err)
	implicate(t, s, child.CoreHash, parent.CoreHash)

	fa := createFile(t, s, "file a")
	fb := createFile(t, s, "file b")
	require.NoError(t, s.AddTag(ctx, fa.Hash, child.CoreHash, store.ManualTagSource))
	require.NoError(t, s.AddTag(ctx, fb.Hash, child.CoreHash, store.ManualTagSource))

	stats, err := New(s).Run(ctx, nil)
	require.NoError(t, err)
	require.Equal(t, 2, stats.FilesScanned)
	require.Equal(t, 2, stats.TagsAdded)
}

func TestRunWithNoImplicationsIsNoop(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	stats, err := New(s).Run(ctx, nil)
	require.NoError(t, err)
	require.Equal(t, Stats{}, stats)
}
