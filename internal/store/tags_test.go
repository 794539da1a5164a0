package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCreateNamedTagMintsCore(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	tag, err := s.CreateNamedTag(ctx, "photo", "en", CreateNamedTagOptions{})
	require.NoError(t, err)
	require.NotEmpty(t, tag.CoreHash)

	fetched, err := s.FetchNamedTag(ctx, "photo", "en")
	require.NoError(t, err)
	require.Equal(t, tag.CoreHash, fetched.CoreHash)
}

func TestCreateNamedTagWithExistingCoreSharesIdentity(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	first, err := s.CreateNamedTag(ctx, "photo", "en", CreateNamedTagOptions{})
	require.NoError(t, err)

	second, err := s.CreateNamedTag(ctx, "foto", "pt", CreateNamedTagOptions{ExistingCore: first.CoreHash})
	require.NoError(t, err)
	require.Equal(t, first.CoreHash, second.CoreHash)

	names, err := s.FetchTagsFromCore(ctx, first.CoreHash)
	require.NoError(t, err)
	require.Len(t, names, 2)
}

func TestCreateNamedTagRejectsInvalidName(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	require.NoError(t, s.SetLibraryConfig(ctx, "tag_name_regex", "[a-z]+"))

	_, err := s.CreateNamedTag(ctx, "Not Lowercase", "en", CreateNamedTagOptions{})
	require.Error(t, err)
	var itne *InvalidTagNameError
	require.ErrorAs(t, err, &itne)
}

func TestFetchNamedTagUnknown(t *testing.T) {
	s := openTestStore(t)
	_, err := s.FetchNamedTag(context.Background(), "nope", "en")
	require.Error(t, err)
	var ute *UnknownTagError
	require.ErrorAs(t, err, &ute)
}

func TestDeleteAllNamedTagsRemovesCoreAndHash(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	tag, err := s.CreateNamedTag(ctx, "disposable", "en", CreateNamedTagOptions{})
	require.NoError(t, err)

	require.NoError(t, s.DeleteAllNamedTags(ctx, tag.CoreHash))

	_, err = s.FetchNamedTag(ctx, "disposable", "en")
	require.Error(t, err)

	var count int
	require.NoError(t, s.DB().QueryRowContext(ctx, `SELECT count(*) FROM hashes WHERE id = ?`, tag.CoreHash).Scan(&count))
	require.Equal(t, 0, count)
}
