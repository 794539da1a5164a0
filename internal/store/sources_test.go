package store

import (
	"context"
	"testing"

	"github.com/awtfdb/awtfdb/internal/store/migrations"
	"github.com/stretchr/testify/require"
)

func TestFetchTagSourceSystemSources(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	manual, err := s.FetchTagSource(ctx, KindSystem, migrations.SystemSourceManual)
	require.NoError(t, err)
	require.Equal(t, "manual insertion", manual.Name)

	parenting, err := s.FetchTagSource(ctx, KindSystem, migrations.SystemSourceTagParenting)
	require.NoError(t, err)
	require.Equal(t, "tag parenting", parenting.Name)

	_, err = s.FetchTagSource(ctx, KindSystem, 99)
	require.Error(t, err)
}

func TestCreateTagSourceAllocatesMonotonically(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	first, err := s.CreateTagSource(ctx, "importer-a")
	require.NoError(t, err)
	require.Equal(t, int64(0), first.ID)

	second, err := s.CreateTagSource(ctx, "importer-b")
	require.NoError(t, err)
	require.Equal(t, int64(1), second.ID)

	fetched, err := s.FetchTagSource(ctx, KindExternal, first.ID)
	require.NoError(t, err)
	require.Equal(t, "importer-a", fetched.Name)
}

func TestDeleteTagSourceRejectsSystemSources(t *testing.T) {
	s := openTestStore(t)
	err := s.DeleteTagSource(context.Background(), KindSystem, migrations.SystemSourceManual)
	require.Error(t, err)
}

func TestDeleteTagSourceRemovesExternalSource(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	src, err := s.CreateTagSource(ctx, "disposable")
	require.NoError(t, err)
	require.NoError(t, s.DeleteTagSource(ctx, KindExternal, src.ID))

	_, err = s.FetchTagSource(ctx, KindExternal, src.ID)
	require.Error(t, err)
}

func TestLibraryConfigRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	_, ok, err := s.GetLibraryConfig(ctx, "tag_name_regex")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, s.SetLibraryConfig(ctx, "tag_name_regex", "[a-z]+"))
	value, ok, err := s.GetLibraryConfig(ctx, "tag_name_regex")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "[a-z]+", value)
}
