package library

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`CREATE TABLE library_configuration (key TEXT PRIMARY KEY, value TEXT NOT NULL)`)
	require.NoError(t, err)
	return db
}

func TestVerifyWithNoRegexAcceptsAnything(t *testing.T) {
	db := openTestDB(t)
	c := NewConfig()

	ok, _, err := c.Verify(context.Background(), db, "anything at all!!")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestVerifyRequiresFullSpanMatch(t *testing.T) {
	db := openTestDB(t)
	c := NewConfig()
	require.NoError(t, c.Set(context.Background(), db, TagNameRegexKey, "[a-zA-Z0-9_]+"))

	ok, span, err := c.Verify(context.Background(), db, "my test tag")
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, "my", span)

	ok, _, err = c.Verify(context.Background(), db, "correct_tag_source")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestSetInvalidatesCache(t *testing.T) {
	db := openTestDB(t)
	c := NewConfig()
	require.NoError(t, c.Set(context.Background(), db, TagNameRegexKey, "[a-z]+"))

	ok, _, err := c.Verify(context.Background(), db, "ABC")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, c.Set(context.Background(), db, TagNameRegexKey, "[A-Z]+"))

	ok, _, err = c.Verify(context.Background(), db, "ABC")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestVerifyUnicodeProperty(t *testing.T) {
	db := openTestDB(t)
	c := NewConfig()
	require.NoError(t, c.Set(context.Background(), db, TagNameRegexKey, `[\p{L}\p{N}_]+`))

	ok, _, err := c.Verify(context.Background(), db, "café_123")
	require.NoError(t, err)
	require.True(t, ok)
}
