package query

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCompileSingleTag(t *testing.T) {
	c, err := Compile("a")
	require.NoError(t, err)
	require.Equal(t, "select distinct file_hash from tag_files where core_hash = ?", c.SQL)
	require.Equal(t, []any{"a"}, c.Arguments)
}

func TestCompileAndOrMix(t *testing.T) {
	c, err := Compile(`a b | "cd"|e`)
	require.NoError(t, err)
	require.Equal(t,
		"select distinct file_hash from tag_files where core_hash = ?"+
			" intersect select file_hash from tag_files where core_hash = ? or core_hash = ? or core_hash = ?",
		c.SQL)
	require.Equal(t, []any{"a", "b", "cd", "e"}, c.Arguments)
}

func TestCompileHashScopedTag(t *testing.T) {
	hex64 := "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"
	c, err := Compile("hash:" + hex64)
	require.NoError(t, err)
	require.Equal(t, "select distinct file_hash from tag_files where file_hash = ?", c.SQL)
	require.Len(t, c.Arguments, 1)
	raw, ok := c.Arguments[0].([]byte)
	require.True(t, ok)
	require.Len(t, raw, 32)
}

func TestCompileSystemRandom(t *testing.T) {
	c, err := Compile("system:random")
	require.NoError(t, err)
	require.Equal(t,
		"select distinct file_hash from tag_files where core_hash = (select core_hash from tag_names order by random() limit 1)",
		c.SQL)
	require.Empty(t, c.Arguments)
}

func TestCompileSystemLowTags(t *testing.T) {
	c, err := Compile("system:low_tags:3")
	require.NoError(t, err)
	require.Equal(t,
		"select distinct file_hash from tag_files where (select count(*) from tag_files tf2 where tf2.file_hash = tag_files.file_hash) < 3",
		c.SQL)
	require.Empty(t, c.Arguments)
}

func TestCompileLeadingNot(t *testing.T) {
	c, err := Compile("-a")
	require.NoError(t, err)
	require.Equal(t,
		"select distinct file_hash from tag_files where true except select file_hash from tag_files where core_hash = ?",
		c.SQL)
	require.Equal(t, []any{"a"}, c.Arguments)
}

func TestCompileInfixNot(t *testing.T) {
	c, err := Compile("a -b")
	require.NoError(t, err)
	require.Equal(t,
		"select distinct file_hash from tag_files where core_hash = ?"+
			" except select file_hash from tag_files where core_hash = ?",
		c.SQL)
	require.Equal(t, []any{"a", "b"}, c.Arguments)
}

func TestCompileEmptyQuery(t *testing.T) {
	c, err := Compile("")
	require.NoError(t, err)
	require.Equal(t, "select distinct file_hash from tag_files", c.SQL)
	require.Empty(t, c.Arguments)
}

func TestCompileUnterminatedRawTag(t *testing.T) {
	_, err := Compile(`a "cd`)
	require.Error(t, err)
	var uce *UnexpectedCharacterError
	require.ErrorAs(t, err, &uce)
	require.Equal(t, 2, uce.Pos)
}

func TestCompileInvalidHashScopedTag(t *testing.T) {
	_, err := Compile("asd hash:AaaAAaaAaaA")
	require.Error(t, err)
	var ihe *InvalidHashScopedTagError
	require.ErrorAs(t, err, &ihe)
	require.Equal(t, 20, ihe.Pos)
}
