package digest

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSumDeterministic(t *testing.T) {
	a := Sum([]byte("awooga"))
	b := Sum([]byte("awooga"))
	require.Equal(t, a, b)
}

func TestSumDiffersByInput(t *testing.T) {
	a := Sum([]byte("awooga"))
	b := Sum([]byte("awooga2"))
	require.NotEqual(t, a, b)
}

func TestSumLength(t *testing.T) {
	sum := Sum([]byte("hello"))
	require.Len(t, sum, Size)
}

func TestSumReaderMatchesSum(t *testing.T) {
	data := bytes.Repeat([]byte("x"), chunkSize*3+17)
	want := Sum(data)

	got, err := SumReader(bytes.NewReader(data))
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestSumReaderEmpty(t *testing.T) {
	want := Sum(nil)
	got, err := SumReader(strings.NewReader(""))
	require.NoError(t, err)
	require.Equal(t, want, got)
}
