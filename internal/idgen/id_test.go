package idgen

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewAtPreservesOrdering(t *testing.T) {
	earlier := time.Unix(1_600_000_000, 0)
	later := earlier.Add(time.Hour)

	a, err := NewAt(earlier)
	require.NoError(t, err)
	b, err := NewAt(later)
	require.NoError(t, err)

	require.Less(t, a.String(), b.String())
}

func TestNewAtExceedingRangePanics(t *testing.T) {
	tooFar := time.UnixMilli(maxTimestampMS + 1)
	require.Panics(t, func() {
		_, _ = NewAt(tooFar)
	})
}

func TestParseRoundTrip(t *testing.T) {
	id, err := New()
	require.NoError(t, err)

	parsed, err := Parse(id.String())
	require.NoError(t, err)
	require.Equal(t, id, parsed)
	require.Len(t, id.String(), 26)
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := Parse("not-a-valid-id")
	require.Error(t, err)
}
