package janitor

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/awtfdb/awtfdb/internal/store"
)

func TestParseByteAmountPlainDecimal(t *testing.T) {
	n, err := ParseByteAmount("1024")
	require.NoError(t, err)
	require.Equal(t, int64(1024), n)
}

func TestParseByteAmountSuffixes(t *testing.T) {
	cases := map[string]int64{
		"1K": 1 << 10,
		"2M": 2 << 20,
		"3G": 3 << 30,
		"4k": 1 << 12,
	}
	for input, want := range cases {
		n, err := ParseByteAmount(input)
		require.NoError(t, err, input)
		require.Equal(t, want, n, input)
	}
}

func TestParseByteAmountRejectsMalformedInput(t *testing.T) {
	for _, input := range []string{"", "abc", "-5", "5X"} {
		_, err := ParseByteAmount(input)
		require.Error(t, err, input)
		var ibae *store.InvalidByteAmountError
		require.ErrorAs(t, err, &ibae, input)
	}
}
