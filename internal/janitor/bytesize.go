package janitor

import (
	"strconv"
	"strings"

	"github.com/awtfdb/awtfdb/internal/store"
)

// ParseByteAmount parses a "--hash-files-smaller-than" argument: a decimal
// number optionally suffixed with K, M, or G (powers of 1024).
func ParseByteAmount(s string) (int64, error) {
	if s == "" {
		return 0, &store.InvalidByteAmountError{Input: s}
	}

	multiplier := int64(1)
	numeric := s
	switch s[len(s)-1] {
	case 'K', 'k':
		multiplier = 1 << 10
		numeric = s[:len(s)-1]
	case 'M', 'm':
		multiplier = 1 << 20
		numeric = s[:len(s)-1]
	case 'G', 'g':
		multiplier = 1 << 30
		numeric = s[:len(s)-1]
	}

	numeric = strings.TrimSpace(numeric)
	n, err := strconv.ParseInt(numeric, 10, 64)
	if err != nil || n < 0 {
		return 0, &store.InvalidByteAmountError{Input: s}
	}
	return n * multiplier, nil
}
