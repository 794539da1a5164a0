// Package idgen generates the 26-character, lexicographically time-ordered
// hash identifiers used throughout the store (ULID-style: 48-bit
// millisecond timestamp + 80-bit randomness, Crockford base-32).
package idgen

import (
	"crypto/rand"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
)

// maxTimestampMS is the largest millisecond timestamp representable in
// ULID's 48-bit time field.
const maxTimestampMS = (1 << 48) - 1

// ID is a 26-character Crockford base-32 identifier, sortable by the time
// component embedded in its first 10 characters.
type ID = ulid.ULID

// New generates an ID for the current wall-clock time.
func New() (ID, error) {
	return NewAt(time.Now())
}

// NewAt generates an ID whose time component is t, used when inserting a
// hash for a file so the ID preserves the file's mtime. Passing a time
// whose millisecond timestamp exceeds the 48-bit field is a fatal
// programmer error, not a recoverable one.
func NewAt(t time.Time) (ID, error) {
	ms := ulid.Timestamp(t)
	if ms > maxTimestampMS {
		panic(fmt.Sprintf("idgen: timestamp %d exceeds 48-bit ULID range", ms))
	}
	id, err := ulid.New(ms, rand.Reader)
	if err != nil {
		return ID{}, fmt.Errorf("idgen: generate id: %w", err)
	}
	return id, nil
}

// Parse decodes a 26-character ID string, rejecting anything that is not a
// well-formed ULID.
func Parse(s string) (ID, error) {
	id, err := ulid.ParseStrict(s)
	if err != nil {
		return ID{}, fmt.Errorf("idgen: parse %q: %w", s, err)
	}
	return id, nil
}
