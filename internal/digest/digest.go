// Package digest computes the keyed BLAKE3 digest that identifies every
// hash, tag core, and pool core in the store.
package digest

import "lukechampine.com/blake3"

// ContextString is the fixed context string from which the key for every
// digest in the store is derived (see contextKey). Digests are computed in
// BLAKE3 keyed mode under that key; BLAKE3's derive-key (KDF) mode is not
// used, so a digest here differs from a derive-key digest of the same
// bytes under this context string. It is never configurable: the spec
// allows no hash algorithm or context negotiation.
const ContextString = "awtfdb Sun Mar 20 16:58:11 AM +00 2022 main hash key"

// Size is the length in bytes of every digest produced by Sum.
const Size = 32

// contextKey derives the 32-byte keyed-hash key from ContextString. BLAKE3's
// keyed mode requires an exact 32-byte key, so the context string is reduced
// to one via an unkeyed BLAKE3 hash before use.
func contextKey() [Size]byte {
	return blake3.Sum256([]byte(ContextString))
}

// Sum returns the 32-byte keyed BLAKE3 digest of data under ContextString.
// It is deterministic: the same bytes always produce the same digest (P2).
func Sum(data []byte) [Size]byte {
	key := contextKey()
	h := blake3.New(Size, key[:])
	h.Write(data)

	var out [Size]byte
	copy(out[:], h.Sum(nil))
	return out
}

// Writer streams data into a running digest, used when hashing file
// contents in bounded chunks rather than loading the whole file.
type Writer struct {
	h *blake3.Hasher
}

// NewWriter returns a Writer ready to accept streamed writes.
func NewWriter() *Writer {
	key := contextKey()
	return &Writer{h: blake3.New(Size, key[:])}
}

// Write implements io.Writer.
func (w *Writer) Write(p []byte) (int, error) {
	return w.h.Write(p)
}

// Sum finalizes the digest accumulated so far.
func (w *Writer) Sum() [Size]byte {
	var out [Size]byte
	copy(out[:], w.h.Sum(nil))
	return out
}
