// Package transcript implements domain-separated blake3 hashing, used
// both to derive symmetric keys from Diffie-Hellman shared secrets and
// to hash the survivor set U3 before clients sign it (spec §4.1, §4.4).
//
// The shape mirrors the teacher's internal hash.State /
// hash.BytesWithDomain: every write is tagged with a short domain
// string so unrelated uses of the same underlying hash can never
// collide on input bytes.
package transcript

import (
	"encoding/binary"

	"github.com/zeebo/blake3"
)

// Writer accumulates domain-tagged writes into a single blake3 hash.
type Writer struct {
	h *blake3.Hasher
}

// New starts a fresh transcript hash.
func New() *Writer {
	return &Writer{h: blake3.New()}
}

// Write appends a domain-tagged byte string to the transcript.
func (w *Writer) Write(domain string, b []byte) {
	var lenBuf [8]byte
	binary.BigEndian.PutUint64(lenBuf[:], uint64(len(domain)))
	w.h.Write(lenBuf[:])
	w.h.Write([]byte(domain))
	binary.BigEndian.PutUint64(lenBuf[:], uint64(len(b)))
	w.h.Write(lenBuf[:])
	w.h.Write(b)
}

// Sum returns the 32-byte digest of everything written so far.
func (w *Writer) Sum() []byte {
	sum := w.h.Sum(nil)
	return sum
}

// KDF derives a fixed-width symmetric key from a Diffie-Hellman shared
// secret. It is never reused as an AEAD nonce (spec §9 flags the
// source's "nonce equals key" bug; this package and pkg/crypto/aead
// keep the two derivations distinct).
func KDF(sharedSecret []byte) [32]byte {
	w := New()
	w.Write("secureagg/kdf/shared-secret", sharedSecret)
	var out [32]byte
	copy(out[:], w.Sum())
	return out
}

// Nonce derives a deterministic 24-byte XChaCha20-Poly1305 nonce from
// the sender id, recipient id and round identifier, so that the same
// pair of parties never reuses a nonce across rounds.
func Nonce(sender, recipient string, roundID []byte) [24]byte {
	w := New()
	w.Write("secureagg/aead/nonce/sender", []byte(sender))
	w.Write("secureagg/aead/nonce/recipient", []byte(recipient))
	w.Write("secureagg/aead/nonce/round", roundID)
	var out [24]byte
	copy(out[:], w.Sum())
	return out
}

// Seed collapses a Diffie-Hellman shared secret into the 32-bit seed
// the PRG expects, through the same KDF used to derive AEAD keys, so
// every derivation in the protocol traces back to one hashing
// discipline. Both the aggregator's dropout fix-up and every client's
// own masking step call this, so the two sides always land on the
// same seed for the same shared secret.
func Seed(sharedSecret []byte) uint32 {
	key := KDF(sharedSecret)
	return binary.BigEndian.Uint32(key[:4])
}

// HashSet returns a canonical digest of a set of party ids, used so
// that "sign the exact bytes of U3" (spec §4.4 step 4) is unambiguous
// regardless of map iteration order.
func HashSet(ids []string) []byte {
	w := New()
	for _, id := range ids {
		w.Write("secureagg/transcript/member", []byte(id))
	}
	return w.Sum()
}
