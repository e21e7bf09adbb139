// Package aead wraps XChaCha20-Poly1305 for encrypting the per-peer
// share payloads exchanged in phase 2 (spec §4.1).
package aead

import (
	"errors"

	"golang.org/x/crypto/chacha20poly1305"
)

// Encrypt seals plaintext under key using the given 24-byte nonce. The
// caller is responsible for deriving a nonce that is never reused for
// the same key (see pkg/crypto/transcript.Nonce) — unlike the source
// protocol, key and nonce must never be equal.
func Encrypt(key [32]byte, nonce [24]byte, plaintext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(key[:])
	if err != nil {
		return nil, err
	}
	return aead.Seal(nil, nonce[:], plaintext, nil), nil
}

// Decrypt opens ciphertext under key and nonce.
func Decrypt(key [32]byte, nonce [24]byte, ciphertext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(key[:])
	if err != nil {
		return nil, err
	}
	pt, err := aead.Open(nil, nonce[:], ciphertext, nil)
	if err != nil {
		return nil, errors.New("aead: decrypt failed")
	}
	return pt, nil
}
