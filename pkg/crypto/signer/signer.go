// Package signer provides secp256k1 ECDSA sign/verify, used for both
// long-term client identities and the per-round advertise/consistency
// signatures (spec §4.1, §4.3, §4.4).
package signer

import (
	"crypto/sha256"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
)

// Sign signs msg with sk, after hashing it with SHA-256.
func Sign(sk *secp256k1.PrivateKey, msg []byte) []byte {
	digest := sha256.Sum256(msg)
	sig := ecdsa.Sign(sk, digest[:])
	return sig.Serialize()
}

// Verify checks sig against msg and pk.
func Verify(pk *secp256k1.PublicKey, msg, sig []byte) bool {
	parsed, err := ecdsa.ParseDERSignature(sig)
	if err != nil {
		return false
	}
	digest := sha256.Sum256(msg)
	return parsed.Verify(digest[:], pk)
}
