// Package curvegroup wraps secp256k1 key generation and Diffie-Hellman
// agreement for the two ephemeral keypairs ("c" and "s") each client
// generates per round (spec §3, §4.1).
package curvegroup

import (
	"errors"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// KeyPair is a secp256k1 scalar/point pair.
type KeyPair struct {
	Priv *secp256k1.PrivateKey
	Pub  *secp256k1.PublicKey
}

// Generate draws a fresh random keypair.
func Generate() (KeyPair, error) {
	priv, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return KeyPair{}, err
	}
	return KeyPair{Priv: priv, Pub: priv.PubKey()}, nil
}

// Agree computes the Diffie-Hellman shared point sk*pk and returns its
// compressed encoding. Agree(skA, pkB) == Agree(skB, pkA).
func Agree(sk *secp256k1.PrivateKey, pk *secp256k1.PublicKey) ([]byte, error) {
	if sk == nil || pk == nil {
		return nil, errors.New("curvegroup: nil key")
	}
	var shared secp256k1.JacobianPoint
	pk.AsJacobian(&shared)
	secp256k1.ScalarMultNonConst(&sk.Key, &shared, &shared)
	shared.ToAffine()
	full := secp256k1.NewPublicKey(&shared.X, &shared.Y)
	return full.SerializeCompressed(), nil
}

// MarshalPub returns the compressed SEC1 encoding of a public key.
func MarshalPub(pk *secp256k1.PublicKey) []byte {
	return pk.SerializeCompressed()
}

// UnmarshalPub parses a compressed SEC1 public key.
func UnmarshalPub(b []byte) (*secp256k1.PublicKey, error) {
	return secp256k1.ParsePubKey(b)
}

// MarshalPriv returns the raw scalar bytes of a private key.
func MarshalPriv(sk *secp256k1.PrivateKey) []byte {
	return sk.Serialize()
}

// UnmarshalPriv parses a raw scalar into a private key.
func UnmarshalPriv(b []byte) (*secp256k1.PrivateKey, error) {
	if len(b) != 32 {
		return nil, errors.New("curvegroup: private key must be 32 bytes")
	}
	return secp256k1.PrivKeyFromBytes(b), nil
}
