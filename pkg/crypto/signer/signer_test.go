package signer

import (
	"testing"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignVerifyRoundTrip(t *testing.T) {
	sk, err := secp256k1.GeneratePrivateKey()
	require.NoError(t, err)

	msg := []byte("U3 survivor set transcript")
	sig := Sign(sk, msg)

	assert.True(t, Verify(sk.PubKey(), msg, sig))
}

func TestVerifyRejectsWrongMessage(t *testing.T) {
	sk, err := secp256k1.GeneratePrivateKey()
	require.NoError(t, err)

	sig := Sign(sk, []byte("original"))
	assert.False(t, Verify(sk.PubKey(), []byte("tampered"), sig))
}

func TestVerifyRejectsWrongKey(t *testing.T) {
	sk, err := secp256k1.GeneratePrivateKey()
	require.NoError(t, err)
	other, err := secp256k1.GeneratePrivateKey()
	require.NoError(t, err)

	msg := []byte("message")
	sig := Sign(sk, msg)
	assert.False(t, Verify(other.PubKey(), msg, sig))
}

func TestVerifyRejectsMalformedSignature(t *testing.T) {
	sk, err := secp256k1.GeneratePrivateKey()
	require.NoError(t, err)
	assert.False(t, Verify(sk.PubKey(), []byte("message"), []byte{0x01, 0x02}))
}
