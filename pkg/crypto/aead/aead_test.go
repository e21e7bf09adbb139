package aead

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	var key [32]byte
	var nonce [24]byte
	_, err := rand.Read(key[:])
	require.NoError(t, err)
	_, err = rand.Read(nonce[:])
	require.NoError(t, err)

	plaintext := []byte("phase-2 pairwise share payload")
	ct, err := Encrypt(key, nonce, plaintext)
	require.NoError(t, err)
	assert.NotEqual(t, plaintext, ct)

	pt, err := Decrypt(key, nonce, ct)
	require.NoError(t, err)
	assert.Equal(t, plaintext, pt)
}

func TestDecryptRejectsWrongKey(t *testing.T) {
	var key, wrongKey [32]byte
	var nonce [24]byte
	_, err := rand.Read(key[:])
	require.NoError(t, err)
	_, err = rand.Read(wrongKey[:])
	require.NoError(t, err)
	_, err = rand.Read(nonce[:])
	require.NoError(t, err)

	ct, err := Encrypt(key, nonce, []byte("secret"))
	require.NoError(t, err)

	_, err = Decrypt(wrongKey, nonce, ct)
	assert.Error(t, err)
}

func TestDecryptRejectsTamperedCiphertext(t *testing.T) {
	var key [32]byte
	var nonce [24]byte
	_, err := rand.Read(key[:])
	require.NoError(t, err)
	_, err = rand.Read(nonce[:])
	require.NoError(t, err)

	ct, err := Encrypt(key, nonce, []byte("secret"))
	require.NoError(t, err)
	ct[0] ^= 0xff

	_, err = Decrypt(key, nonce, ct)
	assert.Error(t, err)
}
