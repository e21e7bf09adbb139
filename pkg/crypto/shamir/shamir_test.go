package shamir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitReconstructRoundTrip(t *testing.T) {
	secret := []byte{0xde, 0xad, 0xbe, 0xef}

	shares, err := Split(secret, 3, 5)
	require.NoError(t, err)
	assert.Len(t, shares, 5)

	got, err := Reconstruct(shares[:3])
	require.NoError(t, err)
	assert.Equal(t, secret, trimLeadingZeros(got, len(secret)))
}

func TestReconstructAnyThresholdSubset(t *testing.T) {
	secret := []byte{0x01, 0x02, 0x03, 0x04}
	shares, err := Split(secret, 3, 5)
	require.NoError(t, err)

	subsets := [][]Share{
		{shares[0], shares[1], shares[2]},
		{shares[1], shares[3], shares[4]},
		{shares[0], shares[2], shares[4]},
	}
	for _, subset := range subsets {
		got, err := Reconstruct(subset)
		require.NoError(t, err)
		assert.Equal(t, secret, trimLeadingZeros(got, len(secret)))
	}
}

func TestSplitRejectsInvalidThreshold(t *testing.T) {
	_, err := Split([]byte("secret"), 0, 5)
	assert.Error(t, err)

	_, err = Split([]byte("secret"), 6, 5)
	assert.Error(t, err)
}

func TestReconstructRejectsEmptyShares(t *testing.T) {
	_, err := Reconstruct(nil)
	assert.Error(t, err)
}

// trimLeadingZeros strips leading zero bytes beyond n and left-pads to
// n, since Reconstruct returns the secret at the field modulus's width
// (saferith.Nat.Bytes() fills the Nat's announced length). Nonzero
// high bytes are kept, so a wrong result still fails the comparison.
func trimLeadingZeros(b []byte, n int) []byte {
	for len(b) > n && b[0] == 0 {
		b = b[1:]
	}
	if len(b) >= n {
		return b
	}
	out := make([]byte, n)
	copy(out[n-len(b):], b)
	return out
}
