package curvegroup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAgreeIsSymmetric(t *testing.T) {
	a, err := Generate()
	require.NoError(t, err)
	b, err := Generate()
	require.NoError(t, err)

	sharedAB, err := Agree(a.Priv, b.Pub)
	require.NoError(t, err)
	sharedBA, err := Agree(b.Priv, a.Pub)
	require.NoError(t, err)

	assert.Equal(t, sharedAB, sharedBA)
}

func TestAgreeRejectsNilKeys(t *testing.T) {
	a, err := Generate()
	require.NoError(t, err)

	_, err = Agree(nil, a.Pub)
	assert.Error(t, err)
	_, err = Agree(a.Priv, nil)
	assert.Error(t, err)
}

func TestPubKeyMarshalRoundTrip(t *testing.T) {
	kp, err := Generate()
	require.NoError(t, err)

	b := MarshalPub(kp.Pub)
	pk, err := UnmarshalPub(b)
	require.NoError(t, err)
	assert.True(t, kp.Pub.IsEqual(pk))
}

func TestPrivKeyMarshalRoundTrip(t *testing.T) {
	kp, err := Generate()
	require.NoError(t, err)

	b := MarshalPriv(kp.Priv)
	sk, err := UnmarshalPriv(b)
	require.NoError(t, err)
	assert.Equal(t, kp.Priv.Serialize(), sk.Serialize())

	_, err = UnmarshalPriv([]byte{0x01, 0x02})
	assert.Error(t, err)
}
