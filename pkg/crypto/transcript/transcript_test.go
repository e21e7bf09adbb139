package transcript

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKDFDeterministic(t *testing.T) {
	shared := []byte{0x01, 0x02, 0x03}
	assert.Equal(t, KDF(shared), KDF(shared))
}

func TestKDFDiffersByInput(t *testing.T) {
	assert.NotEqual(t, KDF([]byte("a")), KDF([]byte("b")))
}

func TestNonceDeterministicAndDistinct(t *testing.T) {
	roundID := []byte("round-1")
	n1 := Nonce("alice", "bob", roundID)
	n2 := Nonce("alice", "bob", roundID)
	assert.Equal(t, n1, n2)

	n3 := Nonce("bob", "alice", roundID)
	assert.NotEqual(t, n1, n3, "swapping sender/recipient must change the nonce")

	n4 := Nonce("alice", "bob", []byte("round-2"))
	assert.NotEqual(t, n1, n4, "a new round must change the nonce")
}

func TestHashSetIsOrderSensitive(t *testing.T) {
	a := HashSet([]string{"p1", "p2", "p3"})
	b := HashSet([]string{"p3", "p1", "p2"})
	assert.NotEqual(t, a, b, "HashSet is order-sensitive; callers must canonicalize first")

	c := HashSet([]string{"p1", "p2", "p3"})
	assert.Equal(t, a, c)
}

func TestWriterDomainSeparation(t *testing.T) {
	w1 := New()
	w1.Write("domain-a", []byte("payload"))

	w2 := New()
	w2.Write("domain-b", []byte("payload"))

	assert.NotEqual(t, w1.Sum(), w2.Sum())
}
