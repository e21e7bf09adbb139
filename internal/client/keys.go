package client

import (
	"crypto/rand"
	"encoding/binary"
	"net"

	"github.com/chenjunbao/secureagg/internal/roundconfig"
	"github.com/chenjunbao/secureagg/pkg/crypto/curvegroup"
)

// advertiseAddr resolves a bound listener's address to a dialable
// same-host address; see roundconfig.ResolveAddr.
func advertiseAddr(addr net.Addr) string {
	return roundconfig.ResolveAddr(addr)
}

// ephemeralKeys bundles the two fresh DH keypairs a client generates at
// the start of every round (spec §3 "Ephemeral key pair c"/"s"): "c"
// encrypts shares in transit, "s" derives the pairwise mask seeds.
type ephemeralKeys struct {
	c curvegroup.KeyPair
	s curvegroup.KeyPair
}

// generateEphemeral draws a fresh "c" and "s" keypair.
func generateEphemeral() (ephemeralKeys, error) {
	c, err := curvegroup.Generate()
	if err != nil {
		return ephemeralKeys{}, err
	}
	s, err := curvegroup.Generate()
	if err != nil {
		return ephemeralKeys{}, err
	}
	return ephemeralKeys{c: c, s: s}, nil
}

// randomSeed draws the client's private mask seed b_u, a uniform
// uint32 (spec §3 "Private seed b_u").
func randomSeed() (uint32, error) {
	var buf [4]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(buf[:]), nil
}

// seedBytes is the fixed-width encoding of a seed fed into Shamir
// splitting, so shares of b_u round-trip the same 4 bytes every time.
func seedBytes(seed uint32) []byte {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], seed)
	return buf[:]
}
