// Package keydir loads the one external input the core protocol
// requires: a directory of long-term public signature keys keyed by
// client id, and a client's own long-term private signature key
// (spec §1 "the core only requires"). Minting and distributing these
// keys is the trusted authority's job and stays out of scope; this
// package only reads what that external service is assumed to have
// already produced.
package keydir

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	"github.com/chenjunbao/secureagg/pkg/party"
)

// Directory maps a client id to its long-term public signature key.
type Directory map[party.ID]*secp256k1.PublicKey

// LoadDirectory reads one "<id>.pub" hex-encoded file per client from
// dir.
func LoadDirectory(dir string) (Directory, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("keydir: reading %s: %w", dir, err)
	}
	out := make(Directory)
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".pub") {
			continue
		}
		id := party.ID(strings.TrimSuffix(e.Name(), ".pub"))
		raw, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("keydir: reading %s: %w", e.Name(), err)
		}
		b, err := hex.DecodeString(strings.TrimSpace(string(raw)))
		if err != nil {
			return nil, fmt.Errorf("keydir: decoding %s: %w", e.Name(), err)
		}
		pk, err := secp256k1.ParsePubKey(b)
		if err != nil {
			return nil, fmt.Errorf("keydir: parsing %s: %w", e.Name(), err)
		}
		out[id] = pk
	}
	return out, nil
}

// LoadPrivate reads a client's own long-term private key from path.
func LoadPrivate(path string) (*secp256k1.PrivateKey, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("keydir: reading %s: %w", path, err)
	}
	b, err := hex.DecodeString(strings.TrimSpace(string(raw)))
	if err != nil {
		return nil, fmt.Errorf("keydir: decoding %s: %w", path, err)
	}
	if len(b) != 32 {
		return nil, fmt.Errorf("keydir: %s: private key must be 32 bytes", path)
	}
	return secp256k1.PrivKeyFromBytes(b), nil
}

// WriteKeyPair writes a freshly-generated long-term keypair to dir,
// named "<id>" (private) and "<id>.pub" (public). This is a dev/test
// helper standing in for the external trusted-authority service, not
// a production key-minting path.
func WriteKeyPair(dir string, id party.ID, sk *secp256k1.PrivateKey) error {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("keydir: creating %s: %w", dir, err)
	}
	privPath := filepath.Join(dir, string(id))
	pubPath := filepath.Join(dir, string(id)+".pub")
	if err := os.WriteFile(privPath, []byte(hex.EncodeToString(sk.Serialize())), 0o600); err != nil {
		return fmt.Errorf("keydir: writing %s: %w", privPath, err)
	}
	pub := sk.PubKey().SerializeCompressed()
	if err := os.WriteFile(pubPath, []byte(hex.EncodeToString(pub)), 0o644); err != nil {
		return fmt.Errorf("keydir: writing %s: %w", pubPath, err)
	}
	return nil
}
