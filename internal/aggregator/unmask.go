package aggregator

import (
	"encoding/binary"
	"fmt"

	"github.com/chenjunbao/secureagg/pkg/crypto/curvegroup"
	"github.com/chenjunbao/secureagg/pkg/crypto/prg"
	"github.com/chenjunbao/secureagg/pkg/crypto/shamir"
	"github.com/chenjunbao/secureagg/pkg/crypto/transcript"
	"github.com/chenjunbao/secureagg/pkg/party"
	"github.com/chenjunbao/secureagg/pkg/vector"
)

// computeUnmask recovers the plaintext sum from the masked submissions
// collected in phase 3, using the private-key and seed shares collected
// in phase 5 (spec §4.3 step 3, §4.4 steps 1-3):
//
//	Σx_u = Y - Σ_{u in U3} p_u + Σ_{u in U3, v in U2\U3} (±p_{u,v})
//
// where Y is the sum of every surviving masked submission (one per
// member of U3, the set that submitted a masked input in phase 3), p_u
// is the self-mask derived from u's seed, and p_{u,v} is the pairwise
// mask u shared with a peer v that never made it into U3. U4, the
// consistency-confirmed subset of U3, contributes the shares needed to
// do this reconstruction but is not itself the survivor set: a member
// of U3\U4 still contributed y_u to Y and still needs its self-mask
// removed, even though it dropped before its own consistency ack was
// confirmed.
func computeUnmask(shapeSize int, rc *roundCtx) (vector.Vector, error) {
	maskedVecs := make([]vector.Vector, 0, len(rc.maskedY))
	for _, y := range rc.maskedY {
		maskedVecs = append(maskedVecs, y)
	}
	sum, err := vector.Sum(shapeSize, maskedVecs...)
	if err != nil {
		return nil, fmt.Errorf("unmask: summing masked submissions: %w", err)
	}

	for u := range rc.u3 {
		pu, err := reconstructSelfMask(rc, u, shapeSize)
		if err != nil {
			return nil, fmt.Errorf("unmask: self-mask for %s: %w", u, err)
		}
		sum.SubInPlace(pu)
	}

	dropped := make([]party.ID, 0)
	for v := range rc.u2 {
		if _, ok := rc.u3[v]; !ok {
			dropped = append(dropped, v)
		}
	}

	for _, v := range dropped {
		skV, err := reconstructPrivKey(rc, v)
		if err != nil {
			return nil, fmt.Errorf("unmask: private key for dropped %s: %w", v, err)
		}
		for u := range rc.u3 {
			pUV, err := pairwiseMask(rc, u, skV, shapeSize)
			if err != nil {
				return nil, fmt.Errorf("unmask: pairwise mask for (%s,%s): %w", u, v, err)
			}
			// u's original contribution to the masked sum carried sign
			// party.PairSign(u, v); adding the opposite sign here
			// cancels it out since v never contributed its own side of
			// the pair.
			sum.AddInPlace(scale(pUV, -party.PairSign(u, v)))
		}
	}

	return sum, nil
}

func reconstructSelfMask(rc *roundCtx, u party.ID, shapeSize int) (vector.Vector, error) {
	shares := rc.seedShares[u]
	if len(shares) == 0 {
		return nil, fmt.Errorf("no seed shares collected")
	}
	secret, err := shamir.Reconstruct(shares)
	if err != nil {
		return nil, err
	}
	seed := bytesToUint32(secret)
	return vector.Vector(prg.Expand(seed, shapeSize)), nil
}

func reconstructPrivKey(rc *roundCtx, v party.ID) (*curvegroup.KeyPair, error) {
	shares := rc.privKeyShares[v]
	if len(shares) == 0 {
		return nil, fmt.Errorf("no private-key shares collected")
	}
	secret, err := shamir.Reconstruct(shares)
	if err != nil {
		return nil, err
	}
	sk, err := curvegroup.UnmarshalPriv(padLeft(secret, 32))
	if err != nil {
		return nil, err
	}
	return &curvegroup.KeyPair{Priv: sk, Pub: sk.PubKey()}, nil
}

func pairwiseMask(rc *roundCtx, u party.ID, skV *curvegroup.KeyPair, shapeSize int) (vector.Vector, error) {
	bundle, ok := rc.keyDir[u]
	if !ok {
		return nil, fmt.Errorf("missing key bundle for %s", u)
	}
	pkU, err := curvegroup.UnmarshalPub(bundle.SPub)
	if err != nil {
		return nil, err
	}
	shared, err := curvegroup.Agree(skV.Priv, pkU)
	if err != nil {
		return nil, err
	}
	seed := transcript.Seed(shared)
	return vector.Vector(prg.Expand(seed, shapeSize)), nil
}

func bytesToUint32(b []byte) uint32 {
	padded := padLeft(b, 4)
	return binary.BigEndian.Uint32(padded[len(padded)-4:])
}

// padLeft zero-pads b on the left to n bytes, or truncates its most
// significant bytes if it is already longer than n.
func padLeft(b []byte, n int) []byte {
	if len(b) == n {
		return b
	}
	if len(b) > n {
		return b[len(b)-n:]
	}
	out := make([]byte, n)
	copy(out[n-len(b):], b)
	return out
}

func scale(v vector.Vector, sign int) vector.Vector {
	out := make(vector.Vector, len(v))
	for i, x := range v {
		out[i] = x * float64(sign)
	}
	return out
}
