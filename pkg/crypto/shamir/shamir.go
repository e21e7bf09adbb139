// Package shamir implements t-of-n Shamir secret sharing over a fixed
// prime field larger than any 256-bit secret, used to share each
// client's ephemeral DH scalar and private seed (spec §4.1, §4.3,
// §4.4).
//
// Uses the same Lagrange-interpolation approach as curve-scalar secret
// sharing, generalized from curve scalars to arbitrary byte strings,
// with saferith for the modular bignum arithmetic.
package shamir

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/cronokirby/saferith"
)

// fieldPrime is a 261-bit prime used as the modulus for all Shamir
// arithmetic. It must exceed 2^256 - 1: a secp256k1 scalar fills the
// full 256 bits, and a modulus of 256 bits or fewer would silently
// reduce some of those scalars mod p, making Reconstruct return
// sk mod p instead of sk. It is otherwise independent of the
// secp256k1 group order, since shares must round-trip an arbitrary
// byte string (a DH scalar or a 32-bit seed), not only a curve scalar.
const fieldPrimeHex = "1000000000000000000000000000000000000000000000000000000000000000df"

var fieldModulus = saferith.ModulusFromBytes(mustHex(fieldPrimeHex))

func mustHex(s string) []byte {
	b, err := hex.DecodeString(s)
	if err != nil {
		panic(err)
	}
	return b
}

// Share is one party's share of a secret. X is the 1-based share
// index (hex-encoded, per spec §4.1's printable-alphabet recommendation);
// Y is the polynomial's value at X.
type Share struct {
	X string
	Y string
}

// Split produces n shares of secret such that any t of them reconstruct
// it, and any t-1 leak nothing about it.
func Split(secret []byte, t, n int) ([]Share, error) {
	if t < 1 || n < t {
		return nil, fmt.Errorf("shamir: invalid threshold t=%d n=%d", t, n)
	}
	s := new(saferith.Nat).SetBytes(secret)
	s.Mod(s, fieldModulus)

	coeffs := make([]*saferith.Nat, t)
	coeffs[0] = s
	for i := 1; i < t; i++ {
		c, err := randomNat()
		if err != nil {
			return nil, err
		}
		coeffs[i] = c
	}

	shares := make([]Share, n)
	for i := 1; i <= n; i++ {
		x := new(saferith.Nat).SetUint64(uint64(i))
		y := evalPoly(coeffs, x)
		shares[i-1] = Share{
			X: hex.EncodeToString(x.Bytes()),
			Y: hex.EncodeToString(y.Bytes()),
		}
	}
	return shares, nil
}

// Reconstruct recovers the secret from at least t shares via Lagrange
// interpolation at x=0. Fewer than t shares return a value
// indistinguishable from junk (spec §8 "Threshold privacy").
func Reconstruct(shares []Share) ([]byte, error) {
	if len(shares) == 0 {
		return nil, errors.New("shamir: no shares")
	}
	xs := make([]*saferith.Nat, len(shares))
	ys := make([]*saferith.Nat, len(shares))
	for i, sh := range shares {
		xb, err := hex.DecodeString(sh.X)
		if err != nil {
			return nil, fmt.Errorf("shamir: bad share x: %w", err)
		}
		yb, err := hex.DecodeString(sh.Y)
		if err != nil {
			return nil, fmt.Errorf("shamir: bad share y: %w", err)
		}
		xs[i] = new(saferith.Nat).SetBytes(xb)
		ys[i] = new(saferith.Nat).SetBytes(yb)
	}

	acc := new(saferith.Nat).SetUint64(0)
	for i := range shares {
		coeff := lagrangeCoeffAtZero(xs, i)
		term := new(saferith.Nat).ModMul(ys[i], coeff, fieldModulus)
		acc = new(saferith.Nat).ModAdd(acc, term, fieldModulus)
	}
	return acc.Bytes(), nil
}

// lagrangeCoeffAtZero computes the i-th Lagrange basis coefficient
// evaluated at x=0: prod_{j!=i} (0 - x_j) / (x_i - x_j) (mod p).
func lagrangeCoeffAtZero(xs []*saferith.Nat, i int) *saferith.Nat {
	zero := new(saferith.Nat).SetUint64(0)
	num := new(saferith.Nat).SetUint64(1)
	den := new(saferith.Nat).SetUint64(1)
	for j, xj := range xs {
		if j == i {
			continue
		}
		negXj := new(saferith.Nat).ModSub(zero, xj, fieldModulus)
		num = new(saferith.Nat).ModMul(num, negXj, fieldModulus)

		diff := new(saferith.Nat).ModSub(xs[i], xj, fieldModulus)
		den = new(saferith.Nat).ModMul(den, diff, fieldModulus)
	}
	denInv := new(saferith.Nat).ModInverse(den, fieldModulus)
	return new(saferith.Nat).ModMul(num, denInv, fieldModulus)
}

func evalPoly(coeffs []*saferith.Nat, x *saferith.Nat) *saferith.Nat {
	acc := new(saferith.Nat).SetUint64(0)
	for i := len(coeffs) - 1; i >= 0; i-- {
		acc = new(saferith.Nat).ModMul(acc, x, fieldModulus)
		acc = new(saferith.Nat).ModAdd(acc, coeffs[i], fieldModulus)
	}
	return acc
}

func randomNat() (*saferith.Nat, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return nil, err
	}
	n := new(saferith.Nat).SetBytes(buf)
	n.Mod(n, fieldModulus)
	return n, nil
}
