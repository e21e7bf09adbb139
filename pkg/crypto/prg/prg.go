// Package prg expands a fixed-width seed into a deterministic vector
// of floats in [0, 1) (spec §4.1 "PRG-to-vector expansion").
//
// The source protocol reseeds an integer RNG from the shared key
// before drawing each 32-bit seed but never advances the RNG state
// between slices of the same vector, so every slice ends up identical
// (spec §9, Open Question). secureagg resolves that Open Question in
// favor of a correctly-advancing stream: every element consumes fresh
// output from the same keyed blake3 XOF instead of restarting it, so
// two different seeds still never collide but a single seed no longer
// repeats itself across the vector. See DESIGN.md.
package prg

import (
	"encoding/binary"

	"github.com/zeebo/blake3"
)

// Expand derives a deterministic []float64 of length shape from seed.
// Two callers with the same seed and shape always get the same vector.
func Expand(seed uint32, shape int) []float64 {
	var seedBytes [4]byte
	binary.BigEndian.PutUint32(seedBytes[:], seed)

	h := blake3.New()
	h.Write(seedBytes[:])
	digest := h.Sum(nil)

	xof := blake3.NewDeriveKey("secureagg/prg/vector-expansion")
	xof.Write(digest)
	reader := xof.Digest()

	out := make([]float64, shape)
	buf := make([]byte, 8)
	for i := range out {
		if _, err := reader.Read(buf); err != nil {
			panic(err) // blake3's XOF reader never returns an error
		}
		out[i] = uint64ToUnitFloat(binary.BigEndian.Uint64(buf))
	}
	return out
}

// uint64ToUnitFloat maps a uniformly random uint64 to [0, 1).
func uint64ToUnitFloat(x uint64) float64 {
	// Use the top 53 bits, the mantissa width of a float64, so every
	// output value is uniformly representable.
	return float64(x>>11) / float64(uint64(1)<<53)
}
