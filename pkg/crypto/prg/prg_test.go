package prg

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExpandIsDeterministic(t *testing.T) {
	a := Expand(12345, 8)
	b := Expand(12345, 8)
	assert.Equal(t, a, b)
}

func TestExpandDiffersBySeed(t *testing.T) {
	a := Expand(1, 8)
	b := Expand(2, 8)
	assert.NotEqual(t, a, b)
}

func TestExpandElementsDoNotRepeat(t *testing.T) {
	// Regression guard for the resolved Open Question (see DESIGN.md):
	// the stream must advance per element instead of reseeding from the
	// same 32-bit seed every slice, which would make every element in
	// the vector identical.
	out := Expand(42, 16)
	seen := make(map[float64]int)
	for _, v := range out {
		seen[v]++
	}
	assert.Greater(t, len(seen), 1, "every element came out identical")
}

func TestExpandProducesUnitInterval(t *testing.T) {
	out := Expand(7, 100)
	for _, v := range out {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.Less(t, v, 1.0)
	}
}

func TestExpandRespectsShape(t *testing.T) {
	out := Expand(1, 0)
	assert.Empty(t, out)

	out = Expand(1, 5)
	assert.Len(t, out, 5)
}
