package vector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddSub(t *testing.T) {
	a := Vector{1, 2, 3}
	b := Vector{0.5, 0.5, 0.5}

	assert.Equal(t, Vector{1.5, 2.5, 3.5}, a.Add(b))
	assert.Equal(t, Vector{0.5, 1.5, 2.5}, a.Sub(b))
}

func TestAddSubInPlace(t *testing.T) {
	a := Vector{1, 2, 3}
	a.AddInPlace(Vector{1, 1, 1})
	assert.Equal(t, Vector{2, 3, 4}, a)

	a.SubInPlace(Vector{2, 2, 2})
	assert.Equal(t, Vector{0, 1, 2}, a)
}

func TestSum(t *testing.T) {
	got, err := Sum(3, Vector{1, 1, 1}, Vector{2, 2, 2}, Vector{3, 3, 3})
	require.NoError(t, err)
	assert.Equal(t, Vector{6, 6, 6}, got)
}

func TestSumRejectsShapeMismatch(t *testing.T) {
	_, err := Sum(3, Vector{1, 1, 1}, Vector{1, 1})
	assert.Error(t, err)
}

func TestCloseTo(t *testing.T) {
	a := Vector{1.0, 2.0}
	b := Vector{1.0000001, 2.0000001}
	assert.True(t, a.CloseTo(b, 1e-4))
	assert.False(t, a.CloseTo(b, 1e-10))
	assert.False(t, a.CloseTo(Vector{1.0}, 1e-4), "length mismatch is never close")
}
