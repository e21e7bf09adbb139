// Package vector implements fixed-shape float64 vector arithmetic for
// masked gradient updates (spec §3 "Masked input").
package vector

import "fmt"

// Vector is a flat, fixed-length float64 tensor. The protocol never
// needs multi-dimensional indexing, only component-wise add/subtract
// and equality up to rounding, so a flat shape is sufficient.
type Vector []float64

// Zero returns a vector of the given shape with every component 0.
func Zero(shape int) Vector {
	return make(Vector, shape)
}

// Add returns v + other, component-wise.
func (v Vector) Add(other Vector) Vector {
	out := make(Vector, len(v))
	for i := range v {
		out[i] = v[i] + other[i]
	}
	return out
}

// Sub returns v - other, component-wise.
func (v Vector) Sub(other Vector) Vector {
	out := make(Vector, len(v))
	for i := range v {
		out[i] = v[i] - other[i]
	}
	return out
}

// AddInPlace adds other into v.
func (v Vector) AddInPlace(other Vector) {
	for i := range v {
		v[i] += other[i]
	}
}

// SubInPlace subtracts other from v.
func (v Vector) SubInPlace(other Vector) {
	for i := range v {
		v[i] -= other[i]
	}
}

// Sum adds up a list of same-shape vectors.
func Sum(shape int, vs ...Vector) (Vector, error) {
	out := Zero(shape)
	for _, v := range vs {
		if len(v) != shape {
			return nil, fmt.Errorf("vector: shape mismatch: want %d, got %d", shape, len(v))
		}
		out.AddInPlace(v)
	}
	return out, nil
}

// CloseTo reports whether v and other match within eps component-wise
// (spec §8 "up to float rounding").
func (v Vector) CloseTo(other Vector, eps float64) bool {
	if len(v) != len(other) {
		return false
	}
	for i := range v {
		d := v[i] - other[i]
		if d < 0 {
			d = -d
		}
		if d >= eps {
			return false
		}
	}
	return true
}
