package numeric

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/floats"
)

// Vector is an ordered sequence of float64 values with value semantics:
// Clone copies all elements, and the arithmetic methods return fresh
// vectors instead of mutating their receivers. The length is fixed once
// constructed; combining vectors of different lengths is a contract
// violation and panics.
type Vector []float64

// NewVector returns a zero-filled vector of length n.
func NewVector(n int) Vector {
	return make(Vector, n)
}

// VectorOf wraps the given values in a Vector without copying.
func VectorOf(vals ...float64) Vector {
	return Vector(vals)
}

// FromUint64 converts raw counter values to a Vector.
func FromUint64(vals []uint64) Vector {
	v := make(Vector, len(vals))
	for i, u := range vals {
		v[i] = float64(u)
	}
	return v
}

// Len returns the number of elements.
func (v Vector) Len() int { return len(v) }

// At returns the element at index i.
func (v Vector) At(i int) float64 { return v[i] }

// Set assigns the element at index i.
func (v Vector) Set(i int, val float64) { v[i] = val }

// Clone returns a copy sharing no storage with v.
func (v Vector) Clone() Vector {
	out := make(Vector, len(v))
	copy(out, v)
	return out
}

// Fill sets every element to val.
func (v Vector) Fill(val float64) {
	for i := range v {
		v[i] = val
	}
}

func (v Vector) sameLen(w Vector, op string) {
	if len(v) != len(w) {
		panic(fmt.Sprintf("numeric: %s of vectors with lengths %d and %d", op, len(v), len(w)))
	}
}

// Add returns v + w elementwise.
func (v Vector) Add(w Vector) Vector {
	v.sameLen(w, "add")
	out := v.Clone()
	floats.Add(out, w)
	return out
}

// Sub returns v - w elementwise.
func (v Vector) Sub(w Vector) Vector {
	v.sameLen(w, "sub")
	out := v.Clone()
	floats.Sub(out, w)
	return out
}

// MulElem returns the elementwise product of v and w.
func (v Vector) MulElem(w Vector) Vector {
	v.sameLen(w, "mul")
	out := v.Clone()
	floats.Mul(out, w)
	return out
}

// Scale returns v with every element multiplied by c.
func (v Vector) Scale(c float64) Vector {
	out := v.Clone()
	floats.Scale(c, out)
	return out
}

// Append returns a new vector holding v followed by w.
func (v Vector) Append(w Vector) Vector {
	out := make(Vector, 0, len(v)+len(w))
	out = append(out, v...)
	out = append(out, w...)
	return out
}

// String formats the vector as space separated values, mainly for logs.
func (v Vector) String() string {
	var b strings.Builder
	b.WriteByte('[')
	for i, x := range v {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%g", x)
	}
	b.WriteByte(']')
	return b.String()
}
