package numeric

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Matrix is a rectangular float64 grid with dimensions fixed at
// construction. Multiplication against mismatched shapes panics, the same
// contract as Vector arithmetic.
type Matrix struct {
	d *mat.Dense
}

// NewMatrix returns an r x c zero matrix.
func NewMatrix(r, c int) Matrix {
	return Matrix{d: mat.NewDense(r, c, nil)}
}

// MatrixFrom builds an r x c matrix from row-major data. len(data) must
// equal r*c.
func MatrixFrom(r, c int, data []float64) Matrix {
	if len(data) != r*c {
		panic(fmt.Sprintf("numeric: %dx%d matrix from %d values", r, c, len(data)))
	}
	return Matrix{d: mat.NewDense(r, c, data)}
}

// Identity returns the n x n identity matrix.
func Identity(n int) Matrix {
	m := NewMatrix(n, n)
	for i := 0; i < n; i++ {
		m.d.Set(i, i, 1)
	}
	return m
}

// Rows returns the row count.
func (m Matrix) Rows() int {
	r, _ := m.d.Dims()
	return r
}

// Cols returns the column count.
func (m Matrix) Cols() int {
	_, c := m.d.Dims()
	return c
}

// At returns the element at row i, column j.
func (m Matrix) At(i, j int) float64 { return m.d.At(i, j) }

// Set assigns the element at row i, column j.
func (m Matrix) Set(i, j int, v float64) { m.d.Set(i, j, v) }

// IsZero reports whether every element is exactly zero.
func (m Matrix) IsZero() bool {
	r, c := m.d.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if m.d.At(i, j) != 0 {
				return false
			}
		}
	}
	return true
}

// MulVec returns m * v.
func (m Matrix) MulVec(v Vector) Vector {
	r, c := m.d.Dims()
	if c != v.Len() {
		panic(fmt.Sprintf("numeric: %dx%d matrix times length-%d vector", r, c, v.Len()))
	}
	var out mat.VecDense
	out.MulVec(m.d, mat.NewVecDense(v.Len(), v))
	res := make(Vector, r)
	for i := range res {
		res[i] = out.AtVec(i)
	}
	return res
}

// Mul returns m * n.
func (m Matrix) Mul(n Matrix) Matrix {
	var out mat.Dense
	out.Mul(m.d, n.d)
	return Matrix{d: &out}
}
