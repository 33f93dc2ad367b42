package controller

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ja7ad/coregov/pkg/numeric"
)

// Coefficients is the state-space model loaded from an external source,
// keyed by a directory and file prefix. Shapes:
//
//	A: dim x dim        B: dim x numMeasurements
//	C: numInputs x dim  D: numInputs x numMeasurements
//	InputScale: numInputs     OutputScale: numMeasurements
type Coefficients struct {
	Dimension       int
	NumInputs       int
	NumMeasurements int

	A, B, C, D  numeric.Matrix
	InputScale  numeric.Vector
	OutputScale numeric.Vector
}

// LoadCoefficients reads the coefficient file set <dir>/<file>_*.txt.
// Every shape disagreement is reported here; a loaded Coefficients value
// is internally consistent by construction.
func LoadCoefficients(dir, file string) (Coefficients, error) {
	prefix := filepath.Join(dir, file)

	dim, err := readInt(prefix + "_dimension.txt")
	if err != nil {
		return Coefficients{}, err
	}
	numInputs, err := readInt(prefix + "_numInputs.txt")
	if err != nil {
		return Coefficients{}, err
	}
	numMeas, err := readInt(prefix + "_numYmeas.txt")
	if err != nil {
		return Coefficients{}, err
	}
	if dim <= 0 || numInputs <= 0 || numMeas <= 0 {
		return Coefficients{}, fmt.Errorf("controller: %s: non-positive model size: %w", prefix, ErrDimension)
	}

	c := Coefficients{Dimension: dim, NumInputs: numInputs, NumMeasurements: numMeas}

	if c.A, err = readMatrix(prefix+"_A.txt", dim, dim); err != nil {
		return Coefficients{}, err
	}
	if c.B, err = readMatrix(prefix+"_B.txt", dim, numMeas); err != nil {
		return Coefficients{}, err
	}
	if c.C, err = readMatrix(prefix+"_C.txt", numInputs, dim); err != nil {
		return Coefficients{}, err
	}
	if c.D, err = readMatrix(prefix+"_D.txt", numInputs, numMeas); err != nil {
		return Coefficients{}, err
	}
	if c.InputScale, err = readVector(prefix+"_scaleInputsUp.txt", numInputs); err != nil {
		return Coefficients{}, err
	}
	if c.OutputScale, err = readVector(prefix+"_scaleYmeasDown.txt", numMeas); err != nil {
		return Coefficients{}, err
	}
	return c, nil
}

func readFloats(path string) ([]float64, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("controller: %w", err)
	}
	fields := strings.Fields(string(b))
	vals := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("controller: parse %s: %w", path, err)
		}
		vals[i] = v
	}
	return vals, nil
}

func readInt(path string) (int, error) {
	vals, err := readFloats(path)
	if err != nil {
		return 0, err
	}
	if len(vals) != 1 {
		return 0, fmt.Errorf("controller: %s holds %d values, want 1: %w", path, len(vals), ErrDimension)
	}
	return int(vals[0]), nil
}

func readMatrix(path string, r, c int) (numeric.Matrix, error) {
	vals, err := readFloats(path)
	if err != nil {
		return numeric.Matrix{}, err
	}
	if len(vals) != r*c {
		return numeric.Matrix{}, fmt.Errorf("controller: %s holds %d values, want %dx%d: %w",
			path, len(vals), r, c, ErrDimension)
	}
	return numeric.MatrixFrom(r, c, vals), nil
}

func readVector(path string, n int) (numeric.Vector, error) {
	vals, err := readFloats(path)
	if err != nil {
		return nil, err
	}
	if len(vals) != n {
		return nil, fmt.Errorf("controller: %s holds %d values, want %d: %w", path, len(vals), n, ErrDimension)
	}
	return numeric.Vector(vals), nil
}
