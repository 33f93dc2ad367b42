package controller

import "errors"

var (
	// ErrDimension indicates coefficient matrices, scale vectors or
	// channel lists whose shapes disagree. Always reported at load or
	// construction time, never during a control cycle.
	ErrDimension = errors.New("controller: dimension mismatch")
)
