package controller

import (
	"fmt"

	"github.com/ja7ad/coregov/pkg/numeric"
	"github.com/ja7ad/coregov/pkg/port"
)

// StateSpace is the discrete-time linear controller. Per active cycle:
//
//	error     = (target - output) .* outputScale
//	state'    = A*state + B*error
//	delta     = C*state (+ D*error when D is non-zero)
//	new input = input + delta .* inputScale
//
// delta is computed from the pre-update state; state' is committed
// afterwards. The state vector is the controller's only memory and
// accumulates across cycles.
type StateSpace struct {
	core

	coeff Coefficients
	state numeric.Vector
	dUsed bool
}

// NewStateSpace wires a state-space controller to its registry channels.
// The channel widths must agree with the coefficient shapes; a mismatch
// is an immediate construction error so it can never surface mid-cycle.
func NewStateSpace(name string, reg *port.Registry, inputCh, outputCh, targetCh, newInCh []string, coeff Coefficients, samplingInterval uint32) (*StateSpace, error) {
	c, err := newCore(name, reg, inputCh, outputCh, targetCh, newInCh, samplingInterval)
	if err != nil {
		return nil, err
	}
	if len(inputCh) != coeff.NumInputs {
		return nil, fmt.Errorf("controller %s: %d input channels for %d model inputs: %w",
			name, len(inputCh), coeff.NumInputs, ErrDimension)
	}
	if len(outputCh) != coeff.NumMeasurements {
		return nil, fmt.Errorf("controller %s: %d output channels for %d model measurements: %w",
			name, len(outputCh), coeff.NumMeasurements, ErrDimension)
	}
	return &StateSpace{
		core:  c,
		coeff: coeff,
		state: numeric.NewVector(coeff.Dimension),
		dUsed: !coeff.D.IsZero(),
	}, nil
}

// State returns a copy of the internal state vector, for inspection.
func (s *StateSpace) State() numeric.Vector { return s.state.Clone() }

// Reset zeroes the internal state.
func (s *StateSpace) Reset() { s.state.Fill(0) }

func (s *StateSpace) Run() error {
	in, err := s.currentInputs()
	if err != nil {
		return err
	}
	if !s.gate() {
		return s.publishNewInputs(in)
	}

	targets, err := s.reg.Read(s.targetCh)
	if err != nil {
		return err
	}
	outputs, err := s.reg.Read(s.outputCh)
	if err != nil {
		return err
	}

	errVec := targets.Sub(outputs).MulElem(s.coeff.OutputScale)
	newState := s.coeff.A.MulVec(s.state).Add(s.coeff.B.MulVec(errVec))
	delta := s.coeff.C.MulVec(s.state)
	if s.dUsed {
		delta = delta.Add(s.coeff.D.MulVec(errVec))
	}
	newIn := in.Add(delta.MulElem(s.coeff.InputScale))
	s.state = newState

	return s.publishNewInputs(newIn)
}
