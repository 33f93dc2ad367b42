// Package controller implements the sample -> compute -> publish cycle
// that drives actuation values toward externally supplied targets. The
// base variant is a pass-through; the state-space variant applies a
// discrete-time linear control law with persistent internal state.
package controller

import (
	"fmt"

	"github.com/ja7ad/coregov/pkg/numeric"
	"github.com/ja7ad/coregov/pkg/port"
)

// Controller runs one control cycle per sampling tick.
type Controller interface {
	Name() string
	Run() error
}

// core holds the registry wiring shared by all variants: where the
// current inputs, measured outputs and targets come from, where the new
// inputs go, and how often the computation actually runs.
type core struct {
	name     string
	reg      *port.Registry
	inputCh  []string
	outputCh []string
	targetCh []string
	newInCh  []string

	samplingInterval uint32
	cycles           uint32
}

func newCore(name string, reg *port.Registry, inputCh, outputCh, targetCh, newInCh []string, samplingInterval uint32) (core, error) {
	if samplingInterval == 0 {
		samplingInterval = 1
	}
	if len(newInCh) != len(inputCh) {
		return core{}, fmt.Errorf("controller %s: %d input vs %d new-input channels: %w",
			name, len(inputCh), len(newInCh), ErrDimension)
	}
	if len(targetCh) != len(outputCh) {
		return core{}, fmt.Errorf("controller %s: %d output vs %d target channels: %w",
			name, len(outputCh), len(targetCh), ErrDimension)
	}
	return core{
		name:             name,
		reg:              reg,
		inputCh:          inputCh,
		outputCh:         outputCh,
		targetCh:         targetCh,
		newInCh:          newInCh,
		samplingInterval: samplingInterval,
		// first Run always computes
		cycles: samplingInterval,
	}, nil
}

func (c *core) Name() string { return c.name }

// gate advances the cycle counter and reports whether this cycle should
// compute rather than pass through.
func (c *core) gate() bool {
	if c.cycles == c.samplingInterval {
		c.cycles = 1
		return true
	}
	c.cycles++
	return false
}

func (c *core) currentInputs() (numeric.Vector, error) {
	return c.reg.Read(c.inputCh)
}

func (c *core) publishNewInputs(v numeric.Vector) error {
	return c.reg.Publish(c.newInCh, v)
}

// PassThrough is the base controller: it republishes the current inputs
// untouched every cycle. Useful as a placeholder while characterizing a
// system.
type PassThrough struct {
	core
}

func NewPassThrough(name string, reg *port.Registry, inputCh, newInCh []string, samplingInterval uint32) (*PassThrough, error) {
	c, err := newCore(name, reg, inputCh, nil, nil, newInCh, samplingInterval)
	if err != nil {
		return nil, err
	}
	return &PassThrough{core: c}, nil
}

func (p *PassThrough) Run() error {
	p.gate()
	in, err := p.currentInputs()
	if err != nil {
		return err
	}
	return p.publishNewInputs(in)
}
