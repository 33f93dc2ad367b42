//go:build linux

// Package sensor implements the telemetry acquisition variants: wall
// clock, CPU/DRAM power, CPU temperature, and single/multi core
// performance counters. Every sensor declares a fixed output width at
// construction and produces exactly that many values per acquisition.
package sensor

import (
	"time"

	"github.com/ja7ad/coregov/pkg/numeric"
)

// now is the sampling clock, swapped in tests for deterministic elapsed
// times.
var now = time.Now

// Sensor is the acquisition capability. Acquire rotates the previous
// values, performs device-specific sampling and returns a vector whose
// length always equals Width.
type Sensor interface {
	Name() string
	Width() int
	// Channels returns the ordered names of the published values, one
	// per output slot.
	Channels() []string
	Acquire() (numeric.Vector, error)
}

// Closer is implemented by sensors that own OS resources (counter
// descriptors) and must release them on shutdown.
type Closer interface {
	Close() error
}

// MeasureLatency times a single Acquire call. It exists to validate
// offline that every sensor fits inside the sampling budget.
func MeasureLatency(s Sensor) (time.Duration, error) {
	start := time.Now()
	_, err := s.Acquire()
	return time.Since(start), err
}

// base carries the bookkeeping every variant shares: naming, the declared
// channels, current/previous values and sample timestamps.
type base struct {
	name       string
	channels   []string
	values     numeric.Vector
	prevValues numeric.Vector
	sampleTime time.Time
	prevSample time.Time
}

func newBase(name string, channels ...string) base {
	if len(channels) == 0 {
		channels = []string{name}
	}
	t := now()
	return base{
		name:       name,
		channels:   channels,
		values:     numeric.NewVector(len(channels)),
		prevValues: numeric.NewVector(len(channels)),
		sampleTime: t,
		prevSample: t,
	}
}

func (b *base) Name() string       { return b.name }
func (b *base) Width() int         { return len(b.channels) }
func (b *base) Channels() []string { return b.channels }

// rotate snapshots the current values and advances the sample timestamps,
// returning the elapsed time since the previous sample.
func (b *base) rotate() time.Duration {
	b.prevValues = b.values.Clone()
	b.prevSample = b.sampleTime
	b.sampleTime = now()
	return b.sampleTime.Sub(b.prevSample)
}
