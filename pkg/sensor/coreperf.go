//go:build linux

package sensor

import (
	"fmt"

	"github.com/ja7ad/coregov/pkg/numeric"
	"github.com/ja7ad/coregov/pkg/perf"
	"github.com/ja7ad/coregov/pkg/status"
	"golang.org/x/sys/unix"
)

// counterGroup is the slice of pkg/perf the performance sensors need.
// Kept as an interface so the shutdown/reactivation machinery can be
// exercised without perf_event_open.
type counterGroup interface {
	Enable() error
	Reenable() error
	Disable() error
	Update() error
	Delta() numeric.Vector
	Raw(i int) float64
	Len() int
}

// newCounterGroup creates a live perf group. Swapped in tests.
var newCounterGroup = func(cpu int, types []uint32, configs []uint64) (counterGroup, error) {
	return perf.NewGroup(cpu, types, configs)
}

func hwTypes(n int) []uint32 {
	t := make([]uint32, n)
	for i := range t {
		t[i] = unix.PERF_TYPE_HARDWARE
	}
	return t
}

func swTypes(n int) []uint32 {
	t := make([]uint32, n)
	for i := range t {
		t[i] = unix.PERF_TYPE_SOFTWARE
	}
	return t
}

var (
	instEvents  = []uint64{unix.PERF_COUNT_HW_INSTRUCTIONS}
	cacheEvents = []uint64{
		unix.PERF_COUNT_HW_CACHE_REFERENCES,
		unix.PERF_COUNT_HW_CACHE_MISSES,
	}
)

// CorePerf monitors one compute unit, publishing BIPS (billions of
// instructions per second) and MPKI (cache misses per thousand
// instructions). It owns two counter groups and follows the unit's
// active flag: an inactive unit tears the groups down, a unit coming
// back online gets fresh descriptors and a zero baseline.
type CorePerf struct {
	base
	unit     int
	units    *status.Status
	inst     counterGroup
	cache    counterGroup
	shutDown bool
}

// NewCorePerf creates the instruction and cache groups for the unit and
// arms them. The caller must Close the sensor to release the descriptors.
func NewCorePerf(name string, unit int, units *status.Status) (*CorePerf, error) {
	s := &CorePerf{
		base: newBase(name,
			fmt.Sprintf("%s%d_BIPS", name, unit),
			fmt.Sprintf("%s%d_MPKI", name, unit)),
		unit:  unit,
		units: units,
	}
	var err error
	if s.inst, err = newCounterGroup(unit, hwTypes(1), instEvents); err != nil {
		return nil, fmt.Errorf("sensor %s: instruction group: %w", name, err)
	}
	if s.cache, err = newCounterGroup(unit, hwTypes(2), cacheEvents); err != nil {
		_ = s.inst.Disable()
		return nil, fmt.Errorf("sensor %s: cache group: %w", name, err)
	}
	if err := s.inst.Enable(); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("sensor %s: %w", name, err)
	}
	if err := s.cache.Enable(); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("sensor %s: %w", name, err)
	}
	return s, nil
}

// Close releases both counter groups.
func (s *CorePerf) Close() error {
	err := s.inst.Disable()
	if e := s.cache.Disable(); err == nil {
		err = e
	}
	return err
}

func (s *CorePerf) shutdown() error {
	if err := s.Close(); err != nil {
		return err
	}
	s.shutDown = true
	return nil
}

// reactivate builds fresh groups. Disable closed the old descriptors, so
// the new ones start counting from zero: the next delta never straddles
// the shutdown boundary.
func (s *CorePerf) reactivate() error {
	var err error
	if s.inst, err = newCounterGroup(s.unit, hwTypes(1), instEvents); err != nil {
		return fmt.Errorf("sensor %s: reactivate instruction group: %w", s.name, err)
	}
	if s.cache, err = newCounterGroup(s.unit, hwTypes(2), cacheEvents); err != nil {
		_ = s.inst.Disable()
		return fmt.Errorf("sensor %s: reactivate cache group: %w", s.name, err)
	}
	if err := s.inst.Reenable(); err != nil {
		_ = s.Close()
		return fmt.Errorf("sensor %s: reenable: %w", s.name, err)
	}
	if err := s.cache.Reenable(); err != nil {
		_ = s.Close()
		return fmt.Errorf("sensor %s: reenable: %w", s.name, err)
	}
	// timing restarts at the reactivation instant
	s.sampleTime = now()
	s.prevSample = s.sampleTime
	s.shutDown = false
	return nil
}

func (s *CorePerf) Acquire() (numeric.Vector, error) {
	dt := s.rotate()
	var bips, mpki float64

	active := s.units.IsActive(s.unit)
	switch {
	case !active && !s.shutDown:
		if err := s.shutdown(); err != nil {
			return nil, err
		}
	case active && s.shutDown:
		if err := s.reactivate(); err != nil {
			return nil, err
		}
	case active:
		if err := s.inst.Update(); err != nil {
			return nil, fmt.Errorf("sensor %s: %w", s.name, err)
		}
		if err := s.cache.Update(); err != nil {
			return nil, fmt.Errorf("sensor %s: %w", s.name, err)
		}
		dInst := s.inst.Delta()
		dCache := s.cache.Delta()
		ns := float64(dt.Nanoseconds())
		if ns > 0 {
			// instructions per nanosecond == billions per second
			bips = dInst.At(0) / ns
		}
		if dInst.At(0) > 0 {
			mpki = dCache.At(1) * 1000.0 / dInst.At(0)
		}
	}

	s.values.Set(0, bips)
	s.values.Set(1, mpki)
	return s.values.Clone(), nil
}
