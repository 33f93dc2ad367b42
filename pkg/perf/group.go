//go:build linux

// Package perf manages groups of Linux performance counters. A group is an
// ordered list of events sharing one enable/disable/read lifecycle: the
// first event that opens successfully is the leader, every later event is
// chained to its descriptor. Events the kernel rejects as unsupported are
// tolerated and read as zero; every other failure is reported to the
// caller.
package perf

import (
	"errors"
	"fmt"

	"github.com/ja7ad/coregov/pkg/numeric"
	"github.com/ja7ad/coregov/pkg/system/util"
)

// Group owns the descriptors of one counter group on one CPU. Descriptors
// are exclusively owned: Disable closes them, and a unit that comes back
// online gets a brand-new Group with a zero baseline rather than this one.
type Group struct {
	cpu     int
	handles []handle // nil entry = unsupported slot
	curr    []uint64
	prev    []uint64
	closed  bool
}

// NewGroup opens one descriptor per (type, config) pair on the given CPU.
// The two lists must have equal length; a mismatch is reported before any
// syscall. An unsupported event leaves a permanently-zero slot, any other
// open failure closes whatever was opened so far and is returned.
func NewGroup(cpu int, types []uint32, configs []uint64) (*Group, error) {
	if len(types) != len(configs) {
		return nil, fmt.Errorf("perf: %d types vs %d configs: %w", len(types), len(configs), ErrConfigMismatch)
	}
	g := &Group{
		cpu:     cpu,
		handles: make([]handle, len(types)),
		curr:    make([]uint64, len(types)),
		prev:    make([]uint64, len(types)),
	}
	leaderFD := -1
	for i := range types {
		h, err := openHandle(cpu, types[i], configs[i], leaderFD)
		if err != nil {
			if errors.Is(err, ErrUnsupported) {
				// Slot stays zero for the lifetime of the group; the
				// siblings are unaffected.
				continue
			}
			g.closeAll()
			return nil, err
		}
		g.handles[i] = h
		if leaderFD == -1 {
			leaderFD = h.FD()
		}
	}
	return g, nil
}

// Len returns the number of configured events, supported or not.
func (g *Group) Len() int { return len(g.handles) }

// Enable zeroes the hardware counters and starts them. Used on first
// activation so deltas begin from a clean baseline.
func (g *Group) Enable() error {
	if g.closed {
		return ErrClosed
	}
	for i, h := range g.handles {
		if h == nil {
			continue
		}
		if err := h.Reset(); err != nil {
			return fmt.Errorf("perf: reset event %d on cpu %d: %w", i, g.cpu, err)
		}
		if err := h.Enable(); err != nil {
			return fmt.Errorf("perf: enable event %d on cpu %d: %w", i, g.cpu, err)
		}
	}
	return nil
}

// Reenable starts the counters without resetting them, preserving the
// cumulative counts across a pause.
func (g *Group) Reenable() error {
	if g.closed {
		return ErrClosed
	}
	for i, h := range g.handles {
		if h == nil {
			continue
		}
		if err := h.Enable(); err != nil {
			return fmt.Errorf("perf: reenable event %d on cpu %d: %w", i, g.cpu, err)
		}
	}
	return nil
}

// Disable stops the counters, releases every descriptor and zeroes all
// values. The group cannot be used afterwards.
func (g *Group) Disable() error {
	if g.closed {
		return nil
	}
	var firstErr error
	for i, h := range g.handles {
		if h == nil {
			continue
		}
		if err := h.Disable(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("perf: disable event %d on cpu %d: %w", i, g.cpu, err)
		}
		if err := h.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("perf: close event %d on cpu %d: %w", i, g.cpu, err)
		}
		g.handles[i] = nil
		g.curr[i] = 0
		g.prev[i] = 0
	}
	g.closed = true
	return firstErr
}

func (g *Group) closeAll() {
	for i, h := range g.handles {
		if h != nil {
			_ = h.Close()
			g.handles[i] = nil
		}
	}
	g.closed = true
}

// Update snapshots the current values into the previous ones, then reads
// every supported descriptor. A failed or short read on a descriptor that
// was created successfully signals an OS-level inconsistency and is
// returned without retry.
func (g *Group) Update() error {
	if g.closed {
		return ErrClosed
	}
	copy(g.prev, g.curr)
	for i, h := range g.handles {
		if h == nil {
			g.curr[i] = 0
			continue
		}
		v, err := h.Read()
		if err != nil {
			return fmt.Errorf("perf: update event %d on cpu %d: %w", i, g.cpu, err)
		}
		g.curr[i] = v
	}
	return nil
}

// Delta returns current minus previous values, elementwise. Unsupported
// slots are always zero, and a wrapped counter reads as zero progress.
func (g *Group) Delta() numeric.Vector {
	d := make(numeric.Vector, len(g.curr))
	for i := range g.curr {
		d[i] = float64(util.DeltaU64(g.curr[i], g.prev[i]))
	}
	return d
}

// Values returns the current cumulative values.
func (g *Group) Values() numeric.Vector {
	return numeric.FromUint64(g.curr)
}

// Raw returns the current cumulative value of one event.
func (g *Group) Raw(i int) float64 {
	return float64(g.curr[i])
}
