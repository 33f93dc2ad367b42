//go:build linux

// Package status tracks the on/off state of compute units, e.g. the cores
// of a CPU. A single Status instance is shared by reference between the
// sampling loop (reader) and whatever policy flips units on and off
// (writer); access is synchronized so a sensor never observes a torn
// update.
package status

import (
	"fmt"
	"sync"

	"github.com/ja7ad/coregov/pkg/system/topology"
)

// Status is the authoritative active/inactive bitmap for a set of units.
// Sensors hold a shared *Status and must not mutate it.
type Status struct {
	mu       sync.RWMutex
	active   []bool
	nActive  int
	physical []int
}

// New returns a Status for total units, all initially inactive.
func New(total int) *Status {
	return &Status{active: make([]bool, total)}
}

// FromSystem enumerates the present CPUs and returns a Status with every
// unit active and the physical-core grouping resolved once. Enumeration
// failure is an unrecoverable startup error.
func FromSystem() (*Status, error) {
	n, err := topology.PresentCPUs()
	if err != nil {
		return nil, fmt.Errorf("status: enumerate units: %w", err)
	}
	s := New(n)
	for id := 0; id < n; id++ {
		s.SetActive(id, true)
	}
	phys, err := topology.PhysicalCores(s.UnitIDs())
	if err != nil {
		return nil, fmt.Errorf("status: physical grouping: %w", err)
	}
	s.physical = phys
	return s, nil
}

// IsActive reports whether the unit is currently active.
func (s *Status) IsActive(id int) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return id >= 0 && id < len(s.active) && s.active[id]
}

// SetActive flips one unit.
func (s *Status) SetActive(id int, on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id < 0 || id >= len(s.active) {
		return
	}
	if s.active[id] != on {
		s.active[id] = on
		if on {
			s.nActive++
		} else {
			s.nActive--
		}
	}
}

// SetAll replaces the whole bitmap in one step. len(on) must equal
// TotalCount; extra entries are ignored, missing entries leave the tail
// unchanged.
func (s *Status) SetAll(on []bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copy(s.active, on)
	s.nActive = 0
	for _, a := range s.active {
		if a {
			s.nActive++
		}
	}
}

// ActiveCount returns the number of active units.
func (s *Status) ActiveCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nActive
}

// TotalCount returns the number of units.
func (s *Status) TotalCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.active)
}

// UnitIDs returns the unit ids in ascending order.
func (s *Status) UnitIDs() []int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]int, len(s.active))
	for i := range ids {
		ids[i] = i
	}
	return ids
}

// PhysicalUnitIDs returns the physical-core grouping computed at
// construction, or nil when the Status was not built from the system.
func (s *Status) PhysicalUnitIDs() []int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]int, len(s.physical))
	copy(out, s.physical)
	return out
}

// Snapshot returns a copy of the bitmap, for logging and bulk decisions.
func (s *Status) Snapshot() []bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]bool, len(s.active))
	copy(out, s.active)
	return out
}
