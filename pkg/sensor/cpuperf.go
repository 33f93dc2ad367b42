//go:build linux

package sensor

import (
	"fmt"

	"github.com/ja7ad/coregov/pkg/numeric"
	"github.com/ja7ad/coregov/pkg/status"
	"github.com/ja7ad/coregov/pkg/system/util"
	"golang.org/x/sys/unix"
)

// The four counter groups every monitored unit carries: two hardware
// groups and two software groups. Group sizes are fixed; the 16 derived
// output channels below are computed from their aggregated deltas.
var (
	hwGroup0 = []uint64{
		unix.PERF_COUNT_HW_REF_CPU_CYCLES,
		unix.PERF_COUNT_HW_INSTRUCTIONS,
		unix.PERF_COUNT_HW_BRANCH_INSTRUCTIONS,
		unix.PERF_COUNT_HW_BRANCH_MISSES,
	}
	hwGroup1 = []uint64{
		unix.PERF_COUNT_HW_CACHE_REFERENCES,
		unix.PERF_COUNT_HW_CACHE_MISSES,
		unix.PERF_COUNT_HW_BUS_CYCLES,
	}
	swGroup2 = []uint64{
		unix.PERF_COUNT_SW_CPU_CLOCK,
		unix.PERF_COUNT_SW_TASK_CLOCK,
		unix.PERF_COUNT_SW_PAGE_FAULTS,
		unix.PERF_COUNT_SW_CPU_MIGRATIONS,
	}
	swGroup3 = []uint64{
		unix.PERF_COUNT_SW_CONTEXT_SWITCHES,
		unix.PERF_COUNT_SW_ALIGNMENT_FAULTS,
		unix.PERF_COUNT_SW_EMULATION_FAULTS,
	}
)

func cpuPerfChannels(name string) []string {
	suffixes := []string{
		"_CPUCycles", "_BIPS", "_BranchMisses", "_BranchMissPerc",
		"_LlcRefs", "_LlcMisses", "_LlcMissRate", "_BusCycles", "_BusCyclesPerc",
		"_SW_CPUClock", "_SW_TaskClock", "_SW_PageFaults", "_SW_CPUMigrations",
		"_SW_ContextSwitches", "_SW_AlignmentFaults", "_SW_EmulationFaults",
	}
	channels := make([]string, len(suffixes))
	for i, s := range suffixes {
		channels[i] = name + s
	}
	return channels
}

// CPUPerf monitors many units at once and publishes 16 aggregate metrics.
// Per cycle, every active unit's four groups are read and their deltas
// accumulated; inactive units are skipped entirely and contribute
// nothing.
type CPUPerf struct {
	base
	units  []int
	status *status.Status
	groups [][]counterGroup // len(units) x 4
	down   []bool
}

func newUnitGroups(unit int) ([]counterGroup, error) {
	specs := []struct {
		types   []uint32
		configs []uint64
	}{
		{hwTypes(len(hwGroup0)), hwGroup0},
		{hwTypes(len(hwGroup1)), hwGroup1},
		{swTypes(len(swGroup2)), swGroup2},
		{swTypes(len(swGroup3)), swGroup3},
	}
	groups := make([]counterGroup, 0, len(specs))
	for _, spec := range specs {
		g, err := newCounterGroup(unit, spec.types, spec.configs)
		if err != nil {
			for _, prev := range groups {
				_ = prev.Disable()
			}
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, nil
}

// NewCPUPerf creates and arms four counter groups per unit.
func NewCPUPerf(name string, units []int, st *status.Status) (*CPUPerf, error) {
	s := &CPUPerf{
		base:   newBase(name, cpuPerfChannels(name)...),
		units:  units,
		status: st,
		groups: make([][]counterGroup, len(units)),
		down:   make([]bool, len(units)),
	}
	for i, unit := range units {
		groups, err := newUnitGroups(unit)
		if err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("sensor %s: unit %d: %w", name, unit, err)
		}
		// assigned before arming so Close releases them on any failure
		s.groups[i] = groups
		for _, g := range groups {
			if err := g.Enable(); err != nil {
				_ = s.Close()
				return nil, fmt.Errorf("sensor %s: unit %d: %w", name, unit, err)
			}
		}
	}
	return s, nil
}

// Close releases every unit's counter groups.
func (s *CPUPerf) Close() error {
	var firstErr error
	for _, groups := range s.groups {
		for _, g := range groups {
			if g == nil {
				continue
			}
			if err := g.Disable(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (s *CPUPerf) shutdownUnit(i int) error {
	for _, g := range s.groups[i] {
		if err := g.Disable(); err != nil {
			return err
		}
	}
	s.down[i] = true
	return nil
}

func (s *CPUPerf) reactivateUnit(i int) error {
	groups, err := newUnitGroups(s.units[i])
	if err != nil {
		return fmt.Errorf("sensor %s: reactivate unit %d: %w", s.name, s.units[i], err)
	}
	for _, g := range groups {
		if err := g.Reenable(); err != nil {
			for _, g := range groups {
				_ = g.Disable()
			}
			return fmt.Errorf("sensor %s: reenable unit %d: %w", s.name, s.units[i], err)
		}
	}
	s.groups[i] = groups
	s.down[i] = false
	return nil
}

func (s *CPUPerf) Acquire() (numeric.Vector, error) {
	dt := s.rotate()

	agg := []numeric.Vector{
		numeric.NewVector(len(hwGroup0)),
		numeric.NewVector(len(hwGroup1)),
		numeric.NewVector(len(swGroup2)),
		numeric.NewVector(len(swGroup3)),
	}

	for i, unit := range s.units {
		if !s.status.IsActive(unit) {
			if !s.down[i] {
				if err := s.shutdownUnit(i); err != nil {
					return nil, fmt.Errorf("sensor %s: unit %d: %w", s.name, unit, err)
				}
			}
			continue
		}
		if s.down[i] {
			if err := s.reactivateUnit(i); err != nil {
				return nil, err
			}
		}
		for j, g := range s.groups[i] {
			if err := g.Update(); err != nil {
				return nil, fmt.Errorf("sensor %s: unit %d: %w", s.name, unit, err)
			}
			agg[j] = agg[j].Add(g.Delta())
		}
	}

	ns := float64(dt.Nanoseconds())

	// Hardware group 0
	s.values.Set(0, agg[0].At(0))                             // cycles
	s.values.Set(1, util.SafeDiv(agg[0].At(1), ns))           // BIPS
	s.values.Set(2, agg[0].At(3))                             // branch misses
	s.values.Set(3, util.SafeDiv(agg[0].At(3), agg[0].At(2))) // branch miss %
	// Hardware group 1
	s.values.Set(4, agg[1].At(0))                             // LLC refs
	s.values.Set(5, agg[1].At(1))                             // LLC misses
	s.values.Set(6, util.SafeDiv(agg[1].At(1), agg[1].At(0))) // LLC miss rate
	s.values.Set(7, agg[1].At(2))                             // bus cycles
	s.values.Set(8, util.SafeDiv(agg[1].At(2), agg[0].At(1))) // bus cycles / instructions
	// Software group 2
	s.values.Set(9, agg[2].At(0))
	s.values.Set(10, agg[2].At(1))
	s.values.Set(11, agg[2].At(2))
	s.values.Set(12, agg[2].At(3))
	// Software group 3
	s.values.Set(13, agg[3].At(0))
	s.values.Set(14, agg[3].At(1))
	s.values.Set(15, agg[3].At(2))

	return s.values.Clone(), nil
}
