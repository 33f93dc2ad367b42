//go:build linux

package sensor

import (
	"fmt"

	"github.com/ja7ad/coregov/pkg/numeric"
	"github.com/ja7ad/coregov/pkg/system/rapl"
)

// CPUPower derives watts from the cumulative RAPL energy counters: power
// is the microjoule delta divided by the elapsed microseconds. The first
// sample has no baseline and measures against zero. When the kernel
// counter wraps the delta goes negative; that is published as-is, the
// wrap semantics are deliberately left uncorrected.
type CPUPower struct {
	base
	energyFiles []string
	energyCtr   float64
}

// NewCPUPower selects the energy domain at construction: the core domain
// when the platform exposes one, both package domains otherwise.
func NewCPUPower(name string) (*CPUPower, error) {
	files, err := rapl.CPUEnergyFiles()
	if err != nil {
		return nil, fmt.Errorf("sensor %s: %w", name, err)
	}
	return &CPUPower{base: newBase(name), energyFiles: files}, nil
}

func (s *CPUPower) Acquire() (numeric.Vector, error) {
	dt := s.rotate()
	total, err := rapl.ReadEnergy(s.energyFiles)
	if err != nil {
		return nil, fmt.Errorf("sensor %s: %w", s.name, err)
	}
	deltaEnergy := total - s.energyCtr
	s.energyCtr = total

	us := float64(dt.Microseconds())
	if us > 0 {
		s.values.Set(0, deltaEnergy/us)
	} else {
		s.values.Set(0, 0)
	}
	return s.values.Clone(), nil
}

// DRAMPower is CPUPower's sibling for the DRAM energy domain, a single
// fixed counter file.
type DRAMPower struct {
	base
	energyFile string
	energyCtr  float64
}

// NewDRAMPower probes the DRAM energy counter once; a machine without
// the DRAM domain cannot host this sensor and the constructor fails.
func NewDRAMPower(name string) (*DRAMPower, error) {
	file := rapl.DRAMEnergyFile()
	if _, err := rapl.ReadEnergy([]string{file}); err != nil {
		return nil, fmt.Errorf("sensor %s: %w", name, err)
	}
	return &DRAMPower{base: newBase(name), energyFile: file}, nil
}

func (s *DRAMPower) Acquire() (numeric.Vector, error) {
	dt := s.rotate()
	total, err := rapl.ReadEnergy([]string{s.energyFile})
	if err != nil {
		return nil, fmt.Errorf("sensor %s: %w", s.name, err)
	}
	deltaEnergy := total - s.energyCtr
	s.energyCtr = total

	us := float64(dt.Microseconds())
	if us > 0 {
		s.values.Set(0, deltaEnergy/us)
	} else {
		s.values.Set(0, 0)
	}
	return s.values.Clone(), nil
}
