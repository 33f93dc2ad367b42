//go:build linux

// Package rapl reads the kernel powercap energy accounting files. The
// counters are cumulative microjoules and wrap at a platform-defined
// maximum; wraparound is not corrected here, callers see the negative
// delta (the intended semantics at wrap are unspecified upstream).
package rapl

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Root is the powercap tree. Overridable in tests.
var Root = "/sys/class/powercap/intel-rapl"

const energyFile = "energy_uj"

// Zone paths relative to Root.
const (
	coreZone = "intel-rapl:0/intel-rapl:0:0"
	pkgZone0 = "intel-rapl:0"
	pkgZone1 = "intel-rapl:1"
	dramZone = "intel-rapl:0/intel-rapl:0:1"
)

// CPUEnergyFiles selects the energy files for CPU power accounting. The
// core zone's name file decides: a "core" domain yields that single file,
// anything else falls back to both package zones.
func CPUEnergyFiles() ([]string, error) {
	namePath := filepath.Join(Root, coreZone, "name")
	b, err := os.ReadFile(namePath)
	if err != nil {
		return nil, fmt.Errorf("rapl: read %s: %w", namePath, err)
	}
	if strings.Contains(strings.TrimSpace(string(b)), "core") {
		return []string{filepath.Join(Root, coreZone, energyFile)}, nil
	}
	return []string{
		filepath.Join(Root, pkgZone0, energyFile),
		filepath.Join(Root, pkgZone1, energyFile),
	}, nil
}

// DRAMEnergyFile returns the DRAM domain's energy file.
func DRAMEnergyFile() string {
	return filepath.Join(Root, dramZone, energyFile)
}

// ReadEnergy sums the cumulative microjoule counters in the given files.
func ReadEnergy(files []string) (float64, error) {
	var total float64
	for _, f := range files {
		b, err := os.ReadFile(f)
		if err != nil {
			return 0, fmt.Errorf("rapl: read %s: %w", f, err)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(string(b)), 64)
		if err != nil {
			return 0, fmt.Errorf("rapl: parse %s: %w", f, err)
		}
		total += v
	}
	return total, nil
}
