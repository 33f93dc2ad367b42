//go:build linux

package sensor

import (
	"fmt"

	"github.com/ja7ad/coregov/pkg/numeric"
	"github.com/ja7ad/coregov/pkg/system/hwmon"
)

// CPUTemp reports the package hot spot: the maximum of all discovered
// per-core temperatures, in whole degrees Celsius.
type CPUTemp struct {
	base
	tempFiles []string
}

// NewCPUTemp scans the candidate coretemp locations once. A machine
// without any accessible location cannot host this sensor and the
// constructor fails.
func NewCPUTemp(name string) (*CPUTemp, error) {
	files, err := hwmon.DiscoverTempFiles()
	if err != nil {
		return nil, fmt.Errorf("sensor %s: %w", name, err)
	}
	return &CPUTemp{base: newBase(name), tempFiles: files}, nil
}

func (s *CPUTemp) Acquire() (numeric.Vector, error) {
	s.rotate()
	var max float64
	for _, f := range s.tempFiles {
		v, err := hwmon.ReadMilliDeg(f)
		if err != nil {
			return nil, fmt.Errorf("sensor %s: %w", s.name, err)
		}
		if v > max {
			max = v
		}
	}
	s.values.Set(0, max/1000.0)
	return s.values.Clone(), nil
}
