//go:build linux

package sensor

import "github.com/ja7ad/coregov/pkg/numeric"

// Time publishes the wall clock as fractional seconds. Downstream
// consumers use it to timestamp the other channels of the same cycle.
type Time struct {
	base
}

// NewTime returns a Time sensor with one channel named after the sensor.
func NewTime(name string) *Time {
	s := &Time{base: newBase(name)}
	// seed so the first cycle already carries a timestamp
	_, _ = s.Acquire()
	return s
}

// Acquire reports seconds plus fractional nanoseconds since the epoch.
func (s *Time) Acquire() (numeric.Vector, error) {
	s.rotate()
	t := s.sampleTime
	s.values.Set(0, float64(t.Unix())+float64(t.Nanosecond())*1e-9)
	return s.values.Clone(), nil
}
