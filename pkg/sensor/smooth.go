//go:build linux

package sensor

import (
	"github.com/ja7ad/coregov/pkg/numeric"
	"github.com/ja7ad/coregov/pkg/system/util"
)

// Smoothed wraps another sensor and applies per-channel exponential
// smoothing to its output. Alpha 1 passes values through unchanged;
// smaller alphas weigh history more.
type Smoothed struct {
	inner Sensor
	emas  []*util.EMA
}

func Smooth(s Sensor, alpha float64) *Smoothed {
	emas := make([]*util.EMA, s.Width())
	for i := range emas {
		emas[i] = util.NewEMA(alpha)
	}
	return &Smoothed{inner: s, emas: emas}
}

func (s *Smoothed) Name() string       { return s.inner.Name() }
func (s *Smoothed) Width() int         { return s.inner.Width() }
func (s *Smoothed) Channels() []string { return s.inner.Channels() }

func (s *Smoothed) Acquire() (numeric.Vector, error) {
	v, err := s.inner.Acquire()
	if err != nil {
		return nil, err
	}
	out := make(numeric.Vector, v.Len())
	for i := range out {
		out[i] = s.emas[i].Next(v.At(i))
	}
	return out, nil
}

// Close releases the wrapped sensor when it holds kernel resources.
func (s *Smoothed) Close() error {
	if c, ok := s.inner.(Closer); ok {
		return c.Close()
	}
	return nil
}
