//go:build linux

// Package manager owns the sampling loop: every period it acquires all
// sensors, publishes their values to the port registry, then runs the
// controllers in registration order.
package manager

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ja7ad/coregov/pkg/controller"
	"github.com/ja7ad/coregov/pkg/port"
	"github.com/ja7ad/coregov/pkg/sensor"
)

// FailPolicy decides what a sensor acquire error does to the loop.
type FailPolicy int

const (
	// Abort stops the loop and returns the error.
	Abort FailPolicy = iota
	// Continue logs the error, publishes nothing for that sensor this
	// tick, and keeps going.
	Continue
)

// TickFunc runs after each completed cycle with the 1-based tick number.
type TickFunc func(tick uint64)

// Manager drives sensors and controllers on a fixed period.
type Manager struct {
	log    *slog.Logger
	reg    *port.Registry
	period time.Duration
	policy FailPolicy

	sensors     []sensor.Sensor
	controllers []controller.Controller
	onTick      TickFunc
}

func New(reg *port.Registry, period time.Duration, policy FailPolicy, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{
		log:    log,
		reg:    reg,
		period: period,
		policy: policy,
	}
}

// Registry returns the port registry the manager publishes into.
func (m *Manager) Registry() *port.Registry { return m.reg }

// AddSensor registers a sensor and declares its channels. A channel
// name collision is a wiring bug and fails here, before the loop.
func (m *Manager) AddSensor(s sensor.Sensor) error {
	if err := m.reg.Declare(s.Channels()...); err != nil {
		return fmt.Errorf("manager: sensor %s: %w", s.Name(), err)
	}
	m.sensors = append(m.sensors, s)
	return nil
}

// AddController registers a controller. Its channels must already be
// declared (by sensors, or via the registry directly for targets).
func (m *Manager) AddController(c controller.Controller) {
	m.controllers = append(m.controllers, c)
}

// OnTick installs a callback invoked after every completed cycle.
func (m *Manager) OnTick(fn TickFunc) { m.onTick = fn }

// Tick runs one full cycle: acquire every sensor, publish, then run
// every controller.
func (m *Manager) Tick() error {
	for _, s := range m.sensors {
		v, err := s.Acquire()
		if err != nil {
			if m.policy == Continue {
				m.log.Warn("sensor acquire failed", "sensor", s.Name(), "err", err)
				continue
			}
			return fmt.Errorf("manager: sensor %s: %w", s.Name(), err)
		}
		if err := m.reg.Publish(s.Channels(), v); err != nil {
			return fmt.Errorf("manager: sensor %s: %w", s.Name(), err)
		}
	}
	for _, c := range m.controllers {
		if err := c.Run(); err != nil {
			if m.policy == Continue {
				m.log.Warn("controller run failed", "controller", c.Name(), "err", err)
				continue
			}
			return fmt.Errorf("manager: controller %s: %w", c.Name(), err)
		}
	}
	return nil
}

// Run loops until ctx is cancelled or maxTicks cycles have completed
// (maxTicks 0 means run until cancelled).
func (m *Manager) Run(ctx context.Context, maxTicks uint64) error {
	if len(m.sensors) == 0 {
		return fmt.Errorf("manager: %w", ErrNoSensors)
	}

	ticker := time.NewTicker(m.period)
	defer ticker.Stop()

	var tick uint64
	for {
		select {
		case <-ctx.Done():
			m.log.Info("sampling loop stopped", "ticks", tick)
			return ctx.Err()
		case <-ticker.C:
			if err := m.Tick(); err != nil {
				return err
			}
			tick++
			if m.onTick != nil {
				m.onTick(tick)
			}
			if maxTicks > 0 && tick >= maxTicks {
				m.log.Info("sampling loop finished", "ticks", tick)
				return nil
			}
		}
	}
}

// Close releases every sensor that holds kernel resources.
func (m *Manager) Close() error {
	var first error
	for _, s := range m.sensors {
		if c, ok := s.(sensor.Closer); ok {
			if err := c.Close(); err != nil && first == nil {
				first = err
			}
		}
	}
	return first
}

// Latency is one sensor's measured acquire cost against the period.
type Latency struct {
	Sensor  string
	Elapsed time.Duration
	Err     error
}

// CheckLatency acquires each sensor once and compares the elapsed time
// to the sampling period. Sensors over budget carry ErrBudget; acquire
// failures carry the acquire error.
func (m *Manager) CheckLatency() []Latency {
	out := make([]Latency, 0, len(m.sensors))
	for _, s := range m.sensors {
		d, err := sensor.MeasureLatency(s)
		l := Latency{Sensor: s.Name(), Elapsed: d, Err: err}
		if err == nil && d > m.period {
			l.Err = fmt.Errorf("%s > %s: %w", d, m.period, ErrBudget)
		}
		out = append(out, l)
	}
	return out
}
