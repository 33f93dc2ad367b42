//go:build linux

package manager

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ja7ad/coregov/pkg/numeric"
	"github.com/ja7ad/coregov/pkg/port"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSensor struct {
	name     string
	channels []string
	values   numeric.Vector
	err      error
	acquires int
	closed   bool
	delay    time.Duration
}

func (f *fakeSensor) Name() string       { return f.name }
func (f *fakeSensor) Width() int         { return len(f.channels) }
func (f *fakeSensor) Channels() []string { return f.channels }

func (f *fakeSensor) Acquire() (numeric.Vector, error) {
	f.acquires++
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.values.Clone(), nil
}

func (f *fakeSensor) Close() error {
	f.closed = true
	return nil
}

type fakeController struct {
	name string
	runs int
	err  error
}

func (f *fakeController) Name() string { return f.name }

func (f *fakeController) Run() error {
	f.runs++
	return f.err
}

func TestManager_TickPublishesThenRuns(t *testing.T) {
	reg := port.NewRegistry()
	m := New(reg, time.Second, Abort, nil)

	s := &fakeSensor{name: "power", channels: []string{"PowerCPU"}, values: numeric.VectorOf(42)}
	require.NoError(t, m.AddSensor(s))
	c := &fakeController{name: "ctl"}
	m.AddController(c)

	require.NoError(t, m.Tick())

	v, err := reg.Read([]string{"PowerCPU"})
	require.NoError(t, err)
	assert.Equal(t, numeric.VectorOf(42), v)
	assert.Equal(t, 1, s.acquires)
	assert.Equal(t, 1, c.runs)
}

func TestManager_AddSensorDuplicateChannel(t *testing.T) {
	reg := port.NewRegistry()
	m := New(reg, time.Second, Abort, nil)

	require.NoError(t, m.AddSensor(&fakeSensor{name: "a", channels: []string{"ch"}}))
	err := m.AddSensor(&fakeSensor{name: "b", channels: []string{"ch"}})
	require.ErrorIs(t, err, port.ErrDuplicate)
}

func TestManager_AbortStopsOnAcquireError(t *testing.T) {
	reg := port.NewRegistry()
	m := New(reg, time.Second, Abort, nil)

	boom := errors.New("boom")
	require.NoError(t, m.AddSensor(&fakeSensor{name: "bad", channels: []string{"x"}, err: boom}))
	c := &fakeController{name: "ctl"}
	m.AddController(c)

	err := m.Tick()
	require.ErrorIs(t, err, boom)
	assert.Zero(t, c.runs)
}

func TestManager_ContinueSkipsFailedSensor(t *testing.T) {
	reg := port.NewRegistry()
	m := New(reg, time.Second, Continue, nil)

	require.NoError(t, m.AddSensor(&fakeSensor{name: "bad", channels: []string{"x"}, err: errors.New("boom")}))
	good := &fakeSensor{name: "good", channels: []string{"y"}, values: numeric.VectorOf(7)}
	require.NoError(t, m.AddSensor(good))
	c := &fakeController{name: "ctl"}
	m.AddController(c)

	require.NoError(t, m.Tick())

	v, err := reg.Read([]string{"y"})
	require.NoError(t, err)
	assert.Equal(t, numeric.VectorOf(7), v)
	assert.Equal(t, 1, c.runs)
}

func TestManager_RunStopsAfterMaxTicks(t *testing.T) {
	reg := port.NewRegistry()
	m := New(reg, time.Millisecond, Abort, nil)

	s := &fakeSensor{name: "s", channels: []string{"v"}, values: numeric.VectorOf(1)}
	require.NoError(t, m.AddSensor(s))

	var ticks []uint64
	m.OnTick(func(n uint64) { ticks = append(ticks, n) })

	require.NoError(t, m.Run(context.Background(), 3))
	assert.Equal(t, []uint64{1, 2, 3}, ticks)
	assert.Equal(t, 3, s.acquires)
}

func TestManager_RunHonorsCancellation(t *testing.T) {
	reg := port.NewRegistry()
	m := New(reg, time.Millisecond, Abort, nil)
	require.NoError(t, m.AddSensor(&fakeSensor{name: "s", channels: []string{"v"}, values: numeric.VectorOf(1)}))

	ctx, cancel := context.WithCancel(context.Background())
	m.OnTick(func(n uint64) {
		if n >= 2 {
			cancel()
		}
	})

	err := m.Run(ctx, 0)
	require.ErrorIs(t, err, context.Canceled)
}

func TestManager_RunWithoutSensors(t *testing.T) {
	m := New(port.NewRegistry(), time.Second, Abort, nil)
	err := m.Run(context.Background(), 1)
	require.ErrorIs(t, err, ErrNoSensors)
}

func TestManager_CloseReleasesSensors(t *testing.T) {
	reg := port.NewRegistry()
	m := New(reg, time.Second, Abort, nil)

	s := &fakeSensor{name: "s", channels: []string{"v"}, values: numeric.VectorOf(1)}
	require.NoError(t, m.AddSensor(s))
	require.NoError(t, m.Close())
	assert.True(t, s.closed)
}

func TestManager_CheckLatency(t *testing.T) {
	reg := port.NewRegistry()
	m := New(reg, 10*time.Millisecond, Abort, nil)

	fast := &fakeSensor{name: "fast", channels: []string{"a"}, values: numeric.VectorOf(1)}
	slow := &fakeSensor{name: "slow", channels: []string{"b"}, values: numeric.VectorOf(1), delay: 25 * time.Millisecond}
	require.NoError(t, m.AddSensor(fast))
	require.NoError(t, m.AddSensor(slow))

	reports := m.CheckLatency()
	require.Len(t, reports, 2)
	assert.NoError(t, reports[0].Err)
	require.Error(t, reports[1].Err)
	assert.ErrorIs(t, reports[1].Err, ErrBudget)
}
