//go:build linux

package perf

import (
	"errors"
	"testing"

	"github.com/ja7ad/coregov/pkg/numeric"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

// fakeHandle is a scripted counter: each Read pops the next value.
type fakeHandle struct {
	fd       int
	reads    []uint64
	readErr  error
	enabled  bool
	resets   int
	closed   bool
	disabled bool
}

func (f *fakeHandle) Enable() error  { f.enabled = true; return nil }
func (f *fakeHandle) Reset() error   { f.resets++; return nil }
func (f *fakeHandle) Disable() error { f.disabled = true; return nil }
func (f *fakeHandle) Close() error   { f.closed = true; return nil }
func (f *fakeHandle) FD() int        { return f.fd }

func (f *fakeHandle) Read() (uint64, error) {
	if f.readErr != nil {
		return 0, f.readErr
	}
	if len(f.reads) == 0 {
		return 0, nil
	}
	v := f.reads[0]
	f.reads = f.reads[1:]
	return v, nil
}

// fakeOpener records open calls and hands out scripted handles by event
// config. Configs listed in unsupported produce ErrUnsupported.
type fakeOpener struct {
	handles     map[uint64]*fakeHandle
	unsupported map[uint64]bool
	failWith    error
	groupFDs    []int
	nextFD      int
}

func (o *fakeOpener) open(cpu int, typ uint32, config uint64, groupFD int) (handle, error) {
	o.groupFDs = append(o.groupFDs, groupFD)
	if o.unsupported[config] {
		return nil, ErrUnsupported
	}
	if o.failWith != nil {
		return nil, o.failWith
	}
	h, ok := o.handles[config]
	if !ok {
		h = &fakeHandle{}
		if o.handles == nil {
			o.handles = map[uint64]*fakeHandle{}
		}
		o.handles[config] = h
	}
	o.nextFD++
	h.fd = o.nextFD
	return h, nil
}

func withOpener(t *testing.T, o *fakeOpener) {
	t.Helper()
	old := openHandle
	openHandle = o.open
	t.Cleanup(func() { openHandle = old })
}

func hwEvents(configs ...uint64) ([]uint32, []uint64) {
	types := make([]uint32, len(configs))
	for i := range types {
		types[i] = unix.PERF_TYPE_HARDWARE
	}
	return types, configs
}

func TestNewGroup_ConfigMismatch(t *testing.T) {
	o := &fakeOpener{}
	withOpener(t, o)

	_, err := NewGroup(0, []uint32{unix.PERF_TYPE_HARDWARE}, nil)
	require.ErrorIs(t, err, ErrConfigMismatch)
	assert.Empty(t, o.groupFDs, "mismatch must be detected before any open")
}

func TestNewGroup_SiblingsChainToLeader(t *testing.T) {
	o := &fakeOpener{handles: map[uint64]*fakeHandle{0: {}, 1: {}, 2: {}}}
	withOpener(t, o)

	types, configs := hwEvents(0, 1, 2)
	g, err := NewGroup(3, types, configs)
	require.NoError(t, err)
	require.Equal(t, 3, g.Len())

	// leader opened with -1, siblings with the leader's fd
	require.Len(t, o.groupFDs, 3)
	assert.Equal(t, -1, o.groupFDs[0])
	leader := o.handles[0].fd
	assert.Equal(t, leader, o.groupFDs[1])
	assert.Equal(t, leader, o.groupFDs[2])
}

func TestNewGroup_UnsupportedSlotIsTolerated(t *testing.T) {
	o := &fakeOpener{
		handles:     map[uint64]*fakeHandle{0: {reads: []uint64{5, 9}}, 2: {reads: []uint64{10, 30}}},
		unsupported: map[uint64]bool{1: true},
	}
	withOpener(t, o)

	types, configs := hwEvents(0, 1, 2)
	g, err := NewGroup(0, types, configs)
	require.NoError(t, err)

	require.NoError(t, g.Update())
	require.NoError(t, g.Update())
	assert.Equal(t, numeric.VectorOf(4, 0, 20), g.Delta())
}

func TestNewGroup_OtherFailureClosesOpened(t *testing.T) {
	leader := &fakeHandle{}
	o := &fakeOpener{handles: map[uint64]*fakeHandle{0: leader}}
	withOpener(t, o)
	// second open fails hard
	calls := 0
	openHandle = func(cpu int, typ uint32, config uint64, groupFD int) (handle, error) {
		calls++
		if calls == 2 {
			return nil, errors.New("EACCES")
		}
		return o.open(cpu, typ, config, groupFD)
	}

	types, configs := hwEvents(0, 1)
	_, err := NewGroup(0, types, configs)
	require.Error(t, err)
	assert.True(t, leader.closed, "already-opened descriptors must be released")
}

func TestGroup_DeltaEqualsCurrentMinusPrevious(t *testing.T) {
	o := &fakeOpener{handles: map[uint64]*fakeHandle{
		0: {reads: []uint64{100, 250, 400}},
		1: {reads: []uint64{7, 7, 9}},
	}}
	withOpener(t, o)

	types, configs := hwEvents(0, 1)
	g, err := NewGroup(1, types, configs)
	require.NoError(t, err)

	require.NoError(t, g.Update())
	assert.Equal(t, numeric.VectorOf(100, 7), g.Delta())
	require.NoError(t, g.Update())
	assert.Equal(t, numeric.VectorOf(150, 0), g.Delta())
	require.NoError(t, g.Update())
	assert.Equal(t, numeric.VectorOf(150, 2), g.Delta())
	assert.Equal(t, 400.0, g.Raw(0))
}

func TestGroup_EnableResetsReenableDoesNot(t *testing.T) {
	h := &fakeHandle{}
	o := &fakeOpener{handles: map[uint64]*fakeHandle{0: h}}
	withOpener(t, o)

	types, configs := hwEvents(0)
	g, err := NewGroup(0, types, configs)
	require.NoError(t, err)

	require.NoError(t, g.Enable())
	assert.Equal(t, 1, h.resets)
	assert.True(t, h.enabled)

	require.NoError(t, g.Reenable())
	assert.Equal(t, 1, h.resets, "reenable must not reset cumulative counts")
}

func TestGroup_DisableReleasesAndZeroes(t *testing.T) {
	h := &fakeHandle{reads: []uint64{42}}
	o := &fakeOpener{handles: map[uint64]*fakeHandle{0: h}}
	withOpener(t, o)

	types, configs := hwEvents(0)
	g, err := NewGroup(0, types, configs)
	require.NoError(t, err)
	require.NoError(t, g.Update())
	require.Equal(t, 42.0, g.Raw(0))

	require.NoError(t, g.Disable())
	assert.True(t, h.disabled)
	assert.True(t, h.closed)
	assert.Equal(t, 0.0, g.Raw(0))
	assert.Equal(t, numeric.VectorOf(0), g.Delta())

	// further use is rejected
	require.ErrorIs(t, g.Update(), ErrClosed)
	require.ErrorIs(t, g.Enable(), ErrClosed)
	require.NoError(t, g.Disable(), "double disable is a no-op")
}

func TestGroup_ReadFailureIsFatal(t *testing.T) {
	h := &fakeHandle{readErr: ErrShortRead}
	o := &fakeOpener{handles: map[uint64]*fakeHandle{0: h}}
	withOpener(t, o)

	types, configs := hwEvents(0)
	g, err := NewGroup(0, types, configs)
	require.NoError(t, err)
	require.ErrorIs(t, g.Update(), ErrShortRead)
}
