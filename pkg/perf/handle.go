//go:build linux

package perf

import (
	"errors"
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// handle is one open perf event descriptor. The indirection exists so the
// group logic can be exercised without the perf_event_open syscall.
type handle interface {
	Enable() error
	Reset() error
	Disable() error
	Read() (uint64, error)
	Close() error
	FD() int
}

// openHandle creates a descriptor for (typ, config) on the given CPU,
// chained to groupFD (-1 starts a new group and the event is created
// disabled). Swapped out in tests.
var openHandle = openPerfHandle

type fdHandle struct {
	fd int
}

func openPerfHandle(cpu int, typ uint32, config uint64, groupFD int) (handle, error) {
	attr := unix.PerfEventAttr{
		Type:   typ,
		Size:   uint32(unsafe.Sizeof(unix.PerfEventAttr{})),
		Config: config,
	}
	if groupFD == -1 {
		// The leader starts disabled so the whole group can be armed in
		// one Enable once every sibling is attached.
		attr.Bits = unix.PerfBitDisabled
	}
	fd, err := unix.PerfEventOpen(&attr, -1, cpu, groupFD, 0)
	if err != nil {
		if errors.Is(err, unix.ENOENT) || errors.Is(err, unix.ENODEV) {
			return nil, fmt.Errorf("perf: open type=%d config=%d cpu=%d: %w", typ, config, cpu, ErrUnsupported)
		}
		return nil, fmt.Errorf("perf: open type=%d config=%d cpu=%d: %w", typ, config, cpu, err)
	}
	return &fdHandle{fd: fd}, nil
}

func (h *fdHandle) Enable() error {
	return unix.IoctlSetInt(h.fd, unix.PERF_EVENT_IOC_ENABLE, 0)
}

func (h *fdHandle) Reset() error {
	return unix.IoctlSetInt(h.fd, unix.PERF_EVENT_IOC_RESET, 0)
}

func (h *fdHandle) Disable() error {
	return unix.IoctlSetInt(h.fd, unix.PERF_EVENT_IOC_DISABLE, 0)
}

func (h *fdHandle) Read() (uint64, error) {
	var buf [8]byte
	n, err := unix.Read(h.fd, buf[:])
	if err != nil {
		return 0, fmt.Errorf("perf: read fd %d: %w", h.fd, err)
	}
	if n != len(buf) {
		return 0, fmt.Errorf("perf: read fd %d returned %d bytes: %w", h.fd, n, ErrShortRead)
	}
	var v uint64
	for i, b := range buf {
		v |= uint64(b) << (8 * i)
	}
	return v, nil
}

func (h *fdHandle) Close() error {
	return unix.Close(h.fd)
}

func (h *fdHandle) FD() int { return h.fd }
