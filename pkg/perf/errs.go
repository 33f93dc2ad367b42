package perf

import "errors"

var (
	// ErrConfigMismatch indicates that the event type and config lists
	// given to a group differ in length. It is reported before any
	// syscall is made.
	ErrConfigMismatch = errors.New("perf: event type/config count mismatch")

	// ErrUnsupported marks a single event the kernel does not know on
	// this machine. The slot is tolerated and permanently reads zero.
	ErrUnsupported = errors.New("perf: event not supported")

	// ErrShortRead indicates a counter that was created successfully but
	// failed to yield a full 8-byte value. This signals an OS-level
	// inconsistency, not a configuration problem, and is not retried.
	ErrShortRead = errors.New("perf: short counter read")

	// ErrClosed is returned when a group is used after Disable.
	ErrClosed = errors.New("perf: group is closed")
)
