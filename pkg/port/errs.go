package port

import "errors"

var (
	// ErrDuplicate indicates a channel declared twice; channels have a
	// single producer.
	ErrDuplicate = errors.New("port: channel already declared")

	// ErrUnknown indicates an access to a channel nobody declared.
	ErrUnknown = errors.New("port: unknown channel")

	// ErrWidth indicates a publish whose vector width does not match its
	// channel list.
	ErrWidth = errors.New("port: width mismatch")
)
