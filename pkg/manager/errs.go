package manager

import "errors"

var (
	// ErrNoSensors is returned when Run is called on a manager with
	// nothing to sample.
	ErrNoSensors = errors.New("no sensors registered")

	// ErrBudget is returned by CheckLatency when a sensor's acquire
	// latency exceeds the sampling period.
	ErrBudget = errors.New("acquire latency exceeds sampling period")
)
