package scheduler

import "errors"

var (
	// ErrInvalidConfig is returned when a trigger or scheduler configuration is invalid
	ErrInvalidConfig = errors.New("invalid scheduler configuration")

	// ErrNilTick is returned when a trigger is created without a tick function
	ErrNilTick = errors.New("tick function is nil")

	// ErrStillStopping is returned by Start while the loop of an earlier run
	// is still finishing a tick
	ErrStillStopping = errors.New("trigger is still stopping")

	// ErrTickPanicked wraps the value recovered from a panicking tick
	ErrTickPanicked = errors.New("tick panicked")
)
