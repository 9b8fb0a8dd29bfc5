package model

import "errors"

// Sentinel errors for the scheduling core. Anything not matched by these is a
// persistence failure and is surfaced to callers unwrapped.
var (
	// ErrNotFound means a referenced business/service/staff/appointment/template is missing.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput means a malformed interval, weekday out of range, unsupported frequency, etc.
	ErrInvalidInput = errors.New("invalid input")

	// ErrSlotUnavailable means the conflict detector rejected the requested interval.
	// This is an expected outcome, not a failure: callers should offer another time.
	ErrSlotUnavailable = errors.New("slot unavailable")

	// ErrInvalidState means the operation is not permitted in the appointment's current status.
	ErrInvalidState = errors.New("invalid state")
)
