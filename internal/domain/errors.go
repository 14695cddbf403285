package domain

import "errors"

// Sentinel errors forming the user-visible failure taxonomy. Upstream
// (weather, model) failures are deliberately absent: they are absorbed with
// synthetic fallbacks and never reach the caller.
var (
	// ErrNotFound marks lookups that resolve to no telemetry: an unknown
	// building/year combination or an anomaly ID outside the dataset.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput marks caller mistakes such as an unsupported
	// feedback status.
	ErrInvalidInput = errors.New("invalid input")
)
