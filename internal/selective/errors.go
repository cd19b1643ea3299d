// Package selective implements the selective-classification evaluation
// core: a streaming risk-constrained coverage metric, a percentile-based
// threshold calibrator, and the helpers that turn model outputs into
// confidence and reservation scores.
//
// Scores come in two orientations. A confidence is higher for examples the
// model trusts more; a reservation is higher for examples that should be
// rejected first. The streaming metric consumes confidences, the calibrator
// and prefix reports consume reservations.
package selective

import "errors"

var (
	// ErrInvalidState is returned when a computation is requested over
	// missing or inconsistent data (no records, mismatched lengths).
	ErrInvalidState = errors.New("invalid state")

	// ErrEmptySelection is returned when a requested coverage selects no
	// examples, so accuracy is undefined.
	ErrEmptySelection = errors.New("empty selection")

	// ErrConfiguration is returned for out-of-range risk or coverage values
	// and unknown score modes.
	ErrConfiguration = errors.New("configuration error")
)
