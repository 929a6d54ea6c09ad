package experiment

import "errors"

var (
	// ErrNotRunning is returned when an operation requires a running
	// experiment and the experiment is in any other state.
	ErrNotRunning = errors.New("experiment is not running")

	// ErrAlreadyConcluded is returned when concluding an experiment
	// that has already been completed.
	ErrAlreadyConcluded = errors.New("experiment already concluded")

	// ErrVariantCount is returned by Evaluate for experiments that do
	// not have exactly two variants. Multi-armed tests are out of scope.
	ErrVariantCount = errors.New("significance testing requires exactly two variants")

	// ErrMissingValue is returned when a revenue event arrives without
	// a non-negative value.
	ErrMissingValue = errors.New("revenue event requires a non-negative value")

	// ErrInvalidSplit is returned at creation when variant traffic
	// percentages do not sum to 100.
	ErrInvalidSplit = errors.New("variant traffic percentages must sum to 100")

	// ErrInvalidConfig is returned for other creation-time validation
	// failures (duplicate variant names, bad confidence level).
	ErrInvalidConfig = errors.New("invalid experiment configuration")
)
