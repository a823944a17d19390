package domain

import "errors"

// Error taxonomy shared across the pipeline. Callers classify failures with
// errors.Is rather than string matching.
var (
	// ErrSourceExhausted signals the expected end of a finite event source.
	// Terminal for that source, not a failure.
	ErrSourceExhausted = errors.New("event source exhausted")

	// ErrSourceUnavailable signals a transient read failure. Callers may
	// retry with backoff.
	ErrSourceUnavailable = errors.New("event source unavailable")

	// ErrSignalUnavailable is returned when a signal type has never been
	// fetched. Correlation omits the signal instead of failing.
	ErrSignalUnavailable = errors.New("signal not yet available")
)
