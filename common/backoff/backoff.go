// Package backoff contains helpers for dealing with backoffs.
package backoff

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

// NewExponentialBackOff creates an instance of ExponentialBackOff using reasonable defaults.
func NewExponentialBackOff() *backoff.ExponentialBackOff {
	return backoff.NewExponentialBackOff(
		// Make sure that the backoff never stops by default.
		backoff.WithMaxElapsedTime(0),
	)
}

// NewCycleBackOff creates a backoff for restarting failed scheduling cycles.
//
// The interval starts at the regular polling interval and never exceeds
// maxInterval.
func NewCycleBackOff(interval, maxInterval time.Duration) *backoff.ExponentialBackOff {
	if maxInterval < interval {
		maxInterval = interval
	}
	return backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(interval),
		backoff.WithMaxInterval(maxInterval),
		backoff.WithMaxElapsedTime(0),
	)
}
