package httpx

import (
	"time"

	"github.com/cenkalti/backoff/v5"
)

// newBackoff returns an exponential schedule for one request's retries.
// Jitter is applied as a randomization factor in [0, 1].
func newBackoff(base, max time.Duration, jitter float64) *backoff.ExponentialBackOff {
	if base <= 0 {
		base = 50 * time.Millisecond
	}
	if max <= 0 {
		max = time.Second
	}
	if jitter < 0 {
		jitter = 0
	}
	if jitter > 1 {
		jitter = 1
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = base
	b.MaxInterval = max
	b.Multiplier = 2
	b.RandomizationFactor = jitter
	b.Reset()
	return b
}
