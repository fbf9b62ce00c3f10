package pgrealtime

import (
	"time"

	"github.com/cenkalti/backoff/v5"
)

// DefaultBackoff waits 500ms after the first failure, doubling up to 30s,
// each wait spread by ±20%.
func DefaultBackoff() backoff.BackOff {
	return &backoff.ExponentialBackOff{
		InitialInterval:     500 * time.Millisecond,
		RandomizationFactor: 0.2,
		Multiplier:          2,
		MaxInterval:         30 * time.Second,
	}
}
