package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy is a bounded retry policy shared by fetch and sequence-counter
// conflict handling. The zero value performs a single attempt.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Multiplier  float64
	// Retryable decides whether an error is worth another attempt; nil means
	// every error is retryable.
	Retryable func(error) bool
}

// Do runs op until it succeeds, the attempt budget is spent, or ctx is done.
// The last error is returned.
func (p Policy) Do(ctx context.Context, op func() error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	eb := backoff.NewExponentialBackOff()
	eb.RandomizationFactor = 0
	if p.BaseDelay > 0 {
		eb.InitialInterval = p.BaseDelay
	}
	if p.Multiplier > 0 {
		eb.Multiplier = p.Multiplier
	}

	b := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(attempts-1)), ctx)

	return backoff.Retry(func() error {
		err := op()
		if err == nil {
			return nil
		}
		if p.Retryable != nil && !p.Retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}, b)
}
