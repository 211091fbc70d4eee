package weather

import (
	"context"
	"errors"
	"math"
	"time"
)

// RetryPolicy is a bounded exponential backoff
type RetryPolicy struct {
	Retries    int
	BaseDelay  time.Duration
	Multiplier float64
}

// DefaultRetryPolicy retries three times starting at one second and doubling.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Retries:    3,
		BaseDelay:  time.Second,
		Multiplier: 2,
	}
}

// Delay returns the wait before the given retry (1-based).
func (p RetryPolicy) Delay(retry int) time.Duration {
	if retry < 1 {
		return 0
	}
	mult := p.Multiplier
	if mult < 1 {
		mult = 1
	}
	return time.Duration(float64(p.BaseDelay) * math.Pow(mult, float64(retry-1)))
}

// Do runs fn until it succeeds, the retries are spent, the error is permanent, or ctx is done.
// onRetry, when set, is called before each wait.
func (p RetryPolicy) Do(ctx context.Context, fn func(context.Context) error, onRetry func(retry int, delay time.Duration, err error)) error {
	var lastErr error
	for attempt := 0; attempt <= p.Retries; attempt++ {
		if attempt > 0 {
			delay := p.Delay(attempt)
			if onRetry != nil {
				onRetry(attempt, delay, lastErr)
			}
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !retryable(err) {
			return err
		}
	}
	return lastErr
}

// permanentError marks a failure that retrying cannot fix.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }

func (e *permanentError) Unwrap() error { return e.err }

func permanent(err error) error {
	return &permanentError{err: err}
}

func retryable(err error) bool {
	var p *permanentError
	return !errors.As(err, &p)
}
