package kb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"time"
)

var (
	// ErrUnavailable marks connection-level failures (refused, timed out).
	ErrUnavailable = errors.New("lexrag: kb service unavailable")

	// ErrMalformedResponse marks an unexpected response shape.
	ErrMalformedResponse = errors.New("lexrag: kb response malformed")

	// ErrSearchFailed marks a body-level failure (success:false).
	ErrSearchFailed = errors.New("lexrag: kb search failed")
)

// StatusError is a non-2xx HTTP response from the KB service.
type StatusError struct {
	Code       int
	RetryAfter time.Duration
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("kb api error %d: %s", e.Code, e.Body)
}

const maxBackoff = 10 * time.Second

// Executor runs upstream calls with bounded retries. Rate limits honor the
// Retry-After header; connection failures use exponential backoff with
// jitter. Anything else aborts immediately; the caller degrades to an
// empty result either way.
type Executor struct {
	maxAttempts int
	baseDelay   time.Duration

	// sleep is time.Sleep unless a test swaps it out.
	sleep func(time.Duration)
}

// NewExecutor creates an executor. Zero values default to 3 attempts with
// a 1s base delay.
func NewExecutor(maxAttempts int, baseDelay time.Duration) *Executor {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	if baseDelay <= 0 {
		baseDelay = time.Second
	}
	return &Executor{
		maxAttempts: maxAttempts,
		baseDelay:   baseDelay,
		sleep:       time.Sleep,
	}
}

// Execute runs fn up to maxAttempts times. The returned error is the last
// attempt's error; callers treat it as "KB unavailable" and degrade.
func (e *Executor) Execute(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}

		delay, retryable := e.classify(lastErr, attempt)
		if !retryable {
			slog.Warn("kb: request failed, not retrying", "op", op, "error", lastErr)
			return lastErr
		}
		if attempt == e.maxAttempts {
			break
		}

		slog.Warn("kb: retrying request",
			"op", op, "attempt", attempt, "delay", delay, "error", lastErr)
		e.sleep(delay)
	}
	return fmt.Errorf("kb: %s: attempts exhausted: %w", op, lastErr)
}

// classify returns the delay before the next attempt and whether the error
// warrants one. Only rate limits and connection-level failures retry.
func (e *Executor) classify(err error, attempt int) (time.Duration, bool) {
	var status *StatusError
	if errors.As(err, &status) {
		if status.Code != http.StatusTooManyRequests {
			return 0, false
		}
		if status.RetryAfter > 0 {
			return status.RetryAfter, true
		}
		return e.backoff(attempt), true
	}
	if errors.Is(err, ErrUnavailable) {
		return e.backoff(attempt), true
	}
	return 0, false
}

// backoff computes the exponential delay with random jitter for the given
// 1-based attempt, capped at maxBackoff.
func (e *Executor) backoff(attempt int) time.Duration {
	delay := e.baseDelay << (attempt - 1)
	if delay > maxBackoff {
		delay = maxBackoff
	}
	jitter := time.Duration(rand.Int63n(int64(delay)/2 + 1))
	if delay+jitter > maxBackoff {
		return maxBackoff
	}
	return delay + jitter
}
