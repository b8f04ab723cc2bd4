package core

import (
	"context"
	"net/http"
	"time"
)

const (
	defaultRetryMaxAttempts = 3
	defaultRetryBaseDelay   = time.Second
	defaultRetryMaxDelay    = 10 * time.Second
)

type BackoffScheduler interface {
	NextDelay(attempt int) time.Duration
}

// ExponentialBackoffScheduler doubles the delay per attempt, starting at
// Base and capped at Max: attempt 1 waits Base, attempt 2 waits 2×Base, ...
type ExponentialBackoffScheduler struct {
	Base time.Duration
	Max  time.Duration
}

func (s ExponentialBackoffScheduler) NextDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	base := s.Base
	if base <= 0 {
		base = defaultRetryBaseDelay
	}
	max := s.Max
	if max <= 0 {
		max = defaultRetryMaxDelay
	}

	delay := base
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= max {
			return max
		}
	}
	if delay > max {
		return max
	}
	return delay
}

// RetryPolicy bounds transient-failure replays for a single logical request.
// The attempt counter itself is request-scoped state held by the pipeline.
type RetryPolicy struct {
	MaxAttempts int
	Scheduler   BackoffScheduler
}

func NewRetryPolicy(cfg RetryConfig) RetryPolicy {
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultRetryMaxAttempts
	}
	return RetryPolicy{
		MaxAttempts: maxAttempts,
		Scheduler: ExponentialBackoffScheduler{
			Base: cfg.BaseDelay,
			Max:  cfg.MaxDelay,
		},
	}
}

// IsTransientFailure reports whether a failure class qualifies for
// backoff-and-replay: no response obtained, a 5xx, or a 429. Auth failures
// never qualify; they are handled exclusively by the refresh protocol.
func IsTransientFailure(statusCode int, transportErr error) bool {
	if transportErr != nil {
		return true
	}
	if statusCode == http.StatusTooManyRequests {
		return true
	}
	return statusCode >= http.StatusInternalServerError
}

// ShouldRetry reports whether the attempt-th replay is allowed. MaxAttempts
// bounds replays, not total sends: a budget of 3 means the original send plus
// up to three backed-off replays.
func (p RetryPolicy) ShouldRetry(attempt int) bool {
	maxAttempts := p.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultRetryMaxAttempts
	}
	return attempt <= maxAttempts
}

func (p RetryPolicy) NextDelay(attempt int) time.Duration {
	scheduler := p.Scheduler
	if scheduler == nil {
		scheduler = ExponentialBackoffScheduler{}
	}
	return scheduler.NextDelay(attempt)
}

func waitWithContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
