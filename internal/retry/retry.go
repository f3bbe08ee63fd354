package retry

// Package retry provides the single polling primitive shared by workflows
// that wait on external convergence: ingress hostname discovery, DNS
// propagation, and deployment rollout verification.

import (
	"context"
	"errors"
	"time"
)

// ErrExhausted is returned when the attempt or deadline budget runs out
// before the condition succeeds.
var ErrExhausted = errors.New("retry budget exhausted")

// Config parameterizes a bounded poll loop. Either MaxAttempts or Deadline
// (or both) must be set; a zero Config never polls.
type Config struct {
	// Interval is the fixed delay between attempts.
	Interval time.Duration
	// MaxAttempts bounds the number of condition evaluations. 0 means no
	// attempt bound (Deadline must then be set).
	MaxAttempts int
	// Deadline bounds total wall-clock time. 0 means no time bound.
	Deadline time.Duration
}

// Condition is evaluated once per attempt. done=true stops the loop with
// success. A non-nil error stops the loop immediately and is returned as-is
// (early failure); to treat an error as retryable, the condition must swallow
// it and return done=false.
type Condition func(ctx context.Context) (done bool, err error)

// Poll runs cond under cfg until success, early failure, context
// cancellation, or budget exhaustion.
func Poll(ctx context.Context, cfg Config, cond Condition) error {
	if cfg.MaxAttempts <= 0 && cfg.Deadline <= 0 {
		return ErrExhausted
	}
	if cfg.Deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Deadline)
		defer cancel()
	}
	for attempt := 1; ; attempt++ {
		done, err := cond(ctx)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		if cfg.MaxAttempts > 0 && attempt >= cfg.MaxAttempts {
			return ErrExhausted
		}
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return ErrExhausted
			}
			return ctx.Err()
		case <-time.After(cfg.Interval):
		}
	}
}
