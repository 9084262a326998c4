// Package workerutil runs long-lived background workers that restart after
// a panic or an error, with exponential backoff.
package workerutil

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"
)

const (
	defaultInitialBackoff = 100 * time.Millisecond
	defaultMaxBackoff     = 5 * time.Second
	defaultMaxRetries     = 10
)

// RecoveryOptions configures RunWithRecovery. Zero fields use the defaults
// (100ms initial backoff, 5s cap, 10 attempts).
type RecoveryOptions struct {
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	// MaxRetries is the total number of runs. 1 means the worker is never
	// restarted.
	MaxRetries int

	// OnFailure is called after each failed run, before the backoff wait.
	// attempt is 1-based. May be nil.
	OnFailure func(worker string, attempt int, err error)
	// OnFatal is called once MaxRetries runs have failed. May be nil.
	OnFatal func(worker string, err error)
}

func (opts RecoveryOptions) applyDefaults() RecoveryOptions {
	if opts.InitialBackoff <= 0 {
		opts.InitialBackoff = defaultInitialBackoff
	}
	if opts.MaxBackoff <= 0 {
		opts.MaxBackoff = defaultMaxBackoff
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = defaultMaxRetries
	}
	if opts.MaxBackoff < opts.InitialBackoff {
		slog.Warn("[DEBUG-WORKER] MaxBackoff < InitialBackoff, using InitialBackoff as MaxBackoff",
			"initialBackoff", opts.InitialBackoff, "maxBackoff", opts.MaxBackoff)
		opts.MaxBackoff = opts.InitialBackoff
	}
	return opts
}

// PanicError wraps a value recovered from a worker panic.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// RunWithRecovery runs fn in a goroutine tracked by wg. A nil return ends
// the worker. A panic or non-nil error restarts it after a backoff, unless
// ctx is already cancelled.
func RunWithRecovery(
	ctx context.Context,
	name string,
	wg *sync.WaitGroup,
	fn func(ctx context.Context) error,
	opts RecoveryOptions,
) {
	opts = opts.applyDefaults()
	wg.Go(func() {
		runRecoveryLoop(ctx, name, fn, opts)
	})
}

func runRecoveryLoop(ctx context.Context, name string, fn func(ctx context.Context) error, opts RecoveryOptions) {
	delay := opts.InitialBackoff
	var lastErr error

	for attempt := 1; attempt <= opts.MaxRetries; attempt++ {
		lastErr = runOnce(ctx, name, fn)
		if lastErr == nil || ctx.Err() != nil {
			return
		}

		slog.Warn("[DEBUG-WORKER] worker failed",
			"worker", name, "attempt", attempt, "restartDelay", delay, "error", lastErr)
		if opts.OnFailure != nil {
			opts.OnFailure(name, attempt, lastErr)
		}
		if attempt == opts.MaxRetries {
			break
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
		delay = nextBackoff(delay, opts.MaxBackoff)
	}

	slog.Error("[DEBUG-WORKER] worker exceeded max retries, giving up",
		"worker", name, "maxRetries", opts.MaxRetries, "error", lastErr)
	if opts.OnFatal != nil {
		opts.OnFatal(name, lastErr)
	}
}

func runOnce(ctx context.Context, name string, fn func(ctx context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("[DEBUG-PANIC] background worker recovered from panic",
				"worker", name, "panic", r, "stack", string(debug.Stack()))
			err = &PanicError{Value: r}
		}
	}()
	return fn(ctx)
}

// nextBackoff doubles current, capped at maxBackoff and guarded against
// overflow.
func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	if current <= 0 {
		return defaultInitialBackoff
	}
	if current >= maxBackoff {
		return maxBackoff
	}
	next := current * 2
	if next > maxBackoff || next < current {
		return maxBackoff
	}
	return next
}
