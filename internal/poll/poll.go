package poll

import (
	"context"
	"time"
)

// Options bound a convergence loop.
type Options struct {
	// Timeout is measured from the end of InitialDelay.
	Timeout time.Duration
	// Interval is the pause between unsuccessful observations.
	Interval time.Duration
	// InitialDelay is waited once before the first observation.
	InitialDelay time.Duration
	// ContinueOnError treats a failed observation as "not yet" instead of
	// aborting. The error is handed to OnError and kept in Outcome.Err.
	ContinueOnError bool
	// OnError is called for every failed observation when ContinueOnError is set.
	OnError func(attempt int, err error)
}

// Outcome reports how a loop ended.
type Outcome[T any] struct {
	// Value is the last observed value. With ContinueOnError it includes the
	// value returned alongside a swallowed error.
	Value T
	// Success is true when isSuccess accepted Value.
	Success bool
	// Attempts counts observe calls.
	Attempts int
	// Err is the last swallowed observation error, if any.
	Err error
}

// Until calls observe until isSuccess accepts its result or opts.Timeout
// elapses. A satisfied first observation returns without sleeping; a
// non-positive Timeout observes exactly once.
// The returned error is non-nil only when ctx is done or an observation
// fails without ContinueOnError.
func Until[T any](
	ctx context.Context,
	observe func(context.Context) (T, error),
	isSuccess func(T) bool,
	opts Options,
) (Outcome[T], error) {
	var outcome Outcome[T]

	if err := sleep(ctx, opts.InitialDelay); err != nil {
		return outcome, err
	}

	start := time.Now()

	for {
		outcome.Attempts++

		value, err := observe(ctx)

		switch {
		case err == nil:
			outcome.Value = value

			if isSuccess(value) {
				outcome.Success = true

				return outcome, nil
			}
		case ctx.Err() != nil:
			return outcome, ctx.Err()
		case opts.ContinueOnError:
			outcome.Value = value
			outcome.Err = err

			if opts.OnError != nil {
				opts.OnError(outcome.Attempts, err)
			}
		default:
			return outcome, err
		}

		if opts.Timeout <= 0 {
			return outcome, nil
		}

		if err = sleep(ctx, opts.Interval); err != nil {
			return outcome, err
		}

		if time.Since(start) >= opts.Timeout {
			return outcome, nil
		}
	}
}

// sleep blocks for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
