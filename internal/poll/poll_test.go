package poll

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var errObserve = errors.New("observe failed")

// counter returns an observe func yielding 1, 2, 3, ...
func counter() (func(context.Context) (int, error), *int) {
	n := 0

	return func(context.Context) (int, error) {
		n++
		return n, nil
	}, &n
}

// TestUntil_ImmediateSuccess returns on the first observation without sleeping.
func TestUntil_ImmediateSuccess(t *testing.T) {
	t.Parallel()

	observe, calls := counter()
	start := time.Now()

	out, err := Until(context.Background(), observe, func(int) bool { return true },
		Options{Timeout: time.Hour, Interval: time.Hour})
	require.NoError(t, err)
	require.True(t, out.Success)
	require.Equal(t, 1, out.Value)
	require.Equal(t, 1, *calls)
	require.Less(t, time.Since(start), time.Second)
}

// TestUntil_SucceedsLater stops as soon as the predicate holds.
func TestUntil_SucceedsLater(t *testing.T) {
	t.Parallel()

	observe, _ := counter()

	out, err := Until(context.Background(), observe, func(v int) bool { return v == 3 },
		Options{Timeout: time.Second, Interval: time.Millisecond})
	require.NoError(t, err)
	require.True(t, out.Success)
	require.Equal(t, 3, out.Value)
	require.Equal(t, 3, out.Attempts)
}

// TestUntil_Timeout reports failure after roughly the timeout with the last value.
func TestUntil_Timeout(t *testing.T) {
	t.Parallel()

	observe, calls := counter()
	timeout := 60 * time.Millisecond
	start := time.Now()

	out, err := Until(context.Background(), observe, func(int) bool { return false },
		Options{Timeout: timeout, Interval: 10 * time.Millisecond})
	elapsed := time.Since(start)

	require.NoError(t, err)
	require.False(t, out.Success)
	require.Equal(t, *calls, out.Value)
	require.Equal(t, *calls, out.Attempts)
	require.GreaterOrEqual(t, elapsed, timeout)
	require.Less(t, elapsed, timeout+time.Second)
}

// TestUntil_InitialDelay waits before the first observation.
func TestUntil_InitialDelay(t *testing.T) {
	t.Parallel()

	observe, _ := counter()
	delay := 30 * time.Millisecond
	start := time.Now()

	out, err := Until(context.Background(), observe, func(int) bool { return true },
		Options{Timeout: time.Second, Interval: time.Millisecond, InitialDelay: delay})
	require.NoError(t, err)
	require.True(t, out.Success)
	require.GreaterOrEqual(t, time.Since(start), delay)
}

// TestUntil_ErrorAborts propagates observation errors by default.
func TestUntil_ErrorAborts(t *testing.T) {
	t.Parallel()

	observe := func(context.Context) (int, error) { return 0, errObserve }

	out, err := Until(context.Background(), observe, func(int) bool { return true },
		Options{Timeout: time.Second, Interval: time.Millisecond})
	require.ErrorIs(t, err, errObserve)
	require.False(t, out.Success)
	require.Equal(t, 1, out.Attempts)
}

// TestUntil_ContinueOnError swallows failed observations and keeps polling.
func TestUntil_ContinueOnError(t *testing.T) {
	t.Parallel()

	n := 0
	observe := func(context.Context) (string, error) {
		n++
		if n < 3 {
			return "", errObserve
		}

		return "Successfully installed r00foo-1.3", nil
	}

	var swallowed []int

	out, err := Until(context.Background(), observe,
		func(s string) bool { return s != "" },
		Options{
			Timeout:         time.Second,
			Interval:        time.Millisecond,
			ContinueOnError: true,
			OnError: func(attempt int, err error) {
				require.ErrorIs(t, err, errObserve)

				swallowed = append(swallowed, attempt)
			},
		})
	require.NoError(t, err)
	require.True(t, out.Success)
	require.Equal(t, []int{1, 2}, swallowed)
	require.ErrorIs(t, out.Err, errObserve)
}

// TestUntil_ContinueOnErrorKeepsValue reports what the failed observations returned.
func TestUntil_ContinueOnErrorKeepsValue(t *testing.T) {
	t.Parallel()

	n := 0
	observe := func(context.Context) (string, error) {
		n++

		return "No matching distribution found, try " + strconv.Itoa(n), errObserve
	}

	out, err := Until(context.Background(), observe,
		func(string) bool { return false },
		Options{Timeout: 20 * time.Millisecond, Interval: time.Millisecond, ContinueOnError: true})
	require.NoError(t, err)
	require.False(t, out.Success)
	require.Equal(t, "No matching distribution found, try "+strconv.Itoa(out.Attempts), out.Value)
	require.ErrorIs(t, out.Err, errObserve)
}

// TestUntil_Canceled stops waiting when the context is done.
func TestUntil_Canceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	observe, _ := counter()

	_, err := Until(ctx, observe, func(int) bool { return false },
		Options{Timeout: time.Hour, Interval: time.Hour})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

// TestUntil_SingleShot observes once when no timeout is configured.
func TestUntil_SingleShot(t *testing.T) {
	t.Parallel()

	observe, calls := counter()

	out, err := Until(context.Background(), observe, func(int) bool { return false }, Options{})
	require.NoError(t, err)
	require.False(t, out.Success)
	require.Equal(t, 1, *calls)
}
