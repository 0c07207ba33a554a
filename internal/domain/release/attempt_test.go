package release

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestStateString names every state and flags terminal ones.
func TestStateString(t *testing.T) {
	t.Parallel()

	for s := StateIdle; s <= StateFailed; s++ {
		require.NotEqual(t, "unknown", s.String())
	}

	require.Equal(t, "awaiting_index_convergence", StateAwaitingIndexConvergence.String())
	require.Equal(t, "unknown", State(99).String())
	require.True(t, StateSuccess.IsTerminal())
	require.True(t, StateFailed.IsTerminal())
	require.False(t, StateVerifying.IsTerminal())
}

// TestAttempt covers Succeeded and Duration including nil receivers.
func TestAttempt(t *testing.T) {
	t.Parallel()

	var nilAttempt *Attempt
	require.False(t, nilAttempt.Succeeded())
	require.Zero(t, nilAttempt.Duration())

	start := time.Now()
	a := &Attempt{State: StateVerifying, StartedAt: start}
	require.False(t, a.Succeeded())
	require.Zero(t, a.Duration())

	a.State = StateSuccess
	a.FinishedAt = start.Add(3 * time.Second)
	require.True(t, a.Succeeded())
	require.Equal(t, 3*time.Second, a.Duration())
}
