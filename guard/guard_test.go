package guard

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/geobarrowsa3/Clue-FHE/protocol"
)

func TestRequireOwner(t *testing.T) {
	g := New("alice", time.Second)

	require.NoError(t, g.RequireOwner("alice"))
	require.ErrorIs(t, g.RequireOwner("bob"), protocol.ErrNotOwner)
	require.ErrorIs(t, g.RequireOwner(""), protocol.ErrNotOwner)
}

func TestRequireProvider(t *testing.T) {
	g := New("alice", time.Second)

	require.ErrorIs(t, g.RequireProvider("bob"), protocol.ErrNotProvider)

	g.AddProvider("bob")
	require.NoError(t, g.RequireProvider("bob"))
	require.True(t, g.IsProvider("bob"))

	// The owner is implicitly a provider without being in the set.
	require.NoError(t, g.RequireProvider("alice"))
	require.False(t, g.IsProvider("alice"))

	g.RemoveProvider("bob")
	require.ErrorIs(t, g.RequireProvider("bob"), protocol.ErrNotProvider)
}

func TestPause(t *testing.T) {
	g := New("alice", time.Second)

	require.NoError(t, g.RequireUnpaused())

	g.Pause()
	require.True(t, g.Paused())
	require.ErrorIs(t, g.RequireUnpaused(), protocol.ErrPaused)

	// Role checks are unaffected by the circuit breaker.
	require.NoError(t, g.RequireOwner("alice"))

	g.Unpause()
	require.NoError(t, g.RequireUnpaused())
}

func TestCooldownWindow(t *testing.T) {
	g := New("alice", 30*time.Second)
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, g.CheckCooldown("bob", CategorySubmission, start))
	g.RecordAction("bob", CategorySubmission, start)

	// Inside the window the action is rejected, at any offset.
	require.ErrorIs(t, g.CheckCooldown("bob", CategorySubmission, start.Add(time.Second)), protocol.ErrRateLimited)
	require.ErrorIs(t, g.CheckCooldown("bob", CategorySubmission, start.Add(29*time.Second)), protocol.ErrRateLimited)

	// Exactly at the boundary the window has elapsed.
	require.NoError(t, g.CheckCooldown("bob", CategorySubmission, start.Add(30*time.Second)))
}

func TestCheckCooldownDoesNotTouchLedger(t *testing.T) {
	g := New("alice", 30*time.Second)
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	// Checks alone never start a window, no matter how many.
	require.NoError(t, g.CheckCooldown("bob", CategoryRequest, start))
	require.NoError(t, g.CheckCooldown("bob", CategoryRequest, start.Add(time.Second)))

	g.RecordAction("bob", CategoryRequest, start)
	require.ErrorIs(t, g.CheckCooldown("bob", CategoryRequest, start.Add(29*time.Second)), protocol.ErrRateLimited)

	// The rejected check at +29s must not have extended the window.
	require.NoError(t, g.CheckCooldown("bob", CategoryRequest, start.Add(31*time.Second)))
}

func TestCooldownIndependentPerIdentityAndCategory(t *testing.T) {
	g := New("alice", 30*time.Second)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	g.RecordAction("bob", CategorySubmission, now)

	// A different category for the same identity has its own ledger entry.
	require.NoError(t, g.CheckCooldown("bob", CategoryRequest, now))

	// A different identity is unaffected entirely.
	require.NoError(t, g.CheckCooldown("carol", CategorySubmission, now))
	g.RecordAction("carol", CategorySubmission, now)

	require.ErrorIs(t, g.CheckCooldown("bob", CategorySubmission, now.Add(time.Second)), protocol.ErrRateLimited)
	require.ErrorIs(t, g.CheckCooldown("carol", CategorySubmission, now.Add(time.Second)), protocol.ErrRateLimited)
}

func TestSetCooldown(t *testing.T) {
	g := New("alice", 30*time.Second)
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	g.RecordAction("bob", CategorySubmission, start)
	require.ErrorIs(t, g.CheckCooldown("bob", CategorySubmission, start.Add(5*time.Second)), protocol.ErrRateLimited)

	// Shrinking the window applies to existing ledger entries immediately.
	g.SetCooldown(time.Second)
	require.Equal(t, time.Second, g.Cooldown())
	require.NoError(t, g.CheckCooldown("bob", CategorySubmission, start.Add(5*time.Second)))
}
