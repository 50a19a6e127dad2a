// Package testutil provides shared fixtures for exercising the batch
// protocol against the local plaintext scheme and oracle.
package testutil

import (
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/geobarrowsa3/Clue-FHE/crypto"
	"github.com/geobarrowsa3/Clue-FHE/fhe"
	"github.com/geobarrowsa3/Clue-FHE/game"
	"github.com/geobarrowsa3/Clue-FHE/protocol"
)

// Identity is a signing participant in tests.
type Identity struct {
	PublicKey  crypto.PublicKey
	PrivateKey crypto.PrivateKey
}

// NewIdentity generates a fresh test identity.
func NewIdentity(t *testing.T) Identity {
	t.Helper()
	pub, priv, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	return Identity{PublicKey: pub, PrivateKey: priv}
}

// String returns the identity string the coordinator keys state by.
func (id Identity) String() string {
	return id.PublicKey.String()
}

// Clock is a manually advanced time source for cooldown tests.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock starts a clock at a fixed instant.
func NewClock() *Clock {
	return &Clock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

// Now returns the current instant.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// Rig bundles a coordinator wired to the local scheme and oracle.
type Rig struct {
	Coord  *game.Coordinator
	Scheme *fhe.LocalScheme
	Oracle *fhe.LocalOracle
	Owner  Identity
	Clock  *Clock
}

// NewRig builds a coordinator with the given config and a fresh owner.
// The oracle is left in manual-delivery mode; call DeliverAndSettle to
// flush replies.
func NewRig(t *testing.T, cfg protocol.GameConfig) *Rig {
	t.Helper()

	owner := NewIdentity(t)
	scheme := fhe.NewLocalScheme()
	oracle, err := fhe.NewLocalOracle(scheme)
	require.NoError(t, err)

	clock := NewClock()
	coord, err := game.New(cfg, owner.String(), scheme, oracle, Logger(), game.WithClock(clock.Now))
	require.NoError(t, err)

	return &Rig{Coord: coord, Scheme: scheme, Oracle: oracle, Owner: owner, Clock: clock}
}

// DeliverAndSettle flushes all pending oracle replies through the
// coordinator, returning the settlement error of the last reply.
func (r *Rig) DeliverAndSettle(t *testing.T) error {
	t.Helper()
	require.NoError(t, r.Oracle.DeliverPending())

	var last error
	for {
		select {
		case reply := <-r.Oracle.Replies():
			_, last = r.Coord.Settle(reply)
		default:
			return last
		}
	}
}

// Contribution encrypts a (weapon, room, suspect) triple.
func Contribution(t *testing.T, scheme *fhe.LocalScheme, weapon, room, suspect uint64) protocol.Contribution {
	t.Helper()

	var c protocol.Contribution
	for f, v := range map[protocol.Field]uint64{
		protocol.FieldWeapon:  weapon,
		protocol.FieldRoom:    room,
		protocol.FieldSuspect: suspect,
	} {
		h, err := scheme.Encrypt(v)
		require.NoError(t, err)
		c.Set(f, h)
	}
	return c
}

// Logger returns a quiet test logger.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}
