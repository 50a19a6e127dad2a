// Package guard enforces access control for the batch protocol: the single
// owner identity, the provider set, the global pause flag, and the
// per-identity per-category rate-limit ledger.
package guard

import (
	"sync"
	"time"

	"github.com/geobarrowsa3/Clue-FHE/protocol"
)

// Category separates the rate-limit ledger by action type. Submissions and
// disclosure requests are throttled independently.
type Category int

const (
	CategorySubmission Category = iota
	CategoryRequest
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategorySubmission:
		return "submission"
	case CategoryRequest:
		return "request"
	}
	return "unknown"
}

type ledgerKey struct {
	identity string
	category Category
}

// AccessGuard tracks roles, the pause flag and the cooldown ledger. All
// methods are safe for concurrent use.
type AccessGuard struct {
	mu         sync.Mutex
	owner      string
	providers  map[string]bool
	paused     bool
	cooldown   time.Duration
	lastAction map[ledgerKey]time.Time
}

// New creates an AccessGuard with the given owner identity and cooldown.
func New(owner string, cooldown time.Duration) *AccessGuard {
	return &AccessGuard{
		owner:      owner,
		providers:  make(map[string]bool),
		cooldown:   cooldown,
		lastAction: make(map[ledgerKey]time.Time),
	}
}

// RequireOwner fails with ErrNotOwner unless caller is the owner identity.
func (g *AccessGuard) RequireOwner(caller string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if caller != g.owner {
		return protocol.ErrNotOwner
	}
	return nil
}

// RequireProvider fails with ErrNotProvider unless caller is a registered
// provider. The owner is implicitly a provider.
func (g *AccessGuard) RequireProvider(caller string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if caller != g.owner && !g.providers[caller] {
		return protocol.ErrNotProvider
	}
	return nil
}

// RequireUnpaused fails with ErrPaused while the circuit breaker is engaged.
func (g *AccessGuard) RequireUnpaused() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.paused {
		return protocol.ErrPaused
	}
	return nil
}

// CheckCooldown fails with ErrRateLimited if now falls inside the identity's
// cooldown window for the category. The ledger is not touched: callers check
// with the other preconditions and call RecordAction only once the whole
// operation has succeeded, so a failed operation never consumes the window.
func (g *AccessGuard) CheckCooldown(identity string, category Category, now time.Time) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	key := ledgerKey{identity: identity, category: category}
	if last, ok := g.lastAction[key]; ok && now.Before(last.Add(g.cooldown)) {
		return protocol.ErrRateLimited
	}
	return nil
}

// RecordAction records now as the identity's last-action time for the
// category, starting a new cooldown window.
func (g *AccessGuard) RecordAction(identity string, category Category, now time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.lastAction[ledgerKey{identity: identity, category: category}] = now
}

// AddProvider registers a provider identity.
func (g *AccessGuard) AddProvider(identity string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.providers[identity] = true
}

// RemoveProvider removes a provider identity.
func (g *AccessGuard) RemoveProvider(identity string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.providers, identity)
}

// IsProvider reports whether identity is in the provider set.
func (g *AccessGuard) IsProvider(identity string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.providers[identity]
}

// Pause engages the global circuit breaker.
func (g *AccessGuard) Pause() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.paused = true
}

// Unpause releases the global circuit breaker.
func (g *AccessGuard) Unpause() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.paused = false
}

// Paused reports the current pause state.
func (g *AccessGuard) Paused() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.paused
}

// SetCooldown replaces the cooldown duration shared across categories.
// Ledger entries recorded under the previous duration keep their timestamps;
// the new duration applies on the next check.
func (g *AccessGuard) SetCooldown(d time.Duration) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cooldown = d
}

// Cooldown returns the current cooldown duration.
func (g *AccessGuard) Cooldown() time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.cooldown
}

// Owner returns the owner identity.
func (g *AccessGuard) Owner() string {
	return g.owner
}
