package game

import (
	"time"

	"github.com/geobarrowsa3/Clue-FHE/batch"
	"github.com/geobarrowsa3/Clue-FHE/disclosure"
	"github.com/geobarrowsa3/Clue-FHE/protocol"
)

// The administrative surface. Every mutation here is owner-only.

// AddProvider registers a provider identity. Providers are authorized to
// deliver disclosure callbacks through the HTTP gateway.
func (c *Coordinator) AddProvider(caller, identity string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.guard.RequireOwner(caller); err != nil {
		return err
	}
	c.guard.AddProvider(identity)
	c.log.Info("provider added", "identity", short(identity))
	return nil
}

// RemoveProvider removes a provider identity.
func (c *Coordinator) RemoveProvider(caller, identity string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.guard.RequireOwner(caller); err != nil {
		return err
	}
	c.guard.RemoveProvider(identity)
	c.log.Info("provider removed", "identity", short(identity))
	return nil
}

// Pause engages the global circuit breaker. Paused state blocks every
// participant operation until Unpause.
func (c *Coordinator) Pause(caller string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.guard.RequireOwner(caller); err != nil {
		return err
	}
	c.guard.Pause()
	c.log.Warn("protocol paused")
	return nil
}

// Unpause releases the global circuit breaker.
func (c *Coordinator) Unpause(caller string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.guard.RequireOwner(caller); err != nil {
		return err
	}
	c.guard.Unpause()
	c.log.Info("protocol unpaused")
	return nil
}

// SetCooldown replaces the shared cooldown duration.
func (c *Coordinator) SetCooldown(caller string, d time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.guard.RequireOwner(caller); err != nil {
		return err
	}
	c.guard.SetCooldown(d)
	c.log.Info("cooldown updated", "cooldown", d.String())
	return nil
}

// BumpVersion increments the protocol epoch, permanently invalidating every
// in-flight disclosure context without enumerating them. Contexts are not
// deleted; they remain visible as stale for audit.
func (c *Coordinator) BumpVersion(caller string) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.guard.RequireOwner(caller); err != nil {
		return 0, err
	}
	v := c.version.Inc()
	c.log.Warn("protocol version bumped", "version", v)
	return v, nil
}

// Version returns the current protocol epoch.
func (c *Coordinator) Version() uint64 {
	return c.version.Load()
}

// RequireProvider exposes the provider check for the callback delivery path.
func (c *Coordinator) RequireProvider(caller string) error {
	return c.guard.RequireProvider(caller)
}

// BatchInfo returns a read-only snapshot of a batch.
func (c *Coordinator) BatchInfo(batchID uint64) (batch.Info, error) {
	return c.store.Info(batchID)
}

// RequestContext returns the tracked disclosure context for a request id.
func (c *Coordinator) RequestContext(requestID protocol.RequestID) (disclosure.Context, bool) {
	return c.disclosure.Context(requestID)
}

// RequestResult returns the settlement result for a processed request id.
func (c *Coordinator) RequestResult(requestID protocol.RequestID) (*disclosure.Result, bool) {
	return c.disclosure.Result(requestID)
}
