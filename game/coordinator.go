// Package game wires the access guard, batch store, aggregation engine and
// disclosure coordinator into the protocol's two call patterns: encrypted
// accusations ("does my guess equal the aggregate") and solution disclosure
// ("reveal the raw aggregates"). The Coordinator is the single protocol-state
// object: the version counter and batch id allocation live here, not in
// package-level globals.
package game

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.uber.org/atomic"

	"github.com/geobarrowsa3/Clue-FHE/batch"
	"github.com/geobarrowsa3/Clue-FHE/disclosure"
	"github.com/geobarrowsa3/Clue-FHE/guard"
	"github.com/geobarrowsa3/Clue-FHE/protocol"
)

// Coordinator orchestrates the commit/aggregate/disclose lifecycle. Every
// state-mutating operation runs under a single mutex so no two operations
// observe a torn intermediate state; the asynchronous gap between disclosure
// request and reply is guarded by the commitment and version checks instead
// of locking.
type Coordinator struct {
	mu  sync.Mutex
	cfg protocol.GameConfig
	log *slog.Logger

	guard      *guard.AccessGuard
	store      *batch.Store
	engine     *batch.Engine
	disclosure *disclosure.Coordinator
	scheme     protocol.Scheme
	oracle     protocol.Oracle

	// version is the process-wide protocol epoch. Bumping it invalidates
	// every in-flight disclosure context at once.
	version *atomic.Uint64

	// accusations retains each accusation's guess so settlement can
	// genuinely recompute the equality result from live aggregates rather
	// than replay a constant.
	accusations map[protocol.RequestID]accusationRecord

	now func() time.Time
}

type accusationRecord struct {
	batchID uint64
	guess   protocol.Contribution
}

// Option customizes a Coordinator.
type Option func(*Coordinator)

// WithClock injects a deterministic time source. Only used in tests.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

// New creates a Coordinator with the given owner identity, opaque scheme and
// disclosure oracle.
func New(cfg protocol.GameConfig, owner string, scheme protocol.Scheme, oracle protocol.Oracle, log *slog.Logger, opts ...Option) (*Coordinator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid game config: %w", err)
	}
	if log == nil {
		log = slog.Default()
	}

	version := atomic.NewUint64(0)
	store := batch.NewStore(cfg.MaxBatchSize)

	c := &Coordinator{
		cfg:         cfg,
		log:         log.With("component", "game"),
		guard:       guard.New(owner, cfg.Cooldown),
		store:       store,
		engine:      batch.NewEngine(store, scheme),
		disclosure:  disclosure.NewCoordinator(oracle, version, cfg.DomainTag, log),
		scheme:      scheme,
		oracle:      oracle,
		version:     version,
		accusations: make(map[protocol.RequestID]accusationRecord),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// OpenBatch allocates and opens the next batch. Owner-only.
func (c *Coordinator) OpenBatch(caller string) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.guard.RequireOwner(caller); err != nil {
		return 0, err
	}
	id := c.store.OpenBatch()
	c.log.Info("batch opened", "batchID", id)
	return id, nil
}

// CloseBatch closes an open batch. Owner-only. Closed is terminal for new
// contributions but does not block solution-disclosure requests.
func (c *Coordinator) CloseBatch(caller string, batchID uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.guard.RequireOwner(caller); err != nil {
		return err
	}
	if err := c.store.CloseBatch(batchID); err != nil {
		return err
	}
	c.log.Info("batch closed", "batchID", batchID)
	return nil
}

// SubmitContribution folds an opaque contribution into an open batch's
// aggregates. Preconditions (pause flag, batch state, dedup, cooldown) are
// all checked before anything is mutated: a rejected submission consumes
// neither the cooldown window nor a batch slot.
func (c *Coordinator) SubmitContribution(ctx context.Context, caller string, batchID uint64, contribution protocol.Contribution) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.guard.RequireUnpaused(); err != nil {
		return err
	}
	if err := c.store.CheckSubmission(batchID, caller); err != nil {
		return err
	}

	if err := c.guard.CheckCooldown(caller, guard.CategorySubmission, c.now()); err != nil {
		return err
	}

	// Stage the combine before committing anything.
	next, err := c.engine.ComputeAbsorbed(batchID, contribution)
	if err != nil {
		return err
	}

	if err := c.store.RecordSubmission(batchID, caller); err != nil {
		return err
	}
	if err := c.engine.Commit(batchID, next); err != nil {
		return err
	}
	c.guard.RecordAction(caller, guard.CategorySubmission, c.now())

	c.log.Info("contribution recorded", "batchID", batchID, "identity", short(caller))
	return nil
}

// SubmitAccusation compares a guess against the batch aggregates under
// encryption and requests disclosure of the single combined boolean. The
// eventual settlement yields accusation correct/incorrect for this caller
// and batch. An identity accuses a batch at most once.
func (c *Coordinator) SubmitAccusation(ctx context.Context, caller string, batchID uint64, guess protocol.Contribution) (protocol.RequestID, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.guard.RequireUnpaused(); err != nil {
		return 0, err
	}
	if err := c.store.CheckAccusation(batchID, caller); err != nil {
		return 0, err
	}
	if err := c.guard.CheckCooldown(caller, guard.CategoryRequest, c.now()); err != nil {
		return 0, err
	}

	verdict, err := c.equalityResult(batchID, guess)
	if err != nil {
		return 0, err
	}

	// Nothing is mutated until the oracle request succeeds.
	requestID, err := c.disclosure.RequestDisclosure(ctx, batchID, disclosure.KindAccusation, []protocol.Handle{verdict})
	if err != nil {
		return 0, err
	}
	if err := c.store.RecordAccusation(batchID, caller); err != nil {
		return 0, err
	}
	c.accusations[requestID] = accusationRecord{batchID: batchID, guess: guess}
	c.guard.RecordAction(caller, guard.CategoryRequest, c.now())

	c.log.Info("accusation submitted", "batchID", batchID, "requestID", uint64(requestID), "identity", short(caller))
	return requestID, nil
}

// RequestSolution requests disclosure of the batch's three raw aggregates.
// Requires at least one submission and dedups requesters per batch.
func (c *Coordinator) RequestSolution(ctx context.Context, caller string, batchID uint64) (protocol.RequestID, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.guard.RequireUnpaused(); err != nil {
		return 0, err
	}
	if err := c.store.CheckDisclosureRequest(batchID, caller); err != nil {
		return 0, err
	}
	if err := c.guard.CheckCooldown(caller, guard.CategoryRequest, c.now()); err != nil {
		return 0, err
	}

	aggs, err := c.store.Aggregates(batchID)
	if err != nil {
		return 0, err
	}

	requestID, err := c.disclosure.RequestDisclosure(ctx, batchID, disclosure.KindSolution, aggs.Handles())
	if err != nil {
		return 0, err
	}
	if err := c.store.RecordDisclosureRequest(batchID, caller); err != nil {
		return 0, err
	}
	c.guard.RecordAction(caller, guard.CategoryRequest, c.now())

	c.log.Info("solution requested", "batchID", batchID, "requestID", uint64(requestID), "identity", short(caller))
	return requestID, nil
}

// Settle applies one oracle reply. The rebuild closure recomputes the
// canonical handle set for the request's kind from live batch state, so any
// aggregate drift since request time surfaces as a commitment mismatch.
func (c *Coordinator) Settle(reply protocol.DisclosureReply) (*disclosure.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ctxt, ok := c.disclosure.Context(reply.RequestID)
	if !ok {
		return nil, protocol.ErrUnknownRequest
	}

	var rebuild func() ([]protocol.Handle, error)
	switch ctxt.Kind {
	case disclosure.KindSolution:
		rebuild = func() ([]protocol.Handle, error) {
			aggs, err := c.store.Aggregates(ctxt.BatchID)
			if err != nil {
				return nil, err
			}
			return aggs.Handles(), nil
		}
	case disclosure.KindAccusation:
		record, ok := c.accusations[reply.RequestID]
		if !ok {
			return nil, protocol.ErrUnknownRequest
		}
		rebuild = func() ([]protocol.Handle, error) {
			verdict, err := c.equalityResult(record.batchID, record.guess)
			if err != nil {
				return nil, err
			}
			return []protocol.Handle{verdict}, nil
		}
	default:
		return nil, fmt.Errorf("unknown disclosure kind %d", ctxt.Kind)
	}

	return c.disclosure.Settle(reply.RequestID, reply.Cleartext, reply.Proof, rebuild)
}

// Run consumes the oracle reply stream until ctx is done, settling each
// reply as it arrives. Settlement failures are logged and dropped; the
// context remains pending (or permanently stale) for audit.
func (c *Coordinator) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case reply, ok := <-c.oracle.Replies():
			if !ok {
				return
			}
			if _, err := c.Settle(reply); err != nil {
				c.log.Warn("settlement rejected", "requestID", uint64(reply.RequestID), "err", err)
			}
		}
	}
}

// equalityResult computes eq(aggregate, guess) per field, combined with
// logical AND. Uninitialized aggregates compare against the additive
// identity, consistent with the engine's lazy-zero-init policy.
func (c *Coordinator) equalityResult(batchID uint64, guess protocol.Contribution) (protocol.Handle, error) {
	verdict, err := c.scheme.ConstantBool(true)
	if err != nil {
		return protocol.Handle{}, err
	}
	for _, f := range protocol.Fields() {
		agg, err := c.engine.CurrentOrIdentity(batchID, f)
		if err != nil {
			return protocol.Handle{}, err
		}
		eq, err := c.scheme.CompareEqual(agg, guess.Get(f))
		if err != nil {
			return protocol.Handle{}, err
		}
		verdict, err = c.scheme.LogicalAnd(verdict, eq)
		if err != nil {
			return protocol.Handle{}, err
		}
	}
	return verdict, nil
}

func short(identity string) string {
	if len(identity) > 8 {
		return identity[:8]
	}
	return identity
}
