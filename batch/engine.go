package batch

import (
	"fmt"

	"github.com/geobarrowsa3/Clue-FHE/protocol"
)

// Engine folds opaque contributions into a batch's running aggregates using
// the external combine capability.
//
// Aggregates are lazily zero-initialized: an uninitialized field is first
// seeded with the scheme's additive identity, so the very first contribution
// becomes the seed of the sum without a special-cased first-submitter branch.
type Engine struct {
	store  *Store
	scheme protocol.Scheme
}

// NewEngine creates an aggregation engine over the given store and scheme.
func NewEngine(store *Store, scheme protocol.Scheme) *Engine {
	return &Engine{store: store, scheme: scheme}
}

// CombineIfNeeded merges a single field's contribution into the batch
// aggregate, seeding the aggregate with the additive identity first if it is
// uninitialized. The new aggregate is committed only after the combine
// succeeds.
func (e *Engine) CombineIfNeeded(batchID uint64, field protocol.Field, contribution protocol.Handle) error {
	next, err := e.combined(batchID, field, contribution)
	if err != nil {
		return err
	}
	return e.store.storeAggregates(batchID, map[protocol.Field]protocol.Handle{field: next})
}

// Absorb merges a full contribution across all three fields. All combines
// are computed first and committed together, so a combine failure on any
// field leaves every aggregate untouched.
func (e *Engine) Absorb(batchID uint64, c protocol.Contribution) error {
	next, err := e.ComputeAbsorbed(batchID, c)
	if err != nil {
		return err
	}
	return e.store.storeAggregates(batchID, next)
}

// ComputeAbsorbed computes the post-absorb aggregates for a contribution
// without committing them. Workflows use this to stage the combine before
// any state mutation.
func (e *Engine) ComputeAbsorbed(batchID uint64, c protocol.Contribution) (map[protocol.Field]protocol.Handle, error) {
	next := make(map[protocol.Field]protocol.Handle, 3)
	for _, f := range protocol.Fields() {
		h, err := e.combined(batchID, f, c.Get(f))
		if err != nil {
			return nil, fmt.Errorf("combining %s: %w", f, err)
		}
		next[f] = h
	}
	return next, nil
}

// Commit stores previously computed aggregates for an open batch.
func (e *Engine) Commit(batchID uint64, aggs map[protocol.Field]protocol.Handle) error {
	return e.store.storeAggregates(batchID, aggs)
}

// CurrentOrIdentity returns the batch's aggregate for a field, or the
// scheme's additive identity if the aggregate is uninitialized.
func (e *Engine) CurrentOrIdentity(batchID uint64, field protocol.Field) (protocol.Handle, error) {
	cur, initialized, err := e.store.Aggregate(batchID, field)
	if err != nil {
		return protocol.Handle{}, err
	}
	if !initialized {
		return e.scheme.AdditiveIdentity()
	}
	return cur, nil
}

func (e *Engine) combined(batchID uint64, field protocol.Field, contribution protocol.Handle) (protocol.Handle, error) {
	cur, err := e.CurrentOrIdentity(batchID, field)
	if err != nil {
		return protocol.Handle{}, err
	}
	return e.scheme.Combine(cur, contribution)
}
