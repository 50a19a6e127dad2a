// Package batch implements the batch lifecycle store and the aggregation
// engine that folds opaque contributions into per-batch running aggregates.
package batch

import (
	"sync"

	"github.com/geobarrowsa3/Clue-FHE/protocol"
)

// Batch is one bounded collection window. Batches are created by OpenBatch,
// mutated by submissions while open, closed by CloseBatch and retained
// forever for audit.
type Batch struct {
	id              uint64
	open            bool
	submissionCount int

	// aggregates holds the running opaque sums per field. A missing entry
	// means the aggregate is uninitialized; the engine lazily seeds it with
	// the scheme's additive identity on first combine.
	aggregates map[protocol.Field]protocol.Handle

	// submitted dedups contributors; an identity contributes at most once.
	submitted map[string]bool

	// accused dedups accusations; independent of the contribution set so a
	// contributor may still accuse the batch it contributed to.
	accused map[string]bool

	// requested dedups solution-disclosure requesters.
	requested map[string]bool
}

// Info is a read-only snapshot of a batch's public state.
type Info struct {
	ID              uint64 `json:"id"`
	Open            bool   `json:"open"`
	SubmissionCount int    `json:"submission_count"`
}

// Store owns every batch and the monotonically increasing batch id counter.
// All methods are safe for concurrent use; cross-store atomicity for
// multi-step workflows is the game coordinator's job.
type Store struct {
	mu           sync.RWMutex
	maxBatchSize int
	nextID       uint64
	batches      map[uint64]*Batch
}

// NewStore creates an empty store with the given per-batch submission bound.
func NewStore(maxBatchSize int) *Store {
	return &Store{
		maxBatchSize: maxBatchSize,
		batches:      make(map[uint64]*Batch),
	}
}

// OpenBatch allocates the next batch id, marks the batch open and returns
// the id. Authorization is enforced by the caller.
func (s *Store) OpenBatch() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	id := s.nextID
	s.batches[id] = &Batch{
		id:         id,
		open:       true,
		aggregates: make(map[protocol.Field]protocol.Handle),
		submitted:  make(map[string]bool),
		accused:    make(map[string]bool),
		requested:  make(map[string]bool),
	}
	return id
}

// CloseBatch marks an open batch closed. Closed is terminal for new
// contributions; disclosure requests remain possible.
func (s *Store) CloseBatch(id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.batches[id]
	if !ok {
		return protocol.ErrInvalidBatch
	}
	if !b.open {
		return protocol.ErrBatchClosed
	}
	b.open = false
	return nil
}

// CheckSubmission validates the preconditions of RecordSubmission without
// mutating anything. Workflows call this before computing aggregates so a
// failure never leaves a partial mutation behind.
func (s *Store) CheckSubmission(id uint64, identity string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.batches[id]
	if !ok {
		return protocol.ErrInvalidBatch
	}
	return b.checkSubmission(identity, s.maxBatchSize)
}

// RecordSubmission registers identity as a contributor to an open batch,
// incrementing the submission count. Fails with ErrBatchClosed if the batch
// is not open, ErrBatchFull at the bound, and ErrInvalidState on a repeat
// identity.
func (s *Store) RecordSubmission(id uint64, identity string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.batches[id]
	if !ok {
		return protocol.ErrInvalidBatch
	}
	if err := b.checkSubmission(identity, s.maxBatchSize); err != nil {
		return err
	}
	b.submissionCount++
	b.submitted[identity] = true
	return nil
}

func (b *Batch) checkSubmission(identity string, maxBatchSize int) error {
	if !b.open {
		return protocol.ErrBatchClosed
	}
	if b.submissionCount == maxBatchSize {
		return protocol.ErrBatchFull
	}
	if b.submitted[identity] {
		return protocol.ErrInvalidState
	}
	return nil
}

// CheckAccusation validates the preconditions of RecordAccusation without
// mutating anything.
func (s *Store) CheckAccusation(id uint64, identity string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.batches[id]
	if !ok {
		return protocol.ErrInvalidBatch
	}
	return b.checkAccusation(identity)
}

// RecordAccusation registers identity as an accuser of an open batch. An
// identity accuses a batch at most once.
func (s *Store) RecordAccusation(id uint64, identity string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.batches[id]
	if !ok {
		return protocol.ErrInvalidBatch
	}
	if err := b.checkAccusation(identity); err != nil {
		return err
	}
	b.accused[identity] = true
	return nil
}

func (b *Batch) checkAccusation(identity string) error {
	if !b.open {
		return protocol.ErrBatchClosed
	}
	if b.accused[identity] {
		return protocol.ErrInvalidState
	}
	return nil
}

// CheckDisclosureRequest validates the preconditions of
// RecordDisclosureRequest without mutating anything.
func (s *Store) CheckDisclosureRequest(id uint64, identity string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.batches[id]
	if !ok {
		return protocol.ErrInvalidBatch
	}
	return b.checkDisclosureRequest(identity)
}

// RecordDisclosureRequest registers identity as a solution requester. Fails
// with ErrInvalidBatch on an empty batch and ErrInvalidState on a repeat
// identity. Requests are independent of batch open state.
func (s *Store) RecordDisclosureRequest(id uint64, identity string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.batches[id]
	if !ok {
		return protocol.ErrInvalidBatch
	}
	if err := b.checkDisclosureRequest(identity); err != nil {
		return err
	}
	b.requested[identity] = true
	return nil
}

func (b *Batch) checkDisclosureRequest(identity string) error {
	if b.submissionCount == 0 {
		return protocol.ErrInvalidBatch
	}
	if b.requested[identity] {
		return protocol.ErrInvalidState
	}
	return nil
}

// Aggregate returns the running aggregate for one field, with ok reporting
// whether it has been initialized.
func (s *Store) Aggregate(id uint64, field protocol.Field) (protocol.Handle, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.batches[id]
	if !ok {
		return protocol.Handle{}, false, protocol.ErrInvalidBatch
	}
	h, initialized := b.aggregates[field]
	return h, initialized, nil
}

// Aggregates returns the three current aggregates in canonical field order.
// Fails with ErrInvalidBatch if any aggregate is still uninitialized, which
// is only the case before the first submission.
func (s *Store) Aggregates(id uint64) (protocol.Contribution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.batches[id]
	if !ok {
		return protocol.Contribution{}, protocol.ErrInvalidBatch
	}

	var c protocol.Contribution
	for _, f := range protocol.Fields() {
		h, initialized := b.aggregates[f]
		if !initialized {
			return protocol.Contribution{}, protocol.ErrInvalidBatch
		}
		c.Set(f, h)
	}
	return c, nil
}

// storeAggregates commits recomputed aggregates for an open batch. Used by
// the engine after all combines for a submission have succeeded, so either
// every field advances or none does.
func (s *Store) storeAggregates(id uint64, aggs map[protocol.Field]protocol.Handle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.batches[id]
	if !ok {
		return protocol.ErrInvalidBatch
	}
	if !b.open {
		return protocol.ErrBatchClosed
	}
	for f, h := range aggs {
		b.aggregates[f] = h
	}
	return nil
}

// Info returns a read-only snapshot of a batch.
func (s *Store) Info(id uint64) (Info, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.batches[id]
	if !ok {
		return Info{}, protocol.ErrInvalidBatch
	}
	return Info{ID: b.id, Open: b.open, SubmissionCount: b.submissionCount}, nil
}

// HasSubmitted reports whether identity already contributed to the batch.
func (s *Store) HasSubmitted(id uint64, identity string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.batches[id]
	return ok && b.submitted[identity]
}

// CurrentID returns the most recently allocated batch id, zero if none.
func (s *Store) CurrentID() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nextID
}
