// Package disclosure tracks pending decryption contexts and settles oracle
// replies exactly once. Every request is bound to a commitment over the
// exact handles disclosed and to the protocol version at request time; both
// bindings are rechecked at settlement.
package disclosure

import (
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"sync"

	"go.uber.org/atomic"

	"github.com/geobarrowsa3/Clue-FHE/crypto"
	"github.com/geobarrowsa3/Clue-FHE/protocol"
)

// Kind identifies the expected cleartext shape of a request.
type Kind int

const (
	// KindAccusation expects a single opaque boolean: guess equals aggregate.
	KindAccusation Kind = iota

	// KindSolution expects the three raw aggregates.
	KindSolution
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindAccusation:
		return "accusation"
	case KindSolution:
		return "solution"
	}
	return "unknown"
}

// Context is the pending state of one disclosure request. Contexts are
// created at request time, settled at most once, and never deleted: a
// context whose binding version has fallen behind is permanently
// unsettleable but remains visible for audit.
type Context struct {
	RequestID      protocol.RequestID
	BatchID        uint64
	Kind           Kind
	BindingVersion uint64
	Commitment     crypto.Digest
	Processed      bool
}

// Result is a decoded settlement outcome.
type Result struct {
	RequestID protocol.RequestID `json:"request_id"`
	BatchID   uint64             `json:"batch_id"`
	Kind      Kind               `json:"kind"`

	// Correct is set for accusation settlements.
	Correct bool `json:"correct,omitempty"`

	// Weapon, Room and Suspect are set for solution settlements.
	Weapon  uint64 `json:"weapon,omitempty"`
	Room    uint64 `json:"room,omitempty"`
	Suspect uint64 `json:"suspect,omitempty"`
}

// wordSize is the cleartext encoding width of one disclosed value.
const wordSize = 8

// Coordinator issues commitment-bound disclosure requests and settles their
// replies. The version pointer is shared with the owning protocol-state
// object; bumping it atomically invalidates every in-flight context without
// enumerating them.
type Coordinator struct {
	mu        sync.Mutex
	oracle    protocol.Oracle
	version   *atomic.Uint64
	domainTag string
	log       *slog.Logger

	contexts map[protocol.RequestID]*Context
	results  map[protocol.RequestID]*Result
}

// NewCoordinator creates a disclosure coordinator bound to the given oracle
// and the shared protocol version counter.
func NewCoordinator(oracle protocol.Oracle, version *atomic.Uint64, domainTag string, log *slog.Logger) *Coordinator {
	if log == nil {
		log = slog.Default()
	}
	return &Coordinator{
		oracle:    oracle,
		version:   version,
		domainTag: domainTag,
		log:       log.With("component", "disclosure"),
		contexts:  make(map[protocol.RequestID]*Context),
		results:   make(map[protocol.RequestID]*Result),
	}
}

// RequestDisclosure commits to the given handles, forwards the request to
// the oracle, and tracks the pending context under the oracle-assigned id.
// The function returns as soon as the request is issued; the disclosure
// itself arrives asynchronously.
func (c *Coordinator) RequestDisclosure(ctx context.Context, batchID uint64, kind Kind, values []protocol.Handle) (protocol.RequestID, error) {
	commitment := c.commit(values)

	requestID, err := c.oracle.RequestDisclosure(ctx, values)
	if err != nil {
		return 0, fmt.Errorf("oracle request: %w", err)
	}

	c.mu.Lock()
	c.contexts[requestID] = &Context{
		RequestID:      requestID,
		BatchID:        batchID,
		Kind:           kind,
		BindingVersion: c.version.Load(),
		Commitment:     commitment,
	}
	c.mu.Unlock()

	c.log.Info("disclosure requested",
		"requestID", uint64(requestID),
		"batchID", batchID,
		"kind", kind.String(),
		"commitment", fmt.Sprintf("%x", commitment[:8]),
	)
	return requestID, nil
}

// Settle processes one oracle reply exactly once.
//
// The rebuild callback recomputes the current canonical handle set for the
// context's batch from live state, not the set captured at request time.
// Because aggregation keeps running while a batch is open, a submission may
// land between request issuance and reply arrival; the commitment recheck
// catches that drift and rejects the reply instead of disclosing a stale
// aggregate. The version check independently rejects contexts orphaned by an
// administrative version bump.
func (c *Coordinator) Settle(requestID protocol.RequestID, cleartext, proof []byte, rebuild func() ([]protocol.Handle, error)) (*Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ctxt, ok := c.contexts[requestID]
	if !ok {
		return nil, protocol.ErrUnknownRequest
	}
	if ctxt.Processed {
		return nil, protocol.ErrAlreadyProcessed
	}
	if ctxt.BindingVersion != c.version.Load() {
		return nil, protocol.ErrStaleVersion
	}

	rebuilt, err := rebuild()
	if err != nil {
		return nil, fmt.Errorf("rebuilding canonical handles: %w", err)
	}
	if c.commit(rebuilt) != ctxt.Commitment {
		return nil, fmt.Errorf("commitment mismatch for request %d: %w", requestID, protocol.ErrInvalidState)
	}

	if err := c.oracle.Verify(requestID, cleartext, proof); err != nil {
		return nil, fmt.Errorf("verifying disclosure proof: %w", err)
	}

	result, err := decode(ctxt, cleartext)
	if err != nil {
		return nil, err
	}

	ctxt.Processed = true
	c.results[requestID] = result

	c.log.Info("disclosure settled",
		"requestID", uint64(requestID),
		"batchID", ctxt.BatchID,
		"kind", ctxt.Kind.String(),
	)
	return result, nil
}

// Context returns a copy of the tracked context for a request id.
func (c *Coordinator) Context(requestID protocol.RequestID) (Context, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ctxt, ok := c.contexts[requestID]
	if !ok {
		return Context{}, false
	}
	return *ctxt, true
}

// Result returns the settlement result for a processed request id.
func (c *Coordinator) Result(requestID protocol.RequestID) (*Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.results[requestID]
	return r, ok
}

func (c *Coordinator) commit(values []protocol.Handle) crypto.Digest {
	raw := make([][]byte, len(values))
	for i, v := range values {
		raw[i] = v.Bytes()
	}
	return crypto.Commitment(raw, c.domainTag)
}

// decode maps the cleartext wire encoding to the context's expected result
// shape: one word for accusations, three words for solutions.
func decode(ctxt *Context, cleartext []byte) (*Result, error) {
	result := &Result{
		RequestID: ctxt.RequestID,
		BatchID:   ctxt.BatchID,
		Kind:      ctxt.Kind,
	}

	switch ctxt.Kind {
	case KindAccusation:
		if len(cleartext) != wordSize {
			return nil, fmt.Errorf("accusation cleartext must be %d bytes, got %d", wordSize, len(cleartext))
		}
		result.Correct = binary.BigEndian.Uint64(cleartext) != 0
	case KindSolution:
		if len(cleartext) != 3*wordSize {
			return nil, fmt.Errorf("solution cleartext must be %d bytes, got %d", 3*wordSize, len(cleartext))
		}
		result.Weapon = binary.BigEndian.Uint64(cleartext[0:wordSize])
		result.Room = binary.BigEndian.Uint64(cleartext[wordSize : 2*wordSize])
		result.Suspect = binary.BigEndian.Uint64(cleartext[2*wordSize : 3*wordSize])
	default:
		return nil, fmt.Errorf("unknown disclosure kind %d", ctxt.Kind)
	}
	return result, nil
}
