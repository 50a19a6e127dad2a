package fhe

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/geobarrowsa3/Clue-FHE/protocol"
)

// ErrInvalidProof is returned when a reply's proof does not verify.
var ErrInvalidProof = errors.New("disclosure proof not valid")

type pendingRequest struct {
	id     protocol.RequestID
	values []protocol.Handle
}

// LocalOracle implements protocol.Oracle against a LocalScheme. Requests
// return synchronously with a fresh id; replies are delivered out-of-band on
// the reply channel, either by the background loop started with Start or
// manually via DeliverPending for deterministic tests.
type LocalOracle struct {
	mu       sync.Mutex
	scheme   *LocalScheme
	proofKey []byte
	nextID   protocol.RequestID
	pending  []pendingRequest
	replies  chan protocol.DisclosureReply
	delay    time.Duration
}

// NewLocalOracle creates an oracle over the given scheme with a random
// proof key.
func NewLocalOracle(scheme *LocalScheme) (*LocalOracle, error) {
	key := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, fmt.Errorf("generating proof key: %w", err)
	}
	return &LocalOracle{
		scheme:   scheme,
		proofKey: key,
		replies:  make(chan protocol.DisclosureReply, 64),
		delay:    10 * time.Millisecond,
	}, nil
}

// SetDelay adjusts the background delivery interval.
func (o *LocalOracle) SetDelay(d time.Duration) {
	o.mu.Lock()
	o.delay = d
	o.mu.Unlock()
}

// RequestDisclosure queues a disclosure of the given handles and returns a
// fresh request id. Ids are never reused.
func (o *LocalOracle) RequestDisclosure(ctx context.Context, values []protocol.Handle) (protocol.RequestID, error) {
	if len(values) == 0 {
		return 0, errors.New("no values to disclose")
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	o.nextID++
	id := o.nextID
	vs := make([]protocol.Handle, len(values))
	copy(vs, values)
	o.pending = append(o.pending, pendingRequest{id: id, values: vs})
	return id, nil
}

// DeliverPending decrypts every queued request and pushes the replies onto
// the reply channel. Tests call this directly instead of running the
// background loop.
func (o *LocalOracle) DeliverPending() error {
	o.mu.Lock()
	pending := o.pending
	o.pending = nil
	o.mu.Unlock()

	for _, req := range pending {
		words := make([]uint64, len(req.values))
		for i, h := range req.values {
			v, err := o.scheme.Decrypt(h)
			if err != nil {
				return fmt.Errorf("disclosing request %d: %w", req.id, err)
			}
			words[i] = v
		}
		cleartext := EncodeWords(words)
		o.replies <- protocol.DisclosureReply{
			RequestID: req.id,
			Cleartext: cleartext,
			Proof:     o.prove(req.id, cleartext),
		}
	}
	return nil
}

// Start runs the background delivery loop until ctx is done.
func (o *LocalOracle) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(o.delay)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				_ = o.DeliverPending()
			}
		}
	}()
}

// Replies is the stream of asynchronous disclosure replies.
func (o *LocalOracle) Replies() <-chan protocol.DisclosureReply {
	return o.replies
}

// Verify checks a reply's HMAC proof against its request id and cleartext.
func (o *LocalOracle) Verify(requestID protocol.RequestID, cleartext, proof []byte) error {
	if !hmac.Equal(proof, o.prove(requestID, cleartext)) {
		return ErrInvalidProof
	}
	return nil
}

func (o *LocalOracle) prove(requestID protocol.RequestID, cleartext []byte) []byte {
	mac := hmac.New(sha256.New, o.proofKey)
	var idBytes [8]byte
	binary.BigEndian.PutUint64(idBytes[:], uint64(requestID))
	mac.Write(idBytes[:])
	mac.Write(cleartext)
	return mac.Sum(nil)
}
