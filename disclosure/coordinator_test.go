package disclosure

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"

	"github.com/geobarrowsa3/Clue-FHE/fhe"
	"github.com/geobarrowsa3/Clue-FHE/protocol"
)

type fixture struct {
	coord   *Coordinator
	scheme  *fhe.LocalScheme
	oracle  *fhe.LocalOracle
	version *atomic.Uint64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	scheme := fhe.NewLocalScheme()
	oracle, err := fhe.NewLocalOracle(scheme)
	require.NoError(t, err)

	version := atomic.NewUint64(0)
	return &fixture{
		coord:   NewCoordinator(oracle, version, "disclosure-test/v1", nil),
		scheme:  scheme,
		oracle:  oracle,
		version: version,
	}
}

func (f *fixture) encrypt(t *testing.T, values ...uint64) []protocol.Handle {
	t.Helper()
	handles := make([]protocol.Handle, len(values))
	for i, v := range values {
		h, err := f.scheme.Encrypt(v)
		require.NoError(t, err)
		handles[i] = h
	}
	return handles
}

func (f *fixture) nextReply(t *testing.T) protocol.DisclosureReply {
	t.Helper()
	require.NoError(t, f.oracle.DeliverPending())
	select {
	case reply := <-f.oracle.Replies():
		return reply
	default:
		t.Fatal("no reply delivered")
		return protocol.DisclosureReply{}
	}
}

func sameHandles(handles []protocol.Handle) func() ([]protocol.Handle, error) {
	return func() ([]protocol.Handle, error) { return handles, nil }
}

func TestSettleSolution(t *testing.T) {
	f := newFixture(t)
	handles := f.encrypt(t, 3, 7, 2)

	requestID, err := f.coord.RequestDisclosure(context.Background(), 1, KindSolution, handles)
	require.NoError(t, err)

	ctxt, ok := f.coord.Context(requestID)
	require.True(t, ok)
	require.Equal(t, KindSolution, ctxt.Kind)
	require.False(t, ctxt.Processed)

	reply := f.nextReply(t)
	result, err := f.coord.Settle(reply.RequestID, reply.Cleartext, reply.Proof, sameHandles(handles))
	require.NoError(t, err)
	require.Equal(t, uint64(3), result.Weapon)
	require.Equal(t, uint64(7), result.Room)
	require.Equal(t, uint64(2), result.Suspect)

	got, ok := f.coord.Result(requestID)
	require.True(t, ok)
	require.Equal(t, result, got)
}

func TestSettleAccusation(t *testing.T) {
	f := newFixture(t)

	for verdict, want := range map[uint64]bool{0: false, 1: true} {
		handles := f.encrypt(t, verdict)
		requestID, err := f.coord.RequestDisclosure(context.Background(), 1, KindAccusation, handles)
		require.NoError(t, err)

		reply := f.nextReply(t)
		result, err := f.coord.Settle(reply.RequestID, reply.Cleartext, reply.Proof, sameHandles(handles))
		require.NoError(t, err)
		require.Equal(t, want, result.Correct)
		require.Equal(t, requestID, result.RequestID)
	}
}

func TestSettleExactlyOnce(t *testing.T) {
	f := newFixture(t)
	handles := f.encrypt(t, 3, 7, 2)

	_, err := f.coord.RequestDisclosure(context.Background(), 1, KindSolution, handles)
	require.NoError(t, err)

	reply := f.nextReply(t)
	_, err = f.coord.Settle(reply.RequestID, reply.Cleartext, reply.Proof, sameHandles(handles))
	require.NoError(t, err)

	// A replay of the same reply is rejected.
	_, err = f.coord.Settle(reply.RequestID, reply.Cleartext, reply.Proof, sameHandles(handles))
	require.ErrorIs(t, err, protocol.ErrAlreadyProcessed)
}

func TestSettleUnknownRequest(t *testing.T) {
	f := newFixture(t)
	_, err := f.coord.Settle(99, nil, nil, sameHandles(nil))
	require.ErrorIs(t, err, protocol.ErrUnknownRequest)
}

func TestVersionBumpOrphansPendingContexts(t *testing.T) {
	f := newFixture(t)
	handles := f.encrypt(t, 3, 7, 2)

	_, err := f.coord.RequestDisclosure(context.Background(), 1, KindSolution, handles)
	require.NoError(t, err)

	f.version.Inc()

	reply := f.nextReply(t)
	_, err = f.coord.Settle(reply.RequestID, reply.Cleartext, reply.Proof, sameHandles(handles))
	require.ErrorIs(t, err, protocol.ErrStaleVersion)

	// The context stays visible but permanently unsettleable.
	ctxt, ok := f.coord.Context(reply.RequestID)
	require.True(t, ok)
	require.False(t, ctxt.Processed)
	_, err = f.coord.Settle(reply.RequestID, reply.Cleartext, reply.Proof, sameHandles(handles))
	require.ErrorIs(t, err, protocol.ErrStaleVersion)
}

func TestCommitmentDriftRejectsReply(t *testing.T) {
	f := newFixture(t)
	handles := f.encrypt(t, 3, 7, 2)

	_, err := f.coord.RequestDisclosure(context.Background(), 1, KindSolution, handles)
	require.NoError(t, err)

	// The batch moved on between request and reply: rebuild returns handles
	// that no longer match the request-time commitment.
	drifted := f.encrypt(t, 4, 7, 2)
	reply := f.nextReply(t)
	_, err = f.coord.Settle(reply.RequestID, reply.Cleartext, reply.Proof, sameHandles(drifted))
	require.ErrorIs(t, err, protocol.ErrInvalidState)

	// The failed attempt consumed nothing; a matching rebuild still settles.
	result, err := f.coord.Settle(reply.RequestID, reply.Cleartext, reply.Proof, sameHandles(handles))
	require.NoError(t, err)
	require.Equal(t, uint64(3), result.Weapon)
}

func TestBadProofRejected(t *testing.T) {
	f := newFixture(t)
	handles := f.encrypt(t, 3, 7, 2)

	_, err := f.coord.RequestDisclosure(context.Background(), 1, KindSolution, handles)
	require.NoError(t, err)

	reply := f.nextReply(t)
	tampered := append([]byte(nil), reply.Proof...)
	tampered[0] ^= 0xff
	_, err = f.coord.Settle(reply.RequestID, reply.Cleartext, tampered, sameHandles(handles))
	require.ErrorIs(t, err, fhe.ErrInvalidProof)

	// Tampered cleartext fails proof verification too.
	mangled := append([]byte(nil), reply.Cleartext...)
	mangled[7] ^= 0x01
	_, err = f.coord.Settle(reply.RequestID, mangled, reply.Proof, sameHandles(handles))
	require.ErrorIs(t, err, fhe.ErrInvalidProof)
}

func TestSettleRejectsMalformedCleartext(t *testing.T) {
	f := newFixture(t)
	handles := f.encrypt(t, 1)

	_, err := f.coord.RequestDisclosure(context.Background(), 1, KindAccusation, handles)
	require.NoError(t, err)

	reply := f.nextReply(t)

	// Proof verification covers the cleartext, so a wrong-length body with a
	// matching proof cannot be constructed; decode length checks are the
	// backstop when the oracle itself misbehaves. Exercise them directly.
	ctxt := &Context{RequestID: reply.RequestID, Kind: KindAccusation}
	_, err = decode(ctxt, []byte{1, 2, 3})
	require.Error(t, err)

	ctxt.Kind = KindSolution
	_, err = decode(ctxt, make([]byte, 8))
	require.Error(t, err)
}
