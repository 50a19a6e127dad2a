package protocol

import "context"

// Scheme is the opaque-arithmetic capability consumed by the coordinator.
// Implementations must derive handles deterministically from the operation
// and its operand handles: re-running the same operation on the same inputs
// yields the same handle. The commitment recheck at settlement relies on
// this to reproduce request-time handles from live state.
//
// Combine is assumed to behave as an abelian group operation: the engine
// folds contributions in arrival order and gives no further ordering
// guarantee.
type Scheme interface {
	// Combine merges two opaque values additively.
	Combine(a, b Handle) (Handle, error)

	// CompareEqual produces an opaque boolean for a == b.
	CompareEqual(a, b Handle) (Handle, error)

	// LogicalAnd produces an opaque boolean for x && y, where both operands
	// are opaque booleans.
	LogicalAnd(x, y Handle) (Handle, error)

	// AdditiveIdentity returns the opaque zero used to seed aggregates.
	AdditiveIdentity() (Handle, error)

	// ConstantBool returns an opaque boolean with a known plaintext.
	ConstantBool(v bool) (Handle, error)
}

// RequestID identifies a disclosure request. IDs are assigned by the oracle
// at request time, are unique, and are never reused.
type RequestID uint64

// DisclosureReply is the oracle's asynchronous answer to a disclosure
// request. Cleartext encodes each disclosed value as an 8-byte big-endian
// word in request order; Proof is verified against the request id and
// cleartext before the reply is trusted.
type DisclosureReply struct {
	RequestID RequestID `json:"request_id"`
	Cleartext []byte    `json:"cleartext"`
	Proof     []byte    `json:"proof"`
}

// Oracle is the external decryption capability. Requesting returns
// synchronously with a fresh request id; the disclosure itself arrives
// out-of-band on the reply channel after an arbitrary delay.
type Oracle interface {
	// RequestDisclosure asks the oracle to reveal the plaintexts behind the
	// given handles. Only the request is synchronous.
	RequestDisclosure(ctx context.Context, values []Handle) (RequestID, error)

	// Verify checks a reply's proof against its request id and cleartext.
	Verify(requestID RequestID, cleartext, proof []byte) error

	// Replies is the stream of asynchronous disclosure replies.
	Replies() <-chan DisclosureReply
}
