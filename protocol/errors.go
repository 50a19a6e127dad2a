package protocol

import "errors"

// The protocol error taxonomy. Every failure is caller-visible and
// non-retryable as-is: the caller must correct the violated precondition
// (wait out the cooldown, pick another batch, re-derive state) rather than
// blindly retry. No operation that returns one of these leaves a partial
// mutation behind.
var (
	// ErrNotOwner is returned when an owner-only operation is attempted by
	// another identity.
	ErrNotOwner = errors.New("caller is not the owner")

	// ErrNotProvider is returned when a provider-only operation is attempted
	// by an identity outside the provider set.
	ErrNotProvider = errors.New("caller is not a registered provider")

	// ErrPaused is returned while the global circuit breaker is engaged.
	ErrPaused = errors.New("protocol is paused")

	// ErrRateLimited is returned when an identity acts again within its
	// per-category cooldown window.
	ErrRateLimited = errors.New("cooldown window has not elapsed")

	// ErrBatchClosed is returned for contributions to a closed batch, or for
	// closing a batch twice.
	ErrBatchClosed = errors.New("batch is closed")

	// ErrBatchFull is returned when a batch has reached its submission bound.
	ErrBatchFull = errors.New("batch is full")

	// ErrInvalidBatch is returned for operations against an unknown batch or
	// a batch with no submissions to disclose.
	ErrInvalidBatch = errors.New("invalid batch")

	// ErrInvalidState covers both dedup violations and the post-hoc
	// commitment integrity mismatch at settlement. Both mean the operation's
	// preconditions no longer hold.
	ErrInvalidState = errors.New("operation preconditions no longer hold")

	// ErrStaleVersion is returned when settling a context bound to a protocol
	// version that has since been bumped. Such contexts are permanently
	// unsettleable.
	ErrStaleVersion = errors.New("context bound to a stale protocol version")

	// ErrAlreadyProcessed is returned when replaying a settled request.
	ErrAlreadyProcessed = errors.New("request already processed")

	// ErrUnknownRequest is returned when settling a request id with no
	// pending context.
	ErrUnknownRequest = errors.New("unknown request id")
)
