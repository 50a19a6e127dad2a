// Package protocol defines the core types of the Clue-FHE batch protocol:
// opaque ciphertext handles, the capability interfaces consumed from the
// encryption scheme and the decryption oracle, the error taxonomy visible to
// callers, and the signed request envelope used on the wire.
//
// The protocol coordinates three phases per batch: an open window during
// which participants submit opaque contributions that are folded into running
// aggregates, a closed phase that freezes the aggregates, and an asynchronous
// disclosure phase in which an external oracle reveals derived results. The
// packages guard, batch, disclosure and game implement those phases on top of
// the types defined here.
package protocol
