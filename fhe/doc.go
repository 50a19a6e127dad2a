// Package fhe provides implementations of the opaque-value capabilities the
// coordinator consumes: a local plaintext test double and a remote HTTP
// client for an external decryption gateway.
//
// The local scheme keeps plaintexts in a side table keyed by handle and
// derives handles deterministically from the operation tag and operand
// handles, mirroring symbolic ciphertext handles. Determinism is what lets
// the settlement-time rebuild reproduce request-time handles when batch
// state has not drifted. The local oracle signs its replies with an
// HMAC-SHA256 proof over the request id and cleartext; settlement verifies
// the proof before trusting the reply.
package fhe
