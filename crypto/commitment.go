package crypto

import (
	"golang.org/x/crypto/sha3"
)

// Digest is a 32-byte keccak256 output.
type Digest [32]byte

// Commitment binds a disclosure request to the exact set of ciphertext
// handles it covers. The digest is keccak256 over the concatenated handle
// bytes followed by the protocol domain tag, so two deployments with
// different tags never produce colliding commitments for the same handles.
//
// Handle order matters: requests and rebuilds must present handles in the
// same canonical order.
func Commitment(handles [][]byte, domainTag string) Digest {
	h := sha3.NewLegacyKeccak256()
	for _, handle := range handles {
		h.Write(handle)
	}
	h.Write([]byte(domainTag))

	var d Digest
	copy(d[:], h.Sum(nil))
	return d
}

// Keccak256 hashes arbitrary chunks with keccak256. Used for deriving
// deterministic ciphertext handles in the local scheme.
func Keccak256(chunks ...[]byte) Digest {
	h := sha3.NewLegacyKeccak256()
	for _, c := range chunks {
		h.Write(c)
	}
	var d Digest
	copy(d[:], h.Sum(nil))
	return d
}
