package fhe

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"io"
	"sync"

	"github.com/geobarrowsa3/Clue-FHE/crypto"
	"github.com/geobarrowsa3/Clue-FHE/protocol"
)

// Operation tags for deterministic handle derivation. Changing a tag changes
// every derived handle, so treat these as part of the wire format.
const (
	opCiphertext = "fhe/ct"
	opAdd        = "fhe/add"
	opEq         = "fhe/eq"
	opAnd        = "fhe/and"
	opZero       = "fhe/zero"
	opBool       = "fhe/bool"
)

// LocalScheme implements protocol.Scheme over plaintext uint64 values kept
// in an in-memory side table. It provides no confidentiality; it exists so
// the protocol's lifecycle and integrity checks are testable without a real
// homomorphic backend.
type LocalScheme struct {
	mu     sync.Mutex
	values map[protocol.Handle]uint64
}

// NewLocalScheme creates an empty local scheme.
func NewLocalScheme() *LocalScheme {
	return &LocalScheme{values: make(map[protocol.Handle]uint64)}
}

// Encrypt mints a fresh handle for a plaintext value. Handles are
// nonce-randomized so encrypting the same value twice yields distinct
// handles, as a real ciphertext would.
func (s *LocalScheme) Encrypt(value uint64) (protocol.Handle, error) {
	nonce := make([]byte, 16)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return protocol.Handle{}, fmt.Errorf("generating ciphertext nonce: %w", err)
	}

	h := protocol.Handle(crypto.Keccak256([]byte(opCiphertext), nonce))
	s.mu.Lock()
	s.values[h] = value
	s.mu.Unlock()
	return h, nil
}

// EncryptBool mints a fresh handle for a boolean plaintext.
func (s *LocalScheme) EncryptBool(v bool) (protocol.Handle, error) {
	return s.Encrypt(boolWord(v))
}

// Combine merges two opaque values additively. The result handle is derived
// deterministically from the operand handles.
func (s *LocalScheme) Combine(a, b protocol.Handle) (protocol.Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	va, err := s.valueOf(a)
	if err != nil {
		return protocol.Handle{}, err
	}
	vb, err := s.valueOf(b)
	if err != nil {
		return protocol.Handle{}, err
	}

	h := deriveHandle(opAdd, a, b)
	s.values[h] = va + vb
	return h, nil
}

// CompareEqual produces an opaque boolean for a == b.
func (s *LocalScheme) CompareEqual(a, b protocol.Handle) (protocol.Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	va, err := s.valueOf(a)
	if err != nil {
		return protocol.Handle{}, err
	}
	vb, err := s.valueOf(b)
	if err != nil {
		return protocol.Handle{}, err
	}

	h := deriveHandle(opEq, a, b)
	s.values[h] = boolWord(va == vb)
	return h, nil
}

// LogicalAnd produces an opaque boolean for x && y.
func (s *LocalScheme) LogicalAnd(x, y protocol.Handle) (protocol.Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	vx, err := s.valueOf(x)
	if err != nil {
		return protocol.Handle{}, err
	}
	vy, err := s.valueOf(y)
	if err != nil {
		return protocol.Handle{}, err
	}

	h := deriveHandle(opAnd, x, y)
	s.values[h] = boolWord(vx != 0 && vy != 0)
	return h, nil
}

// AdditiveIdentity returns the opaque zero. The handle is a constant, so
// every lazily-seeded aggregate starts from the same point.
func (s *LocalScheme) AdditiveIdentity() (protocol.Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h := protocol.Handle(crypto.Keccak256([]byte(opZero)))
	s.values[h] = 0
	return h, nil
}

// ConstantBool returns an opaque boolean with a known plaintext. Handles are
// constants per truth value.
func (s *LocalScheme) ConstantBool(v bool) (protocol.Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h := protocol.Handle(crypto.Keccak256([]byte(opBool), []byte{byte(boolWord(v))}))
	s.values[h] = boolWord(v)
	return h, nil
}

// Decrypt reveals the plaintext behind a handle. Only the oracle and tests
// may call this; protocol code never does.
func (s *LocalScheme) Decrypt(h protocol.Handle) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.valueOf(h)
}

func (s *LocalScheme) valueOf(h protocol.Handle) (uint64, error) {
	v, ok := s.values[h]
	if !ok {
		return 0, fmt.Errorf("unknown ciphertext handle %s", h)
	}
	return v, nil
}

func deriveHandle(op string, operands ...protocol.Handle) protocol.Handle {
	chunks := make([][]byte, 0, len(operands)+1)
	chunks = append(chunks, []byte(op))
	for _, o := range operands {
		chunks = append(chunks, o.Bytes())
	}
	return protocol.Handle(crypto.Keccak256(chunks...))
}

func boolWord(v bool) uint64 {
	if v {
		return 1
	}
	return 0
}

// EncodeWords encodes plaintext values as the cleartext wire format: one
// 8-byte big-endian word per value, in order.
func EncodeWords(values []uint64) []byte {
	out := make([]byte, 8*len(values))
	for i, v := range values {
		binary.BigEndian.PutUint64(out[i*8:], v)
	}
	return out
}
