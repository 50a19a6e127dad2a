package fhe

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/geobarrowsa3/Clue-FHE/protocol"
)

func TestEncryptMintsDistinctHandles(t *testing.T) {
	s := NewLocalScheme()

	a, err := s.Encrypt(42)
	require.NoError(t, err)
	b, err := s.Encrypt(42)
	require.NoError(t, err)
	require.NotEqual(t, a, b)

	va, err := s.Decrypt(a)
	require.NoError(t, err)
	require.Equal(t, uint64(42), va)
}

func TestCombineIsDeterministicInHandles(t *testing.T) {
	s := NewLocalScheme()

	a, err := s.Encrypt(3)
	require.NoError(t, err)
	b, err := s.Encrypt(4)
	require.NoError(t, err)

	// The same operands always derive the same result handle. This is what
	// lets a settlement-time recomputation reproduce a request-time handle.
	first, err := s.Combine(a, b)
	require.NoError(t, err)
	second, err := s.Combine(a, b)
	require.NoError(t, err)
	require.Equal(t, first, second)

	// Operand order matters, as it does for any derived encoding.
	swapped, err := s.Combine(b, a)
	require.NoError(t, err)
	require.NotEqual(t, first, swapped)

	v, err := s.Decrypt(first)
	require.NoError(t, err)
	require.Equal(t, uint64(7), v)
}

func TestCombineUnknownHandle(t *testing.T) {
	s := NewLocalScheme()
	a, err := s.Encrypt(1)
	require.NoError(t, err)

	unknown := protocol.Handle{0xff}
	_, err = s.Combine(a, unknown)
	require.Error(t, err)
}

func TestCompareEqualAndLogicalAnd(t *testing.T) {
	s := NewLocalScheme()

	a, err := s.Encrypt(5)
	require.NoError(t, err)
	b, err := s.Encrypt(5)
	require.NoError(t, err)
	c, err := s.Encrypt(6)
	require.NoError(t, err)

	eqTrue, err := s.CompareEqual(a, b)
	require.NoError(t, err)
	eqFalse, err := s.CompareEqual(a, c)
	require.NoError(t, err)

	vt, err := s.Decrypt(eqTrue)
	require.NoError(t, err)
	require.Equal(t, uint64(1), vt)
	vf, err := s.Decrypt(eqFalse)
	require.NoError(t, err)
	require.Equal(t, uint64(0), vf)

	and, err := s.LogicalAnd(eqTrue, eqFalse)
	require.NoError(t, err)
	va, err := s.Decrypt(and)
	require.NoError(t, err)
	require.Equal(t, uint64(0), va)

	and, err = s.LogicalAnd(eqTrue, eqTrue)
	require.NoError(t, err)
	va, err = s.Decrypt(and)
	require.NoError(t, err)
	require.Equal(t, uint64(1), va)
}

func TestConstantsAreStable(t *testing.T) {
	s := NewLocalScheme()

	z1, err := s.AdditiveIdentity()
	require.NoError(t, err)
	z2, err := s.AdditiveIdentity()
	require.NoError(t, err)
	require.Equal(t, z1, z2)

	v, err := s.Decrypt(z1)
	require.NoError(t, err)
	require.Equal(t, uint64(0), v)

	bt, err := s.ConstantBool(true)
	require.NoError(t, err)
	bf, err := s.ConstantBool(false)
	require.NoError(t, err)
	require.NotEqual(t, bt, bf)
}

func TestEncodeWords(t *testing.T) {
	require.Empty(t, EncodeWords(nil))

	raw := EncodeWords([]uint64{1, 0x0102030405060708})
	require.Equal(t, []byte{
		0, 0, 0, 0, 0, 0, 0, 1,
		1, 2, 3, 4, 5, 6, 7, 8,
	}, raw)
}

func TestOracleDeliverAndVerify(t *testing.T) {
	s := NewLocalScheme()
	o, err := NewLocalOracle(s)
	require.NoError(t, err)

	a, err := s.Encrypt(3)
	require.NoError(t, err)
	b, err := s.Encrypt(7)
	require.NoError(t, err)

	id, err := o.RequestDisclosure(context.Background(), []protocol.Handle{a, b})
	require.NoError(t, err)
	require.NoError(t, o.DeliverPending())

	reply := <-o.Replies()
	require.Equal(t, id, reply.RequestID)
	require.Equal(t, EncodeWords([]uint64{3, 7}), reply.Cleartext)
	require.NoError(t, o.Verify(reply.RequestID, reply.Cleartext, reply.Proof))

	// Any tampering invalidates the proof.
	require.ErrorIs(t, o.Verify(reply.RequestID+1, reply.Cleartext, reply.Proof), ErrInvalidProof)
	tampered := append([]byte(nil), reply.Cleartext...)
	tampered[0] ^= 1
	require.ErrorIs(t, o.Verify(reply.RequestID, tampered, reply.Proof), ErrInvalidProof)
}

func TestOracleRejectsEmptyRequest(t *testing.T) {
	s := NewLocalScheme()
	o, err := NewLocalOracle(s)
	require.NoError(t, err)

	_, err = o.RequestDisclosure(context.Background(), nil)
	require.Error(t, err)
}

func TestOracleBackgroundDelivery(t *testing.T) {
	s := NewLocalScheme()
	o, err := NewLocalOracle(s)
	require.NoError(t, err)
	o.SetDelay(time.Millisecond)

	a, err := s.Encrypt(9)
	require.NoError(t, err)
	_, err = o.RequestDisclosure(context.Background(), []protocol.Handle{a})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	o.Start(ctx)

	select {
	case reply := <-o.Replies():
		require.Equal(t, EncodeWords([]uint64{9}), reply.Cleartext)
	case <-time.After(time.Second):
		t.Fatal("reply not delivered")
	}
}
