package batch

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/geobarrowsa3/Clue-FHE/protocol"
)

func TestOpenBatchAssignsIncreasingIDs(t *testing.T) {
	s := NewStore(4)

	require.Equal(t, uint64(0), s.CurrentID())
	require.Equal(t, uint64(1), s.OpenBatch())
	require.Equal(t, uint64(2), s.OpenBatch())
	require.Equal(t, uint64(2), s.CurrentID())

	info, err := s.Info(1)
	require.NoError(t, err)
	require.Equal(t, Info{ID: 1, Open: true, SubmissionCount: 0}, info)
}

func TestCloseBatch(t *testing.T) {
	s := NewStore(4)
	id := s.OpenBatch()

	require.ErrorIs(t, s.CloseBatch(99), protocol.ErrInvalidBatch)
	require.NoError(t, s.CloseBatch(id))

	info, err := s.Info(id)
	require.NoError(t, err)
	require.False(t, info.Open)

	// Closing twice is rejected, and closed batches reject submissions.
	require.ErrorIs(t, s.CloseBatch(id), protocol.ErrBatchClosed)
	require.ErrorIs(t, s.RecordSubmission(id, "alice"), protocol.ErrBatchClosed)
}

func TestRecordSubmission(t *testing.T) {
	s := NewStore(2)
	id := s.OpenBatch()

	require.ErrorIs(t, s.RecordSubmission(99, "alice"), protocol.ErrInvalidBatch)

	require.NoError(t, s.RecordSubmission(id, "alice"))
	require.True(t, s.HasSubmitted(id, "alice"))
	require.False(t, s.HasSubmitted(id, "bob"))

	// Same identity twice.
	require.ErrorIs(t, s.RecordSubmission(id, "alice"), protocol.ErrInvalidState)

	require.NoError(t, s.RecordSubmission(id, "bob"))

	// The bound rejects the third contributor before any dedup check.
	require.ErrorIs(t, s.RecordSubmission(id, "carol"), protocol.ErrBatchFull)

	info, err := s.Info(id)
	require.NoError(t, err)
	require.Equal(t, 2, info.SubmissionCount)
}

func TestCheckSubmissionDoesNotMutate(t *testing.T) {
	s := NewStore(4)
	id := s.OpenBatch()

	require.NoError(t, s.CheckSubmission(id, "alice"))
	require.NoError(t, s.CheckSubmission(id, "alice"))
	require.False(t, s.HasSubmitted(id, "alice"))

	info, err := s.Info(id)
	require.NoError(t, err)
	require.Equal(t, 0, info.SubmissionCount)
}

func TestRecordAccusation(t *testing.T) {
	s := NewStore(4)
	id := s.OpenBatch()

	// Accusations are deduped independently of the contribution set.
	require.NoError(t, s.RecordSubmission(id, "alice"))
	require.NoError(t, s.RecordAccusation(id, "alice"))
	require.ErrorIs(t, s.RecordAccusation(id, "alice"), protocol.ErrInvalidState)

	require.NoError(t, s.CloseBatch(id))
	require.ErrorIs(t, s.RecordAccusation(id, "bob"), protocol.ErrBatchClosed)
}

func TestRecordDisclosureRequest(t *testing.T) {
	s := NewStore(4)
	id := s.OpenBatch()

	// Empty batches have nothing to disclose.
	require.ErrorIs(t, s.RecordDisclosureRequest(id, "alice"), protocol.ErrInvalidBatch)

	require.NoError(t, s.RecordSubmission(id, "alice"))
	require.NoError(t, s.RecordDisclosureRequest(id, "alice"))
	require.ErrorIs(t, s.RecordDisclosureRequest(id, "alice"), protocol.ErrInvalidState)

	// Requests stay possible after close; only the dedup applies.
	require.NoError(t, s.CloseBatch(id))
	require.NoError(t, s.RecordDisclosureRequest(id, "bob"))
}

func TestAggregatesUninitialized(t *testing.T) {
	s := NewStore(4)
	id := s.OpenBatch()

	_, initialized, err := s.Aggregate(id, protocol.FieldWeapon)
	require.NoError(t, err)
	require.False(t, initialized)

	_, err = s.Aggregates(id)
	require.ErrorIs(t, err, protocol.ErrInvalidBatch)

	_, _, err = s.Aggregate(99, protocol.FieldWeapon)
	require.ErrorIs(t, err, protocol.ErrInvalidBatch)
}

func TestStoreAggregatesRequiresOpenBatch(t *testing.T) {
	s := NewStore(4)
	id := s.OpenBatch()

	h := protocol.Handle{1}
	require.NoError(t, s.storeAggregates(id, map[protocol.Field]protocol.Handle{protocol.FieldWeapon: h}))

	got, initialized, err := s.Aggregate(id, protocol.FieldWeapon)
	require.NoError(t, err)
	require.True(t, initialized)
	require.Equal(t, h, got)

	require.NoError(t, s.CloseBatch(id))
	err = s.storeAggregates(id, map[protocol.Field]protocol.Handle{protocol.FieldWeapon: {2}})
	require.ErrorIs(t, err, protocol.ErrBatchClosed)
}
