package batch

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pil-io/pil/column"
	"github.com/pil-io/pil/dict"
	"github.com/pil-io/pil/record"
)

func u32b(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}

func newTestBatch() (*Batch, *dict.FieldDictionary, *dict.SchemaDictionary) {
	fd := dict.NewFieldDictionary()
	sd := dict.NewSchemaDictionary()
	return New(nil, fd, sd), fd, sd
}

func TestAppendTracksRowsInLockstepWithSchemaColumn(t *testing.T) {
	b, _, _ := newTestBatch()

	var rb record.Builder
	rb.AppendScalar("a", column.U32, u32b(1))
	require.NoError(t, b.Append(rb.Record()))

	rb.Reset()
	rb.AppendScalar("a", column.U32, u32b(2))
	rb.AppendScalar("b", column.U32, u32b(7))
	require.NoError(t, b.Append(rb.Record()))

	require.Equal(t, 2, b.NRec())
	require.Equal(t, int64(2), b.Schemas().NRecords)

	// "a" appeared in both records, by row-0-only schema (field "a" alone)
	// then row-1 schema (fields "a","b"), so two distinct schema ids.
	s0, err := b.Schemas().GetU32(0)
	require.NoError(t, err)
	s1, err := b.Schemas().GetU32(1)
	require.NoError(t, err)
	require.NotEqual(t, s0, s1)

	aLocal := b.globalToLocal[0]
	aSet := b.Set(aLocal)
	require.Equal(t, 2, aSet.NRows())

	bLocal := b.globalToLocal[1]
	bSet := b.Set(bLocal)
	require.Equal(t, 2, bSet.NRows())
	// "b" was absent from row 0: its column must be null-padded there.
	require.False(t, bSet.Columns[0].IsValid(0))
	require.True(t, bSet.Columns[0].IsValid(1))
}

func TestAppendBackfillsFieldFirstSeenAfterEarlierRecords(t *testing.T) {
	b, _, _ := newTestBatch()

	var rb record.Builder
	rb.AppendScalar("a", column.U32, u32b(1))
	require.NoError(t, b.Append(rb.Record()))
	require.NoError(t, b.Append(rb.Record()))

	// "c" is seen for the first time on the third record — its column set
	// must be retroactively null-padded to 2 prior rows before this one
	// commits, so it ends up with exactly b.NRec() rows, not 1.
	rb.Reset()
	rb.AppendScalar("a", column.U32, u32b(3))
	rb.AppendScalar("c", column.U32, u32b(99))
	require.NoError(t, b.Append(rb.Record()))

	require.Equal(t, 3, b.NRec())
	cLocal := b.globalToLocal[1]
	cSet := b.Set(cLocal)
	require.Equal(t, 3, cSet.NRows())
	require.False(t, cSet.Columns[0].IsValid(0))
	require.False(t, cSet.Columns[0].IsValid(1))
	require.True(t, cSet.Columns[0].IsValid(2))
}

func TestAppendBackfillsTensorFieldFirstSeenAfterEarlierRecords(t *testing.T) {
	b, _, _ := newTestBatch()

	var rb record.Builder
	rb.AppendScalar("a", column.U32, u32b(1))
	require.NoError(t, b.Append(rb.Record()))
	require.NoError(t, b.Append(rb.Record()))

	rb.Reset()
	rb.AppendScalar("a", column.U32, u32b(3))
	rb.AppendTensor("seq", column.ByteArray, []byte("ACGT"), 4)
	require.NoError(t, b.Append(rb.Record()))

	seqLocal := b.globalToLocal[1]
	seqSet := b.Set(seqLocal)
	require.Equal(t, 3, seqSet.NRows())
	offsets := seqSet.Columns[0]
	require.Equal(t, int64(4), offsets.NRecords) // leading 0 + one per row
	data := seqSet.Columns[1]
	row, err := data.GetSlice(offsets, 2)
	require.NoError(t, err)
	require.Equal(t, "ACGT", string(row))
}

func TestAppendRejectsConflictingFieldType(t *testing.T) {
	b, _, _ := newTestBatch()
	var rb record.Builder
	rb.AppendScalar("a", column.U32, u32b(1))
	require.NoError(t, b.Append(rb.Record()))

	rb.Reset()
	rb.AppendScalar("a", column.I64, make([]byte, 8))
	require.Error(t, b.Append(rb.Record()))
}
