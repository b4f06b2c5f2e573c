package column

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func i8Byte(v int8) byte { return byte(v) }

func TestFixedWidthAppendTracksCounts(t *testing.T) {
	s := NewStore(F64, FlavorFixed, nil)
	require.NoError(t, s.AppendF64(1.0))
	require.NoError(t, s.AppendF64(2.0))
	require.NoError(t, s.AppendF64(3.0))
	require.Equal(t, int64(3), s.NRecords)
	require.Equal(t, int64(3), s.NElements)
	for i := 0; i < 3; i++ {
		require.True(t, s.IsValid(i))
	}
	v, err := s.GetF64(1)
	require.NoError(t, err)
	require.Equal(t, 2.0, v)
}

func TestGetOutOfRange(t *testing.T) {
	s := NewStore(I32, FlavorFixed, nil)
	require.NoError(t, s.AppendI32(5))
	_, err := s.GetI32(1)
	require.Error(t, err)
}

func TestPadNullScalarMarksInvalid(t *testing.T) {
	s := NewStore(U32, FlavorFixed, nil)
	require.NoError(t, s.AppendU32(7))
	s.PadNullScalar()
	require.True(t, s.IsValid(0))
	require.False(t, s.IsValid(1))
	require.Equal(t, int64(2), s.NRecords)
}

func TestSegmentStatsI8(t *testing.T) {
	s := NewStore(I8, FlavorFixed, nil)
	for _, v := range []int8{-100, -50, 25, 1} {
		require.NoError(t, s.AppendI8(v))
	}
	stats := ComputeSegmentStats(s)
	require.True(t, stats.Valid)

	min := punBits(I8, []byte{i8Byte(-100)})
	max := punBits(I8, []byte{i8Byte(25)})
	require.Equal(t, min, stats.Min)
	require.Equal(t, max, stats.Max)

	lo := punBits(I8, []byte{i8Byte(-25)})
	hi := punBits(I8, []byte{i8Byte(10)})
	require.True(t, stats.Overlap(I8, lo, hi))

	lo2 := punBits(I8, []byte{i8Byte(50)})
	hi2 := punBits(I8, []byte{i8Byte(100)})
	require.False(t, stats.Overlap(I8, lo2, hi2))

	lo3 := punBits(I8, []byte{i8Byte(-120)})
	hi3 := punBits(I8, []byte{i8Byte(-110)})
	require.False(t, stats.Overlap(I8, lo3, hi3))
}

func TestSegmentStatsInvalidAlwaysOverlaps(t *testing.T) {
	var stats SegmentStats
	require.True(t, stats.Overlap(I32, 0, 0))
}

func TestTensorGrowth(t *testing.T) {
	cs := NewSet(U8, nil)
	require.NoError(t, cs.AppendTensorRow([]byte{1}, 1))
	require.NoError(t, cs.AppendTensorRow([]byte{2, 3}, 2))
	require.NoError(t, cs.AppendTensorRow([]byte{3, 4, 5}, 3))

	offsets, data := cs.Columns[0], cs.Columns[1]
	require.Equal(t, int64(4), offsets.NRecords)
	want := []uint32{0, 1, 3, 6}
	for i, w := range want {
		got, err := offsets.GetU32(i)
		require.NoError(t, err)
		require.Equal(t, w, got)
	}
	require.Equal(t, []byte{1, 2, 3, 3, 4, 5}, data.Bytes())
}

func TestVectorFieldGrowsColumnsAndNullPadsTrailingRows(t *testing.T) {
	cs := NewSet(I32, nil)
	appendRow := func(vals []int32) error {
		return cs.AppendVector(len(vals), func(col *Store, slot int) error {
			return col.AppendI32(vals[slot])
		})
	}
	require.NoError(t, appendRow([]int32{1}))
	require.NoError(t, appendRow([]int32{2, 3}))
	require.NoError(t, appendRow([]int32{3}))

	require.Len(t, cs.Columns, 2)
	require.True(t, cs.Columns[0].IsValid(0))
	require.True(t, cs.Columns[0].IsValid(1))
	require.True(t, cs.Columns[0].IsValid(2))
	require.False(t, cs.Columns[1].IsValid(0))
	require.True(t, cs.Columns[1].IsValid(1))
	require.False(t, cs.Columns[1].IsValid(2))
}
