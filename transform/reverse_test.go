package transform

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pil-io/pil/column"
)

func TestReverseColumnFixedDictionaryAndBlockRoundTrips(t *testing.T) {
	tp := NewPipeline(nil)
	cset := column.NewSet(column.U32, nil)
	vals := make([]uint32, 20)
	for i := range vals {
		if i%2 == 0 {
			vals[i] = 1
		} else {
			vals[i] = 2
		}
	}
	for _, v := range vals {
		require.NoError(t, cset.AppendScalar(func(col *column.Store) error { return col.AppendU32(v) }))
	}

	field := FieldDescriptor{Flavor: column.FlavorFixed, Type: column.U32, Chain: []Codec{CodecDictionary, CodecBlock}}
	_, err := tp.Transform(cset, field)
	require.NoError(t, err)

	col := cset.Columns[0]
	require.NotNil(t, col.Dict)
	require.Len(t, col.Transforms, 2)

	orig, err := ReverseColumn(col, nil)
	require.NoError(t, err)
	require.Len(t, orig, len(vals)*4)
	for i, v := range vals {
		got := uint32(orig[i*4]) | uint32(orig[i*4+1])<<8 | uint32(orig[i*4+2])<<16 | uint32(orig[i*4+3])<<24
		require.Equal(t, v, got)
	}
}

func TestReverseColumnFixedDictionaryWithNullsRoundTrips(t *testing.T) {
	tp := NewPipeline(nil)
	cset := column.NewSet(column.U32, nil)
	require.NoError(t, cset.AppendScalar(func(col *column.Store) error { return col.AppendU32(7) }))
	require.NoError(t, cset.PadNull())
	require.NoError(t, cset.AppendScalar(func(col *column.Store) error { return col.AppendU32(7) }))
	for i := 0; i < 20; i++ {
		require.NoError(t, cset.AppendScalar(func(col *column.Store) error { return col.AppendU32(7) }))
	}

	field := FieldDescriptor{Flavor: column.FlavorFixed, Type: column.U32, Chain: []Codec{CodecDictionary}}
	_, err := tp.Transform(cset, field)
	require.NoError(t, err)

	col := cset.Columns[0]
	require.NotNil(t, col.Dict)
	// Only one distinct valid value (7) across 22 valid rows: well under
	// the 0.20 threshold once the null row is excluded from the ratio.
	require.Equal(t, int64(1), col.Dict.NElements)

	orig, err := ReverseColumn(col, nil)
	require.NoError(t, err)
	require.True(t, col.IsValid(0))
	require.False(t, col.IsValid(1))
	got := uint32(orig[0]) | uint32(orig[1])<<8 | uint32(orig[2])<<16 | uint32(orig[3])<<24
	require.Equal(t, uint32(7), got)
}

func TestReverseTensorSetDictionaryAndBlockRoundTrips(t *testing.T) {
	tp := NewPipeline(nil)
	cset := column.NewSet(column.ByteArray, nil)
	rows := [][]byte{[]byte("aa"), []byte("bb"), []byte("aa"), []byte("aa"), []byte("bb"), []byte("aa"), []byte("aa"), []byte("aa"), []byte("aa"), []byte("aa")}
	for _, r := range rows {
		require.NoError(t, cset.AppendTensorRow(r, int64(len(r))))
	}

	field := FieldDescriptor{Flavor: column.FlavorTensor, Type: column.ByteArray, Chain: []Codec{CodecDictionary, CodecBlock}}
	_, err := tp.Transform(cset, field)
	require.NoError(t, err)

	offBytes, dataBytes, err := ReverseTensorSet(cset)
	require.NoError(t, err)

	n := len(offBytes)/4 - 1
	require.Equal(t, len(rows), n)
	off := func(i int) uint32 {
		return uint32(offBytes[i*4]) | uint32(offBytes[i*4+1])<<8 | uint32(offBytes[i*4+2])<<16 | uint32(offBytes[i*4+3])<<24
	}
	require.Equal(t, uint32(0), off(0))
	for i, r := range rows {
		lo, hi := off(i), off(i+1)
		require.Equal(t, r, dataBytes[lo:hi])
	}
}

func TestReverseTensorSetDeltaAndBlockRoundTrips(t *testing.T) {
	tp := NewPipeline(nil)
	cset := column.NewSet(column.I32, nil)
	rows := [][]int32{{1, 2, 3}, {4}, {}, {5, 6}}
	for _, r := range rows {
		buf := make([]byte, len(r)*4)
		for i, v := range r {
			buf[i*4] = byte(v)
		}
		require.NoError(t, cset.AppendTensorRow(buf, int64(len(r))))
	}

	field := FieldDescriptor{Flavor: column.FlavorTensor, Type: column.I32, Chain: []Codec{CodecDelta, CodecBlock}}
	_, err := tp.Transform(cset, field)
	require.NoError(t, err)

	offBytes, dataBytes, err := ReverseTensorSet(cset)
	require.NoError(t, err)

	var wantData []byte
	for _, r := range rows {
		buf := make([]byte, len(r)*4)
		for i, v := range r {
			buf[i*4] = byte(v)
		}
		wantData = append(wantData, buf...)
	}
	require.Equal(t, wantData, dataBytes)

	off := func(i int) uint32 {
		return uint32(offBytes[i*4]) | uint32(offBytes[i*4+1])<<8 | uint32(offBytes[i*4+2])<<16 | uint32(offBytes[i*4+3])<<24
	}
	require.Equal(t, uint32(0), off(0))
	require.Equal(t, uint32(3), off(1))
	require.Equal(t, uint32(4), off(2))
	require.Equal(t, uint32(4), off(3))
	require.Equal(t, uint32(6), off(4))
}

func TestReverseTensorSetSequenceRangeRoundTrips(t *testing.T) {
	tp := NewPipeline(nil)
	cset := column.NewSet(column.ByteArray, nil)
	seqs := [][]byte{[]byte("ACGTACGT"), []byte("TTTTGGGG"), []byte("ACGTNNAC")}
	for _, s := range seqs {
		require.NoError(t, cset.AppendTensorRow(s, int64(len(s))))
	}

	field := FieldDescriptor{Flavor: column.FlavorTensor, Type: column.ByteArray, Chain: []Codec{CodecSequenceRange}}
	_, err := tp.Transform(cset, field)
	require.NoError(t, err)

	_, dataBytes, err := ReverseTensorSet(cset)
	require.NoError(t, err)

	var want []byte
	for _, s := range seqs {
		want = append(want, s...)
	}
	require.Equal(t, want, dataBytes)
}

func TestReverseTensorSetQualityRangeRoundTrips(t *testing.T) {
	tp := NewPipeline(nil)
	cset := column.NewSet(column.ByteArray, nil)
	quals := [][]byte{
		{35, 35, 34, 36, 36, 36, 37, 38},
		{40, 40, 40, 40},
		{30, 31, 32, 33, 34, 35, 36, 37, 38, 39},
	}
	for _, q := range quals {
		require.NoError(t, cset.AppendTensorRow(q, int64(len(q))))
	}

	field := FieldDescriptor{Flavor: column.FlavorTensor, Type: column.ByteArray, Chain: []Codec{CodecQualityRange}}
	_, err := tp.Transform(cset, field)
	require.NoError(t, err)

	_, dataBytes, err := ReverseTensorSet(cset)
	require.NoError(t, err)

	var want []byte
	for _, q := range quals {
		want = append(want, q...)
	}
	require.Equal(t, want, dataBytes)
}

func TestReverseTensorSetSequenceRangeRoundTripsLongSkewedInput(t *testing.T) {
	tp := NewPipeline(nil)
	cset := column.NewSet(column.ByteArray, nil)
	// Long homopolymer runs push the DNA model's context buckets into
	// heavily skewed frequency distributions, which is exactly the
	// regime that triggers the encoder's carry-delay loop repeatedly;
	// reverse_test.go's other sequence cases stay under 30 bytes and
	// never exercise that path.
	var seqs [][]byte
	seqs = append(seqs, []byte("AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"))
	seqs = append(seqs, []byte("CCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCC"))
	seqs = append(seqs, []byte("ACGTACGTACGTNNNNACGTACGTACGTACGTACGTACGTACGTACGTACGTACGTACGTACGT"))
	for _, s := range seqs {
		require.NoError(t, cset.AppendTensorRow(s, int64(len(s))))
	}

	field := FieldDescriptor{Flavor: column.FlavorTensor, Type: column.ByteArray, Chain: []Codec{CodecSequenceRange}}
	_, err := tp.Transform(cset, field)
	require.NoError(t, err)

	_, dataBytes, err := ReverseTensorSet(cset)
	require.NoError(t, err)

	var want []byte
	for _, s := range seqs {
		want = append(want, s...)
	}
	require.Equal(t, want, dataBytes)
}

func TestReverseTensorSetQualityRangeRoundTripsLongSkewedInput(t *testing.T) {
	tp := NewPipeline(nil)
	cset := column.NewSet(column.ByteArray, nil)
	// A long run of a single quality value, same rationale as the
	// sequence case above: a skewed FrequencyModel distribution held
	// over many symbols is what forces the encoder's carry-delay loop
	// to emit more than the usual one-to-three renormalization bytes.
	row1 := make([]byte, 150)
	for i := range row1 {
		row1[i] = 35
	}
	row2 := make([]byte, 150)
	for i := range row2 {
		if i%10 == 0 {
			row2[i] = 20
		} else {
			row2[i] = 35
		}
	}
	quals := [][]byte{row1, row2}
	for _, q := range quals {
		require.NoError(t, cset.AppendTensorRow(q, int64(len(q))))
	}

	field := FieldDescriptor{Flavor: column.FlavorTensor, Type: column.ByteArray, Chain: []Codec{CodecQualityRange}}
	_, err := tp.Transform(cset, field)
	require.NoError(t, err)

	_, dataBytes, err := ReverseTensorSet(cset)
	require.NoError(t, err)

	var want []byte
	for _, q := range quals {
		want = append(want, q...)
	}
	require.Equal(t, want, dataBytes)
}

func TestReverseColumnDetectsMD5Tampering(t *testing.T) {
	tp := NewPipeline(nil)
	cset := column.NewSet(column.U32, nil)
	for i := 0; i < 20; i++ {
		require.NoError(t, cset.AppendScalar(func(col *column.Store) error { return col.AppendU32(uint32(i % 2)) }))
	}
	field := FieldDescriptor{Flavor: column.FlavorFixed, Type: column.U32, Chain: []Codec{CodecDictionary}}
	_, err := tp.Transform(cset, field)
	require.NoError(t, err)

	col := cset.Columns[0]
	b := col.Bytes()
	b[0] ^= 0xFF

	_, err = ReverseColumn(col, nil)
	require.Error(t, err)
}
