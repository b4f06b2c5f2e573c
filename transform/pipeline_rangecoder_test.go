package transform

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pil-io/pil/column"
)

func TestExplicitSequenceRangeOnTensorColumn(t *testing.T) {
	tp := NewPipeline(nil)
	cset := column.NewSet(column.ByteArray, nil)
	seqs := [][]byte{[]byte("ACGTACGT"), []byte("TTTTGGGG"), []byte("ACGTNNAC")}
	for _, s := range seqs {
		require.NoError(t, cset.AppendTensorRow(s, int64(len(s))))
	}
	field := FieldDescriptor{Flavor: column.FlavorTensor, Type: column.ByteArray, Chain: []Codec{CodecSequenceRange}}
	results, err := tp.Transform(cset, field)
	require.NoError(t, err)
	require.Len(t, results, 2)
	data := cset.Columns[1]
	require.Len(t, data.Transforms, 1)
	require.Equal(t, uint32(CodecSequenceRange), data.Transforms[0].CodecID)

	// Metadata bookkeeping alone doesn't prove the entropy coder actually
	// round-trips; decode the column back and compare against the input
	// bytes the same way reverse_test.go's dedicated round-trip cases do.
	_, dataBytes, err := ReverseTensorSet(cset)
	require.NoError(t, err)
	var want []byte
	for _, s := range seqs {
		want = append(want, s...)
	}
	require.Equal(t, want, dataBytes)
}
