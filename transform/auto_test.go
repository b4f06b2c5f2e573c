package transform

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pil-io/pil/column"
)

func TestAutoTransformColumnAlwaysCompresses(t *testing.T) {
	tp := NewPipeline(nil)
	col := column.NewStore(column.U32, column.FlavorFixed, nil)
	for i := 0; i < 50; i++ {
		require.NoError(t, col.AppendU32(uint32(i%3)))
	}
	res, err := tp.autoTransformColumn(col)
	require.NoError(t, err)
	require.NotEmpty(t, col.Transforms)
	require.Equal(t, uint32(CodecBlock), col.Transforms[len(col.Transforms)-1].CodecID)
	_ = res
}

func TestAutoTransformTensorDeltaEncodesOffsets(t *testing.T) {
	tp := NewPipeline(nil)
	cset := column.NewSet(column.ByteArray, nil)
	for i := 0; i < 5; i++ {
		require.NoError(t, cset.AppendTensorRow([]byte("x"), 1))
	}
	results, err := tp.Transform(cset, FieldDescriptor{Flavor: column.FlavorTensor, Type: column.ByteArray})
	require.NoError(t, err)
	require.Len(t, results, 2)
	offsets := cset.Columns[0]
	require.NotEmpty(t, offsets.Transforms)
	require.Equal(t, uint32(CodecDelta), offsets.Transforms[0].CodecID)
}
