package pil

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pil-io/pil/batch"
	"github.com/pil-io/pil/column"
	"github.com/pil-io/pil/record"
)

func u32bytes(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}

func f64bytes(v float64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, math.Float64bits(v))
	return b
}

// TestWriterTwoFieldFixedWidthBatch reproduces spec §8 scenario 1: three
// records {A=1.0,B=1}, {A=2.0,B=2}, {A=3.0,B=3} land in one batch with a
// single repeated schema id and two fully-valid column sets.
func TestWriterTwoFieldFixedWidthBatch(t *testing.T) {
	var archive bytes.Buffer
	w, err := NewWriter(WriterOptions{
		Sink: batch.NewSingleArchiveSink(&archive),
		Now:  func() time.Time { return time.Unix(0, 0) },
	})
	require.NoError(t, err)

	for i := 1; i <= 3; i++ {
		var rb record.Builder
		rb.AppendScalar("A", column.F64, f64bytes(float64(i)))
		rb.AppendScalar("B", column.U32, u32bytes(uint32(i)))
		require.NoError(t, w.Append(rb.Record()))
	}

	fm, err := w.Finalize()
	require.NoError(t, err)
	require.Equal(t, uint64(3), fm.TotalRows)
	require.Len(t, fm.Batches, 1)
	require.Len(t, fm.Fields, 2)
	require.Equal(t, "A", fm.Fields[0].Name)
	require.Equal(t, "B", fm.Fields[1].Name)

	footerOff := int64(archive.Len())
	n, err := batch.WriteFooter(&archive, fm)
	require.NoError(t, err)
	require.Equal(t, n, int64(archive.Len())-footerOff)

	decoded, err := batch.ReadFooter(sliceReaderAt(archive.Bytes()), int64(archive.Len()))
	require.NoError(t, err)
	require.Equal(t, uint64(3), decoded.TotalRows)
	require.Len(t, decoded.Batches, 1)
	require.True(t, decoded.Fields[0].Entries[0].Stats[0].Valid)
	require.Equal(t, uint64(1), decoded.Fields[1].Entries[0].Stats[0].Min)
	require.Equal(t, uint64(3), decoded.Fields[1].Entries[0].Stats[0].Max)
}

// TestWriterRotatesBatchesAtBatchSize exercises multi-batch rotation: a
// BatchSize of 2 against 5 records must close two full batches plus one
// partial batch flushed by Finalize.
func TestWriterRotatesBatchesAtBatchSize(t *testing.T) {
	var archive bytes.Buffer
	w, err := NewWriter(WriterOptions{
		Sink:      batch.NewSingleArchiveSink(&archive),
		BatchSize: 2,
	})
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		var rb record.Builder
		rb.AppendScalar("a", column.U32, u32bytes(uint32(i)))
		require.NoError(t, w.Append(rb.Record()))
	}

	fm, err := w.Finalize()
	require.NoError(t, err)
	require.Equal(t, uint64(5), fm.TotalRows)
	require.Len(t, fm.Batches, 3)
	require.Equal(t, uint32(2), fm.Batches[0].NRec)
	require.Equal(t, uint32(2), fm.Batches[1].NRec)
	require.Equal(t, uint32(1), fm.Batches[2].NRec)
}

// TestWriterRejectsAppendAfterFinalize checks spec §5's "finalize() is
// the only clean stop": a Writer must refuse further work afterward.
func TestWriterRejectsAppendAfterFinalize(t *testing.T) {
	var archive bytes.Buffer
	w, err := NewWriter(WriterOptions{Sink: batch.NewSingleArchiveSink(&archive)})
	require.NoError(t, err)
	_, err = w.Finalize()
	require.NoError(t, err)

	var rb record.Builder
	rb.AppendScalar("a", column.U32, u32bytes(1))
	require.Error(t, w.Append(rb.Record()))

	_, err = w.Finalize()
	require.Error(t, err)
}

func TestNewWriterRequiresSink(t *testing.T) {
	_, err := NewWriter(WriterOptions{})
	require.Error(t, err)
}

type sliceReaderAt []byte

func (s sliceReaderAt) ReadAt(p []byte, off int64) (int, error) {
	return copy(p, s[off:]), nil
}
