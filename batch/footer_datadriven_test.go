package batch

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"testing"

	"github.com/cockroachdb/datadriven"
	"github.com/stretchr/testify/require"

	"github.com/pil-io/pil/column"
	"github.com/pil-io/pil/dict"
	"github.com/pil-io/pil/record"
	"github.com/pil-io/pil/transform"
)

// fixtureState threads the in-progress archive between datadriven
// commands within one RunTest invocation: "append" mutates batch,
// "close" drains it into stream/fm and clears batch so the next "append"
// opens a fresh one, "finalize" writes and re-reads the footer. fd/sd
// persist across batches, matching spec §3's "field/schema dictionaries
// live for the whole writer session".
type fixtureState struct {
	fd     *dict.FieldDictionary
	sd     *dict.SchemaDictionary
	batch  *Batch
	stream bytes.Buffer
	fm     *FileMetaData
}

// TestFooterDataDriven exercises the batch-close / footer-write /
// footer-read round trip through text fixtures, in the teacher's
// data_test.go idiom: each testdata command mutates or inspects a single
// archive built up across the file, rather than one fixed Go assertion
// per case.
func TestFooterDataDriven(t *testing.T) {
	fx := &fixtureState{
		fd: dict.NewFieldDictionary(),
		sd: dict.NewSchemaDictionary(),
		fm: NewFileMetaData(),
	}
	datadriven.RunTest(t, "testdata/footer", func(t *testing.T, d *datadriven.TestData) string {
		switch d.Cmd {
		case "append":
			return runAppendCmd(t, fx, d)
		case "close":
			return runCloseCmd(t, fx)
		case "finalize":
			return runFinalizeCmd(t, fx)
		default:
			t.Fatalf("unknown command %q", d.Cmd)
			return ""
		}
	})
}

// runAppendCmd parses one record per input line, e.g. "a=1 b=2", and
// appends each as a u32-scalar record to the current batch, opening a
// fresh batch if none is currently open.
func runAppendCmd(t *testing.T, fx *fixtureState, d *datadriven.TestData) string {
	if fx.batch == nil {
		fx.batch = New(nil, fx.fd, fx.sd)
	}
	var rb record.Builder
	for _, line := range strings.Split(strings.TrimSpace(d.Input), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		rb.Reset()
		for _, field := range strings.Fields(line) {
			parts := strings.SplitN(field, "=", 2)
			require.Len(t, parts, 2)
			v, err := strconv.ParseUint(parts[1], 10, 32)
			require.NoError(t, err)
			rb.AppendScalar(parts[0], column.U32, u32b(uint32(v)))
		}
		require.NoError(t, fx.batch.Append(rb.Record()))
	}
	return fmt.Sprintf("n_rec=%d\n", fx.batch.NRec())
}

// runCloseCmd closes the open batch, serializes its schema column and
// every field's column set into the shared stream, and records their
// offsets into the shared FileMetaData.
func runCloseCmd(t *testing.T, fx *fixtureState) string {
	tp := transform.NewPipeline(nil)
	closed, err := fx.batch.Close(tp)
	require.NoError(t, err)

	schemaOffset := int64(fx.stream.Len())
	require.NoError(t, WriteSchemaColumn(&fx.stream, closed))
	bd := BatchDescriptor{
		NRec:         uint32(closed.NRec),
		SchemaOffset: uint64(schemaOffset),
		SchemaStats:  closed.SchemaStats,
	}
	batchIdx := fx.fm.AddBatch(bd)

	var sb strings.Builder
	fmt.Fprintf(&sb, "n_rec=%d\n", closed.NRec)
	for _, fr := range closed.Fields {
		off := int64(fx.stream.Len())
		require.NoError(t, WriteFieldColumnSet(&fx.stream, fr))
		fx.fm.RecordField(fr.GlobalID, fr.Name, BatchFieldEntry{
			BatchIndex: batchIdx,
			Offset:     uint64(off),
			Stats:      fr.Stats,
		})
		fmt.Fprintf(&sb, "field=%s stats_valid=%v min=%d max=%d\n",
			fr.Name, fr.Stats[0].Valid, fr.Stats[0].Min, fr.Stats[0].Max)
	}
	fx.batch = nil
	return sb.String()
}

// runFinalizeCmd writes the footer, reads it back from the accumulated
// stream, and dumps the decoded totals so the fixture can assert the
// whole write/read cycle without a bespoke Go assertion per case.
func runFinalizeCmd(t *testing.T, fx *fixtureState) string {
	footerOff := int64(fx.stream.Len())
	n, err := WriteFooter(&fx.stream, fx.fm)
	require.NoError(t, err)
	require.Equal(t, n, int64(fx.stream.Len())-footerOff)

	decoded, err := ReadFooter(sliceReaderAt(fx.stream.Bytes()), int64(fx.stream.Len()))
	require.NoError(t, err)

	var sb strings.Builder
	fmt.Fprintf(&sb, "total_rows=%d n_batches=%d n_fields=%d\n", decoded.TotalRows, len(decoded.Batches), len(decoded.Fields))
	for _, f := range decoded.Fields {
		fmt.Fprintf(&sb, "field=%s n_entries=%d\n", f.Name, len(f.Entries))
	}
	return sb.String()
}
