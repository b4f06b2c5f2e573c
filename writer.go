// Package pil ties the columnar storage core's leaf packages (pool,
// column, dict, record, batch, transform, block) into the single
// entry point spec §3/§5 call the "writer session": one Writer accepts
// records, rotates record batches at the configured size, transforms
// and serializes each closed batch through a Sink, and produces a
// FileMetaData footer on Finalize. Mirrors how the teacher's root
// package (DB) composes sstable/ and internal/ into one object a caller
// constructs once per session.
package pil

import (
	"time"

	"github.com/pil-io/pil/batch"
	"github.com/pil-io/pil/dict"
	"github.com/pil-io/pil/errs"
	"github.com/pil-io/pil/pool"
	"github.com/pil-io/pil/record"
	"github.com/pil-io/pil/transform"
)

// WriterOptions aggregates every Writer tunable into one struct rather
// than scattering parameters across constructor arguments, the way the
// teacher's sstable.WriterOptions/Options aggregate compression level,
// block size, and filter policy.
type WriterOptions struct {
	// Pool supplies every buffer the writer's batches and pipeline
	// allocate from. Nil selects pool.Default().
	Pool *pool.Pool
	// BatchSize is the record-count threshold (spec §3's B, typically
	// 8192) at which an open batch is closed and a new one started.
	// Zero selects batch.DefaultSize.
	BatchSize int
	// Sink routes each closed batch's serialized bytes to their
	// destination stream(s) — single- or multi-archive mode (spec §4.7).
	// Required.
	Sink batch.Sink
	// Logger receives progress notifications. Nil selects NopLogger.
	Logger Logger
	// Now returns the current time, stamped onto each BatchDescriptor/
	// BatchFieldEntry as their "last-modified timestamp" (spec §4.7).
	// Nil selects time.Now; tests can inject a fixed clock for
	// deterministic footers.
	Now func() time.Time
}

func (o WriterOptions) batchSize() int {
	if o.BatchSize > 0 {
		return o.BatchSize
	}
	return batch.DefaultSize
}

func (o WriterOptions) logger() Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return NopLogger
}

func (o WriterOptions) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

// Writer is a single-writer, single-threaded ingest session (spec §5):
// every method here runs synchronously to completion on the calling
// goroutine, and a Writer must not be shared across goroutines.
type Writer struct {
	opts       WriterOptions
	fieldDict  *dict.FieldDictionary
	schemaDict *dict.SchemaDictionary
	pipeline   *transform.Pipeline

	cur *batch.Batch
	fm  *batch.FileMetaData

	finalized bool
}

// NewWriter returns a Writer ready to accept records. opts.Sink must be
// set; everything else defaults per WriterOptions' field docs.
func NewWriter(opts WriterOptions) (*Writer, error) {
	if opts.Sink == nil {
		return nil, errs.New(errs.KindInputInvalid, "pil: WriterOptions.Sink is required")
	}
	return &Writer{
		opts:       opts,
		fieldDict:  dict.NewFieldDictionary(),
		schemaDict: dict.NewSchemaDictionary(),
		pipeline:   transform.NewPipeline(opts.Pool),
		fm:         batch.NewFileMetaData(),
	}, nil
}

// Append shreds rec into the current batch (spec §4.4), registering any
// new field names and the record's schema along the way, and closes the
// batch once it reaches WriterOptions.BatchSize (spec §4.4 step 6). A
// failure here aborts the session per spec §7: the caller must discard
// the Writer and the partial archive, not retry.
func (w *Writer) Append(rec record.Record) error {
	if w.finalized {
		return errs.New(errs.KindInputInvalid, "pil: Append called after Finalize")
	}
	if w.cur == nil {
		w.cur = batch.New(w.opts.Pool, w.fieldDict, w.schemaDict)
	}
	if err := w.cur.Append(rec); err != nil {
		return err
	}
	if w.cur.Full(w.opts.batchSize()) {
		return w.closeCurrentBatch()
	}
	return nil
}

// closeCurrentBatch transforms and serializes the open batch through
// opts.Sink, records its metadata, and clears w.cur so the next Append
// opens a fresh one.
func (w *Writer) closeCurrentBatch() error {
	closed, err := w.cur.Close(w.pipeline)
	if err != nil {
		return err
	}
	w.cur = nil

	schemaW, schemaOff, err := w.opts.Sink.SchemaWriter()
	if err != nil {
		return err
	}
	if err := batch.WriteSchemaColumn(schemaW, closed); err != nil {
		return err
	}
	ts := w.opts.now().UnixNano()
	batchIdx := w.fm.AddBatch(batch.BatchDescriptor{
		NRec:         uint32(closed.NRec),
		SchemaOffset: uint64(schemaOff),
		SchemaTime:   ts,
		SchemaStats:  closed.SchemaStats,
	})

	for _, fr := range closed.Fields {
		fw, off, err := w.opts.Sink.FieldWriter(fr.GlobalID, fr.Name)
		if err != nil {
			return err
		}
		if err := batch.WriteFieldColumnSet(fw, fr); err != nil {
			return err
		}
		w.fm.RecordField(fr.GlobalID, fr.Name, batch.BatchFieldEntry{
			BatchIndex: batchIdx,
			Offset:     uint64(off),
			Timestamp:  ts,
			Stats:      fr.Stats,
		})
	}

	w.opts.logger().Infof("pil: closed batch %d (%d records, %d fields)", batchIdx, closed.NRec, len(closed.Fields))
	return nil
}

// Finalize closes any partially-filled open batch, closes the sink, and
// returns the accumulated FileMetaData — the footer's content (spec
// §4.7, §5: "finalize() is the only clean stop"). A Writer must not be
// used again after Finalize, success or failure: spec §7 treats the
// writer's single finalize result as the one user-visible pass/fail
// signal for the whole session.
func (w *Writer) Finalize() (*batch.FileMetaData, error) {
	if w.finalized {
		return nil, errs.New(errs.KindInputInvalid, "pil: Finalize called twice")
	}
	w.finalized = true
	if w.cur != nil && w.cur.NRec() > 0 {
		if err := w.closeCurrentBatch(); err != nil {
			return nil, err
		}
	}
	if err := w.opts.Sink.Close(); err != nil {
		return nil, err
	}
	w.opts.logger().Infof("pil: finalized archive: %d rows across %d batches, %d fields", w.fm.TotalRows, len(w.fm.Batches), len(w.fm.Fields))
	return w.fm, nil
}
