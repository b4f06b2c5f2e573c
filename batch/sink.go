package batch

import (
	"io"

	"github.com/pil-io/pil/errs"
)

// Sink routes a writer session's serialized bytes to their destination
// stream(s) (spec §4.7: "Multi-archive mode writes each field to its own
// file; single-archive mode concatenates into one stream"). Both the
// schema column (the "core" metadata slot) and each field's column set
// go through a Sink so FileMetaData can record the offset each was
// written at regardless of which mode is in effect.
//
// The lazy-open-on-first-write discipline mirrors the teacher's
// writeNewBlobFiles (value_separation.go): a compaction's blob file is
// only created the first time a value actually needs separating, so
// parts of the keyspace that never produce an out-of-line value never
// leave behind an empty blob object. Here, a field that never appears in
// a batch never gets an empty archive file in multi-archive mode.
type Sink interface {
	// SchemaWriter returns the writer the current batch's schema-id
	// column is serialized to, and that writer's current offset.
	SchemaWriter() (io.Writer, int64, error)
	// FieldWriter returns the writer fieldID's column set is serialized
	// to for the current batch, and that writer's current offset,
	// opening the field's destination lazily on first use.
	FieldWriter(fieldID int, name string) (io.Writer, int64, error)
	// Close releases any resources the sink opened (files, in
	// multi-archive mode). Single-archive sinks never open anything of
	// their own and treat Close as a no-op.
	Close() error
}

// FileFactory opens the destination for one field's multi-archive file,
// by field id and name, matching the signature shape of
// writeNewBlobFiles.newBlobObject's lazy object construction.
type FileFactory func(fieldID int, name string) (io.WriteCloser, error)

// singleArchiveSink concatenates the schema column and every field's
// column set into one underlying stream (spec §4.7 "single-archive
// mode"), tracking a running byte offset via a countingWriter so callers
// can still record each segment's position in FileMetaData.
type singleArchiveSink struct {
	cw *countingWriter
}

// NewSingleArchiveSink returns a Sink that writes everything to w.
func NewSingleArchiveSink(w io.Writer) Sink {
	return &singleArchiveSink{cw: &countingWriter{w: w}}
}

func (s *singleArchiveSink) SchemaWriter() (io.Writer, int64, error) {
	return s.cw, s.cw.n, nil
}

func (s *singleArchiveSink) FieldWriter(int, string) (io.Writer, int64, error) {
	return s.cw, s.cw.n, nil
}

func (s *singleArchiveSink) Close() error { return nil }

// multiArchiveSink writes the schema column to a fixed core stream and
// each field to its own file, opened lazily via open on first use (spec
// §4.7 "multi-archive mode writes each field to its own file"). Each
// field's file tracks its own independent offset, since spec §4.7's
// per-field FieldMetaData offset is meaningful only relative to that
// field's own stream in this mode.
type multiArchiveSink struct {
	core    *countingWriter
	open    FileFactory
	writers map[int]*countingWriter
	closers []io.Closer
}

// NewMultiArchiveSink returns a Sink that writes the schema column to
// core and opens one file per field lazily via open.
func NewMultiArchiveSink(core io.Writer, open FileFactory) Sink {
	return &multiArchiveSink{
		core:    &countingWriter{w: core},
		open:    open,
		writers: make(map[int]*countingWriter),
	}
}

func (s *multiArchiveSink) SchemaWriter() (io.Writer, int64, error) {
	return s.core, s.core.n, nil
}

func (s *multiArchiveSink) FieldWriter(fieldID int, name string) (io.Writer, int64, error) {
	cw, ok := s.writers[fieldID]
	if !ok {
		wc, err := s.open(fieldID, name)
		if err != nil {
			return nil, 0, errs.Wrap(errs.KindResourceExhausted, err, "batch: opening archive file for field %q failed", name)
		}
		cw = &countingWriter{w: wc}
		s.writers[fieldID] = cw
		s.closers = append(s.closers, wc)
	}
	return cw, cw.n, nil
}

func (s *multiArchiveSink) Close() error {
	var first error
	for _, c := range s.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
