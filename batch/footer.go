package batch

import (
	"encoding/binary"
	"io"

	"github.com/pil-io/pil/column"
	"github.com/pil-io/pil/errs"
)

// footerMagic trails every archive's footer. A reader that can seek (or
// holds the full byte range) locates the footer by reading the fixed
// trailer at the end of the stream and walking backward by its recorded
// length — the same fixed-anchor-at-a-variable-length-footer trick
// pebble's sstable footer uses (sstable/table.go's levelDB/rocksDB
// magic-number trailers), simplified to a single format since this
// archive has no legacy format to support.
const footerMagic = "PILFOOT1"

// trailerLen is the fixed suffix every archive ends with: the footer
// body's byte length (u64) followed by footerMagic.
const trailerLen = 8 + len(footerMagic)

// WriteFooter appends the spec §6 footer body — `u64 total_rows`, `u32
// n_batches`, {RecordBatch descriptors}, `u32 n_fields`, {FieldMetaData}
// — followed by the fixed trailer, and returns the total number of
// bytes written.
func WriteFooter(w io.Writer, fm *FileMetaData) (int64, error) {
	cw := &countingWriter{w: w}
	if err := w64(cw, fm.TotalRows); err != nil {
		return cw.n, err
	}
	if err := w32(cw, uint32(len(fm.Batches))); err != nil {
		return cw.n, err
	}
	for _, bd := range fm.Batches {
		if err := writeBatchDescriptor(cw, bd); err != nil {
			return cw.n, err
		}
	}
	if err := w32(cw, uint32(len(fm.Fields))); err != nil {
		return cw.n, err
	}
	for _, field := range fm.Fields {
		if err := writeFieldMetaData(cw, field); err != nil {
			return cw.n, err
		}
	}
	bodyLen := uint64(cw.n)
	if err := w64(cw, bodyLen); err != nil {
		return cw.n, err
	}
	if _, err := cw.Write([]byte(footerMagic)); err != nil {
		return cw.n, err
	}
	return cw.n, nil
}

// ReadFooter reads the footer from r, whose total length is size,
// verifying the trailing magic number and returning the decoded
// FileMetaData.
func ReadFooter(r io.ReaderAt, size int64) (*FileMetaData, error) {
	if size < int64(trailerLen) {
		return nil, errs.New(errs.KindIntegrity, "batch: archive too small to contain a footer (%d bytes)", size)
	}
	trailer := make([]byte, trailerLen)
	if _, err := r.ReadAt(trailer, size-int64(trailerLen)); err != nil {
		return nil, err
	}
	if string(trailer[8:]) != footerMagic {
		return nil, errs.New(errs.KindIntegrity, "batch: bad footer magic number")
	}
	bodyLen := binary.LittleEndian.Uint64(trailer[:8])
	bodyOff := size - int64(trailerLen) - int64(bodyLen)
	if bodyOff < 0 {
		return nil, errs.New(errs.KindIntegrity, "batch: footer length %d exceeds archive size", bodyLen)
	}
	body := make([]byte, bodyLen)
	if _, err := r.ReadAt(body, bodyOff); err != nil {
		return nil, err
	}
	return decodeFooterBody(body)
}

func decodeFooterBody(body []byte) (*FileMetaData, error) {
	br := &byteReader{b: body}
	fm := NewFileMetaData()
	totalRows, err := br.u64()
	if err != nil {
		return nil, err
	}
	fm.TotalRows = totalRows
	nBatches, err := br.u32()
	if err != nil {
		return nil, err
	}
	fm.Batches = make([]BatchDescriptor, nBatches)
	for i := range fm.Batches {
		bd, err := readBatchDescriptor(br)
		if err != nil {
			return nil, err
		}
		fm.Batches[i] = bd
	}
	nFields, err := br.u32()
	if err != nil {
		return nil, err
	}
	fm.Fields = make([]FieldMetaData, nFields)
	for i := range fm.Fields {
		f, err := readFieldMetaData(br)
		if err != nil {
			return nil, err
		}
		fm.Fields[i] = f
	}
	return fm, nil
}

func writeBatchDescriptor(w io.Writer, bd BatchDescriptor) error {
	if err := w32(w, bd.NRec); err != nil {
		return err
	}
	if err := w64(w, bd.SchemaOffset); err != nil {
		return err
	}
	if err := w64(w, uint64(bd.SchemaTime)); err != nil {
		return err
	}
	return writeSegmentStats(w, bd.SchemaStats)
}

func readBatchDescriptor(br *byteReader) (BatchDescriptor, error) {
	var bd BatchDescriptor
	nRec, err := br.u32()
	if err != nil {
		return bd, err
	}
	off, err := br.u64()
	if err != nil {
		return bd, err
	}
	ts, err := br.u64()
	if err != nil {
		return bd, err
	}
	stats, err := readSegmentStats(br)
	if err != nil {
		return bd, err
	}
	bd.NRec, bd.SchemaOffset, bd.SchemaTime, bd.SchemaStats = nRec, off, int64(ts), stats
	return bd, nil
}

func writeFieldMetaData(w io.Writer, f FieldMetaData) error {
	if err := w32(w, uint32(f.FieldID)); err != nil {
		return err
	}
	if err := writeString(w, f.Name); err != nil {
		return err
	}
	if err := w32(w, uint32(len(f.Entries))); err != nil {
		return err
	}
	for _, e := range f.Entries {
		if err := writeBatchFieldEntry(w, e); err != nil {
			return err
		}
	}
	return nil
}

func readFieldMetaData(br *byteReader) (FieldMetaData, error) {
	var f FieldMetaData
	id, err := br.u32()
	if err != nil {
		return f, err
	}
	name, err := readString(br)
	if err != nil {
		return f, err
	}
	nEntries, err := br.u32()
	if err != nil {
		return f, err
	}
	entries := make([]BatchFieldEntry, nEntries)
	for i := range entries {
		e, err := readBatchFieldEntry(br)
		if err != nil {
			return f, err
		}
		entries[i] = e
	}
	f.FieldID, f.Name, f.Entries = int(id), name, entries
	return f, nil
}

func writeBatchFieldEntry(w io.Writer, e BatchFieldEntry) error {
	if err := w32(w, uint32(e.BatchIndex)); err != nil {
		return err
	}
	if err := w64(w, e.Offset); err != nil {
		return err
	}
	if err := w64(w, uint64(e.Timestamp)); err != nil {
		return err
	}
	if err := w32(w, uint32(len(e.Stats))); err != nil {
		return err
	}
	for _, s := range e.Stats {
		if err := writeSegmentStats(w, s); err != nil {
			return err
		}
	}
	return nil
}

func readBatchFieldEntry(br *byteReader) (BatchFieldEntry, error) {
	var e BatchFieldEntry
	idx, err := br.u32()
	if err != nil {
		return e, err
	}
	off, err := br.u64()
	if err != nil {
		return e, err
	}
	ts, err := br.u64()
	if err != nil {
		return e, err
	}
	nStats, err := br.u32()
	if err != nil {
		return e, err
	}
	stats := make([]column.SegmentStats, nStats)
	for i := range stats {
		s, err := readSegmentStats(br)
		if err != nil {
			return e, err
		}
		stats[i] = s
	}
	e.BatchIndex, e.Offset, e.Timestamp, e.Stats = int(idx), off, int64(ts), stats
	return e, nil
}

func writeSegmentStats(w io.Writer, s column.SegmentStats) error {
	valid := uint8(0)
	if s.Valid {
		valid = 1
	}
	if _, err := w.Write([]byte{valid}); err != nil {
		return err
	}
	if err := w64(w, s.Min); err != nil {
		return err
	}
	return w64(w, s.Max)
}

func readSegmentStats(br *byteReader) (column.SegmentStats, error) {
	var s column.SegmentStats
	valid, err := br.u8()
	if err != nil {
		return s, err
	}
	min, err := br.u64()
	if err != nil {
		return s, err
	}
	max, err := br.u64()
	if err != nil {
		return s, err
	}
	s.Valid, s.Min, s.Max = valid != 0, min, max
	return s, nil
}

func writeString(w io.Writer, s string) error {
	if err := w32(w, uint32(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

func readString(br *byteReader) (string, error) {
	n, err := br.u32()
	if err != nil {
		return "", err
	}
	b, err := br.bytes(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	m, err := c.w.Write(p)
	c.n += int64(m)
	return m, err
}

func w32(w io.Writer, v uint32) error {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	_, err := w.Write(b[:])
	return err
}

func w64(w io.Writer, v uint64) error {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	_, err := w.Write(b[:])
	return err
}

// byteReader is a minimal cursor over an in-memory footer body; the
// footer is always read whole (ReadFooter already isolated its exact
// byte range), so there's no need for the general io.Reader error
// plumbing column/serialize.go uses for the streamed column payloads.
type byteReader struct {
	b   []byte
	off int
}

func (r *byteReader) need(n int) error {
	if r.off+n > len(r.b) {
		return errs.New(errs.KindIntegrity, "batch: footer body truncated")
	}
	return nil
}

func (r *byteReader) u8() (uint8, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	v := r.b[r.off]
	r.off++
	return v, nil
}

func (r *byteReader) u32() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(r.b[r.off:])
	r.off += 4
	return v, nil
}

func (r *byteReader) u64() (uint64, error) {
	if err := r.need(8); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint64(r.b[r.off:])
	r.off += 8
	return v, nil
}

func (r *byteReader) bytes(n int) ([]byte, error) {
	if err := r.need(n); err != nil {
		return nil, err
	}
	v := r.b[r.off : r.off+n]
	r.off += n
	return v, nil
}
