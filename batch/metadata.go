package batch

import "github.com/pil-io/pil/column"

// BatchDescriptor is one closed batch's footer-level summary (spec §6
// "RecordBatch descriptors"): its record count and the file offset,
// timestamp, and segment statistics of its serialized schema-id column
// — the "core" metadata slot spec §4.7 reserves for it.
type BatchDescriptor struct {
	NRec         uint32
	SchemaOffset uint64
	SchemaTime   int64
	SchemaStats  column.SegmentStats
}

// BatchFieldEntry is one field's appearance within one batch: the file
// offset its serialized column set starts at, a last-modified
// timestamp, and the column set's per-store segment statistics (spec
// §3's "FieldMetaData containing one ColumnSetMetaData per batch the
// field appears in").
type BatchFieldEntry struct {
	BatchIndex int
	Offset     uint64
	Timestamp  int64
	Stats      []column.SegmentStats // one per column set store
}

// FieldMetaData is the footer-level record for one field across the
// whole file: its name and one BatchFieldEntry per batch it appeared in.
type FieldMetaData struct {
	FieldID int
	Name    string
	Entries []BatchFieldEntry
}

// FileMetaData is the writer session's accumulated footer content (spec
// §4.6, §4.7, §6): total row count, the ordered batch descriptors, and
// per-field metadata. It lives for the whole writer session and is
// serialized once, at finalize (spec §3 "Lifecycles").
type FileMetaData struct {
	TotalRows uint64
	Batches   []BatchDescriptor
	Fields    []FieldMetaData // indexed by global field id
}

// NewFileMetaData returns an empty FileMetaData.
func NewFileMetaData() *FileMetaData {
	return &FileMetaData{}
}

// AddBatch records a closed batch's descriptor and returns its index.
func (fm *FileMetaData) AddBatch(d BatchDescriptor) int {
	fm.TotalRows += uint64(d.NRec)
	fm.Batches = append(fm.Batches, d)
	return len(fm.Batches) - 1
}

// RecordField appends entry to fieldID's FieldMetaData, creating it (and
// any field slots skipped so far, since a field can close its first
// batch before a lower-numbered field that was registered earlier but
// has appeared in no batch yet) on first use.
func (fm *FileMetaData) RecordField(fieldID int, name string, entry BatchFieldEntry) {
	for len(fm.Fields) <= fieldID {
		fm.Fields = append(fm.Fields, FieldMetaData{FieldID: len(fm.Fields)})
	}
	fm.Fields[fieldID].Name = name
	fm.Fields[fieldID].Entries = append(fm.Fields[fieldID].Entries, entry)
}
