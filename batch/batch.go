// Package batch implements the record batch (spec §3, §4.4 — C6): the
// per-batch column sets a writer accumulates between two closes, the
// local field-id dictionary and per-row schema-id column that make a
// batch self-describing, and the close-time transform/serialize step
// that hands a batch's bytes and metadata to a sink.
package batch

import (
	"github.com/pil-io/pil/column"
	"github.com/pil-io/pil/dict"
	"github.com/pil-io/pil/pool"
)

// DefaultSize is the typical record batch size spec §3 names (B = 8192).
const DefaultSize = 8192

// Batch is a contiguous group of records (the Writer closes it at its
// configured batch size, DefaultSize unless set otherwise): the
// column sets, local field dictionary, and schema-id column accumulated
// since the last batch close (spec §3 C6).
type Batch struct {
	pool       *pool.Pool
	fieldDict  *dict.FieldDictionary
	schemaDict *dict.SchemaDictionary

	// localDict is the vector of global field ids in first-seen order
	// within this batch; globalToLocal is its inverse.
	localDict     []int
	globalToLocal map[int]int

	// sets[local] is the column set for localDict[local].
	sets []*column.Set

	// schemas is a u32 column store of per-row schema ids, length nRec.
	schemas *column.Store

	nRec int
}

// New returns an empty Batch drawing storage from p (pool.Default() if
// nil) and sharing fd/sd with the writer session that owns them — field
// and schema dictionaries live for the whole session, not per batch
// (spec §3 "Lifecycles").
func New(p *pool.Pool, fd *dict.FieldDictionary, sd *dict.SchemaDictionary) *Batch {
	return &Batch{
		pool:          p,
		fieldDict:     fd,
		schemaDict:    sd,
		globalToLocal: make(map[int]int),
		schemas:       column.NewStore(column.U32, column.FlavorFixed, p),
	}
}

// NRec returns the number of records committed to this batch so far.
func (b *Batch) NRec() int { return b.nRec }

// Full reports whether the batch has reached size records and should be
// closed.
func (b *Batch) Full(size int) bool { return b.nRec >= size }

// LocalDict returns the batch's global field ids in first-seen order.
func (b *Batch) LocalDict() []int { return b.localDict }

// Set returns the column set for the local index returned by LocalDict,
// or nil if local is out of range.
func (b *Batch) Set(local int) *column.Set {
	if local < 0 || local >= len(b.sets) {
		return nil
	}
	return b.sets[local]
}

// Schemas returns the batch's per-row schema-id column store.
func (b *Batch) Schemas() *column.Store { return b.schemas }
