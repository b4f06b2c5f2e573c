package batch

import (
	"github.com/pil-io/pil/block"
	"github.com/pil-io/pil/column"
	"github.com/pil-io/pil/dict"
	"github.com/pil-io/pil/errs"
	"github.com/pil-io/pil/transform"
)

// FieldResult is one field's transformed, serialize-ready column set
// within a closing batch.
type FieldResult struct {
	GlobalID int
	Name     string
	Set      *column.Set
	Results  []transform.ColumnResult // parallel to Set.Columns
	Stats    []column.SegmentStats    // parallel to Set.Columns
}

// Closed is the full output of closing a batch (spec §4.7): the
// compressed schema column and one FieldResult per field present in the
// batch, in local-dictionary order.
type Closed struct {
	NRec         int
	Schemas      *column.Store
	SchemaResult transform.ColumnResult
	SchemaStats  column.SegmentStats
	Fields       []FieldResult
}

// Close transforms every column set accumulated in b — the schema
// column via the generic block codec alone, each field's set via tp
// using its registered transform chain — and returns everything needed
// to serialize the batch and record its metadata (spec §4.7). b must
// not be reused after Close.
func (b *Batch) Close(tp *transform.Pipeline) (*Closed, error) {
	schemaStats := column.ComputeSegmentStats(b.schemas)
	schemaRes, err := closeSchemaColumn(b.schemas)
	if err != nil {
		return nil, err
	}

	fields := make([]FieldResult, 0, len(b.localDict))
	for local, gid := range b.localDict {
		cset := b.sets[local]
		desc, ok := b.fieldDict.Lookup(gid)
		if !ok {
			return nil, errs.New(errs.KindIntegrity, "batch: field id %d resolved but not registered", gid)
		}
		// Segment statistics (spec §4.6) must reflect the logical values a
		// predicate is evaluated against, so they are captured before the
		// transform pipeline rewrites the column's payload in place
		// (dictionary indices, delta-encoded offsets, or a compressed
		// blob are none of them comparable to the original values).
		stats := make([]column.SegmentStats, len(cset.Columns))
		for i, col := range cset.Columns {
			stats[i] = column.ComputeSegmentStats(col)
		}
		results, err := tp.Transform(cset, fieldDescriptor(desc))
		if err != nil {
			return nil, err
		}
		fields = append(fields, FieldResult{
			GlobalID: gid,
			Name:     desc.Name,
			Set:      cset,
			Results:  results,
			Stats:    stats,
		})
	}
	return &Closed{
		NRec:         b.nRec,
		Schemas:      b.schemas,
		SchemaResult: schemaRes,
		SchemaStats:  schemaStats,
		Fields:       fields,
	}, nil
}

// fieldDescriptor narrows a dict.FieldDescriptor to the subset the
// transform pipeline needs.
func fieldDescriptor(d dict.FieldDescriptor) transform.FieldDescriptor {
	chain := make([]transform.Codec, len(d.Transforms))
	for i, t := range d.Transforms {
		chain[i] = transform.Codec(t)
	}
	return transform.FieldDescriptor{Flavor: d.Flavor, Type: d.Type, Chain: chain}
}

// closeSchemaColumn compresses the schema-id column with the generic
// block codec directly, bypassing the transform pipeline: the schema
// column is not a declared field with its own transform chain, and spec
// §4.7 states its treatment explicitly ("the schema-id column is itself
// compressed with the block codec").
func closeSchemaColumn(col *column.Store) (transform.ColumnResult, error) {
	in := col.Bytes()
	inSize := int64(len(in))
	out, err := block.Compress(nil, in)
	if err != nil {
		return transform.ColumnResult{}, errs.Wrap(errs.KindResourceExhausted, err, "batch: schema column compress failed")
	}
	col.CompressedSize = int64(len(out))
	col.SetBytes(out)
	col.Transforms = append(col.Transforms, column.TransformMeta{
		CodecID:    block.CodecID,
		InputSize:  inSize,
		OutputSize: int64(len(out)),
		MD5:        column.ComputeStageMD5(out),
	})

	var res transform.ColumnResult
	words := col.Nullity.Words()
	res.NullityUncompressedSize = int64(len(words))
	if len(words) == 0 {
		return res, nil
	}
	nOut, err := block.Compress(nil, words)
	if err != nil || len(nOut) >= len(words) {
		res.NullityPayload = words
		return res, nil
	}
	res.NullityPayload = nOut
	res.NullityCompressedSize = int64(len(nOut))
	return res, nil
}
