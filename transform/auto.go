package transform

import (
	"github.com/pil-io/pil/column"
	"github.com/pil-io/pil/errs"
)

// autoTransform resolves the CodecAuto token (an empty field chain) to a
// concrete sequence of stages per spec §4.5: try dictionary encoding
// where the column's shape allows it, then always finish with the
// generic block codec, which is never skipped in auto mode regardless of
// whether dictionary encoding applied.
func (tp *Pipeline) autoTransform(cset *column.Set, field FieldDescriptor) ([]ColumnResult, error) {
	if cset.Shape == column.ShapeTensor {
		return tp.autoTransformTensor(cset)
	}
	return tp.autoTransformColumns(cset)
}

// autoTransformColumns runs autoTransformColumn over every store of a
// fixed scalar/vector set.
func (tp *Pipeline) autoTransformColumns(cset *column.Set) ([]ColumnResult, error) {
	results := make([]ColumnResult, len(cset.Columns))
	for i, col := range cset.Columns {
		res, err := tp.autoTransformColumn(col)
		if err != nil {
			return nil, err
		}
		results[i] = res
	}
	return results, nil
}

// autoTransformColumn tries dictionary encoding, then unconditionally
// block-compresses whatever payload remains (the original values if
// dictionary encoding wasn't worthwhile, the index array otherwise).
func (tp *Pipeline) autoTransformColumn(col *column.Store) (ColumnResult, error) {
	var res ColumnResult
	if err := tp.applyDictionary(col); err != nil && !errs.Is(err, errs.KindNotEncoded) {
		return res, err
	}
	if err := tp.applyBlockCompress(col); err != nil {
		return res, err
	}
	tp.compressNullity(col, &res)
	return res, nil
}

// autoTransformTensor runs the tensor-specific auto sequence (spec
// §4.5): the offsets store is monotonic, so it is always delta-encoded
// before compression; the data store goes through the same
// dictionary-then-compress sequence as a fixed column, using the
// original (pre-delta) offsets to compute row boundaries.
func (tp *Pipeline) autoTransformTensor(cset *column.Set) ([]ColumnResult, error) {
	if len(cset.Columns) != 2 {
		return nil, errs.New(errs.KindInputInvalid, "transform: tensor set must have exactly 2 columns, got %d", len(cset.Columns))
	}
	offsets, data := cset.Columns[0], cset.Columns[1]

	data.PairedOffsets = offsets
	dataRes, err := tp.autoTransformColumn(data)
	data.PairedOffsets = nil
	if err != nil {
		return nil, err
	}

	var offRes ColumnResult
	if err := DeltaEncodeStore(offsets); err != nil {
		return nil, err
	}
	if err := tp.applyBlockCompress(offsets); err != nil {
		return nil, err
	}
	tp.compressNullity(offsets, &offRes)

	return []ColumnResult{offRes, dataRes}, nil
}
