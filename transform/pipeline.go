package transform

import (
	"github.com/pil-io/pil/block"
	"github.com/pil-io/pil/column"
	"github.com/pil-io/pil/errs"
	"github.com/pil-io/pil/pool"
	"github.com/pil-io/pil/transform/rangecoder"
)

// FieldDescriptor is the subset of dict.FieldDescriptor the pipeline
// needs: the column flavor/type and an optional explicit transform
// chain. Kept local (rather than importing package dict) to avoid a
// cycle, since dict's Transform type is just Codec under another name.
type FieldDescriptor struct {
	Flavor column.Flavor
	Type   column.PrimitiveType
	Chain  []Codec // nil/empty selects auto mode
}

// ColumnResult carries the per-column outputs of a Transform call that
// don't live on column.Store itself: the (possibly compressed) nullity
// payload and bookkeeping, and any auxiliary tuples recorded alongside
// each TransformMeta stage.
type ColumnResult struct {
	NullityPayload           []byte
	NullityUncompressedSize  int64
	NullityCompressedSize    int64
	Aux                      []column.StageAux
}

// Pipeline validates and applies transform chains to column sets (spec
// §4.5, C7). It allocates a scratch buffer from its pool at construction,
// but no stage reads or writes that buffer: every stage allocates its own
// output and hands it to the column store via SetBytes.
type Pipeline struct {
	pool    *pool.Pool
	scratch *pool.Buffer
}

// NewPipeline returns a Pipeline allocating scratch space from p
// (pool.Default() if nil).
func NewPipeline(p *pool.Pool) *Pipeline {
	return &Pipeline{pool: p, scratch: pool.NewBuffer(p)}
}

// ValidOrder reports whether chain is a legal transform chain per spec
// §4.5:
//   - an empty chain always selects auto mode and is valid;
//   - CodecAuto may not appear alongside any other token;
//   - CodecDictionary may appear at most once, and must come after every
//     non-dictionary encoding and before every compression stage.
func ValidOrder(chain []Codec) bool {
	if len(chain) <= 1 {
		return true
	}
	nAuto, nDict, dictPos := 0, 0, 0
	for i, c := range chain {
		if c == CodecAuto {
			nAuto++
		}
		if c == CodecDictionary {
			nDict++
			dictPos = i
		}
	}
	if nAuto > 0 {
		return false
	}
	if nDict == 0 {
		return true
	}
	if nDict != 1 {
		return false
	}
	for i := 0; i < dictPos; i++ {
		if isCompression(chain[i]) {
			return false
		}
	}
	for i := dictPos + 1; i < len(chain); i++ {
		if isEncoding(chain[i]) {
			return false
		}
	}
	return true
}

// Transform is the pipeline's entry point (spec §4.5): validates the
// chain described by field, then either runs auto mode or the explicit
// chain against every column store of cset. Returns one ColumnResult per
// column store, in cset.Columns order.
func (tp *Pipeline) Transform(cset *column.Set, field FieldDescriptor) ([]ColumnResult, error) {
	if !ValidOrder(field.Chain) {
		return nil, errs.New(errs.KindInputInvalid, "transform: illegal transform chain %v", field.Chain)
	}
	if len(field.Chain) == 0 || (len(field.Chain) == 1 && field.Chain[0] == CodecAuto) {
		return tp.autoTransform(cset, field)
	}
	return tp.explicitTransform(cset, field)
}

// columnRole distinguishes the three positions a column.Store can occupy
// within a column.Set, since dictionary encoding only makes sense
// against row-shaped (scalar/vector or tensor-data) stores and delta
// encoding only against monotonic u32 stores (a tensor's offsets).
type columnRole int

const (
	roleScalar columnRole = iota
	roleOffsets
	roleData
)

func (tp *Pipeline) explicitTransform(cset *column.Set, field FieldDescriptor) ([]ColumnResult, error) {
	results := make([]ColumnResult, len(cset.Columns))
	if cset.Shape == column.ShapeTensor && len(cset.Columns) == 2 {
		offsets, data := cset.Columns[0], cset.Columns[1]
		// The data chain runs first: its dictionary and range-coder stages
		// read row boundaries from the offsets store, which must still hold
		// the untransformed offsets at that point.
		data.PairedOffsets = offsets
		resData, err := tp.runChain(data, field.Chain, roleData)
		data.PairedOffsets = nil
		if err != nil {
			return nil, err
		}
		resOff, err := tp.runChain(offsets, field.Chain, roleOffsets)
		if err != nil {
			return nil, err
		}
		results[0], results[1] = resOff, resData
		return results, nil
	}
	for i, col := range cset.Columns {
		res, err := tp.runChain(col, field.Chain, roleScalar)
		if err != nil {
			return nil, err
		}
		results[i] = res
	}
	return results, nil
}

// stageApplies reports whether codec c is meaningful for a store playing
// role: dictionary encoding never applies to an offsets store (its
// values are already a compact monotonic sequence, not a field of
// repeated values), and delta encoding applies to an offsets store or a
// plain fixed-width store, never to a tensor data store (spec §4.5
// requires u32 input, which only offsets stores and plain u32 fields
// guarantee; DeltaEncodeStore rejects any other type).
func stageApplies(c Codec, role columnRole) bool {
	switch c {
	case CodecDictionary:
		return role != roleOffsets
	case CodecDelta:
		return role == roleOffsets || role == roleScalar
	case CodecQualityRange, CodecSequenceRange:
		return role == roleData
	default:
		return true
	}
}

// runChain applies chain sequentially to col, recording a TransformMeta
// (and any auxiliary tuples) per stage, and compresses the nullity bitmap
// with the block codec whenever any stage ran (matching auto mode's
// treatment of nullity as always eligible for the generic codec once the
// column itself has been transformed). Stages that don't apply to col's
// role (see stageApplies) are silently skipped rather than failing the
// whole chain, since spec §4.5's chain is expressed per field, not per
// store, and a tensor field's offsets/data stores play different roles
// under the same nominal chain.
func (tp *Pipeline) runChain(col *column.Store, chain []Codec, role columnRole) (ColumnResult, error) {
	var res ColumnResult
	ran := false
	for _, c := range chain {
		if !stageApplies(c, role) {
			continue
		}
		switch c {
		case CodecDictionary:
			if err := tp.applyDictionary(col); err != nil && !errs.Is(err, errs.KindNotEncoded) {
				return res, err
			}
		case CodecDelta:
			if err := DeltaEncodeStore(col); err != nil {
				return res, err
			}
		case CodecBlock:
			if err := tp.applyBlockCompress(col); err != nil {
				return res, err
			}
		case CodecQualityRange:
			if err := tp.applyQualityRange(col); err != nil {
				return res, err
			}
		case CodecSequenceRange:
			if err := tp.applySequenceRange(col); err != nil {
				return res, err
			}
		default:
			return res, errs.New(errs.KindInputInvalid, "transform: unsupported explicit codec %d", c)
		}
		ran = true
		res.Aux = append(res.Aux, column.StageAux{})
	}
	if ran {
		tp.compressNullity(col, &res)
	}
	return res, nil
}

// applyBlockCompress runs the generic block codec over col's current
// payload, recording the stage and updating CompressedSize.
func (tp *Pipeline) applyBlockCompress(col *column.Store) error {
	in := col.Bytes()
	inSize := int64(len(in))
	out, err := block.Compress(nil, in)
	if err != nil {
		return errs.Wrap(errs.KindResourceExhausted, err, "transform: block compress failed")
	}
	col.SetBytes(out)
	col.CompressedSize = int64(len(out))
	col.Transforms = append(col.Transforms, column.TransformMeta{
		CodecID:    uint32(CodecBlock),
		InputSize:  inSize,
		OutputSize: int64(len(out)),
		MD5:        column.ComputeStageMD5(out),
	})
	return nil
}

// applyQualityRange range-codes a tensor byte-array store as quality
// strings (spec §4.5/§6, codec id 2): row boundaries come from the
// paired offsets store, which must be attached via col.PairedOffsets
// before this is called (the same convention applyDictionary uses).
func (tp *Pipeline) applyQualityRange(col *column.Store) error {
	offsets, ok := tp.tensorOffsets(col)
	if !ok {
		return errs.New(errs.KindInputInvalid, "transform: quality range coder requires a paired offsets store")
	}
	rows, err := tensorRows(col, offsets)
	if err != nil {
		return err
	}
	inSize := int64(len(col.Bytes()))
	encoded := rangecoder.EncodeQuality(rows, rangecoder.QualityOptions{QCtxBits: 4, QCtxShift: 2, QLoc: 3, DLoc: 2})
	col.SetBytes(encoded)
	col.CompressedSize = int64(len(encoded))
	col.Transforms = append(col.Transforms, column.TransformMeta{
		CodecID:    uint32(CodecQualityRange),
		InputSize:  inSize,
		OutputSize: int64(len(encoded)),
		MD5:        column.ComputeStageMD5(encoded),
	})
	return nil
}

// applySequenceRange range-codes a tensor byte-array store as DNA bases
// (spec §4.5/§6, codec id 3), encoding all rows back to back into a
// single context-adaptive stream. Row lengths are not written into the
// stream; decoding replays DNADecoder.DecodeSequence per row using the
// lengths recovered from the offsets store.
func (tp *Pipeline) applySequenceRange(col *column.Store) error {
	offsets, ok := tp.tensorOffsets(col)
	if !ok {
		return errs.New(errs.KindInputInvalid, "transform: sequence range coder requires a paired offsets store")
	}
	rows, err := tensorRows(col, offsets)
	if err != nil {
		return err
	}
	inSize := int64(len(col.Bytes()))
	enc := rangecoder.NewDNAEncoder()
	for _, row := range rows {
		enc.EncodeSequence(row)
	}
	encoded := enc.Finish()
	col.SetBytes(encoded)
	col.CompressedSize = int64(len(encoded))
	col.Transforms = append(col.Transforms, column.TransformMeta{
		CodecID:    uint32(CodecSequenceRange),
		InputSize:  inSize,
		OutputSize: int64(len(encoded)),
		MD5:        column.ComputeStageMD5(encoded),
	})
	return nil
}

// tensorRows slices col's data into per-row byte slices using offsets,
// the same boundary computation column.Store.GetSlice performs.
func tensorRows(col, offsets *column.Store) ([][]byte, error) {
	n := int(offsets.NRecords) - 1
	rows := make([][]byte, n)
	for i := 0; i < n; i++ {
		row, err := col.GetSlice(offsets, i)
		if err != nil {
			return nil, err
		}
		rows[i] = row
	}
	return rows, nil
}

// compressNullity compresses col's nullity bitmap independently with the
// block codec, populating the ColumnResult fields the serialization
// layer needs (spec §6: nullity is framed with its own
// uncompressed/compressed sizes, separate from the column's own
// transform chain).
func (tp *Pipeline) compressNullity(col *column.Store, res *ColumnResult) {
	words := col.Nullity.Words()
	res.NullityUncompressedSize = int64(len(words))
	if len(words) == 0 {
		return
	}
	out, err := block.Compress(nil, words)
	if err != nil || len(out) >= len(words) {
		// Compression didn't help (or failed): store raw, matching the
		// "otherwise emit the uncompressed payload" rule of spec §4.2.
		res.NullityPayload = words
		res.NullityCompressedSize = 0
		return
	}
	res.NullityPayload = out
	res.NullityCompressedSize = int64(len(out))
}
