package transform

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
	"github.com/cockroachdb/swiss"

	"github.com/pil-io/pil/column"
	"github.com/pil-io/pil/errs"
)

// Cardinality thresholds below which dictionary encoding is worth the
// extra indirection (spec §4.5, §9): distinct/valid rows must fall under
// these ratios for the respective flavor, or the stage is skipped
// rather than forced.
const (
	fixedWidthDictThreshold = 0.20
	tensorDictThreshold     = 0.30
)

// applyDictionary attempts dictionary encoding on col in place. Returns
// an error marked errs.KindNotEncoded (not a hard failure) when the
// column's cardinality ratio doesn't clear the threshold for its flavor,
// so callers in auto mode can fall through to the next stage.
func (tp *Pipeline) applyDictionary(col *column.Store) error {
	if col.Dict != nil {
		return errs.New(errs.KindInputInvalid, "transform: dictionary already applied")
	}
	switch col.Flavor {
	case column.FlavorFixed:
		return tp.dictionaryEncodeFixed(col)
	case column.FlavorTensor:
		return tp.dictionaryEncodeTensor(col)
	default:
		return errs.New(errs.KindInputInvalid, "transform: unknown column flavor")
	}
}

// dictionaryEncodeFixed builds a fixed-width dictionary over col's
// distinct raw values using an exact hash map keyed by the value's
// little-endian bit pattern (widths up to 8 bytes, spec §3's "flat array
// of fixed-width values" dictionary shape). Equality is exact: unlike
// the tensor path, collisions in the backing map are real key
// collisions, not tolerated hash collisions, because the key space here
// is the value itself rather than a digest of it.
func (tp *Pipeline) dictionaryEncodeFixed(col *column.Store) error {
	width := col.Type.Width()
	if width == 0 || width > 8 {
		return errs.New(errs.KindNotEncoded, "transform: type %s not eligible for fixed dictionary encoding", col.Type)
	}
	n := int(col.NRecords)
	if n == 0 {
		return errs.New(errs.KindNotEncoded, "transform: empty column")
	}
	data := col.Bytes()
	index := swiss.New[uint64, uint32](n)
	var dictPayload []byte
	indices := make([]uint32, n)
	nextID := uint32(0)
	nValid := 0
	for i := 0; i < n; i++ {
		if !col.IsValid(i) {
			// Spec §4.5: null rows become index 0 regardless of what
			// valid value that index holds — validity is already
			// tracked independently by the nullity bitmap.
			indices[i] = 0
			continue
		}
		nValid++
		raw := data[i*width : (i+1)*width]
		key := keyOf(raw, width)
		id, ok := index.Get(key)
		if !ok {
			id = nextID
			nextID++
			index.Put(key, id)
			dictPayload = append(dictPayload, raw...)
		}
		indices[i] = id
	}
	if nValid == 0 {
		return errs.New(errs.KindNotEncoded, "transform: no valid rows")
	}
	ratio := float64(nextID) / float64(nValid)
	if ratio >= fixedWidthDictThreshold {
		return errs.New(errs.KindNotEncoded, "transform: fixed dictionary ratio %.3f above threshold", ratio)
	}
	inSize := int64(len(data))
	encoded := make([]byte, n*4)
	for i, id := range indices {
		binary.LittleEndian.PutUint32(encoded[i*4:], id)
	}
	col.SetBytes(encoded)
	col.Dict = &column.Dictionary{
		HasLengths: false,
		NRecords:   int64(n),
		NElements:  int64(nextID),
		Payload:    dictPayload,
	}
	col.Transforms = append(col.Transforms, column.TransformMeta{
		CodecID:    uint32(CodecDictionary),
		InputSize:  inSize,
		OutputSize: int64(len(encoded)),
		MD5:        column.ComputeStageMD5(encoded),
	})
	return nil
}

// dictionaryEncodeTensor builds a variable-length dictionary over col's
// distinct row slices, keyed by an xxhash digest of each row's bytes
// rather than the bytes themselves (spec §9): a digest collision between
// two distinct rows silently aliases them to the same dictionary entry.
// This is accepted by design for this flavor; it is not guarded against
// because the corpus's own dictionary builder takes the same shortcut
// for variable-length keys, where exact-equality hashing would require
// holding every distinct row's bytes as the map key instead of a fixed
// 8-byte digest.
func (tp *Pipeline) dictionaryEncodeTensor(col *column.Store) error {
	offsets, ok := tp.tensorOffsets(col)
	if !ok {
		return errs.New(errs.KindNotEncoded, "transform: tensor dictionary requires paired offsets store")
	}
	n := int(offsets.NRecords) - 1
	if n <= 0 {
		return errs.New(errs.KindNotEncoded, "transform: empty tensor column")
	}
	data := col.Bytes()
	index := swiss.New[uint64, uint32](n)
	var dictPayload []byte
	var lengths []uint32
	indices := make([]uint32, n)
	nextID := uint32(0)
	nValid := 0
	for i := 0; i < n; i++ {
		if !offsets.IsValid(i + 1) {
			// Bit 0 of the offsets store's bitmap belongs to the leading
			// 0 entry, so row i's validity is bit i+1. Null tensor rows
			// contribute a zero-length stride (spec
			// §3); they are excluded from the cardinality ratio and
			// collapse onto whatever index 0 holds, same as a null
			// fixed-width row.
			indices[i] = 0
			continue
		}
		lo, err := offsets.GetU32(i)
		if err != nil {
			return err
		}
		hi, err := offsets.GetU32(i + 1)
		if err != nil {
			return err
		}
		stride := colStride(col.Type)
		row := data[int64(lo)*stride : int64(hi)*stride]
		h := xxhash.Sum64(row)
		id, seen := index.Get(h)
		if !seen {
			id = nextID
			nextID++
			index.Put(h, id)
			dictPayload = append(dictPayload, row...)
			lengths = append(lengths, uint32(len(row)))
		}
		indices[i] = id
		nValid++
	}
	if nValid == 0 {
		return errs.New(errs.KindNotEncoded, "transform: no valid rows")
	}
	ratio := float64(nextID) / float64(nValid)
	if ratio >= tensorDictThreshold {
		return errs.New(errs.KindNotEncoded, "transform: tensor dictionary ratio %.3f above threshold", ratio)
	}
	inSize := int64(len(data))
	encoded := make([]byte, n*4)
	for i, id := range indices {
		binary.LittleEndian.PutUint32(encoded[i*4:], id)
	}
	col.SetBytes(encoded)
	col.Dict = &column.Dictionary{
		HasLengths: true,
		NRecords:   int64(n),
		NElements:  int64(nextID),
		Payload:    dictPayload,
		Lengths:    lengths,
	}
	col.Transforms = append(col.Transforms, column.TransformMeta{
		CodecID:    uint32(CodecDictionary),
		InputSize:  inSize,
		OutputSize: int64(len(encoded)),
		MD5:        column.ComputeStageMD5(encoded),
	})
	return nil
}

// tensorOffsets is a hook point: the pipeline's explicit/auto transform
// callers always have the paired offsets store on hand from the owning
// column.Set, but applyDictionary only receives the data store. Both
// callers stash the offsets store on data.PairedOffsets before invoking
// applyDictionary on a tensor data column; this helper just reads it
// back.
func (tp *Pipeline) tensorOffsets(col *column.Store) (*column.Store, bool) {
	if col.PairedOffsets == nil {
		return nil, false
	}
	return col.PairedOffsets, true
}

func colStride(t column.PrimitiveType) int64 {
	w := t.Width()
	if w == 0 {
		return 1
	}
	return int64(w)
}

func keyOf(raw []byte, width int) uint64 {
	var buf [8]byte
	copy(buf[:], raw[:width])
	return binary.LittleEndian.Uint64(buf[:])
}
