package transform

import (
	"encoding/binary"

	"github.com/pil-io/pil/block"
	"github.com/pil-io/pil/column"
	"github.com/pil-io/pil/errs"
	"github.com/pil-io/pil/transform/rangecoder"
)

// ReverseColumn reverses col.Transforms in order from last stage to
// first, verifying each stage's recorded MD5 before inverting it (spec
// §3's central invariant: "applying transformation_args in reverse
// order to buffer ... yields the original payload"; spec §7's
// "Integrity" error kind names an MD5 mismatch during this walk as a
// fatal decode error; spec §8's "Transform round-trip" property is
// exactly this function applied to a column produced by Pipeline.Transform).
//
// rowLengths is only consulted by the quality/sequence range-coder
// stages (the only stages whose byte stream isn't self-describing
// without row boundaries); pass nil for any column whose chain doesn't
// contain CodecQualityRange/CodecSequenceRange.
func ReverseColumn(col *column.Store, rowLengths []int) ([]byte, error) {
	buf := col.Bytes()
	for i := len(col.Transforms) - 1; i >= 0; i-- {
		meta := col.Transforms[i]
		nb, err := reverseStage(buf, meta, col, rowLengths)
		if err != nil {
			return nil, err
		}
		buf = nb
	}
	if len(col.Transforms) > 0 {
		want := col.Transforms[0].InputSize
		if int64(len(buf)) != want {
			return nil, errs.New(errs.KindIntegrity,
				"transform: reversed payload length %d does not match recorded original size %d", len(buf), want)
		}
	}
	return buf, nil
}

// ReverseTensorSet reverses both stores of a tensor column.Set (spec
// §3): the offsets store first, since the data store's range-coder
// stages (if any) need the original row lengths to know where one row's
// decoded bytes end and the next begins.
func ReverseTensorSet(cset *column.Set) (offsetsBytes, dataBytes []byte, err error) {
	if cset.Shape != column.ShapeTensor || len(cset.Columns) != 2 {
		return nil, nil, errs.New(errs.KindInputInvalid, "transform: ReverseTensorSet requires a 2-column tensor set")
	}
	offsets, data := cset.Columns[0], cset.Columns[1]
	offsetsBytes, err = ReverseColumn(offsets, nil)
	if err != nil {
		return nil, nil, err
	}
	if len(offsetsBytes)%4 != 0 {
		return nil, nil, errs.New(errs.KindIntegrity, "transform: reversed offsets length %d not a multiple of 4", len(offsetsBytes))
	}
	n := len(offsetsBytes)/4 - 1
	rowLengths := make([]int, 0, n)
	prev := binary.LittleEndian.Uint32(offsetsBytes[0:4])
	for i := 1; i <= n; i++ {
		cur := binary.LittleEndian.Uint32(offsetsBytes[i*4 : i*4+4])
		if cur < prev {
			return nil, nil, errs.New(errs.KindIntegrity, "transform: reversed offsets not monotonic at row %d (%d > %d)", i-1, prev, cur)
		}
		rowLengths = append(rowLengths, int(cur-prev))
		prev = cur
	}
	dataBytes, err = ReverseColumn(data, rowLengths)
	if err != nil {
		return nil, nil, err
	}
	return offsetsBytes, dataBytes, nil
}

// reverseStage inverts one TransformMeta stage, first verifying that buf
// (the current, more-transformed payload) hashes to the MD5 the
// forward pass recorded for that stage's output.
func reverseStage(buf []byte, meta column.TransformMeta, col *column.Store, rowLengths []int) ([]byte, error) {
	if column.ComputeStageMD5(buf) != meta.MD5 {
		return nil, errs.New(errs.KindIntegrity, "transform: MD5 mismatch reversing codec %d", meta.CodecID)
	}
	switch Codec(meta.CodecID) {
	case CodecBlock:
		out, err := block.Decompress(buf, meta.InputSize)
		if err != nil {
			return nil, errs.Wrap(errs.KindIntegrity, err, "transform: block decompress failed")
		}
		return out, nil
	case CodecDelta:
		cp := append([]byte(nil), buf...)
		if err := DeltaDecodeStore(cp); err != nil {
			return nil, err
		}
		return cp, nil
	case CodecDictionary:
		return expandDictionary(buf, col)
	case CodecQualityRange:
		rows, err := rangecoder.DecodeQuality(buf, rowLengths)
		if err != nil {
			return nil, err
		}
		return concatRows(rows), nil
	case CodecSequenceRange:
		dec := rangecoder.NewDNADecoder(buf)
		out := make([]byte, 0, meta.InputSize)
		for _, n := range rowLengths {
			out = append(out, dec.DecodeSequence(n)...)
		}
		return out, nil
	default:
		return nil, errs.New(errs.KindIntegrity, "transform: unknown codec %d during reverse", meta.CodecID)
	}
}

// expandDictionary re-expands the index array indices (a u32-per-row
// array) through col.Dict back into the original payload bytes: a flat
// array of width-wide entries for a fixed-width dictionary, or the
// concatenation of variable-length entries, delimited by d.Lengths, for
// a tensor dictionary
// (spec §8 "Dictionary round-trip").
func expandDictionary(indices []byte, col *column.Store) ([]byte, error) {
	d := col.Dict
	if d == nil {
		return nil, errs.New(errs.KindIntegrity, "transform: dictionary codec recorded but no dictionary attached")
	}
	if len(indices)%4 != 0 {
		return nil, errs.New(errs.KindIntegrity, "transform: dictionary index buffer length %d not a multiple of 4", len(indices))
	}
	n := len(indices) / 4
	if !d.HasLengths {
		width := col.Type.Width()
		out := make([]byte, 0, n*width)
		for i := 0; i < n; i++ {
			idx := binary.LittleEndian.Uint32(indices[i*4 : i*4+4])
			if int64(idx) >= d.NElements {
				return nil, errs.New(errs.KindIntegrity, "transform: dictionary index %d out of range (n_elements=%d)", idx, d.NElements)
			}
			out = append(out, d.Payload[int(idx)*width:(int(idx)+1)*width]...)
		}
		return out, nil
	}
	entryOffsets := make([]uint32, len(d.Lengths)+1)
	for i, l := range d.Lengths {
		entryOffsets[i+1] = entryOffsets[i] + l
	}
	out := make([]byte, 0, n*4)
	for i := 0; i < n; i++ {
		idx := binary.LittleEndian.Uint32(indices[i*4 : i*4+4])
		if int(idx) >= len(d.Lengths) {
			return nil, errs.New(errs.KindIntegrity, "transform: dictionary index %d out of range (n_elements=%d)", idx, d.NElements)
		}
		lo, hi := entryOffsets[idx], entryOffsets[idx+1]
		out = append(out, d.Payload[lo:hi]...)
	}
	return out, nil
}

func concatRows(rows [][]byte) []byte {
	var n int
	for _, r := range rows {
		n += len(r)
	}
	out := make([]byte, 0, n)
	for _, r := range rows {
		out = append(out, r...)
	}
	return out
}
