package transform

import (
	"encoding/binary"

	"github.com/pil-io/pil/column"
	"github.com/pil-io/pil/errs"
)

// DeltaEncodeStore rewrites a u32, fixed-width store in place into its
// forward-difference form: element i becomes value[i] - value[i-1], with
// element 0 left unchanged (spec §4.5, C9). Only u32 columns are
// eligible; this is always true of a tensor's offsets store, and is
// checked explicitly for any other caller.
func DeltaEncodeStore(col *column.Store) error {
	if col.Type != column.U32 || col.Flavor != column.FlavorFixed {
		return errs.New(errs.KindInputInvalid, "transform: delta encoding requires a u32 fixed-width column, got %s/%d", col.Type, col.Flavor)
	}
	n := int(col.NRecords)
	if n == 0 {
		return nil
	}
	data := col.Bytes()
	inSize := int64(len(data))
	out := make([]byte, len(data))
	copy(out, data)
	prev := binary.LittleEndian.Uint32(data[0:4])
	for i := 1; i < n; i++ {
		v := binary.LittleEndian.Uint32(data[i*4 : i*4+4])
		binary.LittleEndian.PutUint32(out[i*4:i*4+4], v-prev)
		prev = v
	}
	col.SetBytes(out)
	col.Transforms = append(col.Transforms, column.TransformMeta{
		CodecID:    uint32(CodecDelta),
		InputSize:  inSize,
		OutputSize: int64(len(out)),
		MD5:        column.ComputeStageMD5(out),
	})
	return nil
}

// DeltaDecodeStore reverses DeltaEncodeStore: a u32 buffer of forward
// differences is turned back into the original monotonic sequence via
// prefix-sum (spec §6 codec id CodecPrefixSum, the decode-only inverse
// of CodecDelta).
func DeltaDecodeStore(data []byte) error {
	if len(data)%4 != 0 {
		return errs.New(errs.KindIntegrity, "transform: delta-decode buffer length %d not a multiple of 4", len(data))
	}
	n := len(data) / 4
	if n == 0 {
		return nil
	}
	acc := binary.LittleEndian.Uint32(data[0:4])
	for i := 1; i < n; i++ {
		d := binary.LittleEndian.Uint32(data[i*4 : i*4+4])
		acc += d
		binary.LittleEndian.PutUint32(data[i*4:i*4+4], acc)
	}
	return nil
}
