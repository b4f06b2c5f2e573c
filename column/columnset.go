package column

import (
	"github.com/cespare/xxhash/v2"

	"github.com/pil-io/pil/errs"
	"github.com/pil-io/pil/pool"
)

// Shape mirrors spec §4.3's three column set shapes.
type Shape uint8

const (
	ShapeUnset Shape = iota
	ShapeFixedScalar
	ShapeFixedVector
	ShapeTensor
)

// Set is a column set (spec §3, §4.3, C3): the on-disk representation of
// one logical field within one batch. A fixed-width field has one column
// store per observed multiplicity; a tensor field has exactly two
// (offsets, data).
type Set struct {
	Shape   Shape
	Type    PrimitiveType
	Columns []*Store // for ShapeTensor: Columns[0]=offsets (u32), Columns[1]=data
	pool    *pool.Pool
	nrows   int
}

// NewSet returns an empty Set; its Shape is determined by the first
// non-null append.
func NewSet(t PrimitiveType, p *pool.Pool) *Set {
	return &Set{Type: t, pool: p}
}

// NRows returns the logical row count committed to the set so far.
func (cs *Set) NRows() int { return cs.nrows }

// AppendScalar appends a single value row to a fixed-width scalar set,
// routing to column 0 (spec §4.3).
func (cs *Set) AppendScalar(encode func(*Store) error) error {
	if cs.Shape == ShapeUnset {
		cs.Shape = ShapeFixedScalar
	}
	if cs.Shape != ShapeFixedScalar {
		return errs.New(errs.KindInputInvalid, "column: set shape mismatch, expected scalar")
	}
	if len(cs.Columns) == 0 {
		col := cs.newFixedColumn()
		for r := 0; r < cs.nrows; r++ {
			col.PadNullScalar()
		}
		cs.Columns = append(cs.Columns, col)
	}
	if err := encode(cs.Columns[0]); err != nil {
		return err
	}
	cs.nrows++
	return nil
}

// AppendVector appends m values to a fixed-width vector set, routing
// v[0..m) to columns 0..m. If m exceeds the current column count, new
// columns are created and retroactively null-padded to the current row
// count; columns beyond m are null-padded for this row (spec §4.3,
// §4.4).
func (cs *Set) AppendVector(m int, encode func(col *Store, slot int) error) error {
	if cs.Shape == ShapeUnset {
		cs.Shape = ShapeFixedVector
	}
	if cs.Shape != ShapeFixedVector {
		return errs.New(errs.KindInputInvalid, "column: set shape mismatch, expected fixed vector")
	}
	for len(cs.Columns) < m {
		col := cs.newFixedColumn()
		for r := 0; r < cs.nrows; r++ {
			col.PadNullScalar()
		}
		cs.Columns = append(cs.Columns, col)
	}
	for slot := 0; slot < len(cs.Columns); slot++ {
		if slot < m {
			if err := encode(cs.Columns[slot], slot); err != nil {
				return err
			}
		} else {
			cs.Columns[slot].PadNullScalar()
		}
	}
	cs.nrows++
	return nil
}

// AppendTensorRow appends one tensor row of the given byte length in
// elements (not bytes), writing raw to the data column and advancing the
// offsets column cumulatively. On the very first append, the offsets
// column receives a leading 0 then the stride; subsequent appends push
// only the new cumulative offset (spec §4.3).
func (cs *Set) AppendTensorRow(raw []byte, nElements int64) error {
	if cs.Shape == ShapeUnset {
		cs.Shape = ShapeTensor
	}
	if cs.Shape != ShapeTensor {
		return errs.New(errs.KindInputInvalid, "column: set shape mismatch, expected tensor")
	}
	if err := cs.ensureTensorColumns(); err != nil {
		return err
	}
	offsets, data := cs.Columns[0], cs.Columns[1]

	if offsets.NRecords == 0 {
		if err := offsets.AppendU32(0); err != nil {
			return err
		}
	}
	prevOff, err := offsets.GetU32(int(offsets.NRecords - 1))
	if err != nil {
		return err
	}
	newOff := prevOff + uint32(nElements)
	if err := offsets.AppendU32(newOff); err != nil {
		return err
	}
	offsets.AppendValidity(true, 1)
	data.AppendArray(raw, nElements)
	cs.nrows++
	return nil
}

// PadNull appends a null row in the shape-appropriate way: a zero, invalid
// value for scalar/vector sets, or a zero-stride row for tensor sets
// (spec §4.3).
func (cs *Set) PadNull() error {
	switch cs.Shape {
	case ShapeUnset:
		// No shape committed yet and nothing to pad; the field simply
		// hasn't been observed in any row so far.
		cs.nrows++
		return nil
	case ShapeFixedScalar:
		if len(cs.Columns) == 0 {
			cs.Columns = append(cs.Columns, cs.newFixedColumn())
		}
		cs.Columns[0].PadNullScalar()
	case ShapeFixedVector:
		for _, col := range cs.Columns {
			col.PadNullScalar()
		}
	case ShapeTensor:
		if err := cs.ensureTensorColumns(); err != nil {
			return err
		}
		offsets := cs.Columns[0]
		if offsets.NRecords == 0 {
			if err := offsets.AppendU32(0); err != nil {
				return err
			}
		}
		prevOff, err := offsets.GetU32(int(offsets.NRecords - 1))
		if err != nil {
			return err
		}
		if err := offsets.AppendU32(prevOff); err != nil { // zero stride
			return err
		}
		offsets.AppendValidity(false, 1)
	}
	cs.nrows++
	return nil
}

// ensureTensorColumns lazily creates the (offsets, data) pair on first
// use. If rows were already counted against this set while its shape was
// still unset (a field absent from earlier records in the batch, padded
// via PadNull before ever being shaped), the new offsets column
// backfills one zero-stride, invalid entry per such row so offsets stays
// aligned with cs.nrows (spec §4.4's "every column set ... has exactly
// n_rec logical rows").
func (cs *Set) ensureTensorColumns() error {
	creating := len(cs.Columns) == 0
	for len(cs.Columns) < 2 {
		var t PrimitiveType
		if len(cs.Columns) == 0 {
			t = U32
		} else {
			t = cs.Type
		}
		cs.Columns = append(cs.Columns, NewStore(t, boolFlavor(len(cs.Columns)), cs.pool))
	}
	if !creating {
		return nil
	}
	offsets := cs.Columns[0]
	if err := offsets.AppendU32(0); err != nil {
		return err
	}
	for r := 0; r < cs.nrows; r++ {
		if err := offsets.AppendU32(0); err != nil {
			return err
		}
		offsets.AppendValidity(false, 1)
	}
	return nil
}

func boolFlavor(idx int) Flavor {
	if idx == 0 {
		return FlavorFixed
	}
	return FlavorTensor
}

func (cs *Set) newFixedColumn() *Store {
	return NewStore(cs.Type, FlavorFixed, cs.pool)
}

// Checksum computes the 16-byte checksum over the concatenation of the
// set's stores' checksums, used to detect column reordering (spec §3).
// It is a 64-bit xxhash folded to 128 bits by hashing twice with
// different seeds, since the set-level check only needs to detect
// accidental reordering, not serve as a cryptographic digest.
func (cs *Set) Checksum() [16]byte {
	var concatenated []byte
	for _, col := range cs.Columns {
		h := ComputeStageMD5(col.Bytes())
		concatenated = append(concatenated, h[:]...)
	}
	lo := xxhash.Sum64(concatenated)
	hiDigest := xxhash.NewWithSeed(0x9e3779b97f4a7c15)
	hiDigest.Write(concatenated)
	hi := hiDigest.Sum64()
	var out [16]byte
	putU64(out[0:8], lo)
	putU64(out[8:16], hi)
	return out
}

func putU64(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
}
