// Package column implements the column store and column set (spec §4.2,
// §4.3 — components C2 and C3): the typed, nullity-tracked, dictionary-
// and transform-aware on-batch representation of one field's values.
package column

import (
	"fmt"

	"github.com/pil-io/pil/errs"
)

// PrimitiveType is the nine-way (plus fixed-length variant) tagged
// dispatch spec §9 calls for: a switch on this tag is the mechanism used
// everywhere a column store needs to specialize by element width.
type PrimitiveType uint8

const (
	I8 PrimitiveType = iota
	U8
	I16
	U16
	I32
	U32
	I64
	U64
	F32
	F64
	Bool
	ByteArray
	FixedLenByteArray
)

// Flavor distinguishes the two column store shapes of spec §3.
type Flavor uint8

const (
	// FlavorFixed is a fixed-width column store: one primitive value per
	// row, n_elements == n_records.
	FlavorFixed Flavor = iota
	// FlavorTensor is a variable-length column store: an (offsets, data)
	// pair, n_elements == sum of per-row strides.
	FlavorTensor
)

func (t PrimitiveType) String() string {
	switch t {
	case I8:
		return "i8"
	case U8:
		return "u8"
	case I16:
		return "i16"
	case U16:
		return "u16"
	case I32:
		return "i32"
	case U32:
		return "u32"
	case I64:
		return "i64"
	case U64:
		return "u64"
	case F32:
		return "f32"
	case F64:
		return "f64"
	case Bool:
		return "bool"
	case ByteArray:
		return "byte_array"
	case FixedLenByteArray:
		return "fixed_len_byte_array"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(t))
	}
}

// Width returns the fixed element width in bytes for scalar primitive
// types. ByteArray and FixedLenByteArray are variable-length or carry an
// external fixed width and are not representable here: Width returns 0
// for both. IsFixedWidth reports true for FixedLenByteArray, so it does
// not screen that type out.
func (t PrimitiveType) Width() int {
	switch t {
	case I8, U8, Bool:
		return 1
	case I16, U16:
		return 2
	case I32, U32, F32:
		return 4
	case I64, U64, F64:
		return 8
	default:
		return 0
	}
}

// IsFixedWidth reports whether t has a constant, known-in-advance element
// width (i.e. is not ByteArray).
func (t PrimitiveType) IsFixedWidth() bool {
	return t != ByteArray
}

// IsOrdered reports whether t supports a total order usable for segment
// min/max statistics (spec §4.6); byte arrays are excluded.
func (t PrimitiveType) IsOrdered() bool {
	switch t {
	case ByteArray:
		return false
	default:
		return true
	}
}

// CheckWidth validates that a buffer's length is consistent with n
// elements of primitive type t, returning errs.KindInputInvalid (the
// "TypeMismatch" failure spec §4.2 calls for) on mismatch.
func CheckWidth(t PrimitiveType, n int, bufLen int) error {
	if !t.IsFixedWidth() {
		return nil
	}
	want := n * t.Width()
	if want != bufLen {
		return errs.New(errs.KindInputInvalid,
			"column: type mismatch: %d elements of %s want buffer length %d, got %d",
			n, t, want, bufLen)
	}
	return nil
}
