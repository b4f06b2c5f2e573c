package column

import (
	"encoding/binary"
	"math"

	"github.com/pil-io/pil/errs"
)

// AppendI8 appends a signed 8-bit value to a fixed-width i8 store.
func (s *Store) AppendI8(v int8) error {
	if err := s.checkScalar(I8); err != nil {
		return err
	}
	s.appendRaw([]byte{byte(v)})
	return nil
}

// AppendU8 appends an unsigned 8-bit value to a fixed-width u8 store.
func (s *Store) AppendU8(v uint8) error {
	if err := s.checkScalar(U8); err != nil {
		return err
	}
	s.appendRaw([]byte{v})
	return nil
}

// AppendBool appends a boolean to a fixed-width bool store, stored as one
// byte (0 or 1).
func (s *Store) AppendBool(v bool) error {
	if err := s.checkScalar(Bool); err != nil {
		return err
	}
	if v {
		s.appendRaw([]byte{1})
	} else {
		s.appendRaw([]byte{0})
	}
	return nil
}

// AppendI16/U16/I32/U32/I64/U64/F32/F64 append the corresponding typed
// scalar, little-endian encoded.

func (s *Store) AppendI16(v int16) error { return s.appendFixed(I16, 2, func(b []byte) { binary.LittleEndian.PutUint16(b, uint16(v)) }) }
func (s *Store) AppendU16(v uint16) error {
	return s.appendFixed(U16, 2, func(b []byte) { binary.LittleEndian.PutUint16(b, v) })
}
func (s *Store) AppendI32(v int32) error { return s.appendFixed(I32, 4, func(b []byte) { binary.LittleEndian.PutUint32(b, uint32(v)) }) }
func (s *Store) AppendU32(v uint32) error {
	return s.appendFixed(U32, 4, func(b []byte) { binary.LittleEndian.PutUint32(b, v) })
}
func (s *Store) AppendI64(v int64) error { return s.appendFixed(I64, 8, func(b []byte) { binary.LittleEndian.PutUint64(b, uint64(v)) }) }
func (s *Store) AppendU64(v uint64) error {
	return s.appendFixed(U64, 8, func(b []byte) { binary.LittleEndian.PutUint64(b, v) })
}
func (s *Store) AppendF32(v float32) error {
	return s.appendFixed(F32, 4, func(b []byte) { binary.LittleEndian.PutUint32(b, math.Float32bits(v)) })
}
func (s *Store) AppendF64(v float64) error {
	return s.appendFixed(F64, 8, func(b []byte) { binary.LittleEndian.PutUint64(b, math.Float64bits(v)) })
}

func (s *Store) appendFixed(t PrimitiveType, width int, encode func([]byte)) error {
	if err := s.checkScalar(t); err != nil {
		return err
	}
	b := make([]byte, width)
	encode(b)
	s.appendRaw(b)
	return nil
}

func (s *Store) checkScalar(t PrimitiveType) error {
	if s.Flavor != FlavorFixed {
		return errs.New(errs.KindInputInvalid, "column: scalar append on tensor store, TensorRequired")
	}
	if s.Type != t {
		return errs.New(errs.KindInputInvalid, "column: append type %s does not match store type %s", t, s.Type)
	}
	return nil
}

// AppendRaw appends one fixed-width scalar row to s using v verbatim as
// its little-endian encoded bytes, with no validation beyond the usual
// flavor check. It is the untyped counterpart of AppendI8/AppendU32/etc,
// for callers (the record shredder) that already hold a value
// pre-encoded and only need to dispatch on column.Flavor, not on the
// underlying Go type.
func (s *Store) AppendRaw(v []byte) error {
	if s.Flavor != FlavorFixed {
		return errs.New(errs.KindInputInvalid, "column: AppendRaw requires a fixed-width store, TensorRequired")
	}
	s.appendRaw(v)
	return nil
}

// AppendBytes appends one row's raw bytes to a ByteArray/FixedLenByteArray
// tensor data store. It is the tensor counterpart of AppendArray for raw
// byte-oriented payloads (quality strings, sequences).
func (s *Store) AppendBytes(v []byte) error {
	if s.Flavor != FlavorTensor {
		return errs.New(errs.KindInputInvalid, "column: AppendBytes requires a tensor store, TensorRequired")
	}
	s.AppendArray(v, int64(len(v)))
	return nil
}

// GetI8/GetU8/... decode the i'th scalar value of a fixed-width store of
// the matching type.

func (s *Store) GetI8(i int) (int8, error) {
	b, err := s.getTyped(i, I8)
	if err != nil {
		return 0, err
	}
	return int8(b[0]), nil
}
func (s *Store) GetU8(i int) (uint8, error) {
	b, err := s.getTyped(i, U8)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}
func (s *Store) GetBool(i int) (bool, error) {
	b, err := s.getTyped(i, Bool)
	if err != nil {
		return false, err
	}
	return b[0] != 0, nil
}
func (s *Store) GetI16(i int) (int16, error) {
	b, err := s.getTyped(i, I16)
	if err != nil {
		return 0, err
	}
	return int16(binary.LittleEndian.Uint16(b)), nil
}
func (s *Store) GetU16(i int) (uint16, error) {
	b, err := s.getTyped(i, U16)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}
func (s *Store) GetI32(i int) (int32, error) {
	b, err := s.getTyped(i, I32)
	if err != nil {
		return 0, err
	}
	return int32(binary.LittleEndian.Uint32(b)), nil
}
func (s *Store) GetU32(i int) (uint32, error) {
	b, err := s.getTyped(i, U32)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}
func (s *Store) GetI64(i int) (int64, error) {
	b, err := s.getTyped(i, I64)
	if err != nil {
		return 0, err
	}
	return int64(binary.LittleEndian.Uint64(b)), nil
}
func (s *Store) GetU64(i int) (uint64, error) {
	b, err := s.getTyped(i, U64)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}
func (s *Store) GetF32(i int) (float32, error) {
	b, err := s.getTyped(i, F32)
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(binary.LittleEndian.Uint32(b)), nil
}
func (s *Store) GetF64(i int) (float64, error) {
	b, err := s.getTyped(i, F64)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(b)), nil
}

func (s *Store) getTyped(i int, t PrimitiveType) ([]byte, error) {
	if s.Type != t {
		return nil, errs.New(errs.KindInputInvalid, "column: requested type %s does not match store type %s", t, s.Type)
	}
	return s.Get(i)
}
