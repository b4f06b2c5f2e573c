package column

import (
	"crypto/md5"
	"encoding/binary"
	"math"

	"golang.org/x/exp/constraints"

	"github.com/pil-io/pil/errs"
	"github.com/pil-io/pil/pool"
)

// TransformMeta records one stage of the transform chain applied to a
// Store's payload: the codec identity, the stage's input/output sizes,
// and an MD5 of the stage's output, so the chain can be reversed and
// verified exactly (spec §3, §6).
type TransformMeta struct {
	CodecID    uint32
	InputSize  int64
	OutputSize int64
	MD5        [16]byte
}

// Dictionary is the optional side table attached to a Store once
// dictionary encoding succeeds: either a flat array of fixed-width
// values, or concatenated variable-length entries whose byte lengths are
// kept separately in Lengths (spec §3).
type Dictionary struct {
	HasLengths bool
	NRecords   int64
	NElements  int64
	// Payload is the dictionary's own value buffer (fixed-width values or
	// concatenated variable-length entries).
	Payload []byte
	// Lengths holds one uint32 per dictionary entry when HasLengths, the
	// byte length of that entry within Payload.
	Lengths []uint32
}

// Store is one column store (spec §3, C2): a typed buffer, its nullity
// bitmap, optional dictionary, and the ordered transform metadata needed
// to reverse it.
type Store struct {
	Type   PrimitiveType
	Flavor Flavor

	NRecords         int64
	NElements        int64
	NNull            int64
	UncompressedSize int64
	CompressedSize   int64

	buf     *pool.Buffer
	Nullity *Bitmap

	Dict *Dictionary

	Transforms []TransformMeta

	// PairedOffsets is set transiently by the owning Set before a tensor
	// data store's transform chain runs, giving stage implementations
	// (dictionary encoding in particular) access to row boundaries
	// without threading the offsets store through every call. It is nil
	// for fixed-width stores and for tensor data stores outside a
	// transform call.
	PairedOffsets *Store
}

// NewStore allocates an empty Store of the given type/flavor, backed by p
// (pool.Default() if nil).
func NewStore(t PrimitiveType, flavor Flavor, p *pool.Pool) *Store {
	return &Store{
		Type:    t,
		Flavor:  flavor,
		buf:     pool.NewBuffer(p),
		Nullity: NewBitmap(p),
	}
}

// Bytes returns the store's current payload (pre- or post-transform,
// whichever was last written).
func (s *Store) Bytes() []byte { return s.buf.Bytes() }

// SetBytes replaces the store's payload wholesale, used when a transform
// stage rewrites it in place or a decoder reconstructs it.
func (s *Store) SetBytes(b []byte) {
	s.buf.Resize(len(b))
	copy(s.buf.Bytes(), b)
}

// IsValid reports whether row i is marked valid in the nullity bitmap.
func (s *Store) IsValid(i int) bool { return s.Nullity.IsValid(i) }

// AttachNullity reconstructs the store's nullity bitmap from its packed
// decompressed words, used by the decode path once the generic block
// codec has reversed the nullity payload's compression stage.
func (s *Store) AttachNullity(words []byte) {
	s.Nullity = NewBitmapFromWords(words, int(s.NRecords))
}

// AppendValidity writes (or clears) the validity bit for the "current"
// row, optionally at NRecords-adjust — used by tensor stores where the
// offsets column is already one row ahead of the data column (spec
// §4.2).
func (s *Store) AppendValidity(valid bool, adjust int64) {
	row := s.NRecords - adjust
	s.Nullity.Set(int(row), valid)
}

// appendRaw appends one scalar value to a fixed-width store. Callers pass
// the value pre-encoded into its little-endian byte representation;
// typed helpers in typed.go wrap this for each PrimitiveType.
func (s *Store) appendRaw(encoded []byte) {
	off := s.buf.Len()
	s.buf.Resize(off + len(encoded))
	copy(s.buf.Bytes()[off:], encoded)
	s.AppendValidity(true, 0)
	s.NRecords++
	s.NElements++
	s.UncompressedSize += int64(len(encoded))
}

// AppendArray appends one tensor row: advances the offsets semantics are
// owned by ColumnSet (which holds both the offsets and data stores); this
// method appends the row's raw bytes to a *data* store and bumps its
// element/size counters. It leaves NRecords unchanged, so a tensor data
// store built this way reports NRecords 0; row bookkeeping lives in the
// paired offsets store, which ColumnSet maintains.
func (s *Store) AppendArray(values []byte, nElements int64) {
	off := s.buf.Len()
	s.buf.Resize(off + len(values))
	copy(s.buf.Bytes()[off:], values)
	s.NElements += nElements
	s.UncompressedSize += int64(len(values))
}

// PadNullScalar appends a zero-valued, invalid row to a fixed-width
// store — used both by ColumnSet.PadNull and by retroactive null-padding
// when a new column is created mid-batch (spec §4.4).
func (s *Store) PadNullScalar() {
	width := s.Type.Width()
	off := s.buf.Len()
	s.buf.Resize(off + width)
	s.AppendValidity(false, 0)
	s.NRecords++
	s.NElements++
	s.UncompressedSize += int64(width)
}

// Get returns the i'th scalar value of a fixed-width store as a
// raw little-endian byte slice of width Type.Width(). Fails OutOfRange if
// i >= NRecords.
func (s *Store) Get(i int) ([]byte, error) {
	if s.Flavor != FlavorFixed {
		return nil, errs.New(errs.KindInputInvalid, "column: Get called on tensor store, ScalarRequired")
	}
	if int64(i) >= s.NRecords {
		return nil, errs.New(errs.KindOutOfRange, "column: row %d out of range (n_records=%d)", i, s.NRecords)
	}
	w := s.Type.Width()
	if err := CheckWidth(s.Type, int(s.NElements), s.buf.Len()); err != nil {
		return nil, err
	}
	return s.buf.Bytes()[i*w : (i+1)*w], nil
}

// GetSlice returns the byte range [offsets[i], offsets[i+1]) of a tensor
// data store, given the paired offsets store. Fails TensorRequired if s
// is not a tensor data store.
func (s *Store) GetSlice(offsets *Store, i int) ([]byte, error) {
	if s.Flavor != FlavorTensor {
		return nil, errs.New(errs.KindInputInvalid, "column: GetSlice called on fixed-width store, TensorRequired")
	}
	if int64(i)+1 >= offsets.NRecords {
		return nil, errs.New(errs.KindOutOfRange, "column: row %d out of range (n_records=%d)", i, offsets.NRecords-1)
	}
	lo, err := offsets.Get(i)
	if err != nil {
		return nil, err
	}
	hi, err := offsets.Get(i + 1)
	if err != nil {
		return nil, err
	}
	a := binary.LittleEndian.Uint32(lo)
	b := binary.LittleEndian.Uint32(hi)
	if b < a {
		return nil, errs.New(errs.KindIntegrity, "column: offsets not monotonic at row %d (%d > %d)", i, a, b)
	}
	width := s.Type.Width()
	if width == 0 {
		width = 1 // ByteArray: stride is already in bytes
	}
	return s.buf.Bytes()[int64(a)*int64(width) : int64(b)*int64(width)], nil
}

// ComputeStageMD5 hashes buf and returns the 16-byte digest used to seal
// each TransformMeta stage (spec §3, §6).
func ComputeStageMD5(buf []byte) [16]byte {
	return md5.Sum(buf)
}

// SegmentStats holds the min/max bounds over a store's valid rows, used
// for predicate pushdown (spec §4.6). The bounds are stored bit-punned
// into uint64 per the declared primitive type, per §6.
type SegmentStats struct {
	Valid bool
	Min   uint64
	Max   uint64
}

// ComputeSegmentStats scans the valid rows of a fixed-width, ordered-type
// store and returns its min/max. Returns a zero-value, invalid
// SegmentStats if the type is unordered or no row is valid.
func ComputeSegmentStats(s *Store) SegmentStats {
	if !s.Type.IsOrdered() || s.Flavor != FlavorFixed {
		return SegmentStats{}
	}
	n := int(s.NRecords)
	data := s.buf.Bytes()
	switch s.Type {
	case I8:
		min, max, ok := orderedMinMax(n, data, 1, s.IsValid, func(b []byte) int8 { return int8(b[0]) })
		return punStats(ok, orderPreservingSigned8(min), orderPreservingSigned8(max))
	case U8:
		min, max, ok := orderedMinMax(n, data, 1, s.IsValid, func(b []byte) uint8 { return b[0] })
		return punStats(ok, uint64(min), uint64(max))
	case I16:
		min, max, ok := orderedMinMax(n, data, 2, s.IsValid, func(b []byte) int16 { return int16(binary.LittleEndian.Uint16(b)) })
		return punStats(ok, orderPreservingSigned(uint64(uint16(min)), 16), orderPreservingSigned(uint64(uint16(max)), 16))
	case U16:
		min, max, ok := orderedMinMax(n, data, 2, s.IsValid, binary.LittleEndian.Uint16)
		return punStats(ok, uint64(min), uint64(max))
	case I32:
		min, max, ok := orderedMinMax(n, data, 4, s.IsValid, func(b []byte) int32 { return int32(binary.LittleEndian.Uint32(b)) })
		return punStats(ok, orderPreservingSigned(uint64(uint32(min)), 32), orderPreservingSigned(uint64(uint32(max)), 32))
	case U32:
		min, max, ok := orderedMinMax(n, data, 4, s.IsValid, binary.LittleEndian.Uint32)
		return punStats(ok, uint64(min), uint64(max))
	case I64:
		min, max, ok := orderedMinMax(n, data, 8, s.IsValid, func(b []byte) int64 { return int64(binary.LittleEndian.Uint64(b)) })
		return punStats(ok, orderPreservingSigned(uint64(min), 64), orderPreservingSigned(uint64(max), 64))
	case U64:
		min, max, ok := orderedMinMax(n, data, 8, s.IsValid, binary.LittleEndian.Uint64)
		return punStats(ok, min, max)
	case F32:
		min, max, ok := orderedMinMax(n, data, 4, s.IsValid, func(b []byte) float32 { return math.Float32frombits(binary.LittleEndian.Uint32(b)) })
		return punStats(ok, uint64(orderPreservingFloatBits(uint64(math.Float32bits(min)), 32)), uint64(orderPreservingFloatBits(uint64(math.Float32bits(max)), 32)))
	case F64:
		min, max, ok := orderedMinMax(n, data, 8, s.IsValid, func(b []byte) float64 { return math.Float64frombits(binary.LittleEndian.Uint64(b)) })
		return punStats(ok, orderPreservingFloatBits(math.Float64bits(min), 64), orderPreservingFloatBits(math.Float64bits(max), 64))
	case Bool:
		min, max, ok := orderedMinMax(n, data, 1, s.IsValid, func(b []byte) uint8 { return b[0] })
		return punStats(ok, uint64(min), uint64(max))
	default:
		return SegmentStats{}
	}
}

// orderedMinMax scans the valid rows of a width-wide little-endian column
// and returns the native min/max decoded via decode, using ordinary
// comparisons over Go's built-in ordering rather than a bit-punned
// encoding — the bit-pun only happens once, on the two results, for
// storage in SegmentStats (punStats).
func orderedMinMax[T constraints.Ordered](n int, data []byte, width int, valid func(int) bool, decode func([]byte) T) (min, max T, ok bool) {
	for i := 0; i < n; i++ {
		if !valid(i) {
			continue
		}
		v := decode(data[i*width : (i+1)*width])
		if !ok {
			min, max, ok = v, v, true
			continue
		}
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return min, max, ok
}

func punStats(ok bool, min, max uint64) SegmentStats {
	if !ok {
		return SegmentStats{}
	}
	return SegmentStats{Valid: true, Min: min, Max: max}
}

// Overlap returns whether the closed interval [lo, hi] (bit-punned in the
// same fashion as stats.Min/Max) intersects [stats.Min, stats.Max]. Per
// spec §4.6, an invalid stats always overlaps (conservative: "always
// returns true when invalid").
func (stats SegmentStats) Overlap(t PrimitiveType, lo, hi uint64) bool {
	if !stats.Valid {
		return true
	}
	return !lessPunned(t, hi, stats.Min) && !lessPunned(t, stats.Max, lo)
}

// punBits bit-puns a raw little-endian value of the given primitive type
// into a uint64 for storage in SegmentStats, preserving ordering for
// signed and floating types via sign-flip / IEEE-754 order-preserving
// transforms.
func punBits(t PrimitiveType, raw []byte) uint64 {
	switch t {
	case I8:
		return orderPreservingSigned8(int8(raw[0]))
	case U8:
		return uint64(raw[0])
	case I16:
		return orderPreservingSigned(uint64(uint16(binary.LittleEndian.Uint16(raw))), 16)
	case U16:
		return uint64(binary.LittleEndian.Uint16(raw))
	case I32:
		return orderPreservingSigned(uint64(binary.LittleEndian.Uint32(raw)), 32)
	case U32:
		return uint64(binary.LittleEndian.Uint32(raw))
	case I64:
		return orderPreservingSigned(binary.LittleEndian.Uint64(raw), 64)
	case U64:
		return binary.LittleEndian.Uint64(raw)
	case F32:
		bits := binary.LittleEndian.Uint32(raw)
		return uint64(orderPreservingFloatBits(uint64(bits), 32))
	case F64:
		bits := binary.LittleEndian.Uint64(raw)
		return orderPreservingFloatBits(bits, 64)
	case Bool:
		if raw[0] != 0 {
			return 1
		}
		return 0
	default:
		return 0
	}
}

func lessPunned(t PrimitiveType, a, b uint64) bool {
	return a < b // all punned representations above are order-preserving as unsigned
}

func orderPreservingSigned8(v int8) uint64 {
	return uint64(uint8(v) ^ 0x80)
}

func orderPreservingSigned(bits uint64, width int) uint64 {
	sign := uint64(1) << (width - 1)
	return bits ^ sign
}

func orderPreservingFloatBits(bits uint64, width int) uint64 {
	signMask := uint64(1) << (width - 1)
	allOnes := ^uint64(0)
	if width < 64 {
		allOnes = (uint64(1) << width) - 1
	}
	if bits&signMask != 0 {
		return ^bits & allOnes
	}
	return bits | signMask
}
