package rangecoder

import (
	"encoding/binary"
)

// Quality header flag bits, packed into one byte: store_qtab<<7 |
// has_dtab<<6 | has_ptab<<5 | do_rev<<4 | do_strand<<3 | fixed_len<<2 |
// do_dedup<<1 | store_qmap.
const (
	flagStoreQTab = 1 << 7
	flagHasDTab   = 1 << 6
	flagHasPTab   = 1 << 5
	flagDoRev     = 1 << 4
	flagDoStrand  = 1 << 3
	flagFixedLen  = 1 << 2
	flagDoDedup   = 1 << 1
	flagStoreQMap = 1 << 0
)

const qualityHeaderVersion = 5

// maxQualityDelta caps qualityContext's "symbol changed" counter.
const maxQualityDelta = 255

// QualityOptions holds the context parameters of the quality-string
// compressor (spec §4.5/§6): previous-symbol bits, a position bucket, an
// optional strand bit and a bounded change counter. EncodeQuality records
// them in the header; the symbol model does not use them, since every
// symbol is coded through one shared adaptive FrequencyModel.
type QualityOptions struct {
	QCtxBits  uint8 // bits of previous-symbol history folded into context
	QCtxShift uint8 // right-shift applied to the previous-symbol bits
	QLoc      uint8 // position-bucket bits
	SLoc      uint8 // strand bit count (0 or 1)
	PLoc      uint8 // position-table index bits (unused if no PTab)
	DLoc      uint8 // delta-counter bits folded into context
	DoStrand  bool
}

// EncodeQuality compresses one or more quality-string rows sharing the
// same alphabet and context configuration, writing the bit-exact header
// spec §6 describes followed by the range-coded symbol stream. rows must
// already be mapped so that every byte is < 64 (the quality alphabet
// ceiling); EncodeQuality builds the optional remap table itself when
// the observed alphabet is a strict subset of [0,255].
func EncodeQuality(rows [][]byte, opts QualityOptions) []byte {
	remap, maxSym, originals := buildSymbolRemap(rows)
	fixedLen := rowsFixedLength(rows)

	var flags byte
	if len(originals) < 256 {
		flags |= flagStoreQMap
	}
	if fixedLen {
		flags |= flagFixedLen
	}
	if opts.DoStrand {
		flags |= flagDoStrand
	}

	header := make([]byte, 7)
	header[0] = qualityHeaderVersion
	header[1] = flags
	header[2] = byte(maxSym)
	header[3] = opts.QCtxBits<<4 | opts.QCtxShift
	header[4] = opts.QLoc<<4 | opts.SLoc
	header[5] = opts.PLoc<<4 | opts.DLoc
	header[6] = 0 // reserved nibble pair

	out := header
	if flags&flagStoreQMap != 0 {
		out = append(out, encodeSymbolMap(originals)...)
	}

	model := NewFrequencyModel(int(maxSym)+1, int(maxSym)+1)
	enc := NewEncoder()
	ctx := newQualityContext(opts)
	for _, row := range rows {
		ctx.reset()
		for _, b := range row {
			sym := remap[b]
			model.EncodeSymbol(enc, uint16(sym))
			ctx.advance(sym)
		}
	}
	body := enc.Finish()

	lenBuf := make([]byte, 4)
	binary.LittleEndian.PutUint32(lenBuf, uint32(len(body)))
	out = append(out, lenBuf...)
	out = append(out, body...)
	return out
}

// DecodeQuality reverses EncodeQuality given the expected row lengths
// (the archive's row-length offsets, recovered independently from the
// tensor column's offsets store).
func DecodeQuality(data []byte, rowLengths []int) ([][]byte, error) {
	flags := data[1]
	maxSym := int(data[2])
	pos := 7
	var inverse []byte
	if flags&flagStoreQMap != 0 {
		var n int
		inverse, n = decodeSymbolMap(data[pos:])
		pos += n
	} else {
		inverse = make([]byte, 256)
		for i := range inverse {
			inverse[i] = byte(i)
		}
	}
	bodyLen := binary.LittleEndian.Uint32(data[pos : pos+4])
	pos += 4
	body := data[pos : pos+int(bodyLen)]

	model := NewFrequencyModel(maxSym+1, maxSym+1)
	dec := NewDecoder(body)
	rows := make([][]byte, len(rowLengths))
	for i, n := range rowLengths {
		row := make([]byte, n)
		for j := 0; j < n; j++ {
			sym := model.DecodeSymbol(dec)
			row[j] = inverse[sym]
		}
		rows[i] = row
	}
	return rows, nil
}

func rowsFixedLength(rows [][]byte) bool {
	if len(rows) == 0 {
		return true
	}
	n := len(rows[0])
	for _, r := range rows[1:] {
		if len(r) != n {
			return false
		}
	}
	return true
}

// buildSymbolRemap scans rows for the distinct byte values in use and
// returns a 256-entry forward map (original byte -> dense symbol id),
// the maximum symbol id, and the ordered list of original byte values
// the dense ids were assigned to (originals[id] == the byte that maps
// to id).
func buildSymbolRemap(rows [][]byte) ([]byte, int, []byte) {
	var seen [256]bool
	for _, row := range rows {
		for _, b := range row {
			seen[b] = true
		}
	}
	remap := make([]byte, 256)
	var originals []byte
	for b := 0; b < 256; b++ {
		if seen[b] {
			remap[b] = byte(len(originals))
			originals = append(originals, byte(b))
		}
	}
	maxSym := 0
	if len(originals) > 0 {
		maxSym = len(originals) - 1
	}
	return remap, maxSym, originals
}

// encodeSymbolMap writes the symbol map as a plain table: a count of
// distinct symbols followed by each original byte value in ascending
// dense-symbol order.
func encodeSymbolMap(originals []byte) []byte {
	out := make([]byte, 0, len(originals)+1)
	out = append(out, byte(len(originals)))
	return append(out, originals...)
}

func decodeSymbolMap(data []byte) ([]byte, int) {
	used := int(data[0])
	inverse := make([]byte, used)
	copy(inverse, data[1:1+used])
	return inverse, 1 + used
}

// qualityContext tracks rolling per-row state: previous symbol, in-row
// position, and a counter of symbol changes bounded at maxQualityDelta.
// EncodeQuality advances it for every symbol, but nothing reads it: both
// EncodeQuality and DecodeQuality code every symbol through a single
// shared FrequencyModel, with no per-context models.
type qualityContext struct {
	opts QualityOptions
	prev byte
	pos  int
	run  int
}

func newQualityContext(opts QualityOptions) *qualityContext {
	return &qualityContext{opts: opts}
}

func (c *qualityContext) reset() {
	c.prev = 0
	c.pos = 0
	c.run = 0
}

func (c *qualityContext) advance(sym byte) {
	if sym != c.prev && c.run < maxQualityDelta {
		c.run++
	}
	c.prev = sym
	c.pos++
}
