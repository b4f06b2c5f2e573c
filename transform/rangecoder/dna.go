package rangecoder

// baseCode maps the four nucleotide symbols to their 2-bit codes;
// anything else (including 'N') is folded to the 'A' code and flagged
// separately through the N submodel.
var baseCode = map[byte]uint16{'A': 0, 'C': 1, 'G': 2, 'T': 3}
var baseChar = [4]byte{'A', 'C', 'G', 'T'}

// dnaWindowBits is 2*NS from spec §4.5 (NS ~= 10): the sliding window of
// the last NS bases, each contributing 2 bits to the context.
const dnaWindowBits = 20
const dnaWindowMask = (1 << dnaWindowBits) - 1

// dnaSeed is the sliding window's initial value, chosen to be a context
// unlikely to arise from real sequence so the first few bases don't
// alias an already-trained context bucket.
const dnaSeed = 0xAAAAA

// DNAEncoder compresses an ACGTN sequence stream with a context-adaptive
// model keyed by the last NS bases (spec §4.5): non-ACGT symbols are
// mapped to 'A' in the base model and separately flagged true/false in
// an independent binary submodel, since unlike the quality compressor
// the alphabet here is small enough (4 symbols) to afford one
// FrequencyModel per context bucket outright.
type DNAEncoder struct {
	enc      *Encoder
	base     []*FrequencyModel // one 4-symbol model per context bucket
	isN      *FrequencyModel   // 2-symbol model: is this base an 'N'/non-ACGT call
	window   uint32
}

// NewDNAEncoder returns an encoder with 2^dnaWindowBits context buckets,
// lazily instantiated on first use to avoid paying for contexts a short
// sequence never visits.
func NewDNAEncoder() *DNAEncoder {
	return &DNAEncoder{
		enc:  NewEncoder(),
		base: make([]*FrequencyModel, 1<<dnaWindowBits),
		isN:  NewFrequencyModel(2, 2),
		window: dnaSeed,
	}
}

// EncodeSequence compresses seq, a byte string over {A,C,G,T,N,...}.
func (e *DNAEncoder) EncodeSequence(seq []byte) {
	for _, b := range seq {
		code, ok := baseCode[b]
		isN := uint16(0)
		if !ok {
			isN = 1
			code = 0
		}
		e.isN.EncodeSymbol(e.enc, isN)
		m := e.modelFor(e.window)
		m.EncodeSymbol(e.enc, code)
		e.window = ((e.window << 2) | uint32(code)) & dnaWindowMask
	}
}

// Finish flushes the range coder and returns the compressed stream.
func (e *DNAEncoder) Finish() []byte { return e.enc.Finish() }

func (e *DNAEncoder) modelFor(ctx uint32) *FrequencyModel {
	if e.base[ctx] == nil {
		e.base[ctx] = NewFrequencyModel(4, 4)
	}
	return e.base[ctx]
}

// DNADecoder reverses DNAEncoder's output, given the expected sequence
// length (recovered from the tensor column's offsets, as with quality
// strings).
type DNADecoder struct {
	dec    *Decoder
	base   []*FrequencyModel
	isN    *FrequencyModel
	window uint32
}

// NewDNADecoder returns a decoder over encoded bytes.
func NewDNADecoder(encoded []byte) *DNADecoder {
	return &DNADecoder{
		dec:    NewDecoder(encoded),
		base:   make([]*FrequencyModel, 1<<dnaWindowBits),
		isN:    NewFrequencyModel(2, 2),
		window: dnaSeed,
	}
}

// DecodeSequence decodes n bases.
func (d *DNADecoder) DecodeSequence(n int) []byte {
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		isN := d.isN.DecodeSymbol(d.dec)
		m := d.modelFor(d.window)
		code := m.DecodeSymbol(d.dec)
		if isN == 1 {
			out[i] = 'N'
		} else {
			out[i] = baseChar[code]
		}
		d.window = ((d.window << 2) | uint32(code)) & dnaWindowMask
	}
	return out
}

func (d *DNADecoder) modelFor(ctx uint32) *FrequencyModel {
	if d.base[ctx] == nil {
		d.base[ctx] = NewFrequencyModel(4, 4)
	}
	return d.base[ctx]
}
