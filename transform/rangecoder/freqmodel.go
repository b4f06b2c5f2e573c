package rangecoder

// maxFreq and step mirror the reference model's MAX_FREQ ((1<<16)-16)
// and STEP (8): step is how much a symbol's frequency grows each time
// it's seen, and maxFreq is the renormalization trigger.
const (
	maxFreq = (1 << 16) - 16
	step    = 8
)

type symFreq struct {
	freq   uint16
	symbol uint16
}

// FrequencyModel is an adaptive, approximately frequency-sorted symbol
// table (spec §4.5, C10): no escape symbol, so it assumes a closed,
// largely stationary alphabet of at most nsym symbols. Each emitted
// symbol bumps its own frequency and may bubble one slot toward the
// front of the table; periodic halving keeps the running total under
// maxFreq.
type FrequencyModel struct {
	totFreq uint32
	f       []symFreq
}

// NewFrequencyModel returns a model over nsym symbols, the first maxSym
// of which start with frequency 1 (observed-at-least-once) and the rest
// with frequency 0 (never emitted, placed at the unsorted tail).
func NewFrequencyModel(nsym, maxSym int) *FrequencyModel {
	m := &FrequencyModel{f: make([]symFreq, nsym)}
	for i := 0; i < maxSym; i++ {
		m.f[i] = symFreq{freq: 1, symbol: uint16(i)}
	}
	for i := maxSym; i < nsym; i++ {
		m.f[i] = symFreq{freq: 0, symbol: uint16(i)}
	}
	m.totFreq = uint32(maxSym)
	return m
}

// normalize halves every symbol's frequency (rounding up, so a
// frequency of 1 never reaches 0 and silently disappears) and
// recomputes the running total. Matches the reference's rule that the
// loop stops at the first zero-frequency slot, relying on slots beyond
// the live alphabet staying at 0 forever.
func (m *FrequencyModel) normalize() {
	m.totFreq = 0
	for i := range m.f {
		if m.f[i].freq == 0 {
			break
		}
		m.f[i].freq -= m.f[i].freq >> 1
		m.totFreq += uint32(m.f[i].freq)
	}
}

// EncodeSymbol emits sym through rc (an *Encoder), updating the model.
func (m *FrequencyModel) EncodeSymbol(enc *Encoder, sym uint16) {
	i := m.indexOf(sym)
	var accFreq uint32
	for j := 0; j < i; j++ {
		accFreq += uint32(m.f[j].freq)
	}
	enc.Encode(accFreq, uint32(m.f[i].freq), m.totFreq)
	m.bump(i)
}

// DecodeSymbol consumes the next symbol from dec (a *Decoder) and
// returns it, updating the model identically to EncodeSymbol.
func (m *FrequencyModel) DecodeSymbol(dec *Decoder) uint16 {
	freq := dec.GetFreq(m.totFreq)
	var accFreq uint32
	i := 0
	for {
		next := accFreq + uint32(m.f[i].freq)
		if next > freq {
			break
		}
		accFreq = next
		i++
	}
	sym := m.f[i].symbol
	dec.Decode(accFreq, uint32(m.f[i].freq), m.totFreq)
	m.bump(i)
	return sym
}

// bump grows slot i's frequency by step, renormalizes if the total has
// grown past maxFreq, then performs the single-swap approximate sort:
// if slot i now outranks its left neighbor, swap them.
func (m *FrequencyModel) bump(i int) {
	m.f[i].freq += step
	m.totFreq += step
	if m.totFreq > maxFreq {
		m.normalize()
	}
	if i > 0 && m.f[i].freq > m.f[i-1].freq {
		m.f[i], m.f[i-1] = m.f[i-1], m.f[i]
	}
}

func (m *FrequencyModel) indexOf(sym uint16) int {
	for i := range m.f {
		if m.f[i].symbol == sym {
			return i
		}
	}
	return len(m.f) - 1
}
