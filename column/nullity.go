package column

import "github.com/pil-io/pil/pool"

// nullityChunkWords is the growth granularity for the nullity bitmap,
// spec §4.2: "Nullity bitmap grows in 16384-word chunks". Growing by a
// fixed chunk count (rather than per-row) keeps append() amortized O(1).
const nullityChunkWords = 16384

// Bitmap is a packed validity bitmap, one bit per row, little-endian
// within each 32-bit word, as laid out in spec §3.
type Bitmap struct {
	buf *pool.Buffer
	n   int // number of rows the bitmap currently tracks
}

// NewBitmap returns an empty Bitmap allocating from p (pool.Default() if
// nil).
func NewBitmap(p *pool.Pool) *Bitmap {
	return &Bitmap{buf: pool.NewBuffer(p)}
}

// Words returns the bitmap's packed little-endian 32-bit words.
func (bm *Bitmap) Words() []byte {
	if bm.buf == nil {
		return nil
	}
	return bm.buf.Bytes()
}

// NumWords returns ⌈n/32⌉, the number of 32-bit words needed for n rows.
func NumWords(n int) int {
	return (n + 31) / 32
}

// ensure grows the backing buffer so it can address row index n-1,
// zero-filling the newly grown suffix so unset rows are implicitly
// invalid, in nullityChunkWords-word chunks.
func (bm *Bitmap) ensure(n int) {
	needWords := NumWords(n)
	haveWords := bm.buf.Len() / 4
	if needWords <= haveWords {
		return
	}
	chunks := (needWords + nullityChunkWords - 1) / nullityChunkWords
	newWords := chunks * nullityChunkWords
	bm.buf.Resize(newWords * 4)
	if n > bm.n {
		bm.n = n
	}
}

// Set writes the validity bit for row i.
func (bm *Bitmap) Set(i int, valid bool) {
	bm.ensure(i + 1)
	if i+1 > bm.n {
		bm.n = i + 1
	}
	word := i / 32
	bit := uint(i % 32)
	data := bm.buf.Bytes()
	off := word * 4
	v := uint32(data[off]) | uint32(data[off+1])<<8 | uint32(data[off+2])<<16 | uint32(data[off+3])<<24
	if valid {
		v |= 1 << bit
	} else {
		v &^= 1 << bit
	}
	data[off] = byte(v)
	data[off+1] = byte(v >> 8)
	data[off+2] = byte(v >> 16)
	data[off+3] = byte(v >> 24)
}

// IsValid reads the validity bit for row i. Rows beyond the bitmap's
// tracked range (never written) read as invalid, matching the
// zero-filled growth semantics.
func (bm *Bitmap) IsValid(i int) bool {
	if bm.buf == nil || i < 0 {
		return false
	}
	word := i / 32
	off := word * 4
	data := bm.buf.Bytes()
	if off+4 > len(data) {
		return false
	}
	bit := uint(i % 32)
	v := uint32(data[off]) | uint32(data[off+1])<<8 | uint32(data[off+2])<<16 | uint32(data[off+3])<<24
	return v&(1<<bit) != 0
}

// Len returns the number of rows the bitmap has been asked to track
// (the highest Set index + 1), not the word-rounded capacity.
func (bm *Bitmap) Len() int { return bm.n }

// NewBitmapFromWords reconstructs a Bitmap tracking n rows from its
// packed little-endian words, used by the decode path after the generic
// block codec has decompressed the nullity payload.
func NewBitmapFromWords(words []byte, n int) *Bitmap {
	bm := &Bitmap{buf: pool.NewBuffer(nil), n: n}
	bm.buf.Resize(len(words))
	copy(bm.buf.Bytes(), words)
	return bm
}
