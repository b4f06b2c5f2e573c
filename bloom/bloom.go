// Package bloom implements the block-split Bloom filter described in
// spec §6: an auxiliary structure that may accompany a column's on-disk
// segment but is not wired into the ingest path (spec §1's explicit
// "external collaborator" carve-out). It is grounded on the Parquet-style
// block-split filter in original_source/bloom_filter.h/.cpp, ported to
// Go's idiom rather than translated line for line, and reuses the core's
// own aligned-allocation and hashing stack (pool.Pool, xxhash) instead of
// hand-rolling either.
package bloom

import (
	"math"

	"github.com/cespare/xxhash/v2"

	"github.com/pil-io/pil/errs"
	"github.com/pil-io/pil/pool"
)

// Block layout constants from spec §6: each tiny filter is one 32-byte,
// 32-bit-word-aligned block with eight bits set, one per salted word.
const (
	bytesPerBlock  = 32
	wordsPerBlock  = bytesPerBlock / 4
	bitsSetPerWord = wordsPerBlock // one salt per word, spec §6

	// MinBytes and MaxBytes bound a filter's bitset size: one block at the
	// low end, the HDFS-style 128 MiB ceiling at the high end (spec §6,
	// original_source/bloom_filter.h's kMinimumBloomFilterBytes/
	// kMaximumBloomFilterBytes).
	MinBytes = bytesPerBlock
	MaxBytes = 128 * 1024 * 1024
)

// Salt is the fixed set of eight odd salt values spec §6 pins verbatim,
// one per 32-bit word of a block.
var Salt = [bitsSetPerWord]uint32{
	0x47b6137b, 0x44974d91, 0x8824ad5b, 0xa2b7289d,
	0x705495c7, 0x2df1424b, 0x9efc4947, 0x5c6bfb31,
}

// Filter is a block-split Bloom filter: a power-of-two-sized, 32-byte
// aligned bitset partitioned into blocks, each independently addressed by
// the upper 32 bits of a 64-bit hash and written to with the lower 32
// bits (spec §6: "upper 32 bits select a 32-byte block, lower 32 bits
// drive the eight bit positions").
type Filter struct {
	buf *pool.Buffer
}

// NumBlocks returns the number of 32-byte blocks the filter's bitset is
// divided into.
func (f *Filter) NumBlocks() int { return f.buf.Len() / bytesPerBlock }

// NumBytes returns the bitset's size in bytes.
func (f *Filter) NumBytes() int { return f.buf.Len() }

// New allocates a Filter with a bitset of exactly numBytes bytes, which
// must already be a power of two in [MinBytes, MaxBytes]; use
// OptimalNumBytes to derive it from an expected cardinality and target
// false-positive rate. p may be nil to use pool.Default().
func New(p *pool.Pool, numBytes uint32) (*Filter, error) {
	if numBytes < MinBytes || numBytes > MaxBytes {
		return nil, errs.New(errs.KindInputInvalid, "bloom: numBytes %d outside [%d, %d]", numBytes, MinBytes, MaxBytes)
	}
	if numBytes&(numBytes-1) != 0 {
		return nil, errs.New(errs.KindInputInvalid, "bloom: numBytes %d is not a power of two", numBytes)
	}
	buf := pool.NewBuffer(p)
	buf.Resize(int(numBytes))
	return &Filter{buf: buf}, nil
}

// OptimalNumBytes computes the smallest power-of-two bitset size, within
// [MinBytes, MaxBytes], expected to hold ndv distinct values at false
// positive probability fpp, per the formula in
// original_source/bloom_filter.h's OptimalNumOfBits (divided by 8 for
// bytes rather than bits, since a block-split filter's unit is the byte).
func OptimalNumBytes(ndv uint32, fpp float64) uint32 {
	if fpp <= 0 || fpp >= 1 {
		fpp = 0.01
	}
	m := -8.0 * float64(ndv) / math.Log(1-math.Pow(fpp, 1.0/8))
	numBits := m
	if numBits < 0 || numBits > float64(MaxBytes)*8 {
		numBits = float64(MaxBytes) * 8
	}
	numBytes := uint32(numBits) / 8
	if numBytes < MinBytes {
		numBytes = MinBytes
	}
	numBytes = nextPow2(numBytes)
	if numBytes > MaxBytes {
		numBytes = MaxBytes
	}
	return numBytes
}

func nextPow2(n uint32) uint32 {
	if n == 0 {
		return 1
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	return n + 1
}

// blockMask derives the eight bit positions (one per word) a block sets
// for key, the low 32 bits of a value's hash.
func blockMask(key uint32) [bitsSetPerWord]uint32 {
	var mask [bitsSetPerWord]uint32
	for i, salt := range Salt {
		mask[i] = uint32(1) << ((key * salt) >> 27)
	}
	return mask
}

// blockOffset maps the high 32 bits of a hash onto a block index, via
// the same multiply-high trick the Parquet block-split filter uses so
// the mapping stays uniform without a modulo.
func (f *Filter) blockOffset(hi uint32) int {
	numBlocks := uint64(f.NumBlocks())
	return int((uint64(hi) * numBlocks) >> 32)
}

// Insert sets the bits corresponding to hash in the filter.
func (f *Filter) Insert(hash uint64) {
	hi := uint32(hash >> 32)
	lo := uint32(hash)
	block := f.blockOffset(hi)
	mask := blockMask(lo)
	data := f.buf.Bytes()[block*bytesPerBlock : (block+1)*bytesPerBlock]
	for i, m := range mask {
		word := data[i*4 : i*4+4]
		v := leUint32(word)
		v |= m
		putLeUint32(word, v)
	}
}

// Find reports whether hash may have been inserted; false means
// definitely not inserted, true means probably inserted.
func (f *Filter) Find(hash uint64) bool {
	hi := uint32(hash >> 32)
	lo := uint32(hash)
	block := f.blockOffset(hi)
	mask := blockMask(lo)
	data := f.buf.Bytes()[block*bytesPerBlock : (block+1)*bytesPerBlock]
	for i, m := range mask {
		word := data[i*4 : i*4+4]
		if leUint32(word)&m == 0 {
			return false
		}
	}
	return true
}

func leUint32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func putLeUint32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

// Hash64 computes the 64-bit digest Insert/Find expect for a raw,
// little-endian-encoded primitive value, using the same xxhash the rest
// of the core hashes schema vectors and tensor strides with (spec §6,
// C4's schema hash, C8's tensor dictionary hash) rather than a
// filter-local hash function.
func Hash64(raw []byte) uint64 {
	return xxhash.Sum64(raw)
}

// Bytes returns the filter's serialized bitset, 32-byte aligned per
// spec §6, suitable for writing alongside a column's segment.
func (f *Filter) Bytes() []byte { return f.buf.Bytes() }

// Load reconstructs a Filter from a previously serialized bitset. data is
// copied into a fresh pool-owned buffer; its length must be a power of
// two in [MinBytes, MaxBytes].
func Load(p *pool.Pool, data []byte) (*Filter, error) {
	n := uint32(len(data))
	if n < MinBytes || n > MaxBytes || n&(n-1) != 0 {
		return nil, errs.New(errs.KindInputInvalid, "bloom: serialized bitset size %d invalid", n)
	}
	buf := pool.NewBuffer(p)
	buf.Resize(len(data))
	copy(buf.Bytes(), data)
	return &Filter{buf: buf}, nil
}
