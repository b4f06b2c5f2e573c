// Package pool implements the memory pool and aligned, resizable buffer
// described by spec §4.1 (C1). Go's garbage collector owns the underlying
// allocations; the pool's job is bookkeeping (current/peak bytes) and
// handing out slices whose backing array starts on a 64-byte boundary,
// not manual allocation as in the C++ original.
package pool

import (
	"sync"
	"sync/atomic"
)

// Alignment is the byte alignment every Pool allocation honors, matching
// spec §4.1's "64-byte aligned allocation".
const Alignment = 64

// Pool tracks current and peak bytes allocated across every buffer it
// hands out. It is safe for concurrent use, though spec §5 only requires
// single-writer access; the atomics are cheap insurance for the one
// process-wide default instance.
type Pool struct {
	allocated int64
	peak      int64
}

// New returns a fresh, independent Pool. Most callers want Default.
func New() *Pool {
	return &Pool{}
}

var (
	defaultOnce sync.Once
	defaultPool *Pool
)

// Default returns the process-wide default memory pool, created lazily on
// first use and alive for the life of the process — the one genuinely
// global piece of state in the core (spec §9).
func Default() *Pool {
	defaultOnce.Do(func() { defaultPool = New() })
	return defaultPool
}

// Allocated returns the number of bytes currently allocated through p and
// not yet released.
func (p *Pool) Allocated() int64 { return atomic.LoadInt64(&p.allocated) }

// Peak returns the maximum value Allocated has ever held.
func (p *Pool) Peak() int64 { return atomic.LoadInt64(&p.peak) }

func (p *Pool) track(delta int64) {
	allocated := atomic.AddInt64(&p.allocated, delta)
	if delta <= 0 {
		return
	}
	for {
		peak := atomic.LoadInt64(&p.peak)
		if allocated <= peak || atomic.CompareAndSwapInt64(&p.peak, peak, allocated) {
			return
		}
	}
}

// Allocate returns a new zero-filled, 64-byte-aligned buffer of at least
// size bytes, tracked against the pool's statistics.
func (p *Pool) Allocate(size int64) []byte {
	if size < 0 {
		size = 0
	}
	buf := alignedMake(size)
	p.track(size)
	return buf
}

// Release informs the pool that a previously allocated buffer of the
// given original size is no longer in use. Go's GC reclaims the memory;
// this only corrects the pool's bookkeeping.
func (p *Pool) Release(size int64) {
	p.track(-size)
}

// alignedMake allocates a []byte of length size whose data pointer is
// Alignment-byte aligned, by over-allocating and slicing.
func alignedMake(size int64) []byte {
	if size == 0 {
		return []byte{}
	}
	raw := make([]byte, size+Alignment)
	off := alignmentOffset(raw)
	return raw[off : off+int(size) : off+int(size)]
}

func alignmentOffset(b []byte) int {
	if len(b) == 0 {
		return 0
	}
	addr := sliceAddr(b)
	rem := addr % Alignment
	if rem == 0 {
		return 0
	}
	return int(Alignment - rem)
}
