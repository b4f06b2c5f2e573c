package pool

import "sync/atomic"

// Buffer is a resizable byte buffer that distinguishes capacity (the
// backing allocation size) from length (bytes currently in use), growing
// geometrically (next power of two) and optionally keeping capacity on
// shrink, per spec §4.1. A Buffer exclusively owns its allocation; Clone
// produces a view that shares the allocation via reference counting so
// cheap read-only fan-out (e.g. a transform stage reading a prior stage's
// output) doesn't force a copy.
type Buffer struct {
	pool *Pool
	refs *int32
	data []byte // data[:length] is len(data); cap(data) is the capacity
	size int64  // original allocation size charged to pool, for Release
}

// NewBuffer allocates a new, empty Buffer backed by p (Default() if nil).
func NewBuffer(p *Pool) *Buffer {
	if p == nil {
		p = Default()
	}
	one := int32(1)
	return &Buffer{pool: p, refs: &one}
}

// Len returns the number of bytes currently in use.
func (b *Buffer) Len() int { return len(b.data) }

// Cap returns the current backing allocation size.
func (b *Buffer) Cap() int { return cap(b.data) }

// Bytes returns the in-use portion of the buffer. The slice aliases the
// buffer's storage and must not be retained past the next mutating call.
func (b *Buffer) Bytes() []byte { return b.data }

// Reset sets length to zero without releasing capacity, mirroring the
// record builder's scratch-buffer reuse discipline (spec §9).
func (b *Buffer) Reset() { b.data = b.data[:0] }

// Resize grows or shrinks the buffer to exactly n bytes. Growing
// reallocates in next-power-of-two steps when n exceeds capacity; the
// newly grown suffix is zero-filled. Shrinking keeps the existing
// capacity (spec §4.1: "shrinks may keep capacity").
func (b *Buffer) Resize(n int) {
	if n < 0 {
		n = 0
	}
	if n <= cap(b.data) {
		old := len(b.data)
		b.data = b.data[:n]
		if n > old {
			clear(b.data[old:n])
		}
		return
	}
	newCap := nextPow2(int64(n))
	fresh := b.pool.Allocate(newCap)
	copy(fresh, b.data)
	if b.size > 0 {
		b.pool.Release(b.size)
	}
	b.size = newCap
	b.data = fresh[:n]
}

// Append grows the buffer by len(p) bytes and copies p into the new
// suffix, returning the offset p was written at.
func (b *Buffer) Append(p []byte) int {
	off := len(b.data)
	b.Resize(off + len(p))
	copy(b.data[off:], p)
	return off
}

// UnsafeSetLength sets the in-use length directly without zero-filling or
// bounds validation, trusting the caller has already populated
// data[:n] — the unsafe fast path spec §4.1 calls for when a caller (e.g.
// the dictionary builder) has written directly into Bytes()'s backing
// array via a typed view.
func (b *Buffer) UnsafeSetLength(n int) {
	b.data = b.data[:n:cap(b.data)]
}

// Clone returns a new Buffer sharing b's underlying allocation via
// reference counting. Writes through either Buffer, and growth within the
// current capacity, are visible through both; only a Resize past the
// capacity moves the resizing Buffer to its own allocation.
func (b *Buffer) Clone() *Buffer {
	atomic.AddInt32(b.refs, 1)
	return &Buffer{pool: b.pool, refs: b.refs, data: b.data, size: 0}
}

// Release drops the buffer's reference to its backing allocation,
// releasing pool accounting once the last owner has done so.
func (b *Buffer) Release() {
	if b.refs == nil {
		return
	}
	if atomic.AddInt32(b.refs, -1) == 0 && b.size > 0 {
		b.pool.Release(b.size)
	}
}

func nextPow2(n int64) int64 {
	if n <= 1 {
		return 1
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return n + 1
}
