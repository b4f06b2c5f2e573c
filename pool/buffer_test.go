package pool

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBufferGrowZeroFillsSuffix(t *testing.T) {
	b := NewBuffer(New())
	b.Resize(4)
	copy(b.Bytes(), []byte{1, 2, 3, 4})
	b.Resize(8)
	require.Equal(t, []byte{1, 2, 3, 4, 0, 0, 0, 0}, b.Bytes())
}

func TestBufferShrinkKeepsCapacity(t *testing.T) {
	b := NewBuffer(New())
	b.Resize(64)
	capBefore := b.Cap()
	b.Resize(8)
	require.Equal(t, 8, b.Len())
	require.Equal(t, capBefore, b.Cap())
}

func TestBufferGrowthIsPowerOfTwo(t *testing.T) {
	b := NewBuffer(New())
	b.Resize(5)
	require.Equal(t, 8, b.Cap())
}

func TestBufferAppendReturnsOffset(t *testing.T) {
	b := NewBuffer(New())
	off1 := b.Append([]byte("abc"))
	off2 := b.Append([]byte("de"))
	require.Equal(t, 0, off1)
	require.Equal(t, 3, off2)
	require.Equal(t, []byte("abcde"), b.Bytes())
}

func TestBufferCloneSharesThenDetachesOnGrow(t *testing.T) {
	b := NewBuffer(New())
	b.Resize(4)
	copy(b.Bytes(), []byte("wxyz"))

	clone := b.Clone()
	require.Equal(t, b.Bytes(), clone.Bytes())

	clone.Resize(64)
	copy(clone.Bytes(), []byte("mutated-clone-only-------------"))
	require.Equal(t, []byte("wxyz"), b.Bytes())
}

func TestPoolTracksPeakAllocation(t *testing.T) {
	p := New()
	buf := p.Allocate(100)
	require.Equal(t, int64(100), p.Allocated())
	p.Release(100)
	require.Equal(t, int64(0), p.Allocated())
	require.Equal(t, int64(100), p.Peak())
	_ = buf
}

func TestAlignedAllocationIsAligned(t *testing.T) {
	p := New()
	buf := p.Allocate(17)
	require.Equal(t, 0, int(sliceAddr(buf))%Alignment)
}

func TestDefaultPoolIsSingleton(t *testing.T) {
	require.Same(t, Default(), Default())
}
