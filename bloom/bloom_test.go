package bloom

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOptimalNumBytesIsPowerOfTwoWithinBounds(t *testing.T) {
	n := OptimalNumBytes(1_000_000, 0.01)
	require.True(t, n&(n-1) == 0, "expected power of two, got %d", n)
	require.GreaterOrEqual(t, n, uint32(MinBytes))
	require.LessOrEqual(t, n, uint32(MaxBytes))
}

func TestOptimalNumBytesClampsToMinimum(t *testing.T) {
	require.Equal(t, uint32(MinBytes), OptimalNumBytes(1, 0.5))
}

func TestInsertThenFindAlwaysTrue(t *testing.T) {
	f, err := New(nil, 1<<20)
	require.NoError(t, err)

	var inserted []uint64
	for i := uint32(0); i < 10_000; i++ {
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], i)
		h := Hash64(b[:])
		f.Insert(h)
		inserted = append(inserted, h)
	}
	for _, h := range inserted {
		require.True(t, f.Find(h))
	}
}

func TestFalsePositiveRateIsBounded(t *testing.T) {
	const ndv = 50_000
	const fpp = 0.01
	n := OptimalNumBytes(ndv, fpp)
	f, err := New(nil, n)
	require.NoError(t, err)

	for i := uint32(0); i < ndv; i++ {
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], i)
		f.Insert(Hash64(b[:]))
	}

	falsePositives := 0
	const trials = 20_000
	for i := uint32(ndv); i < ndv+trials; i++ {
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], i)
		if f.Find(Hash64(b[:])) {
			falsePositives++
		}
	}
	// The block-split design trades some accuracy for cache locality, so
	// allow a generous multiple of the nominal fpp rather than asserting
	// it tightly.
	require.Less(t, float64(falsePositives)/float64(trials), fpp*5)
}

func TestNewRejectsNonPowerOfTwo(t *testing.T) {
	_, err := New(nil, 100)
	require.Error(t, err)
}

func TestNewRejectsOutOfRange(t *testing.T) {
	_, err := New(nil, 16)
	require.Error(t, err)
	_, err = New(nil, MaxBytes*2)
	require.Error(t, err)
}

func TestLoadRoundTripsBytes(t *testing.T) {
	f, err := New(nil, 1024)
	require.NoError(t, err)
	f.Insert(Hash64([]byte("hello")))

	loaded, err := Load(nil, f.Bytes())
	require.NoError(t, err)
	require.True(t, loaded.Find(Hash64([]byte("hello"))))
	require.False(t, loaded.Find(Hash64([]byte("world-does-not-exist"))))
}
