package rangecoder

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFrequencyModelRoundTrips(t *testing.T) {
	symbols := []uint16{0, 1, 2, 1, 1, 0, 3, 1, 2, 1, 1, 1, 0, 3, 2}

	encModel := NewFrequencyModel(4, 4)
	enc := NewEncoder()
	for _, s := range symbols {
		encModel.EncodeSymbol(enc, s)
	}
	encoded := enc.Finish()

	decModel := NewFrequencyModel(4, 4)
	dec := NewDecoder(encoded)
	got := make([]uint16, len(symbols))
	for i := range got {
		got[i] = decModel.DecodeSymbol(dec)
	}
	require.Equal(t, symbols, got)
}

func TestFrequencyModelSkewedDistribution(t *testing.T) {
	var symbols []uint16
	for i := 0; i < 200; i++ {
		symbols = append(symbols, 0)
	}
	for i := 0; i < 5; i++ {
		symbols = append(symbols, 1)
	}

	encModel := NewFrequencyModel(2, 2)
	enc := NewEncoder()
	for _, s := range symbols {
		encModel.EncodeSymbol(enc, s)
	}
	encoded := enc.Finish()
	require.Less(t, len(encoded), len(symbols))

	decModel := NewFrequencyModel(2, 2)
	dec := NewDecoder(encoded)
	got := make([]uint16, len(symbols))
	for i := range got {
		got[i] = decModel.DecodeSymbol(dec)
	}
	require.Equal(t, symbols, got)
}

// TestDecoderCarryStress drives the encoder/decoder pair through enough
// random, skewed-alphabet input that the encoder's carry-delay loop
// (renormalize's do-while on (low>>32)==-1) fires repeatedly, exercising
// the decoder's matching cl-gated carry handling in Decode/NewDecoder.
// A desynchronized decoder diverges from the encoded symbol sequence
// partway through a long enough skewed run; 30 independent trials at
// length 2000 give that divergence nowhere to hide.
func TestDecoderCarryStress(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for trial := 0; trial < 30; trial++ {
		var symbols []uint16
		for i := 0; i < 2000; i++ {
			if rng.Intn(100) < 90 {
				symbols = append(symbols, 0)
			} else {
				symbols = append(symbols, uint16(1+rng.Intn(3)))
			}
		}

		encModel := NewFrequencyModel(4, 4)
		enc := NewEncoder()
		for _, s := range symbols {
			encModel.EncodeSymbol(enc, s)
		}
		encoded := enc.Finish()

		decModel := NewFrequencyModel(4, 4)
		dec := NewDecoder(encoded)
		got := make([]uint16, len(symbols))
		for i := range got {
			got[i] = decModel.DecodeSymbol(dec)
		}
		require.Equal(t, symbols, got, "trial %d desynchronized", trial)
	}
}
