package transform

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidOrderRejectsAutoAlongsideOtherTokens(t *testing.T) {
	require.True(t, ValidOrder(nil))
	require.True(t, ValidOrder([]Codec{CodecAuto}))
	require.False(t, ValidOrder([]Codec{CodecAuto, CodecBlock}))
}

func TestValidOrderDictionaryMustPrecedeCompressionAndFollowEncodings(t *testing.T) {
	require.True(t, ValidOrder([]Codec{CodecDelta, CodecDictionary, CodecBlock}))
	require.False(t, ValidOrder([]Codec{CodecBlock, CodecDictionary}))
	require.False(t, ValidOrder([]Codec{CodecDictionary, CodecDelta, CodecBlock}))
}

func TestValidOrderRejectsRepeatedDictionary(t *testing.T) {
	require.False(t, ValidOrder([]Codec{CodecDictionary, CodecDictionary}))
}

func TestValidOrderAllowsMultipleCompressionTokens(t *testing.T) {
	require.True(t, ValidOrder([]Codec{CodecDelta, CodecDictionary, CodecBlock, CodecBlock}))
}
