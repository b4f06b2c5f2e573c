// Package transform implements the transform pipeline of spec §4.5 (C7):
// chain validation, dictionary encoding (C8), delta encoding (C9), and
// the entropy/block codecs (C10/C11), each stage recording a
// column.TransformMeta with a checksum for exact reconstruction.
package transform

// Codec is the stable per-stage codec identifier of spec §6.
type Codec uint32

const (
	CodecNone            Codec = 0
	CodecBlock           Codec = 1 // generic block compressor (zstd)
	CodecQualityRange    Codec = 2 // quality-string range coder
	CodecSequenceRange   Codec = 3 // DNA range coder
	CodecAuto            Codec = 4 // auto-compress token, resolved before running
	CodecDictionary      Codec = 5
	CodecDelta           Codec = 6
	CodecPrefixSum       Codec = 7 // inverse of CodecDelta, decode-only
	CodecBasePack2Bit    Codec = 8 // not specified further per spec §6
)

// isCompression reports whether c is one of the compression codecs (ids
// 0-5 inclusive per spec §4.5's chain-validity rule, which counts
// dictionary encoding itself among the "compression" tokens for ordering
// purposes).
func isCompression(c Codec) bool {
	return c >= CodecNone && c <= CodecDictionary
}

// isEncoding reports whether c is a non-dictionary, non-compression
// encoding stage (anything with an id greater than the compression
// range).
func isEncoding(c Codec) bool {
	return c > CodecDictionary
}
