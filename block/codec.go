// Package block wraps the external generic block compressor (spec §1:
// "the bundled generic block compressor ... treated as a black-box
// algorithm with a known contract", C11). The core never implements
// compression itself; it only validates sizes and surfaces
// resource-exhaustion/integrity failures from the codec consistently.
package block

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/zstd"

	"github.com/pil-io/pil/errs"
)

// CodecID is the stable identifier for the generic block codec, spec §6
// codec id 1.
const CodecID = 1

var (
	encoderPool = newEncoderPool()
	decoderPool = newDecoderPool()
)

type encoderPoolT struct{ enc *zstd.Encoder }

func newEncoderPool() *encoderPoolT {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		// zstd.NewWriter(nil, ...) only fails on invalid options, which are
		// fixed above; a failure here would be a programming error.
		panic(err)
	}
	return &encoderPoolT{enc: enc}
}

type decoderPoolT struct{ dec *zstd.Decoder }

func newDecoderPool() *decoderPoolT {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		panic(err)
	}
	return &decoderPoolT{dec: dec}
}

// Compress appends the zstd-compressed form of src to dst and returns the
// result. This is the "safe" path: klauspost/compress/zstd bounds-checks
// internally and never reads or writes past the slices it's given.
func Compress(dst, src []byte) ([]byte, error) {
	return encoderPool.enc.EncodeAll(src, dst), nil
}

// Decompress decompresses src, whose uncompressed length is known to be
// uncompressedSize, into a freshly allocated buffer. uncompressedSize
// lets the decoder preallocate exactly rather than growing geometrically,
// the "unsafe" fast path spec §4.1/§4.2 call for at the buffer-management
// layer; the decompression itself still goes through the safe zstd API.
func Decompress(src []byte, uncompressedSize int64) ([]byte, error) {
	dst := make([]byte, 0, uncompressedSize)
	out, err := decoderPool.dec.DecodeAll(src, dst)
	if err != nil {
		return nil, errs.Wrap(errs.KindResourceExhausted, err, "block: zstd decompress failed")
	}
	if int64(len(out)) != uncompressedSize {
		return nil, errs.New(errs.KindIntegrity, "block: decompressed size %d does not match recorded size %d", len(out), uncompressedSize)
	}
	return out, nil
}

// NewStreamWriter returns an io.WriteCloser that zstd-compresses
// everything written to it into dst, for callers (e.g. the archive sink)
// that want to stream large payloads rather than buffer them whole.
func NewStreamWriter(dst io.Writer) (io.WriteCloser, error) {
	return zstd.NewWriter(dst)
}

// DecompressAll reads a full compressed stream from r and returns the
// decompressed bytes. It exists alongside Decompress for callers that
// don't have a pre-known uncompressed size on hand.
func DecompressAll(r io.Reader) ([]byte, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, errs.Wrap(errs.KindResourceExhausted, err, "block: zstd reader init failed")
	}
	defer dec.Close()
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, dec); err != nil {
		return nil, errs.Wrap(errs.KindIntegrity, err, "block: zstd stream decompress failed")
	}
	return buf.Bytes(), nil
}
