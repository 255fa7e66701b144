package encdoc

import (
	"sync"

	"github.com/klauspost/compress/zstd"
)

const (
	// Bundles smaller than this are stored as-is.
	defaultCompressionThreshold = 1024

	// A compressed bundle is kept only if it is at least this much smaller.
	minCompressionSavings = 0.10

	// maxDecompressedSize bounds the decoder so a small body cannot expand
	// into an arbitrarily large bundle.
	maxDecompressedSize = 64 << 20
)

// CompressionZstd is the Envelope.Compression value for zstd-compressed bundles.
// An empty value means the bundle was not compressed.
const CompressionZstd = "zstd"

// zstdPair holds the process-wide encoder and decoder. Both are safe for
// concurrent EncodeAll/DecodeAll calls.
type zstdPair struct {
	enc *zstd.Encoder
	dec *zstd.Decoder
}

var sharedZstd = sync.OnceValues(func() (*zstdPair, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, err
	}
	dec, err := zstd.NewReader(nil, zstd.WithDecoderMaxMemory(maxDecompressedSize))
	if err != nil {
		enc.Close()
		return nil, err
	}
	return &zstdPair{enc: enc, dec: dec}, nil
})

func compressZstd(data []byte) ([]byte, error) {
	z, err := sharedZstd()
	if err != nil {
		return nil, err
	}
	return z.enc.EncodeAll(data, nil), nil
}

// decompressZstd fails with ErrDecompressionFailed on corrupt input or when
// the result would exceed maxDecompressedSize.
func decompressZstd(data []byte) ([]byte, error) {
	z, err := sharedZstd()
	if err != nil {
		return nil, err
	}
	out, err := z.dec.DecodeAll(data, nil)
	if err != nil || len(out) > maxDecompressedSize {
		return nil, ErrDecompressionFailed
	}
	return out, nil
}

// maybeCompress returns the body to encrypt and the Envelope.Compression
// value that describes it. The bundle is left alone when compression is
// disabled, it is under threshold, or zstd does not save enough.
func maybeCompress(bundle []byte, threshold int, disabled bool) ([]byte, string) {
	if disabled || len(bundle) < threshold {
		return bundle, ""
	}
	body, err := compressZstd(bundle)
	if err != nil {
		return bundle, ""
	}
	if saved := len(bundle) - len(body); float64(saved) < minCompressionSavings*float64(len(bundle)) {
		return bundle, ""
	}
	return body, CompressionZstd
}

// decompress reverses maybeCompress.
func decompress(body []byte, compression string) ([]byte, error) {
	switch compression {
	case "":
		return body, nil
	case CompressionZstd:
		return decompressZstd(body)
	}
	return nil, ErrUnsupportedCompression
}
