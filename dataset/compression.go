package dataset

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression selects the stream compression of a CSV file.
type Compression uint8

const (
	// CompressionNone reads and writes plain CSV.
	CompressionNone Compression = iota
	// CompressionZstd uses a zstd frame (better ratio).
	CompressionZstd
	// CompressionLZ4 uses an LZ4 frame (faster).
	CompressionLZ4
	// CompressionAuto detects the format from the magic number on read and
	// writes plain CSV.
	CompressionAuto
)

// String returns the name of the compression.
func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionZstd:
		return "zstd"
	case CompressionLZ4:
		return "lz4"
	case CompressionAuto:
		return "auto"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(c))
	}
}

// ParseCompression parses a compression name as produced by String.
func ParseCompression(s string) (Compression, error) {
	switch strings.ToLower(s) {
	case "", "auto":
		return CompressionAuto, nil
	case "none":
		return CompressionNone, nil
	case "zstd", "zst":
		return CompressionZstd, nil
	case "lz4":
		return CompressionLZ4, nil
	default:
		return 0, fmt.Errorf("dataset: unknown compression %q", s)
	}
}

// CompressionFromName picks the compression implied by a file name suffix.
func CompressionFromName(name string) Compression {
	switch {
	case strings.HasSuffix(name, ".zst"), strings.HasSuffix(name, ".zstd"):
		return CompressionZstd
	case strings.HasSuffix(name, ".lz4"):
		return CompressionLZ4
	default:
		return CompressionNone
	}
}

var (
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
	lz4Magic  = []byte{0x04, 0x22, 0x4d, 0x18}
)

var zstdDecoderPool sync.Pool

func getZstdDecoder(r io.Reader) (*zstd.Decoder, error) {
	if v := zstdDecoderPool.Get(); v != nil {
		dec := v.(*zstd.Decoder)
		if err := dec.Reset(r); err != nil {
			return nil, err
		}
		return dec, nil
	}
	return zstd.NewReader(r, zstd.WithDecoderConcurrency(1))
}

func putZstdDecoder(dec *zstd.Decoder) {
	_ = dec.Reset(nil)
	zstdDecoderPool.Put(dec)
}

// decompress wraps r according to c. The returned release func must be
// called once the reader is drained.
func decompress(r io.Reader, c Compression) (io.Reader, func(), error) {
	noop := func() {}

	if c == CompressionAuto {
		br := bufio.NewReader(r)
		head, _ := br.Peek(4)
		switch {
		case bytes.Equal(head, zstdMagic):
			c = CompressionZstd
		case bytes.Equal(head, lz4Magic):
			c = CompressionLZ4
		default:
			c = CompressionNone
		}
		r = br
	}

	switch c {
	case CompressionNone:
		return r, noop, nil
	case CompressionZstd:
		dec, err := getZstdDecoder(r)
		if err != nil {
			return nil, nil, fmt.Errorf("dataset: zstd: %w", err)
		}
		return dec, func() { putZstdDecoder(dec) }, nil
	case CompressionLZ4:
		return lz4.NewReader(r), noop, nil
	default:
		return nil, nil, fmt.Errorf("dataset: unsupported compression %v", c)
	}
}

// compress wraps w according to c. Closing the returned writer flushes the
// frame but does not close w.
func compress(w io.Writer, c Compression) (io.WriteCloser, error) {
	switch c {
	case CompressionNone, CompressionAuto:
		return nopWriteCloser{w}, nil
	case CompressionZstd:
		enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return nil, fmt.Errorf("dataset: zstd: %w", err)
		}
		return enc, nil
	case CompressionLZ4:
		return lz4.NewWriter(w), nil
	default:
		return nil, fmt.Errorf("dataset: unsupported compression %v", c)
	}
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }
