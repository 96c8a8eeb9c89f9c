package entry

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/klauspost/compress/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/pkg/errors"
)

// Compression names the algorithm applied to encoded records.
type Compression string

const (
	CompressionNone   Compression = "none"
	CompressionSnappy Compression = "snappy"
	CompressionZstd   Compression = "zstd"
	CompressionLZ4    Compression = "lz4"
)

var (
	// ErrUnknownCompression is returned for an unsupported compression name or tag
	ErrUnknownCompression = errors.New("unknown compression")

	// ErrInvalidCompressedData is returned when a payload cannot be decompressed
	ErrInvalidCompressedData = errors.New("invalid compressed data")
)

// ParseCompression accepts a configuration string. An empty string means none.
func ParseCompression(s string) (Compression, error) {
	switch c := Compression(strings.ToLower(strings.TrimSpace(s))); c {
	case "":
		return CompressionNone, nil
	case CompressionNone, CompressionSnappy, CompressionZstd, CompressionLZ4:
		return c, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownCompression, s)
	}
}

// tag is the single byte that identifies the compression of a record frame.
func (c Compression) tag() (byte, error) {
	switch c {
	case CompressionNone, "":
		return 0, nil
	case CompressionSnappy:
		return 1, nil
	case CompressionZstd:
		return 2, nil
	case CompressionLZ4:
		return 3, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownCompression, string(c))
	}
}

func compressionFromTag(t byte) (Compression, error) {
	switch t {
	case 0:
		return CompressionNone, nil
	case 1:
		return CompressionSnappy, nil
	case 2:
		return CompressionZstd, nil
	case 3:
		return CompressionLZ4, nil
	default:
		return "", fmt.Errorf("%w: tag %d", ErrUnknownCompression, t)
	}
}

// compressor holds the reusable zstd codecs. Snappy and lz4 are stateless per call.
type compressor struct {
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder

	mu sync.Mutex
}

func newCompressor() (*compressor, error) {
	zstdEncoder, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create zstd encoder")
	}

	zstdDecoder, err := zstd.NewReader(nil)
	if err != nil {
		zstdEncoder.Close()
		return nil, errors.Wrap(err, "failed to create zstd decoder")
	}

	return &compressor{
		zstdEncoder: zstdEncoder,
		zstdDecoder: zstdDecoder,
	}, nil
}

func (c *compressor) compress(data []byte, alg Compression) ([]byte, error) {
	switch alg {
	case CompressionNone, "":
		return data, nil

	case CompressionSnappy:
		return snappy.Encode(nil, data), nil

	case CompressionZstd:
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.zstdEncoder.EncodeAll(data, nil), nil

	case CompressionLZ4:
		var buf bytes.Buffer
		w := lz4.NewWriter(&buf)
		if _, err := w.Write(data); err != nil {
			return nil, errors.Wrap(err, "lz4 write")
		}
		if err := w.Close(); err != nil {
			return nil, errors.Wrap(err, "lz4 close")
		}
		return buf.Bytes(), nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCompression, string(alg))
	}
}

func (c *compressor) decompress(data []byte, alg Compression) ([]byte, error) {
	switch alg {
	case CompressionNone:
		return data, nil

	case CompressionSnappy:
		out, err := snappy.Decode(nil, data)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidCompressedData, err)
		}
		return out, nil

	case CompressionZstd:
		c.mu.Lock()
		defer c.mu.Unlock()
		out, err := c.zstdDecoder.DecodeAll(data, nil)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidCompressedData, err)
		}
		return out, nil

	case CompressionLZ4:
		out, err := io.ReadAll(lz4.NewReader(bytes.NewReader(data)))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidCompressedData, err)
		}
		return out, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCompression, string(alg))
	}
}

func (c *compressor) close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.zstdEncoder != nil {
		c.zstdEncoder.Close()
		c.zstdEncoder = nil
	}
	if c.zstdDecoder != nil {
		c.zstdDecoder.Close()
		c.zstdDecoder = nil
	}
}
