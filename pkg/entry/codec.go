package entry

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
	"github.com/pkg/errors"
	"google.golang.org/protobuf/encoding/protowire"
)

const (
	fieldID        protowire.Number = 1
	fieldDN        protowire.Number = 2
	fieldAttribute protowire.Number = 3

	fieldAttrName  protowire.Number = 1
	fieldAttrValue protowire.Number = 2

	frameHeaderSize  = 1
	frameTrailerSize = 8
)

var (
	// ErrCorruptRecord is returned when a record frame or payload is malformed
	ErrCorruptRecord = errors.New("corrupt record")

	// ErrChecksumMismatch is returned when a record frame fails verification
	ErrChecksumMismatch = errors.New("record checksum mismatch")
)

// Codec converts entries to and from master table records.
//
// A record frame is one compression tag byte, the (possibly compressed)
// protobuf wire encoding of the entry, and a little-endian xxhash64 of
// everything before it.
type Codec struct {
	compression Compression
	verify      bool
	c           *compressor
}

// NewCodec creates a codec that compresses new records with the given algorithm.
// Decoding accepts records written with any supported algorithm.
func NewCodec(compression Compression, verifyChecksums bool) (*Codec, error) {
	if _, err := compression.tag(); err != nil {
		return nil, err
	}

	c, err := newCompressor()
	if err != nil {
		return nil, err
	}

	return &Codec{
		compression: compression,
		verify:      verifyChecksums,
		c:           c,
	}, nil
}

// Compression returns the algorithm used for new records.
func (c *Codec) Compression() Compression {
	return c.compression
}

// Encode serializes an entry into a record frame.
func (c *Codec) Encode(e *Entry) ([]byte, error) {
	payload := marshalEntry(e)

	compressed, err := c.c.compress(payload, c.compression)
	if err != nil {
		return nil, errors.Wrapf(err, "encode entry %s", e.ID)
	}

	tag, _ := c.compression.tag()
	frame := make([]byte, 0, frameHeaderSize+len(compressed)+frameTrailerSize)
	frame = append(frame, tag)
	frame = append(frame, compressed...)
	frame = binary.LittleEndian.AppendUint64(frame, xxhash.Sum64(frame))
	return frame, nil
}

// Decode parses a record frame produced by Encode.
func (c *Codec) Decode(frame []byte) (*Entry, error) {
	if len(frame) < frameHeaderSize+frameTrailerSize {
		return nil, errors.Wrapf(ErrCorruptRecord, "frame too short (%d bytes)", len(frame))
	}

	body := frame[:len(frame)-frameTrailerSize]
	if c.verify {
		want := binary.LittleEndian.Uint64(frame[len(frame)-frameTrailerSize:])
		if got := xxhash.Sum64(body); got != want {
			return nil, errors.Wrapf(ErrChecksumMismatch, "expected %016x, got %016x", want, got)
		}
	}

	alg, err := compressionFromTag(body[0])
	if err != nil {
		return nil, errors.Wrap(ErrCorruptRecord, err.Error())
	}

	payload, err := c.c.decompress(body[frameHeaderSize:], alg)
	if err != nil {
		return nil, errors.Wrap(err, "decode record")
	}

	return unmarshalEntry(payload)
}

// Close releases the compression codecs.
func (c *Codec) Close() error {
	c.c.close()
	return nil
}

func marshalEntry(e *Entry) []byte {
	var b []byte
	b = protowire.AppendTag(b, fieldID, protowire.BytesType)
	b = protowire.AppendBytes(b, e.ID[:])
	b = protowire.AppendTag(b, fieldDN, protowire.BytesType)
	b = protowire.AppendString(b, e.DN)

	// Sorted names keep the encoding deterministic
	for _, name := range e.AttributeNames() {
		var attr []byte
		attr = protowire.AppendTag(attr, fieldAttrName, protowire.BytesType)
		attr = protowire.AppendString(attr, name)
		for _, v := range e.Attributes[name] {
			attr = protowire.AppendTag(attr, fieldAttrValue, protowire.BytesType)
			attr = protowire.AppendBytes(attr, v)
		}
		b = protowire.AppendTag(b, fieldAttribute, protowire.BytesType)
		b = protowire.AppendBytes(b, attr)
	}
	return b
}

func unmarshalEntry(b []byte) (*Entry, error) {
	e := &Entry{Attributes: make(map[string][][]byte)}

	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, errors.Wrap(ErrCorruptRecord, protowire.ParseError(n).Error())
		}
		b = b[n:]

		if typ != protowire.BytesType {
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, errors.Wrap(ErrCorruptRecord, protowire.ParseError(n).Error())
			}
			b = b[n:]
			continue
		}

		v, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return nil, errors.Wrap(ErrCorruptRecord, protowire.ParseError(n).Error())
		}
		b = b[n:]

		switch num {
		case fieldID:
			id, err := IDFromBytes(v)
			if err != nil {
				return nil, errors.Wrap(ErrCorruptRecord, err.Error())
			}
			e.ID = id
		case fieldDN:
			e.DN = string(v)
		case fieldAttribute:
			name, values, err := unmarshalAttribute(v)
			if err != nil {
				return nil, err
			}
			e.Attributes[name] = append(e.Attributes[name], values...)
		}
	}

	return e, nil
}

func unmarshalAttribute(b []byte) (string, [][]byte, error) {
	var (
		name   string
		values [][]byte
	)

	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 || typ != protowire.BytesType {
			return "", nil, errors.Wrap(ErrCorruptRecord, "malformed attribute")
		}
		b = b[n:]

		v, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return "", nil, errors.Wrap(ErrCorruptRecord, protowire.ParseError(n).Error())
		}
		b = b[n:]

		switch num {
		case fieldAttrName:
			name = string(v)
		case fieldAttrValue:
			values = append(values, append([]byte(nil), v...))
		}
	}

	if name == "" {
		return "", nil, errors.Wrap(ErrCorruptRecord, "attribute without name")
	}
	return name, values, nil
}
