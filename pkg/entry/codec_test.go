package entry

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleEntry() *Entry {
	e := New(NewID(), "uid=bob,ou=people,dc=example")
	e.SetString("objectclass", "top", "person", "inetOrgPerson")
	e.SetString("uid", "bob")
	e.SetString("description", strings.Repeat("repetitive text ", 40))
	e.Add("userpassword", []byte{0x00, 0xff, 0x10})
	return e
}

func TestCodecEncodeDecode(t *testing.T) {
	for _, alg := range []Compression{CompressionNone, CompressionSnappy, CompressionZstd, CompressionLZ4} {
		t.Run(string(alg), func(t *testing.T) {
			codec, err := NewCodec(alg, true)
			require.NoError(t, err)
			defer codec.Close()

			original := sampleEntry()
			frame, err := codec.Encode(original)
			require.NoError(t, err)

			decoded, err := codec.Decode(frame)
			require.NoError(t, err)
			assert.Equal(t, original.ID, decoded.ID)
			assert.Equal(t, original.DN, decoded.DN)
			assert.Equal(t, original.Attributes, decoded.Attributes)
		})
	}
}

func TestCodecDecodesOtherCompression(t *testing.T) {
	writer, err := NewCodec(CompressionZstd, true)
	require.NoError(t, err)
	defer writer.Close()

	reader, err := NewCodec(CompressionNone, true)
	require.NoError(t, err)
	defer reader.Close()

	frame, err := writer.Encode(sampleEntry())
	require.NoError(t, err)

	decoded, err := reader.Decode(frame)
	require.NoError(t, err)
	assert.Equal(t, "bob", decoded.GetString("uid"))
}

func TestCodecChecksum(t *testing.T) {
	codec, err := NewCodec(CompressionNone, true)
	require.NoError(t, err)
	defer codec.Close()

	frame, err := codec.Encode(sampleEntry())
	require.NoError(t, err)

	frame[5] ^= 0xff
	_, err = codec.Decode(frame)
	assert.ErrorIs(t, err, ErrChecksumMismatch)

	_, err = codec.Decode([]byte{0, 1})
	assert.ErrorIs(t, err, ErrCorruptRecord)
}

func TestCodecUnknownCompression(t *testing.T) {
	_, err := NewCodec("brotli", false)
	assert.ErrorIs(t, err, ErrUnknownCompression)

	c, err := ParseCompression("ZSTD")
	require.NoError(t, err)
	assert.Equal(t, CompressionZstd, c)

	c, err = ParseCompression("")
	require.NoError(t, err)
	assert.Equal(t, CompressionNone, c)
}
