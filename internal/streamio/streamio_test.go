package streamio

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCFB8RoundTrip(t *testing.T) {
	key := bytes.Repeat([]byte{0x42}, 16)
	messages := [][]byte{
		[]byte("hello"),
		[]byte(""),
		bytes.Repeat([]byte{0x01}, 5000),
		[]byte("a second message in the same stream"),
	}

	enc, err := NewCFB8Encrypter(key)
	require.NoError(t, err)
	dec, err := NewCFB8Decrypter(key)
	require.NoError(t, err)

	for _, m := range messages {
		ct := make([]byte, len(m))
		enc.XORKeyStream(ct, m)
		pt := make([]byte, len(m))
		dec.XORKeyStream(pt, ct)
		assert.Equal(t, m, pt)
	}
}

func TestCFB8ByteInjectionCorruptsRemainder(t *testing.T) {
	key := bytes.Repeat([]byte{0x99}, 16)
	plaintext := bytes.Repeat([]byte{0xAA}, 32)

	enc, err := NewCFB8Encrypter(key)
	require.NoError(t, err)
	ct := make([]byte, len(plaintext))
	enc.XORKeyStream(ct, plaintext)

	corrupted := make([]byte, len(ct))
	copy(corrupted, ct)
	corrupted[10] ^= 0xFF

	dec, err := NewCFB8Decrypter(key)
	require.NoError(t, err)
	pt := make([]byte, len(corrupted))
	dec.XORKeyStream(pt, corrupted)

	// Bytes before the injection point must still decode correctly...
	assert.Equal(t, plaintext[:10], pt[:10])
	// ...but the bytes from the injection point on must not all decode
	// correctly: the corrupted byte itself decodes wrong, and CFB8's
	// feedback register keeps using the corrupted ciphertext byte as input
	// for the next 16 steps.
	diffCount := 0
	for i := 10; i < len(plaintext); i++ {
		if pt[i] != plaintext[i] {
			diffCount++
		}
	}
	assert.Greater(t, diffCount, 0)
}

func TestCompressionBelowThresholdIsRaw(t *testing.T) {
	c := Compressor{Threshold: 256}
	payload := []byte("short")
	body, err := c.Compress(payload)
	require.NoError(t, err)
	assert.Equal(t, byte(0), body[0], "leading VarInt must be 0 for uncompressed frames")

	out, err := Decompress(body)
	require.NoError(t, err)
	assert.Equal(t, payload, out)
}

func TestCompressionAboveThresholdCompresses(t *testing.T) {
	c := Compressor{Threshold: 16}
	payload := bytes.Repeat([]byte{0x07}, 1000)
	body, err := c.Compress(payload)
	require.NoError(t, err)
	assert.NotEqual(t, byte(0), body[0])

	out, err := Decompress(body)
	require.NoError(t, err)
	assert.Equal(t, payload, out)
}

func TestCompressionThresholdZeroCompressesEverything(t *testing.T) {
	c := Compressor{Threshold: 0}
	body, err := c.Compress([]byte{0x01})
	require.NoError(t, err)
	out, err := Decompress(body)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01}, out)
}

func TestCompressionThresholdNegativeDisables(t *testing.T) {
	c := Compressor{Threshold: -1}
	payload := bytes.Repeat([]byte{0x03}, 10000)
	body, err := c.Compress(payload)
	require.NoError(t, err)
	assert.Equal(t, byte(0), body[0])
}
