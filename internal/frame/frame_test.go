package frame

import (
	"bufio"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVarIntRoundTrip(t *testing.T) {
	values := []int32{0, 1, 2, 127, 128, 255, 2097151, 2147483647, -1, -2147483648}
	for _, v := range values {
		var buf bytes.Buffer
		require.NoError(t, WriteVarInt(&buf, v))
		got, err := ReadVarInt(bufio.NewReader(&buf))
		require.NoError(t, err)
		assert.Equal(t, v, got)
	}
}

func TestVarIntTruncationNeverDecodesWrongValue(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteVarInt(&buf, 300000))
	full := buf.Bytes()
	for n := 0; n < len(full); n++ {
		_, err := ReadVarInt(bufio.NewReader(bytes.NewReader(full[:n])))
		require.Error(t, err, "truncated VarInt must never decode successfully")
	}
}

func TestVarIntTooLong(t *testing.T) {
	// six continuation bytes: always invalid for a 32-bit VarInt.
	raw := []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0x01}
	_, err := ReadVarInt(bufio.NewReader(bytes.NewReader(raw)))
	require.ErrorIs(t, err, ErrMalformed)
}

func TestFrameCodecRoundTrip(t *testing.T) {
	payloads := [][]byte{
		{},
		{0x00},
		bytes.Repeat([]byte{0xAB}, 1000),
		bytes.Repeat([]byte{0x01}, MaxFrameSize), // exactly at the bound
	}
	for _, p := range payloads {
		encoded := EncodeFrame(p)
		decoded, consumed, err := DecodeFrame(encoded)
		require.NoError(t, err)
		assert.Equal(t, len(encoded), consumed)
		assert.Equal(t, p, decoded)
	}
}

func TestFrameCodecNeedMore(t *testing.T) {
	full := EncodeFrame([]byte("hello, world"))
	for n := 0; n < len(full); n++ {
		_, _, err := DecodeFrame(full[:n])
		require.ErrorIs(t, err, ErrNeedMore)
	}
}

func TestFrameCodecOversize(t *testing.T) {
	var lenBuf bytes.Buffer
	require.NoError(t, WriteVarInt(&lenBuf, MaxFrameSize+1))
	_, _, err := DecodeFrame(lenBuf.Bytes())
	require.ErrorIs(t, err, ErrOversize)
}

func TestStringRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteString(&buf, "héllo 🎍"))
	got, err := ReadString(&buf)
	require.NoError(t, err)
	assert.Equal(t, "héllo 🎍", got)
}

func TestBlockPositionModernRoundTrip(t *testing.T) {
	cases := []BlockPosition{
		{X: 1, Y: 64, Z: 2},
		{X: -33000000, Y: -2048, Z: 33000000},
		{X: 0, Y: 0, Z: 0},
	}
	for _, c := range cases {
		got := UnpackModern(c.PackModern())
		assert.Equal(t, c, got)
	}
}

func TestBlockPositionLegacyRoundTrip(t *testing.T) {
	cases := []BlockPosition{
		{X: 1, Y: 64, Z: 2},
		{X: -100, Y: 255, Z: 100},
		{X: 0, Y: 0, Z: 0},
	}
	for _, c := range cases {
		got := UnpackLegacy(c.PackLegacy())
		assert.Equal(t, c, got)
	}
}

func TestDecoderEncoderRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)
	require.NoError(t, enc.Write([]byte{0x01, 0x02, 0x03}))
	require.NoError(t, enc.Write([]byte{}))

	dec := NewDecoder(bufio.NewReader(&buf))
	p1, err := dec.Next()
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x02, 0x03}, p1)

	p2, err := dec.Next()
	require.NoError(t, err)
	assert.Equal(t, []byte{}, p2)
}
