// Package frame implements the length-prefixed framing and VarInt/VarLong
// primitives shared by every Minecraft wire dialect, plus the fixed-width
// and length-prefixed primitive encoders codecs build on.
package frame

import (
	"encoding/binary"
	"errors"
	"io"
)

// Sentinel errors returned by the decoders in this package. Callers use
// errors.Is to classify them: Malformed closes the connection,
// NeedMore means "come back with more bytes", Oversize is a distinct
// flavor of Malformed used for the decompression-bomb bound.
var (
	ErrMalformed = errors.New("frame: malformed input")
	ErrNeedMore  = errors.New("frame: need more bytes")
	ErrOversize  = errors.New("frame: frame exceeds maximum size")
)

const (
	// MaxVarIntBytes bounds a 32-bit VarInt's wire encoding.
	MaxVarIntBytes = 5
	// MaxVarLongBytes bounds a 64-bit VarLong's wire encoding.
	MaxVarLongBytes = 10
	// MaxStringLen is the maximum number of UTF-8 bytes a protocol string
	// may declare (32767 UTF-16 code units at 4 bytes/worst-case, rounded
	// the way vanilla does it).
	MaxStringLen = 32767 * 4
)

// ReadVarInt reads a 32-bit VarInt from r, one byte at a time. It never
// reads past the terminating byte, so it is safe to call repeatedly on a
// streaming reader without over-consuming.
func ReadVarInt(r io.ByteReader) (int32, error) {
	var result int32
	var numRead uint
	for {
		b, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		result |= int32(b&0x7F) << (7 * numRead)
		numRead++
		if numRead > MaxVarIntBytes {
			return 0, ErrMalformed
		}
		if b&0x80 == 0 {
			break
		}
	}
	return result, nil
}

// WriteVarInt writes a 32-bit VarInt to w.
func WriteVarInt(w io.Writer, value int32) error {
	var buf [MaxVarIntBytes]byte
	n := PutVarInt(buf[:], value)
	_, err := w.Write(buf[:n])
	return err
}

// PutVarInt encodes value into buf (which must be at least MaxVarIntBytes
// long) and returns the number of bytes written. Used on hot paths that
// want to avoid an io.Writer indirection.
func PutVarInt(buf []byte, value int32) int {
	v := uint32(value)
	i := 0
	for {
		b := byte(v & 0x7F)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		buf[i] = b
		i++
		if v == 0 {
			return i
		}
	}
}

// VarIntSize returns the number of bytes value would encode to, without
// allocating.
func VarIntSize(value int32) int {
	v := uint32(value)
	n := 1
	for v >= 0x80 {
		v >>= 7
		n++
	}
	return n
}

// ReadVarLong reads a 64-bit VarInt ("VarLong" in the Minecraft wiki's
// terminology) from r.
func ReadVarLong(r io.ByteReader) (int64, error) {
	var result int64
	var numRead uint
	for {
		b, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		result |= int64(b&0x7F) << (7 * numRead)
		numRead++
		if numRead > MaxVarLongBytes {
			return 0, ErrMalformed
		}
		if b&0x80 == 0 {
			break
		}
	}
	return result, nil
}

// WriteVarLong writes a 64-bit VarInt to w.
func WriteVarLong(w io.Writer, value int64) error {
	v := uint64(value)
	for {
		b := byte(v & 0x7F)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		if _, err := w.Write([]byte{b}); err != nil {
			return err
		}
		if v == 0 {
			return nil
		}
	}
}

// ReadString reads a VarInt-length-prefixed UTF-8 string.
func ReadString(r io.Reader) (string, error) {
	br, ok := r.(io.ByteReader)
	if !ok {
		br = &byteReader{r: r}
	}
	length, err := ReadVarInt(br)
	if err != nil {
		return "", err
	}
	if length < 0 || int(length) > MaxStringLen {
		return "", ErrMalformed
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

// WriteString writes s as a VarInt-length-prefixed UTF-8 string.
func WriteString(w io.Writer, s string) error {
	if len(s) > MaxStringLen {
		return ErrMalformed
	}
	if err := WriteVarInt(w, int32(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

// ReadByteArray reads a VarInt-length-prefixed byte slice (used for NBT
// blobs and other opaque payloads).
func ReadByteArray(r io.Reader) ([]byte, error) {
	br, ok := r.(io.ByteReader)
	if !ok {
		br = &byteReader{r: r}
	}
	length, err := ReadVarInt(br)
	if err != nil {
		return nil, err
	}
	if length < 0 {
		return nil, ErrMalformed
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// WriteByteArray writes b as a VarInt-length-prefixed byte slice.
func WriteByteArray(w io.Writer, b []byte) error {
	if err := WriteVarInt(w, int32(len(b))); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

// ReadUUID reads a UUID as two big-endian 64-bit halves (16 bytes total).
func ReadUUID(r io.Reader) ([16]byte, error) {
	var buf [16]byte
	_, err := io.ReadFull(r, buf[:])
	return buf, err
}

// WriteUUID writes a 16-byte UUID.
func WriteUUID(w io.Writer, id [16]byte) error {
	_, err := w.Write(id[:])
	return err
}

// ReadBool reads a single-byte boolean.
func ReadBool(r io.ByteReader) (bool, error) {
	b, err := r.ReadByte()
	return b != 0, err
}

// WriteBool writes a single-byte boolean.
func WriteBool(w io.Writer, v bool) error {
	var b byte
	if v {
		b = 1
	}
	_, err := w.Write([]byte{b})
	return err
}

// ReadInt32 / WriteInt32 / ReadInt64 / WriteInt64 / ReadFloat32 / WriteFloat32
// / ReadFloat64 / WriteFloat64 read and write fixed-width big-endian
// primitives.
func ReadInt32(r io.Reader) (int32, error) {
	var v int32
	err := binary.Read(r, binary.BigEndian, &v)
	return v, err
}

func WriteInt32(w io.Writer, v int32) error {
	return binary.Write(w, binary.BigEndian, v)
}

func ReadInt64(r io.Reader) (int64, error) {
	var v int64
	err := binary.Read(r, binary.BigEndian, &v)
	return v, err
}

func WriteInt64(w io.Writer, v int64) error {
	return binary.Write(w, binary.BigEndian, v)
}

func ReadFloat32(r io.Reader) (float32, error) {
	var v float32
	err := binary.Read(r, binary.BigEndian, &v)
	return v, err
}

func WriteFloat32(w io.Writer, v float32) error {
	return binary.Write(w, binary.BigEndian, v)
}

func ReadFloat64(r io.Reader) (float64, error) {
	var v float64
	err := binary.Read(r, binary.BigEndian, &v)
	return v, err
}

func WriteFloat64(w io.Writer, v float64) error {
	return binary.Write(w, binary.BigEndian, v)
}

// ReadJSON reads a length-prefixed UTF-8 JSON blob. It is just ReadString
// under a name that documents intent at call sites (status responses,
// chat components, disconnect reasons).
func ReadJSON(r io.Reader) (string, error) { return ReadString(r) }

// WriteJSON writes s as a length-prefixed JSON blob.
func WriteJSON(w io.Writer, s string) error { return WriteString(w, s) }

// byteReader adapts an io.Reader with no ReadByte method to io.ByteReader.
type byteReader struct {
	r   io.Reader
	buf [1]byte
}

func (b *byteReader) ReadByte() (byte, error) {
	_, err := io.ReadFull(b.r, b.buf[:])
	return b.buf[0], err
}
