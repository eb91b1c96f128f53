package frame

// MaxFrameSize bounds the accepted length of a frame's payload, after
// decompression, guarding against decompression bombs.
const MaxFrameSize = 2 * 1024 * 1024

// DecodeFrame attempts to decode one length-prefixed frame from the front
// of buf. It never consumes buf itself (buf is read-only); callers use
// consumed to advance their own read cursor once a frame decodes cleanly.
//
// Returns (payload, consumed, nil) on a complete frame; (nil, 0, ErrNeedMore)
// if buf does not yet contain a whole frame; (nil, 0, ErrMalformed) if the
// VarInt length prefix itself is invalid; (nil, 0, ErrOversize) if the
// declared length exceeds MaxFrameSize.
func DecodeFrame(buf []byte) (payload []byte, consumed int, err error) {
	length, n, err := decodeVarIntSlice(buf)
	if err != nil {
		if err == ErrNeedMore {
			return nil, 0, ErrNeedMore
		}
		return nil, 0, ErrMalformed
	}
	if length < 0 || int(length) > MaxFrameSize {
		return nil, 0, ErrOversize
	}
	total := n + int(length)
	if len(buf) < total {
		return nil, 0, ErrNeedMore
	}
	return buf[n:total], total, nil
}

// EncodeFrame prepends a VarInt length prefix to payload.
func EncodeFrame(payload []byte) []byte {
	var lenBuf [MaxVarIntBytes]byte
	n := PutVarInt(lenBuf[:], int32(len(payload)))
	out := make([]byte, n+len(payload))
	copy(out, lenBuf[:n])
	copy(out[n:], payload)
	return out
}

// decodeVarIntSlice reads a VarInt directly out of a byte slice without an
// io.ByteReader wrapper, returning ErrNeedMore if buf is too short to
// contain a complete VarInt and ErrMalformed if more than MaxVarIntBytes
// continuation bytes appear.
func decodeVarIntSlice(buf []byte) (value int32, n int, err error) {
	var result int32
	for i := 0; i < len(buf); i++ {
		if i >= MaxVarIntBytes {
			return 0, 0, ErrMalformed
		}
		b := buf[i]
		result |= int32(b&0x7F) << (7 * uint(i))
		if b&0x80 == 0 {
			return result, i + 1, nil
		}
	}
	return 0, 0, ErrNeedMore
}

// BlockPosition is a block coordinate packed into 64 bits on the wire.
type BlockPosition struct {
	X, Y, Z int32
}

// PackModern packs a BlockPosition using the 1.14+ layout:
// (x & 0x3FFFFFF) << 38 | (z & 0x3FFFFFF) << 12 | (y & 0xFFF).
func (p BlockPosition) PackModern() int64 {
	return (int64(p.X)&0x3FFFFFF)<<38 | (int64(p.Z)&0x3FFFFFF)<<12 | (int64(p.Y) & 0xFFF)
}

// UnpackModern reverses PackModern, sign-extending each field.
func UnpackModern(v int64) BlockPosition {
	x := int32(v >> 38)
	y := int32(v << 52 >> 52)
	z := int32(v << 26 >> 38)
	return BlockPosition{X: x, Y: y, Z: z}
}

// PackLegacy packs a BlockPosition using the 1.8–1.13 layout:
// (x << 38) | (y << 26) | (z & 0x3FFFFFF).
func (p BlockPosition) PackLegacy() int64 {
	return (int64(p.X) << 38) | (int64(p.Y&0xFFF) << 26) | (int64(p.Z) & 0x3FFFFFF)
}

// UnpackLegacy reverses PackLegacy.
func UnpackLegacy(v int64) BlockPosition {
	x := int32(v >> 38)
	y := int32((v >> 26) & 0xFFF)
	if y >= 0x800 {
		y -= 0x1000
	}
	z := int32(v << 38 >> 38)
	return BlockPosition{X: x, Y: y, Z: z}
}
