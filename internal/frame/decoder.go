package frame

import (
	"bufio"
	"io"
)

// Decoder reads length-prefixed frames off a buffered, possibly decrypting
// and/or decompressing reader. It tolerates partial reads: Next blocks
// until a whole frame is available, never discarding bytes it has not
// committed to returning.
type Decoder struct {
	r *bufio.Reader
}

// NewDecoder wraps r (which should already be a *bufio.Reader so VarInt
// bytes can be read one at a time cheaply).
func NewDecoder(r *bufio.Reader) *Decoder {
	return &Decoder{r: r}
}

// Next blocks for one full frame and returns its payload (packet ID +
// data, still possibly compressed; compression is a layer above this
// one). It returns ErrOversize without consuming the oversized frame's
// body, so the caller can close the connection immediately.
func (d *Decoder) Next() ([]byte, error) {
	length, err := ReadVarInt(d.r)
	if err != nil {
		return nil, err
	}
	if length < 0 || int(length) > MaxFrameSize {
		return nil, ErrOversize
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(d.r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// Encoder writes length-prefixed frames to an underlying writer (which may
// itself be an encrypting/compressing decorator).
type Encoder struct {
	w io.Writer
}

func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

func (e *Encoder) Write(payload []byte) error {
	var lenBuf [MaxVarIntBytes]byte
	n := PutVarInt(lenBuf[:], int32(len(payload)))
	if _, err := e.w.Write(lenBuf[:n]); err != nil {
		return err
	}
	_, err := e.w.Write(payload)
	return err
}
