package streamio

import (
	"bytes"
	"compress/zlib"
	"io"

	"github.com/bamboo-mc/bamboo/internal/frame"
)

// Compressor applies threshold compression to a frame's payload
// (packet ID + data, not yet length-prefixed): payloads at or above the
// threshold are zlib-deflated and prefixed with a VarInt giving the
// *uncompressed* length; smaller payloads carry a VarInt 0 followed by
// the raw bytes. Threshold 0 means "compress everything" and threshold
// -1 means "disabled".
type Compressor struct {
	Threshold int
}

// Compress returns the framed-but-not-length-prefixed body for payload:
// the caller still needs to run the result through frame.EncodeFrame.
func (c Compressor) Compress(payload []byte) ([]byte, error) {
	if c.Threshold < 0 || len(payload) < c.Threshold {
		var buf bytes.Buffer
		if err := frame.WriteVarInt(&buf, 0); err != nil {
			return nil, err
		}
		buf.Write(payload)
		return buf.Bytes(), nil
	}

	var compressed bytes.Buffer
	zw := zlib.NewWriter(&compressed)
	if _, err := zw.Write(payload); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}

	var out bytes.Buffer
	if err := frame.WriteVarInt(&out, int32(len(payload))); err != nil {
		return nil, err
	}
	out.Write(compressed.Bytes())
	return out.Bytes(), nil
}

// Decompress reverses Compress given one frame's decoded body. dataLength
// == 0 means the payload travelled uncompressed.
func Decompress(body []byte) ([]byte, error) {
	r := bytes.NewReader(body)
	dataLength, err := frame.ReadVarInt(r)
	if err != nil {
		return nil, err
	}
	if dataLength == 0 {
		rest := make([]byte, r.Len())
		if _, err := io.ReadFull(r, rest); err != nil {
			return nil, err
		}
		return rest, nil
	}
	if dataLength < 0 || int(dataLength) > frame.MaxFrameSize {
		return nil, frame.ErrOversize
	}
	zr, err := zlib.NewReader(r)
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	out := make([]byte, dataLength)
	if _, err := io.ReadFull(zr, out); err != nil {
		return nil, err
	}
	return out, nil
}
