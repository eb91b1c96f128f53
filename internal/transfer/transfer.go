// Package transfer implements the internal transfer protocol: typed,
// self-delimited records exchanged between the proxy and the
// server over the yamux-multiplexed link. A yamux stream per client
// connection stands in for a record-level connection-ID header: the
// stream's own ID addresses the connection, so records carry no
// separate ID field.
//
// Each record is `varint length, varint kind, fields…`. Fields are
// written with a 1-byte type tag ahead of their payload so a generic
// inspector could walk a record without knowing its kind; a consumer
// that only reads the fields it expects tolerates trailing fields an
// older schema doesn't know about, which is the forward-compatibility
// rule the link depends on. An unrecognized Kind is not forward-compatible:
// the reader has no schema to fall back on, so the caller closes the
// link.
package transfer

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/bamboo-mc/bamboo/internal/frame"
	"github.com/google/uuid"
)

// Kind enumerates every record kind carried over the link: the control
// messages plus one entry per canonical packet kind that crosses
// the proxy↔server boundary in Play state.
type Kind int32

const (
	KindNewConnection Kind = iota
	KindRemoveConnection
	KindHeartbeat
	KindJoinGame
	KindKeepAliveClientbound
	KindKeepAliveServerbound
	KindPlayerPositionLook
	KindBlockChange
	KindChunkData
	KindTimeUpdate
	KindDisconnect
	KindPluginMessage
	KindPauseConnection
	KindResumeConnection
	KindEntityEquipment
	KindEntityMetadata
)

func (k Kind) String() string {
	switch k {
	case KindNewConnection:
		return "NewConnection"
	case KindRemoveConnection:
		return "RemoveConnection"
	case KindHeartbeat:
		return "Heartbeat"
	case KindJoinGame:
		return "JoinGame"
	case KindKeepAliveClientbound:
		return "KeepAliveClientbound"
	case KindKeepAliveServerbound:
		return "KeepAliveServerbound"
	case KindPlayerPositionLook:
		return "PlayerPositionLook"
	case KindBlockChange:
		return "BlockChange"
	case KindChunkData:
		return "ChunkData"
	case KindTimeUpdate:
		return "TimeUpdate"
	case KindDisconnect:
		return "Disconnect"
	case KindPluginMessage:
		return "PluginMessage"
	case KindPauseConnection:
		return "PauseConnection"
	case KindResumeConnection:
		return "ResumeConnection"
	case KindEntityEquipment:
		return "EntityEquipment"
	case KindEntityMetadata:
		return "EntityMetadata"
	default:
		return fmt.Sprintf("Kind(%d)", int32(k))
	}
}

// ErrUnknownKind closes the link: unlike an unknown field, an
// unknown record kind has no schema a reader can fall back on.
var ErrUnknownKind = errors.New("transfer: unknown record kind")

// Record is one decoded message off the link: a kind and its still-encoded
// field payload, ready for a kind-specific Decode* function to parse.
type Record struct {
	Kind    Kind
	Payload []byte
}

// WriteRecord frames kind and payload as `varint length, varint kind,
// payload` and writes the whole thing to w in one call.
func WriteRecord(w io.Writer, kind Kind, payload []byte) error {
	var kindBuf bytes.Buffer
	if err := frame.WriteVarInt(&kindBuf, int32(kind)); err != nil {
		return err
	}
	length := kindBuf.Len() + len(payload)

	var out bytes.Buffer
	if err := frame.WriteVarInt(&out, int32(length)); err != nil {
		return err
	}
	out.Write(kindBuf.Bytes())
	out.Write(payload)
	_, err := w.Write(out.Bytes())
	return err
}

// ReadRecord reads one record from r, which must be a *bufio.Reader or
// similar so ReadVarInt's byte-at-a-time reads don't thrash the
// underlying yamux stream.
func ReadRecord(r ByteReader) (Record, error) {
	length, err := frame.ReadVarInt(r)
	if err != nil {
		return Record{}, err
	}
	if length < 0 {
		return Record{}, frame.ErrMalformed
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(r, buf); err != nil {
		return Record{}, err
	}

	br := bytes.NewReader(buf)
	kind, err := frame.ReadVarInt(br)
	if err != nil {
		return Record{}, frame.ErrMalformed
	}
	payload := make([]byte, br.Len())
	if _, err := io.ReadFull(br, payload); err != nil {
		return Record{}, frame.ErrMalformed
	}
	return Record{Kind: Kind(kind), Payload: payload}, nil
}

// ByteReader is the minimal interface ReadRecord needs: io.Reader plus
// io.ByteReader, satisfied by *bufio.Reader.
type ByteReader interface {
	io.Reader
	io.ByteReader
}

// Field type tags. These self-describe a record's payload for generic
// tooling; decoders that know a record's Kind read fields in the fixed
// order the encoder wrote them and never need to branch on the tag, but
// the tag is still validated as a cheap corruption check.
type fieldTag byte

const (
	tagBool fieldTag = iota
	tagVarInt
	tagI32
	tagI64
	tagF32
	tagF64
	tagString
	tagBytes
	tagUUID
	tagArray
)

// Writer builds one record's field payload.
type Writer struct {
	buf bytes.Buffer
}

func NewWriter() *Writer { return &Writer{} }

func (w *Writer) Payload() []byte { return w.buf.Bytes() }

func (w *Writer) Bool(v bool) *Writer {
	w.buf.WriteByte(byte(tagBool))
	_ = frame.WriteBool(&w.buf, v)
	return w
}

func (w *Writer) VarInt(v int32) *Writer {
	w.buf.WriteByte(byte(tagVarInt))
	_ = frame.WriteVarInt(&w.buf, v)
	return w
}

func (w *Writer) I32(v int32) *Writer {
	w.buf.WriteByte(byte(tagI32))
	_ = frame.WriteInt32(&w.buf, v)
	return w
}

func (w *Writer) I64(v int64) *Writer {
	w.buf.WriteByte(byte(tagI64))
	_ = frame.WriteInt64(&w.buf, v)
	return w
}

func (w *Writer) F32(v float32) *Writer {
	w.buf.WriteByte(byte(tagF32))
	_ = frame.WriteFloat32(&w.buf, v)
	return w
}

func (w *Writer) F64(v float64) *Writer {
	w.buf.WriteByte(byte(tagF64))
	_ = frame.WriteFloat64(&w.buf, v)
	return w
}

func (w *Writer) String(s string) *Writer {
	w.buf.WriteByte(byte(tagString))
	_ = frame.WriteString(&w.buf, s)
	return w
}

func (w *Writer) ByteSlice(b []byte) *Writer {
	w.buf.WriteByte(byte(tagBytes))
	_ = frame.WriteByteArray(&w.buf, b)
	return w
}

func (w *Writer) UUID(id uuid.UUID) *Writer {
	w.buf.WriteByte(byte(tagUUID))
	w.buf.Write(id[:])
	return w
}

// ArrayLen marks the start of a repeated group of n elements; the caller
// writes each element's fields immediately afterward using the same
// Writer.
func (w *Writer) ArrayLen(n int) *Writer {
	w.buf.WriteByte(byte(tagArray))
	_ = frame.WriteVarInt(&w.buf, int32(n))
	return w
}

// Reader walks a record's field payload in the order Writer wrote it.
type Reader struct {
	r *bytes.Reader
}

func NewReader(payload []byte) *Reader {
	return &Reader{r: bytes.NewReader(payload)}
}

func (r *Reader) expect(want fieldTag) error {
	b, err := r.r.ReadByte()
	if err != nil {
		return err
	}
	if fieldTag(b) != want {
		return fmt.Errorf("transfer: expected field tag %d, got %d", want, b)
	}
	return nil
}

func (r *Reader) Bool() (bool, error) {
	if err := r.expect(tagBool); err != nil {
		return false, err
	}
	return frame.ReadBool(r.r)
}

func (r *Reader) VarInt() (int32, error) {
	if err := r.expect(tagVarInt); err != nil {
		return 0, err
	}
	return frame.ReadVarInt(r.r)
}

func (r *Reader) I32() (int32, error) {
	if err := r.expect(tagI32); err != nil {
		return 0, err
	}
	return frame.ReadInt32(r.r)
}

func (r *Reader) I64() (int64, error) {
	if err := r.expect(tagI64); err != nil {
		return 0, err
	}
	return frame.ReadInt64(r.r)
}

func (r *Reader) F32() (float32, error) {
	if err := r.expect(tagF32); err != nil {
		return 0, err
	}
	return frame.ReadFloat32(r.r)
}

func (r *Reader) F64() (float64, error) {
	if err := r.expect(tagF64); err != nil {
		return 0, err
	}
	return frame.ReadFloat64(r.r)
}

func (r *Reader) String() (string, error) {
	if err := r.expect(tagString); err != nil {
		return "", err
	}
	return frame.ReadString(r.r)
}

func (r *Reader) ByteSlice() ([]byte, error) {
	if err := r.expect(tagBytes); err != nil {
		return nil, err
	}
	return frame.ReadByteArray(r.r)
}

func (r *Reader) UUID() (uuid.UUID, error) {
	if err := r.expect(tagUUID); err != nil {
		return uuid.Nil, err
	}
	var buf [16]byte
	if _, err := io.ReadFull(r.r, buf[:]); err != nil {
		return uuid.Nil, err
	}
	return uuid.FromBytes(buf[:])
}

func (r *Reader) ArrayLen() (int, error) {
	if err := r.expect(tagArray); err != nil {
		return 0, err
	}
	n, err := frame.ReadVarInt(r.r)
	return int(n), err
}

// Remaining reports whether the payload has unconsumed bytes left, a
// trailing-fields situation a newer schema produced that this reader's
// fixed read sequence simply stopped short of, per the forward-
// compatibility rule in the package doc.
func (r *Reader) Remaining() int { return r.r.Len() }
