// Package v47 implements the protocol-47 (1.8.9) dialect of codec.Codec:
// the oldest wire format this codebase models, predating flattened block
// states, the 1.14+ position packing, and the 1.16+ chunk section layout.
package v47

import (
	"bytes"
	"fmt"

	"github.com/bamboo-mc/bamboo/internal/canonical"
	"github.com/bamboo-mc/bamboo/internal/chunk"
	"github.com/bamboo-mc/bamboo/internal/codec"
	"github.com/bamboo-mc/bamboo/internal/frame"
	"github.com/bamboo-mc/bamboo/internal/registry"
	"github.com/bamboo-mc/bamboo/internal/version"
)

// Codec is the protocol-47 dialect. The zero value is not usable; build
// one with New.
type Codec struct {
	reg *registry.Registry
}

// New returns a protocol-47 codec backed by reg.
func New(reg *registry.Registry) *Codec {
	return &Codec{reg: reg}
}

var _ codec.Codec = (*Codec)(nil)

func (c *Codec) DecodeServerbound(state canonical.State, wireID int32, body []byte) (canonical.Packet, error) {
	kind, ok := c.reg.KindFor(version.V47, state, wireID, canonical.Serverbound)
	if !ok {
		return nil, codec.ErrUnknownPacket
	}

	switch kind {
	case canonical.KindHandshake:
		p, err := codec.DecodeHandshake(body)
		return p, err
	case canonical.KindStatusRequest:
		p, err := codec.DecodeStatusRequest(body)
		return p, err
	case canonical.KindPing:
		p, err := codec.DecodePing(body)
		return p, err
	case canonical.KindLoginStart:
		p, err := codec.DecodeLoginStart(body)
		return p, err
	case canonical.KindEncryptionResponse:
		p, err := codec.DecodeEncryptionResponse(body)
		return p, err
	case canonical.KindKeepAliveServerbound:
		return decodeKeepAliveServerbound(body)
	case canonical.KindPluginMessage:
		p, err := codec.DecodePluginMessage(body)
		return p, err
	default:
		return nil, codec.ErrUnknownPacket
	}
}

func (c *Codec) EncodeClientbound(state canonical.State, pkt canonical.Packet) (int32, []byte, error) {
	wireID, ok := c.reg.PacketIDFor(version.V47, state, pkt.Kind(), canonical.Clientbound)
	if !ok {
		return 0, nil, fmt.Errorf("v47: no wire id for kind %v in state %v", pkt.Kind(), state)
	}

	var (
		body []byte
		err  error
	)
	switch p := pkt.(type) {
	case canonical.StatusResponse:
		body, err = codec.EncodeStatusResponse(p)
	case canonical.Pong:
		body, err = codec.EncodePong(p)
	case canonical.EncryptionRequest:
		body, err = codec.EncodeEncryptionRequest(p)
	case canonical.LoginSuccess:
		body, err = encodeLoginSuccess(p)
	case canonical.SetCompression:
		body, err = codec.EncodeSetCompression(p)
	case canonical.Disconnect:
		body, err = codec.EncodeDisconnect(p)
	case canonical.JoinGame:
		body, err = encodeJoinGame(p)
	case canonical.KeepAliveClientbound:
		body, err = encodeKeepAliveClientbound(p)
	case canonical.PlayerPositionLook:
		body, err = encodePlayerPositionLook(p)
	case canonical.BlockChange:
		body, err = c.encodeBlockChange(p)
	case canonical.ChunkData:
		body, err = c.encodeChunkData(p)
	case canonical.TimeUpdate:
		body, err = codec.EncodeTimeUpdate(p)
	case canonical.PluginMessage:
		body, err = codec.EncodePluginMessage(p)
	case canonical.EntityEquipment:
		body, err = c.encodeEntityEquipment(p)
	case canonical.EntityMetadata:
		body, err = c.encodeEntityMetadata(p)
	default:
		return 0, nil, fmt.Errorf("v47: unhandled canonical kind %v", pkt.Kind())
	}
	if err != nil {
		return 0, nil, err
	}
	return wireID, body, nil
}

// 1.8 carried the keepalive nonce as a plain VarInt; later versions widened
// it to a Long (see v759). The canonical field is always an int64, so the
// low 32 bits are what actually round-trip here.
func decodeKeepAliveServerbound(body []byte) (canonical.KeepAliveServerbound, error) {
	r := bytes.NewReader(body)
	v, err := frame.ReadVarInt(r)
	if err != nil {
		return canonical.KeepAliveServerbound{}, frame.ErrMalformed
	}
	return canonical.KeepAliveServerbound{Nonce: int64(v)}, nil
}

func encodeKeepAliveClientbound(p canonical.KeepAliveClientbound) ([]byte, error) {
	var buf bytes.Buffer
	if err := frame.WriteVarInt(&buf, int32(p.Nonce)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// 1.8's LoginSuccess sent the UUID as a hyphenated string, not 16 raw
// bytes; the binary UUID field arrived in 1.16.
func encodeLoginSuccess(p canonical.LoginSuccess) ([]byte, error) {
	var buf bytes.Buffer
	if err := frame.WriteString(&buf, p.UUID.String()); err != nil {
		return nil, err
	}
	if err := frame.WriteString(&buf, p.Username); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// 1.8's JoinGame predates hardcore mode's own field (it was folded into
// the gamemode byte's high bit in later vanilla, which this codebase does
// not reproduce), dimension count, view distance, and the respawn-screen
// flag; those canonical fields are simply not representable here.
func encodeJoinGame(p canonical.JoinGame) ([]byte, error) {
	var buf bytes.Buffer
	if err := frame.WriteInt32(&buf, p.EntityID); err != nil {
		return nil, err
	}
	buf.WriteByte(0) // gamemode: survival
	buf.WriteByte(0) // dimension: overworld
	buf.WriteByte(0) // difficulty: peaceful
	maxPlayers := p.MaxPlayers
	if maxPlayers > 255 {
		maxPlayers = 255
	}
	buf.WriteByte(byte(maxPlayers))
	if err := frame.WriteString(&buf, "default"); err != nil { // level type
		return nil, err
	}
	if err := frame.WriteBool(&buf, p.ReducedDebugInfo); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// pre-1.9 PlayerPositionLook had no teleport confirmation ID.
func encodePlayerPositionLook(p canonical.PlayerPositionLook) ([]byte, error) {
	var buf bytes.Buffer
	for _, v := range []float64{p.X, p.Y, p.Z} {
		if err := frame.WriteFloat64(&buf, v); err != nil {
			return nil, err
		}
	}
	if err := frame.WriteFloat32(&buf, p.Yaw); err != nil {
		return nil, err
	}
	if err := frame.WriteFloat32(&buf, p.Pitch); err != nil {
		return nil, err
	}
	buf.WriteByte(p.Flags)
	return buf.Bytes(), nil
}

func (c *Codec) encodeBlockChange(p canonical.BlockChange) ([]byte, error) {
	var buf bytes.Buffer
	pos := frame.BlockPosition{X: p.Position.X, Y: p.Position.Y, Z: p.Position.Z}
	if err := frame.WriteInt64(&buf, pos.PackLegacy()); err != nil {
		return nil, err
	}
	blocks, _ := c.reg.Blocks(version.V47)
	wireID, ok := blocks.ToVersion(p.BlockID)
	if !ok {
		// unknown blocks fall back to stone
		wireID, ok = blocks.ToVersion(registry.LatestStone)
		if !ok {
			wireID = registry.FallbackBlockID
		}
	}
	if err := frame.WriteVarInt(&buf, wireID); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (c *Codec) encodeChunkData(p canonical.ChunkData) ([]byte, error) {
	var buf bytes.Buffer
	if err := frame.WriteInt32(&buf, p.ChunkX); err != nil {
		return nil, err
	}
	if err := frame.WriteInt32(&buf, p.ChunkZ); err != nil {
		return nil, err
	}
	if err := frame.WriteVarInt(&buf, int32(len(p.Sections))); err != nil {
		return nil, err
	}
	for _, s := range p.Sections {
		raw, err := chunk.Encode(chunk.LayoutLegacy, s)
		if err != nil {
			return nil, err
		}
		if err := frame.WriteByteArray(&buf, raw); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// DecodeChunkSection is exported so tests (and the clientbound encode
// path's inverse, should one be needed) can exercise chunk decoding
// without re-deriving the section count/byte-array framing above.
func DecodeChunkSection(raw []byte, count int) (canonical.ChunkSection, error) {
	return chunk.Decode(chunk.LayoutLegacy, raw, count)
}
