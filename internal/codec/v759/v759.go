// Package v759 implements the protocol-759 (1.19.2) dialect of
// codec.Codec: flattened block-state IDs, the post-1.14 position packing,
// and the post-1.18 chunk section layout with per-section biomes.
package v759

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

// Codec is the protocol-759 dialect. The zero value is not usable; build
// one with New.
type Codec struct {
	reg *registry.Registry
}

// New returns a protocol-759 codec backed by reg.
func New(reg *registry.Registry) *Codec {
	return &Codec{reg: reg}
}

var _ codec.Codec = (*Codec)(nil)

func (c *Codec) DecodeServerbound(state canonical.State, wireID int32, body []byte) (canonical.Packet, error) {
	kind, ok := c.reg.KindFor(version.V759, state, wireID, canonical.Serverbound)
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
	wireID, ok := c.reg.PacketIDFor(version.V759, state, pkt.Kind(), canonical.Clientbound)
	if !ok {
		return 0, nil, fmt.Errorf("v759: no wire id for kind %v in state %v", pkt.Kind(), state)
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
		return 0, nil, fmt.Errorf("v759: unhandled canonical kind %v", pkt.Kind())
	}
	if err != nil {
		return 0, nil, err
	}
	return wireID, body, nil
}

// 1.12.2+ widened the keepalive nonce to a fixed 8-byte Long.
func decodeKeepAliveServerbound(body []byte) (canonical.KeepAliveServerbound, error) {
	r := bytes.NewReader(body)
	v, err := frame.ReadInt64(r)
	if err != nil {
		return canonical.KeepAliveServerbound{}, frame.ErrMalformed
	}
	return canonical.KeepAliveServerbound{Nonce: v}, nil
}

func encodeKeepAliveClientbound(p canonical.KeepAliveClientbound) ([]byte, error) {
	var buf bytes.Buffer
	if err := frame.WriteInt64(&buf, p.Nonce); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// 1.16+ LoginSuccess carries the UUID as 16 raw bytes rather than a string.
func encodeLoginSuccess(p canonical.LoginSuccess) ([]byte, error) {
	var buf bytes.Buffer
	raw := [16]byte(p.UUID)
	if err := frame.WriteUUID(&buf, raw); err != nil {
		return nil, err
	}
	if err := frame.WriteString(&buf, p.Username); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeJoinGame(p canonical.JoinGame) ([]byte, error) {
	var buf bytes.Buffer
	if err := frame.WriteInt32(&buf, p.EntityID); err != nil {
		return nil, err
	}
	if err := frame.WriteBool(&buf, p.Hardcore); err != nil {
		return nil, err
	}
	buf.WriteByte(0)    // gamemode: survival
	buf.WriteByte(0xFF) // previous gamemode: none
	if err := frame.WriteVarInt(&buf, p.DimensionCount); err != nil {
		return nil, err
	}
	for i := int32(0); i < p.DimensionCount; i++ {
		if err := frame.WriteString(&buf, fmt.Sprintf("bamboo:dimension_%d", i)); err != nil {
			return nil, err
		}
	}
	if err := frame.WriteString(&buf, p.Dimension); err != nil {
		return nil, err
	}
	if err := frame.WriteVarInt(&buf, p.MaxPlayers); err != nil {
		return nil, err
	}
	if err := frame.WriteVarInt(&buf, p.ViewDistance); err != nil {
		return nil, err
	}
	if err := frame.WriteVarInt(&buf, p.ViewDistance); err != nil { // simulation distance
		return nil, err
	}
	if err := frame.WriteBool(&buf, p.ReducedDebugInfo); err != nil {
		return nil, err
	}
	if err := frame.WriteBool(&buf, p.RespawnScreen); err != nil {
		return nil, err
	}
	if err := frame.WriteBool(&buf, false); err != nil { // is debug world
		return nil, err
	}
	if err := frame.WriteBool(&buf, false); err != nil { // is flat world
		return nil, err
	}
	return buf.Bytes(), nil
}

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
	if err := frame.WriteVarInt(&buf, p.TeleportID); err != nil {
		return nil, err
	}
	if err := frame.WriteBool(&buf, false); err != nil { // dismount vehicle
		return nil, err
	}
	return buf.Bytes(), nil
}

func (c *Codec) encodeBlockChange(p canonical.BlockChange) ([]byte, error) {
	var buf bytes.Buffer
	pos := frame.BlockPosition{X: p.Position.X, Y: p.Position.Y, Z: p.Position.Z}
	if err := frame.WriteInt64(&buf, pos.PackModern()); err != nil {
		return nil, err
	}
	blocks, _ := c.reg.Blocks(version.V759)
	stateID, ok := blocks.ToVersion(p.BlockID)
	if !ok {
		// unknown blocks fall back to stone
		stateID, ok = blocks.ToVersion(registry.LatestStone)
		if !ok {
			stateID = registry.FallbackBlockID
		}
	}
	if err := frame.WriteVarInt(&buf, stateID); err != nil {
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
		raw, err := chunk.Encode(chunk.LayoutBiomes118, s)
		if err != nil {
			return nil, err
		}
		if err := frame.WriteByteArray(&buf, raw); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// DecodeChunkSection mirrors v47.DecodeChunkSection for the 1.18+ layout.
func DecodeChunkSection(raw []byte, count int) (canonical.ChunkSection, error) {
	return chunk.Decode(chunk.LayoutBiomes118, raw, count)
}
