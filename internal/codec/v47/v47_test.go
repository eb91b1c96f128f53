package v47

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bamboo-mc/bamboo/internal/canonical"
	"github.com/bamboo-mc/bamboo/internal/frame"
	"github.com/bamboo-mc/bamboo/internal/registry"
)

func newCodec() *Codec {
	return New(registry.New())
}

func TestDecodeHandshakeRoundTrip(t *testing.T) {
	c := newCodec()

	var body []byte
	buf := appendVarInt(nil, 47)
	buf = appendString(buf, "play.example.com")
	buf = append(buf, 0x63, 0xDD) // port 25565
	buf = appendVarInt(buf, int32(canonical.NextLogin))
	body = buf

	pkt, err := c.DecodeServerbound(canonical.Handshaking, 0x00, body)
	require.NoError(t, err)
	hs := pkt.(canonical.Handshake)
	assert.Equal(t, int32(47), hs.ProtocolVersion)
	assert.Equal(t, "play.example.com", hs.ServerAddress)
	assert.Equal(t, uint16(25565), hs.ServerPort)
	assert.Equal(t, canonical.NextLogin, hs.NextState)
}

func TestEncodeStatusResponse(t *testing.T) {
	c := newCodec()
	wireID, body, err := c.EncodeClientbound(canonical.Status, canonical.StatusResponse{JSON: `{"a":1}`})
	require.NoError(t, err)
	assert.Equal(t, int32(0x00), wireID)
	assert.NotEmpty(t, body)
}

func TestBlockChangeEncodeUsesLegacyPacking(t *testing.T) {
	c := newCodec()
	_, body, err := c.EncodeClientbound(canonical.Play, canonical.BlockChange{
		Position: canonical.BlockPosition{X: 1, Y: 64, Z: 2},
		BlockID:  registry.LatestStone,
	})
	require.NoError(t, err)
	require.Len(t, body, 9) // 8-byte position + 1-byte varint (stone's wire id, 16, fits in one byte)

	pos := frame.UnpackLegacy(int64(
		uint64(body[0])<<56 | uint64(body[1])<<48 | uint64(body[2])<<40 | uint64(body[3])<<32 |
			uint64(body[4])<<24 | uint64(body[5])<<16 | uint64(body[6])<<8 | uint64(body[7]),
	))
	assert.Equal(t, int32(1), pos.X)
	assert.Equal(t, int32(64), pos.Y)
	assert.Equal(t, int32(2), pos.Z)
}

func TestBlockChangeUnknownBlockFallsBackToStone(t *testing.T) {
	c := newCodec()
	_, body, err := c.EncodeClientbound(canonical.Play, canonical.BlockChange{
		Position: canonical.BlockPosition{},
		BlockID:  999999,
	})
	require.NoError(t, err)
	require.Len(t, body, 9) // 8-byte position + 1-byte varint for stone's wire id (1<<4 = 16, needs 1 byte)
	assert.Equal(t, byte(1<<4), body[8], "fallback must be stone's packed wire id, not air")
}

func TestLoginSuccessEncodesUUIDAsString(t *testing.T) {
	c := newCodec()
	id := uuid.New()
	_, body, err := c.EncodeClientbound(canonical.Login, canonical.LoginSuccess{UUID: id, Username: "Alice"})
	require.NoError(t, err)
	// A string-encoded UUID is far longer than 16 raw bytes; this is the
	// behavior that distinguishes the 1.8 LoginSuccess shape from 1.19's.
	assert.Greater(t, len(body), 16)
}

func TestEntityEquipmentEncodesLegacySlot(t *testing.T) {
	c := newCodec()
	_, body, err := c.EncodeClientbound(canonical.Play, canonical.EntityEquipment{
		EntityID: 7,
		Slot:     0,
		Item:     canonical.ItemStack{ItemID: registry.LatestItemStick, Count: 1},
	})
	require.NoError(t, err)

	// VarInt entity id (7, one byte), short slot, then the slot data:
	// short item id 280, byte count, short damage, 0 NBT terminator.
	require.Len(t, body, 1+2+2+1+2+1)
	assert.Equal(t, byte(280>>8), body[3])
	assert.Equal(t, byte(280&0xFF), body[4])
	assert.Equal(t, byte(1), body[5])
}

func TestEntityEquipmentUnknownItemEncodesEmptySlot(t *testing.T) {
	c := newCodec()
	_, body, err := c.EncodeClientbound(canonical.Play, canonical.EntityEquipment{
		EntityID: 7,
		Slot:     0,
		Item:     canonical.ItemStack{ItemID: 999999, Count: 1},
	})
	require.NoError(t, err)
	// The empty slot is item id -1 and nothing else.
	assert.Equal(t, []byte{0xFF, 0xFF}, body[len(body)-2:])
}

func TestEntityMetadataEndsWithLegacyTerminator(t *testing.T) {
	c := newCodec()
	_, body, err := c.EncodeClientbound(canonical.Play, canonical.EntityMetadata{
		EntityID: 3,
		Entries: []canonical.MetadataEntry{
			{Index: 0, Value: canonical.MetaByte{Value: 0x20}},
			{Index: 6, Value: canonical.MetaFloat{Value: 20}},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, byte(0x7F), body[len(body)-1])
	// First entry header packs type byte (0) and index 0.
	assert.Equal(t, byte(0x00), body[1])
	assert.Equal(t, byte(0x20), body[2])
	// Second entry header packs type float (3) into the top three bits.
	assert.Equal(t, byte(3<<5|6), body[3])
}

func appendVarInt(b []byte, v int32) []byte {
	var buf [5]byte
	n := frame.PutVarInt(buf[:], v)
	return append(b, buf[:n]...)
}

func appendString(b []byte, s string) []byte {
	b = appendVarInt(b, int32(len(s)))
	return append(b, s...)
}
