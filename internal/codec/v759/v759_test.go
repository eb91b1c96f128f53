package v759

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

func TestEncodeDecodePingPong(t *testing.T) {
	c := newCodec()

	pkt, err := c.DecodeServerbound(canonical.Status, 0x01, encodeInt64(0x0123456789ABCDEF))
	require.NoError(t, err)
	ping := pkt.(canonical.Ping)
	assert.Equal(t, int64(0x0123456789ABCDEF), ping.Payload)

	wireID, body, err := c.EncodeClientbound(canonical.Status, canonical.Pong{Payload: ping.Payload})
	require.NoError(t, err)
	assert.Equal(t, int32(0x01), wireID)
	assert.Equal(t, encodeInt64(ping.Payload), body)
}

func TestBlockChangeEncodeUsesModernPackingAndStateIDs(t *testing.T) {
	c := newCodec()
	_, body, err := c.EncodeClientbound(canonical.Play, canonical.BlockChange{
		Position: canonical.BlockPosition{X: 1, Y: 64, Z: 2},
		BlockID:  registry.LatestOakLog,
	})
	require.NoError(t, err)
	require.True(t, len(body) >= 9)

	pos := frame.UnpackModern(int64(
		uint64(body[0])<<56 | uint64(body[1])<<48 | uint64(body[2])<<40 | uint64(body[3])<<32 |
			uint64(body[4])<<24 | uint64(body[5])<<16 | uint64(body[6])<<8 | uint64(body[7]),
	))
	assert.Equal(t, int32(1), pos.X)
	assert.Equal(t, int32(64), pos.Y)
	assert.Equal(t, int32(2), pos.Z)
	// Oak log's 1.19 block state ID is 2, a one-byte varint.
	assert.Equal(t, byte(2), body[8])
}

func TestLoginSuccessEncodesUUIDAsRawBytes(t *testing.T) {
	c := newCodec()
	id := uuid.New()
	_, body, err := c.EncodeClientbound(canonical.Login, canonical.LoginSuccess{UUID: id, Username: "Alice"})
	require.NoError(t, err)

	wantPrefix := id[:]
	assert.Equal(t, wantPrefix, body[:16])
}

func TestKeepAliveUsesFixedWidthLong(t *testing.T) {
	c := newCodec()
	wireID, body, err := c.EncodeClientbound(canonical.Play, canonical.KeepAliveClientbound{Nonce: 42})
	require.NoError(t, err)
	require.Len(t, body, 8)
	assert.NotZero(t, wireID)
}

func TestEntityEquipmentEncodesModernSlot(t *testing.T) {
	c := newCodec()
	_, body, err := c.EncodeClientbound(canonical.Play, canonical.EntityEquipment{
		EntityID: 7,
		Slot:     0,
		Item:     canonical.ItemStack{ItemID: registry.LatestItemStick, Count: 1},
	})
	require.NoError(t, err)

	// VarInt entity id, slot byte, presence bool, VarInt item id (1),
	// count byte, 0x00 NBT end tag.
	require.Len(t, body, 6)
	assert.Equal(t, byte(1), body[2]) // present
	assert.Equal(t, byte(1), body[3]) // stick's wire id
}

func TestEntityEquipmentUnknownItemEncodesAbsentSlot(t *testing.T) {
	c := newCodec()
	_, body, err := c.EncodeClientbound(canonical.Play, canonical.EntityEquipment{
		EntityID: 7,
		Slot:     0,
		Item:     canonical.ItemStack{ItemID: 999999, Count: 1},
	})
	require.NoError(t, err)
	assert.Equal(t, byte(0), body[len(body)-1]) // presence bool false
}

func TestEntityMetadataEndsWithModernTerminator(t *testing.T) {
	c := newCodec()
	_, body, err := c.EncodeClientbound(canonical.Play, canonical.EntityMetadata{
		EntityID: 3,
		Entries: []canonical.MetadataEntry{
			{Index: 0, Value: canonical.MetaByte{Value: 0x20}},
			{Index: 2, Value: canonical.MetaString{Value: "Bamboo"}},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, byte(0xFF), body[len(body)-1])
	// Each entry is index byte, VarInt type tag, value.
	assert.Equal(t, byte(0), body[1]) // index 0
	assert.Equal(t, byte(0), body[2]) // type tag byte
}

func encodeInt64(v int64) []byte {
	out := make([]byte, 8)
	for i := 0; i < 8; i++ {
		out[7-i] = byte(v)
		v >>= 8
	}
	return out
}
