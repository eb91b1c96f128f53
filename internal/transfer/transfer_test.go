package transfer

import (
	"bufio"
	"bytes"
	"testing"

	"github.com/bamboo-mc/bamboo/internal/canonical"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	payload := EncodeNewConnection(NewConnection{
		UUID:       uuid.New(),
		Username:   "Alice",
		Version:    759,
		RemoteAddr: "127.0.0.1:54321",
	})
	require.NoError(t, WriteRecord(&buf, KindNewConnection, payload))

	rec, err := ReadRecord(bufio.NewReader(&buf))
	require.NoError(t, err)
	assert.Equal(t, KindNewConnection, rec.Kind)

	decoded, err := DecodeNewConnection(rec.Payload)
	require.NoError(t, err)
	assert.Equal(t, "Alice", decoded.Username)
	assert.Equal(t, int32(759), decoded.Version)
	assert.Equal(t, "127.0.0.1:54321", decoded.RemoteAddr)
}

func TestRecordStreamMultipleMessages(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteRecord(&buf, KindHeartbeat, EncodeHeartbeat(Heartbeat{OnlinePlayers: 4})))
	require.NoError(t, WriteRecord(&buf, KindRemoveConnection, EncodeRemoveConnection()))

	r := bufio.NewReader(&buf)
	rec1, err := ReadRecord(r)
	require.NoError(t, err)
	assert.Equal(t, KindHeartbeat, rec1.Kind)
	hb, err := DecodeHeartbeat(rec1.Payload)
	require.NoError(t, err)
	assert.Equal(t, int32(4), hb.OnlinePlayers)

	rec2, err := ReadRecord(r)
	require.NoError(t, err)
	assert.Equal(t, KindRemoveConnection, rec2.Kind)
	assert.Empty(t, rec2.Payload)
}

func TestCanonicalRoundTripKeepAlive(t *testing.T) {
	pkt := canonical.KeepAliveClientbound{Nonce: 123456789}
	kind, payload, err := EncodeCanonical(pkt)
	require.NoError(t, err)
	assert.Equal(t, KindKeepAliveClientbound, kind)

	decoded, err := DecodeCanonical(kind, payload)
	require.NoError(t, err)
	assert.Equal(t, pkt, decoded)
}

func TestCanonicalRoundTripChunkData(t *testing.T) {
	pkt := canonical.ChunkData{
		ChunkX: 1,
		ChunkZ: -2,
		Sections: []canonical.ChunkSection{
			{
				Palette:      []int32{0, 1, 2},
				Indices:      []uint16{0, 1, 1, 2},
				BitsPerBlock: 4,
				NonAirCount:  3,
			},
		},
	}
	kind, payload, err := EncodeCanonical(pkt)
	require.NoError(t, err)
	decoded, err := DecodeCanonical(kind, payload)
	require.NoError(t, err)
	assert.Equal(t, pkt, decoded)
}

func TestCanonicalRoundTripEntityMetadata(t *testing.T) {
	pkt := canonical.EntityMetadata{
		EntityID: 9,
		Entries: []canonical.MetadataEntry{
			{Index: 0, Value: canonical.MetaByte{Value: 0x40}},
			{Index: 1, Value: canonical.MetaVarInt{Value: 300}},
			{Index: 2, Value: canonical.MetaFloat{Value: 1.5}},
			{Index: 3, Value: canonical.MetaString{Value: "glowing"}},
			{Index: 4, Value: canonical.MetaItem{Value: canonical.ItemStack{ItemID: 1, Count: 64}}},
		},
	}
	kind, payload, err := EncodeCanonical(pkt)
	require.NoError(t, err)
	assert.Equal(t, KindEntityMetadata, kind)

	decoded, err := DecodeCanonical(kind, payload)
	require.NoError(t, err)
	assert.Equal(t, pkt, decoded)
}

func TestCanonicalRoundTripEntityEquipment(t *testing.T) {
	pkt := canonical.EntityEquipment{
		EntityID: 12,
		Slot:     1,
		Item:     canonical.ItemStack{ItemID: 2, Count: 3, Damage: 7, NBT: []byte{0x0A, 0x00}},
	}
	kind, payload, err := EncodeCanonical(pkt)
	require.NoError(t, err)
	decoded, err := DecodeCanonical(kind, payload)
	require.NoError(t, err)
	assert.Equal(t, pkt, decoded)
}

func TestDecodeUnknownKind(t *testing.T) {
	_, err := DecodeCanonical(Kind(999), nil)
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestFieldTagMismatchIsError(t *testing.T) {
	w := NewWriter()
	w.VarInt(5)
	r := NewReader(w.Payload())
	_, err := r.String()
	assert.Error(t, err)
}
