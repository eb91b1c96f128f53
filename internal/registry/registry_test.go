package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bamboo-mc/bamboo/internal/canonical"
	"github.com/bamboo-mc/bamboo/internal/version"
)

func TestBlockTranslationRoundTrip(t *testing.T) {
	r := New()
	for _, v := range []version.Protocol{version.V47, version.V759} {
		table, ok := r.Blocks(v)
		require.True(t, ok)
		for vid := range tableVersionIDs(t, v) {
			latest := table.ToLatest(vid)
			gotVid, ok := table.ToVersion(latest)
			require.True(t, ok)
			assert.Equal(t, vid, gotVid, "version %d block %d", v, vid)
		}
	}
}

func tableVersionIDs(t *testing.T, v version.Protocol) map[int32]struct{} {
	t.Helper()
	var src map[int32]int32
	switch v {
	case version.V47:
		src = blocksV47
	case version.V759:
		src = blocksV759
	default:
		t.Fatalf("unexpected version %d", v)
	}
	out := make(map[int32]struct{}, len(src))
	for k := range src {
		out[k] = struct{}{}
	}
	return out
}

func TestUnknownBlockFallsBackToAir(t *testing.T) {
	r := New()
	table, _ := r.Blocks(version.V47)
	assert.Equal(t, LatestAir, table.ToLatest(999999))
}

func TestUnknownLatestBlockHasNoVersionRepresentation(t *testing.T) {
	r := New()
	table, _ := r.Blocks(version.V47)
	_, ok := table.ToVersion(999999)
	assert.False(t, ok)
}

func TestPacketIDRoundTrip(t *testing.T) {
	r := New()
	wire, ok := r.PacketIDFor(version.V47, canonical.Play, canonical.KindJoinGame, canonical.Clientbound)
	require.True(t, ok)

	kind, ok := r.KindFor(version.V47, canonical.Play, wire, canonical.Clientbound)
	require.True(t, ok)
	assert.Equal(t, canonical.KindJoinGame, kind)
}

func TestUnknownWireIDIsNonFatal(t *testing.T) {
	r := New()
	_, ok := r.KindFor(version.V47, canonical.Play, 0x7E, canonical.Serverbound)
	assert.False(t, ok)
}
