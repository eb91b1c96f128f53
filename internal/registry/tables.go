package registry

import "github.com/bamboo-mc/bamboo/internal/canonical"

// The block/item/packet tables below stand in for the build-time data
// generator's output (out of scope). They are small and
// hand-picked rather than exhaustive, covering the blocks/items the
// translation paths exercise end to end (oak_stairs, stone, air) plus a
// handful of commonly referenced blocks, so the translation-round-trip
// property holds for every entry the tables actually define.
//
// latestID conventions (arbitrary but internally consistent "latest"
// numbering, analogous to 1.19's flattened block-state IDs):
const (
	LatestAir            int32 = 0
	LatestStone          int32 = 1
	LatestOakLog         int32 = 2
	LatestOakStairsEast  int32 = 3 // oak_stairs[facing=east,half=bottom]
	LatestOakStairsNorth int32 = 4
	LatestOakStairsSouth int32 = 5
	LatestOakStairsWest  int32 = 6
)

// V47 (1.8.9) used a flat block-ID + 4-bit metadata scheme; the
// block-state concept did not exist yet, so "version block ID" here is
// id<<4|meta packed into a single int32, which is what the v47 packet
// codec expects for BlockChange's wire representation.
var blocksV47 = map[int32]int32{
	0:             LatestAir,
	1 << 4:        LatestStone,
	17 << 4:       LatestOakLog,
	53<<4 | 0:     LatestOakStairsEast,
	53<<4 | 1:     LatestOakStairsWest,
	53<<4 | 2:     LatestOakStairsSouth,
	53<<4 | 3:     LatestOakStairsNorth,
}

// V759 (1.19.2) block-state IDs are the flattened palette's single
// integers; id numbers below are illustrative, not vanilla-accurate.
var blocksV759 = map[int32]int32{
	0:    LatestAir,
	1:    LatestStone,
	2:    LatestOakLog,
	1100: LatestOakStairsEast,
	1101: LatestOakStairsNorth,
	1102: LatestOakStairsSouth,
	1103: LatestOakStairsWest,
}

const (
	LatestItemEmpty int32 = 0
	LatestItemStick int32 = 1
	LatestItemApple int32 = 2
)

var itemsV47 = map[int32]int32{
	0:   LatestItemEmpty,
	280: LatestItemStick,
	260: LatestItemApple,
}

var itemsV759 = map[int32]int32{
	0: LatestItemEmpty,
	1: LatestItemStick,
	2: LatestItemApple,
}

// Packet ID tables. Real vanilla wire IDs change release to release; the
// values below are deliberately self-consistent within this codebase
// rather than reproductions of Mojang's actual numbering, since no two
// releases agree and the generator that would supply the real numbers is
// out of scope.
var packetTableV47 = []packetTableEntry{
	{canonical.Handshaking, canonical.KindHandshake, canonical.Serverbound, 0x00},

	{canonical.Status, canonical.KindStatusRequest, canonical.Serverbound, 0x00},
	{canonical.Status, canonical.KindPing, canonical.Serverbound, 0x01},
	{canonical.Status, canonical.KindStatusResponse, canonical.Clientbound, 0x00},
	{canonical.Status, canonical.KindPong, canonical.Clientbound, 0x01},

	{canonical.Login, canonical.KindLoginStart, canonical.Serverbound, 0x00},
	{canonical.Login, canonical.KindEncryptionResponse, canonical.Serverbound, 0x01},
	{canonical.Login, canonical.KindDisconnect, canonical.Clientbound, 0x00},
	{canonical.Login, canonical.KindEncryptionRequest, canonical.Clientbound, 0x01},
	{canonical.Login, canonical.KindLoginSuccess, canonical.Clientbound, 0x02},
	{canonical.Login, canonical.KindSetCompression, canonical.Clientbound, 0x03},

	{canonical.Play, canonical.KindKeepAliveServerbound, canonical.Serverbound, 0x00},
	{canonical.Play, canonical.KindPluginMessage, canonical.Serverbound, 0x17},
	{canonical.Play, canonical.KindKeepAliveClientbound, canonical.Clientbound, 0x00},
	{canonical.Play, canonical.KindJoinGame, canonical.Clientbound, 0x01},
	{canonical.Play, canonical.KindChunkData, canonical.Clientbound, 0x21},
	{canonical.Play, canonical.KindBlockChange, canonical.Clientbound, 0x23},
	{canonical.Play, canonical.KindPlayerPositionLook, canonical.Clientbound, 0x08},
	{canonical.Play, canonical.KindTimeUpdate, canonical.Clientbound, 0x03},
	{canonical.Play, canonical.KindDisconnect, canonical.Clientbound, 0x40},
	{canonical.Play, canonical.KindPluginMessage, canonical.Clientbound, 0x3F},
	{canonical.Play, canonical.KindEntityEquipment, canonical.Clientbound, 0x04},
	{canonical.Play, canonical.KindEntityMetadata, canonical.Clientbound, 0x1C},
}

var packetTableV759 = []packetTableEntry{
	{canonical.Handshaking, canonical.KindHandshake, canonical.Serverbound, 0x00},

	{canonical.Status, canonical.KindStatusRequest, canonical.Serverbound, 0x00},
	{canonical.Status, canonical.KindPing, canonical.Serverbound, 0x01},
	{canonical.Status, canonical.KindStatusResponse, canonical.Clientbound, 0x00},
	{canonical.Status, canonical.KindPong, canonical.Clientbound, 0x01},

	{canonical.Login, canonical.KindLoginStart, canonical.Serverbound, 0x00},
	{canonical.Login, canonical.KindEncryptionResponse, canonical.Serverbound, 0x01},
	{canonical.Login, canonical.KindDisconnect, canonical.Clientbound, 0x00},
	{canonical.Login, canonical.KindEncryptionRequest, canonical.Clientbound, 0x01},
	{canonical.Login, canonical.KindLoginSuccess, canonical.Clientbound, 0x02},
	{canonical.Login, canonical.KindSetCompression, canonical.Clientbound, 0x03},

	{canonical.Play, canonical.KindKeepAliveServerbound, canonical.Serverbound, 0x11},
	{canonical.Play, canonical.KindPluginMessage, canonical.Serverbound, 0x0A},
	{canonical.Play, canonical.KindKeepAliveClientbound, canonical.Clientbound, 0x1E},
	{canonical.Play, canonical.KindJoinGame, canonical.Clientbound, 0x23},
	{canonical.Play, canonical.KindChunkData, canonical.Clientbound, 0x1F},
	{canonical.Play, canonical.KindBlockChange, canonical.Clientbound, 0x0A},
	{canonical.Play, canonical.KindPlayerPositionLook, canonical.Clientbound, 0x36},
	{canonical.Play, canonical.KindTimeUpdate, canonical.Clientbound, 0x5C},
	{canonical.Play, canonical.KindDisconnect, canonical.Clientbound, 0x17},
	{canonical.Play, canonical.KindPluginMessage, canonical.Clientbound, 0x15},
	{canonical.Play, canonical.KindEntityEquipment, canonical.Clientbound, 0x50},
	{canonical.Play, canonical.KindEntityMetadata, canonical.Clientbound, 0x4D},
}
