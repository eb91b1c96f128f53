// Package canonical defines the version-independent packet representation
// that flows across the proxy↔server boundary. No canonical
// field ever carries a raw vanilla ID: block and item IDs are always
// "latest" IDs translated through internal/registry.
package canonical

import (
	"github.com/google/uuid"
)

// State is one of the four connection states a packet kind is scoped to.
// It names states for dispatch; it is not itself a state machine.
type State int

const (
	Handshaking State = iota
	Status
	Login
	Play
)

func (s State) String() string {
	switch s {
	case Handshaking:
		return "Handshaking"
	case Status:
		return "Status"
	case Login:
		return "Login"
	case Play:
		return "Play"
	default:
		return "Unknown"
	}
}

// Direction distinguishes packets sent by the client ("serverbound", from
// the server's point of view) from packets sent by the server
// ("clientbound").
type Direction int

const (
	Serverbound Direction = iota
	Clientbound
)

// Kind enumerates every canonical packet variant Bamboo translates. The
// set is closed: dispatch is a table lookup, not open subclassing.
type Kind int

const (
	KindHandshake Kind = iota
	KindStatusRequest
	KindStatusResponse
	KindPing
	KindPong
	KindLoginStart
	KindEncryptionRequest
	KindEncryptionResponse
	KindLoginSuccess
	KindSetCompression
	KindDisconnect
	KindJoinGame
	KindKeepAliveClientbound
	KindKeepAliveServerbound
	KindPlayerPositionLook
	KindBlockChange
	KindChunkData
	KindTimeUpdate
	KindPluginMessage
	KindEntityEquipment
	KindEntityMetadata
)

// Packet is implemented by every canonical packet struct. Kind lets
// dispatch switch on a concrete type's identity without a type switch at
// every call site (each codec's EncodeClientbound still type-switches, but kind
// tables and logging can use Kind() alone).
type Packet interface {
	Kind() Kind
}

// NextState is the handshake's requested follow-up state.
type NextState int32

const (
	NextStatus NextState = 1
	NextLogin  NextState = 2
)

type Handshake struct {
	ProtocolVersion int32
	ServerAddress   string
	ServerPort      uint16
	NextState       NextState
}

func (Handshake) Kind() Kind { return KindHandshake }

type StatusRequest struct{}

func (StatusRequest) Kind() Kind { return KindStatusRequest }

type StatusResponse struct {
	JSON string
}

func (StatusResponse) Kind() Kind { return KindStatusResponse }

type Ping struct{ Payload int64 }

func (Ping) Kind() Kind { return KindPing }

type Pong struct{ Payload int64 }

func (Pong) Kind() Kind { return KindPong }

type LoginStart struct {
	Username string
}

func (LoginStart) Kind() Kind { return KindLoginStart }

type EncryptionRequest struct {
	ServerID    string
	PublicKey   []byte // DER-encoded RSA public key
	VerifyToken []byte
}

func (EncryptionRequest) Kind() Kind { return KindEncryptionRequest }

type EncryptionResponse struct {
	EncryptedSharedSecret []byte
	EncryptedVerifyToken  []byte
}

func (EncryptionResponse) Kind() Kind { return KindEncryptionResponse }

type LoginSuccess struct {
	UUID     uuid.UUID
	Username string
}

func (LoginSuccess) Kind() Kind { return KindLoginSuccess }

type SetCompression struct {
	Threshold int32
}

func (SetCompression) Kind() Kind { return KindSetCompression }

type Disconnect struct {
	ReasonJSON string
}

func (Disconnect) Kind() Kind { return KindDisconnect }

type JoinGame struct {
	EntityID         int32
	Hardcore         bool
	Dimension        string
	DimensionCount   int32
	MaxPlayers       int32
	ViewDistance     int32
	ReducedDebugInfo bool
	RespawnScreen    bool
}

func (JoinGame) Kind() Kind { return KindJoinGame }

// KeepAlive carries the same nonce in both directions.
// KeepAliveClientbound and KeepAliveServerbound carry the same nonce shape
// but are distinct Kinds, since direction matters for dispatch.
type KeepAliveClientbound struct{ Nonce int64 }

func (KeepAliveClientbound) Kind() Kind { return KindKeepAliveClientbound }

type KeepAliveServerbound struct{ Nonce int64 }

func (KeepAliveServerbound) Kind() Kind { return KindKeepAliveServerbound }

type PlayerPositionLook struct {
	X, Y, Z    float64
	Yaw, Pitch float32
	Flags      byte
	TeleportID int32
}

func (PlayerPositionLook) Kind() Kind { return KindPlayerPositionLook }

// BlockChange carries a canonical "latest" block state ID, never a
// vanilla wire ID.
type BlockChange struct {
	Position BlockPosition
	BlockID  int32
}

func (BlockChange) Kind() Kind { return KindBlockChange }

// BlockPosition mirrors frame.BlockPosition without importing internal/frame,
// keeping canonical free of a dependency on the wire-packing package.
type BlockPosition struct {
	X, Y, Z int32
}

// ChunkData carries one decoded chunk section in canonical form,
// independent of any version's wire layout.
type ChunkData struct {
	ChunkX, ChunkZ int32
	Sections       []ChunkSection
}

func (ChunkData) Kind() Kind { return KindChunkData }

// ChunkSection is a palette + bit-packed indices + non-air count.
type ChunkSection struct {
	Palette      []int32 // each entry is a canonical "latest" block state ID
	Indices      []uint16
	BitsPerBlock int
	NonAirCount  int32
}

type TimeUpdate struct {
	WorldAge  int64
	TimeOfDay int64
}

func (TimeUpdate) Kind() Kind { return KindTimeUpdate }

// PluginMessage is passed through opaquely; codecs never interpret it.
type PluginMessage struct {
	Channel string
	Data    []byte
}

func (PluginMessage) Kind() Kind { return KindPluginMessage }

// ItemStack is the canonical item representation: a "latest" item ID
// (never a version wire ID), a count, the legacy damage value, and an
// opaque NBT blob. ItemID 0 is the empty stack.
type ItemStack struct {
	ItemID int32
	Count  int8
	Damage int16
	NBT    []byte
}

// Empty reports whether the stack is the canonical empty stack.
func (s ItemStack) Empty() bool { return s.ItemID == 0 || s.Count == 0 }

// MetadataValue is one entity-metadata entry's typed value. The concrete
// types below are the canonical type set; per-version codecs map each to
// that version's own type tag.
type MetadataValue interface {
	metadataValue()
}

type MetaByte struct{ Value byte }

type MetaVarInt struct{ Value int32 }

type MetaFloat struct{ Value float32 }

type MetaString struct{ Value string }

type MetaItem struct{ Value ItemStack }

func (MetaByte) metadataValue()   {}
func (MetaVarInt) metadataValue() {}
func (MetaFloat) metadataValue()  {}
func (MetaString) metadataValue() {}
func (MetaItem) metadataValue()   {}

// MetadataEntry pairs a metadata index with its typed value.
type MetadataEntry struct {
	Index byte
	Value MetadataValue
}

// EntityMetadata carries a set of watched-entity values keyed by index.
type EntityMetadata struct {
	EntityID int32
	Entries  []MetadataEntry
}

func (EntityMetadata) Kind() Kind { return KindEntityMetadata }

// EntityEquipment sets one equipment slot of an entity.
type EntityEquipment struct {
	EntityID int32
	Slot     int32
	Item     ItemStack
}

func (EntityEquipment) Kind() Kind { return KindEntityEquipment }
