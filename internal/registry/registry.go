// Package registry holds the per-version block/item/packet-ID translation
// tables. In a production Bamboo build these tables are
// emitted by the build-time data generator from vanilla data dumps (out of
// scope); here they are built once, by hand, for the two
// protocol versions internal/version declares supported, which is enough
// to exercise the lookup architecture end to end.
package registry

import (
	"github.com/bamboo-mc/bamboo/internal/canonical"
	"github.com/bamboo-mc/bamboo/internal/version"
)

// FallbackBlockID and FallbackItemID are the sentinel results of ToLatest
// for version IDs the table does not know: air and an empty item stack,
// respectively.
const (
	FallbackBlockID int32 = 0 // minecraft:air in the "latest" table
	FallbackItemID  int32 = 0 // empty stack
)

// BlockTable is one version's dense bidirectional block-ID mapping.
type BlockTable struct {
	toLatest  map[int32]int32
	toVersion map[int32]int32
}

func newBlockTable(pairs map[int32]int32) BlockTable {
	t := BlockTable{
		toLatest:  make(map[int32]int32, len(pairs)),
		toVersion: make(map[int32]int32, len(pairs)),
	}
	for versionID, latestID := range pairs {
		t.toLatest[versionID] = latestID
		t.toVersion[latestID] = versionID
	}
	return t
}

// ToLatest maps a version-specific block ID to the canonical latest ID.
// Unknown IDs fall back to air, never an error.
func (t BlockTable) ToLatest(vid int32) int32 {
	if lid, ok := t.toLatest[vid]; ok {
		return lid
	}
	return FallbackBlockID
}

// ToVersion maps a canonical latest block ID back to this version's wire
// ID. ok is false when the ID has no representation in this version; no
// fallback is applied here (the v47 and v759 codecs substitute stone).
func (t BlockTable) ToVersion(lid int32) (int32, bool) {
	vid, ok := t.toVersion[lid]
	return vid, ok
}

// ItemTable behaves identically to BlockTable with an empty-stack fallback.
type ItemTable struct {
	toLatest  map[int32]int32
	toVersion map[int32]int32
}

func newItemTable(pairs map[int32]int32) ItemTable {
	t := ItemTable{
		toLatest:  make(map[int32]int32, len(pairs)),
		toVersion: make(map[int32]int32, len(pairs)),
	}
	for versionID, latestID := range pairs {
		t.toLatest[versionID] = latestID
		t.toVersion[latestID] = versionID
	}
	return t
}

func (t ItemTable) ToLatest(vid int32) int32 {
	if lid, ok := t.toLatest[vid]; ok {
		return lid
	}
	return FallbackItemID
}

func (t ItemTable) ToVersion(lid int32) (int32, bool) {
	vid, ok := t.toVersion[lid]
	return vid, ok
}

// packetKey addresses one entry of the packet-ID table: a version, a
// connection state, a canonical kind, and a direction all select one wire
// ID, because wire IDs are reused across states and versions.
type packetKey struct {
	v     version.Protocol
	state canonical.State
	kind  canonical.Kind
	dir   canonical.Direction
}

type packetIDKey struct {
	v     version.Protocol
	state canonical.State
	wire  int32
	dir   canonical.Direction
}

// Registry is a process-wide, immutable-after-construction singleton.
// No method on Registry takes a lock:
// all state is written once in New and read thereafter.
type Registry struct {
	blocks   map[version.Protocol]BlockTable
	items    map[version.Protocol]ItemTable
	toWire   map[packetKey]int32
	fromWire map[packetIDKey]canonical.Kind
}

// New builds the process-wide registry from the generated (here:
// hand-seeded) per-version tables.
func New() *Registry {
	r := &Registry{
		blocks:   make(map[version.Protocol]BlockTable),
		items:    make(map[version.Protocol]ItemTable),
		toWire:   make(map[packetKey]int32),
		fromWire: make(map[packetIDKey]canonical.Kind),
	}
	r.blocks[version.V47] = newBlockTable(blocksV47)
	r.blocks[version.V759] = newBlockTable(blocksV759)
	r.items[version.V47] = newItemTable(itemsV47)
	r.items[version.V759] = newItemTable(itemsV759)

	for _, e := range packetTableV47 {
		r.registerPacket(version.V47, e)
	}
	for _, e := range packetTableV759 {
		r.registerPacket(version.V759, e)
	}
	return r
}

type packetTableEntry struct {
	state canonical.State
	kind  canonical.Kind
	dir   canonical.Direction
	wire  int32
}

func (r *Registry) registerPacket(v version.Protocol, e packetTableEntry) {
	r.toWire[packetKey{v: v, state: e.state, kind: e.kind, dir: e.dir}] = e.wire
	r.fromWire[packetIDKey{v: v, state: e.state, wire: e.wire, dir: e.dir}] = e.kind
}

// Blocks returns the block table for v, or false if v is unsupported.
func (r *Registry) Blocks(v version.Protocol) (BlockTable, bool) {
	t, ok := r.blocks[v]
	return t, ok
}

// Items returns the item table for v, or false if v is unsupported.
func (r *Registry) Items(v version.Protocol) (ItemTable, bool) {
	t, ok := r.items[v]
	return t, ok
}

// PacketIDFor resolves the wire ID a canonical kind encodes to in a given
// version, state, and direction.
func (r *Registry) PacketIDFor(v version.Protocol, state canonical.State, kind canonical.Kind, dir canonical.Direction) (int32, bool) {
	id, ok := r.toWire[packetKey{v: v, state: state, kind: kind, dir: dir}]
	return id, ok
}

// KindFor resolves a wire ID back to a canonical kind. A miss means
// "UnknownPacket": non-fatal, the caller ignores it.
func (r *Registry) KindFor(v version.Protocol, state canonical.State, wire int32, dir canonical.Direction) (canonical.Kind, bool) {
	k, ok := r.fromWire[packetIDKey{v: v, state: state, wire: wire, dir: dir}]
	return k, ok
}
