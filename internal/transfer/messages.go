package transfer

import (
	"fmt"
	"net"

	"github.com/bamboo-mc/bamboo/internal/canonical"
	"github.com/google/uuid"
)

// NewConnection announces a client connection to the server. The
// connection's own yamux stream ID already addresses it (see the package
// doc), so this control message only needs to carry the player's identity
// and the information the server might want before any Play packet
// arrives. RemoteAddr conveys the client's real address across the link;
// the server may trust it or ignore it.
type NewConnection struct {
	UUID       uuid.UUID
	Username   string
	Version    int32
	RemoteAddr string
}

func EncodeNewConnection(m NewConnection) []byte {
	w := NewWriter()
	w.UUID(m.UUID).String(m.Username).VarInt(m.Version).String(m.RemoteAddr)
	return w.Payload()
}

func DecodeNewConnection(payload []byte) (NewConnection, error) {
	r := NewReader(payload)
	var m NewConnection
	var err error
	if m.UUID, err = r.UUID(); err != nil {
		return m, err
	}
	if m.Username, err = r.String(); err != nil {
		return m, err
	}
	if m.Version, err = r.VarInt(); err != nil {
		return m, err
	}
	if m.RemoteAddr, err = r.String(); err != nil {
		return m, err
	}
	return m, nil
}

// RemoveConnection carries no fields: the stream closing is itself the
// signal, but an explicit record lets the server distinguish "client
// disconnected cleanly" from "link died" in its logs.
func EncodeRemoveConnection() []byte { return nil }

// Heartbeat keeps the link's reader loop distinguishable from a stalled
// connection even when no player traffic is flowing.
type Heartbeat struct {
	OnlinePlayers int32
}

func EncodeHeartbeat(m Heartbeat) []byte {
	return NewWriter().VarInt(m.OnlinePlayers).Payload()
}

func DecodeHeartbeat(payload []byte) (Heartbeat, error) {
	r := NewReader(payload)
	n, err := r.VarInt()
	return Heartbeat{OnlinePlayers: n}, err
}

// PauseConnection/ResumeConnection carry the backpressure signal:
// the worker tells the server to stop pushing this connection's
// clientbound traffic (Pause) and later to resume it once its write
// buffer has drained below the low-water mark.
func EncodePauseConnection() []byte  { return nil }
func EncodeResumeConnection() []byte { return nil }

// EncodeCanonical turns a canonical packet into a transfer Record
// (Kind, Payload), for the subset of canonical kinds that actually cross
// the proxy↔server boundary during Play. Packets scoped to Handshake/
// Status/Login never reach this function: those are handled entirely by
// the proxy's connection state machine (internal/proxyconn) before a
// server-side connection exists at all.
func EncodeCanonical(pkt canonical.Packet) (Kind, []byte, error) {
	switch p := pkt.(type) {
	case canonical.JoinGame:
		w := NewWriter()
		w.I32(p.EntityID).Bool(p.Hardcore).String(p.Dimension).
			I32(p.DimensionCount).I32(p.MaxPlayers).I32(p.ViewDistance).
			Bool(p.ReducedDebugInfo).Bool(p.RespawnScreen)
		return KindJoinGame, w.Payload(), nil
	case canonical.KeepAliveClientbound:
		return KindKeepAliveClientbound, NewWriter().I64(p.Nonce).Payload(), nil
	case canonical.KeepAliveServerbound:
		return KindKeepAliveServerbound, NewWriter().I64(p.Nonce).Payload(), nil
	case canonical.PlayerPositionLook:
		w := NewWriter()
		w.F64(p.X).F64(p.Y).F64(p.Z).F32(p.Yaw).F32(p.Pitch)
		w.VarInt(int32(p.Flags)).I32(p.TeleportID)
		return KindPlayerPositionLook, w.Payload(), nil
	case canonical.BlockChange:
		w := NewWriter()
		w.I32(p.Position.X).I32(p.Position.Y).I32(p.Position.Z).I32(p.BlockID)
		return KindBlockChange, w.Payload(), nil
	case canonical.ChunkData:
		w := NewWriter()
		w.I32(p.ChunkX).I32(p.ChunkZ)
		w.ArrayLen(len(p.Sections))
		for _, s := range p.Sections {
			w.VarInt(int32(len(s.Palette)))
			for _, id := range s.Palette {
				w.I32(id)
			}
			w.VarInt(int32(len(s.Indices)))
			for _, idx := range s.Indices {
				w.VarInt(int32(idx))
			}
			w.VarInt(int32(s.BitsPerBlock)).I32(s.NonAirCount)
		}
		return KindChunkData, w.Payload(), nil
	case canonical.TimeUpdate:
		return KindTimeUpdate, NewWriter().I64(p.WorldAge).I64(p.TimeOfDay).Payload(), nil
	case canonical.Disconnect:
		return KindDisconnect, NewWriter().String(p.ReasonJSON).Payload(), nil
	case canonical.PluginMessage:
		return KindPluginMessage, NewWriter().String(p.Channel).ByteSlice(p.Data).Payload(), nil
	case canonical.EntityEquipment:
		w := NewWriter()
		w.I32(p.EntityID).VarInt(p.Slot)
		writeItemStack(w, p.Item)
		return KindEntityEquipment, w.Payload(), nil
	case canonical.EntityMetadata:
		w := NewWriter()
		w.I32(p.EntityID)
		w.ArrayLen(len(p.Entries))
		for _, e := range p.Entries {
			w.VarInt(int32(e.Index))
			if err := writeMetadataValue(w, e.Value); err != nil {
				return 0, nil, err
			}
		}
		return KindEntityMetadata, w.Payload(), nil
	default:
		return 0, nil, fmt.Errorf("transfer: canonical kind %v does not cross the link", pkt.Kind())
	}
}

// DecodeCanonical reverses EncodeCanonical.
func DecodeCanonical(kind Kind, payload []byte) (canonical.Packet, error) {
	r := NewReader(payload)
	switch kind {
	case KindJoinGame:
		var p canonical.JoinGame
		var err error
		if p.EntityID, err = r.I32(); err != nil {
			return nil, err
		}
		if p.Hardcore, err = r.Bool(); err != nil {
			return nil, err
		}
		if p.Dimension, err = r.String(); err != nil {
			return nil, err
		}
		if p.DimensionCount, err = r.I32(); err != nil {
			return nil, err
		}
		if p.MaxPlayers, err = r.I32(); err != nil {
			return nil, err
		}
		if p.ViewDistance, err = r.I32(); err != nil {
			return nil, err
		}
		if p.ReducedDebugInfo, err = r.Bool(); err != nil {
			return nil, err
		}
		if p.RespawnScreen, err = r.Bool(); err != nil {
			return nil, err
		}
		return p, nil
	case KindKeepAliveClientbound:
		nonce, err := r.I64()
		return canonical.KeepAliveClientbound{Nonce: nonce}, err
	case KindKeepAliveServerbound:
		nonce, err := r.I64()
		return canonical.KeepAliveServerbound{Nonce: nonce}, err
	case KindPlayerPositionLook:
		var p canonical.PlayerPositionLook
		var err error
		if p.X, err = r.F64(); err != nil {
			return nil, err
		}
		if p.Y, err = r.F64(); err != nil {
			return nil, err
		}
		if p.Z, err = r.F64(); err != nil {
			return nil, err
		}
		if p.Yaw, err = r.F32(); err != nil {
			return nil, err
		}
		if p.Pitch, err = r.F32(); err != nil {
			return nil, err
		}
		flags, err := r.VarInt()
		if err != nil {
			return nil, err
		}
		p.Flags = byte(flags)
		if p.TeleportID, err = r.I32(); err != nil {
			return nil, err
		}
		return p, nil
	case KindBlockChange:
		var p canonical.BlockChange
		var err error
		if p.Position.X, err = r.I32(); err != nil {
			return nil, err
		}
		if p.Position.Y, err = r.I32(); err != nil {
			return nil, err
		}
		if p.Position.Z, err = r.I32(); err != nil {
			return nil, err
		}
		if p.BlockID, err = r.I32(); err != nil {
			return nil, err
		}
		return p, nil
	case KindChunkData:
		var p canonical.ChunkData
		var err error
		if p.ChunkX, err = r.I32(); err != nil {
			return nil, err
		}
		if p.ChunkZ, err = r.I32(); err != nil {
			return nil, err
		}
		sectionCount, err := r.ArrayLen()
		if err != nil {
			return nil, err
		}
		p.Sections = make([]canonical.ChunkSection, sectionCount)
		for i := range p.Sections {
			s := &p.Sections[i]
			paletteLen, err := r.VarInt()
			if err != nil {
				return nil, err
			}
			s.Palette = make([]int32, paletteLen)
			for j := range s.Palette {
				if s.Palette[j], err = r.I32(); err != nil {
					return nil, err
				}
			}
			idxLen, err := r.VarInt()
			if err != nil {
				return nil, err
			}
			s.Indices = make([]uint16, idxLen)
			for j := range s.Indices {
				v, err := r.VarInt()
				if err != nil {
					return nil, err
				}
				s.Indices[j] = uint16(v)
			}
			bits, err := r.VarInt()
			if err != nil {
				return nil, err
			}
			s.BitsPerBlock = int(bits)
			if s.NonAirCount, err = r.I32(); err != nil {
				return nil, err
			}
		}
		return p, nil
	case KindTimeUpdate:
		var p canonical.TimeUpdate
		var err error
		if p.WorldAge, err = r.I64(); err != nil {
			return nil, err
		}
		if p.TimeOfDay, err = r.I64(); err != nil {
			return nil, err
		}
		return p, nil
	case KindDisconnect:
		reason, err := r.String()
		return canonical.Disconnect{ReasonJSON: reason}, err
	case KindPluginMessage:
		var p canonical.PluginMessage
		var err error
		if p.Channel, err = r.String(); err != nil {
			return nil, err
		}
		if p.Data, err = r.ByteSlice(); err != nil {
			return nil, err
		}
		return p, nil
	case KindEntityEquipment:
		var p canonical.EntityEquipment
		var err error
		if p.EntityID, err = r.I32(); err != nil {
			return nil, err
		}
		if p.Slot, err = r.VarInt(); err != nil {
			return nil, err
		}
		if p.Item, err = readItemStack(r); err != nil {
			return nil, err
		}
		return p, nil
	case KindEntityMetadata:
		var p canonical.EntityMetadata
		var err error
		if p.EntityID, err = r.I32(); err != nil {
			return nil, err
		}
		count, err := r.ArrayLen()
		if err != nil {
			return nil, err
		}
		p.Entries = make([]canonical.MetadataEntry, count)
		for i := range p.Entries {
			idx, err := r.VarInt()
			if err != nil {
				return nil, err
			}
			p.Entries[i].Index = byte(idx)
			if p.Entries[i].Value, err = readMetadataValue(r); err != nil {
				return nil, err
			}
		}
		return p, nil
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnknownKind, kind)
	}
}

// Metadata value discriminants on the link. These are the canonical type
// set's own ordinals, unrelated to any vanilla version's metadata tags.
const (
	metaValByte int32 = iota
	metaValVarInt
	metaValFloat
	metaValString
	metaValItem
)

func writeItemStack(w *Writer, s canonical.ItemStack) {
	w.VarInt(s.ItemID).VarInt(int32(s.Count)).VarInt(int32(s.Damage)).ByteSlice(s.NBT)
}

func readItemStack(r *Reader) (canonical.ItemStack, error) {
	var s canonical.ItemStack
	id, err := r.VarInt()
	if err != nil {
		return s, err
	}
	count, err := r.VarInt()
	if err != nil {
		return s, err
	}
	damage, err := r.VarInt()
	if err != nil {
		return s, err
	}
	nbt, err := r.ByteSlice()
	if err != nil {
		return s, err
	}
	s.ItemID, s.Count, s.Damage, s.NBT = id, int8(count), int16(damage), nbt
	if len(s.NBT) == 0 {
		s.NBT = nil
	}
	return s, nil
}

func writeMetadataValue(w *Writer, v canonical.MetadataValue) error {
	switch val := v.(type) {
	case canonical.MetaByte:
		w.VarInt(metaValByte).VarInt(int32(val.Value))
	case canonical.MetaVarInt:
		w.VarInt(metaValVarInt).VarInt(val.Value)
	case canonical.MetaFloat:
		w.VarInt(metaValFloat).F32(val.Value)
	case canonical.MetaString:
		w.VarInt(metaValString).String(val.Value)
	case canonical.MetaItem:
		w.VarInt(metaValItem)
		writeItemStack(w, val.Value)
	default:
		return fmt.Errorf("transfer: unhandled metadata value %T", v)
	}
	return nil
}

func readMetadataValue(r *Reader) (canonical.MetadataValue, error) {
	tag, err := r.VarInt()
	if err != nil {
		return nil, err
	}
	switch tag {
	case metaValByte:
		v, err := r.VarInt()
		return canonical.MetaByte{Value: byte(v)}, err
	case metaValVarInt:
		v, err := r.VarInt()
		return canonical.MetaVarInt{Value: v}, err
	case metaValFloat:
		v, err := r.F32()
		return canonical.MetaFloat{Value: v}, err
	case metaValString:
		v, err := r.String()
		return canonical.MetaString{Value: v}, err
	case metaValItem:
		v, err := readItemStack(r)
		return canonical.MetaItem{Value: v}, err
	default:
		return nil, fmt.Errorf("transfer: unknown metadata value tag %d", tag)
	}
}

// RemoteAddrString renders a net.Addr the way NewConnection's RemoteAddr
// field expects: host:port, falling back to String() for non-TCP addrs.
func RemoteAddrString(addr net.Addr) string {
	if addr == nil {
		return ""
	}
	return addr.String()
}
