package v759

import (
	"bytes"
	"fmt"

	"github.com/bamboo-mc/bamboo/internal/canonical"
	"github.com/bamboo-mc/bamboo/internal/frame"
	"github.com/bamboo-mc/bamboo/internal/registry"
	"github.com/bamboo-mc/bamboo/internal/version"
)

// 1.19 entity-metadata type tags. Each entry is an index byte followed
// by a VarInt type tag and the value; the list ends with the 0xFF
// terminator index.
const (
	metaTypeByte   = 0
	metaTypeVarInt = 1
	metaTypeFloat  = 3
	metaTypeString = 4
	metaTypeSlot   = 6

	metaTerminator = 0xFF
)

func (c *Codec) encodeEntityMetadata(p canonical.EntityMetadata) ([]byte, error) {
	var buf bytes.Buffer
	if err := frame.WriteVarInt(&buf, p.EntityID); err != nil {
		return nil, err
	}
	for _, e := range p.Entries {
		if err := c.encodeMetadataEntry(&buf, e); err != nil {
			return nil, err
		}
	}
	buf.WriteByte(metaTerminator)
	return buf.Bytes(), nil
}

func (c *Codec) encodeMetadataEntry(buf *bytes.Buffer, e canonical.MetadataEntry) error {
	buf.WriteByte(e.Index)
	switch v := e.Value.(type) {
	case canonical.MetaByte:
		if err := frame.WriteVarInt(buf, metaTypeByte); err != nil {
			return err
		}
		buf.WriteByte(v.Value)
	case canonical.MetaVarInt:
		if err := frame.WriteVarInt(buf, metaTypeVarInt); err != nil {
			return err
		}
		return frame.WriteVarInt(buf, v.Value)
	case canonical.MetaFloat:
		if err := frame.WriteVarInt(buf, metaTypeFloat); err != nil {
			return err
		}
		return frame.WriteFloat32(buf, v.Value)
	case canonical.MetaString:
		if err := frame.WriteVarInt(buf, metaTypeString); err != nil {
			return err
		}
		return frame.WriteString(buf, v.Value)
	case canonical.MetaItem:
		if err := frame.WriteVarInt(buf, metaTypeSlot); err != nil {
			return err
		}
		return c.encodeSlot(buf, v.Value)
	default:
		return fmt.Errorf("v759: unhandled metadata value %T", e.Value)
	}
	return nil
}

func (c *Codec) encodeEntityEquipment(p canonical.EntityEquipment) ([]byte, error) {
	var buf bytes.Buffer
	if err := frame.WriteVarInt(&buf, p.EntityID); err != nil {
		return nil, err
	}
	// Modern equipment packets carry a list of slot entries; the top bit
	// of the slot byte flags a following entry. A single entry keeps the
	// bit clear.
	buf.WriteByte(byte(p.Slot) & 0x7F)
	if err := c.encodeSlot(&buf, p.Item); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// encodeSlot writes the modern slot format: a presence bool, then the
// VarInt item ID, count, and NBT (a single 0 end-tag byte when absent).
// The legacy damage field has no wire representation here; versions that
// fold damage into NBT carry it there, which this codec passes through
// opaquely.
func (c *Codec) encodeSlot(buf *bytes.Buffer, s canonical.ItemStack) error {
	items, _ := c.reg.Items(version.V759)
	wireID, ok := items.ToVersion(s.ItemID)
	if s.Empty() || !ok || wireID == registry.FallbackItemID {
		return frame.WriteBool(buf, false)
	}
	if err := frame.WriteBool(buf, true); err != nil {
		return err
	}
	if err := frame.WriteVarInt(buf, wireID); err != nil {
		return err
	}
	buf.WriteByte(byte(s.Count))
	if len(s.NBT) == 0 {
		buf.WriteByte(0)
		return nil
	}
	_, err := buf.Write(s.NBT)
	return err
}
