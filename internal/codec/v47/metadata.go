package v47

import (
	"bytes"
	"fmt"

	"github.com/bamboo-mc/bamboo/internal/canonical"
	"github.com/bamboo-mc/bamboo/internal/frame"
	"github.com/bamboo-mc/bamboo/internal/registry"
	"github.com/bamboo-mc/bamboo/internal/version"
)

// 1.8 entity-metadata type tags. Each entry's header byte packs the tag
// into the top three bits and the index into the low five; the list ends
// with the 0x7F terminator byte.
const (
	metaTypeByte   = 0
	metaTypeShort  = 1
	metaTypeInt    = 2
	metaTypeFloat  = 3
	metaTypeString = 4
	metaTypeSlot   = 5

	metaTerminator = 0x7F
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
	header := func(typeTag byte) byte { return typeTag<<5 | e.Index&0x1F }

	switch v := e.Value.(type) {
	case canonical.MetaByte:
		buf.WriteByte(header(metaTypeByte))
		buf.WriteByte(v.Value)
	case canonical.MetaVarInt:
		// 1.8 has no VarInt metadata type; the closest representation is
		// the fixed-width int.
		buf.WriteByte(header(metaTypeInt))
		return frame.WriteInt32(buf, v.Value)
	case canonical.MetaFloat:
		buf.WriteByte(header(metaTypeFloat))
		return frame.WriteFloat32(buf, v.Value)
	case canonical.MetaString:
		buf.WriteByte(header(metaTypeString))
		return frame.WriteString(buf, v.Value)
	case canonical.MetaItem:
		buf.WriteByte(header(metaTypeSlot))
		return c.encodeSlot(buf, v.Value)
	default:
		return fmt.Errorf("v47: unhandled metadata value %T", e.Value)
	}
	return nil
}

func (c *Codec) encodeEntityEquipment(p canonical.EntityEquipment) ([]byte, error) {
	var buf bytes.Buffer
	if err := frame.WriteVarInt(&buf, p.EntityID); err != nil {
		return nil, err
	}
	// 1.8 carries the slot as a short, not a VarInt.
	if err := writeInt16(&buf, int16(p.Slot)); err != nil {
		return nil, err
	}
	if err := c.encodeSlot(&buf, p.Item); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// encodeSlot writes the 1.8 slot format: item ID as a short (-1 for the
// empty stack), then count, damage, and the NBT blob (a single 0 byte
// when absent). The canonical item ID maps through the item table, with
// the empty stack as the fallback for items this version cannot show.
func (c *Codec) encodeSlot(buf *bytes.Buffer, s canonical.ItemStack) error {
	items, _ := c.reg.Items(version.V47)
	wireID, ok := items.ToVersion(s.ItemID)
	if s.Empty() || !ok || wireID == registry.FallbackItemID {
		return writeInt16(buf, -1)
	}
	if err := writeInt16(buf, int16(wireID)); err != nil {
		return err
	}
	buf.WriteByte(byte(s.Count))
	if err := writeInt16(buf, s.Damage); err != nil {
		return err
	}
	if len(s.NBT) == 0 {
		buf.WriteByte(0)
		return nil
	}
	_, err := buf.Write(s.NBT)
	return err
}

func writeInt16(buf *bytes.Buffer, v int16) error {
	buf.WriteByte(byte(v >> 8))
	buf.WriteByte(byte(v))
	return nil
}
