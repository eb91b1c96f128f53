package chunk

import (
	"bytes"
	"io"

	"github.com/bamboo-mc/bamboo/internal/canonical"
	"github.com/bamboo-mc/bamboo/internal/frame"
)

// BlocksPerSection is the fixed entry count of one 16×16×16 chunk section.
const BlocksPerSection = 4096

// Layout identifies one of the three wire representations a chunk section
// has used across vanilla's history.
type Layout int

const (
	// LayoutLegacy is the 1.13–1.15 indirect/direct palette format:
	// contiguous bit packing, no separate biome section.
	LayoutLegacy Layout = iota
	// LayoutBiomes116 is the 1.16–1.17 format: padded bit packing, plus a
	// per-chunk (not per-section) biome palette.
	LayoutBiomes116
	// LayoutBiomes118 is the 1.18+ format: padded bit packing, plus a
	// per-section biome sub-palette (4×4×4 entries).
	LayoutBiomes118
)

const minBitsPerBlock = 4

// Encode writes one canonical.ChunkSection to its wire representation
// under the given layout.
func Encode(layout Layout, s canonical.ChunkSection) ([]byte, error) {
	var buf bytes.Buffer

	if err := frame.WriteInt32(&buf, s.NonAirCount); err != nil {
		return nil, err
	}

	bitsPerBlock := BitsForPaletteSize(len(s.Palette), minBitsPerBlock)
	buf.WriteByte(byte(bitsPerBlock))

	if err := frame.WriteVarInt(&buf, int32(len(s.Palette))); err != nil {
		return nil, err
	}
	for _, id := range s.Palette {
		if err := frame.WriteVarInt(&buf, id); err != nil {
			return nil, err
		}
	}

	var longs []int64
	switch layout {
	case LayoutLegacy:
		longs = PackContiguous(s.Indices, bitsPerBlock)
	case LayoutBiomes116, LayoutBiomes118:
		longs = PackPadded(s.Indices, bitsPerBlock)
	}

	if err := frame.WriteVarInt(&buf, int32(len(longs))); err != nil {
		return nil, err
	}
	for _, l := range longs {
		if err := frame.WriteInt64(&buf, l); err != nil {
			return nil, err
		}
	}

	if layout == LayoutBiomes118 {
		// Per-section biome sub-palette: a single-entry palette (the
		// common case of one biome per section) needs zero index bits,
		// matching vanilla's "0 bits per entry" shortcut.
		if err := frame.WriteVarInt(&buf, 1); err != nil {
			return nil, err
		}
		if err := frame.WriteVarInt(&buf, 0); err != nil { // plains, by convention
			return nil, err
		}
	}

	return buf.Bytes(), nil
}

// Decode reverses Encode. count is the number of block entries the
// section holds (BlocksPerSection in production use; tests may pass a
// smaller count to keep fixtures short).
func Decode(layout Layout, data []byte, count int) (canonical.ChunkSection, error) {
	r := bytes.NewReader(data)

	nonAir, err := frame.ReadInt32(r)
	if err != nil {
		return canonical.ChunkSection{}, err
	}

	bitsByte := make([]byte, 1)
	if _, err := io.ReadFull(r, bitsByte); err != nil {
		return canonical.ChunkSection{}, err
	}
	bitsPerBlock := int(bitsByte[0])

	paletteLen, err := frame.ReadVarInt(r)
	if err != nil {
		return canonical.ChunkSection{}, err
	}
	palette := make([]int32, paletteLen)
	for i := range palette {
		palette[i], err = frame.ReadVarInt(r)
		if err != nil {
			return canonical.ChunkSection{}, err
		}
	}

	longCount, err := frame.ReadVarInt(r)
	if err != nil {
		return canonical.ChunkSection{}, err
	}
	longs := make([]int64, longCount)
	for i := range longs {
		longs[i], err = frame.ReadInt64(r)
		if err != nil {
			return canonical.ChunkSection{}, err
		}
	}

	var indices []uint16
	switch layout {
	case LayoutLegacy:
		indices = UnpackContiguous(longs, bitsPerBlock, count)
	case LayoutBiomes116, LayoutBiomes118:
		indices = UnpackPadded(longs, bitsPerBlock, count)
	}

	if layout == LayoutBiomes118 {
		biomePaletteLen, err := frame.ReadVarInt(r)
		if err != nil {
			return canonical.ChunkSection{}, err
		}
		for i := int32(0); i < biomePaletteLen; i++ {
			if _, err := frame.ReadVarInt(r); err != nil {
				return canonical.ChunkSection{}, err
			}
		}
	}

	return canonical.ChunkSection{
		Palette:      palette,
		Indices:      indices,
		BitsPerBlock: bitsPerBlock,
		NonAirCount:  nonAir,
	}, nil
}
