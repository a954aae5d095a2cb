package testsupport

import "encoding/binary"

// NDSLayout positions the regions of a synthetic Nintendo DS image.
type NDSLayout struct {
	ARM9Offset uint32
	ARM9Size   uint32
	ARM7Offset uint32
	ARM7Size   uint32
	IconOffset uint32
	// Length pads the image to at least this many bytes.
	Length int
}

// NDSImage is a synthetic DS ROM together with the regions a structured hash
// covers, so tests can assemble expected digests independently.
type NDSImage struct {
	Bytes  []byte
	Header []byte
	ARM9   []byte
	ARM7   []byte
	Icon   []byte
}

const (
	ndsHeaderSize = 0x160
	ndsIconSize   = 0xA00
)

// DefaultNDSLayout returns a compact, non-overlapping layout.
func DefaultNDSLayout() NDSLayout {
	return NDSLayout{
		ARM9Offset: 0x200,
		ARM9Size:   0x180,
		ARM7Offset: 0x400,
		ARM7Size:   0xC0,
		IconOffset: 0x600,
	}
}

// BuildNDS renders an image for layout. Each region is filled with its own
// byte pattern; padding between regions is zero.
func BuildNDS(layout NDSLayout) NDSImage {
	end := int(layout.IconOffset) + ndsIconSize
	for _, candidate := range []int{
		int(layout.ARM9Offset + layout.ARM9Size),
		int(layout.ARM7Offset + layout.ARM7Size),
		ndsHeaderSize,
		layout.Length,
	} {
		if candidate > end {
			end = candidate
		}
	}
	image := make([]byte, end)

	copy(image, Pattern(ndsHeaderSize, 0x10))
	binary.LittleEndian.PutUint32(image[0x20:], layout.ARM9Offset)
	binary.LittleEndian.PutUint32(image[0x2C:], layout.ARM9Size)
	binary.LittleEndian.PutUint32(image[0x30:], layout.ARM7Offset)
	binary.LittleEndian.PutUint32(image[0x3C:], layout.ARM7Size)
	binary.LittleEndian.PutUint32(image[0x68:], layout.IconOffset)

	copy(image[layout.ARM9Offset:], Pattern(int(layout.ARM9Size), 0x90))
	copy(image[layout.ARM7Offset:], Pattern(int(layout.ARM7Size), 0x70))
	copy(image[layout.IconOffset:], Pattern(ndsIconSize, 0x33))

	return NDSImage{
		Bytes:  image,
		Header: image[:ndsHeaderSize],
		ARM9:   image[layout.ARM9Offset : layout.ARM9Offset+layout.ARM9Size],
		ARM7:   image[layout.ARM7Offset : layout.ARM7Offset+layout.ARM7Size],
		Icon:   image[layout.IconOffset : layout.IconOffset+ndsIconSize],
	}
}
