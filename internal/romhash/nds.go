package romhash

import (
	"encoding/binary"
	"errors"
	"fmt"

	"romverify/internal/bytesource"
	"romverify/internal/system"
)

// DS header layout. Offsets are little-endian uint32 fields inside the
// 0x160-byte header; the icon/title block is always 0xA00 bytes.
const (
	ndsHeaderSize    = 0x160
	ndsIconTitleSize = 0xA00
	ndsARM9OffsetAt  = 0x20
	ndsARM9SizeAt    = 0x2C
	ndsARM7OffsetAt  = 0x30
	ndsARM7SizeAt    = 0x3C
	ndsIconTitleAt   = 0x68
)

type ndsRegions struct {
	arm9Offset, arm9Size uint32
	arm7Offset, arm7Size uint32
	iconOffset           uint32
}

func parseNDSHeader(header []byte) ndsRegions {
	le := binary.LittleEndian
	return ndsRegions{
		arm9Offset: le.Uint32(header[ndsARM9OffsetAt:]),
		arm9Size:   le.Uint32(header[ndsARM9SizeAt:]),
		arm7Offset: le.Uint32(header[ndsARM7OffsetAt:]),
		arm7Size:   le.Uint32(header[ndsARM7SizeAt:]),
		iconOffset: le.Uint32(header[ndsIconTitleAt:]),
	}
}

// ndsHash digests header, arm9, arm7 and icon/title, in that order.
func ndsHash(path string, sys system.System) (string, error) {
	if !bytesource.IsArchive(path) && !sys.HasExtension(bytesource.Ext(path)) {
		return "", fmt.Errorf("%w: %s is not a .%s file", ErrMalformedHeader, path, sys.InnerExtension())
	}
	src, err := bytesource.Open(path, sys.InnerExtension())
	if err != nil {
		if errors.Is(err, bytesource.ErrNoMatchingEntry) {
			return "", fmt.Errorf("%w: %w", ErrMalformedHeader, err)
		}
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	defer src.Close()

	header, err := readRegion(src, "header", 0, ndsHeaderSize)
	if err != nil {
		return "", err
	}
	regions := parseNDSHeader(header)

	iconTitle, err := readRegion(src, "icon/title", regions.iconOffset, ndsIconTitleSize)
	if err != nil {
		return "", err
	}
	arm9, err := readRegion(src, "arm9", regions.arm9Offset, regions.arm9Size)
	if err != nil {
		return "", err
	}
	arm7, err := readRegion(src, "arm7", regions.arm7Offset, regions.arm7Size)
	if err != nil {
		return "", err
	}

	h := newDigest()
	h.Write(header)
	h.Write(arm9)
	h.Write(arm7)
	h.Write(iconTitle)
	return render(h), nil
}

func readRegion(src bytesource.Source, name string, offset, size uint32) ([]byte, error) {
	if int64(offset)+int64(size) > src.Size() {
		return nil, fmt.Errorf("%w: %s region %#x+%#x exceeds %s (%d bytes)",
			ErrMalformedHeader, name, offset, size, src.Name(), src.Size())
	}
	data, err := src.ReadExact(int64(offset), int(size))
	if err != nil {
		return nil, fmt.Errorf("%w: %s region: %w", ErrMalformedHeader, name, err)
	}
	return data, nil
}
