package thumbnail

import (
	"encoding/binary"
	"fmt"

	"github.com/klauspost/compress/s2"
)

// Cache entries are stored as a small fixed header followed by the
// S2-compressed RGBA pixels. S2 keeps writes cheap (much faster than any
// picture codec) while staying lossless, which the round-trip contract
// requires.
const (
	rasterMagic      = 0x544D4231 // "TMB1"
	rasterHeaderSize = 12
)

// encodeRaster serializes an RGBA buffer with its dimensions.
func encodeRaster(rgba []byte, width, height int) []byte {
	header := make([]byte, rasterHeaderSize)
	binary.LittleEndian.PutUint32(header[0:4], rasterMagic)
	binary.LittleEndian.PutUint32(header[4:8], uint32(width))
	binary.LittleEndian.PutUint32(header[8:12], uint32(height))
	return append(header, s2.Encode(nil, rgba)...)
}

// decodeRaster parses data produced by encodeRaster. Any structural
// mismatch is an error so corrupt cache files surface as misses.
func decodeRaster(data []byte) (rgba []byte, width, height int, err error) {
	if len(data) < rasterHeaderSize {
		return nil, 0, 0, fmt.Errorf("raster too short: %d bytes", len(data))
	}
	if binary.LittleEndian.Uint32(data[0:4]) != rasterMagic {
		return nil, 0, 0, fmt.Errorf("bad raster magic")
	}
	width = int(binary.LittleEndian.Uint32(data[4:8]))
	height = int(binary.LittleEndian.Uint32(data[8:12]))

	rgba, err = s2.Decode(nil, data[rasterHeaderSize:])
	if err != nil {
		return nil, 0, 0, fmt.Errorf("cannot decompress raster: %v", err)
	}
	if len(rgba) != width*height*4 {
		return nil, 0, 0, fmt.Errorf("raster size mismatch: %d bytes for %dx%d", len(rgba), width, height)
	}
	return rgba, width, height, nil
}
