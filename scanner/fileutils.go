package scanner

import (
	"path/filepath"
	"strings"

	"dupescan/metadata"
)

// IsImageFile checks if a file extension belongs to an image file.
func IsImageFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg", ".png", ".gif", ".bmp", ".webp", ".tif", ".tiff":
		return true
	}
	// RAW files are enumerated so thumbnails and summaries can use their
	// embedded previews; fingerprinting skips them when the pixel data
	// cannot be decoded.
	return metadata.IsRawFormat(path)
}
