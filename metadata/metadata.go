// Package metadata reads the lightweight per-file summary shown in
// duplicate reports: dimensions, capture date and modification date. EXIF
// parsing is pure Go; RAW formats fall back to an exiftool binary when one
// is installed. Every reader degrades to empty fields instead of failing.
package metadata

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"dupescan/catalog"
	"dupescan/logging"
	"dupescan/types"

	"github.com/barasher/go-exiftool"
	"github.com/bep/imagemeta"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// exifTimeLayout is how EXIF encodes DateTimeOriginal.
const exifTimeLayout = "2006:01:02 15:04:05"

// summaryTimeLayout is the normalized form stored in the catalog.
const summaryTimeLayout = "2006-01-02 15:04:05"

// ReadSummary builds a FileSummary for path. Fields that cannot be read
// stay zero-valued; the call itself never fails.
func ReadSummary(path string) types.FileSummary {
	summary := types.FileSummary{Filename: filepath.Base(path)}

	if info, err := os.Stat(path); err == nil {
		summary.FileSize = info.Size()
		summary.DateModified = info.ModTime().UTC().Format(summaryTimeLayout)
	}

	if f, err := os.Open(path); err == nil {
		if cfg, _, err := image.DecodeConfig(f); err == nil {
			summary.Width = cfg.Width
			summary.Height = cfg.Height
		}
		f.Close()
	}

	_, dateTaken := readExif(path)
	summary.DateTaken = dateTaken

	if IsRawFormat(path) && (summary.DateTaken == "" || !summary.HasDimensions()) {
		fillFromExiftool(path, &summary)
	}

	return summary
}

// Orientation returns the EXIF orientation for path, 1 (normal) when the
// file has none or cannot be read.
func Orientation(path string) int {
	orientation, _ := readExif(path)
	return orientation
}

// CachedSummary is a catalog-first read of the summary for path. On a miss
// the summary is read from the file and, when it carries any metadata,
// written back keyed by the current file identity.
func CachedSummary(cat *catalog.Catalog, path string) types.FileSummary {
	if summary, ok := cat.GetSummary(path); ok {
		return summary
	}

	summary := ReadSummary(path)
	if summary.Empty() {
		return summary
	}
	if size, mtimeNS, err := catalog.FileIdentity(path); err == nil {
		cat.PutSummary(path, size, mtimeNS, summary)
	}
	return summary
}

// exifWantedTags limits parsing to the two EXIF fields the summary needs.
var exifWantedTags = map[string]bool{
	"Orientation":      true,
	"DateTimeOriginal": true,
}

// readExif extracts orientation and capture date from the file's EXIF
// block. Returns (1, "") on any failure.
func readExif(path string) (orientation int, dateTaken string) {
	orientation = 1

	f, err := os.Open(path)
	if err != nil {
		return orientation, ""
	}
	defer f.Close()

	err = imagemeta.Decode(imagemeta.Options{
		R:       f,
		Sources: imagemeta.EXIF,
		ShouldHandleTag: func(ti imagemeta.TagInfo) bool {
			return exifWantedTags[ti.Tag]
		},
		HandleTag: func(ti imagemeta.TagInfo) error {
			switch ti.Tag {
			case "Orientation":
				if v, ok := tagValueInt(ti.Value); ok && v >= 1 && v <= 8 {
					orientation = v
				}
			case "DateTimeOriginal":
				dateTaken = normalizeExifTime(ti.Value)
			}
			return nil
		},
	})
	if err != nil {
		return 1, ""
	}

	return orientation, dateTaken
}

// tagValueInt extracts an integer from the loosely-typed tag value.
func tagValueInt(v any) (int, bool) {
	switch val := v.(type) {
	case int:
		return val, true
	case int64:
		return int(val), true
	case uint16:
		return int(val), true
	case uint32:
		return int(val), true
	case uint64:
		return int(val), true
	default:
		return 0, false
	}
}

// normalizeExifTime converts an EXIF timestamp value to the catalog's
// "YYYY-MM-DD HH:MM:SS" form. Unparseable values pass through unchanged so
// nothing is lost.
func normalizeExifTime(v any) string {
	switch val := v.(type) {
	case time.Time:
		return val.Format(summaryTimeLayout)
	case string:
		if t, err := time.Parse(exifTimeLayout, val); err == nil {
			return t.Format(summaryTimeLayout)
		}
		return val
	default:
		return ""
	}
}

var rawFormats = []string{".dng", ".raf", ".arw", ".nef", ".cr2", ".cr3", ".nrw", ".srf", ".orf", ".rw2", ".pef", ".raw"}

// IsRawFormat checks if a file is in RAW format.
func IsRawFormat(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, format := range rawFormats {
		if ext == format {
			return true
		}
	}
	return false
}

var (
	exiftoolOnce sync.Once
	exiftoolInst *exiftool.Exiftool
)

// sharedExiftool lazily starts one long-lived exiftool process. Returns
// nil when no exiftool binary is installed.
func sharedExiftool() *exiftool.Exiftool {
	exiftoolOnce.Do(func() {
		et, err := exiftool.NewExiftool()
		if err != nil {
			logging.LogWarning("exiftool unavailable, RAW metadata disabled: %v", err)
			return
		}
		exiftoolInst = et
	})
	return exiftoolInst
}

// fillFromExiftool fills missing summary fields for RAW files the pure-Go
// parsers cannot read.
func fillFromExiftool(path string, summary *types.FileSummary) {
	et := sharedExiftool()
	if et == nil {
		return
	}

	metas := et.ExtractMetadata(path)
	if len(metas) == 0 || metas[0].Err != nil {
		return
	}
	meta := metas[0]

	if summary.DateTaken == "" {
		if s, err := meta.GetString("DateTimeOriginal"); err == nil {
			if t, perr := time.Parse(exifTimeLayout, s); perr == nil {
				summary.DateTaken = t.Format(summaryTimeLayout)
			} else {
				summary.DateTaken = s
			}
		}
	}
	if !summary.HasDimensions() {
		w, werr := meta.GetInt("ImageWidth")
		h, herr := meta.GetInt("ImageHeight")
		if werr == nil && herr == nil {
			summary.Width = int(w)
			summary.Height = int(h)
		}
	}
}

// FormatFileSize renders a byte count for the duplicate report.
func FormatFileSize(bytes int64) string {
	switch {
	case bytes < 1024:
		return fmt.Sprintf("%d B", bytes)
	case bytes < 1024*1024:
		return fmt.Sprintf("%.1f KB", float64(bytes)/1024)
	case bytes < 1024*1024*1024:
		return fmt.Sprintf("%.1f MB", float64(bytes)/(1024*1024))
	default:
		return fmt.Sprintf("%.2f GB", float64(bytes)/(1024*1024*1024))
	}
}
