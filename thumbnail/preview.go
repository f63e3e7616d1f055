package thumbnail

import (
	"bytes"
	"image"
	"os/exec"
	"sync"

	"dupescan/logging"
)

// previewTags are the embedded-preview fields to try, smallest-first:
// camera JPEGs carry ThumbnailImage, RAW files usually a larger
// PreviewImage or JpgFromRaw.
var previewTags = []string{"ThumbnailImage", "PreviewImage", "JpgFromRaw"}

var (
	exiftoolPathOnce sync.Once
	exiftoolPath     string
)

func exiftoolBinary() string {
	exiftoolPathOnce.Do(func() {
		path, err := exec.LookPath("exiftool")
		if err != nil {
			logging.LogInfo("exiftool not found, embedded preview extraction disabled")
			return
		}
		exiftoolPath = path
	})
	return exiftoolPath
}

// extractPreview pulls an embedded reduced-resolution preview out of the
// file without decoding the full-resolution pixels. The preview is only
// accepted when its shorter side reaches maxSize, so thumbnails are never
// upscaled from a blurry source. Returns nil when no usable preview
// exists.
func extractPreview(path string, maxSize int) image.Image {
	binary := exiftoolBinary()
	if binary == "" {
		return nil
	}

	for _, tag := range previewTags {
		out, err := exec.Command(binary, "-b", "-"+tag, path).Output()
		if err != nil || len(out) == 0 {
			continue
		}

		img, _, err := image.Decode(bytes.NewReader(out))
		if err != nil {
			continue
		}

		bounds := img.Bounds()
		shorter := bounds.Dx()
		if bounds.Dy() < shorter {
			shorter = bounds.Dy()
		}
		if shorter >= maxSize {
			logging.DebugLog("using embedded %s preview for %s", tag, path)
			return img
		}
	}
	return nil
}
