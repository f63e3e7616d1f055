package thumbnail

import (
	"image"
	"os"
	"path/filepath"
	"strings"

	"dupescan/logging"

	"gocv.io/x/gocv"
)

// reducedFlags maps a JPEG DCT reduction factor to the OpenCV read flag
// that decodes at 1/factor resolution without touching the full pixel
// data.
var reducedFlags = map[int]gocv.IMReadFlag{
	2: gocv.IMReadReducedColor2,
	4: gocv.IMReadReducedColor4,
	8: gocv.IMReadReducedColor8,
}

// decodeJPEGReduced decodes a JPEG at the smallest DCT-reduced scale whose
// shorter side is still at least maxSize. Returns nil for non-JPEG files,
// for images too small to benefit from any reduction, and on any decode
// failure, handing the pipeline to the next tier.
func decodeJPEGReduced(path string, maxSize int) image.Image {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".jpg" && ext != ".jpeg" {
		return nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	cfg, _, err := image.DecodeConfig(f)
	f.Close()
	if err != nil {
		return nil
	}

	shorter := cfg.Width
	if cfg.Height < shorter {
		shorter = cfg.Height
	}

	factor := 0
	for _, candidate := range []int{8, 4, 2} {
		if shorter/candidate >= maxSize {
			factor = candidate
			break
		}
	}
	if factor == 0 {
		// No reduction keeps us above the target, so a reduced decode
		// buys nothing over the full-decode tier.
		return nil
	}

	mat := gocv.IMRead(path, reducedFlags[factor])
	if mat.Empty() {
		return nil
	}
	defer mat.Close()

	img, err := mat.ToImage()
	if err != nil {
		logging.DebugLog("reduced decode of %s failed: %v", path, err)
		return nil
	}
	return img
}
