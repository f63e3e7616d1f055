// Package thumbnail produces display rasters at minimum decode cost. A
// content-addressed disk cache sits in front of an ordered chain of decode
// strategies: embedded preview, reduced-scale JPEG decode, then a full
// decode. Generation never fails; the worst case is a placeholder raster.
package thumbnail

import (
	"context"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"dupescan/logging"
	"dupescan/metadata"

	"github.com/nfnt/resize"
	"golang.org/x/sync/errgroup"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// placeholderValue fills every channel of the fallback raster: a neutral
// dark gray tile the display layer can always render.
const placeholderValue = 60

// strategy is one decode tier: it returns decoded pixels (not yet resized
// or oriented) or nil to hand over to the next tier.
type strategy func(path string, maxSize int) image.Image

// Pipeline generates thumbnails backed by a disk cache. The zero value is
// not usable; construct with NewPipeline.
type Pipeline struct {
	cache      *DiskCache
	strategies []strategy
}

// NewPipeline creates a pipeline caching under cacheDir. An empty or
// uncreatable cacheDir disables caching but not generation.
func NewPipeline(cacheDir string) *Pipeline {
	return &Pipeline{
		cache: NewDiskCache(cacheDir),
		strategies: []strategy{
			extractPreview,
			decodeJPEGReduced,
			fullDecode,
		},
	}
}

// fullDecode is the correctness fallback: decode everything at native
// resolution.
func fullDecode(path string, _ int) image.Image {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		logging.LogFileProcessed(path, false, err.Error())
		return nil
	}
	return img
}

// Generate returns an RGBA raster for path whose longer side is at most
// maxSize. The disk cache is consulted first; on a miss the decode tiers
// run in order and the winner's result is resized, orientation-corrected,
// cached and returned. On total failure the result is a solid
// maxSize×maxSize placeholder, never an error.
func (p *Pipeline) Generate(path string, maxSize int) (rgba []byte, width, height int) {
	if rgba, w, h, ok := p.cache.Get(path, maxSize); ok {
		return rgba, w, h
	}

	orientation := metadata.Orientation(path)

	for _, decode := range p.strategies {
		img := decode(path, maxSize)
		if img == nil {
			continue
		}

		thumb := resize.Thumbnail(uint(maxSize), uint(maxSize), img, resize.Bilinear)
		oriented := toRGBA(applyOrientation(thumb, orientation))
		bounds := oriented.Bounds()

		p.cache.Put(path, maxSize, oriented.Pix, bounds.Dx(), bounds.Dy())
		return oriented.Pix, bounds.Dx(), bounds.Dy()
	}

	logging.LogWarning("all decode tiers failed for %s, using placeholder", path)
	return placeholder(maxSize)
}

// placeholder returns the solid fallback raster.
func placeholder(size int) (rgba []byte, width, height int) {
	pixels := make([]byte, size*size*4)
	for i := range pixels {
		pixels[i] = placeholderValue
	}
	return pixels, size, size
}

// Result is one GenerateBatch output.
type Result struct {
	Path   string
	RGBA   []byte
	Width  int
	Height int
}

// GenerateBatch produces one result per input path, in input order, with
// at most maxWorkers thumbnails decoding concurrently. Paths not started
// before ctx is canceled come back as placeholders; the batch itself never
// fails.
func (p *Pipeline) GenerateBatch(ctx context.Context, paths []string, maxSize, maxWorkers int) []Result {
	results := make([]Result, len(paths))

	if maxWorkers < 1 {
		maxWorkers = 1
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxWorkers)

	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			var rgba []byte
			var w, h int
			if ctx.Err() != nil {
				rgba, w, h = placeholder(maxSize)
			} else {
				rgba, w, h = p.Generate(path, maxSize)
			}
			results[i] = Result{Path: path, RGBA: rgba, Width: w, Height: h}
			return nil
		})
	}
	_ = g.Wait()

	return results
}
