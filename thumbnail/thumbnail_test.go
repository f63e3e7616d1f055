package thumbnail

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestPNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 3), G: uint8(y * 5), B: 200, A: 255})
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func TestRasterRoundTrip(t *testing.T) {
	rgba := make([]byte, 6*4*4)
	for i := range rgba {
		rgba[i] = byte(i * 7)
	}

	encoded := encodeRaster(rgba, 6, 4)
	got, w, h, err := decodeRaster(encoded)
	require.NoError(t, err)
	assert.Equal(t, 6, w)
	assert.Equal(t, 4, h)
	assert.Equal(t, rgba, got)
}

func TestRasterRejectsCorruptData(t *testing.T) {
	_, _, _, err := decodeRaster(nil)
	assert.Error(t, err)

	_, _, _, err = decodeRaster([]byte("definitely not a raster"))
	assert.Error(t, err)

	// Valid header claiming the wrong pixel count.
	encoded := encodeRaster(make([]byte, 4*4*4), 4, 4)
	encoded[4] = 99 // width now lies
	_, _, _, err = decodeRaster(encoded)
	assert.Error(t, err)
}

func TestDiskCacheRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cache := NewDiskCache(filepath.Join(dir, "thumbs"))

	src := filepath.Join(dir, "photo.png")
	writeTestPNG(t, src, 10, 10)

	_, _, _, ok := cache.Get(src, 64)
	assert.False(t, ok)

	rgba := make([]byte, 8*8*4)
	cache.Put(src, 64, rgba, 8, 8)

	got, w, h, ok := cache.Get(src, 64)
	require.True(t, ok)
	assert.Equal(t, 8, w)
	assert.Equal(t, 8, h)
	assert.Equal(t, rgba, got)

	// A different target size addresses a different entry.
	_, _, _, ok = cache.Get(src, 128)
	assert.False(t, ok)
}

func TestDiskCacheKeyTracksFileIdentity(t *testing.T) {
	dir := t.TempDir()
	cache := NewDiskCache(filepath.Join(dir, "thumbs"))

	src := filepath.Join(dir, "photo.png")
	writeTestPNG(t, src, 10, 10)
	cache.Put(src, 64, make([]byte, 4*4*4), 4, 4)

	_, _, _, ok := cache.Get(src, 64)
	require.True(t, ok)

	// Touching the file changes its identity, so the old entry is simply
	// unreachable (orphaned, not corrupted).
	newTime := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(src, newTime, newTime))
	_, _, _, ok = cache.Get(src, 64)
	assert.False(t, ok)
}

func TestDisabledDiskCache(t *testing.T) {
	cache := NewDiskCache("")
	cache.Put("whatever.png", 64, make([]byte, 4), 1, 1)
	_, _, _, ok := cache.Get("whatever.png", 64)
	assert.False(t, ok)
}

func TestGenerateAndCacheRoundTrip(t *testing.T) {
	dir := t.TempDir()
	p := NewPipeline(filepath.Join(dir, "thumbs"))

	src := filepath.Join(dir, "photo.png")
	writeTestPNG(t, src, 100, 60)

	rgba, w, h := p.Generate(src, 32)
	assert.Equal(t, 32, w)
	assert.Less(t, h, 32, "aspect ratio preserved")
	assert.Len(t, rgba, w*h*4)

	// Second call must come back bit-identical from the cache.
	again, w2, h2 := p.Generate(src, 32)
	assert.Equal(t, w, w2)
	assert.Equal(t, h, h2)
	assert.Equal(t, rgba, again)

	_, _, _, ok := p.cache.Get(src, 32)
	assert.True(t, ok, "generation must have populated the cache")
}

func TestGenerateSmallImageIsNotUpscaled(t *testing.T) {
	dir := t.TempDir()
	p := NewPipeline(filepath.Join(dir, "thumbs"))

	src := filepath.Join(dir, "tiny.png")
	writeTestPNG(t, src, 8, 8)

	_, w, h := p.Generate(src, 400)
	assert.Equal(t, 8, w)
	assert.Equal(t, 8, h)
}

func TestGeneratePlaceholderOnFailure(t *testing.T) {
	dir := t.TempDir()
	p := NewPipeline(filepath.Join(dir, "thumbs"))

	bad := filepath.Join(dir, "broken.png")
	require.NoError(t, os.WriteFile(bad, []byte("not an image"), 0644))

	rgba, w, h := p.Generate(bad, 16)
	assert.Equal(t, 16, w)
	assert.Equal(t, 16, h)
	require.Len(t, rgba, 16*16*4)
	for _, v := range rgba {
		assert.Equal(t, byte(placeholderValue), v)
	}

	// Missing files get the same treatment.
	rgba, w, h = p.Generate(filepath.Join(dir, "missing.png"), 8)
	assert.Equal(t, 8, w)
	assert.Equal(t, 8, h)
	assert.Len(t, rgba, 8*8*4)
}

func TestGenerateBatchPreservesOrder(t *testing.T) {
	dir := t.TempDir()
	p := NewPipeline(filepath.Join(dir, "thumbs"))

	paths := make([]string, 4)
	for i := range paths {
		paths[i] = filepath.Join(dir, string(rune('a'+i))+".png")
		writeTestPNG(t, paths[i], 20+i, 20)
	}

	results := p.GenerateBatch(context.Background(), paths, 16, 2)
	require.Len(t, results, len(paths))
	for i, res := range results {
		assert.Equal(t, paths[i], res.Path)
		assert.NotEmpty(t, res.RGBA)
		assert.Len(t, res.RGBA, res.Width*res.Height*4)
	}
}

func TestGenerateBatchCanceled(t *testing.T) {
	dir := t.TempDir()
	p := NewPipeline(filepath.Join(dir, "thumbs"))

	src := filepath.Join(dir, "photo.png")
	writeTestPNG(t, src, 10, 10)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := p.GenerateBatch(ctx, []string{src}, 12, 1)
	require.Len(t, results, 1)
	assert.Equal(t, 12, results[0].Width)
	assert.Equal(t, 12, results[0].Height)
}

func TestApplyOrientation(t *testing.T) {
	// 2x1 image: red then blue.
	src := image.NewRGBA(image.Rect(0, 0, 2, 1))
	red := color.RGBA{R: 255, A: 255}
	blue := color.RGBA{B: 255, A: 255}
	src.SetRGBA(0, 0, red)
	src.SetRGBA(1, 0, blue)

	// 1 = unchanged.
	same := toRGBA(applyOrientation(src, 1))
	assert.Equal(t, red, same.RGBAAt(0, 0))
	assert.Equal(t, blue, same.RGBAAt(1, 0))

	// 2 = mirror horizontal.
	mirrored := toRGBA(applyOrientation(src, 2))
	assert.Equal(t, blue, mirrored.RGBAAt(0, 0))
	assert.Equal(t, red, mirrored.RGBAAt(1, 0))

	// 3 = rotate 180.
	flipped := toRGBA(applyOrientation(src, 3))
	assert.Equal(t, blue, flipped.RGBAAt(0, 0))
	assert.Equal(t, red, flipped.RGBAAt(1, 0))

	// 6 = rotate 90 clockwise: becomes 1x2 with red on top.
	rotated := toRGBA(applyOrientation(src, 6))
	assert.Equal(t, 1, rotated.Bounds().Dx())
	assert.Equal(t, 2, rotated.Bounds().Dy())
	assert.Equal(t, red, rotated.RGBAAt(0, 0))
	assert.Equal(t, blue, rotated.RGBAAt(0, 1))

	// 8 = rotate 90 counter-clockwise: blue on top.
	ccw := toRGBA(applyOrientation(src, 8))
	assert.Equal(t, blue, ccw.RGBAAt(0, 0))
	assert.Equal(t, red, ccw.RGBAAt(0, 1))
}
