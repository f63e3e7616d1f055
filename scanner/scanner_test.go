package scanner

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"dupescan/catalog"
	"dupescan/logging"
	"dupescan/metadata"
	"dupescan/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// brightnessGradient builds a grayscale gradient. Ascending and descending
// gradients have complementary 64-bit gradient hashes, so they can never
// land in the same visual cluster.
func brightnessGradient(ascending bool) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			v := uint8(x * 4)
			if !ascending {
				v = uint8(255 - x*4)
			}
			img.Set(x, y, color.RGBA{R: v, G: v, B: v, A: 255})
		}
	}
	return img
}

// encodePNG encodes with a selectable compression level; the same pixels
// at different levels give byte-different files with identical content.
func encodePNG(t *testing.T, img image.Image, level png.CompressionLevel) []byte {
	t.Helper()
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: level}
	require.NoError(t, enc.Encode(&buf, img))
	return buf.Bytes()
}

// buildScanFolder lays out the canonical test collection:
//
//	01..03  byte-identical ascending gradients (one exact group)
//	04      ascending gradient, different encoding (pixel twin of the
//	        exact group, which is claimed, so it stays ungrouped)
//	05..06  descending gradients in two encodings (one visual group,
//	        distance 0)
//	07      undecodable junk with an image extension
func buildScanFolder(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	ascending := encodePNG(t, brightnessGradient(true), png.DefaultCompression)
	for _, name := range []string{"01_a.png", "02_b.png", "03_c.png"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), ascending, 0644))
	}

	ascendingRaw := encodePNG(t, brightnessGradient(true), png.NoCompression)
	require.NotEqual(t, ascending, ascendingRaw)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "04_same.png"), ascendingRaw, 0644))

	descending := encodePNG(t, brightnessGradient(false), png.DefaultCompression)
	descendingRaw := encodePNG(t, brightnessGradient(false), png.NoCompression)
	require.NotEqual(t, descending, descendingRaw)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "05_v1.png"), descending, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "06_v2.png"), descendingRaw, 0644))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "07_broken.png"), []byte("junk"), 0644))

	return dir
}

func groupOfKind(t *testing.T, groups []types.DuplicateGroup, kind types.MatchKind) types.DuplicateGroup {
	t.Helper()
	for _, g := range groups {
		if g.Kind == kind {
			return g
		}
	}
	t.Fatalf("no group of kind %v", kind)
	return types.DuplicateGroup{}
}

func TestScanFindsExactAndVisualGroups(t *testing.T) {
	dir := buildScanFolder(t)
	cat, err := catalog.Open(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	defer cat.Close()

	result, err := Scan(context.Background(), cat, ScanOptions{
		FolderPath: dir,
		Threshold:  10,
		BatchSize:  3,
		MaxWorkers: 2,
	})
	require.NoError(t, err)

	require.Len(t, result.Paths, 7)
	assert.Equal(t, 7, result.Stats.Total)
	assert.Equal(t, 6, result.Stats.Computed)
	assert.Equal(t, 1, result.Stats.Failed)
	assert.Equal(t, 0, result.Stats.FromCache)

	require.Len(t, result.Groups, 2)

	exact := groupOfKind(t, result.Groups, types.MatchExact)
	got := append([]int(nil), exact.Indices...)
	sort.Ints(got)
	assert.Equal(t, []int{0, 1, 2}, got)

	visual := groupOfKind(t, result.Groups, types.MatchVisual)
	got = append([]int(nil), visual.Indices...)
	sort.Ints(got)
	assert.Equal(t, []int{4, 5}, got)
	assert.Equal(t, 0, visual.MinDistance)
}

func TestRescanServesFromCache(t *testing.T) {
	dir := buildScanFolder(t)
	cat, err := catalog.Open(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	defer cat.Close()

	opts := ScanOptions{FolderPath: dir, Threshold: 10}

	first, err := Scan(context.Background(), cat, opts)
	require.NoError(t, err)
	require.Equal(t, 6, first.Stats.Computed)

	second, err := Scan(context.Background(), cat, opts)
	require.NoError(t, err)
	assert.Equal(t, 6, second.Stats.FromCache)
	assert.Equal(t, 0, second.Stats.Computed)
	assert.Equal(t, 1, second.Stats.Failed, "undecodable file fails again, never cached")

	// Same groups either way.
	assert.ElementsMatch(t, first.Groups, second.Groups)
}

func TestScanWithDisabledCatalog(t *testing.T) {
	dir := buildScanFolder(t)

	result, err := Scan(context.Background(), catalog.Disabled(), ScanOptions{
		FolderPath: dir,
		Threshold:  10,
	})
	require.NoError(t, err)
	assert.Equal(t, 6, result.Stats.Computed)
	assert.Len(t, result.Groups, 2)
}

func TestScanCanceled(t *testing.T) {
	dir := buildScanFolder(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Scan(ctx, catalog.Disabled(), ScanOptions{FolderPath: dir, Threshold: 10})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCollectImagePathsOrderAndFilter(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"z.png", "a.jpg", "notes.txt", "b.webp"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644))
	}

	paths, err := CollectImagePaths(dir)
	require.NoError(t, err)
	require.Len(t, paths, 3)
	assert.Equal(t, filepath.Join(dir, "a.jpg"), paths[0])
	assert.Equal(t, filepath.Join(dir, "b.webp"), paths[1])
	assert.Equal(t, filepath.Join(dir, "z.png"), paths[2])
}

func TestIsImageFile(t *testing.T) {
	assert.True(t, IsImageFile("x.JPG"))
	assert.True(t, IsImageFile("x.webp"))
	assert.False(t, IsImageFile("x.txt"))
	assert.False(t, IsImageFile("x"))

	// RAW detection is shared with the metadata readers, so the two can
	// never disagree about what counts as RAW.
	assert.True(t, IsImageFile("x.cr2"))
	assert.True(t, metadata.IsRawFormat("x.cr2"))
	assert.True(t, IsImageFile("x.NEF"))
}

func TestScanLogsFileOutcomes(t *testing.T) {
	dir := buildScanFolder(t)
	logPath := filepath.Join(t.TempDir(), "debug.log")
	require.NoError(t, logging.SetupLogger(logPath))

	_, err := Scan(context.Background(), catalog.Disabled(), ScanOptions{
		FolderPath: dir,
		Threshold:  10,
	})
	logging.CloseLogger()
	require.NoError(t, err)

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, "PROCESSED: "+filepath.Join(dir, "01_a.png"))
	assert.Contains(t, out, "FAILED: "+filepath.Join(dir, "07_broken.png"))
}

func TestPrintReport(t *testing.T) {
	dir := buildScanFolder(t)
	cat, err := catalog.Open(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	defer cat.Close()

	result, err := Scan(context.Background(), cat, ScanOptions{
		FolderPath:    dir,
		Threshold:     10,
		WithSummaries: true,
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	PrintReport(&buf, cat, result)

	out := buf.String()
	assert.Contains(t, out, "Scanned 6 of 7 files")
	assert.Contains(t, out, "3 identical files")
	assert.Contains(t, out, "2 visually similar files (distance 0)")
	assert.Contains(t, out, "01_a.png")
	assert.Contains(t, out, "64x64")
}

func TestPrintReportNoDuplicates(t *testing.T) {
	var buf bytes.Buffer
	PrintReport(&buf, catalog.Disabled(), &ScanResult{Stats: ScanStats{Total: 2}})
	assert.Contains(t, buf.String(), "No duplicates found.")
}
