// Package scanner drives a duplicate scan: it enumerates image files,
// resolves fingerprints through the catalog (computing only on a miss),
// and hands the complete fingerprint set to the clusterer. The catalog is
// an injected handle, so the scanner works unchanged against a disabled
// cache.
package scanner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"dupescan/catalog"
	"dupescan/cluster"
	"dupescan/fingerprint"
	"dupescan/logging"
	"dupescan/metadata"
	"dupescan/signalhandler"
	"dupescan/types"

	"github.com/schollz/progressbar/v3"
)

// ScanOptions defines the options for a duplicate scan.
type ScanOptions struct {
	// FolderPath is the directory to scan.
	FolderPath string

	// Threshold is the maximum perceptual-hash Hamming distance for a
	// visual match.
	Threshold int

	// BatchSize bounds how many fingerprints are computed per batch, so
	// cancellation takes effect between batches.
	BatchSize int

	// MaxWorkers bounds concurrent fingerprint computations.
	MaxWorkers int

	// ShowProgress enables the terminal progress bar.
	ShowProgress bool

	// WithSummaries pre-reads metadata summaries for every group member
	// through the catalog, so the report can show them without touching
	// files again.
	WithSummaries bool
}

// ScanStats counts per-file outcomes of a scan.
type ScanStats struct {
	Total     int
	FromCache int
	Computed  int
	Failed    int
}

// ScanResult is the outcome of one scan: the enumerated paths (group
// indices point into this slice), the duplicate groups and the stats.
type ScanResult struct {
	Paths  []string
	Groups []types.DuplicateGroup
	Stats  ScanStats
}

// CollectImagePaths walks folder and returns every image file path in
// deterministic (lexical) order. Unreadable subtrees are skipped, not
// fatal.
func CollectImagePaths(folder string) ([]string, error) {
	var paths []string
	err := filepath.Walk(folder, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			logging.LogWarning("skipping unreadable path %s: %v", path, err)
			return nil
		}
		if !info.IsDir() && IsImageFile(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("cannot walk folder %s: %v", folder, err)
	}
	sort.Strings(paths)
	return paths, nil
}

// Scan fingerprints every image under opts.FolderPath and returns the
// duplicate groups. Individual unreadable or undecodable files are
// skipped, never fatal; ctx cancellation stops between batches and
// returns the context error.
func Scan(ctx context.Context, cat *catalog.Catalog, opts ScanOptions) (*ScanResult, error) {
	if opts.BatchSize < 1 {
		opts.BatchSize = 64
	}
	if opts.MaxWorkers < 1 {
		opts.MaxWorkers = signalhandler.GetOptimalProcs()
	}

	paths, err := CollectImagePaths(opts.FolderPath)
	if err != nil {
		return nil, err
	}

	result := &ScanResult{Paths: paths}
	result.Stats.Total = len(paths)

	var bar *progressbar.ProgressBar
	if opts.ShowProgress {
		bar = progressbar.Default(int64(len(paths)), "fingerprinting")
	}
	step := func() {
		if bar != nil {
			_ = bar.Add(1)
		}
	}

	entries := make([]cluster.Entry, 0, len(paths))

	for start := 0; start < len(paths); start += opts.BatchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		end := start + opts.BatchSize
		if end > len(paths) {
			end = len(paths)
		}

		entries = append(entries, scanBatch(ctx, cat, paths, start, end, opts.MaxWorkers, &result.Stats, step)...)
	}

	if bar != nil {
		_ = bar.Finish()
	}

	result.Groups = cluster.FindDuplicates(entries, opts.Threshold)

	if opts.WithSummaries {
		for _, g := range result.Groups {
			for _, idx := range g.Indices {
				metadata.CachedSummary(cat, paths[idx])
			}
		}
	}

	logging.DebugLog("scan of %s: %d files, %d cached, %d computed, %d failed, %d groups",
		opts.FolderPath, result.Stats.Total, result.Stats.FromCache,
		result.Stats.Computed, result.Stats.Failed, len(result.Groups))

	return result, nil
}

// identity pins a file's (size, mtime) as observed before hashing, so a
// cache write never pairs fresh hashes with a newer identity.
type identity struct {
	size    int64
	mtimeNS int64
}

// scanBatch resolves fingerprints for paths[start:end]: catalog hits are
// taken as-is, misses fan out to the fingerprint workers and completed
// results are written back. Items whose computation fails contribute
// nothing beyond a Failed count.
func scanBatch(ctx context.Context, cat *catalog.Catalog, paths []string, start, end, maxWorkers int, stats *ScanStats, step func()) []cluster.Entry {
	var entries []cluster.Entry
	var missing []fingerprint.Item
	identities := make(map[int]identity)

	for idx := start; idx < end; idx++ {
		path := paths[idx]

		if fp, ok := cat.GetFingerprint(path); ok {
			entries = append(entries, cluster.Entry{Index: idx, Fingerprint: fp})
			stats.FromCache++
			step()
			continue
		}

		size, mtimeNS, err := catalog.FileIdentity(path)
		if err != nil {
			logging.LogFileProcessed(path, false, err.Error())
			stats.Failed++
			step()
			continue
		}
		identities[idx] = identity{size: size, mtimeNS: mtimeNS}
		missing = append(missing, fingerprint.Item{Index: idx, Path: path})
	}

	for _, res := range fingerprint.ComputeBatch(ctx, missing, maxWorkers) {
		step()
		if res.Fingerprint == nil {
			if res.Err != nil {
				logging.LogFileProcessed(paths[res.Index], false, res.Err.Error())
			}
			stats.Failed++
			continue
		}

		id := identities[res.Index]
		cat.PutFingerprint(paths[res.Index], id.size, id.mtimeNS, *res.Fingerprint)
		entries = append(entries, cluster.Entry{Index: res.Index, Fingerprint: *res.Fingerprint})
		stats.Computed++
		logging.LogFileProcessed(paths[res.Index], true, "")
	}

	return entries
}
