package scanner

import (
	"fmt"
	"io"
	"sort"

	"dupescan/catalog"
	"dupescan/metadata"
	"dupescan/types"
)

// PrintReport writes a human-readable duplicate report. Groups print
// exact-first and largest-first within a kind, members in index order with
// their catalog-backed summaries.
func PrintReport(w io.Writer, cat *catalog.Catalog, result *ScanResult) {
	s := result.Stats
	fmt.Fprintf(w, "Scanned %d of %d files (%d cached, %d computed, %d failed)\n",
		s.Total-s.Failed, s.Total, s.FromCache, s.Computed, s.Failed)

	if len(result.Groups) == 0 {
		fmt.Fprintln(w, "No duplicates found.")
		return
	}

	groups := append([]types.DuplicateGroup(nil), result.Groups...)
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].Kind != groups[j].Kind {
			return groups[i].Kind == types.MatchExact
		}
		return len(groups[i].Indices) > len(groups[j].Indices)
	})

	fmt.Fprintf(w, "Found %d duplicate groups:\n", len(groups))
	for n, g := range groups {
		switch g.Kind {
		case types.MatchExact:
			fmt.Fprintf(w, "\nGroup %d: %d identical files\n", n+1, len(g.Indices))
		case types.MatchVisual:
			fmt.Fprintf(w, "\nGroup %d: %d visually similar files (distance %d)\n",
				n+1, len(g.Indices), g.MinDistance)
		}

		indices := append([]int(nil), g.Indices...)
		sort.Ints(indices)
		for _, idx := range indices {
			path := result.Paths[idx]
			summary := metadata.CachedSummary(cat, path)

			detail := metadata.FormatFileSize(summary.FileSize)
			if summary.HasDimensions() {
				detail = fmt.Sprintf("%s, %dx%d", detail, summary.Width, summary.Height)
			}
			if summary.DateTaken != "" {
				detail = fmt.Sprintf("%s, taken %s", detail, summary.DateTaken)
			}
			fmt.Fprintf(w, "  %s (%s)\n", path, detail)
		}
	}
}
