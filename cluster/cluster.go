// Package cluster groups fingerprinted images into duplicate sets: exact
// groups by content hash, then visual groups by perceptual-hash distance
// over the remaining images.
package cluster

import (
	"math"
	"math/bits"
	"sync"

	"dupescan/signalhandler"
	"dupescan/types"
)

// Entry is one fingerprinted image, identified by the caller's index.
type Entry struct {
	Index       int
	Fingerprint types.Fingerprint
}

// HammingDistance counts differing bits between two 64-bit perceptual
// hashes.
func HammingDistance(a, b uint64) int {
	return bits.OnesCount64(a ^ b)
}

// FindDuplicates returns the duplicate groups among entries. threshold is
// the maximum Hamming distance for a visual match; entries claimed by an
// exact group never participate in visual clustering. Group membership is
// deterministic for a given input; the order of groups in the returned
// slice is not.
func FindDuplicates(entries []Entry, threshold int) []types.DuplicateGroup {
	var groups []types.DuplicateGroup

	// Phase 1: exact matches by content hash.
	byContent := make(map[[32]byte][]int)
	for _, e := range entries {
		byContent[e.Fingerprint.ContentHash] = append(byContent[e.Fingerprint.ContentHash], e.Index)
	}

	exactMatched := make(map[int]bool)
	for _, indices := range byContent {
		if len(indices) < 2 {
			continue
		}
		for _, idx := range indices {
			exactMatched[idx] = true
		}
		groups = append(groups, types.DuplicateGroup{
			Kind:    types.MatchExact,
			Indices: indices,
		})
	}

	// Phase 2: visual matches among the unclaimed entries.
	nonExact := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if !exactMatched[e.Index] {
			nonExact = append(nonExact, e)
		}
	}

	edges := matchingPairs(nonExact, threshold)
	groups = append(groups, visualGroups(nonExact, edges)...)

	return groups
}

// edge is a candidate visual match between positions i < j of the
// non-exact slice.
type edge struct {
	i, j int
	dist int
}

// matchingPairs computes the upper triangle of the pairwise distance
// matrix in parallel and keeps pairs at or under the threshold. Each row
// is independent, so rows fan out across workers; the flattened result is
// in row order regardless of completion order.
func matchingPairs(nonExact []Entry, threshold int) []edge {
	n := len(nonExact)
	if n < 2 {
		return nil
	}

	rowEdges := make([][]edge, n)
	workers := signalhandler.GetOptimalProcs()

	var wg sync.WaitGroup
	sem := make(chan struct{}, workers)
	for i := 0; i < n-1; i++ {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()

			var row []edge
			hi := nonExact[i].Fingerprint.PerceptualHash
			for j := i + 1; j < n; j++ {
				dist := HammingDistance(hi, nonExact[j].Fingerprint.PerceptualHash)
				if dist <= threshold {
					row = append(row, edge{i: i, j: j, dist: dist})
				}
			}
			rowEdges[i] = row
		}(i)
	}
	wg.Wait()

	var edges []edge
	for _, row := range rowEdges {
		edges = append(edges, row...)
	}
	return edges
}

// visualGroups merges candidate edges with union-find and emits clusters
// of two or more members. The tracked minimum distance per root is the
// smallest distance seen while merging, which every candidate edge inside
// a cluster contributes to.
func visualGroups(nonExact []Entry, edges []edge) []types.DuplicateGroup {
	n := len(nonExact)
	if n == 0 || len(edges) == 0 {
		return nil
	}

	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}

	find := func(x int) int {
		for parent[x] != x {
			parent[x] = parent[parent[x]] // path compression
			x = parent[x]
		}
		return x
	}

	minDist := make(map[int]int)
	trackedOr := func(root, fallback int) int {
		if d, ok := minDist[root]; ok {
			return d
		}
		return fallback
	}

	for _, e := range edges {
		ri := find(e.i)
		rj := find(e.j)
		if ri != rj {
			parent[rj] = ri
		}
		root := find(e.i)

		best := e.dist
		for _, d := range []int{trackedOr(root, math.MaxInt), trackedOr(ri, math.MaxInt), trackedOr(rj, math.MaxInt)} {
			if d < best {
				best = d
			}
		}
		minDist[root] = best
	}

	clusters := make(map[int][]int)
	for i := 0; i < n; i++ {
		root := find(i)
		clusters[root] = append(clusters[root], nonExact[i].Index)
	}

	var groups []types.DuplicateGroup
	for root, indices := range clusters {
		if len(indices) < 2 {
			continue
		}
		groups = append(groups, types.DuplicateGroup{
			Kind:        types.MatchVisual,
			Indices:     indices,
			MinDistance: minDist[root],
		})
	}
	return groups
}

// DuplicateIndices flattens groups into the set of all member indices, for
// O(1) membership lookups when badging a file listing.
func DuplicateIndices(groups []types.DuplicateGroup) map[int]bool {
	set := make(map[int]bool)
	for _, g := range groups {
		for _, idx := range g.Indices {
			set[idx] = true
		}
	}
	return set
}
