// Package fingerprint computes the content identities used for duplicate
// detection: a SHA-256 digest over the raw file bytes and a 64-bit
// gradient perceptual hash (dHash) over the decoded pixels.
package fingerprint

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"dupescan/types"

	"github.com/corona10/goimagehash"
	"golang.org/x/sync/errgroup"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Compute reads the file at path and returns its fingerprint.
// The content hash covers the raw bytes, so any re-encode changes it; the
// perceptual hash covers the decoded pixels, so visually identical content
// with a different encoding still matches.
func Compute(path string) (types.Fingerprint, error) {
	var fp types.Fingerprint

	data, err := os.ReadFile(path)
	if err != nil {
		return fp, fmt.Errorf("cannot read file %s: %v", path, err)
	}
	fp.ContentHash = sha256.Sum256(data)

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return fp, fmt.Errorf("cannot decode image %s: %v", path, err)
	}

	hash, err := goimagehash.DifferenceHash(img)
	if err != nil {
		return fp, fmt.Errorf("cannot compute perceptual hash for %s: %v", path, err)
	}
	fp.PerceptualHash = hash.GetHash()

	return fp, nil
}

// Item is one input to ComputeBatch. Index is an opaque caller identifier
// carried through to the matching Result.
type Item struct {
	Index int
	Path  string
}

// Result pairs an input index with its fingerprint. Fingerprint is nil
// when the file could not be read or decoded; the batch as a whole never
// fails because of one bad item.
type Result struct {
	Index       int
	Fingerprint *types.Fingerprint
	Err         error
}

// ComputeBatch fingerprints all items with at most maxWorkers concurrent
// workers. Every input index appears exactly once in the output, in input
// order. Items not started before ctx is canceled come back with a nil
// fingerprint and the context error.
func ComputeBatch(ctx context.Context, items []Item, maxWorkers int) []Result {
	results := make([]Result, len(items))

	if maxWorkers < 1 {
		maxWorkers = 1
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxWorkers)

	for i, item := range items {
		i, item := i, item
		results[i] = Result{Index: item.Index}

		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i].Err = err
				return nil
			}
			fp, err := Compute(item.Path)
			if err != nil {
				results[i].Err = err
				return nil
			}
			results[i].Fingerprint = &fp
			return nil
		})
	}

	// Workers never return an error, so Wait only synchronizes.
	_ = g.Wait()

	return results
}
