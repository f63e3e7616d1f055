package cli

import (
	"context"
	"fmt"
	"time"

	"dupescan/scanner"
	"dupescan/signalhandler"
	"dupescan/thumbnail"

	"github.com/spf13/cobra"
)

// newThumbsCmd creates the thumbs command, which pre-generates the
// thumbnail cache for a folder so later display is instant.
func newThumbsCmd() *cobra.Command {
	var (
		size     int
		workers  int
		cacheDir string
	)

	cmd := &cobra.Command{
		Use:   "thumbs <folder>",
		Short: "Pre-generate thumbnails for every image in a folder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("size") {
				cfg.ThumbnailSize = size
			}
			if cmd.Flags().Changed("workers") {
				cfg.Workers = workers
			}
			if cmd.Flags().Changed("cache-dir") {
				cfg.ThumbnailCacheDir = cacheDir
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx := signalhandler.Setup(context.Background())

			paths, err := scanner.CollectImagePaths(args[0])
			if err != nil {
				return err
			}
			if len(paths) == 0 {
				fmt.Println("No images found.")
				return nil
			}

			pipeline := thumbnail.NewPipeline(cfg.ThumbnailCacheDir)

			start := time.Now()
			results := pipeline.GenerateBatch(ctx, paths, cfg.ThumbnailSize, cfg.Workers)

			fmt.Printf("Generated %d thumbnails in %s\n",
				len(results), time.Since(start).Round(time.Millisecond))
			return ctx.Err()
		},
	}

	flags := cmd.Flags()
	flags.IntVar(&size, "size", cfg.ThumbnailSize, "Thumbnail bounding box in pixels")
	flags.IntVar(&workers, "workers", cfg.Workers, "Parallel thumbnail workers")
	flags.StringVar(&cacheDir, "cache-dir", cfg.ThumbnailCacheDir, "Thumbnail cache directory")

	return cmd
}
