package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"dupescan/catalog"
	"dupescan/scanner"
	"dupescan/signalhandler"

	"github.com/spf13/cobra"
)

// newScanCmd creates the scan command.
func newScanCmd() *cobra.Command {
	var (
		threshold  int
		batchSize  int
		workers    int
		noProgress bool
		summaries  bool
	)

	cmd := &cobra.Command{
		Use:   "scan <folder>",
		Short: "Scan a folder for duplicate images",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("threshold") {
				cfg.MatchThreshold = threshold
			}
			if cmd.Flags().Changed("batch-size") {
				cfg.BatchSize = batchSize
			}
			if cmd.Flags().Changed("workers") {
				cfg.Workers = workers
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx := signalhandler.Setup(context.Background())

			cat := catalog.OpenOrDisabled(cfg.DatabasePath)
			defer cat.Close()

			start := time.Now()
			result, err := scanner.Scan(ctx, cat, scanner.ScanOptions{
				FolderPath:    args[0],
				Threshold:     cfg.MatchThreshold,
				BatchSize:     cfg.BatchSize,
				MaxWorkers:    cfg.Workers,
				ShowProgress:  !noProgress,
				WithSummaries: summaries,
			})
			if err != nil {
				return err
			}

			scanner.PrintReport(os.Stdout, cat, result)
			fmt.Printf("\nCompleted in %s\n", time.Since(start).Round(time.Millisecond))
			return nil
		},
	}

	flags := cmd.Flags()
	flags.IntVar(&threshold, "threshold", cfg.MatchThreshold,
		"Maximum perceptual hash distance for a visual match (0-64)")
	flags.IntVar(&batchSize, "batch-size", cfg.BatchSize, "Files fingerprinted per batch")
	flags.IntVar(&workers, "workers", cfg.Workers, "Parallel fingerprint workers")
	flags.BoolVar(&noProgress, "no-progress", false, "Disable the progress bar")
	flags.BoolVar(&summaries, "summaries", false, "Show file metadata for every group member")

	return cmd
}
