// Package cli wires the commands together: configuration loading, the
// debug log and the catalog handle are set up here and handed to the
// command implementations.
package cli

import (
	"os"

	"dupescan/config"
	"dupescan/logging"

	"github.com/spf13/cobra"
)

var (
	// Version is set at build time.
	Version = "dev"

	// BuildTime is set at build time.
	BuildTime = "unknown"
)

// cfg is the effective configuration, assembled in rootCmd's
// PersistentPreRunE before any command runs.
var cfg = config.Default()

// flag values that override the config file.
var (
	flagConfig  string
	flagDB      string
	flagNoCache bool
	flagLogFile string
)

// NewRootCmd creates the root command and registers the subcommands.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "dupescan",
		Short: "Find duplicate and visually similar images",
		Long: `dupescan scans an image collection for duplicates.

Byte-identical files are grouped by content hash; near-duplicates
(recompressed, resized or slightly edited copies) are grouped by
perceptual hash distance. Fingerprints persist in a SQLite catalog, so
repeated scans only hash files that changed.

Examples:
  # Scan a folder with the default similarity threshold
  dupescan scan ~/Pictures

  # Stricter matching and per-file metadata in the report
  dupescan scan --threshold 5 --summaries ~/Pictures

  # Drop catalog rows for files that were deleted
  dupescan prune

  # Pre-generate thumbnails for a folder
  dupescan thumbs --size 256 ~/Pictures`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.Load(flagConfig)
			if err != nil {
				return err
			}
			cfg = loaded

			if flagDB != "" {
				cfg.DatabasePath = flagDB
			}
			if flagNoCache {
				cfg.DatabasePath = ""
			}

			if flagLogFile != "" {
				if err := logging.SetupLogger(flagLogFile); err != nil {
					return err
				}
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logging.CloseLogger()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&flagConfig, "config", "", "Path to a YAML config file")
	flags.StringVar(&flagDB, "db", "", "Path to the SQLite catalog database")
	flags.BoolVar(&flagNoCache, "no-cache", false, "Disable the fingerprint catalog for this run")
	flags.StringVar(&flagLogFile, "logfile", "", "Write a debug log to this file")

	rootCmd.AddCommand(newScanCmd())
	rootCmd.AddCommand(newPruneCmd())
	rootCmd.AddCommand(newThumbsCmd())
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

// Execute runs the CLI.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		logging.CloseLogger()
		os.Exit(1)
	}
}
