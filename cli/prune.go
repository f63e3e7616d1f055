package cli

import (
	"fmt"

	"dupescan/catalog"

	"github.com/spf13/cobra"
)

// newPruneCmd creates the prune command.
func newPruneCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Remove catalog entries for files that no longer exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.DatabasePath == "" {
				return fmt.Errorf("no catalog database configured")
			}

			cat, err := catalog.Open(cfg.DatabasePath)
			if err != nil {
				return err
			}
			defer cat.Close()

			pruned := cat.PruneMissing()
			fmt.Printf("Pruned %d entries, %d remaining\n", pruned, cat.Count())
			return nil
		},
	}
}
