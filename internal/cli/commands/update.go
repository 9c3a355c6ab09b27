package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewUpdateCommand creates the update command.
func NewUpdateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "update",
		Short: "Refresh stored fingerprints without running the pipeline",
		Long: `Recompute and store the fingerprint of every source present on disk.

The next regular run will then see the inputs as unchanged. Useful after an
out-of-band rerun or when adopting an existing import directory.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer cc.Close()

			out := cmd.OutOrStdout()
			updated := 0
			for _, target := range cc.targets() {
				if _, err := os.Stat(target.Path); err != nil {
					fp, err := cc.Store.GetFingerprint(target.Source)
					if err != nil || fp == nil {
						continue
					}
					if err := cc.Checker.Forget(target.Source); err != nil {
						return fmt.Errorf("dropping fingerprint for %s: %w", target.Source, err)
					}
					fmt.Fprintf(out, "  %-22s dropped (file gone)\n", target.Source)
					updated++
					continue
				}
				hash, err := cc.Checker.Reset(target.Source, target.Path)
				if err != nil {
					return fmt.Errorf("updating fingerprint for %s: %w", target.Source, err)
				}
				fmt.Fprintf(out, "  %-22s %s\n", target.Source, shortHash(hash))
				updated++
			}
			fmt.Fprintf(out, "Updated %d fingerprints.\n", updated)
			return nil
		},
	}
}
