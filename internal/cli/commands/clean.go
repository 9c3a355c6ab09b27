package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewCleanCommand creates the clean command.
func NewCleanCommand() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove stale fingerprints",
		Long: `Delete fingerprints for sources that are no longer configured.

With --all, every stored fingerprint is deleted and the next run reprocesses
everything from scratch.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer cc.Close()

			out := cmd.OutOrStdout()

			if all {
				fps, err := cc.Store.ListFingerprints()
				if err != nil {
					return fmt.Errorf("listing fingerprints: %w", err)
				}
				for _, fp := range fps {
					if err := cc.Store.DeleteFingerprint(fp.Source); err != nil {
						return fmt.Errorf("deleting fingerprint for %s: %w", fp.Source, err)
					}
				}
				fmt.Fprintf(out, "Deleted %d fingerprints. The next run starts from scratch.\n", len(fps))
				return nil
			}

			removed, err := cc.Checker.Clean(cc.Cfg.SourceNames())
			if err != nil {
				return err
			}
			if len(removed) == 0 {
				fmt.Fprintln(out, "Nothing to clean.")
				return nil
			}
			for _, name := range removed {
				fmt.Fprintf(out, "  removed %s\n", name)
			}
			fmt.Fprintf(out, "Removed %d stale fingerprints.\n", len(removed))
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Delete every stored fingerprint")
	return cmd
}
