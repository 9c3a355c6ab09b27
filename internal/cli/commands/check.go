package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vrpipe/vrpipe/internal/integrity"
)

// NewCheckCommand creates the check command.
func NewCheckCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Show which sources changed since the last run",
		Long: `Hash every configured source and compare against the stored fingerprints.

Nothing is loaded or calculated; this is a dry inspection of what a run
would reprocess.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer cc.Close()

			report := cc.Checker.CheckAll(cc.targets())
			out := cmd.OutOrStdout()
			for _, ch := range report.Changes {
				marker := " "
				switch ch.Kind {
				case integrity.KindNew:
					marker = "+"
				case integrity.KindChanged:
					marker = "~"
				case integrity.KindRemoved:
					marker = "-"
				case integrity.KindMissing:
					marker = "!"
				}
				fmt.Fprintf(out, "  %s %-22s %s\n", marker, ch.Source, ch.Kind)
			}
			fmt.Fprintln(out)
			fmt.Fprintln(out, report.Summary())

			if report.HasChanges() {
				fmt.Fprintln(out, "A run would reprocess the inputs.")
			} else {
				fmt.Fprintln(out, "A run would be skipped.")
			}
			return nil
		},
	}
}
