package commands

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

// NewStatusCommand creates the status command.
func NewStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show stored fingerprints and the latest run",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer cc.Close()

			out := cmd.OutOrStdout()

			run, err := cc.Store.GetLatestRun()
			if err != nil {
				return fmt.Errorf("reading latest run: %w", err)
			}
			if run == nil {
				fmt.Fprintln(out, "No runs recorded yet.")
			} else {
				fmt.Fprintf(out, "Latest run: %s\n", run.ID)
				fmt.Fprintf(out, "  Status:   %s (stage %s)\n", run.Status, run.Stage)
				fmt.Fprintf(out, "  Started:  %s\n", run.StartedAt.Format("2006-01-02 15:04:05"))
				if run.CompletedAt != nil {
					fmt.Fprintf(out, "  Finished: %s\n", run.CompletedAt.Format("2006-01-02 15:04:05"))
				}
				if run.Artifact != "" {
					fmt.Fprintf(out, "  Artifact: %s (%d records)\n", run.Artifact, run.Records)
				}
				if run.Error != "" {
					fmt.Fprintf(out, "  Error:    %s\n", run.Error)
				}
			}
			fmt.Fprintln(out)

			fps, err := cc.Store.ListFingerprints()
			if err != nil {
				return fmt.Errorf("listing fingerprints: %w", err)
			}
			if len(fps) == 0 {
				fmt.Fprintln(out, "No fingerprints stored. Run `vrpipe run` or `vrpipe update` first.")
				return nil
			}

			t := table.NewWriter()
			t.SetOutputMirror(out)
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"Source", "Fingerprint", "Updated", "File"})
			for _, fp := range fps {
				t.AppendRow(table.Row{
					fp.Source,
					shortHash(fp.Hash),
					fp.UpdatedAt.Format("2006-01-02 15:04"),
					fp.FilePath,
				})
			}
			t.Render()
			return nil
		},
	}
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
