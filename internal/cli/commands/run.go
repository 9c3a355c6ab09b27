package commands

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/vrpipe/vrpipe/internal/pipeline"
	"github.com/vrpipe/vrpipe/pkg/core"
)

// NewRunCommand creates the run command.
func NewRunCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the monthly benefit pipeline",
		Long: `Execute the full pipeline for the configured period.

Sources are fingerprinted first; when nothing changed since the last
successful run the pipeline is skipped. Use --force to recompute anyway
(a forced run never advances the stored fingerprints).`,
		Example: `  # Regular incremental run
  vrpipe run

  # Recompute even when no input changed
  vrpipe run --force

  # Run for a specific competência
  vrpipe run --period 05/2025`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRun(cmd, force)
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Run even when no source changed (does not commit fingerprints)")
	return cmd
}

func runRun(cmd *cobra.Command, force bool) error {
	cc, err := setup(cmd.Context())
	if err != nil {
		return err
	}
	defer cc.Close()

	start := time.Now()
	res, err := cc.newPipeline().Run(cmd.Context(), pipeline.RunOptions{Force: force})
	if err != nil {
		if res != nil && res.Status == core.RunStatusCancelled {
			return fmt.Errorf("run cancelled at stage %s", res.Stage)
		}
		return err
	}

	out := cmd.OutOrStdout()
	switch res.Status {
	case core.RunStatusSkipped:
		fmt.Fprintln(out, "Nothing to do: no source changed since the last run.")
		fmt.Fprintln(out, "Use --force to recompute anyway.")
	case core.RunStatusCompleted:
		fmt.Fprintf(out, "Run %s completed in %s\n", res.RunID, time.Since(start).Round(time.Millisecond))
		fmt.Fprintf(out, "  Records:  %d\n", res.Records)
		fmt.Fprintf(out, "  Artifact: %s\n", res.Artifact)
		if n := len(res.Warnings); n > 0 {
			fmt.Fprintf(out, "  Warnings: %d (run with -v for details)\n", n)
			for _, w := range res.Warnings {
				cc.Logger.Debug("run warning", "warning", w)
			}
		}
	default:
		return errors.New("run finished in unexpected state " + string(res.Status))
	}
	return nil
}
