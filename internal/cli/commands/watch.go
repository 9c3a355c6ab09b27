package commands

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/vrpipe/vrpipe/internal/pipeline"
	"github.com/vrpipe/vrpipe/pkg/core"
)

// debounceWindow coalesces the burst of events a spreadsheet export
// produces into one pipeline run.
const debounceWindow = 2 * time.Second

// NewWatchCommand creates the watch command.
func NewWatchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Watch the import directory and run on changes",
		Long: `Keep the process alive, watching the import directory for CSV changes.

Each settled burst of file events triggers one pipeline run. The integrity
gate still applies, so touching a file without changing its content does
nothing. Stop with Ctrl-C.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer cc.Close()

			watcher, err := fsnotify.NewWatcher()
			if err != nil {
				return fmt.Errorf("creating watcher: %w", err)
			}
			defer watcher.Close()

			if err := watcher.Add(cc.Cfg.ImportDir); err != nil {
				return fmt.Errorf("watching %s: %w", cc.Cfg.ImportDir, err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Watching %s (Ctrl-C to stop)\n", cc.Cfg.ImportDir)

			ctx := cmd.Context()
			pipe := cc.newPipeline()

			var timer *time.Timer
			var timerC <-chan time.Time
			for {
				select {
				case <-ctx.Done():
					fmt.Fprintln(out, "Stopping.")
					return nil

				case event, ok := <-watcher.Events:
					if !ok {
						return nil
					}
					if !relevantEvent(event) {
						continue
					}
					cc.Logger.Debug("source event", "op", event.Op.String(), "path", event.Name)
					if timer == nil {
						timer = time.NewTimer(debounceWindow)
						timerC = timer.C
					} else {
						timer.Reset(debounceWindow)
					}

				case err, ok := <-watcher.Errors:
					if !ok {
						return nil
					}
					cc.Logger.Warn("watcher error", "error", err)

				case <-timerC:
					timer = nil
					timerC = nil
					res, err := pipe.Run(ctx, pipeline.RunOptions{})
					switch {
					case err != nil:
						fmt.Fprintf(out, "run failed: %v\n", err)
					case res.Status == core.RunStatusSkipped:
						cc.Logger.Debug("change settled to identical content, run skipped")
					default:
						fmt.Fprintf(out, "Run %s: %d records -> %s\n", res.RunID, res.Records, res.Artifact)
					}
				}
			}
		},
	}
}

// relevantEvent filters out noise: only writes, creates, renames and removes
// of CSV files matter.
func relevantEvent(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
		return false
	}
	ext := strings.ToLower(filepath.Ext(event.Name))
	return ext == ".csv"
}
