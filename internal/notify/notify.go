// Package notify reports run outcomes to humans. The log notifier is always
// safe to wire; the SMTP notifier emails the configured recipients when the
// run produced an artifact or failed.
package notify

import (
	"context"
	"io"
	"log/slog"

	"github.com/vrpipe/vrpipe/internal/pipeline"
)

// LogNotifier writes run outcomes to the structured log. It is the default
// when no mail host is configured.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &LogNotifier{logger: logger}
}

var _ pipeline.Notifier = (*LogNotifier)(nil)

func (n *LogNotifier) NotifySuccess(_ context.Context, res *pipeline.Result) error {
	n.logger.Info("pipeline succeeded",
		"run_id", res.RunID,
		"records", res.Records,
		"warnings", len(res.Warnings),
		"artifact", res.Artifact)
	return nil
}

func (n *LogNotifier) NotifyFailure(_ context.Context, res *pipeline.Result, runErr error) error {
	n.logger.Error("pipeline failed",
		"run_id", res.RunID,
		"stage", res.Stage,
		"error", runErr)
	return nil
}
