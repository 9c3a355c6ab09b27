package pipeline

import (
	"context"

	"github.com/vrpipe/vrpipe/internal/integrity"
	"github.com/vrpipe/vrpipe/pkg/core"
)

// Stage names the step of the pipeline a run is in, or where it stopped.
type Stage string

const (
	StageIdle              Stage = "idle"
	StageCheckingIntegrity Stage = "checking_integrity"
	StageLoading           Stage = "loading"
	StageValidating        Stage = "validating"
	StageCalculating       Stage = "calculating"
	StageProjecting        Stage = "projecting"
	StageNotifying         Stage = "notifying"
	StageCommitting        Stage = "committing"
	StageDone              Stage = "done"
)

// RunOptions controls a single pipeline invocation.
type RunOptions struct {
	// Force runs the pipeline even when no source changed. Forced runs never
	// commit fingerprints, so the next regular run still sees the real delta.
	Force bool
}

// Result describes what a finished (or stopped) run did.
type Result struct {
	RunID    string
	Status   core.RunStatus
	Stage    Stage
	Records  int
	Warnings []string
	Artifact string
	Changes  integrity.Report
}

// Notifier is told about finished runs. Notification failures are logged and
// never affect the run outcome, so implementations may be best-effort.
type Notifier interface {
	NotifySuccess(ctx context.Context, res *Result) error
	NotifyFailure(ctx context.Context, res *Result, runErr error) error
}
