// Package pipeline orchestrates a monthly benefit run end to end: integrity
// gate, source loading, validation, calculation, projection, notification and
// finally the fingerprint commit. Each stage is checkpointed into the run
// record so `vrpipe status` can tell where a failed run stopped.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/vrpipe/vrpipe/internal/benefit"
	"github.com/vrpipe/vrpipe/internal/config"
	"github.com/vrpipe/vrpipe/internal/eligibility"
	"github.com/vrpipe/vrpipe/internal/integrity"
	"github.com/vrpipe/vrpipe/internal/projector"
	"github.com/vrpipe/vrpipe/internal/source"
	"github.com/vrpipe/vrpipe/pkg/core"
)

type Pipeline struct {
	cfg      *config.Config
	store    core.Store
	checker  *integrity.Checker
	loader   *source.Loader
	notifier Notifier
	logger   *slog.Logger
}

// New wires a pipeline. notifier may be nil, in which case the notifying
// stage is a no-op.
func New(cfg *config.Config, store core.Store, checker *integrity.Checker, loader *source.Loader, notifier Notifier, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	config.ApplyDefaults(cfg)
	return &Pipeline{
		cfg:      cfg,
		store:    store,
		checker:  checker,
		loader:   loader,
		notifier: notifier,
		logger:   logger,
	}
}

// Run executes one full pipeline pass. The returned Result is always
// populated, including on error, so callers can report how far the run got.
func (p *Pipeline) Run(ctx context.Context, opts RunOptions) (*Result, error) {
	period, err := p.cfg.ParsePeriod()
	if err != nil {
		return &Result{Status: core.RunStatusFailed, Stage: StageIdle}, err
	}

	run, err := p.store.CreateRun()
	if err != nil {
		return &Result{Status: core.RunStatusFailed, Stage: StageIdle}, fmt.Errorf("creating run record: %w", err)
	}
	runID := run.ID
	res := &Result{RunID: runID, Status: core.RunStatusRunning, Stage: StageCheckingIntegrity}
	p.logger.Info("run started", "run_id", runID, "period", period.String(), "force", opts.Force)

	specs := p.cfg.Sources()

	// Integrity gate. Forced runs bypass it entirely and, symmetrically,
	// never commit at the end.
	if !opts.Force {
		res.Changes = p.checkIntegrity(specs)
		if missing := p.missingMandatory(specs, res.Changes); len(missing) > 0 {
			return p.fail(ctx, res, fmt.Errorf("mandatory sources missing: %v", missing))
		}
		if !res.Changes.HasChanges() {
			p.logger.Info("no source changed since last run, skipping", "run_id", runID)
			res.Status = core.RunStatusSkipped
			p.completeRun(res, nil)
			return res, nil
		}
		p.logger.Info("integrity check", "summary", res.Changes.Summary())
	} else {
		p.logger.Info("forced run, integrity gate bypassed")
	}
	if err := p.cancelled(ctx, res); err != nil {
		return res, err
	}

	// Loading.
	res.Stage = StageLoading
	tables, loadErrs := p.loader.LoadAll(specs)
	if len(loadErrs) > 0 {
		return p.fail(ctx, res, errors.Join(loadErrs...))
	}
	for _, t := range tables {
		res.Warnings = append(res.Warnings, t.Warnings...)
	}
	if err := p.cancelled(ctx, res); err != nil {
		return res, err
	}

	// Validating. Classifies the universe and clamps out-of-range values.
	res.Stage = StageValidating
	employees, warns := p.classify(tables, period)
	res.Warnings = append(res.Warnings, warns...)
	p.logger.Info("eligible universe resolved", "employees", len(employees), "warnings", len(warns))
	if err := p.cancelled(ctx, res); err != nil {
		return res, err
	}

	// Calculating.
	res.Stage = StageCalculating
	calcs, warns := p.calculate(tables, employees, period)
	res.Warnings = append(res.Warnings, warns...)
	res.Records = len(calcs)
	if err := p.cancelled(ctx, res); err != nil {
		return res, err
	}

	// Projecting.
	res.Stage = StageProjecting
	headers := tables[config.SourceTemplate].Headers
	if len(headers) == 0 {
		return p.fail(ctx, res, fmt.Errorf("output template %q has no header row", config.SourceTemplate))
	}
	res.Artifact = filepath.Join(p.cfg.OutputDir, config.ArtifactName(period))
	rows := projector.New(period, p.logger).Project(headers, calcs)
	if err := projector.WriteArtifact(res.Artifact, headers, rows); err != nil {
		return p.fail(ctx, res, err)
	}
	p.logger.Info("artifact written", "path", res.Artifact, "records", res.Records)

	// Notifying. Best effort: a notification failure never fails the run.
	res.Stage = StageNotifying
	if p.notifier != nil {
		if err := p.notifier.NotifySuccess(ctx, res); err != nil {
			p.logger.Warn("success notification failed", "error", err)
			res.Warnings = append(res.Warnings, fmt.Sprintf("notification failed: %v", err))
		}
	}

	// Committing. Sources read this run get their fingerprint advanced;
	// fingerprinted sources whose file disappeared get theirs dropped, so
	// the next run with the same inputs is skipped again.
	res.Stage = StageCommitting
	if !opts.Force {
		for src, hash := range res.Changes.Hashes() {
			path := p.sourcePath(specs, src)
			if err := p.checker.Commit(src, hash, path); err != nil {
				return p.fail(ctx, res, fmt.Errorf("committing fingerprint for %s: %w", src, err))
			}
		}
		for _, src := range res.Changes.Removed() {
			if err := p.checker.Forget(src); err != nil {
				return p.fail(ctx, res, fmt.Errorf("dropping fingerprint for removed %s: %w", src, err))
			}
		}
	}

	res.Stage = StageDone
	res.Status = core.RunStatusCompleted
	p.completeRun(res, nil)
	p.logger.Info("run completed", "run_id", runID, "records", res.Records, "warnings", len(res.Warnings))
	return res, nil
}

// checkIntegrity hashes every configured source against its stored
// fingerprint.
func (p *Pipeline) checkIntegrity(specs []source.Spec) integrity.Report {
	targets := make([]integrity.Target, 0, len(specs))
	for _, spec := range specs {
		targets = append(targets, integrity.Target{Source: spec.Name, Path: p.loader.Path(spec)})
	}
	return p.checker.CheckAll(targets)
}

func (p *Pipeline) missingMandatory(specs []source.Spec, report integrity.Report) []string {
	mandatory := make(map[string]bool, len(specs))
	for _, spec := range specs {
		if spec.Mandatory {
			mandatory[spec.Name] = true
		}
	}
	var missing []string
	for _, name := range report.Missing() {
		if mandatory[name] {
			missing = append(missing, name)
		}
	}
	return missing
}

func (p *Pipeline) classify(tables map[string]*source.Table, period core.Period) (map[core.Matricula]*core.Employee, []string) {
	resolver := eligibility.NewResolver(p.cfg.StateMapping, p.logger)

	exclusions := make([]*source.Table, 0, len(config.ExclusionSources))
	for _, name := range config.ExclusionSources {
		exclusions = append(exclusions, tables[name])
	}
	employees, warnings := resolver.Classify(eligibility.Tables{
		Roster:       tables[config.SourceActiveEmployees],
		Exclusions:   exclusions,
		Admissions:   tables[config.SourceAdmissions],
		Terminations: tables[config.SourceTerminations],
		Vacations:    tables[config.SourceVacations],
	}, period)

	// Out-of-range vacation balances are clamped, not fatal.
	maxVac := *p.cfg.Rules.MaxVacationDays
	for _, emp := range employees {
		if emp.VacationDays < 0 {
			warnings = append(warnings, fmt.Sprintf("employee %s: negative vacation days %d, using 0", emp.Matricula, emp.VacationDays))
			emp.VacationDays = 0
		} else if maxVac > 0 && emp.VacationDays > maxVac {
			warnings = append(warnings, fmt.Sprintf("employee %s: vacation days %d exceed maximum %d, clamping", emp.Matricula, emp.VacationDays, maxVac))
			emp.VacationDays = maxVac
		}
	}
	return employees, warnings
}

func (p *Pipeline) calculate(tables map[string]*source.Table, employees map[core.Matricula]*core.Employee, period core.Period) ([]benefit.Calculation, []string) {
	mapper := eligibility.NewStateMapper(p.cfg.StateMapping)
	ref, warnings := benefit.BuildReference(tables[config.SourceWorkingDays], tables[config.SourceStateValues], mapper)

	engine := benefit.NewEngine(benefit.Config{
		Period:              period,
		CutoffDay:           *p.cfg.Rules.TerminationCutoffDay,
		CompanySharePercent: *p.cfg.Rules.CompanySharePercent,
		EmitZeroRows:        p.cfg.Output.EmitZeroRows,
	}, p.logger)

	calcs, calcErrs := engine.Calculate(employees, ref)
	for _, err := range calcErrs {
		warnings = append(warnings, err.Error())
	}
	return calcs, warnings
}

func (p *Pipeline) sourcePath(specs []source.Spec, name string) string {
	for _, spec := range specs {
		if spec.Name == name {
			return p.loader.Path(spec)
		}
	}
	return ""
}

// cancelled checks for context cancellation between stages and, when it
// fires, records the run as cancelled.
func (p *Pipeline) cancelled(ctx context.Context, res *Result) error {
	if err := ctx.Err(); err != nil {
		res.Status = core.RunStatusCancelled
		p.completeRun(res, err)
		p.logger.Warn("run cancelled", "run_id", res.RunID, "stage", res.Stage)
		return err
	}
	return nil
}

// fail records the failure, tells the notifier and returns the run error.
func (p *Pipeline) fail(ctx context.Context, res *Result, runErr error) (*Result, error) {
	res.Status = core.RunStatusFailed
	p.completeRun(res, runErr)
	p.logger.Error("run failed", "run_id", res.RunID, "stage", res.Stage, "error", runErr)
	if p.notifier != nil {
		if err := p.notifier.NotifyFailure(ctx, res, runErr); err != nil {
			p.logger.Warn("failure notification failed", "error", err)
		}
	}
	return res, runErr
}

func (p *Pipeline) completeRun(res *Result, runErr error) {
	if res.RunID == "" {
		return
	}
	errMsg := ""
	if runErr != nil {
		errMsg = runErr.Error()
	}
	if err := p.store.CompleteRun(res.RunID, res.Status, core.RunResult{
		Stage:    string(res.Stage),
		Records:  res.Records,
		Warnings: len(res.Warnings),
		Artifact: res.Artifact,
		Error:    errMsg,
	}); err != nil {
		p.logger.Warn("recording run outcome failed", "run_id", res.RunID, "error", err)
	}
}
