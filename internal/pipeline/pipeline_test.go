package pipeline

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vrpipe/vrpipe/internal/config"
	"github.com/vrpipe/vrpipe/internal/integrity"
	"github.com/vrpipe/vrpipe/internal/source"
	"github.com/vrpipe/vrpipe/internal/state"
	"github.com/vrpipe/vrpipe/internal/testutil"
	"github.com/vrpipe/vrpipe/pkg/core"
)

// fakeNotifier records the calls the pipeline makes.
type fakeNotifier struct {
	successes int
	failures  int
	failErr   error
}

func (n *fakeNotifier) NotifySuccess(_ context.Context, _ *Result) error {
	n.successes++
	return n.failErr
}

func (n *fakeNotifier) NotifyFailure(_ context.Context, _ *Result, _ error) error {
	n.failures++
	return nil
}

type fixture struct {
	pipe     *Pipeline
	store    *state.SQLiteStore
	notifier *fakeNotifier
	cfg      *config.Config
}

func write(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

const templateHeader = "Matricula,Admissão,Sindicato do Colaborador,Competência,Dias,VALOR DIÁRIO VR,TOTAL,Custo empresa,Desconto profissional,OBS GERAL\n"

// writeMandatory lays down the minimum viable import directory: one active
// employee in São Paulo, reference tables, and the output template.
func writeMandatory(t *testing.T, importDir string) {
	t.Helper()
	write(t, importDir, "ativos.csv", "MATRICULA,NOME,Sindicato\n1042,Ana,SINDPD SP - PROC DADOS\n")
	write(t, importDir, "base_dias_uteis.csv", "SINDICATO,DIAS_UTEIS\nSINDPD SP - PROC DADOS,22\n")
	write(t, importDir, "base_sindicato_valor.csv", "ESTADO,VALOR\nSão Paulo,37.50\n")
	write(t, importDir, "vr_mensal.csv", templateHeader)
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()
	importDir := filepath.Join(root, "import")
	require.NoError(t, os.MkdirAll(importDir, 0o755))
	writeMandatory(t, importDir)

	cfg := &config.Config{
		ImportDir: importDir,
		OutputDir: filepath.Join(root, "output"),
		StatePath: filepath.Join(root, "state.db"),
		Period:    "05/2025",
	}
	config.ApplyDefaults(cfg)

	logger := testutil.NewTestLogger(t)
	store := state.NewSQLiteStore(logger)
	require.NoError(t, store.Open(cfg.StatePath))
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.Migrate())

	notifier := &fakeNotifier{}
	pipe := New(cfg, store, integrity.NewChecker(store, logger), source.NewLoader(cfg.ImportDir, logger), notifier, logger)
	return &fixture{pipe: pipe, store: store, notifier: notifier, cfg: cfg}
}

func readArtifact(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	reader := csv.NewReader(f)
	reader.Comma = ';'
	records, err := reader.ReadAll()
	require.NoError(t, err)
	return records
}

func TestRunProducesArtifact(t *testing.T) {
	fx := newFixture(t)

	res, err := fx.pipe.Run(context.Background(), RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, core.RunStatusCompleted, res.Status)
	assert.Equal(t, StageDone, res.Stage)
	assert.Equal(t, 1, res.Records)
	assert.Equal(t, 1, fx.notifier.successes)

	records := readArtifact(t, res.Artifact)
	require.Len(t, records, 2)
	assert.Equal(t, "1042", records[1][0])
	assert.Equal(t, "05/2025", records[1][3])
	assert.Equal(t, "22", records[1][4], "payable days")
	assert.Equal(t, "825,00", records[1][6], "gross 22 * 37.50")
	assert.Equal(t, "660,00", records[1][7], "company 80%")
	assert.Equal(t, "165,00", records[1][8], "employee 20%")

	run, err := fx.store.GetRun(res.RunID)
	require.NoError(t, err)
	assert.Equal(t, core.RunStatusCompleted, run.Status)
}

func TestRunSkipsWhenUnchanged(t *testing.T) {
	fx := newFixture(t)

	first, err := fx.pipe.Run(context.Background(), RunOptions{})
	require.NoError(t, err)
	require.Equal(t, core.RunStatusCompleted, first.Status)

	second, err := fx.pipe.Run(context.Background(), RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, core.RunStatusSkipped, second.Status)
	assert.Zero(t, second.Records)

	run, err := fx.store.GetRun(second.RunID)
	require.NoError(t, err)
	assert.Equal(t, core.RunStatusSkipped, run.Status)
}

func TestRunReprocessesOnChange(t *testing.T) {
	fx := newFixture(t)

	_, err := fx.pipe.Run(context.Background(), RunOptions{})
	require.NoError(t, err)

	// A second employee appears in the roster.
	write(t, fx.cfg.ImportDir, "ativos.csv",
		"MATRICULA,NOME,Sindicato\n1042,Ana,SINDPD SP - PROC DADOS\n1043,Bia,SINDPD SP - PROC DADOS\n")

	res, err := fx.pipe.Run(context.Background(), RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, core.RunStatusCompleted, res.Status)
	assert.Equal(t, 2, res.Records)
}

func TestRunReprocessesWhenOptionalSourceRemoved(t *testing.T) {
	fx := newFixture(t)
	vacations := "MATRICULA,DIAS DE FÉRIAS\n1042,10\n"
	write(t, fx.cfg.ImportDir, "ferias.csv", vacations)

	first, err := fx.pipe.Run(context.Background(), RunOptions{})
	require.NoError(t, err)
	require.Equal(t, core.RunStatusCompleted, first.Status)
	assert.Equal(t, "12", readArtifact(t, first.Artifact)[1][4], "22 working days minus 10 of vacation")

	// Deleting the vacation file changes the effective inputs, so the next
	// gated run must reprocess rather than skip.
	require.NoError(t, os.Remove(filepath.Join(fx.cfg.ImportDir, "ferias.csv")))

	second, err := fx.pipe.Run(context.Background(), RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, core.RunStatusCompleted, second.Status)
	assert.Equal(t, "22", readArtifact(t, second.Artifact)[1][4], "vacation discount gone with the file")

	// The removal is committed, so the same absence settles back to skipped.
	third, err := fx.pipe.Run(context.Background(), RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, core.RunStatusSkipped, third.Status)

	// The identical file coming back is a change again.
	write(t, fx.cfg.ImportDir, "ferias.csv", vacations)
	fourth, err := fx.pipe.Run(context.Background(), RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, core.RunStatusCompleted, fourth.Status)
	assert.Equal(t, "12", readArtifact(t, fourth.Artifact)[1][4])
}

func TestForcedRunNeverCommits(t *testing.T) {
	fx := newFixture(t)

	_, err := fx.pipe.Run(context.Background(), RunOptions{})
	require.NoError(t, err)

	write(t, fx.cfg.ImportDir, "ativos.csv",
		"MATRICULA,NOME,Sindicato\n1042,Ana,SINDPD SP - PROC DADOS\n1043,Bia,SINDPD SP - PROC DADOS\n")

	forced, err := fx.pipe.Run(context.Background(), RunOptions{Force: true})
	require.NoError(t, err)
	assert.Equal(t, core.RunStatusCompleted, forced.Status)

	// The forced run did not advance the fingerprints, so a regular run
	// still sees the roster change.
	regular, err := fx.pipe.Run(context.Background(), RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, core.RunStatusCompleted, regular.Status,
		"regular run after a forced run must still reprocess the pending change")
}

func TestForcedRunBypassesGate(t *testing.T) {
	fx := newFixture(t)

	first, err := fx.pipe.Run(context.Background(), RunOptions{})
	require.NoError(t, err)
	require.Equal(t, core.RunStatusCompleted, first.Status)

	forced, err := fx.pipe.Run(context.Background(), RunOptions{Force: true})
	require.NoError(t, err)
	assert.Equal(t, core.RunStatusCompleted, forced.Status, "force recomputes even with nothing changed")
}

func TestRunFailsOnMissingMandatorySource(t *testing.T) {
	fx := newFixture(t)
	require.NoError(t, os.Remove(filepath.Join(fx.cfg.ImportDir, "ativos.csv")))

	res, err := fx.pipe.Run(context.Background(), RunOptions{})
	require.Error(t, err)
	assert.Equal(t, core.RunStatusFailed, res.Status)
	assert.Equal(t, 1, fx.notifier.failures)

	run, storeErr := fx.store.GetRun(res.RunID)
	require.NoError(t, storeErr)
	assert.Equal(t, core.RunStatusFailed, run.Status)
	assert.NotEmpty(t, run.Error)
}

func TestRunTreatsOptionalSourcesAsEmpty(t *testing.T) {
	fx := newFixture(t)

	// None of the optional sources exist on disk; the run proceeds with the
	// roster alone.
	res, err := fx.pipe.Run(context.Background(), RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, core.RunStatusCompleted, res.Status)
	assert.Equal(t, 1, res.Records)
}

func TestRunAppliesExclusions(t *testing.T) {
	fx := newFixture(t)
	write(t, fx.cfg.ImportDir, "estagio.csv", "MATRICULA\n1042\n")

	res, err := fx.pipe.Run(context.Background(), RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, core.RunStatusCompleted, res.Status)
	assert.Zero(t, res.Records, "the only employee is an intern, so nobody gets the benefit")

	records := readArtifact(t, res.Artifact)
	assert.Len(t, records, 1, "artifact carries only the template header")
}

func TestRunClampsVacationDays(t *testing.T) {
	fx := newFixture(t)
	write(t, fx.cfg.ImportDir, "ferias.csv", "MATRICULA,DIAS DE FÉRIAS\n1042,90\n")

	res, err := fx.pipe.Run(context.Background(), RunOptions{})
	require.NoError(t, err)
	require.Equal(t, core.RunStatusCompleted, res.Status)

	assert.NotEmpty(t, res.Warnings, "clamping should surface a warning")
	// 90 days clamps to 30, which exceeds the 22 base days, so the line
	// nets to zero and is omitted.
	assert.Zero(t, res.Records)
}

func TestRunCollectsReferenceWarnings(t *testing.T) {
	fx := newFixture(t)
	write(t, fx.cfg.ImportDir, "ativos.csv",
		"MATRICULA,NOME,Sindicato\n1042,Ana,SINDPD SP - PROC DADOS\n2000,Zoe,SINDICATO MISTERIOSO\n")

	res, err := fx.pipe.Run(context.Background(), RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, core.RunStatusCompleted, res.Status)
	assert.Equal(t, 1, res.Records, "the unmapped employee is skipped, not fatal")
	assert.NotEmpty(t, res.Warnings)
}

func TestRunCancellation(t *testing.T) {
	fx := newFixture(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := fx.pipe.Run(ctx, RunOptions{})
	require.Error(t, err)
	assert.Equal(t, core.RunStatusCancelled, res.Status)

	run, storeErr := fx.store.GetRun(res.RunID)
	require.NoError(t, storeErr)
	assert.Equal(t, core.RunStatusCancelled, run.Status)
}

func TestRunNotifierFailureIsNonFatal(t *testing.T) {
	fx := newFixture(t)
	fx.notifier.failErr = assert.AnError

	res, err := fx.pipe.Run(context.Background(), RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, core.RunStatusCompleted, res.Status)
	assert.Contains(t, res.Warnings[len(res.Warnings)-1], "notification failed")
}

func TestRunEmitZeroRows(t *testing.T) {
	fx := newFixture(t)
	fx.cfg.Output.EmitZeroRows = true
	write(t, fx.cfg.ImportDir, "desligados.csv",
		"MATRICULA,DATA DEMISSÃO,COMUNICADO DE DESLIGAMENTO\n1042,05/05/2025,OK\n")

	res, err := fx.pipe.Run(context.Background(), RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Records, "forfeited line is emitted when zero rows are on")

	records := readArtifact(t, res.Artifact)
	require.Len(t, records, 2)
	assert.Equal(t, "0,00", records[1][6])
}

func TestRunInvalidPeriod(t *testing.T) {
	fx := newFixture(t)
	fx.cfg.Period = "not-a-period"

	res, err := fx.pipe.Run(context.Background(), RunOptions{})
	require.Error(t, err)
	assert.Equal(t, core.RunStatusFailed, res.Status)
}
