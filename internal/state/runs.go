package state

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/vrpipe/vrpipe/pkg/core"
)

// CreateRun creates a new pipeline run in the running state.
func (s *SQLiteStore) CreateRun() (*core.Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	id := generateID()
	now := time.Now().UTC()

	s.logger.Debug("creating run", slog.String("id", id))

	_, err := s.db.Exec(
		`INSERT INTO runs (id, status, started_at) VALUES (?, ?, ?)`,
		id, string(core.RunStatusRunning), now)
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}

	return &core.Run{ID: id, Status: core.RunStatusRunning, StartedAt: now}, nil
}

// CompleteRun marks a run as finished with the given status and result.
func (s *SQLiteStore) CompleteRun(id string, status core.RunStatus, result core.RunResult) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	now := time.Now().UTC()
	var errorPtr *string
	if result.Error != "" {
		errorPtr = &result.Error
	}

	_, err := s.db.Exec(
		`UPDATE runs
		 SET status = ?, stage = ?, records = ?, warnings = ?, artifact_path = ?,
		     error = ?, completed_at = ?
		 WHERE id = ?`,
		string(status), result.Stage, result.Records, result.Warnings,
		result.Artifact, errorPtr, now, id)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	return nil
}

// GetRun retrieves a run by ID.
func (s *SQLiteStore) GetRun(id string) (*core.Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	row := s.db.QueryRow(
		`SELECT id, status, stage, records, warnings, artifact_path, error,
		        started_at, completed_at
		 FROM runs WHERE id = ?`, id)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// GetLatestRun retrieves the most recent run, or nil when no runs exist.
func (s *SQLiteStore) GetLatestRun() (*core.Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	row := s.db.QueryRow(
		`SELECT id, status, stage, records, warnings, artifact_path, error,
		        started_at, completed_at
		 FROM runs ORDER BY started_at DESC, rowid DESC LIMIT 1`)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest run: %w", err)
	}
	return run, nil
}

func scanRun(row *sql.Row) (*core.Run, error) {
	var run core.Run
	var errMsg sql.NullString
	var completedAt sql.NullTime
	err := row.Scan(&run.ID, &run.Status, &run.Stage, &run.Records, &run.Warnings,
		&run.Artifact, &errMsg, &run.StartedAt, &completedAt)
	if err != nil {
		return nil, err
	}
	if errMsg.Valid {
		run.Error = errMsg.String
	}
	if completedAt.Valid {
		t := completedAt.Time
		run.CompletedAt = &t
	}
	return &run, nil
}
