package state

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/vrpipe/vrpipe/pkg/core"
)

// GetFingerprint retrieves the stored fingerprint for a source name.
// Returns nil without error when no fingerprint is stored.
func (s *SQLiteStore) GetFingerprint(source string) (*core.Fingerprint, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	row := s.db.QueryRow(
		`SELECT source_name, content_hash, file_path, updated_at
		 FROM fingerprints WHERE source_name = ?`, source)

	var fp core.Fingerprint
	err := row.Scan(&fp.Source, &fp.Hash, &fp.FilePath, &fp.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get fingerprint for %s: %w", source, err)
	}

	return &fp, nil
}

// SetFingerprint stores the fingerprint for a source name, overwriting any
// previous value. The write happens inside a single statement so a crash can
// never leave a half-written hash.
func (s *SQLiteStore) SetFingerprint(source, hash, filePath string) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	s.logger.Debug("storing fingerprint",
		slog.String("source", source), slog.String("hash", hash))

	_, err := s.db.Exec(
		`INSERT INTO fingerprints (source_name, content_hash, file_path, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(source_name) DO UPDATE SET
		   content_hash = excluded.content_hash,
		   file_path    = excluded.file_path,
		   updated_at   = excluded.updated_at`,
		source, hash, filePath, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to store fingerprint for %s: %w", source, err)
	}
	return nil
}

// DeleteFingerprint removes the fingerprint for a source name.
func (s *SQLiteStore) DeleteFingerprint(source string) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	if _, err := s.db.Exec(`DELETE FROM fingerprints WHERE source_name = ?`, source); err != nil {
		return fmt.Errorf("failed to delete fingerprint for %s: %w", source, err)
	}
	return nil
}

// ListFingerprints returns all stored fingerprints ordered by source name.
func (s *SQLiteStore) ListFingerprints() ([]*core.Fingerprint, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.Query(
		`SELECT source_name, content_hash, file_path, updated_at
		 FROM fingerprints ORDER BY source_name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list fingerprints: %w", err)
	}
	defer rows.Close()

	var fps []*core.Fingerprint
	for rows.Next() {
		var fp core.Fingerprint
		if err := rows.Scan(&fp.Source, &fp.Hash, &fp.FilePath, &fp.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan fingerprint: %w", err)
		}
		fps = append(fps, &fp)
	}
	return fps, rows.Err()
}
