package core

import "time"

// Store defines the interface for fingerprint and run state persistence.
type Store interface {
	Open(path string) error
	Close() error
	Migrate() error

	// Fingerprint operations
	GetFingerprint(source string) (*Fingerprint, error)
	SetFingerprint(source, hash, filePath string) error
	DeleteFingerprint(source string) error
	ListFingerprints() ([]*Fingerprint, error)

	// Run operations
	CreateRun() (*Run, error)
	CompleteRun(id string, status RunStatus, result RunResult) error
	GetRun(id string) (*Run, error)
	GetLatestRun() (*Run, error)
}

// Fingerprint is the stored content digest for one input source.
// Hash is a 32-character lowercase hex MD5 digest.
type Fingerprint struct {
	Source    string
	Hash      string
	FilePath  string
	UpdatedAt time.Time
}

// RunStatus represents the status of a pipeline run.
type RunStatus string

// Run status constants.
const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusSkipped   RunStatus = "skipped"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCancelled RunStatus = "cancelled"
)

// Run represents a pipeline execution session.
type Run struct {
	ID          string
	Status      RunStatus
	Stage       string
	Records     int
	Warnings    int
	Artifact    string
	Error       string
	StartedAt   time.Time
	CompletedAt *time.Time
}

// RunResult carries the completion fields written when a run finishes.
type RunResult struct {
	Stage    string
	Records  int
	Warnings int
	Artifact string
	Error    string
}
