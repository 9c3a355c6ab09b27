// Package integrity decides whether input sources have changed since the
// last successful pipeline run, using content hashes rather than file
// timestamps so copies and touches that do not change content are ignored.
package integrity

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/vrpipe/vrpipe/pkg/core"
)

// hashChunkSize bounds per-read memory while hashing large inputs.
const hashChunkSize = 32 * 1024

// FingerprintStore is the subset of core.Store the checker needs.
type FingerprintStore interface {
	GetFingerprint(source string) (*core.Fingerprint, error)
	SetFingerprint(source, hash, filePath string) error
	DeleteFingerprint(source string) error
	ListFingerprints() ([]*core.Fingerprint, error)
}

// Checker compares current source content against stored fingerprints.
type Checker struct {
	store  FingerprintStore
	logger *slog.Logger
}

// NewChecker creates a checker backed by the given fingerprint store.
func NewChecker(store FingerprintStore, logger *slog.Logger) *Checker {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Checker{store: store, logger: logger}
}

// Compute streams the file in fixed-size chunks and returns its content
// digest as a 32-character lowercase hex string. The whole file is never
// held in memory. MD5 is used for change detection only, never for security.
func Compute(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	h := md5.New()
	buf := make([]byte, hashChunkSize)
	if _, err := io.CopyBuffer(h, f, buf); err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// Compare looks up the stored hash for a source and classifies newHash
// against it. A missing, unreadable, or corrupted stored record yields
// KindNew so the source is reprocessed; store problems are never fatal.
func (c *Checker) Compare(source, newHash string) Change {
	change := Change{Source: source, NewHash: newHash}

	stored, err := c.store.GetFingerprint(source)
	if err != nil {
		c.logger.Warn("fingerprint record unreadable, treating source as new",
			slog.String("source", source), slog.Any("error", err))
		change.Kind = KindNew
		return change
	}
	if stored == nil {
		change.Kind = KindNew
		return change
	}
	if !validHash(stored.Hash) {
		c.logger.Warn("fingerprint record corrupted, treating source as new",
			slog.String("source", source), slog.String("stored", stored.Hash))
		change.Kind = KindNew
		return change
	}

	change.OldHash = stored.Hash
	if stored.Hash == newHash {
		change.Kind = KindUnchanged
	} else {
		change.Kind = KindChanged
	}
	return change
}

// Commit persists the hash for a source, overwriting any previous value.
// Callers must only invoke it after the run that consumed the content has
// completed successfully.
func (c *Checker) Commit(source, hash, filePath string) error {
	return c.store.SetFingerprint(source, hash, filePath)
}

// Reset recomputes the hash from disk and stores it unconditionally.
// Administrative operation: no prior comparison is required.
func (c *Checker) Reset(source, filePath string) (string, error) {
	hash, err := Compute(filePath)
	if err != nil {
		return "", err
	}
	if err := c.store.SetFingerprint(source, hash, filePath); err != nil {
		return "", err
	}
	return hash, nil
}

// Forget drops the stored fingerprint for a source. Committed after a run
// that saw the source's file removed, so later runs settle back to
// unchanged instead of reprocessing the removal forever.
func (c *Checker) Forget(source string) error {
	return c.store.DeleteFingerprint(source)
}

// ListOrphans returns stored source names that are no longer configured.
func (c *Checker) ListOrphans(known []string) ([]string, error) {
	stored, err := c.store.ListFingerprints()
	if err != nil {
		return nil, err
	}

	knownSet := make(map[string]struct{}, len(known))
	for _, name := range known {
		knownSet[name] = struct{}{}
	}

	var orphans []string
	for _, fp := range stored {
		if _, ok := knownSet[fp.Source]; !ok {
			orphans = append(orphans, fp.Source)
		}
	}
	return orphans, nil
}

// Clean deletes orphaned fingerprint records and returns the removed names.
func (c *Checker) Clean(known []string) ([]string, error) {
	orphans, err := c.ListOrphans(known)
	if err != nil {
		return nil, err
	}
	for _, name := range orphans {
		if err := c.store.DeleteFingerprint(name); err != nil {
			return nil, err
		}
		c.logger.Info("removed orphaned fingerprint", slog.String("source", name))
	}
	return orphans, nil
}

// validHash reports whether a stored digest looks like a 32-char hex MD5.
func validHash(h string) bool {
	if len(h) != 32 {
		return false
	}
	_, err := hex.DecodeString(h)
	return err == nil
}
