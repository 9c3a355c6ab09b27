package projector

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
)

// WriteArtifact writes the header and rows to path as a semicolon-separated
// CSV. The file is built under a temporary name in the same directory and
// renamed into place, so a crash mid-write never leaves a truncated artifact
// behind.
func WriteArtifact(path string, headers []string, rows [][]string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp artifact: %w", err)
	}
	defer func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}()

	w := csv.NewWriter(tmp)
	w.Comma = ';'
	if err := w.Write(headers); err != nil {
		return fmt.Errorf("writing artifact header: %w", err)
	}
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("writing artifact rows: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flushing artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp artifact: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("publishing artifact: %w", err)
	}
	return nil
}
