package source

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
)

// Loader reads configured sources from an import directory. It is purely
// functional over its inputs: no state is kept between loads.
type Loader struct {
	dir    string
	logger *slog.Logger
}

// NewLoader creates a loader rooted at the import directory.
func NewLoader(dir string, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Loader{dir: dir, logger: logger}
}

// Path returns the on-disk location for a source spec.
func (l *Loader) Path(spec Spec) string {
	return filepath.Join(l.dir, spec.File)
}

// Load parses one source into a table and validates its required columns.
// Returns *NotFoundError when the file is absent and *SchemaError when a
// required column is missing.
func (l *Loader) Load(spec Spec) (*Table, error) {
	path := l.Path(spec)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &NotFoundError{Source: spec.Name, Path: path}
		}
		return nil, fmt.Errorf("source %s: %w", spec.Name, err)
	}

	headers, rows, warnings, err := parseCSV(data, spec)
	if err != nil {
		return nil, fmt.Errorf("source %s: %w", spec.Name, err)
	}

	table := &Table{
		Source:   spec.Name,
		Path:     path,
		Headers:  headers,
		Rows:     rows,
		Warnings: warnings,
	}

	if missing := missingColumns(table, spec.RequiredColumns); len(missing) > 0 {
		return nil, &SchemaError{Source: spec.Name, Missing: missing}
	}

	l.logger.Debug("loaded source",
		slog.String("source", spec.Name),
		slog.Int("rows", table.Len()),
		slog.Int("warnings", len(warnings)))

	return table, nil
}

// LoadAll loads every configured source independently. A failure on one
// source does not abort loading of the others: errors are collected and
// returned alongside the tables that did load, and the caller decides
// whether the run can proceed. Optional sources absent on disk load as
// empty tables.
func (l *Loader) LoadAll(specs []Spec) (map[string]*Table, []error) {
	tables := make(map[string]*Table, len(specs))
	var errs []error

	for _, spec := range specs {
		table, err := l.Load(spec)
		if err != nil {
			if IsNotFound(err) && !spec.Mandatory {
				l.logger.Debug("optional source absent, using empty table",
					slog.String("source", spec.Name))
				tables[spec.Name] = emptyTable(spec, l.Path(spec))
				continue
			}
			errs = append(errs, err)
			continue
		}
		tables[spec.Name] = table
	}

	return tables, errs
}

func missingColumns(t *Table, required []string) []string {
	var missing []string
	for _, col := range required {
		if !t.HasColumn(col) {
			missing = append(missing, col)
		}
	}
	sort.Strings(missing)
	return missing
}
