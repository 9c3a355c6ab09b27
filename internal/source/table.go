// Package source loads the pipeline's tabular input files into normalized
// in-memory tables and validates their schemas.
package source

import (
	"strconv"
	"strings"
	"time"

	"github.com/vrpipe/vrpipe/pkg/core"
)

// Spec describes one named input source.
type Spec struct {
	// Name is the stable source identifier used for fingerprinting.
	Name string
	// File is the file name inside the import directory.
	File string
	// RequiredColumns must all be present after header normalization.
	RequiredColumns []string
	// ColumnNames, when set, replaces the header row entirely. Combined
	// with Headerless for files that ship without a header.
	ColumnNames []string
	// Headerless marks files whose first row is data, not a header.
	Headerless bool
	// Mandatory sources abort the run when absent; optional sources load
	// as empty tables.
	Mandatory bool
}

// Row is one record of a table, keyed by normalized column name.
type Row map[string]string

// Get returns the trimmed field value for a column.
func (r Row) Get(col string) string {
	return strings.TrimSpace(r[col])
}

// Matricula parses the employee registration id from a column.
func (r Row) Matricula(col string) core.Matricula {
	return core.ParseMatricula(r[col])
}

// Int parses an integer field, tolerating decimal notation ("22.0").
func (r Row) Int(col string) (int, bool) {
	v := r.Get(col)
	if v == "" {
		return 0, false
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n, true
	}
	if f, err := strconv.ParseFloat(strings.ReplaceAll(v, ",", "."), 64); err == nil {
		return int(f), true
	}
	return 0, false
}

// Date parses a date field in either ISO (2006-01-02) or Brazilian
// (02/01/2006) notation.
func (r Row) Date(col string) (time.Time, bool) {
	v := r.Get(col)
	if v == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{"2006-01-02", "02/01/2006", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, v); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Table is a loaded input source: an ordered header plus rows of named
// fields. Tables are ephemeral; they live only for the duration of a run.
type Table struct {
	Source   string
	Path     string
	Headers  []string
	Rows     []Row
	Warnings []string
}

// Empty reports whether the table has no rows.
func (t *Table) Empty() bool { return len(t.Rows) == 0 }

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.Rows) }

// HasColumn reports whether the table carries the named column.
func (t *Table) HasColumn(col string) bool {
	for _, h := range t.Headers {
		if h == col {
			return true
		}
	}
	return false
}

// Matriculas collects the set of employee ids in the given column.
func (t *Table) Matriculas(col string) map[core.Matricula]struct{} {
	ids := make(map[core.Matricula]struct{}, len(t.Rows))
	for _, row := range t.Rows {
		if m := row.Matricula(col); m.Valid() {
			ids[m] = struct{}{}
		}
	}
	return ids
}

// emptyTable returns a zero-row table for an absent optional source.
func emptyTable(spec Spec, path string) *Table {
	headers := spec.ColumnNames
	if headers == nil {
		headers = spec.RequiredColumns
	}
	return &Table{Source: spec.Name, Path: path, Headers: headers}
}
