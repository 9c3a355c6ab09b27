package source

import (
	"errors"
	"fmt"
	"strings"
)

// NotFoundError reports that a source file is absent. Whether that is fatal
// depends on the source's Mandatory flag; the error itself carries no
// severity so "absent-and-fine" and "absent-and-fatal" stay structurally
// distinct from other I/O failures.
type NotFoundError struct {
	Source string
	Path   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("source %s: file not found: %s", e.Source, e.Path)
}

// SchemaError reports required columns missing from a loaded source.
type SchemaError struct {
	Source  string
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("source %s: missing required columns: %s",
		e.Source, strings.Join(e.Missing, ", "))
}

// IsNotFound reports whether err is a source-file-absent error.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
