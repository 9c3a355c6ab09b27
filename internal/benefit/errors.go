package benefit

import (
	"fmt"

	"github.com/vrpipe/vrpipe/pkg/core"
)

// ReferenceDataError reports that an employee's state has no configured
// working-days or daily-value entry. It is fatal for that employee's record
// only: the engine collects these and the run continues.
type ReferenceDataError struct {
	Matricula core.Matricula
	Union     string
	State     string
	Field     string // "working_days" or "daily_value"
}

func (e *ReferenceDataError) Error() string {
	if e.State == "" {
		return fmt.Sprintf("employee %s: union %q maps to no configured state", e.Matricula, e.Union)
	}
	return fmt.Sprintf("employee %s: no %s entry for state %q", e.Matricula, e.Field, e.State)
}
