package core

import (
	"fmt"
	"strings"
	"time"
)

// Matricula is the stable employee registration identifier used as the join
// key across every input source. It is a defined type rather than a bare
// string so that joins between sources cannot silently mix up columns.
type Matricula string

// ParseMatricula normalizes a raw field value into a Matricula.
// Returns an empty Matricula for blank input.
func ParseMatricula(raw string) Matricula {
	return Matricula(strings.TrimSpace(raw))
}

// Valid reports whether the matricula is non-empty.
func (m Matricula) Valid() bool { return m != "" }

// EmployeeStatus classifies an employee for the reference period.
type EmployeeStatus string

// Employee status constants. Excluded employees never reach the benefit
// engine, so there is no corresponding status value.
const (
	StatusActive     EmployeeStatus = "active"
	StatusAdmitted   EmployeeStatus = "admitted"
	StatusTerminated EmployeeStatus = "terminated"
)

// Termination holds the termination record merged onto an employee.
type Termination struct {
	Date     time.Time
	NoticeOK bool
}

// Employee is one classified member of the eligible universe.
type Employee struct {
	Matricula    Matricula
	Name         string
	Union        string
	State        string
	Status       EmployeeStatus
	Admission    *time.Time
	Termination  *Termination
	VacationDays int
}

// Period identifies the reference competência (month/year) of a run.
type Period struct {
	Month time.Month
	Year  int
}

// ParsePeriod parses a period in "MM/YYYY" form.
func ParsePeriod(s string) (Period, error) {
	t, err := time.Parse("01/2006", strings.TrimSpace(s))
	if err != nil {
		return Period{}, fmt.Errorf("invalid period %q (want MM/YYYY): %w", s, err)
	}
	return Period{Month: t.Month(), Year: t.Year()}, nil
}

// String renders the period as "MM/YYYY".
func (p Period) String() string {
	return fmt.Sprintf("%02d/%04d", int(p.Month), p.Year)
}

// Contains reports whether t falls inside the period's month.
func (p Period) Contains(t time.Time) bool {
	return t.Year() == p.Year && t.Month() == p.Month
}

// Days returns the number of calendar days in the period's month.
func (p Period) Days() int {
	return time.Date(p.Year, p.Month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// IsZero reports whether the period is unset.
func (p Period) IsZero() bool { return p.Year == 0 }
