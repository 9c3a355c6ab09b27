package eligibility

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/vrpipe/vrpipe/internal/config"
	"github.com/vrpipe/vrpipe/internal/source"
	"github.com/vrpipe/vrpipe/pkg/core"
)

// Tables groups the loaded sources the resolver consumes.
type Tables struct {
	Roster       *source.Table
	Exclusions   []*source.Table
	Admissions   *source.Table
	Terminations *source.Table
	Vacations    *source.Table
}

// Resolver builds the classified employee universe for one period.
type Resolver struct {
	mapper *StateMapper
	logger *slog.Logger
}

// NewResolver creates a resolver with the given union-to-state mapping.
func NewResolver(mapping map[string]string, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Resolver{mapper: NewStateMapper(mapping), logger: logger}
}

// Classify starts from the active roster as the eligible universe and
// resolves each employee's status for the period. Resolution order:
// exclusion veto first (absolute, before any date-based logic), then
// termination, then admission, else active for the full period.
//
// Employees in any exclusion set never appear in the result, regardless of
// roster, admission, or termination data.
func (r *Resolver) Classify(t Tables, period core.Period) (map[core.Matricula]*core.Employee, []string) {
	var warnings []string

	excluded := make(map[core.Matricula]struct{})
	for _, ex := range t.Exclusions {
		if ex == nil {
			continue
		}
		for m := range ex.Matriculas(config.ColMatricula) {
			excluded[m] = struct{}{}
		}
	}

	admissions := r.admissionDates(t.Admissions, &warnings)
	terminations := r.terminationRecords(t.Terminations, &warnings)
	vacations := r.vacationDays(t.Vacations, &warnings)

	employees := make(map[core.Matricula]*core.Employee, t.Roster.Len())
	for _, row := range t.Roster.Rows {
		m := row.Matricula(config.ColMatricula)
		if !m.Valid() {
			warnings = append(warnings, "roster row with empty matricula skipped")
			continue
		}
		if _, ok := employees[m]; ok {
			warnings = append(warnings, fmt.Sprintf("duplicate matricula %s in roster, keeping first", m))
			continue
		}
		if _, ok := excluded[m]; ok {
			r.logger.Debug("employee excluded", slog.String("matricula", string(m)))
			continue
		}

		union := row.Get(config.ColUnion)
		emp := &core.Employee{
			Matricula:    m,
			Name:         row.Get(config.ColName),
			Union:        union,
			State:        r.mapper.StateFromUnion(union),
			Status:       core.StatusActive,
			VacationDays: vacations[m],
		}

		// Admission may come from the roster itself or from the
		// admissions source; the dedicated source wins.
		if d, ok := row.Date(config.ColAdmission); ok {
			emp.Admission = &d
		}
		if d, ok := admissions[m]; ok {
			emp.Admission = &d
		}

		if term, ok := terminations[m]; ok {
			emp.Termination = &term
			if period.Contains(term.Date) {
				emp.Status = core.StatusTerminated
			}
		}
		if emp.Status != core.StatusTerminated &&
			emp.Admission != nil && period.Contains(*emp.Admission) {
			emp.Status = core.StatusAdmitted
		}

		employees[m] = emp
	}

	return employees, warnings
}

func (r *Resolver) admissionDates(t *source.Table, warnings *[]string) map[core.Matricula]time.Time {
	dates := make(map[core.Matricula]time.Time)
	if t == nil {
		return dates
	}
	for _, row := range t.Rows {
		m := row.Matricula(config.ColMatricula)
		if !m.Valid() {
			continue
		}
		d, ok := row.Date(config.ColAdmission)
		if !ok {
			*warnings = append(*warnings, fmt.Sprintf("admission for %s has unparseable date", m))
			continue
		}
		dates[m] = d
	}
	return dates
}

func (r *Resolver) terminationRecords(t *source.Table, warnings *[]string) map[core.Matricula]core.Termination {
	records := make(map[core.Matricula]core.Termination)
	if t == nil {
		return records
	}
	for _, row := range t.Rows {
		m := row.Matricula(config.ColMatricula)
		if !m.Valid() {
			continue
		}
		d, ok := row.Date(config.ColTerminationDate)
		if !ok {
			*warnings = append(*warnings, fmt.Sprintf("termination for %s has unparseable date", m))
			continue
		}
		records[m] = core.Termination{
			Date:     d,
			NoticeOK: row.Get(config.ColTerminationNotice) == "OK",
		}
	}
	return records
}

func (r *Resolver) vacationDays(t *source.Table, warnings *[]string) map[core.Matricula]int {
	days := make(map[core.Matricula]int)
	if t == nil {
		return days
	}
	for _, row := range t.Rows {
		m := row.Matricula(config.ColMatricula)
		if !m.Valid() {
			continue
		}
		n, ok := row.Int(config.ColVacationDays)
		if !ok {
			*warnings = append(*warnings, fmt.Sprintf("vacation record for %s has unparseable days", m))
			continue
		}
		days[m] = n
	}
	return days
}
