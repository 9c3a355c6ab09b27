// Package benefit computes the monthly benefit amount for each eligible
// employee: payable days after vacation, admission and termination
// adjustments, then the gross value and its company/employee split.
package benefit

import (
	"io"
	"log/slog"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/vrpipe/vrpipe/pkg/core"
)

// Calculation is one employee's finished benefit line.
type Calculation struct {
	Matricula     core.Matricula
	Union         string
	State         string
	PayableDays   int
	DailyValue    decimal.Decimal
	Gross         decimal.Decimal
	CompanyShare  decimal.Decimal
	EmployeeShare decimal.Decimal
	Note          string

	// Employee keeps the classified record for projection.
	Employee *core.Employee
}

// Config carries the tunable calculation rules.
type Config struct {
	Period core.Period
	// CutoffDay: a terminated employee with an acknowledged notice dated on or
	// before this day of the month forfeits the whole benefit.
	CutoffDay           int
	CompanySharePercent int
	EmitZeroRows        bool
}

type Engine struct {
	cfg    Config
	logger *slog.Logger
}

func NewEngine(cfg Config, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Engine{cfg: cfg, logger: logger}
}

// Calculate produces one Calculation per employee that ends up with a payable
// amount (zero-amount lines are included only when EmitZeroRows is set).
// Employees whose state has no reference data are reported as errors and
// skipped; the rest of the batch is unaffected.
func (e *Engine) Calculate(employees map[core.Matricula]*core.Employee, ref *Reference) ([]Calculation, []error) {
	var (
		calcs []Calculation
		errs  []error
	)

	for _, emp := range employees {
		calc, err := e.calculateOne(emp, ref)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if calc.Gross.IsZero() && !e.cfg.EmitZeroRows {
			e.logger.Debug("omitting zero-amount line", "matricula", emp.Matricula, "note", calc.Note)
			continue
		}
		calcs = append(calcs, calc)
	}

	sort.Slice(calcs, func(i, j int) bool { return calcs[i].Matricula < calcs[j].Matricula })
	return calcs, errs
}

func (e *Engine) calculateOne(emp *core.Employee, ref *Reference) (Calculation, error) {
	if emp.State == "" {
		return Calculation{}, &ReferenceDataError{Matricula: emp.Matricula, Union: emp.Union}
	}
	baseDays, ok := ref.WorkingDays[emp.State]
	if !ok {
		return Calculation{}, &ReferenceDataError{Matricula: emp.Matricula, Union: emp.Union, State: emp.State, Field: "working_days"}
	}
	dailyValue, ok := ref.DailyValue[emp.State]
	if !ok {
		return Calculation{}, &ReferenceDataError{Matricula: emp.Matricula, Union: emp.Union, State: emp.State, Field: "daily_value"}
	}

	days, note := e.payableDays(emp, baseDays)
	if days < 0 {
		days = 0
	}

	gross := dailyValue.Mul(decimal.NewFromInt(int64(days))).Round(2)
	company, employee := e.split(gross)

	return Calculation{
		Matricula:     emp.Matricula,
		Union:         emp.Union,
		State:         emp.State,
		PayableDays:   days,
		DailyValue:    dailyValue,
		Gross:         gross,
		CompanyShare:  company,
		EmployeeShare: employee,
		Note:          note,
		Employee:      emp,
	}, nil
}

// payableDays applies the adjustment rules in precedence order: termination
// first, then admission proration, then the vacation discount.
func (e *Engine) payableDays(emp *core.Employee, baseDays int) (int, string) {
	if emp.Status == core.StatusTerminated && emp.Termination != nil {
		day := emp.Termination.Date.Day()
		if emp.Termination.NoticeOK && day <= e.cfg.CutoffDay {
			return 0, "desligado com comunicado até o corte"
		}
		// Paid proportionally to the days worked in the calendar month.
		prorated := decimal.NewFromInt(int64(day)).
			Mul(decimal.NewFromInt(int64(baseDays))).
			Div(decimal.NewFromInt(int64(e.cfg.Period.Days()))).
			Floor()
		return int(prorated.IntPart()), "desligado no período"
	}

	if emp.Status == core.StatusAdmitted && emp.Admission != nil {
		day := emp.Admission.Day()
		remaining := decimal.NewFromInt(int64(baseDays - (day - 1)))
		prorated := decimal.NewFromInt(int64(baseDays)).
			Mul(remaining).
			Div(decimal.NewFromInt(int64(baseDays))).
			Floor()
		return int(prorated.IntPart()), "admitido no período"
	}

	days := baseDays - emp.VacationDays
	if emp.VacationDays > 0 {
		return days, "desconto de férias"
	}
	return days, ""
}

// split divides the gross amount between company and employee. Each share is
// rounded to cents independently and any leftover cent lands on the larger
// share so the two always sum back to the gross.
func (e *Engine) split(gross decimal.Decimal) (company, employee decimal.Decimal) {
	pct := decimal.NewFromInt(int64(e.cfg.CompanySharePercent)).Div(decimal.NewFromInt(100))
	company = gross.Mul(pct).Round(2)
	employee = gross.Sub(gross.Mul(pct)).Round(2)

	if diff := gross.Sub(company.Add(employee)); !diff.IsZero() {
		if company.GreaterThanOrEqual(employee) {
			company = company.Add(diff)
		} else {
			employee = employee.Add(diff)
		}
	}
	return company, employee
}
