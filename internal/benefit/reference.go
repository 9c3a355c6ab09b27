package benefit

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/vrpipe/vrpipe/internal/config"
	"github.com/vrpipe/vrpipe/internal/source"
)

// Reference holds the per-state lookup tables the engine calculates against.
type Reference struct {
	// WorkingDays maps a state name to the number of payable days in the period.
	WorkingDays map[string]int
	// DailyValue maps a state name to the benefit value for one payable day.
	DailyValue map[string]decimal.Decimal
}

// StateResolver turns a union description into a state name. An empty return
// means the union is unmapped.
type StateResolver interface {
	StateFromUnion(union string) string
}

// BuildReference assembles the lookup tables from the working-days and
// state-value sources. Rows that cannot be parsed (stray headers, totals,
// blank padding) are skipped with a warning rather than failing the run.
func BuildReference(workingDays, stateValues *source.Table, resolver StateResolver) (*Reference, []string) {
	ref := &Reference{
		WorkingDays: make(map[string]int),
		DailyValue:  make(map[string]decimal.Decimal),
	}
	var warnings []string

	for i, row := range workingDays.Rows {
		union := row.Get(config.ColUnionRef)
		days, ok := row.Int(config.ColWorkingDays)
		if union == "" || !ok {
			// The sheet carries a title row above the real header.
			continue
		}
		state := resolver.StateFromUnion(union)
		if state == "" {
			warnings = append(warnings, fmt.Sprintf("%s row %d: union %q maps to no state", workingDays.Source, i+1, union))
			continue
		}
		ref.WorkingDays[state] = days
	}

	for i, row := range stateValues.Rows {
		state := row.Get(config.ColState)
		raw := row.Get(config.ColDailyValue)
		if state == "" || raw == "" {
			continue
		}
		value, err := parseMoney(raw)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("%s row %d: bad value %q for state %q", stateValues.Source, i+1, raw, state))
			continue
		}
		ref.DailyValue[state] = value
	}

	return ref, warnings
}

// parseMoney accepts both "37.50" and the pt-BR "37,50" form.
func parseMoney(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "R$")
	s = strings.TrimSpace(s)
	if strings.Contains(s, ",") {
		// 1.234,56 -> 1234.56
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	}
	return decimal.NewFromString(s)
}
