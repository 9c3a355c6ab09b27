// Package projector shapes finished calculations into the layout dictated by
// the output template and writes the monthly artifact.
package projector

import (
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/vrpipe/vrpipe/internal/benefit"
	"github.com/vrpipe/vrpipe/pkg/core"
)

// Template column names the projector knows how to fill. Anything else in the
// template stays blank so layout changes downstream never break a run.
const (
	colMatricula  = "Matricula"
	colAdmission  = "Admissão"
	colUnion      = "Sindicato do Colaborador"
	colCompetence = "Competência"
	colDays       = "Dias"
	colDailyValue = "VALOR DIÁRIO VR"
	colTotal      = "TOTAL"
	colCompany    = "Custo empresa"
	colEmployee   = "Desconto profissional"
	colNote       = "OBS GERAL"
)

const dateLayout = "02/01/2006"

type Projector struct {
	period core.Period
	logger *slog.Logger
}

func New(period core.Period, logger *slog.Logger) *Projector {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Projector{period: period, logger: logger}
}

// Project renders one output row per calculation, with cells ordered exactly
// as the template headers dictate.
func (p *Projector) Project(headers []string, calcs []benefit.Calculation) [][]string {
	rows := make([][]string, 0, len(calcs))
	for i := range calcs {
		rows = append(rows, p.projectRow(headers, &calcs[i]))
	}
	return rows
}

func (p *Projector) projectRow(headers []string, calc *benefit.Calculation) []string {
	row := make([]string, len(headers))
	for i, h := range headers {
		switch strings.TrimSpace(h) {
		case colMatricula:
			row[i] = string(calc.Matricula)
		case colAdmission:
			if calc.Employee != nil && calc.Employee.Admission != nil {
				row[i] = calc.Employee.Admission.Format(dateLayout)
			}
		case colUnion:
			row[i] = calc.Union
		case colCompetence:
			row[i] = p.period.String()
		case colDays:
			row[i] = formatInt(calc.PayableDays)
		case colDailyValue:
			row[i] = formatMoney(calc.DailyValue)
		case colTotal:
			row[i] = formatMoney(calc.Gross)
		case colCompany:
			row[i] = formatMoney(calc.CompanyShare)
		case colEmployee:
			row[i] = formatMoney(calc.EmployeeShare)
		case colNote:
			row[i] = calc.Note
		default:
			row[i] = ""
		}
	}
	return row
}

// formatMoney renders with the pt-BR decimal comma, matching the template.
func formatMoney(d decimal.Decimal) string {
	return strings.Replace(d.StringFixed(2), ".", ",", 1)
}

func formatInt(n int) string {
	return strconv.Itoa(n)
}
