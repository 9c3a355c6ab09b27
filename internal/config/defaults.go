package config

import (
	"fmt"
	"time"

	"github.com/vrpipe/vrpipe/internal/source"
)

// Default configuration values.
const (
	DefaultImportDir            = "import"
	DefaultOutputDir            = "output"
	DefaultStateFile            = ".vrpipe/state.db"
	DefaultTerminationCutoffDay = 15
	DefaultCompanySharePercent  = 80
	DefaultMaxVacationDays      = 30
	DefaultSMTPPort             = 587
)

// Normalized column names shared across sources. The employee id column is
// spelled the same way in every HR export this pipeline consumes.
const (
	ColMatricula         = "MATRICULA"
	ColName              = "NOME"
	ColUnion             = "Sindicato"
	ColAdmission         = "Admissão"
	ColTerminationDate   = "DATA DEMISSÃO"
	ColTerminationNotice = "COMUNICADO DE DESLIGAMENTO"
	ColVacationDays      = "DIAS DE FÉRIAS"
	ColUnionRef          = "SINDICATO"
	ColWorkingDays       = "DIAS_UTEIS"
	ColState             = "ESTADO"
	ColDailyValue        = "VALOR"
)

// Source names. These are the fingerprint keys, so renaming one makes the
// store treat the source as new.
const (
	SourceActiveEmployees = "active_employees"
	SourceWorkingDays     = "working_days_by_union"
	SourceStateValues     = "value_by_state"
	SourceTerminations    = "terminations"
	SourceVacations       = "vacations"
	SourceAdmissions      = "admissions"
	SourceInterns         = "interns"
	SourceApprentices     = "apprentices"
	SourceForeign         = "foreign_employees"
	SourceLeaves          = "leave_of_absence"
	SourceTemplate        = "output_template"
)

// ExclusionSources are the sources whose matriculas are categorically
// ineligible for the benefit.
var ExclusionSources = []string{
	SourceInterns,
	SourceApprentices,
	SourceForeign,
	SourceLeaves,
}

// ApplyDefaults fills unset fields of a Config.
func ApplyDefaults(c *Config) {
	if c == nil {
		return
	}
	if c.ImportDir == "" {
		c.ImportDir = DefaultImportDir
	}
	if c.OutputDir == "" {
		c.OutputDir = DefaultOutputDir
	}
	if c.StatePath == "" {
		c.StatePath = DefaultStateFile
	}
	if c.Period == "" {
		now := time.Now()
		c.Period = fmt.Sprintf("%02d/%04d", int(now.Month()), now.Year())
	}
	if c.Rules.TerminationCutoffDay == nil {
		c.Rules.TerminationCutoffDay = intPtr(DefaultTerminationCutoffDay)
	}
	if c.Rules.CompanySharePercent == nil {
		c.Rules.CompanySharePercent = intPtr(DefaultCompanySharePercent)
	}
	if c.Rules.MaxVacationDays == nil {
		c.Rules.MaxVacationDays = intPtr(DefaultMaxVacationDays)
	}
	if c.Notify.Port == 0 {
		c.Notify.Port = DefaultSMTPPort
	}
	if c.StateMapping == nil {
		c.StateMapping = DefaultStateMapping()
	}
}

func intPtr(v int) *int {
	return &v
}

// DefaultStateMapping maps state codes found in union names to the state
// names used by the reference tables.
func DefaultStateMapping() map[string]string {
	return map[string]string{
		"SP": "São Paulo",
		"RS": "Rio Grande do Sul",
		"RJ": "Rio de Janeiro",
		"PR": "Paraná",
	}
}

// Sources returns the specs of the eleven configured input sources, with
// any file-name overrides applied.
func (c *Config) Sources() []source.Spec {
	specs := []source.Spec{
		{
			Name:            SourceActiveEmployees,
			File:            "ativos.csv",
			RequiredColumns: []string{ColMatricula, ColUnion},
			Mandatory:       true,
		},
		{
			Name:        SourceWorkingDays,
			File:        "base_dias_uteis.csv",
			ColumnNames: []string{ColUnionRef, ColWorkingDays},
			Mandatory:   true,
		},
		{
			Name:        SourceStateValues,
			File:        "base_sindicato_valor.csv",
			ColumnNames: []string{ColState, ColDailyValue},
			Mandatory:   true,
		},
		{
			Name:            SourceTerminations,
			File:            "desligados.csv",
			RequiredColumns: []string{ColMatricula, ColTerminationDate, ColTerminationNotice},
		},
		{
			Name:            SourceVacations,
			File:            "ferias.csv",
			RequiredColumns: []string{ColMatricula, ColVacationDays},
		},
		{
			Name:            SourceAdmissions,
			File:            "admissao.csv",
			RequiredColumns: []string{ColMatricula, ColAdmission},
		},
		{
			Name:            SourceInterns,
			File:            "estagio.csv",
			RequiredColumns: []string{ColMatricula},
		},
		{
			Name:            SourceApprentices,
			File:            "aprendiz.csv",
			RequiredColumns: []string{ColMatricula},
		},
		{
			Name:        SourceForeign,
			File:        "exterior.csv",
			ColumnNames: []string{ColMatricula, "VALOR_EXTERIOR", "STATUS_EXTERIOR"},
			Headerless:  true,
		},
		{
			Name:            SourceLeaves,
			File:            "afastamentos.csv",
			RequiredColumns: []string{ColMatricula},
		},
		{
			Name:      SourceTemplate,
			File:      "vr_mensal.csv",
			Mandatory: true,
		},
	}

	for i := range specs {
		if override, ok := c.SourceFiles[specs[i].Name]; ok && override != "" {
			specs[i].File = override
		}
	}
	return specs
}

// SourceNames returns the names of all configured sources, the known set
// used for orphan cleanup.
func (c *Config) SourceNames() []string {
	specs := c.Sources()
	names := make([]string, len(specs))
	for i, s := range specs {
		names[i] = s.Name
	}
	return names
}
