// Package config provides shared configuration types for vrpipe.
// This package is decoupled from CLI concerns; the CLI loader in
// internal/cli/config populates these types from file, env, and flags.
package config

import (
	"fmt"

	"github.com/vrpipe/vrpipe/pkg/core"
)

// Config holds all pipeline configuration. It is immutable once loaded:
// the orchestrator receives it at construction and nothing reads ambient
// global state afterwards.
type Config struct {
	// ImportDir holds the input source files.
	ImportDir string `koanf:"import_dir"`
	// OutputDir receives the generated artifact.
	OutputDir string `koanf:"output_dir"`
	// StatePath is the SQLite state database.
	StatePath string `koanf:"state_path"`
	// Period is the reference competência in "MM/YYYY" form. Empty means
	// the current month.
	Period string `koanf:"period"`
	Verbose bool  `koanf:"verbose"`

	Rules  RulesConfig  `koanf:"rules"`
	Output OutputConfig `koanf:"output"`
	Notify NotifyConfig `koanf:"notify"`

	// StateMapping maps a state code appearing in a union name to the
	// state name used by the working-days and daily-value tables.
	StateMapping map[string]string `koanf:"state_mapping"`

	// SourceFiles optionally overrides the file name of a source by name.
	SourceFiles map[string]string `koanf:"source_files"`
}

// RulesConfig holds the business-rule parameters. Fields are pointers so an
// explicit zero in the project file is distinguishable from an unset value;
// ApplyDefaults fills the nil ones.
type RulesConfig struct {
	// TerminationCutoffDay: terminations with notice communicated on or
	// before this day of the month forfeit the whole benefit. Zero disables
	// the forfeiture rule.
	TerminationCutoffDay *int `koanf:"termination_cutoff_day"`
	// CompanySharePercent of the gross amount; the employee bears the rest.
	CompanySharePercent *int `koanf:"company_share_percent"`
	// MaxVacationDays clamps reported vacation days during validation.
	// Zero disables the clamp.
	MaxVacationDays *int `koanf:"max_vacation_days"`
}

// OutputConfig holds artifact generation options.
type OutputConfig struct {
	// EmitZeroRows emits zero-amount records for transparency instead of
	// omitting forfeited employees.
	EmitZeroRows bool `koanf:"emit_zero_rows"`
}

// NotifyConfig holds the optional SMTP notification settings. When Host is
// empty, completion is only logged.
type NotifyConfig struct {
	Host       string   `koanf:"host"`
	Port       int      `koanf:"port"`
	From       string   `koanf:"from"`
	Password   string   `koanf:"password"`
	Recipients []string `koanf:"recipients"`
}

// ParsePeriod resolves the configured period.
func (c *Config) ParsePeriod() (core.Period, error) {
	if c.Period == "" {
		return core.Period{}, fmt.Errorf("period is not configured")
	}
	return core.ParsePeriod(c.Period)
}

// ArtifactName returns the output file name for a period.
func ArtifactName(p core.Period) string {
	return fmt.Sprintf("vr_mensal_%02d_%04d.csv", int(p.Month), p.Year)
}
