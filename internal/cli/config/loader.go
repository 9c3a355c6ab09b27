// Package config loads the CLI-facing configuration: defaults, then the
// vrpipe.yaml project file, then VRPIPE_* environment variables, then flags.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	intconfig "github.com/vrpipe/vrpipe/internal/config"
)

// maxUpwardSearchLevels limits how far up the directory tree the project
// file search goes.
const maxUpwardSearchLevels = 10

var (
	k              = koanf.New(".")
	configFileUsed string
	currentConfig  *intconfig.Config
)

func configExistsIn(dir string) string {
	for _, name := range []string{"vrpipe.yaml", "vrpipe.yml"} {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// findProjectRoot searches upward from the working directory for a vrpipe
// project file; falls back to the working directory itself.
func findProjectRoot() (root, cfgFile string) {
	cwd, err := os.Getwd()
	if err != nil {
		return ".", ""
	}
	dir := cwd
	for i := 0; i < maxUpwardSearchLevels; i++ {
		if found := configExistsIn(dir); found != "" {
			return dir, found
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return cwd, ""
}

func resolvePathRelativeTo(path, baseDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

// ResetConfig resets the package state. Used for testing.
func ResetConfig() {
	k = koanf.New(".")
	configFileUsed = ""
	currentConfig = nil
}

// LoadConfig loads the configuration. Precedence, highest first:
// flags > environment > project file > defaults.
func LoadConfig(cfgFile string, flags *pflag.FlagSet) (*intconfig.Config, error) {
	k = koanf.New(".")

	projectRoot := ""
	if cfgFile != "" {
		abs, err := filepath.Abs(cfgFile)
		if err != nil {
			return nil, fmt.Errorf("resolving config path: %w", err)
		}
		if _, err := os.Stat(abs); err != nil {
			return nil, fmt.Errorf("config file %s: %w", cfgFile, err)
		}
		projectRoot = filepath.Dir(abs)
		configFileUsed = abs
	} else {
		projectRoot, configFileUsed = findProjectRoot()
	}

	// 1. Defaults.
	if err := k.Load(confmap.Provider(map[string]interface{}{
		"import_dir": intconfig.DefaultImportDir,
		"output_dir": intconfig.DefaultOutputDir,
		"state_path": intconfig.DefaultStateFile,
		"verbose":    false,
		"rules": map[string]interface{}{
			"termination_cutoff_day": intconfig.DefaultTerminationCutoffDay,
			"company_share_percent":  intconfig.DefaultCompanySharePercent,
			"max_vacation_days":      intconfig.DefaultMaxVacationDays,
		},
		"output": map[string]interface{}{
			"emit_zero_rows": false,
		},
		"notify": map[string]interface{}{
			"port": intconfig.DefaultSMTPPort,
		},
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Project file.
	if configFileUsed != "" {
		if err := k.Load(file.Provider(configFileUsed), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configFileUsed, err)
		}
	}

	// 3. Environment variables. VRPIPE_RULES__MAX_VACATION_DAYS maps to
	// rules.max_vacation_days.
	if err := k.Load(env.Provider("VRPIPE_", ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, "VRPIPE_"))
		return strings.ReplaceAll(key, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags, only those explicitly set.
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			key := strings.ReplaceAll(f.Name, "-", "_")
			if key == "state" {
				return "state_path", posflag.FlagVal(flags, f)
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg intconfig.Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	intconfig.ApplyDefaults(&cfg)

	cfg.ImportDir = resolvePathRelativeTo(cfg.ImportDir, projectRoot)
	cfg.OutputDir = resolvePathRelativeTo(cfg.OutputDir, projectRoot)
	cfg.StatePath = resolvePathRelativeTo(cfg.StatePath, projectRoot)

	if _, err := cfg.ParsePeriod(); err != nil {
		return nil, err
	}

	currentConfig = &cfg
	return &cfg, nil
}

// GetConfigFileUsed returns the path to the project file in effect, if any.
func GetConfigFileUsed() string {
	return configFileUsed
}

// GetCurrentConfig returns the configuration loaded by the last LoadConfig
// call.
func GetCurrentConfig() *intconfig.Config {
	return currentConfig
}
