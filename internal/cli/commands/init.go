package commands

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	cliconfig "github.com/vrpipe/vrpipe/internal/cli/config"
	"github.com/vrpipe/vrpipe/internal/config"
	"github.com/vrpipe/vrpipe/internal/integrity"
	"github.com/vrpipe/vrpipe/internal/state"
)

const configTemplate = `# vrpipe project configuration.
# Paths are resolved relative to this file.

import_dir: import
output_dir: output
state_path: .vrpipe/state.db

# Reference period as MM/YYYY. Defaults to the current month when omitted.
# period: "05/2025"

rules:
  termination_cutoff_day: 15
  company_share_percent: 80
  max_vacation_days: 30

output:
  emit_zero_rows: false

# Uncomment to email run outcomes.
# notify:
#   host: smtp.example.com
#   port: 587
#   from: vrpipe@example.com
#   recipients:
#     - rh@example.com
`

// NewInitCommand creates the init command.
func NewInitCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "init [dir]",
		Short: "Scaffold a new vrpipe project",
		Long: `Create a vrpipe.yaml plus the import and output directories.

Source files already present in the import directory get their fingerprints
recorded, so the first run only processes what changes afterwards. Existing
files are never overwritten.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			return runInit(cmd, dir)
		},
	}
}

func runInit(cmd *cobra.Command, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating project directory: %w", err)
	}

	cfgPath := filepath.Join(dir, "vrpipe.yaml")
	if _, err := os.Stat(cfgPath); err == nil {
		return fmt.Errorf("%s already exists", cfgPath)
	}
	if err := os.WriteFile(cfgPath, []byte(configTemplate), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", cfgPath, err)
	}

	for _, sub := range []string{"import", "output"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return fmt.Errorf("creating %s directory: %w", sub, err)
		}
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Initialized vrpipe project in %s\n", dir)

	if err := seedFingerprints(dir, cliconfig.GetLogger(cmd.Context()), out); err != nil {
		return err
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Next steps:")
	fmt.Fprintln(out, "  1. Drop the monthly spreadsheets into import/")
	fmt.Fprintln(out, "  2. vrpipe check")
	fmt.Fprintln(out, "  3. vrpipe run")
	return nil
}

// seedFingerprints records the current hash of every source file already
// sitting in the scaffolded import directory. Sources that already carry a
// fingerprint are left alone.
func seedFingerprints(dir string, logger *slog.Logger, out io.Writer) error {
	statePath := filepath.Join(dir, filepath.FromSlash(config.DefaultStateFile))
	if err := os.MkdirAll(filepath.Dir(statePath), 0o750); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}

	store := state.NewSQLiteStore(logger)
	if err := store.Open(statePath); err != nil {
		return fmt.Errorf("opening state database: %w", err)
	}
	defer store.Close()
	if err := store.Migrate(); err != nil {
		return fmt.Errorf("migrating state database: %w", err)
	}

	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	checker := integrity.NewChecker(store, logger)

	seeded := 0
	for _, spec := range cfg.Sources() {
		path := filepath.Join(dir, config.DefaultImportDir, spec.File)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if fp, err := store.GetFingerprint(spec.Name); err == nil && fp != nil {
			continue
		}
		hash, err := checker.Reset(spec.Name, path)
		if err != nil {
			return fmt.Errorf("seeding fingerprint for %s: %w", spec.Name, err)
		}
		fmt.Fprintf(out, "  seeded %-22s %s\n", spec.Name, shortHash(hash))
		seeded++
	}
	if seeded > 0 {
		fmt.Fprintf(out, "Seeded %d fingerprints.\n", seeded)
	}
	return nil
}
