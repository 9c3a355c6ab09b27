// Package commands implements the vrpipe subcommands.
package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	cliconfig "github.com/vrpipe/vrpipe/internal/cli/config"
	"github.com/vrpipe/vrpipe/internal/config"
	"github.com/vrpipe/vrpipe/internal/integrity"
	"github.com/vrpipe/vrpipe/internal/notify"
	"github.com/vrpipe/vrpipe/internal/pipeline"
	"github.com/vrpipe/vrpipe/internal/source"
	"github.com/vrpipe/vrpipe/internal/state"
)

// CommandContext bundles the objects most subcommands need. Close releases
// the state store.
type CommandContext struct {
	Cfg     *config.Config
	Logger  *slog.Logger
	Store   *state.SQLiteStore
	Checker *integrity.Checker
	Loader  *source.Loader
}

// setup opens the state store and builds the shared components from the
// loaded configuration.
func setup(ctx context.Context) (*CommandContext, error) {
	cfg := cliconfig.GetCurrentConfig()
	if cfg == nil {
		return nil, fmt.Errorf("configuration not loaded")
	}
	logger := cliconfig.GetLogger(ctx)

	stateDir := filepath.Dir(cfg.StatePath)
	if stateDir != "." && stateDir != "" {
		if err := os.MkdirAll(stateDir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create state directory: %w", err)
		}
	}

	store := state.NewSQLiteStore(logger)
	if err := store.Open(cfg.StatePath); err != nil {
		return nil, fmt.Errorf("failed to open state database: %w", err)
	}
	if err := store.Migrate(); err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to migrate state database: %w", err)
	}

	return &CommandContext{
		Cfg:     cfg,
		Logger:  logger,
		Store:   store,
		Checker: integrity.NewChecker(store, logger),
		Loader:  source.NewLoader(cfg.ImportDir, logger),
	}, nil
}

func (cc *CommandContext) Close() {
	if cc.Store != nil {
		if err := cc.Store.Close(); err != nil {
			cc.Logger.Warn("closing state store", "error", err)
		}
	}
}

// newPipeline assembles a pipeline with the notifier the configuration asks
// for: SMTP when a mail host is set, plain log output otherwise.
func (cc *CommandContext) newPipeline() *pipeline.Pipeline {
	var notifier pipeline.Notifier
	if cc.Cfg.Notify.Host != "" {
		notifier = notify.NewSMTPNotifier(cc.Cfg.Notify, cc.Logger)
	} else {
		notifier = notify.NewLogNotifier(cc.Logger)
	}
	return pipeline.New(cc.Cfg, cc.Store, cc.Checker, cc.Loader, notifier, cc.Logger)
}

// targets lists every configured source with its resolved path.
func (cc *CommandContext) targets() []integrity.Target {
	specs := cc.Cfg.Sources()
	out := make([]integrity.Target, 0, len(specs))
	for _, spec := range specs {
		out = append(out, integrity.Target{Source: spec.Name, Path: cc.Loader.Path(spec)})
	}
	return out
}
