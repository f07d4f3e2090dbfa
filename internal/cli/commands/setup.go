package commands

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sbtypegen/internal/cli/config"
	"github.com/leapstack-labs/sbtypegen/internal/cli/output"
	"github.com/leapstack-labs/sbtypegen/internal/pipeline"
	"github.com/leapstack-labs/sbtypegen/internal/state"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext from the loaded configuration.
func NewCommandContext(cmd *cobra.Command) (*CommandContext, error) {
	cfg, err := getConfig(cmd)
	if err != nil {
		return nil, err
	}
	return &CommandContext{
		Cfg:      cfg,
		Logger:   config.GetLogger(cmd.Context()),
		Renderer: output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat)),
	}, nil
}

// getConfig returns the current configuration, loading it when the command
// runs without the root command (tests, embedding).
func getConfig(cmd *cobra.Command) (*config.Config, error) {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg, nil
	}
	return config.LoadConfig("", cmd.Flags())
}

// OpenHistory opens the generation history store. It returns nil when history
// is disabled. The caller closes the store.
func (cc *CommandContext) OpenHistory() (*state.SQLiteStore, error) {
	if cc.Cfg.HistoryPath == "" {
		return nil, nil
	}
	store := state.NewSQLiteStore(cc.Logger)
	if err := store.Open(cc.Cfg.HistoryPath); err != nil {
		return nil, err
	}
	return store, nil
}

// NewPipeline builds a pipeline from the configuration. A nil history store
// disables run recording.
func (cc *CommandContext) NewPipeline(history *state.SQLiteStore) *pipeline.Pipeline {
	pc := cc.Cfg.PipelineConfig()
	pc.Logger = cc.Logger
	if history != nil {
		pc.History = history
	}
	return pipeline.New(pc)
}
