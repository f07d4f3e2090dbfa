package commands

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sbtypegen/internal/cli/config"
	"github.com/leapstack-labs/sbtypegen/internal/pipeline"
	"github.com/leapstack-labs/sbtypegen/internal/state"
)

const watchDebounce = 200 * time.Millisecond

// WatchOptions holds options for the watch command.
type WatchOptions struct {
	Interval time.Duration
}

// NewWatchCommand creates the watch command.
func NewWatchCommand() *cobra.Command {
	opts := &WatchOptions{}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Regenerate declarations when local inputs change",
		Long: `Generate once, then regenerate whenever the configuration file or the base
declarations change. With --interval the schema is also refetched periodically,
picking up component changes made in Storyblok.`,
		Example: `  # Regenerate on local changes
  sbtypegen watch

  # Also refetch the schema every five minutes
  sbtypegen watch --interval 5m`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWatch(cmd, opts)
		},
	}

	cmd.Flags().DurationVar(&opts.Interval, "interval", 0, "Refetch the schema at this interval (0 disables)")

	return cmd
}

func runWatch(cmd *cobra.Command, opts *WatchOptions) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}

	history, err := cc.OpenHistory()
	if err != nil {
		return fmt.Errorf("failed to open history: %w", err)
	}
	if history != nil {
		defer func() { _ = history.Close() }()
	}

	ctx := cmd.Context()
	p := cc.NewPipeline(history)
	regenerate := func(reason string) {
		cc.Logger.Info("regenerating", "reason", reason)
		res, err := p.Run(ctx)
		if err != nil {
			cc.Renderer.Error(err.Error())
			return
		}
		_ = renderResult(cc.Renderer, res, false)
	}

	regenerate("startup")

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	targets := watchTargets(cc.Cfg)
	// Editors replace files on save, so the parent directories are watched.
	dirs := map[string]bool{}
	for path := range targets {
		dirs[filepath.Dir(path)] = true
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			cc.Logger.Error("failed to watch directory", "dir", dir, "error", err)
		}
	}

	var tick <-chan time.Time
	if opts.Interval > 0 {
		ticker := time.NewTicker(opts.Interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	cc.Renderer.Println(cc.Renderer.Styles().Muted.Render("Watching for changes. Press Ctrl+C to stop."))

	changes := make(chan string, 1)
	var debounceTimer *time.Timer

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if !targets[filepath.Clean(event.Name)] {
				continue
			}
			name := filepath.Clean(event.Name)
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(watchDebounce, func() {
				select {
				case changes <- name:
				default:
				}
			})

		case name := <-changes:
			if name == filepath.Clean(cc.Cfg.ConfigFile()) {
				next, err := reloadPipeline(cmd, cc, history)
				if err != nil {
					cc.Renderer.Error(err.Error())
					continue
				}
				p = next
			}
			regenerate("changed " + filepath.Base(name))

		case <-tick:
			regenerate("interval")

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			cc.Logger.Error("watcher error", "error", err)
		}
	}
}

// watchTargets returns the files whose changes trigger a regeneration.
func watchTargets(cfg *config.Config) map[string]bool {
	targets := map[string]bool{filepath.Clean(cfg.ConfigFile()): true}
	if cfg.BaseTypes != "" {
		targets[filepath.Clean(cfg.BaseTypes)] = true
	}
	return targets
}

// reloadPipeline reloads the configuration after the config file changed.
func reloadPipeline(cmd *cobra.Command, cc *CommandContext, history *state.SQLiteStore) (*pipeline.Pipeline, error) {
	cfg, err := config.LoadConfig(config.GetConfigFileUsed(), cmd.Flags())
	if err != nil {
		return nil, fmt.Errorf("reloading configuration: %w", err)
	}
	cc.Cfg = cfg
	return cc.NewPipeline(history), nil
}
