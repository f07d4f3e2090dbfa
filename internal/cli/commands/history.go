package commands

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sbtypegen/internal/cli/output"
	"github.com/leapstack-labs/sbtypegen/pkg/core"
)

// HistoryOptions holds options for the history command.
type HistoryOptions struct {
	Limit int
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand() *cobra.Command {
	opts := &HistoryOptions{}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded generation runs",
		Long:  `List the most recent generation runs with their state, counts and content hash.`,
		Example: `  # Show the last 20 runs
  sbtypegen history

  # Show the last 5 runs as JSON
  sbtypegen history --limit 5 -o json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHistory(cmd, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 20, "Number of runs to show")

	return cmd
}

// RunInfo is the JSON form of a recorded run.
type RunInfo struct {
	ID          string        `json:"id"`
	StartedAt   time.Time     `json:"started_at"`
	Duration    time.Duration `json:"duration,omitempty"`
	State       core.RunState `json:"state"`
	Components  int           `json:"components"`
	Warnings    int           `json:"warnings"`
	ContentHash string        `json:"content_hash,omitempty"`
	Error       string        `json:"error,omitempty"`
}

func runHistory(cmd *cobra.Command, opts *HistoryOptions) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}

	store, err := cc.OpenHistory()
	if err != nil {
		return fmt.Errorf("failed to open history: %w", err)
	}
	if store == nil {
		return errors.New("history is disabled: set history_path to record generation runs")
	}
	defer func() { _ = store.Close() }()

	runs, err := store.ListRuns(opts.Limit)
	if err != nil {
		return err
	}

	infos := make([]RunInfo, 0, len(runs))
	for _, run := range runs {
		info := RunInfo{
			ID:          run.ID,
			StartedAt:   run.StartedAt,
			State:       run.State,
			Components:  run.Components,
			Warnings:    run.Warnings,
			ContentHash: run.ContentHash,
			Error:       run.Error,
		}
		if run.CompletedAt != nil {
			info.Duration = run.CompletedAt.Sub(run.StartedAt)
		}
		infos = append(infos, info)
	}
	return renderHistory(cc.Renderer, infos)
}

func renderHistory(r *output.Renderer, infos []RunInfo) error {
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(infos)
	}
	if len(infos) == 0 {
		r.Muted("No generation runs recorded yet.")
		return nil
	}

	r.Header(2, "Generation history")
	rows := make([][]string, 0, len(infos))
	for _, run := range infos {
		duration := "-"
		if run.Duration > 0 {
			duration = run.Duration.Round(time.Millisecond).String()
		}
		rows = append(rows, []string{
			shortID(run.ID, 8),
			run.StartedAt.Local().Format("2006-01-02 15:04:05"),
			duration,
			string(run.State),
			strconv.Itoa(run.Components),
			strconv.Itoa(run.Warnings),
			shortID(run.ContentHash, 12),
		})
	}
	r.Table([]string{"Run", "Started", "Duration", "State", "Components", "Warnings", "Content"}, rows)
	return nil
}

func shortID(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
