package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/leapstack-labs/sbtypegen/pkg/core"
)

const runColumns = `id, started_at, completed_at, state, components, warnings, content_hash, error`

// timeLayout has a fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ctx returns the context for store queries; the store API is synchronous.
func ctx() context.Context {
	return context.Background()
}

// CreateRun records a new running generation.
func (s *SQLiteStore) CreateRun(id string, startedAt time.Time) (*Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	run := &Run{ID: id, StartedAt: startedAt.UTC(), State: core.RunStateRunning}
	s.logger.Debug("creating run", slog.String("id", id))

	_, err := s.db.ExecContext(ctx(),
		`INSERT INTO runs (id, started_at, state) VALUES (?, ?, ?)`,
		run.ID, formatTime(run.StartedAt), string(run.State))
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}
	return run, nil
}

// CompleteRun stores the final state of a run. CompletedAt defaults to now.
func (s *SQLiteStore) CompleteRun(run *Run) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	if run.CompletedAt == nil {
		now := time.Now().UTC()
		run.CompletedAt = &now
	}

	res, err := s.db.ExecContext(ctx(),
		`UPDATE runs SET completed_at = ?, state = ?, components = ?, warnings = ?, content_hash = ?, error = ?
		 WHERE id = ?`,
		formatTime(*run.CompletedAt), string(run.State), run.Components, run.Warnings, run.ContentHash, run.Error, run.ID)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("run not found: %s", run.ID)
	}
	return nil
}

// GetRun retrieves a run by ID.
func (s *SQLiteStore) GetRun(id string) (*Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	row := s.db.QueryRowContext(ctx(), `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// LatestCompleted returns the most recent run that wrote output, or nil when
// there is none.
func (s *SQLiteStore) LatestCompleted() (*Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	row := s.db.QueryRowContext(ctx(),
		`SELECT `+runColumns+` FROM runs
		 WHERE state IN (?, ?) AND completed_at IS NOT NULL
		 ORDER BY started_at DESC, rowid DESC LIMIT 1`,
		string(core.RunStateDone), string(core.RunStateDegraded))
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest run: %w", err)
	}
	return run, nil
}

// ListRuns retrieves the most recent runs up to the given limit, newest first.
func (s *SQLiteStore) ListRuns(limit int) ([]*Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx(),
		`SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	var (
		run       Run
		started   string
		completed sql.NullString
		state     string
	)
	if err := row.Scan(&run.ID, &started, &completed, &state, &run.Components, &run.Warnings, &run.ContentHash, &run.Error); err != nil {
		return nil, err
	}

	t, err := parseTime(started)
	if err != nil {
		return nil, err
	}
	run.StartedAt = t
	run.State = core.RunState(state)

	if completed.Valid {
		t, err := parseTime(completed.String)
		if err != nil {
			return nil, err
		}
		run.CompletedAt = &t
	}
	return &run, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	return t, nil
}
