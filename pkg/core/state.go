package core

import "time"

// RunState is the final state of a generation run.
type RunState string

// Run state constants.
const (
	RunStateRunning  RunState = "running"
	RunStateDone     RunState = "done"
	RunStateDegraded RunState = "degraded"
	RunStateFailed   RunState = "failed"
)

// Run is one recorded generation run.
type Run struct {
	ID          string
	StartedAt   time.Time
	CompletedAt *time.Time
	State       RunState
	Components  int
	Warnings    int
	ContentHash string
	Error       string
}

// HistoryStore persists generation runs.
type HistoryStore interface {
	CreateRun(id string, startedAt time.Time) (*Run, error)
	CompleteRun(run *Run) error
	GetRun(id string) (*Run, error)
	LatestCompleted() (*Run, error)
	ListRuns(limit int) ([]*Run, error)
	Close() error
}
