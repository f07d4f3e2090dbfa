// Package state records generation runs in a SQLite database.
// The schema is managed by goose migrations embedded in the binary.
package state

import (
	"github.com/leapstack-labs/sbtypegen/pkg/core"
)

// Type aliases for the history types defined in pkg/core.
type (
	// Run is an alias for core.Run.
	Run = core.Run

	// RunState is an alias for core.RunState.
	RunState = core.RunState
)

var _ core.HistoryStore = (*SQLiteStore)(nil)
