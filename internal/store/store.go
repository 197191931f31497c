// Package store persists extraction run history. Two backends exist:
// SQLite for single-machine use and Postgres for shared deployments.
package store

import (
	"context"
	"encoding/json"

	"github.com/rotisserie/eris"

	"github.com/veridian-labs/docextract/internal/model"
)

// ErrRunNotFound is returned when a run id does not exist.
var ErrRunNotFound = eris.New("store: run not found")

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status model.RunStatus `json:"status,omitempty"`
	Source string          `json:"source,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

// Store defines the persistence interface for extraction runs.
type Store interface {
	// CreateRun records a new run in the running state and returns it
	// with its assigned id.
	CreateRun(ctx context.Context, source, provider, generatorModel string) (*model.Run, error)

	// CompleteRun marks a run complete with its stats and final record.
	CompleteRun(ctx context.Context, runID string, stats model.ProcessingStats, durationMs int64, record json.RawMessage) error

	// FailRun marks a run failed with the error message.
	FailRun(ctx context.Context, runID string, errMsg string) error

	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
