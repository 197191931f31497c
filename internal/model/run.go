package model

import (
	"encoding/json"
	"time"
)

// RunStatus tracks the lifecycle of one persisted extraction run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Run is the persisted record of one extraction call: what was processed,
// with which backend, and how the segments fared. Diagnostic consumers (run
// history, learning) read these; rendering never does.
type Run struct {
	ID         string          `json:"id"`
	Source     string          `json:"source"`
	Provider   string          `json:"provider"`
	Model      string          `json:"model"`
	Status     RunStatus       `json:"status"`
	Stats      ProcessingStats `json:"stats"`
	DurationMs int64           `json:"duration_ms"`
	Error      string          `json:"error,omitempty"`
	Record     json.RawMessage `json:"record,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}
