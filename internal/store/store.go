// Package store persists run history so past bot runs can be inspected after
// the process exits.
package store

import (
	"context"
	"encoding/json"
	"time"
)

// Store defines the run-history persistence contract.
// All implementations must be safe for concurrent use.
type Store interface {
	SaveRun(ctx context.Context, run *RunRecord) error
	GetRun(ctx context.Context, id string) (*RunRecord, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]*RunRecord, error)
	DeleteRun(ctx context.Context, id string) error

	// Maintenance
	Migrate(ctx context.Context) error
	Vacuum(ctx context.Context) error

	// Lifecycle
	Close() error
}

// RunRecord is one finished bot run. Metrics carries the full run summary as
// emitted by the engine; the flat columns exist for filtering and listing.
type RunRecord struct {
	ID            string          `json:"id"`
	BotName       string          `json:"bot_name"`
	CorrelationID string          `json:"correlation_id"`
	Success       bool            `json:"success"`
	TotalActions  int             `json:"total_actions"`
	Successful    int             `json:"successful_actions"`
	Failed        int             `json:"failed_actions"`
	Duration      float64         `json:"duration_seconds"`
	Metrics       json.RawMessage `json:"metrics,omitempty"`
	StartedAt     *time.Time      `json:"started_at,omitempty"`
	CompletedAt   *time.Time      `json:"completed_at,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// RunFilter narrows ListRuns. Zero values mean "no constraint".
type RunFilter struct {
	BotName string
	Success *bool
	Since   *time.Time
	Limit   int
	Offset  int
}
