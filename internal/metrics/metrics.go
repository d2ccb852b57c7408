// Package metrics collects per-action and per-run telemetry. The JSON shape
// produced by Snapshot/Summary is a compatibility contract consumed by
// downstream reporting collaborators; field names must not change.
package metrics

import (
	"encoding/json"
	"math"
	"time"
)

// ActionStatus is the terminal (or transient) state of one action run.
type ActionStatus string

const (
	StatusSuccess  ActionStatus = "SUCCESS"
	StatusFailed   ActionStatus = "FAILED"
	StatusRetrying ActionStatus = "RETRYING"
	StatusSkipped  ActionStatus = "SKIPPED"
)

// ActionMetrics records the outcome of a single action run.
//
// Duration reflects only the attempt that decided the outcome; Attempts is the
// running total across all attempts. Start restarts the clock, so a retried
// action's duration is the final attempt's, not the sum.
type ActionMetrics struct {
	ActionName   string       `json:"action_name"`
	StartTime    *time.Time   `json:"start_time"`
	EndTime      *time.Time   `json:"end_time"`
	Duration     float64      `json:"duration_seconds"`
	Attempts     int          `json:"attempts"`
	Status       ActionStatus `json:"status"`
	ErrorMessage string       `json:"error_message"`
}

// MarshalJSON emits error_message as null rather than "" when no error was
// recorded. Downstream consumers key-check the field, so it is always present.
func (m *ActionMetrics) MarshalJSON() ([]byte, error) {
	type plain ActionMetrics
	doc := struct {
		*plain
		ErrorMessage *string `json:"error_message"`
	}{plain: (*plain)(m)}
	if m.ErrorMessage != "" {
		doc.ErrorMessage = &m.ErrorMessage
	}
	return json.Marshal(doc)
}

// NewActionMetrics creates metrics for an action that has not run yet.
func NewActionMetrics(actionName string) *ActionMetrics {
	return &ActionMetrics{
		ActionName: actionName,
		Status:     StatusSkipped,
	}
}

// Start marks the beginning of an attempt and bumps the attempt counter.
func (m *ActionMetrics) Start() {
	now := time.Now()
	m.StartTime = &now
	m.Attempts++
}

// End marks the end of the current attempt with the given status.
func (m *ActionMetrics) End(status ActionStatus, errorMessage string) {
	now := time.Now()
	m.EndTime = &now
	if m.StartTime != nil {
		m.Duration = round3(now.Sub(*m.StartTime).Seconds())
	}
	m.Status = status
	m.ErrorMessage = errorMessage
}

// WorkflowMetrics aggregates a whole run.
type WorkflowMetrics struct {
	BotName        string     `json:"bot_name"`
	CorrelationID  string     `json:"correlation_id"`
	StartTime      *time.Time `json:"start_time"`
	EndTime        *time.Time `json:"end_time"`
	Duration       float64    `json:"duration_seconds"`
	OverallSuccess bool       `json:"overall_success"`
	TotalActions   int        `json:"total_actions"`
	Successful     int        `json:"successful_actions"`
	Failed         int        `json:"failed_actions"`
	SuccessRate    float64    `json:"success_rate"`

	// Actions holds per-action metrics in execution order.
	Actions []*ActionMetrics `json:"actions"`
}

// NewWorkflowMetrics creates metrics for a run that has not started yet.
func NewWorkflowMetrics(botName, correlationID string) *WorkflowMetrics {
	return &WorkflowMetrics{
		BotName:       botName,
		CorrelationID: correlationID,
		Actions:       []*ActionMetrics{},
	}
}

// Start marks the beginning of the run.
func (m *WorkflowMetrics) Start() {
	now := time.Now()
	m.StartTime = &now
}

// End marks the end of the run and freezes the success rate.
func (m *WorkflowMetrics) End(success bool) {
	now := time.Now()
	m.EndTime = &now
	if m.StartTime != nil {
		m.Duration = round3(now.Sub(*m.StartTime).Seconds())
	}
	m.OverallSuccess = success
	m.SuccessRate = m.successRate()
}

// AddAction appends one action's metrics and updates the counters. Each action
// run is counted exactly once; skipped actions count toward the total but
// neither success nor failure.
func (m *WorkflowMetrics) AddAction(am *ActionMetrics) {
	m.Actions = append(m.Actions, am)
	m.TotalActions++
	switch am.Status {
	case StatusSuccess:
		m.Successful++
	case StatusFailed:
		m.Failed++
	}
	m.SuccessRate = m.successRate()
}

// successRate is 0 when no actions ran.
func (m *WorkflowMetrics) successRate() float64 {
	if m.TotalActions == 0 {
		return 0
	}
	return round2(float64(m.Successful) / float64(m.TotalActions) * 100)
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
func round3(v float64) float64 { return math.Round(v*1000) / 1000 }
