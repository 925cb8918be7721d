package model

import (
	"time"

	"github.com/google/uuid"
)

// Stage identifies one step of the retrieval pipeline.
type Stage string

const (
	StageKeyPhraseProcessing Stage = "KeyPhraseProcessing"
	StageSemanticGrounding   Stage = "SemanticGrounding"
	StageGraphTraversal      Stage = "GraphTraversal"
	StagePreHydration        Stage = "PreHydration"
	StageScoring             Stage = "Scoring"
	StageHydration           Stage = "Hydration"
)

// Impact classifies how a stage failure affects the request.
type Impact string

const (
	// ImpactFatal aborts the pipeline.
	ImpactFatal Impact = "fatal"
	// ImpactDegraded skips the failed stage and continues with what is
	// already computed.
	ImpactDegraded Impact = "degraded"
	// ImpactLogged drops only the affected item.
	ImpactLogged Impact = "logged"
)

// Status is the terminal state of one retrieval request.
type Status string

const (
	StatusCompleted         Status = "Completed"
	StatusDegradedCompleted Status = "DegradedCompleted"
	StatusFailed            Status = "Failed"
)

// StageRecord captures one completed (or failed) stage.
type StageRecord struct {
	Stage      Stage `json:"stage"`
	Success    bool  `json:"success"`
	Count      int   `json:"count"`
	DurationMs int64 `json:"duration_ms"`
}

// StageError is one classified error surfaced to the caller.
type StageError struct {
	Stage     Stage     `json:"stage"`
	Error     string    `json:"error"`
	Impact    Impact    `json:"impact"`
	Timestamp time.Time `json:"timestamp"`
}

// ExecutionContext is the per-request, write-once-per-stage record of what
// happened. It exists only for the lifetime of one request and is returned
// alongside the result for observability.
type ExecutionContext struct {
	RequestID string        `json:"requestId"`
	StartedAt time.Time     `json:"startedAt"`
	Stages    []StageRecord `json:"stages"`
	Errors    []StageError  `json:"errors"`

	degraded bool
	failed   bool
}

// NewExecutionContext creates the diagnostics record for one request.
func NewExecutionContext() *ExecutionContext {
	return &ExecutionContext{
		RequestID: uuid.New().String(),
		StartedAt: time.Now().UTC(),
	}
}

// RecordStage appends the outcome of one stage.
func (e *ExecutionContext) RecordStage(stage Stage, success bool, count int, duration time.Duration) {
	e.Stages = append(e.Stages, StageRecord{
		Stage:      stage,
		Success:    success,
		Count:      count,
		DurationMs: duration.Milliseconds(),
	})
}

// RecordError appends a classified stage error and updates the terminal
// state bookkeeping.
func (e *ExecutionContext) RecordError(stage Stage, err error, impact Impact) {
	e.Errors = append(e.Errors, StageError{
		Stage:     stage,
		Error:     err.Error(),
		Impact:    impact,
		Timestamp: time.Now().UTC(),
	})
	switch impact {
	case ImpactFatal:
		e.failed = true
	case ImpactDegraded:
		e.degraded = true
	}
}

// Status derives the terminal state from the recorded errors.
func (e *ExecutionContext) Status() Status {
	if e.failed {
		return StatusFailed
	}
	if e.degraded {
		return StatusDegradedCompleted
	}
	return StatusCompleted
}

// StageTimings returns per-stage durations in milliseconds keyed by stage
// name.
func (e *ExecutionContext) StageTimings() map[string]int64 {
	timings := make(map[string]int64, len(e.Stages))
	for _, record := range e.Stages {
		timings[string(record.Stage)] = record.DurationMs
	}
	return timings
}
