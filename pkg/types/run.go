// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// RunState tracks where a sync invocation is in its lifecycle. Every run
// starts at Idle; Failed is reachable from the fatal stages, and
// PartiallyFailed from document processing.
type RunState string

const (
	StateIdle            RunState = "idle"
	StateAuthenticating  RunState = "authenticating"
	StateFetching        RunState = "fetching"
	StateProcessing      RunState = "processing"
	StateCompleted       RunState = "completed"
	StatePartiallyFailed RunState = "partially_failed"
	StateFailed          RunState = "failed"
)

// Terminal reports whether the state is an end state.
func (s RunState) Terminal() bool {
	return s == StateCompleted || s == StatePartiallyFailed || s == StateFailed
}

// UpsertStatus classifies the outcome of one document upsert.
type UpsertStatus string

const (
	StatusCreated UpsertStatus = "created"
	StatusUpdated UpsertStatus = "updated"
	StatusFailed  UpsertStatus = "failed"
)

// UpsertOutcome records the result for one canonical document. Failures
// carry the error detail; the run itself continues.
type UpsertOutcome struct {
	DocumentID string       `json:"document_id" yaml:"document_id"`
	Status     UpsertStatus `json:"status" yaml:"status"`
	Error      string       `json:"error,omitempty" yaml:"error,omitempty"`
}

// RunSummary aggregates per-document outcomes for one invocation.
type RunSummary struct {
	Total   int `json:"total" yaml:"total"`
	Created int `json:"created" yaml:"created"`
	Updated int `json:"updated" yaml:"updated"`
	Failed  int `json:"failed" yaml:"failed"`
}

// Add folds one outcome into the summary.
func (s *RunSummary) Add(o UpsertOutcome) {
	s.Total++
	switch o.Status {
	case StatusCreated:
		s.Created++
	case StatusUpdated:
		s.Updated++
	case StatusFailed:
		s.Failed++
	}
}

// HasFailures reports whether any document failed.
func (s RunSummary) HasFailures() bool {
	return s.Failed > 0
}

// RunRecord is one journal entry: a finished (or aborted) invocation.
type RunRecord struct {
	ID         int64      `json:"id" yaml:"id"`
	StartedAt  time.Time  `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time  `json:"finished_at" yaml:"finished_at"`
	State      RunState   `json:"state" yaml:"state"`
	Summary    RunSummary `json:"summary" yaml:"summary"`
	Error      string     `json:"error,omitempty" yaml:"error,omitempty"`
}
