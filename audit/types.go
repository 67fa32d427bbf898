/*
Package audit provides the diagnostic audit trail for reconciliation runs.

PURPOSE:
  Every pipeline step emits diagnostic messages - skipped sheets, policy
  applications, per-mismatch details, run summaries. This package ingests
  those messages, persists them append-only, and serves flat or grouped
  views for operator inspection.

KEY CONCEPTS IN THIS FILE (types.go):
  - Message: One immutable diagnostic record, tagged with step/scope/level
  - Group: A derived per-batch summary (counts, min/max timestamps),
    recomputed on read - never stored
  - Step bounds: Steps are validated against a fixed range; a message
    whose step cannot be resolved rejects its whole ingest call

DESIGN PRINCIPLES:
  1. Append-only: Messages are never mutated or deleted
  2. Atomic ingestion: All items of a call validate and persist, or none
  3. Order-insensitive grouping: Counts and min/max only, so identical
     input yields identical groups regardless of iteration order

SEE ALSO:
  - service.go: Ingest/list operations and step resolution
  - store/memory.go: In-memory Store for tests
  - store/sqlite (top level): Production Store
*/
package audit

import (
	"time"
)

// =============================================================================
// STEP BOUNDS
// =============================================================================

// Pipeline steps are numbered 1..StepMax. The audit service validates
// every ingested item against these bounds.
const (
	StepMin = 1
	StepMax = 8
)

// MaxListLimit is the hard cap on a single list/grouped query.
const MaxListLimit = 2000

// =============================================================================
// LEVELS AND SCOPES
// =============================================================================

// Level is the severity of a diagnostic message.
type Level string

const (
	LevelError   Level = "error"
	LevelWarning Level = "warning"
	LevelInfo    Level = "info"
)

// Valid reports whether the level is one of the known severities.
func (l Level) Valid() bool {
	return l == LevelError || l == LevelWarning || l == LevelInfo
}

// Scope says which extract population a message concerns.
type Scope string

const (
	ScopeStaff  Scope = "staff"
	ScopeWorker Scope = "worker"
	ScopeGlobal Scope = "global"
)

// Valid reports whether the scope is one of the known populations.
func (s Scope) Valid() bool {
	return s == ScopeStaff || s == ScopeWorker || s == ScopeGlobal
}

// =============================================================================
// MESSAGE - One immutable diagnostic record
// =============================================================================

// Message is a single diagnostic record. Created by any pipeline step,
// never mutated, retained indefinitely.
type Message struct {
	BatchID   string            `json:"batch_id"`
	Step      int               `json:"step"`
	Level     Level             `json:"level"`
	Tag       string            `json:"tag"`
	Text      string            `json:"text"`
	Scope     Scope             `json:"scope"`
	Source    string            `json:"source,omitempty"`
	Meta      map[string]string `json:"meta,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// =============================================================================
// GROUP - Derived per-batch summary, recomputed on read
// =============================================================================

// Group summarizes one batch of messages. It is a pure read-time fold
// over the message set: counts and min/max timestamps only, so the
// result is independent of iteration order.
type Group struct {
	BatchID     string         `json:"batch_id"`
	Step        int            `json:"step"`
	StartedAt   time.Time      `json:"started_at"`
	EndedAt     time.Time      `json:"ended_at"`
	Count       int            `json:"count"`
	LevelCounts map[Level]int  `json:"level_counts"`
	TagCounts   map[string]int `json:"tag_counts"`
	Items       []Message      `json:"items"`
}

// =============================================================================
// REQUESTS AND FILTERS
// =============================================================================

// IngestItem is one message candidate within an ingest call. Step, level,
// scope and createdAt are optional; see the resolution rules in
// service.go.
type IngestItem struct {
	Step      *int              `json:"step,omitempty"`
	Level     Level             `json:"level,omitempty"`
	Tag       string            `json:"tag,omitempty"`
	Text      string            `json:"text"`
	Scope     Scope             `json:"scope,omitempty"`
	Source    string            `json:"source,omitempty"`
	Meta      map[string]string `json:"meta,omitempty"`
	CreatedAt *time.Time        `json:"created_at,omitempty"`
}

// IngestRequest is one atomic ingest call.
type IngestRequest struct {
	BatchID string       `json:"batch_id,omitempty"`
	Step    *int         `json:"step,omitempty"`
	Items   []IngestItem `json:"items"`
}

// IngestResult reports the resolved batch and how many items persisted.
type IngestResult struct {
	BatchID  string `json:"batch_id"`
	Step     int    `json:"step"`
	Inserted int    `json:"inserted"`
}

// Filter narrows a list/grouped query.
type Filter struct {
	Step  *int
	Limit int
}
