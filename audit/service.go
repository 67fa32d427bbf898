/*
service.go - Audit trail operations: ingest, list, grouped summaries

PURPOSE:
  The service sits between callers (pipeline steps, the HTTP API) and the
  append-only Store. It owns step resolution, all-or-nothing validation,
  batch ID generation, and the read-time grouping fold.

STEP RESOLUTION (per item, first match wins):
  1. The item's own explicit step
  2. The batch-level step on the ingest call
  3. A step number inferred from the item's source label
     (e.g. "step-3-aggregate" or "Step 3")
  If no step resolves for ANY item, the entire call is rejected and
  nothing is persisted. Callers may retry with an explicit step.

GROUPING:
  Grouped reads fold messages into per-batch summaries: level and tag
  counts plus min/max createdAt. All aggregation is commutative, so the
  fold yields identical output for identical input in any order. Groups
  sort by EndedAt descending (most recently active batch first).

SEE ALSO:
  - types.go: Message, Group, step bounds
  - store.go: The Store contract
*/
package audit

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// SERVICE
// =============================================================================

// Service exposes the audit trail operations over a Store.
type Service struct {
	store Store
	now   func() time.Time
}

// NewService creates a service over the given store.
func NewService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

// stepSourcePattern extracts a step number from source labels like
// "step-3-aggregate", "Step 3" or "step_7".
var stepSourcePattern = regexp.MustCompile(`(?i)step[\s_-]*(\d+)`)

// =============================================================================
// INGEST - Atomic, all-or-nothing
// =============================================================================

// Ingest validates and persists one batch of diagnostic messages.
// Atomic per call: every item must resolve to a valid step or the whole
// call fails with a ValidationError and nothing is inserted. A missing
// batch ID gets a fresh unique one.
func (s *Service) Ingest(ctx context.Context, req IngestRequest) (IngestResult, error) {
	if len(req.Items) == 0 {
		return IngestResult{}, &ValidationError{Reason: "no items to ingest"}
	}

	batchID := req.BatchID
	if batchID == "" {
		batchID = uuid.NewString()
	}

	messages := make([]Message, 0, len(req.Items))
	batchStep := 0
	// One timestamp per call: a batch's messages share it unless an item
	// carries its own, keeping grouped startedAt/endedAt tight.
	stampedAt := s.now().UTC()
	for i, item := range req.Items {
		step, err := resolveStep(item, req.Step)
		if err != nil {
			return IngestResult{}, &ValidationError{Reason: fmt.Sprintf("item %d: %v", i, err)}
		}
		if batchStep == 0 {
			batchStep = step
		}

		msg := Message{
			BatchID:   batchID,
			Step:      step,
			Level:     item.Level,
			Tag:       item.Tag,
			Text:      item.Text,
			Scope:     item.Scope,
			Source:    item.Source,
			Meta:      item.Meta,
			CreatedAt: stampedAt,
		}
		if msg.Level == "" {
			msg.Level = LevelInfo
		}
		if msg.Scope == "" {
			msg.Scope = ScopeGlobal
		}
		if !msg.Level.Valid() {
			return IngestResult{}, &ValidationError{Reason: fmt.Sprintf("item %d: unknown level %q", i, item.Level)}
		}
		if !msg.Scope.Valid() {
			return IngestResult{}, &ValidationError{Reason: fmt.Sprintf("item %d: unknown scope %q", i, item.Scope)}
		}
		if item.CreatedAt != nil {
			msg.CreatedAt = item.CreatedAt.UTC()
		}
		messages = append(messages, msg)
	}

	if err := s.store.Append(ctx, messages); err != nil {
		return IngestResult{}, err
	}
	return IngestResult{BatchID: batchID, Step: batchStep, Inserted: len(messages)}, nil
}

// resolveStep applies the three-stage resolution order and validates the
// bounds.
func resolveStep(item IngestItem, batchStep *int) (int, error) {
	var step int
	switch {
	case item.Step != nil:
		step = *item.Step
	case batchStep != nil:
		step = *batchStep
	default:
		m := stepSourcePattern.FindStringSubmatch(item.Source)
		if m == nil {
			return 0, fmt.Errorf("no step resolvable")
		}
		step, _ = strconv.Atoi(m[1])
	}
	if step < StepMin || step > StepMax {
		return 0, fmt.Errorf("step %d outside [%d,%d]", step, StepMin, StepMax)
	}
	return step, nil
}

// =============================================================================
// LIST - Flat, most recent first
// =============================================================================

// List returns messages matching the filter, most recent first. The
// limit is clamped to MaxListLimit; zero or negative means the cap.
func (s *Service) List(ctx context.Context, filter Filter) ([]Message, error) {
	filter.Limit = clampLimit(filter.Limit)
	return s.store.Query(ctx, filter)
}

// =============================================================================
// GROUPED - Read-time fold into per-batch summaries
// =============================================================================

// ListGrouped folds matching messages into per-batch groups and sorts
// them by EndedAt descending.
func (s *Service) ListGrouped(ctx context.Context, filter Filter) ([]Group, error) {
	filter.Limit = clampLimit(filter.Limit)
	messages, err := s.store.Query(ctx, filter)
	if err != nil {
		return nil, err
	}
	return GroupMessages(messages), nil
}

// GroupMessages performs the pure grouping fold. Exported so tests can
// verify order-insensitivity without a store.
func GroupMessages(messages []Message) []Group {
	byBatch := make(map[string]*Group)
	for _, msg := range messages {
		g, ok := byBatch[msg.BatchID]
		if !ok {
			g = &Group{
				BatchID:     msg.BatchID,
				Step:        msg.Step,
				StartedAt:   msg.CreatedAt,
				EndedAt:     msg.CreatedAt,
				LevelCounts: make(map[Level]int),
				TagCounts:   make(map[string]int),
			}
			byBatch[msg.BatchID] = g
		}
		if msg.CreatedAt.Before(g.StartedAt) {
			g.StartedAt = msg.CreatedAt
			g.Step = msg.Step
		} else if msg.CreatedAt.Equal(g.StartedAt) && msg.Step < g.Step {
			// Batches normally carry one step; ties resolve to the lower
			// step so grouping stays order-insensitive.
			g.Step = msg.Step
		}
		if msg.CreatedAt.After(g.EndedAt) {
			g.EndedAt = msg.CreatedAt
		}
		g.Count++
		g.LevelCounts[msg.Level]++
		if msg.Tag != "" {
			g.TagCounts[msg.Tag]++
		}
		g.Items = append(g.Items, msg)
	}

	groups := make([]Group, 0, len(byBatch))
	for _, g := range byBatch {
		// Items sorted oldest-first inside a group for readable traces.
		sort.Slice(g.Items, func(i, j int) bool {
			return g.Items[i].CreatedAt.Before(g.Items[j].CreatedAt)
		})
		groups = append(groups, *g)
	}
	sort.Slice(groups, func(i, j int) bool {
		if !groups[i].EndedAt.Equal(groups[j].EndedAt) {
			return groups[i].EndedAt.After(groups[j].EndedAt)
		}
		return groups[i].BatchID < groups[j].BatchID
	})
	return groups
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}

// =============================================================================
// VALIDATION ERROR
// =============================================================================

// ValidationError rejects an entire ingest call; nothing was persisted.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "audit ingest rejected: " + e.Reason
}
