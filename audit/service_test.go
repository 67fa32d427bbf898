package audit_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/payroll-engine/audit"
	"github.com/warp/payroll-engine/audit/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestService() *audit.Service {
	return audit.NewService(store.NewMemory())
}

func intp(n int) *int { return &n }

func at(t *testing.T, value string) *time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, value)
	require.NoError(t, err)
	return &ts
}

// =============================================================================
// STEP RESOLUTION TESTS
// =============================================================================

func TestIngest_StepResolutionOrder(t *testing.T) {
	// GIVEN: Items carrying an explicit step, relying on the batch step,
	//        and relying on source-label inference
	// WHEN: Ingesting
	// THEN: All resolve, in that priority order

	svc := newTestService()
	ctx := context.Background()

	result, err := svc.Ingest(ctx, audit.IngestRequest{
		Step: intp(2),
		Items: []audit.IngestItem{
			{Text: "explicit", Step: intp(5)},
			{Text: "batch default"},
			{Text: "inferred", Step: nil, Source: "step-7-compare"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, result.Inserted)
	assert.NotEmpty(t, result.BatchID, "missing batch id must be generated")

	messages, err := svc.List(ctx, audit.Filter{})
	require.NoError(t, err)
	require.Len(t, messages, 3)

	steps := map[string]int{}
	for _, m := range messages {
		steps[m.Text] = m.Step
	}
	assert.Equal(t, 5, steps["explicit"], "item step beats batch step")
	assert.Equal(t, 2, steps["batch default"])
	assert.Equal(t, 7, steps["inferred"], "step parsed from source label")
}

func TestIngest_SourceInferenceVariants(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	for _, src := range []string{"step-3-aggregate", "Step 3", "step_3", "STEP3"} {
		result, err := svc.Ingest(ctx, audit.IngestRequest{
			Items: []audit.IngestItem{{Text: "x", Source: src}},
		})
		require.NoError(t, err, "source %q", src)
		assert.Equal(t, 3, result.Step, "source %q", src)
	}
}

// =============================================================================
// ALL-OR-NOTHING TESTS
// =============================================================================

func TestIngest_UnresolvableItemRejectsWholeCall(t *testing.T) {
	// GIVEN: Two resolvable items and one with no step anywhere
	// WHEN: Ingesting
	// THEN: The call fails and NOTHING is persisted

	svc := newTestService()
	ctx := context.Background()

	_, err := svc.Ingest(ctx, audit.IngestRequest{
		Items: []audit.IngestItem{
			{Text: "ok", Step: intp(1)},
			{Text: "no step at all"},
			{Text: "also ok", Step: intp(2)},
		},
	})

	var vErr *audit.ValidationError
	require.ErrorAs(t, err, &vErr)

	messages, err := svc.List(ctx, audit.Filter{})
	require.NoError(t, err)
	assert.Empty(t, messages, "partial insert must not happen")
}

func TestIngest_StepOutOfRangeRejected(t *testing.T) {
	svc := newTestService()

	for _, step := range []int{0, -1, audit.StepMax + 1} {
		_, err := svc.Ingest(context.Background(), audit.IngestRequest{
			Items: []audit.IngestItem{{Text: "x", Step: intp(step)}},
		})
		var vErr *audit.ValidationError
		assert.ErrorAs(t, err, &vErr, "step %d must be rejected", step)
	}
}

func TestIngest_EmptyCallRejected(t *testing.T) {
	svc := newTestService()
	_, err := svc.Ingest(context.Background(), audit.IngestRequest{})
	var vErr *audit.ValidationError
	assert.ErrorAs(t, err, &vErr)
}

func TestIngest_DefaultsAndBatchReuse(t *testing.T) {
	// Level defaults to info, scope to global; a caller-supplied batch id
	// is kept as-is.

	svc := newTestService()
	ctx := context.Background()

	result, err := svc.Ingest(ctx, audit.IngestRequest{
		BatchID: "run-42",
		Items:   []audit.IngestItem{{Text: "x", Step: intp(1)}},
	})
	require.NoError(t, err)
	assert.Equal(t, "run-42", result.BatchID)

	messages, err := svc.List(ctx, audit.Filter{})
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, audit.LevelInfo, messages[0].Level)
	assert.Equal(t, audit.ScopeGlobal, messages[0].Scope)
	assert.False(t, messages[0].CreatedAt.IsZero())
}

func TestIngest_BatchSharesOneTimestamp(t *testing.T) {
	// Items without their own createdAt are stamped once per call, so an
	// atomic batch never spreads across slightly different timestamps.

	svc := newTestService()
	ctx := context.Background()

	_, err := svc.Ingest(ctx, audit.IngestRequest{
		Step: intp(1),
		Items: []audit.IngestItem{
			{Text: "a"}, {Text: "b"}, {Text: "c"},
		},
	})
	require.NoError(t, err)

	messages, err := svc.List(ctx, audit.Filter{})
	require.NoError(t, err)
	require.Len(t, messages, 3)
	assert.True(t, messages[1].CreatedAt.Equal(messages[0].CreatedAt))
	assert.True(t, messages[2].CreatedAt.Equal(messages[0].CreatedAt))
}

func TestIngest_UnknownLevelRejected(t *testing.T) {
	svc := newTestService()
	_, err := svc.Ingest(context.Background(), audit.IngestRequest{
		Items: []audit.IngestItem{{Text: "x", Step: intp(1), Level: "critical"}},
	})
	var vErr *audit.ValidationError
	assert.ErrorAs(t, err, &vErr)
}

// =============================================================================
// LIST TESTS
// =============================================================================

func TestList_StepFilterAndLimitClamp(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	_, err := svc.Ingest(ctx, audit.IngestRequest{
		Items: []audit.IngestItem{
			{Text: "a", Step: intp(1)},
			{Text: "b", Step: intp(2)},
			{Text: "c", Step: intp(2)},
		},
	})
	require.NoError(t, err)

	byStep, err := svc.List(ctx, audit.Filter{Step: intp(2)})
	require.NoError(t, err)
	assert.Len(t, byStep, 2)

	limited, err := svc.List(ctx, audit.Filter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	// A limit beyond the cap behaves like the cap, not an error.
	capped, err := svc.List(ctx, audit.Filter{Limit: audit.MaxListLimit * 10})
	require.NoError(t, err)
	assert.Len(t, capped, 3)
}

func TestList_MostRecentFirst(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	_, err := svc.Ingest(ctx, audit.IngestRequest{
		Items: []audit.IngestItem{
			{Text: "old", Step: intp(1), CreatedAt: at(t, "2025-08-01T10:00:00Z")},
			{Text: "new", Step: intp(1), CreatedAt: at(t, "2025-08-01T12:00:00Z")},
			{Text: "mid", Step: intp(1), CreatedAt: at(t, "2025-08-01T11:00:00Z")},
		},
	})
	require.NoError(t, err)

	messages, err := svc.List(ctx, audit.Filter{})
	require.NoError(t, err)
	require.Len(t, messages, 3)
	assert.Equal(t, "new", messages[0].Text)
	assert.Equal(t, "mid", messages[1].Text)
	assert.Equal(t, "old", messages[2].Text)
}

// =============================================================================
// GROUPING TESTS
// =============================================================================

func groupingFixture(t *testing.T) []audit.Message {
	t.Helper()
	mk := func(batch string, step int, level audit.Level, tag, text, ts string) audit.Message {
		return audit.Message{
			BatchID: batch, Step: step, Level: level, Tag: tag, Text: text,
			Scope: audit.ScopeGlobal, CreatedAt: *at(t, ts),
		}
	}
	return []audit.Message{
		mk("batch-a", 3, audit.LevelInfo, "start", "begin", "2025-08-01T10:00:00Z"),
		mk("batch-a", 3, audit.LevelWarning, "mismatch", "emp 7", "2025-08-01T10:05:00Z"),
		mk("batch-a", 3, audit.LevelWarning, "mismatch", "emp 9", "2025-08-01T10:06:00Z"),
		mk("batch-b", 5, audit.LevelError, "bad-amount", "row 3", "2025-08-01T11:00:00Z"),
	}
}

func TestGroupMessages_SummaryFields(t *testing.T) {
	groups := audit.GroupMessages(groupingFixture(t))
	require.Len(t, groups, 2)

	// Sorted by EndedAt descending: batch-b is the most recently active.
	assert.Equal(t, "batch-b", groups[0].BatchID)
	assert.Equal(t, "batch-a", groups[1].BatchID)

	a := groups[1]
	assert.Equal(t, 3, a.Step)
	assert.Equal(t, 3, a.Count)
	assert.Equal(t, *at(t, "2025-08-01T10:00:00Z"), a.StartedAt)
	assert.Equal(t, *at(t, "2025-08-01T10:06:00Z"), a.EndedAt)
	assert.Equal(t, map[audit.Level]int{audit.LevelInfo: 1, audit.LevelWarning: 2}, a.LevelCounts)
	assert.Equal(t, map[string]int{"start": 1, "mismatch": 2}, a.TagCounts)
	require.Len(t, a.Items, 3)
	assert.Equal(t, "begin", a.Items[0].Text, "items oldest-first inside a group")
}

func TestGroupMessages_OrderInsensitive(t *testing.T) {
	// GIVEN: The same message set in reversed input order
	// WHEN: Grouping both
	// THEN: Counts, bounds, and ordering are identical

	fixture := groupingFixture(t)
	reversed := make([]audit.Message, len(fixture))
	for i, m := range fixture {
		reversed[len(fixture)-1-i] = m
	}

	forward := audit.GroupMessages(fixture)
	backward := audit.GroupMessages(reversed)

	assert.Equal(t, forward, backward)
}

func TestListGrouped_EndToEnd(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	for _, msg := range groupingFixture(t) {
		ts := msg.CreatedAt
		_, err := svc.Ingest(ctx, audit.IngestRequest{
			BatchID: msg.BatchID,
			Items: []audit.IngestItem{{
				Step: intp(msg.Step), Level: msg.Level, Tag: msg.Tag,
				Text: msg.Text, CreatedAt: &ts,
			}},
		})
		require.NoError(t, err)
	}

	groups, err := svc.ListGrouped(ctx, audit.Filter{})
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, "batch-b", groups[0].BatchID)
	assert.Equal(t, 3, groups[1].Count)
}
