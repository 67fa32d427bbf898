package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/payroll-engine/audit"
	"github.com/warp/payroll-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func msg(batch string, step int, text string, ts time.Time) audit.Message {
	return audit.Message{
		BatchID:   batch,
		Step:      step,
		Level:     audit.LevelInfo,
		Tag:       "test",
		Text:      text,
		Scope:     audit.ScopeGlobal,
		CreatedAt: ts,
	}
}

// =============================================================================
// ROUND-TRIP TESTS
// =============================================================================

func TestStore_AppendAndQueryRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	ts := time.Date(2025, time.August, 1, 10, 0, 0, 0, time.UTC)
	original := audit.Message{
		BatchID:   "batch-1",
		Step:      3,
		Level:     audit.LevelWarning,
		Tag:       "mismatch",
		Text:      "employee 7 differs",
		Scope:     audit.ScopeStaff,
		Source:    "step-3-compare",
		Meta:      map[string]string{"employee": "7", "difference": "-13"},
		CreatedAt: ts,
	}
	require.NoError(t, store.Append(ctx, []audit.Message{original}))

	messages, err := store.Query(ctx, audit.Filter{})
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, original, messages[0])
}

func TestStore_QueryMostRecentFirstWithStepFilter(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2025, time.August, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, store.Append(ctx, []audit.Message{
		msg("b", 1, "old", base),
		msg("b", 2, "mid", base.Add(time.Minute)),
		msg("b", 2, "new", base.Add(2*time.Minute)),
	}))

	all, err := store.Query(ctx, audit.Filter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "new", all[0].Text)
	assert.Equal(t, "old", all[2].Text)

	step := 2
	filtered, err := store.Query(ctx, audit.Filter{Step: &step})
	require.NoError(t, err)
	assert.Len(t, filtered, 2)

	limited, err := store.Query(ctx, audit.Filter{Limit: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "new", limited[0].Text)
}

func TestStore_MixedPrecisionTimestampsOrderChronologically(t *testing.T) {
	// GIVEN: A whole-second timestamp followed by a sub-second one
	// WHEN: Querying
	// THEN: The sub-second message is newest; stored text order must not
	//       diverge from chronological order when precisions mix

	store := newTestStore(t)
	ctx := context.Background()

	whole := time.Date(2025, time.August, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, store.Append(ctx, []audit.Message{
		msg("b", 1, "older", whole),
		msg("b", 1, "newer", whole.Add(500*time.Millisecond)),
	}))

	messages, err := store.Query(ctx, audit.Filter{})
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "newer", messages[0].Text)
	assert.Equal(t, "older", messages[1].Text)

	// LIMIT applies in SQL, so a wrong order would also truncate away the
	// genuinely newest message.
	limited, err := store.Query(ctx, audit.Filter{Limit: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "newer", limited[0].Text)
}

func TestStore_TimestampTiesResolveToLaterInsert(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	ts := time.Date(2025, time.August, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, store.Append(ctx, []audit.Message{msg("b", 1, "first", ts)}))
	require.NoError(t, store.Append(ctx, []audit.Message{msg("b", 1, "second", ts)}))

	messages, err := store.Query(ctx, audit.Filter{})
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "second", messages[0].Text)
}

func TestStore_EmptyMetaStaysNil(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	ts := time.Date(2025, time.August, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, store.Append(ctx, []audit.Message{msg("b", 1, "no meta", ts)}))

	messages, err := store.Query(ctx, audit.Filter{})
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Nil(t, messages[0].Meta)
}
