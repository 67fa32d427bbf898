package recon_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/warp/payroll-engine/recon"
)

// =============================================================================
// NORMALIZATION TESTS
// =============================================================================

func TestNormalizeMonthKey_RecognizedLabels(t *testing.T) {
	tests := []struct {
		label string
		want  recon.MonthKey
	}{
		{"2025-03", "2025-03"},
		{"2025.3", "2025-03"},
		{"2025 9", "2025-09"},
		{"salary 2024-11", "2024-11"},
		{"March 2025", "2025-03"},
		{"mar 2025", "2025-03"},
		{"SEPT 25", "2025-09"},
		{"salary march 25", "2025-03"},
		{"December 2099", "2099-12"},
		{"pay june 2024 final", "2024-06"},
	}

	for _, tc := range tests {
		t.Run(tc.label, func(t *testing.T) {
			got, ok := recon.NormalizeMonthKey(tc.label)
			assert.True(t, ok, "label %q should be recognized", tc.label)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestNormalizeMonthKey_UnrecognizedLabels(t *testing.T) {
	tests := []string{
		"",
		"summary",
		"totals and notes",
		"1999-05",    // year below 2000
		"2025-13",    // month out of range
		"march",      // month name without a year
		"employee 7", // no period at all
	}

	for _, label := range tests {
		t.Run(label, func(t *testing.T) {
			_, ok := recon.NormalizeMonthKey(label)
			assert.False(t, ok, "label %q should not be recognized", label)
		})
	}
}

func TestNormalizeMonthKey_Idempotent(t *testing.T) {
	// GIVEN: An already-canonical key
	// WHEN: Re-normalizing it
	// THEN: The same key comes back

	key, ok := recon.NormalizeMonthKey("2024-07")
	assert.True(t, ok)
	again, ok := recon.NormalizeMonthKey(string(key))
	assert.True(t, ok)
	assert.Equal(t, key, again)
}

// =============================================================================
// RANGE AND ORDERING TESTS
// =============================================================================

func TestMonthRange_SpansYearBoundary(t *testing.T) {
	keys := recon.MonthRange("2024-11", "2025-02")
	assert.Equal(t, []recon.MonthKey{"2024-11", "2024-12", "2025-01", "2025-02"}, keys)
}

func TestMonthRange_InvertedBoundsEmpty(t *testing.T) {
	assert.Nil(t, recon.MonthRange("2025-05", "2025-01"))
}

func TestMonthKey_LexicalOrderIsChronological(t *testing.T) {
	assert.True(t, recon.MonthKey("2024-12").Before("2025-01"))
	assert.True(t, recon.MonthKey("2025-02").AfterOrEqual("2025-02"))
	assert.False(t, recon.MonthKey("2025-01").Before("2024-12"))
}
