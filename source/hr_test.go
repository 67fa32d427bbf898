package source_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/payroll-engine/recon"
	"github.com/warp/payroll-engine/source"
)

func TestExtractReported_RepeatedSectionsSum(t *testing.T) {
	// GIVEN: Two pasted header sections with different column orders,
	//        both mentioning employee 100
	// WHEN: Extracting the reported figures
	// THEN: The amounts SUM; the later section never overwrites the earlier

	sheet := source.Sheet{
		Name: "HR reported",
		Rows: [][]string{
			{"note: compiled by hand"},
			{"emp id", "name", "amount"},
			{"100", "Aysel", "7000"},
			{"200", "Rashad", "3000"},
			{""},
			{"name", "amount", "emp id"}, // columns swapped
			{"Aysel", "5010", "100"},
		},
	}

	reported, diags := source.ExtractReported(sheet)
	require.Empty(t, diags)
	require.Len(t, reported, 2)

	assert.True(t, reported[100].Amount.Equal(recon.MustDecimal("12010")), "got %s", reported[100].Amount)
	assert.True(t, reported[200].Amount.Equal(recon.MustDecimal("3000")))
	assert.Equal(t, "Aysel", reported[100].Name)
}

func TestExtractReported_PreambleAndBadRowsSkipped(t *testing.T) {
	sheet := source.Sheet{
		Name: "HR reported",
		Rows: [][]string{
			{"100", "orphan row before any header", "999"},
			{"emp id", "name", "amount", "department"},
			{"x1", "Broken", "100", ""},
			{"300", "Leyla", "oops", "Ops"},
			{"300", "Leyla", "4500", "Ops"},
		},
	}

	reported, diags := source.ExtractReported(sheet)

	require.Len(t, diags, 2)
	assert.Equal(t, "bad-identifier", diags[0].Tag)
	assert.Equal(t, "bad-amount", diags[1].Tag)

	require.Len(t, reported, 1, "the pre-header row must not be ingested")
	assert.True(t, reported[300].Amount.Equal(recon.MustDecimal("4500")))
	assert.Equal(t, "Ops", reported[300].Department)
}
