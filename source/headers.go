/*
Package source adapts raw tabular extracts to the reconciliation engine.

PURPOSE:
  Payroll and HR extracts arrive as sheets of string cells with human
  headers in unpredictable positions and spellings. This package locates
  the header row by fuzzy column-name matching and hands the engine clean
  (identifier, name, amount, rawDate?) tuples. It never parses binary
  spreadsheet formats itself - the upstream reader supplies cell grids.

ERROR POSTURE:
  Everything here is recoverable-skip territory: an unparseable sheet
  name, a sheet with no detectable header, or a row with a malformed
  identifier produces a Diagnostic and processing continues. Nothing in
  this package is fatal for a run.

KEY CONCEPTS IN THIS FILE (headers.go):
  - Column aliases: Identifier columns answer to many names ("emp id",
    "personnel no", ...); matching is lowercase substring based
  - Layout: Resolved column positions for one header section

SEE ALSO:
  - sheet.go: Monthly extract ingestion into ObservationSets
  - hr.go: HR-reported sheets with repeated header sections
*/
package source

import (
	"strings"
)

// =============================================================================
// DIAGNOSTICS - Recoverable skips, forwarded to the audit trail
// =============================================================================

// Severity mirrors the audit trail levels without importing it; the
// pipeline maps these onto audit messages.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Diagnostic records one recoverable skip or notice during ingestion.
type Diagnostic struct {
	Severity Severity
	Tag      string
	Text     string
	Sheet    string
}

// =============================================================================
// FUZZY HEADER MATCHING
// =============================================================================

// Column aliases, matched as lowercase substrings of a header cell.
var (
	identifierAliases = []string{"employee id", "emp id", "personnel", "staff no", "worker no", "tab no", "emp no", "id"}
	nameAliases       = []string{"employee name", "full name", "name"}
	amountAliases     = []string{"gross salary", "salary", "gross", "amount", "pay", "reimbursement", "reim"}
	dateAliases       = []string{"start date", "hire date", "joined", "date"}
	departmentAliases = []string{"department", "dept", "division", "unit"}
)

// Layout holds resolved column positions for one header section.
// Date and department are optional (-1 when absent).
type Layout struct {
	ID         int
	Name       int
	Amount     int
	Date       int
	Department int
}

// matchColumn returns the index of the first cell matching any alias,
// or -1. Longer aliases are listed first so "employee id" wins over "id".
// Aliases of three characters or fewer require an exact cell match;
// substring matching on "id" or "pay" would fire on data cells like
// "David" or "Payroll".
func matchColumn(cells []string, aliases []string) int {
	for _, alias := range aliases {
		for i, cell := range cells {
			c := strings.ToLower(strings.TrimSpace(cell))
			if c == "" {
				continue
			}
			if len(alias) <= 3 {
				if c == alias {
					return i
				}
				continue
			}
			if strings.Contains(c, alias) {
				return i
			}
		}
	}
	return -1
}

// DetectLayout tries to read one row as a header. A row qualifies when
// both an identifier and an amount column are present.
func DetectLayout(cells []string) (Layout, bool) {
	layout := Layout{
		ID:         matchColumn(cells, identifierAliases),
		Name:       matchColumn(cells, nameAliases),
		Amount:     matchColumn(cells, amountAliases),
		Date:       matchColumn(cells, dateAliases),
		Department: matchColumn(cells, departmentAliases),
	}
	if layout.ID < 0 || layout.Amount < 0 {
		return Layout{}, false
	}
	return layout, true
}

// FindHeader scans rows top-down for the first detectable header.
// Returns the layout and the header row index, or ok=false.
func FindHeader(rows [][]string) (Layout, int, bool) {
	for i, row := range rows {
		if layout, ok := DetectLayout(row); ok {
			return layout, i, true
		}
	}
	return Layout{}, 0, false
}

func cellAt(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
