/*
sheet.go - Monthly payroll extract ingestion

PURPOSE:
  Converts one extract (a set of named period sheets, one per month) into
  an ObservationSet the aggregator can consume. Each sheet name runs
  through the month-key normalizer; sheets with unrecognizable names are
  skipped with a diagnostic, never fatally.

ABSENCE VS ZERO:
  A row whose amount cell is empty records NO observation for the month
  (not reported). A row whose amount parses to 0 records a zero
  observation (reported as zero). The aggregator's inclusion policy
  depends on this distinction.

SEE ALSO:
  - headers.go: Header detection and diagnostics
  - recon/monthkey.go: Sheet-name normalization
*/
package source

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/recon"
)

// Sheet is one named period sheet of raw string cells, as handed over by
// the upstream workbook reader.
type Sheet struct {
	Name string
	Rows [][]string
}

// ExtractResult is the outcome of ingesting one population's sheets.
type ExtractResult struct {
	Observations *recon.ObservationSet
	Departments  map[recon.EmployeeID]string
	Diagnostics  []Diagnostic
}

// ExtractSheets ingests all sheets of one population. Unparseable sheet
// names and undetectable headers are recoverable skips; malformed rows
// are skipped individually.
func ExtractSheets(src recon.Source, sheets []Sheet) ExtractResult {
	result := ExtractResult{
		Observations: recon.NewObservationSet(src),
		Departments:  make(map[recon.EmployeeID]string),
	}

	for _, sheet := range sheets {
		month, ok := recon.NormalizeMonthKey(sheet.Name)
		if !ok {
			result.Diagnostics = append(result.Diagnostics, Diagnostic{
				Severity: SeverityWarning,
				Tag:      "unrecognized-period",
				Text:     fmt.Sprintf("sheet %q: period label not recognized, sheet skipped", sheet.Name),
				Sheet:    sheet.Name,
			})
			continue
		}

		layout, headerIdx, ok := FindHeader(sheet.Rows)
		if !ok {
			result.Diagnostics = append(result.Diagnostics, Diagnostic{
				Severity: SeverityWarning,
				Tag:      "missing-header",
				Text:     fmt.Sprintf("sheet %q: no identifier/amount header found, sheet skipped", sheet.Name),
				Sheet:    sheet.Name,
			})
			continue
		}

		for _, row := range sheet.Rows[headerIdx+1:] {
			ingestRow(&result, sheet.Name, month, layout, row)
		}
	}
	return result
}

// ingestRow parses one data row into at most one observation.
func ingestRow(result *ExtractResult, sheetName string, month recon.MonthKey, layout Layout, row []string) {
	rawID := cellAt(row, layout.ID)
	if rawID == "" {
		return // blank filler row
	}
	id, err := parseIdentifier(rawID)
	if err != nil {
		result.Diagnostics = append(result.Diagnostics, Diagnostic{
			Severity: SeverityWarning,
			Tag:      "bad-identifier",
			Text:     fmt.Sprintf("sheet %q: identifier %q skipped: %v", sheetName, rawID, err),
			Sheet:    sheetName,
		})
		return
	}

	if name := cellAt(row, layout.Name); name != "" {
		result.Observations.Names[id] = name
	}
	if dep := cellAt(row, layout.Department); dep != "" {
		result.Departments[id] = dep
	}
	if rawDate := cellAt(row, layout.Date); rawDate != "" {
		result.Observations.StartDate[id] = rawDate
	}

	rawAmount := cellAt(row, layout.Amount)
	if rawAmount == "" {
		return // not reported for this month; distinct from zero
	}
	amount, err := ParseAmount(rawAmount)
	if err != nil {
		result.Diagnostics = append(result.Diagnostics, Diagnostic{
			Severity: SeverityWarning,
			Tag:      "bad-amount",
			Text:     fmt.Sprintf("sheet %q: amount %q for employee %d skipped: %v", sheetName, rawAmount, id, err),
			Sheet:    sheetName,
		})
		return
	}
	result.Observations.Add(id, month, amount)
}

// parseIdentifier accepts integer identifiers, tolerating a trailing
// ".0" from spreadsheet numeric cells.
func parseIdentifier(raw string) (recon.EmployeeID, error) {
	cleaned := strings.TrimSuffix(strings.TrimSpace(raw), ".0")
	n, err := strconv.ParseInt(cleaned, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("not a numeric identifier")
	}
	if n <= 0 {
		return 0, fmt.Errorf("identifier must be positive")
	}
	return recon.EmployeeID(n), nil
}

// ParseAmount parses a money cell, tolerating thousands separators and
// surrounding whitespace. Negative amounts are rejected; salaries are
// non-negative by definition.
func ParseAmount(raw string) (decimal.Decimal, error) {
	cleaned := strings.NewReplacer(",", "", " ", "", " ", "").Replace(strings.TrimSpace(raw))
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("not a numeric amount")
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("negative amount")
	}
	return d, nil
}
