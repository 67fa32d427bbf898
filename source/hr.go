/*
hr.go - HR-reported figures, possibly split across repeated sections

PURPOSE:
  The authoritative HR sheet is frequently assembled by hand: several
  header sections pasted one below another, each with its own column
  order. This reader re-detects the layout at every header row and SUMS
  repeated identifiers across sections rather than overwriting them.

SEE ALSO:
  - headers.go: Per-section layout detection
  - recon/compare.go: Consumes the resulting ReportedAggregates
*/
package source

import (
	"fmt"

	"github.com/warp/payroll-engine/recon"
)

// ExtractReported parses one HR-reported sheet into per-identity
// aggregates. Rows before the first header are ignored; each subsequent
// header row switches the active layout. Returns the aggregates plus any
// row-level diagnostics.
func ExtractReported(sheet Sheet) (map[recon.EmployeeID]recon.ReportedAggregate, []Diagnostic) {
	reported := make(map[recon.EmployeeID]recon.ReportedAggregate)
	var diags []Diagnostic

	var layout Layout
	haveLayout := false

	for _, row := range sheet.Rows {
		if l, ok := DetectLayout(row); ok {
			layout = l
			haveLayout = true
			continue
		}
		if !haveLayout {
			continue // preamble before the first header section
		}

		rawID := cellAt(row, layout.ID)
		if rawID == "" {
			continue
		}
		id, err := parseIdentifier(rawID)
		if err != nil {
			diags = append(diags, Diagnostic{
				Severity: SeverityWarning,
				Tag:      "bad-identifier",
				Text:     fmt.Sprintf("hr sheet %q: identifier %q skipped: %v", sheet.Name, rawID, err),
				Sheet:    sheet.Name,
			})
			continue
		}

		rawAmount := cellAt(row, layout.Amount)
		if rawAmount == "" {
			continue
		}
		amount, err := ParseAmount(rawAmount)
		if err != nil {
			diags = append(diags, Diagnostic{
				Severity: SeverityWarning,
				Tag:      "bad-amount",
				Text:     fmt.Sprintf("hr sheet %q: amount %q for employee %d skipped: %v", sheet.Name, rawAmount, id, err),
				Sheet:    sheet.Name,
			})
			continue
		}

		agg, ok := reported[id]
		if !ok {
			agg = recon.ReportedAggregate{ID: id}
		}
		// Repeated sections sum, never overwrite.
		agg.Amount = agg.Amount.Add(amount)
		if name := cellAt(row, layout.Name); name != "" {
			agg.Name = name
		}
		if dep := cellAt(row, layout.Department); dep != "" {
			agg.Department = dep
		}
		reported[id] = agg
	}
	return reported, diags
}
