/*
compare.go - Tolerance-based comparison of computed vs reported totals

PURPOSE:
  Joins the software-computed aggregates with the authoritative
  HR-reported figures and produces one ComparisonRow per identity seen on
  either side. No identity is silently dropped: a one-sided identity
  compares against zero and almost always surfaces as a mismatch, which
  is exactly the signal a reviewer wants.

VERDICT:
  difference = computed - reported
  status     = Match iff |difference| <= tolerance (inclusive boundary)

DETERMINISM:
  Rows are emitted sorted ascending by identity so repeated runs over the
  same input produce byte-identical exports.

SEE ALSO:
  - aggregate.go: Produces the computed side
  - reimburse.go: The percentage/reimbursement comparison variant
*/
package recon

import (
	"sort"

	"github.com/shopspring/decimal"
)

// =============================================================================
// COMPARATOR
// =============================================================================

// Comparator compares two sides of the reconciliation under one tolerance.
type Comparator struct {
	Tolerance decimal.Decimal
}

// NewComparator validates the tolerance and returns a comparator.
// A negative tolerance means the constant was never configured, which is
// fatal before any rows are produced.
func NewComparator(tolerance decimal.Decimal) (*Comparator, error) {
	if tolerance.IsNegative() {
		return nil, ErrToleranceMissing
	}
	return &Comparator{Tolerance: tolerance}, nil
}

// Compare joins the computed aggregates against the reported figures and
// returns rows for the union of identities, ascending by identity.
func (c *Comparator) Compare(computed map[EmployeeID]AggregateRecord, reported map[EmployeeID]ReportedAggregate) []ComparisonRow {
	ids := unionIDs(computed, reported)

	rows := make([]ComparisonRow, 0, len(ids))
	for _, id := range ids {
		row := ComparisonRow{ID: id, Computed: decimal.Zero, Reported: decimal.Zero}

		if rec, ok := computed[id]; ok {
			row.Name = rec.Name
			row.Department = rec.Department
			row.Computed = rec.Total
		}
		if rep, ok := reported[id]; ok {
			if row.Name == "" {
				row.Name = rep.Name
			}
			if row.Department == "" {
				row.Department = rep.Department
			}
			row.Reported = rep.Amount
		}

		row.Difference = row.Computed.Sub(row.Reported)
		row.Status = c.verdict(row.Difference)
		rows = append(rows, row)
	}
	return rows
}

// verdict applies the inclusive tolerance rule.
func (c *Comparator) verdict(difference decimal.Decimal) MatchStatus {
	if difference.Abs().LessThanOrEqual(c.Tolerance) {
		return StatusMatch
	}
	return StatusMismatch
}

// CompareReimbursed joins computed reimbursements against HR-reported
// reimbursement figures under the same inclusive tolerance rule. The
// aggregates map supplies name/department metadata for identities the
// reported side does not carry.
func (c *Comparator) CompareReimbursed(computed map[EmployeeID]Reimbursement, aggregates map[EmployeeID]AggregateRecord, reported map[EmployeeID]ReportedAggregate) []ComparisonRow {
	totals := make(map[EmployeeID]AggregateRecord, len(computed))
	for id, r := range computed {
		rec := aggregates[id]
		totals[id] = AggregateRecord{
			ID:         id,
			Name:       rec.Name,
			Department: rec.Department,
			Total:      r.Computed,
		}
	}
	return c.Compare(totals, reported)
}

func unionIDs(computed map[EmployeeID]AggregateRecord, reported map[EmployeeID]ReportedAggregate) []EmployeeID {
	seen := make(map[EmployeeID]bool, len(computed)+len(reported))
	var ids []EmployeeID
	for id := range computed {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	for id := range reported {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
