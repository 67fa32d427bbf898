/*
Package recon provides the core payroll reconciliation engine.

PURPOSE:
  This package contains the types and algorithms for reconciling two
  independently maintained records of employee compensation: a computed
  figure derived from monthly payroll extracts, and an authoritative
  HR-reported figure. Discrepancies beyond a configured tolerance are
  flagged for human review.

KEY CONCEPTS IN THIS FILE (types.go):
  - EmployeeID: Positive integer identifier, unique per reconciliation run
  - Source: Which extract population an observation came from (Staff/Worker)
  - Observations: Per-employee month-to-amount map ("absent" != "zero")
  - AggregateRecord: Per-employee rolled-up result (baseSum, estimate, total)
  - ComparisonRow: One line of reconciliation output with a verdict

DESIGN PRINCIPLES:
  1. Precision: All money math uses decimal.Decimal, never float64
  2. Absence vs zero: A month with no observation is "not reported";
     a month observed as 0 is "reported as zero" - these drive different
     inclusion rules during aggregation
  3. Determinism: Identical input produces bit-identical output; rows are
     emitted in ascending identity order
  4. Immutability: AggregateRecords are created once per run and never
     mutated except through the documented Merge precedence rule

SEE ALSO:
  - monthkey.go: Canonical YYYY-MM period keys
  - policy.go: Per-employee override policies and the registry
  - aggregate.go: Rolling-window aggregation
  - compare.go: Tolerance-based comparison
  - reimburse.go: Percentage/reimbursement variant
*/
package recon

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

// EmployeeID identifies one employee within a reconciliation universe.
// Always positive; zero is never a valid identity.
type EmployeeID int64

// Source identifies which extract population a row came from.
// When the same identity appears in both, Staff metadata wins.
type Source string

const (
	SourceStaff  Source = "staff"
	SourceWorker Source = "worker"
)

// =============================================================================
// OBSERVATIONS - Monthly salary data points
// =============================================================================

// Observations holds one employee's reported amounts keyed by month.
// A missing key means "not reported"; a zero value means "reported as zero".
type Observations map[MonthKey]decimal.Decimal

// Has reports whether the month was reported at all (any value, including 0).
func (o Observations) Has(m MonthKey) bool {
	_, ok := o[m]
	return ok
}

// ObservationSet collects observations for a whole extract population.
type ObservationSet struct {
	Source    Source
	ByMonth   map[EmployeeID]Observations
	Names     map[EmployeeID]string
	StartDate map[EmployeeID]string // raw start-of-service cell, parsed lazily
}

// NewObservationSet creates an empty set for a population.
func NewObservationSet(src Source) *ObservationSet {
	return &ObservationSet{
		Source:    src,
		ByMonth:   make(map[EmployeeID]Observations),
		Names:     make(map[EmployeeID]string),
		StartDate: make(map[EmployeeID]string),
	}
}

// Add records one (employee, month, amount) observation. Later duplicates
// for the same month overwrite earlier ones; extracts are expected to carry
// one row per employee per month sheet.
func (s *ObservationSet) Add(id EmployeeID, m MonthKey, amount decimal.Decimal) {
	obs, ok := s.ByMonth[id]
	if !ok {
		obs = make(Observations)
		s.ByMonth[id] = obs
	}
	obs[m] = amount
}

// =============================================================================
// AGGREGATE RECORD - Per-employee rolled-up result
// =============================================================================

// MonthAmount is one included (month, amount) pair in an aggregate.
type MonthAmount struct {
	Month  MonthKey
	Amount decimal.Decimal
}

// AggregateRecord is the per-employee output of the monthly aggregator.
// Created once per run per identity; Merge is the only sanctioned way to
// combine records across source populations.
type AggregateRecord struct {
	ID         EmployeeID
	Name       string
	Department string
	Source     Source

	// IncludedMonths lists the window months that counted, in
	// chronological order.
	IncludedMonths []MonthAmount

	BaseSum  decimal.Decimal
	Estimate decimal.Decimal
	Total    decimal.Decimal
}

// =============================================================================
// COMPARISON ROW - One line of reconciliation output
// =============================================================================

// MatchStatus is the verdict for one comparison row.
type MatchStatus string

const (
	StatusMatch    MatchStatus = "match"
	StatusMismatch MatchStatus = "mismatch"
)

// ComparisonRow compares a computed total against the HR-reported total
// for one identity. Difference is computed minus reported.
type ComparisonRow struct {
	ID         EmployeeID
	Name       string
	Department string
	Computed   decimal.Decimal
	Reported   decimal.Decimal
	Difference decimal.Decimal
	Status     MatchStatus
}

// =============================================================================
// REPORTED AGGREGATE - HR side of the comparison
// =============================================================================

// ReportedAggregate is the authoritative HR-reported figure for one
// identity. Repeated header sections in one sheet are summed into a single
// record per identity before comparison.
type ReportedAggregate struct {
	ID         EmployeeID
	Name       string
	Department string
	Amount     decimal.Decimal
}

// MustDecimal parses a decimal literal, returning zero on failure.
// Intended for constants and tests, not for untrusted input.
func MustDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
