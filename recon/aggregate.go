/*
aggregate.go - Rolling-window aggregation of monthly salary observations

PURPOSE:
  Turns one employee's monthly observations into an AggregateRecord:
  the base sum over the effective window, a projected trailing-month
  estimate, and their total. This is the computed side of the
  reconciliation; the HR-reported side arrives pre-aggregated.

INCLUSION RULES (per window month, chronological order):
  includeZeros:                month counts with the observed amount, or 0
                               when absent; every window month divides.
  excludeZerosButCountMonths:  month counts only when observed (any value,
                               including 0); absent months do not divide.
  default:                     month counts only when observed AND > 0.

TRAILING ESTIMATE:
  Computed only when the policy allows it AND the last window month (the
  anchor month) has a present, positive observation - the signal that the
  data series is current. Under includeZeros the divisor is the full
  effective window length; otherwise it is the count of included months.

MERGE:
  An employee appearing in both the staff and the worker extract gets one
  record: totals are summed and Staff-sourced metadata wins. See Merge.

RATIONALE:
  Distinguishing "no data" from "zero reported" lets genuine joiners and
  leavers avoid being penalized by a naive average, while known-zero
  months still depress the estimate for employees whose zero is a real
  business event.

SEE ALSO:
  - policy.go: OverridePolicy and Registry
  - compare.go: Consumes the resulting totals
*/
package recon

import (
	"sort"

	"github.com/shopspring/decimal"
)

// =============================================================================
// AGGREGATOR
// =============================================================================

// Aggregator computes AggregateRecords under one policy registry.
type Aggregator struct {
	Registry *Registry
}

// NewAggregator creates an aggregator bound to a built registry.
func NewAggregator(reg *Registry) *Aggregator {
	return &Aggregator{Registry: reg}
}

// Aggregate computes the record for one identity from its observations.
// Pure: depends only on the observations, the policy, and the window, so
// per-employee calls are independently parallelizable.
func (a *Aggregator) Aggregate(id EmployeeID, name, department string, src Source, obs Observations) AggregateRecord {
	policy := a.Registry.PolicyFor(id)
	window := a.effectiveWindow(policy)

	rec := AggregateRecord{
		ID:         id,
		Name:       name,
		Department: department,
		Source:     src,
		BaseSum:    decimal.Zero,
		Estimate:   decimal.Zero,
		Total:      decimal.Zero,
	}

	for _, month := range window {
		amount, present := obs[month]

		switch {
		case policy.IncludeZeros:
			if !present {
				amount = decimal.Zero
			}
			rec.IncludedMonths = append(rec.IncludedMonths, MonthAmount{Month: month, Amount: amount})
		case policy.ExcludeZerosButCountMonths:
			if present {
				rec.IncludedMonths = append(rec.IncludedMonths, MonthAmount{Month: month, Amount: amount})
			}
		default:
			if present && amount.IsPositive() {
				rec.IncludedMonths = append(rec.IncludedMonths, MonthAmount{Month: month, Amount: amount})
			}
		}
	}

	for _, ma := range rec.IncludedMonths {
		rec.BaseSum = rec.BaseSum.Add(ma.Amount)
	}

	if a.estimateEligible(policy, window, obs) {
		rec.Estimate = a.estimate(policy, window, rec)
	}
	rec.Total = rec.BaseSum.Add(rec.Estimate)
	return rec
}

// effectiveWindow intersects the configured rolling window with the
// policy's start month and drops globally excluded months, preserving
// chronological order. Every downstream rule (inclusion, divisor, anchor
// month) operates on this filtered window.
func (a *Aggregator) effectiveWindow(policy OverridePolicy) []MonthKey {
	var effective []MonthKey
	for _, m := range a.Registry.Window() {
		if a.Registry.MonthExcluded(m) {
			continue
		}
		if policy.StartMonth != "" && !m.AfterOrEqual(policy.StartMonth) {
			continue
		}
		effective = append(effective, m)
	}
	return effective
}

// estimateEligible gates the trailing estimate: the policy must allow it
// and the anchor month (last window month) must carry a present, positive
// observation.
func (a *Aggregator) estimateEligible(policy OverridePolicy, window []MonthKey, obs Observations) bool {
	if policy.HardExcludeFromEstimate {
		return false
	}
	if len(window) == 0 {
		return false
	}
	anchor := window[len(window)-1]
	amount, present := obs[anchor]
	return present && amount.IsPositive()
}

// estimate projects one trailing month. Under includeZeros the divisor is
// the full effective window length; otherwise the average of the months
// actually included.
func (a *Aggregator) estimate(policy OverridePolicy, window []MonthKey, rec AggregateRecord) decimal.Decimal {
	if policy.IncludeZeros {
		if len(window) == 0 {
			return decimal.Zero
		}
		return rec.BaseSum.Div(decimal.NewFromInt(int64(len(window))))
	}
	if len(rec.IncludedMonths) == 0 {
		return decimal.Zero
	}
	return rec.BaseSum.Div(decimal.NewFromInt(int64(len(rec.IncludedMonths))))
}

// =============================================================================
// CROSS-POPULATION AGGREGATION
// =============================================================================

// AggregateSet rolls up a whole observation set, skipping globally
// excluded departments, and returns records keyed by identity.
// Departments in this system are carried per extract row; the set-level
// lookup supplies them when present.
func (a *Aggregator) AggregateSet(set *ObservationSet, departments map[EmployeeID]string) map[EmployeeID]AggregateRecord {
	out := make(map[EmployeeID]AggregateRecord, len(set.ByMonth))
	for id, obs := range set.ByMonth {
		dep := departments[id]
		if a.Registry.DepartmentExcluded(dep) {
			continue
		}
		out[id] = a.Aggregate(id, set.Names[id], dep, set.Source, obs)
	}
	return out
}

// Fold merges records from one population into an accumulator map,
// applying the Merge precedence rule on collision.
func Fold(into map[EmployeeID]AggregateRecord, from map[EmployeeID]AggregateRecord) {
	for id, rec := range from {
		if existing, ok := into[id]; ok {
			into[id] = Merge(existing, rec)
		} else {
			into[id] = rec
		}
	}
}

// Merge combines two records for the same identity seen in different
// source populations. Totals sum across sources; Staff-sourced metadata
// (name, department label) wins over Worker-sourced metadata. Included
// months are concatenated and re-sorted chronologically so the merged
// record stays deterministic regardless of fold order.
func Merge(existing, incoming AggregateRecord) AggregateRecord {
	merged := existing
	merged.BaseSum = existing.BaseSum.Add(incoming.BaseSum)
	merged.Estimate = existing.Estimate.Add(incoming.Estimate)
	merged.Total = existing.Total.Add(incoming.Total)
	merged.IncludedMonths = append(append([]MonthAmount(nil), existing.IncludedMonths...), incoming.IncludedMonths...)
	sort.Slice(merged.IncludedMonths, func(i, j int) bool {
		return merged.IncludedMonths[i].Month < merged.IncludedMonths[j].Month
	})

	if incoming.Source == SourceStaff && existing.Source != SourceStaff {
		merged.Name = incoming.Name
		merged.Department = incoming.Department
		merged.Source = SourceStaff
	}
	return merged
}
