/*
policy.go - Per-employee override policies and the policy registry

PURPOSE:
  Most employees aggregate under one default rule set. A handful need
  behavioral exceptions: genuine mid-period joiners whose zero months
  should not drag the average down, employees whose reported zeros are
  real business events, identities that must never receive a trailing
  estimate, and custom reimbursement percentages negotiated per contract.

  The registry holds those exceptions as data, loaded from an external
  policy table, so adding an exception never requires a code change.

KEY CONCEPTS:
  - OverridePolicy: The exception flags for one identity
  - Registry: O(1) identity lookup plus global exclusion sets and the
    rolling window of eligible months
  - Default policy: Absence of an entry. Zero-valued months excluded,
    full window, estimate enabled, no percentage override.

INVARIANT:
  At most one of IncludeZeros / ExcludeZerosButCountMonths per identity.
  The builder rejects a table violating this before any aggregation runs.

SEE ALSO:
  - aggregate.go: Applies these policies during the window walk
  - reimburse.go: Uses CustomPercentage and SuppressEstimateMonth
  - config/policy_table.go: YAML loading into RegistryConfig
*/
package recon

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// OVERRIDE POLICY - Behavioral exceptions for one identity
// =============================================================================

// OverridePolicy carries the per-employee exceptions. The zero value is
// the default policy.
type OverridePolicy struct {
	// IncludeZeros counts zero-valued months toward both the aggregate
	// and the average divisor (every window month divides).
	IncludeZeros bool

	// ExcludeZerosButCountMonths counts any observed month, including a
	// reported zero, but absent months are skipped entirely and do not
	// divide. For genuine mid-period joiners.
	ExcludeZerosButCountMonths bool

	// HardExcludeFromEstimate disables the trailing-month estimate for
	// this identity; the aggregate total is the base sum only.
	HardExcludeFromEstimate bool

	// StartMonth restricts the aggregation window to months >= StartMonth.
	// Empty means the full configured window.
	StartMonth MonthKey

	// CustomPercentage overrides the tenure-derived percentage in the
	// reimbursement variant. Nil means derive from tenure.
	CustomPercentage *decimal.Decimal

	// SuppressEstimateMonth forces the projected trailing estimate to
	// zero in the reimbursement variant while keeping the employee in
	// the run.
	SuppressEstimateMonth bool
}

// Validate checks the mutual-exclusion invariant for one identity.
func (p OverridePolicy) Validate(id EmployeeID) error {
	if p.IncludeZeros && p.ExcludeZerosButCountMonths {
		return &PolicyConflictError{ID: id}
	}
	return nil
}

// =============================================================================
// REGISTRY - Read-only lookup, global exclusions, rolling window
// =============================================================================

// Registry is the read-only policy lookup for one reconciliation run.
// Build it once via RegistryConfig.Build; it is safe for concurrent
// readers afterwards.
type Registry struct {
	overrides   map[EmployeeID]OverridePolicy
	excludedDep map[string]bool
	excludedMon map[MonthKey]bool
	window      []MonthKey
}

// RegistryConfig is the declarative form of a Registry. It is what the
// external policy table deserializes into.
type RegistryConfig struct {
	Overrides           map[EmployeeID]OverridePolicy
	ExcludedDepartments []string
	ExcludedMonths      []MonthKey
	Window              []MonthKey
}

// Build validates the config and produces an immutable Registry.
// A conflicting override or an empty window is a configuration error,
// fatal before any aggregation output is produced.
func (c RegistryConfig) Build() (*Registry, error) {
	if len(c.Window) == 0 {
		return nil, ErrEmptyWindow
	}
	for id, p := range c.Overrides {
		if err := p.Validate(id); err != nil {
			return nil, err
		}
	}

	r := &Registry{
		overrides:   make(map[EmployeeID]OverridePolicy, len(c.Overrides)),
		excludedDep: make(map[string]bool, len(c.ExcludedDepartments)),
		excludedMon: make(map[MonthKey]bool, len(c.ExcludedMonths)),
		window:      append([]MonthKey(nil), c.Window...),
	}
	for id, p := range c.Overrides {
		r.overrides[id] = p
	}
	for _, d := range c.ExcludedDepartments {
		r.excludedDep[d] = true
	}
	for _, m := range c.ExcludedMonths {
		r.excludedMon[m] = true
	}
	return r, nil
}

// PolicyFor returns the policy for an identity; absence means default.
func (r *Registry) PolicyFor(id EmployeeID) OverridePolicy {
	return r.overrides[id]
}

// DepartmentExcluded reports whether a department is globally excluded.
func (r *Registry) DepartmentExcluded(dep string) bool {
	return r.excludedDep[dep]
}

// MonthExcluded reports whether a month key is globally excluded.
func (r *Registry) MonthExcluded(m MonthKey) bool {
	return r.excludedMon[m]
}

// Window returns the ordered rolling window of eligible months.
// Callers must not mutate the returned slice.
func (r *Registry) Window() []MonthKey {
	return r.window
}

// AnchorMonth returns the last month of the rolling window: the month
// whose presence gates the trailing estimate.
func (r *Registry) AnchorMonth() MonthKey {
	return r.window[len(r.window)-1]
}
