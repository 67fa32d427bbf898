/*
policy_table.go - Declarative override policy table (YAML)

PURPOSE:
  Per-employee behavioral exceptions used to live as hard-coded lists
  inside the reconciliation code; every new exception meant a deploy.
  The policy table moves them into data: a YAML file mapping identities
  to override flags, loaded at run start and validated as a whole.

SCHEMA:
  excluded_departments: [Security, Canteen]
  excluded_months: ["2025-01"]
  overrides:
    - id: 3412
      include_zeros: true
    - id: 5120
      exclude_zeros_but_count_months: true
      start_month: "2025-02"
    - id: 7001
      hard_exclude_from_estimate: true
    - id: 8155
      custom_percentage: "11.5"
      suppress_estimate_month: true

VALIDATION:
  Conflicting zero-handling flags for one identity reject the whole
  table (configuration error) - never silently resolved.

SEE ALSO:
  - recon/policy.go: RegistryConfig.Build and the invariant
*/
package config

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
	"github.com/shopspring/decimal"

	"github.com/warp/payroll-engine/recon"
)

// =============================================================================
// YAML SCHEMA TYPES
// =============================================================================

// PolicyTableYAML is the on-disk form of the override policy table.
type PolicyTableYAML struct {
	ExcludedDepartments []string            `yaml:"excluded_departments"`
	ExcludedMonths      []string            `yaml:"excluded_months"`
	Overrides           []PolicyEntryYAML   `yaml:"overrides"`
}

// PolicyEntryYAML is one identity's override entry.
type PolicyEntryYAML struct {
	ID                         int64  `yaml:"id"`
	IncludeZeros               bool   `yaml:"include_zeros"`
	ExcludeZerosButCountMonths bool   `yaml:"exclude_zeros_but_count_months"`
	HardExcludeFromEstimate    bool   `yaml:"hard_exclude_from_estimate"`
	StartMonth                 string `yaml:"start_month"`
	CustomPercentage           string `yaml:"custom_percentage"`
	SuppressEstimateMonth      bool   `yaml:"suppress_estimate_month"`
}

// =============================================================================
// LOADING
// =============================================================================

// LoadPolicyTable reads the YAML table and builds a validated registry
// over the given rolling window.
func LoadPolicyTable(path string, window []recon.MonthKey) (*recon.Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy table %s: %w", path, err)
	}
	return ParsePolicyTable(data, window)
}

// ParsePolicyTable parses YAML bytes into a built registry. Split from
// LoadPolicyTable so tests exercise parsing without a file.
func ParsePolicyTable(data []byte, window []recon.MonthKey) (*recon.Registry, error) {
	var table PolicyTableYAML
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("parse policy table: %w", err)
	}

	cfg := recon.RegistryConfig{
		Overrides:           make(map[recon.EmployeeID]recon.OverridePolicy, len(table.Overrides)),
		ExcludedDepartments: table.ExcludedDepartments,
		Window:              window,
	}
	for _, m := range table.ExcludedMonths {
		cfg.ExcludedMonths = append(cfg.ExcludedMonths, recon.MonthKey(m))
	}

	for _, entry := range table.Overrides {
		if entry.ID <= 0 {
			return nil, fmt.Errorf("policy table: invalid employee id %d", entry.ID)
		}
		policy := recon.OverridePolicy{
			IncludeZeros:               entry.IncludeZeros,
			ExcludeZerosButCountMonths: entry.ExcludeZerosButCountMonths,
			HardExcludeFromEstimate:    entry.HardExcludeFromEstimate,
			StartMonth:                 recon.MonthKey(entry.StartMonth),
			SuppressEstimateMonth:      entry.SuppressEstimateMonth,
		}
		if entry.CustomPercentage != "" {
			pct, err := decimal.NewFromString(entry.CustomPercentage)
			if err != nil {
				return nil, fmt.Errorf("policy table: employee %d: custom_percentage %q: %w", entry.ID, entry.CustomPercentage, err)
			}
			policy.CustomPercentage = &pct
		}
		cfg.Overrides[recon.EmployeeID(entry.ID)] = policy
	}

	return cfg.Build()
}
