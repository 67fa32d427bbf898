/*
errors.go - Centralized error types for the reconciliation engine

PURPOSE:
  All engine error types in one place for consistency and discoverability.
  Callers (pipeline, API) should wrap these with additional context.

ERROR CATEGORIES:
  1. Configuration errors - Invalid policy tables or missing constants.
     Always fatal for a run, surfaced before any output is produced.
  2. Input errors - A required source dataset is missing. Also fatal;
     the reconciliation never proceeds with partial sources silently.
  3. Recoverable skips are NOT errors: unparseable sheet names, missing
     columns in one sheet, and unrecognized department codes are logged
     as diagnostics and processing continues.

USAGE:
    if errors.Is(err, recon.ErrConflictingOverrides) {
        // the policy table set both zero-handling flags for one identity
    }

SEE ALSO:
  - policy.go: Raises configuration errors during registry build
  - compare.go: Raises ErrToleranceMissing
*/
package recon

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrConflictingOverrides is returned when a policy entry sets both
	// IncludeZeros and ExcludeZerosButCountMonths for one identity. This
	// is a configuration error, never silently resolved at runtime.
	ErrConflictingOverrides = errors.New("conflicting zero-handling overrides")

	// ErrEmptyWindow is returned when the registry is built without a
	// rolling window of eligible months.
	ErrEmptyWindow = errors.New("rolling window is empty")

	// ErrToleranceMissing is returned when a comparison is attempted with
	// a negative tolerance, which means the constant was never configured.
	ErrToleranceMissing = errors.New("tolerance is not configured")

	// ErrPercentageMissing is returned when the reimbursement variant runs
	// without a configured register percentage.
	ErrPercentageMissing = errors.New("register percentage is not configured")

	// ErrSourceMissing is returned when a required source dataset is
	// absent. Fatal: the run does not proceed with partial sources.
	ErrSourceMissing = errors.New("required source dataset missing")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// PolicyConflictError reports which identity carries conflicting flags.
type PolicyConflictError struct {
	ID EmployeeID
}

func (e *PolicyConflictError) Error() string {
	return fmt.Sprintf("employee %d: includeZeros and excludeZerosButCountMonths are mutually exclusive", e.ID)
}

func (e *PolicyConflictError) Unwrap() error {
	return ErrConflictingOverrides
}

// IsConfigError reports whether the error is fatal misconfiguration
// (as opposed to a data condition the pipeline can skip past).
func IsConfigError(err error) bool {
	return errors.Is(err, ErrConflictingOverrides) ||
		errors.Is(err, ErrEmptyWindow) ||
		errors.Is(err, ErrToleranceMissing) ||
		errors.Is(err, ErrPercentageMissing)
}
