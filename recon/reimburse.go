/*
reimburse.go - Percentage-tiered reimbursement comparison variant

PURPOSE:
  Extends the base comparison for a reimbursement computation: instead of
  comparing gross totals directly, each side is run through a percentage
  formula first. The employer registers a fixed percentage of gross; the
  employee's effective percentage depends on tenure (or a per-contract
  override), and the reimbursable amount is the difference.

FORMULA (three-way branch on effectivePercentage vs the register rate):
  registerAmount = gross * registerRate / 100

  equal:  secondaryGross = gross
          actualAmount   = gross * pct / 100
  above:  secondaryGross = gross * 0.6
          actualAmount   = secondaryGross * pct / 100
  below:  secondaryGross = 0
          actualAmount   = 0

  reimComputed = registerAmount - actualAmount

  The discontinuity at the register rate (including the 0.6 scaling) is
  deliberate and must be reproduced exactly; it mirrors the statutory
  reimbursement schedule the HR side applies.

TENURE:
  Whole elapsed months between start-of-service and a fixed reference
  date, floored, never negative. Start dates arrive from spreadsheets as
  a numeric date serial, a day.month.year string, or a generic date
  string - accepted in that priority order.

TIERS:
  tenure <  12 months -> 10.0%
  tenure <  24 months -> 12.0%
  tenure >= 24 months -> the register rate (tiers converge)

SEE ALSO:
  - compare.go: Supplies the tolerance verdict
  - policy.go: CustomPercentage and SuppressEstimateMonth overrides
*/
package recon

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// TENURE TIERS
// =============================================================================

var (
	tierJuniorRate = decimal.NewFromFloat(10.0) // tenure < 12 months
	tierMidRate    = decimal.NewFromFloat(12.0) // 12 <= tenure < 24 months

	secondaryGrossScale = decimal.NewFromFloat(0.6)
	hundred             = decimal.NewFromInt(100)
)

// =============================================================================
// REIMBURSEMENT CALCULATOR
// =============================================================================

// Reimbursement is the computed breakdown for one identity.
type Reimbursement struct {
	ID                  EmployeeID
	Gross               decimal.Decimal
	RegisterAmount      decimal.Decimal
	EffectivePercentage decimal.Decimal
	SecondaryGross      decimal.Decimal
	ActualAmount        decimal.Decimal
	Computed            decimal.Decimal
}

// ReimbursementCalculator applies the percentage formula under one
// register rate and reference date.
type ReimbursementCalculator struct {
	Registry      *Registry
	RegisterRate  decimal.Decimal
	ReferenceDate time.Time
}

// NewReimbursementCalculator validates the register rate; a non-positive
// rate means the constant was never configured (fatal for the run).
func NewReimbursementCalculator(reg *Registry, registerRate decimal.Decimal, referenceDate time.Time) (*ReimbursementCalculator, error) {
	if !registerRate.IsPositive() {
		return nil, ErrPercentageMissing
	}
	return &ReimbursementCalculator{Registry: reg, RegisterRate: registerRate, ReferenceDate: referenceDate}, nil
}

// GrossFor returns the gross basis for one aggregate under the variant's
// overrides: SuppressEstimateMonth zeroes the trailing estimate while the
// employee stays in the run.
func (rc *ReimbursementCalculator) GrossFor(rec AggregateRecord) decimal.Decimal {
	if rc.Registry.PolicyFor(rec.ID).SuppressEstimateMonth {
		return rec.BaseSum
	}
	return rec.Total
}

// EffectivePercentage resolves the percentage for one identity: the
// per-contract override when present, else the tenure tier.
func (rc *ReimbursementCalculator) EffectivePercentage(id EmployeeID, rawStartDate string) decimal.Decimal {
	if custom := rc.Registry.PolicyFor(id).CustomPercentage; custom != nil {
		return *custom
	}
	start, err := ParseServiceDate(rawStartDate)
	if err != nil {
		// Unknown start date reads as zero tenure: the most conservative
		// tier, surfaced to reviewers through the resulting mismatch.
		return tierJuniorRate
	}
	switch months := TenureMonths(start, rc.ReferenceDate); {
	case months < 12:
		return tierJuniorRate
	case months < 24:
		return tierMidRate
	default:
		return rc.RegisterRate
	}
}

// Compute applies the three-way formula for one identity.
func (rc *ReimbursementCalculator) Compute(id EmployeeID, gross, effectivePct decimal.Decimal) Reimbursement {
	r := Reimbursement{
		ID:                  id,
		Gross:               gross,
		EffectivePercentage: effectivePct,
		RegisterAmount:      gross.Mul(rc.RegisterRate).Div(hundred),
	}

	switch effectivePct.Cmp(rc.RegisterRate) {
	case 0:
		r.SecondaryGross = gross
		r.ActualAmount = gross.Mul(effectivePct).Div(hundred)
	case 1:
		r.SecondaryGross = gross.Mul(secondaryGrossScale)
		r.ActualAmount = r.SecondaryGross.Mul(effectivePct).Div(hundred)
	default:
		r.SecondaryGross = decimal.Zero
		r.ActualAmount = decimal.Zero
	}

	r.Computed = r.RegisterAmount.Sub(r.ActualAmount)
	return r
}

// =============================================================================
// SERVICE-DATE PARSING
// =============================================================================

// excelEpoch is the serial-date epoch used by spreadsheet applications
// (1899-12-30, which absorbs the historical leap-year bug).
var excelEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

var dottedDatePattern = regexp.MustCompile(`^\s*(\d{1,2})\.(\d{1,2})\.(\d{2}|\d{4})\s*$`)

var genericDateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"2006-01-02T15:04:05Z07:00",
	"02 Jan 2006",
}

// ParseServiceDate parses a start-of-service cell. Priority order:
//  1. numeric spreadsheet date serial (days since 1899-12-30)
//  2. day.month.year text; 2-digit years < 50 are 2000s, else 1900s
//  3. generic date strings (ISO and common export layouts)
func ParseServiceDate(raw string) (time.Time, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return time.Time{}, fmt.Errorf("empty service date")
	}

	if serial, err := strconv.ParseFloat(trimmed, 64); err == nil {
		if serial <= 0 {
			return time.Time{}, fmt.Errorf("service date serial %q out of range", trimmed)
		}
		return excelEpoch.AddDate(0, 0, int(serial)), nil
	}

	if m := dottedDatePattern.FindStringSubmatch(trimmed); m != nil {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		if len(m[3]) == 2 {
			if year < 50 {
				year += 2000
			} else {
				year += 1900
			}
		}
		if month < 1 || month > 12 || day < 1 || day > 31 {
			return time.Time{}, fmt.Errorf("invalid dotted date %q", trimmed)
		}
		return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC), nil
	}

	for _, layout := range genericDateLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized service date %q", trimmed)
}

// TenureMonths returns whole elapsed months from start to ref, floored,
// never negative.
func TenureMonths(start, ref time.Time) int {
	if start.After(ref) {
		return 0
	}
	months := (ref.Year()-start.Year())*12 + int(ref.Month()) - int(start.Month())
	if ref.Day() < start.Day() {
		months--
	}
	if months < 0 {
		return 0
	}
	return months
}
