/*
monthkey.go - Canonical month keys and period-label normalization

PURPOSE:
  Payroll extracts arrive as one sheet per period, named by humans:
  "2025-03", "Mar 2025", "salary march 25", "2025.3". The normalizer maps
  any such free-form label to a canonical YYYY-MM key, or reports that the
  label is unrecognizable so the caller can skip the sheet with a
  diagnostic.

ALGORITHM (first match wins):
  1. A 4-digit year followed within 2 characters by a 1-2 digit month.
     Valid only for year >= 2000 and month 1-12.
  2. A month-name token (full or standard abbreviation, case-insensitive)
     paired anywhere in the label with a 2- or 4-digit year token.
     2-digit years are promoted by adding 2000.
  3. Otherwise: not recognized.

  The function is pure and total: any string input yields a result,
  and re-normalizing an already-canonical key returns itself.

SEE ALSO:
  - types.go: MonthKey ordering guarantees
  - aggregate.go: Consumes normalized keys as the rolling window
*/
package recon

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// MonthKey is a canonical YYYY-MM period key. Lexical order equals
// chronological order, so keys sort and compare directly.
type MonthKey string

// Before reports whether m is chronologically before other.
func (m MonthKey) Before(other MonthKey) bool { return m < other }

// AfterOrEqual reports whether m is chronologically at or after other.
func (m MonthKey) AfterOrEqual(other MonthKey) bool { return m >= other }

// NewMonthKey builds a key from numeric year and month. The caller is
// responsible for passing a valid month; this is a constructor for code
// that already holds validated parts, not a parser.
func NewMonthKey(year, month int) MonthKey {
	return MonthKey(fmt.Sprintf("%04d-%02d", year, month))
}

// yearMonthPattern matches a 4-digit year followed within at most two
// non-digit characters by a 1-2 digit month ("2025-3", "2025.03",
// "2025 9"). The month must end at a non-digit or the end of the label.
var yearMonthPattern = regexp.MustCompile(`(\d{4})[^\d]{0,2}(\d{1,2})(?:[^\d]|$)`)

// yearTokenPattern finds standalone 2- or 4-digit year tokens for the
// month-name fallback.
var yearTokenPattern = regexp.MustCompile(`(?:^|[^\d])(\d{4}|\d{2})(?:[^\d]|$)`)

// monthNames maps lowercase month tokens (full names and standard
// abbreviations) to month numbers.
var monthNames = map[string]int{
	"january": 1, "jan": 1,
	"february": 2, "feb": 2,
	"march": 3, "mar": 3,
	"april": 4, "apr": 4,
	"may": 5,
	"june": 6, "jun": 6,
	"july": 7, "jul": 7,
	"august": 8, "aug": 8,
	"september": 9, "sep": 9, "sept": 9,
	"october": 10, "oct": 10,
	"november": 11, "nov": 11,
	"december": 12, "dec": 12,
}

var monthTokenPattern = regexp.MustCompile(`(?i)[a-z]+`)

// NormalizeMonthKey maps a free-form period label to a canonical MonthKey.
// Returns ("", false) when no year+month can be recognized; the caller
// decides whether that means skip-with-diagnostic or error.
func NormalizeMonthKey(label string) (MonthKey, bool) {
	// Pass 1: explicit year+month digits.
	if m := yearMonthPattern.FindStringSubmatch(label); m != nil {
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		if year >= 2000 && month >= 1 && month <= 12 {
			return NewMonthKey(year, month), true
		}
	}

	// Pass 2: month-name token plus a year token anywhere in the label.
	month := 0
	for _, tok := range monthTokenPattern.FindAllString(label, -1) {
		if n, ok := monthNames[strings.ToLower(tok)]; ok {
			month = n
			break
		}
	}
	if month != 0 {
		if y := yearTokenPattern.FindStringSubmatch(label); y != nil {
			year, _ := strconv.Atoi(y[1])
			if len(y[1]) == 2 {
				year += 2000
			}
			if year >= 2000 {
				return NewMonthKey(year, month), true
			}
		}
	}

	return "", false
}

// MonthRange returns the inclusive chronological sequence [from, to].
// Returns nil when from is after to.
func MonthRange(from, to MonthKey) []MonthKey {
	fy, fm, ok1 := splitKey(from)
	ty, tm, ok2 := splitKey(to)
	if !ok1 || !ok2 {
		return nil
	}
	var keys []MonthKey
	for y, m := fy, fm; y < ty || (y == ty && m <= tm); {
		keys = append(keys, NewMonthKey(y, m))
		m++
		if m > 12 {
			m = 1
			y++
		}
	}
	return keys
}

func splitKey(k MonthKey) (year, month int, ok bool) {
	parts := strings.SplitN(string(k), "-", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	year, err1 := strconv.Atoi(parts[0])
	month, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil || month < 1 || month > 12 {
		return 0, 0, false
	}
	return year, month, true
}
