// Package period parses the human month labels used by the billing views
// ("January 2025") and turns them into concrete date ranges.
package period

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the ISO calendar date layout used for every date column.
const DateLayout = "2006-01-02"

// Month identifies one calendar month.
type Month struct {
	Year  int
	Month time.Month
}

// ParseMonth accepts "January 2025", "Jan 2025" and "2025-01" (case-insensitive).
func ParseMonth(s string) (Month, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Month{}, fmt.Errorf("empty month")
	}

	if t, err := time.Parse("2006-01", s); err == nil {
		return Month{Year: t.Year(), Month: t.Month()}, nil
	}

	fields := strings.Fields(s)
	if len(fields) != 2 {
		return Month{}, fmt.Errorf("invalid month %q: expected \"<month> <year>\"", s)
	}
	m, ok := lookupMonth(fields[0])
	if !ok {
		return Month{}, fmt.Errorf("invalid month name %q", fields[0])
	}
	year, err := strconv.Atoi(fields[1])
	if err != nil || year < 1 || year > 9999 {
		return Month{}, fmt.Errorf("invalid year %q", fields[1])
	}
	return Month{Year: year, Month: m}, nil
}

func lookupMonth(name string) (time.Month, bool) {
	name = strings.ToLower(name)
	for m := time.January; m <= time.December; m++ {
		full := strings.ToLower(m.String())
		if name == full || (len(name) >= 3 && strings.HasPrefix(full, name)) {
			return m, true
		}
	}
	return 0, false
}

// First returns the first day of the month (UTC midnight).
func (m Month) First() time.Time {
	return time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC)
}

// Last returns the last calendar day of the month. Columns are real DATEs, so
// the bound must be a valid date ("2025-02-31" would be rejected by Postgres).
func (m Month) Last() time.Time {
	return m.First().AddDate(0, 1, -1)
}

// Contains reports whether the ISO date string d falls within the month.
func (m Month) Contains(d string) bool {
	t, err := time.Parse(DateLayout, d)
	if err != nil {
		return false
	}
	return t.Year() == m.Year && t.Month() == m.Month
}

// String renders the month the way the views label it.
func (m Month) String() string {
	return fmt.Sprintf("%s %d", m.Month, m.Year)
}

// Range returns the inclusive ISO bounds of the month.
func (m Month) Range() (from, to string) {
	return m.First().Format(DateLayout), m.Last().Format(DateLayout)
}

// ParseDate parses an ISO calendar date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	return t, nil
}

// ParseOptionalDate maps "" to nil.
func ParseOptionalDate(s string) (*time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	t, err := ParseDate(s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// FormatDate renders t as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DateLayout)
}

// FormatOptionalDate maps nil to "".
func FormatOptionalDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return FormatDate(*t)
}
