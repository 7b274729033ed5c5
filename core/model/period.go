package model

import (
	"fmt"
	"strconv"
	"strings"
)

// Period is a (year, month) calendar cell. Month is in [1,12].
type Period struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

// InvalidPeriodError is returned when a period is built from an out of range month.
type InvalidPeriodError struct {
	Year  int
	Month int
}

func (e *InvalidPeriodError) Error() string {
	return fmt.Sprintf("invalid period %d-%d: month must be in [1,12]", e.Year, e.Month)
}

// NewPeriod validates month and returns the period.
func NewPeriod(year, month int) (Period, error) {
	if month < 1 || month > 12 {
		return Period{}, &InvalidPeriodError{Year: year, Month: month}
	}
	return Period{Year: year, Month: month}, nil
}

// ParsePeriodKey parses the YYYY-MM form produced by Key.
func ParsePeriodKey(s string) (Period, error) {
	y, m, ok := strings.Cut(strings.TrimSpace(s), "-")
	if !ok {
		return Period{}, fmt.Errorf("period %q: expected YYYY-MM", s)
	}
	year, err := strconv.Atoi(y)
	if err != nil {
		return Period{}, fmt.Errorf("period %q: year: %w", s, err)
	}
	month, err := strconv.Atoi(m)
	if err != nil {
		return Period{}, fmt.Errorf("period %q: month: %w", s, err)
	}
	return NewPeriod(year, month)
}

// Valid reports whether the month is in range.
func (p Period) Valid() bool { return p.Month >= 1 && p.Month <= 12 }

// Key renders the period as YYYY-MM.
func (p Period) Key() string { return fmt.Sprintf("%04d-%02d", p.Year, p.Month) }

func (p Period) String() string { return p.Key() }

// Compare orders periods by (year, month).
func (p Period) Compare(o Period) int {
	switch {
	case p.Year < o.Year:
		return -1
	case p.Year > o.Year:
		return 1
	case p.Month < o.Month:
		return -1
	case p.Month > o.Month:
		return 1
	}
	return 0
}

// Before reports whether p sorts strictly before o.
func (p Period) Before(o Period) bool { return p.Compare(o) < 0 }

// MonthsUntil returns the number of whole months from p to o.
func (p Period) MonthsUntil(o Period) int {
	return (o.Year-p.Year)*12 + (o.Month - p.Month)
}
