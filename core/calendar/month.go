package calendar

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseMonth accepts a month number ("10") or an English month name, full or
// abbreviated, in any case ("October", "oct").
func ParseMonth(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("month is empty")
	}
	if n, err := strconv.Atoi(s); err == nil {
		if n < 1 || n > 12 {
			return 0, fmt.Errorf("month %d out of range [1,12]", n)
		}
		return n, nil
	}
	lower := strings.ToLower(s)
	for m := time.January; m <= time.December; m++ {
		name := strings.ToLower(m.String())
		if lower == name || (len(lower) == 3 && strings.HasPrefix(name, lower)) {
			return int(m), nil
		}
	}
	return 0, fmt.Errorf("unknown month %q", s)
}

// MonthName returns the English name of month, or "" when out of range.
func MonthName(month int) string {
	if month < 1 || month > 12 {
		return ""
	}
	return time.Month(month).String()
}
