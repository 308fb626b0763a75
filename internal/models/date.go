package models

import (
	"fmt"
	"strings"
	"time"
)

// Ledger dates are ISO-8601 strings, either a plain day or a day with a time of day.
const (
	DateLayout     = "2006-01-02"
	DateTimeLayout = "2006-01-02 15:04:05"
)

// ParseDate validates s against the ledger date layouts and returns it trimmed.
func ParseDate(s string) (string, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{DateLayout, DateTimeLayout} {
		if _, err := time.Parse(layout, s); err == nil {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: date %q is not YYYY-MM-DD or YYYY-MM-DD HH:MM:SS", ErrValidation, s)
}

// Day returns the YYYY-MM-DD part of a ledger date.
func Day(date string) string {
	if len(date) >= len(DateLayout) {
		return date[:len(DateLayout)]
	}
	return date
}

// DateRange is an inclusive range of days.
type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// NewDateRange validates both bounds and their order.
func NewDateRange(start, end string) (DateRange, error) {
	start, end = strings.TrimSpace(start), strings.TrimSpace(end)
	if _, err := time.Parse(DateLayout, start); err != nil {
		return DateRange{}, fmt.Errorf("%w: start date %q is not YYYY-MM-DD", ErrValidation, start)
	}
	if _, err := time.Parse(DateLayout, end); err != nil {
		return DateRange{}, fmt.Errorf("%w: end date %q is not YYYY-MM-DD", ErrValidation, end)
	}
	if start > end {
		return DateRange{}, fmt.Errorf("%w: start date %s is after end date %s", ErrValidation, start, end)
	}
	return DateRange{Start: start, End: end}, nil
}

// Contains reports whether the day of date falls within r.
func (r DateRange) Contains(date string) bool {
	d := Day(date)
	return d >= r.Start && d <= r.End
}

func (r DateRange) String() string {
	return r.Start + " to " + r.End
}
