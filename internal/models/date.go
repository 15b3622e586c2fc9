package models

import (
	"fmt"
	"time"
)

// DateLayout is the wire and storage format of calendar dates.
const DateLayout = "2006-01-02"

// DateOf truncates t to its calendar day, expressed as midnight UTC.
// The day is taken in t's own location.
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD string into a calendar date.
func ParseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: date is required", ErrValidation)
	}
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid date %q; expected YYYY-MM-DD", ErrValidation, s)
	}
	return d, nil
}

// FormatDate renders a calendar date as YYYY-MM-DD.
func FormatDate(d time.Time) string {
	return d.Format(DateLayout)
}

// ValidateRange checks that both dates are set and start is strictly before end.
func ValidateRange(start, end time.Time) error {
	if start.IsZero() || end.IsZero() {
		return fmt.Errorf("%w: start_date and end_date are required", ErrValidation)
	}
	if !DateOf(start).Before(DateOf(end)) {
		return fmt.Errorf("%w: end date must be greater than start date", ErrValidation)
	}
	return nil
}
