package core

import (
	"fmt"
	"time"
)

const (
	DayLayout   = "2006-01-02"
	MonthLayout = "2006-01"
)

// ParseDay parses a YYYY-MM-DD civil date and anchors it at local midday,
// so adding days never lands on the wrong side of a DST transition.
func ParseDay(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DayLayout, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Midday(t), nil
}

// Midday returns the local noon of t's civil date.
func Midday(t time.Time) time.Time {
	t = t.In(time.Local)
	return time.Date(t.Year(), t.Month(), t.Day(), 12, 0, 0, 0, time.Local)
}

// FormatDay renders the local civil date of t.
func FormatDay(t time.Time) string {
	return t.In(time.Local).Format(DayLayout)
}

// Today returns now's civil date.
func Today(now time.Time) string {
	return FormatDay(now)
}

// AddDays shifts a civil date by n days.
func AddDays(day string, n int) (string, error) {
	t, err := ParseDay(day)
	if err != nil {
		return "", err
	}
	return FormatDay(t.AddDate(0, 0, n)), nil
}

// ParseMonth parses YYYY-MM and returns the first day of the month at midday.
func ParseMonth(s string) (time.Time, error) {
	t, err := time.ParseInLocation(MonthLayout, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: month %q", ErrInvalidDate, s)
	}
	return Midday(t), nil
}

// AddMonths shifts a YYYY-MM month by n months.
func AddMonths(month string, n int) (string, error) {
	t, err := ParseMonth(month)
	if err != nil {
		return "", err
	}
	return t.AddDate(0, n, 0).Format(MonthLayout), nil
}

// MonthOf returns the YYYY-MM prefix of a civil date.
func MonthOf(day string) string {
	if len(day) < 7 {
		return ""
	}
	return day[:7]
}
