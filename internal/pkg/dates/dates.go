// Package dates holds the calendar-date helpers shared by the lock keys, the
// ledger and pricing. All dates are UTC midnights; ranges are half-open.
package dates

import (
	"time"
)

const Layout = "2006-01-02"

func Truncate(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

func Parse(s string) (time.Time, error) {
	return time.ParseInLocation(Layout, s, time.UTC)
}

func Key(t time.Time) string {
	return t.UTC().Format(Layout)
}

// Range lists every date in [start, end).
func Range(start, end time.Time) []time.Time {
	start, end = Truncate(start), Truncate(end)
	if !end.After(start) {
		return nil
	}
	out := make([]time.Time, 0, Nights(start, end))
	for d := start; d.Before(end); d = d.AddDate(0, 0, 1) {
		out = append(out, d)
	}
	return out
}

func Keys(start, end time.Time) []string {
	days := Range(start, end)
	keys := make([]string, len(days))
	for i, d := range days {
		keys[i] = Key(d)
	}
	return keys
}

func Nights(start, end time.Time) int {
	start, end = Truncate(start), Truncate(end)
	if !end.After(start) {
		return 0
	}
	return int(end.Sub(start).Hours() / 24)
}

// Overlaps reports whether [aStart, aEnd) and [bStart, bEnd) share a date.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}
