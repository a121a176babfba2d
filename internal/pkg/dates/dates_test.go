//go:build unit

package dates_test

import (
	"testing"
	"time"

	"roombook/internal/pkg/dates"

	"github.com/stretchr/testify/assert"
)

func day(s string) time.Time {
	d, err := dates.Parse(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestRange(t *testing.T) {
	testCases := []struct {
		name  string
		start string
		end   string
		want  []string
	}{
		{name: "three nights", start: "2026-03-01", end: "2026-03-04", want: []string{"2026-03-01", "2026-03-02", "2026-03-03"}},
		{name: "single night", start: "2026-03-01", end: "2026-03-02", want: []string{"2026-03-01"}},
		{name: "empty range", start: "2026-03-01", end: "2026-03-01", want: []string{}},
		{name: "inverted range", start: "2026-03-04", end: "2026-03-01", want: []string{}},
		{name: "crosses month end", start: "2026-02-27", end: "2026-03-02", want: []string{"2026-02-27", "2026-02-28", "2026-03-01"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := dates.Keys(day(tc.start), day(tc.end))
			assert.ElementsMatch(t, tc.want, got)
			assert.Equal(t, len(tc.want), dates.Nights(day(tc.start), day(tc.end)))
		})
	}
}

func TestTruncate(t *testing.T) {
	loc := time.FixedZone("UTC+7", 7*60*60)
	in := time.Date(2026, 3, 1, 23, 30, 0, 0, time.UTC).In(loc)
	assert.Equal(t, "2026-03-01", dates.Key(dates.Truncate(in)))
}

func TestOverlaps(t *testing.T) {
	assert.True(t, dates.Overlaps(day("2026-03-01"), day("2026-03-03"), day("2026-03-02"), day("2026-03-04")))
	assert.False(t, dates.Overlaps(day("2026-03-01"), day("2026-03-03"), day("2026-03-03"), day("2026-03-05")))
}
