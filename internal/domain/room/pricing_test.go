//go:build unit

package room_test

import (
	"testing"
	"time"

	"roombook/internal/domain/room"
	"roombook/internal/pkg/dates"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	d, err := dates.Parse(s)
	if err != nil {
		panic(err)
	}
	return d
}

func ptr[T any](v T) *T { return &v }

func TestNightlyPricer(t *testing.T) {
	roomID := uuid.New()
	rules := []room.PricingRule{
		{ID: uuid.New(), RoomID: roomID, Kind: room.RuleDefault, PriceCents: 110_000, Priority: 0, IsActive: true},
		{ID: uuid.New(), RoomID: roomID, Kind: room.RuleDayOfWeek, DaysOfWeek: []time.Weekday{time.Friday, time.Saturday}, PriceCents: 150_000, Priority: 10, IsActive: true},
		{ID: uuid.New(), RoomID: roomID, Kind: room.RuleDateRange, StartDate: ptr(day("2026-03-06")), EndDate: ptr(day("2026-03-08")), PriceCents: 200_000, Priority: 10, IsActive: true},
		{ID: uuid.New(), RoomID: roomID, Kind: room.RuleDateRange, StartDate: ptr(day("2026-03-02")), EndDate: ptr(day("2026-03-04")), PriceCents: 90_000, Priority: 1, IsActive: true},
		{ID: uuid.New(), RoomID: roomID, Kind: room.RuleDateRange, PriceCents: 1, Priority: 99, IsActive: false},
	}
	override, err := room.NewOverride(roomID, day("2026-03-05"), nil, ptr(int64(50_000)))
	require.NoError(t, err)

	pricer := room.NewNightlyPricer(100_000, rules, []room.Override{override})

	testCases := []struct {
		name string
		date string
		want int64
	}{
		{name: "default rule beats room default", date: "2026-03-01", want: 110_000},
		{name: "higher priority date range", date: "2026-03-02", want: 90_000},
		{name: "date range end is exclusive", date: "2026-03-04", want: 110_000},
		{name: "override price wins over rules", date: "2026-03-05", want: 50_000},
		{name: "date range wins tie with weekday rule", date: "2026-03-06", want: 200_000},
		{name: "date range covers saturday", date: "2026-03-07", want: 200_000},
		{name: "weekday rule does not match sunday", date: "2026-03-08", want: 110_000},
		{name: "weekday rule alone on later friday", date: "2026-03-13", want: 150_000},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, pricer.PriceFor(day(tc.date)))
		})
	}
}

func TestNightlyPricer_FallsBackToRoomDefault(t *testing.T) {
	pricer := room.NewNightlyPricer(100_000, nil, nil)

	prices := pricer.Prices(day("2026-03-01"), day("2026-03-04"))

	require.Len(t, prices, 3)
	for _, p := range prices {
		assert.Equal(t, int64(100_000), p.PriceCents)
	}
}

func TestPricingRule_Validate(t *testing.T) {
	testCases := []struct {
		name  string
		rule  room.PricingRule
		errIs error
	}{
		{name: "valid default", rule: room.PricingRule{Kind: room.RuleDefault, PriceCents: 1}},
		{name: "unknown kind", rule: room.PricingRule{Kind: "season"}, errIs: room.ErrInvalidRuleKind},
		{name: "negative price", rule: room.PricingRule{Kind: room.RuleDefault, PriceCents: -1}, errIs: room.ErrNegativePrice},
		{
			name:  "inverted range",
			rule:  room.PricingRule{Kind: room.RuleDateRange, StartDate: ptr(day("2026-03-05")), EndDate: ptr(day("2026-03-05"))},
			errIs: room.ErrInvalidRuleRange,
		},
		{name: "weekday rule without days", rule: room.PricingRule{Kind: room.RuleDayOfWeek}, errIs: room.ErrMissingWeekdays},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.rule.Validate()
			if tc.errIs != nil {
				assert.ErrorIs(t, err, tc.errIs)
				return
			}
			assert.NoError(t, err)
		})
	}
}
