//go:build unit

package booking_test

import (
	"regexp"
	"testing"
	"time"

	"roombook/internal/domain/booking"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStayRange(t *testing.T) {
	checkIn := time.Date(2026, 3, 1, 14, 0, 0, 0, time.UTC)

	stay, err := booking.NewStayRange(checkIn, checkIn.AddDate(0, 0, 2))
	require.NoError(t, err)
	assert.Equal(t, 2, stay.Nights())
	assert.Equal(t, []string{"2026-03-01", "2026-03-02"}, stay.Keys())

	_, err = booking.NewStayRange(checkIn, checkIn)
	assert.ErrorIs(t, err, booking.ErrInvalidStayRange)

	_, err = booking.NewStayRange(checkIn, checkIn.AddDate(0, 0, -1))
	assert.ErrorIs(t, err, booking.ErrInvalidStayRange)

	assert.ErrorIs(t, stay.ValidateAt(checkIn.AddDate(0, 0, 1)), booking.ErrCheckInInPast)
	assert.NoError(t, stay.ValidateAt(checkIn.Add(5*time.Hour)))
}

func TestReference(t *testing.T) {
	ref, err := booking.NewReference()
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^BK[A-Z0-9]{8}$`), ref.String())

	parsed, err := booking.ParseReference(ref.String())
	require.NoError(t, err)
	assert.Equal(t, ref, parsed)

	for _, bad := range []string{"", "BK123", "XX12345678", "BKabcdefgh", "BK1234567890"} {
		_, err := booking.ParseReference(bad)
		assert.ErrorIs(t, err, booking.ErrInvalidReference, bad)
	}
}

func TestExternalID(t *testing.T) {
	at := time.Unix(1_767_225_600, 0)
	id := booking.ExternalID("BKAB12CD34", at)
	assert.Equal(t, "booking-BKAB12CD34-1767225600", id)

	ref, err := booking.ParseExternalID(id)
	require.NoError(t, err)
	assert.Equal(t, booking.Reference("BKAB12CD34"), ref)

	testCases := []struct {
		name string
		in   string
	}{
		{name: "missing prefix", in: "BKAB12CD34-1767225600"},
		{name: "missing timestamp", in: "booking-BKAB12CD34"},
		{name: "non numeric timestamp", in: "booking-BKAB12CD34-now"},
		{name: "bad reference", in: "booking-nope-1767225600"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := booking.ParseExternalID(tc.in)
			assert.ErrorIs(t, err, booking.ErrInvalidExternalID)
		})
	}
}

func TestMoney_ApplyRate(t *testing.T) {
	m, err := booking.NewMoney(999)
	require.NoError(t, err)
	assert.Equal(t, int64(110), m.ApplyRate(0.11).Cents())

	_, err = booking.NewMoney(-1)
	assert.ErrorIs(t, err, booking.ErrNegativeMoney)
}
