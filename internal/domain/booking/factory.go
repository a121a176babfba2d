package booking

import (
	"time"

	"roombook/internal/domain/room"
	"roombook/internal/pkg/clock"

	"github.com/google/uuid"
)

type Factory struct {
	Clock       clock.Clock
	Calculator  *PriceCalculator
	HoldTimeout time.Duration
	Currency    string
}

func NewFactory(clk clock.Clock, calculator *PriceCalculator, holdTimeout time.Duration, currency string) *Factory {
	return &Factory{
		Clock:       clk,
		Calculator:  calculator,
		HoldTimeout: holdTimeout,
		Currency:    currency,
	}
}

// Draft is everything Create persists in one transaction.
type Draft struct {
	Booking     *Booking
	Reservation *Reservation
	Locks       []AvailabilityLock
	Quote       Quote
}

// CreateDraft prices a stay and builds the reserved booking, its active
// hold and the shadow lock rows, all expiring together.
func (f *Factory) CreateDraft(
	r *room.Room,
	pricer NightlyPricer,
	userID uuid.UUID,
	stay StayRange,
	quantity, guests int,
	lockToken string,
) (*Draft, error) {
	if err := r.CheckBookable(guests); err != nil {
		return nil, err
	}
	ref, err := NewReference()
	if err != nil {
		return nil, err
	}

	now := f.Clock.Now()
	quote := f.Calculator.Quote(pricer, stay, quantity)
	b, err := NewBooking(ref, r.ID(), userID, stay, quantity, guests, quote, f.Currency, now)
	if err != nil {
		return nil, err
	}
	res := NewReservation(b.ID(), r.ID(), lockToken, now, f.HoldTimeout)

	return &Draft{
		Booking:     b,
		Reservation: res,
		Locks:       NewAvailabilityLocks(res, stay, quantity),
		Quote:       quote,
	}, nil
}
