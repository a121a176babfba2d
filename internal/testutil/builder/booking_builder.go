//go:build unit || integration

package builder

import (
	"time"

	"roombook/internal/domain/booking"

	"github.com/google/uuid"
)

type BookingBuilder struct {
	ID            uuid.UUID
	Reference     booking.Reference
	RoomID        uuid.UUID
	UserID        uuid.UUID
	CheckIn       time.Time
	CheckOut      time.Time
	Quantity      int
	Guests        int
	Status        booking.Status
	PaymentStatus booking.PaymentStatus
	TotalCents    int64
	CreatedAt     time.Time
}

func NewBookingBuilder() *BookingBuilder {
	checkIn := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	return &BookingBuilder{
		ID:            uuid.New(),
		Reference:     "BKTEST0001",
		RoomID:        uuid.New(),
		UserID:        uuid.New(),
		CheckIn:       checkIn,
		CheckOut:      checkIn.AddDate(0, 0, 2),
		Quantity:      1,
		Guests:        2,
		Status:        booking.StatusReserved,
		PaymentStatus: booking.PaymentPending,
		TotalCents:    232_000,
		CreatedAt:     checkIn.AddDate(0, 0, -7),
	}
}

func (b *BookingBuilder) With(mutate func(*BookingBuilder)) *BookingBuilder {
	mutate(b)
	return b
}

func (b *BookingBuilder) BuildDomain() *booking.Booking {
	stay, err := booking.NewStayRange(b.CheckIn, b.CheckOut)
	if err != nil {
		panic(err)
	}
	total, _ := booking.NewMoney(b.TotalCents)
	var zero booking.Money
	return booking.ReconstructBooking(
		b.ID, b.Reference, b.RoomID, b.UserID, stay, b.Quantity, b.Guests,
		b.Status, b.PaymentStatus, total, zero, zero, total, "IDR",
		nil, nil, nil, b.CreatedAt, b.CreatedAt,
	)
}

type ReservationBuilder struct {
	ID             uuid.UUID
	BookingID      uuid.UUID
	RoomID         uuid.UUID
	Status         booking.ReservationStatus
	ExpiresAt      time.Time
	ExtensionCount int
	LockToken      string
	PaymentRef     *string
	ExternalID     *string
}

func NewReservationBuilder() *ReservationBuilder {
	return &ReservationBuilder{
		ID:        uuid.New(),
		BookingID: uuid.New(),
		RoomID:    uuid.New(),
		Status:    booking.ReservationActive,
		ExpiresAt: time.Date(2026, 2, 20, 12, 15, 0, 0, time.UTC),
		LockToken: uuid.NewString(),
	}
}

func (r *ReservationBuilder) With(mutate func(*ReservationBuilder)) *ReservationBuilder {
	mutate(r)
	return r
}

func (r *ReservationBuilder) ForBooking(b *booking.Booking) *ReservationBuilder {
	r.BookingID = b.ID()
	r.RoomID = b.RoomID()
	return r
}

func (r *ReservationBuilder) BuildDomain() *booking.Reservation {
	created := r.ExpiresAt.Add(-15 * time.Minute)
	return booking.ReconstructReservation(
		r.ID, r.BookingID, r.RoomID, r.Status, r.ExpiresAt, r.ExtensionCount,
		r.LockToken, r.PaymentRef, nil, r.ExternalID, created, created,
	)
}
