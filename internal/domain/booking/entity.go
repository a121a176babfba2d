package booking

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrAlreadyConfirmed         = errors.New("booking is already confirmed")
	ErrAlreadyCancelled         = errors.New("booking is already cancelled")
	ErrInvalidTransition        = errors.New("booking status transition not allowed")
	ErrInvalidPaymentTransition = errors.New("payment status transition not allowed")
	ErrNotOwner                 = errors.New("booking belongs to another user")
)

// Booking is a guest's stay over [CheckIn, CheckOut) for a number of units.
type Booking struct {
	id            uuid.UUID
	reference     Reference
	roomID        uuid.UUID
	userID        uuid.UUID
	stay          StayRange
	quantity      int
	guests        int
	status        Status
	paymentStatus PaymentStatus
	nightlyTotal  Money
	tax           Money
	serviceFee    Money
	total         Money
	currency      string
	cancelReason  *string
	cancelledAt   *time.Time
	confirmedAt   *time.Time
	createdAt     time.Time
	updatedAt     time.Time
}

func NewBooking(
	reference Reference,
	roomID, userID uuid.UUID,
	stay StayRange,
	quantity, guests int,
	quote Quote,
	currency string,
	now time.Time,
) (*Booking, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}
	if guests < 1 {
		return nil, ErrInvalidGuests
	}
	return &Booking{
		id:            uuid.New(),
		reference:     reference,
		roomID:        roomID,
		userID:        userID,
		stay:          stay,
		quantity:      quantity,
		guests:        guests,
		status:        StatusReserved,
		paymentStatus: PaymentPending,
		nightlyTotal:  quote.NightlyTotal,
		tax:           quote.Tax,
		serviceFee:    quote.ServiceFee,
		total:         quote.Total,
		currency:      currency,
		createdAt:     now,
		updatedAt:     now,
	}, nil
}

func ReconstructBooking(
	id uuid.UUID,
	reference Reference,
	roomID, userID uuid.UUID,
	stay StayRange,
	quantity, guests int,
	status Status,
	paymentStatus PaymentStatus,
	nightlyTotal, tax, serviceFee, total Money,
	currency string,
	cancelReason *string,
	cancelledAt, confirmedAt *time.Time,
	createdAt, updatedAt time.Time,
) *Booking {
	return &Booking{
		id:            id,
		reference:     reference,
		roomID:        roomID,
		userID:        userID,
		stay:          stay,
		quantity:      quantity,
		guests:        guests,
		status:        status,
		paymentStatus: paymentStatus,
		nightlyTotal:  nightlyTotal,
		tax:           tax,
		serviceFee:    serviceFee,
		total:         total,
		currency:      currency,
		cancelReason:  cancelReason,
		cancelledAt:   cancelledAt,
		confirmedAt:   confirmedAt,
		createdAt:     createdAt,
		updatedAt:     updatedAt,
	}
}

// Confirm moves a reserved booking to confirmed and marks it paid.
func (b *Booking) Confirm(now time.Time) error {
	if b.status == StatusConfirmed {
		return ErrAlreadyConfirmed
	}
	if !b.status.CanTransitionTo(StatusConfirmed) {
		return ErrInvalidTransition
	}
	if b.paymentStatus != PaymentPaid {
		if err := b.ChangePaymentStatus(PaymentPaid, now); err != nil {
			return err
		}
	}
	b.status = StatusConfirmed
	b.confirmedAt = &now
	b.updatedAt = now
	return nil
}

func (b *Booking) Cancel(reason string, now time.Time) error {
	if b.status == StatusCancelled {
		return ErrAlreadyCancelled
	}
	if !b.status.CanTransitionTo(StatusCancelled) {
		return ErrInvalidTransition
	}
	b.status = StatusCancelled
	b.cancelReason = &reason
	b.cancelledAt = &now
	b.updatedAt = now
	return nil
}

func (b *Booking) CheckInGuest(now time.Time) error {
	return b.transition(StatusCheckedIn, now)
}

func (b *Booking) CheckOutGuest(now time.Time) error {
	return b.transition(StatusCheckedOut, now)
}

func (b *Booking) transition(next Status, now time.Time) error {
	if !b.status.CanTransitionTo(next) {
		return ErrInvalidTransition
	}
	b.status = next
	b.updatedAt = now
	return nil
}

func (b *Booking) ChangePaymentStatus(next PaymentStatus, now time.Time) error {
	if b.paymentStatus == next {
		return nil
	}
	if !b.paymentStatus.CanTransitionTo(next) {
		return ErrInvalidPaymentTransition
	}
	b.paymentStatus = next
	b.updatedAt = now
	return nil
}

func (b *Booking) CheckOwner(userID uuid.UUID) error {
	if b.userID != userID {
		return ErrNotOwner
	}
	return nil
}

func (b *Booking) IsRefundable() bool {
	return b.paymentStatus == PaymentPaid
}

func (b *Booking) ID() uuid.UUID                { return b.id }
func (b *Booking) Reference() Reference         { return b.reference }
func (b *Booking) RoomID() uuid.UUID            { return b.roomID }
func (b *Booking) UserID() uuid.UUID            { return b.userID }
func (b *Booking) Stay() StayRange              { return b.stay }
func (b *Booking) Quantity() int                { return b.quantity }
func (b *Booking) Guests() int                  { return b.guests }
func (b *Booking) Status() Status               { return b.status }
func (b *Booking) PaymentStatus() PaymentStatus { return b.paymentStatus }
func (b *Booking) NightlyTotal() Money          { return b.nightlyTotal }
func (b *Booking) Tax() Money                   { return b.tax }
func (b *Booking) ServiceFee() Money            { return b.serviceFee }
func (b *Booking) Total() Money                 { return b.total }
func (b *Booking) Currency() string             { return b.currency }
func (b *Booking) CancelReason() *string        { return b.cancelReason }
func (b *Booking) CancelledAt() *time.Time      { return b.cancelledAt }
func (b *Booking) ConfirmedAt() *time.Time      { return b.confirmedAt }
func (b *Booking) CreatedAt() time.Time         { return b.createdAt }
func (b *Booking) UpdatedAt() time.Time         { return b.updatedAt }
