package shared

import (
	"context"
	"time"

	"roombook/internal/domain/availability"
	"roombook/internal/domain/booking"
	"roombook/internal/domain/payment"
	"roombook/internal/domain/room"

	"github.com/google/uuid"
)

type UnitOfWork interface {
	// Within: Full transaction for write operations with retry logic
	Within(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	// Reads: relational reads outside any transaction
	Reads() Reads
}

type Tx interface {
	Bookings() BookingRepository
	Reservations() ReservationRepository
	Locks() LockRepository
	Payments() PaymentRepository
	Notifications() NotificationRepository
	Reads() Reads
}

// Reads is the relational read side used to validate commands and to compute
// availability and prices.
type Reads interface {
	RoomByID(ctx context.Context, id uuid.UUID) (*room.Room, error)
	RoomsByIDs(ctx context.Context, ids []uuid.UUID) ([]*room.Room, error)
	ActiveRoomIDs(ctx context.Context) ([]uuid.UUID, error)
	InactiveRoomIDs(ctx context.Context) ([]uuid.UUID, error)
	Overrides(ctx context.Context, roomIDs []uuid.UUID, start, end time.Time) ([]room.Override, error)
	PricingRules(ctx context.Context, roomIDs []uuid.UUID) ([]room.PricingRule, error)
	// Holds returns every inventory consumption over [start, end), each hold
	// counted once: confirmed or checked-in bookings, unexpired active
	// reservations, and unexpired active shadow locks with no active reservation.
	Holds(ctx context.Context, roomIDs []uuid.UUID, start, end, now time.Time) ([]availability.Hold, error)
}

type BookingRepository interface {
	Create(ctx context.Context, b *booking.Booking) error
	Update(ctx context.Context, b *booking.Booking) error
	FindByID(ctx context.Context, id uuid.UUID) (*booking.Booking, error)
	FindByReference(ctx context.Context, ref booking.Reference) (*booking.Booking, error)
}

type ReservationRepository interface {
	Create(ctx context.Context, r *booking.Reservation) error
	// Update writes r only if the stored status still equals expected.
	Update(ctx context.Context, r *booking.Reservation, expected booking.ReservationStatus) error
	FindByBookingID(ctx context.Context, bookingID uuid.UUID) (*booking.Reservation, error)
	FindDue(ctx context.Context, now time.Time, limit int) ([]*booking.Reservation, error)
	FindAwaitingPayment(ctx context.Context, now time.Time, limit int) ([]*booking.Reservation, error)
}

type LockRepository interface {
	CreateMany(ctx context.Context, locks []booking.AvailabilityLock) error
	ExtendForReservation(ctx context.Context, reservationID uuid.UUID, expiresAt time.Time) (int64, error)
	ReleaseForReservation(ctx context.Context, reservationID uuid.UUID, reason booking.ReleaseReason, at time.Time) (int64, error)
}

type PaymentRepository interface {
	// Insert returns false when (external id, provider transaction id) already exists.
	Insert(ctx context.Context, p *payment.Payment) (bool, error)
	FindPaidByBooking(ctx context.Context, bookingID uuid.UUID) (*payment.Payment, error)
}

type NotificationRepository interface {
	CreateJob(ctx context.Context, kind, topic string, payload []byte, runAt time.Time) error
}
