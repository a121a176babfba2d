package repository

import (
	"context"
	"time"

	"roombook/internal/domain/booking"
	"roombook/internal/infra"
	"roombook/internal/infra/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const bookingColumns = `id, reference, room_id, user_id, check_in, check_out, quantity, guests,
	status, payment_status, nightly_total_cents, tax_cents, service_fee_cents, total_cents,
	currency, cancel_reason, cancelled_at, confirmed_at, created_at, updated_at`

type BookingRepository struct {
	db db.DBTX
}

func NewBookingRepository(db db.DBTX) *BookingRepository {
	return &BookingRepository{db: db}
}

func (r *BookingRepository) Create(ctx context.Context, b *booking.Booking) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO bookings (`+bookingColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`,
		b.ID(), b.Reference().String(), b.RoomID(), b.UserID(), b.Stay().CheckIn(), b.Stay().CheckOut(),
		b.Quantity(), b.Guests(), string(b.Status()), string(b.PaymentStatus()),
		b.NightlyTotal().Cents(), b.Tax().Cents(), b.ServiceFee().Cents(), b.Total().Cents(),
		b.Currency(), b.CancelReason(), b.CancelledAt(), b.ConfirmedAt(), b.CreatedAt(), b.UpdatedAt(),
	)
	if err != nil {
		return infra.WrapRepoErr("failed to create booking", err)
	}
	return nil
}

func (r *BookingRepository) Update(ctx context.Context, b *booking.Booking) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE bookings
		SET status = $2, payment_status = $3, cancel_reason = $4, cancelled_at = $5,
			confirmed_at = $6, updated_at = $7
		WHERE id = $1`,
		b.ID(), string(b.Status()), string(b.PaymentStatus()), b.CancelReason(), b.CancelledAt(),
		b.ConfirmedAt(), b.UpdatedAt(),
	)
	if err != nil {
		return infra.WrapRepoErr("failed to update booking", err)
	}
	if tag.RowsAffected() == 0 {
		return infra.WrapRepoErr("booking not found", nil, infra.KindNotFound)
	}
	return nil
}

// FindByID locks the row for the rest of the transaction.
func (r *BookingRepository) FindByID(ctx context.Context, id uuid.UUID) (*booking.Booking, error) {
	row := r.db.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1 FOR UPDATE`, id)
	b, err := scanBooking(row)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to find booking by id", err)
	}
	return b, nil
}

func (r *BookingRepository) FindByReference(ctx context.Context, ref booking.Reference) (*booking.Booking, error) {
	row := r.db.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE reference = $1 FOR UPDATE`, ref.String())
	b, err := scanBooking(row)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to find booking by reference", err)
	}
	return b, nil
}

func scanBooking(row pgx.Row) (*booking.Booking, error) {
	var (
		id, roomID, userID                uuid.UUID
		reference, status, payStatus, cur string
		checkIn, checkOut                 time.Time
		quantity, guests                  int
		nightly, tax, fee, total          int64
		cancelReason                      *string
		cancelledAt, confirmedAt          *time.Time
		createdAt, updatedAt              time.Time
	)
	if err := row.Scan(
		&id, &reference, &roomID, &userID, &checkIn, &checkOut, &quantity, &guests,
		&status, &payStatus, &nightly, &tax, &fee, &total,
		&cur, &cancelReason, &cancelledAt, &confirmedAt, &createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}

	stay, err := booking.NewStayRange(checkIn, checkOut)
	if err != nil {
		return nil, err
	}
	nightlyTotal, _ := booking.NewMoney(nightly)
	taxMoney, _ := booking.NewMoney(tax)
	feeMoney, _ := booking.NewMoney(fee)
	totalMoney, _ := booking.NewMoney(total)

	return booking.ReconstructBooking(
		id, booking.Reference(reference), roomID, userID, stay, quantity, guests,
		booking.Status(status), booking.PaymentStatus(payStatus),
		nightlyTotal, taxMoney, feeMoney, totalMoney, cur,
		cancelReason, cancelledAt, confirmedAt, createdAt, updatedAt,
	), nil
}
