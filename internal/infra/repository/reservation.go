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

const reservationColumns = `id, booking_id, room_id, status, expires_at, extension_count, lock_token,
	payment_ref, payment_url, external_id, created_at, updated_at`

type ReservationRepository struct {
	db db.DBTX
}

func NewReservationRepository(db db.DBTX) *ReservationRepository {
	return &ReservationRepository{db: db}
}

func (r *ReservationRepository) Create(ctx context.Context, res *booking.Reservation) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO booking_reservations (`+reservationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		res.ID(), res.BookingID(), res.RoomID(), string(res.Status()), res.ExpiresAt(), res.ExtensionCount(),
		res.LockToken(), res.PaymentRef(), res.PaymentURL(), res.ExternalID(), res.CreatedAt(), res.UpdatedAt(),
	)
	if err != nil {
		return infra.WrapRepoErr("failed to create reservation", err)
	}
	return nil
}

// Update is a compare-and-set on status, so a second sweep or a racing
// webhook cannot apply the same transition twice.
func (r *ReservationRepository) Update(ctx context.Context, res *booking.Reservation, expected booking.ReservationStatus) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE booking_reservations
		SET status = $2, expires_at = $3, extension_count = $4, payment_ref = $5,
			payment_url = $6, external_id = $7, updated_at = $8
		WHERE id = $1 AND status = $9`,
		res.ID(), string(res.Status()), res.ExpiresAt(), res.ExtensionCount(), res.PaymentRef(),
		res.PaymentURL(), res.ExternalID(), res.UpdatedAt(), string(expected),
	)
	if err != nil {
		return infra.WrapRepoErr("failed to update reservation", err)
	}
	if tag.RowsAffected() == 0 {
		return infra.WrapRepoErr("reservation changed concurrently", nil, infra.KindStaleWrite)
	}
	return nil
}

func (r *ReservationRepository) FindByBookingID(ctx context.Context, bookingID uuid.UUID) (*booking.Reservation, error) {
	row := r.db.QueryRow(ctx, `SELECT `+reservationColumns+` FROM booking_reservations WHERE booking_id = $1 FOR UPDATE`, bookingID)
	res, err := scanReservation(row)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to find reservation by booking", err)
	}
	return res, nil
}

func (r *ReservationRepository) FindDue(ctx context.Context, now time.Time, limit int) ([]*booking.Reservation, error) {
	return r.list(ctx, `
		SELECT `+reservationColumns+` FROM booking_reservations
		WHERE status = 'active' AND expires_at <= $1
		ORDER BY expires_at
		LIMIT $2`, now, limit)
}

func (r *ReservationRepository) FindAwaitingPayment(ctx context.Context, now time.Time, limit int) ([]*booking.Reservation, error) {
	return r.list(ctx, `
		SELECT `+reservationColumns+` FROM booking_reservations
		WHERE status = 'active' AND expires_at > $1 AND payment_ref IS NOT NULL
		ORDER BY expires_at
		LIMIT $2`, now, limit)
}

func (r *ReservationRepository) list(ctx context.Context, query string, args ...any) ([]*booking.Reservation, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to list reservations", err)
	}
	defer rows.Close()

	var out []*booking.Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, infra.WrapRepoErr("failed to scan reservation", err)
		}
		out = append(out, res)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to iterate reservations", err)
	}
	return out, nil
}

func scanReservation(row pgx.Row) (*booking.Reservation, error) {
	var (
		id, bookingID, roomID              uuid.UUID
		status, lockToken                  string
		expiresAt, createdAt, updatedAt    time.Time
		extensions                         int
		paymentRef, paymentURL, externalID *string
	)
	if err := row.Scan(
		&id, &bookingID, &roomID, &status, &expiresAt, &extensions, &lockToken,
		&paymentRef, &paymentURL, &externalID, &createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}
	return booking.ReconstructReservation(
		id, bookingID, roomID, booking.ReservationStatus(status), expiresAt, extensions, lockToken,
		paymentRef, paymentURL, externalID, createdAt, updatedAt,
	), nil
}
