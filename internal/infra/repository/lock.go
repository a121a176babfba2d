package repository

import (
	"context"
	"time"

	"roombook/internal/domain/booking"
	"roombook/internal/infra"
	"roombook/internal/infra/db"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/google/uuid"
)

// LockRepository persists the durable shadow rows of held dates.
type LockRepository struct {
	db db.DBTX
}

func NewLockRepository(db db.DBTX) *LockRepository {
	return &LockRepository{db: db}
}

func (r *LockRepository) CreateMany(ctx context.Context, locks []booking.AvailabilityLock) error {
	if len(locks) == 0 {
		return nil
	}
	rows := make([]any, len(locks))
	for i, l := range locks {
		rows[i] = goqu.Record{
			"id":             l.ID.String(),
			"reservation_id": l.ReservationID.String(),
			"room_id":        l.RoomID.String(),
			"date":           l.Date,
			"quantity":       l.Quantity,
			"is_active":      l.IsActive,
			"expires_at":     l.ExpiresAt,
		}
	}

	query, args, err := goqu.Dialect("postgres").
		Insert("booking_availability_locks").
		Rows(rows...).
		Prepared(true).
		ToSQL()
	if err != nil {
		return infra.WrapRepoErr("failed to build availability lock insert", err)
	}
	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		return infra.WrapRepoErr("failed to create availability locks", err)
	}
	return nil
}

func (r *LockRepository) ExtendForReservation(ctx context.Context, reservationID uuid.UUID, expiresAt time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE booking_availability_locks
		SET expires_at = $2
		WHERE reservation_id = $1 AND is_active`,
		reservationID, expiresAt,
	)
	if err != nil {
		return 0, infra.WrapRepoErr("failed to extend availability locks", err)
	}
	return tag.RowsAffected(), nil
}

func (r *LockRepository) ReleaseForReservation(ctx context.Context, reservationID uuid.UUID, reason booking.ReleaseReason, at time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE booking_availability_locks
		SET is_active = false, released_at = $2, release_reason = $3
		WHERE reservation_id = $1 AND is_active`,
		reservationID, at, string(reason),
	)
	if err != nil {
		return 0, infra.WrapRepoErr("failed to release availability locks", err)
	}
	return tag.RowsAffected(), nil
}
