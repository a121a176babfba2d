package queries

import (
	"context"
	"time"

	"roombook/internal/domain/booking"
	"roombook/internal/infra"
	"roombook/internal/pkg/errs"

	"github.com/google/uuid"
)

var (
	ErrBookingNotFound = errs.New("booking not found")
	ErrBookingAccess   = errs.New("booking access denied")
	ErrInvalidCursor   = errs.New("invalid cursor")
)

type BookingQueries interface {
	GetByReference(ctx context.Context, actor uuid.UUID, reference string) (*BookingView, error)
	ListByUser(ctx context.Context, userID uuid.UUID, after *Cursor, limit int) ([]*BookingView, *Cursor, error)
}

type BookingReadStore interface {
	FindByReference(ctx context.Context, reference string) (*BookingView, error)
	ListByUser(ctx context.Context, userID uuid.UUID, lastCreatedAt time.Time, lastID uuid.UUID, limit int) ([]*BookingView, error)
}

type bookingQueriesImpl struct {
	store BookingReadStore
}

func NewBookingQueries(store BookingReadStore) BookingQueries {
	return &bookingQueriesImpl{store: store}
}

// GetByReference hides bookings of other users behind the same not-found
// error a missing reference gets.
func (q *bookingQueriesImpl) GetByReference(ctx context.Context, actor uuid.UUID, reference string) (*BookingView, error) {
	ref, err := booking.ParseReference(reference)
	if err != nil {
		return nil, errs.NotFound(errs.Wrap(ErrBookingNotFound, err.Error()))
	}
	v, err := q.store.FindByReference(ctx, ref.String())
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, errs.NotFound(ErrBookingNotFound)
		}
		return nil, errs.Persistence(errs.Wrap(err, "load booking"))
	}
	if v.UserID != actor {
		return nil, errs.NotFound(errs.Mark(ErrBookingNotFound, ErrBookingAccess))
	}
	return v, nil
}

func (q *bookingQueriesImpl) ListByUser(ctx context.Context, userID uuid.UUID, after *Cursor, limit int) ([]*BookingView, *Cursor, error) {
	limit = ValidateLimit(limit)

	var (
		lastCreatedAt time.Time
		lastID        uuid.UUID
	)
	if after != nil && after.After != "" {
		t, id, err := DecodeAfterCursor(after.After)
		if err != nil {
			return nil, nil, errs.Validation(errs.Wrap(ErrInvalidCursor, err.Error()))
		}
		lastCreatedAt, lastID = t, id
	}

	// one extra row tells us whether another page exists
	rows, err := q.store.ListByUser(ctx, userID, lastCreatedAt, lastID, limit+1)
	if err != nil {
		return nil, nil, errs.Persistence(errs.Wrap(err, "list bookings"))
	}
	if len(rows) <= limit {
		return rows, nil, nil
	}
	rows = rows[:limit]
	last := rows[len(rows)-1]
	return rows, &Cursor{After: EncodeAfterCursor(last.CreatedAt, last.ID)}, nil
}
