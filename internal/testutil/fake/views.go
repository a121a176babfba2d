//go:build unit || integration

package fake

import (
	"context"
	"sort"
	"time"

	"roombook/internal/usecase/queries"

	"github.com/google/uuid"
)

// BookingViews serves the booking read side from the store's tables.
type BookingViews struct {
	s   *Store
	Err error
}

func (s *Store) Views() *BookingViews {
	return &BookingViews{s: s}
}

func (v *BookingViews) FindByReference(ctx context.Context, reference string) (*queries.BookingView, error) {
	if v.Err != nil {
		return nil, v.Err
	}
	for _, view := range v.all() {
		if view.Reference == reference {
			return view, nil
		}
	}
	return nil, notFound("booking not found")
}

func (v *BookingViews) ListByUser(ctx context.Context, userID uuid.UUID, lastCreatedAt time.Time, lastID uuid.UUID, limit int) ([]*queries.BookingView, error) {
	if v.Err != nil {
		return nil, v.Err
	}
	var out []*queries.BookingView
	for _, view := range v.all() {
		if view.UserID != userID {
			continue
		}
		if !lastCreatedAt.IsZero() {
			older := view.CreatedAt.Before(lastCreatedAt) ||
				(view.CreatedAt.Equal(lastCreatedAt) && view.ID.String() < lastID.String())
			if !older {
				continue
			}
		}
		out = append(out, view)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID.String() > out[j].ID.String()
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (v *BookingViews) all() []*queries.BookingView {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	out := make([]*queries.BookingView, 0, len(v.s.t.bookings))
	for _, b := range v.s.t.bookings {
		b := b
		var view *queries.BookingView
		for _, res := range v.s.t.reservations {
			if res.BookingID() == b.ID() {
				res := res
				view = queries.NewBookingView(&b, &res)
				break
			}
		}
		if view == nil {
			view = queries.NewBookingView(&b, nil)
		}
		out = append(out, view)
	}
	return out
}
