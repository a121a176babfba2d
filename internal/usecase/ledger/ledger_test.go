//go:build unit

package ledger_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"roombook/internal/domain/booking"
	"roombook/internal/domain/room"
	"roombook/internal/pkg/clock"
	"roombook/internal/pkg/dates"
	"roombook/internal/pkg/errs"
	"roombook/internal/testutil/builder"
	"roombook/internal/testutil/fake"
	"roombook/internal/usecase/ledger"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	now = time.Date(2026, 2, 20, 12, 0, 0, 0, time.UTC)
	d1  = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	d2  = d1.AddDate(0, 0, 1)
	d3  = d1.AddDate(0, 0, 2)
	d4  = d1.AddDate(0, 0, 3)
	d5  = d1.AddDate(0, 0, 4)
)

func newLedger(t *testing.T) (*ledger.Ledger, *fake.Store, *fake.Ledger) {
	t.Helper()
	store := fake.NewStore()
	cache := fake.NewLedger()
	return ledger.NewLedger(store, cache, clock.NewMockClock(now)), store, cache
}

func confirmedBooking(roomID uuid.UUID, checkIn, checkOut time.Time, quantity int) *booking.Booking {
	return builder.NewBookingBuilder().With(func(b *builder.BookingBuilder) {
		b.RoomID = roomID
		b.CheckIn = checkIn
		b.CheckOut = checkOut
		b.Quantity = quantity
		b.Status = booking.StatusConfirmed
		b.PaymentStatus = booking.PaymentPaid
	}).BuildDomain()
}

func heldBooking(roomID uuid.UUID, checkIn, checkOut time.Time, quantity int, expiresAt time.Time) (*booking.Booking, *booking.Reservation) {
	b := builder.NewBookingBuilder().With(func(b *builder.BookingBuilder) {
		b.RoomID = roomID
		b.CheckIn = checkIn
		b.CheckOut = checkOut
		b.Quantity = quantity
	}).BuildDomain()
	res := builder.NewReservationBuilder().ForBooking(b).With(func(r *builder.ReservationBuilder) {
		r.ExpiresAt = expiresAt
	}).BuildDomain()
	return b, res
}

func orphanLock(roomID uuid.UUID, date time.Time, quantity int, expiresAt time.Time) booking.AvailabilityLock {
	return booking.AvailabilityLock{
		ID:            uuid.New(),
		ReservationID: uuid.New(),
		RoomID:        roomID,
		Date:          date,
		Quantity:      quantity,
		IsActive:      true,
		ExpiresAt:     expiresAt,
	}
}

// =============================================================================
// GenerateLedger
// =============================================================================

func TestLedger_GenerateLedger(t *testing.T) {
	ctx := context.Background()

	t.Run("success: subtracts every hold once and honours overrides", func(t *testing.T) {
		l, store, cache := newLedger(t)
		r := builder.NewRoomBuilder().WithUnits(2).BuildDomain()
		store.AddRoom(r)
		units := 3
		override, err := room.NewOverride(r.ID(), d2, &units, nil)
		require.NoError(t, err)
		store.AddOverride(override)

		store.PutBooking(confirmedBooking(r.ID(), d1, d3, 1))
		b, res := heldBooking(r.ID(), d2, d4, 1, now.Add(10*time.Minute))
		store.PutBooking(b)
		store.PutReservation(res)
		// the hold's own shadow rows must not count a second time
		store.PutLocks(booking.NewAvailabilityLocks(res, b.Stay(), 1))
		store.PutLocks([]booking.AvailabilityLock{orphanLock(r.ID(), d3, 1, now.Add(5*time.Minute))})

		written, err := l.GenerateLedger(ctx, d1, d5)

		require.NoError(t, err)
		assert.Equal(t, 1, written)
		want := map[string]int{
			dates.Key(d1): 1,
			dates.Key(d2): 1,
			dates.Key(d3): 0,
			dates.Key(d4): 2,
		}
		if diff := cmp.Diff(want, cache.Record(r.ID())); diff != "" {
			t.Errorf("ledger mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("success: over-committed dates floor at zero", func(t *testing.T) {
		l, store, cache := newLedger(t)
		r := builder.NewRoomBuilder().WithUnits(1).BuildDomain()
		store.AddRoom(r)
		store.PutBooking(confirmedBooking(r.ID(), d1, d2, 1))
		store.PutBooking(confirmedBooking(r.ID(), d1, d2, 1))

		_, err := l.GenerateLedger(ctx, d1, d2)

		require.NoError(t, err)
		assert.Equal(t, 0, cache.Record(r.ID())[dates.Key(d1)])
	})

	t.Run("success: expired holds and released locks free their units", func(t *testing.T) {
		l, store, cache := newLedger(t)
		r := builder.NewRoomBuilder().WithUnits(2).BuildDomain()
		store.AddRoom(r)
		b, res := heldBooking(r.ID(), d1, d2, 2, now.Add(-time.Minute))
		store.PutBooking(b)
		store.PutReservation(res)
		store.PutLocks([]booking.AvailabilityLock{orphanLock(r.ID(), d1, 1, now.Add(-time.Second))})

		_, err := l.GenerateLedger(ctx, d1, d2)

		require.NoError(t, err)
		assert.Equal(t, 2, cache.Record(r.ID())[dates.Key(d1)])
	})

	t.Run("success: inactive rooms are written as closed", func(t *testing.T) {
		l, store, cache := newLedger(t)
		active := builder.NewRoomBuilder().BuildDomain()
		inactive := builder.NewRoomBuilder().AsInactive().BuildDomain()
		store.AddRoom(active)
		store.AddRoom(inactive)
		// left over from a run before the room was closed
		cache.Set(inactive.ID(), dates.Key(d1), 4)
		cache.Set(inactive.ID(), dates.Key(d2), 4)

		written, err := l.GenerateLedger(ctx, d1, d3)

		require.NoError(t, err)
		assert.Equal(t, 2, written)
		assert.Equal(t, map[string]int{dates.Key(d1): 0, dates.Key(d2): 0}, cache.Record(inactive.ID()))
		got, err := l.TryGetMinAvailable(ctx, []uuid.UUID{inactive.ID()}, d1, d3)
		require.NoError(t, err)
		assert.Equal(t, map[uuid.UUID]int{inactive.ID(): 0}, got)
	})

	t.Run("error: save failures are reported after the batch", func(t *testing.T) {
		l, store, cache := newLedger(t)
		store.AddRoom(builder.NewRoomBuilder().BuildDomain())
		store.AddRoom(builder.NewRoomBuilder().BuildDomain())
		cache.SaveErr = errs.Cache(errors.New("connection refused"))

		written, err := l.GenerateLedger(ctx, d1, d3)

		require.Error(t, err)
		assert.True(t, errs.Is(err, errs.ErrCacheUnavailable))
		assert.Equal(t, 0, written)
	})

	t.Run("error: relational failure stops generation", func(t *testing.T) {
		l, store, _ := newLedger(t)
		store.AddRoom(builder.NewRoomBuilder().BuildDomain())
		store.FailOn("Reads.Holds", errors.New("connection reset"))

		_, err := l.GenerateLedger(ctx, d1, d3)

		assert.True(t, errs.Is(err, errs.ErrPersistenceFailure))
	})
}

// =============================================================================
// WarmupRoom / TryGetMinAvailable
// =============================================================================

func TestLedger_WarmupRoom(t *testing.T) {
	ctx := context.Background()

	t.Run("success: warmup replaces a stale value before the next read", func(t *testing.T) {
		l, store, cache := newLedger(t)
		r := builder.NewRoomBuilder().WithUnits(2).BuildDomain()
		store.AddRoom(r)
		_, err := l.GenerateLedger(ctx, d1, d3)
		require.NoError(t, err)

		store.PutBooking(confirmedBooking(r.ID(), d2, d3, 2))
		stale, err := l.TryGetMinAvailable(ctx, []uuid.UUID{r.ID()}, d1, d3)
		require.NoError(t, err)
		require.Equal(t, 2, stale[r.ID()])

		require.NoError(t, l.WarmupRoom(ctx, r.ID(), d1, d3))
		fresh, err := l.TryGetMinAvailable(ctx, []uuid.UUID{r.ID()}, d1, d3)

		require.NoError(t, err)
		assert.Equal(t, 0, fresh[r.ID()])
		assert.Equal(t, 2, cache.Record(r.ID())[dates.Key(d1)])
	})

	t.Run("success: inactive room is warmed to zero", func(t *testing.T) {
		l, store, cache := newLedger(t)
		r := builder.NewRoomBuilder().AsInactive().BuildDomain()
		store.AddRoom(r)

		require.NoError(t, l.WarmupRoom(ctx, r.ID(), d1, d3))

		assert.Equal(t, map[string]int{dates.Key(d1): 0, dates.Key(d2): 0}, cache.Record(r.ID()))
	})

	t.Run("error: unknown room", func(t *testing.T) {
		l, _, _ := newLedger(t)

		err := l.WarmupRoom(ctx, uuid.New(), d1, d3)

		assert.True(t, errs.Is(err, errs.ErrNotFound))
	})
}

func TestLedger_TryGetMinAvailable(t *testing.T) {
	ctx := context.Background()
	l, store, cache := newLedger(t)
	full := builder.NewRoomBuilder().WithUnits(3).BuildDomain()
	partial := builder.NewRoomBuilder().WithUnits(3).BuildDomain()
	store.AddRoom(full)
	store.AddRoom(partial)
	cache.Set(full.ID(), dates.Key(d1), 3)
	cache.Set(full.ID(), dates.Key(d2), 1)
	cache.Set(partial.ID(), dates.Key(d1), 3)

	got, err := l.TryGetMinAvailable(ctx, []uuid.UUID{full.ID(), partial.ID()}, d1, d3)

	require.NoError(t, err)
	assert.Equal(t, map[uuid.UUID]int{full.ID(): 1}, got, "a room missing any date is unknown, not available")
}
