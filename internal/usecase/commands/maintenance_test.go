//go:build unit

package commands_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"roombook/internal/domain/booking"
	"roombook/internal/pkg/dates"
	"roombook/internal/pkg/errs"
	"roombook/internal/usecase/commands"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// CleanupExpiredReservations
// =============================================================================

func TestMaintenanceUseCase_CleanupExpiredReservations(t *testing.T) {
	ctx := context.Background()

	t.Run("success: expires due holds and cancels their bookings", func(t *testing.T) {
		e := newTestEnv(t)
		r := e.addRoom(1)
		view := e.create(t, r.ID(), uuid.New(), 1)
		e.clock.Add(e.cfg.Booking.HoldTimeout)

		report, err := e.maintenance.CleanupExpiredReservations(ctx)

		require.NoError(t, err)
		assert.Equal(t, commands.SweepReport{Processed: 1}, report)
		b := e.booking(t, view.ID)
		assert.Equal(t, booking.StatusCancelled, b.Status())
		require.NotNil(t, b.CancelReason())
		assert.Equal(t, booking.ExpiredCancelReason, *b.CancelReason())
		res := e.reservation(t, view.ID)
		assert.Equal(t, booking.ReservationExpired, res.Status())
		for _, l := range e.store.LocksFor(res.ID()) {
			assert.False(t, l.IsActive)
			require.NotNil(t, l.ReleaseReason)
			assert.Equal(t, booking.ReleaseExpired, *l.ReleaseReason)
		}
		assert.Equal(t, []string{"inv_1"}, e.gateway.Expired)
		assert.Equal(t, 1, e.cache.Record(r.ID())[dates.Key(checkIn)])
		assert.Equal(t, 1, countOf(e.topics(), "reservation_expired"))
	})

	t.Run("success: holds before their deadline are left alone", func(t *testing.T) {
		e := newTestEnv(t)
		r := e.addRoom(1)
		view := e.create(t, r.ID(), uuid.New(), 1)
		e.clock.Add(e.cfg.Booking.HoldTimeout - time.Second)

		report, err := e.maintenance.CleanupExpiredReservations(ctx)

		require.NoError(t, err)
		assert.Zero(t, report)
		assert.Equal(t, booking.ReservationActive, e.reservation(t, view.ID).Status())
	})

	t.Run("success: a hold confirmed late is not swept", func(t *testing.T) {
		e := newTestEnv(t)
		r := e.addRoom(1)
		view := e.create(t, r.ID(), uuid.New(), 1)
		e.clock.Add(e.cfg.Booking.HoldTimeout + time.Minute)
		_, err := e.bookings.Confirm(ctx, view.ID, "manual")
		require.NoError(t, err)

		report, err := e.maintenance.CleanupExpiredReservations(ctx)

		require.NoError(t, err)
		assert.Zero(t, report.Processed)
		assert.Equal(t, booking.StatusConfirmed, e.booking(t, view.ID).Status())
	})

	t.Run("success: concurrent sweeps expire each hold exactly once", func(t *testing.T) {
		e := newTestEnv(t)
		r := e.addRoom(3)
		for i := 0; i < 3; i++ {
			e.create(t, r.ID(), uuid.New(), 1)
		}
		e.clock.Add(time.Hour)

		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			processed int
		)
		for i := 0; i < 4; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				report, err := e.maintenance.CleanupExpiredReservations(ctx)
				assert.NoError(t, err)
				mu.Lock()
				processed += report.Processed
				mu.Unlock()
			}()
		}
		wg.Wait()

		assert.Equal(t, 3, processed)
		assert.Equal(t, 3, countOf(e.topics(), "reservation_expired"))
		assert.Len(t, e.gateway.Expired, 3)
	})

	t.Run("success: one failing hold does not stop the batch", func(t *testing.T) {
		e := newTestEnv(t)
		r := e.addRoom(2)
		first := e.create(t, r.ID(), uuid.New(), 1)
		e.clock.Add(time.Minute)
		second := e.create(t, r.ID(), uuid.New(), 1)
		e.clock.Add(e.cfg.Booking.HoldTimeout)
		e.store.FailOn("Locks.ReleaseForReservation", errors.New("connection reset"))

		report, err := e.maintenance.CleanupExpiredReservations(ctx)

		require.NoError(t, err)
		assert.Equal(t, commands.SweepReport{Failed: 2}, report)
		assert.Equal(t, booking.StatusReserved, e.booking(t, first.ID).Status(), "failed expiry rolls back")

		e.store.FailOn("Locks.ReleaseForReservation", nil)
		report, err = e.maintenance.CleanupExpiredReservations(ctx)

		require.NoError(t, err)
		assert.Equal(t, 2, report.Processed)
		assert.Equal(t, booking.StatusCancelled, e.booking(t, second.ID).Status())
	})

	t.Run("error: listing due holds fails", func(t *testing.T) {
		e := newTestEnv(t)
		e.store.FailOn("Reservations.FindDue", errors.New("connection reset"))

		_, err := e.maintenance.CleanupExpiredReservations(ctx)

		assert.True(t, errs.Is(err, errs.ErrPersistenceFailure))
	})

	t.Run("error: cancelled context stops the batch", func(t *testing.T) {
		e := newTestEnv(t)
		r := e.addRoom(1)
		e.create(t, r.ID(), uuid.New(), 1)
		e.clock.Add(time.Hour)
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		_, err := e.maintenance.CleanupExpiredReservations(cctx)

		assert.ErrorIs(t, err, context.Canceled)
	})
}
