//go:build integration

package uow_test

import (
	"context"
	"testing"
	"time"

	"roombook/internal/domain/booking"
	"roombook/internal/domain/payment"
	"roombook/internal/infra/readstore"
	"roombook/internal/infra/uow"
	"roombook/internal/pkg/clock"
	"roombook/internal/pkg/config"
	"roombook/internal/pkg/errs"
	"roombook/internal/testutil/builder"
	"roombook/internal/testutil/fake"
	"roombook/internal/testutil/pgtest"
	"roombook/internal/usecase/commands"
	"roombook/internal/usecase/ledger"
	"roombook/internal/usecase/pricecache"
	"roombook/internal/usecase/queries"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	now      = time.Date(2026, 2, 20, 12, 0, 0, 0, time.UTC)
	checkIn  = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	checkOut = checkIn.AddDate(0, 0, 2)
)

type pgEnv struct {
	pool         *pgxpool.Pool
	clock        *clock.MockClock
	gateway      *fake.Gateway
	bookings     commands.BookingCommands
	payments     commands.PaymentCommands
	maintenance  commands.MaintenanceCommands
	bookingQ     queries.BookingQueries
	availability queries.AvailabilityQueries
}

func newPgEnv(t *testing.T) *pgEnv {
	t.Helper()
	pool := pgtest.NewPool(t)
	cfg := config.NewTestConfig()
	clk := clock.NewMockClock(now)
	u := uow.NewPostgresUoW(pool)
	gateway := fake.NewGateway()
	locker := fake.NewLocker(clk)
	l := ledger.NewLedger(u, fake.NewLedger(), clk)
	calc := booking.NewPriceCalculator(cfg.Booking.TaxRate, cfg.Booking.ServiceFeeRate)
	factory := booking.NewFactory(clk, calc, cfg.Booking.HoldTimeout, cfg.Booking.Currency)
	prices := pricecache.NewCache(u, fake.NewPriceRanges(), clk, cfg.Booking.PriceCacheValidity, cfg.Booking.PriceCacheWindowDays)
	minSource := ledger.NewResolver(ledger.NewCacheSource(l), ledger.NewRelationalSource(u, clk))

	return &pgEnv{
		pool:         pool,
		clock:        clk,
		gateway:      gateway,
		bookings:     commands.NewBookingUseCase(u, locker, gateway, l, factory, cfg.Booking, clk),
		payments:     commands.NewPaymentUseCase(u, locker, gateway, l, cfg.Booking, cfg.Worker, clk),
		maintenance:  commands.NewMaintenanceUseCase(u, locker, gateway, l, cfg.Booking, cfg.Worker, clk),
		bookingQ:     queries.NewBookingQueries(readstore.NewBookingReadStore(pool)),
		availability: queries.NewAvailabilityQueries(u, minSource, prices, calc, clk),
	}
}

func (e *pgEnv) addRoom(t *testing.T, units int) uuid.UUID {
	t.Helper()
	r := builder.NewRoomBuilder().WithUnits(units).BuildDomain()
	pgtest.InsertRoom(t, e.pool, r)
	return r.ID()
}

func stay(roomID uuid.UUID, quantity int) commands.CreateBooking {
	return commands.CreateBooking{RoomID: roomID, CheckIn: checkIn, CheckOut: checkOut, Quantity: quantity, Guests: 1}
}

func reservationID(t *testing.T, pool *pgxpool.Pool, bookingID uuid.UUID) uuid.UUID {
	t.Helper()
	var id uuid.UUID
	err := pool.QueryRow(context.Background(),
		`SELECT id FROM booking_reservations WHERE booking_id = $1`, bookingID).Scan(&id)
	require.NoError(t, err)
	return id
}

// =============================================================================
// Booking lifecycle against Postgres
// =============================================================================

func TestPostgres_BookingLifecycle(t *testing.T) {
	ctx := context.Background()

	t.Run("success: create persists booking, hold and one shadow row per night", func(t *testing.T) {
		e := newPgEnv(t)
		roomID := e.addRoom(t, 2)
		userID := uuid.New()

		view, err := e.bookings.Create(ctx, stay(roomID, 1), userID)
		require.NoError(t, err)

		got, err := e.bookingQ.GetByReference(ctx, userID, view.Reference)
		require.NoError(t, err)
		assert.Equal(t, view.ID, got.ID)
		assert.Equal(t, "reserved", got.Status)
		require.NotNil(t, got.HoldStatus)
		assert.Equal(t, "active", *got.HoldStatus)
		assert.Equal(t, 2, pgtest.CountActiveLocks(t, e.pool, reservationID(t, e.pool, view.ID)))

		avail, err := e.availability.CheckAvailability(ctx, roomID, checkIn, checkOut, 1)
		require.NoError(t, err)
		assert.Equal(t, 1, avail.MinAvailableUnits)
	})

	t.Run("error: the last unit cannot be sold twice", func(t *testing.T) {
		e := newPgEnv(t)
		roomID := e.addRoom(t, 1)

		_, err := e.bookings.Create(ctx, stay(roomID, 1), uuid.New())
		require.NoError(t, err)
		_, err = e.bookings.Create(ctx, stay(roomID, 1), uuid.New())

		require.Error(t, err)
		assert.True(t, errs.Is(err, errs.ErrUnavailable))
	})

	t.Run("success: paid event confirms once and frees the shadow rows", func(t *testing.T) {
		e := newPgEnv(t)
		roomID := e.addRoom(t, 1)
		view, err := e.bookings.Create(ctx, stay(roomID, 1), uuid.New())
		require.NoError(t, err)
		require.Len(t, e.gateway.Invoices, 1)

		event := payment.Event{
			ExternalID:            e.gateway.Invoices[0].ExternalID,
			ProviderTransactionID: "txn-1",
			Status:                payment.StatusPaid,
			AmountCents:           view.TotalCents,
		}
		result, err := e.payments.ProcessPaymentEvent(ctx, event)
		require.NoError(t, err)
		assert.True(t, result.Confirmed)

		_, err = e.payments.ProcessPaymentEvent(ctx, event)
		assert.True(t, errs.Is(err, commands.ErrDuplicatePaymentEvent))

		assert.Equal(t, 0, pgtest.CountActiveLocks(t, e.pool, reservationID(t, e.pool, view.ID)))
		avail, err := e.availability.CheckAvailability(ctx, roomID, checkIn, checkOut, 1)
		require.NoError(t, err)
		assert.Equal(t, 0, avail.MinAvailableUnits, "a confirmed booking still consumes its unit")
	})

	t.Run("success: pending then paid for one transaction confirms", func(t *testing.T) {
		e := newPgEnv(t)
		roomID := e.addRoom(t, 1)
		view, err := e.bookings.Create(ctx, stay(roomID, 1), uuid.New())
		require.NoError(t, err)
		require.Len(t, e.gateway.Invoices, 1)

		event := payment.Event{
			ExternalID:            e.gateway.Invoices[0].ExternalID,
			ProviderTransactionID: "inv_1",
			Status:                payment.StatusPending,
			AmountCents:           view.TotalCents,
		}
		_, err = e.payments.ProcessPaymentEvent(ctx, event)
		require.NoError(t, err)
		_, err = e.payments.ProcessPaymentEvent(ctx, event)
		require.NoError(t, err)

		event.Status = payment.StatusPaid
		result, err := e.payments.ProcessPaymentEvent(ctx, event)
		require.NoError(t, err)
		assert.True(t, result.Confirmed)

		_, err = e.payments.ProcessPaymentEvent(ctx, event)
		assert.True(t, errs.Is(err, commands.ErrDuplicatePaymentEvent))
	})

	t.Run("success: expiry sweep cancels the booking and returns the units", func(t *testing.T) {
		e := newPgEnv(t)
		roomID := e.addRoom(t, 1)
		userID := uuid.New()
		view, err := e.bookings.Create(ctx, stay(roomID, 1), userID)
		require.NoError(t, err)

		e.clock.Add(16 * time.Minute)
		report, err := e.maintenance.CleanupExpiredReservations(ctx)
		require.NoError(t, err)
		assert.Equal(t, commands.SweepReport{Processed: 1}, report)

		got, err := e.bookingQ.GetByReference(ctx, userID, view.Reference)
		require.NoError(t, err)
		assert.Equal(t, "cancelled", got.Status)
		assert.Equal(t, 0, pgtest.CountActiveLocks(t, e.pool, reservationID(t, e.pool, view.ID)))

		units, err := e.availability.GetMinAvailableUnits(ctx, []uuid.UUID{roomID}, checkIn, checkOut)
		require.NoError(t, err)
		assert.Equal(t, map[uuid.UUID]int{roomID: 1}, units)

		again, err := e.maintenance.CleanupExpiredReservations(ctx)
		require.NoError(t, err)
		assert.Equal(t, commands.SweepReport{}, again)
	})

	t.Run("success: list pages through a user's bookings newest first", func(t *testing.T) {
		e := newPgEnv(t)
		roomID := e.addRoom(t, 5)
		userID := uuid.New()
		var refs []string
		for range 3 {
			v, err := e.bookings.Create(ctx, stay(roomID, 1), userID)
			require.NoError(t, err)
			refs = append(refs, v.Reference)
			e.clock.Add(time.Second)
		}

		first, next, err := e.bookingQ.ListByUser(ctx, userID, nil, 2)
		require.NoError(t, err)
		require.Len(t, first, 2)
		require.NotNil(t, next)
		rest, last, err := e.bookingQ.ListByUser(ctx, userID, next, 2)
		require.NoError(t, err)
		require.Len(t, rest, 1)
		assert.Nil(t, last)

		assert.Equal(t, []string{refs[2], refs[1], refs[0]},
			[]string{first[0].Reference, first[1].Reference, rest[0].Reference})
	})
}
