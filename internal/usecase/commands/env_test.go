//go:build unit

package commands_test

import (
	"context"
	"testing"
	"time"

	"roombook/internal/domain/booking"
	"roombook/internal/domain/room"
	"roombook/internal/pkg/clock"
	"roombook/internal/pkg/config"
	"roombook/internal/testutil/builder"
	"roombook/internal/testutil/fake"
	"roombook/internal/usecase/commands"
	"roombook/internal/usecase/ledger"
	"roombook/internal/usecase/queries"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

var (
	now      = time.Date(2026, 2, 20, 12, 0, 0, 0, time.UTC)
	checkIn  = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	checkOut = checkIn.AddDate(0, 0, 2)
)

type testEnv struct {
	store       *fake.Store
	locker      *fake.Locker
	gateway     *fake.Gateway
	cache       *fake.Ledger
	clock       *clock.MockClock
	cfg         config.Config
	bookings    commands.BookingCommands
	payments    commands.PaymentCommands
	maintenance commands.MaintenanceCommands
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cfg := config.NewTestConfig()
	clk := clock.NewMockClock(now)
	store := fake.NewStore()
	locker := fake.NewLocker(clk)
	gateway := fake.NewGateway()
	cache := fake.NewLedger()
	warmer := ledger.NewLedger(store, cache, clk)
	factory := booking.NewFactory(clk, booking.NewPriceCalculator(cfg.Booking.TaxRate, cfg.Booking.ServiceFeeRate), cfg.Booking.HoldTimeout, cfg.Booking.Currency)

	return &testEnv{
		store:       store,
		locker:      locker,
		gateway:     gateway,
		cache:       cache,
		clock:       clk,
		cfg:         cfg,
		bookings:    commands.NewBookingUseCase(store, locker, gateway, warmer, factory, cfg.Booking, clk),
		payments:    commands.NewPaymentUseCase(store, locker, gateway, warmer, cfg.Booking, cfg.Worker, clk),
		maintenance: commands.NewMaintenanceUseCase(store, locker, gateway, warmer, cfg.Booking, cfg.Worker, clk),
	}
}

func (e *testEnv) addRoom(units int) *room.Room {
	r := builder.NewRoomBuilder().WithUnits(units).BuildDomain()
	e.store.AddRoom(r)
	return r
}

func stayCmd(roomID uuid.UUID, quantity int) commands.CreateBooking {
	return commands.CreateBooking{
		RoomID:   roomID,
		CheckIn:  checkIn,
		CheckOut: checkOut,
		Quantity: quantity,
		Guests:   1,
	}
}

func (e *testEnv) create(t *testing.T, roomID, userID uuid.UUID, quantity int) *queries.BookingView {
	t.Helper()
	view, err := e.bookings.Create(context.Background(), stayCmd(roomID, quantity), userID)
	require.NoError(t, err)
	return view
}

func (e *testEnv) reservation(t *testing.T, bookingID uuid.UUID) *booking.Reservation {
	t.Helper()
	res, ok := e.store.ReservationFor(bookingID)
	require.True(t, ok)
	return res
}

func (e *testEnv) booking(t *testing.T, bookingID uuid.UUID) *booking.Booking {
	t.Helper()
	b, ok := e.store.Booking(bookingID)
	require.True(t, ok)
	return b
}

func (e *testEnv) topics() []string {
	var out []string
	for _, n := range e.store.Notifications() {
		out = append(out, n.Topic)
	}
	return out
}

func countOf(items []string, want string) int {
	n := 0
	for _, s := range items {
		if s == want {
			n++
		}
	}
	return n
}
