package commands

import (
	"context"
	"log/slog"
	"time"

	"roombook/internal/domain/booking"
	"roombook/internal/pkg/clock"
	"roombook/internal/usecase/shared"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// LedgerWarmer recomputes one room's cached availability.
type LedgerWarmer interface {
	WarmupRoom(ctx context.Context, roomID uuid.UUID, start, end time.Time) error
}

const (
	notifyKindEmail        = "email"
	topicBookingCreated    = "booking_created"
	topicBookingConfirmed  = "booking_confirmed"
	topicBookingCancelled  = "booking_cancelled"
	topicReservationExpire = "reservation_expired"
)

// sideEffects run after a commit. None of them can fail the operation that
// triggered them; failures are logged and left to the sweeper or the next
// ledger regeneration.
type sideEffects struct {
	uow         shared.UnitOfWork
	locker      shared.RangeLocker
	gateway     shared.PaymentGateway
	warmer      LedgerWarmer
	clock       clock.Clock
	horizonDays int
}

// releaseLock drops whatever cache keys the reservation's token still owns.
// It runs detached from ctx so a cancelled request still releases.
func (s *sideEffects) releaseLock(ctx context.Context, roomID uuid.UUID, stay booking.StayRange, token string) {
	if token == "" {
		return
	}
	ctx = context.WithoutCancel(ctx)
	n, err := s.locker.ReleaseRange(ctx, roomID, stay.CheckIn(), stay.CheckOut(), token)
	if err != nil {
		slog.Warn("range lock release failed, keys will expire by ttl",
			"room_id", roomID, "stay", stay.String(), "error", err)
		return
	}
	slog.Debug("range lock released", "room_id", roomID, "stay", stay.String(), "keys", n)
}

// warm refreshes the room from today over the ledger horizon, stretched to
// cover the stay.
func (s *sideEffects) warm(ctx context.Context, roomID uuid.UUID, stay booking.StayRange) {
	start := clock.Today(s.clock)
	if stay.CheckIn().Before(start) {
		start = stay.CheckIn()
	}
	end := start.AddDate(0, 0, s.horizonDays)
	if stay.CheckOut().After(end) {
		end = stay.CheckOut()
	}
	if err := s.warmer.WarmupRoom(context.WithoutCancel(ctx), roomID, start, end); err != nil {
		slog.Warn("ledger warmup failed", "room_id", roomID, "error", err)
	}
}

func (s *sideEffects) expireInvoice(ctx context.Context, invoiceID *string) {
	if invoiceID == nil || *invoiceID == "" {
		return
	}
	if err := s.gateway.ExpireInvoice(context.WithoutCancel(ctx), *invoiceID); err != nil {
		slog.Warn("invoice expiry failed", "invoice_id", *invoiceID, "error", err)
	}
}

// notify queues a notification job in its own transaction.
func (s *sideEffects) notify(ctx context.Context, topic string, b *booking.Booking) {
	payload, err := json.Marshal(map[string]any{
		"booking_id": b.ID(),
		"reference":  b.Reference().String(),
		"user_id":    b.UserID(),
		"status":     b.Status().String(),
		"type":       topic,
	})
	if err != nil {
		slog.Warn("notification payload failed", "booking_id", b.ID(), "error", err)
		return
	}
	err = s.uow.Within(context.WithoutCancel(ctx), func(ctx context.Context, tx shared.Tx) error {
		return tx.Notifications().CreateJob(ctx, notifyKindEmail, topic, payload, s.clock.Now())
	})
	if err != nil {
		slog.Warn("notification job failed", "booking_id", b.ID(), "topic", topic, "error", err)
	}
}
