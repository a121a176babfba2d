package commands

import (
	"context"
	"log/slog"

	"roombook/internal/domain/booking"
	"roombook/internal/domain/payment"
	"roombook/internal/pkg/clock"
	"roombook/internal/pkg/config"
	"roombook/internal/pkg/errs"
	"roombook/internal/usecase/shared"

	"github.com/google/uuid"
)

type PaymentEventResult struct {
	BookingID uuid.UUID
	Status    payment.Status
	Confirmed bool
}

type PaymentCommands interface {
	// ProcessPaymentEvent records every event. A paid event for an (external
	// id, provider transaction id) that is already paid returns
	// ErrDuplicatePaymentEvent and changes nothing.
	ProcessPaymentEvent(ctx context.Context, e payment.Event) (*PaymentEventResult, error)
	SynchronizePaymentStatus(ctx context.Context) (SweepReport, error)
}

type paymentUseCaseImpl struct {
	*sideEffects
	batchSize int
}

func NewPaymentUseCase(
	uow shared.UnitOfWork,
	locker shared.RangeLocker,
	gateway shared.PaymentGateway,
	warmer LedgerWarmer,
	bookingCfg config.BookingConfig,
	workerCfg config.WorkerConfig,
	clk clock.Clock,
) PaymentCommands {
	return &paymentUseCaseImpl{
		sideEffects: &sideEffects{
			uow:         uow,
			locker:      locker,
			gateway:     gateway,
			warmer:      warmer,
			clock:       clk,
			horizonDays: bookingCfg.LedgerHorizonDays,
		},
		batchSize: workerCfg.BatchSize,
	}
}

func (u *paymentUseCaseImpl) ProcessPaymentEvent(ctx context.Context, e payment.Event) (*PaymentEventResult, error) {
	if err := e.Validate(); err != nil {
		return nil, classify(err)
	}
	ref, err := booking.ParseExternalID(e.ExternalID)
	if err != nil {
		return nil, classify(err)
	}

	var (
		b         *booking.Booking
		res       *booking.Reservation
		confirmed bool
	)
	err = u.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		now := u.clock.Now()
		var err error
		b, err = tx.Bookings().FindByReference(ctx, ref)
		if err != nil {
			return repoErr(err, ErrBookingNotFound, "load booking")
		}

		inserted, err := tx.Payments().Insert(ctx, payment.NewPayment(b.ID(), e, now))
		if err != nil {
			return errs.Persistence(errs.Wrap(err, "insert payment"))
		}
		if !inserted {
			return ErrDuplicatePaymentEvent
		}

		switch e.Status {
		case payment.StatusPaid:
			cb, cres, err := confirmInTx(ctx, tx, b.ID(), now)
			if errs.Is(err, errs.ErrInvalidStateTransition) {
				// The money is recorded either way; a late payment for a
				// cancelled booking is settled by hand.
				slog.Warn("paid event for a booking that cannot be confirmed",
					"booking_id", b.ID(), "status", b.Status().String(), "error", err)
				return nil
			}
			if err != nil {
				return err
			}
			b, res, confirmed = cb, cres, true
		case payment.StatusFailed:
			if err := b.ChangePaymentStatus(booking.PaymentFailed, now); err != nil {
				slog.Warn("failed event ignored", "booking_id", b.ID(), "payment_status", b.PaymentStatus().String())
				return nil
			}
			if err := tx.Bookings().Update(ctx, b); err != nil {
				return errs.Persistence(errs.Wrap(err, "update booking"))
			}
		}
		return nil
	})
	if errs.Is(err, ErrDuplicatePaymentEvent) {
		slog.Info("duplicate payment event", "external_id", e.ExternalID, "transaction_id", e.ProviderTransactionID)
		return nil, err
	}
	if err != nil {
		return nil, txErr(err, "process payment event")
	}

	slog.Info("payment event processed",
		"booking_id", b.ID(),
		"external_id", e.ExternalID,
		"status", string(e.Status),
		"confirmed", confirmed)
	if confirmed {
		u.afterConfirm(ctx, b, res)
	}
	return &PaymentEventResult{BookingID: b.ID(), Status: e.Status, Confirmed: confirmed}, nil
}

// SynchronizePaymentStatus asks the gateway about every live hold that has an
// invoice and ingests settled or failed ones as payment events. Expired
// invoices are left to the expiry sweep.
func (u *paymentUseCaseImpl) SynchronizePaymentStatus(ctx context.Context) (SweepReport, error) {
	var (
		report  SweepReport
		pending []*booking.Reservation
	)
	err := u.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		var err error
		pending, err = tx.Reservations().FindAwaitingPayment(ctx, u.clock.Now(), u.batchSize)
		return err
	})
	if err != nil {
		return report, errs.Persistence(errs.Wrap(err, "list reservations awaiting payment"))
	}

	for _, res := range pending {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		switch err := u.syncOne(ctx, res); {
		case err == nil:
			report.Processed++
		case errs.Is(err, errSkipped), errs.Is(err, ErrDuplicatePaymentEvent):
			report.Skipped++
		default:
			report.Failed++
			slog.Warn("payment sync failed", "reservation_id", res.ID(), "error", err)
		}
	}
	if len(pending) > 0 {
		slog.Info("payment status synchronized",
			"checked", len(pending),
			"processed", report.Processed,
			"skipped", report.Skipped,
			"failed", report.Failed)
	}
	return report, nil
}

func (u *paymentUseCaseImpl) syncOne(ctx context.Context, res *booking.Reservation) error {
	invoiceID := res.PaymentRef()
	if invoiceID == nil {
		return errSkipped
	}
	st, err := u.gateway.GetStatus(ctx, *invoiceID)
	if err != nil {
		return err
	}
	status, err := payment.ParseStatus(st.Status)
	if err != nil {
		return errs.Wrapf(err, "invoice %s", *invoiceID)
	}
	switch status {
	case payment.StatusPaid:
	case payment.StatusFailed:
		// failed events are not deduplicated, so only ingest a new failure
		applied, err := u.failureApplied(ctx, res.BookingID())
		if err != nil {
			return err
		}
		if applied {
			return errSkipped
		}
	default:
		return errSkipped
	}

	e := payment.Event{
		ExternalID:            st.ExternalID,
		ProviderTransactionID: st.ProviderTransactionID,
		Status:                status,
		AmountCents:           st.AmountCents,
		Method:                payment.MapMethod(st.PaymentMethod, st.PaymentChannel),
		PaidAt:                st.PaidAt,
	}
	if e.ExternalID == "" && res.ExternalID() != nil {
		e.ExternalID = *res.ExternalID()
	}
	if e.ProviderTransactionID == "" {
		e.ProviderTransactionID = st.ID
	}
	_, err = u.ProcessPaymentEvent(ctx, e)
	return err
}

func (u *paymentUseCaseImpl) failureApplied(ctx context.Context, bookingID uuid.UUID) (bool, error) {
	var applied bool
	err := u.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		b, err := tx.Bookings().FindByID(ctx, bookingID)
		if err != nil {
			return repoErr(err, ErrBookingNotFound, "load booking")
		}
		applied = b.PaymentStatus() == booking.PaymentFailed
		return nil
	})
	return applied, err
}
