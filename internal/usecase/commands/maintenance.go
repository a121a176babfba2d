package commands

import (
	"context"
	"log/slog"

	"roombook/internal/domain/booking"
	"roombook/internal/infra"
	"roombook/internal/pkg/clock"
	"roombook/internal/pkg/config"
	"roombook/internal/pkg/errs"
	"roombook/internal/usecase/shared"
)

// errSkipped marks a batch item that needed no work.
var errSkipped = errs.New("skipped")

type SweepReport struct {
	Processed int
	Skipped   int
	Failed    int
}

type MaintenanceCommands interface {
	CleanupExpiredReservations(ctx context.Context) (SweepReport, error)
}

type maintenanceUseCaseImpl struct {
	*sideEffects
	batchSize int
}

func NewMaintenanceUseCase(
	uow shared.UnitOfWork,
	locker shared.RangeLocker,
	gateway shared.PaymentGateway,
	warmer LedgerWarmer,
	bookingCfg config.BookingConfig,
	workerCfg config.WorkerConfig,
	clk clock.Clock,
) MaintenanceCommands {
	return &maintenanceUseCaseImpl{
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

// CleanupExpiredReservations expires every active hold whose deadline has
// passed and cancels its booking. Each reservation runs in its own
// transaction; a failure is counted and the batch carries on.
func (u *maintenanceUseCaseImpl) CleanupExpiredReservations(ctx context.Context) (SweepReport, error) {
	var (
		report SweepReport
		due    []*booking.Reservation
	)
	err := u.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		var err error
		due, err = tx.Reservations().FindDue(ctx, u.clock.Now(), u.batchSize)
		return err
	})
	if err != nil {
		return report, errs.Persistence(errs.Wrap(err, "list due reservations"))
	}

	for _, res := range due {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		switch err := u.expireOne(ctx, res); {
		case err == nil:
			report.Processed++
		case errs.Is(err, errSkipped):
			report.Skipped++
		default:
			report.Failed++
			slog.Error("reservation expiry failed", "reservation_id", res.ID(), "booking_id", res.BookingID(), "error", err)
		}
	}
	if len(due) > 0 {
		slog.Info("expired reservations swept",
			"due", len(due),
			"expired", report.Processed,
			"skipped", report.Skipped,
			"failed", report.Failed)
	}
	return report, nil
}

func (u *maintenanceUseCaseImpl) expireOne(ctx context.Context, due *booking.Reservation) error {
	var (
		b   *booking.Booking
		res *booking.Reservation
	)
	err := u.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		now := u.clock.Now()
		var err error
		res, err = findReservation(ctx, tx, due.BookingID())
		if err != nil {
			return err
		}
		if res == nil || res.ID() != due.ID() || !res.IsDue(now) {
			return errSkipped
		}
		if err := res.Expire(now); err != nil {
			return errSkipped
		}
		if err := tx.Reservations().Update(ctx, res, booking.ReservationActive); err != nil {
			if infra.IsKind(err, infra.KindStaleWrite) {
				return errSkipped
			}
			return errs.Persistence(errs.Wrap(err, "expire reservation"))
		}
		if _, err := tx.Locks().ReleaseForReservation(ctx, res.ID(), booking.ReleaseExpired, now); err != nil {
			return errs.Persistence(errs.Wrap(err, "release availability locks"))
		}

		b, err = tx.Bookings().FindByID(ctx, res.BookingID())
		if err != nil {
			return repoErr(err, ErrBookingNotFound, "load booking")
		}
		err = b.Cancel(booking.ExpiredCancelReason, now)
		if errs.Is(err, booking.ErrAlreadyCancelled) {
			return nil
		}
		if err != nil {
			return classify(err)
		}
		if err := tx.Bookings().Update(ctx, b); err != nil {
			return errs.Persistence(errs.Wrap(err, "cancel booking"))
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.Info("reservation expired", "reservation_id", res.ID(), "booking_id", res.BookingID())
	u.releaseLock(ctx, b.RoomID(), b.Stay(), res.LockToken())
	u.expireInvoice(ctx, res.PaymentRef())
	u.warm(ctx, b.RoomID(), b.Stay())
	u.notify(ctx, topicReservationExpire, b)
	return nil
}
