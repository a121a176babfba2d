package commands

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"roombook/internal/domain/availability"
	"roombook/internal/domain/booking"
	"roombook/internal/domain/room"
	"roombook/internal/infra"
	"roombook/internal/pkg/clock"
	"roombook/internal/pkg/config"
	"roombook/internal/pkg/errs"
	"roombook/internal/usecase/ledger"
	"roombook/internal/usecase/queries"
	"roombook/internal/usecase/shared"

	"github.com/google/uuid"
)

const defaultCancelReason = "Cancelled by guest"

type CreateBooking struct {
	RoomID   uuid.UUID
	CheckIn  time.Time
	CheckOut time.Time
	Quantity int
	Guests   int
}

type BookingCommands interface {
	Create(ctx context.Context, cmd CreateBooking, userID uuid.UUID) (*queries.BookingView, error)
	Confirm(ctx context.Context, bookingID uuid.UUID, paymentRef string) (*queries.BookingView, error)
	Cancel(ctx context.Context, bookingID uuid.UUID, reason string, userID uuid.UUID) (*queries.BookingView, error)
	Extend(ctx context.Context, bookingID, userID uuid.UUID, minutes int) (*queries.BookingView, error)
	CheckIn(ctx context.Context, bookingID uuid.UUID) (*queries.BookingView, error)
	CheckOut(ctx context.Context, bookingID uuid.UUID) (*queries.BookingView, error)
}

type bookingUseCaseImpl struct {
	*sideEffects
	factory *booking.Factory
	cfg     config.BookingConfig
}

func NewBookingUseCase(
	uow shared.UnitOfWork,
	locker shared.RangeLocker,
	gateway shared.PaymentGateway,
	warmer LedgerWarmer,
	factory *booking.Factory,
	cfg config.BookingConfig,
	clk clock.Clock,
) BookingCommands {
	return &bookingUseCaseImpl{
		sideEffects: &sideEffects{
			uow:         uow,
			locker:      locker,
			gateway:     gateway,
			warmer:      warmer,
			clock:       clk,
			horizonDays: cfg.LedgerHorizonDays,
		},
		factory: factory,
		cfg:     cfg,
	}
}

// Create holds the stay's dates under the range lock, re-checks live
// availability and writes the reserved booking, its hold and the shadow
// lock rows in one transaction. The range lock is always released on return;
// from then on the hold is carried by the reservation and the shadow rows.
func (u *bookingUseCaseImpl) Create(ctx context.Context, cmd CreateBooking, userID uuid.UUID) (*queries.BookingView, error) {
	now := u.clock.Now()
	stay, err := booking.NewStayRange(cmd.CheckIn, cmd.CheckOut)
	if err != nil {
		return nil, errs.Validation(err)
	}
	if err := stay.ValidateAt(now); err != nil {
		return nil, errs.Validation(err)
	}
	if cmd.Quantity < 1 {
		return nil, errs.Validation(booking.ErrInvalidQuantity)
	}
	if cmd.Guests < 1 {
		return nil, errs.Validation(booking.ErrInvalidGuests)
	}

	r, err := u.uow.Reads().RoomByID(ctx, cmd.RoomID)
	if err != nil {
		return nil, repoErr(err, ErrRoomNotFound, "load room")
	}
	if err := r.CheckBookable(cmd.Guests); err != nil {
		return nil, classify(err)
	}

	token, ok, err := u.locker.AcquireRange(ctx, r.ID(), stay.CheckIn(), stay.CheckOut(), u.cfg.HoldTimeout)
	if err != nil {
		slog.Warn("range lock unavailable, rejecting booking", "room_id", r.ID(), "stay", stay.String(), "error", err)
		return nil, errs.Conflict(errs.Mark(errs.Wrap(err, "acquire range lock"), ErrRangeLocked))
	}
	if !ok {
		return nil, errs.Conflict(ErrRangeLocked)
	}
	defer u.releaseLock(ctx, r.ID(), stay, token)

	var draft *booking.Draft
	err = u.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		reads := tx.Reads()
		if err := ensureUnits(ctx, reads, r.ID(), stay, cmd.Quantity, u.clock.Now()); err != nil {
			return err
		}
		pricer, err := loadPricer(ctx, reads, r, stay)
		if err != nil {
			return err
		}

		draft, err = u.factory.CreateDraft(r, pricer, userID, stay, cmd.Quantity, cmd.Guests, token)
		if err != nil {
			return classify(err)
		}
		if err := tx.Bookings().Create(ctx, draft.Booking); err != nil {
			return errs.Persistence(errs.Wrap(err, "insert booking"))
		}
		if err := tx.Reservations().Create(ctx, draft.Reservation); err != nil {
			return errs.Persistence(errs.Wrap(err, "insert reservation"))
		}
		if err := tx.Locks().CreateMany(ctx, draft.Locks); err != nil {
			return errs.Persistence(errs.Wrap(err, "insert availability locks"))
		}
		return nil
	})
	if err != nil {
		return nil, txErr(err, "create booking")
	}

	// Without an invoice the booking stands with no payment link;
	// reconciliation and Extend can issue one later.
	u.attachInvoice(ctx, r, draft.Booking, draft.Reservation)

	slog.Info("booking reserved",
		"booking_id", draft.Booking.ID(),
		"reference", draft.Booking.Reference().String(),
		"room_id", r.ID(),
		"stay", stay.String(),
		"quantity", cmd.Quantity,
		"expires_at", draft.Reservation.ExpiresAt())

	u.notify(ctx, topicBookingCreated, draft.Booking)
	u.warm(ctx, r.ID(), stay)
	return queries.NewBookingView(draft.Booking, draft.Reservation), nil
}

// attachInvoice issues the payment link for a committed hold and records it
// in a follow-up transaction. An invoice that cannot be recorded is expired
// so nothing payable is left behind for a hold that does not reference it.
func (u *bookingUseCaseImpl) attachInvoice(ctx context.Context, r *room.Room, b *booking.Booking, res *booking.Reservation) {
	now := u.clock.Now()
	externalID := booking.ExternalID(b.Reference(), now)
	inv, err := u.gateway.CreateInvoice(ctx, shared.InvoiceRequest{
		ExternalID:  externalID,
		AmountCents: b.Total().Cents(),
		Currency:    b.Currency(),
		Description: invoiceDescription(r, b),
		ExpiresAt:   res.ExpiresAt(),
	})
	if err != nil {
		slog.Warn("payment invoice not issued", "booking_id", b.ID(), "error", err)
		return
	}

	var attached *booking.Reservation
	err = u.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		stored, err := findReservation(ctx, tx, b.ID())
		if err != nil {
			return err
		}
		if stored == nil || stored.ID() != res.ID() {
			return errs.NotFound(ErrReservationNotFound)
		}
		stored.AttachInvoice(inv.ID, inv.URL, externalID, now)
		if err := updateReservation(ctx, tx, stored, booking.ReservationActive); err != nil {
			return err
		}
		attached = stored
		return nil
	})
	if err != nil {
		slog.Warn("payment invoice not recorded, expiring it",
			"booking_id", b.ID(), "invoice_id", inv.ID, "error", err)
		u.expireInvoice(ctx, &inv.ID)
		return
	}
	*res = *attached
}

// Confirm is legal only from reserved. Confirming twice returns
// booking.ErrAlreadyConfirmed marked as an invalid transition.
func (u *bookingUseCaseImpl) Confirm(ctx context.Context, bookingID uuid.UUID, paymentRef string) (*queries.BookingView, error) {
	var (
		b   *booking.Booking
		res *booking.Reservation
	)
	err := u.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		var err error
		b, res, err = confirmInTx(ctx, tx, bookingID, u.clock.Now())
		return err
	})
	if err != nil {
		return nil, txErr(err, "confirm booking")
	}

	slog.Info("booking confirmed", "booking_id", b.ID(), "payment_ref", paymentRef)
	u.afterConfirm(ctx, b, res)
	return queries.NewBookingView(b, res), nil
}

func (s *sideEffects) afterConfirm(ctx context.Context, b *booking.Booking, res *booking.Reservation) {
	if res != nil {
		s.releaseLock(ctx, b.RoomID(), b.Stay(), res.LockToken())
	}
	s.warm(ctx, b.RoomID(), b.Stay())
	s.notify(ctx, topicBookingConfirmed, b)
}

// confirmInTx moves the booking to confirmed/paid, closes its hold and
// releases the shadow rows.
func confirmInTx(ctx context.Context, tx shared.Tx, bookingID uuid.UUID, now time.Time) (*booking.Booking, *booking.Reservation, error) {
	b, err := tx.Bookings().FindByID(ctx, bookingID)
	if err != nil {
		return nil, nil, repoErr(err, ErrBookingNotFound, "load booking")
	}
	if err := b.Confirm(now); err != nil {
		return nil, nil, classify(err)
	}

	res, err := findReservation(ctx, tx, bookingID)
	if err != nil {
		return nil, nil, err
	}
	if res != nil {
		if err := res.Confirm(now); err != nil {
			return nil, nil, classify(err)
		}
		if err := updateReservation(ctx, tx, res, booking.ReservationActive); err != nil {
			return nil, nil, err
		}
		if _, err := tx.Locks().ReleaseForReservation(ctx, res.ID(), booking.ReleaseConfirmed, now); err != nil {
			return nil, nil, errs.Persistence(errs.Wrap(err, "release availability locks"))
		}
	}
	if err := tx.Bookings().Update(ctx, b); err != nil {
		return nil, nil, errs.Persistence(errs.Wrap(err, "update booking"))
	}
	return b, res, nil
}

// Cancel requires ownership. A paid booking is refunded after commit; the
// payment status moves to refunded only once the gateway accepts.
func (u *bookingUseCaseImpl) Cancel(ctx context.Context, bookingID uuid.UUID, reason string, userID uuid.UUID) (*queries.BookingView, error) {
	if reason == "" {
		reason = defaultCancelReason
	}
	var (
		b         *booking.Booking
		res       *booking.Reservation
		wasActive bool
		paid      *paymentRef
	)
	err := u.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		now := u.clock.Now()
		var err error
		b, err = tx.Bookings().FindByID(ctx, bookingID)
		if err != nil {
			return repoErr(err, ErrBookingNotFound, "load booking")
		}
		if err := b.CheckOwner(userID); err != nil {
			return classify(err)
		}
		if err := b.Cancel(reason, now); err != nil {
			return classify(err)
		}

		res, err = findReservation(ctx, tx, bookingID)
		if err != nil {
			return err
		}
		wasActive = res != nil && res.Status() == booking.ReservationActive
		if wasActive {
			if err := res.Cancel(now); err != nil {
				return classify(err)
			}
			if err := updateReservation(ctx, tx, res, booking.ReservationActive); err != nil {
				return err
			}
		}
		if res != nil {
			if _, err := tx.Locks().ReleaseForReservation(ctx, res.ID(), booking.ReleaseCancelled, now); err != nil {
				return errs.Persistence(errs.Wrap(err, "release availability locks"))
			}
		}

		if b.IsRefundable() {
			p, err := tx.Payments().FindPaidByBooking(ctx, b.ID())
			switch {
			case err == nil:
				paid = &paymentRef{id: p.ProviderTransactionID(), amountCents: p.AmountCents()}
			case !infra.IsKind(err, infra.KindNotFound):
				return errs.Persistence(errs.Wrap(err, "load payment"))
			}
		}
		if err := tx.Bookings().Update(ctx, b); err != nil {
			return errs.Persistence(errs.Wrap(err, "update booking"))
		}
		return nil
	})
	if err != nil {
		return nil, txErr(err, "cancel booking")
	}

	slog.Info("booking cancelled", "booking_id", b.ID(), "reason", reason)
	if res != nil {
		u.releaseLock(ctx, b.RoomID(), b.Stay(), res.LockToken())
		if wasActive {
			u.expireInvoice(ctx, res.PaymentRef())
		}
	}
	if paid != nil {
		u.refund(ctx, b, *paid, reason)
	}
	u.warm(ctx, b.RoomID(), b.Stay())
	u.notify(ctx, topicBookingCancelled, b)
	return queries.NewBookingView(b, res), nil
}

type paymentRef struct {
	id          string
	amountCents int64
}

func (u *bookingUseCaseImpl) refund(ctx context.Context, b *booking.Booking, p paymentRef, reason string) {
	ctx = context.WithoutCancel(ctx)
	refund, err := u.gateway.CreateRefund(ctx, shared.RefundRequest{
		PaymentID:   p.id,
		AmountCents: p.amountCents,
		Reason:      reason,
	})
	if err != nil {
		slog.Warn("refund request failed", "booking_id", b.ID(), "payment_id", p.id, "error", err)
		return
	}

	err = u.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		stored, err := tx.Bookings().FindByID(ctx, b.ID())
		if err != nil {
			return err
		}
		if err := stored.ChangePaymentStatus(booking.PaymentRefunded, u.clock.Now()); err != nil {
			return err
		}
		if err := tx.Bookings().Update(ctx, stored); err != nil {
			return err
		}
		*b = *stored
		return nil
	})
	if err != nil {
		slog.Warn("refund accepted but payment status not updated",
			"booking_id", b.ID(), "refund_id", refund.ID, "error", err)
		return
	}
	slog.Info("booking refunded", "booking_id", b.ID(), "refund_id", refund.ID, "status", refund.Status)
}

// Extend pushes the hold by minutes. The fresh invoice is issued before the
// transaction and expired again if the extension does not commit; the old
// one is expired only after it does. The shadow rows and lock TTL follow the
// reservation.
func (u *bookingUseCaseImpl) Extend(ctx context.Context, bookingID, userID uuid.UUID, minutes int) (*queries.BookingView, error) {
	now := u.clock.Now()
	var (
		b   *booking.Booking
		res *booking.Reservation
	)
	err := u.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		var err error
		b, res, err = loadHold(ctx, tx, bookingID, userID)
		return err
	})
	if err != nil {
		return nil, txErr(err, "extend reservation")
	}
	expiresAt, err := res.Extend(now, minutes, u.cfg.MaxExtensions, u.cfg.MaxExtensionMinutes)
	if err != nil {
		return nil, classify(err)
	}

	externalID := booking.ExternalID(b.Reference(), now)
	inv, err := u.gateway.CreateInvoice(ctx, shared.InvoiceRequest{
		ExternalID:  externalID,
		AmountCents: b.Total().Cents(),
		Currency:    b.Currency(),
		Description: fmt.Sprintf("Booking %s (extended)", b.Reference()),
		ExpiresAt:   expiresAt,
	})
	if err != nil {
		return nil, errs.Gateway(errs.Mark(errs.Wrap(err, "issue extended invoice"), ErrInvoiceFailed))
	}

	var oldInvoice *string
	err = u.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		var err error
		b, res, err = loadHold(ctx, tx, bookingID, userID)
		if err != nil {
			return err
		}
		oldInvoice = res.PaymentRef()

		got, err := res.Extend(now, minutes, u.cfg.MaxExtensions, u.cfg.MaxExtensionMinutes)
		if err != nil {
			return classify(err)
		}
		if !got.Equal(expiresAt) {
			return errs.InvalidTransition(errs.Wrap(booking.ErrReservationNotActive, "reservation changed concurrently"))
		}
		res.AttachInvoice(inv.ID, inv.URL, externalID, now)

		if err := updateReservation(ctx, tx, res, booking.ReservationActive); err != nil {
			return err
		}
		if _, err := tx.Locks().ExtendForReservation(ctx, res.ID(), expiresAt); err != nil {
			return errs.Persistence(errs.Wrap(err, "extend availability locks"))
		}
		return nil
	})
	if err != nil {
		u.expireInvoice(ctx, &inv.ID)
		return nil, txErr(err, "extend reservation")
	}

	u.expireInvoice(ctx, oldInvoice)
	extended, err := u.locker.ExtendRange(ctx, b.RoomID(), b.Stay().CheckIn(), b.Stay().CheckOut(), res.LockToken(), res.TTL(u.clock.Now()))
	if err != nil {
		slog.Warn("range lock extension failed", "booking_id", b.ID(), "error", err)
	} else if !extended {
		slog.Debug("range lock no longer held, hold carried by reservation", "booking_id", b.ID())
	}

	slog.Info("reservation extended",
		"booking_id", b.ID(),
		"expires_at", res.ExpiresAt(),
		"extensions", res.ExtensionCount())
	return queries.NewBookingView(b, res), nil
}

// loadHold loads a booking owned by userID together with its reservation.
func loadHold(ctx context.Context, tx shared.Tx, bookingID, userID uuid.UUID) (*booking.Booking, *booking.Reservation, error) {
	b, err := tx.Bookings().FindByID(ctx, bookingID)
	if err != nil {
		return nil, nil, repoErr(err, ErrBookingNotFound, "load booking")
	}
	if err := b.CheckOwner(userID); err != nil {
		return nil, nil, classify(err)
	}
	res, err := findReservation(ctx, tx, bookingID)
	if err != nil {
		return nil, nil, err
	}
	if res == nil {
		return nil, nil, errs.NotFound(ErrReservationNotFound)
	}
	return b, res, nil
}

func (u *bookingUseCaseImpl) CheckIn(ctx context.Context, bookingID uuid.UUID) (*queries.BookingView, error) {
	return u.stayTransition(ctx, bookingID, (*booking.Booking).CheckInGuest)
}

func (u *bookingUseCaseImpl) CheckOut(ctx context.Context, bookingID uuid.UUID) (*queries.BookingView, error) {
	return u.stayTransition(ctx, bookingID, (*booking.Booking).CheckOutGuest)
}

func (u *bookingUseCaseImpl) stayTransition(
	ctx context.Context,
	bookingID uuid.UUID,
	apply func(*booking.Booking, time.Time) error,
) (*queries.BookingView, error) {
	var b *booking.Booking
	err := u.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		var err error
		b, err = tx.Bookings().FindByID(ctx, bookingID)
		if err != nil {
			return repoErr(err, ErrBookingNotFound, "load booking")
		}
		if err := apply(b, u.clock.Now()); err != nil {
			return classify(err)
		}
		if err := tx.Bookings().Update(ctx, b); err != nil {
			return errs.Persistence(errs.Wrap(err, "update booking"))
		}
		return nil
	})
	if err != nil {
		return nil, txErr(err, "update stay status")
	}
	slog.Info("booking stay status changed", "booking_id", b.ID(), "status", b.Status().String())
	u.warm(ctx, b.RoomID(), b.Stay())
	return queries.NewBookingView(b, nil), nil
}

// ensureUnits recomputes the stay's worst night from the relational store.
func ensureUnits(ctx context.Context, reads shared.Reads, roomID uuid.UUID, stay booking.StayRange, quantity int, now time.Time) error {
	perRoom, err := ledger.Compute(ctx, reads, []uuid.UUID{roomID}, stay.CheckIn(), stay.CheckOut(), now)
	if err != nil {
		return err
	}
	free, ok := availability.MinOver(perRoom[roomID], stay.Keys())
	if !ok || free < quantity {
		return errs.Unavailable(errs.Wrapf(ErrInsufficientUnits, "%d requested, %d free", quantity, free))
	}
	return nil
}

func loadPricer(ctx context.Context, reads shared.Reads, r *room.Room, stay booking.StayRange) (*room.NightlyPricer, error) {
	ids := []uuid.UUID{r.ID()}
	rules, err := reads.PricingRules(ctx, ids)
	if err != nil {
		return nil, errs.Persistence(errs.Wrap(err, "load pricing rules"))
	}
	overrides, err := reads.Overrides(ctx, ids, stay.CheckIn(), stay.CheckOut())
	if err != nil {
		return nil, errs.Persistence(errs.Wrap(err, "load overrides"))
	}
	return room.NewNightlyPricer(r.DefaultPriceCents(), rules, overrides), nil
}

// findReservation returns nil without error when the booking has no hold.
func findReservation(ctx context.Context, tx shared.Tx, bookingID uuid.UUID) (*booking.Reservation, error) {
	res, err := tx.Reservations().FindByBookingID(ctx, bookingID)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, nil
		}
		return nil, errs.Persistence(errs.Wrap(err, "load reservation"))
	}
	return res, nil
}

// updateReservation reports a lost compare-and-set as the hold having
// left the expected state under us.
func updateReservation(ctx context.Context, tx shared.Tx, res *booking.Reservation, expected booking.ReservationStatus) error {
	err := tx.Reservations().Update(ctx, res, expected)
	if err == nil {
		return nil
	}
	if infra.IsKind(err, infra.KindStaleWrite) {
		return errs.InvalidTransition(errs.Wrap(booking.ErrReservationNotActive, "reservation changed concurrently"))
	}
	return errs.Persistence(errs.Wrap(err, "update reservation"))
}

func invoiceDescription(r *room.Room, b *booking.Booking) string {
	return fmt.Sprintf("Booking %s: %s, %s, %d unit(s)", b.Reference(), r.Name(), b.Stay().String(), b.Quantity())
}
