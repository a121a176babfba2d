package commands

import (
	"roombook/internal/domain/booking"
	"roombook/internal/domain/payment"
	"roombook/internal/domain/room"
	"roombook/internal/infra"
	"roombook/internal/pkg/errs"
)

var (
	ErrRoomNotFound          = errs.New("room not found")
	ErrBookingNotFound       = errs.New("booking not found")
	ErrReservationNotFound   = errs.New("reservation not found")
	ErrRangeLocked           = errs.New("another booking for these dates is in progress")
	ErrInsufficientUnits     = errs.New("not enough units available for the stay")
	ErrDuplicatePaymentEvent = errs.New("payment event already processed")
	ErrInvoiceFailed         = errs.New("payment invoice could not be issued")
)

var (
	validationErrors = []error{
		booking.ErrInvalidStayRange,
		booking.ErrCheckInInPast,
		booking.ErrInvalidQuantity,
		booking.ErrInvalidGuests,
		booking.ErrInvalidExtension,
		booking.ErrInvalidReference,
		booking.ErrInvalidExternalID,
		room.ErrRoomInactive,
		room.ErrGuestsOverCapacity,
		payment.ErrMissingExternalID,
		payment.ErrMissingTransactionID,
		payment.ErrNegativeAmount,
		payment.ErrUnknownEventStatus,
	}
	transitionErrors = []error{
		booking.ErrAlreadyConfirmed,
		booking.ErrAlreadyCancelled,
		booking.ErrInvalidTransition,
		booking.ErrInvalidPaymentTransition,
		booking.ErrReservationNotActive,
		booking.ErrReservationExpired,
		booking.ErrMaxExtensionsReached,
	}
)

// classify marks a domain error with its category so the handler layer can
// map it without knowing every domain package.
func classify(err error) error {
	if err == nil {
		return nil
	}
	for _, target := range validationErrors {
		if errs.Is(err, target) {
			return errs.Validation(err)
		}
	}
	for _, target := range transitionErrors {
		if errs.Is(err, target) {
			return errs.InvalidTransition(err)
		}
	}
	if errs.Is(err, booking.ErrNotOwner) {
		return errs.Forbidden(err)
	}
	return err
}

// repoErr converts a repository failure, turning not-found into notFound.
func repoErr(err error, notFound error, msg string) error {
	if infra.IsKind(err, infra.KindNotFound) {
		return errs.NotFound(errs.Wrap(notFound, msg))
	}
	return errs.Persistence(errs.Wrap(err, msg))
}

var categories = []error{
	errs.ErrValidation,
	errs.ErrConcurrencyConflict,
	errs.ErrNotFound,
	errs.ErrForbidden,
	errs.ErrInvalidStateTransition,
	errs.ErrUnavailable,
	errs.ErrExternalGateway,
	errs.ErrCacheUnavailable,
	errs.ErrPersistenceFailure,
}

// txErr passes categorized errors through and treats anything else that
// escaped a transaction as a persistence failure.
func txErr(err error, msg string) error {
	if err == nil {
		return nil
	}
	for _, c := range categories {
		if errs.Is(err, c) {
			return err
		}
	}
	return errs.Persistence(errs.Wrap(err, msg))
}
