package booking

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrReservationNotActive = errors.New("reservation is not active")
	ErrReservationExpired   = errors.New("reservation has expired")
	ErrMaxExtensionsReached = errors.New("maximum number of extensions reached")
	ErrInvalidExtension     = errors.New("extension minutes out of range")
)

// Reservation is the time-boxed hold behind an unconfirmed booking. ExpiresAt
// is mirrored by the lock TTL, the shadow rows and the payment invoice.
type Reservation struct {
	id             uuid.UUID
	bookingID      uuid.UUID
	roomID         uuid.UUID
	status         ReservationStatus
	expiresAt      time.Time
	extensionCount int
	lockToken      string
	paymentRef     *string
	paymentURL     *string
	externalID     *string
	createdAt      time.Time
	updatedAt      time.Time
}

func NewReservation(bookingID, roomID uuid.UUID, lockToken string, now time.Time, timeout time.Duration) *Reservation {
	return &Reservation{
		id:        uuid.New(),
		bookingID: bookingID,
		roomID:    roomID,
		status:    ReservationActive,
		expiresAt: now.Add(timeout),
		lockToken: lockToken,
		createdAt: now,
		updatedAt: now,
	}
}

func ReconstructReservation(
	id, bookingID, roomID uuid.UUID,
	status ReservationStatus,
	expiresAt time.Time,
	extensionCount int,
	lockToken string,
	paymentRef, paymentURL, externalID *string,
	createdAt, updatedAt time.Time,
) *Reservation {
	return &Reservation{
		id:             id,
		bookingID:      bookingID,
		roomID:         roomID,
		status:         status,
		expiresAt:      expiresAt,
		extensionCount: extensionCount,
		lockToken:      lockToken,
		paymentRef:     paymentRef,
		paymentURL:     paymentURL,
		externalID:     externalID,
		createdAt:      createdAt,
		updatedAt:      updatedAt,
	}
}

func (r *Reservation) IsActiveAt(now time.Time) bool {
	return r.status == ReservationActive && r.expiresAt.After(now)
}

// IsDue reports whether the expiry sweep should pick this reservation up.
func (r *Reservation) IsDue(now time.Time) bool {
	return r.status == ReservationActive && !r.expiresAt.After(now)
}

// Extend pushes ExpiresAt by minutes. The caller moves the lock TTL, the
// shadow rows and the invoice to the returned expiry.
func (r *Reservation) Extend(now time.Time, minutes, maxExtensions, maxMinutes int) (time.Time, error) {
	if r.status != ReservationActive {
		return time.Time{}, ErrReservationNotActive
	}
	if !r.expiresAt.After(now) {
		return time.Time{}, ErrReservationExpired
	}
	if r.extensionCount >= maxExtensions {
		return time.Time{}, ErrMaxExtensionsReached
	}
	if minutes < 1 || minutes > maxMinutes {
		return time.Time{}, ErrInvalidExtension
	}
	r.expiresAt = r.expiresAt.Add(time.Duration(minutes) * time.Minute)
	r.extensionCount++
	r.updatedAt = now
	return r.expiresAt, nil
}

func (r *Reservation) Confirm(now time.Time) error {
	return r.close(ReservationConfirmed, now)
}

func (r *Reservation) Cancel(now time.Time) error {
	return r.close(ReservationCancelled, now)
}

func (r *Reservation) Expire(now time.Time) error {
	return r.close(ReservationExpired, now)
}

func (r *Reservation) close(next ReservationStatus, now time.Time) error {
	if r.status != ReservationActive {
		return ErrReservationNotActive
	}
	r.status = next
	r.updatedAt = now
	return nil
}

func (r *Reservation) AttachInvoice(paymentRef, paymentURL, externalID string, now time.Time) {
	r.paymentRef = &paymentRef
	r.paymentURL = &paymentURL
	r.externalID = &externalID
	r.updatedAt = now
}

// TTL is the remaining hold time, used to keep the lock expiry aligned.
func (r *Reservation) TTL(now time.Time) time.Duration {
	return r.expiresAt.Sub(now)
}

func (r *Reservation) ID() uuid.UUID             { return r.id }
func (r *Reservation) BookingID() uuid.UUID      { return r.bookingID }
func (r *Reservation) RoomID() uuid.UUID         { return r.roomID }
func (r *Reservation) Status() ReservationStatus { return r.status }
func (r *Reservation) ExpiresAt() time.Time      { return r.expiresAt }
func (r *Reservation) ExtensionCount() int       { return r.extensionCount }
func (r *Reservation) LockToken() string         { return r.lockToken }
func (r *Reservation) PaymentRef() *string       { return r.paymentRef }
func (r *Reservation) PaymentURL() *string       { return r.paymentURL }
func (r *Reservation) ExternalID() *string       { return r.externalID }
func (r *Reservation) CreatedAt() time.Time      { return r.createdAt }
func (r *Reservation) UpdatedAt() time.Time      { return r.updatedAt }
