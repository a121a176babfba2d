package payment

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrMissingExternalID    = errors.New("payment event has no external id")
	ErrMissingTransactionID = errors.New("payment event has no provider transaction id")
	ErrNegativeAmount       = errors.New("payment amount cannot be negative")
	ErrUnknownEventStatus   = errors.New("unknown payment event status")
)

type Status string

const (
	StatusPending Status = "pending"
	StatusPaid    Status = "paid"
	StatusFailed  Status = "failed"
	StatusExpired Status = "expired"
)

// ParseStatus maps the gateway's status strings.
func ParseStatus(s string) (Status, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "PAID", "SETTLED", "SUCCEEDED", "COMPLETED":
		return StatusPaid, nil
	case "PENDING":
		return StatusPending, nil
	case "FAILED":
		return StatusFailed, nil
	case "EXPIRED":
		return StatusExpired, nil
	default:
		return "", ErrUnknownEventStatus
	}
}

// Event is an inbound payment notification from the webhook or the queue.
type Event struct {
	ExternalID            string
	ProviderTransactionID string
	Status                Status
	AmountCents           int64
	Method                Method
	PaidAt                *time.Time
}

func (e Event) Validate() error {
	if strings.TrimSpace(e.ExternalID) == "" {
		return ErrMissingExternalID
	}
	if strings.TrimSpace(e.ProviderTransactionID) == "" {
		return ErrMissingTransactionID
	}
	if e.AmountCents < 0 {
		return ErrNegativeAmount
	}
	return nil
}

// Payment is one recorded gateway transaction. (ExternalID,
// ProviderTransactionID) is unique.
type Payment struct {
	id                    uuid.UUID
	bookingID             uuid.UUID
	externalID            string
	providerTransactionID string
	status                Status
	method                Method
	amountCents           int64
	paidAt                *time.Time
	createdAt             time.Time
}

func NewPayment(bookingID uuid.UUID, e Event, now time.Time) *Payment {
	return &Payment{
		id:                    uuid.New(),
		bookingID:             bookingID,
		externalID:            e.ExternalID,
		providerTransactionID: e.ProviderTransactionID,
		status:                e.Status,
		method:                e.Method,
		amountCents:           e.AmountCents,
		paidAt:                e.PaidAt,
		createdAt:             now,
	}
}

func ReconstructPayment(
	id, bookingID uuid.UUID,
	externalID, providerTransactionID string,
	status Status,
	method Method,
	amountCents int64,
	paidAt *time.Time,
	createdAt time.Time,
) *Payment {
	return &Payment{
		id:                    id,
		bookingID:             bookingID,
		externalID:            externalID,
		providerTransactionID: providerTransactionID,
		status:                status,
		method:                method,
		amountCents:           amountCents,
		paidAt:                paidAt,
		createdAt:             createdAt,
	}
}

func (p *Payment) ID() uuid.UUID                 { return p.id }
func (p *Payment) BookingID() uuid.UUID          { return p.bookingID }
func (p *Payment) ExternalID() string            { return p.externalID }
func (p *Payment) ProviderTransactionID() string { return p.providerTransactionID }
func (p *Payment) Status() Status                { return p.status }
func (p *Payment) Method() Method                { return p.method }
func (p *Payment) AmountCents() int64            { return p.amountCents }
func (p *Payment) PaidAt() *time.Time            { return p.paidAt }
func (p *Payment) CreatedAt() time.Time          { return p.createdAt }
