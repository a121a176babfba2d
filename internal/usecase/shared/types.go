package shared

import (
	"context"
	"time"

	"roombook/internal/domain/room"

	"github.com/google/uuid"
)

// RangeLocker is the primary, TTL-bound lock over one room's dates.
// Acquisition is all-or-nothing and never waits.
type RangeLocker interface {
	AcquireRange(ctx context.Context, roomID uuid.UUID, start, end time.Time, ttl time.Duration) (token string, ok bool, err error)
	ReleaseRange(ctx context.Context, roomID uuid.UUID, start, end time.Time, token string) (int, error)
	ExtendRange(ctx context.Context, roomID uuid.UUID, start, end time.Time, token string, ttl time.Duration) (bool, error)
}

type LedgerStore interface {
	// Save merges per-date units (keyed by dates.Key) into the room's record.
	Save(ctx context.Context, roomID uuid.UUID, perDate map[string]int) error
	// MinAvailable omits rooms whose record lacks any of dateKeys.
	MinAvailable(ctx context.Context, roomIDs []uuid.UUID, dateKeys []string) (map[uuid.UUID]int, error)
}

type PriceRangeStore interface {
	Save(ctx context.Context, pr room.PriceRange, ttl time.Duration) error
	GetMany(ctx context.Context, roomIDs []uuid.UUID) (map[uuid.UUID]room.PriceRange, error)
	InvalidateAll(ctx context.Context) (int, error)
}

type InvoiceRequest struct {
	ExternalID  string
	AmountCents int64
	Currency    string
	Description string
	ExpiresAt   time.Time
}

type Invoice struct {
	ID        string
	URL       string
	ExpiresAt time.Time
}

type InvoiceStatus struct {
	ID                    string
	ExternalID            string
	Status                string
	AmountCents           int64
	ProviderTransactionID string
	PaymentMethod         string
	PaymentChannel        string
	PaidAt                *time.Time
}

type RefundRequest struct {
	PaymentID   string
	AmountCents int64
	Reason      string
}

type Refund struct {
	ID     string
	Status string
}

type PaymentGateway interface {
	CreateInvoice(ctx context.Context, req InvoiceRequest) (*Invoice, error)
	ExpireInvoice(ctx context.Context, invoiceID string) error
	GetStatus(ctx context.Context, invoiceID string) (*InvoiceStatus, error)
	CreateRefund(ctx context.Context, req RefundRequest) (*Refund, error)
}
