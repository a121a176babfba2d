package repository

import (
	"context"
	"time"

	"roombook/internal/domain/payment"
	"roombook/internal/infra"
	"roombook/internal/infra/db"

	"github.com/google/uuid"
)

type PaymentRepository struct {
	db db.DBTX
}

func NewPaymentRepository(db db.DBTX) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// Insert relies on the partial unique key over paid rows: a paid event whose
// (external_id, provider_transaction_id) is already paid inserts nothing and
// reports false. Events of any other status are always recorded.
func (r *PaymentRepository) Insert(ctx context.Context, p *payment.Payment) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		INSERT INTO payments
			(id, booking_id, external_id, provider_transaction_id, status, method_kind,
			 method_channel, amount_cents, paid_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (external_id, provider_transaction_id) WHERE status = 'paid' DO NOTHING`,
		p.ID(), p.BookingID(), p.ExternalID(), p.ProviderTransactionID(), string(p.Status()),
		string(p.Method().Kind), p.Method().Channel, p.AmountCents(), p.PaidAt(), p.CreatedAt(),
	)
	if err != nil {
		return false, infra.WrapRepoErr("failed to insert payment", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *PaymentRepository) FindPaidByBooking(ctx context.Context, bookingID uuid.UUID) (*payment.Payment, error) {
	var (
		id                        uuid.UUID
		externalID, txID, status  string
		methodKind, methodChannel string
		amount                    int64
		paidAt                    *time.Time
		createdAt                 time.Time
	)
	err := r.db.QueryRow(ctx, `
		SELECT id, external_id, provider_transaction_id, status, method_kind, method_channel,
			amount_cents, paid_at, created_at
		FROM payments
		WHERE booking_id = $1 AND status = 'paid'
		ORDER BY created_at DESC
		LIMIT 1`, bookingID,
	).Scan(&id, &externalID, &txID, &status, &methodKind, &methodChannel, &amount, &paidAt, &createdAt)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to find paid payment", err)
	}
	return payment.ReconstructPayment(
		id, bookingID, externalID, txID, payment.Status(status),
		payment.Method{Kind: payment.MethodKind(methodKind), Channel: methodChannel},
		amount, paidAt, createdAt,
	), nil
}
