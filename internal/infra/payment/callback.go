package payment

import (
	"strings"
	"time"

	domain "roombook/internal/domain/payment"
	"roombook/internal/pkg/errs"
)

// Callback is the payload the provider posts to the webhook and the one
// carried on the payment-events topic. The topic producer fills
// ProviderTransactionID; the webhook only has the invoice's payment_id.
type Callback struct {
	ID                    string     `json:"id"`
	ExternalID            string     `json:"external_id"`
	ProviderTransactionID string     `json:"provider_transaction_id"`
	PaymentID             string     `json:"payment_id"`
	Status                string     `json:"status"`
	Amount                int64      `json:"amount"`
	PaidAmount            int64      `json:"paid_amount"`
	PaymentMethod         string     `json:"payment_method"`
	PaymentChannel        string     `json:"payment_channel"`
	PaidAt                *time.Time `json:"paid_at"`
}

func DecodeCallback(body []byte) (Callback, error) {
	var c Callback
	if err := json.Unmarshal(body, &c); err != nil {
		return Callback{}, errs.Validation(errs.Wrap(err, "decode payment callback"))
	}
	return c, nil
}

// Event normalises the callback. The transaction id falls back from the
// explicit field to the payment id and finally the invoice id.
func (c Callback) Event() (domain.Event, error) {
	status, err := domain.ParseStatus(c.Status)
	if err != nil {
		return domain.Event{}, errs.Validation(errs.Wrapf(err, "status %q", c.Status))
	}
	txID := firstNonEmpty(c.ProviderTransactionID, c.PaymentID, c.ID)
	amount := c.PaidAmount
	if amount == 0 {
		amount = c.Amount
	}
	return domain.Event{
		ExternalID:            strings.TrimSpace(c.ExternalID),
		ProviderTransactionID: txID,
		Status:                status,
		AmountCents:           amount,
		Method:                domain.MapMethod(c.PaymentMethod, c.PaymentChannel),
		PaidAt:                c.PaidAt,
	}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
