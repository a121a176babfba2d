//go:build unit

package payment_test

import (
	"testing"
	"time"

	domain "roombook/internal/domain/payment"
	"roombook/internal/infra/payment"
	"roombook/internal/pkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCallback_Event(t *testing.T) {
	paidAt := time.Date(2026, 2, 20, 12, 5, 0, 0, time.UTC)

	testCases := []struct {
		name    string
		body    string
		want    domain.Event
		wantErr error
	}{
		{
			name: "success: webhook payload uses payment id and paid amount",
			body: `{"id":"inv_1","external_id":"booking-BKABCD1234-1771588800","payment_id":"pay_9","status":"PAID",` +
				`"amount":232000,"paid_amount":232000,"payment_method":"EWALLET","payment_channel":"OVO","paid_at":"2026-02-20T12:05:00Z"}`,
			want: domain.Event{
				ExternalID:            "booking-BKABCD1234-1771588800",
				ProviderTransactionID: "pay_9",
				Status:                domain.StatusPaid,
				AmountCents:           232000,
				Method:                domain.Method{Kind: domain.MethodEWallet, Channel: "OVO"},
				PaidAt:                &paidAt,
			},
		},
		{
			name: "success: queue payload carries the transaction id",
			body: `{"external_id":"booking-BKABCD1234-1771588800","provider_transaction_id":"txn-1","status":"settled","amount":1000}`,
			want: domain.Event{
				ExternalID:            "booking-BKABCD1234-1771588800",
				ProviderTransactionID: "txn-1",
				Status:                domain.StatusPaid,
				AmountCents:           1000,
				Method:                domain.Method{Kind: domain.MethodUnmapped},
			},
		},
		{
			name: "success: invoice id is the last fallback",
			body: `{"id":"inv_7","external_id":"x","status":"FAILED"}`,
			want: domain.Event{
				ExternalID:            "x",
				ProviderTransactionID: "inv_7",
				Status:                domain.StatusFailed,
				Method:                domain.Method{Kind: domain.MethodUnmapped},
			},
		},
		{name: "error: unknown status", body: `{"id":"inv_1","status":"REVERSED"}`, wantErr: errs.ErrValidation},
		{name: "error: not json", body: `status=PAID`, wantErr: errs.ErrValidation},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c, err := payment.DecodeCallback([]byte(tc.body))
			var got domain.Event
			if err == nil {
				got, err = c.Event()
			}

			if tc.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errs.Is(err, tc.wantErr))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}
