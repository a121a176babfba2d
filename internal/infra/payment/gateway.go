// Package payment talks to the hosted-invoice payment provider.
package payment

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"roombook/internal/pkg/config"
	"roombook/internal/pkg/errs"
	"roombook/internal/usecase/shared"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type invoiceRequest struct {
	ExternalID  string  `json:"external_id"`
	Amount      int64   `json:"amount"`
	Currency    string  `json:"currency,omitempty"`
	Description string  `json:"description,omitempty"`
	ExpiryDate  string  `json:"expiry_date"`
	SuccessURL  *string `json:"success_redirect_url,omitempty"`
	FailureURL  *string `json:"failure_redirect_url,omitempty"`
}

type invoiceResponse struct {
	ID             string     `json:"id"`
	ExternalID     string     `json:"external_id"`
	Status         string     `json:"status"`
	Amount         int64      `json:"amount"`
	PaidAmount     int64      `json:"paid_amount"`
	InvoiceURL     string     `json:"invoice_url"`
	ExpiryDate     time.Time  `json:"expiry_date"`
	PaymentID      string     `json:"payment_id"`
	PaymentMethod  string     `json:"payment_method"`
	PaymentChannel string     `json:"payment_channel"`
	PaidAt         *time.Time `json:"paid_at"`
}

type refundRequest struct {
	PaymentRequestID string `json:"payment_request_id"`
	Amount           int64  `json:"amount"`
	Reason           string `json:"reason"`
}

type refundResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type apiError struct {
	ErrorCode string `json:"error_code"`
	Message   string `json:"message"`
}

// Gateway is the HTTP client for the invoice API. Every failure it returns
// is marked errs.ErrExternalGateway.
type Gateway struct {
	baseURL    string
	secretKey  string
	successURL string
	failureURL string
	http       *http.Client
}

func NewGateway(cfg config.PaymentConfig) *Gateway {
	return &Gateway{
		baseURL:    cfg.BaseURL,
		secretKey:  cfg.SecretKey,
		successURL: cfg.SuccessURL,
		failureURL: cfg.FailureURL,
		http:       &http.Client{Timeout: cfg.Timeout},
	}
}

func (g *Gateway) CreateInvoice(ctx context.Context, req shared.InvoiceRequest) (*shared.Invoice, error) {
	body := invoiceRequest{
		ExternalID:  req.ExternalID,
		Amount:      req.AmountCents,
		Currency:    req.Currency,
		Description: req.Description,
		ExpiryDate:  req.ExpiresAt.UTC().Format(time.RFC3339),
	}
	if g.successURL != "" {
		body.SuccessURL = &g.successURL
	}
	if g.failureURL != "" {
		body.FailureURL = &g.failureURL
	}

	var resp invoiceResponse
	if err := g.do(ctx, http.MethodPost, "/v2/invoices", body, &resp); err != nil {
		return nil, errs.Wrap(err, "create invoice")
	}
	return &shared.Invoice{ID: resp.ID, URL: resp.InvoiceURL, ExpiresAt: resp.ExpiryDate}, nil
}

func (g *Gateway) ExpireInvoice(ctx context.Context, invoiceID string) error {
	path := "/invoices/" + url.PathEscape(invoiceID) + "/expire!"
	if err := g.do(ctx, http.MethodPost, path, nil, nil); err != nil {
		return errs.Wrap(err, "expire invoice")
	}
	return nil
}

func (g *Gateway) GetStatus(ctx context.Context, invoiceID string) (*shared.InvoiceStatus, error) {
	var resp invoiceResponse
	if err := g.do(ctx, http.MethodGet, "/v2/invoices/"+url.PathEscape(invoiceID), nil, &resp); err != nil {
		return nil, errs.Wrap(err, "get invoice status")
	}
	amount := resp.PaidAmount
	if amount == 0 {
		amount = resp.Amount
	}
	return &shared.InvoiceStatus{
		ID:                    resp.ID,
		ExternalID:            resp.ExternalID,
		Status:                resp.Status,
		AmountCents:           amount,
		ProviderTransactionID: resp.PaymentID,
		PaymentMethod:         resp.PaymentMethod,
		PaymentChannel:        resp.PaymentChannel,
		PaidAt:                resp.PaidAt,
	}, nil
}

func (g *Gateway) CreateRefund(ctx context.Context, req shared.RefundRequest) (*shared.Refund, error) {
	var resp refundResponse
	body := refundRequest{PaymentRequestID: req.PaymentID, Amount: req.AmountCents, Reason: req.Reason}
	if err := g.do(ctx, http.MethodPost, "/refunds", body, &resp); err != nil {
		return nil, errs.Wrap(err, "create refund")
	}
	return &shared.Refund{ID: resp.ID, Status: resp.Status}, nil
}

func (g *Gateway) do(ctx context.Context, method, path string, in, out any) error {
	var reader io.Reader
	if in != nil {
		encoded, err := json.Marshal(in)
		if err != nil {
			return errs.Gateway(errs.Wrap(err, "encode request"))
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, reader)
	if err != nil {
		return errs.Gateway(errs.Wrap(err, "build request"))
	}
	req.SetBasicAuth(g.secretKey, "")
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	res, err := g.http.Do(req)
	if err != nil {
		return errs.Gateway(errs.Wrap(err, "send request"))
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return errs.Gateway(errs.Wrap(err, "read response"))
	}
	slog.Debug("payment gateway call", "method", method, "path", path, "status", res.StatusCode, "duration", time.Since(start))

	if res.StatusCode >= 300 {
		var apiErr apiError
		_ = json.Unmarshal(raw, &apiErr)
		return errs.Gateway(errs.Newf("gateway returned %d %s: %s", res.StatusCode, apiErr.ErrorCode, apiErr.Message))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return errs.Gateway(errs.Wrap(err, fmt.Sprintf("decode %s response", path)))
	}
	return nil
}
