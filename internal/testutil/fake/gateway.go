//go:build unit || integration

package fake

import (
	"context"
	"fmt"
	"sync"

	"roombook/internal/usecase/shared"
)

// Gateway records every call and answers from canned data.
type Gateway struct {
	mu sync.Mutex
	n  int

	CreateErr error
	ExpireErr error
	StatusErr error
	RefundErr error

	Invoices []shared.InvoiceRequest
	Expired  []string
	Refunds  []shared.RefundRequest
	Statuses map[string]shared.InvoiceStatus
}

func NewGateway() *Gateway {
	return &Gateway{Statuses: map[string]shared.InvoiceStatus{}}
}

func (g *Gateway) CreateInvoice(ctx context.Context, req shared.InvoiceRequest) (*shared.Invoice, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.CreateErr != nil {
		return nil, g.CreateErr
	}
	g.n++
	g.Invoices = append(g.Invoices, req)
	id := fmt.Sprintf("inv_%d", g.n)
	return &shared.Invoice{ID: id, URL: "https://pay.example/" + id, ExpiresAt: req.ExpiresAt}, nil
}

func (g *Gateway) ExpireInvoice(ctx context.Context, invoiceID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.ExpireErr != nil {
		return g.ExpireErr
	}
	g.Expired = append(g.Expired, invoiceID)
	return nil
}

func (g *Gateway) GetStatus(ctx context.Context, invoiceID string) (*shared.InvoiceStatus, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.StatusErr != nil {
		return nil, g.StatusErr
	}
	st, ok := g.Statuses[invoiceID]
	if !ok {
		return &shared.InvoiceStatus{ID: invoiceID, Status: "PENDING"}, nil
	}
	return &st, nil
}

func (g *Gateway) CreateRefund(ctx context.Context, req shared.RefundRequest) (*shared.Refund, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.RefundErr != nil {
		return nil, g.RefundErr
	}
	g.Refunds = append(g.Refunds, req)
	return &shared.Refund{ID: fmt.Sprintf("rfd_%d", len(g.Refunds)), Status: "PENDING"}, nil
}

func (g *Gateway) InvoiceCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.Invoices)
}
