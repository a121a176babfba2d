package queries

import (
	"time"

	"roombook/internal/domain/booking"

	"github.com/google/uuid"
)

// BookingView is the read model returned by booking commands and queries.
type BookingView struct {
	ID                uuid.UUID  `json:"id"`
	Reference         string     `json:"reference"`
	RoomID            uuid.UUID  `json:"room_id"`
	UserID            uuid.UUID  `json:"user_id"`
	CheckIn           time.Time  `json:"check_in"`
	CheckOut          time.Time  `json:"check_out"`
	Nights            int        `json:"nights"`
	Quantity          int        `json:"quantity"`
	Guests            int        `json:"guests"`
	Status            string     `json:"status"`
	PaymentStatus     string     `json:"payment_status"`
	NightlyTotalCents int64      `json:"nightly_total_cents"`
	TaxCents          int64      `json:"tax_cents"`
	ServiceFeeCents   int64      `json:"service_fee_cents"`
	TotalCents        int64      `json:"total_cents"`
	Currency          string     `json:"currency"`
	CancelReason      *string    `json:"cancel_reason,omitempty"`
	HoldStatus        *string    `json:"hold_status,omitempty"`
	HoldExpiresAt     *time.Time `json:"hold_expires_at,omitempty"`
	ExtensionCount    int        `json:"extension_count"`
	PaymentURL        *string    `json:"payment_url,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// NewBookingView flattens a booking and, when present, its hold.
func NewBookingView(b *booking.Booking, res *booking.Reservation) *BookingView {
	v := &BookingView{
		ID:                b.ID(),
		Reference:         b.Reference().String(),
		RoomID:            b.RoomID(),
		UserID:            b.UserID(),
		CheckIn:           b.Stay().CheckIn(),
		CheckOut:          b.Stay().CheckOut(),
		Nights:            b.Stay().Nights(),
		Quantity:          b.Quantity(),
		Guests:            b.Guests(),
		Status:            b.Status().String(),
		PaymentStatus:     b.PaymentStatus().String(),
		NightlyTotalCents: b.NightlyTotal().Cents(),
		TaxCents:          b.Tax().Cents(),
		ServiceFeeCents:   b.ServiceFee().Cents(),
		TotalCents:        b.Total().Cents(),
		Currency:          b.Currency(),
		CancelReason:      b.CancelReason(),
		CreatedAt:         b.CreatedAt(),
		UpdatedAt:         b.UpdatedAt(),
	}
	if res != nil {
		status := res.Status().String()
		expiresAt := res.ExpiresAt()
		v.HoldStatus = &status
		v.HoldExpiresAt = &expiresAt
		v.ExtensionCount = res.ExtensionCount()
		v.PaymentURL = res.PaymentURL()
	}
	return v
}

type NightAvailability struct {
	Date       string `json:"date"`
	Units      int    `json:"units"`
	PriceCents int64  `json:"price_cents"`
}

type AvailabilityView struct {
	RoomID            uuid.UUID           `json:"room_id"`
	CheckIn           time.Time           `json:"check_in"`
	CheckOut          time.Time           `json:"check_out"`
	Quantity          int                 `json:"quantity"`
	Available         bool                `json:"available"`
	MinAvailableUnits int                 `json:"min_available_units"`
	Nights            []NightAvailability `json:"nights"`
	NightlyTotalCents int64               `json:"nightly_total_cents"`
	TaxCents          int64               `json:"tax_cents"`
	ServiceFeeCents   int64               `json:"service_fee_cents"`
	TotalCents        int64               `json:"total_cents"`
}
