package response

import (
	"time"

	"roombook/internal/pkg/dates"
	"roombook/internal/usecase/queries"

	"github.com/google/uuid"
	"github.com/jinzhu/copier"
)

type BookingResponse struct {
	ID                uuid.UUID  `json:"id"`
	Reference         string     `json:"reference"`
	RoomID            uuid.UUID  `json:"room_id"`
	CheckIn           string     `json:"check_in" copier:"-"`
	CheckOut          string     `json:"check_out" copier:"-"`
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

func FromBookingView(v *queries.BookingView) (*BookingResponse, error) {
	var res BookingResponse
	if err := copier.Copy(&res, v); err != nil {
		return nil, err
	}
	res.CheckIn = dates.Key(v.CheckIn)
	res.CheckOut = dates.Key(v.CheckOut)
	return &res, nil
}

type BookingListResponse struct {
	Bookings   []*BookingResponse `json:"bookings"`
	NextCursor string             `json:"next_cursor,omitempty"`
}

func FromBookingList(items []*queries.BookingView, next *queries.Cursor) (*BookingListResponse, error) {
	out := &BookingListResponse{Bookings: make([]*BookingResponse, 0, len(items))}
	for _, v := range items {
		r, err := FromBookingView(v)
		if err != nil {
			return nil, err
		}
		out.Bookings = append(out.Bookings, r)
	}
	if next != nil {
		out.NextCursor = next.After
	}
	return out, nil
}
