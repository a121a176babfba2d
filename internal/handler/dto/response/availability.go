package response

import (
	"roombook/internal/pkg/dates"
	"roombook/internal/usecase/queries"

	"github.com/google/uuid"
	"github.com/jinzhu/copier"
)

type NightResponse struct {
	Date       string `json:"date"`
	Units      int    `json:"units"`
	PriceCents int64  `json:"price_cents"`
}

type AvailabilityResponse struct {
	RoomID            uuid.UUID       `json:"room_id"`
	CheckIn           string          `json:"check_in" copier:"-"`
	CheckOut          string          `json:"check_out" copier:"-"`
	Quantity          int             `json:"quantity"`
	Available         bool            `json:"available"`
	MinAvailableUnits int             `json:"min_available_units"`
	Nights            []NightResponse `json:"nights"`
	NightlyTotalCents int64           `json:"nightly_total_cents"`
	TaxCents          int64           `json:"tax_cents"`
	ServiceFeeCents   int64           `json:"service_fee_cents"`
	TotalCents        int64           `json:"total_cents"`
}

func FromAvailabilityView(v *queries.AvailabilityView) (*AvailabilityResponse, error) {
	var res AvailabilityResponse
	if err := copier.Copy(&res, v); err != nil {
		return nil, err
	}
	res.CheckIn = dates.Key(v.CheckIn)
	res.CheckOut = dates.Key(v.CheckOut)
	if res.Nights == nil {
		res.Nights = []NightResponse{}
	}
	return &res, nil
}

// MinAvailabilityResponse omits rooms that do not exist or are inactive.
type MinAvailabilityResponse struct {
	Units map[string]int `json:"units"`
}

func FromMinAvailable(units map[uuid.UUID]int) *MinAvailabilityResponse {
	out := make(map[string]int, len(units))
	for id, n := range units {
		out[id.String()] = n
	}
	return &MinAvailabilityResponse{Units: out}
}

type PriceExclusionResponse struct {
	Excluded []uuid.UUID `json:"excluded_room_ids"`
}

type WebhookResponse struct {
	Status    string     `json:"status"`
	BookingID *uuid.UUID `json:"booking_id,omitempty"`
	Confirmed bool       `json:"confirmed"`
}
