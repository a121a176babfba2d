package request

import (
	"time"

	"roombook/internal/pkg/dates"

	"github.com/google/uuid"
)

type StayQuery struct {
	CheckIn  string `form:"check_in" json:"check_in" binding:"required,stay_date"`
	CheckOut string `form:"check_out" json:"check_out" binding:"required,stay_date,date_after=CheckIn"`
}

func (q StayQuery) Dates() (time.Time, time.Time, error) {
	checkIn, err := dates.Parse(q.CheckIn)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	checkOut, err := dates.Parse(q.CheckOut)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return checkIn, checkOut, nil
}

type RoomAvailabilityQuery struct {
	StayQuery
	Quantity int `form:"quantity" binding:"omitempty,min=1"`
}

type MinAvailabilityRequest struct {
	RoomIDs  []uuid.UUID `json:"room_ids" binding:"required,min=1,max=1000"`
	CheckIn  string      `json:"check_in" binding:"required,stay_date"`
	CheckOut string      `json:"check_out" binding:"required,stay_date,date_after=CheckIn"`
}

func (r MinAvailabilityRequest) Stay() StayQuery {
	return StayQuery{CheckIn: r.CheckIn, CheckOut: r.CheckOut}
}

type PriceExclusionRequest struct {
	RoomIDs       []uuid.UUID `json:"room_ids" binding:"required,min=1,max=1000"`
	MinPriceCents *int64      `json:"min_price_cents" binding:"omitempty,min=0"`
	MaxPriceCents *int64      `json:"max_price_cents" binding:"omitempty,min=0"`
}
