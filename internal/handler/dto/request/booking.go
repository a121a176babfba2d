package request

import (
	"roombook/internal/pkg/dates"
	"roombook/internal/usecase/commands"

	"github.com/google/uuid"
)

type CreateBookingRequest struct {
	RoomID   uuid.UUID `json:"room_id" binding:"required"`
	CheckIn  string    `json:"check_in" binding:"required,stay_date"`
	CheckOut string    `json:"check_out" binding:"required,stay_date,date_after=CheckIn"`
	Quantity int       `json:"quantity" binding:"required,min=1,max=50"`
	Guests   int       `json:"guests" binding:"required,min=1"`
}

// ToCommand assumes the request passed binding, so both dates parse.
func (r CreateBookingRequest) ToCommand() (commands.CreateBooking, error) {
	checkIn, err := dates.Parse(r.CheckIn)
	if err != nil {
		return commands.CreateBooking{}, err
	}
	checkOut, err := dates.Parse(r.CheckOut)
	if err != nil {
		return commands.CreateBooking{}, err
	}
	return commands.CreateBooking{
		RoomID:   r.RoomID,
		CheckIn:  checkIn,
		CheckOut: checkOut,
		Quantity: r.Quantity,
		Guests:   r.Guests,
	}, nil
}

type CancelBookingRequest struct {
	Reason string `json:"reason" binding:"omitempty,max=500"`
}

type ExtendBookingRequest struct {
	Minutes int `json:"minutes" binding:"required,min=1"`
}

type ListBookingsQuery struct {
	Limit int    `form:"limit" binding:"omitempty,min=1"`
	After string `form:"after"`
}
