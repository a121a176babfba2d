package room

import (
	"errors"
	"strings"
	"time"

	"roombook/internal/pkg/dates"

	"github.com/google/uuid"
)

var (
	ErrEmptyRoomName      = errors.New("room name cannot be empty")
	ErrNegativeUnits      = errors.New("total units cannot be negative")
	ErrNegativePrice      = errors.New("price cannot be negative")
	ErrInvalidMaxGuests   = errors.New("max guests must be at least 1")
	ErrRoomNameTooLong    = errors.New("room name is too long (max 255 characters)")
	ErrNegativeOverride   = errors.New("override units cannot be negative")
	ErrRoomInactive       = errors.New("room is not active")
	ErrGuestsOverCapacity = errors.New("guest count exceeds room capacity")
)

const MaxRoomNameLength = 255

// Room is a pool of interchangeable units sharing one price and capacity.
type Room struct {
	id                uuid.UUID
	name              string
	totalUnits        int
	defaultPriceCents int64
	maxGuests         int
	isActive          bool
	createdAt         time.Time
	updatedAt         time.Time
}

func NewRoom(id uuid.UUID, name string, totalUnits int, defaultPriceCents int64, maxGuests int) (*Room, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyRoomName
	}
	if len(name) > MaxRoomNameLength {
		return nil, ErrRoomNameTooLong
	}
	if totalUnits < 0 {
		return nil, ErrNegativeUnits
	}
	if defaultPriceCents < 0 {
		return nil, ErrNegativePrice
	}
	if maxGuests < 1 {
		return nil, ErrInvalidMaxGuests
	}
	if id == uuid.Nil {
		id = uuid.New()
	}
	return &Room{
		id:                id,
		name:              name,
		totalUnits:        totalUnits,
		defaultPriceCents: defaultPriceCents,
		maxGuests:         maxGuests,
		isActive:          true,
	}, nil
}

func ReconstructRoom(
	id uuid.UUID,
	name string,
	totalUnits int,
	defaultPriceCents int64,
	maxGuests int,
	isActive bool,
	createdAt, updatedAt time.Time,
) *Room {
	return &Room{
		id:                id,
		name:              name,
		totalUnits:        totalUnits,
		defaultPriceCents: defaultPriceCents,
		maxGuests:         maxGuests,
		isActive:          isActive,
		createdAt:         createdAt,
		updatedAt:         updatedAt,
	}
}

// CheckBookable validates the static constraints of a stay request; unit
// availability is checked separately under the range lock.
func (r *Room) CheckBookable(guests int) error {
	if !r.isActive {
		return ErrRoomInactive
	}
	if guests > r.maxGuests {
		return ErrGuestsOverCapacity
	}
	return nil
}

func (r *Room) ID() uuid.UUID             { return r.id }
func (r *Room) Name() string              { return r.name }
func (r *Room) TotalUnits() int           { return r.totalUnits }
func (r *Room) DefaultPriceCents() int64  { return r.defaultPriceCents }
func (r *Room) MaxGuests() int            { return r.maxGuests }
func (r *Room) IsActive() bool            { return r.isActive }
func (r *Room) CreatedAt() time.Time      { return r.createdAt }
func (r *Room) UpdatedAt() time.Time      { return r.updatedAt }

// Override replaces the unit count and/or the nightly price of one room on one date.
type Override struct {
	RoomID     uuid.UUID
	Date       time.Time
	Units      *int
	PriceCents *int64
}

func NewOverride(roomID uuid.UUID, date time.Time, units *int, priceCents *int64) (Override, error) {
	if units != nil && *units < 0 {
		return Override{}, ErrNegativeOverride
	}
	if priceCents != nil && *priceCents < 0 {
		return Override{}, ErrNegativePrice
	}
	return Override{RoomID: roomID, Date: dates.Truncate(date), Units: units, PriceCents: priceCents}, nil
}

// OverridesByDate indexes overrides by their date key.
func OverridesByDate(overrides []Override) map[string]Override {
	out := make(map[string]Override, len(overrides))
	for _, o := range overrides {
		out[dates.Key(o.Date)] = o
	}
	return out
}
