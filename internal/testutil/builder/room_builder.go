//go:build unit || integration

package builder

import (
	"time"

	"roombook/internal/domain/room"

	"github.com/google/uuid"
)

type RoomBuilder struct {
	ID                uuid.UUID
	Name              string
	TotalUnits        int
	DefaultPriceCents int64
	MaxGuests         int
	IsActive          bool
}

func NewRoomBuilder() *RoomBuilder {
	return &RoomBuilder{
		ID:                uuid.New(),
		Name:              "Deluxe Twin",
		TotalUnits:        2,
		DefaultPriceCents: 100_000,
		MaxGuests:         2,
		IsActive:          true,
	}
}

func (r *RoomBuilder) With(mutate func(*RoomBuilder)) *RoomBuilder {
	mutate(r)
	return r
}

func (r *RoomBuilder) BuildDomain() *room.Room {
	now := time.Now()
	return room.ReconstructRoom(r.ID, r.Name, r.TotalUnits, r.DefaultPriceCents, r.MaxGuests, r.IsActive, now, now)
}

func (r *RoomBuilder) WithUnits(units int) *RoomBuilder {
	r.TotalUnits = units
	return r
}

func (r *RoomBuilder) AsInactive() *RoomBuilder {
	r.IsActive = false
	return r
}
