// Package availability computes per-date free units for a room from its
// capacity and every hold that consumes inventory.
package availability

import (
	"time"

	"roombook/internal/domain/room"
	"roombook/internal/pkg/dates"

	"github.com/google/uuid"
)

type HoldSource string

const (
	SourceBooking     HoldSource = "booking"
	SourceReservation HoldSource = "reservation"
	SourceLock        HoldSource = "lock"
)

// Hold is any inventory consumption over [Start, End).
type Hold struct {
	RoomID   uuid.UUID
	Start    time.Time
	End      time.Time
	Quantity int
	Source   HoldSource
}

type Capacity struct {
	RoomID     uuid.UUID
	TotalUnits int
	Overrides  map[string]room.Override
}

func NewCapacity(r *room.Room, overrides []room.Override) Capacity {
	own := make([]room.Override, 0, len(overrides))
	for _, o := range overrides {
		if o.RoomID == r.ID() {
			own = append(own, o)
		}
	}
	return Capacity{RoomID: r.ID(), TotalUnits: r.TotalUnits(), Overrides: room.OverridesByDate(own)}
}

func (c Capacity) BaseUnits(date time.Time) int {
	if o, ok := c.Overrides[dates.Key(date)]; ok && o.Units != nil {
		return *o.Units
	}
	return c.TotalUnits
}

// Compute returns available units for every date in [start, end), keyed by
// date. Values are floored at zero.
func Compute(c Capacity, holds []Hold, start, end time.Time) map[string]int {
	days := dates.Range(start, end)
	used := make(map[string]int, len(days))
	for _, h := range holds {
		if h.RoomID != c.RoomID || h.Quantity <= 0 {
			continue
		}
		for _, d := range dates.Range(h.Start, h.End) {
			used[dates.Key(d)] += h.Quantity
		}
	}

	out := make(map[string]int, len(days))
	for _, d := range days {
		key := dates.Key(d)
		free := c.BaseUnits(d) - used[key]
		if free < 0 {
			free = 0
		}
		out[key] = free
	}
	return out
}

// MinOver returns the smallest value among keys; ok is false when a key is
// missing, which callers must treat as unknown.
func MinOver(perDate map[string]int, keys []string) (min int, ok bool) {
	if len(keys) == 0 {
		return 0, false
	}
	for i, k := range keys {
		v, found := perDate[k]
		if !found {
			return 0, false
		}
		if i == 0 || v < min {
			min = v
		}
	}
	return min, true
}
