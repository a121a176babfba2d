package booking

import (
	"time"

	"github.com/google/uuid"
)

// AvailabilityLock is the durable shadow of one held (room, date). It is an
// audit and recovery record; the cache lock is the mutex.
type AvailabilityLock struct {
	ID            uuid.UUID
	ReservationID uuid.UUID
	RoomID        uuid.UUID
	Date          time.Time
	Quantity      int
	IsActive      bool
	ExpiresAt     time.Time
	ReleasedAt    *time.Time
	ReleaseReason *ReleaseReason
}

func NewAvailabilityLocks(res *Reservation, stay StayRange, quantity int) []AvailabilityLock {
	days := stay.Dates()
	locks := make([]AvailabilityLock, len(days))
	for i, d := range days {
		locks[i] = AvailabilityLock{
			ID:            uuid.New(),
			ReservationID: res.ID(),
			RoomID:        res.RoomID(),
			Date:          d,
			Quantity:      quantity,
			IsActive:      true,
			ExpiresAt:     res.ExpiresAt(),
		}
	}
	return locks
}
