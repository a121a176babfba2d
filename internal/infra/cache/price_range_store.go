package cache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"roombook/internal/domain/room"
	"roombook/internal/pkg/errs"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func priceRangeKey(roomID uuid.UUID) string {
	return "pricerange:room:" + roomID.String()
}

type priceRangeRecord struct {
	RoomID             string             `json:"room_id"`
	Min30              int64              `json:"min_30"`
	Max30              int64              `json:"max_30"`
	Avg30              int64              `json:"avg_30"`
	Min90              int64              `json:"min_90"`
	Max90              int64              `json:"max_90"`
	Avg90              int64              `json:"avg_90"`
	MonthlyMultipliers map[string]float64 `json:"monthly_multipliers"`
	ComputedAt         time.Time          `json:"computed_at"`
	ValidUntil         time.Time          `json:"valid_until"`
}

type PriceRangeStore struct {
	client redis.UniversalClient
}

func NewPriceRangeStore(client redis.UniversalClient) *PriceRangeStore {
	return &PriceRangeStore{client: client}
}

func (s *PriceRangeStore) Save(ctx context.Context, pr room.PriceRange, ttl time.Duration) error {
	encoded, err := json.Marshal(priceRangeRecord{
		RoomID:             pr.RoomID.String(),
		Min30:              pr.Min30,
		Max30:              pr.Max30,
		Avg30:              pr.Avg30,
		Min90:              pr.Min90,
		Max90:              pr.Max90,
		Avg90:              pr.Avg90,
		MonthlyMultipliers: pr.MonthlyMultipliers,
		ComputedAt:         pr.ComputedAt,
		ValidUntil:         pr.ValidUntil,
	})
	if err != nil {
		return errs.Wrap(err, "encode price range")
	}
	if err := s.client.Set(ctx, priceRangeKey(pr.RoomID), encoded, ttl).Err(); err != nil {
		return errs.Cache(errs.Wrap(err, "save price range"))
	}
	return nil
}

// GetMany omits rooms with no cached range.
func (s *PriceRangeStore) GetMany(ctx context.Context, roomIDs []uuid.UUID) (map[uuid.UUID]room.PriceRange, error) {
	out := make(map[uuid.UUID]room.PriceRange, len(roomIDs))
	if len(roomIDs) == 0 {
		return out, nil
	}
	keys := make([]string, len(roomIDs))
	for i, id := range roomIDs {
		keys[i] = priceRangeKey(id)
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, errs.Cache(errs.Wrap(err, "read price ranges"))
	}
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var rec priceRangeRecord
		if err := json.UnmarshalFromString(raw, &rec); err != nil {
			slog.Warn("skipping unreadable price range", "room_id", roomIDs[i], "error", err)
			continue
		}
		out[roomIDs[i]] = room.PriceRange{
			RoomID:             roomIDs[i],
			Min30:              rec.Min30,
			Max30:              rec.Max30,
			Avg30:              rec.Avg30,
			Min90:              rec.Min90,
			Max90:              rec.Max90,
			Avg90:              rec.Avg90,
			MonthlyMultipliers: rec.MonthlyMultipliers,
			ComputedAt:         rec.ComputedAt,
			ValidUntil:         rec.ValidUntil,
		}
	}
	return out, nil
}

// InvalidateAll drops every cached range, scanning rather than blocking the
// server with KEYS.
func (s *PriceRangeStore) InvalidateAll(ctx context.Context) (int, error) {
	var (
		cursor  uint64
		deleted int
	)
	for {
		keys, next, err := s.client.Scan(ctx, cursor, "pricerange:room:*", 500).Result()
		if err != nil {
			return deleted, errs.Cache(errs.Wrap(err, "scan price ranges"))
		}
		if len(keys) > 0 {
			n, err := s.client.Del(ctx, keys...).Result()
			if err != nil {
				return deleted, errs.Cache(errs.Wrap(err, "delete price ranges"))
			}
			deleted += int(n)
		}
		if next == 0 {
			return deleted, nil
		}
		cursor = next
	}
}
