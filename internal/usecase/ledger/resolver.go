package ledger

import (
	"context"
	"log/slog"
	"time"

	"roombook/internal/domain/availability"
	"roombook/internal/pkg/clock"
	"roombook/internal/pkg/dates"
	"roombook/internal/usecase/shared"

	"github.com/google/uuid"
)

// MinSource answers "fewest units free on any night of [start, end)" for a
// set of rooms. A source may omit rooms it cannot answer for.
type MinSource interface {
	MinAvailable(ctx context.Context, roomIDs []uuid.UUID, start, end time.Time) (map[uuid.UUID]int, error)
}

// CacheSource reads the ledger.
type CacheSource struct {
	ledger *Ledger
}

func NewCacheSource(l *Ledger) *CacheSource {
	return &CacheSource{ledger: l}
}

func (s *CacheSource) MinAvailable(ctx context.Context, roomIDs []uuid.UUID, start, end time.Time) (map[uuid.UUID]int, error) {
	return s.ledger.TryGetMinAvailable(ctx, roomIDs, start, end)
}

// RelationalSource computes from the source of truth. It omits only rooms
// that do not exist.
type RelationalSource struct {
	uow   shared.UnitOfWork
	clock clock.Clock
}

func NewRelationalSource(uow shared.UnitOfWork, clk clock.Clock) *RelationalSource {
	return &RelationalSource{uow: uow, clock: clk}
}

func (s *RelationalSource) MinAvailable(ctx context.Context, roomIDs []uuid.UUID, start, end time.Time) (map[uuid.UUID]int, error) {
	perRoom, err := Compute(ctx, s.uow.Reads(), roomIDs, start, end, s.clock.Now())
	if err != nil {
		return nil, err
	}
	keys := dates.Keys(start, end)
	out := make(map[uuid.UUID]int, len(perRoom))
	for id, perDate := range perRoom {
		if m, ok := availability.MinOver(perDate, keys); ok {
			out[id] = m
		}
	}
	return out, nil
}

// Resolver asks the primary source first and sends every room it could not
// answer to the fallback. Primary failures are logged and never surface.
type Resolver struct {
	primary  MinSource
	fallback MinSource
}

func NewResolver(primary, fallback MinSource) *Resolver {
	return &Resolver{primary: primary, fallback: fallback}
}

func (r *Resolver) MinAvailable(ctx context.Context, roomIDs []uuid.UUID, start, end time.Time) (map[uuid.UUID]int, error) {
	roomIDs = uniqueIDs(roomIDs)
	out := make(map[uuid.UUID]int, len(roomIDs))
	if len(roomIDs) == 0 {
		return out, nil
	}

	cached, err := r.primary.MinAvailable(ctx, roomIDs, start, end)
	if err != nil {
		slog.Warn("ledger read failed, computing from store", "rooms", len(roomIDs), "error", err)
		cached = nil
	}

	var missing []uuid.UUID
	for _, id := range roomIDs {
		if v, ok := cached[id]; ok {
			out[id] = v
			continue
		}
		missing = append(missing, id)
	}
	if len(missing) == 0 {
		return out, nil
	}

	computed, err := r.fallback.MinAvailable(ctx, missing, start, end)
	if err != nil {
		return nil, err
	}
	for id, v := range computed {
		out[id] = v
	}
	return out, nil
}

func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
