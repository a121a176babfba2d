// Package pricecache maintains rolling nightly price ranges per room, used
// only to drop rooms that cannot match a price filter.
package pricecache

import (
	"context"
	"log/slog"
	"time"

	"roombook/internal/domain/room"
	"roombook/internal/pkg/clock"
	"roombook/internal/pkg/errs"
	"roombook/internal/usecase/shared"

	"github.com/google/uuid"
)

type Cache struct {
	uow        shared.UnitOfWork
	store      shared.PriceRangeStore
	clock      clock.Clock
	validity   time.Duration
	windowDays int
}

func NewCache(uow shared.UnitOfWork, store shared.PriceRangeStore, clk clock.Clock, validity time.Duration, windowDays int) *Cache {
	if windowDays < room.LongWindowDays {
		windowDays = room.LongWindowDays
	}
	return &Cache{uow: uow, store: store, clock: clk, validity: validity, windowDays: windowDays}
}

// Update prices every night of the window for one room and stores the
// summary with its validity deadline.
func (c *Cache) Update(ctx context.Context, roomID uuid.UUID) error {
	reads := c.uow.Reads()
	r, err := reads.RoomByID(ctx, roomID)
	if err != nil {
		return errs.Wrap(err, "load room")
	}
	return c.update(ctx, reads, r)
}

// UpdateAll refreshes every active room, isolating per-room failures.
func (c *Cache) UpdateAll(ctx context.Context) (int, error) {
	reads := c.uow.Reads()
	ids, err := reads.ActiveRoomIDs(ctx)
	if err != nil {
		return 0, errs.Persistence(errs.Wrap(err, "list active rooms"))
	}
	rooms, err := reads.RoomsByIDs(ctx, ids)
	if err != nil {
		return 0, errs.Persistence(errs.Wrap(err, "load rooms"))
	}

	updated := 0
	for _, r := range rooms {
		if err := c.update(ctx, reads, r); err != nil {
			slog.Warn("price range update failed", "room_id", r.ID(), "error", err)
			continue
		}
		updated++
	}
	slog.Info("price ranges updated", "rooms", updated, "of", len(rooms))
	return updated, nil
}

// Rebuild drops every cached range before recomputing, so rooms that were
// deactivated stop carrying a range.
func (c *Cache) Rebuild(ctx context.Context) (int, error) {
	dropped, err := c.store.InvalidateAll(ctx)
	if err != nil {
		slog.Warn("price range invalidation failed", "error", err)
	} else {
		slog.Info("price ranges invalidated", "keys", dropped)
	}
	return c.UpdateAll(ctx)
}

// GetExclusionSet returns the rooms whose cached range cannot satisfy
// [min, max]. Rooms without a fresh range are never excluded, and a cache
// failure excludes nothing.
func (c *Cache) GetExclusionSet(ctx context.Context, min, max *int64, roomIDs []uuid.UUID) []uuid.UUID {
	excluded := []uuid.UUID{}
	if (min == nil && max == nil) || len(roomIDs) == 0 {
		return excluded
	}
	ranges, err := c.store.GetMany(ctx, roomIDs)
	if err != nil {
		slog.Warn("price range read failed, excluding nothing", "rooms", len(roomIDs), "error", err)
		return excluded
	}

	now := c.clock.Now()
	for _, id := range roomIDs {
		pr, ok := ranges[id]
		if ok && pr.CannotMatch(min, max, now) {
			excluded = append(excluded, id)
		}
	}
	return excluded
}

func (c *Cache) update(ctx context.Context, reads shared.Reads, r *room.Room) error {
	now := c.clock.Now()
	start := clock.Today(c.clock)
	end := start.AddDate(0, 0, c.windowDays)
	ids := []uuid.UUID{r.ID()}

	rules, err := reads.PricingRules(ctx, ids)
	if err != nil {
		return errs.Persistence(errs.Wrap(err, "load pricing rules"))
	}
	overrides, err := reads.Overrides(ctx, ids, start, end)
	if err != nil {
		return errs.Persistence(errs.Wrap(err, "load overrides"))
	}

	pricer := room.NewNightlyPricer(r.DefaultPriceCents(), rules, overrides)
	summary := room.SummarizePrices(r.ID(), pricer.Prices(start, end), now, c.validity)
	return c.store.Save(ctx, summary, c.validity)
}
