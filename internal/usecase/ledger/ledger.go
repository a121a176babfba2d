// Package ledger keeps the cache-resident per-room, per-date availability
// counts and resolves reads against them with a relational fallback.
package ledger

import (
	"context"
	"log/slog"
	"time"

	"roombook/internal/domain/availability"
	"roombook/internal/domain/room"
	"roombook/internal/pkg/clock"
	"roombook/internal/pkg/dates"
	"roombook/internal/pkg/errs"
	"roombook/internal/usecase/shared"

	"github.com/google/uuid"
)

const generateBatchSize = 200

type Ledger struct {
	uow   shared.UnitOfWork
	store shared.LedgerStore
	clock clock.Clock
}

func NewLedger(uow shared.UnitOfWork, store shared.LedgerStore, clk clock.Clock) *Ledger {
	return &Ledger{uow: uow, store: store, clock: clk}
}

// GenerateLedger recomputes every active room over [start, end) and writes
// zeros for inactive ones, so a room closed since the last run stops
// reporting units. It returns the number of rooms written. A room that fails
// to save is logged and skipped; the returned error then reports the first
// failure.
func (l *Ledger) GenerateLedger(ctx context.Context, start, end time.Time) (int, error) {
	reads := l.uow.Reads()
	ids, err := reads.ActiveRoomIDs(ctx)
	if err != nil {
		return 0, errs.Persistence(errs.Wrap(err, "list active rooms"))
	}

	var (
		written  int
		firstErr error
	)
	for from := 0; from < len(ids); from += generateBatchSize {
		to := min(from+generateBatchSize, len(ids))
		perRoom, err := Compute(ctx, reads, ids[from:to], start, end, l.clock.Now())
		if err != nil {
			return written, err
		}
		for _, id := range ids[from:to] {
			perDate, ok := perRoom[id]
			if !ok {
				continue
			}
			if err := l.store.Save(ctx, id, perDate); err != nil {
				slog.Warn("ledger save failed", "room_id", id, "error", err)
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
			written++
		}
	}

	closedIDs, err := reads.InactiveRoomIDs(ctx)
	if err != nil {
		return written, errs.Persistence(errs.Wrap(err, "list inactive rooms"))
	}
	closed := make(map[string]int)
	for _, k := range dates.Keys(start, end) {
		closed[k] = 0
	}
	for _, id := range closedIDs {
		if err := l.store.Save(ctx, id, closed); err != nil {
			slog.Warn("ledger save failed", "room_id", id, "error", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		written++
	}

	slog.Info("ledger generated",
		"rooms", written,
		"of", len(ids)+len(closedIDs),
		"closed", len(closedIDs),
		"from", dates.Key(start),
		"to", dates.Key(end))
	return written, firstErr
}

// WarmupRoom recomputes one room synchronously so the next read sees the
// current value.
func (l *Ledger) WarmupRoom(ctx context.Context, roomID uuid.UUID, start, end time.Time) error {
	perRoom, err := Compute(ctx, l.uow.Reads(), []uuid.UUID{roomID}, start, end, l.clock.Now())
	if err != nil {
		return err
	}
	perDate, ok := perRoom[roomID]
	if !ok {
		return errs.NotFound(errs.Newf("room %s not found", roomID))
	}
	return l.store.Save(ctx, roomID, perDate)
}

// TryGetMinAvailable reads the worst night of [start, end) per room from the
// cache. Rooms missing any date are omitted: treat them as unknown.
func (l *Ledger) TryGetMinAvailable(ctx context.Context, roomIDs []uuid.UUID, start, end time.Time) (map[uuid.UUID]int, error) {
	return l.store.MinAvailable(ctx, roomIDs, dates.Keys(start, end))
}

// Compute evaluates available units per date for each existing room from the
// relational store. Inactive rooms report zero everywhere.
func Compute(ctx context.Context, reads shared.Reads, roomIDs []uuid.UUID, start, end, now time.Time) (map[uuid.UUID]map[string]int, error) {
	out := make(map[uuid.UUID]map[string]int, len(roomIDs))
	if len(roomIDs) == 0 {
		return out, nil
	}

	rooms, err := reads.RoomsByIDs(ctx, roomIDs)
	if err != nil {
		return nil, errs.Persistence(errs.Wrap(err, "load rooms"))
	}
	overrides, err := reads.Overrides(ctx, roomIDs, start, end)
	if err != nil {
		return nil, errs.Persistence(errs.Wrap(err, "load overrides"))
	}
	holds, err := reads.Holds(ctx, roomIDs, start, end, now)
	if err != nil {
		return nil, errs.Persistence(errs.Wrap(err, "load holds"))
	}

	holdsByRoom := make(map[uuid.UUID][]availability.Hold, len(rooms))
	for _, h := range holds {
		holdsByRoom[h.RoomID] = append(holdsByRoom[h.RoomID], h)
	}
	overridesByRoom := make(map[uuid.UUID][]room.Override, len(rooms))
	for _, o := range overrides {
		overridesByRoom[o.RoomID] = append(overridesByRoom[o.RoomID], o)
	}

	for _, r := range rooms {
		if !r.IsActive() {
			closed := make(map[string]int)
			for _, k := range dates.Keys(start, end) {
				closed[k] = 0
			}
			out[r.ID()] = closed
			continue
		}
		capacity := availability.NewCapacity(r, overridesByRoom[r.ID()])
		out[r.ID()] = availability.Compute(capacity, holdsByRoom[r.ID()], start, end)
	}
	return out, nil
}
