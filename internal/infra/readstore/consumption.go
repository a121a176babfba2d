package readstore

import (
	"context"
	"time"

	"roombook/internal/domain/availability"
	"roombook/internal/domain/booking"
	"roombook/internal/infra"
	"roombook/internal/infra/db"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"
)

// ConsumptionReadStore loads every hold that consumes units. Each hold is
// counted once: a reserved booking through its active reservation, a
// confirmed one through the booking row, and a shadow lock only when no
// active reservation backs it.
type ConsumptionReadStore struct {
	db db.DBTX
}

func NewConsumptionReadStore(db db.DBTX) *ConsumptionReadStore {
	return &ConsumptionReadStore{db: db}
}

func (s *ConsumptionReadStore) Holds(ctx context.Context, roomIDs []uuid.UUID, start, end, now time.Time) ([]availability.Hold, error) {
	if len(roomIDs) == 0 {
		return nil, nil
	}
	ids := idStrings(roomIDs)

	bookings := pg.From(goqu.T("bookings").As("b")).
		Select(goqu.I("b.room_id"), goqu.I("b.check_in"), goqu.I("b.check_out"), goqu.I("b.quantity")).
		Where(
			goqu.I("b.room_id").In(ids),
			goqu.I("b.status").In(string(booking.StatusConfirmed), string(booking.StatusCheckedIn)),
			goqu.I("b.check_in").Lt(end),
			goqu.I("b.check_out").Gt(start),
		)

	reservations := pg.From(goqu.T("booking_reservations").As("r")).
		Join(goqu.T("bookings").As("b"), goqu.On(goqu.I("b.id").Eq(goqu.I("r.booking_id")))).
		Select(goqu.I("r.room_id"), goqu.I("b.check_in"), goqu.I("b.check_out"), goqu.I("b.quantity")).
		Where(
			goqu.I("r.room_id").In(ids),
			goqu.I("r.status").Eq(string(booking.ReservationActive)),
			goqu.I("r.expires_at").Gt(now),
			goqu.I("b.check_in").Lt(end),
			goqu.I("b.check_out").Gt(start),
		)

	orphanLocks := pg.From(goqu.T("booking_availability_locks").As("l")).
		LeftJoin(goqu.T("booking_reservations").As("r"), goqu.On(
			goqu.I("r.id").Eq(goqu.I("l.reservation_id")),
			goqu.I("r.status").Eq(string(booking.ReservationActive)),
			goqu.I("r.expires_at").Gt(now),
		)).
		Select(goqu.I("l.room_id"), goqu.I("l.date"), goqu.L("l.date + 1"), goqu.I("l.quantity")).
		Where(
			goqu.I("l.room_id").In(ids),
			goqu.I("l.is_active").IsTrue(),
			goqu.I("l.expires_at").Gt(now),
			goqu.I("l.date").Gte(start),
			goqu.I("l.date").Lt(end),
			goqu.I("r.id").IsNull(),
		)

	var holds []availability.Hold
	for _, q := range []struct {
		ds     *goqu.SelectDataset
		source availability.HoldSource
	}{
		{ds: bookings, source: availability.SourceBooking},
		{ds: reservations, source: availability.SourceReservation},
		{ds: orphanLocks, source: availability.SourceLock},
	} {
		got, err := s.collect(ctx, q.ds, q.source)
		if err != nil {
			return nil, err
		}
		holds = append(holds, got...)
	}
	return holds, nil
}

func (s *ConsumptionReadStore) collect(ctx context.Context, ds *goqu.SelectDataset, source availability.HoldSource) ([]availability.Hold, error) {
	query, args, err := ds.Prepared(true).ToSQL()
	if err != nil {
		return nil, infra.WrapRepoErr("failed to build consumption query", err)
	}
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to query consumption", err)
	}
	defer rows.Close()

	var out []availability.Hold
	for rows.Next() {
		h := availability.Hold{Source: source}
		if err := rows.Scan(&h.RoomID, &h.Start, &h.End, &h.Quantity); err != nil {
			return nil, infra.WrapRepoErr("failed to scan hold", err)
		}
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to iterate holds", err)
	}
	return out, nil
}
