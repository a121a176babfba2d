package readstore

import (
	"context"
	"time"

	"roombook/internal/domain/room"
	"roombook/internal/infra"
	"roombook/internal/infra/db"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"
)

type PricingReadStore struct {
	db db.DBTX
}

func NewPricingReadStore(db db.DBTX) *PricingReadStore {
	return &PricingReadStore{db: db}
}

// Overrides lists overrides of roomIDs dated within [start, end).
func (s *PricingReadStore) Overrides(ctx context.Context, roomIDs []uuid.UUID, start, end time.Time) ([]room.Override, error) {
	if len(roomIDs) == 0 {
		return nil, nil
	}
	query, args, err := pg.From("availability_overrides").
		Select("room_id", "date", "units", "price_cents").
		Where(
			goqu.C("room_id").In(idStrings(roomIDs)),
			goqu.C("date").Gte(start),
			goqu.C("date").Lt(end),
		).
		Prepared(true).ToSQL()
	if err != nil {
		return nil, infra.WrapRepoErr("failed to build overrides query", err)
	}
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to list overrides", err)
	}
	defer rows.Close()

	var out []room.Override
	for rows.Next() {
		var o room.Override
		if err := rows.Scan(&o.RoomID, &o.Date, &o.Units, &o.PriceCents); err != nil {
			return nil, infra.WrapRepoErr("failed to scan override", err)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to iterate overrides", err)
	}
	return out, nil
}

func (s *PricingReadStore) Rules(ctx context.Context, roomIDs []uuid.UUID) ([]room.PricingRule, error) {
	if len(roomIDs) == 0 {
		return nil, nil
	}
	query, args, err := pg.From("pricing_rules").
		Select("id", "room_id", "kind", "start_date", "end_date", "days_of_week", "price_cents", "priority", "is_active").
		Where(
			goqu.C("room_id").In(idStrings(roomIDs)),
			goqu.C("is_active").IsTrue(),
		).
		Order(goqu.C("priority").Desc(), goqu.C("id").Asc()).
		Prepared(true).ToSQL()
	if err != nil {
		return nil, infra.WrapRepoErr("failed to build pricing rules query", err)
	}
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to list pricing rules", err)
	}
	defer rows.Close()

	var out []room.PricingRule
	for rows.Next() {
		var (
			r    room.PricingRule
			kind string
			days []int32
		)
		if err := rows.Scan(&r.ID, &r.RoomID, &kind, &r.StartDate, &r.EndDate, &days, &r.PriceCents, &r.Priority, &r.IsActive); err != nil {
			return nil, infra.WrapRepoErr("failed to scan pricing rule", err)
		}
		r.Kind = room.RuleKind(kind)
		for _, d := range days {
			r.DaysOfWeek = append(r.DaysOfWeek, time.Weekday(d))
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to iterate pricing rules", err)
	}
	return out, nil
}
