package readstore

import (
	"context"
	"time"

	"roombook/internal/domain/room"
	"roombook/internal/infra"
	"roombook/internal/infra/db"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var roomColumns = []any{"id", "name", "total_units", "default_price_cents", "max_guests", "is_active", "created_at", "updated_at"}

type RoomReadStore struct {
	db db.DBTX
}

func NewRoomReadStore(db db.DBTX) *RoomReadStore {
	return &RoomReadStore{db: db}
}

func (s *RoomReadStore) FindByID(ctx context.Context, id uuid.UUID) (*room.Room, error) {
	query, args, err := pg.From("rooms").Select(roomColumns...).
		Where(goqu.C("id").Eq(id.String())).
		Prepared(true).ToSQL()
	if err != nil {
		return nil, infra.WrapRepoErr("failed to build room query", err)
	}
	r, err := scanRoom(s.db.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, infra.WrapRepoErr("failed to find room by id", err)
	}
	return r, nil
}

func (s *RoomReadStore) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*room.Room, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := pg.From("rooms").Select(roomColumns...).
		Where(goqu.C("id").In(idStrings(ids))).
		Order(goqu.C("id").Asc()).
		Prepared(true).ToSQL()
	if err != nil {
		return nil, infra.WrapRepoErr("failed to build rooms query", err)
	}
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to list rooms", err)
	}
	defer rows.Close()

	var out []*room.Room
	for rows.Next() {
		r, err := scanRoom(rows)
		if err != nil {
			return nil, infra.WrapRepoErr("failed to scan room", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to iterate rooms", err)
	}
	return out, nil
}

func (s *RoomReadStore) ActiveIDs(ctx context.Context) ([]uuid.UUID, error) {
	return s.idsByActive(ctx, true)
}

func (s *RoomReadStore) InactiveIDs(ctx context.Context) ([]uuid.UUID, error) {
	return s.idsByActive(ctx, false)
}

func (s *RoomReadStore) idsByActive(ctx context.Context, active bool) ([]uuid.UUID, error) {
	query, args, err := pg.From("rooms").Select("id").
		Where(goqu.C("is_active").Eq(active)).
		Order(goqu.C("id").Asc()).
		Prepared(true).ToSQL()
	if err != nil {
		return nil, infra.WrapRepoErr("failed to build room ids query", err)
	}
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to list room ids", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	if err != nil {
		return nil, infra.WrapRepoErr("failed to scan room ids", err)
	}
	return ids, nil
}

func scanRoom(row pgx.Row) (*room.Room, error) {
	var (
		id                   uuid.UUID
		name                 string
		units, maxGuests     int
		price                int64
		active               bool
		createdAt, updatedAt time.Time
	)
	if err := row.Scan(&id, &name, &units, &price, &maxGuests, &active, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	return room.ReconstructRoom(id, name, units, price, maxGuests, active, createdAt, updatedAt), nil
}
