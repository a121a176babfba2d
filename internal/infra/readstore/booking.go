package readstore

import (
	"context"
	"time"

	"roombook/internal/infra"
	"roombook/internal/infra/db"
	"roombook/internal/pkg/dates"
	"roombook/internal/usecase/queries"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var bookingViewColumns = []any{
	goqu.I("b.id"), goqu.I("b.reference"), goqu.I("b.room_id"), goqu.I("b.user_id"),
	goqu.I("b.check_in"), goqu.I("b.check_out"), goqu.I("b.quantity"), goqu.I("b.guests"),
	goqu.I("b.status"), goqu.I("b.payment_status"),
	goqu.I("b.nightly_total_cents"), goqu.I("b.tax_cents"), goqu.I("b.service_fee_cents"), goqu.I("b.total_cents"),
	goqu.I("b.currency"), goqu.I("b.cancel_reason"), goqu.I("b.created_at"), goqu.I("b.updated_at"),
	goqu.I("r.status"), goqu.I("r.expires_at"), goqu.I("r.extension_count"), goqu.I("r.payment_url"),
}

type BookingReadStore struct {
	db db.DBTX
}

func NewBookingReadStore(db db.DBTX) *BookingReadStore {
	return &BookingReadStore{db: db}
}

func bookingViews() *goqu.SelectDataset {
	return pg.From(goqu.T("bookings").As("b")).
		LeftJoin(goqu.T("booking_reservations").As("r"), goqu.On(goqu.I("r.booking_id").Eq(goqu.I("b.id")))).
		Select(bookingViewColumns...)
}

func (s *BookingReadStore) FindByReference(ctx context.Context, reference string) (*queries.BookingView, error) {
	query, args, err := bookingViews().
		Where(goqu.I("b.reference").Eq(reference)).
		Prepared(true).ToSQL()
	if err != nil {
		return nil, infra.WrapRepoErr("failed to build booking query", err)
	}
	v, err := scanBookingView(s.db.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, infra.WrapRepoErr("failed to find booking by reference", err)
	}
	return v, nil
}

// ListByUser pages newest first on (created_at, id). A zero lastCreatedAt
// starts from the first page.
func (s *BookingReadStore) ListByUser(ctx context.Context, userID uuid.UUID, lastCreatedAt time.Time, lastID uuid.UUID, limit int) ([]*queries.BookingView, error) {
	where := []exp.Expression{goqu.I("b.user_id").Eq(userID.String())}
	if !lastCreatedAt.IsZero() {
		where = append(where, goqu.Or(
			goqu.I("b.created_at").Lt(lastCreatedAt),
			goqu.And(goqu.I("b.created_at").Eq(lastCreatedAt), goqu.I("b.id").Lt(lastID.String())),
		))
	}
	query, args, err := bookingViews().
		Where(where...).
		Order(goqu.I("b.created_at").Desc(), goqu.I("b.id").Desc()).
		Limit(uint(limit)).
		Prepared(true).ToSQL()
	if err != nil {
		return nil, infra.WrapRepoErr("failed to build booking list query", err)
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to list bookings", err)
	}
	defer rows.Close()

	var out []*queries.BookingView
	for rows.Next() {
		v, err := scanBookingView(rows)
		if err != nil {
			return nil, infra.WrapRepoErr("failed to scan booking", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to iterate bookings", err)
	}
	return out, nil
}

func scanBookingView(row pgx.Row) (*queries.BookingView, error) {
	var (
		v              queries.BookingView
		extensionCount *int
	)
	if err := row.Scan(
		&v.ID, &v.Reference, &v.RoomID, &v.UserID,
		&v.CheckIn, &v.CheckOut, &v.Quantity, &v.Guests,
		&v.Status, &v.PaymentStatus,
		&v.NightlyTotalCents, &v.TaxCents, &v.ServiceFeeCents, &v.TotalCents,
		&v.Currency, &v.CancelReason, &v.CreatedAt, &v.UpdatedAt,
		&v.HoldStatus, &v.HoldExpiresAt, &extensionCount, &v.PaymentURL,
	); err != nil {
		return nil, err
	}
	v.Nights = dates.Nights(v.CheckIn, v.CheckOut)
	if extensionCount != nil {
		v.ExtensionCount = *extensionCount
	}
	return &v, nil
}
