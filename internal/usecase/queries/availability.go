package queries

import (
	"context"
	"time"

	"roombook/internal/domain/availability"
	"roombook/internal/domain/booking"
	"roombook/internal/domain/room"
	"roombook/internal/infra"
	"roombook/internal/pkg/clock"
	"roombook/internal/pkg/errs"
	"roombook/internal/usecase/ledger"
	"roombook/internal/usecase/shared"

	"github.com/google/uuid"
)

var (
	ErrRoomNotFound      = errs.New("room not found")
	ErrInvalidPriceRange = errs.New("min price cannot exceed max price")
	ErrTooManyRooms      = errs.New("too many rooms in one request")
)

const MaxRoomsPerQuery = 1000

// PriceExcluder is the price range cache's exclusion filter.
type PriceExcluder interface {
	GetExclusionSet(ctx context.Context, min, max *int64, roomIDs []uuid.UUID) []uuid.UUID
}

type AvailabilityQueries interface {
	// CheckAvailability is exact: it reads the relational store, never the ledger.
	CheckAvailability(ctx context.Context, roomID uuid.UUID, checkIn, checkOut time.Time, quantity int) (*AvailabilityView, error)
	GetMinAvailableUnits(ctx context.Context, roomIDs []uuid.UUID, checkIn, checkOut time.Time) (map[uuid.UUID]int, error)
	GetRoomIdsToExcludeByPriceRange(ctx context.Context, min, max *int64, roomIDs []uuid.UUID) ([]uuid.UUID, error)
}

type availabilityQueriesImpl struct {
	uow        shared.UnitOfWork
	minSource  ledger.MinSource
	excluder   PriceExcluder
	calculator *booking.PriceCalculator
	clock      clock.Clock
}

func NewAvailabilityQueries(
	uow shared.UnitOfWork,
	minSource ledger.MinSource,
	excluder PriceExcluder,
	calculator *booking.PriceCalculator,
	clk clock.Clock,
) AvailabilityQueries {
	return &availabilityQueriesImpl{
		uow:        uow,
		minSource:  minSource,
		excluder:   excluder,
		calculator: calculator,
		clock:      clk,
	}
}

func (q *availabilityQueriesImpl) CheckAvailability(ctx context.Context, roomID uuid.UUID, checkIn, checkOut time.Time, quantity int) (*AvailabilityView, error) {
	stay, err := booking.NewStayRange(checkIn, checkOut)
	if err != nil {
		return nil, errs.Validation(err)
	}
	if quantity < 1 {
		return nil, errs.Validation(booking.ErrInvalidQuantity)
	}

	reads := q.uow.Reads()
	r, err := reads.RoomByID(ctx, roomID)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, errs.NotFound(ErrRoomNotFound)
		}
		return nil, errs.Persistence(errs.Wrap(err, "load room"))
	}

	perRoom, err := ledger.Compute(ctx, reads, []uuid.UUID{roomID}, stay.CheckIn(), stay.CheckOut(), q.clock.Now())
	if err != nil {
		return nil, err
	}
	perDate := perRoom[roomID]
	keys := stay.Keys()
	minFree, _ := availability.MinOver(perDate, keys)

	ids := []uuid.UUID{roomID}
	rules, err := reads.PricingRules(ctx, ids)
	if err != nil {
		return nil, errs.Persistence(errs.Wrap(err, "load pricing rules"))
	}
	overrides, err := reads.Overrides(ctx, ids, stay.CheckIn(), stay.CheckOut())
	if err != nil {
		return nil, errs.Persistence(errs.Wrap(err, "load overrides"))
	}
	quote := q.calculator.Quote(room.NewNightlyPricer(r.DefaultPriceCents(), rules, overrides), stay, quantity)

	nights := make([]NightAvailability, len(quote.Nights))
	for i, n := range quote.Nights {
		nights[i] = NightAvailability{Date: keys[i], Units: perDate[keys[i]], PriceCents: n.PriceCents}
	}

	return &AvailabilityView{
		RoomID:            roomID,
		CheckIn:           stay.CheckIn(),
		CheckOut:          stay.CheckOut(),
		Quantity:          quantity,
		Available:         r.IsActive() && minFree >= quantity,
		MinAvailableUnits: minFree,
		Nights:            nights,
		NightlyTotalCents: quote.NightlyTotal.Cents(),
		TaxCents:          quote.Tax.Cents(),
		ServiceFeeCents:   quote.ServiceFee.Cents(),
		TotalCents:        quote.Total.Cents(),
	}, nil
}

// GetMinAvailableUnits answers from the ledger where it can and computes the
// rest. Rooms that do not exist are absent from the result.
func (q *availabilityQueriesImpl) GetMinAvailableUnits(ctx context.Context, roomIDs []uuid.UUID, checkIn, checkOut time.Time) (map[uuid.UUID]int, error) {
	stay, err := booking.NewStayRange(checkIn, checkOut)
	if err != nil {
		return nil, errs.Validation(err)
	}
	if len(roomIDs) > MaxRoomsPerQuery {
		return nil, errs.Validation(ErrTooManyRooms)
	}
	return q.minSource.MinAvailable(ctx, roomIDs, stay.CheckIn(), stay.CheckOut())
}

func (q *availabilityQueriesImpl) GetRoomIdsToExcludeByPriceRange(ctx context.Context, min, max *int64, roomIDs []uuid.UUID) ([]uuid.UUID, error) {
	if min != nil && max != nil && *min > *max {
		return nil, errs.Validation(ErrInvalidPriceRange)
	}
	if len(roomIDs) > MaxRoomsPerQuery {
		return nil, errs.Validation(ErrTooManyRooms)
	}
	return q.excluder.GetExclusionSet(ctx, min, max, roomIDs), nil
}
