package components

import (
	"roombook/internal/domain/booking"
	"roombook/internal/pkg/clock"
	"roombook/internal/pkg/config"
	"roombook/internal/usecase"
	"roombook/internal/usecase/commands"
	"roombook/internal/usecase/ledger"
	"roombook/internal/usecase/pricecache"
	"roombook/internal/usecase/queries"
	"roombook/internal/usecase/shared"

	"go.uber.org/fx"
)

var UseCaseModule = fx.Module("usecase",
	usecaseBaseOption,
	usecaseCacheModule,
	usecaseQueriesModule,
	usecaseValidatorsModule,
	usecaseCommandsModule,
)

var usecaseBaseOption = fx.Provide(
	clock.NewRealClock,
	func(cfg config.BookingConfig) *booking.PriceCalculator {
		return booking.NewPriceCalculator(cfg.TaxRate, cfg.ServiceFeeRate)
	},
	func(clk clock.Clock, calc *booking.PriceCalculator, cfg config.BookingConfig) *booking.Factory {
		return booking.NewFactory(clk, calc, cfg.HoldTimeout, cfg.Currency)
	},
)

var usecaseCacheModule = fx.Module("usecase/cache",
	fx.Provide(
		ledger.NewLedger,
		func(l *ledger.Ledger) commands.LedgerWarmer { return l },
		NewMinSource,
		NewPriceRangeCache,
		func(c *pricecache.Cache) queries.PriceExcluder { return c },
	),
)

var usecaseCommandsModule = fx.Module("usecase/commands",
	fx.Provide(
		commands.NewBookingUseCase,
		commands.NewPaymentUseCase,
		commands.NewMaintenanceUseCase,
	),
)

var usecaseQueriesModule = fx.Module("usecase/queries",
	fx.Provide(
		queries.NewBookingQueries,
		queries.NewAvailabilityQueries,
	),
)

var usecaseValidatorsModule = fx.Module("usecase/validators",
	fx.Provide(
		usecase.NewTokenValidator,
	),
)

// NewMinSource answers from the ledger and recomputes whatever it misses.
func NewMinSource(l *ledger.Ledger, uow shared.UnitOfWork, clk clock.Clock) ledger.MinSource {
	return ledger.NewResolver(ledger.NewCacheSource(l), ledger.NewRelationalSource(uow, clk))
}

func NewPriceRangeCache(uow shared.UnitOfWork, store shared.PriceRangeStore, clk clock.Clock, cfg config.BookingConfig) *pricecache.Cache {
	return pricecache.NewCache(uow, store, clk, cfg.PriceCacheValidity, cfg.PriceCacheWindowDays)
}
