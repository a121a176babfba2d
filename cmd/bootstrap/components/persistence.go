package components

import (
	"roombook/internal/handler/api"
	"roombook/internal/infra/cache"
	"roombook/internal/infra/db"
	"roombook/internal/infra/payment"
	"roombook/internal/infra/readstore"
	"roombook/internal/infra/uow"
	"roombook/internal/pkg/config"
	"roombook/internal/usecase/queries"
	"roombook/internal/usecase/shared"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
)

var PersistenceModule = fx.Module("persistence",
	baseOption,
	readstoreModule,
	cacheModule,
	gatewayModule,
)

var baseOption = fx.Provide(
	NewDBTX,
	uow.NewPostgresUoW,
)

var readstoreModule = fx.Module("persistence/readstore",
	fx.Provide(
		fx.Annotate(
			readstore.NewBookingReadStore,
			fx.As(new(queries.BookingReadStore)),
		),
	),
)

var cacheModule = fx.Module("persistence/cache",
	fx.Provide(
		fx.Annotate(
			cache.NewRangeLocker,
			fx.As(new(shared.RangeLocker)),
		),
		fx.Annotate(
			NewLedgerStore,
			fx.As(new(shared.LedgerStore)),
		),
		fx.Annotate(
			cache.NewPriceRangeStore,
			fx.As(new(shared.PriceRangeStore)),
		),
	),
)

var gatewayModule = fx.Module("persistence/payment",
	fx.Provide(
		fx.Annotate(
			payment.NewGateway,
			fx.As(new(shared.PaymentGateway)),
		),
		fx.Annotate(
			payment.NewWebhookVerifier,
			fx.As(new(api.WebhookVerifier)),
		),
	),
)

func NewDBTX(pool *pgxpool.Pool) db.DBTX {
	return pool
}

func NewLedgerStore(client redis.UniversalClient, cfg config.BookingConfig) *cache.LedgerStore {
	return cache.NewLedgerStore(client, cfg.LedgerTTL)
}
