package components

import (
	"context"
	"log/slog"

	"roombook/internal/infra/messaging"
	"roombook/internal/pkg/clock"
	"roombook/internal/pkg/config"
	"roombook/internal/usecase/commands"
	"roombook/internal/usecase/ledger"
	"roombook/internal/usecase/pricecache"
	"roombook/internal/worker"

	"go.uber.org/fx"
)

var WorkerModule = fx.Module("worker",
	fx.Provide(
		NewSweeper,
	),
	fx.Invoke(
		StartSweeper,
		StartPaymentConsumer,
	),
)

func NewSweeper(
	maintenance commands.MaintenanceCommands,
	payments commands.PaymentCommands,
	l *ledger.Ledger,
	prices *pricecache.Cache,
	cfg config.Config,
	clk clock.Clock,
) *worker.Sweeper {
	return worker.NewSweeper(maintenance, payments, l, prices, cfg.Worker, cfg.Booking, clk)
}

func StartSweeper(lc fx.Lifecycle, s *worker.Sweeper, cfg config.WorkerConfig) {
	if !cfg.Enabled {
		slog.Info("background sweeper disabled")
		return
	}
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			s.Start(context.Background())
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return s.Stop(ctx)
		},
	})
}

func StartPaymentConsumer(lc fx.Lifecycle, cfg config.KafkaConfig, payments commands.PaymentCommands) {
	if !cfg.Enabled {
		slog.Info("payment consumer disabled")
		return
	}
	consumer := messaging.NewPaymentConsumer(cfg, payments)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			go func() {
				defer close(done)
				if err := consumer.Run(ctx); err != nil && ctx.Err() == nil {
					slog.Error("payment consumer exited", "error", err)
				}
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-done:
			case <-stopCtx.Done():
				slog.Warn("payment consumer did not stop in time")
			}
			return consumer.Close()
		},
	})
}
