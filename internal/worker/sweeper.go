package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"roombook/internal/pkg/clock"
	"roombook/internal/pkg/config"
	"roombook/internal/usecase/commands"
)

type ExpiryJob interface {
	CleanupExpiredReservations(ctx context.Context) (commands.SweepReport, error)
}

type ReconciliationJob interface {
	SynchronizePaymentStatus(ctx context.Context) (commands.SweepReport, error)
}

type LedgerJob interface {
	GenerateLedger(ctx context.Context, start, end time.Time) (int, error)
}

type PriceRangeJob interface {
	UpdateAll(ctx context.Context) (int, error)
}

// Sweeper runs the background maintenance loops. Each loop has its own
// ticker and never overlaps with itself; different loops may run at the
// same time because every job is idempotent per row.
type Sweeper struct {
	expiry      ExpiryJob
	reconcile   ReconciliationJob
	ledger      LedgerJob
	prices      PriceRangeJob
	cfg         config.WorkerConfig
	horizonDays int
	clock       clock.Clock

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewSweeper(
	expiry ExpiryJob,
	reconcile ReconciliationJob,
	ledger LedgerJob,
	prices PriceRangeJob,
	workerCfg config.WorkerConfig,
	bookingCfg config.BookingConfig,
	clk clock.Clock,
) *Sweeper {
	return &Sweeper{
		expiry:      expiry,
		reconcile:   reconcile,
		ledger:      ledger,
		prices:      prices,
		cfg:         workerCfg,
		horizonDays: bookingCfg.LedgerHorizonDays,
		clock:       clk,
	}
}

// Start launches the loops in the background. They run until Stop is
// called or parent is cancelled.
func (s *Sweeper) Start(parent context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(parent)
	s.cancel = cancel

	s.spawn(ctx, "expiry", s.cfg.ExpiryInterval, s.RunExpiry)
	s.spawn(ctx, "reconciliation", s.cfg.ReconciliationInterval, s.RunReconciliation)
	s.spawn(ctx, "ledger", s.cfg.LedgerInterval, s.RunLedger)
	slog.Info("sweeper started",
		"expiry_interval", s.cfg.ExpiryInterval.String(),
		"reconciliation_interval", s.cfg.ReconciliationInterval.String(),
		"ledger_interval", s.cfg.LedgerInterval.String())
}

// Stop cancels the loops and waits for the running pass to return, or for
// ctx to end.
func (s *Sweeper) Stop(ctx context.Context) error {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		slog.Info("sweeper stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Sweeper) RunExpiry(ctx context.Context) error {
	_, err := s.expiry.CleanupExpiredReservations(ctx)
	return err
}

func (s *Sweeper) RunReconciliation(ctx context.Context) error {
	_, err := s.reconcile.SynchronizePaymentStatus(ctx)
	return err
}

// RunLedger regenerates the availability ledger from today through the
// horizon, then refreshes the price ranges.
func (s *Sweeper) RunLedger(ctx context.Context) error {
	start := clock.Today(s.clock)
	end := start.AddDate(0, 0, s.horizonDays)
	rooms, err := s.ledger.GenerateLedger(ctx, start, end)
	if err != nil {
		slog.Warn("ledger regeneration incomplete", "rooms", rooms, "error", err)
	}
	if _, perr := s.prices.UpdateAll(ctx); perr != nil && err == nil {
		err = perr
	}
	return err
}

func (s *Sweeper) spawn(ctx context.Context, name string, interval time.Duration, run func(context.Context) error) {
	if interval <= 0 {
		slog.Warn("sweeper loop disabled", "loop", name)
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		loop(ctx, name, interval, run)
	}()
}

// loop runs one pass immediately and then on every tick. A slow pass
// delays the next tick instead of queueing extra ones.
func loop(ctx context.Context, name string, interval time.Duration, run func(context.Context) error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		pass(ctx, name, run)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func pass(ctx context.Context, name string, run func(context.Context) error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("sweeper pass panicked", "loop", name, "panic", r)
		}
	}()
	started := time.Now()
	if err := run(ctx); err != nil && ctx.Err() == nil {
		slog.Error("sweeper pass failed", "loop", name, "error", err)
		return
	}
	slog.Debug("sweeper pass done", "loop", name, "elapsed", time.Since(started).String())
}
