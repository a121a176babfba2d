//go:build unit

package worker_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"roombook/internal/pkg/clock"
	"roombook/internal/pkg/config"
	"roombook/internal/usecase/commands"
	"roombook/internal/worker"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type jobs struct {
	expiryCalls    atomic.Int32
	reconcileCalls atomic.Int32
	ledgerCalls    atomic.Int32
	priceCalls     atomic.Int32

	mu         sync.Mutex
	ranges     [][2]time.Time
	ledgerErr  error
	priceErr   error
	expiryHook func(ctx context.Context)
}

func (j *jobs) CleanupExpiredReservations(ctx context.Context) (commands.SweepReport, error) {
	j.expiryCalls.Add(1)
	if j.expiryHook != nil {
		j.expiryHook(ctx)
	}
	return commands.SweepReport{}, nil
}

func (j *jobs) SynchronizePaymentStatus(context.Context) (commands.SweepReport, error) {
	j.reconcileCalls.Add(1)
	return commands.SweepReport{}, nil
}

func (j *jobs) GenerateLedger(_ context.Context, start, end time.Time) (int, error) {
	j.ledgerCalls.Add(1)
	j.mu.Lock()
	defer j.mu.Unlock()
	j.ranges = append(j.ranges, [2]time.Time{start, end})
	return 1, j.ledgerErr
}

func (j *jobs) UpdateAll(context.Context) (int, error) {
	j.priceCalls.Add(1)
	return 1, j.priceErr
}

var now = time.Date(2026, 2, 20, 12, 30, 0, 0, time.UTC)

func newSweeper(j *jobs, cfg config.WorkerConfig) *worker.Sweeper {
	return worker.NewSweeper(j, j, j, j, cfg, config.BookingConfig{LedgerHorizonDays: 90}, clock.NewMockClock(now))
}

// =============================================================================
// RunLedger
// =============================================================================

func TestSweeper_RunLedger(t *testing.T) {
	ctx := context.Background()

	t.Run("success: today through the horizon, then price ranges", func(t *testing.T) {
		j := &jobs{}
		s := newSweeper(j, config.WorkerConfig{})

		require.NoError(t, s.RunLedger(ctx))

		today := time.Date(2026, 2, 20, 0, 0, 0, 0, time.UTC)
		require.Len(t, j.ranges, 1)
		assert.Equal(t, today, j.ranges[0][0])
		assert.Equal(t, today.AddDate(0, 0, 90), j.ranges[0][1])
		assert.EqualValues(t, 1, j.priceCalls.Load())
	})

	t.Run("error: ledger failure still refreshes price ranges", func(t *testing.T) {
		j := &jobs{ledgerErr: errors.New("cache down")}
		s := newSweeper(j, config.WorkerConfig{})

		err := s.RunLedger(ctx)

		require.Error(t, err)
		assert.EqualValues(t, 1, j.priceCalls.Load())
	})

	t.Run("error: price range failure is reported", func(t *testing.T) {
		j := &jobs{priceErr: errors.New("db down")}
		s := newSweeper(j, config.WorkerConfig{})

		assert.Error(t, s.RunLedger(ctx))
	})
}

// =============================================================================
// Start / Stop
// =============================================================================

func TestSweeper_StartStop(t *testing.T) {
	t.Run("success: every loop ticks independently", func(t *testing.T) {
		j := &jobs{}
		s := newSweeper(j, config.WorkerConfig{
			ExpiryInterval:         5 * time.Millisecond,
			ReconciliationInterval: 5 * time.Millisecond,
			LedgerInterval:         time.Hour,
		})

		s.Start(context.Background())
		require.Eventually(t, func() bool {
			return j.expiryCalls.Load() >= 3 && j.reconcileCalls.Load() >= 3
		}, 2*time.Second, 5*time.Millisecond)
		require.NoError(t, s.Stop(context.Background()))

		assert.EqualValues(t, 1, j.ledgerCalls.Load(), "the hourly loop only ran its first pass")
		stopped := j.expiryCalls.Load()
		time.Sleep(20 * time.Millisecond)
		assert.Equal(t, stopped, j.expiryCalls.Load())
	})

	t.Run("success: zero interval disables a loop", func(t *testing.T) {
		j := &jobs{}
		s := newSweeper(j, config.WorkerConfig{ExpiryInterval: 5 * time.Millisecond})

		s.Start(context.Background())
		require.Eventually(t, func() bool { return j.expiryCalls.Load() >= 1 }, time.Second, 5*time.Millisecond)
		require.NoError(t, s.Stop(context.Background()))

		assert.Zero(t, j.reconcileCalls.Load())
		assert.Zero(t, j.ledgerCalls.Load())
	})

	t.Run("success: a panicking pass does not kill the loop", func(t *testing.T) {
		var first atomic.Bool
		j := &jobs{expiryHook: func(context.Context) {
			if first.CompareAndSwap(false, true) {
				panic("boom")
			}
		}}
		s := newSweeper(j, config.WorkerConfig{ExpiryInterval: 5 * time.Millisecond})

		s.Start(context.Background())
		require.Eventually(t, func() bool { return j.expiryCalls.Load() >= 2 }, time.Second, 5*time.Millisecond)
		require.NoError(t, s.Stop(context.Background()))
	})

	t.Run("success: stop without start", func(t *testing.T) {
		s := newSweeper(&jobs{}, config.WorkerConfig{})
		assert.NoError(t, s.Stop(context.Background()))
	})

	t.Run("error: stop gives up when its context ends first", func(t *testing.T) {
		release := make(chan struct{})
		j := &jobs{expiryHook: func(context.Context) { <-release }}
		s := newSweeper(j, config.WorkerConfig{ExpiryInterval: time.Hour})
		s.Start(context.Background())
		require.Eventually(t, func() bool { return j.expiryCalls.Load() == 1 }, time.Second, time.Millisecond)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		err := s.Stop(ctx)

		assert.ErrorIs(t, err, context.DeadlineExceeded)
		close(release)
	})
}
