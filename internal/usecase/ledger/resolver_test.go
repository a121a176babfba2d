//go:build unit

package ledger_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"roombook/internal/pkg/clock"
	"roombook/internal/pkg/dates"
	"roombook/internal/pkg/errs"
	"roombook/internal/testutil/builder"
	"roombook/internal/testutil/fake"
	"roombook/internal/usecase/ledger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSource struct {
	asked [][]uuid.UUID
	out   map[uuid.UUID]int
	err   error
}

func (s *recordingSource) MinAvailable(ctx context.Context, roomIDs []uuid.UUID, start, end time.Time) (map[uuid.UUID]int, error) {
	s.asked = append(s.asked, roomIDs)
	if s.err != nil {
		return nil, s.err
	}
	out := map[uuid.UUID]int{}
	for _, id := range roomIDs {
		if v, ok := s.out[id]; ok {
			out[id] = v
		}
	}
	return out, nil
}

func TestResolver_MinAvailable(t *testing.T) {
	ctx := context.Background()
	roomA, roomB, roomC := uuid.New(), uuid.New(), uuid.New()

	testCases := []struct {
		name          string
		primary       *recordingSource
		fallback      *recordingSource
		ask           []uuid.UUID
		want          map[uuid.UUID]int
		wantFallback  []uuid.UUID
		expectedError bool
	}{
		{
			name:     "success: every room answered by the ledger",
			primary:  &recordingSource{out: map[uuid.UUID]int{roomA: 2, roomB: 0}},
			fallback: &recordingSource{},
			ask:      []uuid.UUID{roomA, roomB},
			want:     map[uuid.UUID]int{roomA: 2, roomB: 0},
		},
		{
			name:         "success: omitted rooms are computed, never assumed free",
			primary:      &recordingSource{out: map[uuid.UUID]int{roomA: 2}},
			fallback:     &recordingSource{out: map[uuid.UUID]int{roomB: 1, roomC: 0}},
			ask:          []uuid.UUID{roomA, roomB, roomC},
			want:         map[uuid.UUID]int{roomA: 2, roomB: 1, roomC: 0},
			wantFallback: []uuid.UUID{roomB, roomC},
		},
		{
			name:         "success: ledger outage degrades to computation",
			primary:      &recordingSource{err: errs.Cache(errors.New("connection refused"))},
			fallback:     &recordingSource{out: map[uuid.UUID]int{roomA: 1}},
			ask:          []uuid.UUID{roomA},
			want:         map[uuid.UUID]int{roomA: 1},
			wantFallback: []uuid.UUID{roomA},
		},
		{
			name:         "success: duplicate ids are asked once",
			primary:      &recordingSource{},
			fallback:     &recordingSource{out: map[uuid.UUID]int{roomA: 1}},
			ask:          []uuid.UUID{roomA, roomA},
			want:         map[uuid.UUID]int{roomA: 1},
			wantFallback: []uuid.UUID{roomA},
		},
		{
			name:          "error: fallback failure surfaces",
			primary:       &recordingSource{err: errors.New("timeout")},
			fallback:      &recordingSource{err: errs.Persistence(errors.New("db down"))},
			ask:           []uuid.UUID{roomA},
			wantFallback:  []uuid.UUID{roomA},
			expectedError: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			resolver := ledger.NewResolver(tc.primary, tc.fallback)

			got, err := resolver.MinAvailable(ctx, tc.ask, d1, d3)

			if tc.expectedError {
				require.Error(t, err)
				assert.True(t, errs.Is(err, errs.ErrPersistenceFailure))
			} else {
				require.NoError(t, err)
				assert.Equal(t, tc.want, got)
			}
			if tc.wantFallback == nil {
				assert.Empty(t, tc.fallback.asked)
			} else {
				require.Len(t, tc.fallback.asked, 1)
				assert.ElementsMatch(t, tc.wantFallback, tc.fallback.asked[0])
			}
		})
	}
}

func TestResolver_WithLedgerAndStore(t *testing.T) {
	ctx := context.Background()
	store := fake.NewStore()
	cache := fake.NewLedger()
	clk := clock.NewMockClock(now)
	l := ledger.NewLedger(store, cache, clk)
	resolver := ledger.NewResolver(ledger.NewCacheSource(l), ledger.NewRelationalSource(store, clk))

	warm := builder.NewRoomBuilder().WithUnits(4).BuildDomain()
	cold := builder.NewRoomBuilder().WithUnits(3).BuildDomain()
	store.AddRoom(warm)
	store.AddRoom(cold)
	store.PutBooking(confirmedBooking(cold.ID(), d1, d2, 2))
	cache.Set(warm.ID(), dates.Key(d1), 4)
	cache.Set(warm.ID(), dates.Key(d2), 3)

	got, err := resolver.MinAvailable(ctx, []uuid.UUID{warm.ID(), cold.ID(), uuid.New()}, d1, d3)

	require.NoError(t, err)
	assert.Equal(t, map[uuid.UUID]int{warm.ID(): 3, cold.ID(): 1}, got, "unknown rooms are left out")
	assert.Equal(t, 1, cache.Reads)
}
