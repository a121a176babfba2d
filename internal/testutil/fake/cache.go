//go:build unit || integration

package fake

import (
	"context"
	"sync"
	"time"

	"roombook/internal/domain/availability"
	"roombook/internal/domain/room"
	"roombook/internal/pkg/clock"
	"roombook/internal/pkg/dates"

	"github.com/google/uuid"
)

// Locker is an in-memory range locker with the same all-or-nothing and
// owner-checked semantics as the Redis one. Expiry follows the clock.
type Locker struct {
	mu    sync.Mutex
	clock clock.Clock
	keys  map[string]lockEntry

	Err      error
	Acquires []LockCall
	Releases []LockCall
	Extends  []LockCall
}

type lockEntry struct {
	token     string
	expiresAt time.Time
}

type LockCall struct {
	RoomID uuid.UUID
	Start  time.Time
	End    time.Time
	Token  string
	TTL    time.Duration
	OK     bool
}

func NewLocker(clk clock.Clock) *Locker {
	return &Locker{clock: clk, keys: map[string]lockEntry{}}
}

func lockKey(roomID uuid.UUID, d time.Time) string {
	return roomID.String() + ":" + dates.Key(d)
}

func (l *Locker) AcquireRange(ctx context.Context, roomID uuid.UUID, start, end time.Time, ttl time.Duration) (string, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.Err != nil {
		return "", false, l.Err
	}
	now := l.clock.Now()
	days := dates.Range(start, end)
	call := LockCall{RoomID: roomID, Start: start, End: end, TTL: ttl}
	for _, d := range days {
		if e, ok := l.keys[lockKey(roomID, d)]; ok && e.expiresAt.After(now) {
			l.Acquires = append(l.Acquires, call)
			return "", false, nil
		}
	}
	token := uuid.NewString()
	for _, d := range days {
		l.keys[lockKey(roomID, d)] = lockEntry{token: token, expiresAt: now.Add(ttl)}
	}
	call.Token, call.OK = token, true
	l.Acquires = append(l.Acquires, call)
	return token, true, nil
}

func (l *Locker) ReleaseRange(ctx context.Context, roomID uuid.UUID, start, end time.Time, token string) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.Err != nil {
		return 0, l.Err
	}
	n := 0
	for _, d := range dates.Range(start, end) {
		k := lockKey(roomID, d)
		if e, ok := l.keys[k]; ok && e.token == token {
			delete(l.keys, k)
			n++
		}
	}
	l.Releases = append(l.Releases, LockCall{RoomID: roomID, Start: start, End: end, Token: token, OK: n > 0})
	return n, nil
}

func (l *Locker) ExtendRange(ctx context.Context, roomID uuid.UUID, start, end time.Time, token string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.Err != nil {
		return false, l.Err
	}
	now := l.clock.Now()
	days := dates.Range(start, end)
	ok := len(days) > 0
	for _, d := range days {
		if e, held := l.keys[lockKey(roomID, d)]; !held || e.token != token || !e.expiresAt.After(now) {
			ok = false
		}
	}
	if ok {
		for _, d := range days {
			l.keys[lockKey(roomID, d)] = lockEntry{token: token, expiresAt: now.Add(ttl)}
		}
	}
	l.Extends = append(l.Extends, LockCall{RoomID: roomID, Start: start, End: end, Token: token, TTL: ttl, OK: ok})
	return ok, nil
}

// Held reports how many dates of the range are currently locked.
func (l *Locker) Held(roomID uuid.UUID, start, end time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.clock.Now()
	n := 0
	for _, d := range dates.Range(start, end) {
		if e, ok := l.keys[lockKey(roomID, d)]; ok && e.expiresAt.After(now) {
			n++
		}
	}
	return n
}

// Ledger is an in-memory ledger store.
type Ledger struct {
	mu      sync.Mutex
	records map[uuid.UUID]map[string]int

	SaveErr error
	ReadErr error
	Reads   int
}

func NewLedger() *Ledger {
	return &Ledger{records: map[uuid.UUID]map[string]int{}}
}

func (l *Ledger) Save(ctx context.Context, roomID uuid.UUID, perDate map[string]int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.SaveErr != nil {
		return l.SaveErr
	}
	rec, ok := l.records[roomID]
	if !ok {
		rec = map[string]int{}
		l.records[roomID] = rec
	}
	for k, v := range perDate {
		rec[k] = v
	}
	return nil
}

func (l *Ledger) MinAvailable(ctx context.Context, roomIDs []uuid.UUID, dateKeys []string) (map[uuid.UUID]int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Reads++
	if l.ReadErr != nil {
		return nil, l.ReadErr
	}
	out := map[uuid.UUID]int{}
	for _, id := range roomIDs {
		if m, ok := availability.MinOver(l.records[id], dateKeys); ok {
			out[id] = m
		}
	}
	return out, nil
}

// Record returns a copy of the stored dates for a room.
func (l *Ledger) Record(roomID uuid.UUID) map[string]int {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := map[string]int{}
	for k, v := range l.records[roomID] {
		out[k] = v
	}
	return out
}

// Set overwrites one stored value, simulating a stale cache.
func (l *Ledger) Set(roomID uuid.UUID, key string, units int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.records[roomID] == nil {
		l.records[roomID] = map[string]int{}
	}
	l.records[roomID][key] = units
}

// PriceRanges is an in-memory price range store.
type PriceRanges struct {
	mu     sync.Mutex
	ranges map[uuid.UUID]room.PriceRange
	TTLs   map[uuid.UUID]time.Duration

	GetErr error
}

func NewPriceRanges() *PriceRanges {
	return &PriceRanges{ranges: map[uuid.UUID]room.PriceRange{}, TTLs: map[uuid.UUID]time.Duration{}}
}

func (p *PriceRanges) Save(ctx context.Context, pr room.PriceRange, ttl time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ranges[pr.RoomID] = pr
	p.TTLs[pr.RoomID] = ttl
	return nil
}

func (p *PriceRanges) GetMany(ctx context.Context, roomIDs []uuid.UUID) (map[uuid.UUID]room.PriceRange, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.GetErr != nil {
		return nil, p.GetErr
	}
	out := map[uuid.UUID]room.PriceRange{}
	for _, id := range roomIDs {
		if pr, ok := p.ranges[id]; ok {
			out[id] = pr
		}
	}
	return out, nil
}

func (p *PriceRanges) InvalidateAll(ctx context.Context) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := len(p.ranges)
	p.ranges = map[uuid.UUID]room.PriceRange{}
	return n, nil
}

func (p *PriceRanges) Get(roomID uuid.UUID) (room.PriceRange, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	pr, ok := p.ranges[roomID]
	return pr, ok
}
