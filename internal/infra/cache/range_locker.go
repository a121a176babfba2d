package cache

import (
	"context"
	"fmt"
	"time"

	"roombook/internal/pkg/dates"
	"roombook/internal/pkg/errs"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrInvalidTTL = errs.New("lock ttl must be positive")

// The braces form a cluster hash tag, so every date key of one room lives
// in the same slot and the scripts below can touch them together.
func lockKey(roomID uuid.UUID, date time.Time) string {
	return fmt.Sprintf("lock:room:{%s}:%s", roomID, dates.Key(date))
}

func lockKeys(roomID uuid.UUID, start, end time.Time) []string {
	days := dates.Range(start, end)
	keys := make([]string, len(days))
	for i, d := range days {
		keys[i] = lockKey(roomID, d)
	}
	return keys
}

// ARGV[1] token, ARGV[2] ttl in ms. Checks every key before setting any.
var acquireScript = redis.NewScript(`
for _, key in ipairs(KEYS) do
	if redis.call('EXISTS', key) == 1 then
		return 0
	end
end
for _, key in ipairs(KEYS) do
	redis.call('SET', key, ARGV[1], 'PX', ARGV[2])
end
return 1
`)

// ARGV[1] token. Deletes only keys still owned by the token.
var releaseScript = redis.NewScript(`
local released = 0
for _, key in ipairs(KEYS) do
	if redis.call('GET', key) == ARGV[1] then
		redis.call('DEL', key)
		released = released + 1
	end
end
return released
`)

// ARGV[1] token, ARGV[2] ttl in ms. All keys must still be owned.
var extendScript = redis.NewScript(`
for _, key in ipairs(KEYS) do
	if redis.call('GET', key) ~= ARGV[1] then
		return 0
	end
end
for _, key in ipairs(KEYS) do
	redis.call('PEXPIRE', key, ARGV[2])
end
return 1
`)

// RangeLocker holds one key per (room, date). Keys expire on their own, so a
// crashed holder never blocks a room for longer than the ttl.
type RangeLocker struct {
	client redis.UniversalClient
	tokens func() string
}

func NewRangeLocker(client redis.UniversalClient) *RangeLocker {
	return &RangeLocker{client: client, tokens: uuid.NewString}
}

// AcquireRange never waits: ok is false when any date is held. A store error
// also reports ok=false.
func (l *RangeLocker) AcquireRange(ctx context.Context, roomID uuid.UUID, start, end time.Time, ttl time.Duration) (string, bool, error) {
	if ttl <= 0 {
		return "", false, errs.Validation(ErrInvalidTTL)
	}
	keys := lockKeys(roomID, start, end)
	if len(keys) == 0 {
		return "", false, errs.Validation(errs.New("empty lock range"))
	}

	token := l.tokens()
	got, err := acquireScript.Run(ctx, l.client, keys, token, ttl.Milliseconds()).Int()
	if err != nil {
		return "", false, errs.Cache(errs.Wrap(err, "acquire range lock"))
	}
	if got != 1 {
		return "", false, nil
	}
	return token, true, nil
}

func (l *RangeLocker) ReleaseRange(ctx context.Context, roomID uuid.UUID, start, end time.Time, token string) (int, error) {
	keys := lockKeys(roomID, start, end)
	if len(keys) == 0 || token == "" {
		return 0, nil
	}
	n, err := releaseScript.Run(ctx, l.client, keys, token).Int()
	if err != nil {
		return 0, errs.Cache(errs.Wrap(err, "release range lock"))
	}
	return n, nil
}

func (l *RangeLocker) ExtendRange(ctx context.Context, roomID uuid.UUID, start, end time.Time, token string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		return false, errs.Validation(ErrInvalidTTL)
	}
	keys := lockKeys(roomID, start, end)
	if len(keys) == 0 || token == "" {
		return false, nil
	}
	got, err := extendScript.Run(ctx, l.client, keys, token, ttl.Milliseconds()).Int()
	if err != nil {
		return false, errs.Cache(errs.Wrap(err, "extend range lock"))
	}
	return got == 1, nil
}
