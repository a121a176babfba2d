package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"roombook/internal/pkg/errs"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"
)

var json = jsoniter.ConfigFastest

func ledgerKey(roomID uuid.UUID) string {
	return "ledger:room:" + roomID.String()
}

// LedgerStore keeps one record per room mapping date keys to available
// units, so reading a stay costs one round trip per room. Records are
// hashes; if the server rejects hash commands the store switches to one
// JSON value per room over plain GET/SET.
type LedgerStore struct {
	client   redis.UniversalClient
	ttl      time.Duration
	jsonMode atomic.Bool
}

func NewLedgerStore(client redis.UniversalClient, ttl time.Duration) *LedgerStore {
	return &LedgerStore{client: client, ttl: ttl}
}

func (s *LedgerStore) Save(ctx context.Context, roomID uuid.UUID, perDate map[string]int) error {
	if len(perDate) == 0 {
		return nil
	}
	if !s.jsonMode.Load() {
		err := s.saveHash(ctx, roomID, perDate)
		if err == nil || !isUnknownCommand(err) {
			return err
		}
		s.degrade(err)
	}
	return s.saveJSON(ctx, roomID, perDate)
}

func (s *LedgerStore) MinAvailable(ctx context.Context, roomIDs []uuid.UUID, dateKeys []string) (map[uuid.UUID]int, error) {
	if len(roomIDs) == 0 || len(dateKeys) == 0 {
		return map[uuid.UUID]int{}, nil
	}
	if !s.jsonMode.Load() {
		out, err := s.minFromHash(ctx, roomIDs, dateKeys)
		if err == nil || !isUnknownCommand(err) {
			return out, err
		}
		s.degrade(err)
	}
	return s.minFromJSON(ctx, roomIDs, dateKeys)
}

func (s *LedgerStore) saveHash(ctx context.Context, roomID uuid.UUID, perDate map[string]int) error {
	key := ledgerKey(roomID)
	fields := make([]string, 0, len(perDate))
	for k := range perDate {
		fields = append(fields, k)
	}
	sort.Strings(fields)
	values := make([]any, 0, 2*len(fields))
	for _, f := range fields {
		values = append(values, f, perDate[f])
	}

	if err := s.client.HSet(ctx, key, values...).Err(); err != nil {
		return errs.Cache(errs.Wrap(err, "save ledger hash"))
	}
	if err := s.client.Expire(ctx, key, s.ttl).Err(); err != nil {
		return errs.Cache(errs.Wrap(err, "refresh ledger ttl"))
	}
	return nil
}

func (s *LedgerStore) minFromHash(ctx context.Context, roomIDs []uuid.UUID, dateKeys []string) (map[uuid.UUID]int, error) {
	cmds := make([]*redis.SliceCmd, len(roomIDs))
	_, err := s.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		for i, id := range roomIDs {
			cmds[i] = p.HMGet(ctx, ledgerKey(id), dateKeys...)
		}
		return nil
	})
	if err != nil {
		return nil, errs.Cache(errs.Wrap(err, "read ledger hashes"))
	}

	out := make(map[uuid.UUID]int, len(roomIDs))
	for i, cmd := range cmds {
		if m, ok := minOfValues(cmd.Val()); ok {
			out[roomIDs[i]] = m
		}
	}
	return out, nil
}

// saveJSON is a read-modify-write; concurrent warmups of one room may lose
// an update, which the next regeneration repairs.
func (s *LedgerStore) saveJSON(ctx context.Context, roomID uuid.UUID, perDate map[string]int) error {
	key := ledgerKey(roomID)
	record := map[string]int{}
	raw, err := s.client.Get(ctx, key).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
	case err != nil:
		return errs.Cache(errs.Wrap(err, "read ledger record"))
	default:
		if err := json.Unmarshal(raw, &record); err != nil {
			slog.Warn("discarding unreadable ledger record", "room_id", roomID, "error", err)
			record = map[string]int{}
		}
	}
	for k, v := range perDate {
		record[k] = v
	}

	encoded, err := json.Marshal(record)
	if err != nil {
		return errs.Wrap(err, "encode ledger record")
	}
	if err := s.client.Set(ctx, key, encoded, s.ttl).Err(); err != nil {
		return errs.Cache(errs.Wrap(err, "write ledger record"))
	}
	return nil
}

func (s *LedgerStore) minFromJSON(ctx context.Context, roomIDs []uuid.UUID, dateKeys []string) (map[uuid.UUID]int, error) {
	cmds := make([]*redis.StringCmd, len(roomIDs))
	_, err := s.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		for i, id := range roomIDs {
			cmds[i] = p.Get(ctx, ledgerKey(id))
		}
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, errs.Cache(errs.Wrap(err, "read ledger records"))
	}

	out := make(map[uuid.UUID]int, len(roomIDs))
	for i, cmd := range cmds {
		raw, err := cmd.Bytes()
		if err != nil {
			continue
		}
		var record map[string]int
		if err := json.Unmarshal(raw, &record); err != nil {
			continue
		}
		values := make([]any, len(dateKeys))
		for j, k := range dateKeys {
			if v, ok := record[k]; ok {
				values[j] = v
			}
		}
		if m, ok := minOfValues(values); ok {
			out[roomIDs[i]] = m
		}
	}
	return out, nil
}

func (s *LedgerStore) degrade(cause error) {
	if s.jsonMode.CompareAndSwap(false, true) {
		slog.Warn("ledger store falling back to plain get/set", "error", cause)
	}
}

// minOfValues returns false if any value is missing or unreadable.
func minOfValues(values []any) (int, bool) {
	if len(values) == 0 {
		return 0, false
	}
	min := 0
	for i, v := range values {
		var n int
		switch t := v.(type) {
		case nil:
			return 0, false
		case int:
			n = t
		case string:
			parsed, err := strconv.Atoi(t)
			if err != nil {
				return 0, false
			}
			n = parsed
		default:
			parsed, err := strconv.Atoi(fmt.Sprint(t))
			if err != nil {
				return 0, false
			}
			n = parsed
		}
		if i == 0 || n < min {
			min = n
		}
	}
	return min, true
}

func isUnknownCommand(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "unknown command")
}
