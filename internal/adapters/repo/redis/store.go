// Package redis keeps daily allocations in Redis: one JSON document per
// (agent, date) plus a per-agent sorted set indexing dates by day number.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/bnema/outreach-quota/internal/adapters/repo/record"
	"github.com/bnema/outreach-quota/internal/domain"
	"github.com/bnema/outreach-quota/internal/ports"
	goredis "github.com/redis/go-redis/v9"
)

const DefaultPrefix = "oq"

// insertScript stores the document and its index entry in one step, only when
// the document key is free.
var insertScript = goredis.NewScript(`
if redis.call('SET', KEYS[1], ARGV[1], 'NX') then
	redis.call('ZADD', KEYS[2], ARGV[2], ARGV[3])
	return 1
end
return 0
`)

type Store struct {
	client *goredis.Client
	prefix string
}

var _ ports.AllocationStore = (*Store)(nil)

// Open connects to addr and verifies the connection.
func Open(ctx context.Context, addr, password string, db int) (*Store, error) {
	client := goredis.NewClient(&goredis.Options{Addr: addr, Password: password, DB: db})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis %s: %w", addr, err)
	}
	return New(client, DefaultPrefix), nil
}

func New(client *goredis.Client, prefix string) *Store {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Store{client: client, prefix: prefix}
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return unavailable("ping", err)
	}
	return nil
}

func (s *Store) documentKey(agentID domain.AgentID, date string) string {
	return fmt.Sprintf("%s:alloc:%s:%s", s.prefix, agentID, date)
}

func (s *Store) indexKey(agentID domain.AgentID) string {
	return fmt.Sprintf("%s:alloc-index:%s", s.prefix, agentID)
}

func (s *Store) Get(ctx context.Context, key domain.AllocationKey) (domain.DailyAllocation, error) {
	data, err := s.client.Get(ctx, s.documentKey(key.AgentID, domain.FormatDate(key.Date))).Bytes()
	if errors.Is(err, goredis.Nil) {
		return domain.DailyAllocation{}, domain.ErrAllocationNotFound
	}
	if err != nil {
		return domain.DailyAllocation{}, unavailable("get allocation", err)
	}
	return decode(data)
}

func (s *Store) InsertIfAbsent(ctx context.Context, alloc domain.DailyAllocation) (domain.DailyAllocation, bool, error) {
	rec, data, err := encode(alloc)
	if err != nil {
		return domain.DailyAllocation{}, false, err
	}

	inserted, err := insertScript.Run(ctx, s.client,
		[]string{s.documentKey(alloc.AgentID, rec.Date), s.indexKey(alloc.AgentID)},
		data, domain.DayNumber(alloc.Date), rec.Date,
	).Int()
	if err != nil {
		return domain.DailyAllocation{}, false, unavailable("insert allocation", err)
	}
	if inserted == 1 {
		return alloc.Clone(), true, nil
	}

	stored, err := s.Get(ctx, alloc.Key())
	if err != nil {
		return domain.DailyAllocation{}, false, fmt.Errorf("re-read conflicting allocation: %w", err)
	}
	return stored, false, nil
}

// Update replaces the consumption fields of an existing document. Quota and
// creation fields are kept from the stored copy.
func (s *Store) Update(ctx context.Context, alloc domain.DailyAllocation) error {
	current, err := s.Get(ctx, alloc.Key())
	if err != nil {
		return err
	}

	current.Accounts = alloc.Accounts
	current.RemainingQuota = current.ClampRemaining(alloc.RemainingQuota)
	current.UpdatedAt = alloc.UpdatedAt

	rec, data, err := encode(current)
	if err != nil {
		return err
	}

	updated, err := s.client.SetXX(ctx, s.documentKey(current.AgentID, rec.Date), data, 0).Result()
	if err != nil {
		return unavailable("update allocation", err)
	}
	if !updated {
		return domain.ErrAllocationNotFound
	}
	return nil
}

func (s *Store) ListRange(ctx context.Context, agentID domain.AgentID, from, to time.Time) ([]domain.DailyAllocation, error) {
	dates, err := s.client.ZRangeByScore(ctx, s.indexKey(agentID), &goredis.ZRangeBy{
		Min: strconv.FormatInt(domain.DayNumber(from), 10),
		Max: "(" + strconv.FormatInt(domain.DayNumber(to), 10),
	}).Result()
	if err != nil {
		return nil, unavailable("list allocation index", err)
	}
	if len(dates) == 0 {
		return nil, nil
	}

	keys := make([]string, 0, len(dates))
	for _, date := range dates {
		keys = append(keys, s.documentKey(agentID, date))
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, unavailable("list allocations", err)
	}

	allocations := make([]domain.DailyAllocation, 0, len(values))
	for _, value := range values {
		raw, ok := value.(string)
		if !ok {
			continue
		}
		alloc, err := decode([]byte(raw))
		if err != nil {
			return nil, err
		}
		allocations = append(allocations, alloc)
	}
	return allocations, nil
}

func (s *Store) LatestBefore(ctx context.Context, agentID domain.AgentID, date time.Time) (domain.DailyAllocation, error) {
	dates, err := s.client.ZRevRangeByScore(ctx, s.indexKey(agentID), &goredis.ZRangeBy{
		Min:   "-inf",
		Max:   "(" + strconv.FormatInt(domain.DayNumber(date), 10),
		Count: 1,
	}).Result()
	if err != nil {
		return domain.DailyAllocation{}, unavailable("load latest allocation", err)
	}
	if len(dates) == 0 {
		return domain.DailyAllocation{}, domain.ErrAllocationNotFound
	}

	latest, err := domain.ParseDate(dates[0])
	if err != nil {
		return domain.DailyAllocation{}, err
	}
	return s.Get(ctx, domain.NewAllocationKey(agentID, latest))
}

func encode(alloc domain.DailyAllocation) (record.Allocation, []byte, error) {
	rec, err := record.FromDomain(alloc)
	if err != nil {
		return record.Allocation{}, nil, err
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return record.Allocation{}, nil, fmt.Errorf("encode allocation: %w", err)
	}
	return rec, data, nil
}

func decode(data []byte) (domain.DailyAllocation, error) {
	var rec record.Allocation
	if err := json.Unmarshal(data, &rec); err != nil {
		return domain.DailyAllocation{}, fmt.Errorf("decode allocation: %w", err)
	}
	return rec.ToDomain()
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, domain.ErrStoreUnavailable, err)
}
