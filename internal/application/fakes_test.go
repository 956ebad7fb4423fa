package application

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bnema/outreach-quota/internal/domain"
)

type fixedClock struct {
	now time.Time
}

func (f fixedClock) Now() time.Time {
	return f.now
}

type inMemoryCatalog struct {
	accounts map[domain.AgentID][]domain.Account
	err      error
	calls    atomic.Int32
}

func (c *inMemoryCatalog) ListByAgent(ctx context.Context, agentID domain.AgentID) ([]domain.Account, error) {
	c.calls.Add(1)
	if c.err != nil {
		return nil, c.err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return domain.CloneAccounts(c.accounts[agentID]), nil
}

type inMemoryStore struct {
	mu      sync.Mutex
	rows    map[string]domain.DailyAllocation
	inserts int
	getErr  error
	// competitor is stored just before the next insert to simulate losing a race.
	competitor *domain.DailyAllocation
}

func newInMemoryStore(rows ...domain.DailyAllocation) *inMemoryStore {
	store := &inMemoryStore{rows: map[string]domain.DailyAllocation{}}
	for _, row := range rows {
		store.rows[row.Key().String()] = row.Clone()
	}
	return store
}

func (s *inMemoryStore) Get(_ context.Context, key domain.AllocationKey) (domain.DailyAllocation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.getErr != nil {
		return domain.DailyAllocation{}, s.getErr
	}
	row, ok := s.rows[key.String()]
	if !ok {
		return domain.DailyAllocation{}, domain.ErrAllocationNotFound
	}
	return row.Clone(), nil
}

func (s *inMemoryStore) InsertIfAbsent(_ context.Context, alloc domain.DailyAllocation) (domain.DailyAllocation, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.competitor != nil {
		s.rows[s.competitor.Key().String()] = s.competitor.Clone()
		s.competitor = nil
	}

	key := alloc.Key().String()
	if existing, ok := s.rows[key]; ok {
		return existing.Clone(), false, nil
	}
	s.rows[key] = alloc.Clone()
	s.inserts++
	return alloc.Clone(), true, nil
}

func (s *inMemoryStore) Update(_ context.Context, alloc domain.DailyAllocation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := alloc.Key().String()
	if _, ok := s.rows[key]; !ok {
		return fmt.Errorf("update %s: %w", key, domain.ErrAllocationNotFound)
	}
	s.rows[key] = alloc.Clone()
	return nil
}

func (s *inMemoryStore) ListRange(_ context.Context, agentID domain.AgentID, from, to time.Time) ([]domain.DailyAllocation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows := make([]domain.DailyAllocation, 0)
	for _, row := range s.rows {
		if row.AgentID != agentID || row.Date.Before(from) || !row.Date.Before(to) {
			continue
		}
		rows = append(rows, row.Clone())
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Date.Before(rows[j].Date) })
	return rows, nil
}

func (s *inMemoryStore) LatestBefore(ctx context.Context, agentID domain.AgentID, date time.Time) (domain.DailyAllocation, error) {
	rows, err := s.ListRange(ctx, agentID, time.Time{}, date)
	if err != nil {
		return domain.DailyAllocation{}, err
	}
	if len(rows) == 0 {
		return domain.DailyAllocation{}, domain.ErrAllocationNotFound
	}
	return rows[len(rows)-1], nil
}

func (s *inMemoryStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

func makeAccounts(agentID domain.AgentID, n int) []domain.Account {
	accounts := make([]domain.Account, 0, n)
	for i := 1; i <= n; i++ {
		accounts = append(accounts, domain.Account{
			ID:       domain.AccountID(fmt.Sprintf("c%03d", i)),
			AgentID:  agentID,
			Name:     fmt.Sprintf("Company %d", i),
			Category: domain.ClientCategoryProspect,
		})
	}
	return accounts
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
