package application

import (
	"math/rand/v2"
	"sort"
	"strings"
	"sync"

	"github.com/bnema/outreach-quota/internal/domain"
	"github.com/bnema/outreach-quota/internal/ports"
)

type globalRandom struct{}

func (globalRandom) IntN(n int) int {
	return rand.IntN(n)
}

// QuotaSampler picks a bounded uniform subset of an eligible pool.
type QuotaSampler struct {
	mu  sync.Mutex
	rnd ports.RandomSource
}

// NewQuotaSampler returns a sampler drawing from rnd. A nil rnd uses the
// runtime-seeded global generator.
func NewQuotaSampler(rnd ports.RandomSource) *QuotaSampler {
	if rnd == nil {
		rnd = globalRandom{}
	}
	return &QuotaSampler{rnd: rnd}
}

// Sample returns min(k, len(pool)) accounts drawn without replacement. short
// reports that the pool could not cover k.
func (s *QuotaSampler) Sample(pool []domain.Account, k int) (picked []domain.Account, short bool) {
	if k <= 0 {
		return []domain.Account{}, false
	}

	candidates := domain.CloneAccounts(pool)
	n := min(k, len(candidates))

	// rand.Rand values are not safe for concurrent use.
	s.mu.Lock()
	for i := 0; i < n; i++ {
		j := i + s.rnd.IntN(len(candidates)-i)
		candidates[i], candidates[j] = candidates[j], candidates[i]
	}
	s.mu.Unlock()

	return candidates[:n:n], len(candidates) < k
}

// BuildPool drops blank, duplicate and excluded accounts and orders the rest by
// id so a fixed random source yields a fixed sample.
func BuildPool(accounts []domain.Account, excluded map[domain.AccountID]struct{}) []domain.Account {
	seen := make(map[domain.AccountID]struct{}, len(accounts))
	pool := make([]domain.Account, 0, len(accounts))
	for _, account := range accounts {
		account.ID = domain.AccountID(strings.TrimSpace(string(account.ID)))
		if account.ID == "" {
			continue
		}
		if _, dup := seen[account.ID]; dup {
			continue
		}
		seen[account.ID] = struct{}{}
		if _, skip := excluded[account.ID]; skip {
			continue
		}
		pool = append(pool, account)
	}

	sort.Slice(pool, func(i, j int) bool {
		return pool[i].ID < pool[j].ID
	})
	return pool
}
