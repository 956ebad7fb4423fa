package application

import (
	"math/rand/v2"
	"testing"

	"github.com/bnema/outreach-quota/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestQuotaSamplerBoundsAndShortPool(t *testing.T) {
	t.Parallel()

	pool := makeAccounts("A007", 10)
	sampler := NewQuotaSampler(rand.New(rand.NewPCG(1, 2)))

	tests := []struct {
		name      string
		k         int
		wantLen   int
		wantShort bool
	}{
		{name: "smaller than pool", k: 4, wantLen: 4},
		{name: "equal to pool", k: 10, wantLen: 10},
		{name: "larger than pool", k: 35, wantLen: 10, wantShort: true},
		{name: "zero", k: 0, wantLen: 0},
	}

	for _, tc := range tests {
		picked, short := sampler.Sample(pool, tc.k)
		assert.Len(t, picked, tc.wantLen, tc.name)
		assert.Equal(t, tc.wantShort, short, tc.name)
		assert.Len(t, uniqueIDs(picked), tc.wantLen, tc.name)
	}
}

func TestQuotaSamplerIsDeterministicForFixedSeed(t *testing.T) {
	t.Parallel()

	pool := makeAccounts("A007", 50)

	first, _ := NewQuotaSampler(rand.New(rand.NewPCG(42, 42))).Sample(pool, 35)
	second, _ := NewQuotaSampler(rand.New(rand.NewPCG(42, 42))).Sample(pool, 35)

	assert.Equal(t, domain.AccountIDs(first), domain.AccountIDs(second))
}

func TestQuotaSamplerDoesNotMutatePool(t *testing.T) {
	t.Parallel()

	pool := makeAccounts("A007", 8)
	before := domain.AccountIDs(pool)

	NewQuotaSampler(nil).Sample(pool, 5)

	assert.Equal(t, before, domain.AccountIDs(pool))
}

type scriptedRandom struct {
	picks []int
}

func (s *scriptedRandom) IntN(n int) int {
	next := s.picks[0]
	s.picks = s.picks[1:]
	return next % n
}

func TestQuotaSamplerUsesInjectedSource(t *testing.T) {
	t.Parallel()

	pool := makeAccounts("A007", 4)
	// Each pick swaps the last candidate into the next slot.
	sampler := NewQuotaSampler(&scriptedRandom{picks: []int{3, 2, 1}})

	picked, short := sampler.Sample(pool, 3)
	assert.False(t, short)
	assert.Equal(t, []domain.AccountID{"c004", "c001", "c002"}, domain.AccountIDs(picked))
}

func TestBuildPoolFiltersAndOrders(t *testing.T) {
	t.Parallel()

	accounts := []domain.Account{
		{ID: "c3"}, {ID: " c1 "}, {ID: ""}, {ID: "c2"}, {ID: "c1"}, {ID: "c4"},
	}
	excluded := map[domain.AccountID]struct{}{"c2": {}}

	pool := BuildPool(accounts, excluded)
	assert.Equal(t, []domain.AccountID{"c1", "c3", "c4"}, domain.AccountIDs(pool))
	assert.Empty(t, BuildPool(nil, nil))
}
