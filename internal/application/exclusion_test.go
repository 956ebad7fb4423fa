package application

import (
	"context"
	"testing"
	"time"

	"github.com/bnema/outreach-quota/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExclusionWindowIsHalfOpen(t *testing.T) {
	t.Parallel()

	row := func(date time.Time, ids ...domain.AccountID) domain.DailyAllocation {
		accounts := make([]domain.Account, 0, len(ids))
		for _, id := range ids {
			accounts = append(accounts, domain.Account{ID: id, AgentID: "A007"})
		}
		return domain.DailyAllocation{AgentID: "A007", Date: date, Accounts: accounts, TotalQuota: 35, PoolStatus: domain.PoolStatusFull}
	}

	store := newInMemoryStore(
		row(monday, "same-day"),
		row(monday.AddDate(0, 0, -1), "yesterday"),
		row(monday.AddDate(0, 0, -30), "edge"),
		row(monday.AddDate(0, 0, -31), "expired"),
		domain.DailyAllocation{AgentID: "B001", Date: monday.AddDate(0, 0, -2), Accounts: []domain.Account{{ID: "other-agent"}}, TotalQuota: 35, PoolStatus: domain.PoolStatusFull},
	)

	calc := NewExclusionWindowCalculator(store, 30)
	excluded, err := calc.Excluded(context.Background(), "A007", monday)
	require.NoError(t, err)

	assert.Equal(t, map[domain.AccountID]struct{}{"yesterday": {}, "edge": {}}, excluded)
}

func TestExclusionWindowToleratesEmptyHistory(t *testing.T) {
	t.Parallel()

	excluded, err := NewExclusionWindowCalculator(newInMemoryStore(), 30).Excluded(context.Background(), "A007", monday)
	require.NoError(t, err)
	assert.Empty(t, excluded)
}

func TestExclusionWindowZeroDaysSkipsHistory(t *testing.T) {
	t.Parallel()

	excluded, err := NewExclusionWindowCalculator(failingHistory{}, 0).Excluded(context.Background(), "A007", monday)
	require.NoError(t, err)
	assert.Empty(t, excluded)
}

func TestExclusionWindowPropagatesHistoryErrors(t *testing.T) {
	t.Parallel()

	_, err := NewExclusionWindowCalculator(failingHistory{}, 30).Excluded(context.Background(), "A007", monday)
	require.ErrorIs(t, err, domain.ErrStoreUnavailable)
}

type failingHistory struct{}

func (failingHistory) ListRange(context.Context, domain.AgentID, time.Time, time.Time) ([]domain.DailyAllocation, error) {
	return nil, domain.ErrStoreUnavailable
}

func (failingHistory) LatestBefore(context.Context, domain.AgentID, time.Time) (domain.DailyAllocation, error) {
	return domain.DailyAllocation{}, domain.ErrStoreUnavailable
}
