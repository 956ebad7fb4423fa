package allocation

import (
	"testing"
	"time"

	"github.com/bnema/outreach-quota/internal/application"
	"github.com/bnema/outreach-quota/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var monday = time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)

func TestRenderFullAllocation(t *testing.T) {
	output, err := Render(application.Allocation{
		AgentID: "A007",
		Date:    monday,
		Companies: []domain.Account{
			{ID: "c-1", Name: "Acme Corp", Category: domain.ClientCategoryProspect, ContactName: "Jane Roe", Address: domain.Address{City: "Springfield"}},
			{ID: "c-2"},
		},
		TotalQuota:     2,
		RemainingQuota: 1,
		PoolStatus:     domain.PoolStatusFull,
	})

	require.NoError(t, err)
	assert.Contains(t, output, "Outreach allocation for A007 on 2026-10-19")
	assert.Contains(t, output, "companies: 2")
	assert.Contains(t, output, "1/2")
	assert.Contains(t, output, "Acme Corp (c-1)")
	assert.Contains(t, output, "prospect | Jane Roe | Springfield")
	assert.Contains(t, output, "2. ")
	assert.NotContains(t, output, "Short pool")
}

func TestRenderShortAndExhaustedPools(t *testing.T) {
	short, err := Render(application.Allocation{
		AgentID:        "A007",
		Date:           monday,
		Companies:      []domain.Account{{ID: "c-1"}},
		TotalQuota:     35,
		RemainingQuota: 1,
		PoolStatus:     domain.PoolStatusShort,
	})
	require.NoError(t, err)
	assert.Contains(t, short, "Short pool: only 1 eligible accounts for a quota of 35.")

	exhausted, err := Render(application.Allocation{
		AgentID:    "A007",
		Date:       monday,
		Companies:  []domain.Account{},
		TotalQuota: 35,
		PoolStatus: domain.PoolStatusExhausted,
	})
	require.NoError(t, err)
	assert.Contains(t, exhausted, "Pool exhausted")
	assert.Contains(t, exhausted, "0/35")
}

func TestRenderRestDay(t *testing.T) {
	output, err := Render(application.Allocation{AgentID: "A007", Date: monday.AddDate(0, 0, 6), RestDay: true, PoolStatus: domain.PoolStatusRestDay})

	require.NoError(t, err)
	assert.Contains(t, output, "Rest day")
	assert.NotContains(t, output, "remaining:")
}

func TestRenderAccounts(t *testing.T) {
	output, err := RenderAccounts("A007", []domain.Account{{ID: "c-1", Name: "Acme", Email: "ops@acme.test"}})
	require.NoError(t, err)
	assert.Contains(t, output, "Accounts of A007")
	assert.Contains(t, output, "ops@acme.test")

	empty, err := RenderAccounts("A007", nil)
	require.NoError(t, err)
	assert.Contains(t, empty, "No accounts in the catalog")
}

func TestRenderExclusions(t *testing.T) {
	output, err := RenderExclusions(application.Exclusions{
		AgentID:    "A007",
		Date:       monday,
		From:       monday.AddDate(0, 0, -30),
		To:         monday,
		AccountIDs: []domain.AccountID{"a", "b"},
	})

	require.NoError(t, err)
	assert.Contains(t, output, "window: 2026-09-19 to 2026-10-19")
	assert.Contains(t, output, "a, b")
}

func TestRenderProgressBarBounds(t *testing.T) {
	s := newStyles()

	assert.Contains(t, renderProgressBar(150, 4, s), "====")
	assert.Contains(t, renderProgressBar(-10, 4, s), "----")
	assert.Equal(t, "", renderProgressBar(50, 0, s))
}
