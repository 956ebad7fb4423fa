package record

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/bnema/outreach-quota/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleAllocation() domain.DailyAllocation {
	return domain.DailyAllocation{
		AgentID: "A007",
		Date:    time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC),
		Accounts: []domain.Account{
			{ID: "c-1", AgentID: "A007", Name: "Acme", Address: domain.Address{City: "Springfield"}},
		},
		TotalQuota:     35,
		RemainingQuota: 1,
		PoolStatus:     domain.PoolStatusShort,
		CreatedAt:      time.Date(2026, 10, 19, 8, 30, 0, 123, time.UTC),
		UpdatedAt:      time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC),
	}
}

func TestAllocationColumnsRoundTrip(t *testing.T) {
	t.Parallel()

	row, err := FromDomain(sampleAllocation())
	require.NoError(t, err)
	assert.Equal(t, "2026-10-19", row.Date)

	// Simulate a database scan that only fills the columns.
	row.Accounts = nil
	got, err := row.ToDomain()
	require.NoError(t, err)
	assert.Equal(t, sampleAllocation(), got)
}

func TestAllocationDocumentRoundTrip(t *testing.T) {
	t.Parallel()

	row, err := FromDomain(sampleAllocation())
	require.NoError(t, err)

	data, err := json.Marshal(row)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "accounts_json")

	var decoded Allocation
	require.NoError(t, json.Unmarshal(data, &decoded))
	got, err := decoded.ToDomain()
	require.NoError(t, err)
	assert.Equal(t, sampleAllocation(), got)
}

func TestToDomainRejectsBadDate(t *testing.T) {
	t.Parallel()

	_, err := Allocation{Date: "yesterday"}.ToDomain()
	require.ErrorIs(t, err, domain.ErrInvalidRequest)
}

func TestEmptyAccountsEncodeAsArray(t *testing.T) {
	t.Parallel()

	alloc := sampleAllocation()
	alloc.Accounts = nil
	row, err := FromDomain(alloc)
	require.NoError(t, err)
	assert.Equal(t, "[]", row.AccountsJSON)
}
