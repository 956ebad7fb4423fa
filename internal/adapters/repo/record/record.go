// Package record holds the storage representation shared by the allocation stores.
package record

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/bnema/outreach-quota/internal/domain"
)

const timestampLayout = time.RFC3339Nano

// Allocation is a DailyAllocation flattened for persistence. Dates are
// YYYY-MM-DD strings so lexical order matches calendar order.
type Allocation struct {
	AgentID        string           `json:"agent_id" db:"agent_id"`
	Date           string           `json:"alloc_date" db:"alloc_date"`
	AccountsJSON   string           `json:"-" db:"accounts_json"`
	Accounts       []domain.Account `json:"accounts" db:"-"`
	TotalQuota     int              `json:"total_quota" db:"total_quota"`
	RemainingQuota int              `json:"remaining_quota" db:"remaining_quota"`
	PoolStatus     string           `json:"pool_status" db:"pool_status"`
	CreatedAt      string           `json:"created_at" db:"created_at"`
	UpdatedAt      string           `json:"updated_at" db:"updated_at"`
}

func FromDomain(alloc domain.DailyAllocation) (Allocation, error) {
	accounts := domain.CloneAccounts(alloc.Accounts)
	encoded, err := json.Marshal(accounts)
	if err != nil {
		return Allocation{}, fmt.Errorf("encode allocated accounts: %w", err)
	}

	return Allocation{
		AgentID:        string(alloc.AgentID),
		Date:           domain.FormatDate(alloc.Date),
		AccountsJSON:   string(encoded),
		Accounts:       accounts,
		TotalQuota:     alloc.TotalQuota,
		RemainingQuota: alloc.RemainingQuota,
		PoolStatus:     string(alloc.PoolStatus),
		CreatedAt:      FormatTimestamp(alloc.CreatedAt),
		UpdatedAt:      FormatTimestamp(alloc.UpdatedAt),
	}, nil
}

// ToDomain decodes r. Accounts are read from AccountsJSON when it is set,
// otherwise from Accounts.
func (r Allocation) ToDomain() (domain.DailyAllocation, error) {
	date, err := domain.ParseDate(r.Date)
	if err != nil {
		return domain.DailyAllocation{}, fmt.Errorf("decode allocation date: %w", err)
	}

	accounts := r.Accounts
	if r.AccountsJSON != "" {
		if err := json.Unmarshal([]byte(r.AccountsJSON), &accounts); err != nil {
			return domain.DailyAllocation{}, fmt.Errorf("decode allocated accounts: %w", err)
		}
	}

	return domain.DailyAllocation{
		AgentID:        domain.AgentID(r.AgentID),
		Date:           date,
		Accounts:       domain.CloneAccounts(accounts),
		TotalQuota:     r.TotalQuota,
		RemainingQuota: r.RemainingQuota,
		PoolStatus:     domain.PoolStatus(r.PoolStatus),
		CreatedAt:      ParseTimestamp(r.CreatedAt),
		UpdatedAt:      ParseTimestamp(r.UpdatedAt),
	}, nil
}

func FormatTimestamp(value time.Time) string {
	if value.IsZero() {
		return ""
	}
	return value.UTC().Format(timestampLayout)
}

func ParseTimestamp(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}

	parsed, err := time.Parse(timestampLayout, raw)
	if err != nil {
		return time.Time{}
	}
	return parsed
}
