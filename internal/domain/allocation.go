package domain

import (
	"fmt"
	"strings"
	"time"
)

type PoolStatus string

const (
	// PoolStatusFull means the day's quota was met from the eligible pool.
	PoolStatusFull PoolStatus = "full"
	// PoolStatusShort means fewer eligible accounts existed than the quota asked for.
	PoolStatusShort PoolStatus = "short"
	// PoolStatusExhausted means no eligible account was left at all.
	PoolStatusExhausted PoolStatus = "exhausted"
	// PoolStatusRestDay marks the zero result served on the rest day. Never stored.
	PoolStatusRestDay PoolStatus = "rest_day"
)

func (s PoolStatus) Valid() bool {
	switch s {
	case PoolStatusFull, PoolStatusShort, PoolStatusExhausted, PoolStatusRestDay:
		return true
	default:
		return false
	}
}

func (s PoolStatus) String() string {
	return string(s)
}

type AllocationKey struct {
	AgentID AgentID
	Date    time.Time
}

func NewAllocationKey(agentID AgentID, date time.Time) AllocationKey {
	return AllocationKey{
		AgentID: AgentID(strings.TrimSpace(string(agentID))),
		Date:    NormalizeDate(date),
	}
}

func (k AllocationKey) Validate() error {
	if strings.TrimSpace(string(k.AgentID)) == "" {
		return fmt.Errorf("%w: agent id is required", ErrInvalidRequest)
	}
	if k.Date.IsZero() {
		return fmt.Errorf("%w: date is required", ErrInvalidRequest)
	}
	return nil
}

func (k AllocationKey) String() string {
	return fmt.Sprintf("%s@%s", k.AgentID, FormatDate(k.Date))
}

type DailyAllocation struct {
	AgentID        AgentID
	Date           time.Time
	Accounts       []Account
	TotalQuota     int
	RemainingQuota int
	PoolStatus     PoolStatus
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (a DailyAllocation) Key() AllocationKey {
	return NewAllocationKey(a.AgentID, a.Date)
}

func (a DailyAllocation) AccountIDs() []AccountID {
	return AccountIDs(a.Accounts)
}

// ClampRemaining bounds n to [0, TotalQuota].
func (a DailyAllocation) ClampRemaining(n int) int {
	if n < 0 {
		return 0
	}
	if n > a.TotalQuota {
		return a.TotalQuota
	}
	return n
}

func (a DailyAllocation) Validate() error {
	if err := a.Key().Validate(); err != nil {
		return err
	}
	if a.TotalQuota < 0 {
		return fmt.Errorf("allocation %s: total quota %d is negative", a.Key(), a.TotalQuota)
	}
	if a.RemainingQuota < 0 || a.RemainingQuota > a.TotalQuota {
		return fmt.Errorf("allocation %s: remaining quota %d outside [0, %d]", a.Key(), a.RemainingQuota, a.TotalQuota)
	}
	if len(a.Accounts) > a.TotalQuota {
		return fmt.Errorf("allocation %s: %d accounts exceed total quota %d", a.Key(), len(a.Accounts), a.TotalQuota)
	}
	if !a.PoolStatus.Valid() {
		return fmt.Errorf("allocation %s: unknown pool status %q", a.Key(), a.PoolStatus)
	}
	return nil
}

// Clone returns a copy whose account slice can be mutated independently.
func (a DailyAllocation) Clone() DailyAllocation {
	clone := a
	clone.Accounts = CloneAccounts(a.Accounts)
	return clone
}
