package application

import (
	"sort"
	"time"

	"github.com/bnema/outreach-quota/internal/domain"
)

// Allocation is the caller-facing view of a day's allocation.
type Allocation struct {
	AgentID        domain.AgentID
	Date           time.Time
	Companies      []domain.Account
	TotalQuota     int
	RemainingQuota int
	PoolStatus     domain.PoolStatus
	// RestDay is set for the unpersisted zero result served on a rest day.
	RestDay bool
	// Created reports whether this call generated and stored the allocation.
	Created   bool
	UpdatedAt time.Time
}

func (a Allocation) Short() bool {
	return a.PoolStatus == domain.PoolStatusShort
}

func (a Allocation) Exhausted() bool {
	return a.PoolStatus == domain.PoolStatusExhausted
}

func newAllocationView(alloc domain.DailyAllocation, created bool) Allocation {
	return Allocation{
		AgentID:        alloc.AgentID,
		Date:           alloc.Date,
		Companies:      domain.CloneAccounts(alloc.Accounts),
		TotalQuota:     alloc.TotalQuota,
		RemainingQuota: alloc.RemainingQuota,
		PoolStatus:     alloc.PoolStatus,
		Created:        created,
		UpdatedAt:      alloc.UpdatedAt,
	}
}

func restDayView(key domain.AllocationKey) Allocation {
	return Allocation{
		AgentID:    key.AgentID,
		Date:       key.Date,
		Companies:  []domain.Account{},
		PoolStatus: domain.PoolStatusRestDay,
		RestDay:    true,
	}
}

type Exclusions struct {
	AgentID    domain.AgentID
	Date       time.Time
	From       time.Time
	To         time.Time
	AccountIDs []domain.AccountID
}

func newExclusions(key domain.AllocationKey, from, to time.Time, set map[domain.AccountID]struct{}) Exclusions {
	ids := make([]domain.AccountID, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	return Exclusions{AgentID: key.AgentID, Date: key.Date, From: from, To: to, AccountIDs: ids}
}
