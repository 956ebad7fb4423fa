package ports

import (
	"context"
	"time"

	"github.com/bnema/outreach-quota/internal/domain"
)

type AllocationHistory interface {
	// ListRange returns the agent's allocations dated in [from, to), oldest first.
	ListRange(ctx context.Context, agentID domain.AgentID, from, to time.Time) ([]domain.DailyAllocation, error)
	// LatestBefore returns the most recent allocation dated strictly before date,
	// or domain.ErrAllocationNotFound.
	LatestBefore(ctx context.Context, agentID domain.AgentID, date time.Time) (domain.DailyAllocation, error)
}

type AllocationStore interface {
	AllocationHistory

	Get(ctx context.Context, key domain.AllocationKey) (domain.DailyAllocation, error)
	// InsertIfAbsent atomically stores alloc unless a row for its key exists.
	// It always returns the row that is canonical after the call; created is
	// false when another writer got there first.
	InsertIfAbsent(ctx context.Context, alloc domain.DailyAllocation) (stored domain.DailyAllocation, created bool, err error)
	Update(ctx context.Context, alloc domain.DailyAllocation) error
}
