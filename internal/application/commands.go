package application

import (
	"time"

	"github.com/bnema/outreach-quota/internal/domain"
)

// RecordConsumptionCommand replaces the account list and remaining quota of an
// existing allocation.
type RecordConsumptionCommand struct {
	AgentID        domain.AgentID
	Date           time.Time
	Companies      []domain.Account
	RemainingQuota int
}

func (c RecordConsumptionCommand) Key() domain.AllocationKey {
	return domain.NewAllocationKey(c.AgentID, c.Date)
}
