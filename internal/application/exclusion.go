package application

import (
	"context"
	"fmt"
	"time"

	"github.com/bnema/outreach-quota/internal/domain"
	"github.com/bnema/outreach-quota/internal/ports"
)

// ExclusionWindowCalculator derives the account ids an agent may not be offered
// again on a given day.
type ExclusionWindowCalculator struct {
	history ports.AllocationHistory
	days    int
}

func NewExclusionWindowCalculator(history ports.AllocationHistory, days int) *ExclusionWindowCalculator {
	if days < 0 {
		days = 0
	}
	return &ExclusionWindowCalculator{history: history, days: days}
}

// Window returns the half-open range [from, to) scanned for referenceDate.
func (c *ExclusionWindowCalculator) Window(referenceDate time.Time) (time.Time, time.Time) {
	to := domain.NormalizeDate(referenceDate)
	return to.AddDate(0, 0, -c.days), to
}

// Excluded returns the union of account ids allocated to agentID within the
// window ending at referenceDate. Missing days are simply absent from history.
func (c *ExclusionWindowCalculator) Excluded(ctx context.Context, agentID domain.AgentID, referenceDate time.Time) (map[domain.AccountID]struct{}, error) {
	excluded := map[domain.AccountID]struct{}{}
	if c.days == 0 {
		return excluded, nil
	}

	from, to := c.Window(referenceDate)
	rows, err := c.history.ListRange(ctx, agentID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list allocation history: %w", err)
	}

	for _, row := range rows {
		for _, account := range row.Accounts {
			excluded[account.ID] = struct{}{}
		}
	}
	return excluded, nil
}
