package cmd

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/bnema/outreach-quota/internal/application"
	"github.com/bnema/outreach-quota/internal/domain"
	"github.com/spf13/cobra"
)

type allocationOutput struct {
	AgentID        string           `json:"agent_id"`
	Date           string           `json:"date"`
	Companies      []domain.Account `json:"companies"`
	TotalQuota     int              `json:"total_quota"`
	RemainingQuota int              `json:"remaining_quota"`
	PoolStatus     string           `json:"pool_status"`
	PoolExhausted  bool             `json:"pool_exhausted"`
	ShortPool      bool             `json:"short_pool"`
	RestDay        bool             `json:"rest_day"`
	Created        bool             `json:"created"`
}

type exclusionsOutput struct {
	AgentID    string   `json:"agent_id"`
	Date       string   `json:"date"`
	From       string   `json:"from"`
	To         string   `json:"to"`
	AccountIDs []string `json:"account_ids"`
}

func newAllocationOutput(alloc application.Allocation) allocationOutput {
	return allocationOutput{
		AgentID:        string(alloc.AgentID),
		Date:           domain.FormatDate(alloc.Date),
		Companies:      domain.CloneAccounts(alloc.Companies),
		TotalQuota:     alloc.TotalQuota,
		RemainingQuota: alloc.RemainingQuota,
		PoolStatus:     alloc.PoolStatus.String(),
		PoolExhausted:  alloc.Exhausted(),
		ShortPool:      alloc.Short(),
		RestDay:        alloc.RestDay,
		Created:        alloc.Created,
	}
}

func newExclusionsOutput(exclusions application.Exclusions) exclusionsOutput {
	ids := make([]string, 0, len(exclusions.AccountIDs))
	for _, id := range exclusions.AccountIDs {
		ids = append(ids, string(id))
	}
	return exclusionsOutput{
		AgentID:    string(exclusions.AgentID),
		Date:       domain.FormatDate(exclusions.Date),
		From:       domain.FormatDate(exclusions.From),
		To:         domain.FormatDate(exclusions.To),
		AccountIDs: ids,
	}
}

func writeJSON(cmd *cobra.Command, value any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}

func writeAllocationOutput(cmd *cobra.Command, app *app, alloc application.Allocation, asJSON bool) error {
	if asJSON {
		return writeJSON(cmd, newAllocationOutput(alloc))
	}

	rendered, err := app.allocationRenderer(sanitizeAllocation(alloc))
	if err != nil {
		return fmt.Errorf("render allocation: %w", err)
	}

	_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
	return err
}

// resolveDate maps an empty value or "today" to the current UTC date.
func resolveDate(raw string, now time.Time) (time.Time, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || strings.EqualFold(trimmed, "today") {
		return domain.NormalizeDate(now.UTC()), nil
	}
	return domain.ParseDate(trimmed)
}

func sanitizeAllocation(alloc application.Allocation) application.Allocation {
	alloc.Companies = sanitizeAccounts(alloc.Companies)
	return alloc
}

func sanitizeAccounts(accounts []domain.Account) []domain.Account {
	cleaned := domain.CloneAccounts(accounts)
	for i := range cleaned {
		cleaned[i].Name = sanitizeForTerminal(cleaned[i].Name)
		cleaned[i].ContactName = sanitizeForTerminal(cleaned[i].ContactName)
		cleaned[i].Email = sanitizeForTerminal(cleaned[i].Email)
		cleaned[i].Phone = sanitizeForTerminal(cleaned[i].Phone)
	}
	return cleaned
}

func sanitizeForTerminal(value string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, value)
}
