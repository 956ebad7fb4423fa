// Package allocation renders allocations and account lists for the terminal.
package allocation

import (
	"fmt"
	"math"
	"strings"

	"github.com/bnema/outreach-quota/internal/application"
	"github.com/bnema/outreach-quota/internal/domain"
	"github.com/charmbracelet/lipgloss"
)

const quotaBarWidth = 24

func Render(alloc application.Allocation) (string, error) {
	return run(func(s styles) string {
		return renderAllocation(alloc, s)
	})
}

func RenderAccounts(agentID domain.AgentID, accounts []domain.Account) (string, error) {
	return run(func(s styles) string {
		return renderAccounts(agentID, accounts, s)
	})
}

func RenderExclusions(exclusions application.Exclusions) (string, error) {
	return run(func(s styles) string {
		return renderExclusions(exclusions, s)
	})
}

func renderAllocation(alloc application.Allocation, s styles) string {
	lines := []string{
		s.title.Render(fmt.Sprintf("Outreach allocation for %s on %s", alloc.AgentID, domain.FormatDate(alloc.Date))),
	}

	if alloc.RestDay {
		lines = append(lines, s.empty.Render("Rest day: no companies are allocated."))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	lines = append(lines,
		s.header.Render(fmt.Sprintf("companies: %d  total quota: %d  pool: %s", len(alloc.Companies), alloc.TotalQuota, alloc.PoolStatus)),
		quotaLine(alloc, s),
	)

	switch alloc.PoolStatus {
	case domain.PoolStatusExhausted:
		lines = append(lines, s.warning.Render("Pool exhausted: every account is inside the exclusion window."))
	case domain.PoolStatusShort:
		lines = append(lines, s.warning.Render(fmt.Sprintf("Short pool: only %d eligible accounts for a quota of %d.", len(alloc.Companies), alloc.TotalQuota)))
	}

	if len(alloc.Companies) == 0 {
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	lines = append(lines, s.section.Render(companyList(alloc.Companies, s)))
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func renderAccounts(agentID domain.AgentID, accounts []domain.Account, s styles) string {
	lines := []string{
		s.title.Render(fmt.Sprintf("Accounts of %s", agentID)),
		s.header.Render(fmt.Sprintf("accounts: %d", len(accounts))),
	}

	if len(accounts) == 0 {
		lines = append(lines, s.empty.Render("No accounts in the catalog for this agent."))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	lines = append(lines, s.section.Render(companyList(accounts, s)))
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func renderExclusions(exclusions application.Exclusions, s styles) string {
	lines := []string{
		s.title.Render(fmt.Sprintf("Excluded accounts for %s on %s", exclusions.AgentID, domain.FormatDate(exclusions.Date))),
		s.header.Render(fmt.Sprintf("window: %s to %s (exclusive)  accounts: %d",
			domain.FormatDate(exclusions.From), domain.FormatDate(exclusions.To), len(exclusions.AccountIDs))),
	}

	if len(exclusions.AccountIDs) == 0 {
		lines = append(lines, s.empty.Render("Nothing excluded."))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	ids := make([]string, 0, len(exclusions.AccountIDs))
	for _, id := range exclusions.AccountIDs {
		ids = append(ids, string(id))
	}
	lines = append(lines, s.section.Render(s.detail.Render(strings.Join(ids, ", "))))
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func companyList(accounts []domain.Account, s styles) string {
	width := len(fmt.Sprint(len(accounts)))
	rows := make([]string, 0, len(accounts))
	for i, account := range accounts {
		rows = append(rows, lipgloss.JoinHorizontal(
			lipgloss.Top,
			s.index.Render(fmt.Sprintf("%*d. ", width, i+1)),
			s.company.Render(companyTitle(account)),
			s.detail.Render(companyDetails(account)),
		))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func companyTitle(account domain.Account) string {
	name := strings.TrimSpace(account.Name)
	if name == "" {
		return string(account.ID)
	}
	return fmt.Sprintf("%s (%s)", name, account.ID)
}

func companyDetails(account domain.Account) string {
	parts := make([]string, 0, 5)
	for _, part := range []string{
		string(account.Category),
		account.ContactName,
		account.Email,
		account.Phone,
		account.Address.String(),
	} {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return "  " + strings.Join(parts, " | ")
}

func quotaLine(alloc application.Allocation, s styles) string {
	percent := 0.0
	if alloc.TotalQuota > 0 {
		percent = float64(alloc.RemainingQuota) / float64(alloc.TotalQuota) * 100
	}

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		s.detail.Render("remaining:"),
		" ",
		renderProgressBar(percent, quotaBarWidth, s),
		" ",
		s.detail.Render(fmt.Sprintf("%d/%d", alloc.RemainingQuota, alloc.TotalQuota)),
	)
}

func renderProgressBar(percent float64, width int, s styles) string {
	if width <= 0 {
		return ""
	}

	filled := int(math.Round(float64(width) * clampPercent(percent) / 100))
	filled = max(0, min(width, filled))

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		s.barBracket.Render("["),
		s.barFill.Render(strings.Repeat("=", filled)),
		s.barEmpty.Render(strings.Repeat("-", width-filled)),
		s.barBracket.Render("]"),
	)
}

func clampPercent(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
