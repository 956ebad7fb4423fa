package cmd

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/bnema/outreach-quota/internal/application"
	"github.com/bnema/outreach-quota/internal/domain"
	"github.com/spf13/cobra"
)

func newAllocationCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "allocation",
		Short: "Read and update daily allocations",
	}

	cmd.AddCommand(
		newAllocationGetCmd(app),
		newAllocationConsumeCmd(app),
		newAllocationExcludedCmd(app),
	)

	return cmd
}

func newAllocationGetCmd(app *app) *cobra.Command {
	var agentID string
	var rawDate string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "get",
		Short: "Show the allocation of a day, generating it on first request",
		RunE: func(cmd *cobra.Command, _ []string) error {
			date, err := resolveDate(rawDate, app.now())
			if err != nil {
				return err
			}

			svc, err := app.allocations(cmd.Context())
			if err != nil {
				return err
			}

			var alloc application.Allocation
			fetch := func(ctx context.Context) error {
				var fetchErr error
				alloc, fetchErr = svc.FetchOrCreate(ctx, domain.AgentID(agentID), date)
				return fetchErr
			}

			if asJSON {
				err = fetch(cmd.Context())
			} else {
				err = runWithSpinner(cmd.Context(), cmd.ErrOrStderr(), "Preparing allocation...", fetch)
			}
			if err != nil {
				return err
			}

			return writeAllocationOutput(cmd, app, alloc, asJSON)
		},
	}

	cmd.Flags().StringVar(&agentID, "agent", "", "Agent ID")
	cmd.Flags().StringVar(&rawDate, "date", "", "Allocation date (YYYY-MM-DD, default today)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")
	_ = cmd.MarkFlagRequired("agent")

	return cmd
}

func newAllocationConsumeCmd(app *app) *cobra.Command {
	var agentID string
	var rawDate string
	var remaining int
	var keep []string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "consume",
		Short: "Record what is left of an allocation after outreach",
		Long:  "Record the remaining quota of an allocation. With --keep, only the listed account ids stay in the allocation; without it the list is left unchanged.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			date, err := resolveDate(rawDate, app.now())
			if err != nil {
				return err
			}

			svc, err := app.allocations(cmd.Context())
			if err != nil {
				return err
			}

			current, err := svc.Lookup(cmd.Context(), domain.AgentID(agentID), date)
			if err != nil {
				return err
			}

			companies := current.Companies
			if cmd.Flags().Changed("keep") {
				companies, err = keepCompanies(current.Companies, keep)
				if err != nil {
					return err
				}
			}

			updated, err := svc.RecordConsumption(cmd.Context(), application.RecordConsumptionCommand{
				AgentID:        domain.AgentID(agentID),
				Date:           date,
				Companies:      companies,
				RemainingQuota: remaining,
			})
			if err != nil {
				return err
			}

			return writeAllocationOutput(cmd, app, updated, asJSON)
		},
	}

	cmd.Flags().StringVar(&agentID, "agent", "", "Agent ID")
	cmd.Flags().StringVar(&rawDate, "date", "", "Allocation date (YYYY-MM-DD, default today)")
	cmd.Flags().IntVar(&remaining, "remaining", 0, "Remaining quota after outreach")
	cmd.Flags().StringSliceVar(&keep, "keep", nil, "Account IDs that stay in the allocation")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")
	_ = cmd.MarkFlagRequired("agent")
	_ = cmd.MarkFlagRequired("remaining")

	return cmd
}

func newAllocationExcludedCmd(app *app) *cobra.Command {
	var agentID string
	var rawDate string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "excluded",
		Short: "List accounts excluded from generation on a day",
		RunE: func(cmd *cobra.Command, _ []string) error {
			date, err := resolveDate(rawDate, app.now())
			if err != nil {
				return err
			}

			svc, err := app.allocations(cmd.Context())
			if err != nil {
				return err
			}

			exclusions, err := svc.ExcludedAccounts(cmd.Context(), domain.AgentID(agentID), date)
			if err != nil {
				return err
			}

			if asJSON {
				return writeJSON(cmd, newExclusionsOutput(exclusions))
			}

			rendered, err := app.exclusionsRenderer(exclusions)
			if err != nil {
				return fmt.Errorf("render exclusions: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
			return err
		},
	}

	cmd.Flags().StringVar(&agentID, "agent", "", "Agent ID")
	cmd.Flags().StringVar(&rawDate, "date", "", "Reference date (YYYY-MM-DD, default today)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")
	_ = cmd.MarkFlagRequired("agent")

	return cmd
}

// keepCompanies returns the accounts of current whose id is in ids, in current order.
func keepCompanies(current []domain.Account, ids []string) ([]domain.Account, error) {
	wanted := make(map[domain.AccountID]bool, len(ids))
	for _, id := range ids {
		trimmed := strings.TrimSpace(id)
		if trimmed == "" {
			continue
		}
		wanted[domain.AccountID(trimmed)] = false
	}

	kept := make([]domain.Account, 0, len(wanted))
	for _, account := range current {
		if _, ok := wanted[account.ID]; ok {
			kept = append(kept, account)
			wanted[account.ID] = true
		}
	}

	var unknown []string
	for id, found := range wanted {
		if !found {
			unknown = append(unknown, string(id))
		}
	}
	if len(unknown) > 0 {
		slices.Sort(unknown)
		return nil, fmt.Errorf("%w: accounts not in allocation: %s", domain.ErrInvalidRequest, strings.Join(unknown, ", "))
	}

	return kept, nil
}
