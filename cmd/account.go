package cmd

import (
	"fmt"
	"strings"

	"github.com/bnema/outreach-quota/internal/domain"
	"github.com/spf13/cobra"
)

func newAccountCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Inspect the account catalog",
	}

	cmd.AddCommand(
		newAccountListCmd(app),
		newAccountAddCmd(app),
	)

	return cmd
}

func newAccountListCmd(app *app) *cobra.Command {
	var agentID string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List catalog accounts of an agent",
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := app.allocations(cmd.Context())
			if err != nil {
				return err
			}

			accounts, err := svc.ListAccounts(cmd.Context(), domain.AgentID(agentID))
			if err != nil {
				return err
			}

			if asJSON {
				return writeJSON(cmd, accounts)
			}

			rendered, err := app.accountsRenderer(domain.AgentID(agentID), sanitizeAccounts(accounts))
			if err != nil {
				return fmt.Errorf("render accounts: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
			return err
		},
	}

	cmd.Flags().StringVar(&agentID, "agent", "", "Agent ID")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")
	_ = cmd.MarkFlagRequired("agent")

	return cmd
}

func newAccountAddCmd(app *app) *cobra.Command {
	var account domain.Account
	var agentID, accountID, category string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add or replace an account in the catalog",
		RunE: func(cmd *cobra.Command, _ []string) error {
			account.ID = domain.AccountID(strings.TrimSpace(accountID))
			account.AgentID = domain.AgentID(strings.TrimSpace(agentID))
			account.Category = domain.ClientCategory(strings.ToLower(strings.TrimSpace(category)))

			if err := app.writer.Save(cmd.Context(), account); err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Saved account %s for agent %s\n", account.ID, account.AgentID)
			return nil
		},
	}

	cmd.Flags().StringVar(&agentID, "agent", "", "Owning agent ID")
	cmd.Flags().StringVar(&accountID, "id", "", "Account ID")
	cmd.Flags().StringVar(&account.Name, "name", "", "Company name")
	cmd.Flags().StringVar(&account.ContactName, "contact", "", "Contact person")
	cmd.Flags().StringVar(&account.Email, "email", "", "Contact email")
	cmd.Flags().StringVar(&account.Phone, "phone", "", "Contact phone")
	cmd.Flags().StringVar(&category, "category", "", "Client category (prospect, active, dormant)")
	cmd.Flags().StringVar(&account.Address.Street, "street", "", "Street address")
	cmd.Flags().StringVar(&account.Address.City, "city", "", "City")
	cmd.Flags().StringVar(&account.Address.Region, "region", "", "Region or state")
	cmd.Flags().StringVar(&account.Address.PostalCode, "postal-code", "", "Postal code")
	cmd.Flags().StringVar(&account.Address.Country, "country", "", "Country")
	_ = cmd.MarkFlagRequired("agent")
	_ = cmd.MarkFlagRequired("id")

	return cmd
}
