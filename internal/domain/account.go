package domain

import (
	"fmt"
	"strings"
)

type AgentID string

type AccountID string

type ClientCategory string

const (
	ClientCategoryProspect ClientCategory = "prospect"
	ClientCategoryActive   ClientCategory = "active"
	ClientCategoryDormant  ClientCategory = "dormant"
)

// Account is a catalog entry as it looked when it was read. The catalog owns it;
// allocations keep their own copies.
type Account struct {
	ID          AccountID      `json:"id"`
	AgentID     AgentID        `json:"agent_id"`
	Name        string         `json:"name"`
	ContactName string         `json:"contact_name,omitempty"`
	Email       string         `json:"email,omitempty"`
	Phone       string         `json:"phone,omitempty"`
	Category    ClientCategory `json:"category,omitempty"`
	Address     Address        `json:"address"`
}

type Address struct {
	Street     string `json:"street,omitempty"`
	City       string `json:"city,omitempty"`
	Region     string `json:"region,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	Country    string `json:"country,omitempty"`
}

func (a Address) String() string {
	parts := make([]string, 0, 5)
	for _, part := range []string{a.Street, a.City, a.Region, a.PostalCode, a.Country} {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return strings.Join(parts, ", ")
}

func (a Account) Validate() error {
	if strings.TrimSpace(string(a.ID)) == "" {
		return fmt.Errorf("account id is required")
	}
	if strings.TrimSpace(string(a.AgentID)) == "" {
		return fmt.Errorf("account %s: agent id is required", a.ID)
	}
	return nil
}

// CloneAccounts returns a copy of accounts that shares no backing array with the input.
func CloneAccounts(accounts []Account) []Account {
	if accounts == nil {
		return []Account{}
	}

	cloned := make([]Account, len(accounts))
	copy(cloned, accounts)
	return cloned
}

func AccountIDs(accounts []Account) []AccountID {
	ids := make([]AccountID, 0, len(accounts))
	for _, account := range accounts {
		ids = append(ids, account.ID)
	}
	return ids
}
