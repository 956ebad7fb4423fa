package toml

import "fmt"

const currentSchemaVersion = 1

type fileSchema struct {
	Version  int             `toml:"version"`
	Accounts []accountSchema `toml:"accounts"`
}

func (s *fileSchema) applyDefaults() {
	if s.Version == 0 {
		s.Version = currentSchemaVersion
	}
}

func (s fileSchema) validateVersion() error {
	if s.Version > currentSchemaVersion {
		return fmt.Errorf("unsupported catalog schema version %d (current %d)", s.Version, currentSchemaVersion)
	}

	return nil
}

type accountSchema struct {
	ID       string        `toml:"id"`
	AgentID  string        `toml:"agent_id"`
	Name     string        `toml:"name"`
	Contact  string        `toml:"contact,omitempty"`
	Email    string        `toml:"email,omitempty"`
	Phone    string        `toml:"phone,omitempty"`
	Category string        `toml:"category,omitempty"`
	Address  addressSchema `toml:"address,omitempty"`
}

type addressSchema struct {
	Street     string `toml:"street,omitempty"`
	City       string `toml:"city,omitempty"`
	Region     string `toml:"region,omitempty"`
	PostalCode string `toml:"postal_code,omitempty"`
	Country    string `toml:"country,omitempty"`
}
