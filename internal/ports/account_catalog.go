package ports

import (
	"context"

	"github.com/bnema/outreach-quota/internal/domain"
)

// AccountCatalog is the read-only account directory. Implementations return
// domain.ErrCatalogUnavailable (wrapped) when the directory cannot be read.
type AccountCatalog interface {
	ListByAgent(ctx context.Context, agentID domain.AgentID) ([]domain.Account, error)
}
