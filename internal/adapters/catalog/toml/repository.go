package toml

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bnema/outreach-quota/internal/domain"
	"github.com/bnema/outreach-quota/internal/ports"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

const (
	catalogPathKey    = "catalog.path"
	catalogFileMode   = 0o600
	catalogDirMode    = 0o700
	catalogConfigDir  = ".outreach"
	catalogConfigFile = "accounts.toml"
	tempFilePattern   = ".accounts-*.toml.tmp"
)

// Repository is an account directory kept in a single TOML file.
type Repository struct {
	catalogPath string
	mu          *sync.RWMutex
}

var (
	lockRegistryMu sync.Mutex
	pathLockMap    = map[string]*sync.RWMutex{}
)

var _ ports.AccountCatalog = (*Repository)(nil)

func NewRepository(cfg *viper.Viper) (*Repository, error) {
	if cfg == nil {
		cfg = viper.New()
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}
	cfg.SetDefault(catalogPathKey, filepath.Join(homeDir, catalogConfigDir, catalogConfigFile))

	catalogPath := cfg.GetString(catalogPathKey)
	if catalogPath == "" {
		return nil, errors.New("catalog path is empty")
	}
	catalogPath, err = normalizeCatalogPath(catalogPath)
	if err != nil {
		return nil, err
	}

	return &Repository{catalogPath: catalogPath, mu: lockForPath(catalogPath)}, nil
}

func (r *Repository) Path() string {
	return r.catalogPath
}

func (r *Repository) ListByAgent(ctx context.Context, agentID domain.AgentID) ([]domain.Account, error) {
	accounts, err := r.List(ctx)
	if err != nil {
		return nil, err
	}

	owned := make([]domain.Account, 0, len(accounts))
	for _, account := range accounts {
		if account.AgentID == agentID {
			owned = append(owned, account)
		}
	}
	return owned, nil
}

func (r *Repository) List(ctx context.Context) ([]domain.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	file, err := r.readSchema()
	if err != nil {
		return nil, err
	}

	accounts := make([]domain.Account, 0, len(file.Accounts))
	for _, entry := range file.Accounts {
		accounts = append(accounts, fromSchema(entry))
	}

	return accounts, nil
}

func (r *Repository) GetByID(ctx context.Context, id domain.AccountID) (domain.Account, error) {
	accounts, err := r.List(ctx)
	if err != nil {
		return domain.Account{}, err
	}

	for _, account := range accounts {
		if account.ID == id {
			return account, nil
		}
	}

	return domain.Account{}, domain.ErrAccountNotFound
}

// Save inserts or replaces account by id. The file is rewritten atomically.
func (r *Repository) Save(ctx context.Context, account domain.Account) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := account.Validate(); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidRequest, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	file, err := r.readSchema()
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	file.applyDefaults()

	encoded := toSchema(account)
	updated := false
	for i := range file.Accounts {
		if file.Accounts[i].ID == encoded.ID {
			file.Accounts[i] = encoded
			updated = true
			break
		}
	}

	if !updated {
		file.Accounts = append(file.Accounts, encoded)
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	return r.writeSchema(file)
}

// readSchema treats a missing file as an unavailable catalog, never as an empty one.
func (r *Repository) readSchema() (fileSchema, error) {
	data, err := os.ReadFile(r.catalogPath)
	if err != nil {
		return fileSchema{}, fmt.Errorf("read catalog file %s: %w: %w", r.catalogPath, domain.ErrCatalogUnavailable, err)
	}

	var file fileSchema
	if err := toml.Unmarshal(data, &file); err != nil {
		return fileSchema{}, fmt.Errorf("decode catalog file: %w: %w", domain.ErrCatalogUnavailable, err)
	}
	if err := file.validateVersion(); err != nil {
		return fileSchema{}, fmt.Errorf("%w: %w", domain.ErrCatalogUnavailable, err)
	}
	file.applyDefaults()

	return file, nil
}

func normalizeCatalogPath(path string) (string, error) {
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve catalog path: %w", err)
	}

	return filepath.Clean(absPath), nil
}

func lockForPath(path string) *sync.RWMutex {
	lockRegistryMu.Lock()
	defer lockRegistryMu.Unlock()

	if mu, ok := pathLockMap[path]; ok {
		return mu
	}

	mu := &sync.RWMutex{}
	pathLockMap[path] = mu
	return mu
}

func (r *Repository) writeSchema(file fileSchema) error {
	file.applyDefaults()

	if err := os.MkdirAll(filepath.Dir(r.catalogPath), catalogDirMode); err != nil {
		return fmt.Errorf("create catalog directory: %w", err)
	}

	data, err := toml.Marshal(file)
	if err != nil {
		return fmt.Errorf("encode catalog file: %w", err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(r.catalogPath), tempFilePattern)
	if err != nil {
		return fmt.Errorf("create temp catalog file: %w", err)
	}

	tempName := tempFile.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tempName)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("write temp catalog file: %w", err)
	}

	if err := tempFile.Chmod(catalogFileMode); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("chmod temp catalog file: %w", err)
	}

	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp catalog file: %w", err)
	}

	if err := os.Rename(tempName, r.catalogPath); err != nil {
		return fmt.Errorf("replace catalog file: %w", err)
	}

	cleanup = false
	return nil
}

func toSchema(account domain.Account) accountSchema {
	return accountSchema{
		ID:       string(account.ID),
		AgentID:  string(account.AgentID),
		Name:     account.Name,
		Contact:  account.ContactName,
		Email:    account.Email,
		Phone:    account.Phone,
		Category: string(account.Category),
		Address: addressSchema{
			Street:     account.Address.Street,
			City:       account.Address.City,
			Region:     account.Address.Region,
			PostalCode: account.Address.PostalCode,
			Country:    account.Address.Country,
		},
	}
}

func fromSchema(account accountSchema) domain.Account {
	return domain.Account{
		ID:          domain.AccountID(strings.TrimSpace(account.ID)),
		AgentID:     domain.AgentID(strings.TrimSpace(account.AgentID)),
		Name:        account.Name,
		ContactName: account.Contact,
		Email:       account.Email,
		Phone:       account.Phone,
		Category:    domain.ClientCategory(strings.ToLower(strings.TrimSpace(account.Category))),
		Address: domain.Address{
			Street:     account.Address.Street,
			City:       account.Address.City,
			Region:     account.Address.Region,
			PostalCode: account.Address.PostalCode,
			Country:    account.Address.Country,
		},
	}
}
