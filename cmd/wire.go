package cmd

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	tomlcatalog "github.com/bnema/outreach-quota/internal/adapters/catalog/toml"
	allocationrender "github.com/bnema/outreach-quota/internal/adapters/render/allocation"
	"github.com/bnema/outreach-quota/internal/adapters/repo/postgres"
	"github.com/bnema/outreach-quota/internal/adapters/repo/redis"
	"github.com/bnema/outreach-quota/internal/adapters/repo/sqlite"
	"github.com/bnema/outreach-quota/internal/adapters/secrets/chain"
	"github.com/bnema/outreach-quota/internal/application"
	"github.com/bnema/outreach-quota/internal/config"
	"github.com/bnema/outreach-quota/internal/domain"
	"github.com/bnema/outreach-quota/internal/logger"
	"github.com/bnema/outreach-quota/internal/ports"
	"github.com/spf13/viper"
)

// allocationStore is what every store adapter offers on top of the port.
type allocationStore interface {
	ports.AllocationStore
	Ping(ctx context.Context) error
	Close() error
}

// accountWriter adds or replaces catalog entries.
type accountWriter interface {
	Save(ctx context.Context, account domain.Account) error
}

type app struct {
	cfg     config.Config
	catalog ports.AccountCatalog
	writer  accountWriter
	secrets ports.SecretReader
	clock   ports.Clock

	allocationRenderer func(application.Allocation) (string, error)
	accountsRenderer   func(domain.AgentID, []domain.Account) (string, error)
	exclusionsRenderer func(application.Exclusions) (string, error)

	mu      sync.Mutex
	store   allocationStore
	service *application.AllocationService
}

func wireApp() (*app, error) {
	v := viper.New()
	cfg, err := config.Load(v)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if err := logger.Configure(cfg.Log.Level, cfg.Log.Format, os.Stderr); err != nil {
		return nil, fmt.Errorf("configure logger: %w", err)
	}

	catalog, err := tomlcatalog.NewRepository(v)
	if err != nil {
		return nil, fmt.Errorf("wire account catalog: %w", err)
	}

	secrets, err := chain.NewPassFirstWithFileFallback(cfg.Secrets.Dir)
	if err != nil {
		return nil, fmt.Errorf("wire secret store chain: %w", err)
	}

	return &app{
		cfg:                cfg,
		catalog:            catalog,
		writer:             catalog,
		secrets:            secrets,
		clock:              ports.SystemClock{},
		allocationRenderer: allocationrender.Render,
		accountsRenderer:   allocationrender.RenderAccounts,
		exclusionsRenderer: allocationrender.RenderExclusions,
	}, nil
}

// allocations opens the configured store on first use so commands that never
// touch it, like version, do not need a reachable backend.
func (a *app) allocations(ctx context.Context) (*application.AllocationService, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.service != nil {
		return a.service, nil
	}

	storeCfg, err := resolveStoreSecrets(ctx, a.secrets, a.cfg.Store)
	if err != nil {
		return nil, err
	}

	store, err := openStore(ctx, storeCfg)
	if err != nil {
		return nil, err
	}

	a.store = store
	a.service = application.NewAllocationService(a.catalog, store, a.cfg.Policy(), application.NewQuotaSampler(nil), a.clock)
	return a.service, nil
}

func (a *app) ping(ctx context.Context) error {
	a.mu.Lock()
	store := a.store
	a.mu.Unlock()

	if store == nil {
		return nil
	}
	return store.Ping(ctx)
}

func (a *app) close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.store == nil {
		return nil
	}
	err := a.store.Close()
	a.store = nil
	a.service = nil
	return err
}

func (a *app) now() time.Time {
	return a.clock.Now()
}

// resolveStoreSecrets replaces secret: references in the store credentials.
func resolveStoreSecrets(ctx context.Context, secrets ports.SecretReader, cfg config.StoreConfig) (config.StoreConfig, error) {
	dsn, err := chain.Resolve(ctx, secrets, cfg.PostgresDSN)
	if err != nil {
		return config.StoreConfig{}, fmt.Errorf("store.postgres.dsn: %w", err)
	}
	password, err := chain.Resolve(ctx, secrets, cfg.RedisPassword)
	if err != nil {
		return config.StoreConfig{}, fmt.Errorf("store.redis.password: %w", err)
	}

	cfg.PostgresDSN = dsn
	cfg.RedisPassword = password
	return cfg, nil
}

func openStore(ctx context.Context, cfg config.StoreConfig) (allocationStore, error) {
	openCtx, cancel := context.WithTimeout(ctx, storeOpenTimeout(cfg))
	defer cancel()

	switch cfg.Driver {
	case config.DriverSQLite:
		store, err := sqlite.Open(openCtx, cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		logger.Debug("allocation store opened", "driver", cfg.Driver, "path", store.Path())
		return store, nil
	case config.DriverPostgres:
		store, err := postgres.Open(openCtx, cfg.PostgresDSN, cfg.PostgresMaxConns)
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		logger.Debug("allocation store opened", "driver", cfg.Driver)
		return store, nil
	case config.DriverRedis:
		store, err := redis.Open(openCtx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, fmt.Errorf("open redis store: %w", err)
		}
		logger.Debug("allocation store opened", "driver", cfg.Driver, "addr", cfg.RedisAddr)
		return store, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

func storeOpenTimeout(cfg config.StoreConfig) time.Duration {
	if cfg.Timeout > 0 {
		return 2 * cfg.Timeout
	}
	return 10 * time.Second
}
