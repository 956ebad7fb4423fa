// Package config loads oq settings from config.toml, .env files and OQ_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bnema/outreach-quota/internal/application"
	"github.com/bnema/outreach-quota/internal/domain"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	envPrefix  = "OQ"
	configDir  = ".outreach"
	configName = "config"
	configType = "toml"

	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

const (
	KeyStoreDriver       = "store.driver"
	KeyStoreTimeout      = "store.timeout"
	KeySQLitePath        = "store.sqlite.path"
	KeyPostgresDSN       = "store.postgres.dsn"
	KeyPostgresMaxConns  = "store.postgres.max_conns"
	KeyRedisAddr         = "store.redis.addr"
	KeyRedisPassword     = "store.redis.password"
	KeyRedisDB           = "store.redis.db"
	KeyCatalogPath       = "catalog.path"
	KeyCatalogTimeout    = "catalog.timeout"
	KeyQuotaBase         = "quota.base"
	KeyQuotaExclusion    = "quota.exclusion_days"
	KeyQuotaRestDay      = "quota.rest_day"
	KeyHTTPListen        = "http.listen"
	KeyHTTPRateLimit     = "http.rate_limit"
	KeyHTTPBurst         = "http.burst"
	KeyHTTPShutdownGrace = "http.shutdown_timeout"
	KeyLogLevel          = "log.level"
	KeyLogFormat         = "log.format"
	KeySecretsDir        = "secrets.dir"
)

type Config struct {
	Store   StoreConfig
	Catalog CatalogConfig
	Quota   QuotaConfig
	HTTP    HTTPConfig
	Log     LogConfig
	Secrets SecretsConfig
}

type StoreConfig struct {
	Driver           string
	Timeout          time.Duration
	SQLitePath       string
	PostgresDSN      string
	PostgresMaxConns int
	RedisAddr        string
	RedisPassword    string
	RedisDB          int
}

type CatalogConfig struct {
	Path    string
	Timeout time.Duration
}

type QuotaConfig struct {
	Base          int
	ExclusionDays int
	RestDays      []time.Weekday
}

type HTTPConfig struct {
	Listen          string
	RateLimit       float64
	Burst           int
	ShutdownTimeout time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

// SecretsConfig locates the file fallback for secret: references; pass is tried first.
type SecretsConfig struct {
	Dir string
}

// Load resolves the configuration into v and returns it validated. A nil v
// uses a fresh viper instance. Variables from the first .env file found are
// exported without overriding the existing environment.
func Load(v *viper.Viper) (Config, error) {
	if v == nil {
		v = viper.New()
	}

	loadDotEnv()

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return Config{}, fmt.Errorf("resolve home directory: %w", err)
	}
	setDefaults(v, homeDir)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if explicit := os.Getenv(envPrefix + "_CONFIG"); explicit != "" {
		v.SetConfigFile(explicit)
	} else {
		v.SetConfigName(configName)
		v.SetConfigType(configType)
		v.AddConfigPath(filepath.Join(homeDir, configDir))
	}

	if err := v.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	restDays, err := parseRestDays(v.GetString(KeyQuotaRestDay))
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Store: StoreConfig{
			Driver:           strings.ToLower(strings.TrimSpace(v.GetString(KeyStoreDriver))),
			Timeout:          v.GetDuration(KeyStoreTimeout),
			SQLitePath:       expandHome(v.GetString(KeySQLitePath), homeDir),
			PostgresDSN:      v.GetString(KeyPostgresDSN),
			PostgresMaxConns: v.GetInt(KeyPostgresMaxConns),
			RedisAddr:        v.GetString(KeyRedisAddr),
			RedisPassword:    v.GetString(KeyRedisPassword),
			RedisDB:          v.GetInt(KeyRedisDB),
		},
		Catalog: CatalogConfig{
			Path:    expandHome(v.GetString(KeyCatalogPath), homeDir),
			Timeout: v.GetDuration(KeyCatalogTimeout),
		},
		Quota: QuotaConfig{
			Base:          v.GetInt(KeyQuotaBase),
			ExclusionDays: v.GetInt(KeyQuotaExclusion),
			RestDays:      restDays,
		},
		HTTP: HTTPConfig{
			Listen:          v.GetString(KeyHTTPListen),
			RateLimit:       v.GetFloat64(KeyHTTPRateLimit),
			Burst:           v.GetInt(KeyHTTPBurst),
			ShutdownTimeout: v.GetDuration(KeyHTTPShutdownGrace),
		},
		Log: LogConfig{
			Level:  v.GetString(KeyLogLevel),
			Format: v.GetString(KeyLogFormat),
		},
		Secrets: SecretsConfig{
			Dir: expandHome(v.GetString(KeySecretsDir), homeDir),
		},
	}

	// Keep the resolved path visible to adapters reading from v.
	v.Set(KeyCatalogPath, cfg.Catalog.Path)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.Store.Driver {
	case DriverSQLite:
		if strings.TrimSpace(c.Store.SQLitePath) == "" {
			return errors.New("store.sqlite.path is required for the sqlite driver")
		}
	case DriverPostgres:
		if strings.TrimSpace(c.Store.PostgresDSN) == "" {
			return errors.New("store.postgres.dsn is required for the postgres driver")
		}
	case DriverRedis:
		if strings.TrimSpace(c.Store.RedisAddr) == "" {
			return errors.New("store.redis.addr is required for the redis driver")
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}

	if c.HTTP.RateLimit < 0 || c.HTTP.Burst < 0 {
		return errors.New("http rate limit and burst must not be negative")
	}

	if err := c.Policy().Validate(); err != nil {
		return fmt.Errorf("quota policy: %w", err)
	}
	return nil
}

func (c Config) Policy() application.Policy {
	return application.Policy{
		BaseQuota:       c.Quota.Base,
		ExclusionWindow: c.Quota.ExclusionDays,
		RestDays:        append([]time.Weekday(nil), c.Quota.RestDays...),
		CatalogTimeout:  c.Catalog.Timeout,
		StoreTimeout:    c.Store.Timeout,
	}
}

func setDefaults(v *viper.Viper, homeDir string) {
	base := filepath.Join(homeDir, configDir)

	v.SetDefault(KeyStoreDriver, DriverSQLite)
	v.SetDefault(KeyStoreTimeout, 5*time.Second)
	v.SetDefault(KeySQLitePath, filepath.Join(base, "allocations.db"))
	v.SetDefault(KeyPostgresDSN, "")
	v.SetDefault(KeyPostgresMaxConns, 10)
	v.SetDefault(KeyRedisAddr, "127.0.0.1:6379")
	v.SetDefault(KeyRedisPassword, "")
	v.SetDefault(KeyRedisDB, 0)
	v.SetDefault(KeyCatalogPath, filepath.Join(base, "accounts.toml"))
	v.SetDefault(KeyCatalogTimeout, 5*time.Second)
	v.SetDefault(KeyQuotaBase, application.DefaultBaseQuota)
	v.SetDefault(KeyQuotaExclusion, application.DefaultExclusionWindow)
	v.SetDefault(KeyQuotaRestDay, "sunday")
	v.SetDefault(KeyHTTPListen, "127.0.0.1:8085")
	v.SetDefault(KeyHTTPRateLimit, 50.0)
	v.SetDefault(KeyHTTPBurst, 100)
	v.SetDefault(KeyHTTPShutdownGrace, 10*time.Second)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "text")
	v.SetDefault(KeySecretsDir, filepath.Join(base, "secrets"))
}

// parseRestDays accepts a comma separated weekday list; "none" or "" disables rest days.
func parseRestDays(raw string) ([]time.Weekday, error) {
	trimmed := strings.ToLower(strings.TrimSpace(raw))
	if trimmed == "" || trimmed == "none" {
		return nil, nil
	}

	var days []time.Weekday
	for _, part := range strings.Split(trimmed, ",") {
		day, err := domain.ParseWeekday(part)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", KeyQuotaRestDay, err)
		}
		days = append(days, day)
	}
	return days, nil
}

func loadDotEnv() {
	for _, path := range envPaths() {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func envPaths() []string {
	var paths []string
	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, ".env"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, configDir, ".env"))
	}
	return paths
}

func expandHome(path, homeDir string) string {
	if path == "~" {
		return homeDir
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(homeDir, path[2:])
	}
	return path
}
