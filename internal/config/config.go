// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	custom_errors "github-dashboard-sync/internal/errors"
)

const maxSyncConcurrency = 5

// Config holds all configuration for the application.
type Config struct {
	LogLevel string `mapstructure:"LOG_LEVEL"`
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	DBURL    string `mapstructure:"DB_URL"`
	RedisURL string `mapstructure:"REDIS_URL"`
	KVPrefix string `mapstructure:"KV_PREFIX"`

	GithubToken  string   `mapstructure:"GITHUB_TOKEN"`
	GithubAPIURL string   `mapstructure:"GITHUB_API_URL"`
	ReposToSync  []string `mapstructure:"REPOS_TO_SYNC"`

	SyncInterval        time.Duration `mapstructure:"SYNC_INTERVAL"`
	SyncOnStart         string        `mapstructure:"SYNC_ON_START"`
	SyncConcurrency     int           `mapstructure:"SYNC_CONCURRENCY"`
	SyncLockTTL         time.Duration `mapstructure:"SYNC_LOCK_TTL"`
	IncrementalLookback time.Duration `mapstructure:"INCREMENTAL_LOOKBACK"`
	IncrementalCommits  bool          `mapstructure:"INCREMENTAL_COMMITS"`
	CommitLimit         int           `mapstructure:"COMMIT_LIMIT"`
	HistoryLimit        int           `mapstructure:"HISTORY_LIMIT"`
	SyncRunRetention    time.Duration `mapstructure:"SYNC_RUN_RETENTION"`

	UpstreamTimeout    time.Duration `mapstructure:"UPSTREAM_TIMEOUT"`
	UpstreamMaxRetries int           `mapstructure:"UPSTREAM_MAX_RETRIES"`
	RateLimitLowWater  int           `mapstructure:"RATE_LIMIT_LOW_WATER"`
	RateLimitBudget    int           `mapstructure:"RATE_LIMIT_HOURLY_BUDGET"`

	CacheTTLStatus  time.Duration `mapstructure:"CACHE_TTL_STATUS"`
	CacheTTLListing time.Duration `mapstructure:"CACHE_TTL_LISTING"`
	CacheTTLStats   time.Duration `mapstructure:"CACHE_TTL_STATS"`
	CacheTTLDefault time.Duration `mapstructure:"CACHE_TTL_DEFAULT"`

	MetricsEnabled bool `mapstructure:"METRICS_ENABLED"`
}

var defaults = map[string]any{
	"LOG_LEVEL":                "info",
	"HTTP_ADDR":                ":8080",
	"DB_URL":                   "",
	"REDIS_URL":                "",
	"KV_PREFIX":                "ghdash:",
	"GITHUB_TOKEN":             "",
	"GITHUB_API_URL":           "",
	"REPOS_TO_SYNC":            "",
	"SYNC_INTERVAL":            "1h",
	"SYNC_ON_START":            "incremental",
	"SYNC_CONCURRENCY":         3,
	"SYNC_LOCK_TTL":            "30m",
	"INCREMENTAL_LOOKBACK":     "24h",
	"INCREMENTAL_COMMITS":      true,
	"COMMIT_LIMIT":             100,
	"HISTORY_LIMIT":            100,
	"SYNC_RUN_RETENTION":       "720h",
	"UPSTREAM_TIMEOUT":         "30s",
	"UPSTREAM_MAX_RETRIES":     3,
	"RATE_LIMIT_LOW_WATER":     10,
	"RATE_LIMIT_HOURLY_BUDGET": 5000,
	"CACHE_TTL_STATUS":         "1m",
	"CACHE_TTL_LISTING":        "10m",
	"CACHE_TTL_STATS":          "1h",
	"CACHE_TTL_DEFAULT":        "5m",
	"METRICS_ENABLED":          true,
}

// LoadConfig reads configuration from a .env file in the working directory and environment variables.
func LoadConfig() (*Config, error) {
	return Load(newViper())
}

// LoadDatabaseURL resolves only DB_URL, for commands that never talk to GitHub.
func LoadDatabaseURL() (string, error) {
	v := newViper()
	v.SetDefault("DB_URL", "")
	v.AutomaticEnv()
	url := v.GetString("DB_URL")
	if url == "" {
		return "", errors.New("DB_URL is a required configuration field")
	}
	return url, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // Ignore error if file not found
	return v
}

// Load resolves configuration from the given viper instance plus the environment.
// Every key gets a default so that Unmarshal picks up environment-only values.
func Load(v *viper.Viper) (*Config, error) {
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	cfg.ReposToSync = normalizeRepos(cfg.ReposToSync)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks required fields and clamps tunables into range.
func (c *Config) Validate() error {
	if c.DBURL == "" {
		return errors.New("DB_URL is a required configuration field")
	}
	if c.GithubToken == "" {
		return errors.New("GITHUB_TOKEN is a required configuration field")
	}
	if len(c.ReposToSync) == 0 {
		return errors.New("REPOS_TO_SYNC must contain at least one repository")
	}
	for _, r := range c.ReposToSync {
		parts := strings.Split(r, "/")
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return &custom_errors.ErrInvalidRepoFormat{Repo: r}
		}
	}
	switch c.SyncOnStart {
	case "full", "incremental", "none":
	default:
		return fmt.Errorf("SYNC_ON_START must be one of full, incremental, none (got %q)", c.SyncOnStart)
	}
	if c.SyncLockTTL <= 0 {
		return errors.New("SYNC_LOCK_TTL must be positive")
	}
	if c.SyncConcurrency < 1 {
		c.SyncConcurrency = 1
	}
	if c.SyncConcurrency > maxSyncConcurrency {
		c.SyncConcurrency = maxSyncConcurrency
	}
	if c.UpstreamMaxRetries < 1 {
		c.UpstreamMaxRetries = 1
	}
	return nil
}

// normalizeRepos trims entries and drops empty ones left by trailing commas.
func normalizeRepos(in []string) []string {
	var out []string
	for _, r := range in {
		for _, part := range strings.Split(r, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
