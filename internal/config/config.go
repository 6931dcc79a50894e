// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Cache backends.
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendGCS      = "gcs"
	BackendPostgres = "postgres"
)

// DefaultUserAgent is the desktop browser user agent sent by the scraper.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Auth         AuthConfig         `mapstructure:"auth"`
	LLM          LLMConfig          `mapstructure:"llm"`
	Scraper      ScraperConfig      `mapstructure:"scraper"`
	Headless     HeadlessConfig     `mapstructure:"headless"`
	Orchestrator OrchestratorConfig `mapstructure:"orchestrator"`
	Retry        RetryConfig        `mapstructure:"retry"`
	Cache        CacheConfig        `mapstructure:"cache"`
	PubSub       PubSubConfig       `mapstructure:"pubsub"`
	Logging      LoggingConfig      `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port                  int `mapstructure:"port"`
	RequestTimeoutSeconds int `mapstructure:"request_timeout_seconds"`
}

// AuthConfig defines API authentication and per-key limits.
type AuthConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Keys    []APIKey `mapstructure:"keys"`
}

// APIKey maps a key to a user and a per-minute request budget.
type APIKey struct {
	Key                string `mapstructure:"key"`
	User               string `mapstructure:"user"`
	RateLimitPerMinute int    `mapstructure:"rate_limit_per_minute"`
}

// LLMConfig configures the chat model.
type LLMConfig struct {
	BaseURL           string  `mapstructure:"base_url"`
	APIKey            string  `mapstructure:"api_key"`
	Model             string  `mapstructure:"model"`
	Temperature       float32 `mapstructure:"temperature"`
	RequestsPerMinute int     `mapstructure:"requests_per_minute"`
	TimeoutSeconds    int     `mapstructure:"timeout_seconds"`
}

// ScraperConfig configures static page fetching.
type ScraperConfig struct {
	TimeoutSeconds  int    `mapstructure:"timeout_seconds"`
	UserAgent       string `mapstructure:"user_agent"`
	MaxContentChars int    `mapstructure:"max_content_chars"`
	RespectRobots   bool   `mapstructure:"respect_robots"`

	// PerHostRPS paces fetches per host. Zero disables pacing.
	PerHostRPS   float64 `mapstructure:"per_host_rps"`
	PerHostBurst int     `mapstructure:"per_host_burst"`
}

// HeadlessConfig configures the headless rendering subsystem.
type HeadlessConfig struct {
	Enabled         bool `mapstructure:"enabled"`
	MaxParallel     int  `mapstructure:"max_parallel"`
	NavTimeoutSec   int  `mapstructure:"nav_timeout_seconds"`
	PromotionThresh int  `mapstructure:"promotion_threshold"`
}

// OrchestratorConfig sets admission and cache lifetime for analyses.
type OrchestratorConfig struct {
	RateLimitPerMinute int `mapstructure:"rate_limit_per_minute"`
	RateWindowSeconds  int `mapstructure:"rate_window_seconds"`
	PollIntervalMs     int `mapstructure:"poll_interval_ms"`
	CacheTTLSeconds    int `mapstructure:"cache_ttl_seconds"`
}

// RetryConfig configures stage retries.
type RetryConfig struct {
	MaxAttempts int `mapstructure:"max_attempts"`
	BaseDelayMs int `mapstructure:"base_delay_ms"`
	MaxDelayMs  int `mapstructure:"max_delay_ms"`
}

// CacheConfig selects and configures the cache backend.
type CacheConfig struct {
	Backend  string         `mapstructure:"backend"`
	MaxSize  int            `mapstructure:"max_size"`
	File     FileCache      `mapstructure:"file"`
	GCS      GCSCache       `mapstructure:"gcs"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

// FileCache configures the file-per-key backend.
type FileCache struct {
	Dir string `mapstructure:"dir"`
}

// GCSCache configures the object storage backend.
type GCSCache struct {
	Bucket string `mapstructure:"bucket"`
	Prefix string `mapstructure:"prefix"`
}

// PostgresConfig controls access to the cache table.
type PostgresConfig struct {
	DSN             string        `mapstructure:"dsn"`
	Table           string        `mapstructure:"table"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

// PubSubConfig holds metadata for publish-subscribe notifications.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// LoggingConfig toggles zap development features and the minimum level.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SITEINSIGHT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 5000)
	v.SetDefault("server.request_timeout_seconds", 180)
	v.SetDefault("auth.enabled", true)
	v.SetDefault("auth.keys", []map[string]any{
		{"key": "test-key-123", "user": "test_user", "rate_limit_per_minute": 5},
		{"key": "admin-key-456", "user": "admin_user", "rate_limit_per_minute": 100},
	})
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.model", "gpt-4-turbo-preview")
	v.SetDefault("llm.temperature", 0.3)
	v.SetDefault("llm.requests_per_minute", 60)
	v.SetDefault("llm.timeout_seconds", 60)
	v.SetDefault("scraper.timeout_seconds", 30)
	v.SetDefault("scraper.user_agent", DefaultUserAgent)
	v.SetDefault("scraper.max_content_chars", 8000)
	v.SetDefault("scraper.respect_robots", false)
	v.SetDefault("scraper.per_host_rps", 1.0)
	v.SetDefault("scraper.per_host_burst", 2)
	v.SetDefault("headless.enabled", false)
	v.SetDefault("headless.max_parallel", 1)
	v.SetDefault("headless.nav_timeout_seconds", 25)
	v.SetDefault("headless.promotion_threshold", 2048)
	v.SetDefault("orchestrator.rate_limit_per_minute", 60)
	v.SetDefault("orchestrator.rate_window_seconds", 60)
	v.SetDefault("orchestrator.poll_interval_ms", 1000)
	v.SetDefault("orchestrator.cache_ttl_seconds", 3600)
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.base_delay_ms", 4000)
	v.SetDefault("retry.max_delay_ms", 10000)
	v.SetDefault("cache.backend", BackendMemory)
	v.SetDefault("cache.max_size", 1000)
	v.SetDefault("cache.file.dir", "./cache")
	v.SetDefault("cache.gcs.bucket", "")
	v.SetDefault("cache.gcs.prefix", "analysis-cache")
	v.SetDefault("cache.postgres.dsn", "")
	v.SetDefault("cache.postgres.table", "analysis_cache")
	v.SetDefault("cache.postgres.max_conns", 4)
	v.SetDefault("cache.postgres.min_conns", 0)
	v.SetDefault("cache.postgres.max_conn_lifetime", "30m")
	v.SetDefault("pubsub.project_id", "")
	v.SetDefault("pubsub.topic_name", "")
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "info")
}

// Validate enforces required values and reasonable limits.
//
//nolint:gocognit // one flat check per knob
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Server.RequestTimeoutSeconds <= 0 {
		return fmt.Errorf("server.request_timeout_seconds must be > 0")
	}
	if c.Scraper.TimeoutSeconds <= 0 {
		return fmt.Errorf("scraper.timeout_seconds must be > 0")
	}
	if c.Scraper.MaxContentChars <= 0 {
		return fmt.Errorf("scraper.max_content_chars must be > 0")
	}
	if c.Scraper.PerHostRPS < 0 || c.Scraper.PerHostBurst < 0 {
		return fmt.Errorf("scraper.per_host_rps and scraper.per_host_burst must be >= 0")
	}
	if c.Headless.Enabled && c.Headless.MaxParallel <= 0 {
		return fmt.Errorf("headless.max_parallel must be > 0 when headless is enabled")
	}
	if c.LLM.RequestsPerMinute <= 0 {
		return fmt.Errorf("llm.requests_per_minute must be > 0")
	}
	if c.LLM.TimeoutSeconds <= 0 {
		return fmt.Errorf("llm.timeout_seconds must be > 0")
	}
	if c.Orchestrator.RateLimitPerMinute <= 0 || c.Orchestrator.RateWindowSeconds <= 0 {
		return fmt.Errorf("orchestrator rate limit and window must be > 0")
	}
	if c.Orchestrator.PollIntervalMs <= 0 {
		return fmt.Errorf("orchestrator.poll_interval_ms must be > 0")
	}
	if c.Orchestrator.CacheTTLSeconds < 0 {
		return fmt.Errorf("orchestrator.cache_ttl_seconds must be >= 0")
	}
	if c.Retry.MaxAttempts <= 0 {
		return fmt.Errorf("retry.max_attempts must be > 0")
	}
	if c.Retry.BaseDelayMs < 0 || c.Retry.MaxDelayMs < c.Retry.BaseDelayMs {
		return fmt.Errorf("retry delays must satisfy 0 <= base_delay_ms <= max_delay_ms")
	}
	if c.Cache.MaxSize < 0 {
		return fmt.Errorf("cache.max_size must be >= 0")
	}
	if err := c.validateCache(); err != nil {
		return err
	}
	return c.validateAuth()
}

func (c Config) validateCache() error {
	switch c.Cache.Backend {
	case BackendMemory:
	case BackendFile:
		if c.Cache.File.Dir == "" {
			return fmt.Errorf("cache.file.dir must be set for the file backend")
		}
	case BackendGCS:
		if c.Cache.GCS.Bucket == "" {
			return fmt.Errorf("cache.gcs.bucket must be set for the gcs backend")
		}
	case BackendPostgres:
		if c.Cache.Postgres.DSN == "" {
			return fmt.Errorf("cache.postgres.dsn must be set for the postgres backend")
		}
	default:
		return fmt.Errorf("cache.backend %q is not one of memory, file, gcs, postgres", c.Cache.Backend)
	}
	return nil
}

func (c Config) validateAuth() error {
	if !c.Auth.Enabled {
		return nil
	}
	if len(c.Auth.Keys) == 0 {
		return fmt.Errorf("auth.keys must list at least one key when auth is enabled")
	}
	seen := make(map[string]struct{}, len(c.Auth.Keys))
	for i, k := range c.Auth.Keys {
		if k.Key == "" {
			return fmt.Errorf("auth.keys[%d].key must be set", i)
		}
		if _, dup := seen[k.Key]; dup {
			return fmt.Errorf("auth.keys[%d].key is duplicated", i)
		}
		seen[k.Key] = struct{}{}
		if k.RateLimitPerMinute <= 0 {
			return fmt.Errorf("auth.keys[%d].rate_limit_per_minute must be > 0", i)
		}
	}
	return nil
}

// RequireLLM reports an error when no model credentials are configured.
func (c Config) RequireLLM() error {
	if c.LLM.APIKey == "" {
		return fmt.Errorf("llm.api_key must be set (SITEINSIGHT_LLM_API_KEY)")
	}
	return nil
}

// RequestTimeout is the budget of one HTTP request.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.Server.RequestTimeoutSeconds) * time.Second
}

// ScrapeTimeout is the static fetch timeout.
func (c Config) ScrapeTimeout() time.Duration {
	return time.Duration(c.Scraper.TimeoutSeconds) * time.Second
}

// LLMTimeout is the per-call model timeout.
func (c Config) LLMTimeout() time.Duration {
	return time.Duration(c.LLM.TimeoutSeconds) * time.Second
}

// NavTimeout is the headless navigation timeout.
func (c Config) NavTimeout() time.Duration {
	return time.Duration(c.Headless.NavTimeoutSec) * time.Second
}

// CacheTTL is the lifetime of cached analyses.
func (c Config) CacheTTL() time.Duration {
	return time.Duration(c.Orchestrator.CacheTTLSeconds) * time.Second
}

// RateWindow is the orchestrator admission window.
func (c Config) RateWindow() time.Duration {
	return time.Duration(c.Orchestrator.RateWindowSeconds) * time.Second
}

// PollInterval is how often a full admission window is re-checked.
func (c Config) PollInterval() time.Duration {
	return time.Duration(c.Orchestrator.PollIntervalMs) * time.Millisecond
}

// RetryDelays returns the base and maximum backoff.
func (c Config) RetryDelays() (base, maxDelay time.Duration) {
	return time.Duration(c.Retry.BaseDelayMs) * time.Millisecond,
		time.Duration(c.Retry.MaxDelayMs) * time.Millisecond
}
