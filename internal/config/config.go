// Package config defines the liquidrouter configuration and its validation.
package config

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/alanyoungcy/liquidrouter/internal/source"
)

// Config is the root configuration. Fields are populated from a TOML file
// and then optionally overridden by LQR_* environment variables.
type Config struct {
	Mode       string           `toml:"mode"`
	LogLevel   string           `toml:"log_level"`
	Log        LogConfig        `toml:"log"`
	Symbols    []string         `toml:"symbols"`
	Aggregator AggregatorConfig `toml:"aggregator"`
	Cache      CacheConfig      `toml:"cache"`
	Router     RouterConfig     `toml:"router"`
	Metrics    MetricsConfig    `toml:"metrics"`
	Sources    []SourceConfig   `toml:"sources"`
	Server     ServerConfig     `toml:"server"`
	Redis      RedisConfig      `toml:"redis"`
	Postgres   PostgresConfig   `toml:"postgres"`
	S3         S3Config         `toml:"s3"`
	Archive    ArchiveConfig    `toml:"archive"`
	Stream     StreamConfig     `toml:"stream"`
	Notify     NotifyConfig     `toml:"notify"`
}

// LogConfig controls the optional rotating log file. Stdout is always on.
type LogConfig struct {
	File       string `toml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
	Compress   bool   `toml:"compress"`
}

// AggregatorConfig bounds one aggregation cycle.
type AggregatorConfig struct {
	Depth    int      `toml:"depth"`
	Deadline duration `toml:"deadline"`
}

// CacheConfig sets the consolidated book lifetime.
type CacheConfig struct {
	TTL duration `toml:"ttl"`
}

// RouterConfig holds routing defaults.
type RouterConfig struct {
	FeeBps          float64   `toml:"fee_bps"`
	ImpactNotionals []float64 `toml:"impact_notionals"`
}

// MetricsConfig holds the default depth bands in percent of mid.
type MetricsConfig struct {
	DepthPcts []float64 `toml:"depth_pcts"`
}

// SourceConfig is one upstream venue.
type SourceConfig struct {
	ID             string  `toml:"id"`
	Kind           string  `toml:"kind"`
	Enabled        bool    `toml:"enabled"`
	Environment    string  `toml:"environment"`
	BaseURL        string  `toml:"base_url"`
	CredentialsRef string  `toml:"credentials_ref"`
	RatePerSec     float64 `toml:"rate_per_sec"`
	Burst          int     `toml:"burst"`
	MaxLevels      int     `toml:"max_levels"`
	// Static book for kind = "static", as [price, quantity] string pairs.
	Bids    [][]string `toml:"bids"`
	Asks    [][]string `toml:"asks"`
	Latency duration   `toml:"latency"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	APIKey      string   `toml:"api_key"`
	RateLimit   int      `toml:"rate_limit"`
	RateWindow  duration `toml:"rate_window"`
}

// RedisConfig holds Redis connection parameters. An empty Addr disables
// Redis.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
	KeyPrefix  string `toml:"key_prefix"`
}

// PostgresConfig holds connection parameters. Postgres is enabled when DSN
// or Host is set.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// Enabled reports whether a database is configured.
func (p PostgresConfig) Enabled() bool {
	return strings.TrimSpace(p.DSN) != "" || p.Host != ""
}

// S3Config holds S3-compatible object storage parameters. An empty Bucket
// disables archiving to S3.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// ArchiveConfig schedules moving old rows to S3.
type ArchiveConfig struct {
	Enabled       bool   `toml:"enabled"`
	Cron          string `toml:"cron"`
	RetentionDays int    `toml:"retention_days"`
}

// StreamConfig controls the book streamer in stream and full modes.
type StreamConfig struct {
	Interval duration `toml:"interval"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
	Cooldown          duration `toml:"cooldown"`
}

// duration wraps time.Duration so TOML strings like "500ms" decode.
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config that runs the API against the five public venue
// endpoints with no optional backends.
func Defaults() Config {
	return Config{
		Mode:     "server",
		LogLevel: "info",
		Log: LogConfig{
			MaxSizeMB:  100,
			MaxBackups: 5,
			MaxAgeDays: 14,
		},
		Symbols: []string{"BTC-USDT", "ETH-USDT"},
		Aggregator: AggregatorConfig{
			Depth:    100,
			Deadline: duration{500 * time.Millisecond},
		},
		Cache: CacheConfig{TTL: duration{time.Second}},
		Router: RouterConfig{
			FeeBps:          10,
			ImpactNotionals: []float64{1_000, 10_000, 100_000},
		},
		Metrics: MetricsConfig{
			DepthPcts: []float64{0.1, 0.5, 1, 2, 5},
		},
		Sources: []SourceConfig{
			{ID: "binance", Kind: "binance", Enabled: true, Environment: "live", RatePerSec: 10, Burst: 5},
			{ID: "bybit", Kind: "bybit", Enabled: true, Environment: "live", RatePerSec: 10, Burst: 5},
			{ID: "okx", Kind: "okx", Enabled: true, Environment: "live", RatePerSec: 10, Burst: 5},
			{ID: "kucoin", Kind: "kucoin", Enabled: true, Environment: "live", RatePerSec: 10, Burst: 5},
			{ID: "kraken", Kind: "kraken", Enabled: true, Environment: "live", RatePerSec: 1, Burst: 2},
		},
		Server: ServerConfig{
			Enabled:     true,
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
			RateLimit:   120,
			RateWindow:  duration{time.Minute},
		},
		Redis: RedisConfig{
			PoolSize:   20,
			MaxRetries: 3,
			KeyPrefix:  "lqr:",
		},
		Postgres: PostgresConfig{
			Port:          5432,
			Database:      "liquidrouter",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		S3: S3Config{
			Region:         "us-east-1",
			ForcePathStyle: true,
		},
		Archive: ArchiveConfig{
			Cron:          "0 3 * * *",
			RetentionDays: 30,
		},
		Stream: StreamConfig{Interval: duration{time.Second}},
		Notify: NotifyConfig{
			Events:   []string{"outage", "recovery"},
			Cooldown: duration{5 * time.Minute},
		},
	}
}

var (
	validModes       = []string{"server", "stream", "full"}
	validLogLevels   = []string{"debug", "info", "warn", "error"}
	validSourceKinds = []string{"binance", "bybit", "okx", "kucoin", "kraken", "static"}
	validEnvs        = []string{"live", "sandbox"}
)

// Validate checks every section and returns one error listing all
// problems found.
func (c *Config) Validate() error {
	var errs []string
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Sprintf(format, args...))
	}

	if !slices.Contains(validModes, strings.ToLower(c.Mode)) {
		add("unknown mode %q (valid: %s)", c.Mode, strings.Join(validModes, ", "))
	}
	if !slices.Contains(validLogLevels, strings.ToLower(c.LogLevel)) {
		add("unknown log_level %q (valid: %s)", c.LogLevel, strings.Join(validLogLevels, ", "))
	}
	if c.Log.File != "" && c.Log.MaxSizeMB <= 0 {
		add("log: max_size_mb must be > 0 when file is set")
	}

	if len(c.Symbols) == 0 {
		add("symbols: at least one symbol is required")
	}
	for _, s := range c.Symbols {
		if _, err := source.NormalizeSymbol(s); err != nil {
			add("symbols: %v", err)
		}
	}

	if c.Aggregator.Depth <= 0 {
		add("aggregator: depth must be > 0")
	}
	if c.Aggregator.Deadline.Duration <= 0 {
		add("aggregator: deadline must be > 0")
	}
	if ttl := c.Cache.TTL.Duration; ttl <= 0 || ttl > 5*time.Second {
		add("cache: ttl must be in (0, 5s], got %s", ttl)
	}
	if c.Router.FeeBps < 0 {
		add("router: fee_bps must be >= 0")
	}
	for _, n := range c.Router.ImpactNotionals {
		if n <= 0 {
			add("router: impact_notionals must be positive, got %v", n)
		}
	}
	for _, p := range c.Metrics.DepthPcts {
		if p <= 0 {
			add("metrics: depth_pcts must be positive, got %v", p)
		}
	}

	c.validateSources(add)

	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			add("server: port must be 1-65535, got %d", c.Server.Port)
		}
		if c.Server.RateLimit < 0 {
			add("server: rate_limit must be >= 0")
		}
		if c.Server.RateLimit > 0 && c.Server.RateWindow.Duration <= 0 {
			add("server: rate_window must be > 0 when rate_limit is set")
		}
	}

	if c.Redis.Addr != "" && c.Redis.PoolSize < 1 {
		add("redis: pool_size must be >= 1")
	}
	if c.Postgres.Enabled() {
		if strings.TrimSpace(c.Postgres.DSN) == "" {
			if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
				add("postgres: port must be 1-65535, got %d", c.Postgres.Port)
			}
			if c.Postgres.Database == "" {
				add("postgres: database must not be empty")
			}
		}
		if c.Postgres.PoolMaxConns < 1 {
			add("postgres: pool_max_conns must be >= 1")
		}
		if c.Postgres.PoolMinConns < 0 || c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
			add("postgres: pool_min_conns must be between 0 and pool_max_conns")
		}
	}
	if c.S3.Bucket != "" && c.S3.Region == "" {
		add("s3: region must not be empty")
	}

	if c.Archive.Enabled {
		if !c.Postgres.Enabled() {
			add("archive: requires postgres")
		}
		if c.S3.Bucket == "" {
			add("archive: requires s3.bucket")
		}
		if len(strings.Fields(c.Archive.Cron)) != 5 {
			add("archive: cron must have 5 fields, got %q", c.Archive.Cron)
		}
		if c.Archive.RetentionDays <= 0 {
			add("archive: retention_days must be > 0")
		}
	}

	if c.Mode == "stream" || c.Mode == "full" {
		if c.Redis.Addr == "" {
			add("stream: mode %s requires redis.addr", c.Mode)
		}
		if c.Stream.Interval.Duration <= 0 {
			add("stream: interval must be > 0")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func (c *Config) validateSources(add func(string, ...any)) {
	seen := make(map[string]bool, len(c.Sources))
	enabled := 0
	for i, s := range c.Sources {
		label := s.ID
		if label == "" {
			label = fmt.Sprintf("#%d", i)
			add("sources[%d]: id must not be empty", i)
		}
		if seen[s.ID] {
			add("sources: duplicate id %q", s.ID)
		}
		seen[s.ID] = true

		if !slices.Contains(validSourceKinds, s.Kind) {
			add("source %s: unknown kind %q (valid: %s)", label, s.Kind, strings.Join(validSourceKinds, ", "))
		}
		if s.Environment != "" && !slices.Contains(validEnvs, s.Environment) {
			add("source %s: environment must be live or sandbox, got %q", label, s.Environment)
		}
		if s.RatePerSec < 0 || s.Burst < 0 {
			add("source %s: rate_per_sec and burst must be >= 0", label)
		}
		if s.MaxLevels < 0 {
			add("source %s: max_levels must be >= 0", label)
		}
		if s.Kind == "static" {
			for _, lvl := range append(slices.Clone(s.Bids), s.Asks...) {
				if len(lvl) != 2 {
					add("source %s: static levels must be [price, quantity] pairs", label)
					break
				}
			}
		}
		if s.Enabled {
			enabled++
		}
	}
	if enabled == 0 {
		add("sources: at least one source must be enabled")
	}
}
