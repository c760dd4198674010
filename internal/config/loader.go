package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies LQR_* environment variable overrides, and
// returns the final Config. An empty path skips the file. The returned
// Config has NOT been validated; the caller should invoke Config.Validate()
// after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		// A [[sources]] array replaces the default venue list wholesale.
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known LQR_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). Secrets are meant to arrive this way rather than through the file.
func applyEnvOverrides(cfg *Config) {
	// ── Top-level ──
	setStr(&cfg.Mode, "LQR_MODE")
	setStr(&cfg.LogLevel, "LQR_LOG_LEVEL")
	setStr(&cfg.Log.File, "LQR_LOG_FILE")
	setStringSlice(&cfg.Symbols, "LQR_SYMBOLS")

	// ── Aggregation ──
	setInt(&cfg.Aggregator.Depth, "LQR_AGGREGATOR_DEPTH")
	setDuration(&cfg.Aggregator.Deadline, "LQR_AGGREGATOR_DEADLINE")
	setDuration(&cfg.Cache.TTL, "LQR_CACHE_TTL")
	setFloat64(&cfg.Router.FeeBps, "LQR_ROUTER_FEE_BPS")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "LQR_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "LQR_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "LQR_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "LQR_SERVER_API_KEY")
	setInt(&cfg.Server.RateLimit, "LQR_SERVER_RATE_LIMIT")
	setDuration(&cfg.Server.RateWindow, "LQR_SERVER_RATE_WINDOW")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "LQR_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "LQR_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "LQR_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "LQR_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "LQR_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "LQR_REDIS_TLS_ENABLED")
	setStr(&cfg.Redis.KeyPrefix, "LQR_REDIS_KEY_PREFIX")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "DATABASE_URL") // compatibility alias
	setStr(&cfg.Postgres.DSN, "LQR_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "LQR_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "LQR_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "LQR_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "LQR_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "LQR_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "LQR_POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "LQR_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "LQR_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "LQR_POSTGRES_RUN_MIGRATIONS")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "LQR_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "LQR_S3_REGION")
	setStr(&cfg.S3.Bucket, "LQR_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "LQR_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "LQR_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "LQR_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "LQR_S3_FORCE_PATH_STYLE")

	// ── Archive / stream ──
	setBool(&cfg.Archive.Enabled, "LQR_ARCHIVE_ENABLED")
	setStr(&cfg.Archive.Cron, "LQR_ARCHIVE_CRON")
	setInt(&cfg.Archive.RetentionDays, "LQR_ARCHIVE_RETENTION_DAYS")
	setDuration(&cfg.Stream.Interval, "LQR_STREAM_INTERVAL")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "LQR_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "LQR_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "LQR_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "LQR_NOTIFY_EVENTS")
	setDuration(&cfg.Notify.Cooldown, "LQR_NOTIFY_COOLDOWN")

	// ── Per-source ──
	// LQR_SOURCE_<ID>_ENABLED and LQR_SOURCE_<ID>_BASE_URL, with the id
	// upper-cased and dashes turned into underscores.
	for i := range cfg.Sources {
		prefix := "LQR_SOURCE_" + envKey(cfg.Sources[i].ID) + "_"
		setBool(&cfg.Sources[i].Enabled, prefix+"ENABLED")
		setStr(&cfg.Sources[i].BaseURL, prefix+"BASE_URL")
		setStr(&cfg.Sources[i].Environment, prefix+"ENVIRONMENT")
	}
}

func envKey(id string) string {
	return strings.ToUpper(strings.ReplaceAll(id, "-", "_"))
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
