package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTOML(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, time.Second, cfg.Cache.TTL.Duration)
	assert.Equal(t, 500*time.Millisecond, cfg.Aggregator.Deadline.Duration)
	assert.Len(t, cfg.Sources, 5)
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	path := writeTOML(t, `
mode = "server"
symbols = ["BTC-USDT", "SOL-USDT"]

[aggregator]
deadline = "250ms"

[cache]
ttl = "2s"

[router]
fee_bps = 7.5

[[sources]]
id = "local"
kind = "static"
enabled = true
bids = [["100", "1"], ["99", "2"]]
asks = [["101", "1"]]
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, []string{"BTC-USDT", "SOL-USDT"}, cfg.Symbols)
	assert.Equal(t, 250*time.Millisecond, cfg.Aggregator.Deadline.Duration)
	assert.Equal(t, 100, cfg.Aggregator.Depth, "unset keys keep defaults")
	assert.Equal(t, 2*time.Second, cfg.Cache.TTL.Duration)
	assert.InDelta(t, 7.5, cfg.Router.FeeBps, 1e-9)

	require.Len(t, cfg.Sources, 1, "sources array replaces the default venues")
	assert.Equal(t, "static", cfg.Sources[0].Kind)
	assert.Equal(t, [][]string{{"100", "1"}, {"99", "2"}}, cfg.Sources[0].Bids)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.Error(t, err)
}

func TestLoadEmptyPathUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "server", cfg.Mode)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("LQR_MODE", "full")
	t.Setenv("LQR_SYMBOLS", "eth-usdt, btc-usdt ,")
	t.Setenv("LQR_CACHE_TTL", "750ms")
	t.Setenv("LQR_SERVER_PORT", "9100")
	t.Setenv("LQR_SERVER_API_KEY", "k")
	t.Setenv("LQR_REDIS_ADDR", "redis:6379")
	t.Setenv("DATABASE_URL", "postgres://alias")
	t.Setenv("LQR_POSTGRES_DSN", "postgres://primary")
	t.Setenv("LQR_SOURCE_KRAKEN_ENABLED", "false")
	t.Setenv("LQR_SERVER_RATE_LIMIT", "not-a-number")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "full", cfg.Mode)
	assert.Equal(t, []string{"eth-usdt", "btc-usdt"}, cfg.Symbols)
	assert.Equal(t, 750*time.Millisecond, cfg.Cache.TTL.Duration)
	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, "k", cfg.Server.APIKey)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, "postgres://primary", cfg.Postgres.DSN)
	assert.Equal(t, 120, cfg.Server.RateLimit, "unparseable values are ignored")

	for _, s := range cfg.Sources {
		if s.ID == "kraken" {
			assert.False(t, s.Enabled)
		}
	}
}

func TestValidateCollectsProblems(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "batch"
	cfg.Symbols = []string{"BTCUSDT"}
	cfg.Cache.TTL = duration{10 * time.Second}
	cfg.Aggregator.Deadline = duration{}
	cfg.Sources = append(cfg.Sources,
		SourceConfig{ID: "binance", Kind: "binance", Enabled: true},
		SourceConfig{ID: "ftx", Kind: "ftx"},
		SourceConfig{ID: "s", Kind: "static", Bids: [][]string{{"1"}}},
	)
	cfg.Archive.Enabled = true

	err := cfg.Validate()
	require.Error(t, err)
	msg := err.Error()
	for _, want := range []string{
		`unknown mode "batch"`,
		`symbols: symbol "BTCUSDT"`,
		"cache: ttl must be in (0, 5s]",
		"aggregator: deadline must be > 0",
		`duplicate id "binance"`,
		`unknown kind "ftx"`,
		"static levels must be [price, quantity] pairs",
		"archive: requires postgres",
		"archive: requires s3.bucket",
	} {
		assert.Contains(t, msg, want)
	}
}

func TestValidateNeedsEnabledSource(t *testing.T) {
	cfg := Defaults()
	for i := range cfg.Sources {
		cfg.Sources[i].Enabled = false
	}
	assert.ErrorContains(t, cfg.Validate(), "at least one source must be enabled")
}

func TestValidateStreamNeedsRedis(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "stream"
	assert.ErrorContains(t, cfg.Validate(), "requires redis.addr")

	cfg.Redis.Addr = "localhost:6379"
	assert.NoError(t, cfg.Validate())
}

func TestRedactedConfig(t *testing.T) {
	cfg := Defaults()
	cfg.Server.APIKey = "key"
	cfg.Postgres.DSN = "postgres://u:p@h/db"
	cfg.Postgres.Password = "p"
	cfg.Redis.Password = "r"
	cfg.S3.AccessKey = "ak"
	cfg.S3.SecretKey = "sk"
	cfg.Notify.TelegramToken = "tg"

	out := RedactedConfig(&cfg)
	assert.Equal(t, "***", out.Server.APIKey)
	assert.Equal(t, "***", out.Postgres.DSN)
	assert.Equal(t, "***", out.Postgres.Password)
	assert.Equal(t, "***", out.Redis.Password)
	assert.Equal(t, "***", out.S3.AccessKey)
	assert.Equal(t, "***", out.S3.SecretKey)
	assert.Equal(t, "***", out.Notify.TelegramToken)
	assert.Empty(t, out.Notify.DiscordWebhookURL, "empty secrets stay empty")

	assert.Equal(t, "key", cfg.Server.APIKey, "original untouched")
	out.Sources[0].ID = "changed"
	assert.Equal(t, "binance", cfg.Sources[0].ID)
}

func TestExampleConfigIsValid(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "config.example.toml"))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	assert.Len(t, cfg.Sources, 6)
	assert.Equal(t, 20*time.Millisecond, cfg.Sources[5].Latency.Duration)
}
