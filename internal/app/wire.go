package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/liquidrouter/internal/aggregator"
	s3blob "github.com/alanyoungcy/liquidrouter/internal/blob/s3"
	"github.com/alanyoungcy/liquidrouter/internal/cache"
	"github.com/alanyoungcy/liquidrouter/internal/cache/redis"
	"github.com/alanyoungcy/liquidrouter/internal/config"
	"github.com/alanyoungcy/liquidrouter/internal/crypto"
	"github.com/alanyoungcy/liquidrouter/internal/domain"
	"github.com/alanyoungcy/liquidrouter/internal/notify"
	"github.com/alanyoungcy/liquidrouter/internal/platform/binance"
	"github.com/alanyoungcy/liquidrouter/internal/platform/bybit"
	"github.com/alanyoungcy/liquidrouter/internal/platform/kraken"
	"github.com/alanyoungcy/liquidrouter/internal/platform/kucoin"
	"github.com/alanyoungcy/liquidrouter/internal/platform/okx"
	"github.com/alanyoungcy/liquidrouter/internal/router"
	"github.com/alanyoungcy/liquidrouter/internal/server/handler"
	"github.com/alanyoungcy/liquidrouter/internal/service"
	"github.com/alanyoungcy/liquidrouter/internal/source"
	"github.com/alanyoungcy/liquidrouter/internal/store/postgres"
	"github.com/alanyoungcy/liquidrouter/internal/telemetry"
)

const (
	streamMaxLen     = 10_000
	venueHTTPTimeout = 10 * time.Second
)

// Dependencies bundles everything the application modes need. It is
// constructed by Wire and torn down by the returned cleanup function.
// Optional backends are nil interfaces when not configured.
type Dependencies struct {
	Registry   *source.Registry
	Collector  *telemetry.Collector
	Aggregator *aggregator.Aggregator
	Books      *cache.Coalescer
	Router     *router.Router
	Liquidity  *service.LiquidityService
	Routes     *service.RouteService

	// Redis
	SignalBus   domain.SignalBus
	RateLimiter domain.RateLimiter
	LockManager domain.LockManager

	// Postgres
	AuditStore domain.AuditStore
	RouteStore domain.RouteStore

	// S3
	Archiver domain.Archiver

	Notifier *notify.Notifier

	// Pingers are the configured backends reported by the health check.
	Pingers map[string]handler.Pinger
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(err error) (*Dependencies, func(), error) {
		cleanup()
		return nil, nil, err
	}

	deps := &Dependencies{Pingers: make(map[string]handler.Pinger)}

	// --- PostgreSQL ---
	if cfg.Postgres.Enabled() {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			return fail(fmt.Errorf("wire: postgres: %w", err))
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				return fail(fmt.Errorf("wire: postgres migrations: %w", err))
			}
		}

		pool := pgClient.Pool()
		deps.AuditStore = postgres.NewAuditStore(pool)
		deps.RouteStore = postgres.NewRouteStore(pool)
		deps.Pingers["postgres"] = pgClient
	} else {
		logger.InfoContext(ctx, "postgres not configured; route history and audit log disabled")
	}

	// --- Redis ---
	if cfg.Redis.Addr != "" {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
			KeyPrefix:  cfg.Redis.KeyPrefix,
		})
		if err != nil {
			return fail(fmt.Errorf("wire: redis: %w", err))
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		deps.SignalBus = redis.NewSignalBus(redisClient, streamMaxLen)
		deps.RateLimiter = redis.NewRateLimiter(redisClient)
		deps.LockManager = redis.NewLockManager(redisClient)
		deps.Pingers["redis"] = redisClient
	} else {
		logger.InfoContext(ctx, "redis not configured; event bus, rate limiting and ws streaming disabled")
	}

	// --- S3 blob storage ---
	if cfg.S3.Bucket != "" {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			return fail(fmt.Errorf("wire: s3: %w", err))
		}
		deps.Pingers["s3"] = pingFunc(s3Client.Health)

		// Archiver: only when we also have Postgres to archive from.
		if deps.RouteStore != nil && deps.AuditStore != nil {
			deps.Archiver = s3blob.NewArchiver(
				s3blob.NewWriter(s3Client),
				s3blob.NewChecker(s3Client),
				deps.RouteStore,
				deps.AuditStore,
			)
		}
	}

	// --- Notifications ---
	deps.Notifier = notify.New(notify.Config{
		TelegramToken:     cfg.Notify.TelegramToken,
		TelegramChatID:    cfg.Notify.TelegramChatID,
		DiscordWebhookURL: cfg.Notify.DiscordWebhookURL,
		Events:            cfg.Notify.Events,
	}, logger)

	// --- Sources ---
	entries, err := buildSources(cfg.Sources, crypto.NewResolver(os.Getenv("LQR_CREDENTIALS_PASSWORD")))
	if err != nil {
		return fail(fmt.Errorf("wire: %w", err))
	}
	registry, err := source.NewRegistry(entries)
	if err != nil {
		return fail(fmt.Errorf("wire: %w", err))
	}
	deps.Registry = registry

	// --- Core pipeline ---
	// The collector reads cache counters at scrape time, after Books is set.
	deps.Collector = telemetry.NewCollector(func() (hits, misses, shared int64) {
		if deps.Books == nil {
			return 0, 0, 0
		}
		st := deps.Books.Stats()
		return st.Hits, st.Misses, st.Shared
	})

	sinks := []domain.EventSink{
		service.NewEventPublisher(deps.SignalBus, deps.AuditStore, logger),
		deps.Collector,
	}
	if deps.Notifier != nil {
		sinks = append(sinks, service.NewOutageAlerter(deps.Notifier, cfg.Notify.Cooldown.Duration, logger))
	}
	sink := service.NewFanoutSink(sinks...)

	deps.Aggregator = aggregator.New(registry, sink, logger, aggregator.Config{
		Depth:    cfg.Aggregator.Depth,
		Deadline: cfg.Aggregator.Deadline.Duration,
	})
	deps.Books = cache.NewCoalescer(deps.Aggregator, cfg.Cache.TTL.Duration, cfg.Aggregator.Deadline.Duration)
	deps.Router = router.New(deps.Books, sink, logger, router.Config{
		Symbols: cfg.Symbols,
		FeeBps:  decimal.NewFromFloat(cfg.Router.FeeBps),
	})

	deps.Liquidity = service.NewLiquidityService(deps.Books, deps.Aggregator, registry, service.LiquidityConfig{
		Symbols:         cfg.Symbols,
		DepthPcts:       decimals(cfg.Metrics.DepthPcts),
		ImpactNotionals: decimals(cfg.Router.ImpactNotionals),
	}, logger)
	deps.Routes = service.NewRouteService(deps.Router, deps.RouteStore, logger)

	return deps, cleanup, nil
}

// buildSources turns the configured sources into registry entries. Venue
// adapters with a rate are wrapped in a pacer.
func buildSources(cfgs []config.SourceConfig, resolver *crypto.Resolver) ([]source.Entry, error) {
	httpClient := &http.Client{Timeout: venueHTTPTimeout}
	entries := make([]source.Entry, 0, len(cfgs))

	for _, sc := range cfgs {
		env := domain.Environment(sc.Environment)
		if env == "" {
			env = domain.EnvLive
		}

		var adapter domain.SourceAdapter
		if sc.Kind == "static" {
			bids, err := source.ParseStringLevels(sc.Bids)
			if err != nil {
				return nil, fmt.Errorf("source %s: bids: %w", sc.ID, err)
			}
			asks, err := source.ParseStringLevels(sc.Asks)
			if err != nil {
				return nil, fmt.Errorf("source %s: asks: %w", sc.ID, err)
			}
			adapter = source.NewStatic(sc.ID, bids, asks, sc.Latency.Duration)
		} else {
			// disabled sources are never queried, so they get no credentials
			var creds crypto.Credentials
			if sc.Enabled {
				var err error
				creds, err = resolver.Resolve(sc.CredentialsRef)
				if err != nil {
					return nil, fmt.Errorf("source %s: credentials: %w", sc.ID, err)
				}
			}
			opts := source.Options{
				ID:          sc.ID,
				BaseURL:     sc.BaseURL,
				Environment: env,
				Credentials: creds,
				MaxLevels:   sc.MaxLevels,
				HTTPClient:  httpClient,
			}
			switch sc.Kind {
			case "binance":
				adapter = binance.New(opts)
			case "bybit":
				adapter = bybit.New(opts)
			case "okx":
				adapter = okx.New(opts)
			case "kucoin":
				adapter = kucoin.New(opts)
			case "kraken":
				adapter = kraken.New(opts)
			default:
				return nil, fmt.Errorf("source %s: unknown kind %q", sc.ID, sc.Kind)
			}
			if sc.RatePerSec > 0 {
				adapter = source.NewPaced(adapter, sc.RatePerSec, sc.Burst)
			}
		}

		entries = append(entries, source.Entry{
			Adapter:     adapter,
			Kind:        sc.Kind,
			Enabled:     sc.Enabled,
			Environment: env,
		})
	}
	return entries, nil
}

func decimals(fs []float64) []decimal.Decimal {
	out := make([]decimal.Decimal, 0, len(fs))
	for _, f := range fs {
		out = append(out, decimal.NewFromFloat(f))
	}
	return out
}
