package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/liquidrouter/internal/server"
	"github.com/alanyoungcy/liquidrouter/internal/server/handler"
	"github.com/alanyoungcy/liquidrouter/internal/server/ws"
	"github.com/alanyoungcy/liquidrouter/internal/service"
)

const shutdownTimeout = 10 * time.Second

// ServerMode serves the HTTP and websocket API, plus the archive job when
// configured.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting server mode", slog.String("component", "app"))

	g, ctx := errgroup.WithContext(ctx)
	a.startHTTPServer(ctx, g, deps)
	a.startArchiveJob(ctx, g, deps)
	return g.Wait()
}

// StreamMode refreshes the watched symbols and publishes top-of-book updates
// to the signal bus. The API runs alongside when server.enabled is set.
func (a *App) StreamMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting stream mode", slog.String("component", "app"))

	g, ctx := errgroup.WithContext(ctx)
	a.startStreamer(ctx, g, deps)
	if a.cfg.Server.Enabled {
		a.startHTTPServer(ctx, g, deps)
	}
	a.startArchiveJob(ctx, g, deps)
	return g.Wait()
}

// FullMode runs the API, the streamer and the archive job together.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode", slog.String("component", "app"))

	g, ctx := errgroup.WithContext(ctx)
	a.startStreamer(ctx, g, deps)
	a.startHTTPServer(ctx, g, deps)
	a.startArchiveJob(ctx, g, deps)
	return g.Wait()
}

// hubChannels lists the bus channels forwarded to websocket clients.
func hubChannels(symbols []string) []string {
	channels := []string{service.ChannelAggregation, service.ChannelRoute}
	for _, sym := range symbols {
		channels = append(channels, service.ChannelBookPrefix+sym)
	}
	return channels
}

func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	var hub *ws.Hub
	if deps.SignalBus != nil {
		hub = ws.NewHub(deps.SignalBus, a.logger, ws.Config{
			Channels:       hubChannels(deps.Liquidity.Symbols()),
			AllowedOrigins: a.cfg.Server.CORSOrigins,
			Mode:           a.cfg.Mode,
			StartedAt:      a.startedAt,
		})
		g.Go(func() error {
			if err := hub.Run(ctx); !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	handlers := server.Handlers{
		Health:  handler.NewHealthHandler(a.cfg.Mode, a.startedAt, deps.Pingers, a.logger),
		Books:   handler.NewBookHandler(deps.Liquidity, a.logger),
		Routes:  handler.NewRouteHandler(deps.Routes, a.logger),
		Sources: handler.NewSourceHandler(deps.Liquidity, a.logger),
		Metrics: deps.Collector.Handler(),
	}
	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
		RateLimit:   a.cfg.Server.RateLimit,
		RateWindow:  a.cfg.Server.RateWindow.Duration,
	}, handlers, hub, deps.RateLimiter, a.logger)

	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
}

func (a *App) startStreamer(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	if deps.SignalBus == nil {
		a.logger.WarnContext(ctx, "book streamer disabled: redis not configured",
			slog.String("component", "app"))
		return
	}
	streamer := service.NewBookStreamer(deps.Books, deps.SignalBus, deps.Liquidity.Symbols(),
		a.cfg.Stream.Interval.Duration, a.logger)
	g.Go(func() error {
		if err := streamer.Run(ctx); !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
}

func (a *App) startArchiveJob(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	if !a.cfg.Archive.Enabled {
		return
	}
	if deps.Archiver == nil {
		a.logger.WarnContext(ctx, "archive job disabled: needs postgres and s3",
			slog.String("component", "app"))
		return
	}
	job, err := service.NewArchiveJob(deps.Archiver, deps.LockManager,
		a.cfg.Archive.Cron, a.cfg.Archive.RetentionDays, a.logger)
	if err != nil {
		g.Go(func() error { return err })
		return
	}
	g.Go(func() error {
		if err := job.Run(ctx); !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
}
