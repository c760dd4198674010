package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/alanyoungcy/liquidrouter/internal/domain"
	"github.com/alanyoungcy/liquidrouter/internal/metrics"
)

const defaultStreamInterval = time.Second

// BookStreamer refreshes the watched symbols on a fixed interval and
// publishes their top of book to ch:book:<symbol>.
type BookStreamer struct {
	books    BookCache
	bus      domain.SignalBus
	symbols  []string
	interval time.Duration
	logger   *slog.Logger
}

// NewBookStreamer creates a BookStreamer. A non-positive interval selects one
// second.
func NewBookStreamer(books BookCache, bus domain.SignalBus, symbols []string, interval time.Duration, logger *slog.Logger) *BookStreamer {
	if interval <= 0 {
		interval = defaultStreamInterval
	}
	return &BookStreamer{
		books:    books,
		bus:      bus,
		symbols:  symbols,
		interval: interval,
		logger:   logger.With(slog.String("component", "book_streamer")),
	}
}

// Run publishes until ctx is cancelled.
func (s *BookStreamer) Run(ctx context.Context) error {
	s.logger.InfoContext(ctx, "book streamer started",
		slog.Any("symbols", s.symbols),
		slog.Duration("interval", s.interval),
	)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		s.Tick(ctx)
		select {
		case <-ctx.Done():
			s.logger.Info("book streamer stopped")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Tick refreshes every watched symbol once, concurrently.
func (s *BookStreamer) Tick(ctx context.Context) {
	var wg sync.WaitGroup
	for _, sym := range s.symbols {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.publish(ctx, sym)
		}()
	}
	wg.Wait()
}

func (s *BookStreamer) publish(ctx context.Context, symbol string) {
	book, err := s.books.Get(ctx, symbol)
	if err != nil {
		// outages are reported by the aggregation event sinks
		s.logger.DebugContext(ctx, "refresh failed",
			slog.String("symbol", symbol),
			slog.String("error", err.Error()),
		)
		return
	}
	payload, err := json.Marshal(metrics.BestPrices(book))
	if err != nil {
		s.logger.WarnContext(ctx, "marshal best prices failed", slog.String("error", err.Error()))
		return
	}
	if err := s.bus.Publish(ctx, ChannelBookPrefix+symbol, payload); err != nil {
		s.logger.WarnContext(ctx, "publish book failed",
			slog.String("symbol", symbol),
			slog.String("error", err.Error()),
		)
	}
}
