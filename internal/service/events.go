package service

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/alanyoungcy/liquidrouter/internal/domain"
)

// Bus channels and streams the publisher writes to.
const (
	ChannelAggregation = "ch:aggregation"
	ChannelRoute       = "ch:route"
	ChannelBookPrefix  = "ch:book:"
	StreamRoutes       = "stream:routes"
)

// EventPublisher logs every observability event and, when the optional
// backends are configured, forwards it to the signal bus and the audit log.
// Backend failures are logged at warn and never surface to the caller.
type EventPublisher struct {
	bus    domain.SignalBus
	audit  domain.AuditStore
	logger *slog.Logger
}

// NewEventPublisher creates an EventPublisher. bus and audit may be nil.
func NewEventPublisher(bus domain.SignalBus, audit domain.AuditStore, logger *slog.Logger) *EventPublisher {
	return &EventPublisher{
		bus:    bus,
		audit:  audit,
		logger: logger.With(slog.String("component", "event_publisher")),
	}
}

// AggregationCompleted implements domain.EventSink.
func (p *EventPublisher) AggregationCompleted(ctx context.Context, evt domain.AggregationEvent) {
	level := slog.LevelDebug
	if evt.Outage() {
		level = slog.LevelWarn
	} else if len(evt.Missing) > 0 {
		level = slog.LevelInfo
	}
	p.logger.Log(ctx, level, "aggregation cycle",
		slog.String("symbol", evt.Symbol),
		slog.Any("contributing", evt.Contributing),
		slog.Any("missing", evt.Missing),
		slog.Int64("latency_ms", evt.LatencyMs),
	)

	payload, err := json.Marshal(evt)
	if err != nil {
		p.logger.WarnContext(ctx, "marshal aggregation event failed", slog.String("error", err.Error()))
		return
	}
	p.publish(ctx, ChannelAggregation, payload)

	if evt.Outage() && p.audit != nil {
		detail := map[string]any{
			"symbol":   evt.Symbol,
			"missing":  evt.Missing,
			"failures": evt.Failures,
		}
		if err := p.audit.Log(ctx, "aggregation.outage", detail); err != nil {
			p.logger.WarnContext(ctx, "audit log failed",
				slog.String("event", "aggregation.outage"),
				slog.String("error", err.Error()),
			)
		}
	}
}

// RouteCompleted implements domain.EventSink.
func (p *EventPublisher) RouteCompleted(ctx context.Context, evt domain.RouteEvent) {
	p.logger.InfoContext(ctx, "route decided",
		slog.String("route_id", evt.ID),
		slog.String("symbol", evt.Symbol),
		slog.String("side", string(evt.Side)),
		slog.String("requested", evt.RequestedAmount.String()),
		slog.String("filled", evt.FilledAmount.String()),
		slog.String("status", string(evt.Status)),
		slog.String("slippage_pct", evt.SlippagePct.String()),
	)

	payload, err := json.Marshal(evt)
	if err != nil {
		p.logger.WarnContext(ctx, "marshal route event failed", slog.String("error", err.Error()))
		return
	}
	p.publish(ctx, ChannelRoute, payload)

	if p.bus != nil {
		if err := p.bus.StreamAppend(ctx, StreamRoutes, payload); err != nil {
			p.logger.WarnContext(ctx, "route stream append failed",
				slog.String("route_id", evt.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	if p.audit != nil {
		detail := map[string]any{
			"route_id": evt.ID,
			"symbol":   evt.Symbol,
			"side":     evt.Side,
			"status":   evt.Status,
			"filled":   evt.FilledAmount.String(),
		}
		if err := p.audit.Log(ctx, "route."+string(evt.Status), detail); err != nil {
			p.logger.WarnContext(ctx, "audit log failed",
				slog.String("route_id", evt.ID),
				slog.String("error", err.Error()),
			)
		}
	}
}

func (p *EventPublisher) publish(ctx context.Context, channel string, payload []byte) {
	if p.bus == nil {
		return
	}
	if err := p.bus.Publish(ctx, channel, payload); err != nil {
		p.logger.WarnContext(ctx, "publish failed",
			slog.String("channel", channel),
			slog.String("error", err.Error()),
		)
	}
}

// FanoutSink forwards each event to every sink in order.
type FanoutSink []domain.EventSink

// NewFanoutSink drops nil sinks.
func NewFanoutSink(sinks ...domain.EventSink) FanoutSink {
	out := make(FanoutSink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

func (f FanoutSink) AggregationCompleted(ctx context.Context, evt domain.AggregationEvent) {
	for _, s := range f {
		s.AggregationCompleted(ctx, evt)
	}
}

func (f FanoutSink) RouteCompleted(ctx context.Context, evt domain.RouteEvent) {
	for _, s := range f {
		s.RouteCompleted(ctx, evt)
	}
}

var (
	_ domain.EventSink = (*EventPublisher)(nil)
	_ domain.EventSink = FanoutSink(nil)
)
