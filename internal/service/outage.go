package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/alanyoungcy/liquidrouter/internal/domain"
)

// Notification event types.
const (
	EventOutage   = "outage"
	EventRecovery = "recovery"
)

const (
	defaultAlertCooldown = 5 * time.Minute
	alertTimeout         = 10 * time.Second
)

// Notifier delivers operator alerts. notify.Notifier satisfies it.
type Notifier interface {
	Notify(ctx context.Context, event, title, message string) error
}

// OutageAlerter notifies operators when an aggregation cycle ends with no
// contributing sources. Alerts are debounced per symbol; a recovery notice is
// sent on the first healthy cycle after an alerted outage.
type OutageAlerter struct {
	notifier Notifier
	cooldown time.Duration
	logger   *slog.Logger
	now      func() time.Time

	mu      sync.Mutex
	alerted map[string]time.Time // symbol -> last outage alert
}

// NewOutageAlerter creates an OutageAlerter. A non-positive cooldown selects
// five minutes.
func NewOutageAlerter(notifier Notifier, cooldown time.Duration, logger *slog.Logger) *OutageAlerter {
	if cooldown <= 0 {
		cooldown = defaultAlertCooldown
	}
	return &OutageAlerter{
		notifier: notifier,
		cooldown: cooldown,
		logger:   logger.With(slog.String("component", "outage_alerter")),
		now:      time.Now,
		alerted:  make(map[string]time.Time),
	}
}

// AggregationCompleted implements domain.EventSink. Delivery happens on its
// own goroutine.
func (a *OutageAlerter) AggregationCompleted(ctx context.Context, evt domain.AggregationEvent) {
	event, ok := a.transition(evt)
	if !ok {
		return
	}

	title, message := alertText(event, evt)
	go func() {
		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), alertTimeout)
		defer cancel()
		if err := a.notifier.Notify(sendCtx, event, title, message); err != nil {
			a.logger.Warn("alert delivery failed",
				slog.String("symbol", evt.Symbol),
				slog.String("event", event),
				slog.String("error", err.Error()),
			)
		}
	}()
}

// RouteCompleted implements domain.EventSink.
func (a *OutageAlerter) RouteCompleted(context.Context, domain.RouteEvent) {}

// transition records the cycle and reports which alert, if any, to send.
// Filtered cycles say nothing about the full active set and are ignored.
func (a *OutageAlerter) transition(evt domain.AggregationEvent) (string, bool) {
	if evt.Filtered {
		return "", false
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	last, alerted := a.alerted[evt.Symbol]
	if !evt.Outage() {
		if !alerted {
			return "", false
		}
		delete(a.alerted, evt.Symbol)
		return EventRecovery, true
	}

	now := a.now()
	if alerted && now.Sub(last) < a.cooldown {
		return "", false
	}
	a.alerted[evt.Symbol] = now
	return EventOutage, true
}

func alertText(event string, evt domain.AggregationEvent) (string, string) {
	if event == EventRecovery {
		return fmt.Sprintf("%s liquidity restored", evt.Symbol),
			fmt.Sprintf("sources: %s", strings.Join(evt.Contributing, ", "))
	}
	parts := make([]string, 0, len(evt.Failures))
	for _, f := range evt.Failures {
		parts = append(parts, fmt.Sprintf("%s: %s", f.SourceID, f.Kind))
	}
	msg := "no active sources"
	if len(parts) > 0 {
		msg = strings.Join(parts, "\n")
	}
	return fmt.Sprintf("%s has no liquidity", evt.Symbol), msg
}

var _ domain.EventSink = (*OutageAlerter)(nil)
