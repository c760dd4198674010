package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/alanyoungcy/liquidrouter/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type published struct {
	channel string
	payload []byte
}

type fakeBus struct {
	mu       sync.Mutex
	messages []published
	streams  map[string][][]byte
	err      error
}

func (b *fakeBus) Publish(_ context.Context, channel string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return b.err
	}
	b.messages = append(b.messages, published{channel, payload})
	return nil
}

func (b *fakeBus) Subscribe(context.Context, string) (<-chan []byte, error) {
	return make(chan []byte), nil
}

func (b *fakeBus) StreamAppend(_ context.Context, stream string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return b.err
	}
	if b.streams == nil {
		b.streams = map[string][][]byte{}
	}
	b.streams[stream] = append(b.streams[stream], payload)
	return nil
}

func (b *fakeBus) channels() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, 0, len(b.messages))
	for _, m := range b.messages {
		out = append(out, m.channel)
	}
	return out
}

type fakeAudit struct {
	domain.AuditStore
	mu     sync.Mutex
	events []string
}

func (a *fakeAudit) Log(_ context.Context, event string, _ map[string]any) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, event)
	return nil
}

type recordingSink struct {
	aggregations []domain.AggregationEvent
	routes       []domain.RouteEvent
}

func (s *recordingSink) AggregationCompleted(_ context.Context, evt domain.AggregationEvent) {
	s.aggregations = append(s.aggregations, evt)
}

func (s *recordingSink) RouteCompleted(_ context.Context, evt domain.RouteEvent) {
	s.routes = append(s.routes, evt)
}

type notification struct {
	event, title, message string
}

type fakeNotifier struct {
	sent chan notification
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{sent: make(chan notification, 16)}
}

func (n *fakeNotifier) Notify(_ context.Context, event, title, message string) error {
	n.sent <- notification{event, title, message}
	return nil
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }
