// Package telemetry exports aggregation and routing events as Prometheus
// metrics.
package telemetry

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/alanyoungcy/liquidrouter/internal/domain"
)

// CacheStats reports the book cache counters.
type CacheStats func() (hits, misses, shared int64)

// Collector implements domain.EventSink on a private registry.
type Collector struct {
	registry *prometheus.Registry

	aggLatency     *prometheus.HistogramVec
	aggCycles      *prometheus.CounterVec
	sourceFailures *prometheus.CounterVec
	contributing   *prometheus.GaugeVec
	routes         *prometheus.CounterVec
	routeSlippage  *prometheus.HistogramVec
}

// NewCollector registers the liquidrouter metrics. stats may be nil.
func NewCollector(stats CacheStats) *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		aggLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "liquidrouter",
			Name:      "aggregation_latency_seconds",
			Help:      "Wall time of one aggregation cycle.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		}, []string{"symbol"}),
		aggCycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "liquidrouter",
			Name:      "aggregation_cycles_total",
			Help:      "Aggregation cycles by outcome (complete, partial, outage, filtered).",
		}, []string{"symbol", "outcome"}),
		sourceFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "liquidrouter",
			Name:      "source_failures_total",
			Help:      "Failed source fetches by kind.",
		}, []string{"source", "kind"}),
		contributing: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "liquidrouter",
			Name:      "contributing_sources",
			Help:      "Sources that contributed to the last aggregation.",
		}, []string{"symbol"}),
		routes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "liquidrouter",
			Name:      "routes_total",
			Help:      "Routing decisions by side and status.",
		}, []string{"symbol", "side", "status"}),
		routeSlippage: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "liquidrouter",
			Name:      "route_slippage_pct",
			Help:      "Slippage of routing decisions in percent.",
			Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		}, []string{"symbol", "side"}),
	}

	c.registry.MustRegister(
		c.aggLatency, c.aggCycles, c.sourceFailures, c.contributing, c.routes, c.routeSlippage,
		collectors.NewGoCollector(),
	)
	if stats != nil {
		c.registerCacheStats(stats)
	}
	return c
}

func (c *Collector) registerCacheStats(stats CacheStats) {
	counter := func(name, help string, pick func(h, m, s int64) int64) prometheus.Collector {
		return prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: "liquidrouter",
			Subsystem: "cache",
			Name:      name,
			Help:      help,
		}, func() float64 {
			h, m, s := stats()
			return float64(pick(h, m, s))
		})
	}
	c.registry.MustRegister(
		counter("hits_total", "Book lookups served from cache.", func(h, _, _ int64) int64 { return h }),
		counter("misses_total", "Book lookups that needed an aggregation.", func(_, m, _ int64) int64 { return m }),
		counter("shared_total", "Misses that joined an in-flight aggregation.", func(_, _, s int64) int64 { return s }),
	)
}

// AggregationCompleted implements domain.EventSink.
func (c *Collector) AggregationCompleted(_ context.Context, evt domain.AggregationEvent) {
	outcome := "complete"
	switch {
	case evt.Filtered:
		outcome = "filtered"
	case evt.Outage():
		outcome = "outage"
	case len(evt.Missing) > 0:
		outcome = "partial"
	}
	c.aggCycles.WithLabelValues(evt.Symbol, outcome).Inc()
	c.aggLatency.WithLabelValues(evt.Symbol).Observe(float64(evt.LatencyMs) / 1000)
	if !evt.Filtered {
		c.contributing.WithLabelValues(evt.Symbol).Set(float64(len(evt.Contributing)))
	}
	for _, f := range evt.Failures {
		c.sourceFailures.WithLabelValues(f.SourceID, string(f.Kind)).Inc()
	}
}

// RouteCompleted implements domain.EventSink.
func (c *Collector) RouteCompleted(_ context.Context, evt domain.RouteEvent) {
	c.routes.WithLabelValues(evt.Symbol, string(evt.Side), string(evt.Status)).Inc()
	if evt.Status != domain.RouteRejected {
		slip, _ := evt.SlippagePct.Float64()
		c.routeSlippage.WithLabelValues(evt.Symbol, string(evt.Side)).Observe(slip)
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for tests.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

var _ domain.EventSink = (*Collector)(nil)
