// Package metrics provides Prometheus instrumentation for PulseDeck.
//
// Collectors live on a private registry so several plugin instances (and
// tests) can coexist in one process without duplicate registration panics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "pulsedeck"

// Check result labels.
const (
	ResultOnline  = "online"
	ResultOffline = "offline"
	ResultError   = "error"
	ResultStale   = "stale"
)

// Collector groups the PulseDeck collectors. A nil *Collector is valid and
// records nothing.
type Collector struct {
	registry *prometheus.Registry

	ChecksTotal       *prometheus.CounterVec
	CheckDuration     prometheus.Histogram
	AlertsRaisedTotal prometheus.Counter
	Endpoints         prometheus.Gauge
	EndpointsOffline  prometheus.Gauge
}

// New creates a [Collector] with Go runtime and process collectors attached.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		ChecksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "checks_total",
				Help:      "Total health checks by result.",
			},
			[]string{"result"},
		),
		CheckDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "check_duration_seconds",
				Help:      "Health check duration in seconds.",
				Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2, 3},
			},
		),
		AlertsRaisedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "alerts_raised_total",
				Help:      "Total alert visuals requested by the alert loop.",
			},
		),
		Endpoints: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "endpoints",
				Help:      "Number of monitored endpoint records.",
			},
		),
		EndpointsOffline: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "endpoints_offline",
				Help:      "Number of configured endpoints whose last check failed.",
			},
		),
	}

	c.registry.MustRegister(
		c.ChecksTotal,
		c.CheckDuration,
		c.AlertsRaisedTotal,
		c.Endpoints,
		c.EndpointsOffline,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// ObserveCheck records one completed check.
func (c *Collector) ObserveCheck(result string, latency time.Duration) {
	if c == nil {
		return
	}
	c.ChecksTotal.WithLabelValues(result).Inc()
	c.CheckDuration.Observe(latency.Seconds())
}

// AddAlerts records n alert visuals raised in one sweep.
func (c *Collector) AddAlerts(n int) {
	if c == nil || n <= 0 {
		return
	}
	c.AlertsRaisedTotal.Add(float64(n))
}

// SetEndpoints updates the record gauges.
func (c *Collector) SetEndpoints(total, offline int) {
	if c == nil {
		return
	}
	c.Endpoints.Set(float64(total))
	c.EndpointsOffline.Set(float64(offline))
}

// Handler returns the Prometheus exposition handler for this collector.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
