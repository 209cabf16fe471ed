package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the service's Prometheus metrics on its own registry.
type Collector struct {
	registry *prometheus.Registry

	HTTPRequests   *prometheus.CounterVec
	RemoteCalls    *prometheus.CounterVec
	RemoteDuration *prometheus.HistogramVec
	Turns          *prometheus.CounterVec
	Predictions    *prometheus.CounterVec
}

// NewCollector creates and registers all metrics under namespace.
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		RemoteCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "remote_calls_total",
				Help:      "Remote inference calls by capability and outcome",
			},
			[]string{"capability", "outcome"},
		),
		RemoteDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "remote_call_duration_seconds",
				Help:      "Remote inference call latency in seconds",
				Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"capability"},
		),
		Turns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "turns_total",
				Help:      "Completed conversation turns by kind and outcome",
			},
			[]string{"kind", "outcome"},
		),
		Predictions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "risk_predictions_total",
				Help:      "Diabetes risk predictions by label",
			},
			[]string{"label"},
		),
	}

	registry.MustRegister(
		c.HTTPRequests,
		c.RemoteCalls,
		c.RemoteDuration,
		c.Turns,
		c.Predictions,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// ObserveRemote records one remote call. A nil collector is a no-op.
func (c *Collector) ObserveRemote(capability, outcome string, d time.Duration) {
	if c == nil {
		return
	}
	c.RemoteCalls.WithLabelValues(capability, outcome).Inc()
	c.RemoteDuration.WithLabelValues(capability).Observe(d.Seconds())
}

func (c *Collector) ObserveTurn(kind, outcome string) {
	if c == nil {
		return
	}
	c.Turns.WithLabelValues(kind, outcome).Inc()
}

func (c *Collector) ObservePrediction(label string) {
	if c == nil {
		return
	}
	c.Predictions.WithLabelValues(label).Inc()
}

func (c *Collector) ObserveHTTP(method, route, status string) {
	if c == nil {
		return
	}
	c.HTTPRequests.WithLabelValues(method, route, status).Inc()
}

// Registry exposes the underlying registry for extra collectors.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
