// Package metrics exports Prometheus metrics derived from bus events.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	eventbus "github.com/hanpama/apiform/internal/eventbus"
	events "github.com/hanpama/apiform/internal/events"
	executor "github.com/hanpama/apiform/internal/executor"
)

// Metrics holds the collectors registered on its own registry.
type Metrics struct {
	registry *prometheus.Registry

	requests          *prometheus.CounterVec
	requestDuration   *prometheus.HistogramVec
	constructions     *prometheus.CounterVec
	lookups           *prometheus.CounterVec
	lookupDuration    *prometheus.HistogramVec
	serializations    *prometheus.CounterVec
	serializeDuration *prometheus.HistogramVec
}

// New creates the collectors and subscribes them to bus.
func New(bus *eventbus.Bus) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "apiform_http_requests_total",
				Help: "HTTP requests by endpoint, method and status",
			},
			[]string{"endpoint", "method", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "apiform_http_request_duration_seconds",
				Help:    "HTTP request latency by endpoint",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"endpoint"},
		),
		constructions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "apiform_constructions_total",
				Help: "Argument set constructions by outcome",
			},
			[]string{"argument_set", "outcome"},
		),
		lookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "apiform_lookups_total",
				Help: "Lookup resolutions by key and outcome",
			},
			[]string{"argument_set", "key", "outcome"},
		),
		lookupDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "apiform_lookup_duration_seconds",
				Help:    "Lookup resolver latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"argument_set"},
		),
		serializations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "apiform_serializations_total",
				Help: "Field set serializations by outcome",
			},
			[]string{"name", "outcome"},
		),
		serializeDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "apiform_serialize_duration_seconds",
				Help:    "Serialization latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"name"},
		),
	}
	m.registry.MustRegister(
		m.requests, m.requestDuration,
		m.constructions,
		m.lookups, m.lookupDuration,
		m.serializations, m.serializeDuration,
	)
	m.subscribe(bus)
	return m
}

// Registry exposes the registry for tests and custom gatherers.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the metrics in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) subscribe(bus *eventbus.Bus) {
	eventbus.Subscribe(bus, func(ctx context.Context, e events.HTTPFinish) {
		m.requests.WithLabelValues(e.Endpoint, e.Request.Method, strconv.Itoa(e.Status)).Inc()
		m.requestDuration.WithLabelValues(e.Endpoint).Observe(e.Duration.Seconds())
	})
	eventbus.Subscribe(bus, func(ctx context.Context, e events.ConstructFinish) {
		m.constructions.WithLabelValues(e.ArgumentSet, outcome(e.Err)).Inc()
	})
	eventbus.Subscribe(bus, func(ctx context.Context, e events.LookupFinish) {
		m.lookups.WithLabelValues(e.ArgumentSet, e.Key, outcome(e.Err)).Inc()
		m.lookupDuration.WithLabelValues(e.ArgumentSet).Observe(e.Duration.Seconds())
	})
	eventbus.Subscribe(bus, func(ctx context.Context, e events.SerializeFinish) {
		m.serializations.WithLabelValues(e.Name, outcome(e.Err)).Inc()
		m.serializeDuration.WithLabelValues(e.Name).Observe(e.Duration.Seconds())
	})
}

// outcome labels an error: ok, client_error for invalid input and error
// otherwise.
func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	var e *executor.Error
	if errors.As(err, &e) && e.ClientError() {
		return "client_error"
	}
	return "error"
}
