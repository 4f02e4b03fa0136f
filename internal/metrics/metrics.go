// Package metrics exposes Prometheus metrics for boards and the HTTP API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"simpleboard/internal/model"
)

// Collector holds all metrics of the service on its own registry.
type Collector struct {
	registry *prometheus.Registry

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	MovesSettled *prometheus.CounterVec
	MoveDuration *prometheus.HistogramVec
}

func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	httpRequests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	movesSettled := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "moves_settled_total",
			Help:      "Moves applied by board workers, by final state",
		},
		[]string{"state"},
	)

	moveDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "move_duration_seconds",
			Help:      "Time from applying a move to its final state, including confirmation",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"state"},
	)

	registry.MustRegister(httpRequests, httpDuration, movesSettled, moveDuration)

	return &Collector{
		registry:     registry,
		HTTPRequests: httpRequests,
		HTTPDuration: httpDuration,
		MovesSettled: movesSettled,
		MoveDuration: moveDuration,
	}
}

// MoveSettled implements engine.MoveObserver.
func (c *Collector) MoveSettled(state model.MoveState, elapsed time.Duration) {
	c.MovesSettled.WithLabelValues(state.String()).Inc()
	c.MoveDuration.WithLabelValues(state.String()).Observe(elapsed.Seconds())
}

// TrackBoards exports the number of live boards as reported by count.
func (c *Collector) TrackBoards(namespace string, count func() int) {
	c.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "boards_live",
			Help:      "Number of live boards",
		},
		func() float64 { return float64(count()) },
	))
}

// ObserveRequest records one finished HTTP request. route is the matched
// route pattern, not the raw path.
func (c *Collector) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	c.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// Handler serves the collector's registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Registry is the registry every collector metric is registered on.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
