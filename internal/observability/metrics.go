// Package observability exposes Prometheus metrics for the HTTP surface.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects Prometheus metrics for the application.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	guardRejections *prometheus.CounterVec
	rpcCalls        *prometheus.CounterVec
	rpcDuration     *prometheus.HistogramVec
}

// NewMetrics initialises the registry and base collectors.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "launchpad_http_requests_total",
		Help: "HTTP requests by route and status.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "launchpad_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	rejections := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "launchpad_guard_outcomes_total",
		Help: "Guard redirects and rejections by route and outcome code.",
	}, []string{"route", "outcome"})
	calls := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "launchpad_rpc_calls_total",
		Help: "RPC procedure calls by procedure and HTTP status.",
	}, []string{"procedure", "status"})
	rpcDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "launchpad_rpc_duration_seconds",
		Help:    "RPC procedure duration.",
		Buckets: prometheus.DefBuckets,
	}, []string{"procedure"})
	registry.MustRegister(requests, duration, rejections, calls, rpcDuration)
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		guardRejections: rejections,
		rpcCalls:        calls,
		rpcDuration:     rpcDuration,
	}
}

// Handler returns the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records request count and latency per route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// ObserveGuard counts a non-continue guard outcome. outcome is "redirect" or a reject code.
func (m *Metrics) ObserveGuard(r *http.Request, outcome string) {
	if m == nil {
		return
	}
	m.guardRejections.WithLabelValues(routePattern(r), outcome).Inc()
}

// ObserveRPC records one procedure call.
func (m *Metrics) ObserveRPC(procedure string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.rpcCalls.WithLabelValues(procedure, strconv.Itoa(status)).Inc()
	m.rpcDuration.WithLabelValues(procedure).Observe(elapsed.Seconds())
}

// Registerer exposes the registry for additional collectors.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
