// Package metrics provides Prometheus instrumentation for the price watcher.
package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Item outcomes recorded by ItemsProcessed.
const (
	OutcomeRecorded  = "recorded"
	OutcomeUnchanged = "unchanged"
	OutcomeNoPrice   = "no_price"
	OutcomeFailed    = "failed"
)

var (
	// CyclesTotal counts poll cycles by result: completed, skipped or aborted.
	CyclesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pricewatch_cycles_total",
		Help: "Total number of poll cycles",
	}, []string{"result"})

	// CycleDuration tracks how long a full poll cycle takes.
	CycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pricewatch_cycle_duration_seconds",
		Help:    "Poll cycle duration in seconds",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800, 3600},
	})

	// ItemsProcessed counts evaluated items by outcome.
	ItemsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pricewatch_items_processed_total",
		Help: "Monitored items evaluated, by outcome",
	}, []string{"outcome"})

	// FetchDuration tracks supplier latency per item.
	FetchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pricewatch_fetch_duration_seconds",
		Help:    "Listing page fetch duration in seconds",
		Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60, 90},
	})

	// AlertsSent counts dispatched price alerts by result.
	AlertsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pricewatch_alerts_total",
		Help: "Price alerts dispatched",
	}, []string{"result"})

	// WebSocketClients tracks connected WebSocket clients.
	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pricewatch_websocket_clients",
		Help: "Number of connected WebSocket clients",
	})

	// HTTPRequestsTotal counts HTTP requests by method, route, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pricewatch_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and route.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pricewatch_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "path"})
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware returns an HTTP middleware that records request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r)
		duration := time.Since(start).Seconds()

		// Use the route pattern for path label to avoid high cardinality.
		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			path = rctx.RoutePattern()
		}
		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Hijack lets WebSocket upgrades pass through the middleware.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	return h.Hijack()
}
