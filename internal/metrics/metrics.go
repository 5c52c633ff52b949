// Package metrics holds the Prometheus collectors for scout.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SourceRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scout_source_requests_total",
			Help: "Supplier searches run against each source, by outcome",
		},
		[]string{"source", "status"},
	)

	SourceDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scout_source_duration_seconds",
			Help:    "Duration of a search against one source",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
		},
		[]string{"source"},
	)

	SourceRecordsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scout_source_records_total",
			Help: "Supplier records returned by each source",
		},
		[]string{"source"},
	)

	FetchRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scout_fetch_requests_total",
			Help: "HTTP page fetches, by host, status and blocking vendor",
		},
		[]string{"host", "status", "blocked_by"},
	)

	FetchBytesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scout_fetch_bytes_total",
			Help: "Bytes downloaded by the HTTP fetcher",
		},
		[]string{"host"},
	)

	MergeCollisionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "scout_merge_collisions_total",
			Help: "Records folded into an existing supplier during aggregation",
		},
	)

	ProxyFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scout_proxy_failures_total",
			Help: "Total number of proxy failures during fetches",
		},
		[]string{"proxy_url"},
	)

	BrowserLaunchesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "scout_browser_launches_total",
			Help: "Headless browser processes launched or connected",
		},
	)
)

// RecordFetch updates the fetch collectors. status is the HTTP status code,
// or 0 when the request failed before a response.
func RecordFetch(host string, status int, blockedBy string, bytes int) {
	statusStr := "error"
	if status > 0 {
		statusStr = strconv.Itoa(status)
	}
	FetchRequestsTotal.WithLabelValues(host, statusStr, blockedBy).Inc()
	FetchBytesTotal.WithLabelValues(host).Add(float64(bytes))
}

// RecordSource updates the per-source collectors after one search.
func RecordSource(source string, ok bool, records int, d time.Duration) {
	status := "ok"
	if !ok {
		status = "error"
	}
	SourceRequestsTotal.WithLabelValues(source, status).Inc()
	SourceDuration.WithLabelValues(source).Observe(d.Seconds())
	SourceRecordsTotal.WithLabelValues(source).Add(float64(records))
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Server is a standalone listener for /metrics, used when metrics are kept
// off the public API port.
type Server struct {
	srv *http.Server
}

// Start begins listening on port and exposes /metrics.
func Start(port int, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "err", err)
		}
	}()

	return &Server{srv: srv}
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) error {
	if s == nil || s.srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}
