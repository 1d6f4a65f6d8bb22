// Package metrics exposes Prometheus instrumentation for the catalog
// service: ingestion outcomes, cache efficiency and HTTP traffic.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Ingestion modes used as label values.
const (
	ModeFile    = "file"
	ModeURL     = "url"
	ModeRefresh = "refresh"
)

// Ingestions counts ingestion attempts by mode and result.
var Ingestions = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "tvcatalog_ingestions_total",
	Help: "Playlist ingestion attempts by mode and result.",
}, []string{"mode", "result"})

// ChannelsIngested counts channels stored by successful ingestions.
var ChannelsIngested = promauto.NewCounter(prometheus.CounterOpts{
	Name: "tvcatalog_channels_ingested_total",
	Help: "Channels stored by successful ingestions.",
})

// EntriesSkipped counts playlist entries dropped by the parser.
var EntriesSkipped = promauto.NewCounter(prometheus.CounterOpts{
	Name: "tvcatalog_entries_skipped_total",
	Help: "Playlist entries dropped for a missing name or unsupported URL.",
})

// CacheLookups counts catalog cache lookups by result (hit, miss).
var CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "tvcatalog_cache_lookups_total",
	Help: "Catalog cache lookups by result.",
}, []string{"result"})

// RefreshJobs counts background refresh jobs by result.
var RefreshJobs = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "tvcatalog_refresh_jobs_total",
	Help: "Background playlist refresh jobs by result.",
}, []string{"result"})

// HTTPRequests counts HTTP requests by method, route and status code.
var HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "tvcatalog_http_requests_total",
	Help: "Total HTTP requests handled.",
}, []string{"method", "route", "status"})

// HTTPDuration tracks HTTP request latency.
var HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "tvcatalog_http_request_duration_seconds",
	Help:    "HTTP request latency in seconds.",
	Buckets: prometheus.DefBuckets,
}, []string{"method", "route"})

// ObserveIngestion records one ingestion attempt.
func ObserveIngestion(mode string, channels, skipped int, err error) {
	if err != nil {
		Ingestions.WithLabelValues(mode, "failure").Inc()
		return
	}
	Ingestions.WithLabelValues(mode, "success").Inc()
	ChannelsIngested.Add(float64(channels))
	EntriesSkipped.Add(float64(skipped))
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Middleware records request count and latency. The route label is the chi
// route pattern so that path parameters do not explode cardinality.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
		HTTPDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
