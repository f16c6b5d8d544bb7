// Package metrics collects and exposes Prometheus metrics.
package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dtroode/gophfeed/internal/model"
)

const (
	resultOK    = "ok"
	resultError = "error"
)

// Collector is the Prometheus implementation of the service recorder.
type Collector struct {
	transitions    *prometheus.CounterVec
	backendFetches *prometheus.CounterVec
	uploads        *prometheus.CounterVec
	activeSessions prometheus.Gauge
	httpRequests   *prometheus.CounterVec
	httpLatency    *prometheus.HistogramVec
}

// NewCollector creates a Collector and registers its metrics in reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gophfeed_session_transitions_total",
			Help: "Session state transitions by target state.",
		}, []string{"state"}),
		backendFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gophfeed_backend_fetches_total",
			Help: "Backend read requests by resource and result.",
		}, []string{"resource", "result", "status_code"}),
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gophfeed_uploads_total",
			Help: "Media uploads by result.",
		}, []string{"result"}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gophfeed_active_sessions",
			Help: "Browser sessions currently held in memory.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gophfeed_http_requests_total",
			Help: "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status_code"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gophfeed_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	reg.MustRegister(
		c.transitions,
		c.backendFetches,
		c.uploads,
		c.activeSessions,
		c.httpRequests,
		c.httpLatency,
	)

	return c
}

func (c *Collector) SessionTransition(state model.SessionState) {
	c.transitions.WithLabelValues(string(state)).Inc()
}

// BackendFetch records a backend read. Failures carrying a RequestError are
// labelled with the response status.
func (c *Collector) BackendFetch(resource string, err error) {
	if err == nil {
		c.backendFetches.WithLabelValues(resource, resultOK, "").Inc()
		return
	}

	status := ""
	var reqErr *model.RequestError
	if errors.As(err, &reqErr) {
		status = strconv.Itoa(reqErr.Status)
	}
	c.backendFetches.WithLabelValues(resource, resultError, status).Inc()
}

func (c *Collector) Upload(err error) {
	if err != nil {
		c.uploads.WithLabelValues(resultError).Inc()
		return
	}
	c.uploads.WithLabelValues(resultOK).Inc()
}

func (c *Collector) ActiveSessions(n int) {
	c.activeSessions.Set(float64(n))
}

// RecordHTTPRequest records one served request. route is the matched
// pattern, not the raw path.
func (c *Collector) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.httpLatency.WithLabelValues(method, route).Observe(duration.Seconds())
}

// Handler returns the scrape handler for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
