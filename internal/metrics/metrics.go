// Package metrics exposes Prometheus counters for HTTP traffic and the
// analysis pipeline.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Analysis outcomes.
const (
	OutcomeSuccess       = "success"
	OutcomeInvalidOutput = "invalid_output"
	OutcomeUpstreamError = "upstream_error"
	OutcomeStorageError  = "storage_error"
	OutcomeSourceError   = "source_error"
)

type Metrics struct {
	registry    *prometheus.Registry
	reqCount    *prometheus.CounterVec
	reqDuration *prometheus.HistogramVec
	analyses    *prometheus.CounterVec
}

// New registers every collector on a fresh registry, along with the Go
// runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		reqCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "haven_http_requests_total",
				Help: "Total HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		reqDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "haven_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		analyses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "haven_analysis_total",
				Help: "Session analyses by outcome",
			},
			[]string{"outcome"},
		),
	}
	m.registry.MustRegister(
		m.reqCount,
		m.reqDuration,
		m.analyses,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveAnalysis counts one pipeline run. Safe on a nil receiver.
func (m *Metrics) ObserveAnalysis(outcome string) {
	if m == nil {
		return
	}
	m.analyses.WithLabelValues(outcome).Inc()
}

// AnalysisCounter returns the counter for one outcome.
func (m *Metrics) AnalysisCounter(outcome string) prometheus.Counter {
	return m.analyses.WithLabelValues(outcome)
}

// Middleware records every request under its chi route pattern, so path
// parameters do not explode label cardinality.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil {
			if p := rc.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.reqCount.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.reqDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
