package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hupe1980/psmgo"
)

var _ psmgo.MetricsCollector = (*PrometheusCollector)(nil)

// PrometheusCollector implements psmgo.MetricsCollector and counts HTTP
// requests.
type PrometheusCollector struct {
	registry *prometheus.Registry

	opLatency   *prometheus.HistogramVec
	fitRows     prometheus.Histogram
	matchedRows prometheus.Counter
	returned    prometheus.Counter
	requests    *prometheus.CounterVec
}

// NewPrometheusCollector registers the psm metrics on a fresh registry.
func NewPrometheusCollector() *PrometheusCollector {
	p := &PrometheusCollector{
		registry: prometheus.NewRegistry(),
		opLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "psm_operation_latency_seconds",
			Help:    "Latency of propensity fits and matching",
			Buckets: prometheus.DefBuckets,
		}, []string{"op", "status"}),
		fitRows: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "psm_fit_rows",
			Help:    "Experiment plus control rows per fit",
			Buckets: prometheus.ExponentialBuckets(10, 4, 8),
		}),
		matchedRows: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "psm_matched_rows_total",
			Help: "Experiment rows matched",
		}),
		returned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "psm_returned_rows_total",
			Help: "Matched rows kept after ranking",
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "psm_http_requests_total",
			Help: "HTTP requests by route and status code",
		}, []string{"route", "code"}),
	}

	p.registry.MustRegister(
		p.opLatency,
		p.fitRows,
		p.matchedRows,
		p.returned,
		p.requests,
		collectors.NewGoCollector(),
	)
	return p
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// RecordFit implements psmgo.MetricsCollector.
func (p *PrometheusCollector) RecordFit(rows, _ int, d time.Duration, err error) {
	p.opLatency.WithLabelValues("fit", status(err)).Observe(d.Seconds())
	if err == nil {
		p.fitRows.Observe(float64(rows))
	}
}

// RecordMatch implements psmgo.MetricsCollector.
func (p *PrometheusCollector) RecordMatch(matches, returned int, d time.Duration, err error) {
	p.opLatency.WithLabelValues("match", status(err)).Observe(d.Seconds())
	if err == nil {
		p.matchedRows.Add(float64(matches))
		p.returned.Add(float64(returned))
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (p *PrometheusCollector) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (p *PrometheusCollector) Registry() *prometheus.Registry {
	return p.registry
}

// middleware counts every request once its handler has returned.
func (p *PrometheusCollector) middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		p.requests.WithLabelValues(route, strconv.Itoa(c.Writer.Status())).Inc()
	}
}
