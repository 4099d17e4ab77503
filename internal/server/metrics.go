package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors of the results server
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	upstreamErrors  prometheus.Counter
	resultsServed   prometheus.Histogram
}

// NewMetrics registers the server collectors on a private registry
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	upstreamErrors := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "modelos_upstream_errors_total",
		Help: "Failed list fetches from the Modelos backend",
	})

	resultsServed := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "modelos_filtered_results",
		Help:    "Number of entries matching each results query",
		Buckets: prometheus.ExponentialBuckets(1, 4, 6),
	})

	registry.MustRegister(requestDuration, requestTotal, upstreamErrors, resultsServed)

	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		upstreamErrors:  upstreamErrors,
		resultsServed:   resultsServed,
	}
}

// Handler exposes the metrics endpoint
func (m *Metrics) Handler() http.Handler {
	return m.handler
}

// Middleware records duration and count per route
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		m.requestDuration.WithLabelValues(c.Request.Method, path, status).Observe(time.Since(start).Seconds())
		m.requestTotal.WithLabelValues(c.Request.Method, path, status).Inc()
	}
}

func (m *Metrics) observeResults(total int) {
	m.resultsServed.Observe(float64(total))
}

func (m *Metrics) upstreamError() {
	m.upstreamErrors.Inc()
}
