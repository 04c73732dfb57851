// Package metrics exposes Prometheus collectors for transfers and the
// receiver's HTTP traffic.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Config holds metrics configuration
type Config struct {
	Namespace string
}

// MetricsCollector owns every collector. It registers against the given
// registry instead of the global one so several nodes can live in one process.
type MetricsCollector struct {
	gatherer prometheus.Gatherer

	transfersTotal *prometheus.CounterVec
	bytesReceived  prometheus.Counter
	bytesSent      prometheus.Counter
	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
	serverRunning  prometheus.Gauge
	storedFiles    prometheus.Gauge
}

// NewMetricsCollector creates and registers the collectors on reg
func NewMetricsCollector(config *Config, reg *prometheus.Registry) *MetricsCollector {
	namespace := "filedrop"
	if config != nil && config.Namespace != "" {
		namespace = config.Namespace
	}
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	mc := &MetricsCollector{
		gatherer: reg,
		transfersTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "transfers_total",
				Help:      "Total number of recorded transfer operations",
			},
			[]string{"action", "outcome"},
		),
		bytesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_received_total",
			Help:      "Total bytes stored from uploads",
		}),
		bytesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_sent_total",
			Help:      "Total bytes successfully sent to remote receivers",
		}),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests handled by the receiver",
			},
			[]string{"method", "route", "status"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Receiver HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		serverRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "server_running",
			Help:      "1 while the receiver server is accepting connections",
		}),
		storedFiles: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stored_files",
			Help:      "Number of files in the store directory at the last listing",
		}),
	}

	reg.MustRegister(
		mc.transfersTotal,
		mc.bytesReceived,
		mc.bytesSent,
		mc.httpRequests,
		mc.httpDuration,
		mc.serverRunning,
		mc.storedFiles,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{Namespace: namespace}),
	)
	return mc
}

// RecordTransfer counts one transfer record
func (mc *MetricsCollector) RecordTransfer(action, outcome string, size int64) {
	mc.transfersTotal.WithLabelValues(action, outcome).Inc()
	if outcome != "success" || size <= 0 {
		return
	}
	switch action {
	case "receive":
		mc.bytesReceived.Add(float64(size))
	case "send":
		mc.bytesSent.Add(float64(size))
	}
}

// SetServerRunning updates the server state gauge
func (mc *MetricsCollector) SetServerRunning(running bool) {
	if running {
		mc.serverRunning.Set(1)
		return
	}
	mc.serverRunning.Set(0)
}

// SetStoredFiles updates the stored file gauge
func (mc *MetricsCollector) SetStoredFiles(count int) {
	mc.storedFiles.Set(float64(count))
}

// Middleware records request counts and durations per route
func (mc *MetricsCollector) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		mc.httpRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		mc.httpDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the registry in the Prometheus exposition format
func (mc *MetricsCollector) Handler() http.Handler {
	return promhttp.HandlerFor(mc.gatherer, promhttp.HandlerOpts{})
}
