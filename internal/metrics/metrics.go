package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"aihttpanalyzer/internal/core"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricNamespace = "aihttpanalyzer"

// AtomicDispatchStats thread-safe dispatcher counters
type AtomicDispatchStats struct {
	ChatRequests      atomic.Int64
	GenerateRequests  atomic.Int64
	FailedRequests    atomic.Int64
	Fallbacks         atomic.Int64
	DispatchFailures  atomic.Int64
	ParseAnomalies    atomic.Int64
	TotalResponseTime atomic.Int64
}

// MetricsService collects upstream and dispatch metrics. Every service owns its
// own prometheus registry so several instances can live in one process.
type MetricsService struct {
	atomicStats     AtomicDispatchStats
	lastRequestTime time.Time
	lastMu          sync.RWMutex

	registry         *prometheus.Registry
	upstreamRequests *prometheus.CounterVec
	upstreamDuration *prometheus.HistogramVec
	fallbacks        prometheus.Counter
	dispatchFailures prometheus.Counter
	parseAnomalies   *prometheus.CounterVec
}

// NewMetricsService creates a new MetricsService
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &MetricsService{
		registry: registry,
		upstreamRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricNamespace,
				Name:      "upstream_requests_total",
				Help:      "Requests sent to the model server",
			},
			[]string{"endpoint", "success"},
		),
		upstreamDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricNamespace,
				Name:      "upstream_request_duration_seconds",
				Help:      "Model server request duration (seconds)",
				Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
			},
			[]string{"endpoint"},
		),
		fallbacks: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricNamespace,
			Name:      "dispatch_fallbacks_total",
			Help:      "Chat failures answered through the generate endpoint",
		}),
		dispatchFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricNamespace,
			Name:      "dispatch_failures_total",
			Help:      "Prompts where both chat and generate failed",
		}),
		parseAnomalies: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricNamespace,
				Name:      "parse_anomalies_total",
				Help:      "Successful replies missing the expected field",
			},
			[]string{"endpoint"},
		),
	}
}

// RecordUpstreamRequest records one model server call
func (ms *MetricsService) RecordUpstreamRequest(endpoint string, success bool, duration time.Duration) {
	ms.upstreamRequests.WithLabelValues(endpoint, strconv.FormatBool(success)).Inc()
	ms.upstreamDuration.WithLabelValues(endpoint).Observe(duration.Seconds())

	switch endpoint {
	case core.EndpointChat:
		ms.atomicStats.ChatRequests.Add(1)
	case core.EndpointGenerate:
		ms.atomicStats.GenerateRequests.Add(1)
	}
	if !success {
		ms.atomicStats.FailedRequests.Add(1)
	}
	ms.atomicStats.TotalResponseTime.Add(duration.Milliseconds())

	ms.lastMu.Lock()
	ms.lastRequestTime = time.Now()
	ms.lastMu.Unlock()
}

// RecordFallback records a switch from chat to generate
func (ms *MetricsService) RecordFallback() {
	ms.fallbacks.Inc()
	ms.atomicStats.Fallbacks.Add(1)
}

// RecordDispatchFailure records a prompt that no endpoint could answer
func (ms *MetricsService) RecordDispatchFailure() {
	ms.dispatchFailures.Inc()
	ms.atomicStats.DispatchFailures.Add(1)
}

// RecordParseAnomaly records a reply without the expected field
func (ms *MetricsService) RecordParseAnomaly(endpoint string) {
	ms.parseAnomalies.WithLabelValues(endpoint).Inc()
	ms.atomicStats.ParseAnomalies.Add(1)
}

// GetDispatchStats returns a snapshot of the counters
func (ms *MetricsService) GetDispatchStats() core.DispatchStats {
	ms.lastMu.RLock()
	last := ms.lastRequestTime
	ms.lastMu.RUnlock()

	return core.DispatchStats{
		ChatRequests:      ms.atomicStats.ChatRequests.Load(),
		GenerateRequests:  ms.atomicStats.GenerateRequests.Load(),
		FailedRequests:    ms.atomicStats.FailedRequests.Load(),
		Fallbacks:         ms.atomicStats.Fallbacks.Load(),
		DispatchFailures:  ms.atomicStats.DispatchFailures.Load(),
		ParseAnomalies:    ms.atomicStats.ParseAnomalies.Load(),
		TotalResponseTime: ms.atomicStats.TotalResponseTime.Load(),
		LastRequestTime:   last,
	}
}

// PrometheusHandler serves the prometheus exposition format
func (ms *MetricsService) PrometheusHandler() gin.HandlerFunc {
	h := promhttp.HandlerFor(ms.registry, promhttp.HandlerOpts{})
	return gin.WrapH(h)
}

// ShowStats returns the dispatch counters as JSON
func (ms *MetricsService) ShowStats(c *gin.Context) {
	stats := ms.GetDispatchStats()
	lastRequest := ""
	if !stats.LastRequestTime.IsZero() {
		lastRequest = stats.LastRequestTime.Format(core.TimeFormatDateTime)
	}

	c.JSON(http.StatusOK, gin.H{
		"currentTime":     time.Now().Format(core.TimeFormatDateTime),
		"lastRequestTime": lastRequest,
		"stats":           stats,
	})
}
