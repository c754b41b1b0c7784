package observability

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hedaiyu-site/Graduation-project/internal/platform/envutil"
	"github.com/hedaiyu-site/Graduation-project/internal/platform/logger"
)

type Metrics struct {
	registry *prometheus.Registry

	apiRequests        *prometheus.CounterVec
	apiLatency         *prometheus.HistogramVec
	ingestDocuments    *prometheus.CounterVec
	ingestFlush        prometheus.Histogram
	graphWrite         *prometheus.HistogramVec
	graphRows          *prometheus.CounterVec
	cacheRequests      *prometheus.CounterVec
	cacheInvalidations *prometheus.CounterVec
	extraction         *prometheus.CounterVec
	queryLatency       *prometheus.HistogramVec
}

var (
	initOnce sync.Once
	instance *Metrics
)

// Enabled reports METRICS_ENABLED, default on.
func Enabled() bool {
	return envutil.Bool("METRICS_ENABLED", true)
}

// Current returns the process metrics or nil when disabled. All methods are
// nil safe.
func Current() *Metrics {
	return instance
}

func Init(log *logger.Logger) *Metrics {
	if !Enabled() {
		return nil
	}
	initOnce.Do(func() {
		instance = newMetrics(prometheus.NewRegistry())
		if log != nil {
			log.Info("prometheus metrics initialized")
		}
	})
	return instance
}

func newMetrics(reg *prometheus.Registry) *Metrics {
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		apiRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "kg_api_requests_total",
			Help: "Total API requests by method/route/status.",
		}, []string{"method", "route", "status"}),
		apiLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "kg_api_request_duration_seconds",
			Help:    "API request latency in seconds by method/route.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		}, []string{"method", "route"}),
		ingestDocuments: f.NewCounterVec(prometheus.CounterOpts{
			Name: "kg_ingest_documents_total",
			Help: "Documents seen by ingest runs, by outcome.",
		}, []string{"status"}),
		ingestFlush: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "kg_ingest_flush_duration_seconds",
			Help:    "Duration of one batch flush including cache invalidation.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		graphWrite: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "kg_graph_write_duration_seconds",
			Help:    "Neo4j write step duration.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		}, []string{"step"}),
		graphRows: f.NewCounterVec(prometheus.CounterOpts{
			Name: "kg_graph_rows_written_total",
			Help: "Rows merged into the graph, by step.",
		}, []string{"step"}),
		cacheRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "kg_cache_requests_total",
			Help: "Cache lookups by result (hit, miss, error).",
		}, []string{"result"}),
		cacheInvalidations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "kg_cache_invalidations_total",
			Help: "Cache invalidations by kind (key, pattern, error).",
		}, []string{"kind"}),
		extraction: f.NewCounterVec(prometheus.CounterOpts{
			Name: "kg_extraction_strategy_total",
			Help: "Documents extracted per entity strategy.",
		}, []string{"strategy"}),
		queryLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "kg_query_duration_seconds",
			Help:    "Query service latency including cache.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
		}, []string{"query"}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unknown"
	}
	m.apiRequests.WithLabelValues(method, route, status).Inc()
	m.apiLatency.WithLabelValues(method, route).Observe(dur.Seconds())
}

func (m *Metrics) IncIngestDocument(status string) {
	if m == nil {
		return
	}
	m.ingestDocuments.WithLabelValues(status).Inc()
}

func (m *Metrics) ObserveFlush(dur time.Duration) {
	if m == nil {
		return
	}
	m.ingestFlush.Observe(dur.Seconds())
}

func (m *Metrics) ObserveGraphWrite(step string, rows int, dur time.Duration) {
	if m == nil {
		return
	}
	m.graphWrite.WithLabelValues(step).Observe(dur.Seconds())
	m.graphRows.WithLabelValues(step).Add(float64(rows))
}

func (m *Metrics) IncCache(result string) {
	if m == nil {
		return
	}
	m.cacheRequests.WithLabelValues(result).Inc()
}

func (m *Metrics) IncCacheInvalidation(kind string) {
	if m == nil {
		return
	}
	m.cacheInvalidations.WithLabelValues(kind).Inc()
}

func (m *Metrics) IncExtraction(strategy string) {
	if m == nil {
		return
	}
	m.extraction.WithLabelValues(strategy).Inc()
}

func (m *Metrics) ObserveQuery(query string, dur time.Duration) {
	if m == nil {
		return
	}
	m.queryLatency.WithLabelValues(query).Observe(dur.Seconds())
}
