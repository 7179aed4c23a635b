package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 路由服务的 Prometheus 指标集合。
// 所有组件将 *Metrics 视为可选依赖，nil 时为空操作。
type Metrics struct {
	QueriesRouted      *prometheus.CounterVec
	RouteDuration      *prometheus.HistogramVec
	CacheHits          prometheus.Counter
	CacheMisses        prometheus.Counter
	CacheEvictions     *prometheus.CounterVec
	CacheEntries       prometheus.Gauge
	ProviderRequests   *prometheus.CounterVec
	ProviderDuration   *prometheus.HistogramVec
	InvalidationsTotal *prometheus.CounterVec

	registry *prometheus.Registry
}

// New 创建并注册全部指标
func New() *Metrics {
	m := &Metrics{
		QueriesRouted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "knowgate",
				Subsystem: "router",
				Name:      "queries_total",
				Help:      "Total number of routed queries",
			},
			[]string{"method", "category", "cached"},
		),
		RouteDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "knowgate",
				Subsystem: "router",
				Name:      "duration_seconds",
				Help:      "End-to-end routing duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "knowgate",
			Subsystem: "cache",
			Name:      "hits_total",
			Help:      "Total number of cache hits",
		}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "knowgate",
			Subsystem: "cache",
			Name:      "misses_total",
			Help:      "Total number of cache misses",
		}),
		CacheEvictions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "knowgate",
				Subsystem: "cache",
				Name:      "evictions_total",
				Help:      "Total number of evicted cache entries",
			},
			[]string{"reason"},
		),
		CacheEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "knowgate",
			Subsystem: "cache",
			Name:      "entries",
			Help:      "Current number of cache entries",
		}),
		ProviderRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "knowgate",
				Subsystem: "provider",
				Name:      "requests_total",
				Help:      "Total number of search provider requests",
			},
			[]string{"provider", "status"},
		),
		ProviderDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "knowgate",
				Subsystem: "provider",
				Name:      "duration_seconds",
				Help:      "Search provider request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"provider"},
		),
		InvalidationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "knowgate",
				Subsystem: "cache",
				Name:      "invalidations_total",
				Help:      "Total number of proactive invalidation runs",
			},
			[]string{"category"},
		),
		registry: prometheus.NewRegistry(),
	}

	m.registry.MustRegister(
		m.QueriesRouted, m.RouteDuration,
		m.CacheHits, m.CacheMisses, m.CacheEvictions, m.CacheEntries,
		m.ProviderRequests, m.ProviderDuration, m.InvalidationsTotal,
	)

	return m
}

// Handler 返回 Prometheus 文本格式的 HTTP handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ── nil 安全的记录辅助方法 ────────────────────────────────────

func (m *Metrics) RecordRoute(method, category string, cached bool, elapsed time.Duration) {
	if m == nil {
		return
	}
	cachedLabel := "false"
	if cached {
		cachedLabel = "true"
	}
	m.QueriesRouted.WithLabelValues(method, category, cachedLabel).Inc()
	m.RouteDuration.WithLabelValues(method).Observe(elapsed.Seconds())
}

func (m *Metrics) RecordCacheHit() {
	if m == nil {
		return
	}
	m.CacheHits.Inc()
}

func (m *Metrics) RecordCacheMiss() {
	if m == nil {
		return
	}
	m.CacheMisses.Inc()
}

func (m *Metrics) RecordEviction(reason string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.CacheEvictions.WithLabelValues(reason).Add(float64(count))
}

func (m *Metrics) SetCacheEntries(n int) {
	if m == nil {
		return
	}
	m.CacheEntries.Set(float64(n))
}

func (m *Metrics) RecordProvider(name string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.ProviderRequests.WithLabelValues(name, status).Inc()
	m.ProviderDuration.WithLabelValues(name).Observe(elapsed.Seconds())
}

func (m *Metrics) RecordInvalidation(category string) {
	if m == nil {
		return
	}
	m.InvalidationsTotal.WithLabelValues(category).Inc()
}
