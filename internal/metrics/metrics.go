// Package metrics provides Prometheus metrics for the pokedex service.
//
// All Manager methods are safe to call on a nil *Manager, which records
// nothing. Components take an optional manager so metrics can be disabled
// without branching at every call site.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Refresh outcomes used as the "result" label.
const (
	ResultOK          = "ok"
	ResultFetchError  = "fetch_error"
	ResultInsertError = "insert_error"
)

// Manager owns the service's Prometheus collectors.
type Manager struct {
	namespace        string
	histogramBuckets []float64
	registry         *prometheus.Registry

	// Upstream
	upstreamRequests *prometheus.CounterVec
	upstreamDuration *prometheus.HistogramVec

	// Refresh pipeline
	refreshes       *prometheus.CounterVec
	refreshDuration prometheus.Histogram
	recordsFetched  prometheus.Counter
	recordsInserted prometheus.Counter
	storedPokemon   prometheus.Gauge

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// NewManager creates a Manager with its own registry unless WithRegistry is
// given. Go runtime and process collectors are registered alongside.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "pokedex",
		histogramBuckets: prometheus.DefBuckets,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.registry == nil {
		m.registry = prometheus.NewRegistry()
		m.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.upstreamRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "upstream",
		Name:      "requests_total",
		Help:      "PokeAPI requests by endpoint and HTTP status (0 = no response)",
	}, []string{"endpoint", "status_code"})

	m.upstreamDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "upstream",
		Name:      "request_duration_seconds",
		Help:      "PokeAPI request latency in seconds",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint"})

	m.refreshes = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "refresh",
		Name:      "runs_total",
		Help:      "Refresh runs by outcome",
	}, []string{"result"})

	m.refreshDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "refresh",
		Name:      "duration_seconds",
		Help:      "Duration of a full fetch-and-insert refresh",
		Buckets:   m.histogramBuckets,
	})

	m.recordsFetched = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "refresh",
		Name:      "records_fetched_total",
		Help:      "Records fetched from upstream",
	})

	m.recordsInserted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "refresh",
		Name:      "records_inserted_total",
		Help:      "Records newly stored (duplicates excluded)",
	})

	m.storedPokemon = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Name:      "stored_pokemon",
		Help:      "Rows returned by the last full listing",
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by route, method and status",
	}, []string{"route", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   m.histogramBuckets,
	}, []string{"route", "method"})
}

// Handler exposes the registry for scraping.
func (m *Manager) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Manager) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveUpstream records one upstream call.
func (m *Manager) ObserveUpstream(endpoint string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.upstreamRequests.WithLabelValues(endpoint, strconv.Itoa(status)).Inc()
	m.upstreamDuration.WithLabelValues(endpoint).Observe(d.Seconds())
}

// ObserveRefresh records one refresh run.
func (m *Manager) ObserveRefresh(result string, fetched, inserted int, d time.Duration) {
	if m == nil {
		return
	}
	m.refreshes.WithLabelValues(result).Inc()
	m.refreshDuration.Observe(d.Seconds())
	m.recordsFetched.Add(float64(fetched))
	m.recordsInserted.Add(float64(inserted))
}

// SetStored records the size of the stored collection.
func (m *Manager) SetStored(n int) {
	if m == nil {
		return
	}
	m.storedPokemon.Set(float64(n))
}

// ObserveHTTP records one served request.
func (m *Manager) ObserveHTTP(route, method string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(route, method).Observe(d.Seconds())
}
