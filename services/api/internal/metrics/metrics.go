package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Confirmation outcomes.
const (
	OutcomeConfirmed        = "confirmed"
	OutcomeAlreadyConfirmed = "already_confirmed"
	OutcomeNoKey            = "no_key"
	OutcomeNotFound         = "not_found"
	OutcomeInvalid          = "invalid"
	OutcomeError            = "error"
)

// Metrics holds the service collectors. All methods are safe on a nil receiver
// so services can run without instrumentation.
type Metrics struct {
	registry *prometheus.Registry

	ordersCreated prometheus.Counter
	confirmations *prometheus.CounterVec
	rejections    prometheus.Counter
	keysAdded     prometheus.Counter
	availableKeys prometheus.Gauge
	httpRequests  *prometheus.CounterVec
	httpDurations *prometheus.HistogramVec
}

// New creates collectors registered on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ordersCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "keyshop_orders_created_total",
			Help: "Total number of orders created",
		}),
		confirmations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "keyshop_confirmations_total",
			Help: "Confirmation attempts by outcome",
		}, []string{"outcome"}),
		rejections: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "keyshop_rejections_total",
			Help: "Total number of orders rejected",
		}),
		keysAdded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "keyshop_keys_added_total",
			Help: "Total number of keys added to the inventory",
		}),
		availableKeys: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "keyshop_available_keys",
			Help: "Unused keys as of the last stats query",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "keyshop_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"handler", "method", "status"}),
		httpDurations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "keyshop_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"handler", "method"}),
	}

	m.registry.MustRegister(
		m.ordersCreated,
		m.confirmations,
		m.rejections,
		m.keysAdded,
		m.availableKeys,
		m.httpRequests,
		m.httpDurations,
	)
	return m
}

// Registry exposes the underlying registry for tests and custom exporters.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// RegisterRuntime adds the Go runtime and process collectors. Tests leave
// them off so gathered output stays deterministic.
func (m *Metrics) RegisterRuntime() {
	if m == nil {
		return
	}
	m.Registry().MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) OrderCreated() {
	if m == nil {
		return
	}
	m.ordersCreated.Inc()
}

func (m *Metrics) Confirmation(outcome string) {
	if m == nil {
		return
	}
	m.confirmations.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Rejection() {
	if m == nil {
		return
	}
	m.rejections.Inc()
}

func (m *Metrics) KeysAdded(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.keysAdded.Add(float64(n))
}

func (m *Metrics) SetAvailableKeys(n int) {
	if m == nil {
		return
	}
	m.availableKeys.Set(float64(n))
}

// Instrument wraps next, recording request count and latency under name.
func (m *Metrics) Instrument(name string, next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		m.httpDurations.WithLabelValues(name, r.Method).Observe(time.Since(start).Seconds())
		m.httpRequests.WithLabelValues(name, r.Method, strconv.Itoa(rec.status)).Inc()
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
