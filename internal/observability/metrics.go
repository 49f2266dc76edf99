package observability

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

// Metrics exposes Prometheus collectors for HTTP traffic and session
// lifecycle activity. Each instance owns its registry so tests can build
// throwaway copies without collector collisions.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	sessionTransitions  *prometheus.CounterVec
	pinRejections       prometheus.Counter
}

// NewMetrics initializes and registers all collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests.",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latencies in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),
		sessionTransitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "session_transitions_total",
				Help: "Session state transitions by event type.",
			},
			[]string{"event", "from_state", "to_state"},
		),
		pinRejections: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "session_pin_rejections_total",
			Help: "Rejected secondary-factor attempts.",
		}),
	}

	m.registry.MustRegister(m.httpRequestsTotal, m.httpRequestDuration, m.sessionTransitions, m.pinRejections)
	return m
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	code := strconv.Itoa(status)
	m.httpRequestsTotal.WithLabelValues(method, path, code).Inc()
	m.httpRequestDuration.WithLabelValues(method, path, code).Observe(duration.Seconds())
}

// RecordTransition counts a session state transition.
func (m *Metrics) RecordTransition(event, fromState, toState string) {
	if m == nil {
		return
	}
	m.sessionTransitions.WithLabelValues(event, fromState, toState).Inc()
}

// RecordPINRejection counts a failed secondary-factor attempt.
func (m *Metrics) RecordPINRejection() {
	if m == nil {
		return
	}
	m.pinRejections.Inc()
}

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() fiber.Handler {
	h := fasthttpadaptor.NewFastHTTPHandler(
		promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}),
	)
	return func(c *fiber.Ctx) error {
		h(c.Context())
		return nil
	}
}
