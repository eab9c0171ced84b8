package metrics

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPRequestSize     *prometheus.HistogramVec
	HTTPResponseSize    *prometheus.HistogramVec

	// Billing metrics
	WebhookEvents   *prometheus.CounterVec
	WebhookDuration *prometheus.HistogramVec
	SessionsIssued  *prometheus.CounterVec
	GateDecisions   *prometheus.CounterVec
	UsageConsumed   *prometheus.CounterVec
	ReconcileRuns   *prometheus.CounterVec
}

// New registers all metrics on the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry registers all metrics on reg. Tests pass a fresh registry
// so collectors do not collide.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	m := &Metrics{
		// HTTP metrics
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_size_bytes",
				Help:    "HTTP request size in bytes",
				Buckets: []float64{100, 1000, 5000, 10000, 50000, 100000},
			},
			[]string{"method", "path"},
		),
		HTTPResponseSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: []float64{100, 1000, 5000, 10000, 50000, 100000},
			},
			[]string{"method", "path"},
		),

		// Billing metrics
		WebhookEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stripe_webhook_events_total",
				Help: "Stripe webhook deliveries by event type and outcome",
			},
			[]string{"event_type", "outcome"}, // applied, skipped, stale, ignored, duplicate, rejected, error
		),
		WebhookDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "stripe_webhook_duration_seconds",
				Help:    "Time spent verifying and projecting a webhook delivery",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"event_type"},
		),
		SessionsIssued: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "billing_sessions_total",
				Help: "Checkout and portal sessions by result",
			},
			[]string{"kind", "result"}, // checkout|portal, created|error
		),
		GateDecisions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "feature_gate_decisions_total",
				Help: "Feature gate decisions by feature and result",
			},
			[]string{"feature", "allowed"},
		),
		UsageConsumed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "usage_consumed_total",
				Help: "Metered usage increments by counter",
			},
			[]string{"counter"},
		),
		ReconcileRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "subscription_reconcile_total",
				Help: "Subscriptions re-fetched by the reconciliation job, by outcome",
			},
			[]string{"outcome"},
		),
	}

	return m
}

// Middleware creates an Echo middleware for Prometheus metrics
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()
			path := c.Path() // route pattern, not the raw path

			if req.ContentLength > 0 {
				m.HTTPRequestSize.WithLabelValues(req.Method, path).Observe(float64(req.ContentLength))
			}

			err := next(c)

			status := c.Response().Status
			duration := time.Since(start).Seconds()

			m.HTTPRequestsTotal.WithLabelValues(req.Method, path, strconv.Itoa(status)).Inc()
			m.HTTPRequestDuration.WithLabelValues(req.Method, path, strconv.Itoa(status)).Observe(duration)
			m.HTTPResponseSize.WithLabelValues(req.Method, path).Observe(float64(c.Response().Size))

			return err
		}
	}
}

// RecordWebhook counts one webhook delivery.
func (m *Metrics) RecordWebhook(eventType, outcome string, duration time.Duration) {
	m.WebhookEvents.WithLabelValues(eventType, outcome).Inc()
	m.WebhookDuration.WithLabelValues(eventType).Observe(duration.Seconds())
}

// RecordSession counts a checkout or portal session attempt.
func (m *Metrics) RecordSession(kind, result string) {
	m.SessionsIssued.WithLabelValues(kind, result).Inc()
}

// RecordGateDecision counts a feature gate decision.
func (m *Metrics) RecordGateDecision(feature string, allowed bool) {
	m.GateDecisions.WithLabelValues(feature, strconv.FormatBool(allowed)).Inc()
}

// RecordUsage counts a metered usage increment.
func (m *Metrics) RecordUsage(counter string) {
	m.UsageConsumed.WithLabelValues(counter).Inc()
}

// RecordReconcile counts one subscription handled by the reconciliation job.
func (m *Metrics) RecordReconcile(outcome string) {
	m.ReconcileRuns.WithLabelValues(outcome).Inc()
}
