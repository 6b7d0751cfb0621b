package metrics

import (
	"github.com/gofiber/fiber/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

/* ========================================================================
 * Prometheus Metrics
 * ========================================================================
 * Process-wide collectors for the privileged surface and the tenant
 * isolation machinery, plus the /metrics endpoint.
 * ======================================================================== */

var (
	// HTTPRequestDuration tracks HTTP request latency.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "menagerie",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestTotal counts HTTP requests.
	HTTPRequestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "menagerie",
			Subsystem: "http",
			Name:      "request_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// TenantResolutionTotal counts resolver outcomes.
	// outcome: resolved, required, suspended
	TenantResolutionTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "menagerie",
			Subsystem: "tenant",
			Name:      "resolution_total",
			Help:      "Tenant resolution attempts by outcome",
		},
		[]string{"outcome"},
	)

	// AuthFailureTotal counts failed privileged authentications.
	// reason: bad_password, inactive, locked, unknown_operator
	AuthFailureTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "menagerie",
			Subsystem: "privops",
			Name:      "auth_failure_total",
			Help:      "Failed privileged authentication attempts by reason",
		},
		[]string{"reason"},
	)

	// LockoutTotal counts operator lockouts.
	LockoutTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "menagerie",
			Subsystem: "privops",
			Name:      "lockout_total",
			Help:      "Operator lockouts after repeated authentication failures",
		},
	)

	// SessionTerminatedTotal counts session terminations.
	// reason: logout, expired, admin
	SessionTerminatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "menagerie",
			Subsystem: "privops",
			Name:      "session_terminated_total",
			Help:      "Privileged session terminations by reason",
		},
		[]string{"reason"},
	)

	// ActiveImpersonations gauges currently running impersonation sessions.
	ActiveImpersonations = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "menagerie",
			Subsystem: "privops",
			Name:      "active_impersonations",
			Help:      "Impersonation sessions currently active",
		},
	)

	// AuditAppendFailureTotal counts audit entries that could not be
	// persisted. Any non-zero rate is an incident.
	AuditAppendFailureTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "menagerie",
			Subsystem: "audit",
			Name:      "append_failure_total",
			Help:      "Audit entries that failed to persist",
		},
	)

	// AuditAlertTotal counts out-of-band alert deliveries for audit
	// failures. outcome: sent, failed
	AuditAlertTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "menagerie",
			Subsystem: "audit",
			Name:      "alert_total",
			Help:      "Out-of-band audit failure alerts by outcome",
		},
		[]string{"outcome"},
	)
)

// RegisterMetricsEndpoint mounts /metrics on the fiber app.
func RegisterMetricsEndpoint(app *fiber.App) {
	handler := fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler())
	app.Get("/metrics", func(c fiber.Ctx) error {
		handler(c.RequestCtx())
		return nil
	})
}

// NewCounter creates a custom CounterVec.
func NewCounter(namespace, subsystem, name, help string, labels []string) *prometheus.CounterVec {
	return promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      name,
			Help:      help,
		},
		labels,
	)
}

// NewGauge creates a custom GaugeVec.
func NewGauge(namespace, subsystem, name, help string, labels []string) *prometheus.GaugeVec {
	return promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      name,
			Help:      help,
		},
		labels,
	)
}

// NewHistogram creates a custom HistogramVec.
func NewHistogram(namespace, subsystem, name, help string, labels []string, buckets []float64) *prometheus.HistogramVec {
	if buckets == nil {
		buckets = prometheus.DefBuckets
	}
	return promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      name,
			Help:      help,
			Buckets:   buckets,
		},
		labels,
	)
}
