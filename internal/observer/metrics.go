package observer

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricsEnabled = true // Flag to control metric collection

	// Labels for HTTP request metrics
	httpRequestLabels = []string{"method", "route", "status"}
	// Labels for outbound dispatch metrics
	dispatchLabels = []string{"message_type", "company_id", "outcome"}
	// Labels for webhook receipt metrics
	webhookLabels = []string{"receipt_status", "company_id", "action"}

	// HTTP request counters and duration
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wa_crm_api_http_requests_total",
			Help: "Total number of HTTP requests handled, labeled by method, route and status code.",
		},
		httpRequestLabels,
	)
	HTTPRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wa_crm_api_http_request_duration_seconds",
			Help:    "Histogram of HTTP request handling durations.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~10s
		},
		httpRequestLabels,
	)

	// Outbound dispatch counters
	DispatchAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wa_crm_api_dispatch_attempts_total",
			Help: "Total number of outbound message dispatch attempts, labeled by outcome.",
		},
		dispatchLabels,
	)
	DispatchDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wa_crm_api_dispatch_duration_seconds",
			Help:    "Histogram of end-to-end outbound dispatch durations (external call plus persistence).",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~20s
		},
		dispatchLabels,
	)

	// Webhook receipt counter
	WebhookReceiptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wa_crm_api_webhook_receipts_total",
			Help: "Total number of delivery receipt events received on the webhook, labeled by applied action.",
		},
		webhookLabels,
	)
)

// Labels for database operations
var (
	dbOperationLabels = []string{"operation", "entity", "company_id", "status"}

	DatabaseOperationDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wa_crm_api_db_operation_duration_seconds",
			Help:    "Histogram of database operation durations.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms to ~16s
		},
		dbOperationLabels,
	)
)

// InitMetrics toggles metric collection. Metrics are auto-registered via
// promauto; this only controls whether the helpers record.
func InitMetrics(enabled bool) {
	metricsEnabled = enabled
}

// sanitizeTenant ensures the tenant label is valid or returns a default value.
func sanitizeTenant(tenant string) string {
	if tenant == "" {
		return "unknown"
	}
	return tenant
}

// ObserveHTTPRequest increments the request counter and observes duration.
func ObserveHTTPRequest(method, route, status string, duration time.Duration) {
	if !metricsEnabled {
		return
	}
	HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
	HTTPRequestDurationSeconds.WithLabelValues(method, route, status).Observe(duration.Seconds())
}

// ObserveDispatch records an outbound dispatch attempt and its duration.
func ObserveDispatch(messageType, companyID, outcome string, duration time.Duration) {
	if !metricsEnabled {
		return
	}
	DispatchAttemptsTotal.WithLabelValues(messageType, sanitizeTenant(companyID), outcome).Inc()
	DispatchDurationSeconds.WithLabelValues(messageType, sanitizeTenant(companyID), outcome).Observe(duration.Seconds())
}

// IncWebhookReceipt increments the webhook receipt counter.
func IncWebhookReceipt(receiptStatus, companyID, action string) {
	if !metricsEnabled {
		return
	}
	WebhookReceiptsTotal.WithLabelValues(receiptStatus, sanitizeTenant(companyID), action).Inc()
}

// ObserveDbOperationDuration records the duration for a database operation.
func ObserveDbOperationDuration(operation, entity, companyID string, duration time.Duration, err error) {
	if !metricsEnabled {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	DatabaseOperationDurationSeconds.WithLabelValues(operation, entity, sanitizeTenant(companyID), status).Observe(duration.Seconds())
}

// SanitizeErrorType maps specific errors to a coarse category for labels.
// Keep this simple to avoid high cardinality.
func SanitizeErrorType(errStr string) string {
	if errStr == "" || errStr == "none" {
		return "none"
	}

	switch {
	case strings.Contains(errStr, "database"), strings.Contains(errStr, "SQL"), strings.Contains(errStr, "duplicate key"), strings.Contains(errStr, "constraint"), strings.Contains(errStr, "connection"):
		return "database"
	case strings.Contains(errStr, "validation failed"), strings.Contains(errStr, "bad request"), strings.Contains(errStr, "invalid"), strings.Contains(errStr, "missing field"):
		return "validation"
	case strings.Contains(errStr, "not found"), strings.Contains(errStr, "no rows"):
		return "not_found"
	case strings.Contains(errStr, "unconfigured"):
		return "unconfigured"
	case strings.Contains(errStr, "external call"), strings.Contains(errStr, "upstream"):
		return "external"
	case strings.Contains(errStr, "timeout"), strings.Contains(errStr, "deadline exceeded"):
		return "timeout"
	case strings.Contains(errStr, "unmarshal"), strings.Contains(errStr, "json"):
		return "unmarshal"
	case strings.Contains(errStr, "panic"):
		return "panic"
	default:
		return "unknown"
	}
}
