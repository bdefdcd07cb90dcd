package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// BusinessMetrics holds Prometheus metrics for business-level observability.
type BusinessMetrics struct {
	// Webhooks
	WebhookReceived *prometheus.CounterVec
	WebhookFailed   *prometheus.CounterVec
	WebhookLatency  *prometheus.HistogramVec

	// Subscriptions
	SubscriptionStatusUpdates *prometheus.CounterVec
	CheckoutSessionsCreated   *prometheus.CounterVec

	// Auth
	Signins *prometheus.CounterVec

	// Rota
	RotaRefreshes   *prometheus.CounterVec
	RotaSubscribers prometheus.Gauge
}

// NewBusinessMetrics creates and registers all business metrics on reg.
// A nil registerer uses the default Prometheus registry.
func NewBusinessMetrics(namespace string, reg prometheus.Registerer) *BusinessMetrics {
	if namespace == "" {
		namespace = "lasz"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	subsystem := "business"

	return &BusinessMetrics{
		// =======================================================================
		// Webhooks
		// =======================================================================
		WebhookReceived: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "webhook_received_total",
				Help:      "Total verified billing webhooks received",
			},
			[]string{"event_type"},
		),
		WebhookFailed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "webhook_failed_total",
				Help:      "Total billing webhooks rejected or not applied",
			},
			[]string{"event_type", "reason"}, // reason: missing_secret, bad_signature, reconcile_failed
		),
		WebhookLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "webhook_latency_seconds",
				Help:      "Billing webhook processing latency",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
			},
			[]string{"event_type"},
		),

		// =======================================================================
		// Subscriptions
		// =======================================================================
		SubscriptionStatusUpdates: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "subscription_status_updates_total",
				Help:      "Total company subscription status writes",
			},
			[]string{"status"},
		),
		CheckoutSessionsCreated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "checkout_sessions_created_total",
				Help:      "Total subscription checkout sessions created",
			},
			[]string{"outcome"}, // outcome: created, failed
		),

		// =======================================================================
		// Auth
		// =======================================================================
		Signins: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "signins_total",
				Help:      "Total sign-in attempts by outcome",
			},
			[]string{"outcome"}, // outcome: dashboard, profile, invalid_credentials, not_admin, error
		),

		// =======================================================================
		// Rota
		// =======================================================================
		RotaRefreshes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "rota_refreshes_total",
				Help:      "Total rota re-fetches triggered by shift changes",
			},
			[]string{"role"},
		),
		RotaSubscribers: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "rota_subscribers",
				Help:      "Current number of live rota subscriptions",
			},
		),
	}
}

// Global instance for easy access from handlers
var Business *BusinessMetrics

// InitBusinessMetrics initializes the global business metrics instance
func InitBusinessMetrics(namespace string) *BusinessMetrics {
	Business = NewBusinessMetrics(namespace, nil)
	return Business
}
