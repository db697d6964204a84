package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	purchaseTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticket_purchases_total",
			Help: "Purchase attempts by outcome",
		},
		[]string{"status"},
	)

	resaleTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticket_resales_total",
			Help: "Resale purchase attempts by outcome",
		},
		[]string{"status"},
	)

	lockAcquireTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "distributed_lock_acquire_total",
			Help: "Distributed lock acquisition attempts by result",
		},
		[]string{"result"},
	)

	webhookEventTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_webhook_events_total",
			Help: "Webhook deliveries by event and outcome",
		},
		[]string{"event", "outcome"},
	)

	paymentEventTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_events_total",
			Help: "Internal payment events consumed from the event channel",
		},
		[]string{"event"},
	)

	purchaseDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ticket_purchase_duration_seconds",
			Help:    "Duration of the locked purchase critical section",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		},
	)

	breakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0 closed, 1 open, 2 half-open)",
		},
		[]string{"name"},
	)
)

func RecordPurchase(status string) {
	purchaseTotal.WithLabelValues(status).Inc()
}

func RecordResale(status string) {
	resaleTotal.WithLabelValues(status).Inc()
}

func RecordLockAcquire(result string) {
	lockAcquireTotal.WithLabelValues(result).Inc()
}

func RecordWebhookEvent(event, outcome string) {
	webhookEventTotal.WithLabelValues(event, outcome).Inc()
}

func RecordPaymentEvent(event string) {
	paymentEventTotal.WithLabelValues(event).Inc()
}

func ObservePurchaseDuration(d time.Duration) {
	purchaseDuration.Observe(d.Seconds())
}

func SetBreakerState(name string, state int) {
	breakerState.WithLabelValues(name).Set(float64(state))
}

// Handler serves the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
