package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PayoutMetrics records gateway calls and payment outcomes.
type PayoutMetrics struct {
	gatewayDuration *prometheus.HistogramVec
	gatewayRequests *prometheus.CounterVec
	payouts         *prometheus.CounterVec
	batchItems      *prometheus.CounterVec
	settlements     *prometheus.CounterVec
}

// NewPayoutMetrics registers the payout metrics on the provided registerer.
func NewPayoutMetrics(reg prometheus.Registerer) *PayoutMetrics {
	if reg == nil {
		return &PayoutMetrics{}
	}
	gatewayDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "payout_gateway_request_duration_seconds",
		Help:    "Latency of payment gateway requests in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})
	gatewayRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payout_gateway_requests_total",
		Help: "Payment gateway requests by endpoint and outcome.",
	}, []string{"endpoint", "outcome"})
	payouts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payout_payments_processed_total",
		Help: "Processed instrumentalist payments by payout method and resulting status.",
	}, []string{"method", "status"})
	batchItems := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payout_batch_items_total",
		Help: "Batch items by operation and outcome.",
	}, []string{"operation", "outcome"})
	settlements := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payout_settlement_checks_total",
		Help: "Settlement verification results for paid gateway transfers.",
	}, []string{"result"})
	reg.MustRegister(gatewayDuration, gatewayRequests, payouts, batchItems, settlements)
	return &PayoutMetrics{
		gatewayDuration: gatewayDuration,
		gatewayRequests: gatewayRequests,
		payouts:         payouts,
		batchItems:      batchItems,
		settlements:     settlements,
	}
}

// ObserveGatewayRequest records one gateway round trip.
func (m *PayoutMetrics) ObserveGatewayRequest(endpoint, outcome string, duration time.Duration) {
	if m == nil || m.gatewayDuration == nil {
		return
	}
	endpoint = normalizeLabel(endpoint)
	m.gatewayDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
	m.gatewayRequests.WithLabelValues(endpoint, normalizeLabel(outcome)).Inc()
}

func (m *PayoutMetrics) IncPayment(method, status string) {
	if m == nil || m.payouts == nil {
		return
	}
	m.payouts.WithLabelValues(normalizeLabel(method), normalizeLabel(status)).Inc()
}

func (m *PayoutMetrics) IncBatchItem(operation, outcome string) {
	if m == nil || m.batchItems == nil {
		return
	}
	m.batchItems.WithLabelValues(normalizeLabel(operation), normalizeLabel(outcome)).Inc()
}

func (m *PayoutMetrics) IncSettlementCheck(result string) {
	if m == nil || m.settlements == nil {
		return
	}
	m.settlements.WithLabelValues(normalizeLabel(result)).Inc()
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
