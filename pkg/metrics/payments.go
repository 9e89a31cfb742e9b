package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PaymentMetrics records checkout, provider and webhook activity.
type PaymentMetrics struct {
	charges         *prometheus.CounterVec
	refunds         *prometheus.CounterVec
	providerLatency *prometheus.HistogramVec
	webhookEvents   *prometheus.CounterVec
}

// NewPaymentMetrics registers the payment metrics on the provided registerer.
func NewPaymentMetrics(reg prometheus.Registerer) *PaymentMetrics {
	if reg == nil {
		return &PaymentMetrics{}
	}
	charges := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_charges_total",
		Help: "Charge attempts by gateway and outcome.",
	}, []string{"gateway", "outcome"})
	refunds := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_refunds_total",
		Help: "Refund attempts by outcome.",
	}, []string{"outcome"})
	providerLatency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "provider_request_duration_seconds",
		Help:    "Duration of provider API calls in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
	webhookEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_total",
		Help: "Webhook notifications by charge status and outcome.",
	}, []string{"status", "outcome"})
	reg.MustRegister(charges, refunds, providerLatency, webhookEvents)
	return &PaymentMetrics{
		charges:         charges,
		refunds:         refunds,
		providerLatency: providerLatency,
		webhookEvents:   webhookEvents,
	}
}

// IncCharge increments the charge counter for the gateway/outcome pair.
func (p *PaymentMetrics) IncCharge(gateway, outcome string) {
	if p == nil || p.charges == nil {
		return
	}
	p.charges.WithLabelValues(normalizeLabel(gateway), normalizeLabel(outcome)).Inc()
}

// IncRefund increments the refund counter for the outcome.
func (p *PaymentMetrics) IncRefund(outcome string) {
	if p == nil || p.refunds == nil {
		return
	}
	p.refunds.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// ObserveProviderRequest records the latency of a provider call.
func (p *PaymentMetrics) ObserveProviderRequest(operation string, duration time.Duration) {
	if p == nil || p.providerLatency == nil {
		return
	}
	p.providerLatency.WithLabelValues(normalizeLabel(operation)).Observe(duration.Seconds())
}

// IncWebhookEvent increments the webhook counter for the status/outcome pair.
func (p *PaymentMetrics) IncWebhookEvent(status, outcome string) {
	if p == nil || p.webhookEvents == nil {
		return
	}
	p.webhookEvents.WithLabelValues(normalizeLabel(status), normalizeLabel(outcome)).Inc()
}
