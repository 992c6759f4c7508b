package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

// PaymentMetrics tracks state-machine transitions and provider outcomes.
type PaymentMetrics struct {
	payerTransitions   *prometheus.CounterVec
	collectionStatuses *prometheus.CounterVec
	allocationOutcomes *prometheus.CounterVec
	webhookEvents      *prometheus.CounterVec
}

// NewPaymentMetrics registers the payment collectors on reg. A nil registerer
// yields a no-op collector set.
func NewPaymentMetrics(reg prometheus.Registerer) *PaymentMetrics {
	if reg == nil {
		return &PaymentMetrics{}
	}
	payerTransitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payer_transitions_total",
		Help: "Payer status transitions applied, by target status and outcome.",
	}, []string{"to", "outcome"})
	collectionStatuses := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "collection_status_changes_total",
		Help: "Collection status changes produced by recomputation.",
	}, []string{"from", "to"})
	allocationOutcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_allocation_outcomes_total",
		Help: "Multi-card allocation settlement outcomes by provider.",
	}, []string{"provider", "status"})
	webhookEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_total",
		Help: "Inbound provider webhook events by provider, type and outcome.",
	}, []string{"provider", "type", "outcome"})
	reg.MustRegister(payerTransitions, collectionStatuses, allocationOutcomes, webhookEvents)
	return &PaymentMetrics{
		payerTransitions:   payerTransitions,
		collectionStatuses: collectionStatuses,
		allocationOutcomes: allocationOutcomes,
		webhookEvents:      webhookEvents,
	}
}

// PayerTransition records an attempted payer transition. applied is false
// when the compare-and-swap found the payer already moved.
func (m *PaymentMetrics) PayerTransition(to string, applied bool) {
	if m == nil || m.payerTransitions == nil {
		return
	}
	outcome := "applied"
	if !applied {
		outcome = "noop"
	}
	m.payerTransitions.WithLabelValues(labelOrUnknown(to), outcome).Inc()
}

func (m *PaymentMetrics) CollectionStatusChanged(from, to string) {
	if m == nil || m.collectionStatuses == nil {
		return
	}
	m.collectionStatuses.WithLabelValues(labelOrUnknown(from), labelOrUnknown(to)).Inc()
}

func (m *PaymentMetrics) AllocationOutcome(provider, status string) {
	if m == nil || m.allocationOutcomes == nil {
		return
	}
	m.allocationOutcomes.WithLabelValues(labelOrUnknown(provider), labelOrUnknown(strings.ToLower(status))).Inc()
}

func (m *PaymentMetrics) WebhookEvent(provider, eventType, outcome string) {
	if m == nil || m.webhookEvents == nil {
		return
	}
	m.webhookEvents.WithLabelValues(labelOrUnknown(provider), labelOrUnknown(eventType), labelOrUnknown(outcome)).Inc()
}

func labelOrUnknown(value string) string {
	if strings.TrimSpace(value) == "" {
		return "unknown"
	}
	return value
}
