package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PaymentMetrics records state machine and gateway activity.
type PaymentMetrics struct {
	transitions *prometheus.CounterVec
	gatewayCall *prometheus.HistogramVec
}

// NewPaymentMetrics registers the payment metrics on the provided registerer.
func NewPaymentMetrics(reg prometheus.Registerer) *PaymentMetrics {
	if reg == nil {
		return &PaymentMetrics{}
	}
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_transitions_total",
		Help: "Payment intent state transitions by outcome.",
	}, []string{"transition", "result"})
	gatewayCall := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gateway_call_duration_seconds",
		Help:    "Duration of outbound gateway calls in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
	reg.MustRegister(transitions, gatewayCall)
	return &PaymentMetrics{
		transitions: transitions,
		gatewayCall: gatewayCall,
	}
}

// IncTransition counts one transition attempt with its outcome.
func (p *PaymentMetrics) IncTransition(transition, result string) {
	if p == nil || p.transitions == nil {
		return
	}
	p.transitions.WithLabelValues(normalizeLabel(transition), normalizeLabel(result)).Inc()
}

// ObserveGatewayCall records the duration of a gateway operation.
func (p *PaymentMetrics) ObserveGatewayCall(operation string, duration time.Duration) {
	if p == nil || p.gatewayCall == nil {
		return
	}
	p.gatewayCall.WithLabelValues(normalizeLabel(operation)).Observe(duration.Seconds())
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
