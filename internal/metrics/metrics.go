package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the service's Prometheus collectors.
type Metrics struct {
	OrdersCreated    *prometheus.CounterVec
	OrderTransitions *prometheus.CounterVec
	WebhookEvents    *prometheus.CounterVec
}

// New registers the order-service collectors on reg and returns them.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		OrdersCreated: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "orders_created_total",
			Help: "Orders created, by payment provider.",
		}, []string{"provider"}),
		OrderTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "order_transitions_total",
			Help: "Order status transitions applied, by target status.",
		}, []string{"to"}),
		WebhookEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "webhook_events_total",
			Help: "Webhook deliveries processed, by provider and result.",
		}, []string{"provider", "result"}),
	}
}
