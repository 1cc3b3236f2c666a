package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	OrderMutationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ordgw_order_mutations_total",
			Help: "Write-side order mutations by operation and outcome",
		},
		[]string{"op", "outcome"}, // create|update|delete , ok|conflict|invalid|error
	)

	OutboxDispatchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ordgw_outbox_dispatch_total",
			Help: "Outbox publish attempts by event type and outcome",
		},
		[]string{"event_type", "outcome"}, // dispatched|failed
	)

	EventsConsumedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ordgw_events_consumed_total",
			Help: "Consumed events by event type and outcome",
		},
		[]string{"event_type", "outcome"}, // applied|skipped|faulted
	)
)

func MustRegister(r prometheus.Registerer) {
	r.MustRegister(
		OrderMutationsTotal,
		OutboxDispatchTotal,
		EventsConsumedTotal,
	)
}
