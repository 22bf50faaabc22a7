package paychan

import (
	m "github.com/gauss-project/powerpay/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	// all metrics fields must be exported
	// to be able to return them by Metrics()
	// using reflection
	InitializedChannels prometheus.Counter
	ClosedChannels      prometheus.Counter
	LockedAmount        prometheus.Counter
	Intents             prometheus.Counter
	IntentAmount        prometheus.Counter
	ExecutedDraws       prometheus.Counter
	SkippedDraws        prometheus.Counter
	PaidAmount          prometheus.Counter
}

func newMetrics() metrics {
	subsystem := "paychan"

	return metrics{
		InitializedChannels: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "initialized_channels_total",
			Help:      "Number of initialized payment channels.",
		}),
		ClosedChannels: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "closed_channels_total",
			Help:      "Number of closed payment channels.",
		}),
		LockedAmount: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "locked_amount_total",
			Help:      "Sum of amounts locked into channels.",
		}),
		Intents: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "intents_total",
			Help:      "Number of accepted micropayment intents.",
		}),
		IntentAmount: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "intent_amount_total",
			Help:      "Sum of accepted micropayment intents.",
		}),
		ExecutedDraws: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "executed_draws_total",
			Help:      "Number of draws that paid the accumulated intent.",
		}),
		SkippedDraws: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "skipped_draws_total",
			Help:      "Number of draws that left the intent pending.",
		}),
		PaidAmount: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "paid_amount_total",
			Help:      "Sum of amounts paid to payees by draws and closes.",
		}),
	}
}

func (c *Controller) Metrics() []prometheus.Collector {
	return m.PrometheusCollectorsFromFields(c.metrics)
}
