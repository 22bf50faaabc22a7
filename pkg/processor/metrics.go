package processor

import (
	m "github.com/gauss-project/powerpay/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	// all metrics fields must be exported
	// to be able to return them by Metrics()
	// using reflection
	ProcessedTransactions *prometheus.CounterVec
	FailedTransactions    *prometheus.CounterVec
}

func newMetrics() metrics {
	subsystem := "processor"

	return metrics{
		ProcessedTransactions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: m.Namespace,
				Subsystem: subsystem,
				Name:      "processed_transactions_total",
				Help:      "Number of successfully processed transactions per instruction.",
			},
			[]string{"instruction"},
		),
		FailedTransactions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: m.Namespace,
				Subsystem: subsystem,
				Name:      "failed_transactions_total",
				Help:      "Number of rejected transactions per error kind.",
			},
			[]string{"kind"},
		),
	}
}

func (p *Processor) Metrics() []prometheus.Collector {
	return m.PrometheusCollectorsFromFields(p.metrics)
}
