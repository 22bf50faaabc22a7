package ledger

import (
	m "github.com/gauss-project/powerpay/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	// all metrics fields must be exported
	// to be able to return them by Metrics()
	// using reflection
	CommittedTransactions  prometheus.Counter
	RolledBackTransactions prometheus.Counter
	CreatedAccounts        prometheus.Counter
	ClosedAccounts         prometheus.Counter
	Transfers              prometheus.Counter
	TransferredAmount      prometheus.Counter
	MintedAmount           prometheus.Counter
}

func newMetrics() metrics {
	subsystem := "ledger"

	return metrics{
		CommittedTransactions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "committed_transactions_total",
			Help:      "Number of committed ledger transactions.",
		}),
		RolledBackTransactions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "rolled_back_transactions_total",
			Help:      "Number of ledger transactions discarded because of an error.",
		}),
		CreatedAccounts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "created_accounts_total",
			Help:      "Number of accounts created by programs.",
		}),
		ClosedAccounts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "closed_accounts_total",
			Help:      "Number of closed accounts.",
		}),
		Transfers: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "transfers_total",
			Help:      "Number of committed balance transfers.",
		}),
		TransferredAmount: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "transferred_amount_total",
			Help:      "Sum of committed transfer amounts.",
		}),
		MintedAmount: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "minted_amount_total",
			Help:      "Sum of amounts credited by the faucet.",
		}),
	}
}

func (m metrics) record(c counts) {
	m.CreatedAccounts.Add(float64(c.created))
	m.ClosedAccounts.Add(float64(c.closed))
	m.Transfers.Add(float64(c.transfers))
	m.TransferredAmount.Add(float64(c.transferred))
	m.MintedAmount.Add(float64(c.minted))
}

func (l *Ledger) Metrics() []prometheus.Collector {
	return m.PrometheusCollectorsFromFields(l.metrics)
}
