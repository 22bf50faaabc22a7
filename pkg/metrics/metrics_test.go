package metrics_test

import (
	"testing"

	"github.com/gauss-project/powerpay/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

type component struct {
	Total   prometheus.Counter
	Pending prometheus.Gauge
	private prometheus.Counter
	Name    string
}

func (c component) Metrics() []prometheus.Collector {
	return metrics.PrometheusCollectorsFromFields(c)
}

func newComponent() component {
	return component{
		Total:   prometheus.NewCounter(prometheus.CounterOpts{Namespace: metrics.Namespace, Name: "total"}),
		Pending: prometheus.NewGauge(prometheus.GaugeOpts{Namespace: metrics.Namespace, Name: "pending"}),
		private: prometheus.NewCounter(prometheus.CounterOpts{Namespace: metrics.Namespace, Name: "private"}),
		Name:    "component",
	}
}

func TestPrometheusCollectorsFromFields(t *testing.T) {
	cs := newComponent().Metrics()
	if len(cs) != 2 {
		t.Fatalf("got %d collectors, want 2", len(cs))
	}
}

func TestMustRegister(t *testing.T) {
	r := prometheus.NewRegistry()
	metrics.MustRegister(r, newComponent())

	mfs, err := r.Gather()
	if err != nil {
		t.Fatal(err)
	}
	if len(mfs) != 2 {
		t.Fatalf("got %d metric families, want 2", len(mfs))
	}
}
