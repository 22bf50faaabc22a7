// Package debugapi exposes the debug API used to
// control and analyze low-level and runtime
// features and functionalities of a PowerPay node.
package debugapi

import (
	"context"
	"net/http"
	"sync"

	"github.com/gauss-project/powerpay/pkg/identity"
	"github.com/gauss-project/powerpay/pkg/ledger"
	"github.com/gauss-project/powerpay/pkg/logging"
	"github.com/gauss-project/powerpay/pkg/processor"
	"github.com/prometheus/client_golang/prometheus"
)

// Ledger is the read side of the ledger inspected by the debug API.
type Ledger interface {
	Account(ctx context.Context, address identity.Identity) (ledger.Account, error)
	Iterate(fn ledger.IterFunc) error
}

// StatsReporter reports transaction processing counters.
type StatsReporter interface {
	Stats() processor.Stats
}

// Service implements http.Handler interface to be used in HTTP server.
type Service struct {
	operator           identity.Identity
	logger             logging.Logger
	ledger             Ledger
	processor          StatsReporter
	corsAllowedOrigins []string
	metricsRegistry    *prometheus.Registry
	// handler is changed in the Configure method
	handler   http.Handler
	handlerMu sync.RWMutex
}

// New creates a new Debug API Service with only basic routers enabled in order
// to expose /health endpoint, Go metrics and pprof. It is useful to expose
// these endpoints before all dependencies are configured and injected to have
// access to basic debugging tools and /health endpoint.
func New(operator identity.Identity, logger logging.Logger, corsAllowedOrigins []string) *Service {
	s := new(Service)
	s.operator = operator
	s.logger = logger
	s.corsAllowedOrigins = corsAllowedOrigins
	s.metricsRegistry = newMetricsRegistry()
	s.setRouter(s.newBasicRouter())

	return s
}

// Configure injects required dependencies and configuration parameters and
// constructs HTTP routes that depend on them. It is intended and safe to call
// this method only once.
func (s *Service) Configure(l Ledger, p StatsReporter) {
	s.ledger = l
	s.processor = p

	s.setRouter(s.newRouter())
}

// ServeHTTP implements http.Handler interface.
func (s *Service) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// protect handler as it is changed by the Configure method
	s.handlerMu.RLock()
	h := s.handler
	s.handlerMu.RUnlock()

	h.ServeHTTP(w, r)
}
