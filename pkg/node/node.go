// Package node defines the concept of a PowerPay node
// by bootstrapping and injecting all necessary
// dependencies.
package node

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/gauss-project/powerpay/pkg/api"
	"github.com/gauss-project/powerpay/pkg/debugapi"
	"github.com/gauss-project/powerpay/pkg/identity"
	"github.com/gauss-project/powerpay/pkg/keystore"
	"github.com/gauss-project/powerpay/pkg/ledger"
	"github.com/gauss-project/powerpay/pkg/logging"
	"github.com/gauss-project/powerpay/pkg/metrics"
	"github.com/gauss-project/powerpay/pkg/paychan"
	"github.com/gauss-project/powerpay/pkg/processor"
	"github.com/hashicorp/go-multierror"
	"github.com/raulk/clock"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

type Node struct {
	apiServer        *http.Server
	debugAPIServer   *http.Server
	apiAddr          net.Addr
	debugAPIAddr     net.Addr
	errorLogWriter   *io.PipeWriter
	stateStoreCloser io.Closer
}

type Options struct {
	DataDir                  string
	DBOpenFilesLimit         uint64
	DBWriteBufferSize        uint64
	DBBlockCacheCapacity     uint64
	DBDisableSeeksCompaction bool
	APIAddr                  string
	DebugAPIAddr             string
	CORSAllowedOrigins       []string
	Logger                   logging.Logger
	DevMode                  bool
	FaucetAmount             uint64
	// FaucetInterval is the time between airdrops to one wallet, zero is
	// unlimited.
	FaucetInterval          time.Duration
	RentPerByte             uint64
	RentExemptionMultiplier uint64
	// Clock defaults to the system clock.
	Clock clock.Clock
}

func NewNode(operator identity.Identity, ks keystore.Service, logger logging.Logger, o Options) (b *Node, err error) {
	n := &Node{
		errorLogWriter: logger.WriterLevel(logrus.ErrorLevel),
	}
	b = n
	defer func() {
		// release whatever was started before the failure
		if err != nil {
			if n.debugAPIServer != nil {
				_ = n.debugAPIServer.Close()
			}
			if n.apiServer != nil {
				_ = n.apiServer.Close()
			}
			if e := n.close(); e != nil {
				logger.Debugf("node: close after failed start: %v", e)
			}
		}
	}()

	var debugAPIService *debugapi.Service

	if o.DebugAPIAddr != "" {
		// set up basic debug api endpoints for debugging and /health endpoint
		debugAPIService = debugapi.New(operator, logger, o.CORSAllowedOrigins)

		debugAPIListener, err := net.Listen("tcp", o.DebugAPIAddr)
		if err != nil {
			return nil, fmt.Errorf("debug api listener: %w", err)
		}

		debugAPIServer := &http.Server{
			IdleTimeout:       30 * time.Second,
			ReadHeaderTimeout: 3 * time.Second,
			Handler:           debugAPIService,
			ErrorLog:          log.New(b.errorLogWriter, "", 0),
		}

		go func() {
			logger.Infof("debug api address: %s", debugAPIListener.Addr())

			if err := debugAPIServer.Serve(debugAPIListener); err != nil && err != http.ErrServerClosed {
				logger.Debugf("debug api server: %v", err)
				logger.Error("unable to serve debug api")
			}
		}()

		b.debugAPIServer = debugAPIServer
		b.debugAPIAddr = debugAPIListener.Addr()
	}

	stateStore, err := InitStateStore(logger, o)
	if err != nil {
		return nil, err
	}
	b.stateStoreCloser = stateStore

	c := o.Clock
	if c == nil {
		c = clock.New()
	}

	l := ledger.New(stateStore, ledger.Options{
		RentPerByte:             o.RentPerByte,
		RentExemptionMultiplier: o.RentExemptionMultiplier,
	}, logger)
	channels := paychan.New(l, c, logger)
	txProcessor := processor.New(channels, logger)

	if o.DevMode && o.FaucetAmount > 0 {
		if err := fundOperator(l, operator, o.FaucetAmount, logger); err != nil {
			return nil, err
		}
	}

	var apiService api.Service
	if o.APIAddr != "" {
		// API server
		apiService = api.New(l, channels, txProcessor, ks, logger, api.Options{
			CORSAllowedOrigins: o.CORSAllowedOrigins,
			DevMode:            o.DevMode,
			FaucetAmount:       o.FaucetAmount,
			FaucetInterval:     o.FaucetInterval,
			FaucetBurst:        1,
		})
		apiListener, err := net.Listen("tcp", o.APIAddr)
		if err != nil {
			return nil, fmt.Errorf("api listener: %w", err)
		}

		apiServer := &http.Server{
			IdleTimeout:       30 * time.Second,
			ReadHeaderTimeout: 3 * time.Second,
			Handler:           apiService,
			ErrorLog:          log.New(b.errorLogWriter, "", 0),
		}

		go func() {
			logger.Infof("api address: %s", apiListener.Addr())

			if err := apiServer.Serve(apiListener); err != nil && err != http.ErrServerClosed {
				logger.Debugf("api server: %v", err)
				logger.Error("unable to serve api")
			}
		}()

		b.apiServer = apiServer
		b.apiAddr = apiListener.Addr()
	}

	if debugAPIService != nil {
		// register metrics from components
		debugAPIService.MustRegisterMetrics(l.Metrics()...)
		debugAPIService.MustRegisterMetrics(channels.Metrics()...)
		debugAPIService.MustRegisterMetrics(txProcessor.Metrics()...)

		if apiService != nil {
			debugAPIService.MustRegisterMetrics(apiService.Metrics()...)
		}
		if lc, ok := logger.(metrics.Collector); ok {
			debugAPIService.MustRegisterMetrics(lc.Metrics()...)
		}

		// inject dependencies and configure full debug api http path routes
		debugAPIService.Configure(l, txProcessor)
	}

	return b, nil
}

// fundOperator credits the development operator wallet once, on the first
// start with an empty ledger account.
func fundOperator(l *ledger.Ledger, operator identity.Identity, amount uint64, logger logging.Logger) error {
	ctx := context.Background()
	_, err := l.Account(ctx, operator)
	switch {
	case err == nil:
		return nil
	case !errors.Is(err, ledger.ErrAccountNotFound):
		return fmt.Errorf("operator account: %w", err)
	}
	if err := l.Mint(ctx, operator, amount); err != nil {
		return fmt.Errorf("fund operator: %w", err)
	}
	logger.Infof("dev mode: operator %s funded with %d", operator, amount)
	return nil
}

// APIAddr returns the address the API listens on, nil if it is disabled.
func (b *Node) APIAddr() net.Addr {
	return b.apiAddr
}

// DebugAPIAddr returns the address the debug API listens on, nil if it is
// disabled.
func (b *Node) DebugAPIAddr() net.Addr {
	return b.debugAPIAddr
}

func (b *Node) Shutdown(ctx context.Context) error {
	var mErr error

	var eg errgroup.Group
	if b.apiServer != nil {
		eg.Go(func() error {
			if err := b.apiServer.Shutdown(ctx); err != nil {
				return fmt.Errorf("api server: %w", err)
			}
			return nil
		})
	}
	if b.debugAPIServer != nil {
		eg.Go(func() error {
			if err := b.debugAPIServer.Shutdown(ctx); err != nil {
				return fmt.Errorf("debug api server: %w", err)
			}
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		mErr = multierror.Append(mErr, err)
	}

	if err := b.close(); err != nil {
		mErr = multierror.Append(mErr, err)
	}

	return mErr
}

func (b *Node) close() error {
	var mErr error

	if b.stateStoreCloser != nil {
		if err := b.stateStoreCloser.Close(); err != nil {
			mErr = multierror.Append(mErr, fmt.Errorf("statestore: %w", err))
		}
		b.stateStoreCloser = nil
	}

	if b.errorLogWriter != nil {
		if err := b.errorLogWriter.Close(); err != nil {
			mErr = multierror.Append(mErr, fmt.Errorf("error log writer: %w", err))
		}
		b.errorLogWriter = nil
	}

	return mErr
}
