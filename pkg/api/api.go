// Package api provides the functionality of the powerpay
// client-facing HTTP API.
package api

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"net/http"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/gauss-project/powerpay/pkg/identity"
	"github.com/gauss-project/powerpay/pkg/jsonhttp"
	"github.com/gauss-project/powerpay/pkg/keystore"
	"github.com/gauss-project/powerpay/pkg/ledger"
	"github.com/gauss-project/powerpay/pkg/logging"
	m "github.com/gauss-project/powerpay/pkg/metrics"
	"github.com/gauss-project/powerpay/pkg/paychan"
	"github.com/gauss-project/powerpay/pkg/processor"
	"github.com/gauss-project/powerpay/pkg/ratelimit"
)

var (
	errInvalidAddress  = errors.New("invalid address")
	errInvalidRequest  = errors.New("could not validate request")
	errFaucetDisabled  = errors.New("faucet is disabled")
	errFaucetExhausted = errors.New("faucet rate limit exceeded")
)

// Service is the API service interface.
type Service interface {
	http.Handler
	m.Collector
}

// Ledger is the part of the ledger the API reads and the faucet credits.
type Ledger interface {
	Account(ctx context.Context, address identity.Identity) (ledger.Account, error)
	Mint(ctx context.Context, address identity.Identity, amount uint64) error
	MinimumReserve(size int) uint64
	Nonce(ctx context.Context, signer identity.Identity) (uint64, error)
}

type server struct {
	ledger    Ledger
	channels  paychan.Interface
	processor processor.Interface
	keystore  keystore.Service
	logger    logging.Logger
	faucet    *ratelimit.Limiter
	seed      func() (uint64, error)
	// submitMu keeps nonce lookup and processing of API signed
	// transactions together.
	submitMu sync.Mutex
	Options
	http.Handler
	metrics metrics
}

type Options struct {
	CORSAllowedOrigins []string
	// DevMode enables the faucet.
	DevMode      bool
	FaucetAmount uint64
	// FaucetInterval is the time one wallet waits between airdrops once its
	// burst is used. Zero means unlimited.
	FaucetInterval time.Duration
	FaucetBurst    int
}

// New will create a and initialize a new API service.
func New(l Ledger, channels paychan.Interface, p processor.Interface, ks keystore.Service, logger logging.Logger, o Options) Service {
	if o.FaucetBurst < 1 {
		o.FaucetBurst = 1
	}
	s := &server{
		ledger:    l,
		channels:  channels,
		processor: p,
		keystore:  ks,
		logger:    logger,
		seed:      randomSeed,
		Options:   o,
		metrics:   newMetrics(),
	}

	if o.FaucetInterval > 0 {
		s.faucet = ratelimit.New(o.FaucetInterval, o.FaucetBurst)
	}

	s.setupRouting()

	return s
}

// randomSeed is used when a client asks for a probabilistic payment without
// providing a seed.
func randomSeed() (uint64, error) {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}

// respondError maps channel, ledger and keystore errors to HTTP statuses.
func (s *server) respondError(w http.ResponseWriter, msg string, err error) {
	switch {
	case errors.Is(err, paychan.ErrMalformedRequest):
		jsonhttp.BadRequest(w, err)
	case errors.Is(err, paychan.ErrUnauthenticated), errors.Is(err, keystore.ErrInvalidPassword):
		jsonhttp.Unauthorized(w, err)
	case errors.Is(err, paychan.ErrInsufficientFunds), errors.Is(err, paychan.ErrAllocationFailed):
		jsonhttp.PaymentRequired(w, err)
	case errors.Is(err, paychan.ErrIdentityMismatch), errors.Is(err, paychan.ErrInvalidAccountOwner):
		jsonhttp.Forbidden(w, err)
	case errors.Is(err, paychan.ErrRecordNotInitialized), errors.Is(err, keystore.ErrKeyNotFound):
		jsonhttp.NotFound(w, err)
	case errors.Is(err, paychan.ErrAlreadyInitialized), errors.Is(err, paychan.ErrExpiredChannel):
		jsonhttp.Conflict(w, err)
	default:
		s.logger.Debugf("api: %s: %v", msg, err)
		s.logger.Errorf("api: %s", msg)
		jsonhttp.InternalServerError(w, msg)
	}
}

// checkOrigin returns true if the origin is not set or is equal to the request host.
func (s *server) checkOrigin(r *http.Request) bool {
	origin := r.Header["Origin"]
	if len(origin) == 0 {
		return true
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	hosts := append(s.CORSAllowedOrigins, scheme+"://"+r.Host)
	for _, v := range hosts {
		if equalASCIIFold(origin[0], v) || v == "*" {
			return true
		}
	}

	return false
}

// equalASCIIFold returns true if s is equal to t with ASCII case folding as
// defined in RFC 4790.
func equalASCIIFold(s, t string) bool {
	for s != "" && t != "" {
		sr, size := utf8.DecodeRuneInString(s)
		s = s[size:]
		tr, size := utf8.DecodeRuneInString(t)
		t = t[size:]
		if sr == tr {
			continue
		}
		if 'A' <= sr && sr <= 'Z' {
			sr = sr + 'a' - 'A'
		}
		if 'A' <= tr && tr <= 'Z' {
			tr = tr + 'a' - 'A'
		}
		if sr != tr {
			return false
		}
	}
	return s == t
}
