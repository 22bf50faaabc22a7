package api_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gauss-project/powerpay/pkg/api"
	"github.com/gauss-project/powerpay/pkg/identity"
	"github.com/gauss-project/powerpay/pkg/keystore/mem"
	"github.com/gauss-project/powerpay/pkg/ledger"
	"github.com/gauss-project/powerpay/pkg/logging"
	"github.com/gauss-project/powerpay/pkg/paychan"
	"github.com/gauss-project/powerpay/pkg/processor"
	"github.com/gauss-project/powerpay/pkg/statestore/mock"
	"github.com/raulk/clock"
	"resenje.org/web"
)

const now = 1_700_000_000

type testServerOptions struct {
	DevMode        bool
	FaucetAmount   uint64
	FaucetInterval time.Duration
	FaucetBurst    int
	Seed           *uint64
}

type testServer struct {
	client   *http.Client
	ledger   *ledger.Ledger
	keystore *mem.Service
	clock    *clock.Mock
}

func newTestServer(t *testing.T, o testServerOptions) *testServer {
	t.Helper()

	logger := logging.New(io.Discard, 0)
	l := ledger.New(mock.NewStateStore(), ledger.Options{}, logger)
	c := clock.NewMock()
	c.Set(time.Unix(now, 0))
	channels := paychan.New(l, c, logger)
	ks := mem.New()

	s := api.New(l, channels, processor.New(channels, logger), ks, logger, api.Options{
		DevMode:        o.DevMode,
		FaucetAmount:   o.FaucetAmount,
		FaucetInterval: o.FaucetInterval,
		FaucetBurst:    o.FaucetBurst,
	})
	if o.Seed != nil {
		api.SetSeed(s, *o.Seed)
	}

	ts := httptest.NewServer(s)
	t.Cleanup(ts.Close)

	return &testServer{
		client: &http.Client{
			Transport: web.RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
				u, err := url.Parse(ts.URL + r.URL.String())
				if err != nil {
					return nil, err
				}
				r.URL = u
				return ts.Client().Transport.RoundTrip(r)
			}),
		},
		ledger:   l,
		keystore: ks,
		clock:    c,
	}
}

// wallet stores a new key under password and funds it with amount.
func (s *testServer) wallet(t *testing.T, password string, amount uint64) identity.Identity {
	t.Helper()

	pk, err := identity.GenerateKey()
	if err != nil {
		t.Fatal(err)
	}
	address := identity.FromPublicKey(&pk.PublicKey)
	if err := s.keystore.ImportPrivateKey(address.String(), password, pk); err != nil {
		t.Fatal(err)
	}
	if amount > 0 {
		if err := s.ledger.Mint(context.Background(), address, amount); err != nil {
			t.Fatal(err)
		}
	}
	return address
}

func (s *testServer) balance(t *testing.T, address identity.Identity) uint64 {
	t.Helper()

	b, err := s.ledger.Balance(context.Background(), address)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func newIdentity(t *testing.T) identity.Identity {
	t.Helper()

	id, err := identity.Random()
	if err != nil {
		t.Fatal(err)
	}
	return id
}
