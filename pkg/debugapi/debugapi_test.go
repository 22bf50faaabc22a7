package debugapi_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gauss-project/powerpay"
	"github.com/gauss-project/powerpay/pkg/debugapi"
	"github.com/gauss-project/powerpay/pkg/identity"
	"github.com/gauss-project/powerpay/pkg/jsonhttp"
	"github.com/gauss-project/powerpay/pkg/jsonhttp/jsonhttptest"
	"github.com/gauss-project/powerpay/pkg/ledger"
	"github.com/gauss-project/powerpay/pkg/logging"
	"github.com/gauss-project/powerpay/pkg/paychan"
	"github.com/gauss-project/powerpay/pkg/processor"
	"github.com/gauss-project/powerpay/pkg/statestore/mock"
	"github.com/raulk/clock"
	"resenje.org/web"
)

type testServerOptions struct {
	Operator           identity.Identity
	CORSAllowedOrigins []string
	Ledger             *ledger.Ledger
	Processor          *processor.Processor
}

type testServer struct {
	Client *http.Client
}

var logger = logging.New(io.Discard, 0)

func newTestServer(t *testing.T, o testServerOptions) *testServer {
	t.Helper()

	if o.Ledger == nil {
		o.Ledger = ledger.New(mock.NewStateStore(), ledger.Options{}, logger)
	}
	if o.Processor == nil {
		o.Processor = processor.New(paychan.New(o.Ledger, clock.NewMock(), logger), logger)
	}
	s := debugapi.New(o.Operator, logger, o.CORSAllowedOrigins)
	s.Configure(o.Ledger, o.Processor)
	return &testServer{
		Client: newClient(t, s),
	}
}

func newClient(t *testing.T, h http.Handler) *http.Client {
	t.Helper()

	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)

	return &http.Client{
		Transport: web.RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			u, err := url.Parse(ts.URL + r.URL.String())
			if err != nil {
				return nil, err
			}
			r.URL = u
			return ts.Client().Transport.RoundTrip(r)
		}),
	}
}

// TestServer_Configure validates that http routes are correct when server is
// constructed with only basic routes and after it is configured with
// dependencies.
func TestServer_Configure(t *testing.T) {
	operator, err := identity.Random()
	if err != nil {
		t.Fatal(err)
	}
	l := ledger.New(mock.NewStateStore(), ledger.Options{}, logger)

	s := debugapi.New(operator, logger, nil)
	client := newClient(t, s)

	testBasicRouter(t, client, operator)
	jsonhttptest.Request(t, client, http.MethodGet, "/readiness", http.StatusNotFound,
		jsonhttptest.WithExpectedJSONResponse(jsonhttp.StatusResponse{
			Message: http.StatusText(http.StatusNotFound),
			Code:    http.StatusNotFound,
		}),
	)
	jsonhttptest.Request(t, client, http.MethodGet, "/accounts", http.StatusNotFound)

	s.Configure(l, processor.New(paychan.New(l, clock.NewMock(), logger), logger))

	testBasicRouter(t, client, operator)
	jsonhttptest.Request(t, client, http.MethodGet, "/readiness", http.StatusOK,
		jsonhttptest.WithExpectedJSONResponse(debugapi.StatusResponse{
			Status:  "ok",
			Version: powerpay.Version,
		}),
	)
	jsonhttptest.Request(t, client, http.MethodGet, "/accounts", http.StatusOK,
		jsonhttptest.WithExpectedJSONResponse(debugapi.AccountsResponse{
			Accounts: []debugapi.AccountResponse{},
		}),
	)
}

func testBasicRouter(t *testing.T, client *http.Client, operator identity.Identity) {
	t.Helper()

	jsonhttptest.Request(t, client, http.MethodGet, "/health", http.StatusOK,
		jsonhttptest.WithExpectedJSONResponse(debugapi.StatusResponse{
			Status:  "ok",
			Version: powerpay.Version,
		}),
	)

	jsonhttptest.Request(t, client, http.MethodGet, "/addresses", http.StatusOK,
		jsonhttptest.WithExpectedJSONResponse(debugapi.AddressesResponse{
			Operator: operator,
			Program:  paychan.ProgramID,
		}),
	)

	jsonhttptest.Request(t, client, http.MethodGet, "/metrics", http.StatusOK)
}

func newFundedChannel(t *testing.T, l *ledger.Ledger, p *processor.Processor) (payer identity.Signer, channel identity.Identity) {
	t.Helper()

	key, err := identity.GenerateKey()
	if err != nil {
		t.Fatal(err)
	}
	payer = identity.NewSigner(key)
	if err := l.Mint(context.Background(), payer.Identity(), 5_000_000); err != nil {
		t.Fatal(err)
	}
	payee, err := identity.Random()
	if err != nil {
		t.Fatal(err)
	}
	channel, err = identity.Random()
	if err != nil {
		t.Fatal(err)
	}

	tx, err := processor.NewTransaction(paychan.InitChannel(1_000_000, 0), paychan.Accounts{
		Payer:   payer.Identity(),
		Payee:   payee,
		Channel: channel,
	}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if err := tx.Sign(payer); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, err := p.Process(ctx, tx); err != nil {
		t.Fatal(err)
	}
	return payer, channel
}
