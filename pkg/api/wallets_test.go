package api_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/gauss-project/powerpay/pkg/identity"
	"github.com/gauss-project/powerpay/pkg/jsonhttp"
	"github.com/gauss-project/powerpay/pkg/jsonhttp/jsonhttptest"
	"github.com/gauss-project/powerpay/pkg/ledger"
)

type walletResponse struct {
	Address identity.Identity `json:"address"`
	Owner   identity.Identity `json:"owner"`
	Balance uint64            `json:"balance"`
	HasKey  bool              `json:"hasKey"`
}

type walletCreateResponse struct {
	Address    identity.Identity `json:"address"`
	Balance    uint64            `json:"balance"`
	Airdropped uint64            `json:"airdropped"`
}

func TestWalletCreate(t *testing.T) {
	t.Run("dev mode", func(t *testing.T) {
		s := newTestServer(t, testServerOptions{
			DevMode:      true,
			FaucetAmount: 5_000_000,
		})

		var resp walletCreateResponse
		jsonhttptest.Request(t, s.client, http.MethodPost, "/wallets", http.StatusCreated,
			jsonhttptest.WithJSONRequestBody(map[string]string{"password": "secret"}),
			jsonhttptest.WithUnmarshalJSONResponse(&resp),
		)
		if resp.Address.IsZero() {
			t.Fatal("zero wallet address")
		}
		if resp.Airdropped != 5_000_000 || resp.Balance != 5_000_000 {
			t.Fatalf("got airdropped %d balance %d, want 5000000", resp.Airdropped, resp.Balance)
		}
		if got := s.balance(t, resp.Address); got != 5_000_000 {
			t.Fatalf("got ledger balance %d, want 5000000", got)
		}
		if _, _, err := s.keystore.Key(resp.Address.String(), "secret"); err != nil {
			t.Fatal(err)
		}
	})

	t.Run("production", func(t *testing.T) {
		s := newTestServer(t, testServerOptions{FaucetAmount: 5_000_000})

		var resp walletCreateResponse
		jsonhttptest.Request(t, s.client, http.MethodPost, "/v1/wallets", http.StatusCreated,
			jsonhttptest.WithJSONRequestBody(map[string]string{"password": "secret"}),
			jsonhttptest.WithUnmarshalJSONResponse(&resp),
		)
		if resp.Airdropped != 0 {
			t.Fatalf("got airdropped %d, want 0", resp.Airdropped)
		}

		jsonhttptest.Request(t, s.client, http.MethodGet, "/wallets/"+resp.Address.String(), http.StatusOK,
			jsonhttptest.WithExpectedJSONResponse(walletResponse{
				Address: resp.Address,
				HasKey:  true,
			}),
		)
	})

	t.Run("no password", func(t *testing.T) {
		s := newTestServer(t, testServerOptions{})

		jsonhttptest.Request(t, s.client, http.MethodPost, "/wallets", http.StatusBadRequest,
			jsonhttptest.WithJSONRequestBody(map[string]string{}),
			jsonhttptest.WithExpectedJSONResponse(jsonhttp.StatusResponse{
				Message: "password required",
				Code:    http.StatusBadRequest,
			}),
		)
	})
}

func TestWalletGet(t *testing.T) {
	s := newTestServer(t, testServerOptions{})
	address := s.wallet(t, "secret", 1_000)

	jsonhttptest.Request(t, s.client, http.MethodGet, "/wallets/"+address.String(), http.StatusOK,
		jsonhttptest.WithExpectedJSONResponse(walletResponse{
			Address: address,
			Owner:   ledger.SystemOwner,
			Balance: 1_000,
			HasKey:  true,
		}),
	)

	jsonhttptest.Request(t, s.client, http.MethodGet, "/wallets/"+address.String()+"/balance", http.StatusOK,
		jsonhttptest.WithExpectedJSONResponse(map[string]interface{}{
			"address": address,
			"balance": 1_000,
		}),
	)

	jsonhttptest.Request(t, s.client, http.MethodGet, "/wallets/"+newIdentity(t).String(), http.StatusNotFound,
		jsonhttptest.WithExpectedJSONResponse(jsonhttp.StatusResponse{
			Message: "wallet not found",
			Code:    http.StatusNotFound,
		}),
	)

	jsonhttptest.Request(t, s.client, http.MethodGet, "/wallets/0x1234", http.StatusBadRequest,
		jsonhttptest.WithExpectedJSONResponse(jsonhttp.StatusResponse{
			Message: "invalid address",
			Code:    http.StatusBadRequest,
		}),
	)
}

func TestWalletAirdrop(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		s := newTestServer(t, testServerOptions{FaucetAmount: 100})

		jsonhttptest.Request(t, s.client, http.MethodPost, "/wallets/"+newIdentity(t).String()+"/airdrop", http.StatusForbidden,
			jsonhttptest.WithExpectedJSONResponse(jsonhttp.StatusResponse{
				Message: "faucet is disabled",
				Code:    http.StatusForbidden,
			}),
		)
	})

	t.Run("enabled", func(t *testing.T) {
		s := newTestServer(t, testServerOptions{
			DevMode:      true,
			FaucetAmount: 100,
		})
		address := newIdentity(t)

		jsonhttptest.Request(t, s.client, http.MethodPost, "/wallets/"+address.String()+"/airdrop", http.StatusOK,
			jsonhttptest.WithExpectedJSONResponse(map[string]interface{}{
				"address": address,
				"balance": 100,
			}),
		)
		jsonhttptest.Request(t, s.client, http.MethodPost, "/wallets/"+address.String()+"/airdrop", http.StatusOK,
			jsonhttptest.WithJSONRequestBody(map[string]uint64{"amount": 40}),
			jsonhttptest.WithExpectedJSONResponse(map[string]interface{}{
				"address": address,
				"balance": 140,
			}),
		)
		jsonhttptest.Request(t, s.client, http.MethodPost, "/wallets/"+address.String()+"/airdrop", http.StatusBadRequest,
			jsonhttptest.WithJSONRequestBody(map[string]uint64{"amount": 101}),
		)
	})
}

func TestWalletAirdropRateLimit(t *testing.T) {
	s := newTestServer(t, testServerOptions{
		DevMode:        true,
		FaucetAmount:   100,
		FaucetInterval: time.Hour,
	})
	address := newIdentity(t)

	jsonhttptest.Request(t, s.client, http.MethodPost, "/wallets/"+address.String()+"/airdrop", http.StatusOK)
	jsonhttptest.Request(t, s.client, http.MethodPost, "/wallets/"+address.String()+"/airdrop", http.StatusTooManyRequests,
		jsonhttptest.WithExpectedJSONResponse(jsonhttp.StatusResponse{
			Message: "faucet rate limit exceeded",
			Code:    http.StatusTooManyRequests,
		}),
	)
	if got := s.balance(t, address); got != 100 {
		t.Fatalf("got balance %d, want 100", got)
	}

	// limits are kept per wallet
	jsonhttptest.Request(t, s.client, http.MethodPost, "/wallets/"+newIdentity(t).String()+"/airdrop", http.StatusOK)
}

func TestWalletExportImport(t *testing.T) {
	s := newTestServer(t, testServerOptions{})
	address := s.wallet(t, "secret", 0)

	jsonhttptest.Request(t, s.client, http.MethodPost, "/wallets/"+address.String()+"/export", http.StatusUnauthorized,
		jsonhttptest.WithJSONRequestBody(map[string]string{"password": "wrong"}),
	)

	var key map[string]interface{}
	jsonhttptest.Request(t, s.client, http.MethodPost, "/wallets/"+address.String()+"/export", http.StatusOK,
		jsonhttptest.WithJSONRequestBody(map[string]string{"password": "secret"}),
		jsonhttptest.WithUnmarshalJSONResponse(&key),
	)

	other := newTestServer(t, testServerOptions{})
	jsonhttptest.Request(t, other.client, http.MethodPost, "/wallets/import", http.StatusCreated,
		jsonhttptest.WithJSONRequestBody(map[string]interface{}{
			"password": "secret",
			"key":      key,
		}),
		jsonhttptest.WithExpectedJSONResponse(map[string]interface{}{
			"address": address,
		}),
	)
	if ok, err := other.keystore.Exists(address.String()); err != nil || !ok {
		t.Fatalf("imported key exists: %v, %v", ok, err)
	}

	jsonhttptest.Request(t, other.client, http.MethodPost, "/wallets/import", http.StatusBadRequest,
		jsonhttptest.WithJSONRequestBody(map[string]interface{}{
			"password": "secret",
			"key":      map[string]string{},
		}),
	)
}
