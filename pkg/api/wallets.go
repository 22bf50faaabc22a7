package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gauss-project/powerpay/pkg/identity"
	"github.com/gauss-project/powerpay/pkg/jsonhttp"
	"github.com/gauss-project/powerpay/pkg/keystore"
	"github.com/gauss-project/powerpay/pkg/ledger"
	"github.com/gorilla/mux"
)

type walletCreateRequest struct {
	Password string `json:"password"`
}

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

type balanceResponse struct {
	Address identity.Identity `json:"address"`
	Balance uint64            `json:"balance"`
}

type airdropRequest struct {
	Amount uint64 `json:"amount"`
}

type passwordRequest struct {
	Password string `json:"password"`
}

type walletImportRequest struct {
	Password string          `json:"password"`
	Key      json.RawMessage `json:"key"`
}

type walletImportResponse struct {
	Address identity.Identity `json:"address"`
}

func (s *server) walletCreateHandler(w http.ResponseWriter, r *http.Request) {
	var req walletCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonhttp.HandleBodyReadError(err, w)
		return
	}
	if req.Password == "" {
		jsonhttp.BadRequest(w, "password required")
		return
	}

	pk, err := identity.GenerateKey()
	if err != nil {
		s.respondError(w, "create wallet", err)
		return
	}
	address := identity.FromPublicKey(&pk.PublicKey)
	if err := s.keystore.ImportPrivateKey(address.String(), req.Password, pk); err != nil {
		s.respondError(w, "store wallet key", err)
		return
	}

	resp := walletCreateResponse{Address: address}
	if s.DevMode && s.FaucetAmount > 0 {
		if err := s.airdrop(r, address, s.FaucetAmount); err != nil {
			s.logger.Warningf("api: wallet %s created without airdrop: %v", address, err)
		} else {
			resp.Airdropped = s.FaucetAmount
			resp.Balance = s.FaucetAmount
		}
	}

	s.logger.Debugf("api: wallet %s created", address)
	jsonhttp.Created(w, resp)
}

func (s *server) walletImportHandler(w http.ResponseWriter, r *http.Request) {
	var req walletImportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonhttp.HandleBodyReadError(err, w)
		return
	}
	var key struct {
		Address identity.Identity `json:"address"`
	}
	if err := json.Unmarshal(req.Key, &key); err != nil || key.Address.IsZero() {
		jsonhttp.BadRequest(w, "invalid key")
		return
	}

	if err := s.keystore.ImportKey(key.Address.String(), req.Password, req.Key); err != nil {
		if errors.Is(err, keystore.ErrInvalidPassword) {
			jsonhttp.Unauthorized(w, err)
			return
		}
		s.logger.Debugf("api: import wallet %s: %v", key.Address, err)
		jsonhttp.BadRequest(w, "invalid key")
		return
	}

	jsonhttp.Created(w, walletImportResponse{Address: key.Address})
}

func (s *server) walletGetHandler(w http.ResponseWriter, r *http.Request) {
	resp, ok := s.wallet(w, r)
	if !ok {
		return
	}
	jsonhttp.OK(w, resp)
}

func (s *server) walletBalanceHandler(w http.ResponseWriter, r *http.Request) {
	resp, ok := s.wallet(w, r)
	if !ok {
		return
	}
	jsonhttp.OK(w, balanceResponse{
		Address: resp.Address,
		Balance: resp.Balance,
	})
}

// wallet looks up the account and key of the address in the request path. A
// wallet exists if either of them does.
func (s *server) wallet(w http.ResponseWriter, r *http.Request) (walletResponse, bool) {
	address, err := identity.Parse(mux.Vars(r)["address"])
	if err != nil {
		jsonhttp.BadRequest(w, errInvalidAddress)
		return walletResponse{}, false
	}

	hasKey, err := s.keystore.Exists(address.String())
	if err != nil {
		s.respondError(w, "wallet key", err)
		return walletResponse{}, false
	}

	resp := walletResponse{Address: address, HasKey: hasKey}
	acc, err := s.ledger.Account(r.Context(), address)
	switch {
	case err == nil:
		resp.Owner = acc.Owner
		resp.Balance = acc.Balance
	case errors.Is(err, ledger.ErrAccountNotFound):
		if !hasKey {
			jsonhttp.NotFound(w, "wallet not found")
			return walletResponse{}, false
		}
	default:
		s.respondError(w, "wallet account", err)
		return walletResponse{}, false
	}
	return resp, true
}

func (s *server) walletAirdropHandler(w http.ResponseWriter, r *http.Request) {
	address, err := identity.Parse(mux.Vars(r)["address"])
	if err != nil {
		jsonhttp.BadRequest(w, errInvalidAddress)
		return
	}
	req := airdropRequest{Amount: s.FaucetAmount}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		jsonhttp.HandleBodyReadError(err, w)
		return
	}
	if req.Amount == 0 || req.Amount > s.FaucetAmount {
		jsonhttp.BadRequest(w, "invalid airdrop amount")
		return
	}

	if err := s.airdrop(r, address, req.Amount); err != nil {
		switch {
		case errors.Is(err, errFaucetDisabled):
			jsonhttp.Forbidden(w, err)
		case errors.Is(err, errFaucetExhausted):
			jsonhttp.TooManyRequests(w, err)
		case errors.Is(err, ledger.ErrBalanceOverflow):
			jsonhttp.BadRequest(w, err)
		default:
			s.respondError(w, "airdrop", err)
		}
		return
	}

	acc, err := s.ledger.Account(r.Context(), address)
	if err != nil {
		s.respondError(w, "wallet account", err)
		return
	}
	jsonhttp.OK(w, balanceResponse{
		Address: address,
		Balance: acc.Balance,
	})
}

func (s *server) airdrop(r *http.Request, address identity.Identity, amount uint64) error {
	if !s.DevMode {
		return errFaucetDisabled
	}
	if s.faucet != nil && !s.faucet.Allow(address.String(), 1) {
		return errFaucetExhausted
	}
	if err := s.ledger.Mint(r.Context(), address, amount); err != nil {
		return err
	}
	s.metrics.Airdrops.Inc()
	return nil
}

func (s *server) walletExportHandler(w http.ResponseWriter, r *http.Request) {
	address, err := identity.Parse(mux.Vars(r)["address"])
	if err != nil {
		jsonhttp.BadRequest(w, errInvalidAddress)
		return
	}
	var req passwordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonhttp.HandleBodyReadError(err, w)
		return
	}

	key, err := s.keystore.ExportKey(address.String(), req.Password)
	if err != nil {
		s.respondError(w, "export wallet key", err)
		return
	}
	jsonhttp.OK(w, json.RawMessage(key))
}
