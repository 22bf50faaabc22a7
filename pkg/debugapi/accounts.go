package debugapi

import (
	"errors"
	"net/http"

	"github.com/gauss-project/powerpay/pkg/identity"
	"github.com/gauss-project/powerpay/pkg/jsonhttp"
	"github.com/gauss-project/powerpay/pkg/ledger"
	"github.com/gauss-project/powerpay/pkg/paychan"
	"github.com/gorilla/mux"
)

var (
	errCantAccounts   = errors.New("can not list accounts")
	errCantChannels   = errors.New("can not list channels")
	errInvalidAddress = errors.New("invalid address")
	errNoAccount      = errors.New("account not found")
)

type accountResponse struct {
	Address  identity.Identity `json:"address"`
	Owner    identity.Identity `json:"owner"`
	Balance  uint64            `json:"balance"`
	DataSize int               `json:"dataSize"`
}

type accountsResponse struct {
	Accounts []accountResponse `json:"accounts"`
}

type channelResponse struct {
	Address identity.Identity `json:"address"`
	Escrow  uint64            `json:"escrow"`
	Record  paychan.Record    `json:"record"`
}

type channelsResponse struct {
	Channels []channelResponse `json:"channels"`
}

type supplyResponse struct {
	Accounts int    `json:"accounts"`
	Total    uint64 `json:"total"`
	Locked   uint64 `json:"locked"`
}

func newAccountResponse(address identity.Identity, a ledger.Account) accountResponse {
	return accountResponse{
		Address:  address,
		Owner:    a.Owner,
		Balance:  a.Balance,
		DataSize: len(a.Data),
	}
}

func (s *Service) accountsHandler(w http.ResponseWriter, r *http.Request) {
	resp := accountsResponse{Accounts: make([]accountResponse, 0)}
	err := s.ledger.Iterate(func(address identity.Identity, a ledger.Account) (bool, error) {
		resp.Accounts = append(resp.Accounts, newAccountResponse(address, a))
		return false, nil
	})
	if err != nil {
		s.logger.Debugf("debug api: accounts: %v", err)
		s.logger.Error("debug api: can not list accounts")
		jsonhttp.InternalServerError(w, errCantAccounts)
		return
	}
	jsonhttp.OK(w, resp)
}

func (s *Service) accountHandler(w http.ResponseWriter, r *http.Request) {
	address, err := identity.Parse(mux.Vars(r)["address"])
	if err != nil {
		jsonhttp.BadRequest(w, errInvalidAddress)
		return
	}

	a, err := s.ledger.Account(r.Context(), address)
	if err != nil {
		if errors.Is(err, ledger.ErrAccountNotFound) {
			jsonhttp.NotFound(w, errNoAccount)
			return
		}
		s.logger.Debugf("debug api: account %s: %v", address, err)
		s.logger.Errorf("debug api: account %s", address)
		jsonhttp.InternalServerError(w, err)
		return
	}
	jsonhttp.OK(w, newAccountResponse(address, a))
}

// channelsHandler lists accounts owned by the payment channel program that
// hold a decodable record.
func (s *Service) channelsHandler(w http.ResponseWriter, r *http.Request) {
	resp := channelsResponse{Channels: make([]channelResponse, 0)}
	err := s.ledger.Iterate(func(address identity.Identity, a ledger.Account) (bool, error) {
		if a.Owner != paychan.ProgramID {
			return false, nil
		}
		var rec paychan.Record
		if err := rec.UnmarshalBinary(a.Data); err != nil {
			s.logger.Warningf("debug api: channel %s: %v", address, err)
			return false, nil
		}
		resp.Channels = append(resp.Channels, channelResponse{
			Address: address,
			Escrow:  a.Balance,
			Record:  rec,
		})
		return false, nil
	})
	if err != nil {
		s.logger.Debugf("debug api: channels: %v", err)
		s.logger.Error("debug api: can not list channels")
		jsonhttp.InternalServerError(w, errCantChannels)
		return
	}
	jsonhttp.OK(w, resp)
}

// supplyHandler sums all balances. Locked is the part held in channel
// escrows.
func (s *Service) supplyHandler(w http.ResponseWriter, r *http.Request) {
	var resp supplyResponse
	err := s.ledger.Iterate(func(_ identity.Identity, a ledger.Account) (bool, error) {
		resp.Accounts++
		resp.Total += a.Balance
		if a.Owner == paychan.ProgramID {
			resp.Locked += a.Balance
		}
		return false, nil
	})
	if err != nil {
		s.logger.Debugf("debug api: supply: %v", err)
		s.logger.Error("debug api: can not list accounts")
		jsonhttp.InternalServerError(w, errCantAccounts)
		return
	}
	jsonhttp.OK(w, resp)
}

func (s *Service) transactionStatsHandler(w http.ResponseWriter, r *http.Request) {
	jsonhttp.OK(w, s.processor.Stats())
}
