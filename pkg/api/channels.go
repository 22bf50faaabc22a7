package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"math/rand"
	"net/http"

	"github.com/gauss-project/powerpay/pkg/identity"
	"github.com/gauss-project/powerpay/pkg/jsonhttp"
	"github.com/gauss-project/powerpay/pkg/keystore"
	"github.com/gauss-project/powerpay/pkg/paychan"
	"github.com/gauss-project/powerpay/pkg/processor"
	"github.com/gorilla/mux"
)

type channelCreateRequest struct {
	Payer           identity.Identity  `json:"payer"`
	Payee           identity.Identity  `json:"payee"`
	Channel         *identity.Identity `json:"channel,omitempty"`
	Password        string             `json:"password"`
	Amount          uint64             `json:"amount"`
	ExpiryTimestamp uint64             `json:"expiryTimestamp"`
}

type channelResponse struct {
	Address              identity.Identity `json:"address"`
	Record               paychan.Record    `json:"record"`
	Escrow               uint64            `json:"escrow"`
	Pending              uint64            `json:"pending"`
	RecommendedThreshold uint16            `json:"recommendedThreshold"`
}

type intentRequest struct {
	Payer    identity.Identity `json:"payer"`
	Password string            `json:"password"`
	Amount   uint64            `json:"amount"`
}

type processRequest struct {
	Payer    identity.Identity  `json:"payer"`
	Payee    *identity.Identity `json:"payee,omitempty"`
	Password string             `json:"password"`
	Seed     *uint64            `json:"seed,omitempty"`
}

type processResponse struct {
	Seed    uint64          `json:"seed"`
	Outcome paychan.Outcome `json:"outcome"`
}

type closeRequest struct {
	Payer    identity.Identity  `json:"payer"`
	Payee    *identity.Identity `json:"payee,omitempty"`
	Password string             `json:"password"`
}

type simulateRequest struct {
	Iterations int     `json:"iterations"`
	Threshold  *uint16 `json:"threshold,omitempty"`
	Amount     *uint64 `json:"amount,omitempty"`
}

func (s *server) channelCreateHandler(w http.ResponseWriter, r *http.Request) {
	var req channelCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonhttp.HandleBodyReadError(err, w)
		return
	}
	if req.Payer.IsZero() || req.Payee.IsZero() {
		jsonhttp.BadRequest(w, errInvalidAddress)
		return
	}

	var address identity.Identity
	if req.Channel != nil {
		address = *req.Channel
	} else {
		a, err := identity.Random()
		if err != nil {
			s.respondError(w, "channel address", err)
			return
		}
		address = a
	}

	accounts := paychan.Accounts{
		Payer:   req.Payer,
		Payee:   req.Payee,
		Channel: address,
	}
	if _, err := s.submit(r.Context(), paychan.InitChannel(req.Amount, req.ExpiryTimestamp), accounts, req.Password); err != nil {
		s.respondError(w, "init channel", err)
		return
	}

	resp, err := s.channel(r.Context(), address)
	if err != nil {
		s.respondError(w, "channel", err)
		return
	}
	jsonhttp.Created(w, resp)
}

func (s *server) channelGetHandler(w http.ResponseWriter, r *http.Request) {
	address, err := identity.Parse(mux.Vars(r)["address"])
	if err != nil {
		jsonhttp.BadRequest(w, errInvalidAddress)
		return
	}

	resp, err := s.channel(r.Context(), address)
	if err != nil {
		s.respondError(w, "channel", err)
		return
	}
	jsonhttp.OK(w, resp)
}

func (s *server) channelIntentHandler(w http.ResponseWriter, r *http.Request) {
	address, err := identity.Parse(mux.Vars(r)["address"])
	if err != nil {
		jsonhttp.BadRequest(w, errInvalidAddress)
		return
	}
	var req intentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonhttp.HandleBodyReadError(err, w)
		return
	}

	rec, _, err := s.channels.Channel(r.Context(), address)
	if err != nil {
		s.respondError(w, "channel", err)
		return
	}
	accounts := paychan.Accounts{
		Payer:   req.Payer,
		Payee:   rec.Payee,
		Channel: address,
	}
	if _, err := s.submit(r.Context(), paychan.AddMicroPaymentIntent(req.Amount), accounts, req.Password); err != nil {
		s.respondError(w, "add intent", err)
		return
	}

	resp, err := s.channel(r.Context(), address)
	if err != nil {
		s.respondError(w, "channel", err)
		return
	}
	jsonhttp.OK(w, resp)
}

func (s *server) channelProcessHandler(w http.ResponseWriter, r *http.Request) {
	address, err := identity.Parse(mux.Vars(r)["address"])
	if err != nil {
		jsonhttp.BadRequest(w, errInvalidAddress)
		return
	}
	var req processRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonhttp.HandleBodyReadError(err, w)
		return
	}

	payee, err := s.payee(r.Context(), address, req.Payee)
	if err != nil {
		s.respondError(w, "channel", err)
		return
	}

	var seed uint64
	if req.Seed != nil {
		seed = *req.Seed
	} else {
		seed, err = s.seed()
		if err != nil {
			s.respondError(w, "random seed", err)
			return
		}
	}

	accounts := paychan.Accounts{
		Payer:   req.Payer,
		Payee:   payee,
		Channel: address,
	}
	res, err := s.submit(r.Context(), paychan.ProcessProbabilisticPayment(seed), accounts, req.Password)
	if err != nil {
		s.respondError(w, "process payment", err)
		return
	}

	resp := processResponse{Seed: seed}
	if res.Outcome != nil {
		resp.Outcome = *res.Outcome
	}
	jsonhttp.OK(w, resp)
}

func (s *server) channelCloseHandler(w http.ResponseWriter, r *http.Request) {
	address, err := identity.Parse(mux.Vars(r)["address"])
	if err != nil {
		jsonhttp.BadRequest(w, errInvalidAddress)
		return
	}
	var req closeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonhttp.HandleBodyReadError(err, w)
		return
	}

	payee, err := s.payee(r.Context(), address, req.Payee)
	if err != nil {
		s.respondError(w, "channel", err)
		return
	}

	accounts := paychan.Accounts{
		Payer:   req.Payer,
		Payee:   payee,
		Channel: address,
	}
	res, err := s.submit(r.Context(), paychan.CloseChannel(), accounts, req.Password)
	if err != nil {
		s.respondError(w, "close channel", err)
		return
	}

	var resp paychan.Settlement
	if res.Settlement != nil {
		resp = *res.Settlement
	}
	jsonhttp.OK(w, resp)
}

func (s *server) channelSimulateHandler(w http.ResponseWriter, r *http.Request) {
	address, err := identity.Parse(mux.Vars(r)["address"])
	if err != nil {
		jsonhttp.BadRequest(w, errInvalidAddress)
		return
	}
	var req simulateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		jsonhttp.HandleBodyReadError(err, w)
		return
	}

	rec, _, err := s.channels.Channel(r.Context(), address)
	if err != nil {
		s.respondError(w, "channel", err)
		return
	}

	threshold := rec.ProbabilityThreshold
	if req.Threshold != nil {
		threshold = *req.Threshold
	}
	amount := rec.AccumulatedIntent
	if req.Amount != nil {
		amount = *req.Amount
	}

	seed, err := s.seed()
	if err != nil {
		s.respondError(w, "random seed", err)
		return
	}
	sim, err := paychan.Simulate(threshold, req.Iterations, amount, rand.NewSource(int64(seed)))
	if err != nil {
		jsonhttp.BadRequest(w, err)
		return
	}
	jsonhttp.OK(w, sim)
}

// payee returns the requested payee, or the one stored in the channel.
func (s *server) payee(ctx context.Context, address identity.Identity, requested *identity.Identity) (identity.Identity, error) {
	if requested != nil {
		return *requested, nil
	}
	rec, _, err := s.channels.Channel(ctx, address)
	if err != nil {
		return identity.Zero, err
	}
	return rec.Payee, nil
}

func (s *server) channel(ctx context.Context, address identity.Identity) (channelResponse, error) {
	rec, escrow, err := s.channels.Channel(ctx, address)
	if err != nil {
		return channelResponse{}, err
	}
	return channelResponse{
		Address:              address,
		Record:               rec,
		Escrow:               escrow,
		Pending:              rec.Pending(),
		RecommendedThreshold: paychan.Threshold(rec.AccumulatedIntent),
	}, nil
}

// submit signs the instruction with the payer key from the keystore and
// passes the transaction to the processor.
func (s *server) submit(ctx context.Context, in paychan.Instruction, a paychan.Accounts, password string) (processor.Result, error) {
	name := a.Payer.String()
	exists, err := s.keystore.Exists(name)
	if err != nil {
		return processor.Result{}, err
	}
	if !exists {
		return processor.Result{}, keystore.ErrKeyNotFound
	}
	key, _, err := s.keystore.Key(name, password)
	if err != nil {
		return processor.Result{}, err
	}

	s.submitMu.Lock()
	defer s.submitMu.Unlock()

	nonce, err := s.ledger.Nonce(ctx, a.Payer)
	if err != nil {
		return processor.Result{}, err
	}
	tx, err := processor.NewTransaction(in, a, nonce)
	if err != nil {
		return processor.Result{}, err
	}
	if err := tx.Sign(identity.NewSigner(key)); err != nil {
		return processor.Result{}, err
	}
	return s.processor.Process(ctx, tx)
}
