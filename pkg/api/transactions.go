package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gauss-project/powerpay/pkg/jsonhttp"
	"github.com/gauss-project/powerpay/pkg/paychan"
	"github.com/gauss-project/powerpay/pkg/processor"
)

type thresholdResponse struct {
	Amount      uint64  `json:"amount"`
	Threshold   uint16  `json:"threshold"`
	Probability float64 `json:"probability"`
}

// transactionHandler processes a transaction signed by the client.
func (s *server) transactionHandler(w http.ResponseWriter, r *http.Request) {
	var tx processor.Transaction
	if err := json.NewDecoder(r.Body).Decode(&tx); err != nil {
		jsonhttp.HandleBodyReadError(err, w)
		return
	}

	res, err := s.processor.Process(r.Context(), &tx)
	if err != nil {
		s.respondError(w, "process transaction", err)
		return
	}
	jsonhttp.OK(w, res)
}

func (s *server) thresholdHandler(w http.ResponseWriter, r *http.Request) {
	var amount uint64
	if v := r.URL.Query().Get("amount"); v != "" {
		a, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			jsonhttp.BadRequest(w, "invalid amount")
			return
		}
		amount = a
	}

	threshold := paychan.Threshold(amount)
	jsonhttp.OK(w, thresholdResponse{
		Amount:      amount,
		Threshold:   threshold,
		Probability: float64(threshold) / paychan.Basis,
	})
}
