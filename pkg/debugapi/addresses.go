package debugapi

import (
	"net/http"

	"github.com/gauss-project/powerpay/pkg/identity"
	"github.com/gauss-project/powerpay/pkg/jsonhttp"
	"github.com/gauss-project/powerpay/pkg/paychan"
)

type addressesResponse struct {
	Operator identity.Identity `json:"operator"`
	Program  identity.Identity `json:"program"`
}

func (s *Service) addressesHandler(w http.ResponseWriter, r *http.Request) {
	jsonhttp.OK(w, addressesResponse{
		Operator: s.operator,
		Program:  paychan.ProgramID,
	})
}
