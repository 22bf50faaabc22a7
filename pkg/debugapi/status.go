package debugapi

import (
	"net/http"

	"github.com/gauss-project/powerpay"
	"github.com/gauss-project/powerpay/pkg/jsonhttp"
)

type statusResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

func statusHandler(w http.ResponseWriter, r *http.Request) {
	jsonhttp.OK(w, statusResponse{
		Status:  "ok",
		Version: powerpay.Version,
	})
}
