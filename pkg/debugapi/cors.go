package debugapi

import (
	"net/http"
	"strings"
)

// corsHandler sets CORS headers for origins in the allowed list. The "*"
// entry allows any origin.
func (s *Service) corsHandler(h http.Handler) http.Handler {
	allowedOrigins := make(map[string]struct{}, len(s.corsAllowedOrigins))
	for _, o := range s.corsAllowedOrigins {
		allowedOrigins[strings.ToLower(o)] = struct{}{}
	}
	_, wildcard := allowedOrigins["*"]

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if o := r.Header.Get("Origin"); o != "" {
			if _, ok := allowedOrigins[strings.ToLower(o)]; ok || wildcard {
				w.Header().Set("Access-Control-Allow-Credentials", "true")
				w.Header().Set("Access-Control-Allow-Origin", o)
				w.Header().Set("Access-Control-Allow-Headers", "Origin, Accept, Authorization, Content-Type, X-Requested-With, Access-Control-Request-Headers, Access-Control-Request-Method")
				w.Header().Set("Access-Control-Allow-Methods", "GET, HEAD, OPTIONS")
				w.Header().Set("Access-Control-Max-Age", "3600")
			}
		}
		h.ServeHTTP(w, r)
	})
}
