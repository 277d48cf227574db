package middleware

import (
	"net/http"

	"ece-marketplace/pkg/logger"
)

const (
	allowMethods = "GET, POST, PUT, DELETE, OPTIONS, PATCH"
	allowHeaders = "Accept, Content-Type, Content-Length, Accept-Encoding, Authorization, X-Requested-With"
)

// CORS answers preflight requests for the plain net/http routers.
func CORS(log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", allowMethods)
			w.Header().Set("Access-Control-Allow-Headers", allowHeaders)
			w.Header().Set("Access-Control-Max-Age", "86400")

			if r.Method == http.MethodOptions {
				log.Debug("Handling CORS preflight", "path", r.URL.Path, "origin", r.Header.Get("Origin"))
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
