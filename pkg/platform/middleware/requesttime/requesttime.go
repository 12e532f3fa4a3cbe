// Package requesttime pins one "now" per request, so lateness, check-in
// times and due dates computed while serving it agree.
package requesttime

import (
	"net/http"
	"time"

	"flock/pkg/requestcontext"
)

// Middleware stores the arrival time; read it with requestcontext.Now.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(requestcontext.WithTime(r.Context(), time.Now().UTC())))
	})
}
