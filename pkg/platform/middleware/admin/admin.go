package admin

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	id "flock/pkg/domain"
	"flock/pkg/requestcontext"
)

// SchedulerCaller is the identity given to requests authenticated with the
// admin token, typically an external cron triggering absence evaluation.
var SchedulerCaller = id.Caller{Role: id.RoleSuperAdmin}

// RequireAdminToken authenticates machine callers by a shared X-Admin-Token.
func RequireAdminToken(expectedToken string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.Header.Get("X-Admin-Token")
			// Constant-time comparison.
			if expectedToken == "" || subtle.ConstantTimeCompare([]byte(token), []byte(expectedToken)) != 1 {
				ctx := r.Context()
				logger.WarnContext(ctx, "admin token mismatch",
					"request_id", requestcontext.RequestID(ctx),
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"admin token required"}`))
				return
			}

			ctx := requestcontext.WithCaller(r.Context(), SchedulerCaller)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
