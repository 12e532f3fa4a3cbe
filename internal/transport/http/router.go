// Package httptransport assembles the HTTP surface: the shared middleware
// chain, the public and authenticated route groups, health and metrics.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	absenceHandler "flock/internal/absence/handler"
	attendanceHandler "flock/internal/attendance/handler"
	followupHandler "flock/internal/followup/handler"
	"flock/internal/platform/metrics"
	visitorHandler "flock/internal/visitor/handler"
	dErrors "flock/pkg/domain-errors"
	"flock/pkg/platform/httputil"
	"flock/pkg/platform/middleware/admin"
	"flock/pkg/platform/middleware/auth"
	"flock/pkg/platform/middleware/metadata"
	"flock/pkg/platform/middleware/request"
	"flock/pkg/platform/middleware/requesttime"
)

// Handlers are the feature handlers mounted by the router.
type Handlers struct {
	Attendance *attendanceHandler.Handler
	Visitors   *visitorHandler.Handler
	FollowUps  *followupHandler.Handler
	Absences   *absenceHandler.Handler
}

// Config carries the transport dependencies.
type Config struct {
	Logger         *slog.Logger
	Metrics        *metrics.Metrics
	Validator      auth.JWTValidator
	AdminToken     string
	RequestTimeout time.Duration
	// Ready reports whether backing stores are reachable. Nil means always ready.
	Ready func(ctx context.Context) error
}

// NewRouter wires every endpoint behind the shared middleware chain.
func NewRouter(cfg Config, h Handlers) http.Handler {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}

	r := chi.NewRouter()
	r.Use(request.Recovery(cfg.Logger))
	r.Use(request.RequestID)
	r.Use(metadata.ClientMetadata)
	r.Use(requesttime.Middleware)
	r.Use(request.Logger(cfg.Logger))
	r.Use(request.Timeout(cfg.RequestTimeout))
	r.Use(request.ContentTypeJSON)
	r.Use(metrics.LatencyMiddleware(cfg.Metrics))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if cfg.Ready != nil {
			if err := cfg.Ready(r.Context()); err != nil {
				cfg.Logger.WarnContext(r.Context(), "readiness check failed", "error", err)
				httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "not ready"))
				return
			}
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	if h.Visitors != nil {
		h.Visitors.RegisterPublic(r)
	}

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(cfg.Validator, cfg.Logger))
		if h.Attendance != nil {
			h.Attendance.Register(r)
		}
		if h.Visitors != nil {
			h.Visitors.Register(r)
		}
		if h.FollowUps != nil {
			h.FollowUps.Register(r)
		}
		if h.Absences != nil {
			h.Absences.Register(r)
		}
	})

	if cfg.AdminToken != "" && h.Absences != nil {
		r.Group(func(r chi.Router) {
			r.Use(admin.RequireAdminToken(cfg.AdminToken, cfg.Logger))
			h.Absences.RegisterAdmin(r)
		})
	}
	return r
}
