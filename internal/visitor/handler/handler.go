package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"flock/internal/visitor/models"
	id "flock/pkg/domain"
	dErrors "flock/pkg/domain-errors"
	"flock/pkg/platform/httputil"
	"flock/pkg/platform/middleware/device"
	"flock/pkg/requestcontext"
)

// Service defines the visitor pipeline operations exposed over HTTP.
type Service interface {
	QuickCheckIn(ctx context.Context, req models.QuickCheckInRequest) (*models.CheckInOutcome, error)
	CompleteRegistration(ctx context.Context, token, password string, info models.AdditionalInfo) (*models.Registration, error)
	CheckExistence(ctx context.Context, phone, email string) (*models.Existence, error)
	DueForFollowUp(ctx context.Context, caller id.Caller) ([]*models.Record, error)
}

// Handler serves the visitor endpoints. Check-in, existence and
// registration are public; follow-up candidates need an authenticated caller.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterPublic mounts the unauthenticated endpoints.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Post("/visitors/check-in", h.HandleQuickCheckIn)
	r.Get("/visitors/existence", h.HandleCheckExistence)
	r.Post("/visitors/complete-registration", h.HandleCompleteRegistration)
}

// Register mounts the endpoints that need the auth middleware.
func (h *Handler) Register(r chi.Router) {
	r.Get("/visitors/follow-up", h.HandleDueForFollowUp)
}

// HandleQuickCheckIn handles POST /visitors/check-in.
func (h *Handler) HandleQuickCheckIn(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[QuickCheckInRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	outcome, err := h.service.QuickCheckIn(ctx, models.QuickCheckInRequest{
		Identity:  req.identity(),
		ServiceID: req.serviceID,
		Location:  req.Location,
		Source:    models.Source(req.Source),
		Device:    device.FromContext(ctx),
	})
	if err != nil {
		h.fail(ctx, w, "quick check-in rejected", err)
		return
	}
	status := http.StatusOK
	if outcome.IsFirstTimeVisitor {
		status = http.StatusCreated
	}
	httputil.WriteJSON(w, status, outcome)
}

// HandleCheckExistence handles GET /visitors/existence?phone=&email=.
func (h *Handler) HandleCheckExistence(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()
	existence, err := h.service.CheckExistence(ctx, q.Get("phone"), q.Get("email"))
	if err != nil {
		h.fail(ctx, w, "existence check failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, existence)
}

// HandleCompleteRegistration handles POST /visitors/complete-registration.
func (h *Handler) HandleCompleteRegistration(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[CompleteRegistrationRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	registration, err := h.service.CompleteRegistration(ctx, req.Token, req.Password, req.info())
	if err != nil {
		h.fail(ctx, w, "registration rejected", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, registration)
}

// HandleDueForFollowUp handles GET /visitors/follow-up.
func (h *Handler) HandleDueForFollowUp(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	visitors, err := h.service.DueForFollowUp(ctx, requestcontext.Caller(ctx))
	if err != nil {
		h.fail(ctx, w, "visitor follow-up listing failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"visitors": visitors})
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	requestID := requestcontext.RequestID(ctx)
	if httputil.StatusFor(dErrors.CodeOf(err)) >= http.StatusInternalServerError {
		h.logger.ErrorContext(ctx, msg, "request_id", requestID, "error", err)
	} else {
		h.logger.WarnContext(ctx, msg, "request_id", requestID, "error", err)
	}
	httputil.WriteError(w, err)
}
