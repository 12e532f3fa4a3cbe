package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"flock/internal/absence/models"
	id "flock/pkg/domain"
	dErrors "flock/pkg/domain-errors"
	"flock/pkg/platform/httputil"
	"flock/pkg/requestcontext"
)

// Service defines the absence evaluation exposed over HTTP.
type Service interface {
	EvaluateAbsences(ctx context.Context, serviceID id.ServiceID, date id.Date) (*models.Report, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts manual evaluation for authenticated staff.
func (h *Handler) Register(r chi.Router) {
	r.Post("/absences/evaluate", h.HandleEvaluate)
}

// RegisterAdmin mounts evaluation for machine callers behind the admin
// token, such as an external scheduler.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Post("/admin/absences/evaluate", h.HandleEvaluate)
}

// EvaluateRequest is the body of POST /absences/evaluate.
type EvaluateRequest struct {
	ServiceID string `json:"service_id"`
	Date      string `json:"date"`

	serviceID id.ServiceID
	date      id.Date
}

func (r *EvaluateRequest) Validate() error {
	serviceID, err := id.ParseServiceID(r.ServiceID)
	if err != nil {
		return err
	}
	date, err := id.ParseDate(r.Date)
	if err != nil {
		return dErrors.New(dErrors.CodeValidation, "date must be YYYY-MM-DD")
	}
	r.serviceID, r.date = serviceID, date
	return nil
}

// HandleEvaluate handles POST /absences/evaluate. Re-evaluating an
// occurrence returns the stored report with 200; a fresh run returns 201.
func (h *Handler) HandleEvaluate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	caller := requestcontext.Caller(ctx)
	if !caller.Can(id.CapRunAbsenceChecks) {
		h.logger.WarnContext(ctx, "absence evaluation forbidden", "request_id", requestID, "member_id", caller.ID)
		httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "not authorized to run absence checks"))
		return
	}

	req, ok := httputil.DecodeAndPrepare[EvaluateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	report, err := h.service.EvaluateAbsences(ctx, req.serviceID, req.date)
	if err != nil {
		if httputil.StatusFor(dErrors.CodeOf(err)) >= http.StatusInternalServerError {
			h.logger.ErrorContext(ctx, "absence evaluation failed", "request_id", requestID, "error", err)
		} else {
			h.logger.WarnContext(ctx, "absence evaluation rejected", "request_id", requestID, "error", err)
		}
		httputil.WriteError(w, err)
		return
	}

	status := http.StatusCreated
	if report.AlreadyEvaluated {
		status = http.StatusOK
	}
	httputil.WriteJSON(w, status, report)
}
