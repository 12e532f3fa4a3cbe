package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"flock/internal/attendance/models"
	id "flock/pkg/domain"
	dErrors "flock/pkg/domain-errors"
	"flock/pkg/platform/httputil"
	"flock/pkg/platform/middleware/device"
	"flock/pkg/requestcontext"
)

// Service defines the attendance operations exposed over HTTP.
type Service interface {
	SubmitCheckIn(ctx context.Context, req models.CheckInRequest) (*models.CheckInResult, error)
	QRCheckIn(ctx context.Context, req models.QRCheckInRequest) (*models.CheckInResult, error)
	BulkCheckIn(ctx context.Context, caller id.Caller, req models.BulkCheckInRequest) (*models.BulkResult, error)
	CheckOut(ctx context.Context, eventID id.CheckInID, caller id.Caller) (*models.CheckInEvent, error)
	Amend(ctx context.Context, eventID id.CheckInID, caller id.Caller, a models.Amendment) (*models.CheckInEvent, error)
	SoftDelete(ctx context.Context, eventID id.CheckInID, caller id.Caller, reason string) error
	Get(ctx context.Context, eventID id.CheckInID, caller id.Caller) (*models.CheckInEvent, error)
	History(ctx context.Context, memberID id.MemberID, caller id.Caller, limit int) ([]*models.CheckInEvent, error)
	Summary(ctx context.Context, serviceID id.ServiceID, date id.Date, caller id.Caller) (*models.Summary, error)
	List(ctx context.Context, caller id.Caller, filter models.EventFilter) (*models.EventPage, error)
	ServiceAttendance(ctx context.Context, serviceID id.ServiceID, date id.Date, caller id.Caller, page, limit int) (*models.OccurrenceAttendance, error)
}

// Handler serves the authenticated attendance endpoints.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the attendance endpoints. The router must already run
// the auth middleware.
func (h *Handler) Register(r chi.Router) {
	r.Get("/attendance", h.HandleList)
	r.Post("/attendance/check-in", h.HandleCheckIn)
	r.Post("/attendance/qr-check-in", h.HandleQRCheckIn)
	r.Post("/attendance/bulk", h.HandleBulkCheckIn)
	r.Get("/attendance/{eventID}", h.HandleGet)
	r.Patch("/attendance/{eventID}", h.HandleAmend)
	r.Delete("/attendance/{eventID}", h.HandleDelete)
	r.Post("/attendance/{eventID}/check-out", h.HandleCheckOut)
	r.Get("/members/{memberID}/attendance", h.HandleHistory)
	r.Get("/services/{serviceID}/attendance", h.HandleServiceAttendance)
	r.Get("/services/{serviceID}/attendance/summary", h.HandleSummary)
}

// HandleCheckIn handles POST /attendance/check-in.
func (h *Handler) HandleCheckIn(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[CheckInRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	caller := requestcontext.Caller(ctx)
	memberID := req.memberID
	if memberID.IsNil() {
		memberID = caller.ID
	}

	result, err := h.service.SubmitCheckIn(ctx, models.CheckInRequest{
		MemberID:  memberID,
		ServiceID: req.serviceID,
		Caller:    caller,
		Method:    models.Method(req.Method),
		Location:  req.Location,
		Device:    device.FromContext(ctx),
		Notes:     req.Notes,
	})
	if err != nil {
		h.fail(ctx, w, "check-in rejected", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, result)
}

// HandleQRCheckIn handles POST /attendance/qr-check-in.
func (h *Handler) HandleQRCheckIn(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[QRCheckInRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	result, err := h.service.QRCheckIn(ctx, models.QRCheckInRequest{
		Payload:   req.QRData,
		ServiceID: req.serviceID,
		Caller:    requestcontext.Caller(ctx),
		Location:  req.Location,
		Device:    device.FromContext(ctx),
	})
	if err != nil {
		h.fail(ctx, w, "qr check-in rejected", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, result)
}

// HandleBulkCheckIn handles POST /attendance/bulk.
func (h *Handler) HandleBulkCheckIn(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[BulkCheckInRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	bulk, err := req.ToModel()
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	result, err := h.service.BulkCheckIn(ctx, requestcontext.Caller(ctx), bulk)
	if err != nil {
		h.fail(ctx, w, "bulk check-in rejected", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

// HandleGet handles GET /attendance/{eventID}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	eventID, err := id.ParseCheckInID(chi.URLParam(r, "eventID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	event, err := h.service.Get(ctx, eventID, requestcontext.Caller(ctx))
	if err != nil {
		h.fail(ctx, w, "get check-in failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, event)
}

// HandleCheckOut handles POST /attendance/{eventID}/check-out.
func (h *Handler) HandleCheckOut(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	eventID, err := id.ParseCheckInID(chi.URLParam(r, "eventID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	event, err := h.service.CheckOut(ctx, eventID, requestcontext.Caller(ctx))
	if err != nil {
		h.fail(ctx, w, "check-out rejected", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, event)
}

// HandleAmend handles PATCH /attendance/{eventID}.
func (h *Handler) HandleAmend(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	eventID, err := id.ParseCheckInID(chi.URLParam(r, "eventID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[AmendRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	event, err := h.service.Amend(ctx, eventID, requestcontext.Caller(ctx), req.ToModel())
	if err != nil {
		h.fail(ctx, w, "amendment rejected", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, event)
}

// HandleDelete handles DELETE /attendance/{eventID}. The body is optional.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	eventID, err := id.ParseCheckInID(chi.URLParam(r, "eventID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req DeleteRequest
	if r.ContentLength > 0 {
		if err := httputil.DecodeJSON(r, &req); err != nil {
			httputil.WriteError(w, err)
			return
		}
	}
	if err := h.service.SoftDelete(ctx, eventID, requestcontext.Caller(ctx), req.Reason); err != nil {
		h.fail(ctx, w, "delete rejected", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleHistory handles GET /members/{memberID}/attendance?limit=N.
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	memberID, err := id.ParseMemberID(chi.URLParam(r, "memberID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if limit, err = strconv.Atoi(raw); err != nil || limit < 0 {
			httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "limit must be a non-negative integer"))
			return
		}
	}
	events, err := h.service.History(ctx, memberID, requestcontext.Caller(ctx), limit)
	if err != nil {
		h.fail(ctx, w, "attendance history failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"attendance": events})
}

// HandleSummary handles GET /services/{serviceID}/attendance/summary?date=YYYY-MM-DD.
func (h *Handler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	serviceID, err := id.ParseServiceID(chi.URLParam(r, "serviceID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	date, err := id.ParseDate(r.URL.Query().Get("date"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "date must be YYYY-MM-DD"))
		return
	}
	summary, err := h.service.Summary(ctx, serviceID, date, requestcontext.Caller(ctx))
	if err != nil {
		h.fail(ctx, w, "attendance summary failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, summary)
}

// HandleList handles GET /attendance with optional service_id, member_id,
// start_date, end_date, status, method, page and limit parameters.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	filter, err := eventFilter(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	page, err := h.service.List(ctx, requestcontext.Caller(ctx), filter)
	if err != nil {
		h.fail(ctx, w, "attendance listing failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, page)
}

func eventFilter(r *http.Request) (models.EventFilter, error) {
	q := r.URL.Query()
	filter := models.EventFilter{
		Status: models.Status(q.Get("status")),
		Method: models.Method(q.Get("method")),
	}
	if raw := q.Get("service_id"); raw != "" {
		serviceID, err := id.ParseServiceID(raw)
		if err != nil {
			return filter, dErrors.New(dErrors.CodeValidation, "service_id is invalid")
		}
		filter.ServiceID = &serviceID
	}
	if raw := q.Get("member_id"); raw != "" {
		memberID, err := id.ParseMemberID(raw)
		if err != nil {
			return filter, dErrors.New(dErrors.CodeValidation, "member_id is invalid")
		}
		filter.MemberID = &memberID
	}
	for name, dst := range map[string]**id.Date{"start_date": &filter.From, "end_date": &filter.To} {
		raw := q.Get(name)
		if raw == "" {
			continue
		}
		date, err := id.ParseDate(raw)
		if err != nil {
			return filter, dErrors.Newf(dErrors.CodeValidation, "%s must be YYYY-MM-DD", name)
		}
		*dst = &date
	}
	var err error
	if filter.Page, err = httputil.QueryInt(r, "page"); err != nil {
		return filter, err
	}
	if filter.Limit, err = httputil.QueryInt(r, "limit"); err != nil {
		return filter, err
	}
	return filter, nil
}

// HandleServiceAttendance handles GET /services/{serviceID}/attendance?date=YYYY-MM-DD.
func (h *Handler) HandleServiceAttendance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	serviceID, err := id.ParseServiceID(chi.URLParam(r, "serviceID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	date, err := id.ParseDate(r.URL.Query().Get("date"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "date must be YYYY-MM-DD"))
		return
	}
	page, err := httputil.QueryInt(r, "page")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	limit, err := httputil.QueryInt(r, "limit")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	records, err := h.service.ServiceAttendance(ctx, serviceID, date, requestcontext.Caller(ctx), page, limit)
	if err != nil {
		h.fail(ctx, w, "service attendance failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, records)
}

// fail logs client errors at warn and everything else at error before
// writing the mapped response.
func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	requestID := requestcontext.RequestID(ctx)
	if httputil.StatusFor(dErrors.CodeOf(err)) >= http.StatusInternalServerError {
		h.logger.ErrorContext(ctx, msg, "request_id", requestID, "error", err)
	} else {
		h.logger.WarnContext(ctx, msg, "request_id", requestID, "error", err)
	}
	httputil.WriteError(w, err)
}
