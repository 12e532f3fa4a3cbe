package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"flock/internal/followup/models"
	id "flock/pkg/domain"
	dErrors "flock/pkg/domain-errors"
	"flock/pkg/platform/httputil"
	"flock/pkg/platform/validation"
	"flock/pkg/requestcontext"
)

// Service defines the follow-up task operations exposed over HTTP.
type Service interface {
	Create(ctx context.Context, caller id.Caller, req models.ManualTask) (*models.Task, error)
	List(ctx context.Context, caller id.Caller, filter models.TaskFilter) (*models.TaskPage, error)
	Get(ctx context.Context, taskID id.TaskID, caller id.Caller) (*models.Task, error)
	ListOpenByAssignee(ctx context.Context, assignee id.MemberID, caller id.Caller) ([]models.OpenTask, error)
	AddContactAttempt(ctx context.Context, taskID id.TaskID, caller id.Caller, attempt models.ContactAttempt) (*models.Task, error)
	Complete(ctx context.Context, taskID id.TaskID, caller id.Caller, outcome models.Outcome, notes string) (*models.Task, error)
	Cancel(ctx context.Context, taskID id.TaskID, caller id.Caller, reason string) (*models.Task, error)
	Reassign(ctx context.Context, taskID id.TaskID, caller id.Caller, to id.MemberID) (*models.Task, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the follow-up endpoints behind the auth middleware.
func (h *Handler) Register(r chi.Router) {
	r.Get("/follow-ups", h.HandleList)
	r.Post("/follow-ups", h.HandleCreate)
	r.Get("/follow-ups/open", h.HandleListOpen)
	r.Route("/follow-ups/{taskID}", func(r chi.Router) {
		r.Get("/", h.HandleGet)
		r.Post("/contact-attempts", h.HandleContactAttempt)
		r.Post("/complete", h.HandleComplete)
		r.Post("/cancel", h.HandleCancel)
		r.Post("/reassign", h.HandleReassign)
	})
}

// CreateRequest is the body of POST /follow-ups.
type CreateRequest struct {
	MemberID     string     `json:"member_id" validate:"required,uuid"`
	Reason       string     `json:"reason" validate:"required"`
	CustomReason string     `json:"custom_reason,omitempty"`
	Priority     string     `json:"priority,omitempty"`
	AssignedTo   string     `json:"assigned_to" validate:"required,uuid"`
	DueDate      *time.Time `json:"due_date,omitempty"`
	Notes        string     `json:"notes,omitempty"`

	task models.ManualTask
}

func (r *CreateRequest) Validate() error {
	if err := validation.Struct(r); err != nil {
		return err
	}
	memberID, err := id.ParseMemberID(r.MemberID)
	if err != nil {
		return dErrors.New(dErrors.CodeValidation, "member_id is invalid")
	}
	assignee, err := id.ParseMemberID(r.AssignedTo)
	if err != nil {
		return dErrors.New(dErrors.CodeValidation, "assigned_to is invalid")
	}
	r.task = models.ManualTask{
		MemberID:     memberID,
		Reason:       models.Reason(r.Reason),
		CustomReason: strings.TrimSpace(r.CustomReason),
		Priority:     models.Priority(r.Priority),
		AssignedTo:   assignee,
		Notes:        r.Notes,
	}
	if r.DueDate != nil {
		r.task.DueDate = *r.DueDate
	}
	return r.task.Validate()
}

type contactAttemptRequest struct {
	Method  string `json:"method"`
	Outcome string `json:"outcome"`
	Notes   string `json:"notes,omitempty"`
}

type completeRequest struct {
	Outcome string `json:"outcome,omitempty"`
	Notes   string `json:"notes,omitempty"`
}

type cancelRequest struct {
	Reason string `json:"reason,omitempty"`
}

type reassignRequest struct {
	AssignedTo string `json:"assigned_to"`
}

// HandleCreate handles POST /follow-ups.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[CreateRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	task, err := h.service.Create(ctx, requestcontext.Caller(ctx), req.task)
	if err != nil {
		h.fail(ctx, w, "follow-up creation rejected", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, task)
}

// HandleList handles GET /follow-ups?status=&priority=&assigned_to=&page=&limit=.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	filter, err := listFilter(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	page, err := h.service.List(ctx, requestcontext.Caller(ctx), filter)
	if err != nil {
		h.fail(ctx, w, "list follow-ups failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, page)
}

func listFilter(r *http.Request) (models.TaskFilter, error) {
	q := r.URL.Query()
	filter := models.TaskFilter{
		Status:   models.Status(q.Get("status")),
		Priority: models.Priority(q.Get("priority")),
	}
	if raw := q.Get("assigned_to"); raw != "" {
		assignee, err := id.ParseMemberID(raw)
		if err != nil {
			return filter, dErrors.New(dErrors.CodeValidation, "assigned_to is invalid")
		}
		filter.AssignedTo = &assignee
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

// HandleListOpen handles GET /follow-ups/open?assignee=ID. The assignee defaults
// to the caller.
func (h *Handler) HandleListOpen(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := requestcontext.Caller(ctx)
	assignee := caller.ID
	if raw := r.URL.Query().Get("assignee"); raw != "" {
		parsed, err := id.ParseMemberID(raw)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		assignee = parsed
	}
	tasks, err := h.service.ListOpenByAssignee(ctx, assignee, caller)
	if err != nil {
		h.fail(ctx, w, "list follow-ups failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"tasks": tasks})
}

// HandleGet handles GET /follow-ups/{taskID}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	taskID, ok := h.taskID(w, r)
	if !ok {
		return
	}
	task, err := h.service.Get(ctx, taskID, requestcontext.Caller(ctx))
	h.respond(ctx, w, "get follow-up failed", task, err)
}

// HandleContactAttempt handles POST /follow-ups/{taskID}/contact-attempts.
func (h *Handler) HandleContactAttempt(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	taskID, ok := h.taskID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[contactAttemptRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	task, err := h.service.AddContactAttempt(ctx, taskID, requestcontext.Caller(ctx), models.ContactAttempt{
		Method:  models.ContactMethod(req.Method),
		Outcome: models.ContactOutcome(req.Outcome),
		Notes:   req.Notes,
	})
	h.respond(ctx, w, "contact attempt rejected", task, err)
}

// HandleComplete handles POST /follow-ups/{taskID}/complete.
func (h *Handler) HandleComplete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	taskID, ok := h.taskID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[completeRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	task, err := h.service.Complete(ctx, taskID, requestcontext.Caller(ctx), models.Outcome(req.Outcome), req.Notes)
	h.respond(ctx, w, "completion rejected", task, err)
}

// HandleCancel handles POST /follow-ups/{taskID}/cancel.
func (h *Handler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	taskID, ok := h.taskID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[cancelRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	task, err := h.service.Cancel(ctx, taskID, requestcontext.Caller(ctx), req.Reason)
	h.respond(ctx, w, "cancellation rejected", task, err)
}

// HandleReassign handles POST /follow-ups/{taskID}/reassign.
func (h *Handler) HandleReassign(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	taskID, ok := h.taskID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[reassignRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	to, err := id.ParseMemberID(req.AssignedTo)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	task, err := h.service.Reassign(ctx, taskID, requestcontext.Caller(ctx), to)
	h.respond(ctx, w, "reassignment rejected", task, err)
}

func (h *Handler) taskID(w http.ResponseWriter, r *http.Request) (id.TaskID, bool) {
	taskID, err := id.ParseTaskID(chi.URLParam(r, "taskID"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.TaskID{}, false
	}
	return taskID, true
}

func (h *Handler) respond(ctx context.Context, w http.ResponseWriter, msg string, task *models.Task, err error) {
	if err != nil {
		h.fail(ctx, w, msg, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, task)
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
