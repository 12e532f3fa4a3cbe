package service

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"flock/internal/directory"
	"flock/internal/followup/metrics"
	"flock/internal/followup/models"
	"flock/internal/notify"
	id "flock/pkg/domain"
	dErrors "flock/pkg/domain-errors"
	"flock/pkg/platform/sentinel"
	"flock/pkg/platform/tx"
	"flock/pkg/requestcontext"
)

var tracer = otel.Tracer("flock/followup")

const maxContactNotesLength = 500

type TaskStore interface {
	Create(ctx context.Context, t *models.Task) error
	FindByID(ctx context.Context, taskID id.TaskID) (*models.Task, error)
	FindOpen(ctx context.Context, memberID id.MemberID, reason models.Reason) (*models.Task, error)
	Update(ctx context.Context, t *models.Task) error
	ListOpenByAssignee(ctx context.Context, memberID id.MemberID) ([]*models.Task, error)
	// Search returns one page of matches, most urgent first, and the total.
	Search(ctx context.Context, filter models.TaskFilter) ([]*models.Task, int, error)
}

type MemberDirectory interface {
	FindByID(ctx context.Context, memberID id.MemberID) (*directory.Member, error)
	FindCoordinator(ctx context.Context) (*directory.Member, error)
}

type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Service turns absence signals into assignable outreach tasks and tracks
// their lifecycle.
type Service struct {
	tasks    TaskStore
	members  MemberDirectory
	tx       TxRunner
	notifier Notifier
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithNotifier(n Notifier) Option {
	return func(s *Service) {
		s.notifier = n
	}
}

func New(tasks TaskStore, members MemberDirectory, tx TxRunner, opts ...Option) *Service {
	s := &Service{tasks: tasks, members: members, tx: tx, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateOrUpdateAutoFollowUp opens the member's absence task or, when one
// is already open, replaces its missed occurrences. At most one absence
// task is open per member; losing a concurrent create falls back to
// updating the winner's task.
func (s *Service) CreateOrUpdateAutoFollowUp(ctx context.Context, memberID id.MemberID, missed []models.MissedOccurrence) (_ *models.Task, err error) {
	ctx, span := tracer.Start(ctx, "followup.CreateOrUpdateAutoFollowUp")
	defer func() { endSpan(span, err) }()

	if len(missed) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "at least one missed occurrence is required")
	}

	var (
		task    *models.Task
		created bool
	)
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		now := requestcontext.Now(ctx)
		existing, err := s.findOpenAbsenceTask(ctx, memberID)
		if err != nil {
			return err
		}
		if existing != nil {
			task, err = s.refresh(ctx, existing, missed, now)
			return err
		}

		assignee, err := s.coordinator(ctx)
		if err != nil {
			return err
		}
		t := models.NewAbsenceTask(memberID, missed, assignee, now)
		if err := s.tasks.Create(ctx, t); err != nil {
			if !errors.Is(err, sentinel.ErrConflict) {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create follow-up task")
			}
			existing, err := s.findOpenAbsenceTask(ctx, memberID)
			if err != nil {
				return err
			}
			if existing == nil {
				return dErrors.New(dErrors.CodeConflict, "follow-up task changed concurrently")
			}
			task, err = s.refresh(ctx, existing, missed, now)
			return err
		}
		task, created = t, true
		if assignee != nil {
			tx.AfterCommit(ctx, func() { s.notifyAssigned(ctx, t, now) })
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if created {
		s.incrementOpened()
		s.logInfo(ctx, "follow-up task created",
			"task_id", task.ID,
			"member_id", memberID,
			"priority", task.Priority,
			"consecutive_absences", task.ConsecutiveAbsences,
		)
	} else {
		if s.metrics != nil {
			s.metrics.IncrementUpdated()
		}
		s.logInfo(ctx, "follow-up task updated",
			"task_id", task.ID,
			"member_id", memberID,
			"priority", task.Priority,
			"consecutive_absences", task.ConsecutiveAbsences,
		)
	}
	return task, nil
}

func (s *Service) findOpenAbsenceTask(ctx context.Context, memberID id.MemberID) (*models.Task, error) {
	t, err := s.tasks.FindOpen(ctx, memberID, models.ReasonConsecutiveAbsences)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load follow-up task")
	}
	return t, nil
}

func (s *Service) refresh(ctx context.Context, t *models.Task, missed []models.MissedOccurrence, now time.Time) (*models.Task, error) {
	t.ReplaceMissed(missed, now)
	if err := s.tasks.Update(ctx, t); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update follow-up task")
	}
	return t, nil
}

// coordinator returns nil when the directory has no active coordinator;
// the task is then created unassigned.
func (s *Service) coordinator(ctx context.Context) (*id.MemberID, error) {
	c, err := s.members.FindCoordinator(ctx)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.logWarn(ctx, "no active coordinator; follow-up task left unassigned")
			if s.metrics != nil {
				s.metrics.IncrementUnassigned()
			}
			return nil, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve coordinator")
	}
	return &c.ID, nil
}

// Create opens a manual follow-up for a member and assigns it.
func (s *Service) Create(ctx context.Context, caller id.Caller, req models.ManualTask) (_ *models.Task, err error) {
	ctx, span := tracer.Start(ctx, "followup.Create")
	defer func() { endSpan(span, err) }()

	if !caller.Can(id.CapAssignFollowUps) {
		return nil, dErrors.New(dErrors.CodeForbidden, "not authorized to create follow-ups")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	var task *models.Task
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := s.members.FindByID(ctx, req.MemberID); err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "member not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load member")
		}
		if err := s.checkAssignee(ctx, req.AssignedTo); err != nil {
			return err
		}
		t := models.NewManualTask(req, caller.ID, now)
		if err := s.tasks.Create(ctx, t); err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "member not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create follow-up task")
		}
		task = t
		tx.AfterCommit(ctx, func() { s.notifyAssigned(ctx, t, now) })
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.incrementOpened()
	s.logInfo(ctx, "follow-up task created",
		"task_id", task.ID,
		"member_id", task.MemberID,
		"reason", task.Reason,
		"priority", task.Priority,
		"assigned_by", caller.ID,
	)
	return task, nil
}

// checkAssignee requires an active member who can run follow-ups.
func (s *Service) checkAssignee(ctx context.Context, memberID id.MemberID) error {
	assignee, err := s.members.FindByID(ctx, memberID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "assignee not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load assignee")
	}
	if !assignee.IsActive || !assignee.Role.Can(id.CapManageFollowUps) {
		return dErrors.New(dErrors.CodeValidation, "assignee cannot manage follow-ups")
	}
	return nil
}

// AddContactAttempt logs outreach on an open task.
func (s *Service) AddContactAttempt(ctx context.Context, taskID id.TaskID, caller id.Caller, attempt models.ContactAttempt) (*models.Task, error) {
	if !caller.Can(id.CapManageFollowUps) {
		return nil, dErrors.New(dErrors.CodeForbidden, "not authorized to manage follow-ups")
	}
	if err := attempt.Validate(); err != nil {
		return nil, err
	}
	if len(attempt.Notes) > maxContactNotesLength {
		return nil, dErrors.Newf(dErrors.CodeValidation, "notes cannot exceed %d characters", maxContactNotesLength)
	}
	if attempt.ContactedBy.IsNil() {
		attempt.ContactedBy = caller.ID
	}
	if attempt.Date.IsZero() {
		attempt.Date = requestcontext.Now(ctx)
	}

	task, err := s.mutate(ctx, taskID, func(t *models.Task) error {
		return t.AddContactAttempt(attempt)
	})
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.IncrementContact(string(attempt.Outcome))
	}
	s.logInfo(ctx, "contact attempt logged", "task_id", taskID, "outcome", attempt.Outcome, "status", task.Status)
	return task, nil
}

// Complete closes the task with an outcome. An empty outcome means resolved.
func (s *Service) Complete(ctx context.Context, taskID id.TaskID, caller id.Caller, outcome models.Outcome, notes string) (*models.Task, error) {
	if !caller.Can(id.CapManageFollowUps) {
		return nil, dErrors.New(dErrors.CodeForbidden, "not authorized to manage follow-ups")
	}
	if outcome == "" {
		outcome = models.OutcomeResolved
	}
	if !outcome.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation, "invalid outcome")
	}
	if len(notes) > models.MaxOutcomeNotesLength {
		return nil, dErrors.Newf(dErrors.CodeValidation, "notes cannot exceed %d characters", models.MaxOutcomeNotesLength)
	}

	now := requestcontext.Now(ctx)
	task, err := s.mutate(ctx, taskID, func(t *models.Task) error {
		return t.Complete(outcome, notes, now)
	})
	if err != nil {
		return nil, err
	}
	s.incrementClosed(task)
	s.logInfo(ctx, "follow-up task completed", "task_id", taskID, "outcome", outcome, "completed_by", caller.ID)
	return task, nil
}

// Cancel closes an open task without an outcome.
func (s *Service) Cancel(ctx context.Context, taskID id.TaskID, caller id.Caller, reason string) (*models.Task, error) {
	if !caller.Can(id.CapManageFollowUps) {
		return nil, dErrors.New(dErrors.CodeForbidden, "not authorized to manage follow-ups")
	}
	if len(reason) > models.MaxOutcomeNotesLength {
		return nil, dErrors.Newf(dErrors.CodeValidation, "reason cannot exceed %d characters", models.MaxOutcomeNotesLength)
	}

	now := requestcontext.Now(ctx)
	task, err := s.mutate(ctx, taskID, func(t *models.Task) error {
		return t.Cancel(reason, now)
	})
	if err != nil {
		return nil, err
	}
	s.incrementClosed(task)
	s.logInfo(ctx, "follow-up task cancelled", "task_id", taskID, "cancelled_by", caller.ID)
	return task, nil
}

// Reassign hands an open task to another member who can run follow-ups.
func (s *Service) Reassign(ctx context.Context, taskID id.TaskID, caller id.Caller, to id.MemberID) (*models.Task, error) {
	if !caller.Can(id.CapManageFollowUps) {
		return nil, dErrors.New(dErrors.CodeForbidden, "not authorized to manage follow-ups")
	}

	now := requestcontext.Now(ctx)
	var task *models.Task
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.checkAssignee(ctx, to); err != nil {
			return err
		}

		t, err := s.load(ctx, taskID)
		if err != nil {
			return err
		}
		if err := t.Reassign(to, now); err != nil {
			return err
		}
		if err := s.tasks.Update(ctx, t); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update follow-up task")
		}
		task = t
		tx.AfterCommit(ctx, func() { s.notifyAssigned(ctx, t, now) })
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logInfo(ctx, "follow-up task reassigned", "task_id", taskID, "assigned_to", to, "reassigned_by", caller.ID)
	return task, nil
}

// Get returns one task.
func (s *Service) Get(ctx context.Context, taskID id.TaskID, caller id.Caller) (*models.Task, error) {
	if !caller.Can(id.CapManageFollowUps) {
		return nil, dErrors.New(dErrors.CodeForbidden, "not authorized to view follow-ups")
	}
	return s.load(ctx, taskID)
}

// ListOpenByAssignee lists a coordinator's open tasks, earliest due first.
func (s *Service) ListOpenByAssignee(ctx context.Context, assignee id.MemberID, caller id.Caller) ([]models.OpenTask, error) {
	if !caller.Can(id.CapManageFollowUps) {
		return nil, dErrors.New(dErrors.CodeForbidden, "not authorized to view follow-ups")
	}
	tasks, err := s.tasks.ListOpenByAssignee(ctx, assignee)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list follow-up tasks")
	}
	now := requestcontext.Now(ctx)
	out := make([]models.OpenTask, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, models.OpenTask{Task: t, DaysOverdue: t.DaysOverdue(now)})
	}
	return out, nil
}

// List pages through tasks matching filter, most urgent first. Callers who
// cannot assign follow-ups only ever see their own tasks.
func (s *Service) List(ctx context.Context, caller id.Caller, filter models.TaskFilter) (*models.TaskPage, error) {
	if !caller.Can(id.CapManageFollowUps) {
		return nil, dErrors.New(dErrors.CodeForbidden, "not authorized to view follow-ups")
	}
	if !caller.Can(id.CapAssignFollowUps) {
		own := caller.ID
		filter.AssignedTo = &own
	}
	if err := filter.Normalize(); err != nil {
		return nil, err
	}
	tasks, total, err := s.tasks.Search(ctx, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list follow-up tasks")
	}
	now := requestcontext.Now(ctx)
	page := &models.TaskPage{
		Tasks: make([]models.OpenTask, 0, len(tasks)),
		Total: total,
		Page:  filter.Page,
		Pages: models.PageCount(total, filter.Limit),
	}
	for _, t := range tasks {
		page.Tasks = append(page.Tasks, models.OpenTask{Task: t, DaysOverdue: t.DaysOverdue(now)})
	}
	return page, nil
}

func (s *Service) load(ctx context.Context, taskID id.TaskID) (*models.Task, error) {
	t, err := s.tasks.FindByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "follow-up task not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load follow-up task")
	}
	return t, nil
}

// mutate loads, changes and saves a task in one unit of work.
func (s *Service) mutate(ctx context.Context, taskID id.TaskID, change func(*models.Task) error) (*models.Task, error) {
	var task *models.Task
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		t, err := s.load(ctx, taskID)
		if err != nil {
			return err
		}
		if err := change(t); err != nil {
			return err
		}
		if err := s.tasks.Update(ctx, t); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update follow-up task")
		}
		task = t
		return nil
	})
	return task, err
}

func (s *Service) notifyAssigned(ctx context.Context, t *models.Task, now time.Time) {
	if s.notifier == nil || t.AssignedTo == nil {
		return
	}
	s.notifier.Notify(ctx, notify.Notification{
		Kind:      notify.KindFollowUpAssigned,
		Subject:   t.ID.String(),
		Recipient: t.AssignedTo.String(),
		Payload: map[string]string{
			"member_id":            t.MemberID.String(),
			"reason":               string(t.Reason),
			"priority":             string(t.Priority),
			"consecutive_absences": strconv.Itoa(t.ConsecutiveAbsences),
			"due_date":             t.DueDate.Format(time.RFC3339),
		},
		OccurredAt: now,
	})
}

func (s *Service) logInfo(ctx context.Context, msg string, args ...any) {
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		args = append(args, "request_id", requestID)
	}
	s.logger.InfoContext(ctx, msg, args...)
}

func (s *Service) logWarn(ctx context.Context, msg string, args ...any) {
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		args = append(args, "request_id", requestID)
	}
	s.logger.WarnContext(ctx, msg, args...)
}

func (s *Service) incrementOpened() {
	if s.metrics != nil {
		s.metrics.IncrementOpened()
	}
}

func (s *Service) incrementClosed(t *models.Task) {
	if s.metrics != nil {
		s.metrics.IncrementClosed(string(t.Status))
	}
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
