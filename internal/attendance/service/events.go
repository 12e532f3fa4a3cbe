package service

import (
	"context"
	"errors"
	"time"

	"flock/internal/attendance/engagement"
	"flock/internal/attendance/models"
	id "flock/pkg/domain"
	dErrors "flock/pkg/domain-errors"
	"flock/pkg/platform/sentinel"
	"flock/pkg/requestcontext"
)

const (
	defaultDeleteReason = "Deleted by admin"
	maxDeleteReason     = 500
	defaultHistoryLimit = 50
)

// CheckOut records when the member left. Only the owner or an elevated
// caller may check an event out, and only once.
func (s *Service) CheckOut(ctx context.Context, eventID id.CheckInID, caller id.Caller) (_ *models.CheckInEvent, err error) {
	ctx, span := tracer.Start(ctx, "attendance.CheckOut")
	defer func() { endSpan(span, err) }()

	var event *models.CheckInEvent
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		e, err := s.loadEvent(ctx, eventID)
		if err != nil {
			return err
		}
		if err := models.EventOwnership.Authorize(caller, e, id.CapManageAnyCheckIn); err != nil {
			return err
		}
		if err := e.CheckOut(requestcontext.Now(ctx)); err != nil {
			return err
		}
		if err := s.events.Update(ctx, e); err != nil {
			return translateUpdate(err)
		}
		event = e
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.IncrementCheckOut()
	}
	s.logInfo(ctx, "check-out recorded", "attendance_id", event.ID, "member_id", event.MemberID, "duration_minutes", *event.Duration)
	return event, nil
}

// Amend applies an administrative correction.
func (s *Service) Amend(ctx context.Context, eventID id.CheckInID, caller id.Caller, a models.Amendment) (_ *models.CheckInEvent, err error) {
	ctx, span := tracer.Start(ctx, "attendance.Amend")
	defer func() { endSpan(span, err) }()

	if !caller.Can(id.CapEditAttendance) {
		return nil, dErrors.New(dErrors.CodeForbidden, "not authorized to amend attendance")
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}

	var event *models.CheckInEvent
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		e, err := s.loadEvent(ctx, eventID)
		if err != nil {
			return err
		}
		e.Apply(a, caller.ID, requestcontext.Now(ctx))
		if err := s.events.Update(ctx, e); err != nil {
			return translateUpdate(err)
		}
		event = e
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logInfo(ctx, "attendance amended",
		"attendance_id", event.ID,
		"status", event.Status,
		"exception_type", event.ExceptionType,
		"approved_by", caller.ID,
	)
	return event, nil
}

// SoftDelete hides an event. Events are never removed; a deleted event
// frees its occurrence so the member can check in again.
func (s *Service) SoftDelete(ctx context.Context, eventID id.CheckInID, caller id.Caller, reason string) (err error) {
	ctx, span := tracer.Start(ctx, "attendance.SoftDelete")
	defer func() { endSpan(span, err) }()

	if !caller.Can(id.CapDeleteAttendance) {
		return dErrors.New(dErrors.CodeForbidden, "not authorized to delete attendance")
	}
	if reason == "" {
		reason = defaultDeleteReason
	}
	if len(reason) > maxDeleteReason {
		return dErrors.Newf(dErrors.CodeValidation, "reason cannot exceed %d characters", maxDeleteReason)
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		e, err := s.loadEvent(ctx, eventID)
		if err != nil {
			return err
		}
		now := requestcontext.Now(ctx)
		e.SoftDelete(caller.ID, reason, now)
		if err := s.events.Update(ctx, e); err != nil {
			return translateUpdate(err)
		}
		return s.revertStats(ctx, e, now)
	})
	if err != nil {
		return err
	}

	s.logWarn(ctx, "attendance deleted", "attendance_id", eventID, "deleted_by", caller.ID, "reason", reason)
	return nil
}

// revertStats takes a deleted event back out of its member's totals so a
// replacement check-in is not counted twice.
func (s *Service) revertStats(ctx context.Context, e *models.CheckInEvent, now time.Time) error {
	member, err := s.loadMember(ctx, e.MemberID)
	if err != nil {
		return err
	}
	stats := member.Stats
	stats.RevertCheckIn(e.IsLate)
	if score, err := engagement.Score(stats.AttendanceRate, stats.LastAttendance, now); err == nil {
		stats.EngagementScore = score
	} else {
		s.logWarn(ctx, "keeping previous engagement score", "member_id", member.ID, "error", err)
	}
	if err := s.members.UpdateStats(ctx, member.ID, stats); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update member statistics")
	}
	return nil
}

// Get returns an event visible to the caller.
func (s *Service) Get(ctx context.Context, eventID id.CheckInID, caller id.Caller) (*models.CheckInEvent, error) {
	e, err := s.loadEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if err := models.EventOwnership.Authorize(caller, e, id.CapViewAllAttendance); err != nil {
		return nil, err
	}
	return e, nil
}

// History lists a member's events, newest first.
func (s *Service) History(ctx context.Context, memberID id.MemberID, caller id.Caller, limit int) ([]*models.CheckInEvent, error) {
	if caller.ID != memberID && !caller.Can(id.CapViewAllAttendance) {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "not authorized to view this member's attendance")
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	events, err := s.events.ListByMember(ctx, memberID, limit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list attendance")
	}
	return events, nil
}

// Summary aggregates one service occurrence.
func (s *Service) Summary(ctx context.Context, serviceID id.ServiceID, date id.Date, caller id.Caller) (*models.Summary, error) {
	if !caller.Can(id.CapViewAllAttendance) {
		return nil, dErrors.New(dErrors.CodeForbidden, "not authorized to view attendance summaries")
	}
	if _, err := s.services.FindByID(ctx, serviceID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "service not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load service")
	}
	events, err := s.events.ListByOccurrence(ctx, serviceID, date)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list attendance")
	}
	summary := models.Summarize(serviceID, date, events)
	return &summary, nil
}

// List pages through attendance across services and members.
func (s *Service) List(ctx context.Context, caller id.Caller, filter models.EventFilter) (*models.EventPage, error) {
	if !caller.Can(id.CapViewAllAttendance) {
		return nil, dErrors.New(dErrors.CodeForbidden, "not authorized to view attendance")
	}
	if err := filter.Normalize(models.DefaultListLimit); err != nil {
		return nil, err
	}
	events, total, err := s.events.Search(ctx, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list attendance")
	}
	return models.NewEventPage(events, total, filter), nil
}

// ServiceAttendance pages through one occurrence's records alongside the
// summary of the whole occurrence.
func (s *Service) ServiceAttendance(ctx context.Context, serviceID id.ServiceID, date id.Date, caller id.Caller, page, limit int) (*models.OccurrenceAttendance, error) {
	summary, err := s.Summary(ctx, serviceID, date, caller)
	if err != nil {
		return nil, err
	}
	filter := models.EventFilter{ServiceID: &serviceID, From: &date, To: &date, Page: page, Limit: limit}
	if err := filter.Normalize(models.DefaultOccurrenceLimit); err != nil {
		return nil, err
	}
	events, total, err := s.events.Search(ctx, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list attendance")
	}
	return &models.OccurrenceAttendance{Summary: *summary, EventPage: models.NewEventPage(events, total, filter)}, nil
}

func translateUpdate(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "attendance record not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update attendance")
}
