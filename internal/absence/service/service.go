package service

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"flock/internal/absence/metrics"
	"flock/internal/absence/models"
	"flock/internal/attendance/engagement"
	"flock/internal/directory"
	followupModels "flock/internal/followup/models"
	id "flock/pkg/domain"
	dErrors "flock/pkg/domain-errors"
	"flock/pkg/platform/sentinel"
	"flock/pkg/requestcontext"
)

var tracer = otel.Tracer("flock/absence")

const defaultLockTTL = 5 * time.Minute

// errAlreadyEvaluated aborts a unit of work that lost the race to record
// the occurrence's run.
var errAlreadyEvaluated = errors.New("occurrence already evaluated")

type MemberStore interface {
	FindByID(ctx context.Context, memberID id.MemberID) (*directory.Member, error)
	ListRoster(ctx context.Context, rule directory.RosterRule) ([]*directory.Member, error)
	UpdateStats(ctx context.Context, memberID id.MemberID, stats directory.AttendanceStats) error
}

type ServiceCatalog interface {
	FindByID(ctx context.Context, serviceID id.ServiceID) (*directory.Service, error)
}

type AttendeeSource interface {
	AttendeeIDs(ctx context.Context, serviceID id.ServiceID, date id.Date) ([]id.MemberID, error)
}

type AbsenceStore interface {
	FindRun(ctx context.Context, serviceID id.ServiceID, date id.Date) (*models.Report, error)
	SaveRun(ctx context.Context, report *models.Report) error
	Record(ctx context.Context, a models.Absence) error
	Recent(ctx context.Context, memberID id.MemberID, limit int) ([]models.Absence, error)
}

type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Service records expected-but-missed attendance and escalates repeated
// absences to follow-up.
type Service struct {
	members   MemberStore
	services  ServiceCatalog
	attendees AttendeeSource
	absences  AbsenceStore
	followUps FollowUpDispatcher
	tx        TxRunner
	locker    Locker
	lockTTL   time.Duration
	logger    *slog.Logger
	metrics   *metrics.Metrics
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

// WithLocker serialises evaluations of the same occurrence across
// processes for at most ttl.
func WithLocker(l Locker, ttl time.Duration) Option {
	return func(s *Service) {
		s.locker = l
		if ttl > 0 {
			s.lockTTL = ttl
		}
	}
}

func New(members MemberStore, services ServiceCatalog, attendees AttendeeSource, absences AbsenceStore, followUps FollowUpDispatcher, tx TxRunner, opts ...Option) *Service {
	s := &Service{
		members:   members,
		services:  services,
		attendees: attendees,
		absences:  absences,
		followUps: followUps,
		tx:        tx,
		lockTTL:   defaultLockTTL,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// EvaluateAbsences marks every expected member without a live check-in
// for the occurrence absent. Streaks reaching the follow-up threshold are
// escalated with the member's recent misses. Stats, absences, follow-ups
// and the run report commit together; evaluating the same occurrence again
// returns the stored report with AlreadyEvaluated set and changes nothing.
func (s *Service) EvaluateAbsences(ctx context.Context, serviceID id.ServiceID, date id.Date) (_ *models.Report, err error) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "absence.EvaluateAbsences")
	defer func() {
		if err != nil {
			s.incrementRun("failed")
		}
		endSpan(span, err)
	}()
	span.SetAttributes(
		attribute.String("service_id", serviceID.String()),
		attribute.String("date", date.String()),
	)

	if date.IsZero() {
		return nil, dErrors.New(dErrors.CodeValidation, "date is required")
	}
	if report, err := s.storedRun(ctx, serviceID, date); err != nil || report != nil {
		return report, err
	}

	svc, err := s.services.FindByID(ctx, serviceID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "service not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load service")
	}
	if !svc.OccursOn(date) {
		return nil, dErrors.Newf(dErrors.CodeInvalidState, "service is not held on %s", date.Weekday())
	}
	now := requestcontext.Now(ctx)
	endsAt, err := svc.EndOn(date)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "service schedule is invalid")
	}
	if now.Before(endsAt) {
		return nil, dErrors.New(dErrors.CodeInvalidState, "service occurrence has not ended yet")
	}

	if s.locker != nil {
		release, err := s.locker.Acquire(ctx, lockKey(serviceID, date), s.lockTTL)
		if err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return nil, dErrors.New(dErrors.CodeConflict, "absence evaluation already running for this occurrence")
			}
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to acquire evaluation lock")
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				s.logger.WarnContext(ctx, "failed to release evaluation lock", "service_id", serviceID, "date", date, "error", err)
			}
		}()
	}

	roster, attended, err := s.loadOccurrence(ctx, svc, date)
	if err != nil {
		return nil, err
	}

	report := &models.Report{
		ServiceID:     serviceID,
		Date:          date,
		TotalExpected: len(roster),
		EvaluatedAt:   now,
	}
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		report.Absentees, report.FollowUpTaskIDs = nil, nil
		report.TotalAttended = 0
		for _, m := range roster {
			if _, ok := attended[m.ID]; ok {
				report.TotalAttended++
				continue
			}
			absentee, taskID, err := s.markAbsent(ctx, m.ID, serviceID, date, now)
			if err != nil {
				return err
			}
			report.Absentees = append(report.Absentees, absentee)
			if taskID != nil {
				report.FollowUpTaskIDs = append(report.FollowUpTaskIDs, *taskID)
			}
		}
		if err := s.absences.SaveRun(ctx, report); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return errAlreadyEvaluated
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record absence run")
		}
		return nil
	})
	if errors.Is(err, errAlreadyEvaluated) {
		return s.storedRun(ctx, serviceID, date)
	}
	if err != nil {
		return nil, err
	}

	s.incrementRun("evaluated")
	if s.metrics != nil {
		s.metrics.ObserveRun(start, len(report.Absentees), len(report.FollowUpTaskIDs))
	}
	s.logInfo(ctx, "absences evaluated",
		"service_id", serviceID,
		"date", date,
		"expected", report.TotalExpected,
		"attended", report.TotalAttended,
		"absent", len(report.Absentees),
		"follow_ups", len(report.FollowUpTaskIDs),
	)
	return report, nil
}

// storedRun returns the recorded report, or nil when the occurrence has not
// been evaluated.
func (s *Service) storedRun(ctx context.Context, serviceID id.ServiceID, date id.Date) (*models.Report, error) {
	report, err := s.absences.FindRun(ctx, serviceID, date)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load absence run")
	}
	report.AlreadyEvaluated = true
	s.incrementRun("already_evaluated")
	return report, nil
}

// loadOccurrence fetches the expected roster and the set of members who
// attended concurrently.
func (s *Service) loadOccurrence(ctx context.Context, svc *directory.Service, date id.Date) ([]*directory.Member, map[id.MemberID]struct{}, error) {
	var (
		roster    []*directory.Member
		attendees []id.MemberID
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		roster, err = s.members.ListRoster(gctx, svc.RequiredFor)
		return err
	})
	g.Go(func() error {
		var err error
		attendees, err = s.attendees.AttendeeIDs(gctx, svc.ID, date)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load occurrence attendance")
	}

	attended := make(map[id.MemberID]struct{}, len(attendees))
	for _, a := range attendees {
		attended[a] = struct{}{}
	}
	return roster, attended, nil
}

// markAbsent records one absence against the member's fresh stats and
// escalates when the streak reaches the threshold.
func (s *Service) markAbsent(ctx context.Context, memberID id.MemberID, serviceID id.ServiceID, date id.Date, now time.Time) (models.Absentee, *id.TaskID, error) {
	m, err := s.members.FindByID(ctx, memberID)
	if err != nil {
		return models.Absentee{}, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load member")
	}

	stats := m.Stats
	stats.ApplyAbsence()
	score, err := engagement.Score(stats.AttendanceRate, stats.LastAttendance, now)
	if err != nil {
		s.logger.WarnContext(ctx, "engagement score left unchanged", "member_id", memberID, "error", err)
	} else {
		stats.EngagementScore = score
	}
	if err := s.members.UpdateStats(ctx, memberID, stats); err != nil {
		return models.Absentee{}, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update member statistics")
	}

	if err := s.absences.Record(ctx, models.Absence{MemberID: memberID, ServiceID: serviceID, Date: date, RecordedAt: now}); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return models.Absentee{}, nil, errAlreadyEvaluated
		}
		return models.Absentee{}, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record absence")
	}

	absentee := models.Absentee{MemberID: memberID, Name: m.FullName(), ConsecutiveAbsences: stats.ConsecutiveAbsences}
	if stats.ConsecutiveAbsences < models.FollowUpThreshold {
		return absentee, nil, nil
	}

	recent, err := s.absences.Recent(ctx, memberID, stats.ConsecutiveAbsences)
	if err != nil {
		return models.Absentee{}, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load recent absences")
	}
	missed := make([]followupModels.MissedOccurrence, 0, len(recent))
	for _, a := range slices.Backward(recent) {
		missed = append(missed, a.Missed())
	}
	task, err := s.followUps.CreateOrUpdateAutoFollowUp(ctx, memberID, missed)
	if err != nil {
		return models.Absentee{}, nil, err
	}
	return absentee, &task.ID, nil
}

func lockKey(serviceID id.ServiceID, date id.Date) string {
	return "absence:" + serviceID.String() + ":" + date.String()
}

func (s *Service) incrementRun(result string) {
	if s.metrics != nil {
		s.metrics.IncrementRun(result)
	}
}

func (s *Service) logInfo(ctx context.Context, msg string, args ...any) {
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		args = append(args, "request_id", requestID)
	}
	s.logger.InfoContext(ctx, msg, args...)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
