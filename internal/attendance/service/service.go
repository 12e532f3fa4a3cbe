package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"flock/internal/attendance/metrics"
	"flock/internal/attendance/models"
	"flock/internal/directory"
	id "flock/pkg/domain"
	dErrors "flock/pkg/domain-errors"
	"flock/pkg/platform/sentinel"
	"flock/pkg/requestcontext"
)

var tracer = otel.Tracer("flock/attendance")

type MemberStore interface {
	FindByID(ctx context.Context, memberID id.MemberID) (*directory.Member, error)
	FindByMembershipID(ctx context.Context, membershipID string) (*directory.Member, error)
	UpdateStats(ctx context.Context, memberID id.MemberID, stats directory.AttendanceStats) error
}

type ServiceCatalog interface {
	FindByID(ctx context.Context, serviceID id.ServiceID) (*directory.Service, error)
	RecordOccurrence(ctx context.Context, serviceID id.ServiceID, date id.Date) error
}

type EventStore interface {
	Create(ctx context.Context, e *models.CheckInEvent) error
	FindByID(ctx context.Context, eventID id.CheckInID) (*models.CheckInEvent, error)
	FindActive(ctx context.Context, memberID id.MemberID, serviceID id.ServiceID, date id.Date) (*models.CheckInEvent, error)
	Update(ctx context.Context, e *models.CheckInEvent) error
	ListByOccurrence(ctx context.Context, serviceID id.ServiceID, date id.Date) ([]*models.CheckInEvent, error)
	ListByMember(ctx context.Context, memberID id.MemberID, limit int) ([]*models.CheckInEvent, error)
	Search(ctx context.Context, filter models.EventFilter) ([]*models.CheckInEvent, int, error)
}

// TxRunner runs fn as one unit of work. Nested calls join the outer one.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Service is the check-in gate: it validates presence submissions and
// commits each event together with the member and service statistics it
// changes.
type Service struct {
	members  MemberStore
	services ServiceCatalog
	events   EventStore
	tx       TxRunner
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

func New(members MemberStore, services ServiceCatalog, events EventStore, tx TxRunner, opts ...Option) *Service {
	s := &Service{
		members:  members,
		services: services,
		events:   events,
		tx:       tx,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// loadActiveService returns NotFound for missing and inactive services alike.
func (s *Service) loadActiveService(ctx context.Context, serviceID id.ServiceID) (*directory.Service, error) {
	svc, err := s.services.FindByID(ctx, serviceID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "service not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load service")
	}
	if !svc.IsActive {
		return nil, dErrors.New(dErrors.CodeNotFound, "service is not active")
	}
	return svc, nil
}

func (s *Service) loadMember(ctx context.Context, memberID id.MemberID) (*directory.Member, error) {
	m, err := s.members.FindByID(ctx, memberID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "member not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load member")
	}
	return m, nil
}

// loadEvent hides soft-deleted events.
func (s *Service) loadEvent(ctx context.Context, eventID id.CheckInID) (*models.CheckInEvent, error) {
	e, err := s.events.FindByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "attendance record not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load attendance record")
	}
	if e.IsDeleted {
		return nil, dErrors.New(dErrors.CodeNotFound, "attendance record not found")
	}
	return e, nil
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

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (s *Service) observeCheckIn(start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveCheckIn(start)
	}
}

func (s *Service) incrementAccepted(e *models.CheckInEvent) {
	if s.metrics != nil {
		s.metrics.IncrementAccepted(string(e.Method), string(e.Status))
	}
}

func (s *Service) incrementRejected(err error) {
	if s.metrics != nil && err != nil {
		s.metrics.IncrementRejected(string(dErrors.CodeOf(err)))
	}
}
