package service

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	attendanceModels "flock/internal/attendance/models"
	"flock/internal/directory"
	"flock/internal/visitor/metrics"
	"flock/internal/visitor/models"
	id "flock/pkg/domain"
	dErrors "flock/pkg/domain-errors"
	"flock/pkg/platform/sentinel"
	"flock/pkg/requestcontext"
)

var tracer = otel.Tracer("flock/visitor")

type MemberDirectory interface {
	FindByPhoneOrEmail(ctx context.Context, phone, email string) (*directory.Member, error)
	Create(ctx context.Context, m *directory.Member) error
}

type VisitorStore interface {
	Create(ctx context.Context, r *models.Record) error
	FindByPhone(ctx context.Context, phone string) (*models.Record, error)
	FindByEmail(ctx context.Context, email string) (*models.Record, error)
	FindByInviteToken(ctx context.Context, token string) (*models.Record, error)
	AddAttendance(ctx context.Context, visitorID id.VisitorID, a models.Attendance) error
	Update(ctx context.Context, r *models.Record) error
	ListUnconverted(ctx context.Context) ([]*models.Record, error)
}

type ServiceCatalog interface {
	FindByID(ctx context.Context, serviceID id.ServiceID) (*directory.Service, error)
}

type EventStore interface {
	Create(ctx context.Context, e *attendanceModels.CheckInEvent) error
}

type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Service resolves walk-in identities, records visitor attendance and
// promotes visitors into members.
type Service struct {
	members   MemberDirectory
	visitors  VisitorStore
	services  ServiceCatalog
	events    EventStore
	gate      CheckInGate
	tx        TxRunner
	notifier  Notifier
	inviteURL string
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

func WithNotifier(n Notifier) Option {
	return func(s *Service) {
		s.notifier = n
	}
}

// WithInviteURL sets the registration page the invite token is appended to.
func WithInviteURL(url string) Option {
	return func(s *Service) {
		s.inviteURL = url
	}
}

func New(members MemberDirectory, visitors VisitorStore, services ServiceCatalog, events EventStore, gate CheckInGate, tx TxRunner, opts ...Option) *Service {
	s := &Service{
		members:  members,
		visitors: visitors,
		services: services,
		events:   events,
		gate:     gate,
		tx:       tx,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// findMember returns nil when neither phone nor email belongs to a member.
func (s *Service) findMember(ctx context.Context, phone, email string) (*directory.Member, error) {
	m, err := s.members.FindByPhoneOrEmail(ctx, phone, email)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up member")
	}
	return m, nil
}

// findVisitor returns nil when no record matches.
func (s *Service) findVisitor(ctx context.Context, find func(context.Context, string) (*models.Record, error), key string) (*models.Record, error) {
	if key == "" {
		return nil, nil
	}
	r, err := find(ctx, key)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up visitor")
	}
	return r, nil
}

func (s *Service) loadActiveService(ctx context.Context, serviceID id.ServiceID) (*directory.Service, error) {
	svc, err := s.services.FindByID(ctx, serviceID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "service not found or inactive")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load service")
	}
	if !svc.IsActive {
		return nil, dErrors.New(dErrors.CodeNotFound, "service not found or inactive")
	}
	return svc, nil
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
