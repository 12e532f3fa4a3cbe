package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	attendanceModels "flock/internal/attendance/models"
	"flock/internal/directory"
	"flock/internal/notify"
	"flock/internal/visitor/models"
	id "flock/pkg/domain"
	dErrors "flock/pkg/domain-errors"
	"flock/pkg/platform/sentinel"
	"flock/pkg/platform/tx"
	"flock/pkg/platform/validation"
	"flock/pkg/requestcontext"
	"flock/pkg/secrets"
)

// Identity resolution paths, also used as metric labels.
const (
	pathMember           = "member"
	pathReturningVisitor = "returning_visitor"
	pathNewVisitor       = "new_visitor"
)

// QuickCheckIn checks in an unauthenticated walk-in. A known member is
// handed to the check-in gate; a known visitor gets another visit; anyone
// else gets a new visitor record. A visitor with an email receives at most
// one registration invite over the record's lifetime.
func (s *Service) QuickCheckIn(ctx context.Context, req models.QuickCheckInRequest) (_ *models.CheckInOutcome, err error) {
	ctx, span := tracer.Start(ctx, "visitor.QuickCheckIn")
	defer func() { endSpan(span, err) }()
	span.SetAttributes(attribute.String("service_id", req.ServiceID.String()))

	req.Identity.Normalize()
	if err := validation.Struct(req.Identity); err != nil {
		return nil, err
	}
	if req.Source == "" {
		req.Source = models.SourceManual
	}
	if !req.Source.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation, "invalid source")
	}

	svc, err := s.loadActiveService(ctx, req.ServiceID)
	if err != nil {
		return nil, err
	}

	member, err := s.findMember(ctx, req.Identity.Phone, req.Identity.Email)
	if err != nil {
		return nil, err
	}
	if member != nil {
		return s.checkInMember(ctx, member, req)
	}

	now := requestcontext.Now(ctx)
	visit := models.Attendance{
		ServiceID:   svc.ID,
		Date:        id.DateOf(now, svc.Location()),
		CheckInTime: now,
	}

	var (
		rec       *models.Record
		returning bool
		invited   bool
	)
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		existing, err := s.findVisitor(ctx, s.visitors.FindByPhone, req.Identity.Phone)
		if err != nil {
			return err
		}
		if existing != nil {
			rec, returning = existing, true
			invited, err = s.recordReturnVisit(ctx, existing, req.Identity.Email, visit, now)
			return err
		}

		rec = &models.Record{
			ID:        id.NewVisitorID(),
			FirstName: req.Identity.FirstName,
			LastName:  req.Identity.LastName,
			Phone:     req.Identity.Phone,
			Email:     req.Identity.Email,
			Source:    req.Source,
			Device:    req.Device,
			CreatedAt: now,
		}
		rec.RecordVisit(visit)
		invited, err = s.issueInvite(ctx, rec, now)
		if err != nil {
			return err
		}
		if err := s.visitors.Create(ctx, rec); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.New(dErrors.CodeConflict, "visitor record changed concurrently; please retry")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save visitor")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := &models.CheckInOutcome{
		IsReturningVisitor: returning,
		IsFirstTimeVisitor: !returning,
		Visitor:            rec,
		VisitCount:         rec.VisitCount,
		InviteSent:         invited,
	}
	path := pathNewVisitor
	if returning {
		path = pathReturningVisitor
		out.Message = fmt.Sprintf("Welcome back, %s! This is your %s visit.", rec.FirstName, ordinal(rec.VisitCount))
	} else {
		out.Message = fmt.Sprintf("Welcome, %s! You've been checked in successfully.", rec.FirstName)
	}
	s.incrementQuickCheckIn(path)
	s.logInfo(ctx, "visitor checked in",
		"visitor_id", rec.ID,
		"service_id", svc.ID,
		"visit_count", rec.VisitCount,
		"returning", returning,
		"invite_sent", invited,
	)
	return out, nil
}

func (s *Service) checkInMember(ctx context.Context, m *directory.Member, req models.QuickCheckInRequest) (*models.CheckInOutcome, error) {
	method := attendanceModels.MethodManual
	if req.Source == models.SourceQRScan {
		method = attendanceModels.MethodQR
	}
	res, err := s.gate.SubmitCheckIn(ctx, attendanceModels.CheckInRequest{
		MemberID:  m.ID,
		ServiceID: req.ServiceID,
		Caller:    m.Caller(),
		Method:    method,
		Location:  req.Location,
		Device:    req.Device,
	})
	if err != nil {
		return nil, err
	}
	s.incrementQuickCheckIn(pathMember)
	return &models.CheckInOutcome{
		UserExists: true,
		CheckIn:    res,
		Message:    fmt.Sprintf("Welcome back, %s! You've been checked in successfully.", m.FirstName),
	}, nil
}

// recordReturnVisit appends visit to an existing record, adopting a newly
// supplied email.
func (s *Service) recordReturnVisit(ctx context.Context, rec *models.Record, email string, visit models.Attendance, now time.Time) (bool, error) {
	if rec.ConvertedToUser {
		return false, dErrors.New(dErrors.CodeAlreadyConverted, "visitor is already registered; please log in")
	}
	if rec.HasVisited(visit.ServiceID, visit.Date) {
		return false, dErrors.New(dErrors.CodeDuplicateCheckIn, "already checked in for this service today")
	}
	rec.RecordVisit(visit)
	if err := s.visitors.AddAttendance(ctx, rec.ID, visit); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return false, dErrors.New(dErrors.CodeDuplicateCheckIn, "already checked in for this service today")
		}
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record visit")
	}
	if rec.Email == "" && email != "" {
		rec.Email = email
	}
	invited, err := s.issueInvite(ctx, rec, now)
	if err != nil {
		return false, err
	}
	if err := s.visitors.Update(ctx, rec); err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update visitor")
	}
	return invited, nil
}

// issueInvite sets the one-shot invite guard on rec and queues the invite
// for after commit. It reports whether an invite was issued.
func (s *Service) issueInvite(ctx context.Context, rec *models.Record, now time.Time) (bool, error) {
	if !rec.NeedsInvite() {
		return false, nil
	}
	token, err := secrets.GenerateToken()
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate invite token")
	}
	rec.MarkInviteSent(token, now)

	n := notify.Notification{
		Kind:      notify.KindRegistrationInvite,
		Subject:   rec.ID.String(),
		Recipient: rec.Email,
		Payload: map[string]string{
			"first_name": rec.FirstName,
			"token":      token,
		},
		OccurredAt: now,
	}
	if s.inviteURL != "" {
		n.Payload["link"] = s.inviteURL + "?token=" + token
	}
	tx.AfterCommit(ctx, func() {
		if s.metrics != nil {
			s.metrics.IncrementInviteSent()
		}
		if s.notifier != nil {
			s.notifier.Notify(ctx, n)
		}
	})
	return true, nil
}

// CheckExistence reports whether a phone or email belongs to a member or
// a returning visitor.
func (s *Service) CheckExistence(ctx context.Context, phone, email string) (*models.Existence, error) {
	phone = strings.TrimSpace(phone)
	email = strings.ToLower(strings.TrimSpace(email))
	if phone == "" && email == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "phone number or email is required")
	}

	member, err := s.findMember(ctx, phone, email)
	if err != nil {
		return nil, err
	}
	if member != nil {
		return &models.Existence{
			Exists:           true,
			IsRegisteredUser: true,
			Name:             member.FullName(),
			MembershipID:     member.MembershipID,
		}, nil
	}

	rec, err := s.findVisitor(ctx, s.visitors.FindByPhone, phone)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		if rec, err = s.findVisitor(ctx, s.visitors.FindByEmail, email); err != nil {
			return nil, err
		}
	}
	if rec == nil {
		return &models.Existence{}, nil
	}
	return &models.Existence{
		Exists:             true,
		IsReturningVisitor: true,
		Name:               rec.FullName(),
		VisitCount:         rec.VisitCount,
		HasEmail:           rec.Email != "",
	}, nil
}

// DueForFollowUp lists unconverted visitors the outreach rules select now.
func (s *Service) DueForFollowUp(ctx context.Context, caller id.Caller) ([]*models.Record, error) {
	if !caller.Can(id.CapManageFollowUps) {
		return nil, dErrors.New(dErrors.CodeForbidden, "not authorized to view visitor follow-ups")
	}
	records, err := s.visitors.ListUnconverted(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list visitors")
	}
	now := requestcontext.Now(ctx)
	var due []*models.Record
	for _, r := range records {
		if r.DueForFollowUp(now) {
			due = append(due, r)
		}
	}
	return due, nil
}

func (s *Service) incrementQuickCheckIn(path string) {
	if s.metrics != nil {
		s.metrics.IncrementQuickCheckIn(path)
	}
}

func ordinal(n int) string {
	suffix := "th"
	switch n % 100 {
	case 11, 12, 13:
	default:
		switch n % 10 {
		case 1:
			suffix = "st"
		case 2:
			suffix = "nd"
		case 3:
			suffix = "rd"
		}
	}
	return fmt.Sprintf("%d%s", n, suffix)
}
