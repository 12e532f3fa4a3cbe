package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"flock/internal/attendance/engagement"
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

// CompleteRegistration converts the visitor holding token into a member.
// The member, one migrated event per visitor attendance and the converted
// flag are written in one unit of work; the conversion cannot be undone
// and a second attempt with the same token fails AlreadyConverted.
func (s *Service) CompleteRegistration(ctx context.Context, token, password string, info models.AdditionalInfo) (_ *models.Registration, err error) {
	ctx, span := tracer.Start(ctx, "visitor.CompleteRegistration")
	defer func() {
		if err != nil && s.metrics != nil {
			s.metrics.IncrementConversionFailure(string(dErrors.CodeOf(err)))
		}
		endSpan(span, err)
	}()

	token = strings.TrimSpace(token)
	if token == "" {
		return nil, dErrors.New(dErrors.CodeInvalidToken, "invalid or expired registration token")
	}
	if password == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "password is required")
	}
	if err := validation.Struct(info); err != nil {
		return nil, err
	}
	hash, err := secrets.HashPassword(password)
	if err != nil {
		return nil, err
	}

	var reg *models.Registration
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		rec, err := s.visitors.FindByInviteToken(ctx, token)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeInvalidToken, "invalid or expired registration token")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load visitor")
		}
		if rec.ConvertedToUser {
			return dErrors.New(dErrors.CodeAlreadyConverted, "this invitation has already been used; please log in")
		}

		now := requestcontext.Now(ctx)
		member, err := memberFromVisitor(rec, hash, info, now)
		if err != nil {
			return err
		}
		if err := s.members.Create(ctx, member); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.New(dErrors.CodeConflict, "a member with this phone or email already exists")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create member")
		}

		for _, a := range rec.Attendances {
			if err := s.events.Create(ctx, migratedEvent(member.ID, a, now)); err != nil {
				if errors.Is(err, sentinel.ErrConflict) {
					return dErrors.New(dErrors.CodeConflict, "visitor attendance already migrated")
				}
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to migrate visitor attendance")
			}
		}

		rec.MarkConverted(member.ID, now)
		if err := s.visitors.Update(ctx, rec); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update visitor")
		}

		reg = &models.Registration{Member: member, AttendanceHistory: len(rec.Attendances)}
		tx.AfterCommit(ctx, func() { s.sendWelcome(ctx, member, now) })
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.IncrementConversion(reg.AttendanceHistory)
	}
	s.logInfo(ctx, "visitor converted to member",
		"member_id", reg.Member.ID,
		"membership_id", reg.Member.MembershipID,
		"migrated_events", reg.AttendanceHistory,
	)
	return reg, nil
}

// memberFromVisitor seeds a member from the visitor's identity and history.
func memberFromVisitor(rec *models.Record, passwordHash string, info models.AdditionalInfo, now time.Time) (*directory.Member, error) {
	var last *time.Time
	if !rec.LastVisit.IsZero() {
		t := rec.LastVisit
		last = &t
	}
	stats := directory.SeedFromHistory(len(rec.Attendances), last)
	score, err := engagement.Score(stats.AttendanceRate, stats.LastAttendance, now)
	if err != nil {
		return nil, err
	}
	stats.EngagementScore = score

	return &directory.Member{
		ID:           id.NewMemberID(),
		MembershipID: newMembershipID(now),
		FirstName:    rec.FirstName,
		LastName:     rec.LastName,
		Email:        rec.Email,
		Phone:        rec.Phone,
		PasswordHash: passwordHash,
		Role:         id.RoleMember,
		IsActive:     true,
		Profile: directory.Profile{
			Gender:      info.Gender,
			DateOfBirth: info.DateOfBirth,
			Address:     info.Address,
		},
		Stats:     stats,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func migratedEvent(memberID id.MemberID, a models.Attendance, now time.Time) *attendanceModels.CheckInEvent {
	return &attendanceModels.CheckInEvent{
		ID:           id.NewCheckInID(),
		MemberID:     memberID,
		ServiceID:    a.ServiceID,
		CalendarDate: a.Date,
		CheckInTime:  a.CheckInTime,
		Status:       attendanceModels.StatusPresent,
		Method:       attendanceModels.MethodManual,
		Notes:        models.MigratedNote,
		Migrated:     true,
		CreatedBy:    memberID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// newMembershipID returns an identifier like FLK-2024-3F9A1C2B.
func newMembershipID(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("FLK-%d-%s", now.Year(), suffix)
}

func (s *Service) sendWelcome(ctx context.Context, m *directory.Member, now time.Time) {
	if s.notifier == nil || m.Email == "" {
		return
	}
	qr, err := json.Marshal(attendanceModels.QRPayload{UserID: m.ID.String(), MembershipID: m.MembershipID})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to encode member QR payload", "member_id", m.ID, "error", err)
		return
	}
	s.notifier.Notify(ctx, notify.Notification{
		Kind:      notify.KindWelcome,
		Subject:   m.ID.String(),
		Recipient: m.Email,
		Payload: map[string]string{
			"name":          m.FullName(),
			"membership_id": m.MembershipID,
			"qr_data":       string(qr),
		},
		OccurredAt: now,
	})
}
