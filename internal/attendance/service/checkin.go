package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"flock/internal/attendance/engagement"
	"flock/internal/attendance/models"
	"flock/internal/directory"
	id "flock/pkg/domain"
	dErrors "flock/pkg/domain-errors"
	"flock/pkg/geo"
	"flock/pkg/platform/sentinel"
	"flock/pkg/requestcontext"
)

const (
	defaultBulkReason = "Bulk check-in"
	maxBulkMembers    = 500
)

// SubmitCheckIn validates and commits one presence event. The event, the
// member's statistics and the service's occurrence statistics are written
// in a single unit of work.
func (s *Service) SubmitCheckIn(ctx context.Context, req models.CheckInRequest) (_ *models.CheckInResult, err error) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "attendance.SubmitCheckIn")
	defer func() {
		s.incrementRejected(err)
		s.observeCheckIn(start)
		endSpan(span, err)
	}()
	span.SetAttributes(
		attribute.String("member_id", req.MemberID.String()),
		attribute.String("service_id", req.ServiceID.String()),
	)

	if req.Method == "" {
		req.Method = models.MethodManual
	}
	if !req.Method.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation, "invalid check-in method")
	}
	if len(req.Notes) > models.MaxNotesLength {
		return nil, dErrors.Newf(dErrors.CodeValidation, "notes cannot exceed %d characters", models.MaxNotesLength)
	}

	svc, err := s.loadActiveService(ctx, req.ServiceID)
	if err != nil {
		return nil, err
	}
	member, err := s.loadMember(ctx, req.MemberID)
	if err != nil {
		return nil, err
	}
	if !member.IsActive {
		return nil, dErrors.New(dErrors.CodeForbidden, "member account is inactive")
	}
	if req.Caller.ID != member.ID && !req.Caller.Can(id.CapManageAnyCheckIn) {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "not authorized to check in this member")
	}

	now := requestcontext.Now(ctx)
	date := id.DateOf(now, svc.Location())

	startsAt, err := svc.StartOn(date)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "service schedule is invalid")
	}
	minutesLate := max(0, int(math.Floor(now.Sub(startsAt).Minutes())))
	isLate := minutesLate > svc.LateThreshold()

	fence, err := checkGeofence(svc, req.Caller, req.Location)
	if err != nil {
		return nil, err
	}

	if _, err := s.events.FindActive(ctx, member.ID, svc.ID, date); err == nil {
		return nil, dErrors.New(dErrors.CodeDuplicateCheckIn, "already checked in for this service today")
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check existing attendance")
	}

	status := models.StatusPresent
	if isLate {
		status = models.StatusLate
	}
	event := &models.CheckInEvent{
		ID:                id.NewCheckInID(),
		MemberID:          member.ID,
		ServiceID:         svc.ID,
		CalendarDate:      date,
		CheckInTime:       now,
		Status:            status,
		Method:            req.Method,
		SubmittedLocation: req.Location,
		DistanceFromVenue: fence.distance,
		WithinGeofence:    fence.within,
		IsLate:            isLate,
		MinutesLate:       minutesLate,
		Device:            req.Device,
		Notes:             req.Notes,
		CreatedBy:         req.Caller.ID,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if event.CreatedBy.IsNil() {
		event.CreatedBy = member.ID
	}

	stats, err := s.commitCheckIn(ctx, event, now)
	if err != nil {
		return nil, err
	}

	s.incrementAccepted(event)
	s.logInfo(ctx, "check-in recorded",
		"member_id", member.ID,
		"service_id", svc.ID,
		"date", date,
		"status", status,
		"minutes_late", minutesLate,
		"distance_meters", fence.distance,
	)

	msg := "Check-in successful"
	if isLate {
		msg = fmt.Sprintf("Check-in successful. You are %d minutes late.", minutesLate)
	}
	return &models.CheckInResult{Event: event, Stats: stats, Message: msg}, nil
}

// commitCheckIn writes event and the statistics it implies. A uniqueness
// violation on the event becomes DuplicateCheckIn and nothing is written.
func (s *Service) commitCheckIn(ctx context.Context, event *models.CheckInEvent, now time.Time) (directory.AttendanceStats, error) {
	var stats directory.AttendanceStats
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.events.Create(ctx, event); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.New(dErrors.CodeDuplicateCheckIn, "already checked in for this service today")
			}
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "member or service not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save attendance")
		}

		member, err := s.loadMember(ctx, event.MemberID)
		if err != nil {
			return err
		}
		stats = member.Stats
		stats.ApplyCheckIn(event.CheckInTime, event.IsLate)
		score, err := engagement.Score(stats.AttendanceRate, stats.LastAttendance, now)
		if err != nil {
			return err
		}
		stats.EngagementScore = score

		if err := s.members.UpdateStats(ctx, member.ID, stats); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update member statistics")
		}
		if err := s.services.RecordOccurrence(ctx, event.ServiceID, event.CalendarDate); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update service statistics")
		}
		return nil
	})
	return stats, err
}

type geofenceResult struct {
	distance int
	within   bool
}

// checkGeofence measures the submitted location against the venue. Only
// services that require GPS reject; callers allowed to override the
// geofence pass but their distance is still recorded.
func checkGeofence(svc *directory.Service, caller id.Caller, loc *geo.Point) (geofenceResult, error) {
	override := caller.Can(id.CapOverrideGeofence)
	if loc == nil {
		if svc.RequireGPS && !override {
			return geofenceResult{}, dErrors.New(dErrors.CodeValidation, "location is required for this service")
		}
		return geofenceResult{}, nil
	}
	if err := loc.Validate(); err != nil {
		return geofenceResult{}, dErrors.Wrap(err, dErrors.CodeValidation, "invalid location")
	}

	radius := svc.GeofenceRadius()
	distance := int(math.Round(geo.Distance(*loc, svc.Venue)))
	res := geofenceResult{distance: distance, within: distance <= radius}
	if svc.RequireGPS && !res.within && !override {
		return res, dErrors.WithDetails(dErrors.CodeOutOfRange,
			fmt.Sprintf("you are %dm from the venue; check-in is allowed within %dm", distance, radius),
			models.GeofenceMiss{DistanceMeters: distance, RequiredRadiusMeters: radius})
	}
	return res, nil
}

// QRCheckIn checks in the member encoded in a scanned QR code. The code
// must name a member whose id and membership id agree.
func (s *Service) QRCheckIn(ctx context.Context, req models.QRCheckInRequest) (*models.CheckInResult, error) {
	if req.Caller.ID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "caller is required")
	}
	var payload models.QRPayload
	if err := json.Unmarshal([]byte(req.Payload), &payload); err != nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "invalid QR code")
	}
	memberID, err := id.ParseMemberID(payload.UserID)
	if err != nil || payload.MembershipID == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "invalid QR code")
	}

	member, err := s.members.FindByMembershipID(ctx, payload.MembershipID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "member not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load member")
	}
	if member.ID != memberID {
		return nil, dErrors.New(dErrors.CodeValidation, "QR code does not match member")
	}

	caller := req.Caller
	if caller.ID != member.ID && !caller.Can(id.CapManageAnyCheckIn) {
		// A scanned code is the member's credential.
		caller = member.Caller()
	}
	return s.SubmitCheckIn(ctx, models.CheckInRequest{
		MemberID:  member.ID,
		ServiceID: req.ServiceID,
		Caller:    caller,
		Method:    models.MethodQR,
		Location:  req.Location,
		Device:    req.Device,
	})
}

// BulkCheckIn records manual entries for several members. Each member is
// committed on its own, so one failure does not affect the others.
func (s *Service) BulkCheckIn(ctx context.Context, caller id.Caller, req models.BulkCheckInRequest) (_ *models.BulkResult, err error) {
	ctx, span := tracer.Start(ctx, "attendance.BulkCheckIn")
	defer func() { endSpan(span, err) }()

	if !caller.Can(id.CapManageAnyCheckIn) {
		return nil, dErrors.New(dErrors.CodeForbidden, "bulk check-in requires an administrator")
	}
	if len(req.MemberIDs) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "at least one member is required")
	}
	if len(req.MemberIDs) > maxBulkMembers {
		return nil, dErrors.Newf(dErrors.CodeValidation, "at most %d members per bulk check-in", maxBulkMembers)
	}
	if len(req.Notes) > models.MaxNotesLength {
		return nil, dErrors.Newf(dErrors.CodeValidation, "notes cannot exceed %d characters", models.MaxNotesLength)
	}

	svc, err := s.loadActiveService(ctx, req.ServiceID)
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	today := id.DateOf(now, svc.Location())
	date := today
	checkInTime := now
	if req.Date != nil && *req.Date != today {
		if today.Before(*req.Date) {
			return nil, dErrors.New(dErrors.CodeValidation, "date cannot be in the future")
		}
		date = *req.Date
		if checkInTime, err = svc.StartOn(date); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "service schedule is invalid")
		}
	}
	reason := req.Notes
	if reason == "" {
		reason = defaultBulkReason
	}
	if s.metrics != nil {
		s.metrics.ObserveBulkSize(len(req.MemberIDs))
	}

	result := &models.BulkResult{Succeeded: []models.BulkEntry{}, Failed: []models.BulkEntry{}}
	for _, memberID := range req.MemberIDs {
		eventID, err := s.bulkOne(ctx, caller, svc, memberID, date, checkInTime, now, reason)
		if err != nil {
			result.Failed = append(result.Failed, models.BulkEntry{MemberID: memberID, Reason: bulkFailureReason(err)})
			continue
		}
		result.Succeeded = append(result.Succeeded, models.BulkEntry{MemberID: memberID, EventID: &eventID})
	}

	s.logInfo(ctx, "bulk check-in processed",
		"service_id", svc.ID,
		"date", date,
		"succeeded", len(result.Succeeded),
		"failed", len(result.Failed),
		"admin_id", caller.ID,
	)
	return result, nil
}

func (s *Service) bulkOne(ctx context.Context, caller id.Caller, svc *directory.Service, memberID id.MemberID, date id.Date, checkInTime, now time.Time, reason string) (id.CheckInID, error) {
	member, err := s.loadMember(ctx, memberID)
	if err != nil {
		return id.CheckInID{}, err
	}
	if !member.IsActive {
		return id.CheckInID{}, dErrors.New(dErrors.CodeForbidden, "member account is inactive")
	}
	if _, err := s.events.FindActive(ctx, memberID, svc.ID, date); err == nil {
		return id.CheckInID{}, dErrors.New(dErrors.CodeDuplicateCheckIn, "already checked in")
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return id.CheckInID{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check existing attendance")
	}

	event := &models.CheckInEvent{
		ID:                id.NewCheckInID(),
		MemberID:          memberID,
		ServiceID:         svc.ID,
		CalendarDate:      date,
		CheckInTime:       checkInTime,
		Status:            models.StatusPresent,
		Method:            models.MethodManual,
		IsManualEntry:     true,
		ManualEntryReason: reason,
		CreatedBy:         caller.ID,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if _, err := s.commitCheckIn(ctx, event, now); err != nil {
		return id.CheckInID{}, err
	}
	s.incrementAccepted(event)
	return event.ID, nil
}

func bulkFailureReason(err error) string {
	switch dErrors.CodeOf(err) {
	case dErrors.CodeNotFound:
		return "member not found"
	case dErrors.CodeDuplicateCheckIn:
		return "already checked in"
	case dErrors.CodeForbidden:
		return "member account is inactive"
	default:
		return "internal error"
	}
}
