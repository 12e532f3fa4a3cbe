package models

import (
	"slices"
	"strings"
	"time"

	attendanceModels "flock/internal/attendance/models"
	"flock/internal/directory"
	id "flock/pkg/domain"
	"flock/pkg/geo"
	"flock/pkg/platform/middleware/device"
)

// MigratedNote is written on every event created from visitor history.
const MigratedNote = "migrated from visitor record"

// Source is how a visitor first reached check-in.
type Source string

const (
	SourceQRScan   Source = "qr_scan"
	SourceManual   Source = "manual"
	SourceLink     Source = "link"
	SourceReferral Source = "referral"
	SourceWalkIn   Source = "walk_in"
)

func (s Source) IsValid() bool {
	switch s {
	case SourceQRScan, SourceManual, SourceLink, SourceReferral, SourceWalkIn:
		return true
	}
	return false
}

// Attendance is one visit recorded against a visitor record.
type Attendance struct {
	ServiceID   id.ServiceID `json:"service_id"`
	Date        id.Date      `json:"date"`
	CheckInTime time.Time    `json:"check_in_time"`
}

// Record tracks an unregistered walk-in by phone number. Once converted it
// is frozen.
type Record struct {
	ID                       id.VisitorID `json:"id"`
	FirstName                string       `json:"first_name"`
	LastName                 string       `json:"last_name"`
	Phone                    string       `json:"phone"`
	Email                    string       `json:"email,omitempty"`
	Attendances              []Attendance `json:"attendances"`
	VisitCount               int          `json:"visit_count"`
	FirstVisit               time.Time    `json:"first_visit"`
	LastVisit                time.Time    `json:"last_visit"`
	Source                   Source       `json:"source"`
	Device                   device.Info  `json:"device"`
	RegistrationInviteToken  string       `json:"-"`
	RegistrationInviteSent   bool         `json:"registration_invite_sent"`
	RegistrationInviteSentAt *time.Time   `json:"registration_invite_sent_at,omitempty"`
	ConvertedToUser          bool         `json:"converted_to_user"`
	LinkedMemberID           *id.MemberID `json:"linked_member_id,omitempty"`
	ConversionDate           *time.Time   `json:"conversion_date,omitempty"`
	CreatedAt                time.Time    `json:"created_at"`
	UpdatedAt                time.Time    `json:"updated_at"`
}

func (r *Record) FullName() string {
	return strings.TrimSpace(r.FirstName + " " + r.LastName)
}

// HasVisited reports whether the visitor already checked in to serviceID on date.
func (r *Record) HasVisited(serviceID id.ServiceID, date id.Date) bool {
	return slices.ContainsFunc(r.Attendances, func(a Attendance) bool {
		return a.ServiceID == serviceID && a.Date == date
	})
}

// RecordVisit appends a visit and advances the counters.
func (r *Record) RecordVisit(a Attendance) {
	r.Attendances = append(r.Attendances, a)
	r.VisitCount++
	if r.FirstVisit.IsZero() {
		r.FirstVisit = a.CheckInTime
	}
	r.LastVisit = a.CheckInTime
	r.UpdatedAt = a.CheckInTime
}

// NeedsInvite reports whether a registration invite should go out now: the
// record has an email and no invite has ever been sent.
func (r *Record) NeedsInvite() bool {
	return r.Email != "" && !r.RegistrationInviteSent && !r.ConvertedToUser
}

// MarkInviteSent sets the one-shot invite guard.
func (r *Record) MarkInviteSent(token string, at time.Time) {
	r.RegistrationInviteToken = token
	r.RegistrationInviteSent = true
	sentAt := at
	r.RegistrationInviteSentAt = &sentAt
}

// MarkConverted links the record to its member; the transition is one-way.
func (r *Record) MarkConverted(memberID id.MemberID, at time.Time) {
	r.ConvertedToUser = true
	linked := memberID
	r.LinkedMemberID = &linked
	converted := at
	r.ConversionDate = &converted
	r.UpdatedAt = at
}

// DaysSinceLastVisit is the whole days since the last visit.
func (r *Record) DaysSinceLastVisit(now time.Time) int {
	if r.LastVisit.IsZero() || now.Before(r.LastVisit) {
		return 0
	}
	return int(now.Sub(r.LastVisit) / (24 * time.Hour))
}

// DueForFollowUp applies the outreach rules: a single visit more than 3 days
// ago, three or more visits with none in 14 days, or an unconverted visitor
// with an email and two or more visits absent for more than 7 days.
func (r *Record) DueForFollowUp(now time.Time) bool {
	if r.ConvertedToUser {
		return false
	}
	days := r.DaysSinceLastVisit(now)
	switch {
	case r.VisitCount == 1 && days > 3:
		return true
	case r.VisitCount >= 3 && days > 14:
		return true
	case r.Email != "" && r.VisitCount >= 2 && days > 7:
		return true
	}
	return false
}

func (r *Record) Clone() *Record {
	c := *r
	c.Attendances = slices.Clone(r.Attendances)
	if r.RegistrationInviteSentAt != nil {
		t := *r.RegistrationInviteSentAt
		c.RegistrationInviteSentAt = &t
	}
	if r.LinkedMemberID != nil {
		m := *r.LinkedMemberID
		c.LinkedMemberID = &m
	}
	if r.ConversionDate != nil {
		t := *r.ConversionDate
		c.ConversionDate = &t
	}
	return &c
}

// Identity is what an unauthenticated walk-in supplies.
type Identity struct {
	FirstName string `json:"first_name" validate:"required,max=50"`
	LastName  string `json:"last_name" validate:"required,max=50"`
	Phone     string `json:"phone" validate:"required,min=7,max=20"`
	Email     string `json:"email,omitempty" validate:"omitempty,email,max=254"`
}

// Normalize trims whitespace and lower-cases the email.
func (i *Identity) Normalize() {
	i.FirstName = strings.TrimSpace(i.FirstName)
	i.LastName = strings.TrimSpace(i.LastName)
	i.Phone = strings.TrimSpace(i.Phone)
	i.Email = strings.ToLower(strings.TrimSpace(i.Email))
}

// QuickCheckInRequest is a walk-in check-in submission.
type QuickCheckInRequest struct {
	Identity  Identity
	ServiceID id.ServiceID
	Location  *geo.Point
	Source    Source
	Device    device.Info
}

// CheckInOutcome reports which identity path a quick check-in took.
type CheckInOutcome struct {
	UserExists         bool                            `json:"user_exists"`
	IsReturningVisitor bool                            `json:"is_returning_visitor"`
	IsFirstTimeVisitor bool                            `json:"is_first_time_visitor"`
	CheckIn            *attendanceModels.CheckInResult `json:"check_in,omitempty"`
	Visitor            *Record                         `json:"visitor,omitempty"`
	VisitCount         int                             `json:"visit_count,omitempty"`
	InviteSent         bool                            `json:"invite_sent"`
	Message            string                          `json:"message"`
}

// AdditionalInfo is optional profile data supplied at registration.
type AdditionalInfo struct {
	Gender      string `json:"gender,omitempty" validate:"omitempty,oneof=male female"`
	DateOfBirth string `json:"date_of_birth,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Address     string `json:"address,omitempty" validate:"omitempty,max=200"`
}

// Registration is the result of converting a visitor.
type Registration struct {
	Member            *directory.Member `json:"member"`
	AttendanceHistory int               `json:"attendance_history"`
}

// Existence answers whether a phone or email is already known.
type Existence struct {
	Exists             bool   `json:"exists"`
	IsRegisteredUser   bool   `json:"is_registered_user"`
	IsReturningVisitor bool   `json:"is_returning_visitor"`
	Name               string `json:"name,omitempty"`
	MembershipID       string `json:"membership_id,omitempty"`
	VisitCount         int    `json:"visit_count,omitempty"`
	HasEmail           bool   `json:"has_email,omitempty"`
}
