package models

import (
	"time"

	"flock/internal/directory"
	id "flock/pkg/domain"
	dErrors "flock/pkg/domain-errors"
	"flock/pkg/geo"
	"flock/pkg/platform/middleware/device"
)

// MaxNotesLength bounds free-text notes on an event.
const MaxNotesLength = 500

// Status of a presence record.
type Status string

const (
	StatusPresent Status = "present"
	StatusLate    Status = "late"
	StatusAbsent  Status = "absent"
	StatusExcused Status = "excused"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusPresent, StatusLate, StatusAbsent, StatusExcused:
		return true
	}
	return false
}

// Method is how a check-in was captured.
type Method string

const (
	MethodQR     Method = "qr"
	MethodManual Method = "manual"
	MethodNFC    Method = "nfc"
	MethodGPS    Method = "gps"
	MethodFacial Method = "facial"
	MethodAuto   Method = "auto"
)

func (m Method) IsValid() bool {
	switch m {
	case MethodQR, MethodManual, MethodNFC, MethodGPS, MethodFacial, MethodAuto:
		return true
	}
	return false
}

// ExceptionType classifies an administrative amendment.
type ExceptionType string

const (
	ExceptionCorrection     ExceptionType = "correction"
	ExceptionLateEntry      ExceptionType = "late_entry"
	ExceptionExcusedAbsence ExceptionType = "excused_absence"
	ExceptionTechnicalIssue ExceptionType = "technical_issue"
	ExceptionOther          ExceptionType = "other"
)

func (e ExceptionType) IsValid() bool {
	switch e {
	case ExceptionCorrection, ExceptionLateEntry, ExceptionExcusedAbsence,
		ExceptionTechnicalIssue, ExceptionOther:
		return true
	}
	return false
}

// CheckInEvent is one recorded presence of a member at a service occurrence.
// At most one non-deleted event exists per (MemberID, ServiceID, CalendarDate).
type CheckInEvent struct {
	ID                id.CheckInID  `json:"id"`
	MemberID          id.MemberID   `json:"member_id"`
	ServiceID         id.ServiceID  `json:"service_id"`
	CalendarDate      id.Date       `json:"calendar_date"`
	CheckInTime       time.Time     `json:"check_in_time"`
	CheckOutTime      *time.Time    `json:"check_out_time,omitempty"`
	Status            Status        `json:"status"`
	Method            Method        `json:"method"`
	SubmittedLocation *geo.Point    `json:"submitted_location,omitempty"`
	DistanceFromVenue int           `json:"distance_from_venue"`
	WithinGeofence    bool          `json:"within_geofence"`
	IsLate            bool          `json:"is_late"`
	MinutesLate       int           `json:"minutes_late"`
	Duration          *int          `json:"duration,omitempty"`
	Device            device.Info   `json:"device"`
	Notes             string        `json:"notes,omitempty"`
	IsManualEntry     bool          `json:"is_manual_entry"`
	ManualEntryReason string        `json:"manual_entry_reason,omitempty"`
	Migrated          bool          `json:"migrated"`
	IsDuplicate       bool          `json:"is_duplicate"`
	IsException       bool          `json:"is_exception"`
	ExceptionType     ExceptionType `json:"exception_type,omitempty"`
	ExceptionReason   string        `json:"exception_reason,omitempty"`
	ApprovedBy        *id.MemberID  `json:"approved_by,omitempty"`
	IsDeleted         bool          `json:"is_deleted"`
	DeletedAt         *time.Time    `json:"deleted_at,omitempty"`
	DeletedBy         *id.MemberID  `json:"deleted_by,omitempty"`
	DeleteReason      string        `json:"delete_reason,omitempty"`
	CreatedBy         id.MemberID   `json:"created_by"`
	UpdatedBy         *id.MemberID  `json:"updated_by,omitempty"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`
}

// EventOwnership resolves the member who owns a check-in event.
var EventOwnership = id.OwnedBy("check-in", func(e *CheckInEvent) id.MemberID { return e.MemberID })

// IsCheckedOut reports whether a checkout has been recorded.
func (e *CheckInEvent) IsCheckedOut() bool {
	return e.CheckOutTime != nil
}

// CheckOut records the checkout and the whole minutes spent, rounded.
func (e *CheckInEvent) CheckOut(at time.Time) error {
	if e.IsCheckedOut() {
		return dErrors.New(dErrors.CodeAlreadyCheckedOut, "already checked out")
	}
	out := at
	e.CheckOutTime = &out
	minutes := int((at.Sub(e.CheckInTime) + 30*time.Second) / time.Minute)
	if minutes < 0 {
		minutes = 0
	}
	e.Duration = &minutes
	e.UpdatedAt = at
	return nil
}

// Amendment is an administrative correction to an event.
type Amendment struct {
	Status          Status        `json:"status,omitempty"`
	Notes           string        `json:"notes,omitempty"`
	ExceptionType   ExceptionType `json:"exception_type,omitempty"`
	ExceptionReason string        `json:"exception_reason,omitempty"`
}

// Validate checks the amendment's enumerations and lengths.
func (a Amendment) Validate() error {
	if a.Status != "" && !a.Status.IsValid() {
		return dErrors.New(dErrors.CodeValidation, "invalid status")
	}
	if a.ExceptionType != "" && !a.ExceptionType.IsValid() {
		return dErrors.New(dErrors.CodeValidation, "invalid exception type")
	}
	if len(a.Notes) > MaxNotesLength {
		return dErrors.Newf(dErrors.CodeValidation, "notes cannot exceed %d characters", MaxNotesLength)
	}
	if a.Status == "" && a.Notes == "" && a.ExceptionType == "" {
		return dErrors.New(dErrors.CodeValidation, "amendment changes nothing")
	}
	return nil
}

// Apply writes the amendment onto e on behalf of approver.
func (e *CheckInEvent) Apply(a Amendment, approver id.MemberID, at time.Time) {
	if a.Status != "" {
		e.Status = a.Status
	}
	if a.Notes != "" {
		e.Notes = a.Notes
	}
	if a.ExceptionType != "" {
		e.IsException = true
		e.ExceptionType = a.ExceptionType
		e.ExceptionReason = a.ExceptionReason
		by := approver
		e.ApprovedBy = &by
	}
	by := approver
	e.UpdatedBy = &by
	e.UpdatedAt = at
}

// SoftDelete marks e deleted; events are never removed.
func (e *CheckInEvent) SoftDelete(by id.MemberID, reason string, at time.Time) {
	e.IsDeleted = true
	deletedAt := at
	e.DeletedAt = &deletedAt
	deletedBy := by
	e.DeletedBy = &deletedBy
	e.DeleteReason = reason
	e.UpdatedAt = at
}

// GeofenceMiss is the payload of an out-of-range rejection.
type GeofenceMiss struct {
	DistanceMeters       int `json:"distance_meters"`
	RequiredRadiusMeters int `json:"required_radius_meters"`
}

// CheckInRequest is a single member check-in submission.
type CheckInRequest struct {
	MemberID  id.MemberID
	ServiceID id.ServiceID
	Caller    id.Caller
	Method    Method
	Location  *geo.Point
	Device    device.Info
	Notes     string
}

// CheckInResult is a committed check-in and the member's refreshed stats.
type CheckInResult struct {
	Event   *CheckInEvent             `json:"attendance"`
	Stats   directory.AttendanceStats `json:"stats"`
	Message string                    `json:"message"`
}

// QRPayload is the JSON encoded in a member's QR code.
type QRPayload struct {
	UserID       string `json:"userId"`
	MembershipID string `json:"membershipId"`
}

// QRCheckInRequest is a scanned member QR code for a service.
type QRCheckInRequest struct {
	Payload   string
	ServiceID id.ServiceID
	Caller    id.Caller
	Location  *geo.Point
	Device    device.Info
}

// BulkCheckInRequest records manual entries for several members.
type BulkCheckInRequest struct {
	MemberIDs []id.MemberID
	ServiceID id.ServiceID
	Date      *id.Date
	Notes     string
}

// BulkEntry is one member's outcome within a bulk check-in.
type BulkEntry struct {
	MemberID id.MemberID   `json:"member_id"`
	EventID  *id.CheckInID `json:"attendance_id,omitempty"`
	Reason   string        `json:"reason,omitempty"`
}

// BulkResult partitions a bulk check-in by outcome.
type BulkResult struct {
	Succeeded []BulkEntry `json:"success"`
	Failed    []BulkEntry `json:"failed"`
}

// Summary aggregates the non-deleted events of one service occurrence.
type Summary struct {
	ServiceID        id.ServiceID `json:"service_id"`
	Date             id.Date      `json:"date"`
	TotalAttendance  int          `json:"total_attendance"`
	Present          int          `json:"present"`
	Late             int          `json:"late"`
	Absent           int          `json:"absent"`
	Excused          int          `json:"excused"`
	AverageDuration  float64      `json:"average_duration"`
	TotalMinutesLate int          `json:"total_minutes_late"`
}

// Summarize folds events into a Summary. Deleted events are skipped.
func Summarize(serviceID id.ServiceID, date id.Date, events []*CheckInEvent) Summary {
	s := Summary{ServiceID: serviceID, Date: date}
	var durationSum, durationCount int
	for _, e := range events {
		if e.IsDeleted {
			continue
		}
		s.TotalAttendance++
		switch e.Status {
		case StatusPresent:
			s.Present++
		case StatusLate:
			s.Late++
		case StatusAbsent:
			s.Absent++
		case StatusExcused:
			s.Excused++
		}
		if e.Duration != nil {
			durationSum += *e.Duration
			durationCount++
		}
		s.TotalMinutesLate += e.MinutesLate
	}
	if durationCount > 0 {
		s.AverageDuration = float64(durationSum) / float64(durationCount)
	}
	return s
}

const (
	DefaultListLimit       = 50
	DefaultOccurrenceLimit = 100
	MaxListLimit           = 200
)

// EventFilter narrows a listing of live events. Nil and empty fields match
// everything; From and To are inclusive.
type EventFilter struct {
	ServiceID *id.ServiceID
	MemberID  *id.MemberID
	From      *id.Date
	To        *id.Date
	Status    Status
	Method    Method
	Page      int
	Limit     int
}

// Normalize validates the filter and fills paging defaults, using
// defaultLimit when no limit was asked for.
func (f *EventFilter) Normalize(defaultLimit int) error {
	if f.Status != "" && !f.Status.IsValid() {
		return dErrors.New(dErrors.CodeValidation, "invalid status")
	}
	if f.Method != "" && !f.Method.IsValid() {
		return dErrors.New(dErrors.CodeValidation, "invalid method")
	}
	if f.From != nil && f.To != nil && f.To.Before(*f.From) {
		return dErrors.New(dErrors.CodeValidation, "end date is before start date")
	}
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = defaultLimit
	}
	f.Limit = min(f.Limit, MaxListLimit)
	return nil
}

// Offset is the number of matches skipped before the page.
func (f EventFilter) Offset() int {
	return max(f.Page-1, 0) * f.Limit
}

// Matches reports whether e is live and passes every set field.
func (f EventFilter) Matches(e *CheckInEvent) bool {
	switch {
	case e.IsDeleted:
		return false
	case f.ServiceID != nil && e.ServiceID != *f.ServiceID:
		return false
	case f.MemberID != nil && e.MemberID != *f.MemberID:
		return false
	case f.From != nil && e.CalendarDate.Before(*f.From):
		return false
	case f.To != nil && f.To.Before(e.CalendarDate):
		return false
	case f.Status != "" && e.Status != f.Status:
		return false
	case f.Method != "" && e.Method != f.Method:
		return false
	}
	return true
}

// CompareNewest orders events by calendar date, then check-in time, newest
// first.
func CompareNewest(a, b *CheckInEvent) int {
	switch {
	case a.CalendarDate.Before(b.CalendarDate):
		return 1
	case b.CalendarDate.Before(a.CalendarDate):
		return -1
	}
	return b.CheckInTime.Compare(a.CheckInTime)
}

// EventPage is one page of a filtered listing.
type EventPage struct {
	Events []*CheckInEvent `json:"attendance"`
	Total  int             `json:"total"`
	Page   int             `json:"page"`
	Pages  int             `json:"pages"`
}

// NewEventPage wraps one page of matches.
func NewEventPage(events []*CheckInEvent, total int, f EventFilter) *EventPage {
	if events == nil {
		events = []*CheckInEvent{}
	}
	pages := 0
	if f.Limit > 0 {
		pages = (total + f.Limit - 1) / f.Limit
	}
	return &EventPage{Events: events, Total: total, Page: f.Page, Pages: pages}
}

// OccurrenceAttendance is a page of one occurrence's records with the
// summary of all of them.
type OccurrenceAttendance struct {
	Summary Summary `json:"summary"`
	*EventPage
}

// Clone returns a deep copy.
func (e *CheckInEvent) Clone() *CheckInEvent {
	c := *e
	c.CheckOutTime = clonePtr(e.CheckOutTime)
	c.SubmittedLocation = clonePtr(e.SubmittedLocation)
	c.Duration = clonePtr(e.Duration)
	c.ApprovedBy = clonePtr(e.ApprovedBy)
	c.DeletedAt = clonePtr(e.DeletedAt)
	c.DeletedBy = clonePtr(e.DeletedBy)
	c.UpdatedBy = clonePtr(e.UpdatedBy)
	return &c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
