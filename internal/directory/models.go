// Package directory holds the member and service-catalog records the
// attendance core reads and, for member statistics, rewrites.
package directory

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	id "flock/pkg/domain"
	"flock/pkg/geo"
)

// Defaults applied when a service leaves them unset.
const (
	DefaultLateThresholdMinutes = 15
	DefaultGeofenceRadiusMeters = 500
)

// AttendanceStats is the rolling attendance summary embedded in a member.
// It only changes in the same unit of work as the check-in or absence that
// caused the change.
type AttendanceStats struct {
	TotalServices       int        `json:"total_services"`
	TotalPresent        int        `json:"total_present"`
	TotalAbsent         int        `json:"total_absent"`
	TotalLate           int        `json:"total_late"`
	AttendanceRate      int        `json:"attendance_rate"`
	ConsecutiveAbsences int        `json:"consecutive_absences"`
	LastAttendance      *time.Time `json:"last_attendance,omitempty"`
	EngagementScore     int        `json:"engagement_score"`
}

// ApplyCheckIn records one attended service. Late arrivals count as present
// and are also counted in TotalLate. A backdated entry never moves
// LastAttendance backwards.
func (s *AttendanceStats) ApplyCheckIn(at time.Time, late bool) {
	s.TotalServices++
	s.TotalPresent++
	if late {
		s.TotalLate++
	}
	s.ConsecutiveAbsences = 0
	if s.LastAttendance == nil || at.After(*s.LastAttendance) {
		last := at
		s.LastAttendance = &last
	}
	s.recomputeRate()
}

// RevertCheckIn removes one attended service counted by ApplyCheckIn.
// LastAttendance and ConsecutiveAbsences are left as they are.
func (s *AttendanceStats) RevertCheckIn(late bool) {
	s.TotalServices = max(s.TotalServices-1, 0)
	s.TotalPresent = max(s.TotalPresent-1, 0)
	if late {
		s.TotalLate = max(s.TotalLate-1, 0)
	}
	s.recomputeRate()
}

// ApplyAbsence records one expected-but-missed occurrence.
func (s *AttendanceStats) ApplyAbsence() {
	s.ConsecutiveAbsences++
	s.TotalAbsent++
}

func (s *AttendanceStats) recomputeRate() {
	if s.TotalServices == 0 {
		s.AttendanceRate = 0
		return
	}
	s.AttendanceRate = int(math.Round(float64(s.TotalPresent) / float64(s.TotalServices) * 100))
}

// SeedFromHistory initialises stats for a member created with n prior
// attended services, the latest at last.
func SeedFromHistory(n int, last *time.Time) AttendanceStats {
	s := AttendanceStats{TotalServices: n, TotalPresent: n}
	if last != nil {
		t := *last
		s.LastAttendance = &t
	}
	s.recomputeRate()
	return s
}

// Profile is optional personal data supplied at registration.
type Profile struct {
	Gender      string `json:"gender,omitempty"`
	DateOfBirth string `json:"date_of_birth,omitempty"`
	Address     string `json:"address,omitempty"`
}

// Member is a registered congregant.
type Member struct {
	ID            id.MemberID       `json:"id"`
	MembershipID  string            `json:"membership_id"`
	FirstName     string            `json:"first_name"`
	LastName      string            `json:"last_name"`
	Email         string            `json:"email,omitempty"`
	Phone         string            `json:"phone,omitempty"`
	PasswordHash  string            `json:"-"`
	Role          id.Role           `json:"role"`
	IsActive      bool              `json:"is_active"`
	IsWorker      bool              `json:"is_worker"`
	IsMinister    bool              `json:"is_minister"`
	DepartmentIDs []id.DepartmentID `json:"department_ids,omitempty"`
	Profile       Profile           `json:"profile"`
	Stats         AttendanceStats   `json:"attendance_stats"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

func (m *Member) FullName() string {
	return strings.TrimSpace(m.FirstName + " " + m.LastName)
}

// Caller is the identity a member acts under.
func (m *Member) Caller() id.Caller {
	return id.Caller{ID: m.ID, Role: m.Role}
}

// Clone returns a deep copy.
func (m *Member) Clone() *Member {
	c := *m
	c.DepartmentIDs = slices.Clone(m.DepartmentIDs)
	if m.Stats.LastAttendance != nil {
		t := *m.Stats.LastAttendance
		c.Stats.LastAttendance = &t
	}
	return &c
}

// RosterRule selects who is expected at a service. With AllMembers set it
// selects every active non-visitor; otherwise a member is expected when any
// of the other selectors matches.
type RosterRule struct {
	AllMembers    bool              `json:"all_members"`
	Workers       bool              `json:"workers"`
	Ministers     bool              `json:"ministers"`
	DepartmentIDs []id.DepartmentID `json:"department_ids,omitempty"`
}

// Includes reports whether m is expected under the rule.
func (r RosterRule) Includes(m *Member) bool {
	if !m.IsActive || m.Role == id.RoleVisitor {
		return false
	}
	if r.AllMembers {
		return true
	}
	if r.Workers && m.IsWorker {
		return true
	}
	if r.Ministers && m.IsMinister {
		return true
	}
	for _, d := range m.DepartmentIDs {
		if slices.Contains(r.DepartmentIDs, d) {
			return true
		}
	}
	return false
}

// OccurrenceStats aggregates how often a service has been held.
type OccurrenceStats struct {
	TotalOccurrences int      `json:"total_occurrences"`
	LastOccurrence   *id.Date `json:"last_occurrence,omitempty"`
}

// Record counts date as an occurrence once.
func (s *OccurrenceStats) Record(date id.Date) {
	if s.LastOccurrence != nil && *s.LastOccurrence == date {
		return
	}
	s.TotalOccurrences++
	d := date
	s.LastOccurrence = &d
}

// Service is a recurring service occurrence in the catalog.
type Service struct {
	ID                   id.ServiceID    `json:"id"`
	Name                 string          `json:"name"`
	IsActive             bool            `json:"is_active"`
	StartTime            string          `json:"start_time"`
	EndTime              string          `json:"end_time"`
	TimeZone             string          `json:"time_zone"`
	DaysOfWeek           []time.Weekday  `json:"days_of_week"`
	LateThresholdMinutes int             `json:"late_threshold_minutes"`
	Venue                geo.Point       `json:"venue"`
	GeofenceRadiusMeters int             `json:"geofence_radius_meters"`
	RequireGPS           bool            `json:"require_gps"`
	RequiredFor          RosterRule      `json:"required_for"`
	Stats                OccurrenceStats `json:"stats"`
	CreatedAt            time.Time       `json:"created_at"`
}

// Location returns the service's time zone, UTC when unset or unknown.
func (s *Service) Location() *time.Location {
	if s.TimeZone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(s.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// StartOn returns the instant the service starts on date.
func (s *Service) StartOn(date id.Date) (time.Time, error) {
	h, m, err := parseClock(s.StartTime)
	if err != nil {
		return time.Time{}, fmt.Errorf("service %s start time: %w", s.ID, err)
	}
	return date.At(h, m, s.Location()), nil
}

// EndOn returns the instant the service ends on date.
func (s *Service) EndOn(date id.Date) (time.Time, error) {
	h, m, err := parseClock(s.EndTime)
	if err != nil {
		return time.Time{}, fmt.Errorf("service %s end time: %w", s.ID, err)
	}
	return date.At(h, m, s.Location()), nil
}

// OccursOn reports whether the service is scheduled on date's weekday.
func (s *Service) OccursOn(date id.Date) bool {
	return slices.Contains(s.DaysOfWeek, date.Weekday())
}

// LateThreshold returns the configured threshold or the default.
func (s *Service) LateThreshold() int {
	if s.LateThresholdMinutes <= 0 {
		return DefaultLateThresholdMinutes
	}
	return s.LateThresholdMinutes
}

// GeofenceRadius returns the configured radius or the default.
func (s *Service) GeofenceRadius() int {
	if s.GeofenceRadiusMeters <= 0 {
		return DefaultGeofenceRadiusMeters
	}
	return s.GeofenceRadiusMeters
}

func (s *Service) Clone() *Service {
	c := *s
	c.DaysOfWeek = slices.Clone(s.DaysOfWeek)
	c.RequiredFor.DepartmentIDs = slices.Clone(s.RequiredFor.DepartmentIDs)
	if s.Stats.LastOccurrence != nil {
		d := *s.Stats.LastOccurrence
		c.Stats.LastOccurrence = &d
	}
	return &c
}

// parseClock parses "HH:MM" in 24-hour form.
func parseClock(s string) (int, int, error) {
	hh, mm, ok := strings.Cut(s, ":")
	if !ok {
		return 0, 0, fmt.Errorf("clock %q must be HH:MM", s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return 0, 0, fmt.Errorf("clock %q has an invalid hour", s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 {
		return 0, 0, fmt.Errorf("clock %q has an invalid minute", s)
	}
	return h, m, nil
}
