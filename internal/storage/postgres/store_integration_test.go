//go:build integration

package postgres_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	absenceModels "flock/internal/absence/models"
	attendanceModels "flock/internal/attendance/models"
	"flock/internal/directory"
	followupModels "flock/internal/followup/models"
	"flock/internal/storage/postgres"
	visitorModels "flock/internal/visitor/models"
	id "flock/pkg/domain"
	"flock/pkg/geo"
	"flock/pkg/platform/sentinel"
	"flock/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *postgres.Store
	now      time.Time
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.Require().NoError(postgres.Migrate(context.Background(), s.postgres.DB))
	s.store = postgres.New(s.postgres.DB)
	s.now = time.Date(2026, 3, 8, 9, 0, 0, 0, time.UTC)
}

func (s *PostgresStoreSuite) SetupTest() {
	err := s.postgres.TruncateTables(context.Background(),
		"absence_runs", "absences", "visitor_attendances", "visitors",
		"follow_up_tasks", "check_in_events", "services", "members")
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) seed() (*directory.Member, *directory.Service) {
	ctx := context.Background()
	member := &directory.Member{
		ID:        id.NewMemberID(),
		FirstName: "Ada",
		LastName:  "Obi",
		Phone:     "+2348000000001",
		Role:      id.RoleWorker,
		IsActive:  true,
		IsWorker:  true,
		CreatedAt: s.now,
		UpdatedAt: s.now,
	}
	svc := &directory.Service{
		ID:          id.NewServiceID(),
		Name:        "Sunday Service",
		IsActive:    true,
		StartTime:   "09:00",
		EndTime:     "11:00",
		TimeZone:    "Africa/Lagos",
		DaysOfWeek:  []time.Weekday{time.Sunday},
		Venue:       geo.Point{Lat: 6.5244, Lon: 3.3792},
		RequiredFor: directory.RosterRule{Workers: true},
		CreatedAt:   s.now,
	}
	s.Require().NoError(s.store.Members().Create(ctx, member))
	s.Require().NoError(s.store.Services().Create(ctx, svc))
	return member, svc
}

func (s *PostgresStoreSuite) newEvent(memberID id.MemberID, serviceID id.ServiceID) *attendanceModels.CheckInEvent {
	return &attendanceModels.CheckInEvent{
		ID:                id.NewCheckInID(),
		MemberID:          memberID,
		ServiceID:         serviceID,
		CalendarDate:      id.DateOf(s.now, time.UTC),
		CheckInTime:       s.now,
		Status:            attendanceModels.StatusPresent,
		Method:            attendanceModels.MethodGPS,
		SubmittedLocation: &geo.Point{Lat: 6.5245, Lon: 3.3793},
		WithinGeofence:    true,
		CreatedBy:         memberID,
		CreatedAt:         s.now,
		UpdatedAt:         s.now,
	}
}

// TestConcurrentCheckInAdmitsOne verifies the partial unique index serialises
// simultaneous check-ins for one occurrence.
func (s *PostgresStoreSuite) TestConcurrentCheckInAdmitsOne() {
	member, svc := s.seed()
	const goroutines = 20

	var (
		wg        sync.WaitGroup
		succeeded atomic.Int32
		conflicts atomic.Int32
	)
	for range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.store.RunInTx(context.Background(), func(ctx context.Context) error {
				return s.store.Events().Create(ctx, s.newEvent(member.ID, svc.ID))
			})
			switch {
			case err == nil:
				succeeded.Add(1)
			case errors.Is(err, sentinel.ErrConflict):
				conflicts.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), succeeded.Load())
	s.Equal(int32(goroutines-1), conflicts.Load())
}

func (s *PostgresStoreSuite) TestEventRoundTripAndSoftDelete() {
	ctx := context.Background()
	member, svc := s.seed()
	event := s.newEvent(member.ID, svc.ID)
	s.Require().NoError(s.store.Events().Create(ctx, event))

	found, err := s.store.Events().FindActive(ctx, member.ID, svc.ID, event.CalendarDate)
	s.Require().NoError(err)
	s.Require().NotNil(found.SubmittedLocation)
	s.InDelta(6.5245, found.SubmittedLocation.Lat, 1e-9)

	found.SoftDelete(member.ID, "Deleted by admin", s.now.Add(time.Hour))
	s.Require().NoError(s.store.Events().Update(ctx, found))

	_, err = s.store.Events().FindActive(ctx, member.ID, svc.ID, event.CalendarDate)
	s.ErrorIs(err, sentinel.ErrNotFound)
	s.NoError(s.store.Events().Create(ctx, s.newEvent(member.ID, svc.ID)), "deleted event frees the slot")
}

func (s *PostgresStoreSuite) TestEventSearch() {
	ctx := context.Background()
	member, svc := s.seed()

	thisWeek := s.newEvent(member.ID, svc.ID)
	lastWeek := s.newEvent(member.ID, svc.ID)
	lastWeek.CalendarDate = thisWeek.CalendarDate.AddDays(-7)
	lastWeek.CheckInTime = s.now.Add(-7 * 24 * time.Hour)
	lastWeek.Status = attendanceModels.StatusLate
	deleted := s.newEvent(member.ID, svc.ID)
	deleted.CalendarDate = thisWeek.CalendarDate.AddDays(-14)
	deleted.SoftDelete(member.ID, "duplicate", s.now)
	for _, e := range []*attendanceModels.CheckInEvent{thisWeek, lastWeek, deleted} {
		s.Require().NoError(s.store.Events().Create(ctx, e))
	}

	s.Run("newest first without deleted events", func() {
		events, total, err := s.store.Events().Search(ctx, attendanceModels.EventFilter{ServiceID: &svc.ID, Page: 1, Limit: 10})
		s.Require().NoError(err)
		s.Equal(2, total)
		s.Require().Len(events, 2)
		s.Equal(thisWeek.ID, events[0].ID)
		s.Equal(lastWeek.ID, events[1].ID)
	})

	s.Run("date range and status", func() {
		events, total, err := s.store.Events().Search(ctx, attendanceModels.EventFilter{
			From:   &lastWeek.CalendarDate,
			To:     &lastWeek.CalendarDate,
			Status: attendanceModels.StatusLate,
			Page:   1,
			Limit:  10,
		})
		s.Require().NoError(err)
		s.Equal(1, total)
		s.Require().Len(events, 1)
		s.Equal(lastWeek.ID, events[0].ID)
	})

	s.Run("second page", func() {
		events, total, err := s.store.Events().Search(ctx, attendanceModels.EventFilter{MemberID: &member.ID, Page: 2, Limit: 1})
		s.Require().NoError(err)
		s.Equal(2, total)
		s.Require().Len(events, 1)
		s.Equal(lastWeek.ID, events[0].ID)
	})
}

func (s *PostgresStoreSuite) TestRosterAndStats() {
	ctx := context.Background()
	member, svc := s.seed()

	roster, err := s.store.Members().ListRoster(ctx, svc.RequiredFor)
	s.Require().NoError(err)
	s.Require().Len(roster, 1)
	s.Equal(member.ID, roster[0].ID)

	stats := member.Stats
	stats.ApplyCheckIn(s.now, false)
	s.Require().NoError(s.store.Members().UpdateStats(ctx, member.ID, stats))
	s.Require().NoError(s.store.Services().RecordOccurrence(ctx, svc.ID, id.DateOf(s.now, time.UTC)))
	s.Require().NoError(s.store.Services().RecordOccurrence(ctx, svc.ID, id.DateOf(s.now, time.UTC)))

	reloaded, err := s.store.Members().FindByID(ctx, member.ID)
	s.Require().NoError(err)
	s.Equal(100, reloaded.Stats.AttendanceRate)
	s.Require().NotNil(reloaded.Stats.LastAttendance)

	reloadedSvc, err := s.store.Services().FindByID(ctx, svc.ID)
	s.Require().NoError(err)
	s.Equal(1, reloadedSvc.Stats.TotalOccurrences)
}

func (s *PostgresStoreSuite) TestOneOpenAbsenceTaskPerMember() {
	ctx := context.Background()
	member, svc := s.seed()
	missed := []followupModels.MissedOccurrence{{ServiceID: svc.ID, Date: id.DateOf(s.now, time.UTC)}}

	task := followupModels.NewAbsenceTask(member.ID, missed, nil, s.now)
	s.Require().NoError(s.store.Tasks().Create(ctx, task))
	s.ErrorIs(s.store.Tasks().Create(ctx, followupModels.NewAbsenceTask(member.ID, missed, nil, s.now)), sentinel.ErrConflict)

	open, err := s.store.Tasks().FindOpen(ctx, member.ID, followupModels.ReasonConsecutiveAbsences)
	s.Require().NoError(err)
	s.Equal(missed, open.MissedOccurrences)

	s.Require().NoError(open.Complete(followupModels.OutcomeMemberReturned, "", s.now))
	s.Require().NoError(s.store.Tasks().Update(ctx, open))
	s.NoError(s.store.Tasks().Create(ctx, followupModels.NewAbsenceTask(member.ID, missed, nil, s.now)))
}

func (s *PostgresStoreSuite) TestTaskSearch() {
	ctx := context.Background()
	member, _ := s.seed()
	coordinator := id.NewMemberID()

	manual := func(reason followupModels.Reason, priority followupModels.Priority, due time.Duration) *followupModels.Task {
		t := followupModels.NewManualTask(followupModels.ManualTask{
			MemberID:     member.ID,
			Reason:       reason,
			CustomReason: "called in",
			Priority:     priority,
			AssignedTo:   coordinator,
			DueDate:      s.now.Add(due),
			Notes:        "prefers evenings",
		}, coordinator, s.now)
		s.Require().NoError(s.store.Tasks().Create(ctx, t))
		return t
	}
	low := manual(followupModels.ReasonBirthday, followupModels.PriorityLow, time.Hour)
	urgentLate := manual(followupModels.ReasonPrayerRequest, followupModels.PriorityUrgent, 48*time.Hour)
	urgentSoon := manual(followupModels.ReasonCustom, followupModels.PriorityUrgent, 24*time.Hour)

	tasks, total, err := s.store.Tasks().Search(ctx, followupModels.TaskFilter{AssignedTo: &coordinator, Page: 1, Limit: 2})
	s.Require().NoError(err)
	s.Equal(3, total)
	s.Require().Len(tasks, 2)
	s.Equal(urgentSoon.ID, tasks[0].ID)
	s.Equal(urgentLate.ID, tasks[1].ID)
	s.Equal("called in", tasks[0].CustomReason)
	s.Equal("prefers evenings", tasks[0].Notes)
	s.Require().NotNil(tasks[0].AssignedBy)
	s.Equal(coordinator, *tasks[0].AssignedBy)

	tasks, total, err = s.store.Tasks().Search(ctx, followupModels.TaskFilter{Priority: followupModels.PriorityLow, Page: 1, Limit: 20})
	s.Require().NoError(err)
	s.Equal(1, total)
	s.Require().Len(tasks, 1)
	s.Equal(low.ID, tasks[0].ID)
}

func (s *PostgresStoreSuite) TestVisitorAttendances() {
	ctx := context.Background()
	_, svc := s.seed()
	date := id.DateOf(s.now, time.UTC)

	record := &visitorModels.Record{
		ID:        id.NewVisitorID(),
		FirstName: "Tolu",
		LastName:  "Ade",
		Phone:     "+2348000000099",
		Source:    visitorModels.SourceManual,
		CreatedAt: s.now,
	}
	record.RecordVisit(visitorModels.Attendance{ServiceID: svc.ID, Date: date, CheckInTime: s.now})
	s.Require().NoError(s.store.Visitors().Create(ctx, record))

	err := s.store.Visitors().AddAttendance(ctx, record.ID, visitorModels.Attendance{ServiceID: svc.ID, Date: date, CheckInTime: s.now})
	s.ErrorIs(err, sentinel.ErrConflict)

	found, err := s.store.Visitors().FindByPhone(ctx, record.Phone)
	s.Require().NoError(err)
	s.Require().Len(found.Attendances, 1)
	s.Equal(date, found.Attendances[0].Date)
	s.Equal(1, found.VisitCount)
}

func (s *PostgresStoreSuite) TestAbsenceRunsAreWrittenOnce() {
	ctx := context.Background()
	member, svc := s.seed()
	date := id.DateOf(s.now, time.UTC)

	report := &absenceModels.Report{
		ServiceID:     svc.ID,
		Date:          date,
		TotalExpected: 1,
		Absentees:     []absenceModels.Absentee{{MemberID: member.ID, Name: member.FullName(), ConsecutiveAbsences: 1}},
		EvaluatedAt:   s.now,
	}
	s.Require().NoError(s.store.Absences().SaveRun(ctx, report))
	s.ErrorIs(s.store.Absences().SaveRun(ctx, report), sentinel.ErrConflict)

	found, err := s.store.Absences().FindRun(ctx, svc.ID, date)
	s.Require().NoError(err)
	s.Equal(report.Absentees, found.Absentees)
}
