package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	absenceModels "flock/internal/absence/models"
	attendanceModels "flock/internal/attendance/models"
	"flock/internal/directory"
	followupModels "flock/internal/followup/models"
	visitorModels "flock/internal/visitor/models"
	id "flock/pkg/domain"
	"flock/pkg/platform/sentinel"
	"flock/pkg/platform/tx"
)

type StoreSuite struct {
	suite.Suite
	store *Store
	ctx   context.Context
	now   time.Time
}

func TestStoreSuite(t *testing.T) {
	suite.Run(t, new(StoreSuite))
}

func (s *StoreSuite) SetupTest() {
	s.store = New()
	s.ctx = context.Background()
	s.now = time.Date(2026, 3, 8, 9, 0, 0, 0, time.UTC)
}

func (s *StoreSuite) newMember(phone string) *directory.Member {
	return &directory.Member{
		ID:        id.NewMemberID(),
		FirstName: "Ada",
		LastName:  "Obi",
		Phone:     phone,
		Role:      id.RoleMember,
		IsActive:  true,
		CreatedAt: s.now,
	}
}

func (s *StoreSuite) newEvent(memberID id.MemberID, serviceID id.ServiceID) *attendanceModels.CheckInEvent {
	return &attendanceModels.CheckInEvent{
		ID:           id.NewCheckInID(),
		MemberID:     memberID,
		ServiceID:    serviceID,
		CalendarDate: id.DateOf(s.now, time.UTC),
		CheckInTime:  s.now,
		Status:       attendanceModels.StatusPresent,
		Method:       attendanceModels.MethodQR,
	}
}

func (s *StoreSuite) TestRunInTx() {
	s.Run("failed unit of work restores prior state", func() {
		m := s.newMember("+2348000000001")
		boom := errors.New("boom")

		err := s.store.RunInTx(s.ctx, func(ctx context.Context) error {
			s.Require().NoError(s.store.Members().Create(ctx, m))
			s.Require().NoError(s.store.Events().Create(ctx, s.newEvent(m.ID, id.NewServiceID())))
			return boom
		})
		s.Require().ErrorIs(err, boom)

		_, err = s.store.Members().FindByID(s.ctx, m.ID)
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("nested call joins the outer unit of work", func() {
		m := s.newMember("+2348000000002")
		boom := errors.New("boom")

		err := s.store.RunInTx(s.ctx, func(ctx context.Context) error {
			innerErr := s.store.RunInTx(ctx, func(ctx context.Context) error {
				return s.store.Members().Create(ctx, m)
			})
			s.Require().NoError(innerErr)
			return boom
		})
		s.Require().ErrorIs(err, boom)

		_, err = s.store.Members().FindByID(s.ctx, m.ID)
		s.ErrorIs(err, sentinel.ErrNotFound, "inner write must roll back with the outer")
	})

	s.Run("after-commit hooks run only on success", func() {
		var fired []string
		_ = s.store.RunInTx(s.ctx, func(ctx context.Context) error {
			tx.AfterCommit(ctx, func() { fired = append(fired, "rolled back") })
			return errors.New("boom")
		})
		err := s.store.RunInTx(s.ctx, func(ctx context.Context) error {
			return s.store.RunInTx(ctx, func(ctx context.Context) error {
				tx.AfterCommit(ctx, func() { fired = append(fired, "committed") })
				s.Empty(fired)
				return nil
			})
		})
		s.Require().NoError(err)
		s.Equal([]string{"committed"}, fired)
	})

	s.Run("cancelled context is rejected", func() {
		ctx, cancel := context.WithCancel(s.ctx)
		cancel()
		called := false
		err := s.store.RunInTx(ctx, func(context.Context) error {
			called = true
			return nil
		})
		s.Error(err)
		s.False(called)
	})
}

func (s *StoreSuite) TestReadsAreIsolatedCopies() {
	m := s.newMember("+2348000000003")
	s.Require().NoError(s.store.Members().Create(s.ctx, m))

	found, err := s.store.Members().FindByID(s.ctx, m.ID)
	s.Require().NoError(err)
	found.FirstName = "mutated"

	again, err := s.store.Members().FindByID(s.ctx, m.ID)
	s.Require().NoError(err)
	s.Equal("Ada", again.FirstName)
}

func (s *StoreSuite) TestMembers() {
	members := s.store.Members()
	older := s.newMember("+2348000000010")
	older.Email = "ada@example.com"
	s.Require().NoError(members.Create(s.ctx, older))

	s.Run("duplicate phone conflicts", func() {
		err := members.Create(s.ctx, s.newMember("+2348000000010"))
		s.ErrorIs(err, sentinel.ErrConflict)
	})

	s.Run("lookup by email is case-insensitive", func() {
		found, err := members.FindByPhoneOrEmail(s.ctx, "", "ADA@example.com")
		s.Require().NoError(err)
		s.Equal(older.ID, found.ID)
	})

	s.Run("coordinator is the oldest active admin", func() {
		_, err := members.FindCoordinator(s.ctx)
		s.ErrorIs(err, sentinel.ErrNotFound)

		first := s.newMember("+2348000000011")
		first.Role = id.RoleAdmin
		first.CreatedAt = s.now.Add(-time.Hour)
		second := s.newMember("+2348000000012")
		second.Role = id.RoleAdmin
		s.Require().NoError(members.Create(s.ctx, second))
		s.Require().NoError(members.Create(s.ctx, first))

		found, err := members.FindCoordinator(s.ctx)
		s.Require().NoError(err)
		s.Equal(first.ID, found.ID)
	})

	s.Run("roster excludes inactive members", func() {
		inactive := s.newMember("+2348000000013")
		inactive.IsActive = false
		s.Require().NoError(members.Create(s.ctx, inactive))

		roster, err := members.ListRoster(s.ctx, directory.RosterRule{AllMembers: true})
		s.Require().NoError(err)
		for _, m := range roster {
			s.NotEqual(inactive.ID, m.ID)
		}
	})

	s.Run("stats update is persisted", func() {
		stats := directory.AttendanceStats{TotalServices: 4, TotalPresent: 3, AttendanceRate: 75}
		s.Require().NoError(members.UpdateStats(s.ctx, older.ID, stats))
		found, err := members.FindByID(s.ctx, older.ID)
		s.Require().NoError(err)
		s.Equal(75, found.Stats.AttendanceRate)

		s.ErrorIs(members.UpdateStats(s.ctx, id.NewMemberID(), stats), sentinel.ErrNotFound)
	})
}

func (s *StoreSuite) TestEvents() {
	events := s.store.Events()
	memberID, serviceID := id.NewMemberID(), id.NewServiceID()
	date := id.DateOf(s.now, time.UTC)

	first := s.newEvent(memberID, serviceID)
	s.Require().NoError(events.Create(s.ctx, first))

	s.Run("second live event for the occurrence conflicts", func() {
		err := events.Create(s.ctx, s.newEvent(memberID, serviceID))
		s.ErrorIs(err, sentinel.ErrConflict)
	})

	s.Run("soft delete frees the occurrence", func() {
		first.SoftDelete(id.NewMemberID(), "Deleted by admin", s.now)
		s.Require().NoError(events.Update(s.ctx, first))

		_, err := events.FindActive(s.ctx, memberID, serviceID, date)
		s.ErrorIs(err, sentinel.ErrNotFound)

		replacement := s.newEvent(memberID, serviceID)
		s.Require().NoError(events.Create(s.ctx, replacement))

		ids, err := events.AttendeeIDs(s.ctx, serviceID, date)
		s.Require().NoError(err)
		s.Equal([]id.MemberID{memberID}, ids)

		listed, err := events.ListByOccurrence(s.ctx, serviceID, date)
		s.Require().NoError(err)
		s.Require().Len(listed, 1)
		s.Equal(replacement.ID, listed[0].ID)
	})
}

func (s *StoreSuite) TestConcurrentCreateAdmitsOneEvent() {
	memberID, serviceID := id.NewMemberID(), id.NewServiceID()
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
	)
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.store.RunInTx(s.ctx, func(ctx context.Context) error {
				return s.store.Events().Create(ctx, s.newEvent(memberID, serviceID))
			})
			if err == nil {
				mu.Lock()
				accepted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	s.Equal(1, accepted)
}

func (s *StoreSuite) TestTasks() {
	tasks := s.store.Tasks()
	memberID, coordinator := id.NewMemberID(), id.NewMemberID()
	missed := []followupModels.MissedOccurrence{{ServiceID: id.NewServiceID(), Date: id.DateOf(s.now, time.UTC)}}

	task := followupModels.NewAbsenceTask(memberID, missed, &coordinator, s.now)
	s.Require().NoError(tasks.Create(s.ctx, task))

	s.Run("one open absence task per member", func() {
		err := tasks.Create(s.ctx, followupModels.NewAbsenceTask(memberID, missed, nil, s.now))
		s.ErrorIs(err, sentinel.ErrConflict)
	})

	s.Run("open task is listed for its assignee", func() {
		open, err := tasks.ListOpenByAssignee(s.ctx, coordinator)
		s.Require().NoError(err)
		s.Len(open, 1)
	})

	s.Run("closing the task allows a new one", func() {
		s.Require().NoError(task.Cancel("moved away", s.now))
		s.Require().NoError(tasks.Update(s.ctx, task))

		_, err := tasks.FindOpen(s.ctx, memberID, followupModels.ReasonConsecutiveAbsences)
		s.ErrorIs(err, sentinel.ErrNotFound)
		s.NoError(tasks.Create(s.ctx, followupModels.NewAbsenceTask(memberID, missed, nil, s.now)))
	})
}

func (s *StoreSuite) TestTaskSearch() {
	tasks := s.store.Tasks()
	memberID, mine, theirs := id.NewMemberID(), id.NewMemberID(), id.NewMemberID()
	create := func(assignee id.MemberID, priority followupModels.Priority, due time.Duration) *followupModels.Task {
		t := followupModels.NewManualTask(followupModels.ManualTask{
			MemberID:   memberID,
			Reason:     followupModels.ReasonPrayerRequest,
			Priority:   priority,
			AssignedTo: assignee,
			DueDate:    s.now.Add(due),
		}, assignee, s.now)
		s.Require().NoError(tasks.Create(s.ctx, t))
		return t
	}
	medium := create(mine, followupModels.PriorityMedium, time.Hour)
	highLater := create(mine, followupModels.PriorityHigh, 3*time.Hour)
	highSooner := create(mine, followupModels.PriorityHigh, 2*time.Hour)
	create(theirs, followupModels.PriorityUrgent, time.Hour)

	s.Run("most urgent first, then soonest due", func() {
		page, total, err := tasks.Search(s.ctx, followupModels.TaskFilter{AssignedTo: &mine, Page: 1, Limit: 10})
		s.Require().NoError(err)
		s.Equal(3, total)
		s.Require().Len(page, 3)
		s.Equal([]id.TaskID{highSooner.ID, highLater.ID, medium.ID}, []id.TaskID{page[0].ID, page[1].ID, page[2].ID})
	})

	s.Run("pages past the end are empty", func() {
		page, total, err := tasks.Search(s.ctx, followupModels.TaskFilter{Page: 3, Limit: 2})
		s.Require().NoError(err)
		s.Equal(4, total)
		s.Empty(page)
	})

	s.Run("priority filter", func() {
		page, total, err := tasks.Search(s.ctx, followupModels.TaskFilter{Priority: followupModels.PriorityUrgent, Page: 1, Limit: 10})
		s.Require().NoError(err)
		s.Equal(1, total)
		s.Require().Len(page, 1)
		s.Equal(theirs, *page[0].AssignedTo)
	})
}

func (s *StoreSuite) TestVisitors() {
	visitors := s.store.Visitors()
	serviceID := id.NewServiceID()
	date := id.DateOf(s.now, time.UTC)
	record := &visitorModels.Record{
		ID:        id.NewVisitorID(),
		FirstName: "Tolu",
		Phone:     "+2348000000020",
		Email:     "tolu@example.com",
		Source:    visitorModels.SourceQRScan,
		CreatedAt: s.now,
	}
	record.RecordVisit(visitorModels.Attendance{ServiceID: serviceID, Date: date, CheckInTime: s.now})
	s.Require().NoError(visitors.Create(s.ctx, record))

	s.Run("phone is unique", func() {
		dup := record.Clone()
		dup.ID = id.NewVisitorID()
		s.ErrorIs(visitors.Create(s.ctx, dup), sentinel.ErrConflict)
	})

	s.Run("one visit per occurrence", func() {
		err := visitors.AddAttendance(s.ctx, record.ID, visitorModels.Attendance{ServiceID: serviceID, Date: date, CheckInTime: s.now})
		s.ErrorIs(err, sentinel.ErrConflict)
	})

	s.Run("update keeps stored attendances", func() {
		next := visitorModels.Attendance{ServiceID: serviceID, Date: id.DateOf(s.now.AddDate(0, 0, 7), time.UTC), CheckInTime: s.now.AddDate(0, 0, 7)}
		s.Require().NoError(visitors.AddAttendance(s.ctx, record.ID, next))

		found, err := visitors.FindByPhone(s.ctx, record.Phone)
		s.Require().NoError(err)
		found.RecordVisit(next)
		found.MarkInviteSent("token-1", next.CheckInTime)
		s.Require().NoError(visitors.Update(s.ctx, found))

		byToken, err := visitors.FindByInviteToken(s.ctx, "token-1")
		s.Require().NoError(err)
		s.Len(byToken.Attendances, 2)
		s.Equal(2, byToken.VisitCount)
	})
}

func (s *StoreSuite) TestAbsences() {
	absences := s.store.Absences()
	memberID, serviceID := id.NewMemberID(), id.NewServiceID()
	day := func(offset int) id.Date { return id.DateOf(s.now.AddDate(0, 0, offset), time.UTC) }

	for _, offset := range []int{-14, 0, -7} {
		s.Require().NoError(absences.Record(s.ctx, absenceModels.Absence{MemberID: memberID, ServiceID: serviceID, Date: day(offset), RecordedAt: s.now}))
	}

	s.Run("duplicate absence conflicts", func() {
		err := absences.Record(s.ctx, absenceModels.Absence{MemberID: memberID, ServiceID: serviceID, Date: day(0)})
		s.ErrorIs(err, sentinel.ErrConflict)
	})

	s.Run("recent is newest first and limited", func() {
		recent, err := absences.Recent(s.ctx, memberID, 2)
		s.Require().NoError(err)
		s.Require().Len(recent, 2)
		s.Equal(day(0), recent[0].Date)
		s.Equal(day(-7), recent[1].Date)
	})

	s.Run("run is stored once", func() {
		report := &absenceModels.Report{ServiceID: serviceID, Date: day(0), TotalExpected: 3}
		s.Require().NoError(absences.SaveRun(s.ctx, report))
		s.ErrorIs(absences.SaveRun(s.ctx, report), sentinel.ErrConflict)

		found, err := absences.FindRun(s.ctx, serviceID, day(0))
		s.Require().NoError(err)
		s.Equal(3, found.TotalExpected)
	})
}
