package service

//go:generate mockgen -source=notifier.go -destination=mocks/mocks.go -package=mocks Notifier

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"flock/internal/directory"
	"flock/internal/followup/models"
	"flock/internal/followup/service/mocks"
	"flock/internal/notify"
	"flock/internal/storage/memory"
	id "flock/pkg/domain"
	dErrors "flock/pkg/domain-errors"
	"flock/pkg/requestcontext"
)

type FollowUpSuite struct {
	suite.Suite
	ctrl        *gomock.Controller
	notifier    *mocks.MockNotifier
	store       *memory.Store
	service     *Service
	now         time.Time
	ctx         context.Context
	coordinator *directory.Member
	pastor      *directory.Member
	member      *directory.Member
	sunday      id.ServiceID
}

func TestFollowUpSuite(t *testing.T) {
	suite.Run(t, new(FollowUpSuite))
}

func (s *FollowUpSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.notifier = mocks.NewMockNotifier(s.ctrl)
	s.store = memory.New()
	s.service = New(s.store.Tasks(), s.store.Members(), s.store, WithNotifier(s.notifier))
	s.now = time.Date(2024, 6, 2, 12, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
	s.sunday = id.NewServiceID()

	s.coordinator = s.newMember("+2348000000001", id.RoleAdmin, s.now.Add(-72*time.Hour))
	s.pastor = s.newMember("+2348000000002", id.RolePastor, s.now.Add(-48*time.Hour))
	s.member = s.newMember("+2348000000003", id.RoleMember, s.now.Add(-24*time.Hour))
}

func (s *FollowUpSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *FollowUpSuite) newMember(phone string, role id.Role, created time.Time) *directory.Member {
	m := &directory.Member{
		ID:        id.NewMemberID(),
		FirstName: "Grace",
		LastName:  phone,
		Phone:     phone,
		Role:      role,
		IsActive:  true,
		CreatedAt: created,
	}
	s.Require().NoError(s.store.Members().Create(context.Background(), m))
	return m
}

func (s *FollowUpSuite) missed(days ...int) []models.MissedOccurrence {
	out := make([]models.MissedOccurrence, 0, len(days))
	for _, d := range days {
		out = append(out, models.MissedOccurrence{ServiceID: s.sunday, Date: id.Date{Year: 2024, Month: time.June, Day: d}})
	}
	return out
}

func (s *FollowUpSuite) openTask() *models.Task {
	s.notifier.EXPECT().Notify(gomock.Any(), gomock.Any())
	task, err := s.service.CreateOrUpdateAutoFollowUp(s.ctx, s.member.ID, s.missed(1, 2))
	s.Require().NoError(err)
	return task
}

// -----------------------------------------------------------------------------
// CreateOrUpdateAutoFollowUp
// -----------------------------------------------------------------------------

func (s *FollowUpSuite) TestCreateOrUpdateAutoFollowUp() {
	var first *models.Task

	s.Run("two misses open a medium task due in two days", func() {
		s.notifier.EXPECT().Notify(gomock.Any(), gomock.Any()).Do(func(_ context.Context, n notify.Notification) {
			s.Equal(notify.KindFollowUpAssigned, n.Kind)
			s.Equal(s.coordinator.ID.String(), n.Recipient)
			s.Equal("2", n.Payload["consecutive_absences"])
		})

		task, err := s.service.CreateOrUpdateAutoFollowUp(s.ctx, s.member.ID, s.missed(1, 2))
		s.Require().NoError(err)
		s.Equal(models.PriorityMedium, task.Priority)
		s.Equal(models.StatusPending, task.Status)
		s.Equal(s.now.Add(48*time.Hour), task.DueDate)
		s.Equal(2, task.ConsecutiveAbsences)
		s.Require().NotNil(task.AssignedTo)
		s.Equal(s.coordinator.ID, *task.AssignedTo, "oldest active admin coordinates")
		first = task
	})

	s.Run("a third miss updates the same task to high", func() {
		task, err := s.service.CreateOrUpdateAutoFollowUp(s.ctx, s.member.ID, s.missed(1, 2, 3))
		s.Require().NoError(err)
		s.Equal(first.ID, task.ID)
		s.Equal(models.PriorityHigh, task.Priority)
		s.Equal(3, task.ConsecutiveAbsences)
		s.Len(task.MissedOccurrences, 3)

		open, err := s.store.Tasks().ListOpenByAssignee(context.Background(), s.coordinator.ID)
		s.Require().NoError(err)
		s.Len(open, 1)
	})

	s.Run("a closed task lets a new one open", func() {
		_, err := s.service.Complete(s.ctx, first.ID, s.coordinator.Caller(), models.OutcomeMemberReturned, "")
		s.Require().NoError(err)

		s.notifier.EXPECT().Notify(gomock.Any(), gomock.Any())
		task, err := s.service.CreateOrUpdateAutoFollowUp(s.ctx, s.member.ID, s.missed(9, 16))
		s.Require().NoError(err)
		s.NotEqual(first.ID, task.ID)
	})

	s.Run("empty missed list", func() {
		_, err := s.service.CreateOrUpdateAutoFollowUp(s.ctx, s.member.ID, nil)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *FollowUpSuite) TestNoCoordinatorLeavesTaskUnassigned() {
	store := memory.New()
	svc := New(store.Tasks(), store.Members(), store, WithNotifier(s.notifier))

	task, err := svc.CreateOrUpdateAutoFollowUp(s.ctx, s.member.ID, s.missed(1, 2))
	s.Require().NoError(err)
	s.Nil(task.AssignedTo)
}

func (s *FollowUpSuite) TestRolledBackUnitOfWorkSendsNothing() {
	boom := errors.New("evaluation failed")
	err := s.store.RunInTx(s.ctx, func(ctx context.Context) error {
		_, err := s.service.CreateOrUpdateAutoFollowUp(ctx, s.member.ID, s.missed(1, 2))
		s.Require().NoError(err)
		return boom
	})
	s.Require().ErrorIs(err, boom)

	_, err = s.store.Tasks().FindOpen(context.Background(), s.member.ID, models.ReasonConsecutiveAbsences)
	s.Error(err)
}

func (s *FollowUpSuite) TestNotificationWaitsForOuterCommit() {
	var notified bool
	s.notifier.EXPECT().Notify(gomock.Any(), gomock.Any()).Do(func(context.Context, notify.Notification) {
		notified = true
	})

	err := s.store.RunInTx(s.ctx, func(ctx context.Context) error {
		_, err := s.service.CreateOrUpdateAutoFollowUp(ctx, s.member.ID, s.missed(1, 2))
		s.Require().NoError(err)
		s.False(notified, "notification must not fire inside the unit of work")
		return nil
	})
	s.Require().NoError(err)
	s.True(notified)
}

// -----------------------------------------------------------------------------
// Lifecycle
// -----------------------------------------------------------------------------

func (s *FollowUpSuite) TestAddContactAttempt() {
	task := s.openTask()

	s.Run("members cannot log attempts", func() {
		_, err := s.service.AddContactAttempt(s.ctx, task.ID, s.member.Caller(), models.ContactAttempt{
			Method: models.ContactCall, Outcome: models.ContactNoResponse,
		})
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("no response keeps the task pending", func() {
		got, err := s.service.AddContactAttempt(s.ctx, task.ID, s.pastor.Caller(), models.ContactAttempt{
			Method: models.ContactCall, Outcome: models.ContactNoResponse,
		})
		s.Require().NoError(err)
		s.Equal(models.StatusPending, got.Status)
		s.Require().Len(got.ContactAttempts, 1)
		s.Equal(s.pastor.ID, got.ContactAttempts[0].ContactedBy)
		s.Equal(s.now, got.ContactAttempts[0].Date)
	})

	s.Run("successful contact starts the task", func() {
		got, err := s.service.AddContactAttempt(s.ctx, task.ID, s.pastor.Caller(), models.ContactAttempt{
			Method: models.ContactWhatsApp, Outcome: models.ContactSuccessful, Notes: "will attend next week",
		})
		s.Require().NoError(err)
		s.Equal(models.StatusInProgress, got.Status)
		s.Len(got.ContactAttempts, 2)
	})

	s.Run("invalid method", func() {
		_, err := s.service.AddContactAttempt(s.ctx, task.ID, s.pastor.Caller(), models.ContactAttempt{
			Method: "pigeon", Outcome: models.ContactSuccessful,
		})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("closed task rejects attempts", func() {
		_, err := s.service.Cancel(s.ctx, task.ID, s.pastor.Caller(), "moved away")
		s.Require().NoError(err)

		_, err = s.service.AddContactAttempt(s.ctx, task.ID, s.pastor.Caller(), models.ContactAttempt{
			Method: models.ContactCall, Outcome: models.ContactSuccessful,
		})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	})
}

func (s *FollowUpSuite) TestComplete() {
	task := s.openTask()

	s.Run("unknown task", func() {
		_, err := s.service.Complete(s.ctx, id.NewTaskID(), s.pastor.Caller(), models.OutcomeResolved, "")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("pending task completes", func() {
		got, err := s.service.Complete(s.ctx, task.ID, s.pastor.Caller(), models.OutcomeNeedsPastoralCare, "visit scheduled")
		s.Require().NoError(err)
		s.Equal(models.StatusCompleted, got.Status)
		s.Equal(models.OutcomeNeedsPastoralCare, got.Outcome)
		s.Equal("visit scheduled", got.OutcomeNotes)
		s.Require().NotNil(got.CompletedDate)
		s.Equal(s.now, *got.CompletedDate)
	})

	s.Run("completed is terminal", func() {
		_, err := s.service.Complete(s.ctx, task.ID, s.pastor.Caller(), models.OutcomeResolved, "")
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
		_, err = s.service.Cancel(s.ctx, task.ID, s.pastor.Caller(), "")
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	})

	s.Run("invalid outcome", func() {
		_, err := s.service.Complete(s.ctx, task.ID, s.pastor.Caller(), "shrug", "")
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *FollowUpSuite) TestReassign() {
	task := s.openTask()

	s.Run("assignee must be able to run follow-ups", func() {
		_, err := s.service.Reassign(s.ctx, task.ID, s.coordinator.Caller(), s.member.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("unknown assignee", func() {
		_, err := s.service.Reassign(s.ctx, task.ID, s.coordinator.Caller(), id.NewMemberID())
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("reassignment notifies the new assignee", func() {
		s.notifier.EXPECT().Notify(gomock.Any(), gomock.Any()).Do(func(_ context.Context, n notify.Notification) {
			s.Equal(s.pastor.ID.String(), n.Recipient)
		})
		got, err := s.service.Reassign(s.ctx, task.ID, s.coordinator.Caller(), s.pastor.ID)
		s.Require().NoError(err)
		s.Equal(s.pastor.ID, *got.AssignedTo)
	})
}

func (s *FollowUpSuite) TestListOpenByAssignee() {
	task := s.openTask()

	later := requestcontext.WithTime(context.Background(), s.now.Add(72*time.Hour+time.Minute))
	open, err := s.service.ListOpenByAssignee(later, s.coordinator.ID, s.coordinator.Caller())
	s.Require().NoError(err)
	s.Require().Len(open, 1)
	s.Equal(task.ID, open[0].ID)
	s.Equal(2, open[0].DaysOverdue)

	_, err = s.service.ListOpenByAssignee(later, s.coordinator.ID, s.member.Caller())
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

	got, err := s.service.Get(later, task.ID, s.pastor.Caller())
	s.Require().NoError(err)
	s.Equal(task.ID, got.ID)
}

// -----------------------------------------------------------------------------
// Manual tasks and listing
// -----------------------------------------------------------------------------

func (s *FollowUpSuite) manual(assignee id.MemberID) models.ManualTask {
	return models.ManualTask{
		MemberID:   s.member.ID,
		Reason:     models.ReasonPrayerRequest,
		AssignedTo: assignee,
		Notes:      "asked for a visit",
	}
}

func (s *FollowUpSuite) TestCreate() {
	s.Run("ministers cannot open tasks", func() {
		minister := s.newMember("+2348000000004", id.RoleMinister, s.now)
		_, err := s.service.Create(s.ctx, minister.Caller(), s.manual(s.pastor.ID))
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("absence reason is reserved for the checker", func() {
		req := s.manual(s.pastor.ID)
		req.Reason = models.ReasonConsecutiveAbsences
		_, err := s.service.Create(s.ctx, s.coordinator.Caller(), req)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("custom reason needs a description", func() {
		req := s.manual(s.pastor.ID)
		req.Reason = models.ReasonCustom
		_, err := s.service.Create(s.ctx, s.coordinator.Caller(), req)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("unknown member", func() {
		req := s.manual(s.pastor.ID)
		req.MemberID = id.NewMemberID()
		_, err := s.service.Create(s.ctx, s.coordinator.Caller(), req)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("assignee must be able to run follow-ups", func() {
		_, err := s.service.Create(s.ctx, s.coordinator.Caller(), s.manual(s.member.ID))
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("pastor opens a task with defaults", func() {
		s.notifier.EXPECT().Notify(gomock.Any(), gomock.Any()).Do(func(_ context.Context, n notify.Notification) {
			s.Equal(notify.KindFollowUpAssigned, n.Kind)
			s.Equal(s.coordinator.ID.String(), n.Recipient)
			s.Equal(string(models.ReasonPrayerRequest), n.Payload["reason"])
		})

		task, err := s.service.Create(s.ctx, s.pastor.Caller(), s.manual(s.coordinator.ID))
		s.Require().NoError(err)
		s.Equal(models.ReasonPrayerRequest, task.Reason)
		s.Equal(models.PriorityMedium, task.Priority)
		s.Equal(models.StatusPending, task.Status)
		s.Equal(s.now.Add(48*time.Hour), task.DueDate)
		s.Equal("asked for a visit", task.Notes)
		s.Require().NotNil(task.AssignedBy)
		s.Equal(s.pastor.ID, *task.AssignedBy)

		stored, err := s.store.Tasks().FindByID(context.Background(), task.ID)
		s.Require().NoError(err)
		s.Equal(task.ID, stored.ID)
	})

	s.Run("manual tasks do not block each other", func() {
		s.notifier.EXPECT().Notify(gomock.Any(), gomock.Any())
		req := s.manual(s.coordinator.ID)
		req.Priority = models.PriorityUrgent
		_, err := s.service.Create(s.ctx, s.coordinator.Caller(), req)
		s.Require().NoError(err)
	})
}

func (s *FollowUpSuite) TestList() {
	minister := s.newMember("+2348000000004", id.RoleMinister, s.now)
	s.notifier.EXPECT().Notify(gomock.Any(), gomock.Any()).Times(3)

	create := func(assignee id.MemberID, priority models.Priority, due time.Duration) *models.Task {
		req := s.manual(assignee)
		req.Priority = priority
		req.DueDate = s.now.Add(due)
		task, err := s.service.Create(s.ctx, s.coordinator.Caller(), req)
		s.Require().NoError(err)
		return task
	}
	ministerTask := create(minister.ID, models.PriorityLow, 24*time.Hour)
	urgent := create(s.pastor.ID, models.PriorityUrgent, 72*time.Hour)
	high := create(s.pastor.ID, models.PriorityHigh, time.Hour)

	s.Run("members cannot list", func() {
		_, err := s.service.List(s.ctx, s.member.Caller(), models.TaskFilter{})
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("ministers only see their own tasks", func() {
		page, err := s.service.List(s.ctx, minister.Caller(), models.TaskFilter{AssignedTo: &s.pastor.ID})
		s.Require().NoError(err)
		s.Equal(1, page.Total)
		s.Require().Len(page.Tasks, 1)
		s.Equal(ministerTask.ID, page.Tasks[0].ID)
	})

	s.Run("coordinators see everything by urgency", func() {
		page, err := s.service.List(s.ctx, s.coordinator.Caller(), models.TaskFilter{})
		s.Require().NoError(err)
		s.Equal(3, page.Total)
		s.Equal(1, page.Page)
		s.Equal(1, page.Pages)
		s.Require().Len(page.Tasks, 3)
		s.Equal(urgent.ID, page.Tasks[0].ID)
		s.Equal(high.ID, page.Tasks[1].ID)
		s.Equal(ministerTask.ID, page.Tasks[2].ID)
	})

	s.Run("paging and overdue days", func() {
		later := requestcontext.WithTime(context.Background(), s.now.Add(49*time.Hour))
		page, err := s.service.List(later, s.pastor.Caller(), models.TaskFilter{Page: 2, Limit: 1})
		s.Require().NoError(err)
		s.Equal(3, page.Total)
		s.Equal(3, page.Pages)
		s.Require().Len(page.Tasks, 1)
		s.Equal(high.ID, page.Tasks[0].ID)
		s.Equal(2, page.Tasks[0].DaysOverdue)
	})

	s.Run("invalid status filter", func() {
		_, err := s.service.List(s.ctx, s.coordinator.Caller(), models.TaskFilter{Status: "lost"})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}
