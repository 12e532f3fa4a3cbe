package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "flock/pkg/domain"
	dErrors "flock/pkg/domain-errors"
)

func TestCheckOut(t *testing.T) {
	in := time.Date(2024, 6, 2, 9, 0, 0, 0, time.UTC)

	t.Run("duration rounds to the nearest minute", func(t *testing.T) {
		e := &CheckInEvent{CheckInTime: in}
		require.NoError(t, e.CheckOut(in.Add(90*time.Minute+31*time.Second)))
		require.NotNil(t, e.Duration)
		assert.Equal(t, 91, *e.Duration)
	})

	t.Run("second checkout is rejected", func(t *testing.T) {
		e := &CheckInEvent{CheckInTime: in}
		require.NoError(t, e.CheckOut(in.Add(time.Hour)))
		err := e.CheckOut(in.Add(2 * time.Hour))
		assert.True(t, dErrors.HasCode(err, dErrors.CodeAlreadyCheckedOut))
		assert.Equal(t, 60, *e.Duration)
	})
}

func TestAmendment(t *testing.T) {
	approver := id.NewMemberID()
	at := time.Date(2024, 6, 2, 12, 0, 0, 0, time.UTC)

	t.Run("exception records approver", func(t *testing.T) {
		a := Amendment{Status: StatusExcused, ExceptionType: ExceptionExcusedAbsence, ExceptionReason: "sick"}
		require.NoError(t, a.Validate())

		e := &CheckInEvent{Status: StatusLate}
		e.Apply(a, approver, at)
		assert.Equal(t, StatusExcused, e.Status)
		assert.True(t, e.IsException)
		require.NotNil(t, e.ApprovedBy)
		assert.Equal(t, approver, *e.ApprovedBy)
	})

	t.Run("invalid enumerations", func(t *testing.T) {
		assert.Error(t, Amendment{Status: "gone"}.Validate())
		assert.Error(t, Amendment{ExceptionType: "whim"}.Validate())
		assert.Error(t, Amendment{}.Validate())
	})
}

func TestSummarize(t *testing.T) {
	thirty, ninety := 30, 90
	events := []*CheckInEvent{
		{Status: StatusPresent, Duration: &thirty},
		{Status: StatusLate, MinutesLate: 20, Duration: &ninety},
		{Status: StatusExcused},
		{Status: StatusPresent, IsDeleted: true, MinutesLate: 99},
	}
	s := Summarize(id.NewServiceID(), id.Date{Year: 2024, Month: time.June, Day: 2}, events)
	assert.Equal(t, 3, s.TotalAttendance)
	assert.Equal(t, 1, s.Present)
	assert.Equal(t, 1, s.Late)
	assert.Equal(t, 1, s.Excused)
	assert.Equal(t, 20, s.TotalMinutesLate)
	assert.InDelta(t, 60, s.AverageDuration, 0.001)
}

func TestEventOwnership(t *testing.T) {
	owner := id.NewMemberID()
	e := &CheckInEvent{MemberID: owner}

	assert.NoError(t, EventOwnership.Authorize(id.Caller{ID: owner, Role: id.RoleMember}, e, id.CapManageAnyCheckIn))
	assert.NoError(t, EventOwnership.Authorize(id.Caller{ID: id.NewMemberID(), Role: id.RoleAdmin}, e, id.CapManageAnyCheckIn))

	err := EventOwnership.Authorize(id.Caller{ID: id.NewMemberID(), Role: id.RoleWorker}, e, id.CapManageAnyCheckIn)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestEventFilter(t *testing.T) {
	june := func(day int) *id.Date {
		d := id.Date{Year: 2024, Month: time.June, Day: day}
		return &d
	}
	serviceID := id.NewServiceID()
	event := &CheckInEvent{ServiceID: serviceID, CalendarDate: *june(9), Status: StatusLate, Method: MethodQR}

	t.Run("defaults and caps paging", func(t *testing.T) {
		f := EventFilter{}
		require.NoError(t, f.Normalize(DefaultListLimit))
		assert.Equal(t, 1, f.Page)
		assert.Equal(t, DefaultListLimit, f.Limit)

		f = EventFilter{Page: 3, Limit: 1000}
		require.NoError(t, f.Normalize(DefaultOccurrenceLimit))
		assert.Equal(t, MaxListLimit, f.Limit)
		assert.Equal(t, 2*MaxListLimit, f.Offset())
	})

	t.Run("rejects bad enumerations and inverted ranges", func(t *testing.T) {
		for _, f := range []EventFilter{
			{Status: "asleep"},
			{Method: "carrier_pigeon"},
			{From: june(9), To: june(2)},
		} {
			assert.True(t, dErrors.HasCode(f.Normalize(DefaultListLimit), dErrors.CodeValidation))
		}
	})

	t.Run("date range is inclusive", func(t *testing.T) {
		assert.True(t, EventFilter{From: june(9), To: june(9)}.Matches(event))
		assert.False(t, EventFilter{From: june(10)}.Matches(event))
		assert.False(t, EventFilter{To: june(8)}.Matches(event))
	})

	t.Run("field filters", func(t *testing.T) {
		other := id.NewServiceID()
		assert.True(t, EventFilter{ServiceID: &serviceID, Status: StatusLate, Method: MethodQR}.Matches(event))
		assert.False(t, EventFilter{ServiceID: &other}.Matches(event))
		assert.False(t, EventFilter{Status: StatusPresent}.Matches(event))
		assert.False(t, EventFilter{Method: MethodManual}.Matches(event))
	})

	t.Run("deleted events never match", func(t *testing.T) {
		deleted := event.Clone()
		deleted.IsDeleted = true
		assert.False(t, EventFilter{}.Matches(deleted))
	})
}

func TestCompareNewest(t *testing.T) {
	at := time.Date(2024, 6, 9, 9, 0, 0, 0, time.UTC)
	older := &CheckInEvent{CalendarDate: id.Date{Year: 2024, Month: time.June, Day: 2}, CheckInTime: at.Add(-7 * 24 * time.Hour)}
	early := &CheckInEvent{CalendarDate: id.Date{Year: 2024, Month: time.June, Day: 9}, CheckInTime: at}
	late := &CheckInEvent{CalendarDate: id.Date{Year: 2024, Month: time.June, Day: 9}, CheckInTime: at.Add(time.Minute)}

	assert.Negative(t, CompareNewest(late, early))
	assert.Positive(t, CompareNewest(older, early))
	assert.Zero(t, CompareNewest(early, early))
}
