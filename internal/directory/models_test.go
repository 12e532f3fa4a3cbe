package directory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "flock/pkg/domain"
)

func TestAttendanceStats(t *testing.T) {
	t.Run("check-in resets consecutive absences and recomputes rate", func(t *testing.T) {
		stats := AttendanceStats{TotalServices: 3, TotalPresent: 1, ConsecutiveAbsences: 2}
		at := time.Date(2024, 6, 2, 9, 0, 0, 0, time.UTC)

		stats.ApplyCheckIn(at, true)

		assert.Equal(t, 4, stats.TotalServices)
		assert.Equal(t, 2, stats.TotalPresent)
		assert.Equal(t, 1, stats.TotalLate)
		assert.Equal(t, 0, stats.ConsecutiveAbsences)
		assert.Equal(t, 50, stats.AttendanceRate)
		require.NotNil(t, stats.LastAttendance)
		assert.True(t, at.Equal(*stats.LastAttendance))
	})

	t.Run("reverting a check-in undoes its counts", func(t *testing.T) {
		stats := AttendanceStats{TotalServices: 3, TotalPresent: 2}
		at := time.Date(2024, 6, 2, 9, 0, 0, 0, time.UTC)
		stats.ApplyCheckIn(at, true)
		stats.RevertCheckIn(true)

		assert.Equal(t, 3, stats.TotalServices)
		assert.Equal(t, 2, stats.TotalPresent)
		assert.Equal(t, 0, stats.TotalLate)
		assert.Equal(t, 67, stats.AttendanceRate)

		empty := AttendanceStats{}
		empty.RevertCheckIn(true)
		assert.Equal(t, AttendanceStats{}, empty)
	})

	t.Run("absence leaves totals and rate alone", func(t *testing.T) {
		stats := AttendanceStats{TotalServices: 4, TotalPresent: 3, AttendanceRate: 75}
		stats.ApplyAbsence()
		stats.ApplyAbsence()

		assert.Equal(t, 2, stats.ConsecutiveAbsences)
		assert.Equal(t, 2, stats.TotalAbsent)
		assert.Equal(t, 4, stats.TotalServices)
		assert.Equal(t, 75, stats.AttendanceRate)
	})

	t.Run("seed from history", func(t *testing.T) {
		last := time.Date(2024, 6, 2, 9, 0, 0, 0, time.UTC)
		stats := SeedFromHistory(3, &last)
		assert.Equal(t, 3, stats.TotalServices)
		assert.Equal(t, 3, stats.TotalPresent)
		assert.Equal(t, 100, stats.AttendanceRate)

		empty := SeedFromHistory(0, nil)
		assert.Equal(t, 0, empty.AttendanceRate)
		assert.Nil(t, empty.LastAttendance)
	})
}

func TestRosterRule(t *testing.T) {
	dept := id.DepartmentID(id.NewMemberID())
	worker := &Member{IsActive: true, Role: id.RoleWorker, IsWorker: true}
	minister := &Member{IsActive: true, Role: id.RoleMinister, IsMinister: true}
	choir := &Member{IsActive: true, Role: id.RoleMember, DepartmentIDs: []id.DepartmentID{dept}}
	plain := &Member{IsActive: true, Role: id.RoleMember}
	inactive := &Member{IsActive: false, Role: id.RoleMember}
	visitor := &Member{IsActive: true, Role: id.RoleVisitor}

	t.Run("all members excludes inactive and visitors", func(t *testing.T) {
		rule := RosterRule{AllMembers: true}
		assert.True(t, rule.Includes(plain))
		assert.True(t, rule.Includes(worker))
		assert.False(t, rule.Includes(inactive))
		assert.False(t, rule.Includes(visitor))
	})

	t.Run("selectors are a union", func(t *testing.T) {
		rule := RosterRule{Workers: true, DepartmentIDs: []id.DepartmentID{dept}}
		assert.True(t, rule.Includes(worker))
		assert.True(t, rule.Includes(choir))
		assert.False(t, rule.Includes(minister))
		assert.False(t, rule.Includes(plain))
	})
}

func TestServiceSchedule(t *testing.T) {
	svc := &Service{StartTime: "09:30", EndTime: "11:00", TimeZone: "Africa/Lagos", DaysOfWeek: []time.Weekday{time.Sunday}}
	date := id.Date{Year: 2024, Month: time.June, Day: 2}

	start, err := svc.StartOn(date)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 6, 2, 8, 30, 0, 0, time.UTC), start.UTC())

	end, err := svc.EndOn(date)
	require.NoError(t, err)
	assert.True(t, end.After(start))

	assert.True(t, svc.OccursOn(date))
	assert.False(t, svc.OccursOn(id.Date{Year: 2024, Month: time.June, Day: 3}))

	assert.Equal(t, DefaultLateThresholdMinutes, svc.LateThreshold())
	assert.Equal(t, DefaultGeofenceRadiusMeters, svc.GeofenceRadius())

	bad := &Service{StartTime: "9am"}
	_, err = bad.StartOn(date)
	assert.Error(t, err)
}

func TestOccurrenceStats(t *testing.T) {
	var stats OccurrenceStats
	d := id.Date{Year: 2024, Month: time.June, Day: 2}
	stats.Record(d)
	stats.Record(d)
	assert.Equal(t, 1, stats.TotalOccurrences)

	stats.Record(id.Date{Year: 2024, Month: time.June, Day: 9})
	assert.Equal(t, 2, stats.TotalOccurrences)
}
