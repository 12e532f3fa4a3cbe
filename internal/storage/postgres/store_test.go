package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	absenceModels "flock/internal/absence/models"
	attendanceModels "flock/internal/attendance/models"
	"flock/internal/directory"
	followupModels "flock/internal/followup/models"
	id "flock/pkg/domain"
	"flock/pkg/platform/sentinel"
	"flock/pkg/platform/tx"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return New(db), mock
}

func testAbsence() absenceModels.Absence {
	return absenceModels.Absence{
		MemberID:   id.NewMemberID(),
		ServiceID:  id.NewServiceID(),
		Date:       id.Date{Year: 2026, Month: time.March, Day: 8},
		RecordedAt: time.Date(2026, 3, 8, 14, 0, 0, 0, time.UTC),
	}
}

func TestRunInTx(t *testing.T) {
	t.Run("commits and then runs hooks", func(t *testing.T) {
		store, mock := newMockStore(t)
		a := testAbsence()

		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO absences")).
			WithArgs(a.MemberID, a.ServiceID, a.Date, sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		fired := false
		err := store.RunInTx(context.Background(), func(ctx context.Context) error {
			tx.AfterCommit(ctx, func() { fired = true })
			return store.Absences().Record(ctx, a)
		})
		require.NoError(t, err)
		assert.True(t, fired)
	})

	t.Run("rolls back and drops hooks on error", func(t *testing.T) {
		store, mock := newMockStore(t)
		a := testAbsence()

		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO absences")).
			WillReturnError(&pq.Error{Code: uniqueViolation})
		mock.ExpectRollback()

		fired := false
		err := store.RunInTx(context.Background(), func(ctx context.Context) error {
			tx.AfterCommit(ctx, func() { fired = true })
			return store.Absences().Record(ctx, a)
		})
		require.ErrorIs(t, err, sentinel.ErrConflict)
		assert.False(t, fired)
	})

	t.Run("nested call joins the open transaction", func(t *testing.T) {
		store, mock := newMockStore(t)

		mock.ExpectBegin()
		mock.ExpectCommit()

		err := store.RunInTx(context.Background(), func(ctx context.Context) error {
			return store.RunInTx(ctx, func(inner context.Context) error {
				_, ok := tx.From(inner)
				assert.True(t, ok)
				return nil
			})
		})
		require.NoError(t, err)
	})

	t.Run("cancelled context never begins", func(t *testing.T) {
		store, _ := newMockStore(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := store.RunInTx(ctx, func(context.Context) error { return nil })
		require.Error(t, err)
	})
}

func TestMembers(t *testing.T) {
	t.Run("missing member is not found", func(t *testing.T) {
		store, mock := newMockStore(t)
		memberID := id.NewMemberID()

		mock.ExpectQuery(regexp.QuoteMeta("FROM members WHERE id = $1")).
			WithArgs(memberID).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		_, err := store.Members().FindByID(context.Background(), memberID)
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("stats update on unknown member is not found", func(t *testing.T) {
		store, mock := newMockStore(t)

		mock.ExpectExec(regexp.QuoteMeta("UPDATE members SET")).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := store.Members().UpdateStats(context.Background(), id.NewMemberID(), directory.AttendanceStats{})
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("duplicate phone conflicts", func(t *testing.T) {
		store, mock := newMockStore(t)

		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO members")).
			WillReturnError(&pq.Error{Code: uniqueViolation, Constraint: "members_phone_key"})

		err := store.Members().Create(context.Background(), &directory.Member{ID: id.NewMemberID(), Role: id.RoleMember})
		assert.ErrorIs(t, err, sentinel.ErrConflict)
	})
}

func TestServicesScan(t *testing.T) {
	store, mock := newMockStore(t)
	serviceID := id.NewServiceID()
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	cols := []string{
		"id", "name", "is_active", "start_time", "end_time", "time_zone", "days_of_week",
		"late_threshold_minutes", "venue_lat", "venue_lon", "geofence_radius_meters", "require_gps",
		"required_all_members", "required_workers", "required_ministers", "required_department_ids",
		"total_occurrences", "last_occurrence", "created_at",
	}
	mock.ExpectQuery(regexp.QuoteMeta("FROM services WHERE id = $1")).
		WithArgs(serviceID).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(
			serviceID.String(), "Sunday Service", true, "09:00", "11:00", "Africa/Lagos", []byte("{0,3}"),
			10, 6.5244, 3.3792, 300, true,
			false, true, false, []byte("{}"),
			12, created, created,
		))

	svc, err := store.Services().FindByID(context.Background(), serviceID)
	require.NoError(t, err)
	assert.Equal(t, serviceID, svc.ID)
	assert.Equal(t, []time.Weekday{time.Sunday, time.Wednesday}, svc.DaysOfWeek)
	assert.True(t, svc.RequiredFor.Workers)
	assert.Empty(t, svc.RequiredFor.DepartmentIDs)
	require.NotNil(t, svc.Stats.LastOccurrence)
	assert.Equal(t, id.Date{Year: 2026, Month: time.January, Day: 1}, *svc.Stats.LastOccurrence)
}

func TestEventsCreate(t *testing.T) {
	event := &attendanceModels.CheckInEvent{
		ID:           id.NewCheckInID(),
		MemberID:     id.NewMemberID(),
		ServiceID:    id.NewServiceID(),
		CalendarDate: id.Date{Year: 2026, Month: time.March, Day: 8},
		Status:       attendanceModels.StatusPresent,
		Method:       attendanceModels.MethodQR,
	}

	cases := []struct {
		name string
		err  error
		want error
	}{
		{"live duplicate conflicts", &pq.Error{Code: uniqueViolation}, sentinel.ErrConflict},
		{"unknown member is not found", &pq.Error{Code: foreignKeyViolation}, sentinel.ErrNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store, mock := newMockStore(t)
			mock.ExpectExec(regexp.QuoteMeta("INSERT INTO check_in_events")).WillReturnError(tc.err)

			err := store.Events().Create(context.Background(), event)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	t.Run("other errors are wrapped", func(t *testing.T) {
		store, mock := newMockStore(t)
		boom := errors.New("connection reset")
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO check_in_events")).WillReturnError(boom)

		err := store.Events().Create(context.Background(), event)
		assert.ErrorIs(t, err, boom)
		assert.NotErrorIs(t, err, sentinel.ErrConflict)
	})
}

func TestVisitorLookupsLockInsideUnitOfWork(t *testing.T) {
	t.Run("invite token lookup locks the visitor row", func(t *testing.T) {
		store, mock := newMockStore(t)

		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta("WHERE v.invite_token = $1 FOR UPDATE OF v")).
			WithArgs("tok").
			WillReturnRows(sqlmock.NewRows([]string{"id"}))
		mock.ExpectRollback()

		err := store.RunInTx(context.Background(), func(ctx context.Context) error {
			_, err := store.Visitors().FindByInviteToken(ctx, "tok")
			return err
		})
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("phone lookup locks the visitor row", func(t *testing.T) {
		store, mock := newMockStore(t)

		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta("WHERE v.phone = $1 FOR UPDATE OF v")).
			WithArgs("+2348000000001").
			WillReturnRows(sqlmock.NewRows([]string{"id"}))
		mock.ExpectRollback()

		err := store.RunInTx(context.Background(), func(ctx context.Context) error {
			_, err := store.Visitors().FindByPhone(ctx, "+2348000000001")
			return err
		})
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("reads outside a unit of work do not lock", func(t *testing.T) {
		store, mock := newMockStore(t)

		mock.ExpectQuery(`WHERE v\.phone = \$1$`).
			WithArgs("+2348000000001").
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		_, err := store.Visitors().FindByPhone(context.Background(), "+2348000000001")
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})
}

func TestTaskSearch(t *testing.T) {
	t.Run("filters become numbered placeholders", func(t *testing.T) {
		store, mock := newMockStore(t)
		assignee := id.NewMemberID()

		mock.ExpectQuery(regexp.QuoteMeta("SELECT count(*) FROM follow_up_tasks WHERE status = $1 AND assigned_to = $2")).
			WithArgs(followupModels.StatusPending, assignee).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(41))
		mock.ExpectQuery(regexp.QuoteMeta("WHERE status = $1 AND assigned_to = $2")).
			WithArgs(followupModels.StatusPending, assignee, 20, 40).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		tasks, total, err := store.Tasks().Search(context.Background(), followupModels.TaskFilter{
			Status:     followupModels.StatusPending,
			AssignedTo: &assignee,
			Page:       3,
			Limit:      20,
		})
		require.NoError(t, err)
		assert.Equal(t, 41, total)
		assert.Empty(t, tasks)
	})

	t.Run("no filters scans the whole table", func(t *testing.T) {
		store, mock := newMockStore(t)

		mock.ExpectQuery(`SELECT count\(\*\) FROM follow_up_tasks$`).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
		mock.ExpectQuery(regexp.QuoteMeta("LIMIT $1 OFFSET $2")).
			WithArgs(20, 0).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		_, total, err := store.Tasks().Search(context.Background(), followupModels.TaskFilter{Page: 1, Limit: 20})
		require.NoError(t, err)
		assert.Zero(t, total)
	})
}

func TestEventSearch(t *testing.T) {
	t.Run("live events only with numbered filters", func(t *testing.T) {
		store, mock := newMockStore(t)
		serviceID := id.NewServiceID()
		from := id.Date{Year: 2024, Month: time.June, Day: 1}
		to := id.Date{Year: 2024, Month: time.June, Day: 30}

		mock.ExpectQuery(regexp.QuoteMeta(
			"SELECT count(*) FROM check_in_events WHERE NOT is_deleted AND service_id = $1 AND calendar_date >= $2 AND calendar_date <= $3 AND method = $4")).
			WithArgs(serviceID, from, to, attendanceModels.MethodQR).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))
		mock.ExpectQuery(regexp.QuoteMeta("ORDER BY calendar_date DESC, check_in_time DESC LIMIT $5 OFFSET $6")).
			WithArgs(serviceID, from, to, attendanceModels.MethodQR, 50, 0).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		events, total, err := store.Events().Search(context.Background(), attendanceModels.EventFilter{
			ServiceID: &serviceID,
			From:      &from,
			To:        &to,
			Method:    attendanceModels.MethodQR,
			Page:      1,
			Limit:     50,
		})
		require.NoError(t, err)
		assert.Equal(t, 7, total)
		assert.Empty(t, events)
	})

	t.Run("count failure", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectQuery(`SELECT count\(\*\) FROM check_in_events WHERE NOT is_deleted$`).
			WillReturnError(errors.New("connection reset"))

		_, _, err := store.Events().Search(context.Background(), attendanceModels.EventFilter{Page: 1, Limit: 50})
		require.Error(t, err)
	})
}
