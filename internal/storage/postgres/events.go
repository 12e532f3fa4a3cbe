package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	attendanceModels "flock/internal/attendance/models"
	id "flock/pkg/domain"
	"flock/pkg/geo"
	"flock/pkg/platform/sentinel"
)

type Events struct {
	s *Store
}

const eventColumns = `id, member_id, service_id, calendar_date, check_in_time, check_out_time, status, method,
	submitted_lat, submitted_lon, distance_from_venue, within_geofence, is_late, minutes_late, duration_minutes,
	device, notes, is_manual_entry, manual_entry_reason, migrated, is_duplicate, is_exception,
	exception_type, exception_reason, approved_by, is_deleted, deleted_at, deleted_by, delete_reason,
	created_by, updated_by, created_at, updated_at`

func scanEvent(row scanner) (*attendanceModels.CheckInEvent, error) {
	var (
		e                     attendanceModels.CheckInEvent
		checkOut, deletedAt   sql.NullTime
		lat, lon              sql.NullFloat64
		duration              sql.NullInt64
		device                []byte
		approved, deleted, up uuid.NullUUID
	)
	err := row.Scan(
		&e.ID, &e.MemberID, &e.ServiceID, &e.CalendarDate, &e.CheckInTime, &checkOut, &e.Status, &e.Method,
		&lat, &lon, &e.DistanceFromVenue, &e.WithinGeofence, &e.IsLate, &e.MinutesLate, &duration,
		&device, &e.Notes, &e.IsManualEntry, &e.ManualEntryReason, &e.Migrated, &e.IsDuplicate, &e.IsException,
		&e.ExceptionType, &e.ExceptionReason, &approved, &e.IsDeleted, &deletedAt, &deleted, &e.DeleteReason,
		&e.CreatedBy, &up, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	e.CheckOutTime = timePtr(checkOut)
	e.DeletedAt = timePtr(deletedAt)
	if lat.Valid && lon.Valid {
		e.SubmittedLocation = &geo.Point{Lat: lat.Float64, Lon: lon.Float64}
	}
	if duration.Valid {
		d := int(duration.Int64)
		e.Duration = &d
	}
	e.ApprovedBy = memberIDPtr(approved)
	e.DeletedBy = memberIDPtr(deleted)
	e.UpdatedBy = memberIDPtr(up)
	if err := json.Unmarshal(device, &e.Device); err != nil {
		return nil, fmt.Errorf("decode device: %w", err)
	}
	return &e, nil
}

// eventArgs orders e's fields as eventColumns lists them.
func eventArgs(e *attendanceModels.CheckInEvent) ([]any, error) {
	device, err := json.Marshal(e.Device)
	if err != nil {
		return nil, fmt.Errorf("encode device: %w", err)
	}
	var lat, lon sql.NullFloat64
	if e.SubmittedLocation != nil {
		lat = sql.NullFloat64{Float64: e.SubmittedLocation.Lat, Valid: true}
		lon = sql.NullFloat64{Float64: e.SubmittedLocation.Lon, Valid: true}
	}
	var duration sql.NullInt64
	if e.Duration != nil {
		duration = sql.NullInt64{Int64: int64(*e.Duration), Valid: true}
	}
	return []any{
		e.ID, e.MemberID, e.ServiceID, e.CalendarDate, e.CheckInTime, nullTime(e.CheckOutTime), e.Status, e.Method,
		lat, lon, e.DistanceFromVenue, e.WithinGeofence, e.IsLate, e.MinutesLate, duration,
		device, e.Notes, e.IsManualEntry, e.ManualEntryReason, e.Migrated, e.IsDuplicate, e.IsException,
		e.ExceptionType, e.ExceptionReason, nullMemberID(e.ApprovedBy), e.IsDeleted, nullTime(e.DeletedAt),
		nullMemberID(e.DeletedBy), e.DeleteReason, e.CreatedBy, nullMemberID(e.UpdatedBy), e.CreatedAt, e.UpdatedAt,
	}, nil
}

// Create inserts e. A second live event for the same member, service and
// date violates check_in_events_live_key and reports a conflict.
func (r *Events) Create(ctx context.Context, e *attendanceModels.CheckInEvent) error {
	args, err := eventArgs(e)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO check_in_events (` + eventColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17,
		        $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29, $30, $31, $32, $33)
	`
	if _, err := r.s.execer(ctx).ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		if pqCode(err) == foreignKeyViolation {
			return sentinel.ErrNotFound
		}
		return fmt.Errorf("insert check-in event: %w", err)
	}
	return nil
}

func (r *Events) findOne(ctx context.Context, query string, args ...any) (*attendanceModels.CheckInEvent, error) {
	e, err := scanEvent(r.s.execer(ctx).QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find check-in event: %w", err)
	}
	return e, nil
}

func (r *Events) FindByID(ctx context.Context, eventID id.CheckInID) (*attendanceModels.CheckInEvent, error) {
	return r.findOne(ctx, `SELECT `+eventColumns+` FROM check_in_events WHERE id = $1`+forUpdate(ctx), eventID)
}

// FindActive returns the live event for the member at the occurrence.
func (r *Events) FindActive(ctx context.Context, memberID id.MemberID, serviceID id.ServiceID, date id.Date) (*attendanceModels.CheckInEvent, error) {
	query := `
		SELECT ` + eventColumns + ` FROM check_in_events
		WHERE member_id = $1 AND service_id = $2 AND calendar_date = $3 AND NOT is_deleted
	`
	return r.findOne(ctx, query, memberID, serviceID, date)
}

// Update rewrites every mutable column of e.
func (r *Events) Update(ctx context.Context, e *attendanceModels.CheckInEvent) error {
	args, err := eventArgs(e)
	if err != nil {
		return err
	}
	query := `
		UPDATE check_in_events SET
			check_out_time = $2, status = $3, method = $4,
			submitted_lat = $5, submitted_lon = $6, distance_from_venue = $7, within_geofence = $8,
			is_late = $9, minutes_late = $10, duration_minutes = $11, device = $12, notes = $13,
			is_manual_entry = $14, manual_entry_reason = $15, migrated = $16, is_duplicate = $17,
			is_exception = $18, exception_type = $19, exception_reason = $20, approved_by = $21,
			is_deleted = $22, deleted_at = $23, deleted_by = $24, delete_reason = $25,
			updated_by = $26, updated_at = $27
		WHERE id = $1
	`
	// args[5:29] run check_out_time through delete_reason. Identity columns
	// and created_by/created_at never change.
	updateArgs := append([]any{e.ID}, args[5:29]...)
	updateArgs = append(updateArgs, args[30], args[32])
	res, err := r.s.execer(ctx).ExecContext(ctx, query, updateArgs...)
	if err != nil {
		return fmt.Errorf("update check-in event: %w", err)
	}
	return requireOneRow(res, sentinel.ErrNotFound)
}

func (r *Events) list(ctx context.Context, query string, args ...any) ([]*attendanceModels.CheckInEvent, error) {
	rows, err := r.s.execer(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list check-in events: %w", err)
	}
	defer rows.Close()

	var out []*attendanceModels.CheckInEvent
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan check-in event: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate check-in events: %w", err)
	}
	return out, nil
}

// ListByOccurrence returns the live events for a service on date in
// check-in order.
func (r *Events) ListByOccurrence(ctx context.Context, serviceID id.ServiceID, date id.Date) ([]*attendanceModels.CheckInEvent, error) {
	query := `
		SELECT ` + eventColumns + ` FROM check_in_events
		WHERE service_id = $1 AND calendar_date = $2 AND NOT is_deleted
		ORDER BY check_in_time
	`
	return r.list(ctx, query, serviceID, date)
}

// ListByMember returns a member's live events, newest first. A limit of
// zero returns all of them.
func (r *Events) ListByMember(ctx context.Context, memberID id.MemberID, limit int) ([]*attendanceModels.CheckInEvent, error) {
	var lim sql.NullInt64
	if limit > 0 {
		lim = sql.NullInt64{Int64: int64(limit), Valid: true}
	}
	query := `
		SELECT ` + eventColumns + ` FROM check_in_events
		WHERE member_id = $1 AND NOT is_deleted
		ORDER BY check_in_time DESC
		LIMIT $2
	`
	return r.list(ctx, query, memberID, lim)
}

// Search pages through the live events matching f, newest first, and
// reports the total match count.
func (r *Events) Search(ctx context.Context, f attendanceModels.EventFilter) ([]*attendanceModels.CheckInEvent, int, error) {
	where := []string{"NOT is_deleted"}
	var args []any
	add := func(cond string, arg any) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.ServiceID != nil {
		add("service_id = $%d", *f.ServiceID)
	}
	if f.MemberID != nil {
		add("member_id = $%d", *f.MemberID)
	}
	if f.From != nil {
		add("calendar_date >= $%d", *f.From)
	}
	if f.To != nil {
		add("calendar_date <= $%d", *f.To)
	}
	if f.Status != "" {
		add("status = $%d", f.Status)
	}
	if f.Method != "" {
		add("method = $%d", f.Method)
	}
	clause := " WHERE " + strings.Join(where, " AND ")

	var total int
	if err := r.s.execer(ctx).QueryRowContext(ctx, `SELECT count(*) FROM check_in_events`+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count check-in events: %w", err)
	}
	query := fmt.Sprintf(`SELECT %s FROM check_in_events%s ORDER BY calendar_date DESC, check_in_time DESC LIMIT $%d OFFSET $%d`,
		eventColumns, clause, len(args)+1, len(args)+2)
	events, err := r.list(ctx, query, append(args, f.Limit, f.Offset())...)
	if err != nil {
		return nil, 0, err
	}
	return events, total, nil
}

// AttendeeIDs returns the members holding a live event at the occurrence.
func (r *Events) AttendeeIDs(ctx context.Context, serviceID id.ServiceID, date id.Date) ([]id.MemberID, error) {
	rows, err := r.s.execer(ctx).QueryContext(ctx, `
		SELECT member_id FROM check_in_events
		WHERE service_id = $1 AND calendar_date = $2 AND NOT is_deleted
	`, serviceID, date)
	if err != nil {
		return nil, fmt.Errorf("list attendees: %w", err)
	}
	defer rows.Close()

	var out []id.MemberID
	for rows.Next() {
		var memberID id.MemberID
		if err := rows.Scan(&memberID); err != nil {
			return nil, fmt.Errorf("scan attendee: %w", err)
		}
		out = append(out, memberID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attendees: %w", err)
	}
	return out, nil
}
