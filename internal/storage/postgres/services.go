package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"flock/internal/directory"
	id "flock/pkg/domain"
	"flock/pkg/platform/sentinel"
)

type Services struct {
	s *Store
}

const serviceColumns = `id, name, is_active, start_time, end_time, time_zone, days_of_week,
	late_threshold_minutes, venue_lat, venue_lon, geofence_radius_meters, require_gps,
	required_all_members, required_workers, required_ministers, required_department_ids,
	total_occurrences, last_occurrence, created_at`

func scanService(row scanner) (*directory.Service, error) {
	var (
		svc         directory.Service
		days        []int64
		departments []string
		last        sql.NullTime
	)
	err := row.Scan(
		&svc.ID, &svc.Name, &svc.IsActive, &svc.StartTime, &svc.EndTime, &svc.TimeZone, pq.Array(&days),
		&svc.LateThresholdMinutes, &svc.Venue.Lat, &svc.Venue.Lon, &svc.GeofenceRadiusMeters, &svc.RequireGPS,
		&svc.RequiredFor.AllMembers, &svc.RequiredFor.Workers, &svc.RequiredFor.Ministers, pq.Array(&departments),
		&svc.Stats.TotalOccurrences, &last, &svc.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	for _, d := range days {
		svc.DaysOfWeek = append(svc.DaysOfWeek, time.Weekday(d))
	}
	if last.Valid {
		d := id.DateOf(last.Time, time.UTC)
		svc.Stats.LastOccurrence = &d
	}
	if svc.RequiredFor.DepartmentIDs, err = parseDepartmentIDs(departments); err != nil {
		return nil, err
	}
	return &svc, nil
}

func (r *Services) Create(ctx context.Context, svc *directory.Service) error {
	days := make([]int64, 0, len(svc.DaysOfWeek))
	for _, d := range svc.DaysOfWeek {
		days = append(days, int64(d))
	}
	var last any
	if svc.Stats.LastOccurrence != nil {
		last = *svc.Stats.LastOccurrence
	}
	query := `
		INSERT INTO services (` + serviceColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`
	_, err := r.s.execer(ctx).ExecContext(ctx, query,
		svc.ID, svc.Name, svc.IsActive, svc.StartTime, svc.EndTime, svc.TimeZone, pq.Array(days),
		svc.LateThresholdMinutes, svc.Venue.Lat, svc.Venue.Lon, svc.GeofenceRadiusMeters, svc.RequireGPS,
		svc.RequiredFor.AllMembers, svc.RequiredFor.Workers, svc.RequiredFor.Ministers,
		pq.Array(departmentStrings(svc.RequiredFor.DepartmentIDs)),
		svc.Stats.TotalOccurrences, last, svc.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert service: %w", err)
	}
	return nil
}

func (r *Services) FindByID(ctx context.Context, serviceID id.ServiceID) (*directory.Service, error) {
	svc, err := scanService(r.s.execer(ctx).QueryRowContext(ctx,
		`SELECT `+serviceColumns+` FROM services WHERE id = $1`, serviceID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find service: %w", err)
	}
	return svc, nil
}

func (r *Services) ListActive(ctx context.Context) ([]*directory.Service, error) {
	rows, err := r.s.execer(ctx).QueryContext(ctx,
		`SELECT `+serviceColumns+` FROM services WHERE is_active ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list active services: %w", err)
	}
	defer rows.Close()

	var out []*directory.Service
	for rows.Next() {
		svc, err := scanService(rows)
		if err != nil {
			return nil, fmt.Errorf("scan service: %w", err)
		}
		out = append(out, svc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate services: %w", err)
	}
	return out, nil
}

// RecordOccurrence counts date as held for the service, once per date.
func (r *Services) RecordOccurrence(ctx context.Context, serviceID id.ServiceID, date id.Date) error {
	query := `
		UPDATE services SET
			total_occurrences = total_occurrences + CASE WHEN last_occurrence IS DISTINCT FROM $2::date THEN 1 ELSE 0 END,
			last_occurrence = $2::date
		WHERE id = $1
	`
	res, err := r.s.execer(ctx).ExecContext(ctx, query, serviceID, date)
	if err != nil {
		return fmt.Errorf("record service occurrence: %w", err)
	}
	return requireOneRow(res, sentinel.ErrNotFound)
}
