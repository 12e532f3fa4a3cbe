package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	absenceModels "flock/internal/absence/models"
	id "flock/pkg/domain"
	"flock/pkg/platform/sentinel"
)

type Absences struct {
	s *Store
}

// FindRun returns the stored evaluation report for the occurrence.
func (r *Absences) FindRun(ctx context.Context, serviceID id.ServiceID, date id.Date) (*absenceModels.Report, error) {
	var (
		report    absenceModels.Report
		absentees []byte
		taskIDs   []string
	)
	err := r.s.execer(ctx).QueryRowContext(ctx, `
		SELECT service_id, calendar_date, total_expected, total_attended, absentees, follow_up_task_ids, evaluated_at
		FROM absence_runs WHERE service_id = $1 AND calendar_date = $2
	`, serviceID, date).Scan(
		&report.ServiceID, &report.Date, &report.TotalExpected, &report.TotalAttended,
		&absentees, pq.Array(&taskIDs), &report.EvaluatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find absence run: %w", err)
	}
	if err := json.Unmarshal(absentees, &report.Absentees); err != nil {
		return nil, fmt.Errorf("decode absentees: %w", err)
	}
	for _, raw := range taskIDs {
		taskID, err := id.ParseTaskID(raw)
		if err != nil {
			return nil, fmt.Errorf("scan follow-up task id: %w", err)
		}
		report.FollowUpTaskIDs = append(report.FollowUpTaskIDs, taskID)
	}
	return &report, nil
}

// SaveRun stores a report. An occurrence is evaluated at most once.
func (r *Absences) SaveRun(ctx context.Context, report *absenceModels.Report) error {
	absentees, err := json.Marshal(nonNil(report.Absentees))
	if err != nil {
		return fmt.Errorf("encode absentees: %w", err)
	}
	taskIDs := make([]string, 0, len(report.FollowUpTaskIDs))
	for _, t := range report.FollowUpTaskIDs {
		taskIDs = append(taskIDs, t.String())
	}
	_, err = r.s.execer(ctx).ExecContext(ctx, `
		INSERT INTO absence_runs (service_id, calendar_date, total_expected, total_attended, absentees, follow_up_task_ids, evaluated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, report.ServiceID, report.Date, report.TotalExpected, report.TotalAttended, absentees, pq.Array(taskIDs), report.EvaluatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert absence run: %w", err)
	}
	return nil
}

func (r *Absences) Record(ctx context.Context, a absenceModels.Absence) error {
	_, err := r.s.execer(ctx).ExecContext(ctx, `
		INSERT INTO absences (member_id, service_id, calendar_date, recorded_at)
		VALUES ($1, $2, $3, $4)
	`, a.MemberID, a.ServiceID, a.Date, a.RecordedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert absence: %w", err)
	}
	return nil
}

// Recent returns up to limit of the member's absences, newest first. A
// limit of zero returns all of them.
func (r *Absences) Recent(ctx context.Context, memberID id.MemberID, limit int) ([]absenceModels.Absence, error) {
	var lim sql.NullInt64
	if limit > 0 {
		lim = sql.NullInt64{Int64: int64(limit), Valid: true}
	}
	rows, err := r.s.execer(ctx).QueryContext(ctx, `
		SELECT member_id, service_id, calendar_date, recorded_at FROM absences
		WHERE member_id = $1
		ORDER BY calendar_date DESC, recorded_at DESC
		LIMIT $2
	`, memberID, lim)
	if err != nil {
		return nil, fmt.Errorf("list absences: %w", err)
	}
	defer rows.Close()

	var out []absenceModels.Absence
	for rows.Next() {
		var a absenceModels.Absence
		if err := rows.Scan(&a.MemberID, &a.ServiceID, &a.Date, &a.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan absence: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate absences: %w", err)
	}
	return out, nil
}
