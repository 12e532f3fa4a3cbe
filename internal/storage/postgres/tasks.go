package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	followupModels "flock/internal/followup/models"
	id "flock/pkg/domain"
	"flock/pkg/platform/sentinel"
)

type Tasks struct {
	s *Store
}

const taskColumns = `id, member_id, reason, custom_reason, notes, missed_occurrences, consecutive_absences,
	assigned_to, assigned_by, priority, status, due_date, completed_date, contact_attempts, outcome, outcome_notes,
	cancel_reason, created_at, updated_at`

func scanTask(row scanner) (*followupModels.Task, error) {
	var (
		t                followupModels.Task
		missed, attempts []byte
		assignee, by     uuid.NullUUID
		completed        sql.NullTime
	)
	err := row.Scan(
		&t.ID, &t.MemberID, &t.Reason, &t.CustomReason, &t.Notes, &missed, &t.ConsecutiveAbsences,
		&assignee, &by, &t.Priority, &t.Status, &t.DueDate, &completed, &attempts, &t.Outcome, &t.OutcomeNotes,
		&t.CancelReason, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	t.AssignedTo = memberIDPtr(assignee)
	t.AssignedBy = memberIDPtr(by)
	t.CompletedDate = timePtr(completed)
	if err := json.Unmarshal(missed, &t.MissedOccurrences); err != nil {
		return nil, fmt.Errorf("decode missed occurrences: %w", err)
	}
	if err := json.Unmarshal(attempts, &t.ContactAttempts); err != nil {
		return nil, fmt.Errorf("decode contact attempts: %w", err)
	}
	return &t, nil
}

func encodeTaskLists(t *followupModels.Task) (missed, attempts []byte, err error) {
	if missed, err = json.Marshal(nonNil(t.MissedOccurrences)); err != nil {
		return nil, nil, fmt.Errorf("encode missed occurrences: %w", err)
	}
	if attempts, err = json.Marshal(nonNil(t.ContactAttempts)); err != nil {
		return nil, nil, fmt.Errorf("encode contact attempts: %w", err)
	}
	return missed, attempts, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// Create inserts t. A second open absence task for the member violates
// follow_up_tasks_open_absence_key and reports a conflict.
func (r *Tasks) Create(ctx context.Context, t *followupModels.Task) error {
	missed, attempts, err := encodeTaskLists(t)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO follow_up_tasks (` + taskColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		ON CONFLICT DO NOTHING
	`
	res, err := r.s.execer(ctx).ExecContext(ctx, query,
		t.ID, t.MemberID, t.Reason, t.CustomReason, t.Notes, missed, t.ConsecutiveAbsences,
		nullMemberID(t.AssignedTo), nullMemberID(t.AssignedBy), t.Priority, t.Status, t.DueDate, nullTime(t.CompletedDate),
		attempts, t.Outcome, t.OutcomeNotes, t.CancelReason, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		if pqCode(err) == foreignKeyViolation {
			return sentinel.ErrNotFound
		}
		return fmt.Errorf("insert follow-up task: %w", err)
	}
	// DO NOTHING keeps the enclosing transaction usable, so the caller can
	// load the task that won.
	return requireOneRow(res, sentinel.ErrConflict)
}

func (r *Tasks) findOne(ctx context.Context, query string, args ...any) (*followupModels.Task, error) {
	t, err := scanTask(r.s.execer(ctx).QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find follow-up task: %w", err)
	}
	return t, nil
}

func (r *Tasks) FindByID(ctx context.Context, taskID id.TaskID) (*followupModels.Task, error) {
	return r.findOne(ctx, `SELECT `+taskColumns+` FROM follow_up_tasks WHERE id = $1`+forUpdate(ctx), taskID)
}

// FindOpen returns the member's newest open task for reason.
func (r *Tasks) FindOpen(ctx context.Context, memberID id.MemberID, reason followupModels.Reason) (*followupModels.Task, error) {
	query := `
		SELECT ` + taskColumns + ` FROM follow_up_tasks
		WHERE member_id = $1 AND reason = $2 AND status IN ($3, $4)
		ORDER BY created_at DESC
		LIMIT 1` + forUpdate(ctx)
	return r.findOne(ctx, query, memberID, reason, followupModels.StatusPending, followupModels.StatusInProgress)
}

func (r *Tasks) Update(ctx context.Context, t *followupModels.Task) error {
	missed, attempts, err := encodeTaskLists(t)
	if err != nil {
		return err
	}
	query := `
		UPDATE follow_up_tasks SET
			missed_occurrences = $2, consecutive_absences = $3, assigned_to = $4, priority = $5, status = $6,
			due_date = $7, completed_date = $8, contact_attempts = $9, outcome = $10, outcome_notes = $11,
			cancel_reason = $12, updated_at = $13
		WHERE id = $1
	`
	res, err := r.s.execer(ctx).ExecContext(ctx, query,
		t.ID, missed, t.ConsecutiveAbsences, nullMemberID(t.AssignedTo), t.Priority, t.Status,
		t.DueDate, nullTime(t.CompletedDate), attempts, t.Outcome, t.OutcomeNotes, t.CancelReason, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update follow-up task: %w", err)
	}
	return requireOneRow(res, sentinel.ErrNotFound)
}

// ListOpenByAssignee returns open tasks assigned to memberID, soonest due first.
func (r *Tasks) ListOpenByAssignee(ctx context.Context, memberID id.MemberID) ([]*followupModels.Task, error) {
	query := `
		SELECT ` + taskColumns + ` FROM follow_up_tasks
		WHERE assigned_to = $1 AND status IN ($2, $3)
		ORDER BY due_date
	`
	return r.list(ctx, query, memberID, followupModels.StatusPending, followupModels.StatusInProgress)
}

// urgencyOrder ranks priorities the way followup models do.
const urgencyOrder = `
	ORDER BY CASE priority WHEN 'urgent' THEN 4 WHEN 'high' THEN 3 WHEN 'medium' THEN 2 WHEN 'low' THEN 1 ELSE 0 END DESC,
		due_date`

// Search filters on the non-empty fields of f and returns one page with the
// total match count.
func (r *Tasks) Search(ctx context.Context, f followupModels.TaskFilter) ([]*followupModels.Task, int, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.Status != "" {
		add("status = $%d", f.Status)
	}
	if f.Priority != "" {
		add("priority = $%d", f.Priority)
	}
	if f.AssignedTo != nil {
		add("assigned_to = $%d", *f.AssignedTo)
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.s.execer(ctx).QueryRowContext(ctx, `SELECT count(*) FROM follow_up_tasks`+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count follow-up tasks: %w", err)
	}
	query := fmt.Sprintf(`SELECT %s FROM follow_up_tasks%s%s LIMIT $%d OFFSET $%d`,
		taskColumns, clause, urgencyOrder, len(args)+1, len(args)+2)
	tasks, err := r.list(ctx, query, append(args, f.Limit, f.Offset())...)
	if err != nil {
		return nil, 0, err
	}
	return tasks, total, nil
}

func (r *Tasks) list(ctx context.Context, query string, args ...any) ([]*followupModels.Task, error) {
	rows, err := r.s.execer(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list follow-up tasks: %w", err)
	}
	defer rows.Close()

	var out []*followupModels.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan follow-up task: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate follow-up tasks: %w", err)
	}
	return out, nil
}
