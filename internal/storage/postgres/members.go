package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"flock/internal/directory"
	id "flock/pkg/domain"
	"flock/pkg/platform/sentinel"
)

type Members struct {
	s *Store
}

const memberColumns = `id, membership_id, first_name, last_name, email, phone, password_hash, role,
	is_active, is_worker, is_minister, department_ids, profile,
	total_services, total_present, total_absent, total_late, attendance_rate,
	consecutive_absences, last_attendance, engagement_score, created_at, updated_at`

func scanMember(row scanner) (*directory.Member, error) {
	var (
		m           directory.Member
		departments []string
		profile     []byte
		last        sql.NullTime
	)
	err := row.Scan(
		&m.ID, &m.MembershipID, &m.FirstName, &m.LastName, &m.Email, &m.Phone, &m.PasswordHash, &m.Role,
		&m.IsActive, &m.IsWorker, &m.IsMinister, pq.Array(&departments), &profile,
		&m.Stats.TotalServices, &m.Stats.TotalPresent, &m.Stats.TotalAbsent, &m.Stats.TotalLate, &m.Stats.AttendanceRate,
		&m.Stats.ConsecutiveAbsences, &last, &m.Stats.EngagementScore, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	m.Stats.LastAttendance = timePtr(last)
	if len(profile) > 0 {
		if err := json.Unmarshal(profile, &m.Profile); err != nil {
			return nil, fmt.Errorf("decode member profile: %w", err)
		}
	}
	if m.DepartmentIDs, err = parseDepartmentIDs(departments); err != nil {
		return nil, err
	}
	return &m, nil
}

func parseDepartmentIDs(raw []string) ([]id.DepartmentID, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make([]id.DepartmentID, 0, len(raw))
	for _, r := range raw {
		d, err := id.ParseDepartmentID(r)
		if err != nil {
			return nil, fmt.Errorf("scan department id: %w", err)
		}
		out = append(out, d)
	}
	return out, nil
}

func departmentStrings(ids []id.DepartmentID) []string {
	out := make([]string, 0, len(ids))
	for _, d := range ids {
		out = append(out, d.String())
	}
	return out
}

func (r *Members) Create(ctx context.Context, m *directory.Member) error {
	profile, err := json.Marshal(m.Profile)
	if err != nil {
		return fmt.Errorf("encode member profile: %w", err)
	}
	query := `
		INSERT INTO members (` + memberColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23)
	`
	_, err = r.s.execer(ctx).ExecContext(ctx, query,
		m.ID, m.MembershipID, m.FirstName, m.LastName, m.Email, m.Phone, m.PasswordHash, m.Role,
		m.IsActive, m.IsWorker, m.IsMinister, pq.Array(departmentStrings(m.DepartmentIDs)), profile,
		m.Stats.TotalServices, m.Stats.TotalPresent, m.Stats.TotalAbsent, m.Stats.TotalLate, m.Stats.AttendanceRate,
		m.Stats.ConsecutiveAbsences, nullTime(m.Stats.LastAttendance), m.Stats.EngagementScore, m.CreatedAt, m.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert member: %w", err)
	}
	return nil
}

func (r *Members) findOne(ctx context.Context, query string, args ...any) (*directory.Member, error) {
	m, err := scanMember(r.s.execer(ctx).QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find member: %w", err)
	}
	return m, nil
}

func (r *Members) FindByID(ctx context.Context, memberID id.MemberID) (*directory.Member, error) {
	return r.findOne(ctx, `SELECT `+memberColumns+` FROM members WHERE id = $1`+forUpdate(ctx), memberID)
}

// FindByPhoneOrEmail prefers a phone match over an email match.
func (r *Members) FindByPhoneOrEmail(ctx context.Context, phone, email string) (*directory.Member, error) {
	query := `
		SELECT ` + memberColumns + ` FROM members
		WHERE ($1 <> '' AND phone = $1) OR ($2 <> '' AND lower(email) = lower($2))
		ORDER BY (phone = $1) DESC
		LIMIT 1
	`
	return r.findOne(ctx, query, phone, email)
}

func (r *Members) FindByMembershipID(ctx context.Context, membershipID string) (*directory.Member, error) {
	return r.findOne(ctx, `SELECT `+memberColumns+` FROM members WHERE membership_id = $1 AND membership_id <> ''`, membershipID)
}

// FindCoordinator returns the longest-standing active admin.
func (r *Members) FindCoordinator(ctx context.Context) (*directory.Member, error) {
	query := `
		SELECT ` + memberColumns + ` FROM members
		WHERE is_active AND role = $1
		ORDER BY created_at
		LIMIT 1
	`
	return r.findOne(ctx, query, id.RoleAdmin)
}

// ListRoster returns the members rule selects, ordered by creation.
func (r *Members) ListRoster(ctx context.Context, rule directory.RosterRule) ([]*directory.Member, error) {
	query := `
		SELECT ` + memberColumns + ` FROM members
		WHERE is_active AND role <> $1
		  AND ($2 OR ($3 AND is_worker) OR ($4 AND is_minister) OR department_ids && $5::uuid[])
		ORDER BY created_at
	`
	rows, err := r.s.execer(ctx).QueryContext(ctx, query,
		id.RoleVisitor, rule.AllMembers, rule.Workers, rule.Ministers, pq.Array(departmentStrings(rule.DepartmentIDs)))
	if err != nil {
		return nil, fmt.Errorf("list roster: %w", err)
	}
	defer rows.Close()

	var out []*directory.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scan roster member: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate roster: %w", err)
	}
	return out, nil
}

func (r *Members) UpdateStats(ctx context.Context, memberID id.MemberID, stats directory.AttendanceStats) error {
	query := `
		UPDATE members SET
			total_services = $2,
			total_present = $3,
			total_absent = $4,
			total_late = $5,
			attendance_rate = $6,
			consecutive_absences = $7,
			last_attendance = $8,
			engagement_score = $9,
			updated_at = now()
		WHERE id = $1
	`
	res, err := r.s.execer(ctx).ExecContext(ctx, query, memberID,
		stats.TotalServices, stats.TotalPresent, stats.TotalAbsent, stats.TotalLate, stats.AttendanceRate,
		stats.ConsecutiveAbsences, nullTime(stats.LastAttendance), stats.EngagementScore)
	if err != nil {
		return fmt.Errorf("update member stats: %w", err)
	}
	return requireOneRow(res, sentinel.ErrNotFound)
}
