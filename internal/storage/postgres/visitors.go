package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	visitorModels "flock/internal/visitor/models"
	id "flock/pkg/domain"
	"flock/pkg/platform/sentinel"
)

type Visitors struct {
	s *Store
}

const visitorColumns = `v.id, v.first_name, v.last_name, v.phone, v.email, v.visit_count, v.first_visit, v.last_visit,
	v.source, v.device, v.invite_token, v.invite_sent, v.invite_sent_at, v.converted, v.linked_member_id,
	v.conversion_date, v.created_at, v.updated_at,
	COALESCE((
		SELECT json_agg(json_build_object(
			'service_id', a.service_id, 'date', a.calendar_date, 'check_in_time', a.check_in_time
		) ORDER BY a.check_in_time)
		FROM visitor_attendances a WHERE a.visitor_id = v.id
	), '[]')`

func scanVisitor(row scanner) (*visitorModels.Record, error) {
	var (
		r                      visitorModels.Record
		device, attendances    []byte
		inviteSentAt, convDate sql.NullTime
		linked                 uuid.NullUUID
	)
	err := row.Scan(
		&r.ID, &r.FirstName, &r.LastName, &r.Phone, &r.Email, &r.VisitCount, &r.FirstVisit, &r.LastVisit,
		&r.Source, &device, &r.RegistrationInviteToken, &r.RegistrationInviteSent, &inviteSentAt, &r.ConvertedToUser, &linked,
		&convDate, &r.CreatedAt, &r.UpdatedAt, &attendances,
	)
	if err != nil {
		return nil, err
	}
	r.RegistrationInviteSentAt = timePtr(inviteSentAt)
	r.ConversionDate = timePtr(convDate)
	r.LinkedMemberID = memberIDPtr(linked)
	if err := json.Unmarshal(device, &r.Device); err != nil {
		return nil, fmt.Errorf("decode device: %w", err)
	}
	if err := json.Unmarshal(attendances, &r.Attendances); err != nil {
		return nil, fmt.Errorf("decode visitor attendances: %w", err)
	}
	return &r, nil
}

// Create inserts r and its attendances in one unit of work. Phone is unique.
func (v *Visitors) Create(ctx context.Context, r *visitorModels.Record) error {
	device, err := json.Marshal(r.Device)
	if err != nil {
		return fmt.Errorf("encode device: %w", err)
	}
	return v.s.RunInTx(ctx, func(ctx context.Context) error {
		query := `
			INSERT INTO visitors (id, first_name, last_name, phone, email, visit_count, first_visit, last_visit,
				source, device, invite_token, invite_sent, invite_sent_at, converted, linked_member_id,
				conversion_date, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		`
		_, err := v.s.execer(ctx).ExecContext(ctx, query,
			r.ID, r.FirstName, r.LastName, r.Phone, r.Email, r.VisitCount, r.FirstVisit, r.LastVisit,
			r.Source, device, r.RegistrationInviteToken, r.RegistrationInviteSent, nullTime(r.RegistrationInviteSentAt),
			r.ConvertedToUser, nullMemberID(r.LinkedMemberID), nullTime(r.ConversionDate), r.CreatedAt, r.UpdatedAt,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return sentinel.ErrConflict
			}
			return fmt.Errorf("insert visitor: %w", err)
		}
		for _, a := range r.Attendances {
			if err := v.AddAttendance(ctx, r.ID, a); err != nil {
				return err
			}
		}
		return nil
	})
}

// lockVisitor locks only the visitor row, not the attendance subquery.
func lockVisitor(ctx context.Context) string {
	if clause := forUpdate(ctx); clause != "" {
		return clause + " OF v"
	}
	return ""
}

func (v *Visitors) findOne(ctx context.Context, where string, arg any) (*visitorModels.Record, error) {
	r, err := scanVisitor(v.s.execer(ctx).QueryRowContext(ctx,
		`SELECT `+visitorColumns+` FROM visitors v WHERE `+where, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find visitor: %w", err)
	}
	return r, nil
}

func (v *Visitors) FindByID(ctx context.Context, visitorID id.VisitorID) (*visitorModels.Record, error) {
	return v.findOne(ctx, `v.id = $1`, visitorID)
}

func (v *Visitors) FindByPhone(ctx context.Context, phone string) (*visitorModels.Record, error) {
	return v.findOne(ctx, `v.phone = $1`+lockVisitor(ctx), phone)
}

func (v *Visitors) FindByEmail(ctx context.Context, email string) (*visitorModels.Record, error) {
	if email == "" {
		return nil, sentinel.ErrNotFound
	}
	return v.findOne(ctx, `lower(v.email) = lower($1) ORDER BY v.last_visit DESC LIMIT 1`, email)
}

func (v *Visitors) FindByInviteToken(ctx context.Context, token string) (*visitorModels.Record, error) {
	if token == "" {
		return nil, sentinel.ErrNotFound
	}
	return v.findOne(ctx, `v.invite_token = $1`+lockVisitor(ctx), token)
}

// AddAttendance records a visit. One visit per service and date.
func (v *Visitors) AddAttendance(ctx context.Context, visitorID id.VisitorID, a visitorModels.Attendance) error {
	_, err := v.s.execer(ctx).ExecContext(ctx, `
		INSERT INTO visitor_attendances (visitor_id, service_id, calendar_date, check_in_time)
		VALUES ($1, $2, $3, $4)
	`, visitorID, a.ServiceID, a.Date, a.CheckInTime)
	if err != nil {
		switch pqCode(err) {
		case uniqueViolation:
			return sentinel.ErrConflict
		case foreignKeyViolation:
			return sentinel.ErrNotFound
		}
		return fmt.Errorf("insert visitor attendance: %w", err)
	}
	return nil
}

// Update stores every column of r. The visit count is derived from the
// stored attendances, which only AddAttendance writes.
func (v *Visitors) Update(ctx context.Context, r *visitorModels.Record) error {
	device, err := json.Marshal(r.Device)
	if err != nil {
		return fmt.Errorf("encode device: %w", err)
	}
	query := `
		UPDATE visitors SET
			first_name = $2, last_name = $3, email = $4,
			visit_count = (SELECT count(*) FROM visitor_attendances WHERE visitor_id = $1),
			first_visit = $5, last_visit = $6, device = $7, invite_token = $8, invite_sent = $9,
			invite_sent_at = $10, converted = $11, linked_member_id = $12, conversion_date = $13, updated_at = $14
		WHERE id = $1
	`
	res, err := v.s.execer(ctx).ExecContext(ctx, query,
		r.ID, r.FirstName, r.LastName, r.Email, r.FirstVisit, r.LastVisit, device,
		r.RegistrationInviteToken, r.RegistrationInviteSent, nullTime(r.RegistrationInviteSentAt),
		r.ConvertedToUser, nullMemberID(r.LinkedMemberID), nullTime(r.ConversionDate), r.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("update visitor: %w", err)
	}
	return requireOneRow(res, sentinel.ErrNotFound)
}

// ListUnconverted returns visitors not yet linked to a member, most recent
// visit first.
func (v *Visitors) ListUnconverted(ctx context.Context) ([]*visitorModels.Record, error) {
	rows, err := v.s.execer(ctx).QueryContext(ctx,
		`SELECT `+visitorColumns+` FROM visitors v WHERE NOT v.converted ORDER BY v.last_visit DESC`)
	if err != nil {
		return nil, fmt.Errorf("list visitors: %w", err)
	}
	defer rows.Close()

	var out []*visitorModels.Record
	for rows.Next() {
		r, err := scanVisitor(rows)
		if err != nil {
			return nil, fmt.Errorf("scan visitor: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate visitors: %w", err)
	}
	return out, nil
}
