package memory

import (
	"context"
	"slices"
	"strings"

	visitorModels "flock/internal/visitor/models"
	id "flock/pkg/domain"
	"flock/pkg/platform/sentinel"
)

type Visitors struct {
	s *Store
}

// Create inserts r with its attendances. Phone is unique.
func (v *Visitors) Create(ctx context.Context, r *visitorModels.Record) error {
	defer v.s.lock(ctx)()
	st := &v.s.state
	if _, ok := st.visitors[r.ID]; ok {
		return sentinel.ErrConflict
	}
	for _, existing := range st.visitors {
		if existing.Phone == r.Phone {
			return sentinel.ErrConflict
		}
	}
	for _, a := range r.Attendances {
		st.visits[visitKey{visitorID: r.ID, occurrenceKey: occurrenceKey{serviceID: a.ServiceID, date: a.Date}}] = struct{}{}
	}
	st.visitors[r.ID] = r.Clone()
	return nil
}

func (v *Visitors) FindByID(ctx context.Context, visitorID id.VisitorID) (*visitorModels.Record, error) {
	defer v.s.lock(ctx)()
	r, ok := v.s.state.visitors[visitorID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return r.Clone(), nil
}

func (v *Visitors) FindByPhone(ctx context.Context, phone string) (*visitorModels.Record, error) {
	return v.findFirst(ctx, func(r *visitorModels.Record) bool { return r.Phone == phone })
}

func (v *Visitors) FindByEmail(ctx context.Context, email string) (*visitorModels.Record, error) {
	if email == "" {
		return nil, sentinel.ErrNotFound
	}
	return v.findFirst(ctx, func(r *visitorModels.Record) bool { return strings.EqualFold(r.Email, email) })
}

func (v *Visitors) FindByInviteToken(ctx context.Context, token string) (*visitorModels.Record, error) {
	if token == "" {
		return nil, sentinel.ErrNotFound
	}
	return v.findFirst(ctx, func(r *visitorModels.Record) bool { return r.RegistrationInviteToken == token })
}

func (v *Visitors) findFirst(ctx context.Context, match func(*visitorModels.Record) bool) (*visitorModels.Record, error) {
	defer v.s.lock(ctx)()
	for _, r := range v.s.state.visitors {
		if match(r) {
			return r.Clone(), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

// AddAttendance records a visit. One visit per service and date.
func (v *Visitors) AddAttendance(ctx context.Context, visitorID id.VisitorID, a visitorModels.Attendance) error {
	defer v.s.lock(ctx)()
	st := &v.s.state
	r, ok := st.visitors[visitorID]
	if !ok {
		return sentinel.ErrNotFound
	}
	key := visitKey{visitorID: visitorID, occurrenceKey: occurrenceKey{serviceID: a.ServiceID, date: a.Date}}
	if _, dup := st.visits[key]; dup {
		return sentinel.ErrConflict
	}
	st.visits[key] = struct{}{}
	updated := r.Clone()
	updated.Attendances = append(updated.Attendances, a)
	st.visitors[visitorID] = updated
	return nil
}

// Update stores every field of r except its attendances, which only
// AddAttendance writes.
func (v *Visitors) Update(ctx context.Context, r *visitorModels.Record) error {
	defer v.s.lock(ctx)()
	st := &v.s.state
	existing, ok := st.visitors[r.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	updated := r.Clone()
	updated.Attendances = slices.Clone(existing.Attendances)
	st.visitors[r.ID] = updated
	return nil
}

// ListUnconverted returns visitors not yet linked to a member, most recent
// visit first.
func (v *Visitors) ListUnconverted(ctx context.Context) ([]*visitorModels.Record, error) {
	defer v.s.lock(ctx)()
	var out []*visitorModels.Record
	for _, r := range v.s.state.visitors {
		if !r.ConvertedToUser {
			out = append(out, r.Clone())
		}
	}
	slices.SortFunc(out, func(a, b *visitorModels.Record) int {
		return b.LastVisit.Compare(a.LastVisit)
	})
	return out, nil
}
