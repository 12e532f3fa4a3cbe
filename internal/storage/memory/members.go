package memory

import (
	"context"
	"slices"
	"strings"

	"flock/internal/directory"
	id "flock/pkg/domain"
	"flock/pkg/platform/sentinel"
)

type Members struct {
	s *Store
}

// Create inserts m. Phone, email and membership ID are unique.
func (r *Members) Create(ctx context.Context, m *directory.Member) error {
	defer r.s.lock(ctx)()
	st := &r.s.state
	if _, ok := st.members[m.ID]; ok {
		return sentinel.ErrConflict
	}
	for _, existing := range st.members {
		if (m.Phone != "" && existing.Phone == m.Phone) ||
			(m.Email != "" && strings.EqualFold(existing.Email, m.Email)) ||
			(m.MembershipID != "" && existing.MembershipID == m.MembershipID) {
			return sentinel.ErrConflict
		}
	}
	st.members[m.ID] = m.Clone()
	return nil
}

func (r *Members) FindByID(ctx context.Context, memberID id.MemberID) (*directory.Member, error) {
	defer r.s.lock(ctx)()
	m, ok := r.s.state.members[memberID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return m.Clone(), nil
}

// FindByPhoneOrEmail prefers a phone match over an email match.
func (r *Members) FindByPhoneOrEmail(ctx context.Context, phone, email string) (*directory.Member, error) {
	defer r.s.lock(ctx)()
	var byEmail *directory.Member
	for _, m := range r.s.state.members {
		if phone != "" && m.Phone == phone {
			return m.Clone(), nil
		}
		if email != "" && byEmail == nil && strings.EqualFold(m.Email, email) {
			byEmail = m
		}
	}
	if byEmail == nil {
		return nil, sentinel.ErrNotFound
	}
	return byEmail.Clone(), nil
}

func (r *Members) FindByMembershipID(ctx context.Context, membershipID string) (*directory.Member, error) {
	defer r.s.lock(ctx)()
	for _, m := range r.s.state.members {
		if m.MembershipID == membershipID {
			return m.Clone(), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

// FindCoordinator returns the longest-standing active admin.
func (r *Members) FindCoordinator(ctx context.Context) (*directory.Member, error) {
	defer r.s.lock(ctx)()
	var best *directory.Member
	for _, m := range r.s.state.members {
		if !m.IsActive || m.Role != id.RoleAdmin {
			continue
		}
		if best == nil || m.CreatedAt.Before(best.CreatedAt) {
			best = m
		}
	}
	if best == nil {
		return nil, sentinel.ErrNotFound
	}
	return best.Clone(), nil
}

// ListRoster returns the members rule selects, ordered by creation.
func (r *Members) ListRoster(ctx context.Context, rule directory.RosterRule) ([]*directory.Member, error) {
	defer r.s.lock(ctx)()
	var out []*directory.Member
	for _, m := range r.s.state.members {
		if rule.Includes(m) {
			out = append(out, m.Clone())
		}
	}
	slices.SortFunc(out, func(a, b *directory.Member) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return out, nil
}

func (r *Members) UpdateStats(ctx context.Context, memberID id.MemberID, stats directory.AttendanceStats) error {
	defer r.s.lock(ctx)()
	m, ok := r.s.state.members[memberID]
	if !ok {
		return sentinel.ErrNotFound
	}
	updated := m.Clone()
	updated.Stats = stats
	if stats.LastAttendance != nil {
		t := *stats.LastAttendance
		updated.Stats.LastAttendance = &t
	}
	r.s.state.members[memberID] = updated
	return nil
}
