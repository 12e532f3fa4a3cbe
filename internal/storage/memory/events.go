package memory

import (
	"context"
	"slices"

	attendanceModels "flock/internal/attendance/models"
	id "flock/pkg/domain"
	"flock/pkg/platform/sentinel"
)

type Events struct {
	s *Store
}

func keyOf(e *attendanceModels.CheckInEvent) eventKey {
	return eventKey{memberID: e.MemberID, occurrenceKey: occurrenceKey{serviceID: e.ServiceID, date: e.CalendarDate}}
}

// Create inserts e. A second live event for the same member, service and
// date is a conflict.
func (r *Events) Create(ctx context.Context, e *attendanceModels.CheckInEvent) error {
	defer r.s.lock(ctx)()
	st := &r.s.state
	if _, ok := st.events[e.ID]; ok {
		return sentinel.ErrConflict
	}
	if !e.IsDeleted {
		if _, ok := st.activeEvents[keyOf(e)]; ok {
			return sentinel.ErrConflict
		}
		st.activeEvents[keyOf(e)] = e.ID
	}
	st.events[e.ID] = e.Clone()
	return nil
}

func (r *Events) FindByID(ctx context.Context, eventID id.CheckInID) (*attendanceModels.CheckInEvent, error) {
	defer r.s.lock(ctx)()
	e, ok := r.s.state.events[eventID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return e.Clone(), nil
}

// FindActive returns the live event for the member at the occurrence.
func (r *Events) FindActive(ctx context.Context, memberID id.MemberID, serviceID id.ServiceID, date id.Date) (*attendanceModels.CheckInEvent, error) {
	defer r.s.lock(ctx)()
	key := eventKey{memberID: memberID, occurrenceKey: occurrenceKey{serviceID: serviceID, date: date}}
	eventID, ok := r.s.state.activeEvents[key]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return r.s.state.events[eventID].Clone(), nil
}

// Update replaces e. Soft-deleting an event releases its occurrence slot.
func (r *Events) Update(ctx context.Context, e *attendanceModels.CheckInEvent) error {
	defer r.s.lock(ctx)()
	st := &r.s.state
	if _, ok := st.events[e.ID]; !ok {
		return sentinel.ErrNotFound
	}
	if e.IsDeleted && st.activeEvents[keyOf(e)] == e.ID {
		delete(st.activeEvents, keyOf(e))
	}
	st.events[e.ID] = e.Clone()
	return nil
}

// ListByOccurrence returns the live events for a service on date in
// check-in order.
func (r *Events) ListByOccurrence(ctx context.Context, serviceID id.ServiceID, date id.Date) ([]*attendanceModels.CheckInEvent, error) {
	defer r.s.lock(ctx)()
	var out []*attendanceModels.CheckInEvent
	for _, e := range r.s.state.events {
		if !e.IsDeleted && e.ServiceID == serviceID && e.CalendarDate == date {
			out = append(out, e.Clone())
		}
	}
	slices.SortFunc(out, func(a, b *attendanceModels.CheckInEvent) int {
		return a.CheckInTime.Compare(b.CheckInTime)
	})
	return out, nil
}

// AttendeeIDs returns the members holding a live event at the occurrence.
func (r *Events) AttendeeIDs(ctx context.Context, serviceID id.ServiceID, date id.Date) ([]id.MemberID, error) {
	defer r.s.lock(ctx)()
	var out []id.MemberID
	for key := range r.s.state.activeEvents {
		if key.serviceID == serviceID && key.date == date {
			out = append(out, key.memberID)
		}
	}
	return out, nil
}

// ListByMember returns a member's live events, newest first.
func (r *Events) ListByMember(ctx context.Context, memberID id.MemberID, limit int) ([]*attendanceModels.CheckInEvent, error) {
	defer r.s.lock(ctx)()
	var out []*attendanceModels.CheckInEvent
	for _, e := range r.s.state.events {
		if !e.IsDeleted && e.MemberID == memberID {
			out = append(out, e.Clone())
		}
	}
	slices.SortFunc(out, func(a, b *attendanceModels.CheckInEvent) int {
		return b.CheckInTime.Compare(a.CheckInTime)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Search pages through the live events matching f, newest first, and
// reports the total match count.
func (r *Events) Search(ctx context.Context, f attendanceModels.EventFilter) ([]*attendanceModels.CheckInEvent, int, error) {
	defer r.s.lock(ctx)()
	var matched []*attendanceModels.CheckInEvent
	for _, e := range r.s.state.events {
		if f.Matches(e) {
			matched = append(matched, e)
		}
	}
	slices.SortFunc(matched, attendanceModels.CompareNewest)

	total := len(matched)
	start := min(f.Offset(), total)
	end := total
	if f.Limit > 0 {
		end = min(start+f.Limit, total)
	}
	out := make([]*attendanceModels.CheckInEvent, 0, end-start)
	for _, e := range matched[start:end] {
		out = append(out, e.Clone())
	}
	return out, total, nil
}
