package memory

import (
	"context"
	"slices"

	followupModels "flock/internal/followup/models"
	id "flock/pkg/domain"
	"flock/pkg/platform/sentinel"
)

type Tasks struct {
	s *Store
}

func openKeyOf(t *followupModels.Task) openTaskKey {
	return openTaskKey{memberID: t.MemberID, reason: t.Reason}
}

// Create inserts t. At most one open absence task may exist per member.
func (r *Tasks) Create(ctx context.Context, t *followupModels.Task) error {
	defer r.s.lock(ctx)()
	st := &r.s.state
	if _, ok := st.tasks[t.ID]; ok {
		return sentinel.ErrConflict
	}
	if t.Status.IsOpen() && t.Reason == followupModels.ReasonConsecutiveAbsences {
		if _, ok := st.openTasks[openKeyOf(t)]; ok {
			return sentinel.ErrConflict
		}
		st.openTasks[openKeyOf(t)] = t.ID
	}
	st.tasks[t.ID] = t.Clone()
	return nil
}

func (r *Tasks) FindByID(ctx context.Context, taskID id.TaskID) (*followupModels.Task, error) {
	defer r.s.lock(ctx)()
	t, ok := r.s.state.tasks[taskID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return t.Clone(), nil
}

// FindOpen returns the member's open task for reason.
func (r *Tasks) FindOpen(ctx context.Context, memberID id.MemberID, reason followupModels.Reason) (*followupModels.Task, error) {
	defer r.s.lock(ctx)()
	st := &r.s.state
	if taskID, ok := st.openTasks[openTaskKey{memberID: memberID, reason: reason}]; ok {
		return st.tasks[taskID].Clone(), nil
	}
	var found *followupModels.Task
	for _, t := range st.tasks {
		if t.MemberID == memberID && t.Reason == reason && t.Status.IsOpen() {
			if found == nil || t.CreatedAt.After(found.CreatedAt) {
				found = t
			}
		}
	}
	if found == nil {
		return nil, sentinel.ErrNotFound
	}
	return found.Clone(), nil
}

func (r *Tasks) Update(ctx context.Context, t *followupModels.Task) error {
	defer r.s.lock(ctx)()
	st := &r.s.state
	if _, ok := st.tasks[t.ID]; !ok {
		return sentinel.ErrNotFound
	}
	if !t.Status.IsOpen() && st.openTasks[openKeyOf(t)] == t.ID {
		delete(st.openTasks, openKeyOf(t))
	}
	st.tasks[t.ID] = t.Clone()
	return nil
}

// ListOpenByAssignee returns open tasks assigned to memberID, soonest due first.
func (r *Tasks) ListOpenByAssignee(ctx context.Context, memberID id.MemberID) ([]*followupModels.Task, error) {
	defer r.s.lock(ctx)()
	var out []*followupModels.Task
	for _, t := range r.s.state.tasks {
		if t.Status.IsOpen() && t.AssignedTo != nil && *t.AssignedTo == memberID {
			out = append(out, t.Clone())
		}
	}
	slices.SortFunc(out, func(a, b *followupModels.Task) int {
		return a.DueDate.Compare(b.DueDate)
	})
	return out, nil
}

func (r *Tasks) Search(ctx context.Context, f followupModels.TaskFilter) ([]*followupModels.Task, int, error) {
	defer r.s.lock(ctx)()
	var matched []*followupModels.Task
	for _, t := range r.s.state.tasks {
		if f.Status != "" && t.Status != f.Status {
			continue
		}
		if f.Priority != "" && t.Priority != f.Priority {
			continue
		}
		if f.AssignedTo != nil && (t.AssignedTo == nil || *t.AssignedTo != *f.AssignedTo) {
			continue
		}
		matched = append(matched, t)
	}
	slices.SortFunc(matched, followupModels.CompareUrgency)

	total := len(matched)
	start := min(max(f.Offset(), 0), total)
	end := total
	if f.Limit > 0 {
		end = min(start+f.Limit, total)
	}
	out := make([]*followupModels.Task, 0, end-start)
	for _, t := range matched[start:end] {
		out = append(out, t.Clone())
	}
	return out, total, nil
}
