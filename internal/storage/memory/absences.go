package memory

import (
	"context"
	"slices"

	absenceModels "flock/internal/absence/models"
	id "flock/pkg/domain"
	"flock/pkg/platform/sentinel"
)

type Absences struct {
	s *Store
}

// FindRun returns the stored evaluation report for the occurrence.
func (r *Absences) FindRun(ctx context.Context, serviceID id.ServiceID, date id.Date) (*absenceModels.Report, error) {
	defer r.s.lock(ctx)()
	report, ok := r.s.state.runs[occurrenceKey{serviceID: serviceID, date: date}]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return report.Clone(), nil
}

// SaveRun stores a report. An occurrence is evaluated at most once.
func (r *Absences) SaveRun(ctx context.Context, report *absenceModels.Report) error {
	defer r.s.lock(ctx)()
	key := occurrenceKey{serviceID: report.ServiceID, date: report.Date}
	if _, ok := r.s.state.runs[key]; ok {
		return sentinel.ErrConflict
	}
	r.s.state.runs[key] = report.Clone()
	return nil
}

func (r *Absences) Record(ctx context.Context, a absenceModels.Absence) error {
	defer r.s.lock(ctx)()
	st := &r.s.state
	key := eventKey{memberID: a.MemberID, occurrenceKey: occurrenceKey{serviceID: a.ServiceID, date: a.Date}}
	if _, ok := st.absenceKeys[key]; ok {
		return sentinel.ErrConflict
	}
	st.absenceKeys[key] = struct{}{}
	st.absences = append(st.absences, a)
	return nil
}

// Recent returns up to limit of the member's absences, newest first.
func (r *Absences) Recent(ctx context.Context, memberID id.MemberID, limit int) ([]absenceModels.Absence, error) {
	defer r.s.lock(ctx)()
	var out []absenceModels.Absence
	for _, a := range r.s.state.absences {
		if a.MemberID == memberID {
			out = append(out, a)
		}
	}
	slices.SortStableFunc(out, func(a, b absenceModels.Absence) int {
		switch {
		case b.Date.Before(a.Date):
			return -1
		case a.Date.Before(b.Date):
			return 1
		}
		return b.RecordedAt.Compare(a.RecordedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
