package memory

import (
	"context"
	"slices"
	"strings"

	"flock/internal/directory"
	id "flock/pkg/domain"
	"flock/pkg/platform/sentinel"
)

type Services struct {
	s *Store
}

func (r *Services) Create(ctx context.Context, svc *directory.Service) error {
	defer r.s.lock(ctx)()
	if _, ok := r.s.state.services[svc.ID]; ok {
		return sentinel.ErrConflict
	}
	r.s.state.services[svc.ID] = svc.Clone()
	return nil
}

func (r *Services) FindByID(ctx context.Context, serviceID id.ServiceID) (*directory.Service, error) {
	defer r.s.lock(ctx)()
	svc, ok := r.s.state.services[serviceID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return svc.Clone(), nil
}

func (r *Services) ListActive(ctx context.Context) ([]*directory.Service, error) {
	defer r.s.lock(ctx)()
	var out []*directory.Service
	for _, svc := range r.s.state.services {
		if svc.IsActive {
			out = append(out, svc.Clone())
		}
	}
	slices.SortFunc(out, func(a, b *directory.Service) int {
		return strings.Compare(a.Name, b.Name)
	})
	return out, nil
}

// RecordOccurrence counts date as held for the service.
func (r *Services) RecordOccurrence(ctx context.Context, serviceID id.ServiceID, date id.Date) error {
	defer r.s.lock(ctx)()
	svc, ok := r.s.state.services[serviceID]
	if !ok {
		return sentinel.ErrNotFound
	}
	updated := svc.Clone()
	updated.Stats.Record(date)
	r.s.state.services[serviceID] = updated
	return nil
}
