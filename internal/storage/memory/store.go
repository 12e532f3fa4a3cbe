// Package memory is the in-process store. One lock guards all aggregates so
// a unit of work spanning members, events, tasks and visitors is atomic, and
// a failed unit of work restores the state it started from.
package memory

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	absenceModels "flock/internal/absence/models"
	attendanceModels "flock/internal/attendance/models"
	"flock/internal/directory"
	followupModels "flock/internal/followup/models"
	visitorModels "flock/internal/visitor/models"
	id "flock/pkg/domain"
	dErrors "flock/pkg/domain-errors"
	"flock/pkg/platform/tx"
)

const defaultTxTimeout = 5 * time.Second

type (
	occurrenceKey struct {
		serviceID id.ServiceID
		date      id.Date
	}
	eventKey struct {
		memberID id.MemberID
		occurrenceKey
	}
	openTaskKey struct {
		memberID id.MemberID
		reason   followupModels.Reason
	}
	visitKey struct {
		visitorID id.VisitorID
		occurrenceKey
	}
)

// state holds immutable values: writers replace map entries with fresh
// clones and readers receive clones, so copying the maps is a full snapshot.
type state struct {
	members      map[id.MemberID]*directory.Member
	services     map[id.ServiceID]*directory.Service
	events       map[id.CheckInID]*attendanceModels.CheckInEvent
	activeEvents map[eventKey]id.CheckInID
	tasks        map[id.TaskID]*followupModels.Task
	openTasks    map[openTaskKey]id.TaskID
	visitors     map[id.VisitorID]*visitorModels.Record
	visits       map[visitKey]struct{}
	absences     []absenceModels.Absence
	absenceKeys  map[eventKey]struct{}
	runs         map[occurrenceKey]*absenceModels.Report
}

func newState() state {
	return state{
		members:      make(map[id.MemberID]*directory.Member),
		services:     make(map[id.ServiceID]*directory.Service),
		events:       make(map[id.CheckInID]*attendanceModels.CheckInEvent),
		activeEvents: make(map[eventKey]id.CheckInID),
		tasks:        make(map[id.TaskID]*followupModels.Task),
		openTasks:    make(map[openTaskKey]id.TaskID),
		visitors:     make(map[id.VisitorID]*visitorModels.Record),
		visits:       make(map[visitKey]struct{}),
		absenceKeys:  make(map[eventKey]struct{}),
		runs:         make(map[occurrenceKey]*absenceModels.Report),
	}
}

func (s state) snapshot() state {
	return state{
		members:      maps.Clone(s.members),
		services:     maps.Clone(s.services),
		events:       maps.Clone(s.events),
		activeEvents: maps.Clone(s.activeEvents),
		tasks:        maps.Clone(s.tasks),
		openTasks:    maps.Clone(s.openTasks),
		visitors:     maps.Clone(s.visitors),
		visits:       maps.Clone(s.visits),
		absences:     slices.Clone(s.absences),
		absenceKeys:  maps.Clone(s.absenceKeys),
		runs:         maps.Clone(s.runs),
	}
}

// Store is the in-memory implementation of every repository.
type Store struct {
	mu      sync.Mutex
	state   state
	timeout time.Duration
}

func New() *Store {
	return &Store{state: newState(), timeout: defaultTxTimeout}
}

type txMarker struct{}

// lock acquires the store lock unless ctx is already inside this store's
// unit of work, which holds it.
func (s *Store) lock(ctx context.Context) func() {
	if owner, ok := ctx.Value(txMarker{}).(*Store); ok && owner == s {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

// RunInTx runs fn holding the store lock. Nested calls join the outer unit
// of work. If fn fails, every write it made is discarded; otherwise hooks
// registered with tx.AfterCommit run once the lock is released.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if owner, ok := ctx.Value(txMarker{}).(*Store); ok && owner == s {
		return fn(ctx)
	}
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	ctx, runHooks := tx.WithHooks(ctx)
	if err := s.apply(context.WithValue(ctx, txMarker{}, s), fn); err != nil {
		return err
	}
	runHooks()
	return nil
}

func (s *Store) apply(ctx context.Context, fn func(ctx context.Context) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	before := s.state.snapshot()
	if err := fn(ctx); err != nil {
		s.state = before
		return err
	}
	return nil
}

// Members returns the member repository.
func (s *Store) Members() *Members { return &Members{s: s} }

// Services returns the service catalog repository.
func (s *Store) Services() *Services { return &Services{s: s} }

// Events returns the check-in event repository.
func (s *Store) Events() *Events { return &Events{s: s} }

// Tasks returns the follow-up task repository.
func (s *Store) Tasks() *Tasks { return &Tasks{s: s} }

// Visitors returns the visitor record repository.
func (s *Store) Visitors() *Visitors { return &Visitors{s: s} }

// Absences returns the absence and run repository.
func (s *Store) Absences() *Absences { return &Absences{s: s} }
