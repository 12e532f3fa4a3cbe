package main

import (
	"context"
	"log/slog"

	absenceService "flock/internal/absence/service"
	"flock/internal/absence/worker"
	attendanceService "flock/internal/attendance/service"
	followupService "flock/internal/followup/service"
	"flock/internal/platform/config"
	"flock/internal/platform/postgres"
	"flock/internal/storage/memory"
	pgstore "flock/internal/storage/postgres"
	visitorService "flock/internal/visitor/service"
)

type memberRepository interface {
	attendanceService.MemberStore
	visitorService.MemberDirectory
	absenceService.MemberStore
	followupService.MemberDirectory
}

type serviceRepository interface {
	attendanceService.ServiceCatalog
	worker.ServiceLister
}

type eventRepository interface {
	attendanceService.EventStore
	absenceService.AttendeeSource
}

// repositories is the storage backend selected at startup.
type repositories struct {
	members  memberRepository
	services serviceRepository
	events   eventRepository
	tasks    followupService.TaskStore
	visitors visitorService.VisitorStore
	absences absenceService.AbsenceStore
	tx       attendanceService.TxRunner
	ready    func(ctx context.Context) error
	close    func() error
}

// openRepositories connects to Postgres when DATABASE_URL is set and falls
// back to the in-memory store otherwise.
func openRepositories(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) (*repositories, error) {
	if cfg.URL == "" {
		logger.Warn("DATABASE_URL not set, using in-memory store")
		store := memory.New()
		return &repositories{
			members:  store.Members(),
			services: store.Services(),
			events:   store.Events(),
			tasks:    store.Tasks(),
			visitors: store.Visitors(),
			absences: store.Absences(),
			tx:       store,
			close:    func() error { return nil },
		}, nil
	}

	db, err := postgres.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := pgstore.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	store := pgstore.New(db)
	logger.Info("connected to postgres")
	return &repositories{
		members:  store.Members(),
		services: store.Services(),
		events:   store.Events(),
		tasks:    store.Tasks(),
		visitors: store.Visitors(),
		absences: store.Absences(),
		tx:       store,
		ready:    db.PingContext,
		close:    db.Close,
	}, nil
}
