// Package worker periodically evaluates absences for service occurrences
// that have ended.
package worker

import (
	"context"
	"log/slog"
	"time"

	"flock/internal/absence/models"
	"flock/internal/directory"
	id "flock/pkg/domain"
	dErrors "flock/pkg/domain-errors"
	"flock/pkg/requestcontext"
)

type ServiceLister interface {
	ListActive(ctx context.Context) ([]*directory.Service, error)
}

type Evaluator interface {
	EvaluateAbsences(ctx context.Context, serviceID id.ServiceID, date id.Date) (*models.Report, error)
}

type Worker struct {
	services     ServiceLister
	evaluator    Evaluator
	interval     time.Duration
	lookbackDays int
	logger       *slog.Logger
}

type Option func(*Worker)

func WithLogger(logger *slog.Logger) Option {
	return func(w *Worker) {
		w.logger = logger
	}
}

// WithLookback makes every sweep also re-check the previous days days.
func WithLookback(days int) Option {
	return func(w *Worker) {
		if days >= 0 {
			w.lookbackDays = days
		}
	}
}

func New(services ServiceLister, evaluator Evaluator, interval time.Duration, opts ...Option) *Worker {
	w := &Worker{services: services, evaluator: evaluator, interval: interval, lookbackDays: 1, logger: slog.Default()}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run sweeps once on start and then every interval until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.sweep(ctx)
	for {
		select {
		case <-ticker.C:
			w.sweep(ctx)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (w *Worker) sweep(ctx context.Context) {
	if _, err := w.RunAt(ctx, time.Now()); err != nil {
		w.logger.ErrorContext(ctx, "absence sweep failed", "error", err)
	}
}

// RunAt evaluates every ended occurrence of an active service from the
// lookback window up to now's date, oldest first, and returns how many were
// newly evaluated. Occurrences already evaluated are reported as such by the
// evaluator and not counted.
func (w *Worker) RunAt(ctx context.Context, now time.Time) (int, error) {
	services, err := w.services.ListActive(ctx)
	if err != nil {
		return 0, err
	}

	ctx = requestcontext.WithTime(ctx, now)
	evaluated := 0
	for _, svc := range services {
		today := id.DateOf(now, svc.Location())
		for back := w.lookbackDays; back >= 0; back-- {
			date := today.AddDays(-back)
			if !w.due(ctx, svc, date, now) {
				continue
			}
			if w.evaluate(ctx, svc, date) {
				evaluated++
			}
		}
	}
	return evaluated, nil
}

// due reports whether svc held an occurrence on date that has ended by now
// and did not end before the service was created.
func (w *Worker) due(ctx context.Context, svc *directory.Service, date id.Date, now time.Time) bool {
	if !svc.OccursOn(date) {
		return false
	}
	endsAt, err := svc.EndOn(date)
	if err != nil {
		w.logger.WarnContext(ctx, "skipping service with invalid schedule", "service_id", svc.ID, "error", err)
		return false
	}
	if now.Before(endsAt) {
		return false
	}
	return svc.CreatedAt.IsZero() || !endsAt.Before(svc.CreatedAt)
}

func (w *Worker) evaluate(ctx context.Context, svc *directory.Service, date id.Date) bool {
	report, err := w.evaluator.EvaluateAbsences(ctx, svc.ID, date)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeConflict) {
			w.logger.InfoContext(ctx, "absence evaluation running elsewhere", "service_id", svc.ID, "date", date)
			return false
		}
		w.logger.ErrorContext(ctx, "absence evaluation failed", "service_id", svc.ID, "date", date, "error", err)
		return false
	}
	return !report.AlreadyEvaluated
}
