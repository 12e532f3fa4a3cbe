package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	absenceHandler "flock/internal/absence/handler"
	absenceMetrics "flock/internal/absence/metrics"
	absenceService "flock/internal/absence/service"
	"flock/internal/absence/worker"
	attendanceHandler "flock/internal/attendance/handler"
	attendanceMetrics "flock/internal/attendance/metrics"
	attendanceService "flock/internal/attendance/service"
	followupHandler "flock/internal/followup/handler"
	followupMetrics "flock/internal/followup/metrics"
	followupService "flock/internal/followup/service"
	"flock/internal/notify"
	"flock/internal/platform/config"
	"flock/internal/platform/httpserver"
	"flock/internal/platform/kafka"
	"flock/internal/platform/logger"
	"flock/internal/platform/metrics"
	"flock/internal/platform/redis"
	httptransport "flock/internal/transport/http"
	visitorHandler "flock/internal/visitor/handler"
	visitorMetrics "flock/internal/visitor/metrics"
	visitorService "flock/internal/visitor/service"
	"flock/pkg/platform/middleware/auth"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Server.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	repos, err := openRepositories(ctx, cfg.Database, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := repos.close(); err != nil {
			log.Warn("failed to close store", "error", err)
		}
	}()

	notifier, brokerHealth, closeNotifier, err := newNotifier(ctx, cfg.Kafka, log)
	if err != nil {
		return err
	}
	defer closeNotifier()

	absenceOpts := []absenceService.Option{
		absenceService.WithLogger(log),
		absenceService.WithMetrics(absenceMetrics.New()),
	}
	ready := combineReady(repos.ready, brokerHealth)
	if cfg.Redis.URL != "" {
		client, err := redis.New(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer func() { _ = client.Close() }()
		absenceOpts = append(absenceOpts, absenceService.WithLocker(client.Locker(), cfg.Absence.LockTTL))
		ready = combineReady(ready, client.Health)
		log.Info("absence evaluation lock backed by redis")
	}

	attendance := attendanceService.New(repos.members, repos.services, repos.events, repos.tx,
		attendanceService.WithLogger(log),
		attendanceService.WithMetrics(attendanceMetrics.New()),
	)
	followUps := followupService.New(repos.tasks, repos.members, repos.tx,
		followupService.WithLogger(log),
		followupService.WithMetrics(followupMetrics.New()),
		followupService.WithNotifier(notifier),
	)
	visitors := visitorService.New(repos.members, repos.visitors, repos.services, repos.events, attendance, repos.tx,
		visitorService.WithLogger(log),
		visitorService.WithMetrics(visitorMetrics.New()),
		visitorService.WithNotifier(notifier),
	)
	absences := absenceService.New(repos.members, repos.services, repos.events, repos.absences, followUps, repos.tx, absenceOpts...)

	router := httptransport.NewRouter(httptransport.Config{
		Logger:         log,
		Metrics:        metrics.New(),
		Validator:      auth.NewHMACValidator(cfg.Auth.JWTSigningKey, cfg.Auth.JWTIssuer),
		AdminToken:     cfg.Auth.AdminToken,
		RequestTimeout: cfg.Server.RequestTimeout,
		Ready:          ready,
	}, httptransport.Handlers{
		Attendance: attendanceHandler.New(attendance, log),
		Visitors:   visitorHandler.New(visitors, log),
		FollowUps:  followupHandler.New(followUps, log),
		Absences:   absenceHandler.New(absences, log),
	})
	srv := httpserver.New(cfg.Server, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting flock", "addr", cfg.Server.Addr, "env", cfg.Server.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if cfg.Absence.Enabled {
		w := worker.New(repos.services, absences, cfg.Absence.PollInterval,
			worker.WithLogger(log),
			worker.WithLookback(cfg.Absence.LookbackDays),
		)
		g.Go(func() error {
			if err := w.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// newNotifier publishes to Kafka when brokers are configured and logs
// notifications otherwise.
func newNotifier(ctx context.Context, cfg config.KafkaConfig, log *slog.Logger) (notify.Dispatcher, func(context.Context) error, func(), error) {
	client, err := kafka.New(cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	if client == nil {
		return notify.NewLogDispatcher(log), nil, func() {}, nil
	}
	if err := kafka.EnsureTopic(ctx, client, cfg); err != nil {
		client.Close()
		return nil, nil, nil, err
	}
	log.Info("notifications published to kafka", "topic", cfg.NotificationTopic)
	health := func(ctx context.Context) error { return kafka.Health(ctx, client) }
	return notify.NewKafkaDispatcher(client, cfg.NotificationTopic, notify.WithLogger(log)), health, client.Close, nil
}

func combineReady(checks ...func(context.Context) error) func(context.Context) error {
	return func(ctx context.Context) error {
		for _, check := range checks {
			if check == nil {
				continue
			}
			if err := check(ctx); err != nil {
				return err
			}
		}
		return nil
	}
}
