package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/complaint-service/internal/api/http"
	"github.com/spec-kit/complaint-service/internal/api/http/handlers"
	"github.com/spec-kit/complaint-service/internal/auth"
	"github.com/spec-kit/complaint-service/internal/config"
	"github.com/spec-kit/complaint-service/internal/events"
	"github.com/spec-kit/complaint-service/internal/notify"
	"github.com/spec-kit/complaint-service/internal/observability"
	"github.com/spec-kit/complaint-service/internal/persistence"
	"github.com/spec-kit/complaint-service/internal/repository"
	"github.com/spec-kit/complaint-service/internal/service"
	"github.com/spec-kit/complaint-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	complaintRepo := repository.NewComplaintRepository(pool)
	accountRepo := repository.NewAccountRepository(pool)
	auditRepo := repository.NewAuditRepository(pool)

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()

	lifecycleService := service.NewLifecycleService(service.LifecycleDependencies{
		ComplaintRepo: complaintRepo,
		AccountRepo:   accountRepo,
		AuditRepo:     auditRepo,
		Dispatcher:    dispatcher,
	})
	directoryService := service.NewDirectoryService(accountRepo, cfg.Auth, logger)
	authService := service.NewAuthService(*cfg, accountRepo)
	reportService := service.NewReportService(complaintRepo, accountRepo)

	gateway := notify.NewHTTPGateway(cfg.Gateway, metrics, logger)
	notificationService := service.NewNotificationService(dispatcher, gateway, accountRepo, cfg.Escalation, logger)
	worker.StartNotificationWorker(notificationService)

	if err := directoryService.EnsureSuperAdmin(ctx, cfg.Auth); err != nil {
		logger.Fatal("failed to bootstrap super admin", zap.Error(err))
	}

	monitor := worker.NewEscalationMonitor(worker.MonitorDependencies{
		ComplaintRepo: complaintRepo,
		Lifecycle:     lifecycleService,
		Dispatcher:    dispatcher,
		Tracker:       redis,
		Metrics:       metrics,
		Logger:        logger,
		Interval:      cfg.Escalation.SweepInterval(),
	})
	monitor.RegisterHandlers()
	go monitor.Run(ctx)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), accountRepo)
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(pg, redis),
		Auth:           handlers.NewAuthHandler(authService, directoryService),
		Complaints:     handlers.NewComplaintsHandler(lifecycleService),
		Accounts:       handlers.NewAccountsHandler(directoryService),
		Reports:        handlers.NewReportsHandler(reportService),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	cancel()
	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
