package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/repairshop-session/internal/api/http"
	"github.com/spec-kit/repairshop-session/internal/api/http/handlers"
	"github.com/spec-kit/repairshop-session/internal/config"
	"github.com/spec-kit/repairshop-session/internal/credstore"
	"github.com/spec-kit/repairshop-session/internal/events"
	"github.com/spec-kit/repairshop-session/internal/identity"
	"github.com/spec-kit/repairshop-session/internal/observability"
	"github.com/spec-kit/repairshop-session/internal/persistence"
	"github.com/spec-kit/repairshop-session/internal/service"
	"github.com/spec-kit/repairshop-session/internal/session"
	"github.com/spec-kit/repairshop-session/internal/worker"
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

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	store := credstore.NewRedisStore(redis.Client, cfg.Redis.CredentialKey)
	identityClient := identity.NewClient(cfg.Identity, logger)
	dispatcher := events.NewInMemoryDispatcher()

	metrics := observability.NewMetrics()
	auditService := service.NewSessionAuditService(dispatcher, logger, metrics)
	worker.StartAuditWorker(auditService)

	machine := session.NewMachine(session.Options{
		MaxPINAttempts:    cfg.Auth.PINMaxAttempts,
		DefaultPINTimeout: time.Duration(cfg.Auth.DefaultPINTimeoutMinutes) * time.Minute,
	}, session.Dependencies{
		Store:      store,
		Identity:   identityClient,
		Dispatcher: dispatcher,
		Logger:     logger,
	})

	if err := machine.Resume(ctx); err != nil {
		logger.Warn("session resume failed", zap.Error(err))
	}

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	healthHandler := handlers.NewHealthHandler(cfg.App.Name+"-agent", cfg.App.Version,
		handlers.DependencyCheck{Name: "redis", Pinger: redis})
	sessionHandler := handlers.NewSessionHandler(machine)
	guard := httptransport.NewSessionGuard(machine)

	httptransport.RegisterAgentRoutes(app, httptransport.AgentRouteConfig{
		Health:  healthHandler,
		Session: sessionHandler,
		Guard:   guard,
		Metrics: metrics,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	// the credential snapshot stays in redis so the next start can resume
	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
