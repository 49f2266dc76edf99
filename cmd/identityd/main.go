package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/repairshop-session/internal/api/http"
	"github.com/spec-kit/repairshop-session/internal/api/http/handlers"
	"github.com/spec-kit/repairshop-session/internal/auth"
	"github.com/spec-kit/repairshop-session/internal/config"
	"github.com/spec-kit/repairshop-session/internal/observability"
	"github.com/spec-kit/repairshop-session/internal/persistence"
	"github.com/spec-kit/repairshop-session/internal/repository"
	"github.com/spec-kit/repairshop-session/internal/service"
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

	pool := pg.PoolHandle()
	employeeRepo := repository.NewEmployeeRepository(pool)
	superAdminRepo := repository.NewSuperAdminRepository(pool)
	refreshRepo := repository.NewRefreshTokenRepository(pool)
	centerRepo := repository.NewCenterRepository(pool)

	identityService := service.NewIdentityService(*cfg, service.IdentityDependencies{
		EmployeeRepo:     employeeRepo,
		SuperAdminRepo:   superAdminRepo,
		RefreshTokenRepo: refreshRepo,
		CenterRepo:       centerRepo,
	})
	authMiddleware := auth.NewAuthMiddleware(identityService.TokenManager(), employeeRepo, superAdminRepo)

	metrics := observability.NewMetrics()
	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	healthHandler := handlers.NewHealthHandler(cfg.App.Name+"-identityd", cfg.App.Version,
		handlers.DependencyCheck{Name: "postgres", Pinger: pg})
	authHandler := handlers.NewAuthHandler(identityService)

	httptransport.RegisterIdentityRoutes(app, httptransport.IdentityRouteConfig{
		Health:         healthHandler,
		Auth:           authHandler,
		AuthMiddleware: authMiddleware,
		Metrics:        metrics,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
