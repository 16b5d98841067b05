package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/tillpoint/tillpoint/internal/app"
	"github.com/tillpoint/tillpoint/internal/auth"
	"github.com/tillpoint/tillpoint/internal/authz"
	"github.com/tillpoint/tillpoint/internal/credit"
	"github.com/tillpoint/tillpoint/internal/inventory"
	"github.com/tillpoint/tillpoint/internal/masterdata"
	"github.com/tillpoint/tillpoint/internal/observability"
	"github.com/tillpoint/tillpoint/internal/org"
	"github.com/tillpoint/tillpoint/internal/platform/cache"
	"github.com/tillpoint/tillpoint/internal/platform/db"
	"github.com/tillpoint/tillpoint/internal/procurement"
	"github.com/tillpoint/tillpoint/internal/sales"
	"github.com/tillpoint/tillpoint/internal/settings"
	"github.com/tillpoint/tillpoint/internal/shared"
	"github.com/tillpoint/tillpoint/internal/users"
	"github.com/tillpoint/tillpoint/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "tillpoint_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	metrics := observability.NewMetrics()

	auditLogger := shared.NewAuditLogger(pool)

	authRepo := auth.NewRepository(pool)
	authService := auth.NewService(authRepo)
	authHandler := auth.NewHandler(logger, authService, sessionManager, csrfManager)
	contextResolver := auth.NewContextResolver(authRepo)

	authzRepo := authz.NewRepository(pool)
	permCache := authz.NewCache(redisClient, cfg.PermissionCacheTTL)
	permResolver := authz.NewResolver(authzRepo, permCache, logger)

	asynqClient := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := asynqClient.Close(); err != nil {
			logger.Warn("asynq client close", slog.Any("error", err))
		}
	}()

	orgRepo := org.NewRepository(pool)
	orgService := org.NewService(orgRepo)
	orgHandler := org.NewHandler(logger, orgService)

	usersRepo := users.NewRepository(pool)
	usersService := users.NewService(usersRepo, authzRepo, permResolver)
	usersHandler := users.NewHandler(logger, usersService)

	settingsRepo := settings.NewRepository(pool)
	settingsService := settings.NewService(settingsRepo)
	settingsHandler := settings.NewHandler(logger, settingsService, permResolver)

	masterdataRepo := masterdata.NewRepository(pool)
	masterdataService := masterdata.NewService(masterdataRepo, permResolver)
	masterdataHandler := masterdata.NewHandler(logger, masterdataService)

	inventoryRepo := inventory.NewRepository(pool)
	inventoryService := inventory.NewService(inventoryRepo, permResolver, settingsRepo, auditLogger, logger)
	inventoryService.AllowNegativeStock = cfg.AllowNegativeStock
	inventoryService.Metrics = metrics
	inventoryHandler := inventory.NewHandler(logger, inventoryService)

	salesRepo := sales.NewRepository(pool)
	salesService := sales.NewService(salesRepo, permResolver, settingsRepo, auditLogger, asynqClient, logger)
	salesService.AllowNegativeStock = cfg.AllowNegativeStock
	salesService.Metrics = metrics
	salesHandler := sales.NewHandler(logger, salesService)

	creditRepo := credit.NewRepository(pool)
	creditService := credit.NewService(creditRepo, permResolver, auditLogger, logger)
	creditService.Metrics = metrics
	creditHandler := credit.NewHandler(logger, creditService)

	procurementRepo := procurement.NewRepository(pool)
	procurementService := procurement.NewService(procurementRepo, permResolver, settingsRepo, auditLogger, logger)
	procurementService.Metrics = metrics
	procurementHandler := procurement.NewHandler(logger, procurementService)

	router := app.NewRouter(app.RouterParams{
		Logger:          logger,
		Config:          cfg,
		SessionManager:  sessionManager,
		CSRFManager:     csrfManager,
		ContextResolver: contextResolver,

		AuthHandler:        authHandler,
		OrgHandler:         orgHandler,
		UsersHandler:       usersHandler,
		SettingsHandler:    settingsHandler,
		MasterDataHandler:  masterdataHandler,
		InventoryHandler:   inventoryHandler,
		SalesHandler:       salesHandler,
		CreditHandler:      creditHandler,
		ProcurementHandler: procurementHandler,

		Metrics: metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
