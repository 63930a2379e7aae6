package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nniahq/portal-api/internal/api/router"
	"github.com/nniahq/portal-api/internal/app/bootstrap"
	"github.com/nniahq/portal-api/internal/appointments"
	"github.com/nniahq/portal-api/internal/billing"
	appconfig "github.com/nniahq/portal-api/internal/config"
	"github.com/nniahq/portal-api/internal/dashboard"
	"github.com/nniahq/portal-api/internal/notifications"
	"github.com/nniahq/portal-api/internal/observability/metrics"
	"github.com/nniahq/portal-api/internal/realtime"
	"github.com/nniahq/portal-api/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting portal API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.DatabaseURL == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to create pgx pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	sqlDB, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to open sql db", "error", err)
		os.Exit(1)
	}
	defer func() { _ = sqlDB.Close() }()

	portalMetrics := metrics.NewPortalMetrics(nil)

	clockSource := realtime.NewSource(realtime.SourceConfig{
		FallbackURL:     cfg.TimeFallbackURL,
		ProviderTimeout: cfg.TimeProviderTimeout,
		FallbackTimeout: cfg.TimeFallbackTimeout,
		CacheTTL:        cfg.ClockCacheTTL,
		Logger:          logger,
		Metrics:         portalMetrics,
	})

	apptRepo := appointments.NewRepository(pool)
	notifRepo := notifications.NewRepository(pool)
	billingRepo := billing.NewRepository(pool)
	statsRepo := dashboard.NewStatsRepository(sqlDB)

	previewStore := bootstrap.BuildPreviewStore(ctx, cfg, logger)

	// The scheduler reads from the local repository unless a remote
	// appointments API is configured.
	var apptSource dashboard.AppointmentSource = apptRepo
	if cfg.AppointmentsAPIURL != "" {
		apptSource = appointments.NewClient(cfg.AppointmentsAPIURL, logger)
	}
	var clients dashboard.ClientLister = apptRepo
	if len(cfg.PreviewClientIDs) > 0 {
		clients = dashboard.StaticClients(cfg.PreviewClientIDs)
	}

	scheduler, err := dashboard.NewScheduler(dashboard.SchedulerConfig{
		Source:   apptSource,
		Clients:  clients,
		Clock:    clockSource,
		Store:    previewStore,
		Interval: cfg.RefreshInterval,
		Limit:    cfg.PreviewLimit,
		Logger:   logger,
		Metrics:  portalMetrics,
	})
	if err != nil {
		logger.Error("failed to build scheduler", "error", err)
		os.Exit(1)
	}
	go scheduler.Start(ctx)

	stripeClient := billing.NewStripeClient(
		cfg.StripeSecretKey,
		cfg.StripeSuccessURL,
		cfg.StripeCancelURL,
		cfg.StripeDryRun,
		logger,
	)
	billingService := billing.NewService(billingRepo, stripeClient, logger)

	routerCfg := &router.Config{
		Logger:             logger,
		Appointments:       appointments.NewHandler(apptRepo, logger),
		Notifications:      notifications.NewHandler(notifRepo, logger),
		Dashboard:          dashboard.NewHandler(statsRepo, previewStore, prometheus.DefaultGatherer, logger),
		Billing:            billing.NewHandler(billingService, logger),
		RealTime:           realtime.NewHandler(clockSource, logger),
		MetricsHandler:     promhttp.Handler(),
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		PortalJWTSecret:    cfg.PortalJWTSecret,
		BillingRateLimit:   5,
		BillingRateBurst:   10,
	}
	r := router.New(routerCfg)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
