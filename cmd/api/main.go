package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"licensedesk/internal/account"
	"licensedesk/internal/auth"
	"licensedesk/internal/config"
	"licensedesk/internal/httpserver"
	"licensedesk/internal/license"
	"licensedesk/internal/logger"
	"licensedesk/internal/metrics"
	"licensedesk/internal/store"
)

const shutdownTimeout = 15 * time.Second

func main() {
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	lg := logger.New(cfg.App.LogLevel)
	defer lg.Sync()

	loc, err := cfg.App.Location()
	if err != nil {
		lg.Fatalw("invalid timezone", "error", err)
	}

	db, err := store.Open(cfg.DB, lg)
	if err != nil {
		lg.Fatalw("db connect failed", "error", err)
	}
	if cfg.DB.AutoMigrate {
		if err := store.Migrate(db); err != nil {
			lg.Fatalw("automigrate failed", "error", err)
		}
	}

	licenses, err := license.NewService(license.Dependencies{
		Store:    store.NewLicenseStore(db, cfg.DB.StatementTimeout, cfg.License.ListBatchSize),
		Events:   store.NewAuditStore(db, cfg.DB.StatementTimeout),
		Clock:    license.SystemClock{Location: loc},
		IDs:      license.UUIDGenerator{},
		Hasher:   auth.HashPassword,
		Observer: metrics.NewLicenseMetrics(prometheus.DefaultRegisterer),
		Logger:   lg,
	})
	if err != nil {
		lg.Fatalw("license service init failed", "error", err)
	}

	authLimit := httpserver.NewIPRateLimiter(cfg.RateLimit.AuthRPS, cfg.RateLimit.AuthBurst, cfg.RateLimit.IdleTTL)
	defer authLimit.Stop()
	checkLimit := httpserver.NewIPRateLimiter(cfg.RateLimit.CheckRPS, cfg.RateLimit.CheckBurst, cfg.RateLimit.IdleTTL)
	defer checkLimit.Stop()

	router := httpserver.NewRouter(httpserver.Deps{
		DB:         db,
		Config:     cfg,
		Licenses:   licenses,
		Accounts:   account.NewService(db, cfg.JWT, cfg.DB.StatementTimeout),
		Logger:     lg,
		Gatherer:   prometheus.DefaultGatherer,
		AuthLimit:  authLimit,
		CheckLimit: checkLimit,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		lg.Infow("listening", "port", cfg.App.Port, "timezone", loc.String())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		lg.Infow("shutdown signal received")
	case err := <-errCh:
		lg.Errorw("http server error", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		lg.Errorw("http server shutdown error", "error", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	lg.Infow("licensedesk stopped")
}
