package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/ehr/ward/internal/config"
	"github.com/ehr/ward/internal/domain/nursing"
	"github.com/ehr/ward/internal/domain/triage"
	"github.com/ehr/ward/internal/platform/auth"
	"github.com/ehr/ward/internal/platform/db"
	"github.com/ehr/ward/internal/platform/middleware"
	"github.com/ehr/ward/internal/platform/telemetry"
)

const version = "0.1.0"

func runServer() error {
	// Config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Logger
	logger := newLogger(os.Stdout, cfg.IsDev())

	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}
	if cfg.ResolvedAuthMode() == "development" {
		logger.Warn().Msg("development auth is active: every request is a dev admin/nurse, do not use in production")
	}

	// Database
	ctx := context.Background()
	pool, err := db.NewPool(ctx, db.PoolConfig{
		URL:      cfg.DatabaseURL,
		MaxConns: cfg.DBMaxConns,
		MinConns: cfg.DBMinConns,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	e := newServer(cfg, pool, logger)

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}

func newServer(cfg *config.Config, pool *pgxpool.Pool, logger zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut},
		AllowHeaders: []string{"Authorization", "Content-Type", middleware.RequestIDHeader, db.TenantHeader},
	}))

	// Health and metrics stay outside auth and tenant scoping.
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
		})
	})
	e.GET("/health/db", db.HealthHandler(pool))

	var metrics *triage.Metrics
	if cfg.MetricsEnabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		telemetry.RegisterPoolCollector(reg, pool)
		e.Use(telemetry.NewHTTPMetrics(reg).Middleware())
		metrics = triage.NewMetrics(reg)
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	}

	// API group: auth, tenant, audit
	apiV1 := e.Group("/api/v1")
	if cfg.ResolvedAuthMode() == "development" {
		apiV1.Use(auth.DevAuthMiddleware())
	} else {
		apiV1.Use(auth.JWTMiddleware(auth.JWTConfig{
			Issuer:     cfg.AuthIssuer,
			Audience:   cfg.AuthAudience,
			SigningKey: []byte(cfg.AuthSigningKey),
		}))
	}
	apiV1.Use(db.TenantMiddleware(pool, cfg.DefaultTenant, logger))
	apiV1.Use(middleware.PatientAudit(logger))

	// Triage domain
	gate := triage.NewGate(triage.NewRepoPG(pool))
	gate.SetLogger(logger)
	if metrics != nil {
		gate.SetMetrics(metrics)
	}
	triage.NewHandler(gate).RegisterRoutes(apiV1)

	// Nursing domain
	nursingSvc := nursing.NewService(
		gate,
		nursing.NewVitalsRepoPG(pool),
		nursing.NewEvolutionNoteRepoPG(pool),
		nursing.NewMedicationAdministrationRepoPG(pool),
	)
	nursingSvc.SetLogger(logger)
	if metrics != nil {
		nursingSvc.SetMetrics(metrics)
	}
	nursing.NewHandler(nursingSvc).RegisterRoutes(apiV1)

	return e
}
