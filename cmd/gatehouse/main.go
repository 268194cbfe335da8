// Command gatehouse runs the gated content portal: session endpoints, the
// permission-gated library, and the admin management surface.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/devopshub/gatehouse/pkg/api"
	"github.com/devopshub/gatehouse/pkg/audit"
	"github.com/devopshub/gatehouse/pkg/auth"
	"github.com/devopshub/gatehouse/pkg/config"
	"github.com/devopshub/gatehouse/pkg/content"
	"github.com/devopshub/gatehouse/pkg/maintenance"
	"github.com/devopshub/gatehouse/pkg/middleware"
	"github.com/devopshub/gatehouse/pkg/observability"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "gatehouse: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	logger.WithField("log_level", cfg.Observability.LogLevel.String()).Info("Starting gatehouse")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Database.ConnTimeout)
	defer cancel()

	db, err := openDatabase(ctx, cfg.Database)
	if err != nil {
		return err
	}

	var redisClient *redis.Client
	if cfg.Cache.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Cache.RedisURL,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			// The portal still works without the cache; reads go to the store.
			logger.WithError(err).Warn("Redis unreachable at startup, continuing without cache")
		}
	}

	if err := migrate(ctx, db); err != nil {
		return err
	}

	var metrics *observability.Metrics
	registry := prometheus.NewRegistry()
	if cfg.Observability.MetricsEnabled {
		metrics = observability.NewMetrics(registry)
	}

	permissionStore := auth.NewPostgresPermissionStore(db)
	sessionStore := auth.NewPostgresSessionStore(db)

	controller := auth.NewController(permissionStore, sessionStore, auth.ControllerConfig{
		PermanentAdminEmail: cfg.Access.PermanentAdminEmail,
		SessionTTL:          cfg.Access.SessionTTL,
		Logger:              logger,
	})
	if err := controller.Seed(ctx, cfg.Access.InitialPermissions); err != nil {
		return fmt.Errorf("failed to seed permissions: %w", err)
	}

	var cache *content.Cache
	if redisClient != nil {
		cache = content.NewCache(redisClient, cfg.Cache.ContentTTL)
	}

	library := content.NewAggregator(content.NewPostgresStore(db), content.AggregatorConfig{
		Cache:   cache,
		Logger:  logger,
		Metrics: metrics,
	})
	if err := library.Refresh(ctx); err != nil {
		return fmt.Errorf("failed to load content library: %w", err)
	}

	auditor := audit.NewPostgresRecorder(db)

	authenticator, err := middleware.NewSessionAuthenticator(controller, cfg.Access.SessionCacheSize)
	if err != nil {
		return fmt.Errorf("failed to build session cache: %w", err)
	}

	server := api.NewServer(api.ServerConfig{
		Controller:    controller,
		Library:       library,
		Authenticator: authenticator,
		Auditor:       auditor,
		Limiter:       middleware.NewRateLimiter(cfg.Server.LoginRatePerMinute, cfg.Server.LoginRateBurst),
		Logger:        logger,
		Metrics:       metrics,
	})

	httpServer := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      server.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	healthServer := startHealthServer(cfg, db, redisClient, registry, logger)

	var runner *maintenance.Runner
	if cfg.Maintenance.Enabled {
		runner = maintenance.NewRunner(sessionStore, auditor, maintenance.Config{
			SessionPurgeSchedule: cfg.Maintenance.SessionPurgeSchedule,
			AuditPurgeSchedule:   cfg.Maintenance.AuditPurgeSchedule,
			AuditRetention:       cfg.Maintenance.AuditRetention,
		}, logger, metrics)
		if err := runner.Start(); err != nil {
			return fmt.Errorf("failed to start maintenance jobs: %w", err)
		}
	}

	go func() {
		logger.WithField("addr", httpServer.Addr).Info("HTTP server listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("HTTP server failed")
		}
	}()

	manager := observability.NewShutdownManager(logger, httpServer, cfg.Server.ShutdownTimeout)
	manager.RegisterShutdownFunc(func(ctx context.Context) error {
		return healthServer.Shutdown(ctx)
	})
	manager.RegisterShutdownFunc(func(context.Context) error {
		if runner != nil {
			runner.Stop()
		}
		return nil
	})
	manager.RegisterShutdownFunc(func(context.Context) error {
		if redisClient != nil {
			return redisClient.Close()
		}
		return nil
	})
	manager.RegisterShutdownFunc(func(context.Context) error {
		return db.Close()
	})

	return manager.WaitForShutdown()
}

func openDatabase(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return db, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	if err := auth.RunMigrations(ctx, db); err != nil {
		return fmt.Errorf("auth migrations failed: %w", err)
	}
	if err := content.RunMigrations(ctx, db); err != nil {
		return fmt.Errorf("content migrations failed: %w", err)
	}
	if err := audit.RunMigrations(ctx, db); err != nil {
		return fmt.Errorf("audit migrations failed: %w", err)
	}
	return nil
}

// startHealthServer serves the probes and metrics on a separate port so the
// public listener never exposes them
func startHealthServer(cfg *config.Config, db *sql.DB, redisClient *redis.Client, registry *prometheus.Registry, logger *observability.Logger) *http.Server {
	checker := observability.NewHealthChecker(db, redisClient)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", checker.Liveness)
	mux.HandleFunc("/readyz", checker.Readiness)
	if cfg.Observability.MetricsEnabled {
		mux.Handle("/metrics", observability.Handler(registry))
	}

	srv := &http.Server{
		Addr:    cfg.Server.Host + ":" + cfg.Server.HealthPort,
		Handler: mux,
	}

	go func() {
		logger.WithField("addr", srv.Addr).Info("Health server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("Health server failed")
		}
	}()

	return srv
}
