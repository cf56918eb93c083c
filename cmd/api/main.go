package main

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"taller_backend/internal/auth"
	"taller_backend/internal/customers"
	"taller_backend/internal/events"
	apphttp "taller_backend/internal/http"
	"taller_backend/internal/http/router"
	"taller_backend/internal/notification"
	"taller_backend/internal/orders"
	"taller_backend/internal/outsourcing"
	"taller_backend/internal/reconcile"
	"taller_backend/internal/settings"
	"taller_backend/internal/stats"
	"taller_backend/platform/config"
	"taller_backend/platform/db"
	"taller_backend/platform/logger"
	"taller_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, "migrations")
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	// Shared validator instance for dependency injection
	val := validator.New()

	redisClient := initRedis(cfg, log)
	if redisClient != nil {
		defer redisClient.Close()
	}

	enqueuer, closeEnqueuer := initEnqueuer(cfg, log)
	if closeEnqueuer != nil {
		defer closeEnqueuer()
	}

	minioClient := initMinIO(ctx, cfg, log)

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	authModule := auth.NewModule(pool, cfg, cfg.DefaultPhoneRegion, eventBus, log, val)
	ordersModule := orders.NewModule(pool, eventBus, log, val, enqueuer)
	outsourcingModule := outsourcing.NewModule(pool, eventBus, log, val, enqueuer)
	customersModule := customers.NewModule(pool, ordersModule.Repository(), cfg.DefaultPhoneRegion, eventBus, log, val)
	settingsModule := settings.NewModule(pool, redisClient, minioClient, cfg, eventBus, log, val)
	statsModule := stats.NewModule(pool, log, val)
	notificationModule := notification.NewModule(cfg, eventBus, log)

	// Orders and outsourcing call into each other during lifecycle
	// transitions; the dependencies are attached after construction to break
	// the cycle.
	ordersModule.Service().SetRepairCanceller(outsourcingModule.Service())
	outsourcingModule.Service().SetOrderWorkflow(ordersModule.Service())
	outsourcingModule.Service().SetFeatureGate(settingsModule.Service())

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   db.NewPoolAdapter(pool),
		EventBus: eventBus,
		Modules: []apphttp.Module{
			authModule,
			ordersModule,
			outsourcingModule,
			customersModule,
			settingsModule,
			statsModule,
			notificationModule,
		},
	}

	engine := router.New(app)

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- engine.Run(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

// initRedis builds the Redis client for the settings cache. Returns nil when
// no Redis is configured; the cache then behaves as a permanent miss.
func initRedis(cfg *config.Config, log *logger.Logger) *redis.Client {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; settings cache disabled")
		return nil
	}

	opt, err := redis.ParseURL(cfg.GetRedisURL())
	if err != nil {
		log.Error("failed to parse REDIS_URL; settings cache disabled", "error", err)
		return nil
	}
	if opt.TLSConfig != nil && cfg.GetRedisTLSInsecure() {
		opt.TLSConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return redis.NewClient(opt)
}

// initEnqueuer builds the reconciliation task enqueuer. Without Redis,
// drifted writes are logged instead of repaired automatically.
func initEnqueuer(cfg *config.Config, log *logger.Logger) (reconcile.Enqueuer, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; reconciliation queue disabled")
		return reconcile.NewDisabled(log), nil
	}

	client, err := reconcile.NewClient(cfg, log)
	if err != nil {
		log.Error("failed to initialize reconcile client; reconciliation queue disabled", "error", err)
		return reconcile.NewDisabled(log), nil
	}

	return client, func() {
		_ = client.Close()
	}
}

// initMinIO builds the MinIO client and ensures the company assets bucket
// exists. Returns nil when MinIO is not configured; logo uploads are then
// rejected with a validation error.
func initMinIO(ctx context.Context, cfg *config.Config, log *logger.Logger) *minio.Client {
	if !cfg.IsMinIOEnabled() {
		log.Warn("MINIO_ENDPOINT not configured; logo uploads disabled")
		return nil
	}

	client, err := minio.New(cfg.GetMinIOEndpoint(), &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.GetMinIOAccessKey(), cfg.GetMinIOSecretKey(), ""),
		Secure: cfg.GetMinIOUseSSL(),
	})
	if err != nil {
		log.Error("failed to initialize minio client; logo uploads disabled", "error", err)
		return nil
	}

	bucket := cfg.GetMinioBucketCompanyAssets()
	if err := withRetry(ctx, log, "ensure company assets bucket", 5, 2*time.Second, func() error {
		exists, err := client.BucketExists(ctx, bucket)
		if err != nil {
			return err
		}
		if exists {
			return nil
		}
		return client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{})
	}); err != nil {
		log.Error("failed to ensure company assets bucket", "error", err, "bucket", bucket)
		panic("failed to ensure company assets bucket: " + err.Error())
	}

	log.Info("storage service initialized", "companyAssetsBucket", bucket)
	return client
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
