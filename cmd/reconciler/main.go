// The reconciler consumes queued reconciliation tasks and replays the coupled
// order/repair writes that failed halfway during API requests.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"taller_backend/internal/events"
	"taller_backend/internal/notification"
	"taller_backend/internal/orders"
	"taller_backend/internal/outsourcing"
	"taller_backend/internal/reconcile"
	"taller_backend/platform/config"
	"taller_backend/platform/db"
	"taller_backend/platform/logger"
	"taller_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}
	if cfg.GetRedisURL() == "" {
		panic("REDIS_URL is required for the reconciler")
	}

	log := logger.New(cfg.Env)
	log.Info("starting reconciler", "env", cfg.Env, "queue", cfg.GetAsynqQueueName())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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

	eventBus := events.NewInMemoryBus(log)
	val := validator.New()

	// The worker replays writes through the same services the API uses, so a
	// replayed completion still publishes events and sends the pickup email.
	// Reconciliation inside the worker happens through asynq retries, not
	// through re-enqueueing, hence the disabled enqueuer.
	enqueuer := reconcile.NewDisabled(log)
	ordersModule := orders.NewModule(pool, eventBus, log, val, enqueuer)
	outsourcingModule := outsourcing.NewModule(pool, eventBus, log, val, enqueuer)
	ordersModule.Service().SetRepairCanceller(outsourcingModule.Service())
	outsourcingModule.Service().SetOrderWorkflow(ordersModule.Service())
	notification.NewModule(cfg, eventBus, log)

	worker, err := reconcile.NewWorker(cfg, ordersModule.Service(), outsourcingModule.Service(), log)
	if err != nil {
		log.Error("failed to initialize worker", "error", err)
		panic("failed to initialize worker: " + err.Error())
	}

	workerErr := make(chan error, 1)
	go func() {
		workerErr <- worker.Run()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, stopping worker")
		worker.Shutdown()
	case err := <-workerErr:
		if err != nil {
			log.Error("worker error", "error", err)
			panic("worker error: " + err.Error())
		}
	}
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
