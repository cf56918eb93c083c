package reconcile

import (
	"context"
	"fmt"

	"taller_backend/platform/config"
	"taller_backend/platform/logger"

	"github.com/hibiken/asynq"
)

// Enqueuer schedules reconciliation work. Lifecycle services depend on this
// interface so tests can substitute a recorder.
type Enqueuer interface {
	EnqueueOrderReconcile(ctx context.Context, p OrderReconcilePayload) error
}

// Client enqueues reconciliation tasks onto the asynq queue.
type Client struct {
	client *asynq.Client
	queue  string
	log    *logger.Logger
}

// NewClient creates an asynq-backed enqueuer.
func NewClient(cfg config.ReconcilerConfig, log *logger.Logger) (*Client, error) {
	opt, err := asynq.ParseRedisURI(cfg.GetRedisURL())
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return &Client{
		client: asynq.NewClient(opt),
		queue:  cfg.GetAsynqQueueName(),
		log:    log,
	}, nil
}

// EnqueueOrderReconcile schedules a reconciliation attempt for an order.
func (c *Client) EnqueueOrderReconcile(ctx context.Context, p OrderReconcilePayload) error {
	task, err := NewOrderReconcileTask(p)
	if err != nil {
		return err
	}

	info, err := c.client.EnqueueContext(ctx, task, asynq.Queue(c.queue))
	if err != nil {
		return fmt.Errorf("enqueue reconcile task: %w", err)
	}

	c.log.ReconcileScheduled(p.OrderID, p.Reason)
	c.log.Debug("reconcile task enqueued", "task_id", info.ID, "order_id", p.OrderID, "action", p.Action)
	return nil
}

// Close releases the underlying asynq client.
func (c *Client) Close() error {
	return c.client.Close()
}

// Disabled is the Enqueuer used when no Redis queue is configured. It logs
// the request loudly so drifted records can be repaired by hand, and reports
// success so the primary write still stands.
type Disabled struct {
	log *logger.Logger
}

// NewDisabled creates a log-only enqueuer.
func NewDisabled(log *logger.Logger) *Disabled {
	return &Disabled{log: log}
}

// EnqueueOrderReconcile logs the drift instead of scheduling a retry.
func (d *Disabled) EnqueueOrderReconcile(_ context.Context, p OrderReconcilePayload) error {
	d.log.Error("reconciliation queue disabled, records may have drifted",
		"order_id", p.OrderID, "action", p.Action, "reason", p.Reason)
	return nil
}

var (
	_ Enqueuer = (*Client)(nil)
	_ Enqueuer = (*Disabled)(nil)
)
