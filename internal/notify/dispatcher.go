package notify

import (
	"context"
	"sync/atomic"
	"time"

	"orderdesk/internal/dal"
	"orderdesk/internal/models"
	"orderdesk/pkg/logger"

	"golang.org/x/sync/errgroup"
)

// Dispatcher defaults
const (
	DefaultPollInterval = 2 * time.Second
	DefaultBatchSize    = 20
	DefaultWorkers      = 4
	DefaultMaxAttempts  = 8
	DefaultBaseBackoff  = 5 * time.Second
	DefaultMaxBackoff   = 10 * time.Minute
)

type DispatcherConfig struct {
	PollInterval time.Duration `yaml:"poll_interval"`
	BatchSize    int           `yaml:"batch_size"`
	Workers      int           `yaml:"workers"`
	MaxAttempts  int           `yaml:"max_attempts"`
	BaseBackoff  time.Duration `yaml:"base_backoff"`
	MaxBackoff   time.Duration `yaml:"max_backoff"`
}

func (c DispatcherConfig) withDefaults() DispatcherConfig {
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.Workers <= 0 {
		c.Workers = DefaultWorkers
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.BaseBackoff <= 0 {
		c.BaseBackoff = DefaultBaseBackoff
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = DefaultMaxBackoff
	}
	return c
}

type DispatchResult struct {
	Delivered int
	Retried   int
	Failed    int
}

// Dispatcher delivers queued notifications at least once. A failed delivery is
// retried with exponential backoff until MaxAttempts, then marked failed.
type Dispatcher struct {
	store     dal.Store
	deliverer Deliverer
	config    DispatcherConfig
	logger    *logger.Logger
	now       func() time.Time
}

func NewDispatcher(store dal.Store, deliverer Deliverer, config DispatcherConfig, log *logger.Logger) *Dispatcher {
	return &Dispatcher{
		store:     store,
		deliverer: deliverer,
		config:    config.withDefaults(),
		logger:    log.WithComponent("dispatcher"),
		now:       time.Now,
	}
}

// Backoff returns the delay before the next try after the given number of attempts.
func (d *Dispatcher) Backoff(attempts int) time.Duration {
	delay := d.config.BaseBackoff
	for i := 1; i < attempts; i++ {
		delay *= 2
		if delay >= d.config.MaxBackoff {
			return d.config.MaxBackoff
		}
	}
	return delay
}

// DispatchOnce delivers one batch of due notifications.
func (d *Dispatcher) DispatchOnce(ctx context.Context) (DispatchResult, error) {
	due, err := d.store.Notifications().ListDue(ctx, d.now(), d.config.BatchSize)
	if err != nil {
		return DispatchResult{}, err
	}
	if len(due) == 0 {
		return DispatchResult{}, nil
	}

	var delivered, retried, failed int32

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.config.Workers)

	for _, n := range due {
		g.Go(func() error {
			outcome, err := d.deliver(gctx, n)
			if err != nil {
				return err
			}
			switch outcome {
			case outcomeDelivered:
				atomic.AddInt32(&delivered, 1)
			case outcomeRetry:
				atomic.AddInt32(&retried, 1)
			case outcomeFailed:
				atomic.AddInt32(&failed, 1)
			}
			return nil
		})
	}

	err = g.Wait()
	result := DispatchResult{
		Delivered: int(delivered),
		Retried:   int(retried),
		Failed:    int(failed),
	}
	return result, err
}

type outcome int

const (
	outcomeDelivered outcome = iota
	outcomeRetry
	outcomeFailed
)

// deliver sends one notification and records the result. Only storage errors are
// returned; delivery errors become a retry or a give-up.
func (d *Dispatcher) deliver(ctx context.Context, n models.Notification) (outcome, error) {
	sendErr := d.deliverer.Deliver(ctx, n)
	now := d.now()

	if sendErr == nil {
		if err := d.store.Notifications().MarkDelivered(ctx, n.ID, now); err != nil {
			return 0, err
		}
		return outcomeDelivered, nil
	}

	attempts := n.Attempts + 1
	if attempts >= d.config.MaxAttempts {
		d.logger.Error("Giving up on notification",
			"id", n.ID,
			"kind", n.Kind,
			"order_id", n.OrderID,
			"attempts", attempts,
			"error", sendErr)
		if err := d.store.Notifications().MarkFailed(ctx, n.ID, attempts, now, sendErr.Error()); err != nil {
			return 0, err
		}
		return outcomeFailed, nil
	}

	next := now.Add(d.Backoff(attempts))
	d.logger.Warn("Notification delivery failed, will retry",
		"id", n.ID,
		"kind", n.Kind,
		"attempts", attempts,
		"next_attempt_at", next,
		"error", sendErr)
	if err := d.store.Notifications().MarkRetry(ctx, n.ID, attempts, next, sendErr.Error()); err != nil {
		return 0, err
	}
	return outcomeRetry, nil
}

// Run polls until ctx is done.
func (d *Dispatcher) Run(ctx context.Context) error {
	d.logger.Info("Dispatcher started",
		"poll_interval", d.config.PollInterval.String(),
		"workers", d.config.Workers)

	ticker := time.NewTicker(d.config.PollInterval)
	defer ticker.Stop()

	for {
		result, err := d.DispatchOnce(ctx)
		if err != nil && ctx.Err() == nil {
			d.logger.Error("Dispatch failed", "error", err)
		}
		if result.Delivered+result.Retried+result.Failed > 0 {
			d.logger.Debug("Dispatch batch done",
				"delivered", result.Delivered,
				"retried", result.Retried,
				"failed", result.Failed)
		}

		select {
		case <-ctx.Done():
			d.logger.Info("Dispatcher stopped")
			return nil
		case <-ticker.C:
		}
	}
}
