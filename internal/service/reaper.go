package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"orderdesk/internal/dal"
	"orderdesk/internal/models"
	"orderdesk/pkg/logger"
)

// Reaper defaults
const (
	DefaultPendingTTL     = 2 * time.Hour
	DefaultReaperInterval = 5 * time.Minute
	DefaultReaperBatch    = 200
)

type ReaperConfig struct {
	TTL       time.Duration `yaml:"pending_ttl"`
	Interval  time.Duration `yaml:"interval"`
	BatchSize int           `yaml:"batch_size"`
}

type SweepResult struct {
	Examined  int `json:"examined"`
	Cancelled int `json:"cancelled"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

// Reaper cancels orders left in pending longer than the TTL. Each cancellation goes
// through the regular transition path in its own transaction.
type Reaper struct {
	store  dal.Store
	orders OrderService
	config ReaperConfig
	logger *logger.Logger
	now    func() time.Time
}

func NewReaper(store dal.Store, orders OrderService, config ReaperConfig, log *logger.Logger) *Reaper {
	if config.TTL <= 0 {
		config.TTL = DefaultPendingTTL
	}
	if config.Interval <= 0 {
		config.Interval = DefaultReaperInterval
	}
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultReaperBatch
	}
	return &Reaper{
		store:  store,
		orders: orders,
		config: config,
		logger: log.WithComponent("reaper"),
		now:    time.Now,
	}
}

// Sweep runs one pass. Orders that left pending in the meantime are skipped; other
// per-order failures are logged and counted without stopping the pass.
func (r *Reaper) Sweep(ctx context.Context) (SweepResult, error) {
	var result SweepResult

	cutoff := r.now().Add(-r.config.TTL)
	stale, err := r.store.Orders().ListStalePending(ctx, cutoff, r.config.BatchSize)
	if err != nil {
		return result, fmt.Errorf("failed to select stale orders: %w", err)
	}
	result.Examined = len(stale)

	for _, candidate := range stale {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		_, err := r.orders.Transition(ctx, TransitionRequest{
			TenantID: candidate.TenantID,
			OrderID:  candidate.ID,
			Status:   string(models.StatusCancelled),
			Reason:   ReasonAutoExpired,

			ExpectedStatus: models.StatusPending,
		})
		switch {
		case err == nil:
			result.Cancelled++
		case errors.Is(err, models.ErrInvalidTransition), errors.Is(err, models.ErrNotFound):
			result.Skipped++
			r.logger.Debug("Stale order already moved on", "order_id", candidate.ID, "reason", err.Error())
		default:
			result.Failed++
			r.logger.Error("Failed to expire order", "order_id", candidate.ID, "error", err)
		}
	}

	if result.Examined > 0 {
		r.logger.Info("Sweep finished",
			"examined", result.Examined,
			"cancelled", result.Cancelled,
			"skipped", result.Skipped,
			"failed", result.Failed)
	}
	return result, nil
}

// Run sweeps once immediately and then on every interval until ctx is done.
func (r *Reaper) Run(ctx context.Context) error {
	r.logger.Info("Reaper started", "ttl", r.config.TTL.String(), "interval", r.config.Interval.String())

	ticker := time.NewTicker(r.config.Interval)
	defer ticker.Stop()

	for {
		if _, err := r.Sweep(ctx); err != nil && ctx.Err() == nil {
			r.logger.Error("Sweep failed", "error", err)
		}

		select {
		case <-ctx.Done():
			r.logger.Info("Reaper stopped")
			return nil
		case <-ticker.C:
		}
	}
}
