package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/commerce/backend/internal/application/ordering"
	"go.uber.org/zap"
)

// AccrualRetryConfig holds configuration for the accrual retry worker
type AccrualRetryConfig struct {
	QueueSize     int
	RetryInterval time.Duration
	MaxAttempts   int
}

// DefaultAccrualRetryConfig returns default configuration
func DefaultAccrualRetryConfig() AccrualRetryConfig {
	return AccrualRetryConfig{
		QueueSize:     1024,
		RetryInterval: 30 * time.Second,
		MaxAttempts:   5,
	}
}

// AccrualRetryWorker applies deferred mileage effects of settled and
// refunded payments. Payment transitions commit first and enqueue here
// when the ledger write fails; the worker retries until the effect
// sticks or attempts run out.
type AccrualRetryWorker struct {
	effects ordering.MileageEffects
	config  AccrualRetryConfig
	logger  *zap.Logger

	queue  chan ordering.LedgerEffect
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu        sync.Mutex
	isRunning bool
}

// NewAccrualRetryWorker creates a new accrual retry worker
func NewAccrualRetryWorker(effects ordering.MileageEffects, config AccrualRetryConfig, logger *zap.Logger) *AccrualRetryWorker {
	if config.QueueSize <= 0 {
		config.QueueSize = DefaultAccrualRetryConfig().QueueSize
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = DefaultAccrualRetryConfig().MaxAttempts
	}
	return &AccrualRetryWorker{
		effects: effects,
		config:  config,
		logger:  logger,
		queue:   make(chan ordering.LedgerEffect, config.QueueSize),
	}
}

// Enqueue accepts a deferred ledger effect. Returns an error when the
// queue is full rather than blocking the payment path.
func (w *AccrualRetryWorker) Enqueue(effect ordering.LedgerEffect) error {
	select {
	case w.queue <- effect:
		return nil
	default:
		return fmt.Errorf("accrual retry queue is full (size %d)", w.config.QueueSize)
	}
}

// Start starts the background worker
func (w *AccrualRetryWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.isRunning {
		w.mu.Unlock()
		return nil
	}
	w.isRunning = true
	w.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	w.wg.Add(1)
	go w.runLoop(ctx)

	w.logger.Info("accrual retry worker started",
		zap.Int("queue_size", w.config.QueueSize),
		zap.Duration("retry_interval", w.config.RetryInterval),
		zap.Int("max_attempts", w.config.MaxAttempts),
	)

	return nil
}

// Stop gracefully stops the worker. Effects still queued are dropped;
// they are safe to reapply manually because ledger mutations are
// guarded by the per-order reference on the transaction trail.
func (w *AccrualRetryWorker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.isRunning {
		w.mu.Unlock()
		return nil
	}
	w.isRunning = false
	w.mu.Unlock()

	if w.cancel != nil {
		w.cancel()
	}

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.logger.Info("accrual retry worker stopped", zap.Int("pending", len(w.queue)))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *AccrualRetryWorker) runLoop(ctx context.Context) {
	defer w.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case effect := <-w.queue:
			w.apply(ctx, effect)
		}
	}
}

func (w *AccrualRetryWorker) apply(ctx context.Context, effect ordering.LedgerEffect) {
	var err error
	if effect.Reverse {
		err = w.effects.ReverseForOrder(ctx, effect.CustomerID, effect.SellerID, effect.OrderTotal, effect.OrderID)
	} else {
		err = w.effects.AccrueForOrder(ctx, effect.CustomerID, effect.SellerID, effect.OrderTotal, effect.OrderID)
	}
	if err == nil {
		return
	}

	effect.Attempts++
	if effect.Attempts >= w.config.MaxAttempts {
		w.logger.Error("dropping ledger effect after max attempts",
			zap.String("order_id", effect.OrderID.String()),
			zap.String("customer_id", effect.CustomerID.String()),
			zap.Bool("reverse", effect.Reverse),
			zap.Int("attempts", effect.Attempts),
			zap.Error(err),
		)
		return
	}

	w.logger.Warn("ledger effect failed, will retry",
		zap.String("order_id", effect.OrderID.String()),
		zap.Bool("reverse", effect.Reverse),
		zap.Int("attempts", effect.Attempts),
		zap.Error(err),
	)

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		select {
		case <-ctx.Done():
		case <-time.After(w.config.RetryInterval):
			if enqueueErr := w.Enqueue(effect); enqueueErr != nil {
				w.logger.Error("failed to requeue ledger effect", zap.Error(enqueueErr))
			}
		}
	}()
}

// Ensure AccrualRetryWorker implements EffectQueue
var _ ordering.EffectQueue = (*AccrualRetryWorker)(nil)
