package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/commerce/backend/internal/application/mileage"
	"go.uber.org/zap"
)

// ExpiryService runs one expiry sweep batch over due ledgers
type ExpiryService interface {
	ExpireDue(ctx context.Context, batchID string, limit int, now time.Time) (*mileage.ExpirySweepResult, error)
}

// ExpirySweeperConfig holds configuration for the expiry sweeper
type ExpirySweeperConfig struct {
	Enabled   bool
	Interval  time.Duration
	BatchSize int
}

// DefaultExpirySweeperConfig returns default configuration
func DefaultExpirySweeperConfig() ExpirySweeperConfig {
	return ExpirySweeperConfig{
		Enabled:   true,
		Interval:  time.Hour,
		BatchSize: 500,
	}
}

// ExpirySweeper periodically expires overdue mileage in batches.
// Batch IDs are derived from the interval bucket, so a restarted or
// concurrent sweeper replaying the same bucket finds every (ledger,
// batch) pair already marked and changes nothing.
type ExpirySweeper struct {
	service ExpiryService
	config  ExpirySweeperConfig
	logger  *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewExpirySweeper creates a new expiry sweeper
func NewExpirySweeper(service ExpiryService, config ExpirySweeperConfig, logger *zap.Logger) *ExpirySweeper {
	return &ExpirySweeper{
		service: service,
		config:  config,
		logger:  logger,
	}
}

// Start starts the background sweep loop
func (s *ExpirySweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	if !s.config.Enabled {
		s.mu.Unlock()
		s.logger.Info("expiry sweeper is disabled")
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.sweepLoop(ctx)

	s.logger.Info("expiry sweeper started",
		zap.Duration("interval", s.config.Interval),
		zap.Int("batch_size", s.config.BatchSize),
	)

	return nil
}

// Stop gracefully stops the sweeper
func (s *ExpirySweeper) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("expiry sweeper stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *ExpirySweeper) sweepLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunOnce(ctx, time.Now())
		}
	}
}

// RunOnce executes a single sweep batch for the interval bucket
// containing now
func (s *ExpirySweeper) RunOnce(ctx context.Context, now time.Time) {
	batchID := s.BatchID(now)

	result, err := s.service.ExpireDue(ctx, batchID, s.config.BatchSize, now)
	if err != nil {
		s.logger.Error("expiry sweep failed",
			zap.String("batch_id", batchID),
			zap.Error(err),
		)
		return
	}

	if result.Scanned == 0 {
		return
	}

	s.logger.Info("expiry sweep completed",
		zap.String("batch_id", result.BatchID),
		zap.Int("scanned", result.Scanned),
		zap.Int("expired", result.Expired),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", result.Failed),
		zap.Int("already_swept", result.AlreadySwept),
	)
}

// BatchID returns the sweep batch identifier for the interval bucket
// containing now
func (s *ExpirySweeper) BatchID(now time.Time) string {
	bucket := now.UTC().Truncate(s.config.Interval)
	return fmt.Sprintf("sweep-%s", bucket.Format(time.RFC3339))
}
