package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/commerce/backend/internal/application/ordering"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubMileageEffects struct {
	mu          sync.Mutex
	accrued     []uuid.UUID
	reversed    []uuid.UUID
	failuresFor map[uuid.UUID]int
	applied     chan struct{}
}

func newStubMileageEffects() *stubMileageEffects {
	return &stubMileageEffects{
		failuresFor: make(map[uuid.UUID]int),
		applied:     make(chan struct{}, 16),
	}
}

func (s *stubMileageEffects) AccrueForOrder(ctx context.Context, customerID uuid.UUID, sellerID *uuid.UUID, orderTotal decimal.Decimal, orderID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failuresFor[orderID] > 0 {
		s.failuresFor[orderID]--
		return assert.AnError
	}
	s.accrued = append(s.accrued, orderID)
	s.applied <- struct{}{}
	return nil
}

func (s *stubMileageEffects) ReverseForOrder(ctx context.Context, customerID uuid.UUID, sellerID *uuid.UUID, orderTotal decimal.Decimal, orderID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failuresFor[orderID] > 0 {
		s.failuresFor[orderID]--
		return assert.AnError
	}
	s.reversed = append(s.reversed, orderID)
	s.applied <- struct{}{}
	return nil
}

func (s *stubMileageEffects) accruedOrders() []uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]uuid.UUID(nil), s.accrued...)
}

func (s *stubMileageEffects) reversedOrders() []uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]uuid.UUID(nil), s.reversed...)
}

func testEffect(reverse bool) ordering.LedgerEffect {
	return ordering.LedgerEffect{
		CustomerID: uuid.New(),
		OrderTotal: decimal.NewFromInt(34500),
		OrderID:    uuid.New(),
		Reverse:    reverse,
	}
}

func TestAccrualRetryWorker_Enqueue(t *testing.T) {
	t.Run("rejects when queue is full", func(t *testing.T) {
		worker := NewAccrualRetryWorker(newStubMileageEffects(), AccrualRetryConfig{
			QueueSize:     1,
			RetryInterval: time.Minute,
			MaxAttempts:   3,
		}, zap.NewNop())

		require.NoError(t, worker.Enqueue(testEffect(false)))

		err := worker.Enqueue(testEffect(false))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "queue is full")
	})
}

func TestAccrualRetryWorker_Apply(t *testing.T) {
	t.Run("applies accrual effect", func(t *testing.T) {
		effects := newStubMileageEffects()
		worker := NewAccrualRetryWorker(effects, DefaultAccrualRetryConfig(), zap.NewNop())

		require.NoError(t, worker.Start(context.Background()))
		defer worker.Stop(context.Background())

		effect := testEffect(false)
		require.NoError(t, worker.Enqueue(effect))

		select {
		case <-effects.applied:
		case <-time.After(time.Second):
			t.Fatal("effect was never applied")
		}

		assert.Equal(t, []uuid.UUID{effect.OrderID}, effects.accruedOrders())
		assert.Empty(t, effects.reversedOrders())
	})

	t.Run("applies reversal effect", func(t *testing.T) {
		effects := newStubMileageEffects()
		worker := NewAccrualRetryWorker(effects, DefaultAccrualRetryConfig(), zap.NewNop())

		require.NoError(t, worker.Start(context.Background()))
		defer worker.Stop(context.Background())

		effect := testEffect(true)
		require.NoError(t, worker.Enqueue(effect))

		select {
		case <-effects.applied:
		case <-time.After(time.Second):
			t.Fatal("effect was never applied")
		}

		assert.Equal(t, []uuid.UUID{effect.OrderID}, effects.reversedOrders())
		assert.Empty(t, effects.accruedOrders())
	})

	t.Run("retries failed effect until it sticks", func(t *testing.T) {
		effects := newStubMileageEffects()
		effect := testEffect(false)
		effects.failuresFor[effect.OrderID] = 2

		worker := NewAccrualRetryWorker(effects, AccrualRetryConfig{
			QueueSize:     16,
			RetryInterval: 5 * time.Millisecond,
			MaxAttempts:   5,
		}, zap.NewNop())

		require.NoError(t, worker.Start(context.Background()))
		defer worker.Stop(context.Background())

		require.NoError(t, worker.Enqueue(effect))

		select {
		case <-effects.applied:
		case <-time.After(2 * time.Second):
			t.Fatal("effect never succeeded after retries")
		}

		assert.Equal(t, []uuid.UUID{effect.OrderID}, effects.accruedOrders())
	})

	t.Run("drops effect after max attempts", func(t *testing.T) {
		effects := newStubMileageEffects()
		effect := testEffect(false)
		effects.failuresFor[effect.OrderID] = 100

		worker := NewAccrualRetryWorker(effects, AccrualRetryConfig{
			QueueSize:     16,
			RetryInterval: time.Millisecond,
			MaxAttempts:   2,
		}, zap.NewNop())

		require.NoError(t, worker.Start(context.Background()))
		require.NoError(t, worker.Enqueue(effect))

		time.Sleep(50 * time.Millisecond)
		require.NoError(t, worker.Stop(context.Background()))

		assert.Empty(t, effects.accruedOrders())
		effects.mu.Lock()
		remaining := effects.failuresFor[effect.OrderID]
		effects.mu.Unlock()
		assert.Equal(t, 98, remaining, "effect should be attempted exactly MaxAttempts times")
	})
}

func TestAccrualRetryWorker_StartStop(t *testing.T) {
	t.Run("start and stop are idempotent", func(t *testing.T) {
		worker := NewAccrualRetryWorker(newStubMileageEffects(), DefaultAccrualRetryConfig(), zap.NewNop())

		ctx := context.Background()
		require.NoError(t, worker.Start(ctx))
		require.NoError(t, worker.Start(ctx))
		require.NoError(t, worker.Stop(ctx))
		require.NoError(t, worker.Stop(ctx))
	})
}
