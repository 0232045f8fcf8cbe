package mileage

import (
	"testing"
	"time"

	"github.com/commerce/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLedger(t *testing.T) *Ledger {
	t.Helper()
	ledger, err := NewLedger(uuid.New(), nil)
	require.NoError(t, err)
	return ledger
}

func TestNewLedger(t *testing.T) {
	t.Run("creates empty active ledger", func(t *testing.T) {
		ledger := newTestLedger(t)
		assert.Equal(t, LedgerStatusActive, ledger.Status)
		assert.True(t, ledger.Usable.IsZero())
		assert.True(t, ledger.ConservationHolds())
		assert.Len(t, ledger.GetDomainEvents(), 1)
	})

	t.Run("rejects missing customer", func(t *testing.T) {
		_, err := NewLedger(uuid.Nil, nil)
		require.Error(t, err)
		assert.Equal(t, shared.CodeValidation, shared.ErrorCode(err))
	})

	t.Run("accepts seller-scoped ledger", func(t *testing.T) {
		sellerID := uuid.New()
		ledger, err := NewLedger(uuid.New(), &sellerID)
		require.NoError(t, err)
		assert.Equal(t, sellerID, *ledger.SellerID)
	})
}

func TestLedgerAccrue(t *testing.T) {
	t.Run("credits usable and total", func(t *testing.T) {
		ledger := newTestLedger(t)
		require.NoError(t, ledger.Accrue(decimal.NewFromInt(1000), nil))

		assert.True(t, ledger.Usable.Equal(decimal.NewFromInt(1000)))
		assert.True(t, ledger.TotalAccrued.Equal(decimal.NewFromInt(1000)))
		assert.True(t, ledger.ConservationHolds())
	})

	t.Run("rejects non-positive amount", func(t *testing.T) {
		ledger := newTestLedger(t)
		err := ledger.Accrue(decimal.Zero, nil)
		require.Error(t, err)
		assert.Equal(t, shared.CodeInvalidAmount, shared.ErrorCode(err))
	})

	t.Run("keeps earliest expiry horizon", func(t *testing.T) {
		ledger := newTestLedger(t)
		later := time.Now().Add(90 * 24 * time.Hour)
		earlier := time.Now().Add(30 * 24 * time.Hour)

		require.NoError(t, ledger.Accrue(decimal.NewFromInt(100), &later))
		require.NoError(t, ledger.Accrue(decimal.NewFromInt(100), &earlier))
		assert.Equal(t, earlier, *ledger.ExpiresAt)

		require.NoError(t, ledger.Accrue(decimal.NewFromInt(100), &later))
		assert.Equal(t, earlier, *ledger.ExpiresAt)
	})
}

func TestLedgerSpend(t *testing.T) {
	t.Run("debits usable into spent total", func(t *testing.T) {
		ledger := newTestLedger(t)
		require.NoError(t, ledger.Accrue(decimal.NewFromInt(1000), nil))
		require.NoError(t, ledger.Spend(decimal.NewFromInt(400)))

		assert.True(t, ledger.Usable.Equal(decimal.NewFromInt(600)))
		assert.True(t, ledger.SpentTotal.Equal(decimal.NewFromInt(400)))
		assert.True(t, ledger.ConservationHolds())
	})

	t.Run("overspend leaves ledger untouched", func(t *testing.T) {
		ledger := newTestLedger(t)
		require.NoError(t, ledger.Accrue(decimal.NewFromInt(300), nil))

		err := ledger.Spend(decimal.NewFromInt(301))
		require.Error(t, err)
		assert.Equal(t, shared.CodeInsufficientBalance, shared.ErrorCode(err))
		assert.True(t, ledger.Usable.Equal(decimal.NewFromInt(300)))
		assert.True(t, ledger.SpentTotal.IsZero())
		assert.True(t, ledger.ConservationHolds())
	})

	t.Run("can spend exact balance", func(t *testing.T) {
		ledger := newTestLedger(t)
		require.NoError(t, ledger.Accrue(decimal.NewFromInt(300), nil))
		require.NoError(t, ledger.Spend(decimal.NewFromInt(300)))
		assert.True(t, ledger.Usable.IsZero())
	})
}

func TestLedgerHoldAndRelease(t *testing.T) {
	t.Run("hold moves usable to on-hold", func(t *testing.T) {
		ledger := newTestLedger(t)
		require.NoError(t, ledger.Accrue(decimal.NewFromInt(500), nil))
		require.NoError(t, ledger.Hold(decimal.NewFromInt(200)))

		assert.True(t, ledger.Usable.Equal(decimal.NewFromInt(300)))
		assert.True(t, ledger.OnHold.Equal(decimal.NewFromInt(200)))
		assert.True(t, ledger.ConservationHolds())
	})

	t.Run("held mileage cannot be spent", func(t *testing.T) {
		ledger := newTestLedger(t)
		require.NoError(t, ledger.Accrue(decimal.NewFromInt(500), nil))
		require.NoError(t, ledger.Hold(decimal.NewFromInt(400)))

		err := ledger.Spend(decimal.NewFromInt(200))
		require.Error(t, err)
		assert.Equal(t, shared.CodeInsufficientBalance, shared.ErrorCode(err))
	})

	t.Run("release returns held mileage to usable", func(t *testing.T) {
		ledger := newTestLedger(t)
		require.NoError(t, ledger.Accrue(decimal.NewFromInt(500), nil))
		require.NoError(t, ledger.Hold(decimal.NewFromInt(400)))
		require.NoError(t, ledger.ReleaseHold(decimal.NewFromInt(400)))

		assert.True(t, ledger.Usable.Equal(decimal.NewFromInt(500)))
		assert.True(t, ledger.OnHold.IsZero())
		assert.True(t, ledger.ConservationHolds())
	})

	t.Run("cannot release more than held", func(t *testing.T) {
		ledger := newTestLedger(t)
		require.NoError(t, ledger.Accrue(decimal.NewFromInt(500), nil))
		require.NoError(t, ledger.Hold(decimal.NewFromInt(100)))

		err := ledger.ReleaseHold(decimal.NewFromInt(101))
		require.Error(t, err)
		assert.Equal(t, shared.CodeInsufficientBalance, shared.ErrorCode(err))
	})
}

func TestLedgerExpiry(t *testing.T) {
	t.Run("expiry moves usable to expired", func(t *testing.T) {
		ledger := newTestLedger(t)
		horizon := time.Now().Add(-time.Hour)
		require.NoError(t, ledger.Accrue(decimal.NewFromInt(800), &horizon))

		require.NoError(t, ledger.ExpireAmount(decimal.NewFromInt(800), time.Now()))
		assert.True(t, ledger.Usable.IsZero())
		assert.True(t, ledger.Expired.Equal(decimal.NewFromInt(800)))
		assert.Equal(t, LedgerStatusExpired, ledger.Status)
		assert.True(t, ledger.ConservationHolds())
	})

	t.Run("partial expiry keeps ledger active", func(t *testing.T) {
		ledger := newTestLedger(t)
		horizon := time.Now().Add(-time.Hour)
		require.NoError(t, ledger.Accrue(decimal.NewFromInt(800), &horizon))

		require.NoError(t, ledger.ExpireAmount(decimal.NewFromInt(300), time.Now()))
		assert.Equal(t, LedgerStatusActive, ledger.Status)
	})

	t.Run("held mileage survives expiry of usable", func(t *testing.T) {
		ledger := newTestLedger(t)
		horizon := time.Now().Add(-time.Hour)
		require.NoError(t, ledger.Accrue(decimal.NewFromInt(800), &horizon))
		require.NoError(t, ledger.Hold(decimal.NewFromInt(200)))

		require.NoError(t, ledger.ExpireAmount(decimal.NewFromInt(600), time.Now()))
		assert.True(t, ledger.OnHold.Equal(decimal.NewFromInt(200)))
		assert.True(t, ledger.ConservationHolds())
	})

	t.Run("due for expiry only past horizon with usable balance", func(t *testing.T) {
		ledger := newTestLedger(t)
		future := time.Now().Add(time.Hour)
		require.NoError(t, ledger.Accrue(decimal.NewFromInt(100), &future))

		assert.False(t, ledger.IsDueForExpiry(time.Now()))
		assert.True(t, ledger.IsDueForExpiry(future.Add(time.Second)))

		require.NoError(t, ledger.Spend(decimal.NewFromInt(100)))
		assert.False(t, ledger.IsDueForExpiry(future.Add(time.Second)))
	})
}

func TestLedgerSoftDelete(t *testing.T) {
	t.Run("delete marks ledger gone for operations", func(t *testing.T) {
		ledger := newTestLedger(t)
		require.NoError(t, ledger.Accrue(decimal.NewFromInt(100), nil))
		require.NoError(t, ledger.SoftDelete(time.Now()))

		assert.True(t, ledger.IsDeleted())

		err := ledger.Accrue(decimal.NewFromInt(10), nil)
		require.Error(t, err)
		assert.Equal(t, shared.CodeGone, shared.ErrorCode(err))

		err = ledger.Spend(decimal.NewFromInt(10))
		require.Error(t, err)
		assert.Equal(t, shared.CodeGone, shared.ErrorCode(err))
	})

	t.Run("double delete fails with already deleted", func(t *testing.T) {
		ledger := newTestLedger(t)
		require.NoError(t, ledger.SoftDelete(time.Now()))

		err := ledger.SoftDelete(time.Now())
		require.Error(t, err)
		assert.Equal(t, shared.CodeAlreadyDeleted, shared.ErrorCode(err))
	})

	t.Run("deleted ledger is never due for expiry", func(t *testing.T) {
		ledger := newTestLedger(t)
		horizon := time.Now().Add(-time.Hour)
		require.NoError(t, ledger.Accrue(decimal.NewFromInt(100), &horizon))
		require.NoError(t, ledger.SoftDelete(time.Now()))

		assert.False(t, ledger.IsDueForExpiry(time.Now()))
	})
}

func TestLedgerConservation(t *testing.T) {
	// Run a mixed sequence of operations and verify the invariant after
	// every step.
	ledger := newTestLedger(t)
	horizon := time.Now().Add(-time.Minute)

	steps := []func() error{
		func() error { return ledger.Accrue(decimal.NewFromInt(1000), &horizon) },
		func() error { return ledger.Spend(decimal.NewFromInt(250)) },
		func() error { return ledger.Hold(decimal.NewFromInt(300)) },
		func() error { return ledger.Accrue(decimal.NewFromInt(500), nil) },
		func() error { return ledger.ReleaseHold(decimal.NewFromInt(100)) },
		func() error { return ledger.ExpireAmount(decimal.NewFromInt(400), time.Now()) },
		func() error { return ledger.Spend(decimal.NewFromInt(650)) },
	}

	for i, step := range steps {
		require.NoError(t, step(), "step %d", i)
		require.True(t, ledger.ConservationHolds(), "conservation broken after step %d", i)
	}

	assert.True(t, ledger.TotalAccrued.Equal(decimal.NewFromInt(1500)))
	assert.True(t, ledger.SpentTotal.Equal(decimal.NewFromInt(900)))
	assert.True(t, ledger.Expired.Equal(decimal.NewFromInt(400)))
	assert.True(t, ledger.OnHold.Equal(decimal.NewFromInt(200)))
	assert.True(t, ledger.Usable.IsZero())
}
