package ordering

import (
	"testing"
	"time"

	"github.com/commerce/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testCurrencies = []string{"KRW", "USD"}

func newPendingPayment(t *testing.T) *Payment {
	t.Helper()
	payment, err := NewPayment(uuid.New(), PaymentMethodCard, decimal.NewFromInt(50000), "KRW", testCurrencies)
	require.NoError(t, err)
	return payment
}

func TestNewPayment(t *testing.T) {
	t.Run("creates pending payment", func(t *testing.T) {
		payment := newPendingPayment(t)
		assert.Equal(t, PaymentStatusPending, payment.Status)
		assert.False(t, payment.IsLocked())
		assert.Nil(t, payment.CompletedAt)
	})

	t.Run("rejects zero amount", func(t *testing.T) {
		_, err := NewPayment(uuid.New(), PaymentMethodCard, decimal.Zero, "KRW", testCurrencies)
		require.Error(t, err)
		assert.Equal(t, shared.CodeValidation, shared.ErrorCode(err))
	})

	t.Run("rejects unsupported currency", func(t *testing.T) {
		_, err := NewPayment(uuid.New(), PaymentMethodCard, decimal.NewFromInt(100), "GBP", testCurrencies)
		require.Error(t, err)
		assert.Equal(t, shared.CodeValidation, shared.ErrorCode(err))
	})

	t.Run("rejects invalid method", func(t *testing.T) {
		_, err := NewPayment(uuid.New(), PaymentMethod("CHECK"), decimal.NewFromInt(100), "KRW", testCurrencies)
		require.Error(t, err)
	})
}

func TestPaymentStatusCanTransitionTo(t *testing.T) {
	cases := []struct {
		from    PaymentStatus
		to      PaymentStatus
		allowed bool
	}{
		{PaymentStatusPending, PaymentStatusSucceeded, true},
		{PaymentStatusPending, PaymentStatusFailed, true},
		{PaymentStatusPending, PaymentStatusRefunded, false},
		{PaymentStatusSucceeded, PaymentStatusRefunded, true},
		{PaymentStatusSucceeded, PaymentStatusFailed, false},
		{PaymentStatusFailed, PaymentStatusSucceeded, false},
		{PaymentStatusFailed, PaymentStatusRefunded, false},
		{PaymentStatusRefunded, PaymentStatusPending, false},
	}

	for _, tc := range cases {
		t.Run(string(tc.from)+"_to_"+string(tc.to), func(t *testing.T) {
			assert.Equal(t, tc.allowed, tc.from.CanTransitionTo(tc.to))
		})
	}
}

func TestPaymentMarkSucceeded(t *testing.T) {
	t.Run("settles pending payment", func(t *testing.T) {
		payment := newPendingPayment(t)
		completedAt := time.Now()

		require.NoError(t, payment.MarkSucceeded(completedAt, "pg-tx-001"))
		assert.Equal(t, PaymentStatusSucceeded, payment.Status)
		assert.True(t, payment.IsLocked())
		assert.Equal(t, "pg-tx-001", payment.ExternalReference)
	})

	t.Run("repeat settle is a no-op", func(t *testing.T) {
		payment := newPendingPayment(t)
		first := time.Now()
		require.NoError(t, payment.MarkSucceeded(first, "pg-tx-001"))

		require.NoError(t, payment.MarkSucceeded(first.Add(time.Hour), "pg-tx-other"))
		assert.Equal(t, "pg-tx-001", payment.ExternalReference)
		assert.Equal(t, first, *payment.CompletedAt)
	})

	t.Run("rejects completion before request time", func(t *testing.T) {
		payment := newPendingPayment(t)
		err := payment.MarkSucceeded(payment.RequestedAt.Add(-time.Minute), "")
		require.Error(t, err)
		assert.Equal(t, shared.CodeValidation, shared.ErrorCode(err))
	})

	t.Run("cannot settle failed payment", func(t *testing.T) {
		payment := newPendingPayment(t)
		require.NoError(t, payment.MarkFailed("card declined"))

		err := payment.MarkSucceeded(time.Now(), "")
		require.Error(t, err)
		assert.Equal(t, shared.CodeLockedState, shared.ErrorCode(err))
	})
}

func TestPaymentMarkFailed(t *testing.T) {
	t.Run("fails pending payment with reason", func(t *testing.T) {
		payment := newPendingPayment(t)
		require.NoError(t, payment.MarkFailed("insufficient funds"))
		assert.Equal(t, PaymentStatusFailed, payment.Status)
		assert.Equal(t, "insufficient funds", payment.FailReason)
	})

	t.Run("repeat fail is a no-op", func(t *testing.T) {
		payment := newPendingPayment(t)
		require.NoError(t, payment.MarkFailed("first reason"))
		require.NoError(t, payment.MarkFailed("second reason"))
		assert.Equal(t, "first reason", payment.FailReason)
	})

	t.Run("cannot fail settled payment", func(t *testing.T) {
		payment := newPendingPayment(t)
		require.NoError(t, payment.MarkSucceeded(time.Now(), ""))

		err := payment.MarkFailed("too late")
		require.Error(t, err)
		assert.Equal(t, shared.CodeLockedState, shared.ErrorCode(err))
	})
}

func TestPaymentRefund(t *testing.T) {
	t.Run("refunds settled payment", func(t *testing.T) {
		payment := newPendingPayment(t)
		require.NoError(t, payment.MarkSucceeded(time.Now(), ""))
		require.NoError(t, payment.Refund())
		assert.Equal(t, PaymentStatusRefunded, payment.Status)
	})

	t.Run("repeat refund is a no-op", func(t *testing.T) {
		payment := newPendingPayment(t)
		require.NoError(t, payment.MarkSucceeded(time.Now(), ""))
		require.NoError(t, payment.Refund())
		require.NoError(t, payment.Refund())
	})

	t.Run("cannot refund pending payment", func(t *testing.T) {
		payment := newPendingPayment(t)
		err := payment.Refund()
		require.Error(t, err)
		assert.Equal(t, shared.CodeLockedState, shared.ErrorCode(err))
	})
}

func TestPaymentUpdate(t *testing.T) {
	t.Run("patches pending payment", func(t *testing.T) {
		payment := newPendingPayment(t)
		amount := decimal.NewFromInt(42000)
		method := PaymentMethodBankTransfer

		err := payment.Update(PaymentPatch{Amount: &amount, Method: &method}, testCurrencies)
		require.NoError(t, err)
		assert.True(t, payment.Amount.Equal(amount))
		assert.Equal(t, PaymentMethodBankTransfer, payment.Method)
	})

	t.Run("locked payment rejects any patch", func(t *testing.T) {
		payment := newPendingPayment(t)
		require.NoError(t, payment.MarkSucceeded(time.Now(), ""))

		ref := "late-ref"
		err := payment.Update(PaymentPatch{ExternalReference: &ref}, testCurrencies)
		require.Error(t, err)
		assert.Equal(t, shared.CodeLockedState, shared.ErrorCode(err))
	})

	t.Run("rejects patch to unsupported currency", func(t *testing.T) {
		payment := newPendingPayment(t)
		currency := "GBP"
		err := payment.Update(PaymentPatch{Currency: &currency}, testCurrencies)
		require.Error(t, err)
		assert.Equal(t, shared.CodeValidation, shared.ErrorCode(err))
	})
}
