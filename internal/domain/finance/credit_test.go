package finance

import (
	"testing"
	"time"

	"github.com/erp/reconciliation/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLot(t *testing.T, amount string, createdAt time.Time) *CreditLot {
	t.Helper()
	p := newTestPayment(t, uuid.New(), amount)
	p.SetOverpaid(d(amount))
	lot, err := NewCreditLot(p)
	require.NoError(t, err)
	lot.CreatedAt = createdAt
	return lot
}

func TestNewCreditLot(t *testing.T) {
	p := newTestPayment(t, uuid.New(), "100")
	_, err := NewCreditLot(p)
	assert.True(t, shared.IsValidation(err))

	p.SetOverpaid(d("25"))
	lot, err := NewCreditLot(p)
	require.NoError(t, err)
	assert.Equal(t, p.ID, lot.PaymentID)
	assert.True(t, lot.Remaining().Equal(d("25")))
}

func TestCreditLot_ConsumeRestoreRelease(t *testing.T) {
	lot := newTestLot(t, "50", time.Now())

	require.NoError(t, lot.Consume(d("20")))
	assert.True(t, lot.Remaining().Equal(d("30")))

	assert.True(t, shared.IsInvariantViolation(lot.Consume(d("31"))))

	_, err := lot.Release()
	assert.ErrorIs(t, err, shared.ErrCreditConsumed)

	require.NoError(t, lot.Restore(d("20")))
	assert.True(t, shared.IsInvariantViolation(lot.Restore(d("1"))))

	released, err := lot.Release()
	require.NoError(t, err)
	assert.True(t, released.Equal(d("50")))
	assert.True(t, lot.Remaining().IsZero())

	_, err = lot.Release()
	assert.True(t, shared.IsInvariantViolation(err))
}

func TestDrawCredit(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	older := newTestLot(t, "30", base)
	newer := newTestLot(t, "50", base.Add(time.Hour))
	consumer := uuid.New()

	draws, err := DrawCredit([]*CreditLot{newer, older}, consumer, d("60"))
	require.NoError(t, err)
	require.Len(t, draws, 2)
	assert.Equal(t, older.ID, draws[0].LotID)
	assert.True(t, draws[0].Amount.Equal(d("30")))
	assert.Equal(t, newer.ID, draws[1].LotID)
	assert.True(t, draws[1].Amount.Equal(d("30")))
	assert.Equal(t, consumer, draws[1].ConsumerPaymentID)

	assert.True(t, TotalRemaining([]*CreditLot{older, newer}).Equal(d("20")))

	_, err = DrawCredit([]*CreditLot{older, newer}, consumer, d("21"))
	assert.True(t, shared.IsInvariantViolation(err))
}
