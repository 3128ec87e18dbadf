package finance

import (
	"testing"
	"time"

	"github.com/erp/reconciliation/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSale(t *testing.T, partyID uuid.UUID, doc string, on time.Time, total string, seq int64) *Sale {
	t.Helper()
	s, err := NewSale(partyID, doc, on, d(total))
	require.NoError(t, err)
	s.Sequence = seq
	return s
}

func newTestPayment(t *testing.T, partyID uuid.UUID, amount string) *PaymentRecord {
	t.Helper()
	p, err := NewPaymentRecord(partyID, PartyTypeClient, d(amount), PaymentSourceCash, PaymentDetails{
		PaymentMode: PaymentModeCash,
		PaymentDate: date(2024, 3, 1),
		RecordedBy:  "cashier",
	})
	require.NoError(t, err)
	return p
}

func TestFIFOAllocationStrategy(t *testing.T) {
	t.Run("NewFIFOAllocationStrategy creates valid strategy", func(t *testing.T) {
		s := NewFIFOAllocationStrategy()
		assert.Equal(t, "fifo_allocation", s.Name())
		assert.NotEmpty(t, s.Description())
	})

	t.Run("Plan rejects non-positive amount", func(t *testing.T) {
		_, err := NewFIFOAllocationStrategy().Plan(decimal.Zero, nil)
		assert.True(t, shared.IsValidation(err))
	})

	t.Run("Plan with no entries leaves everything remaining", func(t *testing.T) {
		plan, err := NewFIFOAllocationStrategy().Plan(d("75"), nil)
		require.NoError(t, err)
		assert.Empty(t, plan.Allocations)
		assert.True(t, plan.Remaining.Equal(d("75")))
	})

	t.Run("150 across three 100 entries pays first, half of second", func(t *testing.T) {
		party := uuid.New()
		e1 := newTestSale(t, party, "S1", date(2024, 1, 1), "100", 1)
		e2 := newTestSale(t, party, "S2", date(2024, 1, 2), "100", 2)
		e3 := newTestSale(t, party, "S3", date(2024, 1, 3), "100", 3)

		plan, err := NewFIFOAllocationStrategy().Plan(d("150"), []LedgerEntry{e3, e1, e2})
		require.NoError(t, err)

		require.Len(t, plan.Allocations, 2)
		assert.Equal(t, e1.ID, plan.Allocations[0].Entry.Core().ID)
		assert.True(t, plan.Allocations[0].Amount.Equal(d("100")))
		assert.Equal(t, e2.ID, plan.Allocations[1].Entry.Core().ID)
		assert.True(t, plan.Allocations[1].Amount.Equal(d("50")))
		assert.True(t, plan.Remaining.IsZero())
		assert.Equal(t, []uuid.UUID{e1.ID}, plan.FullyPaid)
		assert.Equal(t, []uuid.UUID{e2.ID}, plan.PartiallyPaid)

		// planning does not touch the entries
		assert.True(t, e1.AmountPaid.IsZero())
	})

	t.Run("same-day entries fall back to creation sequence", func(t *testing.T) {
		party := uuid.New()
		later := newTestSale(t, party, "B", date(2024, 1, 5).Add(9*time.Hour), "100", 2)
		earlier := newTestSale(t, party, "A", date(2024, 1, 5).Add(17*time.Hour), "100", 1)

		plan, err := NewFIFOAllocationStrategy().Plan(d("100"), []LedgerEntry{later, earlier})
		require.NoError(t, err)
		require.Len(t, plan.Allocations, 1)
		assert.Equal(t, earlier.ID, plan.Allocations[0].Entry.Core().ID)
	})

	t.Run("settled entries are skipped", func(t *testing.T) {
		party := uuid.New()
		paid := newTestSale(t, party, "P", date(2024, 1, 1), "100", 1)
		require.NoError(t, paid.ApplyPayment(d("100")))
		open := newTestSale(t, party, "O", date(2024, 1, 2), "100", 2)

		plan, err := NewFIFOAllocationStrategy().Plan(d("30"), []LedgerEntry{paid, open})
		require.NoError(t, err)
		require.Len(t, plan.Allocations, 1)
		assert.Equal(t, open.ID, plan.Allocations[0].Entry.Core().ID)
	})
}

func TestExecutePlan(t *testing.T) {
	t.Run("600 against 500 and 300 pays first and part of second", func(t *testing.T) {
		party := uuid.New()
		p1 := newTestSale(t, party, "P1", date(2024, 1, 1), "500", 1)
		p2 := newTestSale(t, party, "P2", date(2024, 1, 10), "300", 2)
		payment := newTestPayment(t, party, "600")

		plan, err := NewFIFOAllocationStrategy().Plan(payment.Amount, []LedgerEntry{p2, p1})
		require.NoError(t, err)
		require.NoError(t, ExecutePlan(plan, payment))

		assert.Equal(t, PaymentStatusPaid, p1.PaymentStatus())
		assert.Equal(t, PaymentStatusPartial, p2.PaymentStatus())
		assert.True(t, p2.AmountPaid.Equal(d("100")))
		assert.True(t, p2.AmountDue().Equal(d("200")))
		assert.True(t, payment.OverpaidAmount.IsZero())
		require.Len(t, payment.Allocations, 2)
		assert.Equal(t, "P1", payment.Allocations[0].DocumentNumber)
	})

	t.Run("overpay becomes the payment's overpaid amount", func(t *testing.T) {
		party := uuid.New()
		e := newTestSale(t, party, "S", date(2024, 1, 1), "100", 1)
		payment := newTestPayment(t, party, "150")

		plan, err := NewFIFOAllocationStrategy().Plan(payment.Amount, []LedgerEntry{e})
		require.NoError(t, err)
		require.NoError(t, ExecutePlan(plan, payment))

		assert.True(t, payment.OverpaidAmount.Equal(d("50")))
		assert.NoError(t, payment.CheckConservation())
	})

	t.Run("no open entries turns the whole amount into overpay", func(t *testing.T) {
		payment := newTestPayment(t, uuid.New(), "80")
		plan, err := NewFIFOAllocationStrategy().Plan(payment.Amount, nil)
		require.NoError(t, err)
		require.NoError(t, ExecutePlan(plan, payment))

		assert.Empty(t, payment.Allocations)
		assert.True(t, payment.OverpaidAmount.Equal(d("80")))
	})
}

func TestCivilDate(t *testing.T) {
	ts := time.Date(2024, 5, 6, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, date(2024, 5, 6), CivilDate(ts))

	east := time.FixedZone("UTC+9", 9*60*60)
	assert.Equal(t, date(2024, 5, 5), CivilDate(time.Date(2024, 5, 6, 2, 0, 0, 0, east)))
	west := time.FixedZone("UTC-5", -5*60*60)
	assert.Equal(t, date(2024, 5, 7), CivilDate(time.Date(2024, 5, 6, 22, 0, 0, 0, west)))
}

func TestSortFIFO_MixedTimeZones(t *testing.T) {
	party := uuid.New()
	east := time.FixedZone("UTC+9", 9*60*60)
	// 2024-01-02 03:00 in UTC+9 is 2024-01-01 18:00 UTC
	early := newTestSale(t, party, "S-EAST", time.Date(2024, 1, 2, 3, 0, 0, 0, east), "100", 2)
	late := newTestSale(t, party, "S-UTC", time.Date(2024, 1, 1, 20, 0, 0, 0, time.UTC), "100", 1)

	assert.Equal(t, date(2024, 1, 1), early.EntryDate)
	assert.Equal(t, time.UTC, early.EntryDate.Location())

	entries := []LedgerEntry{early, late}
	SortFIFO(entries)
	// Same UTC calendar date, so creation sequence decides
	assert.Equal(t, "S-UTC", entries[0].Core().DocumentNumber)
	assert.Equal(t, "S-EAST", entries[1].Core().DocumentNumber)
}
