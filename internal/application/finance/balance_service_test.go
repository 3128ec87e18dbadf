package finance

import (
	"context"
	"testing"

	"github.com/erp/reconciliation/internal/domain/finance"
	"github.com/erp/reconciliation/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBalanceService_GetBalance(t *testing.T) {
	store := newMemStore()
	ctx := context.Background()
	payments := NewPaymentService(store, memScope{store: store}, newMutexLocker())
	balances := NewBalanceService(store, 0)

	client := store.addParty(t, finance.PartyTypeClient, "Acme")
	store.addEntry(t, client, "INV-1", day(2024, 1, 1), "100")
	store.addEntry(t, client, "INV-2", day(2024, 1, 5), "250.50")

	b, err := balances.GetBalance(ctx, client.ID)
	require.NoError(t, err)
	assert.True(t, b.Outstanding.Equal(d("350.50")))
	assert.True(t, b.OverpaidAmount.IsZero())
	assert.Equal(t, 2, b.OpenEntries)
	assert.Equal(t, "Acme", b.PartyName)

	_, err = payments.RecordPayment(ctx, payIn(client, "400"))
	require.NoError(t, err)

	b, err = balances.GetBalance(ctx, client.ID)
	require.NoError(t, err)
	assert.True(t, b.Outstanding.IsZero())
	assert.True(t, b.OverpaidAmount.Equal(d("49.50")))
	assert.Equal(t, 0, b.OpenEntries)
	assert.True(t, b.NetPosition().Equal(d("-49.50")))

	_, err = balances.GetBalance(ctx, uuid.New())
	assert.True(t, shared.IsNotFound(err))
}

func TestBalanceService_ListTopOutstanding(t *testing.T) {
	store := newMemStore()
	ctx := context.Background()
	svc := NewBalanceService(store, 2)

	small := store.addParty(t, finance.PartyTypeSupplier, "Small")
	big := store.addParty(t, finance.PartyTypeSupplier, "Big")
	mid := store.addParty(t, finance.PartyTypeSupplier, "Mid")
	settled := store.addParty(t, finance.PartyTypeSupplier, "Settled")
	client := store.addParty(t, finance.PartyTypeClient, "Client")

	store.addEntry(t, small, "P-1", day(2024, 1, 1), "10")
	store.addEntry(t, big, "P-2", day(2024, 1, 1), "600")
	store.addEntry(t, big, "P-3", day(2024, 1, 2), "400")
	store.addEntry(t, mid, "P-4", day(2024, 1, 1), "500")
	done := store.addEntry(t, settled, "P-5", day(2024, 1, 1), "70")
	store.setEntryPaid(done.Core().ID, d("70"))
	store.addEntry(t, client, "S-1", day(2024, 1, 1), "5000")

	t.Run("capped at the configured maximum", func(t *testing.T) {
		top, err := svc.ListTopOutstanding(ctx, finance.PartyTypeSupplier, 10)
		require.NoError(t, err)
		require.Len(t, top, 2)
		assert.Equal(t, big.ID, top[0].PartyID)
		assert.True(t, top[0].Outstanding.Equal(d("1000")))
		assert.Equal(t, 2, top[0].OpenEntries)
		assert.Equal(t, mid.ID, top[1].PartyID)
	})

	t.Run("settled parties are left out", func(t *testing.T) {
		top, err := NewBalanceService(store, 0).ListTopOutstanding(ctx, finance.PartyTypeSupplier, 10)
		require.NoError(t, err)
		require.Len(t, top, 3)
		for _, b := range top {
			assert.NotEqual(t, settled.ID, b.PartyID)
			assert.Equal(t, finance.PartyTypeSupplier, b.PartyType)
		}
	})

	t.Run("rejects bad arguments", func(t *testing.T) {
		_, err := svc.ListTopOutstanding(ctx, finance.PartyType("VENDOR"), 5)
		assert.True(t, shared.IsValidation(err))
		_, err = svc.ListTopOutstanding(ctx, finance.PartyTypeClient, 0)
		assert.True(t, shared.IsValidation(err))
	})
}
