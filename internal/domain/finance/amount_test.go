package finance

import (
	"testing"

	"github.com/erp/reconciliation/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAmount(t *testing.T) {
	tests := []struct {
		name    string
		amount  string
		wantErr bool
	}{
		{"whole", "100", false},
		{"cents", "100.25", false},
		{"trailing zeros", "10.0000", false},
		{"largest accepted", "999999999999.99", false},
		{"sub-cent digits", "10.00004", true},
		{"three places", "0.125", true},
		{"micro", "0.000001", true},
		{"at the bound", "1000000000000", true},
		{"beyond float precision", "12345678901234.5678", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAmount("amount", d(tt.amount))
			if tt.wantErr {
				assert.True(t, shared.IsValidation(err), "expected validation error, got %v", err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestNewLedgerEntry_AmountBounds(t *testing.T) {
	_, err := NewSale(uuid.New(), "INV-100", date(2024, 1, 1), d("12345678901234.5678"))
	assert.True(t, shared.IsValidation(err))

	_, err = NewPurchase(uuid.New(), "PO-100", date(2024, 1, 1), d("19.999"))
	assert.True(t, shared.IsValidation(err))
}

func TestNewPaymentRecord_RejectsSubCentAmount(t *testing.T) {
	_, err := NewPaymentRecord(uuid.New(), PartyTypeClient, d("10.00004"), PaymentSourceCash, PaymentDetails{
		PaymentMode: PaymentModeCash,
		RecordedBy:  "cashier",
	})
	require.Error(t, err)
	assert.True(t, shared.IsValidation(err))
}
