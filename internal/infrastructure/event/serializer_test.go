package event

import (
	"testing"

	"github.com/erp/reconciliation/internal/domain/finance"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaymentEventSerializer(t *testing.T) {
	s := NewPaymentEventSerializer()

	for _, eventType := range []string{
		finance.EventTypePaymentRecorded,
		finance.EventTypePaymentReversed,
		finance.EventTypeCreditApplied,
	} {
		assert.True(t, s.IsRegistered(eventType), eventType)
	}
	assert.False(t, s.IsRegistered("InventoryAdjusted"))

	p := newRecordedPayment(t, "30.50", 3)
	p.SetOverpaid(decimal.RequireFromString("0.50"))
	original := finance.NewPaymentRecordedEvent(p)

	data, err := s.Serialize(original)
	require.NoError(t, err)

	decoded, err := s.Deserialize(finance.EventTypePaymentRecorded, data)
	require.NoError(t, err)
	got, ok := decoded.(*finance.PaymentRecordedEvent)
	require.True(t, ok, "decoded %T", decoded)

	assert.Equal(t, original.EventID(), got.EventID())
	assert.Equal(t, p.ID, got.PaymentID)
	assert.True(t, got.Amount.Equal(p.Amount))
	assert.True(t, got.OverpaidAmount.Equal(decimal.RequireFromString("0.50")))
	assert.Equal(t, 3, got.EntriesUpdated)
}

func TestEventSerializer_DeserializeErrors(t *testing.T) {
	s := NewPaymentEventSerializer()

	_, err := s.Deserialize("Unknown", []byte(`{}`))
	assert.ErrorContains(t, err, "unknown event type")

	_, err = s.Deserialize(finance.EventTypeCreditApplied, []byte(`{not json`))
	assert.ErrorContains(t, err, "failed to unmarshal")
}
