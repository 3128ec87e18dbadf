package event

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/erp/reconciliation/internal/domain/finance"
	"github.com/erp/reconciliation/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// recordingHandler implements EventHandler for testing
type recordingHandler struct {
	eventTypes []string
	handled    []shared.DomainEvent
	err        error
	panicMsg   string
	mu         sync.Mutex
}

func newRecordingHandler(eventTypes ...string) *recordingHandler {
	return &recordingHandler{eventTypes: eventTypes}
}

func (h *recordingHandler) Handle(_ context.Context, event shared.DomainEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handled = append(h.handled, event)
	if h.panicMsg != "" {
		panic(h.panicMsg)
	}
	return h.err
}

func (h *recordingHandler) EventTypes() []string {
	return h.eventTypes
}

func (h *recordingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.handled)
}

func newRecordedPayment(t *testing.T, amount string, entries int) *finance.PaymentRecord {
	t.Helper()
	p, err := finance.NewPaymentRecord(uuid.New(), finance.PartyTypeClient, decimal.RequireFromString(amount),
		finance.PaymentSourceCash, finance.PaymentDetails{
			PaymentMode: finance.PaymentModeCash,
			PaymentDate: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
			RecordedBy:  "till-1",
		})
	require.NoError(t, err)
	for i := range entries {
		sale, err := finance.NewSale(p.PartyID, "INV-"+string(rune('A'+i)), p.PaymentDate, decimal.NewFromInt(10))
		require.NoError(t, err)
		p.AddAllocation(sale, decimal.NewFromInt(10))
	}
	return p
}

func TestInMemoryEventBus_Publish(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	recorded := newRecordingHandler(finance.EventTypePaymentRecorded)
	reversed := newRecordingHandler(finance.EventTypePaymentReversed)
	everything := newRecordingHandler()
	bus.Subscribe(recorded)
	bus.Subscribe(reversed)
	bus.Subscribe(everything)

	p := newRecordedPayment(t, "20", 2)
	require.NoError(t, bus.Publish(context.Background(),
		finance.NewPaymentRecordedEvent(p),
		finance.NewCreditAppliedEvent(p, 1, decimal.Zero),
	))

	assert.Equal(t, 1, recorded.count())
	assert.Equal(t, 0, reversed.count())
	assert.Equal(t, 2, everything.count())
}

func TestInMemoryEventBus_FailingHandlersDoNotStopDelivery(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	failing := newRecordingHandler(finance.EventTypePaymentRecorded)
	failing.err = errors.New("sink unavailable")
	panicking := newRecordingHandler(finance.EventTypePaymentRecorded)
	panicking.panicMsg = "boom"
	healthy := newRecordingHandler(finance.EventTypePaymentRecorded)

	bus.Subscribe(failing)
	bus.Subscribe(panicking)
	bus.Subscribe(healthy)

	err := bus.Publish(context.Background(), finance.NewPaymentRecordedEvent(newRecordedPayment(t, "10", 1)))
	require.NoError(t, err)

	assert.Equal(t, 1, healthy.count())
	delivered, failed := bus.Stats()
	assert.Equal(t, int64(1), delivered)
	assert.Equal(t, int64(2), failed)
}

func TestInMemoryEventBus_Unsubscribe(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	handler := newRecordingHandler(finance.EventTypePaymentRecorded)
	bus.Subscribe(handler)

	event := finance.NewPaymentRecordedEvent(newRecordedPayment(t, "10", 1))
	_ = bus.Publish(context.Background(), event)
	bus.Unsubscribe(handler)
	_ = bus.Publish(context.Background(), event)

	assert.Equal(t, 1, handler.count())
}

func TestInMemoryEventBus_StopDropsEvents(t *testing.T) {
	bus := NewInMemoryEventBus(nil)
	handler := newRecordingHandler()
	bus.Subscribe(handler)
	ctx := context.Background()
	event := finance.NewPaymentRecordedEvent(newRecordedPayment(t, "10", 1))

	require.NoError(t, bus.Stop(ctx))
	require.NoError(t, bus.Publish(ctx, event))
	assert.Equal(t, 0, handler.count())

	require.NoError(t, bus.Start(ctx))
	require.NoError(t, bus.Publish(ctx, event))
	assert.Equal(t, 1, handler.count())
}

func TestHandlerRegistry(t *testing.T) {
	t.Run("typed handlers come before wildcard handlers", func(t *testing.T) {
		r := NewHandlerRegistry()
		typed := newRecordingHandler()
		wildcard := newRecordingHandler()
		r.Register(wildcard)
		r.Register(typed, finance.EventTypePaymentReversed)

		handlers := r.GetHandlers(finance.EventTypePaymentReversed)
		require.Len(t, handlers, 2)
		assert.Same(t, typed, handlers[0])
		assert.Same(t, wildcard, handlers[1])

		assert.Len(t, r.GetHandlers(finance.EventTypePaymentRecorded), 1)
	})

	t.Run("duplicate registration is ignored", func(t *testing.T) {
		r := NewHandlerRegistry()
		h := newRecordingHandler()
		r.Register(h, finance.EventTypeCreditApplied)
		r.Register(h, finance.EventTypeCreditApplied)
		r.Register(h)
		r.Register(h)

		assert.Len(t, r.GetHandlers(finance.EventTypeCreditApplied), 2)
	})

	t.Run("unregister removes every registration", func(t *testing.T) {
		r := NewHandlerRegistry()
		h := newRecordingHandler()
		other := newRecordingHandler()
		r.Register(h, finance.EventTypePaymentRecorded, finance.EventTypePaymentReversed)
		r.Register(h)
		r.Register(other, finance.EventTypePaymentRecorded)

		r.Unregister(h)

		assert.Empty(t, r.GetHandlers(finance.EventTypePaymentReversed))
		handlers := r.GetHandlers(finance.EventTypePaymentRecorded)
		require.Len(t, handlers, 1)
		assert.Same(t, other, handlers[0])
	})
}
