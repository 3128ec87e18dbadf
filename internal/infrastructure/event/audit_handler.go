package event

import (
	"context"
	"fmt"

	"github.com/erp/reconciliation/internal/domain/finance"
	"github.com/erp/reconciliation/internal/domain/shared"
	"github.com/erp/reconciliation/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// AuditHandler writes one audit log line per committed payment event. The
// message carries the "N bill(s) updated" notification shown to operators.
type AuditHandler struct {
	logger *zap.Logger
}

// NewAuditHandler creates an AuditHandler logging under the "audit" name
func NewAuditHandler(l *zap.Logger) *AuditHandler {
	if l == nil {
		l = zap.NewNop()
	}
	return &AuditHandler{logger: l.Named("audit")}
}

// EventTypes returns the payment event types
func (h *AuditHandler) EventTypes() []string {
	return []string{
		finance.EventTypePaymentRecorded,
		finance.EventTypePaymentReversed,
		finance.EventTypeCreditApplied,
	}
}

// Handle logs the event
func (h *AuditHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	log := logger.WithLogger(ctx, h.logger).With(
		zap.String("event_type", event.EventType()),
		zap.String("event_id", event.EventID().String()),
		zap.String("payment_id", event.AggregateID().String()),
	)

	switch e := event.(type) {
	case *finance.PaymentRecordedEvent:
		log.Info(fmt.Sprintf("Payment recorded: %s", billsUpdated(e.EntriesUpdated)),
			zap.String("party_id", e.PartyID.String()),
			zap.String("party_type", e.PartyType.String()),
			zap.String("amount", e.Amount.StringFixed(2)),
			zap.String("overpaid_amount", e.OverpaidAmount.StringFixed(2)),
			zap.String("recorded_by", e.RecordedBy),
		)
	case *finance.PaymentReversedEvent:
		log.Info(fmt.Sprintf("Payment reversed: %s", billsUpdated(e.EntriesUpdated)),
			zap.String("party_id", e.PartyID.String()),
			zap.String("amount", e.Amount.StringFixed(2)),
			zap.String("source", string(e.Source)),
			zap.String("reason", e.Reason),
			zap.String("reversed_by", e.ReversedBy),
		)
	case *finance.CreditAppliedEvent:
		log.Info(fmt.Sprintf("Credit applied: %s", billsUpdated(e.EntriesUpdated)),
			zap.String("party_id", e.PartyID.String()),
			zap.String("amount", e.Amount.StringFixed(2)),
			zap.Int("lots_drawn", e.LotsDrawn),
			zap.String("credit_remaining", e.CreditRemaining.StringFixed(2)),
		)
	default:
		return fmt.Errorf("audit handler cannot handle %T", event)
	}
	return nil
}

func billsUpdated(n int) string {
	return fmt.Sprintf("%d bill(s) updated", n)
}

var _ shared.EventHandler = (*AuditHandler)(nil)
