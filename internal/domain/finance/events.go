package finance

import (
	"time"

	"github.com/erp/reconciliation/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event type names
const (
	EventTypePaymentRecorded = "PaymentRecorded"
	EventTypePaymentReversed = "PaymentReversed"
	EventTypeCreditApplied   = "CreditApplied"

	aggregateTypePayment = "PaymentRecord"
)

// PaymentRecordedEvent is raised after a payment has been allocated and committed
type PaymentRecordedEvent struct {
	shared.BaseDomainEvent
	PaymentID      uuid.UUID       `json:"payment_id"`
	PartyID        uuid.UUID       `json:"party_id"`
	PartyType      PartyType       `json:"party_type"`
	Amount         decimal.Decimal `json:"amount"`
	Allocated      decimal.Decimal `json:"allocated"`
	OverpaidAmount decimal.Decimal `json:"overpaid_amount"`
	EntriesUpdated int             `json:"entries_updated"`
	RecordedBy     string          `json:"recorded_by"`
}

// NewPaymentRecordedEvent creates a PaymentRecordedEvent
func NewPaymentRecordedEvent(p *PaymentRecord) *PaymentRecordedEvent {
	return &PaymentRecordedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentRecorded, aggregateTypePayment, p.ID),
		PaymentID:       p.ID,
		PartyID:         p.PartyID,
		PartyType:       p.PartyType,
		Amount:          p.Amount,
		Allocated:       p.AllocatedAmount(),
		OverpaidAmount:  p.OverpaidAmount,
		EntriesUpdated:  p.EntriesUpdated(),
		RecordedBy:      p.RecordedBy,
	}
}

// PaymentReversedEvent is raised after a payment reversal has been committed
type PaymentReversedEvent struct {
	shared.BaseDomainEvent
	PaymentID      uuid.UUID       `json:"payment_id"`
	PartyID        uuid.UUID       `json:"party_id"`
	PartyType      PartyType       `json:"party_type"`
	Amount         decimal.Decimal `json:"amount"`
	Source         PaymentSource   `json:"source"`
	EntriesUpdated int             `json:"entries_updated"`
	Reason         string          `json:"reason"`
	ReversedBy     string          `json:"reversed_by"`
	ReversedAt     time.Time       `json:"reversed_at"`
}

// NewPaymentReversedEvent creates a PaymentReversedEvent
func NewPaymentReversedEvent(p *PaymentRecord) *PaymentReversedEvent {
	reversedAt := time.Now()
	if p.ReversedAt != nil {
		reversedAt = *p.ReversedAt
	}
	return &PaymentReversedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentReversed, aggregateTypePayment, p.ID),
		PaymentID:       p.ID,
		PartyID:         p.PartyID,
		PartyType:       p.PartyType,
		Amount:          p.Amount,
		Source:          p.Source,
		EntriesUpdated:  p.EntriesUpdated(),
		Reason:          p.ReversalReason,
		ReversedBy:      p.ReversedBy,
		ReversedAt:      reversedAt,
	}
}

// CreditAppliedEvent is raised after standing credit was applied to open entries
type CreditAppliedEvent struct {
	shared.BaseDomainEvent
	PaymentID       uuid.UUID       `json:"payment_id"`
	PartyID         uuid.UUID       `json:"party_id"`
	PartyType       PartyType       `json:"party_type"`
	Amount          decimal.Decimal `json:"amount"`
	LotsDrawn       int             `json:"lots_drawn"`
	EntriesUpdated  int             `json:"entries_updated"`
	CreditRemaining decimal.Decimal `json:"credit_remaining"`
}

// NewCreditAppliedEvent creates a CreditAppliedEvent
func NewCreditAppliedEvent(p *PaymentRecord, lotsDrawn int, creditRemaining decimal.Decimal) *CreditAppliedEvent {
	return &CreditAppliedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCreditApplied, aggregateTypePayment, p.ID),
		PaymentID:       p.ID,
		PartyID:         p.PartyID,
		PartyType:       p.PartyType,
		Amount:          p.Amount,
		LotsDrawn:       lotsDrawn,
		EntriesUpdated:  p.EntriesUpdated(),
		CreditRemaining: creditRemaining,
	}
}
