package finance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/reconciliation/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/looplab/fsm"
	"github.com/shopspring/decimal"
)

// PaymentMode is how the money moved
type PaymentMode string

const (
	PaymentModeCash         PaymentMode = "CASH"
	PaymentModeBankTransfer PaymentMode = "BANK_TRANSFER"
	PaymentModeCheque       PaymentMode = "CHEQUE"
	PaymentModeCard         PaymentMode = "CARD"
	PaymentModeMobileMoney  PaymentMode = "MOBILE_MONEY"
	PaymentModeCredit       PaymentMode = "CREDIT" // standing credit applied, no money moved
	PaymentModeOther        PaymentMode = "OTHER"
)

// IsValid checks if the payment mode is valid
func (m PaymentMode) IsValid() bool {
	switch m {
	case PaymentModeCash, PaymentModeBankTransfer, PaymentModeCheque, PaymentModeCard,
		PaymentModeMobileMoney, PaymentModeCredit, PaymentModeOther:
		return true
	}
	return false
}

// String returns the string representation
func (m PaymentMode) String() string {
	return string(m)
}

// PaymentSource separates money received from credit being drawn down
type PaymentSource string

const (
	PaymentSourceCash   PaymentSource = "CASH"
	PaymentSourceCredit PaymentSource = "CREDIT"
)

// PaymentState is the lifecycle state of a payment record
type PaymentState string

const (
	PaymentStateActive   PaymentState = "ACTIVE"
	PaymentStateReversed PaymentState = "REVERSED"
)

const eventReverse = "reverse"

// Allocation is one slice of a payment applied to one ledger entry
type Allocation struct {
	LedgerEntryID  uuid.UUID
	DocumentNumber string
	AmountApplied  decimal.Decimal
}

// PaymentRecord is the append-only record of one payment and how it was
// spread across ledger entries. It may be reversed exactly once.
type PaymentRecord struct {
	shared.BaseAggregateRoot
	PartyID         uuid.UUID
	PartyType       PartyType
	Amount          decimal.Decimal
	PaymentMode     PaymentMode
	PaymentDate     time.Time
	ReferenceNumber string
	Notes           string
	RecordedBy      string
	Source          PaymentSource
	Allocations     []Allocation // in application order
	OverpaidAmount  decimal.Decimal
	State           PaymentState
	ReversedAt      *time.Time
	ReversedBy      string
	ReversalReason  string
	IdempotencyKey  string
}

// PaymentDetails carries the caller-supplied descriptive fields
type PaymentDetails struct {
	PaymentMode     PaymentMode
	PaymentDate     time.Time
	ReferenceNumber string
	Notes           string
	RecordedBy      string
	IdempotencyKey  string
}

// NewPaymentRecord starts an ACTIVE record with no allocations
func NewPaymentRecord(partyID uuid.UUID, partyType PartyType, amount decimal.Decimal, source PaymentSource, d PaymentDetails) (*PaymentRecord, error) {
	if !amount.IsPositive() {
		return nil, shared.NewValidationError("payment amount must be greater than zero")
	}
	if err := ValidateAmount("payment amount", amount); err != nil {
		return nil, err
	}
	if !partyType.IsValid() {
		return nil, shared.NewValidationError("invalid party type %q", partyType)
	}
	if !d.PaymentMode.IsValid() {
		return nil, shared.NewValidationError("invalid payment mode %q", d.PaymentMode)
	}
	paymentDate := d.PaymentDate
	if paymentDate.IsZero() {
		paymentDate = time.Now()
	}
	return &PaymentRecord{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		PartyID:           partyID,
		PartyType:         partyType,
		Amount:            amount,
		PaymentMode:       d.PaymentMode,
		PaymentDate:       paymentDate,
		ReferenceNumber:   d.ReferenceNumber,
		Notes:             d.Notes,
		RecordedBy:        d.RecordedBy,
		Source:            source,
		Allocations:       make([]Allocation, 0),
		OverpaidAmount:    decimal.Zero,
		State:             PaymentStateActive,
		IdempotencyKey:    d.IdempotencyKey,
	}, nil
}

// AddAllocation appends an allocation in application order
func (p *PaymentRecord) AddAllocation(entry LedgerEntry, amount decimal.Decimal) {
	c := entry.Core()
	p.Allocations = append(p.Allocations, Allocation{
		LedgerEntryID:  c.ID,
		DocumentNumber: c.DocumentNumber,
		AmountApplied:  amount,
	})
}

// SetOverpaid records the part of the payment that became credit
func (p *PaymentRecord) SetOverpaid(amount decimal.Decimal) {
	p.OverpaidAmount = amount
}

// AllocatedAmount returns the sum of all allocations
func (p *PaymentRecord) AllocatedAmount() decimal.Decimal {
	total := decimal.Zero
	for _, a := range p.Allocations {
		total = total.Add(a.AmountApplied)
	}
	return total
}

// CheckConservation verifies Amount == sum(allocations) + OverpaidAmount
func (p *PaymentRecord) CheckConservation() error {
	sum := p.AllocatedAmount().Add(p.OverpaidAmount)
	if !sum.Equal(p.Amount) {
		return shared.NewInvariantViolation("payment %s: amount %s != allocated %s + overpaid %s",
			p.ID, p.Amount, p.AllocatedAmount(), p.OverpaidAmount)
	}
	return nil
}

// IsReversed reports whether the record has been reversed
func (p *PaymentRecord) IsReversed() bool {
	return p.State == PaymentStateReversed
}

// IsCredit reports whether this record drew on standing credit
func (p *PaymentRecord) IsCredit() bool {
	return p.Source == PaymentSourceCredit
}

// EntriesUpdated is the number of distinct entries this payment touched
func (p *PaymentRecord) EntriesUpdated() int {
	return len(p.Allocations)
}

func (p *PaymentRecord) lifecycle() *fsm.FSM {
	return fsm.NewFSM(
		string(p.State),
		fsm.Events{
			{Name: eventReverse, Src: []string{string(PaymentStateActive)}, Dst: string(PaymentStateReversed)},
		},
		fsm.Callbacks{},
	)
}

// MarkReversed moves the record from ACTIVE to REVERSED. The ledger side of the
// reversal is done by the caller before this is invoked.
func (p *PaymentRecord) MarkReversed(ctx context.Context, reason, reversedBy string) error {
	if p.IsReversed() {
		return shared.NewDomainError(shared.CodeAlreadyReversed,
			fmt.Sprintf("payment %s was already reversed", p.ID))
	}
	machine := p.lifecycle()
	if err := machine.Event(ctx, eventReverse); err != nil {
		var invalid fsm.InvalidEventError
		if errors.As(err, &invalid) {
			return shared.NewDomainError(shared.CodeAlreadyReversed,
				fmt.Sprintf("payment %s cannot be reversed in state %s", p.ID, p.State))
		}
		return fmt.Errorf("failed to reverse payment: %w", err)
	}
	now := time.Now()
	p.State = PaymentState(machine.Current())
	p.ReversedAt = &now
	p.ReversedBy = reversedBy
	p.ReversalReason = reason
	p.UpdatedAt = now
	p.IncrementVersion()
	return nil
}
