package finance

import (
	"time"

	"github.com/erp/reconciliation/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Party is a client or supplier. Its identity and name belong to the
// customer/supplier registry; the engine owns only OverpaidAmount.
type Party struct {
	shared.BaseAggregateRoot
	Type           PartyType
	Name           string
	OverpaidAmount decimal.Decimal // standing credit, never negative
}

// NewParty creates a party with no credit
func NewParty(partyType PartyType, name string) (*Party, error) {
	if !partyType.IsValid() {
		return nil, shared.NewValidationError("invalid party type %q", partyType)
	}
	return &Party{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Type:              partyType,
		Name:              name,
		OverpaidAmount:    decimal.Zero,
	}, nil
}

// AddCredit records overpaid money as standing credit
func (p *Party) AddCredit(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return shared.NewValidationError("credit amount must be positive")
	}
	p.OverpaidAmount = p.OverpaidAmount.Add(amount)
	p.UpdatedAt = time.Now()
	return nil
}

// ReleaseCredit removes credit, either because it was consumed or because the
// payment that created it was reversed.
func (p *Party) ReleaseCredit(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return shared.NewValidationError("released credit must be positive")
	}
	left := p.OverpaidAmount.Sub(amount)
	if left.IsNegative() {
		return shared.NewInvariantViolation("party %s: releasing %s credit leaves %s", p.ID, amount, left)
	}
	p.OverpaidAmount = left
	p.UpdatedAt = time.Now()
	return nil
}

// HasCredit reports whether any standing credit exists
func (p *Party) HasCredit() bool {
	return p.OverpaidAmount.IsPositive()
}

// PartyBalance is the derived financial position of a party
type PartyBalance struct {
	PartyID        uuid.UUID
	PartyType      PartyType
	PartyName      string
	Outstanding    decimal.Decimal // sum of AmountDue over open entries
	OverpaidAmount decimal.Decimal
	OpenEntries    int
}

// NetPosition returns Outstanding - OverpaidAmount
func (b PartyBalance) NetPosition() decimal.Decimal {
	return b.Outstanding.Sub(b.OverpaidAmount)
}
