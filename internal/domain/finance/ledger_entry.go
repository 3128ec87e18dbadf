package finance

import (
	"fmt"
	"time"

	"github.com/erp/reconciliation/internal/domain/shared"
	"github.com/erp/reconciliation/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PartyType identifies which side of the ledger a party sits on
type PartyType string

const (
	PartyTypeClient   PartyType = "CLIENT"   // Owes us for sales
	PartyTypeSupplier PartyType = "SUPPLIER" // We owe them for purchases
)

// IsValid checks if the party type is valid
func (t PartyType) IsValid() bool {
	switch t {
	case PartyTypeClient, PartyTypeSupplier:
		return true
	}
	return false
}

// String returns the string representation
func (t PartyType) String() string {
	return string(t)
}

// EntryKind returns the kind of ledger entry this party type settles
func (t PartyType) EntryKind() EntryKind {
	if t == PartyTypeSupplier {
		return EntryKindPurchase
	}
	return EntryKindSale
}

// EntryKind distinguishes sales from purchases
type EntryKind string

const (
	EntryKindSale     EntryKind = "SALE"
	EntryKindPurchase EntryKind = "PURCHASE"
)

// IsValid checks if the entry kind is valid
func (k EntryKind) IsValid() bool {
	return k == EntryKindSale || k == EntryKindPurchase
}

// PartyType returns the party type that owns entries of this kind
func (k EntryKind) PartyType() PartyType {
	if k == EntryKindPurchase {
		return PartyTypeSupplier
	}
	return PartyTypeClient
}

// PaymentStatus is derived from an entry's paid and total amounts
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "PENDING"
	PaymentStatusPartial PaymentStatus = "PARTIAL"
	PaymentStatusPaid    PaymentStatus = "PAID"
)

// String returns the string representation
func (s PaymentStatus) String() string {
	return string(s)
}

// DerivePaymentStatus maps (total, paid) to a status. A zero-total entry is PAID.
func DerivePaymentStatus(total, paid decimal.Decimal) PaymentStatus {
	due := total.Sub(paid)
	switch {
	case due.LessThanOrEqual(decimal.Zero):
		return PaymentStatusPaid
	case paid.IsZero():
		return PaymentStatusPending
	default:
		return PaymentStatusPartial
	}
}

// LedgerEntry is a sale or purchase that can receive payments.
// The allocation engine works against this interface only.
type LedgerEntry interface {
	Core() *EntryCore
	Kind() EntryKind
	AmountDue() decimal.Decimal
	PaymentStatus() PaymentStatus
	ApplyPayment(amount decimal.Decimal) error
	RevertPayment(amount decimal.Decimal) error
}

// EntryCore holds the fields shared by every ledger entry.
// AmountPaid is only changed through ApplyPayment and RevertPayment.
type EntryCore struct {
	ID             uuid.UUID
	PartyID        uuid.UUID
	DocumentNumber string
	EntryDate      time.Time
	Sequence       int64 // creation order, FIFO tie-break
	TotalAmount    decimal.Decimal
	AmountPaid     decimal.Decimal
	CreatedAt      time.Time
	UpdatedAt      time.Time
	Version        int
}

func newEntryCore(partyID uuid.UUID, documentNumber string, entryDate time.Time, total decimal.Decimal) (EntryCore, error) {
	if partyID == uuid.Nil {
		return EntryCore{}, shared.NewValidationError("party ID cannot be empty")
	}
	if total.IsNegative() {
		return EntryCore{}, shared.NewValidationError("total amount cannot be negative")
	}
	if err := ValidateAmount("total amount", total); err != nil {
		return EntryCore{}, err
	}
	if entryDate.IsZero() {
		return EntryCore{}, shared.NewValidationError("entry date is required")
	}
	now := time.Now()
	return EntryCore{
		ID:             uuid.New(),
		PartyID:        partyID,
		DocumentNumber: documentNumber,
		EntryDate:      CivilDate(entryDate),
		TotalAmount:    total,
		AmountPaid:     decimal.Zero,
		CreatedAt:      now,
		UpdatedAt:      now,
		Version:        1,
	}, nil
}

// Core returns the shared fields
func (e *EntryCore) Core() *EntryCore {
	return e
}

// AmountDue returns TotalAmount - AmountPaid
func (e *EntryCore) AmountDue() decimal.Decimal {
	return e.TotalAmount.Sub(e.AmountPaid)
}

// PaymentStatus returns the derived status
func (e *EntryCore) PaymentStatus() PaymentStatus {
	return DerivePaymentStatus(e.TotalAmount, e.AmountPaid)
}

// IsOutstanding reports whether anything is still due
func (e *EntryCore) IsOutstanding() bool {
	return e.AmountDue().IsPositive()
}

// ApplyPayment increases AmountPaid. Paying beyond the total is an invariant
// violation; callers cap the amount at AmountDue first.
func (e *EntryCore) ApplyPayment(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return shared.NewValidationError("payment amount must be positive")
	}
	paid := e.AmountPaid.Add(amount)
	if paid.GreaterThan(e.TotalAmount) {
		return shared.NewInvariantViolation("entry %s: applying %s would pay %s of %s",
			e.ID, amount, paid, e.TotalAmount)
	}
	e.AmountPaid = paid
	e.UpdatedAt = time.Now()
	return nil
}

// RevertPayment decreases AmountPaid. Going below zero means the ledger was
// edited outside the engine and is reported, never clamped.
func (e *EntryCore) RevertPayment(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return shared.NewValidationError("reverted amount must be positive")
	}
	paid := e.AmountPaid.Sub(amount)
	if paid.IsNegative() {
		return shared.NewInvariantViolation("entry %s: reverting %s would leave paid amount at %s",
			e.ID, amount, paid)
	}
	e.AmountPaid = paid
	e.UpdatedAt = time.Now()
	return nil
}

// CheckInvariant verifies 0 <= AmountPaid <= TotalAmount
func (e *EntryCore) CheckInvariant() error {
	if e.AmountPaid.IsNegative() || e.AmountPaid.GreaterThan(e.TotalAmount) {
		return shared.NewInvariantViolation("entry %s: paid %s outside [0, %s]", e.ID, e.AmountPaid, e.TotalAmount)
	}
	return nil
}

// Sale is a sale to a client
type Sale struct {
	EntryCore
}

// NewSale creates a sale with nothing paid yet
func NewSale(clientID uuid.UUID, documentNumber string, entryDate time.Time, total decimal.Decimal) (*Sale, error) {
	core, err := newEntryCore(clientID, documentNumber, entryDate, total)
	if err != nil {
		return nil, err
	}
	return &Sale{EntryCore: core}, nil
}

// Kind returns EntryKindSale
func (s *Sale) Kind() EntryKind {
	return EntryKindSale
}

// Purchase is a purchase from a supplier
type Purchase struct {
	EntryCore
}

// NewPurchase creates a purchase with nothing paid yet
func NewPurchase(supplierID uuid.UUID, documentNumber string, entryDate time.Time, total decimal.Decimal) (*Purchase, error) {
	core, err := newEntryCore(supplierID, documentNumber, entryDate, total)
	if err != nil {
		return nil, err
	}
	return &Purchase{EntryCore: core}, nil
}

// Kind returns EntryKindPurchase
func (p *Purchase) Kind() EntryKind {
	return EntryKindPurchase
}

// NewLedgerEntry creates a sale or purchase according to kind
func NewLedgerEntry(kind EntryKind, partyID uuid.UUID, documentNumber string, entryDate time.Time, total decimal.Decimal) (LedgerEntry, error) {
	switch kind {
	case EntryKindSale:
		return NewSale(partyID, documentNumber, entryDate, total)
	case EntryKindPurchase:
		return NewPurchase(partyID, documentNumber, entryDate, total)
	}
	return nil, shared.NewValidationError("unknown entry kind %q", kind)
}

// RestoreLedgerEntry rebuilds an entry from stored state
func RestoreLedgerEntry(kind EntryKind, core EntryCore) (LedgerEntry, error) {
	switch kind {
	case EntryKindSale:
		return &Sale{EntryCore: core}, nil
	case EntryKindPurchase:
		return &Purchase{EntryCore: core}, nil
	}
	return nil, fmt.Errorf("unknown entry kind %q", kind)
}

// EntrySnapshot is the display view of an entry after an operation touched it
type EntrySnapshot struct {
	ID             uuid.UUID
	DocumentNumber string
	EntryDate      time.Time
	TotalAmount    valueobject.Money
	AmountPaid     valueobject.Money
	AmountDue      valueobject.Money
	Status         PaymentStatus
}

// SnapshotOf captures the current state of an entry
func SnapshotOf(e LedgerEntry) EntrySnapshot {
	c := e.Core()
	return EntrySnapshot{
		ID:             c.ID,
		DocumentNumber: c.DocumentNumber,
		EntryDate:      c.EntryDate,
		TotalAmount:    valueobject.NewMoney(c.TotalAmount),
		AmountPaid:     valueobject.NewMoney(c.AmountPaid),
		AmountDue:      valueobject.NewMoney(e.AmountDue()),
		Status:         e.PaymentStatus(),
	}
}
