package finance

import (
	"fmt"
	"time"

	"github.com/erp/reconciliation/internal/domain/finance"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RecordPaymentInput is the request to record a received or paid-out payment
type RecordPaymentInput struct {
	PartyID         uuid.UUID       `json:"party_id" validate:"required"`
	PartyType       string          `json:"party_type" validate:"required,oneof=CLIENT SUPPLIER"`
	Amount          decimal.Decimal `json:"amount"`
	PaymentMode     string          `json:"payment_mode" validate:"required,oneof=CASH BANK_TRANSFER CHEQUE CARD MOBILE_MONEY OTHER"`
	PaymentDate     time.Time       `json:"payment_date"`
	ReferenceNumber string          `json:"reference_number" validate:"max=100"`
	Notes           string          `json:"notes" validate:"max=1000"`
	RecordedBy      string          `json:"recorded_by" validate:"required,max=100"`
	IdempotencyKey  string          `json:"idempotency_key" validate:"max=128"`
}

// ReversePaymentInput is the request to reverse a payment
type ReversePaymentInput struct {
	PaymentID  uuid.UUID `json:"payment_id" validate:"required"`
	Reason     string    `json:"reason" validate:"required,max=500"`
	ReversedBy string    `json:"reversed_by" validate:"required,max=100"`
}

// ApplyCreditInput is the request to apply a party's standing credit
type ApplyCreditInput struct {
	PartyID    uuid.UUID `json:"party_id" validate:"required"`
	PartyType  string    `json:"party_type" validate:"required,oneof=CLIENT SUPPLIER"`
	RecordedBy string    `json:"recorded_by" validate:"required,max=100"`
}

// EntryUpdate describes one ledger entry touched by an operation
type EntryUpdate struct {
	ID             uuid.UUID             `json:"id"`
	DocumentNumber string                `json:"document_number"`
	AmountApplied  decimal.Decimal       `json:"amount_applied"`
	AmountPaid     decimal.Decimal       `json:"amount_paid"`
	AmountDue      decimal.Decimal       `json:"amount_due"`
	Status         finance.PaymentStatus `json:"status"`
}

func newEntryUpdate(e finance.LedgerEntry, applied decimal.Decimal) EntryUpdate {
	c := e.Core()
	return EntryUpdate{
		ID:             c.ID,
		DocumentNumber: c.DocumentNumber,
		AmountApplied:  applied,
		AmountPaid:     c.AmountPaid,
		AmountDue:      e.AmountDue(),
		Status:         e.PaymentStatus(),
	}
}

// PaymentResult is returned by RecordPayment and ApplyCredit
type PaymentResult struct {
	Payment        *finance.PaymentRecord
	UpdatedEntries []EntryUpdate
	CreditLot      *finance.CreditLot // set when the payment produced credit
	PartyCredit    decimal.Decimal    // party's standing credit after the operation
	Summary        string
}

// ReversalResult is returned by ReversePayment
type ReversalResult struct {
	Payment         *finance.PaymentRecord
	RestoredEntries []EntryUpdate
	CreditReleased  decimal.Decimal // credit removed because its lot was released
	CreditRestored  decimal.Decimal // credit put back because a credit application was undone
	PartyCredit     decimal.Decimal
	Summary         string
}

func billsUpdated(n int) string {
	return fmt.Sprintf("%d bill(s) updated", n)
}
