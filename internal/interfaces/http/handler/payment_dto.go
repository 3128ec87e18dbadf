package handler

import (
	"time"

	appfinance "github.com/erp/reconciliation/internal/application/finance"
	"github.com/erp/reconciliation/internal/domain/finance"
	"github.com/shopspring/decimal"
)

// DateLayout is the calendar-date format used by the API
const DateLayout = "2006-01-02"

// RecordPaymentRequest is the body of POST /payments
type RecordPaymentRequest struct {
	PartyID         string          `json:"party_id" binding:"required,uuid"`
	PartyType       string          `json:"party_type" binding:"required,oneof=CLIENT SUPPLIER"`
	Amount          decimal.Decimal `json:"amount"`
	PaymentMode     string          `json:"payment_mode" binding:"required"`
	PaymentDate     string          `json:"payment_date" binding:"omitempty,datetime=2006-01-02"`
	ReferenceNumber string          `json:"reference_number" binding:"max=100"`
	Notes           string          `json:"notes" binding:"max=1000"`
	RecordedBy      string          `json:"recorded_by" binding:"max=100"`
}

// ReversePaymentRequest is the body of POST /payments/:id/reverse
type ReversePaymentRequest struct {
	Reason     string `json:"reason" binding:"required,max=500"`
	ReversedBy string `json:"reversed_by" binding:"max=100"`
}

// ApplyCreditRequest is the body of POST /parties/:id/apply-credit
type ApplyCreditRequest struct {
	PartyType  string `json:"party_type" binding:"required,oneof=CLIENT SUPPLIER"`
	RecordedBy string `json:"recorded_by" binding:"max=100"`
}

// AllocationResponse is one slice of a payment
type AllocationResponse struct {
	LedgerEntryID  string          `json:"ledger_entry_id"`
	DocumentNumber string          `json:"document_number"`
	AmountApplied  decimal.Decimal `json:"amount_applied"`
}

// PaymentResponse is a payment record in API responses
type PaymentResponse struct {
	ID              string               `json:"id"`
	PartyID         string               `json:"party_id"`
	PartyType       string               `json:"party_type"`
	Amount          decimal.Decimal      `json:"amount"`
	PaymentMode     string               `json:"payment_mode"`
	PaymentDate     string               `json:"payment_date"`
	ReferenceNumber string               `json:"reference_number,omitempty"`
	Notes           string               `json:"notes,omitempty"`
	RecordedBy      string               `json:"recorded_by"`
	Source          string               `json:"source"`
	State           string               `json:"state"`
	OverpaidAmount  decimal.Decimal      `json:"overpaid_amount"`
	Allocations     []AllocationResponse `json:"allocations"`
	ReversedAt      *time.Time           `json:"reversed_at,omitempty"`
	ReversedBy      string               `json:"reversed_by,omitempty"`
	ReversalReason  string               `json:"reversal_reason,omitempty"`
	CreatedAt       time.Time            `json:"created_at"`
}

// CreditLotResponse describes credit created by an overpayment
type CreditLotResponse struct {
	ID        string          `json:"id"`
	Amount    decimal.Decimal `json:"amount"`
	Remaining decimal.Decimal `json:"remaining"`
}

// PaymentResultResponse is returned by RecordPayment and ApplyCredit
type PaymentResultResponse struct {
	Payment        PaymentResponse          `json:"payment"`
	UpdatedEntries []appfinance.EntryUpdate `json:"updated_entries"`
	CreditLot      *CreditLotResponse       `json:"credit_lot,omitempty"`
	PartyCredit    decimal.Decimal          `json:"party_credit"`
	Summary        string                   `json:"summary"`
}

// ReversalResultResponse is returned by ReversePayment
type ReversalResultResponse struct {
	Payment         PaymentResponse          `json:"payment"`
	RestoredEntries []appfinance.EntryUpdate `json:"restored_entries"`
	CreditReleased  decimal.Decimal          `json:"credit_released"`
	CreditRestored  decimal.Decimal          `json:"credit_restored"`
	PartyCredit     decimal.Decimal          `json:"party_credit"`
	Summary         string                   `json:"summary"`
}

// BalanceResponse is a party's financial position
type BalanceResponse struct {
	PartyID        string          `json:"party_id"`
	PartyType      string          `json:"party_type"`
	PartyName      string          `json:"party_name"`
	Outstanding    decimal.Decimal `json:"outstanding"`
	OverpaidAmount decimal.Decimal `json:"overpaid_amount"`
	NetPosition    decimal.Decimal `json:"net_position"`
	OpenEntries    int             `json:"open_entries"`
}

// AgingResponse is the aging summary for one party type
type AgingResponse struct {
	PartyType        string          `json:"party_type"`
	AsOf             string          `json:"as_of"`
	Current          decimal.Decimal `json:"current"`
	Days31To60       decimal.Decimal `json:"days_31_60"`
	Days61To90       decimal.Decimal `json:"days_61_90"`
	Days90Plus       decimal.Decimal `json:"days_90_plus"`
	TotalOutstanding decimal.Decimal `json:"total_outstanding"`
	CurrentAmount    decimal.Decimal `json:"current_amount"`
	OverdueAmount    decimal.Decimal `json:"overdue_amount"`
	EntryCount       int             `json:"entry_count"`
}

func toPaymentResponse(p *finance.PaymentRecord) PaymentResponse {
	allocations := make([]AllocationResponse, 0, len(p.Allocations))
	for _, a := range p.Allocations {
		allocations = append(allocations, AllocationResponse{
			LedgerEntryID:  a.LedgerEntryID.String(),
			DocumentNumber: a.DocumentNumber,
			AmountApplied:  a.AmountApplied,
		})
	}
	return PaymentResponse{
		ID:              p.ID.String(),
		PartyID:         p.PartyID.String(),
		PartyType:       p.PartyType.String(),
		Amount:          p.Amount,
		PaymentMode:     p.PaymentMode.String(),
		PaymentDate:     p.PaymentDate.Format(DateLayout),
		ReferenceNumber: p.ReferenceNumber,
		Notes:           p.Notes,
		RecordedBy:      p.RecordedBy,
		Source:          string(p.Source),
		State:           string(p.State),
		OverpaidAmount:  p.OverpaidAmount,
		Allocations:     allocations,
		ReversedAt:      p.ReversedAt,
		ReversedBy:      p.ReversedBy,
		ReversalReason:  p.ReversalReason,
		CreatedAt:       p.CreatedAt,
	}
}

func toPaymentResultResponse(r *appfinance.PaymentResult) PaymentResultResponse {
	resp := PaymentResultResponse{
		Payment:        toPaymentResponse(r.Payment),
		UpdatedEntries: r.UpdatedEntries,
		PartyCredit:    r.PartyCredit,
		Summary:        r.Summary,
	}
	if resp.UpdatedEntries == nil {
		resp.UpdatedEntries = []appfinance.EntryUpdate{}
	}
	if r.CreditLot != nil {
		resp.CreditLot = &CreditLotResponse{
			ID:        r.CreditLot.ID.String(),
			Amount:    r.CreditLot.Amount,
			Remaining: r.CreditLot.Remaining(),
		}
	}
	return resp
}

func toReversalResultResponse(r *appfinance.ReversalResult) ReversalResultResponse {
	resp := ReversalResultResponse{
		Payment:         toPaymentResponse(r.Payment),
		RestoredEntries: r.RestoredEntries,
		CreditReleased:  r.CreditReleased,
		CreditRestored:  r.CreditRestored,
		PartyCredit:     r.PartyCredit,
		Summary:         r.Summary,
	}
	if resp.RestoredEntries == nil {
		resp.RestoredEntries = []appfinance.EntryUpdate{}
	}
	return resp
}

func toBalanceResponse(b finance.PartyBalance) BalanceResponse {
	return BalanceResponse{
		PartyID:        b.PartyID.String(),
		PartyType:      b.PartyType.String(),
		PartyName:      b.PartyName,
		Outstanding:    b.Outstanding,
		OverpaidAmount: b.OverpaidAmount,
		NetPosition:    b.NetPosition(),
		OpenEntries:    b.OpenEntries,
	}
}

func toAgingResponse(b finance.AgingBuckets) AgingResponse {
	return AgingResponse{
		PartyType:        b.PartyType.String(),
		AsOf:             b.AsOf.Format(DateLayout),
		Current:          b.Current,
		Days31To60:       b.Days31To60,
		Days61To90:       b.Days61To90,
		Days90Plus:       b.Days90Plus,
		TotalOutstanding: b.TotalOutstanding,
		CurrentAmount:    b.CurrentAmount,
		OverdueAmount:    b.OverdueAmount,
		EntryCount:       b.EntryCount,
	}
}
