package handler

import (
	"context"
	"time"

	appfinance "github.com/erp/reconciliation/internal/application/finance"
	"github.com/erp/reconciliation/internal/domain/finance"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// IdempotencyKeyHeader carries the client's retry key for RecordPayment
const IdempotencyKeyHeader = "Idempotency-Key"

// PaymentService is the payment side of the reconciliation engine
type PaymentService interface {
	RecordPayment(ctx context.Context, in appfinance.RecordPaymentInput) (*appfinance.PaymentResult, error)
	ReversePayment(ctx context.Context, in appfinance.ReversePaymentInput) (*appfinance.ReversalResult, error)
	ApplyCredit(ctx context.Context, in appfinance.ApplyCreditInput) (*appfinance.PaymentResult, error)
	GetPayment(ctx context.Context, id uuid.UUID) (*finance.PaymentRecord, error)
	ListPayments(ctx context.Context, partyID uuid.UUID) ([]finance.PaymentRecord, error)
}

// PaymentHandler handles payment recording, reversal and credit application
type PaymentHandler struct {
	BaseHandler
	service PaymentService
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(service PaymentService) *PaymentHandler {
	return &PaymentHandler{service: service}
}

// RecordPayment handles POST /payments
func (h *PaymentHandler) RecordPayment(c *gin.Context) {
	var req RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	in := appfinance.RecordPaymentInput{
		PartyID:         uuid.MustParse(req.PartyID),
		PartyType:       req.PartyType,
		Amount:          req.Amount,
		PaymentMode:     req.PaymentMode,
		ReferenceNumber: req.ReferenceNumber,
		Notes:           req.Notes,
		RecordedBy:      actor(c, req.RecordedBy),
		IdempotencyKey:  c.GetHeader(IdempotencyKeyHeader),
	}
	if req.PaymentDate != "" {
		// Format already checked by the datetime binding
		in.PaymentDate, _ = time.Parse(DateLayout, req.PaymentDate)
	}

	result, err := h.service.RecordPayment(c.Request.Context(), in)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, toPaymentResultResponse(result))
}

// GetPayment handles GET /payments/:id
func (h *PaymentHandler) GetPayment(c *gin.Context) {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		h.HandleError(c, err)
		return
	}
	payment, err := h.service.GetPayment(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toPaymentResponse(payment))
}

// ReversePayment handles POST /payments/:id/reverse
func (h *PaymentHandler) ReversePayment(c *gin.Context) {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		h.HandleError(c, err)
		return
	}
	var req ReversePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	result, err := h.service.ReversePayment(c.Request.Context(), appfinance.ReversePaymentInput{
		PaymentID:  id,
		Reason:     req.Reason,
		ReversedBy: actor(c, req.ReversedBy),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toReversalResultResponse(result))
}

// ListPartyPayments handles GET /parties/:id/payments
func (h *PaymentHandler) ListPartyPayments(c *gin.Context) {
	partyID, err := parseUUIDParam(c, "id")
	if err != nil {
		h.HandleError(c, err)
		return
	}
	payments, err := h.service.ListPayments(c.Request.Context(), partyID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	resp := make([]PaymentResponse, 0, len(payments))
	for i := range payments {
		resp = append(resp, toPaymentResponse(&payments[i]))
	}
	h.Success(c, resp)
}

// ApplyCredit handles POST /parties/:id/apply-credit
func (h *PaymentHandler) ApplyCredit(c *gin.Context) {
	partyID, err := parseUUIDParam(c, "id")
	if err != nil {
		h.HandleError(c, err)
		return
	}
	var req ApplyCreditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	result, err := h.service.ApplyCredit(c.Request.Context(), appfinance.ApplyCreditInput{
		PartyID:    partyID,
		PartyType:  req.PartyType,
		RecordedBy: actor(c, req.RecordedBy),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toPaymentResultResponse(result))
}

var _ PaymentService = (*appfinance.PaymentService)(nil)
