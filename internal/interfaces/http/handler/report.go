package handler

import (
	"context"
	"strconv"
	"time"

	appfinance "github.com/erp/reconciliation/internal/application/finance"
	"github.com/erp/reconciliation/internal/domain/finance"
	"github.com/erp/reconciliation/internal/domain/shared"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// DefaultTopLimit is used when GET /balances/top has no limit
const DefaultTopLimit = 10

// BalanceService reads party positions
type BalanceService interface {
	GetBalance(ctx context.Context, partyID uuid.UUID) (finance.PartyBalance, error)
	ListTopOutstanding(ctx context.Context, partyType finance.PartyType, limit int) ([]finance.PartyBalance, error)
}

// AgingService computes aging summaries
type AgingService interface {
	ComputeAging(ctx context.Context, partyType finance.PartyType, asOf time.Time) (finance.AgingBuckets, error)
}

// ReportHandler serves balances and aging
type ReportHandler struct {
	BaseHandler
	balances BalanceService
	aging    AgingService
	now      func() time.Time
}

// NewReportHandler creates a new ReportHandler
func NewReportHandler(balances BalanceService, aging AgingService) *ReportHandler {
	return &ReportHandler{balances: balances, aging: aging, now: time.Now}
}

// GetBalance handles GET /parties/:id/balance
func (h *ReportHandler) GetBalance(c *gin.Context) {
	partyID, err := parseUUIDParam(c, "id")
	if err != nil {
		h.HandleError(c, err)
		return
	}
	balance, err := h.balances.GetBalance(c.Request.Context(), partyID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toBalanceResponse(balance))
}

// ListTopOutstanding handles GET /balances/top?party_type=&limit=
func (h *ReportHandler) ListTopOutstanding(c *gin.Context) {
	partyType := c.Query("party_type")
	if partyType == "" {
		h.HandleError(c, errMissingParam("party_type"))
		return
	}
	limit := DefaultTopLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			h.HandleError(c, shared.NewValidationError("limit must be an integer"))
			return
		}
		limit = n
	}

	balances, err := h.balances.ListTopOutstanding(c.Request.Context(), finance.PartyType(partyType), limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	resp := make([]BalanceResponse, 0, len(balances))
	for _, b := range balances {
		resp = append(resp, toBalanceResponse(b))
	}
	h.Success(c, resp)
}

// ComputeAging handles GET /aging?party_type=&as_of=YYYY-MM-DD. as_of defaults to today.
func (h *ReportHandler) ComputeAging(c *gin.Context) {
	partyType := c.Query("party_type")
	if partyType == "" {
		h.HandleError(c, errMissingParam("party_type"))
		return
	}
	asOf := h.now()
	if raw := c.Query("as_of"); raw != "" {
		parsed, err := time.Parse(DateLayout, raw)
		if err != nil {
			h.HandleError(c, shared.NewValidationError("as_of must be a date in the format %s", DateLayout))
			return
		}
		asOf = parsed
	}

	buckets, err := h.aging.ComputeAging(c.Request.Context(), finance.PartyType(partyType), asOf)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toAgingResponse(buckets))
}

var (
	_ BalanceService = (*appfinance.BalanceService)(nil)
	_ AgingService   = (*appfinance.AgingService)(nil)
)
