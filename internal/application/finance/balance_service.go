package finance

import (
	"context"
	"fmt"

	"github.com/erp/reconciliation/internal/domain/finance"
	"github.com/erp/reconciliation/internal/domain/shared"
	"github.com/erp/reconciliation/internal/infrastructure/logger"
	"github.com/erp/reconciliation/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultMaxTopLimit caps ListTopOutstanding when no limit is configured
const DefaultMaxTopLimit = 100

// BalanceService answers balance questions from the ledger. It reads without
// taking party locks, so results are consistent per query but may trail a
// write that is still in progress.
type BalanceService struct {
	repos       Repositories
	maxTopLimit int
}

// NewBalanceService creates a BalanceService. maxTopLimit <= 0 selects DefaultMaxTopLimit.
func NewBalanceService(repos Repositories, maxTopLimit int) *BalanceService {
	if maxTopLimit <= 0 {
		maxTopLimit = DefaultMaxTopLimit
	}
	return &BalanceService{repos: repos, maxTopLimit: maxTopLimit}
}

// GetBalance returns the party's outstanding total and standing credit
func (s *BalanceService) GetBalance(ctx context.Context, partyID uuid.UUID) (finance.PartyBalance, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "balance", "get")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrPartyID, partyID.String())

	party, err := s.repos.Parties().FindByID(ctx, partyID)
	if err != nil {
		telemetry.RecordError(span, err)
		return finance.PartyBalance{}, err
	}
	entries, err := s.repos.Entries().FindOutstandingByParty(ctx, party.ID, party.Type.EntryKind())
	if err != nil {
		telemetry.RecordError(span, err)
		return finance.PartyBalance{}, fmt.Errorf("failed to load outstanding entries: %w", err)
	}
	return finance.ComputeBalance(party, entries), nil
}

// ListTopOutstanding ranks parties of a type by outstanding amount, largest
// first, ties broken by party ID. Parties with nothing outstanding are left out.
// limit is capped at the configured maximum.
func (s *BalanceService) ListTopOutstanding(ctx context.Context, partyType finance.PartyType, limit int) ([]finance.PartyBalance, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "balance", "list_top_outstanding")
	defer span.End()

	if !partyType.IsValid() {
		return nil, shared.NewValidationError("invalid party type %q", partyType)
	}
	if limit <= 0 {
		return nil, shared.NewValidationError("limit must be greater than zero")
	}
	if limit > s.maxTopLimit {
		limit = s.maxTopLimit
	}

	sums, err := s.repos.Entries().SumOutstandingByParty(ctx, partyType.EntryKind())
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to aggregate outstanding amounts: %w", err)
	}
	parties, err := s.repos.Parties().FindByType(ctx, partyType)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to load parties: %w", err)
	}
	byID := make(map[uuid.UUID]*finance.Party, len(parties))
	for i := range parties {
		byID[parties[i].ID] = &parties[i]
	}

	balances := make([]finance.PartyBalance, 0, len(sums))
	for _, sum := range sums {
		if !sum.Outstanding.IsPositive() {
			continue
		}
		party, ok := byID[sum.PartyID]
		if !ok {
			logger.L(ctx).Warn("Outstanding entries reference an unknown party",
				zap.String("party_id", sum.PartyID.String()),
				zap.String("party_type", partyType.String()),
			)
			continue
		}
		balances = append(balances, finance.PartyBalance{
			PartyID:        party.ID,
			PartyType:      party.Type,
			PartyName:      party.Name,
			Outstanding:    sum.Outstanding,
			OverpaidAmount: party.OverpaidAmount,
			OpenEntries:    sum.OpenEntries,
		})
	}
	return finance.RankTopOutstanding(balances, limit), nil
}
