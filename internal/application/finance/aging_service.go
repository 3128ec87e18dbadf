package finance

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/erp/reconciliation/internal/domain/finance"
	"github.com/erp/reconciliation/internal/domain/shared"
	"github.com/erp/reconciliation/internal/infrastructure/telemetry"
	"golang.org/x/sync/errgroup"
)

// DefaultAgingPartitionSize is the number of entries folded per goroutine
const DefaultAgingPartitionSize = 500

// AgingService builds aging reports. Entries are split into partitions that
// are folded concurrently and then merged.
type AgingService struct {
	repos         Repositories
	policy        finance.AgingPolicy
	partitionSize int
	now           func() time.Time
}

// NewAgingService creates an AgingService. partitionSize <= 0 selects
// DefaultAgingPartitionSize.
func NewAgingService(repos Repositories, policy finance.AgingPolicy, partitionSize int) *AgingService {
	if partitionSize <= 0 {
		partitionSize = DefaultAgingPartitionSize
	}
	return &AgingService{
		repos:         repos,
		policy:        policy,
		partitionSize: partitionSize,
		now:           time.Now,
	}
}

// ComputeAging buckets the outstanding entries of a party type by age as of
// asOf. A zero asOf means today.
func (s *AgingService) ComputeAging(ctx context.Context, partyType finance.PartyType, asOf time.Time) (finance.AgingBuckets, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "aging", "compute")
	defer span.End()

	if !partyType.IsValid() {
		return finance.AgingBuckets{}, shared.NewValidationError("invalid party type %q", partyType)
	}
	if asOf.IsZero() {
		asOf = s.now()
	}

	entries, err := s.repos.Entries().FindOutstandingByKind(ctx, partyType.EntryKind())
	if err != nil {
		telemetry.RecordError(span, err)
		return finance.AgingBuckets{}, fmt.Errorf("failed to load outstanding entries: %w", err)
	}
	telemetry.SetAttributes(span, "entry_count", len(entries))

	partitions := partition(entries, s.partitionSize)
	partials := make([]finance.AgingBuckets, len(partitions))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, part := range partitions {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			partials[i] = finance.ComputeAging(partyType, asOf, s.policy, part)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		telemetry.RecordError(span, err)
		return finance.AgingBuckets{}, err
	}

	result := finance.NewAgingBuckets(partyType, asOf, s.policy)
	for _, p := range partials {
		result.Merge(p)
	}
	telemetry.SetOK(span)
	return result, nil
}

func partition(entries []finance.LedgerEntry, size int) [][]finance.LedgerEntry {
	parts := make([][]finance.LedgerEntry, 0, len(entries)/size+1)
	for start := 0; start < len(entries); start += size {
		end := min(start+size, len(entries))
		parts = append(parts, entries[start:end])
	}
	return parts
}
