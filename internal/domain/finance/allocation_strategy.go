package finance

import (
	"sort"
	"time"

	"github.com/erp/reconciliation/internal/domain/shared"
	"github.com/erp/reconciliation/internal/domain/shared/strategy"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PlannedAllocation is one step of an allocation plan
type PlannedAllocation struct {
	Entry  LedgerEntry
	Amount decimal.Decimal
}

// AllocationPlan describes how an amount will be spread across entries.
// Producing a plan does not mutate anything.
type AllocationPlan struct {
	Allocations    []PlannedAllocation
	TotalAllocated decimal.Decimal
	Remaining      decimal.Decimal // left over after every entry was settled
	FullyPaid      []uuid.UUID
	PartiallyPaid  []uuid.UUID
}

// AllocationStrategy decides the order and size of allocations
type AllocationStrategy interface {
	strategy.Strategy
	Plan(amount decimal.Decimal, entries []LedgerEntry) (*AllocationPlan, error)
}

// FIFOAllocationStrategy settles the oldest entries first: by entry date, then
// by creation sequence, then by ID so that the order is total.
type FIFOAllocationStrategy struct {
	strategy.BaseStrategy
}

// NewFIFOAllocationStrategy creates the FIFO strategy
func NewFIFOAllocationStrategy() *FIFOAllocationStrategy {
	return &FIFOAllocationStrategy{
		BaseStrategy: strategy.NewBaseStrategy(
			"fifo_allocation",
			strategy.StrategyTypeAllocation,
			"Allocates to the oldest outstanding entry first by entry date, then creation order",
		),
	}
}

// Plan walks entries in FIFO order, paying min(remaining, due) into each
func (s *FIFOAllocationStrategy) Plan(amount decimal.Decimal, entries []LedgerEntry) (*AllocationPlan, error) {
	if !amount.IsPositive() {
		return nil, shared.NewValidationError("allocation amount must be positive")
	}

	sorted := make([]LedgerEntry, len(entries))
	copy(sorted, entries)
	SortFIFO(sorted)

	plan := &AllocationPlan{
		Allocations:    make([]PlannedAllocation, 0),
		TotalAllocated: decimal.Zero,
		FullyPaid:      make([]uuid.UUID, 0),
		PartiallyPaid:  make([]uuid.UUID, 0),
	}
	remaining := amount

	for _, entry := range sorted {
		if remaining.IsZero() {
			break
		}
		due := entry.AmountDue()
		if !due.IsPositive() {
			continue
		}

		applied := decimal.Min(remaining, due)
		plan.Allocations = append(plan.Allocations, PlannedAllocation{Entry: entry, Amount: applied})
		plan.TotalAllocated = plan.TotalAllocated.Add(applied)
		remaining = remaining.Sub(applied)

		if applied.Equal(due) {
			plan.FullyPaid = append(plan.FullyPaid, entry.Core().ID)
		} else {
			plan.PartiallyPaid = append(plan.PartiallyPaid, entry.Core().ID)
		}
	}

	plan.Remaining = remaining
	return plan, nil
}

// SortFIFO orders entries by entry date, then sequence, then ID
func SortFIFO(entries []LedgerEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i].Core(), entries[j].Core()
		da, db := CivilDate(a.EntryDate), CivilDate(b.EntryDate)
		if !da.Equal(db) {
			return da.Before(db)
		}
		if a.Sequence != b.Sequence {
			return a.Sequence < b.Sequence
		}
		return a.ID.String() < b.ID.String()
	})
}

// CivilDate returns the UTC calendar date of t at midnight UTC
func CivilDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ExecutePlan applies a plan to its entries and records the allocations on the
// payment. Whatever the plan could not place becomes the payment's overpaid
// amount. The payment's conservation invariant is checked before returning.
func ExecutePlan(plan *AllocationPlan, payment *PaymentRecord) error {
	for _, a := range plan.Allocations {
		if err := a.Entry.ApplyPayment(a.Amount); err != nil {
			return err
		}
		payment.AddAllocation(a.Entry, a.Amount)
	}
	payment.SetOverpaid(plan.Remaining)
	return payment.CheckConservation()
}
