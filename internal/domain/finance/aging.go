package finance

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultOverdueAfterDays is the age beyond which an entry counts as overdue
const DefaultOverdueAfterDays = 30

// AgingPolicy controls how entry ages are judged
type AgingPolicy struct {
	OverdueAfterDays int
}

// DefaultAgingPolicy returns the 30-day policy
func DefaultAgingPolicy() AgingPolicy {
	return AgingPolicy{OverdueAfterDays: DefaultOverdueAfterDays}
}

// AgingBuckets summarises outstanding amounts by age. Buckets are 0-30,
// 31-60, 61-90 and over 90 days. Overdue and current are split by the
// policy's threshold and always sum to TotalOutstanding.
type AgingBuckets struct {
	PartyType        PartyType
	AsOf             time.Time
	Current          decimal.Decimal
	Days31To60       decimal.Decimal
	Days61To90       decimal.Decimal
	Days90Plus       decimal.Decimal
	TotalOutstanding decimal.Decimal
	CurrentAmount    decimal.Decimal
	OverdueAmount    decimal.Decimal
	EntryCount       int
	policy           AgingPolicy
}

// NewAgingBuckets returns an empty summary
func NewAgingBuckets(partyType PartyType, asOf time.Time, policy AgingPolicy) AgingBuckets {
	return AgingBuckets{
		PartyType:        partyType,
		AsOf:             CivilDate(asOf),
		Current:          decimal.Zero,
		Days31To60:       decimal.Zero,
		Days61To90:       decimal.Zero,
		Days90Plus:       decimal.Zero,
		TotalOutstanding: decimal.Zero,
		CurrentAmount:    decimal.Zero,
		OverdueAmount:    decimal.Zero,
		policy:           policy,
	}
}

// AgeInDays returns whole calendar days from entryDate to asOf.
// Future-dated entries have a negative age.
func AgeInDays(entryDate, asOf time.Time) int {
	return int(CivilDate(asOf).Sub(CivilDate(entryDate)).Hours() / 24)
}

// Add folds one entry into the summary. Settled entries are ignored.
func (b *AgingBuckets) Add(entry LedgerEntry) {
	due := entry.AmountDue()
	if !due.IsPositive() {
		return
	}
	age := AgeInDays(entry.Core().EntryDate, b.AsOf)

	switch {
	case age <= 30:
		b.Current = b.Current.Add(due)
	case age <= 60:
		b.Days31To60 = b.Days31To60.Add(due)
	case age <= 90:
		b.Days61To90 = b.Days61To90.Add(due)
	default:
		b.Days90Plus = b.Days90Plus.Add(due)
	}

	if age > b.policy.OverdueAfterDays {
		b.OverdueAmount = b.OverdueAmount.Add(due)
	} else {
		b.CurrentAmount = b.CurrentAmount.Add(due)
	}
	b.TotalOutstanding = b.TotalOutstanding.Add(due)
	b.EntryCount++
}

// Merge adds other into b. Merge order does not affect the result.
func (b *AgingBuckets) Merge(other AgingBuckets) {
	b.Current = b.Current.Add(other.Current)
	b.Days31To60 = b.Days31To60.Add(other.Days31To60)
	b.Days61To90 = b.Days61To90.Add(other.Days61To90)
	b.Days90Plus = b.Days90Plus.Add(other.Days90Plus)
	b.TotalOutstanding = b.TotalOutstanding.Add(other.TotalOutstanding)
	b.CurrentAmount = b.CurrentAmount.Add(other.CurrentAmount)
	b.OverdueAmount = b.OverdueAmount.Add(other.OverdueAmount)
	b.EntryCount += other.EntryCount
}

// ComputeAging folds entries of a party type into aging buckets
func ComputeAging(partyType PartyType, asOf time.Time, policy AgingPolicy, entries []LedgerEntry) AgingBuckets {
	b := NewAgingBuckets(partyType, asOf, policy)
	kind := partyType.EntryKind()
	for _, e := range entries {
		if e.Kind() != kind {
			continue
		}
		b.Add(e)
	}
	return b
}
