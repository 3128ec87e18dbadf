package finance

import (
	"sort"

	"github.com/shopspring/decimal"
)

// ComputeBalance derives a party's balance from its entries
func ComputeBalance(party *Party, entries []LedgerEntry) PartyBalance {
	b := PartyBalance{
		PartyID:        party.ID,
		PartyType:      party.Type,
		PartyName:      party.Name,
		Outstanding:    decimal.Zero,
		OverpaidAmount: party.OverpaidAmount,
	}
	for _, e := range entries {
		if e.Core().PartyID != party.ID {
			continue
		}
		due := e.AmountDue()
		if due.IsPositive() {
			b.Outstanding = b.Outstanding.Add(due)
			b.OpenEntries++
		}
	}
	return b
}

// RankTopOutstanding sorts balances by outstanding descending, ties broken by
// party ID ascending, and keeps at most limit of them
func RankTopOutstanding(balances []PartyBalance, limit int) []PartyBalance {
	ranked := make([]PartyBalance, len(balances))
	copy(ranked, balances)
	sort.SliceStable(ranked, func(i, j int) bool {
		if c := ranked[i].Outstanding.Cmp(ranked[j].Outstanding); c != 0 {
			return c > 0
		}
		return ranked[i].PartyID.String() < ranked[j].PartyID.String()
	})
	if limit >= 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}
