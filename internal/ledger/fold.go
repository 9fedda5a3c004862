package ledger

import (
	"sort"

	"github.com/rongwang/rentledger/internal/models"
	"github.com/shopspring/decimal"
)

// Signed returns the entry amount with the sign of its action
func Signed(e models.LedgerEntry) decimal.Decimal {
	if e.ActionKind == models.ActionSubtract {
		return e.Amount.Neg()
	}
	return e.Amount
}

// Fold returns max(0, sum(ADD) - sum(SUBTRACT)) over entries.
// The result does not depend on entry order.
func Fold(entries []models.LedgerEntry) decimal.Decimal {
	sum := decimal.Zero
	for _, e := range entries {
		sum = sum.Add(Signed(e))
	}
	return clamp(sum)
}

// FoldByField groups entries by field name and folds each group on its own.
// Each group is clamped independently.
func FoldByField(entries []models.LedgerEntry) map[string]decimal.Decimal {
	sums := make(map[string]decimal.Decimal)
	for _, e := range entries {
		sums[e.FieldName] = sums[e.FieldName].Add(Signed(e))
	}
	for k, v := range sums {
		sums[k] = clamp(v)
	}
	return sums
}

// ByField converts a FoldByField result into typed fields
func ByField(totals map[string]decimal.Decimal) map[Field]decimal.Decimal {
	out := make(map[Field]decimal.Decimal, len(totals))
	for name, v := range totals {
		f := ParseField(name)
		if f.IsZero() {
			continue
		}
		out[f] = out[f].Add(v)
	}
	return out
}

// SortNewestFirst orders entries by creation time, newest first.
// Entries created at the same instant fall back to id order so the result is stable.
func SortNewestFirst(entries []models.LedgerEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].CreatedAt.Equal(entries[j].CreatedAt) {
			return entries[i].ID > entries[j].ID
		}
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})
}

// Totals is the reconstructed state of one ledger key
type Totals struct {
	Entries []models.LedgerEntry
	Total   decimal.Decimal
}

// Reconstruct folds the entries of one key and orders them for display.
// It never returns a nil entry slice.
func Reconstruct(entries []models.LedgerEntry) Totals {
	out := make([]models.LedgerEntry, len(entries))
	copy(out, entries)
	SortNewestFirst(out)
	return Totals{Entries: out, Total: Fold(out)}
}

func clamp(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
