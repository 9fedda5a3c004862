package ledger

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/rongwang/rentledger/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func entry(action models.ActionKind, amount string) models.LedgerEntry {
	return models.LedgerEntry{
		TargetKind: models.TargetBuildingTransaction,
		FieldName:  "1",
		ActionKind: action,
		Amount:     decimal.RequireFromString(amount),
		Month:      1,
		Year:       2024,
	}
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s", want, got)
}

func TestFoldEmpty(t *testing.T) {
	assertDecimal(t, "0", Fold(nil))

	totals := Reconstruct(nil)
	assert.NotNil(t, totals.Entries)
	assert.Empty(t, totals.Entries)
	assertDecimal(t, "0", totals.Total)
}

func TestFoldClampsRefundBelowZero(t *testing.T) {
	entries := []models.LedgerEntry{
		entry(models.ActionAdd, "1000"),
		entry(models.ActionSubtract, "1500"),
	}

	assertDecimal(t, "0", Fold(entries))
}

func TestFoldAddThenSubtractRestoresTotal(t *testing.T) {
	entries := []models.LedgerEntry{
		entry(models.ActionAdd, "250.50"),
		entry(models.ActionAdd, "49.50"),
	}
	before := Fold(entries)

	entries = append(entries,
		entry(models.ActionAdd, "123.45"),
		entry(models.ActionSubtract, "123.45"),
	)

	assertDecimal(t, before.String(), Fold(entries))
	assertDecimal(t, "300", before)
}

func TestFoldIsOrderIndependent(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for round := 0; round < 50; round++ {
		var entries []models.LedgerEntry
		want := decimal.Zero
		for i := 0; i < 12; i++ {
			amount := decimal.New(rng.Int63n(100000), -2)
			action := models.ActionAdd
			if rng.Intn(2) == 0 {
				action = models.ActionSubtract
				want = want.Sub(amount)
			} else {
				want = want.Add(amount)
			}
			entries = append(entries, models.LedgerEntry{ActionKind: action, Amount: amount})
		}
		if want.IsNegative() {
			want = decimal.Zero
		}

		got := Fold(entries)
		assert.True(t, want.Equal(got), "round %d: want %s, got %s", round, want, got)

		rng.Shuffle(len(entries), func(i, j int) { entries[i], entries[j] = entries[j], entries[i] })
		shuffled := Fold(entries)
		assert.True(t, got.Equal(shuffled), "round %d: order changed the total", round)
		assert.False(t, shuffled.IsNegative())
	}
}

func TestFoldByFieldClampsEachFieldIndependently(t *testing.T) {
	entries := []models.LedgerEntry{
		{FieldName: "1", ActionKind: models.ActionAdd, Amount: decimal.NewFromInt(500)},
		{FieldName: "2", ActionKind: models.ActionAdd, Amount: decimal.NewFromInt(100)},
		{FieldName: "2", ActionKind: models.ActionSubtract, Amount: decimal.NewFromInt(300)},
		{FieldName: AirportShuttleRentIncome, ActionKind: models.ActionAdd, Amount: decimal.NewFromInt(70)},
	}

	totals := FoldByField(entries)

	assert.Len(t, totals, 3)
	assertDecimal(t, "500", totals["1"])
	// -200 would have reduced a combined total; clamped on its own it is 0
	assertDecimal(t, "0", totals["2"])
	assertDecimal(t, "70", totals[AirportShuttleRentIncome])
}

func TestReconstructOrdersNewestFirst(t *testing.T) {
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	var entries []models.LedgerEntry
	for i := 0; i < 4; i++ {
		e := entry(models.ActionAdd, "10")
		e.ID = fmt.Sprintf("e%d", i)
		e.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		entries = append(entries, e)
	}

	totals := Reconstruct(entries)

	assert.Equal(t, "e3", totals.Entries[0].ID)
	assert.Equal(t, "e0", totals.Entries[3].ID)
	assertDecimal(t, "40", totals.Total)
	// input left untouched
	assert.Equal(t, "e0", entries[0].ID)
}
