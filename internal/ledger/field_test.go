package ledger

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestParseField(t *testing.T) {
	tests := []struct {
		in         string
		categoryID int64
		isCategory bool
		name       string
	}{
		{in: "12", categoryID: 12, isCategory: true},
		{in: MonthlyRent, name: MonthlyRent},
		{in: "12a", name: "12a"},
		{in: "99999999999999999999999", name: "99999999999999999999999"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			f := ParseField(tt.in)
			id, ok := f.CategoryID()
			assert.Equal(t, tt.isCategory, ok)
			if ok {
				assert.Equal(t, tt.categoryID, id)
				return
			}
			name, ok := f.Name()
			assert.True(t, ok)
			assert.Equal(t, tt.name, name)
			assert.Equal(t, tt.in, f.String())
		})
	}

	assert.True(t, ParseField("").IsZero())
}

func TestByFieldMergesEquivalentIDs(t *testing.T) {
	got := ByField(map[string]decimal.Decimal{
		"7":         decimal.NewFromInt(10),
		"007":       decimal.NewFromInt(5),
		MonthlyRent: decimal.NewFromInt(3),
	})

	assert.Len(t, got, 2)
	assert.True(t, decimal.NewFromInt(15).Equal(got[CategoryField(7)]))
	assert.True(t, decimal.NewFromInt(3).Equal(got[NamedField(MonthlyRent)]))
}
