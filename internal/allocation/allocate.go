package allocation

import (
	"github.com/rongwang/rentledger/internal/models"
	"github.com/shopspring/decimal"
)

// Eligible reports whether building b takes part in the rule's split
func (r Rule) Eligible(b models.Building) bool {
	if r.Eligibility.Kind == EligibleAll {
		return true
	}
	for _, code := range r.Eligibility.Codes {
		if code == b.Code {
			return true
		}
	}
	return false
}

// divisor returns what the pool is divided by; zero or less means nothing is allocated
func (r Rule) divisor(buildingCount int) int64 {
	if r.Divisor.Kind == DivideByFixed {
		return r.Divisor.Value
	}
	return int64(buildingCount)
}

// Share returns building b's part of total. It is pure: ineligible buildings
// and a non-positive divisor both yield zero, never an error.
func (r Rule) Share(total decimal.Decimal, b models.Building, buildingCount int) decimal.Decimal {
	if !r.Eligible(b) {
		return decimal.Zero
	}
	d := r.divisor(buildingCount)
	if d <= 0 || total.IsZero() {
		return decimal.Zero
	}
	return total.Div(decimal.NewFromInt(d))
}

// Allocation is one building's share of one shared-cost field
type Allocation struct {
	Field string
	Label string
	Share decimal.Decimal
}

// AllocateShared applies every shared rule to the portfolio totals for building b.
// Fields missing from totals count as zero. The result follows rule order.
func (s RuleSet) AllocateShared(totals map[string]decimal.Decimal, b models.Building, buildingCount int) []Allocation {
	out := make([]Allocation, 0, len(s.Shared))
	for _, r := range s.Shared {
		out = append(out, Allocation{
			Field: r.Field,
			Label: r.Label,
			Share: r.Share(totals[r.Field], b, buildingCount),
		})
	}
	return out
}
