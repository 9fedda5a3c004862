package allocation

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rongwang/rentledger/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epsilon = decimal.New(1, -9)

func buildings(codes ...string) []models.Building {
	out := make([]models.Building, 0, len(codes))
	for i, c := range codes {
		out = append(out, models.Building{ID: int64(i + 1), Code: c, Name: "Building " + c})
	}
	return out
}

func mustRule(t *testing.T, rs RuleSet, field string) Rule {
	t.Helper()
	r, ok := rs.Rule(field)
	require.True(t, ok, "rule %s missing", field)
	return r
}

func TestThreeWaySplit(t *testing.T) {
	rs := DefaultRules()
	rule := mustRule(t, rs, MaxCareExpense)
	all := buildings("A1", "A2", "A3", "Z9")
	total := decimal.NewFromInt(900)

	for _, b := range all[:3] {
		share := rule.Share(total, b, len(all))
		assert.True(t, decimal.NewFromInt(300).Equal(share), "building %s got %s", b.Code, share)
	}
	assert.True(t, rule.Share(total, all[3], len(all)).IsZero())
}

func TestThreeWayConservation(t *testing.T) {
	rs := DefaultRules()
	all := buildings("A1", "Z1", "A2", "Z2", "A3", "Z3", "Z4")

	for _, field := range []string{MaxCareExpense, TrafficCareExpense, ShippingExpense} {
		rule := mustRule(t, rs, field)
		for _, raw := range []string{"1000", "900", "0.01", "12345.67"} {
			total := decimal.RequireFromString(raw)
			sum := decimal.Zero
			for _, b := range all {
				share := rule.Share(total, b, len(all))
				if !rule.Eligible(b) {
					assert.True(t, share.IsZero(), "%s: ineligible %s got %s", field, b.Code, share)
				}
				sum = sum.Add(share)
			}
			assert.True(t, sum.Sub(total).Abs().LessThan(epsilon), "%s: %s split back to %s", field, total, sum)
		}
	}
}

func TestAllBuildingsSplit(t *testing.T) {
	rule := mustRule(t, DefaultRules(), AmenityExpense)
	all := buildings("A1", "B1", "C1", "D1", "E1")
	total := decimal.NewFromInt(1000)

	sum := decimal.Zero
	for _, b := range all {
		share := rule.Share(total, b, len(all))
		assert.True(t, decimal.NewFromInt(200).Equal(share))
		sum = sum.Add(share)
	}
	assert.True(t, total.Equal(sum))
}

func TestAllBuildingsSplitWithoutBuildings(t *testing.T) {
	rule := mustRule(t, DefaultRules(), AmenityExpense)

	share := rule.Share(decimal.NewFromInt(1000), models.Building{Code: "A1"}, 0)

	assert.True(t, share.IsZero())
}

func TestAllBuildingsConservationForAnyCount(t *testing.T) {
	rule := mustRule(t, DefaultRules(), FuelExpense)
	total := decimal.RequireFromString("777.77")

	for n := 1; n <= 9; n++ {
		codes := make([]string, n)
		for i := range codes {
			codes[i] = fmt.Sprintf("B%d", i)
		}
		sum := decimal.Zero
		for _, b := range buildings(codes...) {
			sum = sum.Add(rule.Share(total, b, n))
		}
		assert.True(t, sum.Sub(total).Abs().LessThan(epsilon), "n=%d: got %s", n, sum)
	}
}

func TestSocialSecurityUsesFixedDivisor(t *testing.T) {
	rs := DefaultRules()
	total := decimal.NewFromInt(3750)

	for _, count := range []int{0, 1, 5, 12} {
		share := rs.SocialSecurity.Share(total, models.Building{Code: "Q"}, count)
		assert.True(t, decimal.NewFromInt(750).Equal(share), "count %d got %s", count, share)
	}
}

func TestSalaryUsesBuildingCount(t *testing.T) {
	rs := DefaultRules()

	share := rs.Salary.Share(decimal.NewFromInt(40000), models.Building{Code: "Q"}, 5)

	assert.True(t, decimal.NewFromInt(8000).Equal(share))
}

func TestAllocateSharedFollowsRuleOrder(t *testing.T) {
	rs := DefaultRules()
	totals := map[string]decimal.Decimal{
		MaxCareExpense: decimal.NewFromInt(300),
		WaterExpense:   decimal.NewFromInt(100),
	}

	got := rs.AllocateShared(totals, models.Building{Code: "Z"}, 4)

	require.Len(t, got, 13)
	assert.Equal(t, rs.Fields()[0], got[0].Field)
	for _, a := range got {
		switch a.Field {
		case WaterExpense:
			assert.True(t, decimal.NewFromInt(25).Equal(a.Share))
		default:
			assert.True(t, a.Share.IsZero(), "%s got %s", a.Field, a.Share)
		}
	}
}

func TestDefaultRulesAreValid(t *testing.T) {
	assert.NoError(t, DefaultRules().Validate())
	assert.Len(t, DefaultRules().Fields(), 13)
}

func TestLoadRules(t *testing.T) {
	doc := `
shared:
  - field: maxCareExpense
    label: Max Care
    eligibility: {kind: codes, codes: [N1, N2]}
    divisor: {kind: fixed, value: 2}
  - field: waterExpense
    label: Water
    eligibility: {kind: all}
    divisor: {kind: buildings}
salary:
  field: salary
  label: Salary
  eligibility: {kind: all}
  divisor: {kind: buildings}
socialSecurity:
  field: socialSecurity
  label: Social Security
  eligibility: {kind: all}
  divisor: {kind: fixed, value: 4}
`
	rs, err := LoadRules(strings.NewReader(doc))
	require.NoError(t, err)

	rule := mustRule(t, rs, MaxCareExpense)
	assert.True(t, rule.Eligible(models.Building{Code: "N2"}))
	assert.False(t, rule.Eligible(models.Building{Code: "A1"}))
	assert.True(t, decimal.NewFromInt(50).Equal(rule.Share(decimal.NewFromInt(100), models.Building{Code: "N1"}, 10)))
	assert.True(t, decimal.NewFromInt(25).Equal(rs.SocialSecurity.Share(decimal.NewFromInt(100), models.Building{}, 10)))
}

func TestLoadRulesRejectsInvalid(t *testing.T) {
	valid := `
salary: {field: salary, label: S, eligibility: {kind: all}, divisor: {kind: buildings}}
socialSecurity: {field: socialSecurity, label: SS, eligibility: {kind: all}, divisor: {kind: fixed, value: 5}}
`
	tests := map[string]string{
		"unknown eligibility": `shared: [{field: x, label: X, eligibility: {kind: some}, divisor: {kind: buildings}}]`,
		"zero fixed divisor":  `shared: [{field: x, label: X, eligibility: {kind: all}, divisor: {kind: fixed, value: 0}}]`,
		"codes without codes": `shared: [{field: x, label: X, eligibility: {kind: codes}, divisor: {kind: buildings}}]`,
		"duplicate field": `shared:
  - {field: x, label: X, eligibility: {kind: all}, divisor: {kind: buildings}}
  - {field: x, label: Y, eligibility: {kind: all}, divisor: {kind: buildings}}`,
		"unknown key": `shared: [{field: x, label: X, eligibility: {kind: all}, divisor: {kind: buildings}, weight: 2}]`,
	}

	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := LoadRules(strings.NewReader(doc + valid))
			assert.Error(t, err)
		})
	}
}

func TestLoadRulesFile(t *testing.T) {
	rs, err := LoadRulesFile("")
	require.NoError(t, err)
	assert.Equal(t, DefaultRules().Fields(), rs.Fields())

	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
shared: []
salary: {field: salary, label: S, eligibility: {kind: all}, divisor: {kind: buildings}}
socialSecurity: {field: socialSecurity, label: SS, eligibility: {kind: all}, divisor: {kind: fixed, value: 5}}
`), 0o600))

	rs, err = LoadRulesFile(path)
	require.NoError(t, err)
	assert.Empty(t, rs.Fields())

	_, err = LoadRulesFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
