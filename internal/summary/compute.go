// Package summary assembles building and portfolio income/expense reports.
package summary

import (
	"log/slog"
	"strings"

	"github.com/rongwang/rentledger/internal/allocation"
	"github.com/rongwang/rentledger/internal/ledger"
	"github.com/rongwang/rentledger/internal/models"
	"github.com/rongwang/rentledger/internal/utils"
	"github.com/shopspring/decimal"
)

// Fixed display labels
const (
	LabelAirportShuttleRent = "Airport Shuttle Rent"
	LabelThaiBusTour        = "Thai Bus Tour"
	LabelCoVanKessel        = "Co van Kessel"
	LabelMonthlyRent        = "Building Rent"
	LabelCowayWaterFilter   = "Coway Water Filter"
)

// pseudoIncomes are transaction fields reported as income channels without being categories
var pseudoIncomes = []struct {
	key   string
	label string
}{
	{ledger.AirportShuttleRentIncome, LabelAirportShuttleRent},
	{ledger.ThaiBusTourIncome, LabelThaiBusTour},
	{ledger.CoVanKesselIncome, LabelCoVanKessel},
}

// ReservedLabels lists the breakdown labels written by the computation itself.
// A category sharing one of them would be merged into that line.
func ReservedLabels(rules allocation.RuleSet) []string {
	out := []string{LabelMonthlyRent, LabelCowayWaterFilter, rules.Salary.Label, rules.SocialSecurity.Label}
	for _, p := range pseudoIncomes {
		out = append(out, p.label)
	}
	for _, r := range rules.Shared {
		out = append(out, r.Label)
	}
	return out
}

// Policy holds the name-based classification rules
type Policy struct {
	// RentalMarker marks income categories counted as rental income (case-insensitive substring)
	RentalMarker string
	// SalaryCategoryName is the expense category replaced by the salary allocation
	SalaryCategoryName string
}

// DefaultPolicy returns the built-in classification rules
func DefaultPolicy() Policy {
	return Policy{
		RentalMarker:       "rent",
		SalaryCategoryName: "employee salary",
	}
}

func (p Policy) isRental(name string) bool {
	if p.RentalMarker == "" {
		return false
	}
	return strings.Contains(strings.ToLower(name), strings.ToLower(p.RentalMarker))
}

func (p Policy) isSalary(name string) bool {
	return strings.EqualFold(strings.TrimSpace(name), strings.TrimSpace(p.SalaryCategoryName))
}

// Input is everything needed to compute one building's summary.
// Total maps come from ledger.FoldByField: a key is present only when it has entries.
type Input struct {
	Building models.Building
	Month    int
	Year     int

	Categories map[int64]models.Category

	// Transactions are the BUILDING_TRANSACTION totals of this building
	Transactions map[string]decimal.Decimal
	// SettingsTotals are the BUILDING_SETTINGS totals of this building
	SettingsTotals map[string]decimal.Decimal
	// Settings is the legacy settings row, nil when the building has none
	Settings *models.Settings
	// SharedTotals are the portfolio shared-cost totals, already resolved
	SharedTotals map[string]decimal.Decimal

	ActiveSalaryTotal   decimal.Decimal
	SocialSecurityTotal decimal.Decimal
	BuildingCount       int

	Rules  allocation.RuleSet
	Policy Policy
	Logger *slog.Logger
}

// Compute builds the summary of one building. It performs no I/O.
func Compute(in Input) models.Summary {
	log := in.Logger
	if log == nil {
		log = utils.DiscardLogger()
	}
	log = log.With(slog.Int64("building_id", in.Building.ID))

	s := models.Summary{
		BuildingID:        in.Building.ID,
		BuildingCode:      in.Building.Code,
		BuildingName:      in.Building.Name,
		Month:             in.Month,
		Year:              in.Year,
		IncomeByChannel:   map[string]decimal.Decimal{},
		ExpenseByCategory: map[string]decimal.Decimal{},
	}

	income := decimal.Zero
	expense := decimal.Zero
	rental := decimal.Zero

	// 1-3: category transactions and pseudo incomes
	for field, total := range ledger.ByField(in.Transactions) {
		id, ok := field.CategoryID()
		if !ok {
			continue
		}
		cat, ok := in.Categories[id]
		if !ok {
			log.Warn("Skipping ledger total for unknown category", slog.Int64("category_id", id))
			continue
		}
		switch cat.Kind {
		case models.CategoryIncome:
			income = income.Add(total)
			s.IncomeByChannel[cat.Name] = s.IncomeByChannel[cat.Name].Add(total)
			if in.Policy.isRental(cat.Name) {
				rental = rental.Add(total)
			}
		case models.CategoryExpense:
			if in.Policy.isSalary(cat.Name) {
				continue
			}
			expense = expense.Add(total)
			s.ExpenseByCategory[cat.Name] = s.ExpenseByCategory[cat.Name].Add(total)
		default:
			log.Warn("Skipping category with unknown kind", slog.Int64("category_id", id), slog.String("kind", string(cat.Kind)))
		}
	}
	for _, p := range pseudoIncomes {
		v := in.Transactions[p.key]
		income = income.Add(v)
		if v.IsPositive() {
			s.IncomeByChannel[p.label] = s.IncomeByChannel[p.label].Add(v)
		}
	}

	// 4: salary pool
	salary := in.Rules.Salary.Share(in.ActiveSalaryTotal, in.Building, in.BuildingCount)
	expense = expense.Add(salary)
	s.ExpenseByCategory[in.Rules.Salary.Label] = s.ExpenseByCategory[in.Rules.Salary.Label].Add(salary)

	// 5: fixed settings costs
	var legacy models.Settings
	if in.Settings != nil {
		legacy = *in.Settings
	}
	rent := settingsValue(in.SettingsTotals, ledger.MonthlyRent, legacy.MonthlyRent)
	coway := settingsValue(in.SettingsTotals, ledger.CowayWaterFilterExpense, legacy.CowayWaterFilterExpense)
	expense = expense.Add(rent).Add(coway)
	if rent.IsPositive() {
		s.ExpenseByCategory[LabelMonthlyRent] = s.ExpenseByCategory[LabelMonthlyRent].Add(rent)
	}
	s.ExpenseByCategory[LabelCowayWaterFilter] = s.ExpenseByCategory[LabelCowayWaterFilter].Add(coway)

	// 6: shared costs
	for _, a := range in.Rules.AllocateShared(in.SharedTotals, in.Building, in.BuildingCount) {
		expense = expense.Add(a.Share)
		if a.Share.IsPositive() {
			s.ExpenseByCategory[a.Label] = s.ExpenseByCategory[a.Label].Add(a.Share)
		}
	}

	// 7: social security pool
	ss := in.Rules.SocialSecurity.Share(in.SocialSecurityTotal, in.Building, in.BuildingCount)
	expense = expense.Add(ss)
	s.ExpenseByCategory[in.Rules.SocialSecurity.Label] = s.ExpenseByCategory[in.Rules.SocialSecurity.Label].Add(ss)

	// 8: profit. Management fee and VAT are reported but not deducted.
	s.TotalIncome = income
	s.TotalExpense = expense
	s.RentalIncome = rental
	s.GrossProfit = income.Sub(expense)
	s.ManagementFeePercent = legacy.ManagementFeePercent
	s.ManagementFee = decimal.Zero
	s.VATPercent = legacy.VATPercent
	s.VAT = decimal.Zero
	s.LittleHotelierExpense = settingsValue(in.SettingsTotals, ledger.LittleHotelierExpense, legacy.LittleHotelierExpense)
	s.NetProfit = s.GrossProfit.Sub(s.ManagementFee).Sub(s.VAT).Sub(s.LittleHotelierExpense)

	return s
}

// settingsValue prefers the ledger total of key and falls back to the legacy column
func settingsValue(totals map[string]decimal.Decimal, key string, legacy decimal.Decimal) decimal.Decimal {
	if v, ok := totals[key]; ok {
		return v
	}
	if legacy.IsNegative() {
		return decimal.Zero
	}
	return legacy
}

// ResolveShared returns the total of every field: the ledger total when the
// field has entries, otherwise the legacy portfolio baseline.
func ResolveShared(ledgerTotals map[string]decimal.Decimal, legacy models.FieldValues, fields []string) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(fields))
	for _, f := range fields {
		out[f] = settingsValue(ledgerTotals, f, legacy[f])
	}
	return out
}
