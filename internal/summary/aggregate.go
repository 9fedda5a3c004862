package summary

import (
	"github.com/rongwang/rentledger/internal/models"
	"github.com/shopspring/decimal"
)

// Aggregate sums building summaries of one month into a portfolio total.
// Allocations are not recomputed: each building already carries its share,
// so the sum of shares is the shared total. Percent fields are left at zero
// because they do not add up.
func Aggregate(month, year int, buildings []models.Summary) models.Summary {
	total := models.Summary{
		Month:             month,
		Year:              year,
		IncomeByChannel:   map[string]decimal.Decimal{},
		ExpenseByCategory: map[string]decimal.Decimal{},
	}

	for _, b := range buildings {
		total.TotalIncome = total.TotalIncome.Add(b.TotalIncome)
		total.TotalExpense = total.TotalExpense.Add(b.TotalExpense)
		total.GrossProfit = total.GrossProfit.Add(b.GrossProfit)
		total.NetProfit = total.NetProfit.Add(b.NetProfit)
		total.RentalIncome = total.RentalIncome.Add(b.RentalIncome)
		total.ManagementFee = total.ManagementFee.Add(b.ManagementFee)
		total.VAT = total.VAT.Add(b.VAT)
		total.LittleHotelierExpense = total.LittleHotelierExpense.Add(b.LittleHotelierExpense)

		mergeInto(total.IncomeByChannel, b.IncomeByChannel)
		mergeInto(total.ExpenseByCategory, b.ExpenseByCategory)
	}

	return total
}

func mergeInto(dst, src map[string]decimal.Decimal) {
	for k, v := range src {
		dst[k] = dst[k].Add(v)
	}
}

// SumValues adds up every value of a breakdown map
func SumValues(m map[string]decimal.Decimal) decimal.Decimal {
	sum := decimal.Zero
	for _, v := range m {
		sum = sum.Add(v)
	}
	return sum
}
