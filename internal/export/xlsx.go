// Package export renders portfolio summaries as spreadsheets.
package export

import (
	"fmt"
	"io"
	"sort"

	"github.com/Rhymond/go-money"
	"github.com/rongwang/rentledger/internal/models"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const (
	SummarySheet   = "Portfolio"
	BreakdownSheet = "Breakdown"

	// ContentType of the workbook produced by WritePortfolio
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	// Currency of every amount in the portfolio
	Currency = money.THB
)

var summaryHeaders = []interface{}{
	"Code", "Building", "Total Income", "Total Expense", "Gross Profit",
	"Rental Income", "Little Hotelier", "Net Profit",
}

var breakdownHeaders = []interface{}{"Code", "Building", "Kind", "Item", "Amount"}

// FormatMoney renders an amount in the portfolio currency, e.g. "฿1,234.50"
func FormatMoney(amount decimal.Decimal) string {
	cur := money.GetCurrency(Currency)
	factor := decimal.New(1, int32(cur.Fraction))
	return money.New(amount.Mul(factor).Round(0).IntPart(), Currency).Display()
}

// Filename is the attachment name of the workbook of month/year
func Filename(month, year int) string {
	return fmt.Sprintf("portfolio_%04d_%02d.xlsx", year, month)
}

// PortfolioWorkbook builds a workbook with one row per building plus a total
// row, and a sheet listing every breakdown item.
func PortfolioWorkbook(resp *models.PortfolioSummaryResponse) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SummarySheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(BreakdownSheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("create sheet: %w", err)
	}

	if err := writeSummarySheet(f, resp); err != nil {
		f.Close()
		return nil, err
	}
	if err := writeBreakdownSheet(f, resp); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

// WritePortfolio writes the workbook of resp to w
func WritePortfolio(w io.Writer, resp *models.PortfolioSummaryResponse) error {
	f, err := PortfolioWorkbook(resp)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func styles(f *excelize.File) (header, amount int, err error) {
	header, err = f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return 0, 0, fmt.Errorf("header style: %w", err)
	}
	// built-in format 4 is #,##0.00
	amount, err = f.NewStyle(&excelize.Style{NumFmt: 4})
	if err != nil {
		return 0, 0, fmt.Errorf("amount style: %w", err)
	}
	return header, amount, nil
}

func summaryRow(code, name string, s models.Summary) []interface{} {
	return []interface{}{
		code,
		name,
		s.TotalIncome.InexactFloat64(),
		s.TotalExpense.InexactFloat64(),
		s.GrossProfit.InexactFloat64(),
		s.RentalIncome.InexactFloat64(),
		s.LittleHotelierExpense.InexactFloat64(),
		s.NetProfit.InexactFloat64(),
	}
}

func writeSummarySheet(f *excelize.File, resp *models.PortfolioSummaryResponse) error {
	header, amount, err := styles(f)
	if err != nil {
		return err
	}

	rows := [][]interface{}{summaryHeaders}
	for _, b := range resp.Buildings {
		rows = append(rows, summaryRow(b.BuildingCode, b.BuildingName, b))
	}
	rows = append(rows, summaryRow("", "Total", resp.Total))

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(SummarySheet, cell, &row); err != nil {
			return fmt.Errorf("write summary row %d: %w", i+1, err)
		}
	}

	last := len(rows)
	if err := f.SetCellStyle(SummarySheet, "A1", "H1", header); err != nil {
		return err
	}
	if err := f.SetCellStyle(SummarySheet, fmt.Sprintf("A%d", last), fmt.Sprintf("B%d", last), header); err != nil {
		return err
	}
	if err := f.SetCellStyle(SummarySheet, "C2", fmt.Sprintf("H%d", last), amount); err != nil {
		return err
	}

	period := fmt.Sprintf("%04d-%02d net profit: %s", resp.Total.Year, resp.Total.Month, FormatMoney(resp.Total.NetProfit))
	if err := f.SetCellValue(SummarySheet, fmt.Sprintf("A%d", last+2), period); err != nil {
		return err
	}

	if err := f.SetColWidth(SummarySheet, "A", "A", 10); err != nil {
		return err
	}
	if err := f.SetColWidth(SummarySheet, "B", "B", 24); err != nil {
		return err
	}
	return f.SetColWidth(SummarySheet, "C", "H", 16)
}

func sortedKeys(m map[string]decimal.Decimal) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func writeBreakdownSheet(f *excelize.File, resp *models.PortfolioSummaryResponse) error {
	header, amount, err := styles(f)
	if err != nil {
		return err
	}

	rows := [][]interface{}{breakdownHeaders}
	add := func(s models.Summary, code, name string) {
		for _, k := range sortedKeys(s.IncomeByChannel) {
			rows = append(rows, []interface{}{code, name, "Income", k, s.IncomeByChannel[k].InexactFloat64()})
		}
		for _, k := range sortedKeys(s.ExpenseByCategory) {
			rows = append(rows, []interface{}{code, name, "Expense", k, s.ExpenseByCategory[k].InexactFloat64()})
		}
	}
	for _, b := range resp.Buildings {
		add(b, b.BuildingCode, b.BuildingName)
	}
	add(resp.Total, "", "Total")

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(BreakdownSheet, cell, &row); err != nil {
			return fmt.Errorf("write breakdown row %d: %w", i+1, err)
		}
	}

	if err := f.SetCellStyle(BreakdownSheet, "A1", "E1", header); err != nil {
		return err
	}
	if len(rows) > 1 {
		if err := f.SetCellStyle(BreakdownSheet, "E2", fmt.Sprintf("E%d", len(rows)), amount); err != nil {
			return err
		}
	}
	if err := f.SetColWidth(BreakdownSheet, "B", "B", 24); err != nil {
		return err
	}
	return f.SetColWidth(BreakdownSheet, "D", "D", 32)
}
