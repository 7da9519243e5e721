// Package export renders allocation reports as XLSX workbooks.
package export

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"tabung/internal/ledger"
)

// ContentType is the MIME type of the generated workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Sheet names, in workbook order.
const (
	SheetSummary      = "Summary"
	SheetBuckets      = "Buckets"
	SheetBalanceSheet = "Balance Sheet"
	SheetCategories   = "Categories"
)

// Meta identifies the ledger a report was computed for.
type Meta struct {
	OwnerID              string
	Perspective          string
	GeneratedAt          time.Time
	UnreconciledPayments int64
}

// FileName returns the download name of the workbook.
func FileName(meta Meta) string {
	return fmt.Sprintf("allocation_%s_%s.xlsx", meta.Perspective, meta.GeneratedAt.Format("20060102"))
}

// Write renders the report and writes the workbook to w.
func Write(w io.Writer, report ledger.Report, meta Meta) error {
	f, err := NewWorkbook(report, meta)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// NewWorkbook builds the report workbook. The caller must Close it.
func NewWorkbook(report ledger.Report, meta Meta) (*excelize.File, error) {
	f := excelize.NewFile()

	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		f.Close()
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	for _, name := range []string{SheetBuckets, SheetBalanceSheet, SheetCategories} {
		if _, err := f.NewSheet(name); err != nil {
			f.Close()
			return nil, fmt.Errorf("create sheet %s: %w", name, err)
		}
	}

	writers := []func(*excelize.File, ledger.Report, Meta) error{
		writeSummary,
		writeBuckets,
		writeBalanceSheet,
		writeCategories,
	}
	for _, write := range writers {
		if err := write(f, report, meta); err != nil {
			f.Close()
			return nil, err
		}
	}

	f.SetActiveSheet(0)
	return f, nil
}

// writeRows writes rows starting at A1.
func writeRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

// money converts an amount to a numeric cell value rounded to cents.
func money(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}

func writeSummary(f *excelize.File, r ledger.Report, meta Meta) error {
	rows := [][]interface{}{
		{"Allocation report"},
		{"Owner", meta.OwnerID},
		{"Perspective", meta.Perspective},
		{"Viewer role", string(r.ViewerRole)},
		{"Plan tier", r.Tier.Name},
		{"Generated at", meta.GeneratedAt.UTC().Format(time.RFC3339)},
		{},
		{"Capital", money(r.Capital)},
		{"Operating revenue", money(r.Revenue)},
		{"Expenses", money(r.Expenses)},
		{"Net profit", money(r.NetProfit)},
		{"Cash balance", money(r.CashBalance)},
	}
	if meta.UnreconciledPayments > 0 {
		rows = append(rows, []interface{}{}, []interface{}{"Unreconciled payments", meta.UnreconciledPayments})
	}
	if err := writeRows(f, SheetSummary, rows); err != nil {
		return err
	}
	return f.SetColWidth(SheetSummary, "A", "A", 24)
}

func writeBuckets(f *excelize.File, r ledger.Report, _ Meta) error {
	rows := [][]interface{}{{"Bucket", "Tag", "Percent", "Allocated", "Bank"}}
	for _, b := range r.Buckets {
		rows = append(rows, []interface{}{
			string(b.Name),
			b.Tag,
			b.Percent.InexactFloat64(),
			money(b.AllocatedAmount),
			b.BankLabel,
		})
	}
	if err := writeRows(f, SheetBuckets, rows); err != nil {
		return err
	}
	return f.SetColWidth(SheetBuckets, "A", "E", 16)
}

func writeBalanceSheet(f *excelize.File, r ledger.Report, _ Meta) error {
	rows := [][]interface{}{
		{"Assets"},
		{"Current assets", money(r.Assets.Current)},
		{"Fixed assets", money(r.Assets.Fixed)},
		{"Total assets", money(r.Assets.Total)},
		{},
		{"Liabilities"},
		{"Tax payable", money(r.Liabilities.TaxPayable)},
		{"Zakat payable", money(r.Liabilities.ZakatPayable)},
		{"Total liabilities", money(r.Liabilities.Total)},
		{},
		{"Equity", money(r.Equity)},
		{"Capital", money(r.Capital)},
		{"Retained earnings", money(r.RetainedEarnings)},
	}
	if err := writeRows(f, SheetBalanceSheet, rows); err != nil {
		return err
	}
	return f.SetColWidth(SheetBalanceSheet, "A", "A", 20)
}

func writeCategories(f *excelize.File, r ledger.Report, _ Meta) error {
	rows := [][]interface{}{{"Type", "Category", "Amount"}}
	rows = appendCategoryRows(rows, "income", r.IncomeByCategory)
	rows = appendCategoryRows(rows, "expense", r.ExpenseByCategory)
	if err := writeRows(f, SheetCategories, rows); err != nil {
		return err
	}
	return f.SetColWidth(SheetCategories, "B", "B", 24)
}

// appendCategoryRows adds one row per category in name order.
func appendCategoryRows(rows [][]interface{}, kind string, totals map[string]decimal.Decimal) [][]interface{} {
	names := make([]string, 0, len(totals))
	for name := range totals {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		rows = append(rows, []interface{}{kind, name, money(totals[name])})
	}
	return rows
}
