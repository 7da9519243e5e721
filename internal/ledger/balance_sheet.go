package ledger

import (
	"github.com/shopspring/decimal"

	"tabung/internal/models"
)

// Liabilities are the tax and zakat amounts set aside from operating revenue.
type Liabilities struct {
	TaxPayable   decimal.Decimal `json:"tax_payable"`
	ZakatPayable decimal.Decimal `json:"zakat_payable"`
	Total        decimal.Decimal `json:"total"`
}

// Assets are the cash position plus fixed assets. Fixed assets are not
// tracked yet and are always zero.
type Assets struct {
	Current decimal.Decimal `json:"current"`
	Fixed   decimal.Decimal `json:"fixed"`
	Total   decimal.Decimal `json:"total"`
}

// BalanceSheet is the assets/liabilities/equity view of an Allocation.
// Equity is the residual of assets over liabilities, so the sheet always
// balances.
type BalanceSheet struct {
	Assets           Assets          `json:"assets"`
	Liabilities      Liabilities     `json:"liabilities"`
	Equity           decimal.Decimal `json:"equity"`
	RetainedEarnings decimal.Decimal `json:"retained_earnings"`
}

// ComposeBalanceSheet derives the balance sheet from allocation totals and
// the configured tax and zakat percentages.
func ComposeBalanceSheet(a Allocation, percentages models.Percentages) BalanceSheet {
	tax := ShareOf(a.OperatingRevenue, percentages.Get(models.BucketTax))
	zakat := ShareOf(a.OperatingRevenue, percentages.Get(models.BucketZakat))
	liabilities := Liabilities{
		TaxPayable:   tax,
		ZakatPayable: zakat,
		Total:        tax.Add(zakat),
	}

	assets := Assets{
		Current: a.CashBalance,
		Fixed:   decimal.Zero,
	}
	assets.Total = assets.Current.Add(assets.Fixed)

	equity := assets.Total.Sub(liabilities.Total)
	return BalanceSheet{
		Assets:           assets,
		Liabilities:      liabilities,
		Equity:           equity,
		RetainedEarnings: equity.Sub(a.TotalCapital),
	}
}
