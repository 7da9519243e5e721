package ledger

import (
	"github.com/shopspring/decimal"

	"tabung/internal/models"
)

// bucketTags are the display tags of each bucket.
var bucketTags = map[models.Bucket]string{
	models.BucketOperating:  "Operasi",
	models.BucketTax:        "Cukai",
	models.BucketZakat:      "Zakat",
	models.BucketInvestment: "Pelaburan",
	models.BucketDividend:   "Dividen",
	models.BucketSavings:    "Simpanan",
	models.BucketEmergency:  "Kecemasan",
}

// Tag returns the display tag of b.
func Tag(b models.Bucket) string {
	return bucketTags[b]
}

// BucketView is one row of the bucket table of a report.
type BucketView struct {
	Name            models.Bucket   `json:"name"`
	Tag             string          `json:"tag"`
	Percent         decimal.Decimal `json:"percent"`
	AllocatedAmount decimal.Decimal `json:"allocated_amount"`
	BankLabel       string          `json:"bank_label"`
}

// Report is the allocation report of one ledger as seen by one role.
type Report struct {
	Tier              Tier                       `json:"tier"`
	ViewerRole        models.Role                `json:"viewer_role"`
	Capital           decimal.Decimal            `json:"capital"`
	Revenue           decimal.Decimal            `json:"revenue"`
	Expenses          decimal.Decimal            `json:"expenses"`
	NetProfit         decimal.Decimal            `json:"net_profit"`
	CashBalance       decimal.Decimal            `json:"cash_balance"`
	Buckets           []BucketView               `json:"buckets"`
	Liabilities       Liabilities                `json:"liabilities"`
	Assets            Assets                     `json:"assets"`
	Equity            decimal.Decimal            `json:"equity"`
	RetainedEarnings  decimal.Decimal            `json:"retained_earnings"`
	IncomeByCategory  map[string]decimal.Decimal `json:"income_by_category"`
	ExpenseByCategory map[string]decimal.Decimal `json:"expense_by_category"`
}

// ComputeReport runs the allocation engine and the balance sheet over
// transactions. Only buckets allowed by tier take part: stored percentages
// of other buckets are treated as zero and those buckets are left out.
func ComputeReport(transactions []models.Transaction, cfg *models.AllocationConfig, viewerRole models.Role, tier Tier) Report {
	var stored models.Percentages
	var bankNames map[models.Bucket]string
	if cfg != nil {
		stored = cfg.Percentages
		bankNames = cfg.BankNames
	}
	percentages := tier.Restrict(stored)

	alloc := Compute(transactions, viewerRole, percentages)
	sheet := ComposeBalanceSheet(alloc, percentages)

	buckets := make([]BucketView, 0, len(tier.AllowedBuckets))
	for _, ba := range alloc.Buckets {
		if !tier.Allows(ba.Bucket) {
			continue
		}
		buckets = append(buckets, BucketView{
			Name:            ba.Bucket,
			Tag:             Tag(ba.Bucket),
			Percent:         ba.Percent,
			AllocatedAmount: ba.Amount,
			BankLabel:       bankNames[ba.Bucket],
		})
	}

	return Report{
		Tier:              tier,
		ViewerRole:        viewerRole,
		Capital:           alloc.TotalCapital,
		Revenue:           alloc.OperatingRevenue,
		Expenses:          alloc.TotalExpenses,
		NetProfit:         alloc.NetProfit,
		CashBalance:       alloc.CashBalance,
		Buckets:           buckets,
		Liabilities:       sheet.Liabilities,
		Assets:            sheet.Assets,
		Equity:            sheet.Equity,
		RetainedEarnings:  sheet.RetainedEarnings,
		IncomeByCategory:  alloc.IncomeByCategory,
		ExpenseByCategory: alloc.ExpenseByCategory,
	}
}
