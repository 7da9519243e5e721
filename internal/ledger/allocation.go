package ledger

import (
	"github.com/shopspring/decimal"

	"tabung/internal/models"
)

var hundred = decimal.NewFromInt(100)

// BucketAmount is the share of operating revenue allocated to one bucket,
// after that bucket's expense offsets.
type BucketAmount struct {
	Bucket  models.Bucket   `json:"bucket"`
	Percent decimal.Decimal `json:"percent"`
	Amount  decimal.Decimal `json:"amount"`
}

// Allocation holds the totals derived from a transaction set.
type Allocation struct {
	TotalCapital       decimal.Decimal
	OperatingRevenue   decimal.Decimal
	TotalExpenses      decimal.Decimal
	NetProfit          decimal.Decimal
	CashBalance        decimal.Decimal
	InvestmentExpenses decimal.Decimal
	ZakatExpenses      decimal.Decimal
	OperatingExpenses  decimal.Decimal
	Buckets            []BucketAmount
	IncomeByCategory   map[string]decimal.Decimal
	ExpenseByCategory  map[string]decimal.Decimal
}

// Bucket returns the computed amount of b.
func (a *Allocation) Bucket(b models.Bucket) BucketAmount {
	for _, ba := range a.Buckets {
		if ba.Bucket == b {
			return ba
		}
	}
	return BucketAmount{Bucket: b}
}

// Includes reports whether a transaction with the given status counts toward
// the totals seen by role. Tenants also see their own unconfirmed entries.
func Includes(role models.Role, status models.Status) bool {
	if status == models.StatusApproved {
		return true
	}
	return role == models.RoleTenant && status == models.StatusPending
}

// Compute folds transactions into an Allocation using the given percentages.
// Percentages are always taken against 100, whatever the number of buckets.
func Compute(transactions []models.Transaction, role models.Role, percentages models.Percentages) Allocation {
	a := Allocation{
		TotalCapital:       decimal.Zero,
		OperatingRevenue:   decimal.Zero,
		TotalExpenses:      decimal.Zero,
		InvestmentExpenses: decimal.Zero,
		ZakatExpenses:      decimal.Zero,
		IncomeByCategory:   make(map[string]decimal.Decimal),
		ExpenseByCategory:  make(map[string]decimal.Decimal),
	}

	for i := range transactions {
		tx := &transactions[i]
		if !Includes(role, tx.Status) {
			continue
		}
		label := DisplayCategory(tx.Category)

		switch tx.Type {
		case models.TransactionTypeIncome:
			if Classify(tx.Category) == Capital {
				a.TotalCapital = a.TotalCapital.Add(tx.Amount)
			} else {
				a.OperatingRevenue = a.OperatingRevenue.Add(tx.Amount)
			}
			a.IncomeByCategory[label] = addTo(a.IncomeByCategory, label, tx.Amount)

		case models.TransactionTypeExpense:
			a.TotalExpenses = a.TotalExpenses.Add(tx.Amount)
			switch Classify(tx.Category) {
			case InvestmentLinked:
				a.InvestmentExpenses = a.InvestmentExpenses.Add(tx.Amount)
			case ZakatLinked:
				a.ZakatExpenses = a.ZakatExpenses.Add(tx.Amount)
			}
			a.ExpenseByCategory[label] = addTo(a.ExpenseByCategory, label, tx.Amount)
		}
	}

	a.NetProfit = a.OperatingRevenue.Sub(a.TotalExpenses)
	a.CashBalance = a.TotalCapital.Add(a.OperatingRevenue).Sub(a.TotalExpenses)
	a.OperatingExpenses = a.TotalExpenses.Sub(a.InvestmentExpenses).Sub(a.ZakatExpenses)

	a.Buckets = make([]BucketAmount, 0, len(models.AllBuckets))
	for _, b := range models.AllBuckets {
		pct := percentages.Get(b)
		a.Buckets = append(a.Buckets, BucketAmount{
			Bucket:  b,
			Percent: pct,
			Amount:  a.bucketAmount(b, ShareOf(a.OperatingRevenue, pct)),
		})
	}

	return a
}

// bucketAmount applies the per-bucket offsets to a bucket's revenue share.
func (a *Allocation) bucketAmount(b models.Bucket, share decimal.Decimal) decimal.Decimal {
	switch b {
	case models.BucketOperating:
		return share.Add(a.TotalCapital).Sub(a.OperatingExpenses)
	case models.BucketZakat:
		return share.Sub(a.ZakatExpenses)
	case models.BucketInvestment:
		return share.Sub(a.InvestmentExpenses)
	}
	return share
}

// ShareOf returns pct percent of amount.
func ShareOf(amount, pct decimal.Decimal) decimal.Decimal {
	return amount.Mul(pct).Div(hundred)
}

func addTo(m map[string]decimal.Decimal, key string, amount decimal.Decimal) decimal.Decimal {
	if cur, ok := m[key]; ok {
		return cur.Add(amount)
	}
	return amount
}
