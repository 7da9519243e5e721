package ledger

import (
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"tabung/internal/models"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDec(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...interface{}) {
	t.Helper()
	if !got.Equal(dec(want)) {
		assert.Fail(t, fmt.Sprintf("want %s, got %s", want, got), msgAndArgs...)
	}
}

func income(category, amount string, status models.Status) models.Transaction {
	return models.Transaction{
		Type:     models.TransactionTypeIncome,
		Category: category,
		Amount:   dec(amount),
		Status:   status,
		Date:     time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC),
	}
}

func expense(category, amount string, status models.Status) models.Transaction {
	tx := income(category, amount, status)
	tx.Type = models.TransactionTypeExpense
	return tx
}

func examplePercentages() models.Percentages {
	return models.Percentages{
		models.BucketOperating:  dec("60"),
		models.BucketTax:        dec("10"),
		models.BucketZakat:      dec("2.5"),
		models.BucketInvestment: dec("10"),
		models.BucketDividend:   dec("10"),
		models.BucketSavings:    dec("4"),
		models.BucketEmergency:  dec("3.5"),
	}
}
