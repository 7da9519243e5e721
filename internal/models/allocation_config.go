package models

import "github.com/shopspring/decimal"

// Bucket is one of the seven fixed allocation buckets ("tabung").
type Bucket string

const (
	BucketOperating  Bucket = "operating"
	BucketTax        Bucket = "tax"
	BucketZakat      Bucket = "zakat"
	BucketInvestment Bucket = "investment"
	BucketDividend   Bucket = "dividend"
	BucketSavings    Bucket = "savings"
	BucketEmergency  Bucket = "emergency"
)

// AllBuckets lists every bucket in display order.
var AllBuckets = []Bucket{
	BucketOperating,
	BucketTax,
	BucketZakat,
	BucketInvestment,
	BucketDividend,
	BucketSavings,
	BucketEmergency,
}

// IsValid reports whether b is one of the known buckets.
func (b Bucket) IsValid() bool {
	for _, known := range AllBuckets {
		if b == known {
			return true
		}
	}
	return false
}

// Percentages maps each bucket to its share of operating revenue, out of 100.
type Percentages map[Bucket]decimal.Decimal

// Get returns the percentage for b, or zero when unset.
func (p Percentages) Get(b Bucket) decimal.Decimal {
	if v, ok := p[b]; ok {
		return v
	}
	return decimal.Zero
}

// Clone returns a copy with every bucket present.
func (p Percentages) Clone() Percentages {
	out := make(Percentages, len(AllBuckets))
	for _, b := range AllBuckets {
		out[b] = p.Get(b)
	}
	return out
}

// AllocationConfig is the persisted percentage and bank-label configuration of
// an account. It is created on first save and only ever overwritten.
type AllocationConfig struct {
	Base
	AccountID   string            `gorm:"type:uuid;not null;uniqueIndex" json:"account_id"`
	Percentages Percentages       `gorm:"serializer:json;not null" json:"percentages"`
	BankNames   map[Bucket]string `gorm:"serializer:json" json:"bank_names"`
}
