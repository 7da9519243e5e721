package ledger

import (
	"strings"

	"github.com/shopspring/decimal"

	"tabung/internal/models"
)

// Plan tiers with a restricted bucket set. Any other tier gets every bucket.
const (
	TierPremium  = "premium"
	TierStandard = "standard"
	TierFree     = "free"
)

// Tier is the bucket set and export permission granted by a plan.
type Tier struct {
	Name               string          `json:"name"`
	AllowedBuckets     []models.Bucket `json:"allowed_buckets"`
	CanDownloadReports bool            `json:"can_download_reports"`
}

// Allows reports whether b is configurable under the tier.
func (t Tier) Allows(b models.Bucket) bool {
	for _, allowed := range t.AllowedBuckets {
		if allowed == b {
			return true
		}
	}
	return false
}

// ResolveTier maps a plan tier to its allowed buckets. Unrecognized or empty
// tiers resolve to the full seven-bucket set.
func ResolveTier(planTier string) Tier {
	name := strings.ToLower(strings.TrimSpace(planTier))
	switch name {
	case TierPremium:
		return Tier{
			Name:           name,
			AllowedBuckets: []models.Bucket{models.BucketOperating, models.BucketTax, models.BucketZakat},
		}
	case TierStandard:
		return Tier{
			Name:               name,
			AllowedBuckets:     []models.Bucket{models.BucketOperating, models.BucketTax, models.BucketZakat, models.BucketInvestment},
			CanDownloadReports: true,
		}
	}
	if name == "" {
		name = TierFree
	}
	all := make([]models.Bucket, len(models.AllBuckets))
	copy(all, models.AllBuckets)
	return Tier{Name: name, AllowedBuckets: all, CanDownloadReports: true}
}

// Restrict returns a copy of percentages with every bucket outside the tier
// zeroed, so stale values for buckets the plan no longer allows are ignored.
func (t Tier) Restrict(percentages models.Percentages) models.Percentages {
	out := percentages.Clone()
	for _, b := range models.AllBuckets {
		if !t.Allows(b) {
			out[b] = decimal.Zero
		}
	}
	return out
}
