package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"tabung/internal/models"
)

func TestResolveTier(t *testing.T) {
	tests := []struct {
		plan         string
		wantName     string
		wantBuckets  int
		wantDownload bool
	}{
		{"premium", "premium", 3, false},
		{"Premium", "premium", 3, false},
		{"standard", "standard", 4, true},
		{" STANDARD ", "standard", 4, true},
		{"", "free", 7, true},
		{"free", "free", 7, true},
		{"enterprise", "enterprise", 7, true},
	}

	for _, tt := range tests {
		t.Run(tt.plan, func(t *testing.T) {
			tier := ResolveTier(tt.plan)
			assert.Equal(t, tt.wantName, tier.Name)
			assert.Len(t, tier.AllowedBuckets, tt.wantBuckets)
			assert.Equal(t, tt.wantDownload, tier.CanDownloadReports)
		})
	}
}

func TestResolveTier_BucketSets(t *testing.T) {
	assert.Equal(t,
		[]models.Bucket{models.BucketOperating, models.BucketTax, models.BucketZakat},
		ResolveTier(TierPremium).AllowedBuckets)
	assert.Equal(t,
		[]models.Bucket{models.BucketOperating, models.BucketTax, models.BucketZakat, models.BucketInvestment},
		ResolveTier(TierStandard).AllowedBuckets)
	assert.Equal(t, models.AllBuckets, ResolveTier(TierFree).AllowedBuckets)
}

func TestResolveTier_Monotonic(t *testing.T) {
	premium := ResolveTier(TierPremium)
	standard := ResolveTier(TierStandard)
	full := ResolveTier("")

	for _, b := range premium.AllowedBuckets {
		assert.True(t, standard.Allows(b), "standard should allow %s", b)
	}
	for _, b := range standard.AllowedBuckets {
		assert.True(t, full.Allows(b), "full tier should allow %s", b)
	}
}

func TestResolveTier_ReturnsCopy(t *testing.T) {
	tier := ResolveTier("")
	tier.AllowedBuckets[0] = models.BucketEmergency
	assert.Equal(t, models.BucketOperating, models.AllBuckets[0])
}

func TestTier_Restrict(t *testing.T) {
	premium := ResolveTier(TierPremium)

	out := premium.Restrict(examplePercentages())

	assertDec(t, "60", out[models.BucketOperating])
	assertDec(t, "10", out[models.BucketTax])
	assertDec(t, "2.5", out[models.BucketZakat])
	assertDec(t, "0", out[models.BucketInvestment])
	assertDec(t, "0", out[models.BucketDividend])
	assertDec(t, "0", out[models.BucketSavings])
	assertDec(t, "0", out[models.BucketEmergency])

	restricted := premium.Restrict(nil)
	assert.Len(t, restricted, len(models.AllBuckets))
}
