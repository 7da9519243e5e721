package services

import (
	"testing"

	"github.com/shopspring/decimal"

	"tabung/internal/models"
	"tabung/internal/testutil"
)

func pcts(values map[models.Bucket]string) models.Percentages {
	out := models.Percentages{}
	for b, v := range values {
		out[b] = decimal.RequireFromString(v)
	}
	return out
}

func TestGetAllocationConfig(t *testing.T) {
	t.Run("default_when_unsaved", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAllocationService(db, NewPlanResolver(db))
		user := testutil.CreateTestUser(t, db, models.RoleOrganizer)

		settings, err := svc.GetConfig(user.ID)
		testutil.AssertNoError(t, err)
		if settings.Saved {
			t.Error("expected unsaved default")
		}
		if len(settings.Config.Percentages) != len(models.AllBuckets) {
			t.Errorf("expected every bucket, got %d", len(settings.Config.Percentages))
		}
		testutil.AssertDecimal(t, "0", settings.Total)
		if len(settings.Tier.AllowedBuckets) != 7 {
			t.Errorf("expected full tier, got %v", settings.Tier.AllowedBuckets)
		}
	})

	t.Run("unknown_account", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAllocationService(db, NewPlanResolver(db))

		_, err := svc.GetConfig("00000000-0000-0000-0000-000000000000")
		testutil.AssertAppError(t, err, "USER_NOT_FOUND")
	})
}

func TestSaveAllocationConfig(t *testing.T) {
	t.Run("valid_then_overwrite", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAllocationService(db, NewPlanResolver(db))
		user := testutil.CreateTestUser(t, db, models.RoleOrganizer)

		_, err := svc.SaveConfig(user.ID, pcts(map[models.Bucket]string{
			models.BucketOperating: "60", models.BucketTax: "10", models.BucketZakat: "2.5",
			models.BucketInvestment: "10", models.BucketDividend: "10", models.BucketSavings: "4",
			models.BucketEmergency: "3.5",
		}), map[models.Bucket]string{models.BucketTax: "Maybank"})
		testutil.AssertNoError(t, err)

		settings, err := svc.SaveConfig(user.ID, pcts(map[models.Bucket]string{models.BucketOperating: "100"}), nil)
		testutil.AssertNoError(t, err)
		testutil.AssertDecimal(t, "100", settings.Config.Percentages.Get(models.BucketOperating))
		testutil.AssertDecimal(t, "0", settings.Config.Percentages.Get(models.BucketTax))

		var count int64
		db.Model(&models.AllocationConfig{}).Where("account_id = ?", user.ID).Count(&count)
		if count != 1 {
			t.Errorf("expected a single config row, got %d", count)
		}

		got, err := svc.GetConfig(user.ID)
		testutil.AssertNoError(t, err)
		if !got.Saved {
			t.Error("expected saved config")
		}
	})

	t.Run("within_tolerance", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAllocationService(db, NewPlanResolver(db))
		user := testutil.CreateTestUser(t, db, models.RoleOrganizer)

		_, err := svc.SaveConfig(user.ID, pcts(map[models.Bucket]string{
			models.BucketOperating: "33.3", models.BucketTax: "33.3", models.BucketZakat: "33.3",
		}), nil)
		testutil.AssertNoError(t, err)
	})

	t.Run("invalid_total_not_saved", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAllocationService(db, NewPlanResolver(db))
		user := testutil.CreateTestUser(t, db, models.RoleOrganizer)

		_, err := svc.SaveConfig(user.ID, pcts(map[models.Bucket]string{models.BucketOperating: "90"}), nil)
		testutil.AssertAppError(t, err, "ALLOCATION_TOTAL_INVALID")

		var count int64
		db.Model(&models.AllocationConfig{}).Count(&count)
		if count != 0 {
			t.Errorf("expected nothing saved, got %d rows", count)
		}
	})

	t.Run("premium_ignores_other_buckets", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAllocationService(db, NewPlanResolver(db))
		user := testutil.CreateTestUserWithPlan(t, db, "premium@test.com", models.RoleOrganizer, "premium")

		// Savings is outside the premium tier and does not count toward the total.
		_, err := svc.SaveConfig(user.ID, pcts(map[models.Bucket]string{
			models.BucketOperating: "80", models.BucketTax: "15", models.BucketZakat: "5", models.BucketSavings: "50",
		}), nil)
		testutil.AssertNoError(t, err)
	})

	t.Run("out_of_range", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAllocationService(db, NewPlanResolver(db))
		user := testutil.CreateTestUser(t, db, models.RoleOrganizer)

		_, err := svc.SaveConfig(user.ID, pcts(map[models.Bucket]string{models.BucketOperating: "120"}), nil)
		testutil.AssertAppError(t, err, "INVALID_INPUT")

		_, err = svc.SaveConfig(user.ID, pcts(map[models.Bucket]string{"crypto": "100"}), nil)
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})
}

func TestAutoAdjustAllocation(t *testing.T) {
	t.Run("scales_premium_buckets", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAllocationService(db, NewPlanResolver(db))
		user := testutil.CreateTestUserWithPlan(t, db, "premium@test.com", models.RoleOrganizer, "premium")

		settings, err := svc.AutoAdjust(user.ID, pcts(map[models.Bucket]string{
			models.BucketOperating: "50", models.BucketTax: "30", models.BucketZakat: "30",
		}))
		testutil.AssertNoError(t, err)
		testutil.AssertDecimal(t, "45.5", settings.Config.Percentages.Get(models.BucketOperating))
		testutil.AssertDecimal(t, "27.3", settings.Config.Percentages.Get(models.BucketTax))
		testutil.AssertDecimal(t, "27.2", settings.Config.Percentages.Get(models.BucketZakat))
		testutil.AssertDecimal(t, "100", settings.Total)

		var count int64
		db.Model(&models.AllocationConfig{}).Count(&count)
		if count != 0 {
			t.Errorf("auto-adjust must not save, got %d rows", count)
		}
	})

	t.Run("adjusted_output_saves", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAllocationService(db, NewPlanResolver(db))
		user := testutil.CreateTestUserWithPlan(t, db, "premium2@test.com", models.RoleOrganizer, "premium")

		settings, err := svc.AutoAdjust(user.ID, pcts(map[models.Bucket]string{
			models.BucketOperating: "33.35", models.BucketTax: "66.65", models.BucketZakat: "0",
		}))
		testutil.AssertNoError(t, err)
		testutil.AssertDecimal(t, "0", settings.Config.Percentages.Get(models.BucketZakat))

		saved, err := svc.SaveConfig(user.ID, settings.Config.Percentages, nil)
		testutil.AssertNoError(t, err)
		testutil.AssertDecimal(t, "100", saved.Total)
	})

	t.Run("zero_sum", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAllocationService(db, NewPlanResolver(db))
		user := testutil.CreateTestUser(t, db, models.RoleOrganizer)

		_, err := svc.AutoAdjust(user.ID, models.Percentages{})
		testutil.AssertAppError(t, err, "ALLOCATION_SUM_ZERO")
	})
}
