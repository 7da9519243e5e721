package services

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "tabung/internal/errors"
	"tabung/internal/ledger"
	"tabung/internal/logger"
	"tabung/internal/models"
)

var maxPercent = decimal.NewFromInt(100)

// allocationService handles the per-account allocation config.
type allocationService struct {
	db    *gorm.DB
	plans PlanResolver
}

// NewAllocationService creates a new AllocationConfigServicer.
func NewAllocationService(db *gorm.DB, plans PlanResolver) AllocationConfigServicer {
	return &allocationService{db: db, plans: plans}
}

func (s *allocationService) tierOf(accountID string) (ledger.Tier, error) {
	plan, err := s.plans.ResolvePlanTier(accountID)
	if err != nil {
		return ledger.Tier{}, err
	}
	return ledger.ResolveTier(plan), nil
}

// loadConfig returns the stored config of accountID, or nil when none was saved.
func loadConfig(db *gorm.DB, accountID string) (*models.AllocationConfig, error) {
	var cfg models.AllocationConfig
	if err := db.Where("account_id = ?", accountID).First(&cfg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &cfg, nil
}

// GetConfig returns the account's config, or an unsaved all-zero default.
func (s *allocationService) GetConfig(accountID string) (*AllocationSettings, error) {
	tier, err := s.tierOf(accountID)
	if err != nil {
		return nil, err
	}

	cfg, err := loadConfig(s.db, accountID)
	if err != nil {
		return nil, err
	}
	saved := cfg != nil
	if !saved {
		cfg = &models.AllocationConfig{AccountID: accountID}
	}
	cfg.Percentages = cfg.Percentages.Clone()
	if cfg.BankNames == nil {
		cfg.BankNames = map[models.Bucket]string{}
	}

	sum, _ := ledger.ValidateTotal(cfg.Percentages, tier.AllowedBuckets)
	return &AllocationSettings{Config: cfg, Tier: tier, Total: sum, Saved: saved}, nil
}

func validatePercentages(percentages models.Percentages) error {
	for b, pct := range percentages {
		if !b.IsValid() {
			return apperrors.WithMessage(apperrors.ErrInvalidInput, fmt.Sprintf("unknown bucket %q", b))
		}
		if pct.IsNegative() || pct.GreaterThan(maxPercent) {
			return apperrors.WithMessage(apperrors.ErrInvalidInput, fmt.Sprintf("percentage for %s must be between 0 and 100", b))
		}
	}
	return nil
}

// SaveConfig validates the percentages against the account's live tier and
// upserts the config. Nothing is written when validation fails. Stored values
// for buckets outside the tier are kept as given and ignored at read time.
func (s *allocationService) SaveConfig(accountID string, percentages models.Percentages, bankNames map[models.Bucket]string) (*AllocationSettings, error) {
	if err := validatePercentages(percentages); err != nil {
		return nil, err
	}
	for b := range bankNames {
		if !b.IsValid() {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, fmt.Sprintf("unknown bucket %q", b))
		}
	}

	tier, err := s.tierOf(accountID)
	if err != nil {
		return nil, err
	}

	sum, ok := ledger.ValidateTotal(percentages, tier.AllowedBuckets)
	if !ok {
		return nil, apperrors.WithMessage(apperrors.ErrAllocationTotalInvalid,
			fmt.Sprintf("Allocation percentages must sum to 100, got %s", sum.StringFixed(1)))
	}

	if bankNames == nil {
		bankNames = map[models.Bucket]string{}
	}
	cfg := &models.AllocationConfig{
		AccountID:   accountID,
		Percentages: percentages.Clone(),
		BankNames:   bankNames,
	}

	if err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "account_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"percentages", "bank_names", "updated_at"}),
	}).Create(cfg).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStoreWriteFailed, err)
	}

	stored, err := loadConfig(s.db, accountID)
	if err != nil {
		return nil, err
	}

	logger.Get().Infow("allocation config saved", "account_id", accountID, "tier", tier.Name, "total", sum.String())
	return &AllocationSettings{Config: stored, Tier: tier, Total: sum, Saved: true}, nil
}

// AutoAdjust scales the allowed buckets of percentages to sum to 100 under
// the account's tier. The result is not saved.
func (s *allocationService) AutoAdjust(accountID string, percentages models.Percentages) (*AllocationSettings, error) {
	if err := validatePercentages(percentages); err != nil {
		return nil, err
	}

	tier, err := s.tierOf(accountID)
	if err != nil {
		return nil, err
	}

	adjusted, err := ledger.AutoAdjust(percentages, tier.AllowedBuckets)
	if err != nil {
		if errors.Is(err, ledger.ErrZeroSum) {
			return nil, apperrors.ErrAllocationSumZero
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	sum, _ := ledger.ValidateTotal(adjusted, tier.AllowedBuckets)
	cfg := &models.AllocationConfig{AccountID: accountID, Percentages: adjusted}
	return &AllocationSettings{Config: cfg, Tier: tier, Total: sum}, nil
}
