package services

import (
	"time"

	"gorm.io/gorm"

	apperrors "tabung/internal/errors"
	"tabung/internal/ledger"
	"tabung/internal/models"
)

// reportService composes allocation reports from the transaction store, the
// allocation config and the live plan tier.
type reportService struct {
	db             *gorm.DB
	transactions   TransactionServicer
	plans          PlanResolver
	reconciliation ReconciliationServicer
}

// NewReportService creates a new ReportServicer.
func NewReportService(db *gorm.DB, transactions TransactionServicer, plans PlanResolver, reconciliation ReconciliationServicer) ReportServicer {
	return &reportService{
		db:             db,
		transactions:   transactions,
		plans:          plans,
		reconciliation: reconciliation,
	}
}

// ledgerFor picks the ledger a viewer may report on. Tenants and organizers
// see their own; admins must name one.
func ledgerFor(viewer Actor, perspective models.Perspective, ownerID string) (models.Perspective, string, error) {
	if viewer.Role == models.RoleAdmin {
		if !validPerspective(perspective) || ownerID == "" {
			return "", "", apperrors.WithMessage(apperrors.ErrInvalidInput, "perspective and owner_id are required")
		}
		return perspective, ownerID, nil
	}

	own, ok := viewer.Role.Perspective()
	if !ok {
		return "", "", apperrors.ErrForbidden
	}
	if (perspective != "" && perspective != own) || (ownerID != "" && ownerID != viewer.ID) {
		return "", "", apperrors.ErrForbidden
	}
	return own, viewer.ID, nil
}

// GetReport computes the allocation report of a ledger. The viewer's role
// decides which statuses count; the owner's plan decides which buckets apply.
func (s *reportService) GetReport(viewer Actor, perspective models.Perspective, ownerID string) (*AllocationReport, error) {
	perspective, ownerID, err := ledgerFor(viewer, perspective, ownerID)
	if err != nil {
		return nil, err
	}

	plan, err := s.plans.ResolvePlanTier(ownerID)
	if err != nil {
		return nil, err
	}
	tier := ledger.ResolveTier(plan)

	transactions, err := s.transactions.FetchTransactions(perspective, ownerID)
	if err != nil {
		return nil, err
	}

	cfg, err := loadConfig(s.db, ownerID)
	if err != nil {
		return nil, err
	}

	unreconciled, err := s.reconciliation.CountUnreconciled(perspective, ownerID)
	if err != nil {
		return nil, err
	}

	return &AllocationReport{
		Report:               ledger.ComputeReport(transactions, cfg, viewer.Role, tier),
		OwnerID:              ownerID,
		Perspective:          perspective,
		UnreconciledPayments: unreconciled,
		GeneratedAt:          time.Now().UTC(),
	}, nil
}

// ExportReport is GetReport for downloads, which the tier may forbid.
func (s *reportService) ExportReport(viewer Actor, perspective models.Perspective, ownerID string) (*AllocationReport, error) {
	report, err := s.GetReport(viewer, perspective, ownerID)
	if err != nil {
		return nil, err
	}
	if !report.Tier.CanDownloadReports {
		return nil, apperrors.ErrReportDownloadForbidden
	}
	return report, nil
}
