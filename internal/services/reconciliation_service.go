package services

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	apperrors "tabung/internal/errors"
	"tabung/internal/logger"
	"tabung/internal/models"
	"tabung/internal/pagination"
)

// ReconcileActorID is the audit actor of reconciliation repairs.
const ReconcileActorID = "system:reconcile"

const defaultReconcileLimit = 100

// reconciliationService finds approved payments whose derived transaction is
// missing and creates it.
type reconciliationService struct {
	db       *gorm.DB
	resolver OrganizerResolver
	audit    AuditServicer
}

// NewReconciliationService creates a new ReconciliationServicer.
func NewReconciliationService(db *gorm.DB, resolver OrganizerResolver, audit AuditServicer) ReconciliationServicer {
	return &reconciliationService{db: db, resolver: resolver, audit: audit}
}

// unreconciled selects approved payments with no transaction carrying their id
// as payment_ref.
func unreconciled(db *gorm.DB) *gorm.DB {
	return db.Model(&models.PaymentRequest{}).
		Where("payment_requests.status = ?", models.StatusApproved).
		Where("NOT EXISTS (SELECT 1 FROM transactions WHERE transactions.payment_ref = payment_requests.id)")
}

// scopeToOwner narrows q to the payments belonging to a ledger owner. ok is
// false when the owner cannot have any payments.
func (s *reconciliationService) scopeToOwner(q *gorm.DB, perspective models.Perspective, ownerID string) (*gorm.DB, bool, error) {
	switch perspective {
	case models.PerspectiveTenant:
		return q.Where("tenant_id = ?", ownerID), true, nil
	case models.PerspectiveOrganizer:
		tenants, err := s.resolver.LinkedTenantIDs(ownerID)
		if err != nil {
			return nil, false, err
		}
		if len(tenants) == 0 {
			return q, false, nil
		}
		return q.Where("tenant_id IN ?", tenants), true, nil
	}
	return nil, false, apperrors.WithMessage(apperrors.ErrInvalidInput, "unknown perspective")
}

// FindUnreconciled lists unreconciled payments, oldest approval first. An
// empty organizerID lists all of them.
func (s *reconciliationService) FindUnreconciled(organizerID string, page pagination.PageRequest) (*pagination.PageResponse[models.PaymentRequest], error) {
	page.Defaults()

	q := unreconciled(s.db)
	if organizerID != "" {
		var ok bool
		var err error
		q, ok, err = s.scopeToOwner(q, models.PerspectiveOrganizer, organizerID)
		if err != nil {
			return nil, err
		}
		if !ok {
			result := pagination.NewPageResponse[models.PaymentRequest](nil, page.Page, page.PageSize, 0)
			return &result, nil
		}
	}

	var totalItems int64
	if err := q.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var payments []models.PaymentRequest
	if err := q.Order("approved_at ASC").Scopes(pagination.Paginate(page)).Find(&payments).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(payments, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// CountUnreconciled counts the unreconciled payments touching a ledger.
func (s *reconciliationService) CountUnreconciled(perspective models.Perspective, ownerID string) (int64, error) {
	q, ok, err := s.scopeToOwner(unreconciled(s.db), perspective, ownerID)
	if err != nil || !ok {
		return 0, err
	}

	var count int64
	if err := q.Count(&count).Error; err != nil {
		return 0, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return count, nil
}

// Reconcile repairs up to limit unreconciled payments. A payment that cannot
// be repaired is reported in the result and does not stop the run.
func (s *reconciliationService) Reconcile(ctx context.Context, limit int) (*RunResult, error) {
	start := time.Now()
	log := logger.Get()
	if limit <= 0 {
		limit = defaultReconcileLimit
	}

	var payments []models.PaymentRequest
	if err := unreconciled(s.db.WithContext(ctx)).
		Order("approved_at ASC").
		Limit(limit).
		Find(&payments).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := &RunResult{Scanned: len(payments), Failed: []ReconcileFailure{}}
	for i := range payments {
		if err := ctx.Err(); err != nil {
			result.Duration = time.Since(start)
			return result, err
		}

		payment := &payments[i]
		derived, err := s.repair(ctx, payment)
		if err != nil {
			failure := ReconcileFailure{PaymentID: payment.ID, Code: apperrors.ErrInternalServer.Code, Message: err.Error()}
			var appErr *apperrors.AppError
			if errors.As(err, &appErr) {
				failure.Code = appErr.Code
				failure.Message = appErr.Message
			}
			result.Failed = append(result.Failed, failure)
			log.Warnw("payment reconciliation failed", "payment_id", payment.ID, "code", failure.Code, "error", err)
			continue
		}
		if derived == nil {
			continue
		}

		result.Repaired++
		s.audit.Log(ReconcileActorID, AuditActionReconcile, string(models.RequestKindPayment), payment.ID, "",
			map[string]interface{}{"derived_transaction_id": derived.ID})
	}

	result.Duration = time.Since(start)
	log.Infow("reconciliation finished",
		"scanned", result.Scanned,
		"repaired", result.Repaired,
		"failed", len(result.Failed),
		"duration_ms", result.Duration.Milliseconds(),
	)
	return result, nil
}

// repair creates the derived transaction of one payment. It returns nil, nil
// when a concurrent writer already created it.
func (s *reconciliationService) repair(ctx context.Context, payment *models.PaymentRequest) (*models.Transaction, error) {
	tenant, organizerID, err := resolvePaymentParties(s.db.WithContext(ctx), s.resolver, payment)
	if err != nil {
		return nil, err
	}

	var derived *models.Transaction
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var txErr error
		derived, txErr = recordDerivedTransaction(tx, payment, tenant, organizerID)
		return txErr
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return derived, nil
}
