package services

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "tabung/internal/errors"
	"tabung/internal/logger"
	"tabung/internal/models"
	"tabung/internal/pagination"
)

// approvalService drives the pending → approved|rejected state machine of
// organizer-link, location and rental-payment requests.
type approvalService struct {
	db       *gorm.DB
	resolver OrganizerResolver
	audit    AuditServicer
}

// NewApprovalService creates a new ApprovalServicer.
func NewApprovalService(db *gorm.DB, resolver OrganizerResolver, audit AuditServicer) ApprovalServicer {
	return &approvalService{db: db, resolver: resolver, audit: audit}
}

// RequestOrganizerLink asks organizerID to accept tenantID.
func (s *approvalService) RequestOrganizerLink(tenantID, organizerID string) (*models.OrganizerLinkRequest, error) {
	if err := requireUserWithRole(s.db, tenantID, models.RoleTenant, apperrors.ErrTenantNotFound); err != nil {
		return nil, err
	}
	if err := requireUserWithRole(s.db, organizerID, models.RoleOrganizer, apperrors.ErrOrganizerNotFound); err != nil {
		return nil, err
	}

	var count int64
	if err := s.db.Model(&models.OrganizerLinkRequest{}).
		Where("tenant_id = ? AND organizer_id = ? AND status IN ?",
			tenantID, organizerID, []models.Status{models.StatusPending, models.StatusApproved}).
		Count(&count).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if count > 0 {
		return nil, apperrors.ErrDuplicateRequest
	}

	req := &models.OrganizerLinkRequest{
		TenantID:    tenantID,
		OrganizerID: organizerID,
		Status:      models.StatusPending,
		RequestedAt: time.Now(),
	}
	if err := s.db.Create(req).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStoreWriteFailed, err)
	}
	return req, nil
}

// RequestLocation asks organizerID to assign locationRef to tenantID.
func (s *approvalService) RequestLocation(tenantID, organizerID, locationRef string) (*models.LocationRequest, error) {
	locationRef = strings.TrimSpace(locationRef)
	if locationRef == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "location_ref is required")
	}
	if err := requireUserWithRole(s.db, tenantID, models.RoleTenant, apperrors.ErrTenantNotFound); err != nil {
		return nil, err
	}
	if err := requireUserWithRole(s.db, organizerID, models.RoleOrganizer, apperrors.ErrOrganizerNotFound); err != nil {
		return nil, err
	}

	var count int64
	if err := s.db.Model(&models.LocationRequest{}).
		Where("tenant_id = ? AND organizer_id = ? AND location_ref = ? AND status = ?",
			tenantID, organizerID, locationRef, models.StatusPending).
		Count(&count).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if count > 0 {
		return nil, apperrors.ErrDuplicateRequest
	}

	req := &models.LocationRequest{
		TenantID:    tenantID,
		OrganizerID: organizerID,
		LocationRef: locationRef,
		Status:      models.StatusPending,
		IsActive:    true,
	}
	if err := s.db.Create(req).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStoreWriteFailed, err)
	}
	return req, nil
}

// SubmitPayment records a tenant's rental payment for organizer review.
func (s *approvalService) SubmitPayment(tenantID string, amount decimal.Decimal, method string, receiptRef *string) (*models.PaymentRequest, error) {
	amount = amount.Round(2)
	if !amount.IsPositive() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be greater than zero")
	}
	if !models.IsValidPaymentMethod(method) {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "unsupported payment method")
	}
	if err := requireUserWithRole(s.db, tenantID, models.RoleTenant, apperrors.ErrTenantNotFound); err != nil {
		return nil, err
	}

	req := &models.PaymentRequest{
		TenantID:      tenantID,
		Amount:        amount,
		PaymentMethod: method,
		ReceiptRef:    receiptRef,
		Status:        models.StatusPending,
	}
	if err := s.db.Create(req).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStoreWriteFailed, err)
	}
	return req, nil
}

// ActivateLocation moves an approved location to active once the tenant has
// chosen a rate category.
func (s *approvalService) ActivateLocation(tenantID, requestID, rateCategory string) (*models.LocationRequest, error) {
	rateCategory = strings.TrimSpace(rateCategory)
	if rateCategory == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "rate_category is required")
	}

	var loc models.LocationRequest
	if err := s.db.Where("id = ? AND tenant_id = ?", requestID, tenantID).First(&loc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrRequestNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if loc.Status != models.StatusApproved {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidStatusChange, "Only approved locations can be activated")
	}

	res := s.db.Model(&models.LocationRequest{}).
		Where("id = ? AND status = ?", loc.ID, models.StatusApproved).
		Updates(map[string]interface{}{
			"status":        models.StatusActive,
			"rate_category": rateCategory,
			"is_active":     true,
		})
	if res.Error != nil {
		return nil, apperrors.Wrap(apperrors.ErrStoreWriteFailed, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidStatusChange, "Only approved locations can be activated")
	}

	s.audit.Log(tenantID, AuditActionActivate, string(models.RequestKindLocation), loc.ID, "",
		map[string]interface{}{"rate_category": rateCategory})

	loc.Status = models.StatusActive
	loc.RateCategory = rateCategory
	loc.IsActive = true
	return &loc, nil
}

func listRequests[T any](q *gorm.DB, filter RequestFilter, page pagination.PageRequest) (*pagination.PageResponse[T], error) {
	page.Defaults()
	if filter.Status != nil {
		q = q.Where("status = ?", *filter.Status)
	}

	var totalItems int64
	if err := q.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var items []T
	if err := q.Order("created_at DESC").Scopes(pagination.Paginate(page)).Find(&items).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(items, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// scopeByParty restricts a link or location query to the requests the actor
// is a party to. Admins see everything.
func scopeByParty(q *gorm.DB, actor Actor) (*gorm.DB, error) {
	switch actor.Role {
	case models.RoleAdmin:
		return q, nil
	case models.RoleTenant:
		return q.Where("tenant_id = ?", actor.ID), nil
	case models.RoleOrganizer:
		return q.Where("organizer_id = ?", actor.ID), nil
	}
	return nil, apperrors.ErrForbidden
}

// ListOrganizerLinkRequests lists the organizer-link requests visible to actor.
func (s *approvalService) ListOrganizerLinkRequests(actor Actor, filter RequestFilter, page pagination.PageRequest) (*pagination.PageResponse[models.OrganizerLinkRequest], error) {
	q, err := scopeByParty(s.db.Model(&models.OrganizerLinkRequest{}), actor)
	if err != nil {
		return nil, err
	}
	return listRequests[models.OrganizerLinkRequest](q, filter, page)
}

// ListLocationRequests lists the location requests visible to actor.
func (s *approvalService) ListLocationRequests(actor Actor, filter RequestFilter, page pagination.PageRequest) (*pagination.PageResponse[models.LocationRequest], error) {
	q, err := scopeByParty(s.db.Model(&models.LocationRequest{}), actor)
	if err != nil {
		return nil, err
	}
	return listRequests[models.LocationRequest](q, filter, page)
}

// ListPaymentRequests lists the payment requests visible to actor. Organizers
// see payments of the tenants currently linked to them.
func (s *approvalService) ListPaymentRequests(actor Actor, filter RequestFilter, page pagination.PageRequest) (*pagination.PageResponse[models.PaymentRequest], error) {
	q := s.db.Model(&models.PaymentRequest{})
	switch actor.Role {
	case models.RoleAdmin:
	case models.RoleTenant:
		q = q.Where("tenant_id = ?", actor.ID)
	case models.RoleOrganizer:
		tenants, err := s.resolver.LinkedTenantIDs(actor.ID)
		if err != nil {
			return nil, err
		}
		if len(tenants) == 0 {
			page.Defaults()
			result := pagination.NewPageResponse[models.PaymentRequest](nil, page.Page, page.PageSize, 0)
			return &result, nil
		}
		q = q.Where("tenant_id IN ?", tenants)
	default:
		return nil, apperrors.ErrForbidden
	}
	return listRequests[models.PaymentRequest](q, filter, page)
}

// Approve moves a pending request to approved. Approving a payment also
// records the organizer's rent income in the same database transaction.
func (s *approvalService) Approve(actor Actor, kind models.RequestKind, id string) (*ApprovalResult, error) {
	if actor.Role != models.RoleOrganizer && actor.Role != models.RoleAdmin {
		return nil, apperrors.ErrForbidden
	}

	var (
		result *ApprovalResult
		err    error
	)
	switch kind {
	case models.RequestKindOrganizerLink:
		result, err = s.decideLink(actor, id, models.StatusApproved, "")
	case models.RequestKindLocation:
		result, err = s.decideLocation(actor, id, models.StatusApproved, "")
	case models.RequestKindPayment:
		result, err = s.approvePayment(actor, id)
	default:
		return nil, apperrors.ErrInvalidRequestKind
	}
	if err != nil {
		return nil, err
	}

	s.recordTransition(actor, AuditActionApprove, result, "")
	return result, nil
}

// Reject moves a pending request to rejected. No transaction is created.
func (s *approvalService) Reject(actor Actor, kind models.RequestKind, id, reason string) (*ApprovalResult, error) {
	if actor.Role != models.RoleOrganizer && actor.Role != models.RoleAdmin {
		return nil, apperrors.ErrForbidden
	}
	reason = strings.TrimSpace(reason)

	var (
		result *ApprovalResult
		err    error
	)
	switch kind {
	case models.RequestKindOrganizerLink:
		result, err = s.decideLink(actor, id, models.StatusRejected, reason)
	case models.RequestKindLocation:
		result, err = s.decideLocation(actor, id, models.StatusRejected, reason)
	case models.RequestKindPayment:
		result, err = s.rejectPayment(actor, id, reason)
	default:
		return nil, apperrors.ErrInvalidRequestKind
	}
	if err != nil {
		return nil, err
	}

	s.recordTransition(actor, AuditActionReject, result, reason)
	return result, nil
}

func (s *approvalService) recordTransition(actor Actor, action string, result *ApprovalResult, reason string) {
	details := map[string]interface{}{"status": result.Status}
	if reason != "" {
		details["reason"] = reason
	}
	if result.DerivedTransactionID != nil {
		details["derived_transaction_id"] = *result.DerivedTransactionID
	}
	s.audit.Log(actor.ID, action, string(result.Kind), result.ID, actor.IP, details)

	logger.Get().Infow("request decided",
		"kind", result.Kind,
		"id", result.ID,
		"status", result.Status,
		"actor_id", actor.ID,
		"actor_role", actor.Role,
	)
}

// decisionUpdates returns the column updates of a pending → to transition.
func decisionUpdates(to models.Status, reason string, now time.Time) map[string]interface{} {
	updates := map[string]interface{}{"status": to}
	if to == models.StatusApproved {
		updates["approved_at"] = now
	} else {
		updates["rejected_at"] = now
		updates["rejection_reason"] = reason
	}
	return updates
}

// transition applies updates to a pending row. Zero affected rows means a
// concurrent decision won.
func transition(db *gorm.DB, model interface{}, id string, updates map[string]interface{}) error {
	res := db.Model(model).Where("id = ? AND status = ?", id, models.StatusPending).Updates(updates)
	if res.Error != nil {
		return apperrors.Wrap(apperrors.ErrStoreWriteFailed, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrRequestNotPending
	}
	return nil
}

func findRequest(db *gorm.DB, dest interface{}, id string) error {
	if err := db.Where("id = ?", id).First(dest).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrRequestNotFound
		}
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

func authorizeOrganizer(actor Actor, organizerID string) error {
	if actor.Role == models.RoleAdmin || (actor.Role == models.RoleOrganizer && actor.ID == organizerID) {
		return nil
	}
	return apperrors.ErrForbidden
}

func (s *approvalService) decideLink(actor Actor, id string, to models.Status, reason string) (*ApprovalResult, error) {
	var link models.OrganizerLinkRequest
	if err := findRequest(s.db, &link, id); err != nil {
		return nil, err
	}
	if err := authorizeOrganizer(actor, link.OrganizerID); err != nil {
		return nil, err
	}
	if link.Status != models.StatusPending {
		return nil, apperrors.ErrRequestNotPending
	}

	if err := transition(s.db, &models.OrganizerLinkRequest{}, link.ID, decisionUpdates(to, reason, time.Now())); err != nil {
		return nil, err
	}
	return &ApprovalResult{Kind: models.RequestKindOrganizerLink, ID: link.ID, Status: to}, nil
}

func (s *approvalService) decideLocation(actor Actor, id string, to models.Status, reason string) (*ApprovalResult, error) {
	var loc models.LocationRequest
	if err := findRequest(s.db, &loc, id); err != nil {
		return nil, err
	}
	if err := authorizeOrganizer(actor, loc.OrganizerID); err != nil {
		return nil, err
	}
	if loc.Status != models.StatusPending {
		return nil, apperrors.ErrRequestNotPending
	}

	updates := decisionUpdates(to, reason, time.Now())
	updates["is_active"] = to == models.StatusApproved
	if err := transition(s.db, &models.LocationRequest{}, loc.ID, updates); err != nil {
		return nil, err
	}
	return &ApprovalResult{Kind: models.RequestKindLocation, ID: loc.ID, Status: to}, nil
}

// resolvePaymentParties loads the tenant and organizer of a payment. It
// performs no writes so an unresolved organizer fails closed.
func resolvePaymentParties(db *gorm.DB, resolver OrganizerResolver, payment *models.PaymentRequest) (*models.User, string, error) {
	organizerID, err := resolver.ResolveOrganizerForTenant(payment.TenantID)
	if err != nil {
		return nil, "", err
	}
	var tenant models.User
	if err := db.Where("id = ?", payment.TenantID).First(&tenant).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", apperrors.ErrTenantNotFound
		}
		return nil, "", apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &tenant, organizerID, nil
}

func (s *approvalService) approvePayment(actor Actor, id string) (*ApprovalResult, error) {
	var payment models.PaymentRequest
	if err := findRequest(s.db, &payment, id); err != nil {
		return nil, err
	}
	if payment.Status != models.StatusPending {
		return nil, apperrors.ErrRequestNotPending
	}

	tenant, organizerID, err := resolvePaymentParties(s.db, s.resolver, &payment)
	if err != nil {
		logger.Get().Warnw("payment approval blocked",
			"payment_id", payment.ID,
			"tenant_id", payment.TenantID,
			"error", err,
		)
		return nil, err
	}
	if err := authorizeOrganizer(actor, organizerID); err != nil {
		return nil, err
	}

	var derived *models.Transaction
	err = s.db.Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		updates := decisionUpdates(models.StatusApproved, "", now)
		updates["approved_by"] = actor.ID
		if err := transition(tx, &models.PaymentRequest{}, payment.ID, updates); err != nil {
			return err
		}

		var txErr error
		derived, txErr = recordDerivedTransaction(tx, &payment, tenant, organizerID)
		return txErr
	})
	if err != nil {
		return nil, err
	}

	return &ApprovalResult{
		Kind:                 models.RequestKindPayment,
		ID:                   payment.ID,
		Status:               models.StatusApproved,
		DerivedTransactionID: &derived.ID,
	}, nil
}

func (s *approvalService) rejectPayment(actor Actor, id, reason string) (*ApprovalResult, error) {
	var payment models.PaymentRequest
	if err := findRequest(s.db, &payment, id); err != nil {
		return nil, err
	}
	if payment.Status != models.StatusPending {
		return nil, apperrors.ErrRequestNotPending
	}

	if actor.Role != models.RoleAdmin {
		organizerID, err := s.resolver.ResolveOrganizerForTenant(payment.TenantID)
		if err != nil {
			return nil, err
		}
		if err := authorizeOrganizer(actor, organizerID); err != nil {
			return nil, err
		}
	}

	if err := transition(s.db, &models.PaymentRequest{}, payment.ID, decisionUpdates(models.StatusRejected, reason, time.Now())); err != nil {
		return nil, err
	}
	return &ApprovalResult{Kind: models.RequestKindPayment, ID: payment.ID, Status: models.StatusRejected}, nil
}

// newDerivedTransaction builds the organizer's rent income for an approved payment.
func newDerivedTransaction(payment *models.PaymentRequest, tenant *models.User, organizerID string) *models.Transaction {
	paymentRef := payment.ID
	return &models.Transaction{
		Perspective:   models.PerspectiveOrganizer,
		OwnerID:       organizerID,
		Description:   "rent payment from " + tenant.DisplayName(),
		Category:      models.RentCategory,
		Amount:        payment.Amount,
		Type:          models.TransactionTypeIncome,
		Status:        models.StatusApproved,
		Date:          today(),
		ReceiptRef:    payment.ReceiptRef,
		IsRentPayment: true,
		Metadata: map[string]string{
			"tenant_ref":     tenant.ID,
			"payment_ref":    payment.ID,
			"payment_method": payment.PaymentMethod,
		},
		PaymentRef: &paymentRef,
	}
}

// recordDerivedTransaction writes the derived transaction of payment and links
// it back from the payment. It must run inside tx.
func recordDerivedTransaction(tx *gorm.DB, payment *models.PaymentRequest, tenant *models.User, organizerID string) (*models.Transaction, error) {
	derived := newDerivedTransaction(payment, tenant, organizerID)
	if err := tx.Create(derived).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStoreWriteFailed, err)
	}
	if err := tx.Model(&models.PaymentRequest{}).
		Where("id = ?", payment.ID).
		Update("ledger_transaction_id", derived.ID).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStoreWriteFailed, err)
	}
	return derived, nil
}
