package services

import (
	"errors"
	"sort"
	"time"

	"gorm.io/gorm"

	apperrors "tabung/internal/errors"
	"tabung/internal/models"
	"tabung/internal/pagination"
)

// transactionService handles transaction-related business logic.
type transactionService struct {
	db       *gorm.DB
	resolver OrganizerResolver
}

// NewTransactionService creates a new TransactionServicer.
func NewTransactionService(db *gorm.DB, resolver OrganizerResolver) TransactionServicer {
	return &transactionService{
		db:       db,
		resolver: resolver,
	}
}

func validPerspective(p models.Perspective) bool {
	return p == models.PerspectiveTenant || p == models.PerspectiveOrganizer
}

func validTransactionType(t models.TransactionType) bool {
	return t == models.TransactionTypeIncome || t == models.TransactionTypeExpense
}

// today returns the current UTC calendar date.
func today() time.Time {
	return time.Now().UTC().Truncate(24 * time.Hour)
}

// CreateTransaction records a transaction in the owner's ledger. Tenant
// entries start pending until the organizer reviews them; organizer entries
// are approved immediately.
func (s *transactionService) CreateTransaction(perspective models.Perspective, ownerID string, in TransactionInput) (*models.Transaction, error) {
	if !validPerspective(perspective) || ownerID == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "a valid perspective and owner are required")
	}
	if in.Amount.IsNegative() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must not be negative")
	}
	if !validTransactionType(in.Type) {
		return nil, apperrors.ErrInvalidTransactionType
	}

	date := in.Date
	if date.IsZero() {
		date = today()
	}

	status := models.StatusApproved
	if perspective == models.PerspectiveTenant {
		status = models.StatusPending
	}

	transaction := &models.Transaction{
		Perspective: perspective,
		OwnerID:     ownerID,
		Description: in.Description,
		Category:    in.Category,
		Amount:      in.Amount.Round(2),
		Type:        in.Type,
		Status:      status,
		Date:        date,
		ReceiptRef:  in.ReceiptRef,
		Metadata:    in.Metadata,
	}

	if err := s.db.Create(transaction).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStoreWriteFailed, err)
	}
	return transaction, nil
}

// GetTransactions retrieves a paginated, filtered list of the owner's transactions, newest first.
func (s *transactionService) GetTransactions(perspective models.Perspective, ownerID string, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error) {
	page.Defaults()

	base := s.db.Model(&models.Transaction{}).Where("perspective = ? AND owner_id = ?", perspective, ownerID)
	base = applyTransactionFilters(base, filter)

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var transactions []models.Transaction
	if err := base.Scopes(pagination.Paginate(page)).
		Order("date DESC").
		Order("created_at DESC").
		Find(&transactions).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(transactions, page.Page, page.PageSize, totalItems)
	return &result, nil
}

func applyTransactionFilters(q *gorm.DB, f TransactionFilter) *gorm.DB {
	if f.FromDate != nil {
		q = q.Where("date >= ?", *f.FromDate)
	}
	if f.ToDate != nil {
		q = q.Where("date <= ?", *f.ToDate)
	}
	if f.Type != nil {
		q = q.Where("type = ?", *f.Type)
	}
	if f.Status != nil {
		q = q.Where("status = ?", *f.Status)
	}
	if f.Category != nil {
		q = q.Where("category = ?", *f.Category)
	}
	return q
}

// FetchTransactions returns every transaction of the owner's ledger in date
// order. It is the read path of the allocation report. A tenant ledger also
// carries its rent payments, projected from the payment requests rather than
// stored twice.
func (s *transactionService) FetchTransactions(perspective models.Perspective, ownerID string) ([]models.Transaction, error) {
	var transactions []models.Transaction
	if err := s.db.Where("perspective = ? AND owner_id = ?", perspective, ownerID).
		Order("date ASC").
		Order("created_at ASC").
		Find(&transactions).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if perspective != models.PerspectiveTenant {
		return transactions, nil
	}

	var payments []models.PaymentRequest
	if err := s.db.Where("tenant_id = ? AND status <> ?", ownerID, models.StatusRejected).
		Order("created_at ASC").
		Find(&payments).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if len(payments) == 0 {
		return transactions, nil
	}
	for i := range payments {
		transactions = append(transactions, tenantRentProjection(&payments[i]))
	}
	sort.SliceStable(transactions, func(i, j int) bool {
		return transactions[i].Date.Before(transactions[j].Date)
	})
	return transactions, nil
}

// tenantRentProjection is the tenant's view of a rent payment: an expense
// that follows the payment's status.
func tenantRentProjection(payment *models.PaymentRequest) models.Transaction {
	paymentRef := payment.ID
	date := payment.CreatedAt
	if payment.ApprovedAt != nil {
		date = *payment.ApprovedAt
	}
	return models.Transaction{
		Base:          models.Base{ID: payment.ID, CreatedAt: payment.CreatedAt, UpdatedAt: payment.UpdatedAt},
		Perspective:   models.PerspectiveTenant,
		OwnerID:       payment.TenantID,
		Description:   "rent payment",
		Category:      models.RentCategory,
		Amount:        payment.Amount,
		Type:          models.TransactionTypeExpense,
		Status:        payment.Status,
		Date:          date.UTC().Truncate(24 * time.Hour),
		ReceiptRef:    payment.ReceiptRef,
		IsRentPayment: true,
		Metadata:      map[string]string{"payment_ref": payment.ID, "payment_method": payment.PaymentMethod},
		PaymentRef:    &paymentRef,
	}
}

// GetTransactionByID retrieves a transaction from the owner's ledger.
func (s *transactionService) GetTransactionByID(perspective models.Perspective, ownerID, transactionID string) (*models.Transaction, error) {
	var transaction models.Transaction
	if err := s.db.Where("id = ? AND perspective = ? AND owner_id = ?", transactionID, perspective, ownerID).
		First(&transaction).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTransactionNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &transaction, nil
}

// UpdateTransaction edits the fields of a transaction. Status is changed
// only through SetTransactionStatus.
func (s *transactionService) UpdateTransaction(perspective models.Perspective, ownerID, transactionID string, upd TransactionUpdate) (*models.Transaction, error) {
	transaction, err := s.GetTransactionByID(perspective, ownerID, transactionID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if upd.Description != nil {
		updates["description"] = *upd.Description
	}
	if upd.Category != nil {
		updates["category"] = *upd.Category
	}
	if upd.Amount != nil {
		if upd.Amount.IsNegative() {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must not be negative")
		}
		updates["amount"] = upd.Amount.Round(2)
	}
	if upd.Type != nil {
		if !validTransactionType(*upd.Type) {
			return nil, apperrors.ErrInvalidTransactionType
		}
		updates["type"] = *upd.Type
	}
	if upd.Date != nil {
		updates["date"] = *upd.Date
	}
	if upd.ReceiptRef != nil {
		updates["receipt_ref"] = *upd.ReceiptRef
	}

	if len(updates) == 0 {
		return transaction, nil
	}

	if err := s.db.Model(transaction).Updates(updates).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStoreWriteFailed, err)
	}

	return s.GetTransactionByID(perspective, ownerID, transactionID)
}

// DeleteTransaction hard-deletes a transaction. Transactions derived from an
// approved payment stay, otherwise reconciliation would recreate them.
func (s *transactionService) DeleteTransaction(perspective models.Perspective, ownerID, transactionID string) error {
	transaction, err := s.GetTransactionByID(perspective, ownerID, transactionID)
	if err != nil {
		return err
	}
	if transaction.PaymentRef != nil {
		return apperrors.ErrDerivedTransaction
	}

	if err := s.db.Delete(&models.Transaction{}, "id = ?", transaction.ID).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrStoreWriteFailed, err)
	}
	return nil
}

// SetTransactionStatus moves a pending tenant transaction to approved or
// rejected. Only the tenant's organizer or an admin may review it.
func (s *transactionService) SetTransactionStatus(actor Actor, transactionID string, status models.Status) (*models.Transaction, error) {
	if status != models.StatusApproved && status != models.StatusRejected {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "status must be approved or rejected")
	}

	var transaction models.Transaction
	if err := s.db.Where("id = ?", transactionID).First(&transaction).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTransactionNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if err := s.authorizeReview(actor, &transaction); err != nil {
		return nil, err
	}
	if transaction.Status != models.StatusPending {
		return nil, apperrors.ErrInvalidStatusChange
	}

	res := s.db.Model(&models.Transaction{}).
		Where("id = ? AND status = ?", transaction.ID, models.StatusPending).
		Update("status", status)
	if res.Error != nil {
		return nil, apperrors.Wrap(apperrors.ErrStoreWriteFailed, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, apperrors.ErrInvalidStatusChange
	}

	transaction.Status = status
	return &transaction, nil
}

func (s *transactionService) authorizeReview(actor Actor, transaction *models.Transaction) error {
	switch actor.Role {
	case models.RoleAdmin:
		return nil
	case models.RoleOrganizer:
		if transaction.Perspective != models.PerspectiveTenant {
			return apperrors.ErrForbidden
		}
		organizerID, err := s.resolver.ResolveOrganizerForTenant(transaction.OwnerID)
		if err != nil || organizerID != actor.ID {
			return apperrors.ErrForbidden
		}
		return nil
	}
	return apperrors.ErrForbidden
}
