package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"tabung/internal/models"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// TestPassword is the plain-text password of every fixture user.
const TestPassword = "password123"

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// CreateTestUser creates a user with the given role, a hashed password and a unique email.
func CreateTestUser(t *testing.T, db *gorm.DB, role models.Role) *models.User {
	t.Helper()
	email := fmt.Sprintf("%s%d@test.com", role, nextID())
	return CreateTestUserWithPlan(t, db, email, role, "")
}

// CreateTestUserWithPlan creates a user with the given email, role and plan tier.
func CreateTestUserWithPlan(t *testing.T, db *gorm.DB, email string, role models.Role, planTier string) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &models.User{
		Email:        email,
		Password:     string(hash),
		FirstName:    "Test",
		LastName:     fmt.Sprintf("User %d", nextID()),
		BusinessName: fmt.Sprintf("Kedai %d", nextID()),
		Role:         role,
		PlanTier:     planTier,
		IsActive:     true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateTestTransaction creates a transaction in an owner's ledger.
func CreateTestTransaction(t *testing.T, db *gorm.DB, perspective models.Perspective, ownerID string, txType models.TransactionType, category, amount string, status models.Status) *models.Transaction {
	t.Helper()

	tx := &models.Transaction{
		Perspective: perspective,
		OwnerID:     ownerID,
		Description: fmt.Sprintf("Test transaction %d", nextID()),
		Category:    category,
		Amount:      decimal.RequireFromString(amount),
		Type:        txType,
		Status:      status,
		Date:        time.Now().UTC().Truncate(24 * time.Hour),
	}
	if err := db.Create(tx).Error; err != nil {
		t.Fatalf("failed to create test transaction: %v", err)
	}
	return tx
}

// CreateTestOrganizerLink creates an organizer-link request with the given status.
func CreateTestOrganizerLink(t *testing.T, db *gorm.DB, tenantID, organizerID string, status models.Status) *models.OrganizerLinkRequest {
	t.Helper()

	now := time.Now()
	link := &models.OrganizerLinkRequest{
		TenantID:    tenantID,
		OrganizerID: organizerID,
		Status:      status,
		RequestedAt: now,
	}
	if status == models.StatusApproved {
		link.ApprovedAt = &now
	}
	if err := db.Create(link).Error; err != nil {
		t.Fatalf("failed to create test organizer link: %v", err)
	}
	return link
}

// CreateTestLocation creates a location request with the given status and activity flag.
func CreateTestLocation(t *testing.T, db *gorm.DB, tenantID, organizerID string, status models.Status, isActive bool) *models.LocationRequest {
	t.Helper()

	loc := &models.LocationRequest{
		TenantID:    tenantID,
		OrganizerID: organizerID,
		LocationRef: fmt.Sprintf("LOT-%d", nextID()),
		Status:      status,
		IsActive:    isActive,
	}
	if err := db.Create(loc).Error; err != nil {
		t.Fatalf("failed to create test location: %v", err)
	}
	return loc
}

// CreateTestPayment creates a payment request with the given amount and status.
func CreateTestPayment(t *testing.T, db *gorm.DB, tenantID, amount string, status models.Status) *models.PaymentRequest {
	t.Helper()

	payment := &models.PaymentRequest{
		TenantID:      tenantID,
		Amount:        decimal.RequireFromString(amount),
		PaymentMethod: models.PaymentMethodBankTransfer,
		Status:        status,
	}
	if status == models.StatusApproved {
		now := time.Now()
		payment.ApprovedAt = &now
	}
	if err := db.Create(payment).Error; err != nil {
		t.Fatalf("failed to create test payment: %v", err)
	}
	return payment
}

// CreateTestAllocationConfig stores an allocation config for an account.
func CreateTestAllocationConfig(t *testing.T, db *gorm.DB, accountID string, percentages map[models.Bucket]string) *models.AllocationConfig {
	t.Helper()

	pcts := models.Percentages{}
	for b, v := range percentages {
		pcts[b] = decimal.RequireFromString(v)
	}
	cfg := &models.AllocationConfig{
		AccountID:   accountID,
		Percentages: pcts.Clone(),
		BankNames:   map[models.Bucket]string{},
	}
	if err := db.Create(cfg).Error; err != nil {
		t.Fatalf("failed to create test allocation config: %v", err)
	}
	return cfg
}
