package services

import (
	"context"
	"testing"

	"tabung/internal/models"
	"tabung/internal/pagination"
	"tabung/internal/testutil"
)

func TestReconcile(t *testing.T) {
	t.Run("repairs_missing_transaction_once", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewReconciliationService(db, NewOrganizerResolver(db), NewAuditService(db))

		tenant := testutil.CreateTestUser(t, db, models.RoleTenant)
		organizer := testutil.CreateTestUser(t, db, models.RoleOrganizer)
		testutil.CreateTestOrganizerLink(t, db, tenant.ID, organizer.ID, models.StatusApproved)
		payment := testutil.CreateTestPayment(t, db, tenant.ID, "180", models.StatusApproved)

		result, err := svc.Reconcile(context.Background(), 0)
		testutil.AssertNoError(t, err)
		if result.Scanned != 1 || result.Repaired != 1 || len(result.Failed) != 0 {
			t.Fatalf("unexpected first run %+v", result)
		}

		var derived []models.Transaction
		db.Where("payment_ref = ?", payment.ID).Find(&derived)
		if len(derived) != 1 {
			t.Fatalf("expected 1 derived transaction, got %d", len(derived))
		}
		if derived[0].OwnerID != organizer.ID || derived[0].Category != models.RentCategory {
			t.Errorf("unexpected derived transaction %+v", derived[0])
		}
		testutil.AssertDecimal(t, "180", derived[0].Amount)

		again, err := svc.Reconcile(context.Background(), 0)
		testutil.AssertNoError(t, err)
		if again.Scanned != 0 || again.Repaired != 0 {
			t.Errorf("second run should find nothing, got %+v", again)
		}

		var count int64
		db.Model(&models.Transaction{}).Where("payment_ref = ?", payment.ID).Count(&count)
		if count != 1 {
			t.Errorf("expected still 1 derived transaction, got %d", count)
		}

		var audits int64
		db.Model(&models.AuditLog{}).Where("actor_id = ? AND action = ?", ReconcileActorID, AuditActionReconcile).Count(&audits)
		if audits != 1 {
			t.Errorf("expected 1 reconcile audit entry, got %d", audits)
		}
	})

	t.Run("unresolvable_payment_reported", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewReconciliationService(db, NewOrganizerResolver(db), NewAuditService(db))

		orphan := testutil.CreateTestUser(t, db, models.RoleTenant)
		bad := testutil.CreateTestPayment(t, db, orphan.ID, "50", models.StatusApproved)

		tenant := testutil.CreateTestUser(t, db, models.RoleTenant)
		organizer := testutil.CreateTestUser(t, db, models.RoleOrganizer)
		testutil.CreateTestOrganizerLink(t, db, tenant.ID, organizer.ID, models.StatusApproved)
		testutil.CreateTestPayment(t, db, tenant.ID, "70", models.StatusApproved)

		result, err := svc.Reconcile(context.Background(), 10)
		testutil.AssertNoError(t, err)
		if result.Repaired != 1 {
			t.Errorf("expected 1 repair, got %d", result.Repaired)
		}
		if len(result.Failed) != 1 || result.Failed[0].PaymentID != bad.ID || result.Failed[0].Code != "ORGANIZER_UNRESOLVED" {
			t.Errorf("expected unresolved failure for %s, got %+v", bad.ID, result.Failed)
		}
	})

	t.Run("pending_and_rejected_ignored", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewReconciliationService(db, NewOrganizerResolver(db), NewAuditService(db))

		tenant := testutil.CreateTestUser(t, db, models.RoleTenant)
		testutil.CreateTestPayment(t, db, tenant.ID, "10", models.StatusPending)
		testutil.CreateTestPayment(t, db, tenant.ID, "20", models.StatusRejected)

		result, err := svc.Reconcile(context.Background(), 0)
		testutil.AssertNoError(t, err)
		if result.Scanned != 0 {
			t.Errorf("expected nothing scanned, got %d", result.Scanned)
		}
	})

	t.Run("limit_respected", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewReconciliationService(db, NewOrganizerResolver(db), NewAuditService(db))

		tenant := testutil.CreateTestUser(t, db, models.RoleTenant)
		organizer := testutil.CreateTestUser(t, db, models.RoleOrganizer)
		testutil.CreateTestOrganizerLink(t, db, tenant.ID, organizer.ID, models.StatusApproved)
		for i := 0; i < 3; i++ {
			testutil.CreateTestPayment(t, db, tenant.ID, "10", models.StatusApproved)
		}

		result, err := svc.Reconcile(context.Background(), 2)
		testutil.AssertNoError(t, err)
		if result.Scanned != 2 || result.Repaired != 2 {
			t.Errorf("expected 2 repairs, got %+v", result)
		}

		count, err := svc.CountUnreconciled(models.PerspectiveTenant, tenant.ID)
		testutil.AssertNoError(t, err)
		if count != 1 {
			t.Errorf("expected 1 left, got %d", count)
		}
	})

	t.Run("cancelled_context", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewReconciliationService(db, NewOrganizerResolver(db), NewAuditService(db))

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := svc.Reconcile(ctx, 0)
		if err == nil {
			t.Error("expected an error for a cancelled context")
		}
	})
}

func TestFindUnreconciled(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewReconciliationService(db, NewOrganizerResolver(db), NewAuditService(db))

	tenant := testutil.CreateTestUser(t, db, models.RoleTenant)
	organizer := testutil.CreateTestUser(t, db, models.RoleOrganizer)
	other := testutil.CreateTestUser(t, db, models.RoleOrganizer)
	testutil.CreateTestOrganizerLink(t, db, tenant.ID, organizer.ID, models.StatusApproved)
	testutil.CreateTestPayment(t, db, tenant.ID, "40", models.StatusApproved)

	reconciled := testutil.CreateTestPayment(t, db, tenant.ID, "60", models.StatusApproved)
	tx := testutil.CreateTestTransaction(t, db, models.PerspectiveOrganizer, organizer.ID, models.TransactionTypeIncome, models.RentCategory, "60", models.StatusApproved)
	db.Model(tx).Update("payment_ref", reconciled.ID)

	t.Run("organizer_scope", func(t *testing.T) {
		result, err := svc.FindUnreconciled(organizer.ID, pagination.PageRequest{})
		testutil.AssertNoError(t, err)
		if result.TotalItems != 1 {
			t.Errorf("expected 1 unreconciled payment, got %d", result.TotalItems)
		}
	})

	t.Run("all", func(t *testing.T) {
		result, err := svc.FindUnreconciled("", pagination.PageRequest{})
		testutil.AssertNoError(t, err)
		if result.TotalItems != 1 {
			t.Errorf("expected 1 unreconciled payment, got %d", result.TotalItems)
		}
	})

	t.Run("unrelated_organizer", func(t *testing.T) {
		result, err := svc.FindUnreconciled(other.ID, pagination.PageRequest{})
		testutil.AssertNoError(t, err)
		if result.TotalItems != 0 {
			t.Errorf("expected none, got %d", result.TotalItems)
		}
	})

	t.Run("count_by_perspective", func(t *testing.T) {
		count, err := svc.CountUnreconciled(models.PerspectiveOrganizer, organizer.ID)
		testutil.AssertNoError(t, err)
		if count != 1 {
			t.Errorf("expected 1, got %d", count)
		}

		_, err = svc.CountUnreconciled("admin", organizer.ID)
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})
}
