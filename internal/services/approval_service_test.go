package services

import (
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "tabung/internal/errors"
	"tabung/internal/models"
	"tabung/internal/pagination"
	"tabung/internal/testutil"
)

type approvalFixture struct {
	db        *gorm.DB
	svc       ApprovalServicer
	tenant    *models.User
	organizer *models.User
}

func newApprovalFixture(t *testing.T) *approvalFixture {
	t.Helper()
	db := testutil.SetupTestDB(t)
	return &approvalFixture{
		db:        db,
		svc:       NewApprovalService(db, NewOrganizerResolver(db), NewAuditService(db)),
		tenant:    testutil.CreateTestUser(t, db, models.RoleTenant),
		organizer: testutil.CreateTestUser(t, db, models.RoleOrganizer),
	}
}

func (f *approvalFixture) organizerActor() Actor {
	return Actor{ID: f.organizer.ID, Role: models.RoleOrganizer, IP: "127.0.0.1"}
}

func (f *approvalFixture) derivedFor(t *testing.T, paymentID string) []models.Transaction {
	t.Helper()
	var txs []models.Transaction
	if err := f.db.Where("payment_ref = ?", paymentID).Find(&txs).Error; err != nil {
		t.Fatalf("failed to load derived transactions: %v", err)
	}
	return txs
}

func TestApprovePayment(t *testing.T) {
	t.Run("creates_organizer_rent_income", func(t *testing.T) {
		f := newApprovalFixture(t)
		defer testutil.TeardownTestDB(t, f.db)
		testutil.CreateTestOrganizerLink(t, f.db, f.tenant.ID, f.organizer.ID, models.StatusApproved)
		payment := testutil.CreateTestPayment(t, f.db, f.tenant.ID, "250", models.StatusPending)

		result, err := f.svc.Approve(f.organizerActor(), models.RequestKindPayment, payment.ID)
		testutil.AssertNoError(t, err)

		if result.Status != models.StatusApproved || result.DerivedTransactionID == nil {
			t.Fatalf("unexpected result %+v", result)
		}

		derived := f.derivedFor(t, payment.ID)
		if len(derived) != 1 {
			t.Fatalf("expected 1 derived transaction, got %d", len(derived))
		}
		tx := derived[0]
		if tx.Perspective != models.PerspectiveOrganizer || tx.OwnerID != f.organizer.ID {
			t.Errorf("expected organizer ledger of %s, got %s/%s", f.organizer.ID, tx.Perspective, tx.OwnerID)
		}
		if tx.Type != models.TransactionTypeIncome || tx.Category != models.RentCategory {
			t.Errorf("expected income %s, got %s %s", models.RentCategory, tx.Type, tx.Category)
		}
		if tx.Status != models.StatusApproved || !tx.IsRentPayment {
			t.Errorf("expected approved rent payment, got %s rent=%v", tx.Status, tx.IsRentPayment)
		}
		testutil.AssertDecimal(t, "250", tx.Amount)
		if tx.Metadata["tenant_ref"] != f.tenant.ID || tx.Metadata["payment_ref"] != payment.ID {
			t.Errorf("unexpected metadata %v", tx.Metadata)
		}
		if tx.ID != *result.DerivedTransactionID {
			t.Errorf("result should carry derived id %s, got %s", tx.ID, *result.DerivedTransactionID)
		}

		var stored models.PaymentRequest
		f.db.First(&stored, "id = ?", payment.ID)
		if stored.Status != models.StatusApproved || stored.ApprovedAt == nil {
			t.Errorf("expected approved payment with timestamp, got %s", stored.Status)
		}
		if stored.ApprovedBy == nil || *stored.ApprovedBy != f.organizer.ID {
			t.Error("expected approved_by to be the organizer")
		}
		if stored.LedgerTransactionID == nil || *stored.LedgerTransactionID != tx.ID {
			t.Error("expected payment to link to its derived transaction")
		}

		var audits int64
		f.db.Model(&models.AuditLog{}).Where("action = ? AND resource_id = ?", AuditActionApprove, payment.ID).Count(&audits)
		if audits != 1 {
			t.Errorf("expected 1 audit entry, got %d", audits)
		}
	})

	t.Run("second_approval_is_not_pending", func(t *testing.T) {
		f := newApprovalFixture(t)
		defer testutil.TeardownTestDB(t, f.db)
		testutil.CreateTestOrganizerLink(t, f.db, f.tenant.ID, f.organizer.ID, models.StatusApproved)
		payment := testutil.CreateTestPayment(t, f.db, f.tenant.ID, "250", models.StatusPending)

		_, err := f.svc.Approve(f.organizerActor(), models.RequestKindPayment, payment.ID)
		testutil.AssertNoError(t, err)
		_, err = f.svc.Approve(f.organizerActor(), models.RequestKindPayment, payment.ID)
		testutil.AssertAppError(t, err, "REQUEST_NOT_PENDING")

		if n := len(f.derivedFor(t, payment.ID)); n != 1 {
			t.Errorf("expected exactly 1 derived transaction, got %d", n)
		}
	})

	t.Run("concurrent_approvals_create_one_entry", func(t *testing.T) {
		f := newApprovalFixture(t)
		defer testutil.TeardownTestDB(t, f.db)
		testutil.CreateTestOrganizerLink(t, f.db, f.tenant.ID, f.organizer.ID, models.StatusApproved)
		payment := testutil.CreateTestPayment(t, f.db, f.tenant.ID, "250", models.StatusPending)

		const workers = 10
		errs := make([]error, workers)
		var wg sync.WaitGroup
		start := make(chan struct{})
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				<-start
				_, errs[i] = f.svc.Approve(f.organizerActor(), models.RequestKindPayment, payment.ID)
			}(i)
		}
		close(start)
		wg.Wait()

		successes := 0
		for _, err := range errs {
			if err == nil {
				successes++
				continue
			}
			var appErr *apperrors.AppError
			if !errors.As(err, &appErr) {
				t.Errorf("expected an AppError, got %v", err)
			}
		}
		if successes != 1 {
			t.Errorf("expected exactly one approval to succeed, got %d", successes)
		}
		if derived := f.derivedFor(t, payment.ID); len(derived) != 1 {
			t.Errorf("expected 1 derived transaction, got %d", len(derived))
		}
	})

	t.Run("unresolved_organizer_fails_closed", func(t *testing.T) {
		f := newApprovalFixture(t)
		defer testutil.TeardownTestDB(t, f.db)
		payment := testutil.CreateTestPayment(t, f.db, f.tenant.ID, "250", models.StatusPending)

		_, err := f.svc.Approve(Actor{ID: "admin-1", Role: models.RoleAdmin}, models.RequestKindPayment, payment.ID)
		testutil.AssertAppError(t, err, "ORGANIZER_UNRESOLVED")

		var stored models.PaymentRequest
		f.db.First(&stored, "id = ?", payment.ID)
		if stored.Status != models.StatusPending {
			t.Errorf("payment should stay pending, got %s", stored.Status)
		}
		if n := len(f.derivedFor(t, payment.ID)); n != 0 {
			t.Errorf("expected no derived transaction, got %d", n)
		}
	})

	t.Run("other_organizer_forbidden", func(t *testing.T) {
		f := newApprovalFixture(t)
		defer testutil.TeardownTestDB(t, f.db)
		testutil.CreateTestOrganizerLink(t, f.db, f.tenant.ID, f.organizer.ID, models.StatusApproved)
		stranger := testutil.CreateTestUser(t, f.db, models.RoleOrganizer)
		payment := testutil.CreateTestPayment(t, f.db, f.tenant.ID, "250", models.StatusPending)

		_, err := f.svc.Approve(Actor{ID: stranger.ID, Role: models.RoleOrganizer}, models.RequestKindPayment, payment.ID)
		testutil.AssertAppError(t, err, "FORBIDDEN")
	})

	t.Run("tenant_forbidden", func(t *testing.T) {
		f := newApprovalFixture(t)
		defer testutil.TeardownTestDB(t, f.db)
		payment := testutil.CreateTestPayment(t, f.db, f.tenant.ID, "250", models.StatusPending)

		_, err := f.svc.Approve(Actor{ID: f.tenant.ID, Role: models.RoleTenant}, models.RequestKindPayment, payment.ID)
		testutil.AssertAppError(t, err, "FORBIDDEN")
	})

	t.Run("admin_uses_resolved_organizer", func(t *testing.T) {
		f := newApprovalFixture(t)
		defer testutil.TeardownTestDB(t, f.db)
		testutil.CreateTestLocation(t, f.db, f.tenant.ID, f.organizer.ID, models.StatusActive, true)
		payment := testutil.CreateTestPayment(t, f.db, f.tenant.ID, "99.90", models.StatusPending)

		_, err := f.svc.Approve(Actor{ID: "admin-1", Role: models.RoleAdmin}, models.RequestKindPayment, payment.ID)
		testutil.AssertNoError(t, err)

		derived := f.derivedFor(t, payment.ID)
		if len(derived) != 1 || derived[0].OwnerID != f.organizer.ID {
			t.Errorf("expected derived transaction for %s, got %+v", f.organizer.ID, derived)
		}
	})

	t.Run("unknown_kind", func(t *testing.T) {
		f := newApprovalFixture(t)
		defer testutil.TeardownTestDB(t, f.db)

		_, err := f.svc.Approve(f.organizerActor(), "invoices", "x")
		testutil.AssertAppError(t, err, "INVALID_REQUEST_KIND")
	})

	t.Run("not_found", func(t *testing.T) {
		f := newApprovalFixture(t)
		defer testutil.TeardownTestDB(t, f.db)

		_, err := f.svc.Approve(f.organizerActor(), models.RequestKindPayment, "00000000-0000-0000-0000-000000000000")
		testutil.AssertAppError(t, err, "REQUEST_NOT_FOUND")
	})
}

func TestRejectPayment(t *testing.T) {
	t.Run("no_transaction_created", func(t *testing.T) {
		f := newApprovalFixture(t)
		defer testutil.TeardownTestDB(t, f.db)
		testutil.CreateTestOrganizerLink(t, f.db, f.tenant.ID, f.organizer.ID, models.StatusApproved)
		payment := testutil.CreateTestPayment(t, f.db, f.tenant.ID, "250", models.StatusPending)

		result, err := f.svc.Reject(f.organizerActor(), models.RequestKindPayment, payment.ID, "  receipt unreadable ")
		testutil.AssertNoError(t, err)
		if result.Status != models.StatusRejected || result.DerivedTransactionID != nil {
			t.Errorf("unexpected result %+v", result)
		}

		var stored models.PaymentRequest
		f.db.First(&stored, "id = ?", payment.ID)
		if stored.RejectionReason != "receipt unreadable" || stored.RejectedAt == nil {
			t.Errorf("expected trimmed reason and timestamp, got %q", stored.RejectionReason)
		}
		if n := len(f.derivedFor(t, payment.ID)); n != 0 {
			t.Errorf("expected no derived transaction, got %d", n)
		}
	})

	t.Run("approve_after_reject", func(t *testing.T) {
		f := newApprovalFixture(t)
		defer testutil.TeardownTestDB(t, f.db)
		testutil.CreateTestOrganizerLink(t, f.db, f.tenant.ID, f.organizer.ID, models.StatusApproved)
		payment := testutil.CreateTestPayment(t, f.db, f.tenant.ID, "250", models.StatusPending)

		_, err := f.svc.Reject(f.organizerActor(), models.RequestKindPayment, payment.ID, "")
		testutil.AssertNoError(t, err)
		_, err = f.svc.Approve(f.organizerActor(), models.RequestKindPayment, payment.ID)
		testutil.AssertAppError(t, err, "REQUEST_NOT_PENDING")
	})

	t.Run("admin_rejects_unresolved", func(t *testing.T) {
		f := newApprovalFixture(t)
		defer testutil.TeardownTestDB(t, f.db)
		payment := testutil.CreateTestPayment(t, f.db, f.tenant.ID, "250", models.StatusPending)

		_, err := f.svc.Reject(Actor{ID: "admin-1", Role: models.RoleAdmin}, models.RequestKindPayment, payment.ID, "no organizer")
		testutil.AssertNoError(t, err)
	})
}

func TestDecideLinkAndLocation(t *testing.T) {
	t.Run("approve_link", func(t *testing.T) {
		f := newApprovalFixture(t)
		defer testutil.TeardownTestDB(t, f.db)
		link, err := f.svc.RequestOrganizerLink(f.tenant.ID, f.organizer.ID)
		testutil.AssertNoError(t, err)

		_, err = f.svc.Approve(f.organizerActor(), models.RequestKindOrganizerLink, link.ID)
		testutil.AssertNoError(t, err)

		organizerID, err := NewOrganizerResolver(f.db).ResolveOrganizerForTenant(f.tenant.ID)
		testutil.AssertNoError(t, err)
		if organizerID != f.organizer.ID {
			t.Errorf("expected tenant to resolve to %s, got %s", f.organizer.ID, organizerID)
		}
	})

	t.Run("link_addressed_to_another_organizer", func(t *testing.T) {
		f := newApprovalFixture(t)
		defer testutil.TeardownTestDB(t, f.db)
		stranger := testutil.CreateTestUser(t, f.db, models.RoleOrganizer)
		link := testutil.CreateTestOrganizerLink(t, f.db, f.tenant.ID, stranger.ID, models.StatusPending)

		_, err := f.svc.Approve(f.organizerActor(), models.RequestKindOrganizerLink, link.ID)
		testutil.AssertAppError(t, err, "FORBIDDEN")
	})

	t.Run("reject_location_deactivates", func(t *testing.T) {
		f := newApprovalFixture(t)
		defer testutil.TeardownTestDB(t, f.db)
		loc, err := f.svc.RequestLocation(f.tenant.ID, f.organizer.ID, "LOT-A12")
		testutil.AssertNoError(t, err)

		_, err = f.svc.Reject(f.organizerActor(), models.RequestKindLocation, loc.ID, "lot taken")
		testutil.AssertNoError(t, err)

		var stored models.LocationRequest
		f.db.First(&stored, "id = ?", loc.ID)
		if stored.IsActive || stored.Status != models.StatusRejected {
			t.Errorf("expected inactive rejected location, got %s active=%v", stored.Status, stored.IsActive)
		}
	})

	t.Run("activate_approved_location", func(t *testing.T) {
		f := newApprovalFixture(t)
		defer testutil.TeardownTestDB(t, f.db)
		loc, err := f.svc.RequestLocation(f.tenant.ID, f.organizer.ID, "LOT-B3")
		testutil.AssertNoError(t, err)

		_, err = f.svc.ActivateLocation(f.tenant.ID, loc.ID, "weekly")
		testutil.AssertAppError(t, err, "INVALID_STATUS_TRANSITION")

		_, err = f.svc.Approve(f.organizerActor(), models.RequestKindLocation, loc.ID)
		testutil.AssertNoError(t, err)

		active, err := f.svc.ActivateLocation(f.tenant.ID, loc.ID, "weekly")
		testutil.AssertNoError(t, err)
		if active.Status != models.StatusActive || active.RateCategory != "weekly" {
			t.Errorf("expected active weekly location, got %s %s", active.Status, active.RateCategory)
		}
	})

	t.Run("activate_other_tenants_location", func(t *testing.T) {
		f := newApprovalFixture(t)
		defer testutil.TeardownTestDB(t, f.db)
		other := testutil.CreateTestUser(t, f.db, models.RoleTenant)
		loc := testutil.CreateTestLocation(t, f.db, other.ID, f.organizer.ID, models.StatusApproved, true)

		_, err := f.svc.ActivateLocation(f.tenant.ID, loc.ID, "daily")
		testutil.AssertAppError(t, err, "REQUEST_NOT_FOUND")
	})
}

func TestCreateRequests(t *testing.T) {
	t.Run("duplicate_link", func(t *testing.T) {
		f := newApprovalFixture(t)
		defer testutil.TeardownTestDB(t, f.db)

		_, err := f.svc.RequestOrganizerLink(f.tenant.ID, f.organizer.ID)
		testutil.AssertNoError(t, err)
		_, err = f.svc.RequestOrganizerLink(f.tenant.ID, f.organizer.ID)
		testutil.AssertAppError(t, err, "DUPLICATE_REQUEST")
	})

	t.Run("link_to_non_organizer", func(t *testing.T) {
		f := newApprovalFixture(t)
		defer testutil.TeardownTestDB(t, f.db)
		other := testutil.CreateTestUser(t, f.db, models.RoleTenant)

		_, err := f.svc.RequestOrganizerLink(f.tenant.ID, other.ID)
		testutil.AssertAppError(t, err, "ORGANIZER_NOT_FOUND")
	})

	t.Run("location_requires_ref", func(t *testing.T) {
		f := newApprovalFixture(t)
		defer testutil.TeardownTestDB(t, f.db)

		_, err := f.svc.RequestLocation(f.tenant.ID, f.organizer.ID, "   ")
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})

	t.Run("payment_validation", func(t *testing.T) {
		f := newApprovalFixture(t)
		defer testutil.TeardownTestDB(t, f.db)

		_, err := f.svc.SubmitPayment(f.tenant.ID, decimal.Zero, models.PaymentMethodCash, nil)
		testutil.AssertAppError(t, err, "INVALID_INPUT")

		_, err = f.svc.SubmitPayment(f.tenant.ID, decimal.NewFromInt(10), "cheque", nil)
		testutil.AssertAppError(t, err, "INVALID_INPUT")

		payment, err := f.svc.SubmitPayment(f.tenant.ID, decimal.RequireFromString("10.005"), models.PaymentMethodFPX, nil)
		testutil.AssertNoError(t, err)
		if payment.Status != models.StatusPending {
			t.Errorf("expected pending, got %s", payment.Status)
		}
		testutil.AssertDecimal(t, "10.01", payment.Amount)
	})
}

func TestListRequests(t *testing.T) {
	f := newApprovalFixture(t)
	defer testutil.TeardownTestDB(t, f.db)

	testutil.CreateTestOrganizerLink(t, f.db, f.tenant.ID, f.organizer.ID, models.StatusApproved)
	testutil.CreateTestPayment(t, f.db, f.tenant.ID, "100", models.StatusPending)
	testutil.CreateTestPayment(t, f.db, f.tenant.ID, "200", models.StatusApproved)

	unlinked := testutil.CreateTestUser(t, f.db, models.RoleTenant)
	testutil.CreateTestPayment(t, f.db, unlinked.ID, "300", models.StatusPending)

	t.Run("organizer_sees_linked_tenants", func(t *testing.T) {
		result, err := f.svc.ListPaymentRequests(f.organizerActor(), RequestFilter{}, pagination.PageRequest{})
		testutil.AssertNoError(t, err)
		if result.TotalItems != 2 {
			t.Errorf("expected 2 payments, got %d", result.TotalItems)
		}
	})

	t.Run("status_filter", func(t *testing.T) {
		pending := models.StatusPending
		result, err := f.svc.ListPaymentRequests(f.organizerActor(), RequestFilter{Status: &pending}, pagination.PageRequest{})
		testutil.AssertNoError(t, err)
		if result.TotalItems != 1 {
			t.Errorf("expected 1 pending payment, got %d", result.TotalItems)
		}
	})

	t.Run("tenant_sees_own", func(t *testing.T) {
		result, err := f.svc.ListPaymentRequests(Actor{ID: unlinked.ID, Role: models.RoleTenant}, RequestFilter{}, pagination.PageRequest{})
		testutil.AssertNoError(t, err)
		if result.TotalItems != 1 {
			t.Errorf("expected 1 payment, got %d", result.TotalItems)
		}
	})

	t.Run("organizer_without_tenants", func(t *testing.T) {
		lonely := testutil.CreateTestUser(t, f.db, models.RoleOrganizer)
		result, err := f.svc.ListPaymentRequests(Actor{ID: lonely.ID, Role: models.RoleOrganizer}, RequestFilter{}, pagination.PageRequest{})
		testutil.AssertNoError(t, err)
		if result.TotalItems != 0 || len(result.Data) != 0 {
			t.Errorf("expected empty page, got %d", result.TotalItems)
		}
	})

	t.Run("links_scoped_by_party", func(t *testing.T) {
		result, err := f.svc.ListOrganizerLinkRequests(f.organizerActor(), RequestFilter{}, pagination.PageRequest{})
		testutil.AssertNoError(t, err)
		if result.TotalItems != 1 {
			t.Errorf("expected 1 link, got %d", result.TotalItems)
		}

		locs, err := f.svc.ListLocationRequests(Actor{ID: "admin-1", Role: models.RoleAdmin}, RequestFilter{}, pagination.PageRequest{})
		testutil.AssertNoError(t, err)
		if locs.TotalItems != 0 {
			t.Errorf("expected no locations, got %d", locs.TotalItems)
		}
	})
}
