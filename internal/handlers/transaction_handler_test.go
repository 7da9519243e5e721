package handlers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "tabung/internal/errors"
	"tabung/internal/middleware"
	"tabung/internal/models"
	"tabung/internal/pagination"
	"tabung/internal/services"
)

// --- mock transaction service ---

type mockTransactionService struct {
	createTransactionFn    func(perspective models.Perspective, ownerID string, in services.TransactionInput) (*models.Transaction, error)
	getTransactionsFn      func(perspective models.Perspective, ownerID string, page pagination.PageRequest, filter services.TransactionFilter) (*pagination.PageResponse[models.Transaction], error)
	getTransactionByIDFn   func(perspective models.Perspective, ownerID, transactionID string) (*models.Transaction, error)
	updateTransactionFn    func(perspective models.Perspective, ownerID, transactionID string, upd services.TransactionUpdate) (*models.Transaction, error)
	deleteTransactionFn    func(perspective models.Perspective, ownerID, transactionID string) error
	setTransactionStatusFn func(actor services.Actor, transactionID string, status models.Status) (*models.Transaction, error)
}

func (m *mockTransactionService) CreateTransaction(perspective models.Perspective, ownerID string, in services.TransactionInput) (*models.Transaction, error) {
	if m.createTransactionFn != nil {
		return m.createTransactionFn(perspective, ownerID, in)
	}
	return &models.Transaction{}, nil
}

func (m *mockTransactionService) GetTransactions(perspective models.Perspective, ownerID string, page pagination.PageRequest, filter services.TransactionFilter) (*pagination.PageResponse[models.Transaction], error) {
	if m.getTransactionsFn != nil {
		return m.getTransactionsFn(perspective, ownerID, page, filter)
	}
	resp := pagination.NewPageResponse([]models.Transaction{}, 1, 20, 0)
	return &resp, nil
}

func (m *mockTransactionService) FetchTransactions(models.Perspective, string) ([]models.Transaction, error) {
	return nil, nil
}

func (m *mockTransactionService) GetTransactionByID(perspective models.Perspective, ownerID, transactionID string) (*models.Transaction, error) {
	if m.getTransactionByIDFn != nil {
		return m.getTransactionByIDFn(perspective, ownerID, transactionID)
	}
	return &models.Transaction{}, nil
}

func (m *mockTransactionService) UpdateTransaction(perspective models.Perspective, ownerID, transactionID string, upd services.TransactionUpdate) (*models.Transaction, error) {
	if m.updateTransactionFn != nil {
		return m.updateTransactionFn(perspective, ownerID, transactionID, upd)
	}
	return &models.Transaction{}, nil
}

func (m *mockTransactionService) DeleteTransaction(perspective models.Perspective, ownerID, transactionID string) error {
	if m.deleteTransactionFn != nil {
		return m.deleteTransactionFn(perspective, ownerID, transactionID)
	}
	return nil
}

func (m *mockTransactionService) SetTransactionStatus(actor services.Actor, transactionID string, status models.Status) (*models.Transaction, error) {
	if m.setTransactionStatusFn != nil {
		return m.setTransactionStatusFn(actor, transactionID, status)
	}
	return &models.Transaction{}, nil
}

var _ services.TransactionServicer = (*mockTransactionService)(nil)

func setupTransactionRouter(handler *TransactionHandler, uid string, role models.Role) *gin.Engine {
	r := gin.New()
	r.Use(middleware.ErrorHandler())
	auth := r.Group("", injectUserID(uid, role))
	auth.POST("/transactions", handler.CreateTransaction)
	auth.GET("/transactions", handler.GetTransactions)
	auth.GET("/transactions/:id", handler.GetTransactionByID)
	auth.PUT("/transactions/:id", handler.UpdateTransaction)
	auth.DELETE("/transactions/:id", handler.DeleteTransaction)
	auth.POST("/transactions/:id/status", handler.SetTransactionStatus)
	return r
}

func TestTransactionHandler_CreateTransaction(t *testing.T) {
	t.Run("returns 201 on success", func(t *testing.T) {
		var gotPerspective models.Perspective
		var gotIn services.TransactionInput
		txSvc := &mockTransactionService{
			createTransactionFn: func(perspective models.Perspective, ownerID string, in services.TransactionInput) (*models.Transaction, error) {
				gotPerspective = perspective
				gotIn = in
				return &models.Transaction{
					Base:        models.Base{ID: "tx-1"},
					Perspective: perspective,
					OwnerID:     ownerID,
					Amount:      in.Amount,
					Type:        in.Type,
					Category:    in.Category,
					Status:      models.StatusPending,
				}, nil
			},
		}
		audit := &mockAuditService{}
		handler := NewTransactionHandler(txSvc, audit)
		r := setupTransactionRouter(handler, tenantID, models.RoleTenant)

		rec := doRequest(r, "POST", "/transactions",
			`{"type":"expense","amount":"85.50","category":"Bahan Mentah","description":"Sayur","date":"2026-03-02"}`)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if gotPerspective != models.PerspectiveTenant {
			t.Errorf("expected tenant perspective, got %q", gotPerspective)
		}
		if !gotIn.Amount.Equal(decimal.RequireFromString("85.50")) {
			t.Errorf("expected amount 85.50, got %s", gotIn.Amount)
		}
		if gotIn.Date.Format("2006-01-02") != "2026-03-02" {
			t.Errorf("expected date 2026-03-02, got %v", gotIn.Date)
		}
		tx := parseJSON(t, rec)["transaction"].(map[string]interface{})
		if tx["status"] != "pending" {
			t.Errorf("expected pending status, got %v", tx["status"])
		}
		if len(audit.entries) != 1 || audit.entries[0].action != "CREATE_TRANSACTION" {
			t.Errorf("expected one CREATE_TRANSACTION audit entry, got %v", audit.entries)
		}
	})

	t.Run("accepts numeric amounts", func(t *testing.T) {
		handler := NewTransactionHandler(&mockTransactionService{}, &mockAuditService{})
		r := setupTransactionRouter(handler, organizerID, models.RoleOrganizer)

		rec := doRequest(r, "POST", "/transactions", `{"type":"income","amount":1200,"category":"Modal"}`)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("returns 400 on missing amount", func(t *testing.T) {
		handler := NewTransactionHandler(&mockTransactionService{}, &mockAuditService{})
		r := setupTransactionRouter(handler, tenantID, models.RoleTenant)

		rec := doRequest(r, "POST", "/transactions", `{"type":"income"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "INVALID_INPUT")
	})

	t.Run("returns 400 on invalid type", func(t *testing.T) {
		handler := NewTransactionHandler(&mockTransactionService{}, &mockAuditService{})
		r := setupTransactionRouter(handler, tenantID, models.RoleTenant)

		rec := doRequest(r, "POST", "/transactions", `{"type":"transfer","amount":10}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("returns 400 on invalid date", func(t *testing.T) {
		handler := NewTransactionHandler(&mockTransactionService{}, &mockAuditService{})
		r := setupTransactionRouter(handler, tenantID, models.RoleTenant)

		rec := doRequest(r, "POST", "/transactions", `{"type":"income","amount":10,"date":"02/03/2026"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("returns 403 for admins", func(t *testing.T) {
		handler := NewTransactionHandler(&mockTransactionService{}, &mockAuditService{})
		r := setupTransactionRouter(handler, adminID, models.RoleAdmin)

		rec := doRequest(r, "POST", "/transactions", `{"type":"income","amount":10}`)

		if rec.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", rec.Code)
		}
	})

	t.Run("returns 401 without auth", func(t *testing.T) {
		handler := NewTransactionHandler(&mockTransactionService{}, &mockAuditService{})
		r := gin.New()
		r.Use(middleware.ErrorHandler())
		r.POST("/transactions", handler.CreateTransaction)

		rec := doRequest(r, "POST", "/transactions", `{"type":"income","amount":10}`)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})
}

func TestTransactionHandler_GetTransactions(t *testing.T) {
	t.Run("passes filters and pagination", func(t *testing.T) {
		var gotPage pagination.PageRequest
		var gotFilter services.TransactionFilter
		txSvc := &mockTransactionService{
			getTransactionsFn: func(perspective models.Perspective, ownerID string, page pagination.PageRequest, filter services.TransactionFilter) (*pagination.PageResponse[models.Transaction], error) {
				if perspective != models.PerspectiveOrganizer || ownerID != organizerID {
					t.Errorf("unexpected ledger %s/%s", perspective, ownerID)
				}
				gotPage = page
				gotFilter = filter
				resp := pagination.NewPageResponse([]models.Transaction{{Base: models.Base{ID: "tx-1"}}}, 2, 5, 6)
				return &resp, nil
			},
		}
		handler := NewTransactionHandler(txSvc, &mockAuditService{})
		r := setupTransactionRouter(handler, organizerID, models.RoleOrganizer)

		rec := doRequest(r, "GET",
			"/transactions?page=2&page_size=5&type=income&status=approved&category=Sewa&from_date=2026-03-01&to_date=2026-03-31", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if gotPage.Page != 2 || gotPage.PageSize != 5 {
			t.Errorf("expected page 2 size 5, got %+v", gotPage)
		}
		if gotFilter.Type == nil || *gotFilter.Type != models.TransactionTypeIncome {
			t.Error("expected income type filter")
		}
		if gotFilter.Status == nil || *gotFilter.Status != models.StatusApproved {
			t.Error("expected approved status filter")
		}
		if gotFilter.Category == nil || *gotFilter.Category != "Sewa" {
			t.Error("expected category filter")
		}
		if gotFilter.FromDate == nil || gotFilter.ToDate == nil {
			t.Error("expected date range filter")
		}
		result := parseJSON(t, rec)
		if result["total_pages"].(float64) != 2 {
			t.Errorf("expected 2 total pages, got %v", result["total_pages"])
		}
	})

	t.Run("returns 400 on invalid status", func(t *testing.T) {
		handler := NewTransactionHandler(&mockTransactionService{}, &mockAuditService{})
		r := setupTransactionRouter(handler, tenantID, models.RoleTenant)

		rec := doRequest(r, "GET", "/transactions?status=active", "")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("returns 400 on page_size over limit", func(t *testing.T) {
		handler := NewTransactionHandler(&mockTransactionService{}, &mockAuditService{})
		r := setupTransactionRouter(handler, tenantID, models.RoleTenant)

		rec := doRequest(r, "GET", "/transactions?page_size=500", "")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestTransactionHandler_GetTransactionByID(t *testing.T) {
	t.Run("returns 404 when not found", func(t *testing.T) {
		txSvc := &mockTransactionService{
			getTransactionByIDFn: func(models.Perspective, string, string) (*models.Transaction, error) {
				return nil, apperrors.ErrTransactionNotFound
			},
		}
		handler := NewTransactionHandler(txSvc, &mockAuditService{})
		r := setupTransactionRouter(handler, tenantID, models.RoleTenant)

		rec := doRequest(r, "GET", "/transactions/missing", "")

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "TRANSACTION_NOT_FOUND")
	})
}

func TestTransactionHandler_UpdateTransaction(t *testing.T) {
	t.Run("passes only the provided fields", func(t *testing.T) {
		var gotUpd services.TransactionUpdate
		txSvc := &mockTransactionService{
			updateTransactionFn: func(_ models.Perspective, _, _ string, upd services.TransactionUpdate) (*models.Transaction, error) {
				gotUpd = upd
				return &models.Transaction{Base: models.Base{ID: "tx-1"}}, nil
			},
		}
		audit := &mockAuditService{}
		handler := NewTransactionHandler(txSvc, audit)
		r := setupTransactionRouter(handler, tenantID, models.RoleTenant)

		rec := doRequest(r, "PUT", "/transactions/tx-1", `{"category":"Upah","amount":"40"}`)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if gotUpd.Category == nil || *gotUpd.Category != "Upah" {
			t.Error("expected category update")
		}
		if gotUpd.Amount == nil || !gotUpd.Amount.Equal(decimal.NewFromInt(40)) {
			t.Error("expected amount update")
		}
		if gotUpd.Description != nil || gotUpd.Type != nil || gotUpd.Date != nil {
			t.Error("expected untouched fields to stay nil")
		}
		if len(audit.entries) != 1 || audit.entries[0].action != "UPDATE_TRANSACTION" {
			t.Errorf("expected UPDATE_TRANSACTION audit entry, got %v", audit.entries)
		}
	})

	t.Run("returns 409 on derived transaction", func(t *testing.T) {
		txSvc := &mockTransactionService{
			updateTransactionFn: func(models.Perspective, string, string, services.TransactionUpdate) (*models.Transaction, error) {
				return nil, apperrors.ErrDerivedTransaction
			},
		}
		handler := NewTransactionHandler(txSvc, &mockAuditService{})
		r := setupTransactionRouter(handler, organizerID, models.RoleOrganizer)

		rec := doRequest(r, "PUT", "/transactions/tx-1", `{"amount":"1"}`)

		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "DERIVED_TRANSACTION")
	})
}

func TestTransactionHandler_DeleteTransaction(t *testing.T) {
	t.Run("returns 200 on success", func(t *testing.T) {
		var deleted string
		txSvc := &mockTransactionService{
			deleteTransactionFn: func(_ models.Perspective, _, id string) error {
				deleted = id
				return nil
			},
		}
		handler := NewTransactionHandler(txSvc, &mockAuditService{})
		r := setupTransactionRouter(handler, tenantID, models.RoleTenant)

		rec := doRequest(r, "DELETE", "/transactions/tx-9", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if deleted != "tx-9" {
			t.Errorf("expected tx-9 deleted, got %q", deleted)
		}
	})

	t.Run("returns 409 on derived transaction", func(t *testing.T) {
		txSvc := &mockTransactionService{
			deleteTransactionFn: func(models.Perspective, string, string) error { return apperrors.ErrDerivedTransaction },
		}
		handler := NewTransactionHandler(txSvc, &mockAuditService{})
		r := setupTransactionRouter(handler, organizerID, models.RoleOrganizer)

		rec := doRequest(r, "DELETE", "/transactions/tx-9", "")

		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rec.Code)
		}
	})
}

func TestTransactionHandler_SetTransactionStatus(t *testing.T) {
	t.Run("passes the reviewer as actor", func(t *testing.T) {
		var gotActor services.Actor
		txSvc := &mockTransactionService{
			setTransactionStatusFn: func(actor services.Actor, id string, status models.Status) (*models.Transaction, error) {
				gotActor = actor
				return &models.Transaction{Base: models.Base{ID: id}, Status: status}, nil
			},
		}
		audit := &mockAuditService{}
		handler := NewTransactionHandler(txSvc, audit)
		r := setupTransactionRouter(handler, organizerID, models.RoleOrganizer)

		rec := doRequest(r, "POST", "/transactions/tx-1/status", `{"status":"approved"}`)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if gotActor.ID != organizerID || gotActor.Role != models.RoleOrganizer {
			t.Errorf("unexpected actor %+v", gotActor)
		}
		if len(audit.entries) != 1 || audit.entries[0].action != "REVIEW_TRANSACTION" {
			t.Errorf("expected REVIEW_TRANSACTION audit entry, got %v", audit.entries)
		}
	})

	t.Run("returns 400 on pending target", func(t *testing.T) {
		handler := NewTransactionHandler(&mockTransactionService{}, &mockAuditService{})
		r := setupTransactionRouter(handler, organizerID, models.RoleOrganizer)

		rec := doRequest(r, "POST", "/transactions/tx-1/status", `{"status":"pending"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("returns 403 when forbidden", func(t *testing.T) {
		txSvc := &mockTransactionService{
			setTransactionStatusFn: func(services.Actor, string, models.Status) (*models.Transaction, error) {
				return nil, apperrors.ErrForbidden
			},
		}
		audit := &mockAuditService{}
		handler := NewTransactionHandler(txSvc, audit)
		r := setupTransactionRouter(handler, tenantID, models.RoleTenant)

		rec := doRequest(r, "POST", "/transactions/tx-1/status", `{"status":"rejected"}`)

		if rec.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", rec.Code)
		}
		if len(audit.entries) != 0 {
			t.Error("failed reviews must not be audited")
		}
	})
}
