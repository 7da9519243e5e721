package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"tabung/internal/ledger"
	"tabung/internal/models"
	"tabung/internal/pagination"
)

// Actor identifies the authenticated caller of a service operation.
type Actor struct {
	ID   string
	Role models.Role
	IP   string
}

// UserServicer defines the contract for user-related business logic.
type UserServicer interface {
	CreateUser(email, password, firstName, lastName, businessName string, role models.Role) (*models.User, error)
	GetUserByEmail(email string) (*models.User, error)
	GetUserByID(id string) (*models.User, error)
	VerifyPassword(user *models.User, password string) bool
	RecordLogin(userID string) error
	StoreRefreshTokenHash(userID, tokenHash string) error
	GetRefreshTokenHash(userID string) (string, error)
}

// TransactionFilter holds optional filter parameters for listing transactions.
type TransactionFilter struct {
	FromDate *time.Time
	ToDate   *time.Time
	Type     *models.TransactionType
	Status   *models.Status
	Category *string
}

// TransactionInput carries the user-editable fields of a new transaction.
type TransactionInput struct {
	Description string
	Category    string
	Amount      decimal.Decimal
	Type        models.TransactionType
	Date        time.Time
	ReceiptRef  *string
	Metadata    map[string]string
}

// TransactionUpdate carries the fields to change on an existing transaction.
// Nil fields are left unchanged.
type TransactionUpdate struct {
	Description *string
	Category    *string
	Amount      *decimal.Decimal
	Type        *models.TransactionType
	Date        *time.Time
	ReceiptRef  *string
}

// TransactionServicer defines the contract for the perspective-partitioned
// transaction store.
type TransactionServicer interface {
	CreateTransaction(perspective models.Perspective, ownerID string, in TransactionInput) (*models.Transaction, error)
	GetTransactions(perspective models.Perspective, ownerID string, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error)
	FetchTransactions(perspective models.Perspective, ownerID string) ([]models.Transaction, error)
	GetTransactionByID(perspective models.Perspective, ownerID, transactionID string) (*models.Transaction, error)
	UpdateTransaction(perspective models.Perspective, ownerID, transactionID string, upd TransactionUpdate) (*models.Transaction, error)
	DeleteTransaction(perspective models.Perspective, ownerID, transactionID string) error
	SetTransactionStatus(actor Actor, transactionID string, status models.Status) (*models.Transaction, error)
}

// PlanResolver supplies the live plan tier of an account.
type PlanResolver interface {
	ResolvePlanTier(accountID string) (string, error)
}

// OrganizerResolver answers which organizer a tenant currently belongs to.
type OrganizerResolver interface {
	ResolveOrganizerForTenant(tenantID string) (string, error)
	LinkedTenantIDs(organizerID string) ([]string, error)
}

// AllocationSettings is an account's stored allocation config together with
// the tier it is interpreted under.
type AllocationSettings struct {
	Config *models.AllocationConfig `json:"config"`
	Tier   ledger.Tier              `json:"tier"`
	Total  decimal.Decimal          `json:"total"`
	Saved  bool                     `json:"saved"`
}

// AllocationConfigServicer defines the contract for the allocation config store.
type AllocationConfigServicer interface {
	GetConfig(accountID string) (*AllocationSettings, error)
	SaveConfig(accountID string, percentages models.Percentages, bankNames map[models.Bucket]string) (*AllocationSettings, error)
	AutoAdjust(accountID string, percentages models.Percentages) (*AllocationSettings, error)
}

// AllocationReport is the allocation report of one ledger.
type AllocationReport struct {
	ledger.Report
	OwnerID              string             `json:"owner_id"`
	Perspective          models.Perspective `json:"perspective"`
	UnreconciledPayments int64              `json:"unreconciled_payments"`
	GeneratedAt          time.Time          `json:"generated_at"`
}

// ReportServicer defines the contract for allocation reports.
type ReportServicer interface {
	GetReport(viewer Actor, perspective models.Perspective, ownerID string) (*AllocationReport, error)
	ExportReport(viewer Actor, perspective models.Perspective, ownerID string) (*AllocationReport, error)
}

// RequestFilter narrows a request listing.
type RequestFilter struct {
	Status *models.Status
}

// ApprovalResult describes the outcome of an approve or reject call.
type ApprovalResult struct {
	Kind                 models.RequestKind `json:"kind"`
	ID                   string             `json:"id"`
	Status               models.Status      `json:"status"`
	DerivedTransactionID *string            `json:"derived_transaction_id,omitempty"`
}

// ApprovalServicer defines the contract for the approval workflow.
type ApprovalServicer interface {
	RequestOrganizerLink(tenantID, organizerID string) (*models.OrganizerLinkRequest, error)
	RequestLocation(tenantID, organizerID, locationRef string) (*models.LocationRequest, error)
	SubmitPayment(tenantID string, amount decimal.Decimal, method string, receiptRef *string) (*models.PaymentRequest, error)
	ActivateLocation(tenantID, requestID, rateCategory string) (*models.LocationRequest, error)

	ListOrganizerLinkRequests(actor Actor, filter RequestFilter, page pagination.PageRequest) (*pagination.PageResponse[models.OrganizerLinkRequest], error)
	ListLocationRequests(actor Actor, filter RequestFilter, page pagination.PageRequest) (*pagination.PageResponse[models.LocationRequest], error)
	ListPaymentRequests(actor Actor, filter RequestFilter, page pagination.PageRequest) (*pagination.PageResponse[models.PaymentRequest], error)

	Approve(actor Actor, kind models.RequestKind, id string) (*ApprovalResult, error)
	Reject(actor Actor, kind models.RequestKind, id, reason string) (*ApprovalResult, error)
}

// ReconcileFailure records a payment the reconciliation run could not repair.
type ReconcileFailure struct {
	PaymentID string `json:"payment_id"`
	Code      string `json:"code"`
	Message   string `json:"message"`
}

// RunResult summarises one reconciliation run.
type RunResult struct {
	Scanned  int                `json:"scanned"`
	Repaired int                `json:"repaired"`
	Failed   []ReconcileFailure `json:"failed"`
	Duration time.Duration      `json:"duration_ns"`
}

// ReconciliationServicer defines the contract for detecting and repairing
// approved payments without a ledger entry.
type ReconciliationServicer interface {
	FindUnreconciled(organizerID string, page pagination.PageRequest) (*pagination.PageResponse[models.PaymentRequest], error)
	CountUnreconciled(perspective models.Perspective, ownerID string) (int64, error)
	Reconcile(ctx context.Context, limit int) (*RunResult, error)
}

// AuditServicer defines the contract for audit logging.
type AuditServicer interface {
	Log(actorID, action, resourceType, resourceID, ipAddress string, changes map[string]interface{})
}
