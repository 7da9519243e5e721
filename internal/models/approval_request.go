package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RequestKind names one of the three approval request stores.
type RequestKind string

const (
	RequestKindOrganizerLink RequestKind = "organizer-links"
	RequestKindLocation      RequestKind = "locations"
	RequestKindPayment       RequestKind = "payments"
)

// IsValid reports whether k is a known request kind.
func (k RequestKind) IsValid() bool {
	switch k {
	case RequestKindOrganizerLink, RequestKindLocation, RequestKindPayment:
		return true
	}
	return false
}

// Payment methods accepted for rental payments.
const (
	PaymentMethodCash         = "cash"
	PaymentMethodBankTransfer = "bank_transfer"
	PaymentMethodFPX          = "fpx"
	PaymentMethodEWallet      = "ewallet"
	PaymentMethodCard         = "card"
)

// IsValidPaymentMethod reports whether method is an accepted payment method.
func IsValidPaymentMethod(method string) bool {
	switch method {
	case PaymentMethodCash, PaymentMethodBankTransfer, PaymentMethodFPX, PaymentMethodEWallet, PaymentMethodCard:
		return true
	}
	return false
}

// OrganizerLinkRequest asks an organizer to accept a tenant.
type OrganizerLinkRequest struct {
	Base
	TenantID        string     `gorm:"type:uuid;not null;index" json:"tenant_id"`
	OrganizerID     string     `gorm:"type:uuid;not null;index" json:"organizer_id"`
	Status          Status     `gorm:"type:varchar(16);not null;index" json:"status"`
	RequestedAt     time.Time  `gorm:"not null" json:"requested_at"`
	ApprovedAt      *time.Time `json:"approved_at,omitempty"`
	RejectedAt      *time.Time `json:"rejected_at,omitempty"`
	RejectionReason string     `json:"rejection_reason,omitempty"`
}

// LocationRequest asks an organizer to assign a site location to a tenant.
type LocationRequest struct {
	Base
	TenantID        string     `gorm:"type:uuid;not null;index" json:"tenant_id"`
	OrganizerID     string     `gorm:"type:uuid;not null;index" json:"organizer_id"`
	LocationRef     string     `gorm:"not null" json:"location_ref"`
	Status          Status     `gorm:"type:varchar(16);not null;index" json:"status"`
	IsActive        bool       `gorm:"not null" json:"is_active"`
	RateCategory    string     `json:"rate_category,omitempty"`
	ApprovedAt      *time.Time `json:"approved_at,omitempty"`
	RejectedAt      *time.Time `json:"rejected_at,omitempty"`
	RejectionReason string     `json:"rejection_reason,omitempty"`
}

// IsActiveLink reports whether the location ties its tenant to its organizer.
func (l *LocationRequest) IsActiveLink() bool {
	return l.IsActive && (l.Status == StatusApproved || l.Status == StatusActive)
}

// PaymentRequest is a tenant's rental payment awaiting organizer review. The
// organizer is not stored; it is resolved through the tenant's links.
type PaymentRequest struct {
	Base
	TenantID            string          `gorm:"type:uuid;not null;index" json:"tenant_id"`
	Amount              decimal.Decimal `gorm:"type:numeric(20,2);not null" json:"amount"`
	PaymentMethod       string          `gorm:"size:32;not null" json:"payment_method"`
	ReceiptRef          *string         `json:"receipt_ref,omitempty"`
	Status              Status          `gorm:"type:varchar(16);not null;index" json:"status"`
	ApprovedAt          *time.Time      `json:"approved_at,omitempty"`
	ApprovedBy          *string         `gorm:"type:uuid" json:"approved_by,omitempty"`
	RejectedAt          *time.Time      `json:"rejected_at,omitempty"`
	RejectionReason     string          `json:"rejection_reason,omitempty"`
	LedgerTransactionID *string         `gorm:"type:uuid" json:"ledger_transaction_id,omitempty"`
}
