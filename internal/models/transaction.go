package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType represents the direction of a transaction
type TransactionType string

const (
	TransactionTypeIncome  TransactionType = "income"
	TransactionTypeExpense TransactionType = "expense"
)

// Perspective identifies whose books a transaction belongs to. One real-world
// rent payment may exist once per perspective.
type Perspective string

const (
	PerspectiveTenant    Perspective = "tenant"
	PerspectiveOrganizer Perspective = "organizer"
)

// RentCategory is the category of organizer income derived from an approved
// rental payment.
const RentCategory = "Sewa"

// Transaction represents a money movement recorded under one perspective.
// Amount is never negative; the direction is carried by Type.
type Transaction struct {
	Base
	Perspective   Perspective       `gorm:"type:varchar(16);not null;index:idx_transactions_owner" json:"perspective"`
	OwnerID       string            `gorm:"type:uuid;not null;index:idx_transactions_owner" json:"owner_id"`
	Description   string            `json:"description"`
	Category      string            `gorm:"size:100" json:"category"`
	Amount        decimal.Decimal   `gorm:"type:numeric(20,2);not null" json:"amount"`
	Type          TransactionType   `gorm:"type:varchar(16);not null" json:"type"`
	Status        Status            `gorm:"type:varchar(16);not null;index" json:"status"`
	Date          time.Time         `gorm:"not null" json:"date"`
	ReceiptRef    *string           `json:"receipt_ref,omitempty"`
	IsRentPayment bool              `gorm:"not null" json:"is_rent_payment"`
	Metadata      map[string]string `gorm:"serializer:json" json:"metadata,omitempty"`

	// PaymentRef links a derived transaction to the payment request that
	// produced it. The unique index makes derived writes idempotent.
	PaymentRef *string `gorm:"type:uuid;uniqueIndex" json:"payment_ref,omitempty"`
}
