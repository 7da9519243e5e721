// Package validator provides custom validation functions for Gin's binding engine.
package validator

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"tabung/internal/models"
)

// Register registers all custom validators with the Gin binding engine.
func Register() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("transaction_type", validateTransactionType)
		_ = v.RegisterValidation("transaction_status", validateTransactionStatus)
		_ = v.RegisterValidation("perspective", validatePerspective)
		_ = v.RegisterValidation("request_kind", validateRequestKind)
		_ = v.RegisterValidation("bucket_name", validateBucketName)
		_ = v.RegisterValidation("user_role", validateUserRole)
		_ = v.RegisterValidation("payment_method", validatePaymentMethod)
	}
}

func validateTransactionType(fl validator.FieldLevel) bool {
	switch models.TransactionType(fl.Field().String()) {
	case models.TransactionTypeIncome, models.TransactionTypeExpense:
		return true
	}
	return false
}

// Only review outcomes can be requested; pending is the initial state.
func validateTransactionStatus(fl validator.FieldLevel) bool {
	switch models.Status(fl.Field().String()) {
	case models.StatusApproved, models.StatusRejected:
		return true
	}
	return false
}

func validatePerspective(fl validator.FieldLevel) bool {
	switch models.Perspective(fl.Field().String()) {
	case models.PerspectiveTenant, models.PerspectiveOrganizer:
		return true
	}
	return false
}

func validateRequestKind(fl validator.FieldLevel) bool {
	return models.RequestKind(fl.Field().String()).IsValid()
}

func validateBucketName(fl validator.FieldLevel) bool {
	return models.Bucket(fl.Field().String()).IsValid()
}

// Admins are provisioned out of band and cannot self-register.
func validateUserRole(fl validator.FieldLevel) bool {
	switch models.Role(fl.Field().String()) {
	case models.RoleTenant, models.RoleOrganizer:
		return true
	}
	return false
}

func validatePaymentMethod(fl validator.FieldLevel) bool {
	return models.IsValidPaymentMethod(fl.Field().String())
}
