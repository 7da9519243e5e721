package handlers

import (
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "tabung/internal/errors"
	"tabung/internal/middleware"
	"tabung/internal/models"
	"tabung/internal/services"
)

// getUserID extracts the authenticated user ID from the Gin context.
// Returns ErrUnauthorized if not present.
func getUserID(c *gin.Context) (string, error) {
	userID, exists := c.Get(middleware.UserIDKey)
	if !exists {
		return "", apperrors.ErrUnauthorized
	}
	id, ok := userID.(string)
	if !ok || id == "" {
		return "", apperrors.ErrUnauthorized
	}
	return id, nil
}

// getActor builds the service-layer actor of the authenticated request.
func getActor(c *gin.Context) (services.Actor, error) {
	userID, err := getUserID(c)
	if err != nil {
		return services.Actor{}, err
	}
	role, _ := c.Get(middleware.RoleKey)
	r, _ := role.(models.Role)
	return services.Actor{ID: userID, Role: r, IP: c.ClientIP()}, nil
}

// ownPerspective returns the ledger perspective of the authenticated user.
// Admins own no ledger and get ErrForbidden.
func ownPerspective(actor services.Actor) (models.Perspective, error) {
	p, ok := actor.Role.Perspective()
	if !ok {
		return "", apperrors.WithMessage(apperrors.ErrForbidden, "Only tenants and organizers own a ledger")
	}
	return p, nil
}

// requireIDParam returns a non-empty path parameter.
func requireIDParam(c *gin.Context, param string) (string, error) {
	id := strings.TrimSpace(c.Param(param))
	if id == "" {
		return "", apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid "+param)
	}
	return id, nil
}

// parseFlexibleTime accepts RFC3339 timestamps or plain YYYY-MM-DD dates.
func parseFlexibleTime(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return time.Time{}, errors.New("invalid date format, use RFC3339 or YYYY-MM-DD")
	}
	return t, nil
}

// respondWithError attaches err to the context and stops the chain.
// middleware.ErrorHandler renders it.
func respondWithError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// ErrorDetail represents the inner error object in an error response.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// MessageResponse represents a plain message response.
type MessageResponse struct {
	Message string `json:"message"`
}

// TransactionResponse wraps a single transaction.
type TransactionResponse struct {
	Transaction *models.Transaction `json:"transaction"`
}

// RequestResponse wraps a single organizer-link, location or payment request.
type RequestResponse struct {
	Request interface{} `json:"request"`
}
