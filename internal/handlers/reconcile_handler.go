package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "tabung/internal/errors"
	"tabung/internal/models"
	"tabung/internal/pagination"
	"tabung/internal/services"
)

// ReconcileHandler exposes approved payments that are missing their ledger
// entry and the repair run.
type ReconcileHandler struct {
	reconcileService services.ReconciliationServicer
}

// NewReconcileHandler creates a new ReconcileHandler.
func NewReconcileHandler(reconcileService services.ReconciliationServicer) *ReconcileHandler {
	return &ReconcileHandler{reconcileService: reconcileService}
}

// ReconcileRequest bounds one repair run.
type ReconcileRequest struct {
	Limit int `json:"limit" binding:"omitempty,min=1,max=1000"`
}

// ListUnreconciled lists approved payments without a ledger entry
// @Summary     List unreconciled payments
// @Description Organizers see the payments of their own tenants. Admins see all, or one organizer's with organizer_id.
// @Tags        reconciliation
// @Produce     json
// @Security    BearerAuth
// @Param       organizer_id query string false "Organizer to scope to (admin only)"
// @Param       page         query int    false "Page number (default 1)"
// @Param       page_size    query int    false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.PaymentRequest] "Unreconciled payments"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     403 {object} ErrorResponse "Tenants cannot list unreconciled payments"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /payments/unreconciled [get]
func (h *ReconcileHandler) ListUnreconciled(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var organizerID string
	switch actor.Role {
	case models.RoleOrganizer:
		organizerID = actor.ID
	case models.RoleAdmin:
		organizerID = c.Query("organizer_id")
	default:
		respondWithError(c, apperrors.ErrForbidden)
		return
	}

	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	result, err := h.reconcileService.FindUnreconciled(organizerID, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Reconcile runs one repair pass
// @Summary     Run reconciliation
// @Description Creates the missing ledger entry of up to limit approved payments. Payments that cannot be repaired are reported and skipped.
// @Tags        internal
// @Accept      json
// @Produce     json
// @Security    InternalAPIKey
// @Param       request body     ReconcileRequest false "Run bounds"
// @Success     200     {object} services.RunResult "Run summary"
// @Failure     400     {object} ErrorResponse "Invalid input"
// @Failure     401     {object} ErrorResponse "Invalid API key"
// @Failure     500     {object} ErrorResponse "Server error"
// @Router      /internal/reconcile [post]
func (h *ReconcileHandler) Reconcile(c *gin.Context) {
	var req ReconcileRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
			return
		}
	}

	result, err := h.reconcileService.Reconcile(c.Request.Context(), req.Limit)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
