package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "tabung/internal/errors"
	"tabung/internal/models"
	"tabung/internal/services"
)

// AllocationHandler handles the caller's allocation config.
type AllocationHandler struct {
	allocationService services.AllocationConfigServicer
	auditService      services.AuditServicer
}

// NewAllocationHandler creates a new AllocationHandler.
func NewAllocationHandler(allocationService services.AllocationConfigServicer, auditService services.AuditServicer) *AllocationHandler {
	return &AllocationHandler{allocationService: allocationService, auditService: auditService}
}

// SaveAllocationRequest represents the allocation config payload.
type SaveAllocationRequest struct {
	Percentages map[models.Bucket]decimal.Decimal `json:"percentages" binding:"required,dive,keys,bucket_name,endkeys"`
	BankNames   map[models.Bucket]string          `json:"bank_names" binding:"omitempty,dive,keys,bucket_name,endkeys,max=100"`
}

// AutoAdjustRequest represents the percentages to scale.
type AutoAdjustRequest struct {
	Percentages map[models.Bucket]decimal.Decimal `json:"percentages" binding:"required,dive,keys,bucket_name,endkeys"`
}

// GetAllocation returns the caller's allocation config
// @Summary     Get allocation config
// @Description Stored percentages and bank labels, with the tier they are read under. Unsaved accounts get an all-zero default.
// @Tags        allocation
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} services.AllocationSettings "Allocation settings"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /allocation [get]
func (h *AllocationHandler) GetAllocation(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	settings, err := h.allocationService.GetConfig(userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, settings)
}

// SaveAllocation validates and stores the caller's allocation config
// @Summary     Save allocation config
// @Description The buckets allowed by the caller's plan must sum to 100 (within 0.1). Nothing is saved otherwise.
// @Tags        allocation
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body SaveAllocationRequest true "Percentages and bank labels"
// @Success     200 {object} services.AllocationSettings "Saved settings"
// @Failure     400 {object} ErrorResponse "Invalid input or total"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /allocation [put]
func (h *AllocationHandler) SaveAllocation(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req SaveAllocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	settings, err := h.allocationService.SaveConfig(actor.ID, models.Percentages(req.Percentages), req.BankNames)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(actor.ID, "SAVE_ALLOCATION", "allocation_config", settings.Config.ID, actor.IP,
		map[string]interface{}{"total": settings.Total.String(), "tier": settings.Tier.Name})

	c.JSON(http.StatusOK, settings)
}

// AutoAdjust scales percentages so the allowed buckets sum to 100
// @Summary     Auto-adjust percentages
// @Description Proportionally scales the allowed buckets to sum to exactly 100. The result is not saved.
// @Tags        allocation
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body AutoAdjustRequest true "Percentages to scale"
// @Success     200 {object} services.AllocationSettings "Adjusted percentages"
// @Failure     400 {object} ErrorResponse "Invalid input or zero sum"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /allocation/auto-adjust [post]
func (h *AllocationHandler) AutoAdjust(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req AutoAdjustRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	settings, err := h.allocationService.AutoAdjust(userID, models.Percentages(req.Percentages))
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, settings)
}
