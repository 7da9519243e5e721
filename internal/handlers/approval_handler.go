package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "tabung/internal/errors"
	"tabung/internal/models"
	"tabung/internal/pagination"
	"tabung/internal/services"
)

// ApprovalHandler handles organizer-link, location and rental-payment
// requests.
type ApprovalHandler struct {
	approvalService services.ApprovalServicer
}

// NewApprovalHandler creates a new ApprovalHandler.
func NewApprovalHandler(approvalService services.ApprovalServicer) *ApprovalHandler {
	return &ApprovalHandler{approvalService: approvalService}
}

// OrganizerLinkRequestBody asks an organizer to accept the caller.
type OrganizerLinkRequestBody struct {
	OrganizerID string `json:"organizer_id" binding:"required,max=64"`
}

// LocationRequestBody asks an organizer to assign a location to the caller.
type LocationRequestBody struct {
	OrganizerID string `json:"organizer_id" binding:"required,max=64"`
	LocationRef string `json:"location_ref" binding:"required,max=100"`
}

// PaymentRequestBody submits a rental payment.
type PaymentRequestBody struct {
	Amount        *decimal.Decimal `json:"amount" binding:"required"`
	PaymentMethod string           `json:"payment_method" binding:"required,payment_method"`
	ReceiptRef    *string          `json:"receipt_ref" binding:"omitempty,max=500"`
}

// ActivateLocationBody picks the rate category of an approved location.
type ActivateLocationBody struct {
	RateCategory string `json:"rate_category" binding:"required,max=50"`
}

// RejectBody carries an optional rejection reason.
type RejectBody struct {
	Reason string `json:"reason" binding:"max=500"`
}

type requestKindURI struct {
	Kind models.RequestKind `uri:"kind" binding:"required,request_kind"`
}

func requestKindParam(c *gin.Context) (models.RequestKind, error) {
	var uri requestKindURI
	if err := c.ShouldBindUri(&uri); err != nil {
		return "", apperrors.ErrInvalidRequestKind
	}
	return uri.Kind, nil
}

// CreateRequest submits a new request of the given kind
// @Summary     Submit a request
// @Description Tenants submit organizer-link (organizer_id), location (organizer_id, location_ref) or payment (amount, payment_method, receipt_ref) requests.
// @Tags        requests
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       kind path string true "Request kind (organizer-links, locations, payments)"
// @Success     201 {object} RequestResponse "Request created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     403 {object} ErrorResponse "Only tenants submit requests"
// @Failure     404 {object} ErrorResponse "Organizer not found"
// @Failure     409 {object} ErrorResponse "Duplicate request"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /requests/{kind} [post]
func (h *ApprovalHandler) CreateRequest(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	kind, err := requestKindParam(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var created interface{}
	switch kind {
	case models.RequestKindOrganizerLink:
		var req OrganizerLinkRequestBody
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
			return
		}
		created, err = h.approvalService.RequestOrganizerLink(userID, req.OrganizerID)
	case models.RequestKindLocation:
		var req LocationRequestBody
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
			return
		}
		created, err = h.approvalService.RequestLocation(userID, req.OrganizerID, req.LocationRef)
	case models.RequestKindPayment:
		var req PaymentRequestBody
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
			return
		}
		created, err = h.approvalService.SubmitPayment(userID, *req.Amount, req.PaymentMethod, req.ReceiptRef)
	}
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, RequestResponse{Request: created})
}

// ListRequests lists the requests of a kind visible to the caller
// @Summary     List requests
// @Description Tenants see their own requests, organizers the ones addressed to them, admins all.
// @Tags        requests
// @Produce     json
// @Security    BearerAuth
// @Param       kind      path  string true  "Request kind (organizer-links, locations, payments)"
// @Param       status    query string false "Filter by status"
// @Param       page      query int    false "Page number (default 1)"
// @Param       page_size query int    false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.PaymentRequest] "Paginated requests"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /requests/{kind} [get]
func (h *ApprovalHandler) ListRequests(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	kind, err := requestKindParam(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	var filter services.RequestFilter
	if v := c.Query("status"); v != "" {
		status := models.Status(v)
		switch status {
		case models.StatusPending, models.StatusApproved, models.StatusRejected, models.StatusActive:
			filter.Status = &status
		default:
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid status"))
			return
		}
	}

	var result interface{}
	switch kind {
	case models.RequestKindOrganizerLink:
		result, err = h.approvalService.ListOrganizerLinkRequests(actor, filter, page)
	case models.RequestKindLocation:
		result, err = h.approvalService.ListLocationRequests(actor, filter, page)
	case models.RequestKindPayment:
		result, err = h.approvalService.ListPaymentRequests(actor, filter, page)
	}
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Approve approves a pending request
// @Summary     Approve a request
// @Description Moves a pending request to approved. Approving a payment records the organizer's rent income in the same transaction.
// @Tags        requests
// @Produce     json
// @Security    BearerAuth
// @Param       kind path string true "Request kind"
// @Param       id   path string true "Request ID"
// @Success     200 {object} services.ApprovalResult "Decision"
// @Failure     403 {object} ErrorResponse "Not the addressed organizer"
// @Failure     404 {object} ErrorResponse "Request not found"
// @Failure     409 {object} ErrorResponse "Request is not pending"
// @Failure     422 {object} ErrorResponse "Organizer cannot be resolved"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /requests/{kind}/{id}/approve [post]
func (h *ApprovalHandler) Approve(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	kind, err := requestKindParam(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	id, err := requireIDParam(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.approvalService.Approve(actor, kind, id)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Reject rejects a pending request
// @Summary     Reject a request
// @Description Moves a pending request to rejected with an optional reason.
// @Tags        requests
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       kind    path string     true  "Request kind"
// @Param       id      path string     true  "Request ID"
// @Param       request body RejectBody false "Reason"
// @Success     200 {object} services.ApprovalResult "Decision"
// @Failure     403 {object} ErrorResponse "Not the addressed organizer"
// @Failure     404 {object} ErrorResponse "Request not found"
// @Failure     409 {object} ErrorResponse "Request is not pending"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /requests/{kind}/{id}/reject [post]
func (h *ApprovalHandler) Reject(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	kind, err := requestKindParam(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	id, err := requireIDParam(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req RejectBody
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
			return
		}
	}

	result, err := h.approvalService.Reject(actor, kind, id, req.Reason)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ActivateLocation activates an approved location of the caller
// @Summary     Activate a location
// @Description Moves an approved location to active once the tenant picks a rate category.
// @Tags        requests
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       kind    path string               true "Must be locations"
// @Param       id      path string               true "Location request ID"
// @Param       request body ActivateLocationBody true "Rate category"
// @Success     200 {object} RequestResponse "Active location"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Request not found"
// @Failure     409 {object} ErrorResponse "Location is not approved"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /requests/{kind}/{id}/activate [post]
func (h *ApprovalHandler) ActivateLocation(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	kind, err := requestKindParam(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	if kind != models.RequestKindLocation {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidRequestKind, "Only locations can be activated"))
		return
	}
	id, err := requireIDParam(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req ActivateLocationBody
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	loc, err := h.approvalService.ActivateLocation(userID, id, req.RateCategory)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, RequestResponse{Request: loc})
}
