package handlers

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "tabung/internal/errors"
	"tabung/internal/export"
	"tabung/internal/models"
	"tabung/internal/services"
)

// ReportHandler serves allocation reports.
type ReportHandler struct {
	reportService services.ReportServicer
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(reportService services.ReportServicer) *ReportHandler {
	return &ReportHandler{reportService: reportService}
}

// ReportQuery selects the ledger to report on. Only admins set it.
type ReportQuery struct {
	Perspective models.Perspective `form:"perspective" binding:"omitempty,perspective"`
	OwnerID     string             `form:"owner_id" binding:"omitempty,max=64"`
}

func bindReportQuery(c *gin.Context) (services.Actor, ReportQuery, error) {
	actor, err := getActor(c)
	if err != nil {
		return actor, ReportQuery{}, err
	}
	var q ReportQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		return actor, q, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error())
	}
	return actor, q, nil
}

// GetAllocationReport computes the allocation report of a ledger
// @Summary     Allocation report
// @Description Totals, bucket allocation, balance sheet and category breakdown. Tenants and organizers get their own ledger; admins pass perspective and owner_id.
// @Tags        reports
// @Produce     json
// @Security    BearerAuth
// @Param       perspective query string false "Ledger perspective (admin only)"
// @Param       owner_id    query string false "Ledger owner (admin only)"
// @Success     200 {object} services.AllocationReport "Allocation report"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Not the caller's ledger"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /reports/allocation [get]
func (h *ReportHandler) GetAllocationReport(c *gin.Context) {
	actor, q, err := bindReportQuery(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	report, err := h.reportService.GetReport(actor, q.Perspective, q.OwnerID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// ExportAllocationReport downloads the allocation report as XLSX
// @Summary     Export allocation report
// @Description Same report as /reports/allocation as an XLSX workbook. Not available on every plan.
// @Tags        reports
// @Produce     application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security    BearerAuth
// @Param       perspective query string false "Ledger perspective (admin only)"
// @Param       owner_id    query string false "Ledger owner (admin only)"
// @Success     200 {file} file "XLSX workbook"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Plan does not allow downloads"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /reports/allocation/export [get]
func (h *ReportHandler) ExportAllocationReport(c *gin.Context) {
	actor, q, err := bindReportQuery(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	report, err := h.reportService.ExportReport(actor, q.Perspective, q.OwnerID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	meta := export.Meta{
		OwnerID:              report.OwnerID,
		Perspective:          string(report.Perspective),
		GeneratedAt:          report.GeneratedAt,
		UnreconciledPayments: report.UnreconciledPayments,
	}
	var buf bytes.Buffer
	if err := export.Write(&buf, report.Report, meta); err != nil {
		respondWithError(c, apperrors.Wrap(apperrors.ErrInternalServer, err))
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.FileName(meta)))
	c.Data(http.StatusOK, export.ContentType, buf.Bytes())
}
