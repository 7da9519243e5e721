package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tabung/internal/ledger"
)

// CategoryHandler serves the category vocabulary the allocation engine
// recognizes.
type CategoryHandler struct{}

// NewCategoryHandler creates a new CategoryHandler.
func NewCategoryHandler() *CategoryHandler {
	return &CategoryHandler{}
}

// CategoriesResponse lists the classified categories.
type CategoriesResponse struct {
	Categories   []ledger.CategoryInfo `json:"categories"`
	DefaultLabel string                `json:"default_label"`
}

// GetCategories lists the known categories and their classification
// @Summary     List categories
// @Description Categories with a special classification (capital, zakat-linked, investment-linked). Any other category is generic.
// @Tags        categories
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} CategoriesResponse "Known categories"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /categories [get]
func (h *CategoryHandler) GetCategories(c *gin.Context) {
	c.JSON(http.StatusOK, CategoriesResponse{
		Categories:   ledger.KnownCategories(),
		DefaultLabel: ledger.DefaultCategoryLabel,
	})
}
