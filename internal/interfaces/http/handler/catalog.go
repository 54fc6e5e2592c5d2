package handler

import (
	"context"

	"github.com/gin-gonic/gin"
)

// CategoryLister lists the category menu
type CategoryLister interface {
	Categories(ctx context.Context) ([]string, error)
}

// CatalogHandler serves the navigation chrome
type CatalogHandler struct {
	BaseHandler
	catalog CategoryLister
}

// NewCatalogHandler creates a new CatalogHandler
func NewCatalogHandler(catalog CategoryLister) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

// Categories serves GET /categories: list product categories.
func (h *CatalogHandler) Categories(c *gin.Context) {
	names, err := h.catalog.Categories(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, names)
}
