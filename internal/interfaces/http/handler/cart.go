package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/storefront/checkout/internal/application/checkout"
	"github.com/storefront/checkout/internal/domain/identity"
	"github.com/storefront/checkout/internal/interfaces/http/dto"
)

// DefaultPreviewLimit is the number of mini-cart items shown in the header
const DefaultPreviewLimit = 4

// CartHandler serves the header mini-cart and the cart page
type CartHandler struct {
	BaseHandler
	workspaces   Workspaces
	previewLimit int
}

// NewCartHandler creates a new CartHandler
func NewCartHandler(workspaces Workspaces, previewLimit int) *CartHandler {
	if previewLimit <= 0 {
		previewLimit = DefaultPreviewLimit
	}
	return &CartHandler{workspaces: workspaces, previewLimit: previewLimit}
}

// MiniCart serves GET /minicart: header cart preview.
func (h *CartHandler) MiniCart(c *gin.Context) {
	limit := h.previewLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			h.BadRequest(c, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	h.withWorkspace(c, h.workspaces, func(user *identity.User, ws *checkout.Workspace) {
		if err := ws.MiniCart.Hydrate(c.Request.Context(), user); err != nil {
			h.HandleError(c, err)
			return
		}
		h.Success(c, dto.ToMiniCartResponse(ws.MiniCart.LimitedPreview(limit), ws.MiniCart.Len()))
	})
}

// Get serves GET /cart: cart page.
func (h *CartHandler) Get(c *gin.Context) {
	h.withWorkspace(c, h.workspaces, func(user *identity.User, ws *checkout.Workspace) {
		if err := ensureStarted(c.Request.Context(), ws, user); err != nil {
			h.HandleError(c, err)
			return
		}
		h.Success(c, dto.ToCartResponse(ws.Session.CartSummary()))
	})
}

// UpdateItem serves PATCH /cart/items/:index: change quantity or variant of a
// line item.
func (h *CartHandler) UpdateItem(c *gin.Context) {
	index, ok := h.pathIndex(c, "index")
	if !ok {
		return
	}
	var req dto.UpdateLineItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	h.withWorkspace(c, h.workspaces, func(user *identity.User, ws *checkout.Workspace) {
		if err := ensureStarted(c.Request.Context(), ws, user); err != nil {
			h.HandleError(c, err)
			return
		}
		if req.Quantity != nil {
			if err := ws.Session.SetQuantity(index, *req.Quantity); err != nil {
				h.HandleError(c, err)
				return
			}
		}
		if req.Size != nil {
			if err := ws.Session.SetSize(index, *req.Size); err != nil {
				h.HandleError(c, err)
				return
			}
		}
		if req.Color != nil {
			if err := ws.Session.SetColor(index, *req.Color); err != nil {
				h.HandleError(c, err)
				return
			}
		}
		h.Success(c, dto.ToCartResponse(ws.Session.CartSummary()))
	})
}

// RemoveItem serves DELETE /cart/items/:index: remove a line item.
func (h *CartHandler) RemoveItem(c *gin.Context) {
	index, ok := h.pathIndex(c, "index")
	if !ok {
		return
	}
	h.withWorkspace(c, h.workspaces, func(user *identity.User, ws *checkout.Workspace) {
		if err := ensureStarted(c.Request.Context(), ws, user); err != nil {
			h.HandleError(c, err)
			return
		}
		if err := ws.Session.RemoveItem(index); err != nil {
			h.HandleError(c, err)
			return
		}
		h.Success(c, dto.ToCartResponse(ws.Session.CartSummary()))
	})
}
