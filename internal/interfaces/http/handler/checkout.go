package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/storefront/checkout/internal/application/checkout"
	"github.com/storefront/checkout/internal/domain/identity"
	"github.com/storefront/checkout/internal/domain/pricing"
	"github.com/storefront/checkout/internal/infrastructure/telemetry"
	"github.com/storefront/checkout/internal/interfaces/http/dto"
)

// CheckoutHandler dispatches checkout screen intents to the shopper's session
// and answers with the refreshed view model
type CheckoutHandler struct {
	BaseHandler
	workspaces Workspaces
	handoffs   checkout.HandoffStore
	handoffTTL time.Duration
	metrics    *telemetry.Metrics
}

// NewCheckoutHandler creates a new CheckoutHandler. metrics may be nil.
func NewCheckoutHandler(
	workspaces Workspaces,
	handoffs checkout.HandoffStore,
	handoffTTL time.Duration,
	metrics *telemetry.Metrics,
) *CheckoutHandler {
	if handoffTTL <= 0 {
		handoffTTL = checkout.DefaultHandoffTTL
	}
	return &CheckoutHandler{
		workspaces: workspaces,
		handoffs:   handoffs,
		handoffTTL: handoffTTL,
		metrics:    metrics,
	}
}

// intent runs fn on the started session and responds with the view model
func (h *CheckoutHandler) intent(c *gin.Context, fn func(ctx context.Context, s *checkout.Session) error) {
	h.withWorkspace(c, h.workspaces, func(user *identity.User, ws *checkout.Workspace) {
		ctx := c.Request.Context()
		if err := ensureStarted(ctx, ws, user); err != nil {
			h.HandleError(c, err)
			return
		}
		if fn != nil {
			if err := fn(ctx, ws.Session); err != nil {
				h.HandleError(c, err)
				return
			}
		}
		h.Success(c, dto.ToCheckoutResponse(ws.Session.View()))
	})
}

// Get serves GET /checkout: checkout screen. Starts the checkout session on
// first use and returns the view model.
func (h *CheckoutHandler) Get(c *gin.Context) {
	h.intent(c, nil)
}

// OpenDialog serves POST /checkout/dialog/open: open the address dialog.
func (h *CheckoutHandler) OpenDialog(c *gin.Context) {
	h.intent(c, func(ctx context.Context, s *checkout.Session) error {
		return s.OpenAddressDialog(ctx)
	})
}

// SelectAddress serves POST /checkout/dialog/select: stage a saved address in
// the picker.
func (h *CheckoutHandler) SelectAddress(c *gin.Context) {
	var req dto.SelectAddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	h.intent(c, func(_ context.Context, s *checkout.Session) error {
		return s.SelectAddress(req.ID)
	})
}

// ConfirmDialog serves POST /checkout/dialog/confirm: commit the staged
// address.
func (h *CheckoutHandler) ConfirmDialog(c *gin.Context) {
	h.intent(c, func(_ context.Context, s *checkout.Session) error {
		return s.ConfirmAddressSelection()
	})
}

// CancelDialog serves POST /checkout/dialog/cancel: back out of the address
// dialog.
func (h *CheckoutHandler) CancelDialog(c *gin.Context) {
	h.intent(c, func(_ context.Context, s *checkout.Session) error {
		return s.CancelDialog()
	})
}

// AddAddress serves POST /checkout/dialog/add: open the editor on a new
// address.
func (h *CheckoutHandler) AddAddress(c *gin.Context) {
	h.intent(c, func(ctx context.Context, s *checkout.Session) error {
		return s.StartNewAddress(ctx)
	})
}

// EditAddress serves POST /checkout/dialog/edit/:id: open the editor on a
// saved address.
func (h *CheckoutHandler) EditAddress(c *gin.Context) {
	id := c.Param("id")
	h.intent(c, func(ctx context.Context, s *checkout.Session) error {
		return s.EditAddress(ctx, id)
	})
}

// SaveAddress serves POST /checkout/dialog/save: submit the address editor.
func (h *CheckoutHandler) SaveAddress(c *gin.Context) {
	h.intent(c, func(ctx context.Context, s *checkout.Session) error {
		_, err := s.SaveAddress(ctx)
		return err
	})
}

// DeleteAddress serves DELETE /checkout/addresses/:id: delete a saved address.
func (h *CheckoutHandler) DeleteAddress(c *gin.Context) {
	id := c.Param("id")
	h.intent(c, func(ctx context.Context, s *checkout.Session) error {
		return s.DeleteAddress(ctx, id)
	})
}

// SelectProvince serves POST /checkout/editor/province: select a province in
// the editor.
func (h *CheckoutHandler) SelectProvince(c *gin.Context) {
	h.region(c, func(ctx context.Context, s *checkout.Session, code string) error {
		return s.SelectProvince(ctx, code)
	})
}

// SelectDistrict serves POST /checkout/editor/district: select a district in
// the editor.
func (h *CheckoutHandler) SelectDistrict(c *gin.Context) {
	h.region(c, func(ctx context.Context, s *checkout.Session, code string) error {
		return s.SelectDistrict(ctx, code)
	})
}

// SelectWard serves POST /checkout/editor/ward: select a ward in the editor.
func (h *CheckoutHandler) SelectWard(c *gin.Context) {
	h.region(c, func(_ context.Context, s *checkout.Session, code string) error {
		return s.SelectWard(code)
	})
}

func (h *CheckoutHandler) region(c *gin.Context, fn func(ctx context.Context, s *checkout.Session, code string) error) {
	var req dto.RegionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	h.intent(c, func(ctx context.Context, s *checkout.Session) error {
		return fn(ctx, s, req.Code)
	})
}

// SetEditorFields serves PUT /checkout/editor/fields: set free-text editor
// fields.
func (h *CheckoutHandler) SetEditorFields(c *gin.Context) {
	var req dto.EditorFieldsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	h.intent(c, func(_ context.Context, s *checkout.Session) error {
		return s.SetEditorFields(req.ToEditorFields())
	})
}

// ApplyCoupon serves POST /checkout/coupon: apply a coupon.
func (h *CheckoutHandler) ApplyCoupon(c *gin.Context) {
	var req dto.CouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	h.intent(c, func(_ context.Context, s *checkout.Session) error {
		return s.ApplyCoupon(req.Code, pricing.CouponKind(req.Kind), req.Value)
	})
}

// ClearCoupon serves DELETE /checkout/coupon: remove the applied coupon.
func (h *CheckoutHandler) ClearCoupon(c *gin.Context) {
	h.intent(c, func(_ context.Context, s *checkout.Session) error {
		s.ClearCoupon()
		return nil
	})
}

// Pay serves POST /checkout/pay: hand the order over to the payment screen.
func (h *CheckoutHandler) Pay(c *gin.Context) {
	h.withWorkspace(c, h.workspaces, func(user *identity.User, ws *checkout.Workspace) {
		ctx := c.Request.Context()
		if err := ensureStarted(ctx, ws, user); err != nil {
			h.HandleError(c, err)
			return
		}
		handoff, err := ws.Session.ProceedToPayment(ctx)
		h.metrics.ObserveHandoff(err)
		if err != nil {
			h.HandleError(c, err)
			return
		}
		h.Created(c, dto.ToPaymentResponse(handoff, h.handoffTTL))
	})
}

// GetHandoff serves GET /checkout/handoff/:token: read a payment handoff. The
// payment screen reads the order snapshot by token. Tokens of other shoppers
// are not found.
func (h *CheckoutHandler) GetHandoff(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}
	handoff, err := h.handoffs.Load(c.Request.Context(), c.Param("token"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if handoff.UserSubject != user.Key() {
		h.HandleError(c, checkout.ErrHandoffNotFound)
		return
	}
	h.Success(c, dto.ToHandoffResponse(handoff, h.handoffTTL))
}
