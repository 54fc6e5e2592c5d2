package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/storefront/checkout/internal/interfaces/http/handler"
)

// Handlers are the BFF handlers mounted by Mount
type Handlers struct {
	Cart     *handler.CartHandler
	Checkout *handler.CheckoutHandler
	Session  *handler.SessionHandler
	Catalog  *handler.CatalogHandler
	Health   *handler.HealthHandler
	// Metrics serves the Prometheus exposition; nil leaves /metrics unrouted.
	Metrics http.Handler
}

// Mount registers the public health check on engine and the shopper API under
// /api/v1 behind apiMiddleware. It returns the API routes it installed.
func Mount(engine *gin.Engine, h Handlers, apiMiddleware ...gin.HandlerFunc) []Route {
	engine.GET("/health", h.Health.Health)
	if h.Metrics != nil {
		engine.GET("/metrics", gin.WrapH(h.Metrics))
	}

	cart := NewDomainGroup("")
	cart.GET("/minicart", h.Cart.MiniCart)
	cart.GET("/cart", h.Cart.Get)
	cart.PATCH("/cart/items/:index", h.Cart.UpdateItem)
	cart.DELETE("/cart/items/:index", h.Cart.RemoveItem)

	catalog := NewDomainGroup("")
	catalog.GET("/categories", h.Catalog.Categories)

	checkout := NewDomainGroup("/checkout")
	checkout.GET("", h.Checkout.Get)
	checkout.POST("/pay", h.Checkout.Pay)
	checkout.GET("/handoff/:token", h.Checkout.GetHandoff)
	checkout.DELETE("/addresses/:id", h.Checkout.DeleteAddress)
	checkout.POST("/coupon", h.Checkout.ApplyCoupon)
	checkout.DELETE("/coupon", h.Checkout.ClearCoupon)

	dialog := checkout.Child("/dialog")
	dialog.POST("/open", h.Checkout.OpenDialog)
	dialog.POST("/select", h.Checkout.SelectAddress)
	dialog.POST("/confirm", h.Checkout.ConfirmDialog)
	dialog.POST("/cancel", h.Checkout.CancelDialog)
	dialog.POST("/add", h.Checkout.AddAddress)
	dialog.POST("/edit/:id", h.Checkout.EditAddress)
	dialog.POST("/save", h.Checkout.SaveAddress)

	editor := checkout.Child("/editor")
	editor.POST("/province", h.Checkout.SelectProvince)
	editor.POST("/district", h.Checkout.SelectDistrict)
	editor.POST("/ward", h.Checkout.SelectWard)
	editor.PUT("/fields", h.Checkout.SetEditorFields)

	session := NewDomainGroup("/session")
	session.POST("/end", h.Session.End)

	return NewAPI(DefaultAPIVersion, apiMiddleware...).
		Add(cart, catalog, checkout, session).
		Install(engine)
}
