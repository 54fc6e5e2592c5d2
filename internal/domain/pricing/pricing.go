package pricing

import (
	"github.com/shopspring/decimal"
	"github.com/storefront/checkout/internal/domain/cart"
	"github.com/storefront/checkout/internal/domain/shared"
)

// Adjustments are the order-level amounts not derived from cart contents.
// They are supplied by the caller so real discount, shipping and tax
// computation can replace the defaults without touching call sites.
type Adjustments struct {
	Discount decimal.Decimal
	Shipping decimal.Decimal
	Tax      decimal.Decimal
}

// DefaultAdjustments returns the storefront placeholder values:
// discount 2, shipping 2, tax 0.
func DefaultAdjustments() Adjustments {
	return Adjustments{
		Discount: decimal.NewFromInt(2),
		Shipping: decimal.NewFromInt(2),
		Tax:      decimal.Zero,
	}
}

// Breakdown is the derived price summary of a cart. It is recomputed on every
// read and never stored.
type Breakdown struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Discount decimal.Decimal `json:"discount"`
	Shipping decimal.Decimal `json:"shipping"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
	// Warning is set to a NEGATIVE_TOTAL DomainError when Total was clamped.
	Warning error `json:"-"`
}

// Clamped reports whether the total was clamped to zero
func (b Breakdown) Clamped() bool {
	return b.Warning != nil
}

// Subtotal sums price * quantity over items
func Subtotal(items []cart.LineItem) decimal.Decimal {
	sum := decimal.Zero
	for _, item := range items {
		sum = sum.Add(item.Amount())
	}
	return sum
}

// ComputeBreakdown derives the price breakdown of items.
//
//	total = subtotal - discount + shipping + tax, clamped at zero
//
// The coupon discount, if any, is added to adj.Discount.
func ComputeBreakdown(items []cart.LineItem, coupon *Coupon, adj Adjustments) Breakdown {
	subtotal := Subtotal(items)
	discount := adj.Discount
	if coupon != nil {
		discount = discount.Add(coupon.DiscountFor(subtotal))
	}

	b := Breakdown{
		Subtotal: subtotal,
		Discount: discount,
		Shipping: adj.Shipping,
		Tax:      adj.Tax,
	}
	b.Total = subtotal.Sub(discount).Add(adj.Shipping).Add(adj.Tax)
	if b.Total.IsNegative() {
		b.Warning = shared.NewDomainError(shared.KindNegativeTotal, "NEGATIVE_TOTAL",
			"Total was negative and has been clamped to zero")
		b.Total = decimal.Zero
	}
	return b
}

// Engine computes breakdowns with a fixed set of default adjustments, so the
// mini-cart, cart page and checkout summary agree.
type Engine struct {
	defaults Adjustments
}

// NewEngine creates an Engine using defaults for every computation
func NewEngine(defaults Adjustments) *Engine {
	return &Engine{defaults: defaults}
}

// Defaults returns the adjustments the engine applies
func (e *Engine) Defaults() Adjustments {
	return e.defaults
}

// Compute derives the breakdown of items with the engine defaults
func (e *Engine) Compute(items []cart.LineItem, coupon *Coupon) Breakdown {
	return ComputeBreakdown(items, coupon, e.defaults)
}
