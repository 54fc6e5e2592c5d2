package pricing

import (
	"strings"

	"github.com/shopspring/decimal"
	"github.com/storefront/checkout/internal/domain/shared"
)

// CouponKind is how a coupon value is interpreted
type CouponKind string

const (
	CouponPercentage CouponKind = "percentage"
	CouponFixed      CouponKind = "fixed"
)

var hundred = decimal.NewFromInt(100)

// Coupon is an optional discount supplied by the shopper
type Coupon struct {
	Code  string          `json:"code"`
	Kind  CouponKind      `json:"kind"`
	Value decimal.Decimal `json:"value"`
}

// NewCoupon creates a validated coupon
func NewCoupon(code string, kind CouponKind, value decimal.Decimal) (*Coupon, error) {
	c := &Coupon{Code: strings.TrimSpace(code), Kind: kind, Value: value}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks code, kind and value range
func (c *Coupon) Validate() error {
	if c.Code == "" {
		return shared.NewValidationError(shared.ErrInvalidCoupon.Code, "Coupon code is required", "code")
	}
	switch c.Kind {
	case CouponPercentage:
		if c.Value.IsNegative() || c.Value.GreaterThan(hundred) {
			return shared.NewValidationError(shared.ErrInvalidCoupon.Code, "Percentage must be 0-100", "value")
		}
	case CouponFixed:
		if c.Value.IsNegative() {
			return shared.NewValidationError(shared.ErrInvalidCoupon.Code, "Fixed discount cannot be negative", "value")
		}
	default:
		return shared.NewValidationError(shared.ErrInvalidCoupon.Code, "Invalid coupon type", "kind")
	}
	return nil
}

// DiscountFor returns the discount this coupon grants on subtotal. A fixed
// discount never exceeds the subtotal.
func (c *Coupon) DiscountFor(subtotal decimal.Decimal) decimal.Decimal {
	switch c.Kind {
	case CouponPercentage:
		return subtotal.Mul(c.Value).Div(hundred).Round(2)
	case CouponFixed:
		return decimal.Min(c.Value, subtotal)
	}
	return decimal.Zero
}
