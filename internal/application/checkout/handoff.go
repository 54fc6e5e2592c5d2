package checkout

import (
	"context"
	"errors"
	"time"

	"github.com/storefront/checkout/internal/domain/address"
	"github.com/storefront/checkout/internal/domain/cart"
	"github.com/storefront/checkout/internal/domain/pricing"
)

// ErrHandoffNotFound is returned when a handoff token is unknown or expired
var ErrHandoffNotFound = errors.New("payment handoff not found")

// Handoff is the immutable order snapshot passed to the payment screen.
// Clamped survives storage; the breakdown warning itself does not.
type Handoff struct {
	Token       string            `json:"token"`
	UserSubject string            `json:"userSubject"`
	Address     address.Address   `json:"address"`
	Items       []cart.LineItem   `json:"items"`
	Breakdown   pricing.Breakdown `json:"breakdown"`
	Clamped     bool              `json:"clamped"`
	Coupon      *pricing.Coupon   `json:"coupon,omitempty"`
	CreatedAt   time.Time         `json:"createdAt"`
}

// HandoffStore keeps handoffs until the payment screen picks them up
type HandoffStore interface {
	Save(ctx context.Context, h *Handoff, ttl time.Duration) error
	Load(ctx context.Context, token string) (*Handoff, error)
}
